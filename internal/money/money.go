// Package money holds integer-cent amounts used for hourly rates and parking fees.
// All arithmetic is integer-only.
package money

import (
	"fmt"
	"strconv"
	"strings"
)

// Cents is an amount in hundredths of the currency unit. Cents(545) is 5.45.
type Cents int64

// Parse reads a non-negative decimal with at most two fractional digits ("5", "5.4", "5.45").
func Parse(s string) (Cents, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("money: empty amount")
	}
	if strings.HasPrefix(s, "-") || strings.HasPrefix(s, "+") {
		return 0, fmt.Errorf("money: signed amount %q", s)
	}

	whole, frac, hasFrac := strings.Cut(s, ".")
	if whole == "" {
		whole = "0"
	}
	if hasFrac && (len(frac) == 0 || len(frac) > 2) {
		return 0, fmt.Errorf("money: amount %q must have one or two decimal places", s)
	}
	for _, r := range frac {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("money: invalid amount %q", s)
		}
	}
	for len(frac) < 2 {
		frac += "0"
	}

	major, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("money: invalid amount %q: %w", s, err)
	}
	minor, err := strconv.ParseInt(frac, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("money: invalid amount %q: %w", s, err)
	}
	return Cents(major*100 + minor), nil
}

// MulHundredths multiplies the amount by q/100, rounding half up to the nearest cent.
func (c Cents) MulHundredths(q int64) Cents {
	product := int64(c) * q
	return Cents((product + 50) / 100)
}

// FormatMajor renders the amount without a currency symbol: "5.45".
func (c Cents) FormatMajor() string {
	v := int64(c)
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}

// String renders the amount with a dollar sign: "$5.45".
func (c Cents) String() string {
	return "$" + c.FormatMajor()
}
