package plate

import (
	"fmt"
	"regexp"
	"strings"
)

var plateRe = regexp.MustCompile(`^[A-Z0-9]{5,7}$`)

// Normalize trims and uppercases a raw license plate and checks that the result is
// 5 to 7 alphanumeric characters.
func Normalize(raw string) (string, error) {
	s := strings.ToUpper(strings.TrimSpace(raw))
	if !plateRe.MatchString(s) {
		return "", fmt.Errorf("invalid plate %q: expected 5-7 letters or digits", raw)
	}
	return s, nil
}

// Fragment prepares a partial plate for substring search. Blank fragments are rejected.
func Fragment(raw string) (string, error) {
	s := strings.ToUpper(strings.TrimSpace(raw))
	if s == "" {
		return "", fmt.Errorf("plate fragment must not be blank")
	}
	return s, nil
}
