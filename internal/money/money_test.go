package money

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParse(t *testing.T) {
	testCases := []struct {
		raw       string
		expected  Cents
		expectErr bool
	}{
		{raw: "5.00", expected: 500},
		{raw: "5", expected: 500},
		{raw: "3.5", expected: 350},
		{raw: " 12.34 ", expected: 1234},
		{raw: ".75", expected: 75},
		{raw: "0", expected: 0},
		{raw: "", expectErr: true},
		{raw: "-1.00", expectErr: true},
		{raw: "1.234", expectErr: true},
		{raw: "1.", expectErr: true},
		{raw: "abc", expectErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.raw, func(t *testing.T) {
			got, err := Parse(tc.raw)
			if tc.expectErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tc.expected, got)
		})
	}
}

func TestMulHundredths(t *testing.T) {
	assert.Equal(t, Cents(545), Cents(500).MulHundredths(109))
	assert.Equal(t, Cents(500), Cents(500).MulHundredths(100))
	assert.Equal(t, Cents(1000), Cents(500).MulHundredths(200))
	// 2.35 * 1.09 = 2.5615 -> 2.56
	assert.Equal(t, Cents(256), Cents(235).MulHundredths(109))
	// 0.25 * 1.02 = 0.255 -> 0.26
	assert.Equal(t, Cents(26), Cents(25).MulHundredths(102))
	assert.Equal(t, Cents(0), Cents(0).MulHundredths(350))
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "5.45", Cents(545).FormatMajor())
	assert.Equal(t, "$0.07", Cents(7).String())
	assert.Equal(t, "$1200.00", Cents(120000).String())
	assert.Equal(t, "-0.50", Cents(-50).FormatMajor())
}
