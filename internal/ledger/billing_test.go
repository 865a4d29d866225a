package ledger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"parking-ledger-backend/internal/money"
)

func TestComputeFee(t *testing.T) {
	entry := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

	testCases := []struct {
		name     string
		exit     time.Time
		rate     money.Cents
		expected money.Cents
	}{
		{name: "One hour five minutes bills 1.09h", exit: entry.Add(65 * time.Minute), rate: 500, expected: 545},
		{name: "Short stay bills the one hour minimum", exit: entry.Add(10 * time.Minute), rate: 500, expected: 500},
		{name: "Exactly two hours", exit: entry.Add(2 * time.Hour), rate: 500, expected: 1000},
		{name: "Zero duration bills the minimum", exit: entry, rate: 500, expected: 500},
		{name: "Exit before entry bills the minimum", exit: entry.Add(-time.Hour), rate: 500, expected: 500},
		{name: "Seconds below a minute are ignored", exit: entry.Add(time.Hour + 59*time.Second), rate: 500, expected: 500},
		{name: "One minute over rounds up to 0.02h", exit: entry.Add(61 * time.Minute), rate: 500, expected: 510},
		{name: "Thirty minutes over is half an hour", exit: entry.Add(90 * time.Minute), rate: 400, expected: 600},
		{name: "Fractional cents round half up", exit: entry.Add(65 * time.Minute), rate: 250, expected: 273},
		{name: "Free facility", exit: entry.Add(3 * time.Hour), rate: 0, expected: 0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, ComputeFee(entry, tc.exit, tc.rate))
		})
	}
}

func TestBilledHundredths(t *testing.T) {
	testCases := []struct {
		d        time.Duration
		expected int64
	}{
		{d: 0, expected: 100},
		{d: 59 * time.Minute, expected: 100},
		{d: 65 * time.Minute, expected: 109},
		{d: 119 * time.Minute, expected: 199},
		{d: 25*time.Hour + 20*time.Minute, expected: 2534},
	}
	for _, tc := range testCases {
		assert.Equal(t, tc.expected, billedHundredths(tc.d), "duration %v", tc.d)
	}
}
