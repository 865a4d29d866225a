package ledger

import (
	"time"

	"parking-ledger-backend/internal/money"
)

// minimumBilledHundredths is the one hour every stay is charged at least.
const minimumBilledHundredths = 100

// ComputeFee prices a stay at the given hourly rate. Partial hours are billed in
// hundredths of an hour rounded up, seconds below a whole minute are ignored and the
// result is never below one hour.
func ComputeFee(entry, exit time.Time, hourlyRate money.Cents) money.Cents {
	return hourlyRate.MulHundredths(billedHundredths(exit.Sub(entry)))
}

// billedHundredths converts a duration into billed hours expressed in hundredths.
func billedHundredths(d time.Duration) int64 {
	if d < 0 {
		d = 0
	}
	totalMinutes := int64(d / time.Minute)
	wholeHours := totalMinutes / 60
	remainder := totalMinutes % 60

	// ceil(remainder * 100 / 60)
	billed := wholeHours*100 + (remainder*100+59)/60
	if billed < minimumBilledHundredths {
		billed = minimumBilledHundredths
	}
	return billed
}
