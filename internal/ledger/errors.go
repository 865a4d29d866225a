package ledger

import (
	"errors"
	"fmt"

	"parking-ledger-backend/internal/store"
)

// Sentinel error kinds surfaced by ledger operations. Every *Error unwraps to one of them.
var (
	ErrNotFound         = errors.New("ledger: not found")
	ErrConflict         = errors.New("ledger: conflict")
	ErrCapacityExceeded = errors.New("ledger: capacity exceeded")
	ErrInvalidArgument  = errors.New("ledger: invalid argument")
)

// Error is a caller-recoverable ledger failure with a human-readable message.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%v: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Kind
}

func newError(kind error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// translate maps storage outcomes onto the ledger taxonomy. Anything not recognized
// is returned unchanged and treated as an internal failure by callers.
func translate(err error, plate string, facilityID int64) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrFacilityNotFound):
		return newError(ErrNotFound, "facility %d does not exist", facilityID)
	case errors.Is(err, store.ErrNotParked):
		return newError(ErrNotFound, "plate %s is not currently parked at facility %d", plate, facilityID)
	case errors.Is(err, store.ErrAlreadyParked):
		return newError(ErrConflict, "plate %s is already parked", plate)
	case errors.Is(err, store.ErrAlreadyExited):
		return newError(ErrConflict, "plate %s has already exited", plate)
	case errors.Is(err, store.ErrFacilityFull):
		return newError(ErrCapacityExceeded, "facility %d is at capacity", facilityID)
	default:
		return err
	}
}

// IsInternal reports whether err is outside the ledger taxonomy.
func IsInternal(err error) bool {
	var le *Error
	return err != nil && !errors.As(err, &le)
}
