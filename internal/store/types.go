package store

import (
	"errors"
	"time"

	"parking-ledger-backend/internal/model"
	"parking-ledger-backend/internal/money"
)

// Storage-level outcomes. The ledger maps them onto its public error taxonomy.
var (
	ErrFacilityNotFound = errors.New("store: facility not found")
	ErrAlreadyParked    = errors.New("store: vehicle already parked")
	ErrFacilityFull     = errors.New("store: facility at capacity")
	ErrNotParked        = errors.New("store: vehicle not parked at facility")
	ErrAlreadyExited    = errors.New("store: occupancy record already exited")
)

// FeeFunc prices a stay from its entry and exit timestamps at the given hourly rate.
type FeeFunc func(entry, exit time.Time, hourlyRate money.Cents) money.Cents

// AdmitResult describes a freshly created PARKED record.
type AdmitResult struct {
	RecordID  int64
	VehicleID int64
	EntryAt   time.Time
	Facility  model.Facility
}

// ReleaseResult describes a closed record and the history entry appended for it.
type ReleaseResult struct {
	Record   model.OccupancyRecord
	Facility model.Facility
	History  model.HistoryEntry
}

// FacilityLoad is a facility together with its current number of parked vehicles.
type FacilityLoad struct {
	model.Facility
	Parked int `json:"parked"`
}
