package model

import (
	"time"

	"parking-ledger-backend/internal/money"
)

// OccupancyStatus is the lifecycle state of an occupancy record.
type OccupancyStatus string

const (
	StatusParked OccupancyStatus = "PARKED"
	StatusExited OccupancyStatus = "EXITED"
)

// OccupancyRecord tracks one parked stay (hot table). At most one PARKED record per
// vehicle exists at any time; see db.Migrate for the partial unique index.
type OccupancyRecord struct {
	ID             int64           `gorm:"primaryKey" json:"id"`
	VehicleID      int64           `gorm:"not null;index" json:"vehicleId"`
	FacilityID     int64           `gorm:"not null;index:idx_occupancy_facility_status,priority:1" json:"facilityId"`
	EntryAt        time.Time       `gorm:"not null" json:"entryAt"`
	ExitAt         *time.Time      `json:"exitAt,omitempty"`
	TotalCostCents *money.Cents    `json:"totalCostCents,omitempty"`
	Status         OccupancyStatus `gorm:"size:16;not null;index:idx_occupancy_facility_status,priority:2" json:"status"`

	// Associations
	Vehicle  Vehicle  `gorm:"constraint:OnUpdate:RESTRICT,OnDelete:RESTRICT" json:"vehicle"`
	Facility Facility `gorm:"constraint:OnUpdate:RESTRICT,OnDelete:RESTRICT" json:"-"`
}

// FacilityOccupancy holds the number of PARKED records of a facility. It is the row
// admissions increment conditionally, which is what serializes the capacity check.
type FacilityOccupancy struct {
	FacilityID int64     `gorm:"primaryKey;autoIncrement:false"`
	Parked     int       `gorm:"not null;check:parked >= 0"`
	UpdatedAt  time.Time `gorm:"not null"`
}

// HistoryEntry is the append-only projection of a closed OccupancyRecord (cold table).
type HistoryEntry struct {
	ID                int64       `gorm:"primaryKey" json:"id"`
	OccupancyRecordID int64       `gorm:"not null;uniqueIndex" json:"occupancyRecordId"`
	Plate             string      `gorm:"size:7;not null;index" json:"plate"`
	FacilityName      string      `gorm:"size:128;not null" json:"facilityName"`
	EntryAt           time.Time   `gorm:"not null" json:"entryAt"`
	ExitAt            time.Time   `gorm:"not null;index" json:"exitAt"`
	TotalCostCents    money.Cents `gorm:"not null" json:"totalCostCents"`
	FacilityID        int64       `gorm:"not null;index" json:"facilityId"`
	VehicleID         int64       `gorm:"not null" json:"vehicleId"`
}
