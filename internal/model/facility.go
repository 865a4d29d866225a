package model

import (
	"time"

	"parking-ledger-backend/internal/money"
)

// Facility is the local mirror of a parking facility owned by the external registry.
// The ledger only reads Capacity and HourlyRateCents.
type Facility struct {
	ID              int64       `gorm:"primaryKey;autoIncrement:false" json:"id"` // Registry ID
	Name            string      `gorm:"uniqueIndex;size:128;not null" json:"name"`
	Capacity        int         `gorm:"not null;check:capacity > 0" json:"capacity"`
	HourlyRateCents money.Cents `gorm:"not null;check:hourly_rate_cents >= 0" json:"hourlyRateCents"`
	OperatorRef     *string     `gorm:"size:64" json:"operatorRef,omitempty"`
	CreatedAt       time.Time   `gorm:"not null" json:"-"`
	UpdatedAt       time.Time   `gorm:"not null" json:"-"`
}
