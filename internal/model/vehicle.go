package model

import "time"

// Vehicle is identified by its normalized plate. Rows are never updated or deleted.
type Vehicle struct {
	ID        int64     `gorm:"primaryKey" json:"id"`
	Plate     string    `gorm:"uniqueIndex;size:7;not null" json:"plate"`
	CreatedAt time.Time `gorm:"not null" json:"createdAt"`
}
