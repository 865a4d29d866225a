package db_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"parking-ledger-backend/config"
	"parking-ledger-backend/internal/db"
	"parking-ledger-backend/internal/db/dbtest"
	"parking-ledger-backend/internal/logger"
	"parking-ledger-backend/internal/model"
)

func TestMigrate_ParkedVehicleIsUnique(t *testing.T) {
	gormDB := dbtest.NewSQLite(t)

	facility := model.Facility{ID: 1, Name: "Centro", Capacity: 10, HourlyRateCents: 500}
	require.NoError(t, gormDB.Create(&facility).Error)
	vehicle := model.Vehicle{Plate: "ABC123"}
	require.NoError(t, gormDB.Create(&vehicle).Error)

	first := model.OccupancyRecord{VehicleID: vehicle.ID, FacilityID: 1, EntryAt: time.Now().UTC(), Status: model.StatusParked}
	require.NoError(t, gormDB.Omit("Vehicle", "Facility").Create(&first).Error)

	second := model.OccupancyRecord{VehicleID: vehicle.ID, FacilityID: 1, EntryAt: time.Now().UTC(), Status: model.StatusParked}
	err := gormDB.Omit("Vehicle", "Facility").Create(&second).Error
	require.Error(t, err)
	assert.True(t, errors.Is(err, gorm.ErrDuplicatedKey), "expected duplicated key, got %v", err)

	// Closed stays do not count against the index.
	exited := model.OccupancyRecord{VehicleID: vehicle.ID, FacilityID: 1, EntryAt: time.Now().UTC(), Status: model.StatusExited}
	assert.NoError(t, gormDB.Omit("Vehicle", "Facility").Create(&exited).Error)
}

func TestMigrate_Idempotent(t *testing.T) {
	gormDB := dbtest.NewSQLite(t)
	assert.NoError(t, db.Migrate(gormDB))
}

func TestInit_SQLite(t *testing.T) {
	cfg := &config.DatabaseConfig{
		Driver:       "sqlite",
		DSN:          "file:init_sqlite_test?mode=memory&cache=shared",
		MaxOpenConns: 8,
		MaxIdleConns: 8,
		LogLevel:     "silent",
	}

	gormDB, err := db.Init(cfg, logger.NewNop())
	require.NoError(t, err)
	sqlDB, err := gormDB.DB()
	require.NoError(t, err)
	defer sqlDB.Close()

	assert.Equal(t, 1, sqlDB.Stats().MaxOpenConnections)
	assert.True(t, gormDB.Migrator().HasTable(&model.HistoryEntry{}))
}

func TestInit_UnknownDriver(t *testing.T) {
	_, err := db.Init(&config.DatabaseConfig{Driver: "oracle", DSN: "x"}, logger.NewNop())
	assert.Error(t, err)
}
