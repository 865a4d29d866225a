package db

import (
	"fmt"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"parking-ledger-backend/config"
	"parking-ledger-backend/internal/logger"
	"parking-ledger-backend/internal/model"
)

// Init opens the configured database, sizes the pool and runs migrations.
func Init(cfg *config.DatabaseConfig, log *logger.Logger) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "postgres":
		dialector = postgres.Open(cfg.DSN)
	case "sqlite":
		dialector = sqlite.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         NewGormLogger(log, cfg.LogLevel),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}

	maxOpen := cfg.MaxOpenConns
	if cfg.Driver == "sqlite" && maxOpen != 1 {
		// SQLite has a single writer; more connections only turn into "database is locked".
		log.Info("sqlite driver selected, limiting pool to one connection", "configured", maxOpen)
		maxOpen = 1
	}
	sqlDB.SetMaxOpenConns(maxOpen)
	sqlDB.SetMaxIdleConns(min(cfg.MaxIdleConns, maxOpen))
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetimeMinutes) * time.Minute)

	log.Info("running database migrations", "driver", cfg.Driver)
	if err := Migrate(db); err != nil {
		return nil, err
	}

	log.Info("database initialization complete")
	return db, nil
}

// Migrate creates the tables and the indexes that back the ledger invariants.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&model.Facility{},
		&model.Vehicle{},
		&model.OccupancyRecord{},
		&model.FacilityOccupancy{},
		&model.HistoryEntry{},
		&model.PushSubscription{},
	); err != nil {
		return fmt.Errorf("automigrate failed: %w", err)
	}
	return applyLedgerDDL(db)
}

func applyLedgerDDL(db *gorm.DB) error {
	ddls := []string{
		// One PARKED record per vehicle across every facility.
		"CREATE UNIQUE INDEX IF NOT EXISTS ux_occupancy_records_parked_vehicle " +
			"ON occupancy_records (vehicle_id) WHERE status = 'PARKED';",
	}

	for _, ddl := range ddls {
		if err := db.Exec(ddl).Error; err != nil {
			return fmt.Errorf("DDL failed on %q: %w", ddl, err)
		}
	}
	return nil
}

// NewGormLogger routes gorm's logs through zap at the given level (silent, error, warn, info).
func NewGormLogger(log *logger.Logger, level string) gormlogger.Interface {
	return gormlogger.New(gormWriter{log: log}, gormlogger.Config{
		SlowThreshold:             time.Second,
		LogLevel:                  parseLogLevel(level),
		IgnoreRecordNotFoundError: true,
		Colorful:                  false,
	})
}

type gormWriter struct {
	log *logger.Logger
}

func (w gormWriter) Printf(format string, args ...interface{}) {
	w.log.SugaredLogger.Infof(format, args...)
}

func parseLogLevel(level string) gormlogger.LogLevel {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "silent":
		return gormlogger.Silent
	case "error":
		return gormlogger.Error
	case "info":
		return gormlogger.Info
	default:
		return gormlogger.Warn
	}
}
