package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"parking-ledger-backend/internal/model"
)

// Store defines the interface for all database operations.
type Store interface {
	Admit(ctx context.Context, plate string, facilityID int64, now time.Time) (*AdmitResult, error)
	Release(ctx context.Context, plate string, facilityID int64, now time.Time, fee FeeFunc) (*ReleaseResult, error)

	GetFacility(ctx context.Context, facilityID int64) (*model.Facility, error)
	ListFacilities(ctx context.Context) ([]FacilityLoad, error)
	ListParked(ctx context.Context, facilityID int64) ([]model.OccupancyRecord, error)
	SearchVehicles(ctx context.Context, fragment string) ([]model.Vehicle, error)
	ListHistory(ctx context.Context, facilityID int64, limit int) ([]model.HistoryEntry, error)

	UpsertFacilities(ctx context.Context, facilities []model.Facility) error
	RebuildCounters(ctx context.Context) error

	DB() *gorm.DB
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) DB() *gorm.DB {
	return s.db
}

// Admit creates a PARKED record for the plate. The facility lookup, the cross-facility
// uniqueness check, the capacity reservation, the vehicle find-or-create and the insert
// all run in one transaction.
func (s *gormStore) Admit(ctx context.Context, plate string, facilityID int64, now time.Time) (*AdmitResult, error) {
	var result AdmitResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		facility, err := loadFacility(tx, facilityID)
		if err != nil {
			return err
		}

		var parked int64
		if err := tx.Model(&model.OccupancyRecord{}).
			Joins("JOIN vehicles ON vehicles.id = occupancy_records.vehicle_id").
			Where("vehicles.plate = ? AND occupancy_records.status = ?", plate, model.StatusParked).
			Count(&parked).Error; err != nil {
			return fmt.Errorf("failed to check active records for plate %s: %w", plate, err)
		}
		if parked > 0 {
			return ErrAlreadyParked
		}

		if err := reserveSlot(tx, facility, now); err != nil {
			return err
		}

		vehicle, err := findOrCreateVehicle(tx, plate, now)
		if err != nil {
			return err
		}

		record := model.OccupancyRecord{
			VehicleID:  vehicle.ID,
			FacilityID: facility.ID,
			EntryAt:    now,
			Status:     model.StatusParked,
		}
		if err := tx.Omit(clause.Associations).Create(&record).Error; err != nil {
			// A concurrent admission of the same plate won the partial unique index.
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrAlreadyParked
			}
			return fmt.Errorf("failed to create occupancy record for plate %s: %w", plate, err)
		}

		result = AdmitResult{
			RecordID:  record.ID,
			VehicleID: vehicle.ID,
			EntryAt:   record.EntryAt,
			Facility:  *facility,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// Release closes the PARKED record of the plate at the facility, prices it and appends
// the history entry. The close, the counter decrement and the append commit together.
func (s *gormStore) Release(ctx context.Context, plate string, facilityID int64, now time.Time, fee FeeFunc) (*ReleaseResult, error) {
	var result ReleaseResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		facility, err := loadFacility(tx, facilityID)
		if err != nil {
			return err
		}

		var record model.OccupancyRecord
		err = tx.Joins("JOIN vehicles ON vehicles.id = occupancy_records.vehicle_id").
			Where("vehicles.plate = ? AND occupancy_records.facility_id = ? AND occupancy_records.status = ?",
				plate, facility.ID, model.StatusParked).
			First(&record).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotParked
		}
		if err != nil {
			return fmt.Errorf("failed to find active record for plate %s: %w", plate, err)
		}

		exitAt := now
		if exitAt.Before(record.EntryAt) {
			exitAt = record.EntryAt
		}
		cost := fee(record.EntryAt, exitAt, facility.HourlyRateCents)

		closed := tx.Model(&model.OccupancyRecord{}).
			Where("id = ? AND status = ?", record.ID, model.StatusParked).
			Updates(map[string]interface{}{
				"status":           model.StatusExited,
				"exit_at":          exitAt,
				"total_cost_cents": cost,
			})
		if closed.Error != nil {
			return fmt.Errorf("failed to close occupancy record %d: %w", record.ID, closed.Error)
		}
		if closed.RowsAffected == 0 {
			return ErrAlreadyExited
		}

		// A zero-row decrement means the counter drifted; RebuildCounters repairs it at startup.
		if err := tx.Model(&model.FacilityOccupancy{}).
			Where("facility_id = ? AND parked > 0", facility.ID).
			Updates(map[string]interface{}{
				"parked":     gorm.Expr("parked - 1"),
				"updated_at": now,
			}).Error; err != nil {
			return fmt.Errorf("failed to release slot at facility %d: %w", facility.ID, err)
		}

		history := model.HistoryEntry{
			OccupancyRecordID: record.ID,
			Plate:             plate,
			FacilityName:      facility.Name,
			EntryAt:           record.EntryAt,
			ExitAt:            exitAt,
			TotalCostCents:    cost,
			FacilityID:        facility.ID,
			VehicleID:         record.VehicleID,
		}
		if err := tx.Create(&history).Error; err != nil {
			return fmt.Errorf("failed to append history for record %d: %w", record.ID, err)
		}

		record.Status = model.StatusExited
		record.ExitAt = &exitAt
		record.TotalCostCents = &cost
		result = ReleaseResult{Record: record, Facility: *facility, History: history}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (s *gormStore) GetFacility(ctx context.Context, facilityID int64) (*model.Facility, error) {
	return loadFacility(s.db.WithContext(ctx), facilityID)
}

// ListFacilities returns every facility with its parked count.
func (s *gormStore) ListFacilities(ctx context.Context) ([]FacilityLoad, error) {
	var facilities []model.Facility
	if err := s.db.WithContext(ctx).Order("id").Find(&facilities).Error; err != nil {
		return nil, fmt.Errorf("failed to list facilities: %w", err)
	}

	var counters []model.FacilityOccupancy
	if err := s.db.WithContext(ctx).Find(&counters).Error; err != nil {
		return nil, fmt.Errorf("failed to list occupancy counters: %w", err)
	}
	parkedMap := make(map[int64]int, len(counters))
	for _, c := range counters {
		parkedMap[c.FacilityID] = c.Parked
	}

	loads := make([]FacilityLoad, 0, len(facilities))
	for _, f := range facilities {
		loads = append(loads, FacilityLoad{Facility: f, Parked: parkedMap[f.ID]})
	}
	return loads, nil
}

func (s *gormStore) ListParked(ctx context.Context, facilityID int64) ([]model.OccupancyRecord, error) {
	db := s.db.WithContext(ctx)
	if _, err := loadFacility(db, facilityID); err != nil {
		return nil, err
	}

	var records []model.OccupancyRecord
	if err := db.Preload("Vehicle").
		Where("facility_id = ? AND status = ?", facilityID, model.StatusParked).
		Order("entry_at ASC, id ASC").
		Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to list parked records for facility %d: %w", facilityID, err)
	}
	return records, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func (s *gormStore) SearchVehicles(ctx context.Context, fragment string) ([]model.Vehicle, error) {
	var vehicles []model.Vehicle
	pattern := "%" + likeEscaper.Replace(fragment) + "%"
	if err := s.db.WithContext(ctx).
		Where(`plate LIKE ? ESCAPE '\'`, pattern).
		Order("plate").
		Find(&vehicles).Error; err != nil {
		return nil, fmt.Errorf("failed to search vehicles by %q: %w", fragment, err)
	}
	return vehicles, nil
}

func (s *gormStore) ListHistory(ctx context.Context, facilityID int64, limit int) ([]model.HistoryEntry, error) {
	db := s.db.WithContext(ctx)
	if _, err := loadFacility(db, facilityID); err != nil {
		return nil, err
	}

	var entries []model.HistoryEntry
	if err := db.Where("facility_id = ?", facilityID).
		Order("exit_at DESC, id DESC").
		Limit(limit).
		Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("failed to list history for facility %d: %w", facilityID, err)
	}
	return entries, nil
}

// UpsertFacilities writes registry facilities into the local mirror. Facilities are
// never deleted here; capacity and rate edits take effect for the next transaction.
// Missing counter rows are created at zero; existing counters are left to the
// admission and release transactions that own them.
func (s *gormStore) UpsertFacilities(ctx context.Context, facilities []model.Facility) error {
	if len(facilities) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "capacity", "hourly_rate_cents", "operator_ref", "updated_at"}),
		}).Create(&facilities).Error; err != nil {
			return fmt.Errorf("failed to upsert facilities: %w", err)
		}

		now := time.Now().UTC()
		counters := make([]model.FacilityOccupancy, 0, len(facilities))
		for _, f := range facilities {
			counters = append(counters, model.FacilityOccupancy{FacilityID: f.ID, UpdatedAt: now})
		}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&counters).Error; err != nil {
			return fmt.Errorf("failed to initialize facility counters: %w", err)
		}
		return nil
	})
}

// RebuildCounters recomputes every facility's parked counter from the PARKED records.
// It overwrites counters outright, so it must only run before the server takes traffic.
func (s *gormStore) RebuildCounters(ctx context.Context) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		type countRow struct {
			FacilityID int64
			Parked     int
		}
		var rows []countRow
		if err := tx.Model(&model.OccupancyRecord{}).
			Select("facility_id AS facility_id, COUNT(*) AS parked").
			Where("status = ?", model.StatusParked).
			Group("facility_id").
			Scan(&rows).Error; err != nil {
			return fmt.Errorf("failed to count parked records: %w", err)
		}
		parkedMap := make(map[int64]int, len(rows))
		for _, r := range rows {
			parkedMap[r.FacilityID] = r.Parked
		}

		var facilityIDs []int64
		if err := tx.Model(&model.Facility{}).Pluck("id", &facilityIDs).Error; err != nil {
			return fmt.Errorf("failed to list facility ids: %w", err)
		}
		if len(facilityIDs) == 0 {
			return nil
		}

		now := time.Now().UTC()
		counters := make([]model.FacilityOccupancy, 0, len(facilityIDs))
		for _, id := range facilityIDs {
			counters = append(counters, model.FacilityOccupancy{FacilityID: id, Parked: parkedMap[id], UpdatedAt: now})
		}
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "facility_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"parked", "updated_at"}),
		}).Create(&counters).Error
	})
}

// --- Helpers ---

func loadFacility(tx *gorm.DB, facilityID int64) (*model.Facility, error) {
	var facility model.Facility
	err := tx.First(&facility, facilityID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrFacilityNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load facility %d: %w", facilityID, err)
	}
	return &facility, nil
}

// reserveSlot increments the facility counter only while it is below capacity. The
// conditional UPDATE is atomic, so racing admissions cannot both take the last slot.
func reserveSlot(tx *gorm.DB, facility *model.Facility, now time.Time) error {
	counter := model.FacilityOccupancy{FacilityID: facility.ID, UpdatedAt: now}
	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&counter).Error; err != nil {
		return fmt.Errorf("failed to initialize counter for facility %d: %w", facility.ID, err)
	}

	reserved := tx.Model(&model.FacilityOccupancy{}).
		Where("facility_id = ? AND parked < ?", facility.ID, facility.Capacity).
		Updates(map[string]interface{}{
			"parked":     gorm.Expr("parked + 1"),
			"updated_at": now,
		})
	if reserved.Error != nil {
		return fmt.Errorf("failed to reserve slot at facility %d: %w", facility.ID, reserved.Error)
	}
	if reserved.RowsAffected == 0 {
		return ErrFacilityFull
	}
	return nil
}

// findOrCreateVehicle is idempotent under races: the insert is a no-op when another
// transaction already created the plate.
func findOrCreateVehicle(tx *gorm.DB, plate string, now time.Time) (*model.Vehicle, error) {
	candidate := model.Vehicle{Plate: plate, CreatedAt: now}
	if err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "plate"}},
		DoNothing: true,
	}).Create(&candidate).Error; err != nil {
		return nil, fmt.Errorf("failed to create vehicle %s: %w", plate, err)
	}

	var vehicle model.Vehicle
	if err := tx.Where("plate = ?", plate).First(&vehicle).Error; err != nil {
		return nil, fmt.Errorf("failed to load vehicle %s: %w", plate, err)
	}
	return &vehicle, nil
}
