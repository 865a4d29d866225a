package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/semaphore"

	"parking-ledger-backend/internal/logger"
	"parking-ledger-backend/internal/metrics"
	"parking-ledger-backend/internal/model"
	"parking-ledger-backend/internal/notification"
	"parking-ledger-backend/internal/plate"
	"parking-ledger-backend/internal/store"
)

const (
	// ExitConfirmation is returned by every successful Release.
	ExitConfirmation = "Exit registered"

	admittedMessage = "Vehicle admitted successfully"

	// DefaultHistoryLimit applies when History is called with a non-positive limit.
	DefaultHistoryLimit = 50
	// MaxHistoryLimit caps a single History page.
	MaxHistoryLimit = 500
)

// Dispatcher queues notifications without blocking.
type Dispatcher interface {
	Dispatch(ev notification.Event)
}

// Service is the parking ledger: admission, release and occupancy queries.
type Service struct {
	store      store.Store
	dispatcher Dispatcher
	sem        *semaphore.Weighted
	now        func() time.Time
	location   *time.Location
	log        *logger.Logger
	metrics    *metrics.Metrics
}

// Option customizes a Service.
type Option func(*Service)

// WithClock replaces the wall clock. Used by tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithLocation sets the zone timestamps are recorded in.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) { s.location = loc }
}

// WithMetrics attaches Prometheus collectors.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// NewService builds a ledger over st. maxConcurrentOps bounds the number of write
// operations in flight; dispatcher may be nil to disable notifications.
func NewService(st store.Store, dispatcher Dispatcher, maxConcurrentOps int, log *logger.Logger, opts ...Option) *Service {
	if maxConcurrentOps < 1 {
		maxConcurrentOps = 1
	}
	s := &Service{
		store:      st,
		dispatcher: dispatcher,
		sem:        semaphore.NewWeighted(int64(maxConcurrentOps)),
		now:        time.Now,
		location:   time.UTC,
		log:        log.With("service", "Ledger"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Admit starts a PARKED stay for the plate at the facility and returns the record id.
func (s *Service) Admit(ctx context.Context, rawPlate string, facilityID int64) (int64, error) {
	p, err := plate.Normalize(rawPlate)
	if err != nil {
		s.metrics.ObserveAdmission(resultLabel(ErrInvalidArgument))
		return 0, newError(ErrInvalidArgument, "%v", err)
	}

	if err := s.sem.Acquire(ctx, 1); err != nil {
		return 0, err
	}
	res, err := s.store.Admit(ctx, p, facilityID, s.clock())
	s.sem.Release(1)

	if err != nil {
		err = translate(err, p, facilityID)
		s.metrics.ObserveAdmission(resultLabel(err))
		if IsInternal(err) {
			s.log.Error("admission failed", "plate", p, "facility_id", facilityID, "error", err)
		}
		return 0, err
	}
	s.metrics.ObserveAdmission(resultLabel(nil))
	s.log.Info("vehicle admitted", "plate", p, "facility_id", facilityID, "record_id", res.RecordID)

	s.notify(notification.Event{
		Kind:         notification.KindEntry,
		Plate:        p,
		FacilityID:   res.Facility.ID,
		FacilityName: res.Facility.Name,
		Message:      admittedMessage,
		OccurredAt:   res.EntryAt,
	})
	return res.RecordID, nil
}

// Release closes the plate's PARKED stay at the facility, bills it and records the
// history entry. It returns ExitConfirmation on success.
func (s *Service) Release(ctx context.Context, rawPlate string, facilityID int64) (string, error) {
	p, err := plate.Normalize(rawPlate)
	if err != nil {
		s.metrics.ObserveRelease(resultLabel(ErrInvalidArgument), 0)
		return "", newError(ErrInvalidArgument, "%v", err)
	}

	if err := s.sem.Acquire(ctx, 1); err != nil {
		return "", err
	}
	res, err := s.store.Release(ctx, p, facilityID, s.clock(), ComputeFee)
	s.sem.Release(1)

	if err != nil {
		err = translate(err, p, facilityID)
		s.metrics.ObserveRelease(resultLabel(err), 0)
		if IsInternal(err) {
			s.log.Error("release failed", "plate", p, "facility_id", facilityID, "error", err)
		}
		return "", err
	}

	cost := res.History.TotalCostCents
	s.metrics.ObserveRelease(resultLabel(nil), int64(cost))
	s.log.Info("vehicle exited", "plate", p, "facility_id", facilityID,
		"record_id", res.Record.ID, "total_cost", cost.String())

	s.notify(notification.Event{
		Kind:         notification.KindExit,
		Plate:        p,
		FacilityID:   res.Facility.ID,
		FacilityName: res.Facility.Name,
		Message:      fmt.Sprintf("Vehicle exited the facility. Total cost: %s", cost),
		OccurredAt:   res.History.ExitAt,
	})
	return ExitConfirmation, nil
}

// ListParked returns the facility's PARKED records, oldest entry first.
func (s *Service) ListParked(ctx context.Context, facilityID int64) ([]model.OccupancyRecord, error) {
	records, err := s.store.ListParked(ctx, facilityID)
	if err != nil {
		return nil, translate(err, "", facilityID)
	}
	return records, nil
}

// SearchByPlate returns vehicles whose plate contains fragment.
func (s *Service) SearchByPlate(ctx context.Context, fragment string) ([]model.Vehicle, error) {
	f, err := plate.Fragment(fragment)
	if err != nil {
		return nil, newError(ErrInvalidArgument, "%v", err)
	}
	return s.store.SearchVehicles(ctx, f)
}

// ListFacilities returns every facility with its current parked count.
func (s *Service) ListFacilities(ctx context.Context) ([]store.FacilityLoad, error) {
	return s.store.ListFacilities(ctx)
}

// History returns the most recent closed stays of a facility, newest first.
func (s *Service) History(ctx context.Context, facilityID int64, limit int) ([]model.HistoryEntry, error) {
	switch {
	case limit <= 0:
		limit = DefaultHistoryLimit
	case limit > MaxHistoryLimit:
		return nil, newError(ErrInvalidArgument, "limit must not exceed %d", MaxHistoryLimit)
	}
	entries, err := s.store.ListHistory(ctx, facilityID, limit)
	if err != nil {
		return nil, translate(err, "", facilityID)
	}
	return entries, nil
}

func (s *Service) clock() time.Time {
	// Timestamps are stored at second precision.
	return s.now().In(s.location).Truncate(time.Second)
}

func (s *Service) notify(ev notification.Event) {
	if s.dispatcher == nil {
		return
	}
	s.dispatcher.Dispatch(ev)
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrCapacityExceeded):
		return "capacity_exceeded"
	case errors.Is(err, ErrInvalidArgument):
		return "invalid_argument"
	default:
		return "error"
	}
}
