package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parking-ledger-backend/internal/db/dbtest"
	"parking-ledger-backend/internal/logger"
	"parking-ledger-backend/internal/model"
	"parking-ledger-backend/internal/money"
	"parking-ledger-backend/internal/notification"
	"parking-ledger-backend/internal/store"
)

type captureDispatcher struct {
	mu     sync.Mutex
	events []notification.Event
}

func (d *captureDispatcher) Dispatch(ev notification.Event) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, ev)
}

func (d *captureDispatcher) Events() []notification.Event {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]notification.Event(nil), d.events...)
}

// fakeClock is a settable clock for deterministic billing.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = t
}

type fixture struct {
	svc        *Service
	store      store.Store
	dispatcher *captureDispatcher
	clock      *fakeClock
}

func newFixture(t *testing.T, facilities ...model.Facility) *fixture {
	t.Helper()
	st := store.NewGormStore(dbtest.NewSQLite(t))
	require.NoError(t, st.UpsertFacilities(context.Background(), facilities))

	f := &fixture{
		store:      st,
		dispatcher: &captureDispatcher{},
		clock:      &fakeClock{t: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)},
	}
	f.svc = NewService(st, f.dispatcher, 4, logger.NewNop(), WithClock(f.clock.Now))
	return f
}

func facility(id int64, name string, capacity int, rate money.Cents) model.Facility {
	return model.Facility{ID: id, Name: name, Capacity: capacity, HourlyRateCents: rate}
}

func TestService_RoundTrip(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, facility(1, "Centro", 10, 500))

	id, err := f.svc.Admit(ctx, "  abc123 ", 1)
	require.NoError(t, err)
	assert.NotZero(t, id)

	f.clock.Set(time.Date(2024, 3, 1, 10, 5, 0, 0, time.UTC))
	msg, err := f.svc.Release(ctx, "ABC123", 1)
	require.NoError(t, err)
	assert.Equal(t, ExitConfirmation, msg)

	history, err := f.svc.History(ctx, 1, 0)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, id, history[0].OccupancyRecordID)
	assert.Equal(t, money.Cents(545), history[0].TotalCostCents)
	assert.Equal(t, "Centro", history[0].FacilityName)

	parked, err := f.svc.ListParked(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, parked)

	events := f.dispatcher.Events()
	require.Len(t, events, 2)
	assert.Equal(t, notification.KindEntry, events[0].Kind)
	assert.Equal(t, "ABC123", events[0].Plate)
	assert.Equal(t, "Vehicle admitted successfully", events[0].Message)
	assert.Equal(t, notification.KindExit, events[1].Kind)
	assert.Equal(t, "Vehicle exited the facility. Total cost: $5.45", events[1].Message)
}

func TestService_AdmitErrors(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, facility(1, "Centro", 1, 500), facility(2, "Norte", 5, 300))

	_, err := f.svc.Admit(ctx, "ABC123", 1)
	require.NoError(t, err)

	testCases := []struct {
		name       string
		plate      string
		facilityID int64
		kind       error
	}{
		{name: "Malformed plate", plate: "AB-12", facilityID: 1, kind: ErrInvalidArgument},
		{name: "Too long plate", plate: "ABCD12345", facilityID: 1, kind: ErrInvalidArgument},
		{name: "Unknown facility", plate: "XYZ999", facilityID: 42, kind: ErrNotFound},
		{name: "Already parked elsewhere", plate: "abc123", facilityID: 2, kind: ErrConflict},
		{name: "Facility full", plate: "XYZ999", facilityID: 1, kind: ErrCapacityExceeded},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.Admit(ctx, tc.plate, tc.facilityID)
			require.Error(t, err)
			assert.ErrorIs(t, err, tc.kind)

			var le *Error
			require.True(t, errors.As(err, &le))
			assert.NotEmpty(t, le.Message)
		})
	}

	// Only the first admission produced a notification.
	assert.Len(t, f.dispatcher.Events(), 1)
}

func TestService_ReleaseStateMachine(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, facility(1, "Centro", 10, 500), facility(2, "Norte", 5, 300))

	_, err := f.svc.Admit(ctx, "ABC123", 1)
	require.NoError(t, err)

	testCases := []struct {
		name       string
		plate      string
		facilityID int64
		kind       error
	}{
		{name: "Unknown facility", plate: "ABC123", facilityID: 42, kind: ErrNotFound},
		{name: "Parked at another facility", plate: "ABC123", facilityID: 2, kind: ErrNotFound},
		{name: "Never seen plate", plate: "ZZZ999", facilityID: 1, kind: ErrNotFound},
		{name: "Malformed plate", plate: "", facilityID: 1, kind: ErrInvalidArgument},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.Release(ctx, tc.plate, tc.facilityID)
			assert.ErrorIs(t, err, tc.kind)
		})
	}

	// Failed releases neither closed the record nor appended history.
	parked, err := f.svc.ListParked(ctx, 1)
	require.NoError(t, err)
	require.Len(t, parked, 1)
	assert.Equal(t, model.StatusParked, parked[0].Status)
	assert.Nil(t, parked[0].ExitAt)

	for _, id := range []int64{1, 2} {
		history, err := f.svc.History(ctx, id, 10)
		require.NoError(t, err)
		assert.Empty(t, history)
	}

	// A second release of the same stay fails.
	_, err = f.svc.Release(ctx, "ABC123", 1)
	require.NoError(t, err)
	_, err = f.svc.Release(ctx, "ABC123", 1)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestService_ConcurrentAdmitsOfOnePlate(t *testing.T) {
	ctx := context.Background()
	const n = 8
	var facilities []model.Facility
	for i := 1; i <= n; i++ {
		facilities = append(facilities, facility(int64(i), fmt.Sprintf("Lot %d", i), 10, 500))
	}
	f := newFixture(t, facilities...)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
	)
	for i := 1; i <= n; i++ {
		wg.Add(1)
		go func(facilityID int64) {
			defer wg.Done()
			_, err := f.svc.Admit(ctx, "NEW001", facilityID)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, ErrConflict):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(int64(i))
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, n-1, conflicts)

	// Concurrent first sightings created a single vehicle.
	vehicles, err := f.svc.SearchByPlate(ctx, "NEW001")
	require.NoError(t, err)
	assert.Len(t, vehicles, 1)
}

func TestService_ConcurrentAdmitsAgainstCapacity(t *testing.T) {
	ctx := context.Background()
	const capacity = 3
	f := newFixture(t, facility(1, "Centro", capacity, 500))

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		full      int
	)
	for i := 0; i < capacity+5; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := f.svc.Admit(ctx, fmt.Sprintf("CAR%03d", i), 1)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, ErrCapacityExceeded):
				full++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, capacity, successes)
	assert.Equal(t, 5, full)

	loads, err := f.svc.ListFacilities(ctx)
	require.NoError(t, err)
	require.Len(t, loads, 1)
	assert.Equal(t, capacity, loads[0].Parked)
}

func TestService_RateReadAtExit(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, facility(1, "Centro", 10, 500))

	_, err := f.svc.Admit(ctx, "ABC123", 1)
	require.NoError(t, err)

	// The registry raises the rate while the vehicle is parked.
	require.NoError(t, f.store.UpsertFacilities(ctx, []model.Facility{facility(1, "Centro", 10, 800)}))

	f.clock.Set(time.Date(2024, 3, 1, 11, 0, 0, 0, time.UTC))
	_, err = f.svc.Release(ctx, "ABC123", 1)
	require.NoError(t, err)

	history, err := f.svc.History(ctx, 1, 1)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, money.Cents(1600), history[0].TotalCostCents)
}

func TestService_SearchByPlate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, facility(1, "Centro", 10, 500))

	for _, p := range []string{"ABC123", "XYZ789"} {
		_, err := f.svc.Admit(ctx, p, 1)
		require.NoError(t, err)
	}

	vehicles, err := f.svc.SearchByPlate(ctx, " bc1 ")
	require.NoError(t, err)
	require.Len(t, vehicles, 1)
	assert.Equal(t, "ABC123", vehicles[0].Plate)

	_, err = f.svc.SearchByPlate(ctx, "   ")
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestService_History(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, facility(1, "Centro", 10, 500))

	_, err := f.svc.History(ctx, 1, MaxHistoryLimit+1)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = f.svc.History(ctx, 99, 10)
	assert.ErrorIs(t, err, ErrNotFound)
}

// failingStore returns a storage failure from every write.
type failingStore struct {
	store.Store
}

func (failingStore) Admit(context.Context, string, int64, time.Time) (*store.AdmitResult, error) {
	return nil, errors.New("connection reset")
}

func TestService_StorageFailureIsInternal(t *testing.T) {
	d := &captureDispatcher{}
	svc := NewService(failingStore{}, d, 1, logger.NewNop())

	_, err := svc.Admit(context.Background(), "ABC123", 1)
	require.Error(t, err)
	assert.True(t, IsInternal(err))
	assert.Empty(t, d.Events())
}
