package notification

import (
	"context"
	"sync"
	"time"

	"parking-ledger-backend/internal/logger"
	"parking-ledger-backend/internal/metrics"
)

// WorkerPool manages a pool of workers for delivering notifications.
type WorkerPool struct {
	size    int
	jobs    chan Event
	senders []Sender
	timeout time.Duration
	log     *logger.Logger
	metrics *metrics.Metrics
	wg      sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

// NewWorkerPool creates a new worker pool. queueSize bounds the number of pending
// events; Dispatch drops events once it is full.
func NewWorkerPool(size, queueSize int, timeout time.Duration, senders []Sender, log *logger.Logger, m *metrics.Metrics) *WorkerPool {
	if size < 1 {
		size = 1
	}
	if queueSize < 1 {
		queueSize = 1
	}
	return &WorkerPool{
		size:    size,
		jobs:    make(chan Event, queueSize),
		senders: senders,
		timeout: timeout,
		log:     log.With("component", "NotificationPool"),
		metrics: m,
	}
}

// Start launches the worker goroutines. They exit when ctx is cancelled or, after
// Shutdown, once the queue is empty. Sends run under ctx.
func (wp *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < wp.size; i++ {
		wp.wg.Add(1)
		go wp.worker(ctx, i)
	}
}

// Wait blocks until every worker has returned.
func (wp *WorkerPool) Wait() {
	wp.wg.Wait()
}

// worker is the actual worker goroutine.
func (wp *WorkerPool) worker(ctx context.Context, id int) {
	defer wp.wg.Done()
	wp.log.Debug("worker started", "worker", id)
	for {
		select {
		case ev, ok := <-wp.jobs:
			if !ok {
				wp.log.Debug("queue drained, worker exiting", "worker", id)
				return
			}
			wp.deliver(ctx, ev)
		case <-ctx.Done():
			wp.log.Debug("worker shutting down", "worker", id)
			return
		}
	}
}

// Dispatch queues an event without blocking the caller. Events dispatched after
// Shutdown are dropped.
func (wp *WorkerPool) Dispatch(ev Event) {
	wp.mu.RLock()
	defer wp.mu.RUnlock()
	if wp.closed {
		wp.metrics.IncDroppedEvent()
		wp.log.Warn("notification pool shut down, dropping event",
			"kind", ev.Kind, "plate", ev.Plate, "facility_id", ev.FacilityID)
		return
	}
	select {
	case wp.jobs <- ev:
	default:
		wp.metrics.IncDroppedEvent()
		wp.log.Warn("notification queue full, dropping event",
			"kind", ev.Kind, "plate", ev.Plate, "facility_id", ev.FacilityID)
	}
}

// Shutdown stops accepting events and waits for the workers to deliver everything
// already queued. It returns ctx.Err() if the queue is not drained before ctx ends.
func (wp *WorkerPool) Shutdown(ctx context.Context) error {
	wp.mu.Lock()
	if !wp.closed {
		wp.closed = true
		close(wp.jobs)
	}
	wp.mu.Unlock()

	done := make(chan struct{})
	go func() {
		wp.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		wp.log.Warn("notification queue not drained before shutdown deadline", "pending", len(wp.jobs))
		return ctx.Err()
	}
}

// Jobs returns the jobs channel for testing.
func (wp *WorkerPool) Jobs() chan Event {
	return wp.jobs
}

// deliver fans the event out to every sender. Failures are logged and counted only.
func (wp *WorkerPool) deliver(ctx context.Context, ev Event) {
	for _, s := range wp.senders {
		sendCtx, cancel := context.WithTimeout(ctx, wp.timeout)
		err := s.Notify(sendCtx, ev)
		cancel()

		wp.metrics.ObserveNotification(s.Name(), err)
		if err != nil {
			wp.log.Warn("notification failed",
				"sender", s.Name(), "kind", ev.Kind, "plate", ev.Plate, "facility_id", ev.FacilityID, "error", err)
		}
	}
}
