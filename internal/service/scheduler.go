package service

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/coursewatch/coursewatch-api/internal/models"
	"github.com/coursewatch/coursewatch-api/internal/notify"
	"github.com/coursewatch/coursewatch-api/internal/upstream"
)

// SnapshotStore is the snapshot persistence surface the scheduler
// consumes.
type SnapshotStore interface {
	Save(ctx context.Context, snapshot *models.Snapshot) error
	Latest(ctx context.Context, monitorID, sectionID string) (*models.Snapshot, error)
}

// NotificationStore records delivery attempts.
type NotificationStore interface {
	Save(ctx context.Context, record *models.NotificationRecord) error
}

// checkedStore advances a monitor's last-checked marker.
type checkedStore interface {
	UpdateLastChecked(ctx context.Context, id string, checkedAt time.Time) error
}

// deliverFunc hands a gated transition off for delivery. The engine
// supplies either a synchronous path or a queue-backed one.
type deliverFunc func(monitor models.Monitor, payload notify.Payload)

// monitorHandle is one registered monitor's timer state. The running
// flag serializes ticks per monitor: an occurrence that fires while the
// previous tick is still in flight is skipped, never queued.
type monitorHandle struct {
	monitor models.Monitor
	cancel  context.CancelFunc
	running int32
}

// Scheduler drives one recurring check loop per registered monitor.
// Registration is idempotent: re-adding a monitor id replaces its
// existing timer. Ticks for different monitors run concurrently; the
// upstream rate limiter inside the client is the only shared brake.
type Scheduler struct {
	client    upstream.Client
	monitors  checkedStore
	snapshots SnapshotStore
	deliver   deliverFunc
	metrics   *MetricsService
	logger    *zap.Logger
	now       func() time.Time

	mu      sync.Mutex
	handles map[string]*monitorHandle
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewScheduler wires the scheduler's collaborators.
func NewScheduler(client upstream.Client, monitors checkedStore, snapshots SnapshotStore, deliver deliverFunc, metrics *MetricsService, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		client:    client,
		monitors:  monitors,
		snapshots: snapshots,
		deliver:   deliver,
		metrics:   metrics,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
		handles:   make(map[string]*monitorHandle),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Register starts (or restarts) the check loop for a monitor. The
// first tick fires immediately so callers observe a result without
// waiting a full interval.
func (s *Scheduler) Register(monitor models.Monitor) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ctx.Err() != nil {
		return
	}
	if existing, ok := s.handles[monitor.ID]; ok {
		existing.cancel()
	}

	ctx, cancel := context.WithCancel(s.ctx)
	handle := &monitorHandle{monitor: monitor, cancel: cancel}
	s.handles[monitor.ID] = handle
	s.metrics.SetActiveMonitors(len(s.handles))

	s.wg.Add(1)
	go s.run(ctx, handle)

	s.logger.Info("monitor registered",
		zap.String("monitor_id", monitor.ID),
		zap.String("subject", monitor.Subject),
		zap.String("course", monitor.CourseNumber),
		zap.Duration("interval", monitor.Interval()))
}

// Deregister cancels a monitor's timer. No-op for unknown ids. An
// in-flight tick is allowed to complete.
func (s *Scheduler) Deregister(monitorID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	handle, ok := s.handles[monitorID]
	if !ok {
		return
	}
	handle.cancel()
	delete(s.handles, monitorID)
	s.metrics.SetActiveMonitors(len(s.handles))
	s.logger.Info("monitor deregistered", zap.String("monitor_id", monitorID))
}

// Registered reports whether a monitor currently has a timer.
func (s *Scheduler) Registered(monitorID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.handles[monitorID]
	return ok
}

// Count reports how many monitors are registered.
func (s *Scheduler) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.handles)
}

// Stop cancels every timer and waits for in-flight ticks to drain.
func (s *Scheduler) Stop() {
	s.cancel()
	s.mu.Lock()
	for id := range s.handles {
		delete(s.handles, id)
	}
	s.metrics.SetActiveMonitors(0)
	s.mu.Unlock()
	s.wg.Wait()
}

func (s *Scheduler) run(ctx context.Context, handle *monitorHandle) {
	defer s.wg.Done()

	s.tick(ctx, handle)

	ticker := time.NewTicker(handle.monitor.Interval())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx, handle)
		}
	}
}

// tick runs one full check of the monitor's course. Fetch failure
// skips the tick entirely: no snapshot, no last-checked update, the
// interval itself is the retry mechanism.
func (s *Scheduler) tick(ctx context.Context, handle *monitorHandle) {
	if !atomic.CompareAndSwapInt32(&handle.running, 0, 1) {
		s.logger.Debug("tick still in flight, skipping occurrence",
			zap.String("monitor_id", handle.monitor.ID))
		return
	}
	defer atomic.StoreInt32(&handle.running, 0)

	monitor := handle.monitor
	doc, err := s.client.Fetch(ctx, monitor.Term, monitor.Subject, monitor.CourseNumber)
	if err != nil {
		s.metrics.ObserveCheck(classifyFetchError(err))
		s.logger.Warn("course fetch failed, tick skipped",
			zap.String("monitor_id", monitor.ID),
			zap.String("subject", monitor.Subject),
			zap.String("course", monitor.CourseNumber),
			zap.Error(err))
		return
	}

	if err := s.monitors.UpdateLastChecked(ctx, monitor.ID, s.now()); err != nil {
		s.logger.Error("failed to advance last_checked",
			zap.String("monitor_id", monitor.ID), zap.Error(err))
	}

	for _, section := range doc.Sections {
		if !monitor.WatchesSection(section.SectionID) {
			continue
		}
		s.processSection(ctx, monitor, doc, section)
	}
	s.metrics.ObserveCheck(CheckResultOK)
}

// processSection persists the reading and routes any detected
// transitions through the gate. Errors here are local to the section:
// the remaining sections of the same tick still run.
func (s *Scheduler) processSection(ctx context.Context, monitor models.Monitor, doc *models.CourseDocument, section models.SectionReading) {
	prev, err := s.snapshots.Latest(ctx, monitor.ID, section.SectionID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		s.logger.Error("failed to load latest snapshot",
			zap.String("monitor_id", monitor.ID),
			zap.String("section", section.SectionID),
			zap.Error(err))
		return
	}

	snapshot := models.SnapshotFromReading(monitor.ID, section)
	if err := s.snapshots.Save(ctx, &snapshot); err != nil {
		s.logger.Error("failed to persist snapshot",
			zap.String("monitor_id", monitor.ID),
			zap.String("section", section.SectionID),
			zap.Error(err))
		return
	}

	for _, transition := range Detect(prev, section) {
		s.metrics.ObserveTransition(transition.Kind)
		s.logger.Info("transition detected",
			zap.String("monitor_id", monitor.ID),
			zap.String("section", section.SectionID),
			zap.String("kind", string(transition.Kind)),
			zap.String("detail", transition.Describe()))

		if !ShouldNotify(monitor, transition) {
			continue
		}
		s.deliver(monitor, notify.Payload{
			Course:     *doc,
			Section:    section,
			Transition: transition,
		})
	}
}

func classifyFetchError(err error) string {
	switch {
	case upstream.IsNotFound(err):
		return CheckResultNotFound
	default:
		var fetchErr *upstream.FetchError
		if errors.As(err, &fetchErr) && fetchErr.Kind == upstream.KindRateLimited {
			return CheckResultRateLimited
		}
		return CheckResultFetchError
	}
}
