package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/coursewatch/coursewatch-api/internal/models"
	"github.com/coursewatch/coursewatch-api/internal/notify"
	"github.com/coursewatch/coursewatch-api/internal/upstream"
	"github.com/coursewatch/coursewatch-api/pkg/config"
	appErrors "github.com/coursewatch/coursewatch-api/pkg/errors"
	"github.com/coursewatch/coursewatch-api/pkg/jobs"
)

// MonitorStore is the monitor persistence surface the engine consumes.
type MonitorStore interface {
	Create(ctx context.Context, monitor *models.Monitor) (*models.Monitor, error)
	FindByID(ctx context.Context, id string) (*models.Monitor, error)
	ListActive(ctx context.Context) ([]models.Monitor, error)
	UpdateLastChecked(ctx context.Context, id string, checkedAt time.Time) error
	SetActive(ctx context.Context, id string, active bool) error
}

// deliveryJob is the payload queued for asynchronous delivery.
type deliveryJob struct {
	Monitor models.Monitor
	Payload notify.Payload
}

// Engine owns the monitoring lifecycle: the scheduler, the upstream
// client, and the notification delivery path.
type Engine struct {
	cfg        config.CheckerConfig
	client     upstream.Client
	monitors   MonitorStore
	snapshots  SnapshotStore
	records    NotificationStore
	dispatcher notify.Dispatcher
	metrics    *MetricsService
	logger     *zap.Logger
	now        func() time.Time

	scheduler *Scheduler
	queue     *jobs.Queue

	mu      sync.Mutex
	running bool
}

// NewEngine wires the engine's collaborators. Call Initialize before
// Start.
func NewEngine(cfg config.CheckerConfig, client upstream.Client, monitors MonitorStore, snapshots SnapshotStore, records NotificationStore, dispatcher notify.Dispatcher, metrics *MetricsService, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &Engine{
		cfg:        cfg,
		client:     client,
		monitors:   monitors,
		snapshots:  snapshots,
		records:    records,
		dispatcher: dispatcher,
		metrics:    metrics,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
	e.scheduler = NewScheduler(client, monitors, snapshots, e.dispatch, metrics, logger)

	if cfg.DeliveryAsync {
		e.queue = jobs.NewQueue("notification-delivery", e.handleDeliveryJob, jobs.QueueConfig{
			Workers:    cfg.DeliveryWorkers,
			BufferSize: cfg.DeliveryQueueSize,
			MaxRetries: cfg.DeliveryRetries,
			Logger:     logger,
		})
	}
	return e
}

// Initialize prepares the delivery queue. Idempotent.
func (e *Engine) Initialize(ctx context.Context) {
	if e.queue != nil {
		e.queue.Start(ctx)
	}
}

// Start loads every active monitor from the store and registers it
// with the scheduler. Each registration fires an immediate first tick.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.running {
		return nil
	}

	monitors, err := e.monitors.ListActive(ctx)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load active monitors")
	}
	for _, monitor := range monitors {
		e.scheduler.Register(monitor)
	}
	e.running = true
	e.logger.Info("engine started", zap.Int("monitors", len(monitors)))
	return nil
}

// Stop cancels every timer. In-flight ticks drain; no state mutates.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.running {
		return
	}
	e.scheduler.Stop()
	e.running = false
	e.logger.Info("engine stopped")
}

// Cleanup stops the engine and releases the upstream client and the
// delivery queue.
func (e *Engine) Cleanup() {
	e.Stop()
	if e.queue != nil {
		e.queue.Stop()
	}
	if err := e.client.Close(); err != nil {
		e.logger.Warn("upstream client close failed", zap.Error(err))
	}
}

// Running reports whether the engine has been started.
func (e *Engine) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running
}

// AddMonitor persists a monitor and, when the engine is running,
// registers it immediately. Creating a duplicate of an existing active
// monitor returns the existing one.
func (e *Engine) AddMonitor(ctx context.Context, monitor *models.Monitor) (*models.Monitor, error) {
	created, err := e.monitors.Create(ctx, monitor)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	if e.running && created.Active {
		e.scheduler.Register(*created)
	}
	e.mu.Unlock()
	return created, nil
}

// RemoveMonitor cancels the monitor's timer (no-op if absent) and
// soft-deletes it.
func (e *Engine) RemoveMonitor(ctx context.Context, id string) error {
	e.scheduler.Deregister(id)
	return e.monitors.SetActive(ctx, id, false)
}

// Reschedule replaces a monitor's timer after its preferences changed.
// An inactive monitor is deregistered instead.
func (e *Engine) Reschedule(monitor models.Monitor) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.running {
		return
	}
	if !monitor.Active {
		e.scheduler.Deregister(monitor.ID)
		return
	}
	e.scheduler.Register(monitor)
}

// CheckOnce performs a single ad-hoc fetch, bypassing the scheduler
// and the snapshot/notification pipeline. It never writes history.
func (e *Engine) CheckOnce(ctx context.Context, term, subject, courseNumber string) (*models.CourseDocument, error) {
	doc, err := e.client.Fetch(ctx, term, subject, courseNumber)
	if err != nil {
		var fetchErr *upstream.FetchError
		switch {
		case upstream.IsNotFound(err):
			return nil, appErrors.ErrCourseNotFound
		case errors.As(err, &fetchErr) && fetchErr.Kind == upstream.KindRateLimited:
			return nil, appErrors.Wrap(err, appErrors.ErrUpstreamRateLimited.Code, appErrors.ErrUpstreamRateLimited.Status, appErrors.ErrUpstreamRateLimited.Message)
		default:
			return nil, appErrors.Wrap(err, appErrors.ErrUpstreamUnavailable.Code, appErrors.ErrUpstreamUnavailable.Status, appErrors.ErrUpstreamUnavailable.Message)
		}
	}
	return doc, nil
}

// TestDelivery pushes a canned payload through every configured
// channel and reports per-channel outcomes. No audit record is
// written.
func (e *Engine) TestDelivery(ctx context.Context) []notify.ChannelResult {
	return e.dispatcher.Deliver(ctx, notify.TestPayload())
}

// dispatch routes a gated transition to delivery, either inline or via
// the worker queue. Queue saturation falls back to inline delivery so
// a transition is never silently dropped.
func (e *Engine) dispatch(monitor models.Monitor, payload notify.Payload) {
	if e.queue == nil {
		e.deliverAndRecord(context.Background(), monitor, payload)
		return
	}
	err := e.queue.Enqueue(jobs.Job{
		ID:      uuid.NewString(),
		Type:    "notify",
		Payload: deliveryJob{Monitor: monitor, Payload: payload},
	})
	if err != nil {
		e.logger.Warn("delivery queue rejected job, delivering inline", zap.Error(err))
		e.deliverAndRecord(context.Background(), monitor, payload)
	}
}

func (e *Engine) handleDeliveryJob(ctx context.Context, job jobs.Job) error {
	dj, ok := job.Payload.(deliveryJob)
	if !ok {
		e.logger.Error("unexpected delivery job payload", zap.String("job_id", job.ID))
		return nil
	}
	if !e.deliverAndRecord(ctx, dj.Monitor, dj.Payload) {
		return errors.New("all notification channels failed")
	}
	return nil
}

// deliverAndRecord attempts every channel and appends one audit record
// for the attempt. Reports whether at least one channel succeeded;
// with no channels configured the record is marked failed but there is
// nothing to retry.
func (e *Engine) deliverAndRecord(ctx context.Context, monitor models.Monitor, payload notify.Payload) bool {
	results := e.dispatcher.Deliver(ctx, payload)

	delivered := false
	for _, result := range results {
		e.metrics.ObserveNotification(result.Channel, result.Err == nil)
		if result.Err == nil {
			delivered = true
		}
	}

	record := models.NotificationRecord{
		MonitorID: monitor.ID,
		SectionID: payload.Transition.SectionID,
		Kind:      payload.Transition.Kind,
		Message:   payload.Transition.Describe(),
		Success:   delivered,
		SentAt:    e.now(),
	}
	if err := e.records.Save(ctx, &record); err != nil {
		e.logger.Error("failed to record notification",
			zap.String("monitor_id", monitor.ID),
			zap.String("section", payload.Transition.SectionID),
			zap.Error(err))
	}

	if len(results) == 0 {
		return true
	}
	return delivered
}
