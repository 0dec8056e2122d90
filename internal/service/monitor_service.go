package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/coursewatch/coursewatch-api/internal/models"
	appErrors "github.com/coursewatch/coursewatch-api/pkg/errors"
)

type monitorRepo interface {
	FindByID(ctx context.Context, id string) (*models.Monitor, error)
	List(ctx context.Context, filter models.MonitorFilter) ([]models.Monitor, int, error)
	UpdatePreferences(ctx context.Context, id string, notifyOnOpen, notifyOnWaitlist bool, checkInterval int) error
	SetActive(ctx context.Context, id string, active bool) error
	Delete(ctx context.Context, id string) error
}

type engineControl interface {
	AddMonitor(ctx context.Context, monitor *models.Monitor) (*models.Monitor, error)
	RemoveMonitor(ctx context.Context, id string) error
	Reschedule(monitor models.Monitor)
}

// CreateMonitorRequest is the payload for registering a new monitor.
type CreateMonitorRequest struct {
	Term             string  `json:"term" validate:"required"`
	Subject          string  `json:"subject" validate:"required"`
	CourseNumber     string  `json:"course_number" validate:"required"`
	SectionID        *string `json:"section_id"`
	NotifyOnOpen     *bool   `json:"notify_on_open"`
	NotifyOnWaitlist bool    `json:"notify_on_waitlist"`
	CheckInterval    int     `json:"check_interval" validate:"omitempty,min=5"`
}

// UpdateMonitorRequest carries partial preference updates.
type UpdateMonitorRequest struct {
	NotifyOnOpen     *bool `json:"notify_on_open"`
	NotifyOnWaitlist *bool `json:"notify_on_waitlist"`
	CheckInterval    *int  `json:"check_interval" validate:"omitempty,min=5"`
	Active           *bool `json:"active"`
}

// MonitorService orchestrates monitor CRUD and keeps the engine's
// schedule in sync with preference changes.
type MonitorService struct {
	monitors        monitorRepo
	engine          engineControl
	defaultInterval time.Duration
	validator       *validator.Validate
	logger          *zap.Logger
}

// NewMonitorService constructs MonitorService.
func NewMonitorService(monitors monitorRepo, engine engineControl, defaultInterval time.Duration, validate *validator.Validate, logger *zap.Logger) *MonitorService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if defaultInterval <= 0 {
		defaultInterval = 5 * time.Minute
	}
	return &MonitorService{
		monitors:        monitors,
		engine:          engine,
		defaultInterval: defaultInterval,
		validator:       validate,
		logger:          logger,
	}
}

// Create validates and registers a new monitor. Duplicate active
// monitors for the same course and section collapse to the existing
// one.
func (s *MonitorService) Create(ctx context.Context, req CreateMonitorRequest) (*models.Monitor, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}

	notifyOnOpen := true
	if req.NotifyOnOpen != nil {
		notifyOnOpen = *req.NotifyOnOpen
	}
	interval := req.CheckInterval
	if interval == 0 {
		interval = int(s.defaultInterval / time.Second)
	}

	monitor := &models.Monitor{
		Term:             strings.TrimSpace(req.Term),
		Subject:          strings.ToUpper(strings.TrimSpace(req.Subject)),
		CourseNumber:     strings.TrimSpace(req.CourseNumber),
		SectionID:        req.SectionID,
		NotifyOnOpen:     notifyOnOpen,
		NotifyOnWaitlist: req.NotifyOnWaitlist,
		CheckInterval:    interval,
		Active:           true,
	}

	created, err := s.engine.AddMonitor(ctx, monitor)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create monitor")
	}
	s.logger.Info("monitor created",
		zap.String("monitor_id", created.ID),
		zap.String("subject", created.Subject),
		zap.String("course", created.CourseNumber))
	return created, nil
}

// Get returns a monitor by id.
func (s *MonitorService) Get(ctx context.Context, id string) (*models.Monitor, error) {
	monitor, err := s.monitors.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load monitor")
	}
	return monitor, nil
}

// List returns monitors matching the filter with pagination.
func (s *MonitorService) List(ctx context.Context, filter models.MonitorFilter) ([]models.Monitor, *models.Pagination, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 || filter.PageSize > 100 {
		filter.PageSize = 20
	}
	filter.Subject = strings.ToUpper(strings.TrimSpace(filter.Subject))

	monitors, total, err := s.monitors.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list monitors")
	}
	return monitors, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

// Update applies partial preference changes and reschedules the
// monitor's timer to pick them up.
func (s *MonitorService) Update(ctx context.Context, id string, req UpdateMonitorRequest) (*models.Monitor, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}

	monitor, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.NotifyOnOpen != nil {
		monitor.NotifyOnOpen = *req.NotifyOnOpen
	}
	if req.NotifyOnWaitlist != nil {
		monitor.NotifyOnWaitlist = *req.NotifyOnWaitlist
	}
	if req.CheckInterval != nil {
		monitor.CheckInterval = *req.CheckInterval
	}
	if err := s.monitors.UpdatePreferences(ctx, id, monitor.NotifyOnOpen, monitor.NotifyOnWaitlist, monitor.CheckInterval); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update monitor")
	}

	if req.Active != nil && *req.Active != monitor.Active {
		if err := s.monitors.SetActive(ctx, id, *req.Active); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update monitor state")
		}
		monitor.Active = *req.Active
	}

	s.engine.Reschedule(*monitor)
	return monitor, nil
}

// Delete soft-deletes a monitor and cancels its timer.
func (s *MonitorService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.engine.RemoveMonitor(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to remove monitor")
	}
	return nil
}

// Purge hard-deletes a monitor along with its snapshots and
// notification history. Admin-only operation.
func (s *MonitorService) Purge(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.engine.RemoveMonitor(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to unschedule monitor")
	}
	if err := s.monitors.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to purge monitor")
	}
	s.logger.Info("monitor purged", zap.String("monitor_id", id))
	return nil
}
