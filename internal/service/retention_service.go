package service

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/coursewatch/coursewatch-api/pkg/config"
)

type snapshotPruner interface {
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// RetentionService periodically prunes snapshots past the configured
// age so the time-series does not grow without bound.
type RetentionService struct {
	cfg       config.RetentionConfig
	snapshots snapshotPruner
	logger    *zap.Logger
	cron      *cron.Cron
	entryID   cron.EntryID
	now       func() time.Time
}

// NewRetentionService constructs RetentionService.
func NewRetentionService(cfg config.RetentionConfig, snapshots snapshotPruner, logger *zap.Logger) *RetentionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RetentionService{
		cfg:       cfg,
		snapshots: snapshots,
		logger:    logger,
		cron:      cron.New(),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Start schedules the sweep. Disabled config is a no-op.
func (s *RetentionService) Start() error {
	if !s.cfg.Enabled {
		s.logger.Info("snapshot retention sweep disabled")
		return nil
	}
	id, err := s.cron.AddFunc(s.cfg.CronSpec, func() {
		s.Sweep(context.Background())
	})
	if err != nil {
		return err
	}
	s.entryID = id
	s.cron.Start()
	s.logger.Info("snapshot retention sweep scheduled",
		zap.String("cron", s.cfg.CronSpec),
		zap.Duration("max_age", s.cfg.MaxAge))
	return nil
}

// Stop halts the scheduler, waiting for a running sweep to finish.
func (s *RetentionService) Stop() {
	<-s.cron.Stop().Done()
}

// Sweep deletes snapshots older than the retention window and reports
// how many rows went away.
func (s *RetentionService) Sweep(ctx context.Context) int64 {
	cutoff := s.now().Add(-s.cfg.MaxAge)
	deleted, err := s.snapshots.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		s.logger.Error("retention sweep failed", zap.Error(err))
		return 0
	}
	if deleted > 0 {
		s.logger.Info("retention sweep pruned snapshots",
			zap.Int64("deleted", deleted),
			zap.Time("cutoff", cutoff))
	}
	return deleted
}
