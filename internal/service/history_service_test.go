package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/coursewatch/coursewatch-api/internal/models"
	"github.com/coursewatch/coursewatch-api/pkg/config"
	appErrors "github.com/coursewatch/coursewatch-api/pkg/errors"
)

type fakeHistoryRepo struct {
	snapshots []models.Snapshot
	gotLimit  int
}

func (r *fakeHistoryRepo) History(ctx context.Context, subject, courseNumber string, limit int) ([]models.Snapshot, error) {
	r.gotLimit = limit
	return r.snapshots, nil
}

func (r *fakeHistoryRepo) HistoryByMonitor(ctx context.Context, monitorID string, limit int) ([]models.Snapshot, error) {
	r.gotLimit = limit
	return r.snapshots, nil
}

type fakeNotificationReader struct {
	records []models.NotificationRecord
}

func (r *fakeNotificationReader) ListByMonitor(ctx context.Context, monitorID string, limit int) ([]models.NotificationRecord, error) {
	return r.records, nil
}

func historyFixture() []models.Snapshot {
	return []models.Snapshot{
		{
			MonitorID:     "m1",
			SectionID:     "001",
			ClassNumber:   "12345",
			Instructor:    "Someone",
			TotalSeats:    30,
			EnrolledSeats: 25,
			OpenSeats:     5,
			Status:        models.SectionStatusOpen,
			Timestamp:     time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		},
		{
			MonitorID:   "m1",
			SectionID:   "001",
			ClassNumber: "12345",
			Instructor:  "Someone",
			TotalSeats:  30,
			Status:      models.SectionStatusClosed,
			Timestamp:   time.Date(2026, 3, 1, 11, 0, 0, 0, time.UTC),
		},
	}
}

func newHistoryService(snapshots []models.Snapshot) (*HistoryService, *fakeHistoryRepo) {
	monitor := schedulerMonitor()
	repo := &fakeHistoryRepo{snapshots: snapshots}
	svc := NewHistoryService(repo, newFakeMonitorRepo(&monitor), &fakeNotificationReader{}, zap.NewNop())
	return svc, repo
}

func TestHistoryServiceMonitorHistory(t *testing.T) {
	svc, _ := newHistoryService(historyFixture())

	snapshots, err := svc.MonitorHistory(context.Background(), "m1", 50)
	require.NoError(t, err)
	assert.Len(t, snapshots, 2)

	_, err = svc.MonitorHistory(context.Background(), "missing", 50)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestHistoryServiceExportCSV(t *testing.T) {
	svc, _ := newHistoryService(historyFixture())

	result, err := svc.Export(context.Background(), "m1", "csv", 100)
	require.NoError(t, err)

	assert.Equal(t, "text/csv", result.ContentType)
	assert.True(t, strings.HasPrefix(result.Filename, "history_COMPSCI_400_"))
	assert.True(t, strings.HasSuffix(result.Filename, ".csv"))

	body := string(result.Data)
	assert.Contains(t, body, "Timestamp,Section,Class Number")
	assert.Contains(t, body, "2026-03-01T12:00:00Z,001,12345,Someone,OPEN,5,30")
}

func TestHistoryServiceExportPDF(t *testing.T) {
	svc, _ := newHistoryService(historyFixture())

	result, err := svc.Export(context.Background(), "m1", "pdf", 100)
	require.NoError(t, err)

	assert.Equal(t, "application/pdf", result.ContentType)
	assert.True(t, strings.HasSuffix(result.Filename, ".pdf"))
	assert.True(t, strings.HasPrefix(string(result.Data), "%PDF"), "rendered bytes are a pdf document")
}

func TestHistoryServiceExportDefaultsToCSV(t *testing.T) {
	svc, _ := newHistoryService(historyFixture())

	result, err := svc.Export(context.Background(), "m1", "", 100)
	require.NoError(t, err)
	assert.Equal(t, "text/csv", result.ContentType)
}

func TestHistoryServiceExportRejectsUnknownFormat(t *testing.T) {
	svc, _ := newHistoryService(historyFixture())

	_, err := svc.Export(context.Background(), "m1", "xlsx", 100)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestRetentionServiceSweep(t *testing.T) {
	pruner := &fakePruner{deleted: 42}
	svc := NewRetentionService(config.RetentionConfig{Enabled: true, CronSpec: "0 3 * * *", MaxAge: 30 * 24 * time.Hour}, pruner, zap.NewNop())
	svc.now = func() time.Time { return time.Date(2026, 3, 31, 3, 0, 0, 0, time.UTC) }

	deleted := svc.Sweep(context.Background())
	assert.Equal(t, int64(42), deleted)
	assert.Equal(t, time.Date(2026, 3, 1, 3, 0, 0, 0, time.UTC), pruner.cutoff)
}

func TestRetentionServiceDisabledDoesNotSchedule(t *testing.T) {
	pruner := &fakePruner{}
	svc := NewRetentionService(config.RetentionConfig{Enabled: false}, pruner, zap.NewNop())
	require.NoError(t, svc.Start())
	svc.Stop()
	assert.Zero(t, pruner.calls)
}

type fakePruner struct {
	deleted int64
	cutoff  time.Time
	calls   int
}

func (p *fakePruner) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	p.calls++
	p.cutoff = cutoff
	return p.deleted, nil
}
