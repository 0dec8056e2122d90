package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/coursewatch/coursewatch-api/internal/models"
	appErrors "github.com/coursewatch/coursewatch-api/pkg/errors"
	"github.com/coursewatch/coursewatch-api/pkg/export"
)

type historyRepo interface {
	History(ctx context.Context, subject, courseNumber string, limit int) ([]models.Snapshot, error)
	HistoryByMonitor(ctx context.Context, monitorID string, limit int) ([]models.Snapshot, error)
}

type monitorReader interface {
	FindByID(ctx context.Context, id string) (*models.Monitor, error)
}

type notificationReader interface {
	ListByMonitor(ctx context.Context, monitorID string, limit int) ([]models.NotificationRecord, error)
}

// Supported export formats.
const (
	ExportFormatCSV = "csv"
	ExportFormatPDF = "pdf"
)

// ExportResult bundles rendered bytes with response metadata.
type ExportResult struct {
	ContentType string
	Filename    string
	Data        []byte
}

// HistoryService serves snapshot time-series and notification audit
// queries, plus tabular exports.
type HistoryService struct {
	snapshots     historyRepo
	monitors      monitorReader
	notifications notificationReader
	csv           *export.CSVExporter
	pdf           *export.PDFExporter
	logger        *zap.Logger
}

// NewHistoryService constructs HistoryService.
func NewHistoryService(snapshots historyRepo, monitors monitorReader, notifications notificationReader, logger *zap.Logger) *HistoryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HistoryService{
		snapshots:     snapshots,
		monitors:      monitors,
		notifications: notifications,
		csv:           export.NewCSVExporter(),
		pdf:           export.NewPDFExporter(),
		logger:        logger,
	}
}

// MonitorHistory returns a monitor's snapshots, newest first.
func (s *HistoryService) MonitorHistory(ctx context.Context, monitorID string, limit int) ([]models.Snapshot, error) {
	if _, err := s.monitors.FindByID(ctx, monitorID); err != nil {
		return nil, appErrors.ErrNotFound
	}
	snapshots, err := s.snapshots.HistoryByMonitor(ctx, monitorID, limit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load history")
	}
	return snapshots, nil
}

// CourseHistory returns snapshots for a course across all its
// monitors.
func (s *HistoryService) CourseHistory(ctx context.Context, subject, courseNumber string, limit int) ([]models.Snapshot, error) {
	snapshots, err := s.snapshots.History(ctx, strings.ToUpper(strings.TrimSpace(subject)), strings.TrimSpace(courseNumber), limit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course history")
	}
	return snapshots, nil
}

// Notifications returns a monitor's delivery audit trail.
func (s *HistoryService) Notifications(ctx context.Context, monitorID string, limit int) ([]models.NotificationRecord, error) {
	if _, err := s.monitors.FindByID(ctx, monitorID); err != nil {
		return nil, appErrors.ErrNotFound
	}
	records, err := s.notifications.ListByMonitor(ctx, monitorID, limit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load notifications")
	}
	return records, nil
}

// Export renders a monitor's history as CSV or PDF.
func (s *HistoryService) Export(ctx context.Context, monitorID, format string, limit int) (*ExportResult, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = ExportFormatCSV
	}
	if format != ExportFormatCSV && format != ExportFormatPDF {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}

	monitor, err := s.monitors.FindByID(ctx, monitorID)
	if err != nil {
		return nil, appErrors.ErrNotFound
	}
	snapshots, err := s.snapshots.HistoryByMonitor(ctx, monitorID, limit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load history")
	}

	dataset := historyDataset(snapshots)
	stamp := time.Now().UTC().Format("20060102")
	base := fmt.Sprintf("history_%s_%s_%s", strings.ReplaceAll(monitor.Subject, " ", ""), monitor.CourseNumber, stamp)

	switch format {
	case ExportFormatPDF:
		title := fmt.Sprintf("Enrollment History %s %s (%s)", monitor.Subject, monitor.CourseNumber, monitor.Term)
		data, err := s.pdf.Render(dataset, title)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
		}
		return &ExportResult{ContentType: "application/pdf", Filename: base + ".pdf", Data: data}, nil
	default:
		data, err := s.csv.Render(dataset)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
		}
		return &ExportResult{ContentType: "text/csv", Filename: base + ".csv", Data: data}, nil
	}
}

func historyDataset(snapshots []models.Snapshot) export.Dataset {
	headers := []string{"Timestamp", "Section", "Class Number", "Instructor", "Status", "Open Seats", "Total Seats", "Waitlist Open", "Waitlist Total"}
	rows := make([]map[string]string, 0, len(snapshots))
	for _, snapshot := range snapshots {
		rows = append(rows, map[string]string{
			"Timestamp":      snapshot.Timestamp.UTC().Format(time.RFC3339),
			"Section":        snapshot.SectionID,
			"Class Number":   snapshot.ClassNumber,
			"Instructor":     snapshot.Instructor,
			"Status":         string(snapshot.Status),
			"Open Seats":     strconv.Itoa(snapshot.OpenSeats),
			"Total Seats":    strconv.Itoa(snapshot.TotalSeats),
			"Waitlist Open":  strconv.Itoa(snapshot.WaitlistOpen),
			"Waitlist Total": strconv.Itoa(snapshot.WaitlistTotal),
		})
	}
	return export.Dataset{Headers: headers, Rows: rows}
}
