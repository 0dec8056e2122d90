package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/coursewatch/coursewatch-api/internal/models"
)

// NotificationRepository handles the notification audit log.
type NotificationRepository struct {
	db *sqlx.DB
}

// NewNotificationRepository constructs the repository.
func NewNotificationRepository(db *sqlx.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// Save appends a notification record.
func (r *NotificationRepository) Save(ctx context.Context, record *models.NotificationRecord) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.SentAt.IsZero() {
		record.SentAt = time.Now().UTC()
	}
	const query = `INSERT INTO notifications (id, monitor_id, section_id, kind, message, success, sent_at)
        VALUES (:id, :monitor_id, :section_id, :kind, :message, :success, :sent_at)`
	if _, err := r.db.NamedExecContext(ctx, query, record); err != nil {
		return fmt.Errorf("save notification record: %w", err)
	}
	return nil
}

// ListByMonitor returns the most recent notification records for a monitor.
func (r *NotificationRepository) ListByMonitor(ctx context.Context, monitorID string, limit int) ([]models.NotificationRecord, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	query := fmt.Sprintf(`SELECT id, monitor_id, section_id, kind, message, success, sent_at
        FROM notifications WHERE monitor_id = $1 ORDER BY sent_at DESC LIMIT %d`, limit)
	var records []models.NotificationRecord
	if err := r.db.SelectContext(ctx, &records, query, monitorID); err != nil {
		return nil, fmt.Errorf("list notification records: %w", err)
	}
	return records, nil
}
