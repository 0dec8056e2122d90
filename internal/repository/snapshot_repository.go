package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/coursewatch/coursewatch-api/internal/models"
)

// SnapshotRepository handles the append-only enrollment history.
type SnapshotRepository struct {
	db *sqlx.DB
}

// NewSnapshotRepository constructs the repository.
func NewSnapshotRepository(db *sqlx.DB) *SnapshotRepository {
	return &SnapshotRepository{db: db}
}

// Save appends a snapshot. Snapshots are never updated afterwards.
func (r *SnapshotRepository) Save(ctx context.Context, snapshot *models.Snapshot) error {
	if snapshot.ID == "" {
		snapshot.ID = uuid.NewString()
	}
	if snapshot.Timestamp.IsZero() {
		snapshot.Timestamp = time.Now().UTC()
	}
	const query = `INSERT INTO snapshots (id, monitor_id, section_id, class_number, instructor, total_seats, enrolled_seats, open_seats, waitlist_total, waitlist_enrolled, waitlist_open, status, timestamp)
        VALUES (:id, :monitor_id, :section_id, :class_number, :instructor, :total_seats, :enrolled_seats, :open_seats, :waitlist_total, :waitlist_enrolled, :waitlist_open, :status, :timestamp)`
	if _, err := r.db.NamedExecContext(ctx, query, snapshot); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

// Latest returns the most recent snapshot for a monitor and section, or
// sql.ErrNoRows when the section has never been observed.
func (r *SnapshotRepository) Latest(ctx context.Context, monitorID, sectionID string) (*models.Snapshot, error) {
	const query = `SELECT id, monitor_id, section_id, class_number, instructor, total_seats, enrolled_seats, open_seats, waitlist_total, waitlist_enrolled, waitlist_open, status, timestamp
        FROM snapshots WHERE monitor_id = $1 AND section_id = $2 ORDER BY timestamp DESC LIMIT 1`
	var snapshot models.Snapshot
	if err := r.db.GetContext(ctx, &snapshot, query, monitorID, sectionID); err != nil {
		return nil, err
	}
	return &snapshot, nil
}

// History returns snapshots for a course across all its monitors,
// newest first.
func (r *SnapshotRepository) History(ctx context.Context, subject, courseNumber string, limit int) ([]models.Snapshot, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	query := fmt.Sprintf(`SELECT s.id, s.monitor_id, s.section_id, s.class_number, s.instructor, s.total_seats, s.enrolled_seats, s.open_seats, s.waitlist_total, s.waitlist_enrolled, s.waitlist_open, s.status, s.timestamp
        FROM snapshots s
        JOIN monitors m ON m.id = s.monitor_id
        WHERE m.subject = $1 AND m.course_number = $2
        ORDER BY s.timestamp DESC LIMIT %d`, limit)
	var snapshots []models.Snapshot
	if err := r.db.SelectContext(ctx, &snapshots, query, subject, courseNumber); err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	return snapshots, nil
}

// HistoryByMonitor returns snapshots belonging to a single monitor,
// newest first.
func (r *SnapshotRepository) HistoryByMonitor(ctx context.Context, monitorID string, limit int) ([]models.Snapshot, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	query := fmt.Sprintf(`SELECT id, monitor_id, section_id, class_number, instructor, total_seats, enrolled_seats, open_seats, waitlist_total, waitlist_enrolled, waitlist_open, status, timestamp
        FROM snapshots WHERE monitor_id = $1 ORDER BY timestamp DESC LIMIT %d`, limit)
	var snapshots []models.Snapshot
	if err := r.db.SelectContext(ctx, &snapshots, query, monitorID); err != nil {
		return nil, fmt.Errorf("load monitor history: %w", err)
	}
	return snapshots, nil
}

// DeleteOlderThan prunes history beyond the retention horizon and
// returns the number of removed rows.
func (r *SnapshotRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	const query = `DELETE FROM snapshots WHERE timestamp < $1`
	result, err := r.db.ExecContext(ctx, query, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("prune snapshots: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("prune snapshots: count removed rows: %w", err)
	}
	return affected, nil
}
