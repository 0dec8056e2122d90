package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/coursewatch/coursewatch-api/internal/models"
)

// MonitorRepository handles persistence of course monitors.
type MonitorRepository struct {
	db *sqlx.DB
}

// NewMonitorRepository constructs the repository.
func NewMonitorRepository(db *sqlx.DB) *MonitorRepository {
	return &MonitorRepository{db: db}
}

// Create persists a new monitor. When an active monitor already exists
// for the same (term, subject, course, section) tuple the existing row
// is returned instead of inserting a duplicate.
func (r *MonitorRepository) Create(ctx context.Context, monitor *models.Monitor) (*models.Monitor, error) {
	existing, err := r.findActiveDuplicate(ctx, monitor)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	if monitor.ID == "" {
		monitor.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	monitor.CreatedAt = now
	monitor.UpdatedAt = now
	monitor.Active = true

	const query = `INSERT INTO monitors (id, term, subject, course_number, section_id, notify_on_open, notify_on_waitlist, check_interval, active, last_checked, created_at, updated_at)
        VALUES (:id, :term, :subject, :course_number, :section_id, :notify_on_open, :notify_on_waitlist, :check_interval, :active, :last_checked, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, monitor); err != nil {
		return nil, fmt.Errorf("create monitor: %w", err)
	}
	return monitor, nil
}

func (r *MonitorRepository) findActiveDuplicate(ctx context.Context, monitor *models.Monitor) (*models.Monitor, error) {
	query := `SELECT id, term, subject, course_number, section_id, notify_on_open, notify_on_waitlist, check_interval, active, last_checked, created_at, updated_at
        FROM monitors WHERE term = $1 AND subject = $2 AND course_number = $3 AND active = TRUE`
	args := []interface{}{monitor.Term, monitor.Subject, monitor.CourseNumber}
	if monitor.SectionID != nil && *monitor.SectionID != "" {
		query += " AND section_id = $4"
		args = append(args, *monitor.SectionID)
	} else {
		query += " AND section_id IS NULL"
	}
	query += " LIMIT 1"

	var existing models.Monitor
	if err := r.db.GetContext(ctx, &existing, query, args...); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("check duplicate monitor: %w", err)
	}
	return &existing, nil
}

// FindByID returns a monitor by its ID.
func (r *MonitorRepository) FindByID(ctx context.Context, id string) (*models.Monitor, error) {
	const query = `SELECT id, term, subject, course_number, section_id, notify_on_open, notify_on_waitlist, check_interval, active, last_checked, created_at, updated_at
        FROM monitors WHERE id = $1`
	var monitor models.Monitor
	if err := r.db.GetContext(ctx, &monitor, query, id); err != nil {
		return nil, err
	}
	return &monitor, nil
}

// ListActive returns all active monitors.
func (r *MonitorRepository) ListActive(ctx context.Context) ([]models.Monitor, error) {
	const query = `SELECT id, term, subject, course_number, section_id, notify_on_open, notify_on_waitlist, check_interval, active, last_checked, created_at, updated_at
        FROM monitors WHERE active = TRUE ORDER BY created_at`
	var monitors []models.Monitor
	if err := r.db.SelectContext(ctx, &monitors, query); err != nil {
		return nil, fmt.Errorf("list active monitors: %w", err)
	}
	return monitors, nil
}

// List returns monitors filtered by the provided criteria.
func (r *MonitorRepository) List(ctx context.Context, filter models.MonitorFilter) ([]models.Monitor, int, error) {
	base := "FROM monitors m"
	var conditions []string
	var args []interface{}

	if filter.Term != "" {
		conditions = append(conditions, fmt.Sprintf("m.term = $%d", len(args)+1))
		args = append(args, filter.Term)
	}
	if filter.Subject != "" {
		conditions = append(conditions, fmt.Sprintf("m.subject = $%d", len(args)+1))
		args = append(args, filter.Subject)
	}
	if filter.CourseNumber != "" {
		conditions = append(conditions, fmt.Sprintf("m.course_number = $%d", len(args)+1))
		args = append(args, filter.CourseNumber)
	}
	if filter.Active != nil {
		conditions = append(conditions, fmt.Sprintf("m.active = $%d", len(args)+1))
		args = append(args, *filter.Active)
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT m.id, m.term, m.subject, m.course_number, m.section_id, m.notify_on_open, m.notify_on_waitlist, m.check_interval, m.active, m.last_checked, m.created_at, m.updated_at
        %s ORDER BY m.created_at DESC LIMIT %d OFFSET %d`, base+clause, size, offset)

	var monitors []models.Monitor
	if err := r.db.SelectContext(ctx, &monitors, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list monitors: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base+clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count monitors: %w", err)
	}
	return monitors, total, nil
}

// UpdateLastChecked advances the last checked timestamp. The timestamp
// never moves backwards.
func (r *MonitorRepository) UpdateLastChecked(ctx context.Context, id string, checkedAt time.Time) error {
	const query = `UPDATE monitors SET last_checked = $2, updated_at = $2
        WHERE id = $1 AND (last_checked IS NULL OR last_checked < $2)`
	if _, err := r.db.ExecContext(ctx, query, id, checkedAt.UTC()); err != nil {
		return fmt.Errorf("update last checked: %w", err)
	}
	return nil
}

// UpdatePreferences updates the notification flags and interval.
func (r *MonitorRepository) UpdatePreferences(ctx context.Context, id string, notifyOnOpen, notifyOnWaitlist bool, checkInterval int) error {
	const query = `UPDATE monitors SET notify_on_open = $2, notify_on_waitlist = $3, check_interval = $4, updated_at = $5 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, notifyOnOpen, notifyOnWaitlist, checkInterval, time.Now().UTC()); err != nil {
		return fmt.Errorf("update monitor preferences: %w", err)
	}
	return nil
}

// SetActive toggles the soft-delete flag.
func (r *MonitorRepository) SetActive(ctx context.Context, id string, active bool) error {
	const query = `UPDATE monitors SET active = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, active, time.Now().UTC()); err != nil {
		return fmt.Errorf("set monitor active: %w", err)
	}
	return nil
}

// Delete removes a monitor permanently. Snapshots and notification
// records cascade through the schema's foreign keys.
func (r *MonitorRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM monitors WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete monitor: %w", err)
	}
	return nil
}
