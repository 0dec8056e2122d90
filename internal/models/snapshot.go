package models

import "time"

// Snapshot is one persisted observation of a section's enrollment state
// tied to a monitor. Snapshots are append-only: they are never mutated
// and only removed when their monitor is hard-deleted or by the
// retention sweep.
type Snapshot struct {
	ID               string        `db:"id" json:"id"`
	MonitorID        string        `db:"monitor_id" json:"monitor_id"`
	SectionID        string        `db:"section_id" json:"section_id"`
	ClassNumber      string        `db:"class_number" json:"class_number"`
	Instructor       string        `db:"instructor" json:"instructor"`
	TotalSeats       int           `db:"total_seats" json:"total_seats"`
	EnrolledSeats    int           `db:"enrolled_seats" json:"enrolled_seats"`
	OpenSeats        int           `db:"open_seats" json:"open_seats"`
	WaitlistTotal    int           `db:"waitlist_total" json:"waitlist_total"`
	WaitlistEnrolled int           `db:"waitlist_enrolled" json:"waitlist_enrolled"`
	WaitlistOpen     int           `db:"waitlist_open" json:"waitlist_open"`
	Status           SectionStatus `db:"status" json:"status"`
	Timestamp        time.Time     `db:"timestamp" json:"timestamp"`
}

// SnapshotFromReading binds a section reading to a monitor.
func SnapshotFromReading(monitorID string, reading SectionReading) Snapshot {
	return Snapshot{
		MonitorID:        monitorID,
		SectionID:        reading.SectionID,
		ClassNumber:      reading.ClassNumber,
		Instructor:       reading.Instructor,
		TotalSeats:       reading.TotalSeats,
		EnrolledSeats:    reading.EnrolledSeats,
		OpenSeats:        reading.OpenSeats,
		WaitlistTotal:    reading.WaitlistTotal,
		WaitlistEnrolled: reading.WaitlistEnrolled,
		WaitlistOpen:     reading.WaitlistOpen,
		Status:           reading.Status,
		Timestamp:        reading.FetchedAt,
	}
}
