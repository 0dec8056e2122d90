package models

import "time"

// Monitor is a persisted configuration describing which course (and
// optionally which section) to watch, how often, and when to notify.
type Monitor struct {
	ID               string     `db:"id" json:"id"`
	Term             string     `db:"term" json:"term"`
	Subject          string     `db:"subject" json:"subject"`
	CourseNumber     string     `db:"course_number" json:"course_number"`
	SectionID        *string    `db:"section_id" json:"section_id,omitempty"`
	NotifyOnOpen     bool       `db:"notify_on_open" json:"notify_on_open"`
	NotifyOnWaitlist bool       `db:"notify_on_waitlist" json:"notify_on_waitlist"`
	CheckInterval    int        `db:"check_interval" json:"check_interval"`
	Active           bool       `db:"active" json:"active"`
	LastChecked      *time.Time `db:"last_checked" json:"last_checked,omitempty"`
	CreatedAt        time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time  `db:"updated_at" json:"updated_at"`
}

// Interval returns the check interval as a duration. Intervals below
// one second are treated as one second.
func (m Monitor) Interval() time.Duration {
	secs := m.CheckInterval
	if secs < 1 {
		secs = 1
	}
	return time.Duration(secs) * time.Second
}

// WatchesSection reports whether the monitor is restricted to a single
// section and if so whether the given section matches.
func (m Monitor) WatchesSection(sectionID string) bool {
	if m.SectionID == nil || *m.SectionID == "" {
		return true
	}
	return *m.SectionID == sectionID
}

// MonitorFilter provides filters for listing monitors.
type MonitorFilter struct {
	Term         string
	Subject      string
	CourseNumber string
	Active       *bool
	Page         int
	PageSize     int
}
