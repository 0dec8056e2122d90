package models

import (
	"fmt"
	"time"
)

// TransitionKind classifies a detected change between two consecutive
// observations of the same section.
type TransitionKind string

// Possible transition kinds.
const (
	TransitionStatusChanged  TransitionKind = "STATUS_CHANGED"
	TransitionSeatsOpened    TransitionKind = "SEATS_OPENED"
	TransitionWaitlistOpened TransitionKind = "WAITLIST_OPENED"
)

// Transition is an ephemeral classified difference between a previous
// snapshot and a current reading. It is never persisted itself; its
// occurrence is recorded as a NotificationRecord when it notifies.
type Transition struct {
	Kind       TransitionKind `json:"kind"`
	SectionID  string         `json:"section_id"`
	FromStatus SectionStatus  `json:"from_status,omitempty"`
	ToStatus   SectionStatus  `json:"to_status,omitempty"`
	FromCount  int            `json:"from_count"`
	ToCount    int            `json:"to_count"`
}

// Describe renders a human-readable summary for audit records and
// notification payloads.
func (t Transition) Describe() string {
	switch t.Kind {
	case TransitionStatusChanged:
		return fmt.Sprintf("section %s status changed %s -> %s", t.SectionID, t.FromStatus, t.ToStatus)
	case TransitionSeatsOpened:
		return fmt.Sprintf("section %s open seats increased %d -> %d", t.SectionID, t.FromCount, t.ToCount)
	case TransitionWaitlistOpened:
		return fmt.Sprintf("section %s waitlist spots increased %d -> %d", t.SectionID, t.FromCount, t.ToCount)
	default:
		return fmt.Sprintf("section %s changed", t.SectionID)
	}
}

// NotificationRecord is one append-only audit row for an attempted
// notification delivery.
type NotificationRecord struct {
	ID        string         `db:"id" json:"id"`
	MonitorID string         `db:"monitor_id" json:"monitor_id"`
	SectionID string         `db:"section_id" json:"section_id"`
	Kind      TransitionKind `db:"kind" json:"kind"`
	Message   string         `db:"message" json:"message"`
	Success   bool           `db:"success" json:"success"`
	SentAt    time.Time      `db:"sent_at" json:"sent_at"`
}
