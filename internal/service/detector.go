package service

import (
	"github.com/coursewatch/coursewatch-api/internal/models"
)

// Detect compares the latest persisted snapshot of a section against a
// fresh reading and classifies what changed. Pure function, no
// I/O. A nil previous snapshot means first observation: the caller
// still persists the reading but nothing has transitioned yet.
//
// The rules are evaluated independently; a single comparison can emit
// several transitions (a section going CLOSED to OPEN yields both a
// status change and a seat increase) and each routes through the
// notification gate on its own.
func Detect(prev *models.Snapshot, cur models.SectionReading) []models.Transition {
	if prev == nil {
		return nil
	}

	var transitions []models.Transition

	if prev.Status != cur.Status {
		transitions = append(transitions, models.Transition{
			Kind:       models.TransitionStatusChanged,
			SectionID:  cur.SectionID,
			FromStatus: prev.Status,
			ToStatus:   cur.Status,
			FromCount:  prev.OpenSeats,
			ToCount:    cur.OpenSeats,
		})
	}

	if prev.OpenSeats < cur.OpenSeats && cur.OpenSeats > 0 {
		transitions = append(transitions, models.Transition{
			Kind:       models.TransitionSeatsOpened,
			SectionID:  cur.SectionID,
			FromStatus: prev.Status,
			ToStatus:   cur.Status,
			FromCount:  prev.OpenSeats,
			ToCount:    cur.OpenSeats,
		})
	}

	if prev.WaitlistOpen < cur.WaitlistOpen && cur.WaitlistOpen > 0 {
		transitions = append(transitions, models.Transition{
			Kind:       models.TransitionWaitlistOpened,
			SectionID:  cur.SectionID,
			FromStatus: prev.Status,
			ToStatus:   cur.Status,
			FromCount:  prev.WaitlistOpen,
			ToCount:    cur.WaitlistOpen,
		})
	}

	return transitions
}
