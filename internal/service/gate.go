package service

import (
	"github.com/coursewatch/coursewatch-api/internal/models"
)

// ShouldNotify decides whether a transition is worth telling the
// monitor's owner about. Deliberately conservative: a worsening change
// (seats closing, section filling) never notifies.
func ShouldNotify(monitor models.Monitor, transition models.Transition) bool {
	switch transition.Kind {
	case models.TransitionStatusChanged:
		return transition.ToStatus == models.SectionStatusOpen && monitor.NotifyOnOpen
	case models.TransitionSeatsOpened:
		return monitor.NotifyOnOpen
	case models.TransitionWaitlistOpened:
		return monitor.NotifyOnWaitlist
	default:
		return false
	}
}
