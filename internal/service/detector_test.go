package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coursewatch/coursewatch-api/internal/models"
)

func snapshotWith(status models.SectionStatus, openSeats, waitlistOpen int) *models.Snapshot {
	return &models.Snapshot{
		MonitorID:    "m1",
		SectionID:    "001",
		OpenSeats:    openSeats,
		WaitlistOpen: waitlistOpen,
		Status:       status,
	}
}

func readingWith(t *testing.T, totalSeats, enrolled, waitlistTotal, waitlistEnrolled int) models.SectionReading {
	t.Helper()
	return models.NewSectionReading("001", "12345", "Someone", totalSeats, enrolled, waitlistTotal, waitlistEnrolled, time.Now())
}

func TestDetectFirstObservationHasNoTransitions(t *testing.T) {
	cur := readingWith(t, 30, 25, 10, 0)
	assert.Empty(t, Detect(nil, cur))
}

func TestDetectStatusChanged(t *testing.T) {
	prev := snapshotWith(models.SectionStatusClosed, 0, 0)
	cur := readingWith(t, 30, 25, 0, 0) // 5 open seats

	transitions := Detect(prev, cur)
	require.Len(t, transitions, 2)

	assert.Equal(t, models.TransitionStatusChanged, transitions[0].Kind)
	assert.Equal(t, models.SectionStatusClosed, transitions[0].FromStatus)
	assert.Equal(t, models.SectionStatusOpen, transitions[0].ToStatus)

	assert.Equal(t, models.TransitionSeatsOpened, transitions[1].Kind)
	assert.Equal(t, 0, transitions[1].FromCount)
	assert.Equal(t, 5, transitions[1].ToCount)
}

func TestDetectSeatsOpenedWithoutStatusChange(t *testing.T) {
	// OPEN(5) -> OPEN(8): no status change, but seats increased.
	prev := snapshotWith(models.SectionStatusOpen, 5, 0)
	cur := readingWith(t, 30, 22, 0, 0)

	transitions := Detect(prev, cur)
	require.Len(t, transitions, 1)
	assert.Equal(t, models.TransitionSeatsOpened, transitions[0].Kind)
	assert.Equal(t, 5, transitions[0].FromCount)
	assert.Equal(t, 8, transitions[0].ToCount)
}

func TestDetectWaitlistOpened(t *testing.T) {
	prev := snapshotWith(models.SectionStatusClosed, 0, 0)
	cur := readingWith(t, 30, 30, 10, 7) // 3 waitlist spots

	transitions := Detect(prev, cur)
	require.Len(t, transitions, 2)
	assert.Equal(t, models.TransitionStatusChanged, transitions[0].Kind)
	assert.Equal(t, models.SectionStatusWaitlist, transitions[0].ToStatus)
	assert.Equal(t, models.TransitionWaitlistOpened, transitions[1].Kind)
	assert.Equal(t, 3, transitions[1].ToCount)
}

func TestDetectWorseningChangeOnlyFlagsStatus(t *testing.T) {
	// OPEN -> CLOSED emits a status change but never a seats/waitlist
	// transition.
	prev := snapshotWith(models.SectionStatusOpen, 5, 0)
	cur := readingWith(t, 30, 30, 0, 0)

	transitions := Detect(prev, cur)
	require.Len(t, transitions, 1)
	assert.Equal(t, models.TransitionStatusChanged, transitions[0].Kind)
	assert.Equal(t, models.SectionStatusClosed, transitions[0].ToStatus)
}

func TestDetectNoChange(t *testing.T) {
	prev := snapshotWith(models.SectionStatusOpen, 5, 0)
	cur := readingWith(t, 30, 25, 0, 0)
	assert.Empty(t, Detect(prev, cur))
}

func TestDetectSeatsIncreaseToZeroNeverEmits(t *testing.T) {
	// -2 clamps to 0; an "increase" that lands at zero open seats is
	// not an opening.
	prev := snapshotWith(models.SectionStatusClosed, 0, 0)
	cur := readingWith(t, 30, 32, 0, 0)
	assert.Empty(t, Detect(prev, cur))
}

func TestShouldNotify(t *testing.T) {
	openOnly := models.Monitor{NotifyOnOpen: true}
	waitlistOnly := models.Monitor{NotifyOnWaitlist: true}
	both := models.Monitor{NotifyOnOpen: true, NotifyOnWaitlist: true}
	neither := models.Monitor{}

	toOpen := models.Transition{Kind: models.TransitionStatusChanged, ToStatus: models.SectionStatusOpen}
	toWaitlist := models.Transition{Kind: models.TransitionStatusChanged, ToStatus: models.SectionStatusWaitlist}
	toClosed := models.Transition{Kind: models.TransitionStatusChanged, ToStatus: models.SectionStatusClosed}
	seats := models.Transition{Kind: models.TransitionSeatsOpened}
	waitlist := models.Transition{Kind: models.TransitionWaitlistOpened}

	tests := []struct {
		name       string
		monitor    models.Monitor
		transition models.Transition
		want       bool
	}{
		{"status to open, open wanted", openOnly, toOpen, true},
		{"status to open, only waitlist wanted", waitlistOnly, toOpen, false},
		{"status to waitlist never notifies via status rule", both, toWaitlist, false},
		{"status to closed never notifies", both, toClosed, false},
		{"seats opened, open wanted", openOnly, seats, true},
		{"seats opened, not wanted", waitlistOnly, seats, false},
		{"waitlist opened, waitlist wanted", waitlistOnly, waitlist, true},
		{"waitlist opened, not wanted", openOnly, waitlist, false},
		{"nothing wanted", neither, seats, false},
		{"unknown kind", both, models.Transition{Kind: "SOMETHING_ELSE"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ShouldNotify(tt.monitor, tt.transition))
		})
	}
}
