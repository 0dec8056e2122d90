package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveStatus(t *testing.T) {
	cases := []struct {
		name         string
		openSeats    int
		waitlistOpen int
		want         SectionStatus
	}{
		{"open seats win", 3, 5, SectionStatusOpen},
		{"only waitlist", 0, 2, SectionStatusWaitlist},
		{"nothing available", 0, 0, SectionStatusClosed},
		{"single open seat", 1, 0, SectionStatusOpen},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, DeriveStatus(tc.openSeats, tc.waitlistOpen))
		})
	}
}

func TestNewSectionReadingClampsNegativeCounts(t *testing.T) {
	// Upstream sometimes reports more enrolled than capacity.
	r := NewSectionReading("001", "12345", "Staff", 30, 34, 10, 12, time.Now())
	assert.Equal(t, 0, r.OpenSeats)
	assert.Equal(t, 0, r.WaitlistOpen)
	assert.Equal(t, SectionStatusClosed, r.Status)
}

func TestNewSectionReadingDerivesStatus(t *testing.T) {
	r := NewSectionReading("002", "20001", "Vang", 50, 45, 0, 0, time.Time{})
	assert.Equal(t, 5, r.OpenSeats)
	assert.Equal(t, SectionStatusOpen, r.Status)
	require.False(t, r.FetchedAt.IsZero())

	r = NewSectionReading("002", "20001", "Vang", 50, 50, 20, 15, time.Now())
	assert.Equal(t, SectionStatusWaitlist, r.Status)
	assert.Equal(t, 5, r.WaitlistOpen)
}

func TestMonitorWatchesSection(t *testing.T) {
	m := Monitor{}
	assert.True(t, m.WatchesSection("001"))

	section := "002"
	m.SectionID = &section
	assert.False(t, m.WatchesSection("001"))
	assert.True(t, m.WatchesSection("002"))
}

func TestMonitorIntervalFloor(t *testing.T) {
	m := Monitor{CheckInterval: 0}
	assert.Equal(t, time.Second, m.Interval())
	m.CheckInterval = 300
	assert.Equal(t, 5*time.Minute, m.Interval())
}
