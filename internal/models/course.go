package models

import "time"

// SectionStatus classifies a section's enrollment availability.
type SectionStatus string

// Possible section statuses.
const (
	SectionStatusOpen     SectionStatus = "OPEN"
	SectionStatusWaitlist SectionStatus = "WAITLIST"
	SectionStatusClosed   SectionStatus = "CLOSED"
)

// DeriveStatus maps seat availability to a status. OPEN wins over
// WAITLIST; everything else is CLOSED.
func DeriveStatus(openSeats, waitlistOpen int) SectionStatus {
	switch {
	case openSeats > 0:
		return SectionStatusOpen
	case waitlistOpen > 0:
		return SectionStatusWaitlist
	default:
		return SectionStatusClosed
	}
}

// SectionReading is a point-in-time observation of a section's
// enrollment state. Construct through NewSectionReading so derived
// fields stay consistent; readings are treated as immutable afterwards.
type SectionReading struct {
	SectionID        string        `json:"section_id"`
	ClassNumber      string        `json:"class_number"`
	Instructor       string        `json:"instructor"`
	TotalSeats       int           `json:"total_seats"`
	EnrolledSeats    int           `json:"enrolled_seats"`
	OpenSeats        int           `json:"open_seats"`
	WaitlistTotal    int           `json:"waitlist_total"`
	WaitlistEnrolled int           `json:"waitlist_enrolled"`
	WaitlistOpen     int           `json:"waitlist_open"`
	Status           SectionStatus `json:"status"`
	FetchedAt        time.Time     `json:"fetched_at"`
}

// NewSectionReading builds a reading from raw upstream counts. Open
// counts are clamped at zero: upstream occasionally reports enrolled
// above capacity.
func NewSectionReading(sectionID, classNumber, instructor string, totalSeats, enrolledSeats, waitlistTotal, waitlistEnrolled int, fetchedAt time.Time) SectionReading {
	openSeats := totalSeats - enrolledSeats
	if openSeats < 0 {
		openSeats = 0
	}
	waitlistOpen := waitlistTotal - waitlistEnrolled
	if waitlistOpen < 0 {
		waitlistOpen = 0
	}
	if fetchedAt.IsZero() {
		fetchedAt = time.Now().UTC()
	}
	return SectionReading{
		SectionID:        sectionID,
		ClassNumber:      classNumber,
		Instructor:       instructor,
		TotalSeats:       totalSeats,
		EnrolledSeats:    enrolledSeats,
		OpenSeats:        openSeats,
		WaitlistTotal:    waitlistTotal,
		WaitlistEnrolled: waitlistEnrolled,
		WaitlistOpen:     waitlistOpen,
		Status:           DeriveStatus(openSeats, waitlistOpen),
		FetchedAt:        fetchedAt,
	}
}

// CourseDocument is the canonical shape produced by the upstream
// collaborator, independent of the upstream's wire format.
type CourseDocument struct {
	Term         string           `json:"term"`
	Subject      string           `json:"subject"`
	CourseNumber string           `json:"course_number"`
	Title        string           `json:"title"`
	Sections     []SectionReading `json:"sections"`
}
