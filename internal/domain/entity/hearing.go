package entity

import (
	"time"

	"github.com/google/uuid"
)

// HearingStatus is the status of a scheduled hearing.
type HearingStatus string

const (
	HearingScheduled  HearingStatus = "scheduled"
	HearingInProgress HearingStatus = "in_progress"
	HearingAdjourned  HearingStatus = "adjourned"
	HearingClosed     HearingStatus = "closed"
)

// IsValid checks if the HearingStatus is a valid value.
func (s HearingStatus) IsValid() bool {
	switch s {
	case HearingScheduled, HearingInProgress, HearingAdjourned, HearingClosed:
		return true
	default:
		return false
	}
}

// Hearing belongs to exactly one case.
type Hearing struct {
	ID          uuid.UUID     `json:"id"`
	CaseID      uuid.UUID     `json:"case_id"`
	ScheduledAt time.Time     `json:"scheduled_at"`
	Status      HearingStatus `json:"status"`
	Location    string        `json:"location"`
	MeetingLink string        `json:"meeting_link,omitempty"` // Virtual hearing room, optional.
	CreatedAt   time.Time     `json:"created_at"`
}

// NextHearing returns the earliest hearing after now whose status is not
// closed, or nil when there is none. Input order does not matter.
func NextHearing(hearings []*Hearing, now time.Time) *Hearing {
	var next *Hearing
	for _, h := range hearings {
		if h.Status == HearingClosed || !h.ScheduledAt.After(now) {
			continue
		}
		if next == nil || h.ScheduledAt.Before(next.ScheduledAt) {
			next = h
		}
	}

	return next
}
