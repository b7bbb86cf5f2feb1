package entity

import "github.com/google/uuid"

// NotScheduled is shown in place of a next hearing when none is upcoming.
const NotScheduled = "not scheduled"

// Requester is the identity and role on whose behalf a case query runs.
type Requester struct {
	IdentityID uuid.UUID
	Role       Role
}

// NextHearingView is never empty: either a hearing or the NotScheduled label.
type NextHearingView struct {
	Scheduled bool     `json:"scheduled"`
	Label     string   `json:"label"`
	Hearing   *Hearing `json:"hearing,omitempty"`
}

// CaseView is a case joined with its next hearing, roster and the
// communications the requester is allowed to read.
type CaseView struct {
	Case           *Case            `json:"case"`
	NextHearing    NextHearingView  `json:"next_hearing"`
	Participants   Roster           `json:"participants"`
	Hearings       []*Hearing       `json:"hearings,omitempty"`
	Communications []*Communication `json:"communications"`
}
