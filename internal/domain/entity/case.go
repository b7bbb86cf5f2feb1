package entity

import (
	"time"

	"github.com/google/uuid"
)

// CaseStatus is the procedural status of a case.
type CaseStatus string

const (
	CaseStatusPending   CaseStatus = "pending"
	CaseStatusActive    CaseStatus = "active"
	CaseStatusClosed    CaseStatus = "closed"
	CaseStatusPostponed CaseStatus = "postponed"
)

// IsValid checks if the CaseStatus is a valid value.
func (s CaseStatus) IsValid() bool {
	switch s {
	case CaseStatusPending, CaseStatusActive, CaseStatusClosed, CaseStatusPostponed:
		return true
	default:
		return false
	}
}

// CaseType is the jurisdictional category of a case.
type CaseType string

const (
	CaseTypeCriminal       CaseType = "criminal"
	CaseTypeCivil          CaseType = "civil"
	CaseTypeFamily         CaseType = "family"
	CaseTypeCommercial     CaseType = "commercial"
	CaseTypeConstitutional CaseType = "constitutional"
)

// IsValid checks if the CaseType is a valid value.
func (t CaseType) IsValid() bool {
	switch t {
	case CaseTypeCriminal, CaseTypeCivil, CaseTypeFamily, CaseTypeCommercial, CaseTypeConstitutional:
		return true
	default:
		return false
	}
}

// Case is a matter filed before a court, identified externally by its CNR.
type Case struct {
	ID          uuid.UUID  `json:"id"`
	CaseNumber  string     `json:"case_number"` // CNR; unique and immutable.
	Title       string     `json:"title"`
	Type        CaseType   `json:"type"`
	Status      CaseStatus `json:"status"`
	Petitioner  string     `json:"petitioner"`
	Respondent  string     `json:"respondent"`
	JudgeID     *uuid.UUID `json:"judge_id,omitempty"` // Identity of the assigned judge, if any.
	CourtName   string     `json:"court_name"`
	Description string     `json:"description"`
	CreatedBy   uuid.UUID  `json:"created_by"` // Owner: the lawyer who filed the case.
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// IsAssignedJudge reports whether identityID is the judge assigned to the case.
func (c *Case) IsAssignedJudge(identityID uuid.UUID) bool {
	return c.JudgeID != nil && *c.JudgeID == identityID
}

// IsOwner reports whether identityID filed the case.
func (c *Case) IsOwner(identityID uuid.UUID) bool {
	return c.CreatedBy == identityID
}

// CanManage reports whether identityID may change status or judge assignment.
func (c *Case) CanManage(identityID uuid.UUID) bool {
	return c.IsOwner(identityID) || c.IsAssignedJudge(identityID)
}
