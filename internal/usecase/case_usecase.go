package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	"lexcourt/internal/domain/entity"
)

// --- Input DTOs ---

// CreateCaseInput defines the data required to file a case.
type CreateCaseInput struct {
	CaseNumber  string                 `json:"case_number" validate:"required,alphanum,min=6,max=32"`
	Title       string                 `json:"title" validate:"required,max=300"`
	Type        entity.CaseType        `json:"case_type" validate:"required"`
	Petitioner  string                 `json:"petitioner" validate:"required,max=200"`
	Respondent  string                 `json:"respondent" validate:"required,max=200"`
	CourtName   string                 `json:"court_name" validate:"required,max=200"`
	Description string                 `json:"description" validate:"max=5000"`
	PartyType   entity.ParticipantRole `json:"party_type"`
}

// AddParticipantInput links another identity to a case.
type AddParticipantInput struct {
	IdentityID uuid.UUID              `json:"identity_id" validate:"required"`
	Role       entity.ParticipantRole `json:"role" validate:"required"`
}

// ScheduleHearingInput defines a new hearing.
type ScheduleHearingInput struct {
	ScheduledAt time.Time `json:"scheduled_at" validate:"required"`
	Location    string    `json:"location" validate:"max=200"`
	MeetingLink string    `json:"meeting_link" validate:"omitempty,url,max=500"`
}

// PostCommunicationInput defines a message on a case.
type PostCommunicationInput struct {
	RecipientParty string `json:"recipient_party" validate:"max=100"`
	Message        string `json:"message" validate:"required,max=10000"`
	Private        bool   `json:"private"`
}

// CaseUsecase is the role-scoped case access layer.
type CaseUsecase interface {
	// SearchByCaseNumber is an exact, global lookup. found is false when no case
	// matches; that is not an error.
	SearchByCaseNumber(ctx context.Context, requester entity.Requester, caseNumber string) (view *entity.CaseView, found bool, err error)

	// ListRecentCases returns at most limit cases visible to requester, newest first.
	ListRecentCases(ctx context.Context, requester entity.Requester, limit int) ([]*entity.CaseView, error)

	// CaseDetail returns the full view of a case the requester takes part in.
	CaseDetail(ctx context.Context, requester entity.Requester, caseID uuid.UUID) (*entity.CaseView, error)

	CreateCase(ctx context.Context, requester entity.Requester, input *CreateCaseInput) (*entity.CaseView, error)
	AddParticipant(ctx context.Context, requester entity.Requester, caseID uuid.UUID, input *AddParticipantInput) error
	UpdateCaseStatus(ctx context.Context, requester entity.Requester, caseID uuid.UUID, status entity.CaseStatus) error
	AssignJudge(ctx context.Context, requester entity.Requester, caseID, judgeID uuid.UUID) error
	ScheduleHearing(ctx context.Context, requester entity.Requester, caseID uuid.UUID, input *ScheduleHearingInput) (*entity.Hearing, error)
	PostCommunication(ctx context.Context, requester entity.Requester, caseID uuid.UUID, input *PostCommunicationInput) (*entity.Communication, error)

	// JoinHearing returns a hearing the requester may attend.
	JoinHearing(ctx context.Context, requester entity.Requester, hearingID uuid.UUID) (*entity.Hearing, error)
}
