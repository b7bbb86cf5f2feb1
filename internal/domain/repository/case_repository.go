package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"lexcourt/internal/domain/entity"
)

// Domain-specific errors for case persistence.
var (
	ErrCaseNotFound       = errors.New("case not found")
	ErrCaseNumberExists   = errors.New("case number already exists")
	ErrParticipantExists  = errors.New("participant already exists")
	ErrHearingNotFound    = errors.New("hearing not found")
	ErrParticipantMissing = errors.New("participant not found")
)

// CaseFilter narrows ListRecent. Nil fields are ignored; when both are set a
// case matches if either applies.
type CaseFilter struct {
	ParticipantID *uuid.UUID // Cases the identity participates in.
	JudgeID       *uuid.UUID // Cases assigned to the judge.
}

// CaseRepository persists cases.
type CaseRepository interface {
	Create(ctx context.Context, c *entity.Case) error

	FindByID(ctx context.Context, id uuid.UUID) (*entity.Case, error)

	// FindByCaseNumber is an exact match on the CNR.
	FindByCaseNumber(ctx context.Context, caseNumber string) (*entity.Case, error)

	// ListRecent returns at most limit cases, newest first.
	ListRecent(ctx context.Context, filter CaseFilter, limit int) ([]*entity.Case, error)

	UpdateStatus(ctx context.Context, id uuid.UUID, status entity.CaseStatus) error

	AssignJudge(ctx context.Context, id uuid.UUID, judgeID uuid.UUID) error
}

// ParticipantRepository persists case participants.
type ParticipantRepository interface {
	// Add links an identity to a case. Returns ErrParticipantExists on duplicates.
	Add(ctx context.Context, participant *entity.CaseParticipant) error

	// ListByCase returns the roster with profile names joined in, oldest first.
	ListByCase(ctx context.Context, caseID uuid.UUID) (entity.Roster, error)

	// RemoveRole drops every participant of the case holding role.
	RemoveRole(ctx context.Context, caseID uuid.UUID, role entity.ParticipantRole) error
}

// HearingRepository persists hearings.
type HearingRepository interface {
	Create(ctx context.Context, hearing *entity.Hearing) error

	FindByID(ctx context.Context, id uuid.UUID) (*entity.Hearing, error)

	// ListByCase returns hearings ordered by scheduled time ascending.
	ListByCase(ctx context.Context, caseID uuid.UUID) ([]*entity.Hearing, error)
}

// CommunicationRepository persists case communications.
type CommunicationRepository interface {
	Create(ctx context.Context, communication *entity.Communication) error

	// ListByCase returns every communication of the case, oldest first,
	// private ones included. Visibility is decided by the caller.
	ListByCase(ctx context.Context, caseID uuid.UUID) ([]*entity.Communication, error)
}
