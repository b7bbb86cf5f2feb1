package memory

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"lexcourt/internal/domain/entity"
	"lexcourt/internal/domain/repository"
)

type caseRepository struct{ db *DB }

func NewCaseRepository(db *DB) repository.CaseRepository { return &caseRepository{db: db} }

func (r *caseRepository) Create(_ context.Context, c *entity.Case) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	for _, existing := range r.db.cases {
		if existing.CaseNumber == c.CaseNumber {
			return repository.ErrCaseNumberExists
		}
	}

	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	now := r.db.now()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now
	r.db.cases[c.ID] = cloneCase(c)

	return nil
}

func (r *caseRepository) FindByID(_ context.Context, id uuid.UUID) (*entity.Case, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	c, ok := r.db.cases[id]
	if !ok {
		return nil, repository.ErrCaseNotFound
	}

	return cloneCase(c), nil
}

func (r *caseRepository) FindByCaseNumber(_ context.Context, caseNumber string) (*entity.Case, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	for _, c := range r.db.cases {
		if c.CaseNumber == caseNumber {
			return cloneCase(c), nil
		}
	}

	return nil, repository.ErrCaseNotFound
}

func (r *caseRepository) ListRecent(_ context.Context, filter repository.CaseFilter, limit int) ([]*entity.Case, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	var out []*entity.Case
	for _, c := range r.db.cases {
		if r.matches(c, filter) {
			out = append(out, cloneCase(c))
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID.String() > out[j].ID.String()
		}

		return out[i].CreatedAt.After(out[j].CreatedAt)
	})

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}

	return out, nil
}

func (r *caseRepository) matches(c *entity.Case, filter repository.CaseFilter) bool {
	if filter.ParticipantID == nil && filter.JudgeID == nil {
		return true
	}
	if filter.JudgeID != nil && c.IsAssignedJudge(*filter.JudgeID) {
		return true
	}
	if filter.ParticipantID != nil {
		for _, p := range r.db.participants {
			if p.CaseID == c.ID && p.IdentityID == *filter.ParticipantID {
				return true
			}
		}
	}

	return false
}

func (r *caseRepository) UpdateStatus(_ context.Context, id uuid.UUID, status entity.CaseStatus) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	c, ok := r.db.cases[id]
	if !ok {
		return repository.ErrCaseNotFound
	}
	c.Status = status
	c.UpdatedAt = r.db.now()

	return nil
}

func (r *caseRepository) AssignJudge(_ context.Context, id uuid.UUID, judgeID uuid.UUID) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	c, ok := r.db.cases[id]
	if !ok {
		return repository.ErrCaseNotFound
	}
	c.JudgeID = &judgeID
	c.UpdatedAt = r.db.now()

	return nil
}

func cloneCase(c *entity.Case) *entity.Case {
	cp := *c
	if c.JudgeID != nil {
		judge := *c.JudgeID
		cp.JudgeID = &judge
	}

	return &cp
}

type participantRepository struct{ db *DB }

func NewParticipantRepository(db *DB) repository.ParticipantRepository {
	return &participantRepository{db: db}
}

func (r *participantRepository) Add(_ context.Context, participant *entity.CaseParticipant) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	for _, p := range r.db.participants {
		if p.CaseID == participant.CaseID && p.IdentityID == participant.IdentityID {
			return repository.ErrParticipantExists
		}
	}

	if participant.ID == uuid.Nil {
		participant.ID = uuid.New()
	}
	if participant.JoinedAt.IsZero() {
		participant.JoinedAt = r.db.now()
	}
	cp := *participant
	r.db.participants = append(r.db.participants, &cp)

	return nil
}

func (r *participantRepository) ListByCase(_ context.Context, caseID uuid.UUID) (entity.Roster, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	var roster entity.Roster
	for _, p := range r.db.participants {
		if p.CaseID == caseID {
			cp := *p
			cp.FullName = r.db.fullName(p.IdentityID)
			roster = append(roster, &cp)
		}
	}

	return roster, nil
}

func (r *participantRepository) RemoveRole(_ context.Context, caseID uuid.UUID, role entity.ParticipantRole) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	kept := r.db.participants[:0]
	for _, p := range r.db.participants {
		if p.CaseID == caseID && p.Role == role {
			continue
		}
		kept = append(kept, p)
	}
	r.db.participants = kept

	return nil
}

type hearingRepository struct{ db *DB }

func NewHearingRepository(db *DB) repository.HearingRepository { return &hearingRepository{db: db} }

func (r *hearingRepository) Create(_ context.Context, hearing *entity.Hearing) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.cases[hearing.CaseID]; !ok {
		return repository.ErrCaseNotFound
	}
	if hearing.ID == uuid.Nil {
		hearing.ID = uuid.New()
	}
	if hearing.CreatedAt.IsZero() {
		hearing.CreatedAt = r.db.now()
	}
	cp := *hearing
	r.db.hearings = append(r.db.hearings, &cp)

	return nil
}

func (r *hearingRepository) FindByID(_ context.Context, id uuid.UUID) (*entity.Hearing, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	for _, h := range r.db.hearings {
		if h.ID == id {
			cp := *h

			return &cp, nil
		}
	}

	return nil, repository.ErrHearingNotFound
}

func (r *hearingRepository) ListByCase(_ context.Context, caseID uuid.UUID) ([]*entity.Hearing, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	var out []*entity.Hearing
	for _, h := range r.db.hearings {
		if h.CaseID == caseID {
			cp := *h
			out = append(out, &cp)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ScheduledAt.Before(out[j].ScheduledAt) })

	return out, nil
}

type communicationRepository struct{ db *DB }

func NewCommunicationRepository(db *DB) repository.CommunicationRepository {
	return &communicationRepository{db: db}
}

func (r *communicationRepository) Create(_ context.Context, communication *entity.Communication) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if communication.ID == uuid.Nil {
		communication.ID = uuid.New()
	}
	if communication.SentAt.IsZero() {
		communication.SentAt = r.db.now()
	}
	cp := *communication
	r.db.communications = append(r.db.communications, &cp)

	return nil
}

func (r *communicationRepository) ListByCase(_ context.Context, caseID uuid.UUID) ([]*entity.Communication, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	var out []*entity.Communication
	for _, c := range r.db.communications {
		if c.CaseID == caseID {
			cp := *c
			out = append(out, &cp)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].SentAt.Before(out[j].SentAt) })

	return out, nil
}
