package postgres

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"lexcourt/internal/domain/entity"
	"lexcourt/internal/domain/repository"
	"lexcourt/internal/errors"
	"lexcourt/internal/infra/persistence/model"
)

type hearingRepository struct {
	db *gorm.DB
}

// NewHearingRepository returns a GORM-backed HearingRepository.
func NewHearingRepository(db *gorm.DB) repository.HearingRepository {
	return &hearingRepository{db: db}
}

func (repo *hearingRepository) Create(ctx context.Context, hearing *entity.Hearing) error {
	if hearing.ID == uuid.Nil {
		hearing.ID = uuid.New()
	}

	m := &model.HearingModel{
		ID:          hearing.ID,
		CaseID:      hearing.CaseID,
		HearingDate: hearing.ScheduledAt,
		Status:      string(hearing.Status),
		Location:    hearing.Location,
		MeetingLink: hearing.MeetingLink,
	}
	if err := repo.db.WithContext(ctx).Create(m).Error; err != nil {
		return classifyError(err, "create hearing")
	}

	hearing.CreatedAt = m.CreatedAt

	return nil
}

func (repo *hearingRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Hearing, error) {
	var m model.HearingModel
	if err := repo.db.WithContext(ctx).Where("id = ?", id).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrHearingNotFound
		}

		return nil, classifyError(err, "find hearing")
	}

	return toHearingDomain(&m), nil
}

func (repo *hearingRepository) ListByCase(ctx context.Context, caseID uuid.UUID) ([]*entity.Hearing, error) {
	var rows []model.HearingModel
	err := repo.db.WithContext(ctx).
		Where("case_id = ?", caseID).
		Order("hearing_date ASC").
		Find(&rows).Error
	if err != nil {
		return nil, classifyError(err, "list hearings")
	}

	hearings := make([]*entity.Hearing, 0, len(rows))
	for i := range rows {
		hearings = append(hearings, toHearingDomain(&rows[i]))
	}

	return hearings, nil
}

func toHearingDomain(m *model.HearingModel) *entity.Hearing {
	return &entity.Hearing{
		ID:          m.ID,
		CaseID:      m.CaseID,
		ScheduledAt: m.HearingDate,
		Status:      entity.HearingStatus(m.Status),
		Location:    m.Location,
		MeetingLink: m.MeetingLink,
		CreatedAt:   m.CreatedAt,
	}
}
