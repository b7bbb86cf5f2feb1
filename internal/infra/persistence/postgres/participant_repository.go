package postgres

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"lexcourt/internal/domain/entity"
	"lexcourt/internal/domain/repository"
	"lexcourt/internal/infra/persistence/model"
)

type participantRepository struct {
	db *gorm.DB
}

// NewParticipantRepository returns a GORM-backed ParticipantRepository.
func NewParticipantRepository(db *gorm.DB) repository.ParticipantRepository {
	return &participantRepository{db: db}
}

func (repo *participantRepository) Add(ctx context.Context, participant *entity.CaseParticipant) error {
	if participant.ID == uuid.Nil {
		participant.ID = uuid.New()
	}

	m := &model.CaseParticipantModel{
		ID:         participant.ID,
		CaseID:     participant.CaseID,
		IdentityID: participant.IdentityID,
		PartyType:  string(participant.Role),
	}
	if err := repo.db.WithContext(ctx).Create(m).Error; err != nil {
		if isUniqueConstraintViolation(err) {
			return repository.ErrParticipantExists
		}

		return classifyError(err, "add case participant")
	}

	participant.JoinedAt = m.CreatedAt

	return nil
}

func (repo *participantRepository) ListByCase(ctx context.Context, caseID uuid.UUID) (entity.Roster, error) {
	var rows []model.ParticipantRow
	err := repo.db.WithContext(ctx).
		Table("case_participants").
		Select("case_participants.*, profiles.full_name").
		Joins("LEFT JOIN profiles ON profiles.identity_id = case_participants.identity_id").
		Where("case_participants.case_id = ?", caseID).
		Order("case_participants.created_at ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, classifyError(err, "list case participants")
	}

	roster := make(entity.Roster, 0, len(rows))
	for i := range rows {
		p := &entity.CaseParticipant{
			ID:         rows[i].ID,
			CaseID:     rows[i].CaseID,
			IdentityID: rows[i].IdentityID,
			Role:       entity.ParticipantRole(rows[i].PartyType),
			JoinedAt:   rows[i].CreatedAt,
		}
		if rows[i].FullName != nil {
			p.FullName = *rows[i].FullName
		}
		roster = append(roster, p)
	}

	return roster, nil
}

func (repo *participantRepository) RemoveRole(ctx context.Context, caseID uuid.UUID, role entity.ParticipantRole) error {
	err := repo.db.WithContext(ctx).
		Where("case_id = ? AND party_type = ?", caseID, string(role)).
		Delete(&model.CaseParticipantModel{}).Error

	return classifyError(err, "remove case participants")
}
