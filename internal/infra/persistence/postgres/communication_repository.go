package postgres

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"lexcourt/internal/domain/entity"
	"lexcourt/internal/domain/repository"
	"lexcourt/internal/infra/persistence/model"
)

type communicationRepository struct {
	db *gorm.DB
}

// NewCommunicationRepository returns a GORM-backed CommunicationRepository.
func NewCommunicationRepository(db *gorm.DB) repository.CommunicationRepository {
	return &communicationRepository{db: db}
}

func (repo *communicationRepository) Create(ctx context.Context, communication *entity.Communication) error {
	if communication.ID == uuid.Nil {
		communication.ID = uuid.New()
	}

	m := &model.CommunicationModel{
		ID:             communication.ID,
		CaseID:         communication.CaseID,
		SenderID:       communication.SenderID,
		RecipientParty: communication.RecipientParty,
		Message:        communication.Message,
		IsPrivate:      communication.Private,
		SentAt:         communication.SentAt,
	}
	if err := repo.db.WithContext(ctx).Create(m).Error; err != nil {
		return classifyError(err, "create communication")
	}

	return nil
}

func (repo *communicationRepository) ListByCase(ctx context.Context, caseID uuid.UUID) ([]*entity.Communication, error) {
	var rows []model.CommunicationModel
	err := repo.db.WithContext(ctx).
		Where("case_id = ?", caseID).
		Order("sent_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, classifyError(err, "list communications")
	}

	communications := make([]*entity.Communication, 0, len(rows))
	for i := range rows {
		communications = append(communications, &entity.Communication{
			ID:             rows[i].ID,
			CaseID:         rows[i].CaseID,
			SenderID:       rows[i].SenderID,
			RecipientParty: rows[i].RecipientParty,
			Message:        rows[i].Message,
			Private:        rows[i].IsPrivate,
			SentAt:         rows[i].SentAt,
		})
	}

	return communications, nil
}
