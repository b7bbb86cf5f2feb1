package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"lexcourt/internal/domain/entity"
	"lexcourt/internal/domain/repository"
	"lexcourt/internal/errors"
	"lexcourt/internal/infra/persistence/model"
)

type sessionTokenRepository struct {
	db *gorm.DB
}

// NewSessionTokenRepository returns a GORM-backed SessionTokenRepository.
func NewSessionTokenRepository(db *gorm.DB) repository.SessionTokenRepository {
	return &sessionTokenRepository{db: db}
}

func (repo *sessionTokenRepository) Create(ctx context.Context, token *entity.SessionToken) error {
	m := fromSessionTokenDomain(token)
	if err := repo.db.WithContext(ctx).Create(m).Error; err != nil {
		return classifyError(err, "create session token")
	}

	token.CreatedAt = m.CreatedAt

	return nil
}

func (repo *sessionTokenRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.SessionToken, error) {
	var m model.SessionTokenModel
	if err := repo.db.WithContext(ctx).Where("id = ?", id).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrSessionTokenNotFound
		}

		return nil, classifyError(err, "find session token")
	}

	return toSessionTokenDomain(&m), nil
}

func (repo *sessionTokenRepository) DeleteByID(ctx context.Context, id uuid.UUID) error {
	result := repo.db.WithContext(ctx).Where("id = ?", id).Delete(&model.SessionTokenModel{})
	if result.Error != nil {
		return classifyError(result.Error, "delete session token")
	}
	if result.RowsAffected == 0 {
		return repository.ErrSessionTokenNotFound
	}

	return nil
}

func (repo *sessionTokenRepository) DeleteExpired(ctx context.Context, cutoff time.Time) ([]*entity.SessionToken, error) {
	var removed []model.SessionTokenModel
	err := repo.db.WithContext(ctx).
		Clauses(clause.Returning{}).
		Where("expires_at <= ?", cutoff).
		Delete(&removed).Error
	if err != nil {
		return nil, classifyError(err, "delete expired session tokens")
	}

	tokens := make([]*entity.SessionToken, 0, len(removed))
	for i := range removed {
		tokens = append(tokens, toSessionTokenDomain(&removed[i]))
	}

	return tokens, nil
}

func toSessionTokenDomain(m *model.SessionTokenModel) *entity.SessionToken {
	return &entity.SessionToken{
		ID:         m.ID,
		IdentityID: m.IdentityID,
		TokenHash:  m.TokenHash,
		ExpiresAt:  m.ExpiresAt,
		CreatedAt:  m.CreatedAt,
	}
}

func fromSessionTokenDomain(token *entity.SessionToken) *model.SessionTokenModel {
	return &model.SessionTokenModel{
		ID:         token.ID,
		IdentityID: token.IdentityID,
		TokenHash:  token.TokenHash,
		ExpiresAt:  token.ExpiresAt,
		CreatedAt:  token.CreatedAt,
	}
}
