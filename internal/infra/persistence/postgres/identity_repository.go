package postgres

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"lexcourt/internal/domain/entity"
	"lexcourt/internal/domain/repository"
	"lexcourt/internal/errors"
	"lexcourt/internal/infra/persistence/model"
)

type identityRepository struct {
	db *gorm.DB
}

// NewIdentityRepository returns a GORM-backed IdentityRepository.
func NewIdentityRepository(db *gorm.DB) repository.IdentityRepository {
	return &identityRepository{db: db}
}

func (repo *identityRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Identity, error) {
	var m model.IdentityModel
	if err := repo.db.WithContext(ctx).Where("id = ?", id).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrIdentityNotFound
		}

		return nil, classifyError(err, "find identity by id")
	}

	return toIdentityDomain(&m)
}

func (repo *identityRepository) FindByEmail(ctx context.Context, email string) (*entity.Identity, error) {
	var m model.IdentityModel
	err := repo.db.WithContext(ctx).
		Where("LOWER(email) = ?", strings.ToLower(email)).
		First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrIdentityNotFound
		}

		return nil, classifyError(err, "find identity by email")
	}

	return toIdentityDomain(&m)
}

func (repo *identityRepository) Create(ctx context.Context, identity *entity.Identity) error {
	m, err := fromIdentityDomain(identity)
	if err != nil {
		return err
	}

	if err := repo.db.WithContext(ctx).Create(m).Error; err != nil {
		if isUniqueConstraintViolation(err) {
			return repository.ErrIdentityExists
		}

		return classifyError(err, "create identity")
	}

	identity.ID = m.ID
	identity.CreatedAt = m.CreatedAt

	return nil
}

func toIdentityDomain(m *model.IdentityModel) (*entity.Identity, error) {
	identity := &entity.Identity{
		ID:        m.ID,
		Email:     m.Email,
		CreatedAt: m.CreatedAt,
	}

	if len(m.Metadata) > 0 {
		if err := json.Unmarshal(m.Metadata, &identity.Metadata); err != nil {
			return nil, errors.Wrap(err, "decode identity metadata")
		}
	}

	return identity, nil
}

func fromIdentityDomain(identity *entity.Identity) (*model.IdentityModel, error) {
	metadata, err := json.Marshal(identity.Metadata)
	if err != nil {
		return nil, errors.Wrap(err, "encode identity metadata")
	}

	id := identity.ID
	if id == uuid.Nil {
		id = uuid.New()
	}

	return &model.IdentityModel{
		ID:        id,
		Email:     strings.ToLower(identity.Email),
		Metadata:  metadata,
		CreatedAt: identity.CreatedAt,
	}, nil
}

type credentialRepository struct {
	db *gorm.DB
}

// NewCredentialRepository returns a GORM-backed CredentialRepository.
func NewCredentialRepository(db *gorm.DB) repository.CredentialRepository {
	return &credentialRepository{db: db}
}

func (repo *credentialRepository) Create(ctx context.Context, credential *entity.Credential) error {
	if credential.ID == uuid.Nil {
		credential.ID = uuid.New()
	}

	m := &model.CredentialModel{
		ID:           credential.ID,
		IdentityID:   credential.IdentityID,
		PasswordHash: credential.PasswordHash,
	}
	if err := repo.db.WithContext(ctx).Create(m).Error; err != nil {
		return classifyError(err, "create credential")
	}

	credential.CreatedAt = m.CreatedAt
	credential.UpdatedAt = m.UpdatedAt

	return nil
}

func (repo *credentialRepository) FindByIdentityID(ctx context.Context, identityID uuid.UUID) (*entity.Credential, error) {
	var m model.CredentialModel
	if err := repo.db.WithContext(ctx).Where("identity_id = ?", identityID).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrCredentialNotFound
		}

		return nil, classifyError(err, "find credential")
	}

	return &entity.Credential{
		ID:           m.ID,
		IdentityID:   m.IdentityID,
		PasswordHash: m.PasswordHash,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}, nil
}
