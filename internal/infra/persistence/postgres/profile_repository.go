package postgres

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"lexcourt/internal/domain/entity"
	"lexcourt/internal/domain/repository"
	"lexcourt/internal/infra/persistence/model"
)

type profileRepository struct {
	db *gorm.DB
}

// NewProfileRepository returns a GORM-backed ProfileRepository.
func NewProfileRepository(db *gorm.DB) repository.ProfileRepository {
	return &profileRepository{db: db}
}

// ListByIdentityID fetches up to two rows; a second row is enough to prove ambiguity.
func (repo *profileRepository) ListByIdentityID(ctx context.Context, identityID uuid.UUID) ([]*entity.Profile, error) {
	var rows []model.ProfileModel
	err := repo.db.WithContext(ctx).
		Where("identity_id = ?", identityID).
		Order("created_at ASC").
		Limit(2).
		Find(&rows).Error
	if err != nil {
		return nil, classifyError(err, "list profiles by identity")
	}

	profiles := make([]*entity.Profile, 0, len(rows))
	for i := range rows {
		profiles = append(profiles, toProfileDomain(&rows[i]))
	}

	return profiles, nil
}

// Create inserts the profile unless the identity already has one.
func (repo *profileRepository) Create(ctx context.Context, profile *entity.Profile) error {
	var count int64
	if err := repo.db.WithContext(ctx).
		Model(&model.ProfileModel{}).
		Where("identity_id = ?", profile.IdentityID).
		Count(&count).Error; err != nil {
		return classifyError(err, "count profiles")
	}
	if count > 0 {
		return repository.ErrProfileExists
	}

	m := fromProfileDomain(profile)
	if err := repo.db.WithContext(ctx).Create(m).Error; err != nil {
		if isUniqueConstraintViolation(err) {
			return repository.ErrProfileExists
		}

		return classifyError(err, "create profile")
	}

	profile.ID = m.ID
	profile.CreatedAt = m.CreatedAt
	profile.UpdatedAt = m.UpdatedAt

	return nil
}

// Update writes the owner-editable columns only.
func (repo *profileRepository) Update(ctx context.Context, profile *entity.Profile) error {
	result := repo.db.WithContext(ctx).
		Model(&model.ProfileModel{}).
		Where("id = ?", profile.ID).
		Updates(map[string]any{
			"full_name":     profile.FullName,
			"phone":         profile.Phone,
			"contact_email": profile.ContactEmail,
			"updated_at":    gorm.Expr("NOW()"),
		})
	if result.Error != nil {
		return classifyError(result.Error, "update profile")
	}
	if result.RowsAffected == 0 {
		return repository.ErrProfileNotFound
	}

	return nil
}

func toProfileDomain(m *model.ProfileModel) *entity.Profile {
	profile := &entity.Profile{
		ID:           m.ID,
		IdentityID:   m.IdentityID,
		Role:         entity.Role(m.UserType),
		FullName:     m.FullName,
		Phone:        m.Phone,
		ContactEmail: m.ContactEmail,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
	if m.EnrollmentNumber != nil {
		profile.EnrollmentNumber = *m.EnrollmentNumber
	}
	if m.CourtID != nil {
		profile.CourtID = *m.CourtID
	}

	return profile
}

func fromProfileDomain(profile *entity.Profile) *model.ProfileModel {
	id := profile.ID
	if id == uuid.Nil {
		id = uuid.New()
	}

	m := &model.ProfileModel{
		ID:           id,
		IdentityID:   profile.IdentityID,
		UserType:     profile.Role.String(),
		FullName:     profile.FullName,
		Phone:        profile.Phone,
		ContactEmail: profile.ContactEmail,
	}
	if profile.EnrollmentNumber != "" {
		m.EnrollmentNumber = &profile.EnrollmentNumber
	}
	if profile.CourtID != "" {
		m.CourtID = &profile.CourtID
	}

	return m
}
