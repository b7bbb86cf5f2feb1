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

type caseRepository struct {
	db *gorm.DB
}

// NewCaseRepository returns a GORM-backed CaseRepository.
func NewCaseRepository(db *gorm.DB) repository.CaseRepository {
	return &caseRepository{db: db}
}

func (repo *caseRepository) Create(ctx context.Context, c *entity.Case) error {
	m := fromCaseDomain(c)
	if err := repo.db.WithContext(ctx).Create(m).Error; err != nil {
		if isUniqueConstraintViolation(err) {
			return repository.ErrCaseNumberExists
		}

		return classifyError(err, "create case")
	}

	c.ID = m.ID
	c.CreatedAt = m.CreatedAt
	c.UpdatedAt = m.UpdatedAt

	return nil
}

func (repo *caseRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Case, error) {
	return repo.findOne(ctx, "id = ?", id)
}

func (repo *caseRepository) FindByCaseNumber(ctx context.Context, caseNumber string) (*entity.Case, error) {
	return repo.findOne(ctx, "cnr_number = ?", caseNumber)
}

func (repo *caseRepository) findOne(ctx context.Context, query string, arg any) (*entity.Case, error) {
	var m model.CaseModel
	if err := repo.db.WithContext(ctx).Where(query, arg).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrCaseNotFound
		}

		return nil, classifyError(err, "find case")
	}

	return toCaseDomain(&m), nil
}

func (repo *caseRepository) ListRecent(ctx context.Context, filter repository.CaseFilter, limit int) ([]*entity.Case, error) {
	query := repo.db.WithContext(ctx).Model(&model.CaseModel{})

	switch {
	case filter.ParticipantID != nil && filter.JudgeID != nil:
		query = query.Where(
			"judge_id = ? OR id IN (?)",
			*filter.JudgeID,
			repo.db.Model(&model.CaseParticipantModel{}).Select("case_id").Where("identity_id = ?", *filter.ParticipantID),
		)
	case filter.ParticipantID != nil:
		query = query.Where(
			"id IN (?)",
			repo.db.Model(&model.CaseParticipantModel{}).Select("case_id").Where("identity_id = ?", *filter.ParticipantID),
		)
	case filter.JudgeID != nil:
		query = query.Where("judge_id = ?", *filter.JudgeID)
	}

	var rows []model.CaseModel
	if err := query.Order("created_at DESC").Order("id DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, classifyError(err, "list recent cases")
	}

	cases := make([]*entity.Case, 0, len(rows))
	for i := range rows {
		cases = append(cases, toCaseDomain(&rows[i]))
	}

	return cases, nil
}

func (repo *caseRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status entity.CaseStatus) error {
	return repo.update(ctx, id, map[string]any{"status": string(status)}, "update case status")
}

func (repo *caseRepository) AssignJudge(ctx context.Context, id uuid.UUID, judgeID uuid.UUID) error {
	return repo.update(ctx, id, map[string]any{"judge_id": judgeID}, "assign judge")
}

func (repo *caseRepository) update(ctx context.Context, id uuid.UUID, values map[string]any, details string) error {
	values["updated_at"] = gorm.Expr("NOW()")

	result := repo.db.WithContext(ctx).Model(&model.CaseModel{}).Where("id = ?", id).Updates(values)
	if result.Error != nil {
		return classifyError(result.Error, details)
	}
	if result.RowsAffected == 0 {
		return repository.ErrCaseNotFound
	}

	return nil
}

func toCaseDomain(m *model.CaseModel) *entity.Case {
	return &entity.Case{
		ID:          m.ID,
		CaseNumber:  m.CNRNumber,
		Title:       m.Title,
		Type:        entity.CaseType(m.CaseType),
		Status:      entity.CaseStatus(m.Status),
		Petitioner:  m.Petitioner,
		Respondent:  m.Respondent,
		JudgeID:     m.JudgeID,
		CourtName:   m.CourtName,
		Description: m.Description,
		CreatedBy:   m.CreatedBy,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

func fromCaseDomain(c *entity.Case) *model.CaseModel {
	id := c.ID
	if id == uuid.Nil {
		id = uuid.New()
	}

	return &model.CaseModel{
		ID:          id,
		CNRNumber:   c.CaseNumber,
		Title:       c.Title,
		CaseType:    string(c.Type),
		Status:      string(c.Status),
		Petitioner:  c.Petitioner,
		Respondent:  c.Respondent,
		JudgeID:     c.JudgeID,
		CourtName:   c.CourtName,
		Description: c.Description,
		CreatedBy:   c.CreatedBy,
		CreatedAt:   c.CreatedAt,
	}
}
