package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/gema-classroom/internal/models"
)

// CohortFilter narrows cohort listings.
type CohortFilter struct {
	Search   string
	Sort     string
	Page     int
	PageSize int
}

// CohortRepository persists cohorts and their membership.
type CohortRepository interface {
	List(ctx context.Context, filter CohortFilter) ([]models.Cohort, int64, error)
	GetByID(ctx context.Context, id uint) (models.Cohort, error)
	Create(ctx context.Context, cohort *models.Cohort) error
	Update(ctx context.Context, cohort *models.Cohort) error
	ReplaceMembers(ctx context.Context, cohort *models.Cohort, userIDs []uint) error
	Delete(ctx context.Context, id uint) error
}

type cohortRepository struct {
	db *gorm.DB
}

// NewCohortRepository constructs the cohort repository.
func NewCohortRepository(db *gorm.DB) CohortRepository {
	return &cohortRepository{db: db}
}

func (r *cohortRepository) List(ctx context.Context, filter CohortFilter) ([]models.Cohort, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Cohort{})

	if filter.Search != "" {
		pattern := likePattern(filter.Search)
		query = query.Where("LOWER(name) LIKE ? OR LOWER(description) LIKE ?", pattern, pattern)
	}

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var cohorts []models.Cohort
	query = paginate(query.Order(normalizeCohortSort(filter.Sort)), filter.Page, filter.PageSize)
	if err := query.Preload("Members").Find(&cohorts).Error; err != nil {
		return nil, 0, err
	}

	return cohorts, total, nil
}

func (r *cohortRepository) GetByID(ctx context.Context, id uint) (models.Cohort, error) {
	var cohort models.Cohort
	if err := r.db.WithContext(ctx).Preload("Members").First(&cohort, id).Error; err != nil {
		return models.Cohort{}, err
	}
	return cohort, nil
}

func (r *cohortRepository) Create(ctx context.Context, cohort *models.Cohort) error {
	return translateError(r.db.WithContext(ctx).Omit(clause.Associations).Create(cohort).Error)
}

func (r *cohortRepository) Update(ctx context.Context, cohort *models.Cohort) error {
	return translateError(r.db.WithContext(ctx).Omit(clause.Associations).Save(cohort).Error)
}

func (r *cohortRepository) ReplaceMembers(ctx context.Context, cohort *models.Cohort, userIDs []uint) error {
	members := make([]models.User, 0, len(userIDs))
	if len(userIDs) > 0 {
		if err := r.db.WithContext(ctx).Where("id IN ?", userIDs).Find(&members).Error; err != nil {
			return err
		}
		if len(members) != len(uniqueIDs(userIDs)) {
			return gorm.ErrRecordNotFound
		}
	}
	if err := r.db.WithContext(ctx).Model(cohort).Association("Members").Replace(members); err != nil {
		return err
	}
	cohort.Members = members
	return nil
}

func (r *cohortRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM cohort_members WHERE cohort_id = ?", id).Error; err != nil {
			return err
		}
		if err := tx.Exec("DELETE FROM assignment_cohorts WHERE cohort_id = ?", id).Error; err != nil {
			return err
		}
		result := tx.Delete(&models.Cohort{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

func normalizeCohortSort(sort string) string {
	switch strings.ToLower(strings.TrimSpace(sort)) {
	case "-name", "name:desc":
		return "name DESC"
	case "start_date", "start_date:asc":
		return "start_date ASC"
	case "-start_date", "start_date:desc":
		return "start_date DESC"
	default:
		return "name ASC"
	}
}
