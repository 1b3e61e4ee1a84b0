package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/gema-classroom/internal/models"
)

// AssignmentFilter describes pagination & search options.
type AssignmentFilter struct {
	Search    string
	Sort      string
	Status    string
	CohortIDs []uint
	Page      int
	PageSize  int
}

// AssignmentRepository defines persistence operations for assignments.
type AssignmentRepository interface {
	ListWithFilter(ctx context.Context, filter AssignmentFilter) ([]models.Assignment, int64, error)
	GetByID(ctx context.Context, id uint) (models.Assignment, error)
	Create(ctx context.Context, assignment *models.Assignment) error
	Update(ctx context.Context, assignment *models.Assignment) error
	ReplaceCohorts(ctx context.Context, assignment *models.Assignment, cohortIDs []uint) error
	Delete(ctx context.Context, id uint) error
}

type assignmentRepository struct {
	db *gorm.DB
}

// NewAssignmentRepository instantiates a GORM-backed repository.
func NewAssignmentRepository(db *gorm.DB) AssignmentRepository {
	return &assignmentRepository{db: db}
}

func (r *assignmentRepository) ListWithFilter(ctx context.Context, filter AssignmentFilter) ([]models.Assignment, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Assignment{})

	if filter.Search != "" {
		pattern := likePattern(filter.Search)
		query = query.Where("LOWER(title) LIKE ? OR LOWER(description) LIKE ?", pattern, pattern)
	}

	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	if filter.CohortIDs != nil {
		// Assignments without cohorts are visible to every cohort.
		linked := r.db.Table("assignment_cohorts").Select("assignment_id")
		matching := r.db.Table("assignment_cohorts").Select("assignment_id").Where("cohort_id IN ?", append([]uint{0}, filter.CohortIDs...))
		query = query.Where("id NOT IN (?) OR id IN (?)", linked, matching)
	}

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = paginate(query.Order(normalizeAssignmentSort(filter.Sort)), filter.Page, filter.PageSize)

	var assignments []models.Assignment
	if err := query.Preload("Cohorts").Find(&assignments).Error; err != nil {
		return nil, 0, err
	}

	return assignments, total, nil
}

func (r *assignmentRepository) GetByID(ctx context.Context, id uint) (models.Assignment, error) {
	var assignment models.Assignment
	if err := r.db.WithContext(ctx).Preload("Cohorts").First(&assignment, id).Error; err != nil {
		return models.Assignment{}, err
	}

	return assignment, nil
}

func (r *assignmentRepository) Create(ctx context.Context, assignment *models.Assignment) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(assignment).Error
}

func (r *assignmentRepository) Update(ctx context.Context, assignment *models.Assignment) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(assignment).Error
}

func (r *assignmentRepository) ReplaceCohorts(ctx context.Context, assignment *models.Assignment, cohortIDs []uint) error {
	cohorts, err := findCohorts(r.db.WithContext(ctx), cohortIDs)
	if err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Model(assignment).Association("Cohorts").Replace(cohorts); err != nil {
		return err
	}
	assignment.Cohorts = cohorts
	return nil
}

func (r *assignmentRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM assignment_cohorts WHERE assignment_id = ?", id).Error; err != nil {
			return err
		}
		result := tx.Delete(&models.Assignment{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

// findCohorts loads cohorts by id and fails with gorm.ErrRecordNotFound when
// any id is unknown.
func findCohorts(db *gorm.DB, ids []uint) ([]models.Cohort, error) {
	cohorts := make([]models.Cohort, 0, len(ids))
	if len(ids) == 0 {
		return cohorts, nil
	}
	if err := db.Where("id IN ?", ids).Find(&cohorts).Error; err != nil {
		return nil, err
	}
	if len(cohorts) != len(uniqueIDs(ids)) {
		return nil, gorm.ErrRecordNotFound
	}
	return cohorts, nil
}

func uniqueIDs(ids []uint) map[uint]struct{} {
	set := make(map[uint]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

func normalizeAssignmentSort(sort string) string {
	switch strings.ToLower(strings.TrimSpace(sort)) {
	case "-due_date", "due_date:desc", "due_date.desc":
		return "due_date DESC"
	case "updated_at", "updated_at:asc", "updated_at.asc":
		return "updated_at ASC"
	case "-updated_at", "updated_at:desc", "updated_at.desc":
		return "updated_at DESC"
	case "title", "title:asc", "title.asc":
		return "title ASC"
	case "-title", "title:desc", "title.desc":
		return "title DESC"
	default:
		return "due_date ASC"
	}
}
