package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/gema-classroom/internal/models"
)

// UserFilter narrows user listings.
type UserFilter struct {
	Search   string
	Sort     string
	Role     string
	Status   string
	CohortID *uint
	Page     int
	PageSize int
}

// UserRepository persists user accounts.
type UserRepository interface {
	List(ctx context.Context, filter UserFilter) ([]models.User, int64, error)
	GetByID(ctx context.Context, id uint) (models.User, error)
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
	ReplaceCohorts(ctx context.Context, user *models.User, cohortIDs []uint) error
	CohortIDs(ctx context.Context, userID uint) ([]uint, error)
	Delete(ctx context.Context, id uint) error
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository constructs the user repository.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) List(ctx context.Context, filter UserFilter) ([]models.User, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.User{})

	if filter.Search != "" {
		pattern := likePattern(filter.Search)
		query = query.Where("LOWER(name) LIKE ? OR LOWER(email) LIKE ?", pattern, pattern)
	}
	if filter.Role != "" {
		query = query.Where("role = ?", filter.Role)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.CohortID != nil {
		query = query.Where("id IN (?)", r.db.Table("cohort_members").Select("user_id").Where("cohort_id = ?", *filter.CohortID))
	}

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var users []models.User
	query = paginate(query.Order(normalizeUserSort(filter.Sort)), filter.Page, filter.PageSize)
	if err := query.Preload("Cohorts").Find(&users).Error; err != nil {
		return nil, 0, err
	}

	return users, total, nil
}

func (r *userRepository) GetByID(ctx context.Context, id uint) (models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Preload("Cohorts").First(&user, id).Error; err != nil {
		return models.User{}, err
	}
	return user, nil
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	return translateError(r.db.WithContext(ctx).Omit(clause.Associations).Create(user).Error)
}

func (r *userRepository) Update(ctx context.Context, user *models.User) error {
	return translateError(r.db.WithContext(ctx).Omit(clause.Associations).Save(user).Error)
}

func (r *userRepository) ReplaceCohorts(ctx context.Context, user *models.User, cohortIDs []uint) error {
	cohorts, err := findCohorts(r.db.WithContext(ctx), cohortIDs)
	if err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Model(user).Association("Cohorts").Replace(cohorts); err != nil {
		return err
	}
	user.Cohorts = cohorts
	return nil
}

func (r *userRepository) CohortIDs(ctx context.Context, userID uint) ([]uint, error) {
	ids := make([]uint, 0)
	if err := r.db.WithContext(ctx).Table("cohort_members").Where("user_id = ?", userID).Pluck("cohort_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *userRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&models.User{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func normalizeUserSort(sort string) string {
	switch strings.ToLower(strings.TrimSpace(sort)) {
	case "-name", "name:desc":
		return "name DESC"
	case "email", "email:asc":
		return "email ASC"
	case "created_at", "created_at:asc":
		return "created_at ASC"
	case "-created_at", "created_at:desc":
		return "created_at DESC"
	default:
		return "name ASC"
	}
}
