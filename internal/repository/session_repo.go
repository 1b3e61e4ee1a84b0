package repository

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/gema-classroom/internal/models"
)

// SessionFilter narrows session listings.
type SessionFilter struct {
	Search    string
	Sort      string
	CohortID  *uint
	CohortIDs []uint
	From      *time.Time
	To        *time.Time
	Page      int
	PageSize  int
}

// SessionRepository persists class sessions.
type SessionRepository interface {
	List(ctx context.Context, filter SessionFilter) ([]models.Session, int64, error)
	GetByID(ctx context.Context, id uint) (models.Session, error)
	Create(ctx context.Context, session *models.Session) error
	Update(ctx context.Context, session *models.Session) error
	Delete(ctx context.Context, id uint) error
}

type sessionRepository struct {
	db *gorm.DB
}

// NewSessionRepository constructs the session repository.
func NewSessionRepository(db *gorm.DB) SessionRepository {
	return &sessionRepository{db: db}
}

func (r *sessionRepository) List(ctx context.Context, filter SessionFilter) ([]models.Session, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Session{})

	if filter.Search != "" {
		pattern := likePattern(filter.Search)
		query = query.Where("LOWER(title) LIKE ? OR LOWER(location) LIKE ?", pattern, pattern)
	}
	if filter.CohortID != nil {
		query = query.Where("cohort_id = ?", *filter.CohortID)
	}
	if filter.CohortIDs != nil {
		query = query.Where("cohort_id IN ?", append([]uint{0}, filter.CohortIDs...))
	}
	if filter.From != nil {
		query = query.Where("starts_at >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("starts_at < ?", *filter.To)
	}

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var sessions []models.Session
	query = paginate(query.Order(normalizeSessionSort(filter.Sort)), filter.Page, filter.PageSize)
	if err := query.Find(&sessions).Error; err != nil {
		return nil, 0, err
	}

	return sessions, total, nil
}

func (r *sessionRepository) GetByID(ctx context.Context, id uint) (models.Session, error) {
	var session models.Session
	if err := r.db.WithContext(ctx).First(&session, id).Error; err != nil {
		return models.Session{}, err
	}
	return session, nil
}

func (r *sessionRepository) Create(ctx context.Context, session *models.Session) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(session).Error
}

func (r *sessionRepository) Update(ctx context.Context, session *models.Session) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(session).Error
}

func (r *sessionRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&models.Session{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func normalizeSessionSort(sort string) string {
	switch strings.ToLower(strings.TrimSpace(sort)) {
	case "-starts_at", "starts_at:desc":
		return "starts_at DESC"
	case "title", "title:asc":
		return "title ASC"
	case "-title", "title:desc":
		return "title DESC"
	default:
		return "starts_at ASC"
	}
}
