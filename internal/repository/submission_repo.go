package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/gema-classroom/internal/models"
	"github.com/noah-isme/gema-classroom/internal/submission"
)

// SubmissionFilter allows narrowing submission queries.
type SubmissionFilter struct {
	AssignmentID *uint
	StudentID    *uint
	Status       *submission.Status
}

// SubmissionRepository defines data operations for submissions.
type SubmissionRepository interface {
	List(ctx context.Context, filter SubmissionFilter) ([]models.Submission, error)
	GetByID(ctx context.Context, id uint) (models.Submission, error)
	GetByAssignmentAndStudent(ctx context.Context, assignmentID, studentID uint) (models.Submission, error)
	Create(ctx context.Context, submission *models.Submission) error
	UpdateWithVersion(ctx context.Context, submission *models.Submission, expected uint) error
	CreateHistory(ctx context.Context, entry *models.SubmissionGradeHistory) error
	DeleteStaleDrafts(ctx context.Context, before time.Time) ([]models.Submission, error)
}

type submissionRepository struct {
	db *gorm.DB
}

// NewSubmissionRepository instantiates the repository.
func NewSubmissionRepository(db *gorm.DB) SubmissionRepository {
	return &submissionRepository{db: db}
}

func (r *submissionRepository) baseQuery(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Model(&models.Submission{}).
		Preload("Assignment").
		Preload("Student").
		Preload("History", func(db *gorm.DB) *gorm.DB {
			return db.Order("graded_at ASC")
		})
}

func (r *submissionRepository) List(ctx context.Context, filter SubmissionFilter) ([]models.Submission, error) {
	query := r.baseQuery(ctx)

	if filter.AssignmentID != nil {
		query = query.Where("assignment_id = ?", *filter.AssignmentID)
	}

	if filter.StudentID != nil {
		query = query.Where("student_id = ?", *filter.StudentID)
	}

	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}

	var submissions []models.Submission
	if err := query.Order("updated_at DESC").Find(&submissions).Error; err != nil {
		return nil, err
	}

	return submissions, nil
}

func (r *submissionRepository) GetByID(ctx context.Context, id uint) (models.Submission, error) {
	var submission models.Submission
	if err := r.baseQuery(ctx).First(&submission, id).Error; err != nil {
		return models.Submission{}, err
	}

	return submission, nil
}

func (r *submissionRepository) GetByAssignmentAndStudent(ctx context.Context, assignmentID, studentID uint) (models.Submission, error) {
	var submission models.Submission
	if err := r.baseQuery(ctx).
		Where("assignment_id = ?", assignmentID).
		Where("student_id = ?", studentID).
		First(&submission).Error; err != nil {
		return models.Submission{}, err
	}

	return submission, nil
}

func (r *submissionRepository) Create(ctx context.Context, submission *models.Submission) error {
	if submission.Version == 0 {
		submission.Version = 1
	}
	return translateError(r.db.WithContext(ctx).Omit(clause.Associations).Create(submission).Error)
}

// UpdateWithVersion writes the mutable columns only when the stored version
// still equals expected, then bumps the version.
func (r *submissionRepository) UpdateWithVersion(ctx context.Context, submission *models.Submission, expected uint) error {
	submission.Version = expected + 1
	result := r.db.WithContext(ctx).
		Model(submission).
		Where("version = ?", expected).
		Select("status", "content", "submitted_at", "score", "feedback", "graded_by", "graded_at", "version", "updated_at").
		Updates(submission)
	if result.Error != nil {
		submission.Version = expected
		return result.Error
	}
	if result.RowsAffected > 0 {
		return nil
	}

	submission.Version = expected
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Submission{}).Where("id = ?", submission.ID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return gorm.ErrRecordNotFound
	}
	return ErrVersionConflict
}

func (r *submissionRepository) CreateHistory(ctx context.Context, entry *models.SubmissionGradeHistory) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

// DeleteStaleDrafts removes drafts never handed in and last touched before
// the cutoff, returning what was removed.
func (r *submissionRepository) DeleteStaleDrafts(ctx context.Context, before time.Time) ([]models.Submission, error) {
	var stale []models.Submission
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.
			Where("status = ? AND submitted_at IS NULL AND updated_at < ?", submission.StatusDraft, before).
			Find(&stale).Error; err != nil {
			return err
		}
		if len(stale) == 0 {
			return nil
		}

		ids := make([]uint, 0, len(stale))
		for _, item := range stale {
			ids = append(ids, item.ID)
		}
		result := tx.Where("id IN ? AND status = ?", ids, submission.StatusDraft).Delete(&models.Submission{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected != int64(len(ids)) {
			return errors.New("draft set changed during cleanup")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return stale, nil
}
