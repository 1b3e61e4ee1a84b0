package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-classroom/internal/models"
	"github.com/noah-isme/gema-classroom/internal/submission"
)

func seedAssignmentAndStudent(t *testing.T, db *gorm.DB) (models.Assignment, models.User) {
	t.Helper()
	student := models.User{Name: "Sam", Email: "sam@example.com", Role: "student"}
	require.NoError(t, db.Create(&student).Error)
	assignment := models.Assignment{Title: "Essay", DueDate: time.Now().Add(24 * time.Hour), Points: 100}
	require.NoError(t, db.Create(&assignment).Error)
	return assignment, student
}

func TestSubmissionRepositoryRejectsDuplicatePerAssignment(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSubmissionRepository(db)
	assignment, student := seedAssignmentAndStudent(t, db)

	first := models.Submission{AssignmentID: assignment.ID, StudentID: student.ID, Status: submission.StatusDraft}
	require.NoError(t, repo.Create(context.Background(), &first))
	require.Equal(t, uint(1), first.Version)

	second := models.Submission{AssignmentID: assignment.ID, StudentID: student.ID, Status: submission.StatusDraft}
	require.ErrorIs(t, repo.Create(context.Background(), &second), ErrDuplicate)
}

func TestSubmissionRepositoryUpdateWithVersion(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSubmissionRepository(db)
	ctx := context.Background()
	assignment, student := seedAssignmentAndStudent(t, db)

	item := models.Submission{
		AssignmentID: assignment.ID,
		StudentID:    student.ID,
		Status:       submission.StatusDraft,
		Content:      datatypes.NewJSONType(submission.Content{Text: "v1"}),
	}
	require.NoError(t, repo.Create(ctx, &item))

	stale, err := repo.GetByID(ctx, item.ID)
	require.NoError(t, err)

	item.Content = datatypes.NewJSONType(submission.Content{Text: "v2"})
	require.NoError(t, repo.UpdateWithVersion(ctx, &item, 1))
	require.Equal(t, uint(2), item.Version)

	stale.Content = datatypes.NewJSONType(submission.Content{Text: "lost"})
	require.ErrorIs(t, repo.UpdateWithVersion(ctx, &stale, 1), ErrVersionConflict)
	require.Equal(t, uint(1), stale.Version)

	stored, err := repo.GetByID(ctx, item.ID)
	require.NoError(t, err)
	require.Equal(t, "v2", stored.Body().Text)
	require.Equal(t, uint(2), stored.Version)
	require.Equal(t, "Essay", stored.Assignment.Title)

	missing := models.Submission{ID: 9999}
	require.ErrorIs(t, repo.UpdateWithVersion(ctx, &missing, 1), gorm.ErrRecordNotFound)
}

func TestSubmissionRepositoryDeleteStaleDrafts(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSubmissionRepository(db)
	ctx := context.Background()
	assignment, student := seedAssignmentAndStudent(t, db)
	other := models.User{Name: "Kim", Email: "kim@example.com", Role: "student"}
	require.NoError(t, db.Create(&other).Error)
	third := models.User{Name: "Lee", Email: "lee@example.com", Role: "student"}
	require.NoError(t, db.Create(&third).Error)

	old := time.Now().Add(-72 * time.Hour)
	submittedAt := old
	orphan := models.Submission{AssignmentID: assignment.ID, StudentID: student.ID, Status: submission.StatusDraft, UpdatedAt: old, CreatedAt: old}
	fresh := models.Submission{AssignmentID: assignment.ID, StudentID: other.ID, Status: submission.StatusDraft}
	handedIn := models.Submission{AssignmentID: assignment.ID, StudentID: third.ID, Status: submission.StatusSubmitted, SubmittedAt: &submittedAt, UpdatedAt: old, CreatedAt: old}
	for _, item := range []*models.Submission{&orphan, &fresh, &handedIn} {
		require.NoError(t, db.Create(item).Error)
	}
	require.NoError(t, db.Model(&models.Submission{}).Where("id = ?", orphan.ID).UpdateColumn("updated_at", old).Error)

	removed, err := repo.DeleteStaleDrafts(ctx, time.Now().Add(-24*time.Hour))
	require.NoError(t, err)
	require.Len(t, removed, 1)
	require.Equal(t, orphan.ID, removed[0].ID)

	var remaining int64
	require.NoError(t, db.Model(&models.Submission{}).Count(&remaining).Error)
	require.Equal(t, int64(2), remaining)
}

func TestSubmissionRepositoryListFilters(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSubmissionRepository(db)
	ctx := context.Background()
	assignment, student := seedAssignmentAndStudent(t, db)

	item := models.Submission{AssignmentID: assignment.ID, StudentID: student.ID, Status: submission.StatusSubmitted}
	require.NoError(t, repo.Create(ctx, &item))

	status := submission.StatusGraded
	items, err := repo.List(ctx, SubmissionFilter{AssignmentID: &assignment.ID, Status: &status})
	require.NoError(t, err)
	require.Empty(t, items)

	items, err = repo.List(ctx, SubmissionFilter{AssignmentID: &assignment.ID})
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, "Sam", items[0].Student.Name)

	mine, err := repo.GetByAssignmentAndStudent(ctx, assignment.ID, student.ID)
	require.NoError(t, err)
	require.Equal(t, item.ID, mine.ID)
}
