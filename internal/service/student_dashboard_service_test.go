package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-classroom/internal/dto"
	"github.com/noah-isme/gema-classroom/internal/models"
	"github.com/noah-isme/gema-classroom/internal/repository"
	"github.com/noah-isme/gema-classroom/internal/submission"
)

func seedSubmission(t *testing.T, db *gorm.DB, assignmentID, studentID uint, status submission.Status, score *float64) models.Submission {
	t.Helper()
	item := models.Submission{
		AssignmentID: assignmentID,
		StudentID:    studentID,
		Status:       status,
		Score:        score,
		Version:      1,
	}
	if status != submission.StatusDraft {
		now := time.Now().UTC()
		item.SubmittedAt = &now
	}
	require.NoError(t, db.Create(&item).Error)
	return item
}

func TestStudentDashboardServiceAggregationAndCaching(t *testing.T) {
	mini, err := miniredis.Run()
	require.NoError(t, err)
	defer mini.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: mini.Addr()})
	db := setupServiceDB(t)

	cohort := models.Cohort{Name: "Batch 1"}
	require.NoError(t, db.Create(&cohort).Error)
	otherCohort := models.Cohort{Name: "Batch 2"}
	require.NoError(t, db.Create(&otherCohort).Error)

	student := seedUser(t, db, "Sam Student", "student")
	require.NoError(t, db.Model(&student).Association("Cohorts").Append(&cohort))

	now := time.Now().UTC()
	graded := seedAssignment(t, db, "Graded", now.Add(48*time.Hour), cohort)
	submitted := seedAssignment(t, db, "Submitted", now.Add(24*time.Hour), cohort)
	pending := seedAssignment(t, db, "Pending", now.Add(72*time.Hour))
	overdue := seedAssignment(t, db, "Overdue", now.Add(-24*time.Hour), cohort)
	seedAssignment(t, db, "Hidden", now.Add(24*time.Hour), otherCohort)

	seedSubmission(t, db, graded.ID, student.ID, submission.StatusGraded, ptrFloat(84))
	seedSubmission(t, db, submitted.ID, student.ID, submission.StatusSubmitted, nil)
	seedSubmission(t, db, overdue.ID, student.ID, submission.StatusDraft, nil)

	svc := NewStudentDashboardService(
		repository.NewAssignmentRepository(db),
		repository.NewSubmissionRepository(db),
		repository.NewUserRepository(db),
		redisClient,
		time.Minute,
		testLogger(),
	)

	ctx := context.Background()
	first, err := svc.GetDashboard(ctx, student.ID, "")
	require.NoError(t, err)
	require.Equal(t, 4, first.Summary.TotalAssignments)
	require.Equal(t, 1, first.Summary.Graded)
	require.Equal(t, 1, first.Summary.Submitted)
	require.Equal(t, 1, first.Summary.Pending)
	require.Equal(t, 1, first.Summary.Overdue)
	require.Equal(t, 84.0, first.Summary.AverageGrade)
	require.Equal(t, 50.0, first.Summary.CompletionRate)
	require.Len(t, first.RecentSubmissions, 3)

	tabs := map[uint]string{}
	for _, item := range first.Assignments {
		tabs[item.AssignmentID] = item.Tab
		if item.AssignmentID == graded.ID {
			require.Equal(t, "84%", item.Percentage)
		}
	}
	require.Equal(t, "graded", tabs[graded.ID])
	require.Equal(t, "submitted", tabs[submitted.ID])
	require.Equal(t, "pending", tabs[pending.ID])
	require.Equal(t, "overdue", tabs[overdue.ID])

	cached, err := redisClient.Get(ctx, dashboardCacheKey(student.ID)).Result()
	require.NoError(t, err)
	var snapshot dto.StudentDashboardResponse
	require.NoError(t, json.Unmarshal([]byte(cached), &snapshot))
	require.Equal(t, first.Summary, snapshot.Summary)

	onlyGraded, err := svc.GetDashboard(ctx, student.ID, "graded")
	require.NoError(t, err)
	require.Len(t, onlyGraded.Assignments, 1)
	require.Equal(t, graded.ID, onlyGraded.Assignments[0].AssignmentID)
	require.Equal(t, 4, onlyGraded.Summary.TotalAssignments)

	svc.Invalidate(ctx, student.ID)
	require.False(t, mini.Exists(dashboardCacheKey(student.ID)))

	_, err = svc.GetDashboard(ctx, student.ID, "archived")
	require.ErrorIs(t, err, ErrInvalidTab)
}

func TestStudentDashboardServiceWithoutCache(t *testing.T) {
	db := setupServiceDB(t)
	student := seedUser(t, db, "Sam Student", "student")
	seedAssignment(t, db, "Open", time.Now().Add(time.Hour))

	svc := NewStudentDashboardService(
		repository.NewAssignmentRepository(db),
		repository.NewSubmissionRepository(db),
		repository.NewUserRepository(db),
		nil,
		time.Minute,
		testLogger(),
	)

	response, err := svc.GetDashboard(context.Background(), student.ID, "pending")
	require.NoError(t, err)
	require.Len(t, response.Assignments, 1)
	require.Equal(t, "N/A", response.Assignments[0].Percentage)
	require.Equal(t, 0.0, response.Summary.CompletionRate)

	svc.Invalidate(context.Background(), student.ID)
}
