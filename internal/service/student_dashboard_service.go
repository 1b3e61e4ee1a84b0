package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-classroom/internal/dto"
	"github.com/noah-isme/gema-classroom/internal/models"
	"github.com/noah-isme/gema-classroom/internal/observability"
	"github.com/noah-isme/gema-classroom/internal/repository"
	"github.com/noah-isme/gema-classroom/internal/submission"
)

const recentSubmissionLimit = 5

// ErrInvalidTab indicates an unknown dashboard tab.
var ErrInvalidTab = errors.New("unknown assignment tab")

// StudentDashboardService produces per-student assignment progress.
type StudentDashboardService interface {
	DashboardInvalidator
	GetDashboard(ctx context.Context, studentID uint, tab string) (dto.StudentDashboardResponse, error)
}

type studentDashboardService struct {
	assignments repository.AssignmentRepository
	submissions repository.SubmissionRepository
	users       repository.UserRepository
	cache       *redis.Client
	cacheTTL    time.Duration
	logger      zerolog.Logger
	now         func() time.Time
}

// NewStudentDashboardService builds the dashboard aggregator. cache may be nil.
func NewStudentDashboardService(assignments repository.AssignmentRepository, submissions repository.SubmissionRepository, users repository.UserRepository, cache *redis.Client, ttl time.Duration, logger zerolog.Logger) StudentDashboardService {
	return &studentDashboardService{
		assignments: assignments,
		submissions: submissions,
		users:       users,
		cache:       cache,
		cacheTTL:    ttl,
		logger:      logger.With().Str("component", "student_dashboard_service").Logger(),
		now:         time.Now,
	}
}

func dashboardCacheKey(studentID uint) string {
	return fmt.Sprintf("dashboard:student:%d", studentID)
}

func (s *studentDashboardService) GetDashboard(ctx context.Context, studentID uint, rawTab string) (dto.StudentDashboardResponse, error) {
	tab, ok := submission.ParseTab(rawTab)
	if !ok {
		return dto.StudentDashboardResponse{}, ErrInvalidTab
	}

	response, err := s.cached(ctx, studentID)
	if err != nil {
		return dto.StudentDashboardResponse{}, err
	}

	filtered := make([]dto.AssignmentProgress, 0, len(response.Assignments))
	for _, item := range response.Assignments {
		if tab.Includes(submission.Tab(item.Tab)) {
			filtered = append(filtered, item)
		}
	}
	response.Assignments = filtered

	return response, nil
}

func (s *studentDashboardService) Invalidate(ctx context.Context, studentID uint) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, dashboardCacheKey(studentID)).Err(); err != nil {
		s.logger.Warn().Err(err).Uint("student_id", studentID).Msg("failed to invalidate dashboard cache")
	}
}

func (s *studentDashboardService) cached(ctx context.Context, studentID uint) (dto.StudentDashboardResponse, error) {
	cacheKey := dashboardCacheKey(studentID)

	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, cacheKey).Result(); err == nil {
			var response dto.StudentDashboardResponse
			if unmarshalErr := json.Unmarshal([]byte(cached), &response); unmarshalErr == nil {
				observability.CacheLookups().WithLabelValues("dashboard", "hit").Inc()
				s.logger.Debug().Uint("student_id", studentID).Msg("dashboard cache hit")
				return response, nil
			}
		} else if !errors.Is(err, redis.Nil) {
			s.logger.Warn().Err(err).Msg("failed to read dashboard cache")
		}
		observability.CacheLookups().WithLabelValues("dashboard", "miss").Inc()
	}

	cohortIDs, err := s.users.CohortIDs(ctx, studentID)
	if err != nil {
		return dto.StudentDashboardResponse{}, err
	}

	assignments, _, err := s.assignments.ListWithFilter(ctx, repository.AssignmentFilter{
		Status:    models.AssignmentStatusPublished,
		CohortIDs: cohortIDs,
	})
	if err != nil {
		return dto.StudentDashboardResponse{}, err
	}

	submissions, err := s.submissions.List(ctx, repository.SubmissionFilter{StudentID: &studentID})
	if err != nil {
		return dto.StudentDashboardResponse{}, err
	}

	response := s.buildResponse(assignments, submissions)

	if s.cache != nil {
		payload, err := json.Marshal(response)
		if err == nil {
			if err := s.cache.Set(ctx, cacheKey, payload, s.cacheTTL).Err(); err != nil {
				s.logger.Warn().Err(err).Msg("failed to store dashboard cache")
			}
		}
	}

	return response, nil
}

func (s *studentDashboardService) buildResponse(assignments []models.Assignment, submissions []models.Submission) dto.StudentDashboardResponse {
	now := s.now()
	byAssignment := make(map[uint]models.Submission, len(submissions))
	for _, item := range submissions {
		byAssignment[item.AssignmentID] = item
	}

	summary := dto.ProgressSummary{}
	progress := make([]dto.AssignmentProgress, 0, len(assignments))
	var percentageTotal float64
	var percentageCount int

	for _, assignment := range assignments {
		summary.TotalAssignments++
		own, exists := byAssignment[assignment.ID]
		overdue := submission.IsOverdue(assignment.DueDate, now)
		tab := submission.TabFor(own.Status, exists, overdue)

		item := dto.AssignmentProgress{
			AssignmentID: assignment.ID,
			Title:        assignment.Title,
			DueDate:      assignment.DueDate,
			Points:       assignment.Points,
			Tab:          string(tab),
			Percentage:   "N/A",
			Overdue:      overdue,
		}
		if exists {
			id := own.ID
			item.SubmissionID = &id
			item.Status = own.Status
			item.Score = own.Score
		}

		switch tab {
		case submission.TabGraded:
			summary.Graded++
			if own.Score != nil {
				item.Percentage = submission.FormatPercentage(*own.Score, assignment.Points)
				if pct, ok := submission.GradePercentage(*own.Score, assignment.Points); ok {
					percentageTotal += float64(pct)
					percentageCount++
				}
			}
		case submission.TabSubmitted:
			summary.Submitted++
		case submission.TabOverdue:
			summary.Overdue++
		default:
			summary.Pending++
		}

		progress = append(progress, item)
	}

	if percentageCount > 0 {
		summary.AverageGrade = roundTwo(percentageTotal / float64(percentageCount))
	}
	if summary.TotalAssignments > 0 {
		done := summary.Submitted + summary.Graded
		summary.CompletionRate = roundTwo(float64(done) / float64(summary.TotalAssignments) * 100)
	}

	recent := make([]dto.SubmissionActivity, 0, recentSubmissionLimit)
	for _, item := range submissions {
		if len(recent) == recentSubmissionLimit {
			break
		}
		recent = append(recent, dto.SubmissionActivity{
			SubmissionID:   item.ID,
			AssignmentID:   item.AssignmentID,
			AssignmentName: item.Assignment.Title,
			Status:         item.Status,
			Score:          item.Score,
			UpdatedAt:      item.UpdatedAt,
		})
	}

	return dto.StudentDashboardResponse{
		Summary:           summary,
		Assignments:       progress,
		RecentSubmissions: recent,
	}
}

func roundTwo(v float64) float64 {
	return math.Round(v*100) / 100
}
