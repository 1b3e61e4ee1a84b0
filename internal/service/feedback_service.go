package service

import (
	"context"
	"errors"

	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-classroom/internal/dto"
	"github.com/noah-isme/gema-classroom/internal/repository"
	"github.com/noah-isme/gema-classroom/pkg/ai"
)

var (
	// ErrFeedbackUnavailable indicates no AI drafter is configured.
	ErrFeedbackUnavailable = errors.New("ai feedback drafting is not configured")
	// ErrFeedbackNotReady indicates the submission has not been handed in yet.
	ErrFeedbackNotReady = errors.New("feedback can only be drafted for handed-in submissions")
)

// FeedbackService drafts grading feedback for instructors.
type FeedbackService interface {
	Draft(ctx context.Context, submissionID uint, actor ActivityActor) (dto.FeedbackDraftResponse, error)
}

type feedbackService struct {
	submissions repository.SubmissionRepository
	drafter     ai.Drafter
	activity    ActivityRecorder
	sanitizer   *bluemonday.Policy
	logger      zerolog.Logger
	tracer      trace.Tracer
}

// NewFeedbackService constructs the feedback service. drafter may be nil, in
// which case every request fails with ErrFeedbackUnavailable.
func NewFeedbackService(submissions repository.SubmissionRepository, drafter ai.Drafter, activity ActivityRecorder, logger zerolog.Logger) FeedbackService {
	return &feedbackService{
		submissions: submissions,
		drafter:     drafter,
		activity:    activity,
		sanitizer:   bluemonday.StrictPolicy(),
		logger:      logger.With().Str("component", "feedback_service").Logger(),
		tracer:      otel.Tracer("github.com/noah-isme/gema-classroom/internal/service/feedback"),
	}
}

func (s *feedbackService) Draft(ctx context.Context, submissionID uint, actor ActivityActor) (dto.FeedbackDraftResponse, error) {
	ctx, span := s.tracer.Start(ctx, "feedback.draft", trace.WithAttributes(
		attribute.Int("submission.id", int(submissionID)),
	))
	defer span.End()

	if !actor.IsInstructor() {
		return dto.FeedbackDraftResponse{}, spanError(span, ErrGradingForbidden, "forbidden")
	}
	if s.drafter == nil {
		return dto.FeedbackDraftResponse{}, spanError(span, ErrFeedbackUnavailable, "unavailable")
	}

	model, err := s.submissions.GetByID(ctx, submissionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.FeedbackDraftResponse{}, spanError(span, ErrSubmissionNotFound, "not found")
		}
		return dto.FeedbackDraftResponse{}, spanError(span, err, "load failed")
	}
	if model.SubmittedAt == nil {
		return dto.FeedbackDraftResponse{}, spanError(span, ErrFeedbackNotReady, "draft submission")
	}

	content := model.Body().Normalized()
	input := ai.FeedbackInput{
		AssignmentTitle: model.Assignment.Title,
		Instructions:    model.Assignment.Description,
		MaxScore:        model.Assignment.Points,
		SubmissionText:  content.Text,
		PreviousComment: model.Feedback,
	}
	for _, link := range content.Links {
		input.Links = append(input.Links, link.URL)
	}
	for _, file := range content.Files {
		input.FileNames = append(input.FileNames, file.Name)
	}

	draft, err := s.drafter.DraftFeedback(ctx, input)
	if err != nil {
		s.logger.Error().Err(err).Uint("submission_id", submissionID).Msg("failed to draft feedback")
		return dto.FeedbackDraftResponse{}, spanError(span, err, "draft failed")
	}

	score := draft.Score
	response := dto.FeedbackDraftResponse{
		SubmissionID:   model.ID,
		SuggestedScore: &score,
		Feedback:       plainText(s.sanitizer, draft.Feedback),
		Provider:       s.drafter.Provider(),
		Model:          s.drafter.Model(),
	}

	recordActivity(ctx, s.activity, s.logger, actor, "submission.feedback_drafted", "submission", model.ID, map[string]interface{}{
		"model": response.Model,
	})

	return response, nil
}
