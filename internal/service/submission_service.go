package service

import (
	"context"
	"errors"
	"fmt"
	"html"
	"math"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-classroom/internal/dto"
	"github.com/noah-isme/gema-classroom/internal/models"
	"github.com/noah-isme/gema-classroom/internal/observability"
	"github.com/noah-isme/gema-classroom/internal/repository"
	"github.com/noah-isme/gema-classroom/internal/submission"
)

var (
	// ErrSubmissionNotFound indicates a submission could not be found.
	ErrSubmissionNotFound = errors.New("submission not found")
	// ErrSubmissionExists indicates the student already has a submission for the assignment.
	ErrSubmissionExists = errors.New("submission already exists for this assignment")
	// ErrSubmissionForbidden indicates the caller does not own the submission.
	ErrSubmissionForbidden = errors.New("submission belongs to another student")
	// ErrSubmissionLocked indicates the assignment deadline has passed.
	ErrSubmissionLocked = errors.New("assignment is overdue")
	// ErrSubmissionEmpty indicates a hand-in without text, links or files.
	ErrSubmissionEmpty = errors.New("submission has no content")
	// ErrSubmissionConflict indicates the submission changed since the caller read it.
	ErrSubmissionConflict = errors.New("submission was modified by another request")
	// ErrInvalidTransition indicates the submission is not in a state that accepts the action.
	ErrInvalidTransition = errors.New("submission cannot perform this action in its current state")
	// ErrAssignmentClosed indicates the assignment is not accepting submissions.
	ErrAssignmentClosed = errors.New("assignment is not accepting submissions")
	// ErrGradingForbidden indicates a grading attempt by a non-instructor.
	ErrGradingForbidden = errors.New("only trainers and admins can grade submissions")
	// ErrScoreOutOfRange indicates a score outside 0..points.
	ErrScoreOutOfRange = submission.ErrScoreOutOfRange
	// ErrSubmissionFileRemoved indicates an update that drops an already attached file.
	ErrSubmissionFileRemoved = errors.New("attached files cannot be removed from a submission")
)

// DashboardInvalidator drops cached dashboards after a submission changes.
type DashboardInvalidator interface {
	Invalidate(ctx context.Context, studentID uint)
}

// SubmissionService orchestrates the submission lifecycle.
type SubmissionService interface {
	Create(ctx context.Context, actor ActivityActor, payload dto.SubmissionCreateRequest) (dto.SubmissionResponse, error)
	Submit(ctx context.Context, id uint, actor ActivityActor) (dto.SubmissionResponse, error)
	Update(ctx context.Context, id uint, payload dto.SubmissionUpdateRequest, actor ActivityActor) (dto.SubmissionResponse, error)
	Grade(ctx context.Context, id uint, payload dto.SubmissionGradeRequest, actor ActivityActor) (dto.SubmissionResponse, error)
	Get(ctx context.Context, id uint, actor ActivityActor) (dto.SubmissionResponse, error)
	ListByAssignment(ctx context.Context, assignmentID uint) ([]dto.SubmissionResponse, error)
	GetMine(ctx context.Context, assignmentID uint, actor ActivityActor) (dto.SubmissionResponse, error)
}

type submissionService struct {
	submissions repository.SubmissionRepository
	assignments repository.AssignmentRepository
	validator   *validator.Validate
	events      SubmissionEventPublisher
	activity    ActivityRecorder
	dashboard   DashboardInvalidator
	maxFileSize int64
	sanitizer   *bluemonday.Policy
	logger      zerolog.Logger
	tracer      trace.Tracer
	now         func() time.Time
}

// NewSubmissionService constructs a SubmissionService instance. events,
// activity and dashboard may be nil.
func NewSubmissionService(
	submissions repository.SubmissionRepository,
	assignments repository.AssignmentRepository,
	validate *validator.Validate,
	events SubmissionEventPublisher,
	activity ActivityRecorder,
	dashboard DashboardInvalidator,
	maxFileSize int64,
	logger zerolog.Logger,
) SubmissionService {
	return &submissionService{
		submissions: submissions,
		assignments: assignments,
		validator:   validate,
		events:      events,
		activity:    activity,
		dashboard:   dashboard,
		maxFileSize: maxFileSize,
		sanitizer:   bluemonday.StrictPolicy(),
		logger:      logger.With().Str("component", "submission_service").Logger(),
		tracer:      otel.Tracer("github.com/noah-isme/gema-classroom/internal/service/submission"),
		now:         time.Now,
	}
}

func (s *submissionService) Create(ctx context.Context, actor ActivityActor, payload dto.SubmissionCreateRequest) (dto.SubmissionResponse, error) {
	ctx, span := s.tracer.Start(ctx, "submission.create")
	span.SetAttributes(
		attribute.Int64("submission.assignment_id", int64(payload.AssignmentID)),
		attribute.Int64("submission.actor_id", int64(actor.ID)),
	)
	defer span.End()

	if err := s.validator.Struct(payload); err != nil {
		return dto.SubmissionResponse{}, spanError(span, err, "validation_failed")
	}

	if actor.SubmissionRole() != submission.RoleStudent {
		return dto.SubmissionResponse{}, spanError(span, ErrSubmissionForbidden, "not_a_student")
	}

	assignment, err := s.loadAssignment(ctx, payload.AssignmentID)
	if err != nil {
		return dto.SubmissionResponse{}, spanError(span, err, "assignment_lookup_failed")
	}
	if !assignment.AcceptsSubmissions() {
		return dto.SubmissionResponse{}, spanError(span, ErrAssignmentClosed, "assignment_closed")
	}

	if _, err := s.submissions.GetByAssignmentAndStudent(ctx, assignment.ID, actor.ID); err == nil {
		return dto.SubmissionResponse{}, spanError(span, ErrSubmissionExists, "duplicate")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return dto.SubmissionResponse{}, spanError(span, err, "submission_lookup_failed")
	}

	overdue := submission.IsOverdue(assignment.DueDate, s.now())
	if _, err := s.transition(submission.Initial("", false, overdue), submission.EventInput, submission.Guards{
		Overdue: overdue,
		Role:    actor.SubmissionRole(),
	}); err != nil {
		return dto.SubmissionResponse{}, spanError(span, err, "transition_rejected")
	}

	content := s.sanitizeContent(payload.Content.ToContent())
	if err := s.validateFiles(assignment, content.Files, nil); err != nil {
		return dto.SubmissionResponse{}, spanError(span, err, "file_rejected")
	}

	model := models.Submission{
		AssignmentID: assignment.ID,
		StudentID:    actor.ID,
		Status:       submission.StatusDraft,
		Content:      datatypes.NewJSONType(content),
	}
	if err := s.submissions.Create(ctx, &model); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return dto.SubmissionResponse{}, spanError(span, ErrSubmissionExists, "duplicate")
		}
		return dto.SubmissionResponse{}, spanError(span, err, "create_failed")
	}

	s.afterChange(ctx, actor, model, submission.EventInput, dto.EventSubmissionCreated, nil)
	s.logger.Info().Uint("submission_id", model.ID).Uint("assignment_id", model.AssignmentID).Msg("submission draft created")

	return s.reload(ctx, model)
}

func (s *submissionService) Submit(ctx context.Context, id uint, actor ActivityActor) (dto.SubmissionResponse, error) {
	ctx, span := s.tracer.Start(ctx, "submission.submit")
	span.SetAttributes(
		attribute.Int64("submission.id", int64(id)),
		attribute.Int64("submission.actor_id", int64(actor.ID)),
	)
	defer span.End()

	model, err := s.loadOwned(ctx, id, actor)
	if err != nil {
		return dto.SubmissionResponse{}, spanError(span, err, "submission_lookup_failed")
	}

	now := s.now()
	overdue := submission.IsOverdue(model.Assignment.DueDate, now)
	content := model.Body()
	state := submission.Initial(model.Status, true, overdue)
	if _, err := s.transition(state, submission.EventSubmit, submission.Guards{
		Overdue:    overdue,
		HasContent: submission.HasContent(content),
		Role:       actor.SubmissionRole(),
	}); err != nil {
		return dto.SubmissionResponse{}, spanError(span, err, "transition_rejected")
	}

	model.Status = submission.StatusSubmitted
	model.SubmittedAt = &now
	if err := s.save(ctx, &model, model.Version); err != nil {
		return dto.SubmissionResponse{}, spanError(span, err, "update_failed")
	}

	s.afterChange(ctx, actor, model, submission.EventSubmit, dto.EventSubmissionSubmitted, nil)
	return s.reload(ctx, model)
}

func (s *submissionService) Update(ctx context.Context, id uint, payload dto.SubmissionUpdateRequest, actor ActivityActor) (dto.SubmissionResponse, error) {
	ctx, span := s.tracer.Start(ctx, "submission.update")
	span.SetAttributes(
		attribute.Int64("submission.id", int64(id)),
		attribute.Int64("submission.actor_id", int64(actor.ID)),
		attribute.Int64("submission.version", int64(payload.Version)),
	)
	defer span.End()

	if err := s.validator.Struct(payload); err != nil {
		return dto.SubmissionResponse{}, spanError(span, err, "validation_failed")
	}

	model, err := s.loadOwned(ctx, id, actor)
	if err != nil {
		return dto.SubmissionResponse{}, spanError(span, err, "submission_lookup_failed")
	}
	if payload.Version != model.Version {
		return dto.SubmissionResponse{}, spanError(span, ErrSubmissionConflict, "stale_version")
	}

	now := s.now()
	overdue := submission.IsOverdue(model.Assignment.DueDate, now)
	content := s.sanitizeContent(payload.Content.ToContent())
	guards := submission.Guards{
		Overdue:    overdue,
		HasContent: submission.HasContent(content),
		Role:       actor.SubmissionRole(),
	}

	event := submission.EventInput
	state := submission.Initial(model.Status, true, overdue)
	if state == submission.StateSubmitted {
		if state, err = s.transition(state, submission.EventBeginEdit, guards); err != nil {
			return dto.SubmissionResponse{}, spanError(span, err, "transition_rejected")
		}
		event = submission.EventResubmit
	}
	if _, err := s.transition(state, event, guards); err != nil {
		return dto.SubmissionResponse{}, spanError(span, err, "transition_rejected")
	}

	existing := model.Body().Files
	if err := keepsFiles(content.Files, existing); err != nil {
		return dto.SubmissionResponse{}, spanError(span, err, "file_removed")
	}
	if err := s.validateFiles(model.Assignment, content.Files, existing); err != nil {
		return dto.SubmissionResponse{}, spanError(span, err, "file_rejected")
	}

	model.Content = datatypes.NewJSONType(content)
	if model.Status == submission.StatusSubmitted {
		model.SubmittedAt = &now
	}
	if err := s.save(ctx, &model, payload.Version); err != nil {
		return dto.SubmissionResponse{}, spanError(span, err, "update_failed")
	}

	s.afterChange(ctx, actor, model, event, dto.EventSubmissionUpdated, nil)
	return s.reload(ctx, model)
}

func (s *submissionService) Grade(ctx context.Context, id uint, payload dto.SubmissionGradeRequest, actor ActivityActor) (dto.SubmissionResponse, error) {
	ctx, span := s.tracer.Start(ctx, "grading.update")
	span.SetAttributes(
		attribute.Int64("grading.submission_id", int64(id)),
		attribute.Int64("grading.actor_id", int64(actor.ID)),
	)
	defer span.End()

	if err := s.validator.Struct(payload); err != nil {
		return dto.SubmissionResponse{}, spanError(span, err, "validation_failed")
	}
	if !actor.IsInstructor() {
		return dto.SubmissionResponse{}, spanError(span, ErrGradingForbidden, "not_an_instructor")
	}

	model, err := s.load(ctx, id)
	if err != nil {
		return dto.SubmissionResponse{}, spanError(span, err, "submission_lookup_failed")
	}
	if payload.Version != 0 && payload.Version != model.Version {
		return dto.SubmissionResponse{}, spanError(span, ErrSubmissionConflict, "stale_version")
	}

	score := *payload.Score
	if err := submission.ValidateScore(score, model.Assignment.Points); err != nil {
		return dto.SubmissionResponse{}, spanError(span, err, "score_out_of_range")
	}

	feedback := plainText(s.sanitizer, payload.Feedback)
	if model.IsGraded() && model.Score != nil &&
		math.Abs(*model.Score-score) < 1e-6 &&
		strings.TrimSpace(model.Feedback) == feedback &&
		model.GradedBy != nil && *model.GradedBy == actor.ID {
		span.SetAttributes(attribute.Bool("grading.idempotent", true))
		return dto.NewSubmissionResponse(model), nil
	}

	guards := submission.Guards{Role: actor.SubmissionRole()}
	event := submission.EventGrade
	state := submission.Initial(model.Status, true, false)
	if state == submission.StateGraded {
		if state, err = s.transition(state, submission.EventBeginGradeEdit, guards); err != nil {
			return dto.SubmissionResponse{}, spanError(span, err, "transition_rejected")
		}
		event = submission.EventSaveGrade
	}
	if _, err := s.transition(state, event, guards); err != nil {
		return dto.SubmissionResponse{}, spanError(span, err, "transition_rejected")
	}

	gradedAt := s.now()
	gradedBy := actor.ID
	model.Status = submission.StatusGraded
	model.Score = &score
	model.Feedback = feedback
	model.GradedAt = &gradedAt
	model.GradedBy = &gradedBy
	if err := s.save(ctx, &model, model.Version); err != nil {
		return dto.SubmissionResponse{}, spanError(span, err, "update_failed")
	}

	history := models.SubmissionGradeHistory{
		SubmissionID: model.ID,
		Score:        score,
		Feedback:     feedback,
		GradedBy:     actor.ID,
		GradedAt:     gradedAt,
	}
	if err := s.submissions.CreateHistory(ctx, &history); err != nil {
		s.logger.Warn().Err(err).Uint("submission_id", model.ID).Msg("failed to persist grading history")
		span.RecordError(err)
	}

	s.afterChange(ctx, actor, model, event, dto.EventSubmissionGraded, map[string]interface{}{
		"score": score,
	})

	span.SetAttributes(
		attribute.Float64("grading.score", score),
		attribute.String("grading.status", string(model.Status)),
	)

	return s.reload(ctx, model)
}

func (s *submissionService) Get(ctx context.Context, id uint, actor ActivityActor) (dto.SubmissionResponse, error) {
	model, err := s.load(ctx, id)
	if err != nil {
		return dto.SubmissionResponse{}, err
	}
	if !actor.IsInstructor() && model.StudentID != actor.ID {
		return dto.SubmissionResponse{}, ErrSubmissionForbidden
	}

	return dto.NewSubmissionResponse(model), nil
}

func (s *submissionService) ListByAssignment(ctx context.Context, assignmentID uint) ([]dto.SubmissionResponse, error) {
	if _, err := s.loadAssignment(ctx, assignmentID); err != nil {
		return nil, err
	}

	items, err := s.submissions.List(ctx, repository.SubmissionFilter{AssignmentID: &assignmentID})
	if err != nil {
		return nil, err
	}

	return dto.NewSubmissionResponseSlice(items), nil
}

func (s *submissionService) GetMine(ctx context.Context, assignmentID uint, actor ActivityActor) (dto.SubmissionResponse, error) {
	model, err := s.submissions.GetByAssignmentAndStudent(ctx, assignmentID, actor.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SubmissionResponse{}, ErrSubmissionNotFound
		}
		return dto.SubmissionResponse{}, err
	}

	return dto.NewSubmissionResponse(model), nil
}

func (s *submissionService) load(ctx context.Context, id uint) (models.Submission, error) {
	model, err := s.submissions.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Submission{}, ErrSubmissionNotFound
		}
		return models.Submission{}, err
	}
	return model, nil
}

func (s *submissionService) loadOwned(ctx context.Context, id uint, actor ActivityActor) (models.Submission, error) {
	model, err := s.load(ctx, id)
	if err != nil {
		return models.Submission{}, err
	}
	if model.StudentID != actor.ID {
		return models.Submission{}, ErrSubmissionForbidden
	}
	return model, nil
}

func (s *submissionService) loadAssignment(ctx context.Context, id uint) (models.Assignment, error) {
	assignment, err := s.assignments.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Assignment{}, ErrAssignmentNotFound
		}
		return models.Assignment{}, err
	}
	return assignment, nil
}

func (s *submissionService) reload(ctx context.Context, model models.Submission) (dto.SubmissionResponse, error) {
	fresh, err := s.submissions.GetByID(ctx, model.ID)
	if err != nil {
		s.logger.Warn().Err(err).Uint("submission_id", model.ID).Msg("failed to reload submission")
		return dto.NewSubmissionResponse(model), nil
	}
	return dto.NewSubmissionResponse(fresh), nil
}

func (s *submissionService) save(ctx context.Context, model *models.Submission, expected uint) error {
	if err := s.submissions.UpdateWithVersion(ctx, model, expected); err != nil {
		switch {
		case errors.Is(err, repository.ErrVersionConflict):
			return ErrSubmissionConflict
		case errors.Is(err, gorm.ErrRecordNotFound):
			return ErrSubmissionNotFound
		default:
			return err
		}
	}
	return nil
}

// transition applies a workflow event and maps rejections onto service errors.
func (s *submissionService) transition(from submission.State, event submission.Event, guards submission.Guards) (submission.State, error) {
	next, err := submission.Transition(from, event, guards)
	if err == nil {
		return next, nil
	}

	s.logger.Debug().Str("from", from.String()).Str("event", event.String()).Err(err).Msg("transition rejected")
	switch {
	case errors.Is(err, submission.ErrLocked):
		return from, ErrSubmissionLocked
	case errors.Is(err, submission.ErrNoContent):
		return from, ErrSubmissionEmpty
	case errors.Is(err, submission.ErrNotInstructor):
		return from, ErrGradingForbidden
	case from == submission.StateLocked:
		return from, ErrSubmissionLocked
	default:
		return from, fmt.Errorf("%w: %s while %s", ErrInvalidTransition, event, from)
	}
}

// validateFiles checks files that were not already attached before this write.
func (s *submissionService) validateFiles(assignment models.Assignment, files, existing []submission.File) error {
	known := make(map[string]struct{}, len(existing))
	for _, file := range existing {
		known[file.URL] = struct{}{}
	}

	rules := submission.FileRules{MaxSize: s.maxFileSize, AllowedTypes: assignment.AllowedFileTypes}
	for _, file := range files {
		if _, ok := known[file.URL]; ok {
			continue
		}
		if err := rules.Validate(file.Name, file.Size); err != nil {
			return err
		}
	}
	return nil
}

// keepsFiles reports ErrSubmissionFileRemoved when files lacks a URL that was
// attached before. New uploads may only be appended.
func keepsFiles(files, existing []submission.File) error {
	present := make(map[string]struct{}, len(files))
	for _, file := range files {
		present[file.URL] = struct{}{}
	}
	for _, file := range existing {
		if _, ok := present[file.URL]; !ok {
			return fmt.Errorf("%w: %s", ErrSubmissionFileRemoved, file.Name)
		}
	}
	return nil
}

func (s *submissionService) sanitizeContent(content submission.Content) submission.Content {
	content.Text = plainText(s.sanitizer, content.Text)
	for i := range content.Links {
		content.Links[i].Title = plainText(s.sanitizer, content.Links[i].Title)
	}
	for i := range content.Files {
		content.Files[i].Name = plainText(s.sanitizer, content.Files[i].Name)
	}
	return content
}

// plainText trims a field that clients render as text and strips any markup
// from it. Text without a '<' cannot hold a tag and is stored as typed; the
// entities bluemonday escapes in the remaining text are decoded again so a
// stored value survives a read and re-save unchanged.
func plainText(policy *bluemonday.Policy, value string) string {
	value = strings.TrimSpace(value)
	if !strings.Contains(value, "<") {
		return value
	}
	return strings.TrimSpace(html.UnescapeString(policy.Sanitize(value)))
}

func (s *submissionService) afterChange(ctx context.Context, actor ActivityActor, model models.Submission, event submission.Event, eventType string, extra map[string]interface{}) {
	observability.SubmissionTransitions().WithLabelValues(event.String()).Inc()

	metadata := map[string]interface{}{
		"assignment_id": model.AssignmentID,
		"student_id":    model.StudentID,
		"status":        string(model.Status),
		"version":       model.Version,
	}
	for key, value := range extra {
		metadata[key] = value
	}
	recordActivity(ctx, s.activity, s.logger, actor, eventType, "submission", model.ID, metadata)

	if s.events != nil {
		s.events.Publish(ctx, dto.SubmissionEvent{
			Type:         eventType,
			SubmissionID: model.ID,
			AssignmentID: model.AssignmentID,
			StudentID:    model.StudentID,
			Status:       model.Status,
			Version:      model.Version,
			OccurredAt:   s.now().UTC(),
		})
	}

	if s.dashboard != nil {
		s.dashboard.Invalidate(ctx, model.StudentID)
	}
}

func spanError(span trace.Span, err error, status string) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, status)
	return err
}
