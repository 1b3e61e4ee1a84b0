package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-classroom/internal/dto"
	"github.com/noah-isme/gema-classroom/internal/models"
	"github.com/noah-isme/gema-classroom/internal/observability"
	"github.com/noah-isme/gema-classroom/internal/repository"
	"github.com/noah-isme/gema-classroom/internal/submission"
)

var (
	// ErrAssignmentNotFound indicates the requested assignment does not exist.
	ErrAssignmentNotFound = errors.New("assignment not found")
	// ErrCohortNotFound indicates a referenced cohort does not exist.
	ErrCohortNotFound = errors.New("cohort not found")
)

const assignmentListGenerationKey = "assignments:list:gen"

// AssignmentService exposes assignment domain use cases.
type AssignmentService interface {
	List(ctx context.Context, req dto.AssignmentListRequest, actor ActivityActor) (dto.ListResponse[dto.AssignmentResponse], error)
	Get(ctx context.Context, id uint, actor ActivityActor) (dto.AssignmentResponse, error)
	Create(ctx context.Context, actor ActivityActor, payload dto.AssignmentCreateRequest, file *multipart.FileHeader) (dto.AssignmentResponse, error)
	Update(ctx context.Context, id uint, payload dto.AssignmentUpdateRequest, file *multipart.FileHeader, actor ActivityActor) (dto.AssignmentResponse, error)
	Delete(ctx context.Context, id uint, actor ActivityActor) error
}

type assignmentService struct {
	repo      repository.AssignmentRepository
	users     repository.UserRepository
	validator *validator.Validate
	uploader  FileStorage
	activity  ActivityRecorder
	cache     *redis.Client
	cacheTTL  time.Duration
	logger    zerolog.Logger
}

// NewAssignmentService builds a new assignment service. uploader, activity
// and cache may be nil.
func NewAssignmentService(repo repository.AssignmentRepository, users repository.UserRepository, validate *validator.Validate, uploader FileStorage, activity ActivityRecorder, cache *redis.Client, cacheTTL time.Duration, logger zerolog.Logger) AssignmentService {
	return &assignmentService{
		repo:      repo,
		users:     users,
		validator: validate,
		uploader:  uploader,
		activity:  activity,
		cache:     cache,
		cacheTTL:  cacheTTL,
		logger:    logger.With().Str("component", "assignment_service").Logger(),
	}
}

func (s *assignmentService) List(ctx context.Context, req dto.AssignmentListRequest, actor ActivityActor) (dto.ListResponse[dto.AssignmentResponse], error) {
	paging := req.ListRequest.Normalize()
	filter := repository.AssignmentFilter{
		Search:   paging.Search,
		Sort:     paging.Sort,
		Status:   strings.ToLower(strings.TrimSpace(req.Status)),
		Page:     paging.Page,
		PageSize: paging.PageSize,
	}

	if actor.IsInstructor() {
		if req.CohortID > 0 {
			filter.CohortIDs = []uint{req.CohortID}
		}
	} else {
		cohortIDs, err := s.users.CohortIDs(ctx, actor.ID)
		if err != nil {
			return dto.ListResponse[dto.AssignmentResponse]{}, err
		}
		filter.CohortIDs = cohortIDs
		filter.Status = models.AssignmentStatusPublished
	}

	key := s.listCacheKey(ctx, filter)
	var response dto.ListResponse[dto.AssignmentResponse]
	if s.readCache(ctx, key, &response) {
		return response, nil
	}

	assignments, total, err := s.repo.ListWithFilter(ctx, filter)
	if err != nil {
		return dto.ListResponse[dto.AssignmentResponse]{}, err
	}

	response = dto.ListResponse[dto.AssignmentResponse]{
		Items:      dto.NewAssignmentResponseSlice(assignments),
		Pagination: dto.NewPaginationMeta(paging, total),
	}
	s.writeCache(ctx, key, response)

	return response, nil
}

func (s *assignmentService) Get(ctx context.Context, id uint, actor ActivityActor) (dto.AssignmentResponse, error) {
	assignment, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.AssignmentResponse{}, ErrAssignmentNotFound
		}
		return dto.AssignmentResponse{}, err
	}

	if !actor.IsInstructor() && assignment.Status == models.AssignmentStatusDraft {
		return dto.AssignmentResponse{}, ErrAssignmentNotFound
	}

	return dto.NewAssignmentResponse(assignment), nil
}

func (s *assignmentService) Create(ctx context.Context, actor ActivityActor, payload dto.AssignmentCreateRequest, file *multipart.FileHeader) (dto.AssignmentResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.AssignmentResponse{}, err
	}

	dueDate, err := time.Parse(time.RFC3339, payload.DueDate)
	if err != nil {
		return dto.AssignmentResponse{}, fmt.Errorf("invalid due date: %w", err)
	}

	assignment := models.Assignment{
		Title:            strings.TrimSpace(payload.Title),
		Description:      strings.TrimSpace(payload.Description),
		DueDate:          dueDate.UTC(),
		Points:           payload.Points,
		AllowedFileTypes: normalizeFileTypes(payload.AllowedFileTypes),
		Status:           payload.Status,
	}
	if assignment.Points <= 0 {
		assignment.Points = 100
	}
	if assignment.Status == "" {
		assignment.Status = models.AssignmentStatusPublished
	}
	if actor.ID > 0 {
		createdBy := actor.ID
		assignment.CreatedBy = &createdBy
	}

	if file != nil {
		url, err := s.uploadFile(ctx, file)
		if err != nil {
			return dto.AssignmentResponse{}, err
		}
		assignment.FileURL = url
	}

	if err := s.repo.Create(ctx, &assignment); err != nil {
		return dto.AssignmentResponse{}, err
	}

	if len(payload.CohortIDs) > 0 {
		if err := s.replaceCohorts(ctx, &assignment, payload.CohortIDs); err != nil {
			if delErr := s.repo.Delete(ctx, assignment.ID); delErr != nil {
				s.logger.Warn().Err(delErr).Uint("assignment_id", assignment.ID).Msg("failed to roll back assignment")
			}
			return dto.AssignmentResponse{}, err
		}
	}

	s.invalidateLists(ctx)
	recordActivity(ctx, s.activity, s.logger, actor, "assignment.created", "assignment", assignment.ID, map[string]interface{}{
		"title": assignment.Title,
	})
	s.logger.Info().Uint("assignment_id", assignment.ID).Msg("assignment created")

	return dto.NewAssignmentResponse(assignment), nil
}

func (s *assignmentService) Update(ctx context.Context, id uint, payload dto.AssignmentUpdateRequest, file *multipart.FileHeader, actor ActivityActor) (dto.AssignmentResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.AssignmentResponse{}, err
	}

	assignment, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.AssignmentResponse{}, ErrAssignmentNotFound
		}
		return dto.AssignmentResponse{}, err
	}

	if payload.Title != nil {
		assignment.Title = strings.TrimSpace(*payload.Title)
	}
	if payload.Description != nil {
		assignment.Description = strings.TrimSpace(*payload.Description)
	}
	if payload.DueDate != nil {
		dueDate, err := time.Parse(time.RFC3339, *payload.DueDate)
		if err != nil {
			return dto.AssignmentResponse{}, fmt.Errorf("invalid due date: %w", err)
		}
		assignment.DueDate = dueDate.UTC()
	}
	if payload.Points != nil && *payload.Points > 0 {
		assignment.Points = *payload.Points
	}
	if payload.AllowedFileTypes != nil {
		assignment.AllowedFileTypes = normalizeFileTypes(*payload.AllowedFileTypes)
	}
	if payload.Status != nil {
		assignment.Status = *payload.Status
	}

	if file != nil {
		url, err := s.uploadFile(ctx, file)
		if err != nil {
			return dto.AssignmentResponse{}, err
		}
		assignment.FileURL = url
	}

	if err := s.repo.Update(ctx, &assignment); err != nil {
		return dto.AssignmentResponse{}, err
	}

	if payload.CohortIDs != nil {
		if err := s.replaceCohorts(ctx, &assignment, *payload.CohortIDs); err != nil {
			return dto.AssignmentResponse{}, err
		}
	}

	s.invalidateLists(ctx)
	recordActivity(ctx, s.activity, s.logger, actor, "assignment.updated", "assignment", assignment.ID, nil)
	s.logger.Info().Uint("assignment_id", assignment.ID).Msg("assignment updated")

	return dto.NewAssignmentResponse(assignment), nil
}

func (s *assignmentService) Delete(ctx context.Context, id uint, actor ActivityActor) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrAssignmentNotFound
		}
		return err
	}

	s.invalidateLists(ctx)
	recordActivity(ctx, s.activity, s.logger, actor, "assignment.deleted", "assignment", id, nil)
	s.logger.Info().Uint("assignment_id", id).Msg("assignment deleted")
	return nil
}

func (s *assignmentService) replaceCohorts(ctx context.Context, assignment *models.Assignment, cohortIDs []uint) error {
	if err := s.repo.ReplaceCohorts(ctx, assignment, cohortIDs); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrCohortNotFound
		}
		return err
	}
	return nil
}

func (s *assignmentService) uploadFile(ctx context.Context, file *multipart.FileHeader) (string, error) {
	if s.uploader == nil {
		return "", ErrStorageUnavailable
	}

	src, err := file.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	defer src.Close()

	url, err := s.uploader.Upload(ctx, sanitizeFileName(file.Filename), src)
	if err != nil {
		return "", fmt.Errorf("failed to upload file: %w", err)
	}

	return url, nil
}

// listCacheKey embeds the current list generation so one INCR retires every
// cached page.
func (s *assignmentService) listCacheKey(ctx context.Context, filter repository.AssignmentFilter) string {
	if s.cache == nil {
		return ""
	}

	generation, err := s.cache.Get(ctx, assignmentListGenerationKey).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		s.logger.Warn().Err(err).Msg("failed to read assignment cache generation")
		return ""
	}

	raw, err := json.Marshal(filter)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(raw)
	return fmt.Sprintf("assignments:list:%d:%s", generation, hex.EncodeToString(sum[:]))
}

func (s *assignmentService) readCache(ctx context.Context, key string, target interface{}) bool {
	if key == "" {
		return false
	}

	cached, err := s.cache.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.logger.Warn().Err(err).Msg("failed to read assignment list cache")
		}
		observability.CacheLookups().WithLabelValues("assignments", "miss").Inc()
		return false
	}
	if err := json.Unmarshal(cached, target); err != nil {
		observability.CacheLookups().WithLabelValues("assignments", "miss").Inc()
		return false
	}

	observability.CacheLookups().WithLabelValues("assignments", "hit").Inc()
	return true
}

func (s *assignmentService) writeCache(ctx context.Context, key string, value interface{}) {
	if key == "" {
		return
	}

	payload, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, payload, s.cacheTTL).Err(); err != nil {
		s.logger.Warn().Err(err).Msg("failed to store assignment list cache")
	}
}

func (s *assignmentService) invalidateLists(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Incr(ctx, assignmentListGenerationKey).Err(); err != nil {
		s.logger.Warn().Err(err).Msg("failed to invalidate assignment list cache")
	}
}

func normalizeFileTypes(types []string) []string {
	normalized := make([]string, 0, len(types))
	seen := make(map[string]struct{}, len(types))
	for _, raw := range types {
		ext := submission.Extension("file." + strings.TrimPrefix(strings.TrimSpace(raw), "."))
		if ext == "" {
			continue
		}
		if _, ok := seen[ext]; ok {
			continue
		}
		seen[ext] = struct{}{}
		normalized = append(normalized, ext)
	}
	return normalized
}
