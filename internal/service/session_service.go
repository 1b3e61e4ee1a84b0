package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-classroom/internal/dto"
	"github.com/noah-isme/gema-classroom/internal/models"
	"github.com/noah-isme/gema-classroom/internal/repository"
)

var (
	// ErrSessionNotFound indicates the session does not exist.
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionWindow indicates a session that ends before it starts.
	ErrSessionWindow = errors.New("session must end after it starts")
	// ErrInvalidDateFilter indicates a from/to filter that is not RFC3339.
	ErrInvalidDateFilter = errors.New("date filters must be RFC3339 timestamps")
)

// SessionService manages scheduled class sessions.
type SessionService interface {
	List(ctx context.Context, req dto.SessionListRequest, actor ActivityActor) (dto.ListResponse[dto.SessionResponse], error)
	Get(ctx context.Context, id uint) (dto.SessionResponse, error)
	Create(ctx context.Context, actor ActivityActor, payload dto.SessionCreateRequest) (dto.SessionResponse, error)
	Update(ctx context.Context, id uint, payload dto.SessionUpdateRequest, actor ActivityActor) (dto.SessionResponse, error)
	Delete(ctx context.Context, id uint, actor ActivityActor) error
}

type sessionService struct {
	repo      repository.SessionRepository
	cohorts   repository.CohortRepository
	users     repository.UserRepository
	validator *validator.Validate
	activity  ActivityRecorder
	logger    zerolog.Logger
}

// NewSessionService constructs the session service.
func NewSessionService(repo repository.SessionRepository, cohorts repository.CohortRepository, users repository.UserRepository, validate *validator.Validate, activity ActivityRecorder, logger zerolog.Logger) SessionService {
	return &sessionService{
		repo:      repo,
		cohorts:   cohorts,
		users:     users,
		validator: validate,
		activity:  activity,
		logger:    logger.With().Str("component", "session_service").Logger(),
	}
}

func (s *sessionService) List(ctx context.Context, req dto.SessionListRequest, actor ActivityActor) (dto.ListResponse[dto.SessionResponse], error) {
	paging := req.ListRequest.Normalize()
	filter := repository.SessionFilter{
		Search:   paging.Search,
		Sort:     paging.Sort,
		Page:     paging.Page,
		PageSize: paging.PageSize,
	}
	if req.CohortID > 0 {
		filter.CohortID = &req.CohortID
	}

	var err error
	if filter.From, err = parseTimeFilter(req.From); err != nil {
		return dto.ListResponse[dto.SessionResponse]{}, err
	}
	if filter.To, err = parseTimeFilter(req.To); err != nil {
		return dto.ListResponse[dto.SessionResponse]{}, err
	}

	if !actor.IsInstructor() {
		cohortIDs, err := s.users.CohortIDs(ctx, actor.ID)
		if err != nil {
			return dto.ListResponse[dto.SessionResponse]{}, err
		}
		filter.CohortIDs = cohortIDs
	}

	sessions, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return dto.ListResponse[dto.SessionResponse]{}, err
	}

	items := make([]dto.SessionResponse, 0, len(sessions))
	for _, session := range sessions {
		items = append(items, dto.NewSessionResponse(session))
	}

	return dto.ListResponse[dto.SessionResponse]{Items: items, Pagination: dto.NewPaginationMeta(paging, total)}, nil
}

func (s *sessionService) Get(ctx context.Context, id uint) (dto.SessionResponse, error) {
	session, err := s.load(ctx, id)
	if err != nil {
		return dto.SessionResponse{}, err
	}
	return dto.NewSessionResponse(session), nil
}

func (s *sessionService) Create(ctx context.Context, actor ActivityActor, payload dto.SessionCreateRequest) (dto.SessionResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.SessionResponse{}, err
	}

	if _, err := s.cohorts.GetByID(ctx, payload.CohortID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SessionResponse{}, ErrCohortNotFound
		}
		return dto.SessionResponse{}, err
	}

	session := models.Session{
		CohortID:    payload.CohortID,
		TrainerID:   payload.TrainerID,
		Title:       strings.TrimSpace(payload.Title),
		Description: strings.TrimSpace(payload.Description),
		StartsAt:    payload.StartsAt.UTC(),
		EndsAt:      payload.EndsAt.UTC(),
		Location:    strings.TrimSpace(payload.Location),
		MeetingURL:  strings.TrimSpace(payload.MeetingURL),
	}

	if err := s.repo.Create(ctx, &session); err != nil {
		return dto.SessionResponse{}, err
	}

	recordActivity(ctx, s.activity, s.logger, actor, "session.created", "session", session.ID, map[string]interface{}{
		"cohort_id": session.CohortID,
	})

	return dto.NewSessionResponse(session), nil
}

func (s *sessionService) Update(ctx context.Context, id uint, payload dto.SessionUpdateRequest, actor ActivityActor) (dto.SessionResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.SessionResponse{}, err
	}

	session, err := s.load(ctx, id)
	if err != nil {
		return dto.SessionResponse{}, err
	}

	if payload.TrainerID != nil {
		session.TrainerID = payload.TrainerID
	}
	if payload.Title != nil {
		session.Title = strings.TrimSpace(*payload.Title)
	}
	if payload.Description != nil {
		session.Description = strings.TrimSpace(*payload.Description)
	}
	if payload.StartsAt != nil {
		session.StartsAt = payload.StartsAt.UTC()
	}
	if payload.EndsAt != nil {
		session.EndsAt = payload.EndsAt.UTC()
	}
	if payload.Location != nil {
		session.Location = strings.TrimSpace(*payload.Location)
	}
	if payload.MeetingURL != nil {
		session.MeetingURL = strings.TrimSpace(*payload.MeetingURL)
	}

	if !session.EndsAt.After(session.StartsAt) {
		return dto.SessionResponse{}, ErrSessionWindow
	}

	if err := s.repo.Update(ctx, &session); err != nil {
		return dto.SessionResponse{}, err
	}

	recordActivity(ctx, s.activity, s.logger, actor, "session.updated", "session", session.ID, nil)

	return dto.NewSessionResponse(session), nil
}

func (s *sessionService) Delete(ctx context.Context, id uint, actor ActivityActor) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrSessionNotFound
		}
		return err
	}

	recordActivity(ctx, s.activity, s.logger, actor, "session.deleted", "session", id, nil)
	return nil
}

func (s *sessionService) load(ctx context.Context, id uint) (models.Session, error) {
	session, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Session{}, ErrSessionNotFound
		}
		return models.Session{}, err
	}
	return session, nil
}

func parseTimeFilter(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	parsed, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, fmt.Errorf("%q: %w", raw, ErrInvalidDateFilter)
	}
	return &parsed, nil
}
