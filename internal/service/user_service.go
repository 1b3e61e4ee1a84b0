package service

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-classroom/internal/dto"
	"github.com/noah-isme/gema-classroom/internal/models"
	"github.com/noah-isme/gema-classroom/internal/repository"
	"github.com/noah-isme/gema-classroom/internal/submission"
)

var (
	// ErrUserNotFound indicates the user does not exist.
	ErrUserNotFound = errors.New("user not found")
	// ErrEmailTaken indicates another account already uses the email.
	ErrEmailTaken = errors.New("email already registered")
)

// UserService manages student, trainer and admin accounts.
type UserService interface {
	List(ctx context.Context, req dto.UserListRequest) (dto.ListResponse[dto.UserResponse], error)
	Get(ctx context.Context, id uint) (dto.UserResponse, error)
	Create(ctx context.Context, actor ActivityActor, payload dto.UserCreateRequest) (dto.UserResponse, error)
	Update(ctx context.Context, id uint, payload dto.UserUpdateRequest, actor ActivityActor) (dto.UserResponse, error)
	Delete(ctx context.Context, id uint, actor ActivityActor) error
}

type userService struct {
	repo      repository.UserRepository
	validator *validator.Validate
	activity  ActivityRecorder
	logger    zerolog.Logger
}

// NewUserService constructs the user service.
func NewUserService(repo repository.UserRepository, validate *validator.Validate, activity ActivityRecorder, logger zerolog.Logger) UserService {
	return &userService{
		repo:      repo,
		validator: validate,
		activity:  activity,
		logger:    logger.With().Str("component", "user_service").Logger(),
	}
}

func (s *userService) List(ctx context.Context, req dto.UserListRequest) (dto.ListResponse[dto.UserResponse], error) {
	paging := req.ListRequest.Normalize()
	filter := repository.UserFilter{
		Search:   paging.Search,
		Sort:     paging.Sort,
		Status:   strings.ToLower(strings.TrimSpace(req.Status)),
		Page:     paging.Page,
		PageSize: paging.PageSize,
	}
	if role := submission.ParseRole(req.Role); role != "" {
		filter.Role = string(role)
	}
	if req.CohortID > 0 {
		filter.CohortID = &req.CohortID
	}

	users, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return dto.ListResponse[dto.UserResponse]{}, err
	}

	items := make([]dto.UserResponse, 0, len(users))
	for _, user := range users {
		items = append(items, dto.NewUserResponse(user))
	}

	return dto.ListResponse[dto.UserResponse]{Items: items, Pagination: dto.NewPaginationMeta(paging, total)}, nil
}

func (s *userService) Get(ctx context.Context, id uint) (dto.UserResponse, error) {
	user, err := s.load(ctx, id)
	if err != nil {
		return dto.UserResponse{}, err
	}
	return dto.NewUserResponse(user), nil
}

func (s *userService) Create(ctx context.Context, actor ActivityActor, payload dto.UserCreateRequest) (dto.UserResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.UserResponse{}, err
	}

	user := models.User{
		Name:   strings.TrimSpace(payload.Name),
		Email:  strings.ToLower(strings.TrimSpace(payload.Email)),
		Role:   string(submission.ParseRole(payload.Role)),
		Status: payload.Status,
	}
	if user.Status == "" {
		user.Status = models.UserStatusActive
	}

	if err := s.repo.Create(ctx, &user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return dto.UserResponse{}, ErrEmailTaken
		}
		return dto.UserResponse{}, err
	}

	if len(payload.CohortIDs) > 0 {
		if err := s.replaceCohorts(ctx, &user, payload.CohortIDs); err != nil {
			return dto.UserResponse{}, err
		}
	}

	recordActivity(ctx, s.activity, s.logger, actor, "user.created", "user", user.ID, map[string]interface{}{
		"role":  user.Role,
		"email": user.Email,
	})

	return dto.NewUserResponse(user), nil
}

func (s *userService) Update(ctx context.Context, id uint, payload dto.UserUpdateRequest, actor ActivityActor) (dto.UserResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.UserResponse{}, err
	}

	user, err := s.load(ctx, id)
	if err != nil {
		return dto.UserResponse{}, err
	}

	changed := make([]string, 0, 5)
	if payload.Name != nil {
		user.Name = strings.TrimSpace(*payload.Name)
		changed = append(changed, "name")
	}
	if payload.Email != nil {
		user.Email = strings.ToLower(strings.TrimSpace(*payload.Email))
		changed = append(changed, "email")
	}
	if payload.Role != nil {
		user.Role = string(submission.ParseRole(*payload.Role))
		changed = append(changed, "role")
	}
	if payload.Status != nil {
		user.Status = *payload.Status
		changed = append(changed, "status")
	}

	if err := s.repo.Update(ctx, &user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return dto.UserResponse{}, ErrEmailTaken
		}
		return dto.UserResponse{}, err
	}

	if payload.CohortIDs != nil {
		if err := s.replaceCohorts(ctx, &user, *payload.CohortIDs); err != nil {
			return dto.UserResponse{}, err
		}
		changed = append(changed, "cohorts")
	}

	recordActivity(ctx, s.activity, s.logger, actor, "user.updated", "user", user.ID, map[string]interface{}{
		"fields": changed,
	})

	return dto.NewUserResponse(user), nil
}

func (s *userService) Delete(ctx context.Context, id uint, actor ActivityActor) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return err
	}

	recordActivity(ctx, s.activity, s.logger, actor, "user.deleted", "user", id, nil)
	return nil
}

func (s *userService) load(ctx context.Context, id uint) (models.User, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.User{}, ErrUserNotFound
		}
		return models.User{}, err
	}
	return user, nil
}

func (s *userService) replaceCohorts(ctx context.Context, user *models.User, cohortIDs []uint) error {
	if err := s.repo.ReplaceCohorts(ctx, user, cohortIDs); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrCohortNotFound
		}
		return err
	}
	return nil
}
