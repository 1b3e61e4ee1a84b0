package service

import (
	"context"
	"errors"
	"fmt"
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
	// ErrCohortNameTaken indicates a cohort with the same name exists.
	ErrCohortNameTaken = errors.New("cohort name already in use")
	// ErrCohortDates indicates the end date precedes the start date.
	ErrCohortDates = errors.New("cohort end date must not precede the start date")
	// ErrMemberRole indicates a user was listed under the wrong cohort role.
	ErrMemberRole = errors.New("cohort member has the wrong role")
)

// CohortService manages cohorts and their trainer/student membership.
type CohortService interface {
	List(ctx context.Context, req dto.ListRequest) (dto.ListResponse[dto.CohortResponse], error)
	Get(ctx context.Context, id uint) (dto.CohortResponse, error)
	Create(ctx context.Context, actor ActivityActor, payload dto.CohortCreateRequest) (dto.CohortResponse, error)
	Update(ctx context.Context, id uint, payload dto.CohortUpdateRequest, actor ActivityActor) (dto.CohortResponse, error)
	Delete(ctx context.Context, id uint, actor ActivityActor) error
}

type cohortService struct {
	repo      repository.CohortRepository
	users     repository.UserRepository
	validator *validator.Validate
	activity  ActivityRecorder
	logger    zerolog.Logger
}

// NewCohortService constructs the cohort service.
func NewCohortService(repo repository.CohortRepository, users repository.UserRepository, validate *validator.Validate, activity ActivityRecorder, logger zerolog.Logger) CohortService {
	return &cohortService{
		repo:      repo,
		users:     users,
		validator: validate,
		activity:  activity,
		logger:    logger.With().Str("component", "cohort_service").Logger(),
	}
}

func (s *cohortService) List(ctx context.Context, req dto.ListRequest) (dto.ListResponse[dto.CohortResponse], error) {
	paging := req.Normalize()
	cohorts, total, err := s.repo.List(ctx, repository.CohortFilter{
		Search:   paging.Search,
		Sort:     paging.Sort,
		Page:     paging.Page,
		PageSize: paging.PageSize,
	})
	if err != nil {
		return dto.ListResponse[dto.CohortResponse]{}, err
	}

	items := make([]dto.CohortResponse, 0, len(cohorts))
	for _, cohort := range cohorts {
		items = append(items, dto.NewCohortResponse(cohort))
	}

	return dto.ListResponse[dto.CohortResponse]{Items: items, Pagination: dto.NewPaginationMeta(paging, total)}, nil
}

func (s *cohortService) Get(ctx context.Context, id uint) (dto.CohortResponse, error) {
	cohort, err := s.load(ctx, id)
	if err != nil {
		return dto.CohortResponse{}, err
	}
	return dto.NewCohortResponse(cohort), nil
}

func (s *cohortService) Create(ctx context.Context, actor ActivityActor, payload dto.CohortCreateRequest) (dto.CohortResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.CohortResponse{}, err
	}

	cohort := models.Cohort{
		Name:        strings.TrimSpace(payload.Name),
		Description: strings.TrimSpace(payload.Description),
		StartDate:   payload.StartDate,
		EndDate:     payload.EndDate,
	}
	if err := validateCohortDates(cohort); err != nil {
		return dto.CohortResponse{}, err
	}

	memberIDs, err := s.memberIDs(ctx, payload.TrainerIDs, payload.StudentIDs)
	if err != nil {
		return dto.CohortResponse{}, err
	}

	if err := s.repo.Create(ctx, &cohort); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return dto.CohortResponse{}, ErrCohortNameTaken
		}
		return dto.CohortResponse{}, err
	}

	if len(memberIDs) > 0 {
		if err := s.repo.ReplaceMembers(ctx, &cohort, memberIDs); err != nil {
			return dto.CohortResponse{}, mapMemberError(err)
		}
	}

	recordActivity(ctx, s.activity, s.logger, actor, "cohort.created", "cohort", cohort.ID, map[string]interface{}{
		"members": len(memberIDs),
	})

	return dto.NewCohortResponse(cohort), nil
}

func (s *cohortService) Update(ctx context.Context, id uint, payload dto.CohortUpdateRequest, actor ActivityActor) (dto.CohortResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.CohortResponse{}, err
	}

	cohort, err := s.load(ctx, id)
	if err != nil {
		return dto.CohortResponse{}, err
	}

	if payload.Name != nil {
		cohort.Name = strings.TrimSpace(*payload.Name)
	}
	if payload.Description != nil {
		cohort.Description = strings.TrimSpace(*payload.Description)
	}
	if payload.StartDate != nil {
		cohort.StartDate = payload.StartDate
	}
	if payload.EndDate != nil {
		cohort.EndDate = payload.EndDate
	}
	if err := validateCohortDates(cohort); err != nil {
		return dto.CohortResponse{}, err
	}

	var memberIDs []uint
	replaceMembers := payload.TrainerIDs != nil || payload.StudentIDs != nil
	if replaceMembers {
		trainers, students := splitMembers(cohort.Members)
		if payload.TrainerIDs != nil {
			trainers = *payload.TrainerIDs
		}
		if payload.StudentIDs != nil {
			students = *payload.StudentIDs
		}
		if memberIDs, err = s.memberIDs(ctx, trainers, students); err != nil {
			return dto.CohortResponse{}, err
		}
	}

	if err := s.repo.Update(ctx, &cohort); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return dto.CohortResponse{}, ErrCohortNameTaken
		}
		return dto.CohortResponse{}, err
	}

	if replaceMembers {
		if err := s.repo.ReplaceMembers(ctx, &cohort, memberIDs); err != nil {
			return dto.CohortResponse{}, mapMemberError(err)
		}
	}

	recordActivity(ctx, s.activity, s.logger, actor, "cohort.updated", "cohort", cohort.ID, nil)

	return dto.NewCohortResponse(cohort), nil
}

func (s *cohortService) Delete(ctx context.Context, id uint, actor ActivityActor) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrCohortNotFound
		}
		return err
	}

	recordActivity(ctx, s.activity, s.logger, actor, "cohort.deleted", "cohort", id, nil)
	return nil
}

func (s *cohortService) load(ctx context.Context, id uint) (models.Cohort, error) {
	cohort, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Cohort{}, ErrCohortNotFound
		}
		return models.Cohort{}, err
	}
	return cohort, nil
}

// memberIDs checks that every trainer id is an instructor and every student
// id a student, then merges both lists.
func (s *cohortService) memberIDs(ctx context.Context, trainerIDs, studentIDs []uint) ([]uint, error) {
	ids := make([]uint, 0, len(trainerIDs)+len(studentIDs))
	check := func(id uint, wantInstructor bool) error {
		user, err := s.users.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("user %d: %w", id, ErrUserNotFound)
			}
			return err
		}
		if submission.ParseRole(user.Role).IsInstructor() != wantInstructor {
			return fmt.Errorf("user %d: %w", id, ErrMemberRole)
		}
		ids = append(ids, id)
		return nil
	}

	for _, id := range trainerIDs {
		if err := check(id, true); err != nil {
			return nil, err
		}
	}
	for _, id := range studentIDs {
		if err := check(id, false); err != nil {
			return nil, err
		}
	}
	return ids, nil
}

func splitMembers(members []models.User) ([]uint, []uint) {
	trainers := make([]uint, 0, len(members))
	students := make([]uint, 0, len(members))
	for _, member := range members {
		if submission.ParseRole(member.Role).IsInstructor() {
			trainers = append(trainers, member.ID)
			continue
		}
		students = append(students, member.ID)
	}
	return trainers, students
}

func validateCohortDates(cohort models.Cohort) error {
	if cohort.StartDate != nil && cohort.EndDate != nil && cohort.EndDate.Before(*cohort.StartDate) {
		return ErrCohortDates
	}
	return nil
}

func mapMemberError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrUserNotFound
	}
	return err
}
