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
)

var (
	// ErrResourceNotFound indicates the resource does not exist.
	ErrResourceNotFound = errors.New("resource not found")
	// ErrCategoryNotFound indicates the category does not exist.
	ErrCategoryNotFound = errors.New("category not found")
	// ErrCategoryTaken indicates another category already uses the slug.
	ErrCategoryTaken = errors.New("category slug already in use")
	// ErrSearchQueryRequired indicates a search without a query string.
	ErrSearchQueryRequired = errors.New("search query is required")
)

// ResourceService manages shared learning resources.
type ResourceService interface {
	List(ctx context.Context, req dto.ResourceListRequest) (dto.ListResponse[dto.ResourceResponse], error)
	Search(ctx context.Context, req dto.ResourceListRequest) (dto.ListResponse[dto.ResourceResponse], error)
	Get(ctx context.Context, id uint) (dto.ResourceResponse, error)
	Create(ctx context.Context, actor ActivityActor, payload dto.ResourceCreateRequest) (dto.ResourceResponse, error)
	Update(ctx context.Context, id uint, payload dto.ResourceUpdateRequest, actor ActivityActor) (dto.ResourceResponse, error)
	Delete(ctx context.Context, id uint, actor ActivityActor) error
}

type resourceService struct {
	repo       repository.ResourceRepository
	categories repository.CategoryRepository
	validator  *validator.Validate
	activity   ActivityRecorder
	logger     zerolog.Logger
}

// NewResourceService constructs the resource service.
func NewResourceService(repo repository.ResourceRepository, categories repository.CategoryRepository, validate *validator.Validate, activity ActivityRecorder, logger zerolog.Logger) ResourceService {
	return &resourceService{
		repo:       repo,
		categories: categories,
		validator:  validate,
		activity:   activity,
		logger:     logger.With().Str("component", "resource_service").Logger(),
	}
}

func (s *resourceService) List(ctx context.Context, req dto.ResourceListRequest) (dto.ListResponse[dto.ResourceResponse], error) {
	paging := req.ListRequest.Normalize()
	filter := repository.ResourceFilter{
		Search:   paging.Search,
		Sort:     paging.Sort,
		Type:     strings.ToLower(strings.TrimSpace(req.Type)),
		Tag:      strings.ToLower(strings.TrimSpace(req.Tag)),
		Page:     paging.Page,
		PageSize: paging.PageSize,
	}
	if req.CategoryID > 0 {
		filter.CategoryID = &req.CategoryID
	}

	resources, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return dto.ListResponse[dto.ResourceResponse]{}, err
	}

	items := make([]dto.ResourceResponse, 0, len(resources))
	for _, resource := range resources {
		items = append(items, dto.NewResourceResponse(resource))
	}

	return dto.ListResponse[dto.ResourceResponse]{Items: items, Pagination: dto.NewPaginationMeta(paging, total)}, nil
}

func (s *resourceService) Search(ctx context.Context, req dto.ResourceListRequest) (dto.ListResponse[dto.ResourceResponse], error) {
	if strings.TrimSpace(req.Search) == "" {
		return dto.ListResponse[dto.ResourceResponse]{}, ErrSearchQueryRequired
	}
	return s.List(ctx, req)
}

func (s *resourceService) Get(ctx context.Context, id uint) (dto.ResourceResponse, error) {
	resource, err := s.load(ctx, id)
	if err != nil {
		return dto.ResourceResponse{}, err
	}
	return dto.NewResourceResponse(resource), nil
}

func (s *resourceService) Create(ctx context.Context, actor ActivityActor, payload dto.ResourceCreateRequest) (dto.ResourceResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.ResourceResponse{}, err
	}

	resource := models.Resource{
		Title:       strings.TrimSpace(payload.Title),
		Description: strings.TrimSpace(payload.Description),
		URL:         strings.TrimSpace(payload.URL),
		Type:        payload.Type,
		Tags:        normalizeTags(payload.Tags),
	}
	if resource.Type == "" {
		resource.Type = "link"
	}
	if payload.CategoryID != nil {
		category, err := s.category(ctx, *payload.CategoryID)
		if err != nil {
			return dto.ResourceResponse{}, err
		}
		resource.CategoryID = &category.ID
		resource.Category = &category
	}

	if err := s.repo.Create(ctx, &resource); err != nil {
		return dto.ResourceResponse{}, err
	}

	recordActivity(ctx, s.activity, s.logger, actor, "resource.created", "resource", resource.ID, map[string]interface{}{
		"type": resource.Type,
	})

	return dto.NewResourceResponse(resource), nil
}

func (s *resourceService) Update(ctx context.Context, id uint, payload dto.ResourceUpdateRequest, actor ActivityActor) (dto.ResourceResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.ResourceResponse{}, err
	}

	resource, err := s.load(ctx, id)
	if err != nil {
		return dto.ResourceResponse{}, err
	}

	if payload.Title != nil {
		resource.Title = strings.TrimSpace(*payload.Title)
	}
	if payload.Description != nil {
		resource.Description = strings.TrimSpace(*payload.Description)
	}
	if payload.URL != nil {
		resource.URL = strings.TrimSpace(*payload.URL)
	}
	if payload.Type != nil {
		resource.Type = *payload.Type
	}
	if payload.Tags != nil {
		resource.Tags = normalizeTags(*payload.Tags)
	}
	if payload.CategoryID != nil {
		category, err := s.category(ctx, *payload.CategoryID)
		if err != nil {
			return dto.ResourceResponse{}, err
		}
		resource.CategoryID = &category.ID
		resource.Category = &category
	}

	if err := s.repo.Update(ctx, &resource); err != nil {
		return dto.ResourceResponse{}, err
	}

	recordActivity(ctx, s.activity, s.logger, actor, "resource.updated", "resource", resource.ID, nil)

	return dto.NewResourceResponse(resource), nil
}

func (s *resourceService) Delete(ctx context.Context, id uint, actor ActivityActor) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrResourceNotFound
		}
		return err
	}

	recordActivity(ctx, s.activity, s.logger, actor, "resource.deleted", "resource", id, nil)
	return nil
}

func (s *resourceService) load(ctx context.Context, id uint) (models.Resource, error) {
	resource, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Resource{}, ErrResourceNotFound
		}
		return models.Resource{}, err
	}
	return resource, nil
}

func (s *resourceService) category(ctx context.Context, id uint) (models.Category, error) {
	category, err := s.categories.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Category{}, ErrCategoryNotFound
		}
		return models.Category{}, err
	}
	return category, nil
}

func normalizeTags(tags []string) []string {
	normalized := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		normalized = append(normalized, tag)
	}
	return normalized
}

// CategoryService manages resource categories.
type CategoryService interface {
	List(ctx context.Context, search string) ([]dto.CategoryResponse, error)
	Get(ctx context.Context, id uint) (dto.CategoryResponse, error)
	Create(ctx context.Context, actor ActivityActor, payload dto.CategoryRequest) (dto.CategoryResponse, error)
	Update(ctx context.Context, id uint, payload dto.CategoryRequest, actor ActivityActor) (dto.CategoryResponse, error)
	Delete(ctx context.Context, id uint, actor ActivityActor) error
}

type categoryService struct {
	repo      repository.CategoryRepository
	validator *validator.Validate
	activity  ActivityRecorder
	logger    zerolog.Logger
}

// NewCategoryService constructs the category service.
func NewCategoryService(repo repository.CategoryRepository, validate *validator.Validate, activity ActivityRecorder, logger zerolog.Logger) CategoryService {
	return &categoryService{
		repo:      repo,
		validator: validate,
		activity:  activity,
		logger:    logger.With().Str("component", "category_service").Logger(),
	}
}

func (s *categoryService) List(ctx context.Context, search string) ([]dto.CategoryResponse, error) {
	categories, err := s.repo.List(ctx, search)
	if err != nil {
		return nil, err
	}

	items := make([]dto.CategoryResponse, 0, len(categories))
	for _, category := range categories {
		items = append(items, dto.NewCategoryResponse(category))
	}
	return items, nil
}

func (s *categoryService) Get(ctx context.Context, id uint) (dto.CategoryResponse, error) {
	category, err := s.load(ctx, id)
	if err != nil {
		return dto.CategoryResponse{}, err
	}
	return dto.NewCategoryResponse(category), nil
}

func (s *categoryService) Create(ctx context.Context, actor ActivityActor, payload dto.CategoryRequest) (dto.CategoryResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.CategoryResponse{}, err
	}

	category := models.Category{
		Name: strings.TrimSpace(payload.Name),
		Slug: slugify(payload.Slug),
	}
	if category.Slug == "" {
		category.Slug = slugify(category.Name)
	}

	if err := s.repo.Create(ctx, &category); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return dto.CategoryResponse{}, ErrCategoryTaken
		}
		return dto.CategoryResponse{}, err
	}

	recordActivity(ctx, s.activity, s.logger, actor, "category.created", "category", category.ID, map[string]interface{}{
		"slug": category.Slug,
	})

	return dto.NewCategoryResponse(category), nil
}

func (s *categoryService) Update(ctx context.Context, id uint, payload dto.CategoryRequest, actor ActivityActor) (dto.CategoryResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.CategoryResponse{}, err
	}

	category, err := s.load(ctx, id)
	if err != nil {
		return dto.CategoryResponse{}, err
	}

	category.Name = strings.TrimSpace(payload.Name)
	if slug := slugify(payload.Slug); slug != "" {
		category.Slug = slug
	}

	if err := s.repo.Update(ctx, &category); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return dto.CategoryResponse{}, ErrCategoryTaken
		}
		return dto.CategoryResponse{}, err
	}

	recordActivity(ctx, s.activity, s.logger, actor, "category.updated", "category", category.ID, nil)

	return dto.NewCategoryResponse(category), nil
}

func (s *categoryService) Delete(ctx context.Context, id uint, actor ActivityActor) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrCategoryNotFound
		}
		return err
	}

	recordActivity(ctx, s.activity, s.logger, actor, "category.deleted", "category", id, nil)
	return nil
}

func (s *categoryService) load(ctx context.Context, id uint) (models.Category, error) {
	category, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Category{}, ErrCategoryNotFound
		}
		return models.Category{}, err
	}
	return category, nil
}

func slugify(value string) string {
	value = strings.ToLower(strings.TrimSpace(value))
	var b strings.Builder
	dash := false
	for _, r := range value {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
