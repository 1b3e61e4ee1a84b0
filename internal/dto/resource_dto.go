package dto

import (
	"time"

	"github.com/noah-isme/gema-classroom/internal/models"
)

// ResourceCreateRequest shares a learning resource.
type ResourceCreateRequest struct {
	Title       string   `json:"title" validate:"required,min=3,max=255"`
	Description string   `json:"description" validate:"omitempty,max=5000"`
	URL         string   `json:"url" validate:"required,url"`
	Type        string   `json:"type" validate:"omitempty,oneof=link document video"`
	CategoryID  *uint    `json:"category_id" validate:"omitempty,gt=0"`
	Tags        []string `json:"tags" validate:"omitempty,max=10,dive,min=1,max=32"`
}

// ResourceUpdateRequest captures partial updates for resources.
type ResourceUpdateRequest struct {
	Title       *string   `json:"title" validate:"omitempty,min=3,max=255"`
	Description *string   `json:"description" validate:"omitempty,max=5000"`
	URL         *string   `json:"url" validate:"omitempty,url"`
	Type        *string   `json:"type" validate:"omitempty,oneof=link document video"`
	CategoryID  *uint     `json:"category_id" validate:"omitempty,gt=0"`
	Tags        *[]string `json:"tags"`
}

// ResourceListRequest filters resources.
type ResourceListRequest struct {
	ListRequest
	CategoryID uint   `query:"category_id"`
	Type       string `query:"type"`
	Tag        string `query:"tag"`
}

// ResourceResponse serializes a resource.
type ResourceResponse struct {
	ID          uint              `json:"id"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
	URL         string            `json:"url"`
	Type        string            `json:"type"`
	CategoryID  *uint             `json:"category_id"`
	Category    *CategoryResponse `json:"category,omitempty"`
	Tags        []string          `json:"tags"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// CategoryRequest creates or renames a category.
type CategoryRequest struct {
	Name string `json:"name" validate:"required,min=2,max=128"`
	Slug string `json:"slug" validate:"omitempty,min=2,max=128"`
}

// CategoryResponse serializes a category.
type CategoryResponse struct {
	ID        uint      `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewCategoryResponse converts a category model into a DTO.
func NewCategoryResponse(model models.Category) CategoryResponse {
	return CategoryResponse{
		ID:        model.ID,
		Name:      model.Name,
		Slug:      model.Slug,
		CreatedAt: model.CreatedAt,
		UpdatedAt: model.UpdatedAt,
	}
}

// NewResourceResponse converts a resource model into a DTO.
func NewResourceResponse(model models.Resource) ResourceResponse {
	response := ResourceResponse{
		ID:          model.ID,
		Title:       model.Title,
		Description: model.Description,
		URL:         model.URL,
		Type:        model.Type,
		CategoryID:  model.CategoryID,
		Tags:        append([]string{}, model.Tags...),
		CreatedAt:   model.CreatedAt,
		UpdatedAt:   model.UpdatedAt,
	}
	if model.Category != nil && model.Category.ID != 0 {
		category := NewCategoryResponse(*model.Category)
		response.Category = &category
	}
	return response
}
