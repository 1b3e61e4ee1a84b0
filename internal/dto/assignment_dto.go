package dto

import (
	"time"

	"github.com/noah-isme/gema-classroom/internal/models"
)

// AssignmentCreateRequest describes the payload for creating a new assignment.
type AssignmentCreateRequest struct {
	Title            string   `form:"title" json:"title" validate:"required,min=3"`
	Description      string   `form:"description" json:"description" validate:"omitempty,max=10000"`
	DueDate          string   `form:"due_date" json:"due_date" validate:"required,datetime=2006-01-02T15:04:05Z07:00"`
	Points           float64  `form:"points" json:"points" validate:"omitempty,gte=0"`
	AllowedFileTypes []string `form:"allowed_file_types" json:"allowed_file_types" validate:"omitempty,dive,min=1,max=16"`
	Status           string   `form:"status" json:"status" validate:"omitempty,oneof=published draft closed"`
	CohortIDs        []uint   `form:"cohort_ids" json:"cohort_ids" validate:"omitempty,dive,gt=0"`
}

// AssignmentUpdateRequest describes the payload for updating an assignment.
type AssignmentUpdateRequest struct {
	Title            *string   `form:"title" json:"title" validate:"omitempty,min=3"`
	Description      *string   `form:"description" json:"description" validate:"omitempty,max=10000"`
	DueDate          *string   `form:"due_date" json:"due_date" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
	Points           *float64  `form:"points" json:"points" validate:"omitempty,gte=0"`
	AllowedFileTypes *[]string `form:"allowed_file_types" json:"allowed_file_types"`
	Status           *string   `form:"status" json:"status" validate:"omitempty,oneof=published draft closed"`
	CohortIDs        *[]uint   `form:"cohort_ids" json:"cohort_ids"`
}

// AssignmentListRequest adds assignment-specific filters to a list query.
type AssignmentListRequest struct {
	ListRequest
	Status   string `query:"status"`
	CohortID uint   `query:"cohort_id"`
}

// AssignmentResponse is the serialized representation returned to API clients.
type AssignmentResponse struct {
	ID               uint         `json:"id"`
	Title            string       `json:"title"`
	Description      string       `json:"description"`
	DueDate          time.Time    `json:"due_date"`
	Points           float64      `json:"points"`
	AllowedFileTypes []string     `json:"allowed_file_types"`
	Status           string       `json:"status"`
	FileURL          string       `json:"file_url"`
	Cohorts          []CohortLite `json:"cohorts"`
	CreatedAt        time.Time    `json:"created_at"`
	UpdatedAt        time.Time    `json:"updated_at"`
}

// CohortLite summarizes a cohort inside other resources.
type CohortLite struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

// NewAssignmentResponse converts a model into a DTO.
func NewAssignmentResponse(model models.Assignment) AssignmentResponse {
	response := AssignmentResponse{
		ID:               model.ID,
		Title:            model.Title,
		Description:      model.Description,
		DueDate:          model.DueDate,
		Points:           model.Points,
		AllowedFileTypes: append([]string{}, model.AllowedFileTypes...),
		Status:           model.Status,
		FileURL:          model.FileURL,
		Cohorts:          make([]CohortLite, 0, len(model.Cohorts)),
		CreatedAt:        model.CreatedAt,
		UpdatedAt:        model.UpdatedAt,
	}
	for _, cohort := range model.Cohorts {
		response.Cohorts = append(response.Cohorts, CohortLite{ID: cohort.ID, Name: cohort.Name})
	}

	return response
}

// NewAssignmentResponseSlice converts a slice of models into DTOs.
func NewAssignmentResponseSlice(assignments []models.Assignment) []AssignmentResponse {
	responses := make([]AssignmentResponse, 0, len(assignments))
	for _, assignment := range assignments {
		responses = append(responses, NewAssignmentResponse(assignment))
	}

	return responses
}
