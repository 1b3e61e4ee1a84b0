package dto

import (
	"time"

	"github.com/noah-isme/gema-classroom/internal/models"
	"github.com/noah-isme/gema-classroom/internal/submission"
)

// CohortCreateRequest creates a cohort.
type CohortCreateRequest struct {
	Name        string     `json:"name" validate:"required,min=2,max=255"`
	Description string     `json:"description" validate:"omitempty,max=5000"`
	StartDate   *time.Time `json:"start_date"`
	EndDate     *time.Time `json:"end_date"`
	TrainerIDs  []uint     `json:"trainer_ids" validate:"omitempty,dive,gt=0"`
	StudentIDs  []uint     `json:"student_ids" validate:"omitempty,dive,gt=0"`
}

// CohortUpdateRequest captures partial updates for cohorts.
type CohortUpdateRequest struct {
	Name        *string    `json:"name" validate:"omitempty,min=2,max=255"`
	Description *string    `json:"description" validate:"omitempty,max=5000"`
	StartDate   *time.Time `json:"start_date"`
	EndDate     *time.Time `json:"end_date"`
	TrainerIDs  *[]uint    `json:"trainer_ids"`
	StudentIDs  *[]uint    `json:"student_ids"`
}

// CohortResponse serializes a cohort with its member ids split by role.
type CohortResponse struct {
	ID          uint       `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	StartDate   *time.Time `json:"start_date"`
	EndDate     *time.Time `json:"end_date"`
	TrainerIDs  []uint     `json:"trainer_ids"`
	StudentIDs  []uint     `json:"student_ids"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// NewCohortResponse converts a cohort model into a DTO.
func NewCohortResponse(model models.Cohort) CohortResponse {
	response := CohortResponse{
		ID:          model.ID,
		Name:        model.Name,
		Description: model.Description,
		StartDate:   model.StartDate,
		EndDate:     model.EndDate,
		TrainerIDs:  []uint{},
		StudentIDs:  []uint{},
		CreatedAt:   model.CreatedAt,
		UpdatedAt:   model.UpdatedAt,
	}
	for _, member := range model.Members {
		if submission.ParseRole(member.Role).IsInstructor() {
			response.TrainerIDs = append(response.TrainerIDs, member.ID)
			continue
		}
		response.StudentIDs = append(response.StudentIDs, member.ID)
	}
	return response
}
