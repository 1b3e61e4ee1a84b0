package dto

import (
	"time"

	"github.com/noah-isme/gema-classroom/internal/models"
)

// SessionCreateRequest schedules a class session.
type SessionCreateRequest struct {
	CohortID    uint      `json:"cohort_id" validate:"required,gt=0"`
	TrainerID   *uint     `json:"trainer_id" validate:"omitempty,gt=0"`
	Title       string    `json:"title" validate:"required,min=3,max=255"`
	Description string    `json:"description" validate:"omitempty,max=5000"`
	StartsAt    time.Time `json:"starts_at" validate:"required"`
	EndsAt      time.Time `json:"ends_at" validate:"required,gtfield=StartsAt"`
	Location    string    `json:"location" validate:"omitempty,max=255"`
	MeetingURL  string    `json:"meeting_url" validate:"omitempty,url"`
}

// SessionUpdateRequest captures partial updates for sessions.
type SessionUpdateRequest struct {
	TrainerID   *uint      `json:"trainer_id" validate:"omitempty,gt=0"`
	Title       *string    `json:"title" validate:"omitempty,min=3,max=255"`
	Description *string    `json:"description" validate:"omitempty,max=5000"`
	StartsAt    *time.Time `json:"starts_at"`
	EndsAt      *time.Time `json:"ends_at"`
	Location    *string    `json:"location" validate:"omitempty,max=255"`
	MeetingURL  *string    `json:"meeting_url" validate:"omitempty,url"`
}

// SessionListRequest filters sessions.
type SessionListRequest struct {
	ListRequest
	CohortID uint   `query:"cohort_id"`
	From     string `query:"from"`
	To       string `query:"to"`
}

// SessionResponse serializes a session.
type SessionResponse struct {
	ID          uint      `json:"id"`
	CohortID    uint      `json:"cohort_id"`
	TrainerID   *uint     `json:"trainer_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	StartsAt    time.Time `json:"starts_at"`
	EndsAt      time.Time `json:"ends_at"`
	Location    string    `json:"location"`
	MeetingURL  string    `json:"meeting_url"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NewSessionResponse converts a session model into a DTO.
func NewSessionResponse(model models.Session) SessionResponse {
	return SessionResponse{
		ID:          model.ID,
		CohortID:    model.CohortID,
		TrainerID:   model.TrainerID,
		Title:       model.Title,
		Description: model.Description,
		StartsAt:    model.StartsAt,
		EndsAt:      model.EndsAt,
		Location:    model.Location,
		MeetingURL:  model.MeetingURL,
		CreatedAt:   model.CreatedAt,
		UpdatedAt:   model.UpdatedAt,
	}
}
