package dto

import (
	"time"

	"github.com/noah-isme/gema-classroom/internal/models"
)

// UserCreateRequest creates a user account.
type UserCreateRequest struct {
	Name      string `json:"name" validate:"required,min=2,max=255"`
	Email     string `json:"email" validate:"required,email"`
	Role      string `json:"role" validate:"required,oneof=student trainer admin"`
	Status    string `json:"status" validate:"omitempty,oneof=active inactive"`
	CohortIDs []uint `json:"cohort_ids" validate:"omitempty,dive,gt=0"`
}

// UserUpdateRequest captures partial updates for users.
type UserUpdateRequest struct {
	Name      *string `json:"name" validate:"omitempty,min=2,max=255"`
	Email     *string `json:"email" validate:"omitempty,email"`
	Role      *string `json:"role" validate:"omitempty,oneof=student trainer admin"`
	Status    *string `json:"status" validate:"omitempty,oneof=active inactive"`
	CohortIDs *[]uint `json:"cohort_ids"`
}

// UserListRequest filters users.
type UserListRequest struct {
	ListRequest
	Role     string `query:"role"`
	Status   string `query:"status"`
	CohortID uint   `query:"cohort_id"`
}

// UserResponse serializes user data.
type UserResponse struct {
	ID        uint         `json:"id"`
	Name      string       `json:"name"`
	Email     string       `json:"email"`
	Role      string       `json:"role"`
	Status    string       `json:"status"`
	CohortIDs []uint       `json:"cohort_ids"`
	Cohorts   []CohortLite `json:"cohorts"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// UserLite summarizes a user without exposing full profile data.
type UserLite struct {
	ID    uint   `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// NewUserLite converts a user into its summary form.
func NewUserLite(model models.User) UserLite {
	return UserLite{ID: model.ID, Name: model.Name, Email: model.Email}
}

// NewUserResponse converts a user model into a DTO.
func NewUserResponse(model models.User) UserResponse {
	response := UserResponse{
		ID:        model.ID,
		Name:      model.Name,
		Email:     model.Email,
		Role:      model.Role,
		Status:    model.Status,
		CohortIDs: make([]uint, 0, len(model.Cohorts)),
		Cohorts:   make([]CohortLite, 0, len(model.Cohorts)),
		CreatedAt: model.CreatedAt,
		UpdatedAt: model.UpdatedAt,
	}
	for _, cohort := range model.Cohorts {
		response.CohortIDs = append(response.CohortIDs, cohort.ID)
		response.Cohorts = append(response.Cohorts, CohortLite{ID: cohort.ID, Name: cohort.Name})
	}
	return response
}
