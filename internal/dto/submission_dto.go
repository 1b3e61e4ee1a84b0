package dto

import (
	"time"

	"github.com/noah-isme/gema-classroom/internal/models"
	"github.com/noah-isme/gema-classroom/internal/submission"
)

// SubmissionContentPayload is the body students send when writing a submission.
type SubmissionContentPayload struct {
	Text  string            `json:"text" validate:"omitempty,max=50000"`
	Links []submission.Link `json:"links" validate:"omitempty,max=20,dive"`
	Files []submission.File `json:"files" validate:"omitempty,max=20,dive"`
}

// ToContent converts the payload into normalized domain content.
func (p SubmissionContentPayload) ToContent() submission.Content {
	return submission.Content{Text: p.Text, Links: p.Links, Files: p.Files}.Normalized()
}

// SubmissionCreateRequest creates a draft for the calling student.
type SubmissionCreateRequest struct {
	AssignmentID uint                     `json:"assignment_id" validate:"required,gt=0"`
	Content      SubmissionContentPayload `json:"content"`
}

// SubmissionUpdateRequest replaces the content of an existing submission.
type SubmissionUpdateRequest struct {
	Content SubmissionContentPayload `json:"content"`
	Version uint                     `json:"version" validate:"required,gt=0"`
}

// SubmissionGradeRequest grades a submission. Version is optional; when set
// it must match the stored version.
type SubmissionGradeRequest struct {
	Score    *float64 `json:"score" validate:"required,gte=0"`
	Feedback string   `json:"feedback" validate:"omitempty,max=10000"`
	Version  uint     `json:"version"`
}

// SubmissionResponse is returned to API clients when viewing submissions.
type SubmissionResponse struct {
	ID           uint                             `json:"id"`
	AssignmentID uint                             `json:"assignment_id"`
	StudentID    uint                             `json:"student_id"`
	Status       submission.Status                `json:"status"`
	Content      submission.Content               `json:"content"`
	SubmittedAt  *time.Time                       `json:"submitted_at"`
	Grade        *GradeResponse                   `json:"grade"`
	Version      uint                             `json:"version"`
	History      []SubmissionGradeHistoryResponse `json:"history"`
	CreatedAt    time.Time                        `json:"created_at"`
	UpdatedAt    time.Time                        `json:"updated_at"`
	Assignment   *AssignmentLite                  `json:"assignment,omitempty"`
	Student      *UserLite                        `json:"student,omitempty"`
}

// GradeResponse carries the instructor's evaluation.
type GradeResponse struct {
	Score      float64    `json:"score"`
	Feedback   string     `json:"feedback"`
	Percentage *int       `json:"percentage"`
	GradedAt   *time.Time `json:"graded_at"`
	GradedBy   *uint      `json:"graded_by"`
}

// AssignmentLite summarizes an assignment in submission responses.
type AssignmentLite struct {
	ID      uint      `json:"id"`
	Title   string    `json:"title"`
	DueDate time.Time `json:"due_date"`
	Points  float64   `json:"points"`
}

// SubmissionGradeHistoryResponse serializes grading history entries.
type SubmissionGradeHistoryResponse struct {
	Score    float64   `json:"score"`
	Feedback string    `json:"feedback"`
	GradedBy uint      `json:"graded_by"`
	GradedAt time.Time `json:"graded_at"`
}

// FeedbackDraftResponse is an AI suggestion the instructor may edit before grading.
type FeedbackDraftResponse struct {
	SubmissionID   uint     `json:"submission_id"`
	SuggestedScore *float64 `json:"suggested_score"`
	Feedback       string   `json:"feedback"`
	Provider       string   `json:"provider"`
	Model          string   `json:"model"`
}

// NewSubmissionResponse converts a Submission model into a DTO.
func NewSubmissionResponse(model models.Submission) SubmissionResponse {
	content := model.Body().Normalized()
	response := SubmissionResponse{
		ID:           model.ID,
		AssignmentID: model.AssignmentID,
		StudentID:    model.StudentID,
		Status:       model.Status,
		Content:      content,
		SubmittedAt:  model.SubmittedAt,
		Version:      model.Version,
		History:      make([]SubmissionGradeHistoryResponse, 0, len(model.History)),
		CreatedAt:    model.CreatedAt,
		UpdatedAt:    model.UpdatedAt,
	}

	if model.Score != nil {
		grade := &GradeResponse{
			Score:    *model.Score,
			Feedback: model.Feedback,
			GradedAt: model.GradedAt,
			GradedBy: model.GradedBy,
		}
		if model.Assignment.ID != 0 {
			if pct, ok := submission.GradePercentage(*model.Score, model.Assignment.Points); ok {
				grade.Percentage = &pct
			}
		}
		response.Grade = grade
	}

	if model.Assignment.ID != 0 {
		response.Assignment = &AssignmentLite{
			ID:      model.Assignment.ID,
			Title:   model.Assignment.Title,
			DueDate: model.Assignment.DueDate,
			Points:  model.Assignment.Points,
		}
	}

	if model.Student.ID != 0 {
		student := NewUserLite(model.Student)
		response.Student = &student
	}

	for _, entry := range model.History {
		response.History = append(response.History, SubmissionGradeHistoryResponse{
			Score:    entry.Score,
			Feedback: entry.Feedback,
			GradedBy: entry.GradedBy,
			GradedAt: entry.GradedAt,
		})
	}

	return response
}

// NewSubmissionResponseSlice converts submission models into DTOs.
func NewSubmissionResponseSlice(items []models.Submission) []SubmissionResponse {
	responses := make([]SubmissionResponse, 0, len(items))
	for _, item := range items {
		responses = append(responses, NewSubmissionResponse(item))
	}

	return responses
}
