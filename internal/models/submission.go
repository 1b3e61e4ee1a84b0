package models

import (
	"time"

	"gorm.io/datatypes"

	"github.com/noah-isme/gema-classroom/internal/submission"
)

// Submission is the single record a student keeps per assignment.
type Submission struct {
	ID           uint                                   `gorm:"primaryKey" json:"id"`
	AssignmentID uint                                   `gorm:"not null;uniqueIndex:idx_submission_assignment_student" json:"assignment_id"`
	StudentID    uint                                   `gorm:"not null;uniqueIndex:idx_submission_assignment_student" json:"student_id"`
	Status       submission.Status                      `gorm:"size:16;not null;index" json:"status"`
	Content      datatypes.JSONType[submission.Content] `gorm:"type:json" json:"content"`
	SubmittedAt  *time.Time                             `json:"submitted_at"`
	Score        *float64                               `json:"score"`
	Feedback     string                                 `gorm:"type:text" json:"feedback"`
	GradedBy     *uint                                  `json:"graded_by"`
	GradedAt     *time.Time                             `json:"graded_at"`
	Version      uint                                   `gorm:"not null;default:1" json:"version"`
	CreatedAt    time.Time                              `json:"created_at"`
	UpdatedAt    time.Time                              `json:"updated_at"`
	Assignment   Assignment                             `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"assignment"`
	Student      User                                   `gorm:"foreignKey:StudentID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"student"`
	History      []SubmissionGradeHistory               `gorm:"constraint:OnDelete:CASCADE" json:"history"`
}

// SubmissionGradeHistory keeps every score/feedback pair an instructor saved.
type SubmissionGradeHistory struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	SubmissionID uint      `gorm:"not null;index" json:"submission_id"`
	Score        float64   `gorm:"not null" json:"score"`
	Feedback     string    `gorm:"type:text" json:"feedback"`
	GradedBy     uint      `gorm:"not null" json:"graded_by"`
	GradedAt     time.Time `gorm:"not null" json:"graded_at"`
}

// IsGraded reports whether the submission has a final grade.
func (s Submission) IsGraded() bool {
	return s.Status == submission.StatusGraded
}

// Body returns the stored content.
func (s Submission) Body() submission.Content {
	return s.Content.Data()
}
