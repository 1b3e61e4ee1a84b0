package dto

import (
	"time"

	"github.com/noah-isme/gema-classroom/internal/submission"
)

// StudentDashboardResponse aggregates assignment progress for a student.
type StudentDashboardResponse struct {
	Summary           ProgressSummary      `json:"summary"`
	Assignments       []AssignmentProgress `json:"assignments"`
	RecentSubmissions []SubmissionActivity `json:"recent_submissions"`
}

// ProgressSummary captures the counts behind each status tab.
type ProgressSummary struct {
	TotalAssignments int     `json:"total_assignments"`
	Pending          int     `json:"pending"`
	Submitted        int     `json:"submitted"`
	Graded           int     `json:"graded"`
	Overdue          int     `json:"overdue"`
	AverageGrade     float64 `json:"average_grade"`
	CompletionRate   float64 `json:"completion_rate"`
}

// AssignmentProgress describes the state of a single assignment relative to a student.
type AssignmentProgress struct {
	AssignmentID uint              `json:"assignment_id"`
	Title        string            `json:"title"`
	DueDate      time.Time         `json:"due_date"`
	Points       float64           `json:"points"`
	Tab          string            `json:"tab"`
	Status       submission.Status `json:"status,omitempty"`
	SubmissionID *uint             `json:"submission_id"`
	Score        *float64          `json:"score"`
	Percentage   string            `json:"percentage"`
	Overdue      bool              `json:"overdue"`
}

// SubmissionActivity details recent submission events for the activity feed.
type SubmissionActivity struct {
	SubmissionID   uint              `json:"submission_id"`
	AssignmentID   uint              `json:"assignment_id"`
	AssignmentName string            `json:"assignment_name"`
	Status         submission.Status `json:"status"`
	Score          *float64          `json:"score"`
	UpdatedAt      time.Time         `json:"updated_at"`
}
