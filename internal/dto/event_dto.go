package dto

import (
	"time"

	"github.com/noah-isme/gema-classroom/internal/submission"
)

// Submission event types.
const (
	EventSubmissionCreated   = "submission.created"
	EventSubmissionSubmitted = "submission.submitted"
	EventSubmissionUpdated   = "submission.updated"
	EventSubmissionGraded    = "submission.graded"
	EventSubmissionReaped    = "submission.reaped"
)

// SubmissionEvent is streamed to listeners whenever a submission changes.
type SubmissionEvent struct {
	Type         string            `json:"type"`
	SubmissionID uint              `json:"submission_id"`
	AssignmentID uint              `json:"assignment_id"`
	StudentID    uint              `json:"student_id"`
	Status       submission.Status `json:"status"`
	Version      uint              `json:"version"`
	OccurredAt   time.Time         `json:"occurred_at"`
}
