package ai

import "context"

// FeedbackInput contains the assignment and the student's work to review.
type FeedbackInput struct {
	AssignmentTitle string
	Instructions    string
	MaxScore        float64
	SubmissionText  string
	Links           []string
	FileNames       []string
	PreviousComment string
}

// FeedbackDraft is a suggested grade the instructor reviews before saving.
type FeedbackDraft struct {
	Score    float64                `json:"score"`
	Feedback string                 `json:"feedback"`
	Raw      map[string]interface{} `json:"raw,omitempty"`
}

// Drafter describes a model that can suggest feedback for a submission.
type Drafter interface {
	DraftFeedback(ctx context.Context, input FeedbackInput) (FeedbackDraft, error)
	Provider() string
	Model() string
}
