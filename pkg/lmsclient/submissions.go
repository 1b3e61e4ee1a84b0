package lmsclient

import (
	"context"
	"io"
	"net/http"
	"net/url"
)

const submissionsPath = "/submissions"

type createSubmissionRequest struct {
	AssignmentID uint    `json:"assignment_id"`
	Content      Content `json:"content"`
}

type updateSubmissionRequest struct {
	Content Content `json:"content"`
	Version uint    `json:"version"`
}

// CreateSubmission starts a draft for the assignment. A second draft for the
// same assignment fails with ErrConflict.
func (c *Client) CreateSubmission(ctx context.Context, assignmentID uint, content Content) (Submission, error) {
	return call[Submission](ctx, c, http.MethodPost, submissionsPath, nil, createSubmissionRequest{
		AssignmentID: assignmentID,
		Content:      content,
	})
}

// SubmitSubmission moves a draft to submitted.
func (c *Client) SubmitSubmission(ctx context.Context, id uint) (Submission, error) {
	return call[Submission](ctx, c, http.MethodPut, idPath(submissionsPath, id, "/submit"), nil, nil)
}

// UpdateSubmission replaces the content of a submission. version must be the
// version last read; a stale one fails with ErrConflict.
func (c *Client) UpdateSubmission(ctx context.Context, id uint, content Content, version uint) (Submission, error) {
	return call[Submission](ctx, c, http.MethodPut, idPath(submissionsPath, id), nil, updateSubmissionRequest{
		Content: content,
		Version: version,
	})
}

// GradeSubmission records a grade.
func (c *Client) GradeSubmission(ctx context.Context, id uint, grade GradeInput) (Submission, error) {
	return call[Submission](ctx, c, http.MethodPut, idPath(submissionsPath, id, "/grade"), nil, grade)
}

// GetSubmission fetches one submission.
func (c *Client) GetSubmission(ctx context.Context, id uint) (Submission, error) {
	return call[Submission](ctx, c, http.MethodGet, idPath(submissionsPath, id), nil, nil)
}

// ListAssignmentSubmissions lists every submission for an assignment.
func (c *Client) ListAssignmentSubmissions(ctx context.Context, assignmentID uint) ([]Submission, error) {
	return call[[]Submission](ctx, c, http.MethodGet, idPath(submissionsPath+"/assignment", assignmentID), nil, nil)
}

// GetMySubmission returns the caller's submission for an assignment, or
// ErrNotFound when none exists yet.
func (c *Client) GetMySubmission(ctx context.Context, assignmentID uint) (Submission, error) {
	return call[Submission](ctx, c, http.MethodGet, idPath(submissionsPath+"/assignment", assignmentID, "/mine"), nil, nil)
}

// UploadFile stores a file and returns its public URL.
func (c *Client) UploadFile(ctx context.Context, name string, reader io.Reader) (UploadedFile, error) {
	var out UploadedFile
	err := c.upload(ctx, http.MethodPost, submissionsPath+"/upload", "file", name, reader, nil, &out)
	return out, err
}

// DraftFeedback asks the API for a suggested grade and feedback.
func (c *Client) DraftFeedback(ctx context.Context, id uint) (FeedbackDraft, error) {
	return call[FeedbackDraft](ctx, c, http.MethodPost, idPath(submissionsPath, id, "/feedback-draft"), nil, nil)
}

// GetDashboard returns the caller's progress, optionally limited to one tab.
func (c *Client) GetDashboard(ctx context.Context, tab string) (Dashboard, error) {
	query := url.Values{}
	if tab != "" {
		query.Set("tab", tab)
	}
	return call[Dashboard](ctx, c, http.MethodGet, "/dashboard", query, nil)
}
