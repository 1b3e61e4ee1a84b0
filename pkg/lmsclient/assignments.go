package lmsclient

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const assignmentsPath = "/assignments"

// ListAssignments lists assignments visible to the caller.
func (c *Client) ListAssignments(ctx context.Context, opts AssignmentListOptions) (Page[Assignment], error) {
	return list[Assignment](ctx, c, assignmentsPath, opts.values())
}

// GetAssignment fetches one assignment.
func (c *Client) GetAssignment(ctx context.Context, id uint) (Assignment, error) {
	return call[Assignment](ctx, c, http.MethodGet, idPath(assignmentsPath, id), nil, nil)
}

// CreateAssignment creates an assignment.
func (c *Client) CreateAssignment(ctx context.Context, input AssignmentInput) (Assignment, error) {
	return call[Assignment](ctx, c, http.MethodPost, assignmentsPath, nil, input)
}

// CreateAssignmentWithBrief creates an assignment and attaches a brief file
// in a single multipart request.
func (c *Client) CreateAssignmentWithBrief(ctx context.Context, input AssignmentInput, name string, brief io.Reader) (Assignment, error) {
	var out Assignment
	err := c.upload(ctx, http.MethodPost, assignmentsPath, "file", name, brief, input.formFields(), &out)
	return out, err
}

// UpdateAssignment applies the non-empty fields of input.
func (c *Client) UpdateAssignment(ctx context.Context, id uint, input AssignmentInput) (Assignment, error) {
	return call[Assignment](ctx, c, http.MethodPut, idPath(assignmentsPath, id), nil, input)
}

// DeleteAssignment removes an assignment.
func (c *Client) DeleteAssignment(ctx context.Context, id uint) error {
	_, err := c.do(ctx, http.MethodDelete, idPath(assignmentsPath, id), nil, nil, nil)
	return err
}

func (in AssignmentInput) formFields() map[string]string {
	fields := map[string]string{}
	if in.Title != "" {
		fields["title"] = in.Title
	}
	if in.Description != "" {
		fields["description"] = in.Description
	}
	if in.DueDate != nil {
		fields["due_date"] = in.DueDate.UTC().Format(time.RFC3339)
	}
	if in.Points != nil {
		fields["points"] = strconv.FormatFloat(*in.Points, 'f', -1, 64)
	}
	if len(in.AllowedFileTypes) > 0 {
		fields["allowed_file_types"] = strings.Join(in.AllowedFileTypes, ",")
	}
	if in.Status != "" {
		fields["status"] = in.Status
	}
	if len(in.CohortIDs) > 0 {
		ids := make([]string, 0, len(in.CohortIDs))
		for _, id := range in.CohortIDs {
			ids = append(ids, strconv.FormatUint(uint64(id), 10))
		}
		fields["cohort_ids"] = strings.Join(ids, ",")
	}
	return fields
}
