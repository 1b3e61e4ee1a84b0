package lmsclient

import (
	"context"
	"net/http"
)

const (
	cohortsPath  = "/cohorts"
	usersPath    = "/users"
	sessionsPath = "/sessions"
)

// ListCohorts lists cohorts.
func (c *Client) ListCohorts(ctx context.Context, opts ListOptions) (Page[Cohort], error) {
	return list[Cohort](ctx, c, cohortsPath, opts.values())
}

// GetCohort fetches one cohort.
func (c *Client) GetCohort(ctx context.Context, id uint) (Cohort, error) {
	return call[Cohort](ctx, c, http.MethodGet, idPath(cohortsPath, id), nil, nil)
}

// CreateCohort creates a cohort with its members.
func (c *Client) CreateCohort(ctx context.Context, input CohortInput) (Cohort, error) {
	return call[Cohort](ctx, c, http.MethodPost, cohortsPath, nil, input)
}

// UpdateCohort applies the non-empty fields of input.
func (c *Client) UpdateCohort(ctx context.Context, id uint, input CohortInput) (Cohort, error) {
	return call[Cohort](ctx, c, http.MethodPut, idPath(cohortsPath, id), nil, input)
}

// DeleteCohort removes a cohort.
func (c *Client) DeleteCohort(ctx context.Context, id uint) error {
	_, err := c.do(ctx, http.MethodDelete, idPath(cohortsPath, id), nil, nil, nil)
	return err
}

// ListUsers lists accounts.
func (c *Client) ListUsers(ctx context.Context, opts ListOptions) (Page[User], error) {
	return list[User](ctx, c, usersPath, opts.values())
}

// GetUser fetches one account.
func (c *Client) GetUser(ctx context.Context, id uint) (User, error) {
	return call[User](ctx, c, http.MethodGet, idPath(usersPath, id), nil, nil)
}

// CreateUser creates an account.
func (c *Client) CreateUser(ctx context.Context, input UserInput) (User, error) {
	return call[User](ctx, c, http.MethodPost, usersPath, nil, input)
}

// UpdateUser applies the non-empty fields of input.
func (c *Client) UpdateUser(ctx context.Context, id uint, input UserInput) (User, error) {
	return call[User](ctx, c, http.MethodPut, idPath(usersPath, id), nil, input)
}

// DeleteUser removes an account.
func (c *Client) DeleteUser(ctx context.Context, id uint) error {
	_, err := c.do(ctx, http.MethodDelete, idPath(usersPath, id), nil, nil, nil)
	return err
}

// ListSessions lists class sessions.
func (c *Client) ListSessions(ctx context.Context, opts SessionListOptions) (Page[Session], error) {
	return list[Session](ctx, c, sessionsPath, opts.values())
}

// GetSession fetches one session.
func (c *Client) GetSession(ctx context.Context, id uint) (Session, error) {
	return call[Session](ctx, c, http.MethodGet, idPath(sessionsPath, id), nil, nil)
}

// CreateSession schedules a session.
func (c *Client) CreateSession(ctx context.Context, input SessionInput) (Session, error) {
	return call[Session](ctx, c, http.MethodPost, sessionsPath, nil, input)
}

// UpdateSession applies the non-empty fields of input.
func (c *Client) UpdateSession(ctx context.Context, id uint, input SessionInput) (Session, error) {
	return call[Session](ctx, c, http.MethodPut, idPath(sessionsPath, id), nil, input)
}

// DeleteSession removes a session.
func (c *Client) DeleteSession(ctx context.Context, id uint) error {
	_, err := c.do(ctx, http.MethodDelete, idPath(sessionsPath, id), nil, nil, nil)
	return err
}
