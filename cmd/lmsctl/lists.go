package main

import (
	"context"
	"strings"

	"github.com/noah-isme/gema-classroom/internal/browse"
	"github.com/noah-isme/gema-classroom/internal/submission"
	"github.com/noah-isme/gema-classroom/pkg/lmsclient"
)

// Search, tab and sort run locally on a loaded page, so list keys only hold
// the role and the filters the server applies.

type assignmentsKey struct {
	role   submission.Role
	status string
	page   int
}

type assignmentsPage struct {
	result lmsclient.Page[lmsclient.Assignment]
	mine   map[uint]lmsclient.Submission
}

type submissionsKey struct {
	role         submission.Role
	assignmentID uint
}

type submissionsPage struct {
	assignment lmsclient.Assignment
	items      []lmsclient.Submission
}

type resourcesKey struct {
	role       submission.Role
	query      string
	categoryID uint
	kind       string
}

// listCache keeps the last page of every listing for the life of the process.
type listCache struct {
	assignments *browse.Loader[assignmentsKey, assignmentsPage]
	submissions *browse.Loader[submissionsKey, submissionsPage]
	resources   *browse.Loader[resourcesKey, lmsclient.Page[lmsclient.Resource]]
}

func newListCache(cli *commandLine) *listCache {
	return &listCache{
		assignments: browse.NewLoader(cli.fetchAssignments),
		submissions: browse.NewLoader(cli.fetchSubmissions),
		resources:   browse.NewLoader(cli.fetchResources),
	}
}

// afterWrite drops the listings a submit or grade can change.
func (l *listCache) afterWrite() {
	l.assignments.Invalidate()
	l.submissions.Invalidate()
}

func (cli *commandLine) cache() *listCache {
	if cli.lists == nil {
		cli.lists = newListCache(cli)
	}
	return cli.lists
}

func (cli *commandLine) fetchAssignments(ctx context.Context, key assignmentsKey) (assignmentsPage, error) {
	result, err := cli.client.ListAssignments(ctx, lmsclient.AssignmentListOptions{
		ListOptions: lmsclient.ListOptions{Page: key.page},
		Status:      key.status,
	})
	if err != nil {
		return assignmentsPage{}, err
	}
	page := assignmentsPage{result: result}
	if key.role.IsInstructor() {
		return page, nil
	}
	if page.mine, err = cli.mySubmissions(ctx, result.Items); err != nil {
		return assignmentsPage{}, err
	}
	return page, nil
}

func (cli *commandLine) fetchSubmissions(ctx context.Context, key submissionsKey) (submissionsPage, error) {
	assignment, err := cli.client.GetAssignment(ctx, key.assignmentID)
	if err != nil {
		return submissionsPage{}, err
	}
	items, err := cli.client.ListAssignmentSubmissions(ctx, key.assignmentID)
	if err != nil {
		return submissionsPage{}, err
	}
	return submissionsPage{assignment: assignment, items: items}, nil
}

func (cli *commandLine) fetchResources(ctx context.Context, key resourcesKey) (lmsclient.Page[lmsclient.Resource], error) {
	opts := lmsclient.ResourceListOptions{CategoryID: key.categoryID, Type: key.kind}
	if key.query != "" {
		return cli.client.SearchResources(ctx, key.query, opts)
	}
	return cli.client.ListResources(ctx, opts)
}

func newResourcesKey(role submission.Role, query string, categoryID uint, kind string) resourcesKey {
	return resourcesKey{role: role, query: strings.TrimSpace(query), categoryID: categoryID, kind: kind}
}
