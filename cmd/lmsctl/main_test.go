package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-classroom/internal/config"
	"github.com/noah-isme/gema-classroom/internal/middleware"
	"github.com/noah-isme/gema-classroom/internal/submission"
	"github.com/noah-isme/gema-classroom/internal/workflow"
	"github.com/noah-isme/gema-classroom/pkg/lmsclient"
)

var testNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

type fakeAPI struct {
	*http.ServeMux

	mu       sync.Mutex
	requests []string
	bodies   map[string][]byte
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{ServeMux: http.NewServeMux(), bodies: map[string][]byte{}}
}

func (f *fakeAPI) handle(pattern string, status int, data interface{}) {
	f.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		body := new(bytes.Buffer)
		_, _ = body.ReadFrom(r.Body)

		f.mu.Lock()
		f.requests = append(f.requests, r.Method+" "+r.URL.Path)
		f.bodies[r.Method+" "+r.URL.Path] = body.Bytes()
		f.mu.Unlock()

		writeEnvelope(w, status, data)
	})
}

func (f *fakeAPI) called(request string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.requests {
		if r == request {
			return true
		}
	}
	return false
}

func (f *fakeAPI) count(request string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, r := range f.requests {
		if r == request {
			n++
		}
	}
	return n
}

func (f *fakeAPI) body(t *testing.T, request string, out interface{}) {
	t.Helper()
	f.mu.Lock()
	raw := f.bodies[request]
	f.mu.Unlock()
	require.NotEmpty(t, raw, "no body recorded for %s", request)
	require.NoError(t, json.Unmarshal(raw, out))
}

func writeEnvelope(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if status >= 400 {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"success": false, "message": data})
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]interface{}{"success": true, "message": "ok", "data": data})
}

func newTestCLI(t *testing.T, api http.Handler, userID uint, role string) (*commandLine, *bytes.Buffer) {
	t.Helper()
	server := httptest.NewServer(api)
	t.Cleanup(server.Close)

	token, err := middleware.GenerateToken("secret", userID, role, time.Hour)
	require.NoError(t, err)

	cfg := config.ClientConfig{
		BaseURL:     server.URL,
		Token:       token,
		Timeout:     5 * time.Second,
		MaxFileSize: 1024,
		LogLevel:    "debug",
	}
	client, err := lmsclient.New(cfg.BaseURL, lmsclient.WithToken(cfg.Token), lmsclient.WithTimeout(cfg.Timeout))
	require.NoError(t, err)

	out := new(bytes.Buffer)
	return &commandLine{
		client: client,
		cfg:    cfg,
		logger: zerolog.Nop(),
		out:    out,
		now:    func() time.Time { return testNow },
	}, out
}

func TestRunPrintsUsage(t *testing.T) {
	cli, out := newTestCLI(t, newFakeAPI(), 1, "student")
	ctx := context.Background()

	tests := []struct {
		name string
		args []string
	}{
		{name: "no command", args: []string{"lmsctl"}},
		{name: "unknown command", args: []string{"lmsctl", "lol"}},
		{name: "submit without assignment", args: []string{"lmsctl", "submit"}},
		{name: "grade without submission", args: []string{"lmsctl", "grade", "-score", "3"}},
		{name: "help flag", args: []string{"lmsctl", "dashboard", "-h"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			out.Reset()
			err := cli.run(ctx, tc.args)
			require.ErrorIs(t, err, errHelp)
			require.NotEmpty(t, out.String())
		})
	}
}

func TestWhoamiReadsToken(t *testing.T) {
	cli, out := newTestCLI(t, newFakeAPI(), 42, "trainer")

	require.NoError(t, cli.run(context.Background(), []string{"lmsctl", "whoami"}))
	require.Contains(t, out.String(), "user 42 (trainer)")

	cli.cfg.Token = ""
	require.ErrorIs(t, cli.run(context.Background(), []string{"lmsctl", "whoami"}), errNoToken)
}

func TestAssignmentsGroupsStudentWorkByTab(t *testing.T) {
	api := newFakeAPI()
	api.handle("GET /assignments", http.StatusOK, []lmsclient.Assignment{
		{ID: 1, Title: "Essay", DueDate: testNow.Add(48 * time.Hour), Points: 100},
		{ID: 2, Title: "Lab report", DueDate: testNow.Add(24 * time.Hour), Points: 50},
		{ID: 3, Title: "Reading log", DueDate: testNow.Add(-time.Hour), Points: 10},
	})
	api.handle("GET /submissions/assignment/1/mine", http.StatusNotFound, "submission not found")
	api.handle("GET /submissions/assignment/2/mine", http.StatusOK, lmsclient.Submission{
		ID: 20, AssignmentID: 2, Status: lmsclient.StatusSubmitted, Version: 1,
	})
	api.handle("GET /submissions/assignment/3/mine", http.StatusNotFound, "submission not found")

	cli, out := newTestCLI(t, api, 7, "student")
	ctx := context.Background()

	require.NoError(t, cli.run(ctx, []string{"lmsctl", "assignments", "-tab", "pending"}))
	require.Contains(t, out.String(), "Essay")
	require.NotContains(t, out.String(), "Lab report")
	require.NotContains(t, out.String(), "Reading log")
	require.Contains(t, out.String(), "pending 1, submitted 1, graded 0, overdue 1")

	out.Reset()
	require.NoError(t, cli.run(ctx, []string{"lmsctl", "assignments", "-search", "lab"}))
	require.Contains(t, out.String(), "Lab report")
	require.NotContains(t, out.String(), "Essay")

	require.Error(t, cli.run(ctx, []string{"lmsctl", "assignments", "-tab", "archived"}))
}

func TestSubmitUploadsCreatesAndSubmits(t *testing.T) {
	api := newFakeAPI()
	api.handle("GET /assignments/1", http.StatusOK, lmsclient.Assignment{
		ID: 1, Title: "Essay", DueDate: testNow.Add(time.Hour), Points: 100,
	})
	api.handle("GET /submissions/assignment/1/mine", http.StatusNotFound, "submission not found")
	api.handle("POST /submissions/upload", http.StatusCreated, lmsclient.UploadedFile{
		Name: "essay.txt", URL: "https://files.test/essay.txt", Size: 5,
	})
	api.handle("POST /submissions", http.StatusCreated, lmsclient.Submission{
		ID: 9, AssignmentID: 1, Status: lmsclient.StatusDraft, Version: 1,
	})
	api.handle("PUT /submissions/9/submit", http.StatusOK, lmsclient.Submission{
		ID:           9,
		AssignmentID: 1,
		Status:       lmsclient.StatusSubmitted,
		Version:      2,
		Content:      lmsclient.Content{Text: "My essay"},
	})

	dir := t.TempDir()
	small := filepath.Join(dir, "essay.txt")
	large := filepath.Join(dir, "video.mp4")
	require.NoError(t, os.WriteFile(small, []byte("hello"), 0o600))
	require.NoError(t, os.WriteFile(large, bytes.Repeat([]byte("x"), 2048), 0o600))

	cli, out := newTestCLI(t, api, 7, "student")
	err := cli.run(context.Background(), []string{
		"lmsctl", "submit", "-assignment", "1",
		"-text", "My essay",
		"-link", "Repo=https://git.test/essay",
		"-file", small, "-file", large,
	})
	require.NoError(t, err)

	require.Contains(t, out.String(), "skipped video.mp4")
	require.Contains(t, out.String(), "submitted")
	require.True(t, api.called("PUT /submissions/9/submit"))

	var created struct {
		AssignmentID uint              `json:"assignment_id"`
		Content      lmsclient.Content `json:"content"`
	}
	api.body(t, "POST /submissions", &created)
	require.Equal(t, uint(1), created.AssignmentID)
	require.Equal(t, "My essay", created.Content.Text)
	require.Equal(t, []lmsclient.Link{{Title: "Repo", URL: "https://git.test/essay"}}, created.Content.Links)
	require.Len(t, created.Content.Files, 1)
	require.Equal(t, "https://files.test/essay.txt", created.Content.Files[0].URL)
}

func TestSubmitReportsPartialSubmit(t *testing.T) {
	api := newFakeAPI()
	api.handle("GET /assignments/1", http.StatusOK, lmsclient.Assignment{ID: 1, Title: "Essay", Points: 100})
	api.handle("GET /submissions/assignment/1/mine", http.StatusNotFound, "submission not found")
	api.handle("POST /submissions", http.StatusCreated, lmsclient.Submission{
		ID: 7, AssignmentID: 1, Status: lmsclient.StatusDraft, Version: 1,
	})
	api.handle("PUT /submissions/7/submit", http.StatusInternalServerError, "database unavailable")

	cli, out := newTestCLI(t, api, 7, "student")
	err := cli.run(context.Background(), []string{"lmsctl", "submit", "-assignment", "1", "-text", "draft"})
	require.ErrorIs(t, err, workflow.ErrPartialSubmit)
	require.Contains(t, out.String(), "draft 7 was saved but not submitted")
}

func TestSubmitRefusesLockedAssignment(t *testing.T) {
	api := newFakeAPI()
	api.handle("GET /assignments/1", http.StatusOK, lmsclient.Assignment{
		ID: 1, Title: "Essay", DueDate: testNow.Add(-time.Hour),
	})
	api.handle("GET /submissions/assignment/1/mine", http.StatusNotFound, "submission not found")

	cli, _ := newTestCLI(t, api, 7, "student")
	err := cli.run(context.Background(), []string{"lmsctl", "submit", "-assignment", "1", "-text", "late"})
	require.ErrorIs(t, err, submission.ErrLocked)
	require.False(t, api.called("POST /submissions"))
}

func TestGradeUsesDraftedFeedback(t *testing.T) {
	api := newFakeAPI()
	api.handle("GET /submissions/5", http.StatusOK, lmsclient.Submission{
		ID:           5,
		AssignmentID: 1,
		Status:       lmsclient.StatusSubmitted,
		Version:      3,
		Content:      lmsclient.Content{Text: "answer"},
	})
	api.handle("GET /assignments/1", http.StatusOK, lmsclient.Assignment{ID: 1, Title: "Essay", Points: 100})
	suggested := 88.0
	api.handle("POST /submissions/5/feedback-draft", http.StatusOK, lmsclient.FeedbackDraft{
		SubmissionID: 5, SuggestedScore: &suggested, Feedback: "Solid structure",
	})
	api.handle("PUT /submissions/5/grade", http.StatusOK, lmsclient.Submission{
		ID:           5,
		AssignmentID: 1,
		Status:       lmsclient.StatusGraded,
		Version:      4,
		Grade:        &lmsclient.Grade{Score: 88, Feedback: "Solid structure"},
	})

	cli, out := newTestCLI(t, api, 2, "trainer")
	require.NoError(t, cli.run(context.Background(), []string{"lmsctl", "grade", "-submission", "5", "-suggest"}))

	var graded lmsclient.GradeInput
	api.body(t, "PUT /submissions/5/grade", &graded)
	require.Equal(t, lmsclient.GradeInput{Score: 88, Feedback: "Solid structure", Version: 3}, graded)
	require.Contains(t, out.String(), "graded 88/100 (88%)")
}

func TestGradeRejectsStudentsAndBadScores(t *testing.T) {
	api := newFakeAPI()
	api.handle("GET /submissions/5", http.StatusOK, lmsclient.Submission{
		ID: 5, AssignmentID: 1, Status: lmsclient.StatusSubmitted, Version: 1,
	})
	api.handle("GET /assignments/1", http.StatusOK, lmsclient.Assignment{ID: 1, Title: "Essay", Points: 10})

	student, _ := newTestCLI(t, api, 7, "student")
	err := student.run(context.Background(), []string{"lmsctl", "grade", "-submission", "5", "-score", "8"})
	require.ErrorIs(t, err, submission.ErrNotInstructor)

	trainer, _ := newTestCLI(t, api, 2, "trainer")
	err = trainer.run(context.Background(), []string{"lmsctl", "grade", "-submission", "5", "-score", "11"})
	require.ErrorIs(t, err, submission.ErrScoreOutOfRange)
	require.False(t, api.called("PUT /submissions/5/grade"))
}

func TestSubmissionsFiltersAndSorts(t *testing.T) {
	api := newFakeAPI()
	api.handle("GET /assignments/1", http.StatusOK, lmsclient.Assignment{ID: 1, Title: "Essay", Points: 100})
	api.handle("GET /submissions/assignment/1", http.StatusOK, []lmsclient.Submission{
		{ID: 1, StudentID: 10, Status: lmsclient.StatusSubmitted, Student: &lmsclient.UserSummary{Name: "Zoe"}},
		{ID: 2, StudentID: 11, Status: lmsclient.StatusGraded, Student: &lmsclient.UserSummary{Name: "Ann"},
			Grade: &lmsclient.Grade{Score: 70}},
		{ID: 3, StudentID: 12, Status: lmsclient.StatusSubmitted, Student: &lmsclient.UserSummary{Name: "Ben"}},
	})

	cli, out := newTestCLI(t, api, 2, "trainer")
	require.NoError(t, cli.run(context.Background(), []string{
		"lmsctl", "submissions", "-assignment", "1", "-status", "submitted",
	}))

	text := out.String()
	require.NotContains(t, text, "Ann")
	require.Less(t, strings.Index(text, "Ben"), strings.Index(text, "Zoe"))
}

func TestResourcesUsesSearchWhenQueried(t *testing.T) {
	api := newFakeAPI()
	api.handle("GET /resources/search", http.StatusOK, []lmsclient.Resource{
		{ID: 1, Title: "Effective Go", Type: "link", URL: "https://go.dev/doc/effective_go"},
	})
	api.handle("GET /resources", http.StatusOK, []lmsclient.Resource{})

	cli, out := newTestCLI(t, api, 7, "student")
	require.NoError(t, cli.run(context.Background(), []string{"lmsctl", "resources", "-q", "effective"}))
	require.Contains(t, out.String(), "Effective Go")
	require.True(t, api.called("GET /resources/search"))

	out.Reset()
	require.NoError(t, cli.run(context.Background(), []string{"lmsctl", "resources"}))
	require.Contains(t, out.String(), "nothing to show")
}

func TestParseLink(t *testing.T) {
	tests := []struct {
		raw       string
		wantTitle string
		wantURL   string
	}{
		{raw: "Repo=https://git.test/x", wantTitle: "Repo", wantURL: "https://git.test/x"},
		{raw: "https://example.com/?a=b", wantTitle: "", wantURL: "https://example.com/?a=b"},
		{raw: " plain ", wantTitle: "", wantURL: "plain"},
	}
	for _, tc := range tests {
		title, target := parseLink(tc.raw)
		require.Equal(t, tc.wantTitle, title, tc.raw)
		require.Equal(t, tc.wantURL, target, tc.raw)
	}
}

func TestAPIErrorsPassThrough(t *testing.T) {
	api := newFakeAPI()
	api.handle("GET /dashboard", http.StatusForbidden, "forbidden")

	cli, _ := newTestCLI(t, api, 2, "trainer")
	err := cli.run(context.Background(), []string{"lmsctl", "dashboard"})
	require.True(t, errors.Is(err, lmsclient.ErrUnauthorized))
}

func TestResubmitReplacesSavedLinks(t *testing.T) {
	api := newFakeAPI()
	api.handle("GET /assignments/1", http.StatusOK, lmsclient.Assignment{
		ID: 1, Title: "Essay", DueDate: testNow.Add(time.Hour), Points: 100,
	})
	saved := lmsclient.Content{
		Text:  "first try",
		Links: []lmsclient.Link{{Title: "Repo", URL: "https://git.test/old"}},
		Files: []lmsclient.File{{Name: "essay.pdf", URL: "https://files.test/essay.pdf", Size: 5}},
	}
	api.handle("GET /submissions/assignment/1/mine", http.StatusOK, lmsclient.Submission{
		ID: 9, AssignmentID: 1, Status: lmsclient.StatusSubmitted, Version: 2, Content: saved,
	})
	api.handle("PUT /submissions/9", http.StatusOK, lmsclient.Submission{
		ID: 9, AssignmentID: 1, Status: lmsclient.StatusSubmitted, Version: 3,
	})

	tests := []struct {
		name  string
		args  []string
		links []lmsclient.Link
	}{
		{
			name:  "same link again",
			args:  []string{"-link", "Repo=https://git.test/old"},
			links: []lmsclient.Link{{Title: "Repo", URL: "https://git.test/old"}},
		},
		{
			name:  "new link",
			args:  []string{"-link", "Repo=https://git.test/new"},
			links: []lmsclient.Link{{Title: "Repo", URL: "https://git.test/new"}},
		},
		{
			name:  "no link flag",
			args:  []string{"-text", "second try"},
			links: []lmsclient.Link{{Title: "Repo", URL: "https://git.test/old"}},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cli, _ := newTestCLI(t, api, 7, "student")
			args := append([]string{"lmsctl", "submit", "-assignment", "1"}, tc.args...)
			require.NoError(t, cli.run(context.Background(), args))

			var updated struct {
				Content lmsclient.Content `json:"content"`
				Version uint              `json:"version"`
			}
			api.body(t, "PUT /submissions/9", &updated)
			require.Equal(t, uint(2), updated.Version)
			require.Equal(t, tc.links, updated.Content.Links)
			require.Equal(t, saved.Files, updated.Content.Files)
		})
	}
}

func TestListingsReuseLoadedPagesUntilAWrite(t *testing.T) {
	api := newFakeAPI()
	api.handle("GET /assignments/1", http.StatusOK, lmsclient.Assignment{ID: 1, Title: "Essay", Points: 100})
	api.handle("GET /submissions/assignment/1", http.StatusOK, []lmsclient.Submission{
		{ID: 5, StudentID: 10, Status: lmsclient.StatusSubmitted, Student: &lmsclient.UserSummary{Name: "Zoe"}},
	})
	api.handle("GET /submissions/5", http.StatusOK, lmsclient.Submission{
		ID: 5, AssignmentID: 1, Status: lmsclient.StatusSubmitted, Version: 1,
	})
	api.handle("PUT /submissions/5/grade", http.StatusOK, lmsclient.Submission{
		ID: 5, AssignmentID: 1, Status: lmsclient.StatusGraded, Version: 2, Grade: &lmsclient.Grade{Score: 80},
	})
	api.handle("GET /resources", http.StatusOK, []lmsclient.Resource{
		{ID: 1, Title: "Effective Go", Type: "link", URL: "https://go.dev/doc/effective_go"},
	})

	cli, out := newTestCLI(t, api, 2, "trainer")
	ctx := context.Background()
	list := []string{"lmsctl", "submissions", "-assignment", "1"}

	require.NoError(t, cli.run(ctx, list))
	require.NoError(t, cli.run(ctx, append(list, "-search", "zo")))
	require.Equal(t, 1, api.count("GET /submissions/assignment/1"))
	require.Contains(t, out.String(), "Zoe")

	require.NoError(t, cli.run(ctx, []string{"lmsctl", "grade", "-submission", "5", "-score", "80"}))
	require.NoError(t, cli.run(ctx, list))
	require.Equal(t, 2, api.count("GET /submissions/assignment/1"))

	require.NoError(t, cli.run(ctx, []string{"lmsctl", "resources"}))
	require.NoError(t, cli.run(ctx, []string{"lmsctl", "resources"}))
	require.Equal(t, 1, api.count("GET /resources"))
	require.NoError(t, cli.run(ctx, []string{"lmsctl", "resources", "-type", "video"}))
	require.Equal(t, 2, api.count("GET /resources"))
}
