package lmsclient

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, opts ...Option) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := New(server.URL+"/api/v1", opts...)
	require.NoError(t, err)
	return client
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

func TestNewRejectsRelativeBaseURL(t *testing.T) {
	_, err := New("/api/v1")
	require.ErrorIs(t, err, ErrInvalidBaseURL)
}

func TestHTTPClientOptions(t *testing.T) {
	tests := []struct {
		name string
		opts func(*http.Client) []Option
	}{
		{
			name: "timeout first",
			opts: func(hc *http.Client) []Option { return []Option{WithTimeout(2 * time.Second), WithHTTPClient(hc)} },
		},
		{
			name: "timeout last",
			opts: func(hc *http.Client) []Option { return []Option{WithHTTPClient(hc), WithTimeout(2 * time.Second)} },
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			caller := &http.Client{Timeout: time.Minute}
			client, err := New("http://localhost:8080/api/v1", tc.opts(caller)...)
			require.NoError(t, err)

			require.Equal(t, 2*time.Second, client.http.Timeout)
			require.NotNil(t, client.http.Jar)
			require.NotSame(t, caller, client.http)
			require.Equal(t, time.Minute, caller.Timeout)
			require.Nil(t, caller.Jar)
		})
	}

	client, err := New("http://localhost:8080/api/v1")
	require.NoError(t, err)
	require.Equal(t, defaultTimeout, client.http.Timeout)
}

func TestEnvelopeUnwrapping(t *testing.T) {
	bodies := map[string]string{
		"flat":   `{"success":true,"message":"ok","data":{"id":3,"title":"Essay","points":20}}`,
		"nested": `{"success":true,"data":{"data":{"id":3,"title":"Essay","points":20}}}`,
		"bare":   `{"id":3,"title":"Essay","points":20}`,
	}

	for name, body := range bodies {
		body := body
		t.Run(name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				require.Equal(t, "/api/v1/assignments/3", r.URL.Path)
				writeJSON(w, http.StatusOK, body)
			})

			assignment, err := client.GetAssignment(context.Background(), 3)
			require.NoError(t, err)
			require.Equal(t, uint(3), assignment.ID)
			require.Equal(t, "Essay", assignment.Title)
			require.Equal(t, float64(20), assignment.Points)
		})
	}
}

func TestListDecodesPagination(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "2", r.URL.Query().Get("page"))
		require.Equal(t, "published", r.URL.Query().Get("status"))
		require.Equal(t, "4", r.URL.Query().Get("cohort_id"))
		writeJSON(w, http.StatusOK, `{"success":true,"data":[{"id":1},{"id":2}],"meta":{"page":2,"page_size":2,"total_items":6,"total_pages":3}}`)
	})

	page, err := client.ListAssignments(context.Background(), AssignmentListOptions{
		ListOptions: ListOptions{Page: 2, PageSize: 2},
		Status:      "published",
		CohortID:    4,
	})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	require.Equal(t, Pagination{Page: 2, PageSize: 2, TotalItems: 6, TotalPages: 3}, page.Pagination)
}

func TestErrorsMapToSentinels(t *testing.T) {
	cases := []struct {
		status int
		target error
	}{
		{http.StatusNotFound, ErrNotFound},
		{http.StatusConflict, ErrConflict},
		{http.StatusUnauthorized, ErrUnauthorized},
		{http.StatusForbidden, ErrUnauthorized},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(http.StatusText(tc.status), func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, tc.status, `{"success":false,"message":"nope"}`)
			})

			_, err := client.GetSubmission(context.Background(), 1)
			require.ErrorIs(t, err, tc.target)

			var apiErr *APIError
			require.True(t, errors.As(err, &apiErr))
			require.Equal(t, tc.status, apiErr.Status)
			require.Equal(t, "nope", apiErr.Message)
		})
	}
}

func TestValidationDetailsAreKept(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, `{"success":false,"message":"validation failed","errors":["Title: required"]}`)
	})

	_, err := client.CreateAssignment(context.Background(), AssignmentInput{})
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, []string{"Title: required"}, apiErr.Details)
	require.Contains(t, apiErr.Error(), "Title: required")
	require.False(t, errors.Is(err, ErrNotFound))
}

func TestBearerTokenAndCookies(t *testing.T) {
	var calls int
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		switch calls {
		case 1:
			require.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
			http.SetCookie(w, &http.Cookie{Name: "session_hint", Value: "abc", Path: "/"})
		case 2:
			require.Empty(t, r.Header.Get("Authorization"))
			cookie, err := r.Cookie("session_hint")
			require.NoError(t, err)
			require.Equal(t, "abc", cookie.Value)
			token, err := r.Cookie(SessionCookie)
			require.NoError(t, err)
			require.Equal(t, "cookie-token", token.Value)
		}
		writeJSON(w, http.StatusOK, `{"success":true,"data":{"summary":{"total_assignments":1}}}`)
	}, WithToken("secret"))

	_, err := client.GetDashboard(context.Background(), "")
	require.NoError(t, err)

	client.SetToken("")
	client.SetSessionCookie("cookie-token")
	dashboard, err := client.GetDashboard(context.Background(), "")
	require.NoError(t, err)
	require.Equal(t, 1, dashboard.Summary.TotalAssignments)
	require.Equal(t, 2, calls)
}

func TestSubmissionOperations(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/api/v1/submissions":
			var body struct {
				AssignmentID uint    `json:"assignment_id"`
				Content      Content `json:"content"`
			}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			require.Equal(t, uint(7), body.AssignmentID)
			require.Equal(t, "essay", body.Content.Text)
			writeJSON(w, http.StatusCreated, `{"success":true,"data":{"id":11,"assignment_id":7,"status":"draft","version":1}}`)
		case r.Method == http.MethodPut && r.URL.Path == "/api/v1/submissions/11/submit":
			writeJSON(w, http.StatusOK, `{"success":true,"data":{"id":11,"status":"submitted","version":2}}`)
		case r.Method == http.MethodPut && r.URL.Path == "/api/v1/submissions/11":
			var body struct {
				Version uint `json:"version"`
			}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			if body.Version != 2 {
				writeJSON(w, http.StatusConflict, `{"success":false,"message":"stale"}`)
				return
			}
			writeJSON(w, http.StatusOK, `{"success":true,"data":{"id":11,"status":"submitted","version":3}}`)
		case r.Method == http.MethodPut && r.URL.Path == "/api/v1/submissions/11/grade":
			var body GradeInput
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			require.Equal(t, float64(0), body.Score)
			writeJSON(w, http.StatusOK, `{"success":true,"data":{"id":11,"status":"graded","grade":{"score":0,"feedback":"","percentage":0}}}`)
		case r.Method == http.MethodGet && r.URL.Path == "/api/v1/submissions/assignment/7":
			writeJSON(w, http.StatusOK, `{"success":true,"data":[{"id":11},{"id":12}]}`)
		case r.Method == http.MethodGet && r.URL.Path == "/api/v1/submissions/assignment/7/mine":
			writeJSON(w, http.StatusNotFound, `{"success":false,"message":"submission not found"}`)
		default:
			t.Fatalf("unexpected %s %s", r.Method, r.URL.Path)
		}
	})
	ctx := context.Background()

	draft, err := client.CreateSubmission(ctx, 7, Content{Text: "essay"})
	require.NoError(t, err)
	require.Equal(t, StatusDraft, draft.Status)

	submitted, err := client.SubmitSubmission(ctx, draft.ID)
	require.NoError(t, err)
	require.Equal(t, uint(2), submitted.Version)

	_, err = client.UpdateSubmission(ctx, draft.ID, Content{Text: "v2"}, 1)
	require.ErrorIs(t, err, ErrConflict)
	updated, err := client.UpdateSubmission(ctx, draft.ID, Content{Text: "v2"}, submitted.Version)
	require.NoError(t, err)
	require.Equal(t, uint(3), updated.Version)

	graded, err := client.GradeSubmission(ctx, draft.ID, GradeInput{Score: 0})
	require.NoError(t, err)
	require.NotNil(t, graded.Grade)
	require.Equal(t, StatusGraded, graded.Status)

	all, err := client.ListAssignmentSubmissions(ctx, 7)
	require.NoError(t, err)
	require.Len(t, all, 2)

	_, err = client.GetMySubmission(ctx, 7)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestUploadFileSendsMultipart(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/submissions/upload", r.URL.Path)
		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		content, err := io.ReadAll(file)
		require.NoError(t, err)
		require.Equal(t, "report.pdf", header.Filename)
		require.Equal(t, "hello", string(content))
		writeJSON(w, http.StatusOK, `{"success":true,"data":{"name":"report.pdf","url":"https://files.test/report.pdf","size":5}}`)
	})

	uploaded, err := client.UploadFile(context.Background(), "report.pdf", strings.NewReader("hello"))
	require.NoError(t, err)
	require.Equal(t, File{Name: "report.pdf", URL: "https://files.test/report.pdf", Size: 5}, uploaded.AsFile())
}

func TestCreateAssignmentWithBriefSendsFormFields(t *testing.T) {
	points := 40.0
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		require.Equal(t, "Lab 1", r.FormValue("title"))
		require.Equal(t, "40", r.FormValue("points"))
		require.Equal(t, "pdf,zip", r.FormValue("allowed_file_types"))
		require.Equal(t, "2,5", r.FormValue("cohort_ids"))
		writeJSON(w, http.StatusCreated, `{"success":true,"data":{"id":9,"title":"Lab 1","file_url":"https://files.test/brief.pdf"}}`)
	})

	assignment, err := client.CreateAssignmentWithBrief(context.Background(), AssignmentInput{
		Title:            "Lab 1",
		Points:           &points,
		AllowedFileTypes: []string{"pdf", "zip"},
		CohortIDs:        []uint{2, 5},
	}, "brief.pdf", strings.NewReader("%PDF"))
	require.NoError(t, err)
	require.Equal(t, "https://files.test/brief.pdf", assignment.FileURL)
}

func TestSearchResourcesSendsQuery(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/resources/search", r.URL.Path)
		require.Equal(t, "golang", r.URL.Query().Get("q"))
		require.Equal(t, "video", r.URL.Query().Get("type"))
		writeJSON(w, http.StatusOK, `{"success":true,"data":[{"id":1,"title":"Go tour"}],"meta":{"page":1,"page_size":20,"total_items":1,"total_pages":1}}`)
	})

	page, err := client.SearchResources(context.Background(), "golang", ResourceListOptions{Type: "video"})
	require.NoError(t, err)
	require.Equal(t, "Go tour", page.Items[0].Title)
	require.Equal(t, int64(1), page.Pagination.TotalItems)
}

func TestSequencerKeepsOnlyLatest(t *testing.T) {
	var seq Sequencer
	first := seq.Next()
	second := seq.Next()

	require.False(t, seq.Latest(first))
	require.True(t, seq.Latest(second))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			seq.Next()
		}()
	}
	wg.Wait()
	require.True(t, seq.Latest(second+50))
}
