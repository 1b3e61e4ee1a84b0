package handler_test

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-classroom/internal/dto"
)

func TestAssignmentHandlerMultipartCreate(t *testing.T) {
	srv := newTestServer(t)
	trainer := srv.seedUser(t, "Tara Trainer", "trainer")
	student := srv.seedUser(t, "Sam Student", "student")

	due := time.Now().Add(72 * time.Hour).UTC().Format(time.RFC3339)
	fields := map[string]string{
		"title":              "Research Brief",
		"description":        "Outline your topic.",
		"due_date":           due,
		"points":             "50",
		"allowed_file_types": "pdf, docx",
	}

	resp, env := srv.upload(t, "/api/v1/assignments", tokenFor(t, trainer), "file", "Brief Outline.pdf", []byte("%PDF-1.4 brief"), fields)
	require.Equal(t, http.StatusCreated, resp.StatusCode, env.Message)

	var created dto.AssignmentResponse
	decodeData(t, env, &created)
	require.Equal(t, "Research Brief", created.Title)
	require.Equal(t, float64(50), created.Points)
	require.Len(t, created.AllowedFileTypes, 2)
	require.True(t, strings.HasPrefix(created.FileURL, "https://files.test/"), created.FileURL)

	resp, _ = srv.upload(t, "/api/v1/assignments", tokenFor(t, student), "file", "", nil, fields)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, env = srv.do(t, http.MethodGet, "/api/v1/assignments", tokenFor(t, student), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var items []dto.AssignmentResponse
	decodeData(t, env, &items)
	require.Len(t, items, 1)
	require.Contains(t, string(env.Meta), `"total_items":1`)
}

func TestAssignmentHandlerJSONUpdateAndDelete(t *testing.T) {
	srv := newTestServer(t)
	trainer := srv.seedUser(t, "Tara Trainer", "trainer")
	token := tokenFor(t, trainer)

	resp, env := srv.do(t, http.MethodPost, "/api/v1/assignments", token, map[string]interface{}{
		"title":    "Reading Log",
		"due_date": time.Now().Add(24 * time.Hour).UTC().Format(time.RFC3339),
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, env.Message)
	var created dto.AssignmentResponse
	decodeData(t, env, &created)

	resp, env = srv.do(t, http.MethodPatch, fmt.Sprintf("/api/v1/assignments/%d", created.ID), token, map[string]interface{}{
		"title": "Weekly Reading Log",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, env.Message)
	var updated dto.AssignmentResponse
	decodeData(t, env, &updated)
	require.Equal(t, "Weekly Reading Log", updated.Title)

	resp, env = srv.do(t, http.MethodPost, "/api/v1/assignments", token, map[string]interface{}{
		"title":    "No",
		"due_date": "tomorrow",
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "validation failed", env.Message)

	resp, _ = srv.do(t, http.MethodDelete, fmt.Sprintf("/api/v1/assignments/%d", created.ID), token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = srv.do(t, http.MethodGet, fmt.Sprintf("/api/v1/assignments/%d", created.ID), token, nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCohortScopesAssignmentVisibility(t *testing.T) {
	srv := newTestServer(t)
	trainer := srv.seedUser(t, "Tara Trainer", "trainer")
	member := srv.seedUser(t, "Mia Member", "student")
	outsider := srv.seedUser(t, "Otto Outsider", "student")
	token := tokenFor(t, trainer)

	resp, env := srv.do(t, http.MethodPost, "/api/v1/cohorts", token, map[string]interface{}{
		"name":        "Batch A",
		"trainer_ids": []uint{trainer.ID},
		"student_ids": []uint{member.ID},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, env.Message)
	var cohort dto.CohortResponse
	decodeData(t, env, &cohort)
	require.Equal(t, []uint{member.ID}, cohort.StudentIDs)

	resp, _ = srv.do(t, http.MethodPost, "/api/v1/cohorts", token, map[string]interface{}{"name": "Batch A"})
	require.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, _ = srv.do(t, http.MethodPost, "/api/v1/cohorts", token, map[string]interface{}{
		"name":        "Batch B",
		"student_ids": []uint{trainer.ID},
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, env = srv.do(t, http.MethodPost, "/api/v1/assignments", token, map[string]interface{}{
		"title":      "Cohort Essay",
		"due_date":   time.Now().Add(48 * time.Hour).UTC().Format(time.RFC3339),
		"cohort_ids": []uint{cohort.ID},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, env.Message)

	var visible []dto.AssignmentResponse
	_, env = srv.do(t, http.MethodGet, "/api/v1/assignments", tokenFor(t, member), nil)
	decodeData(t, env, &visible)
	require.Len(t, visible, 1)

	var hidden []dto.AssignmentResponse
	_, env = srv.do(t, http.MethodGet, "/api/v1/assignments", tokenFor(t, outsider), nil)
	decodeData(t, env, &hidden)
	require.Empty(t, hidden)
}

func TestUserHandlerAdminOnlyWrites(t *testing.T) {
	srv := newTestServer(t)
	admin := srv.seedUser(t, "Ada Admin", "admin")
	trainer := srv.seedUser(t, "Tara Trainer", "trainer")

	payload := map[string]interface{}{"name": "Dana Lee", "email": "dana@example.com", "role": "student"}

	resp, _ := srv.do(t, http.MethodPost, "/api/v1/users", tokenFor(t, trainer), payload)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, env := srv.do(t, http.MethodPost, "/api/v1/users", tokenFor(t, admin), payload)
	require.Equal(t, http.StatusCreated, resp.StatusCode, env.Message)
	var user dto.UserResponse
	decodeData(t, env, &user)
	require.Equal(t, "student", user.Role)

	resp, _ = srv.do(t, http.MethodPost, "/api/v1/users", tokenFor(t, admin), payload)
	require.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, env = srv.do(t, http.MethodGet, fmt.Sprintf("/api/v1/users/%d", user.ID), tokenFor(t, trainer), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, env.Message)
}

func TestSessionHandlerValidation(t *testing.T) {
	srv := newTestServer(t)
	trainer := srv.seedUser(t, "Tara Trainer", "trainer")
	token := tokenFor(t, trainer)

	_, env := srv.do(t, http.MethodPost, "/api/v1/cohorts", token, map[string]interface{}{"name": "Evening Batch"})
	var cohort dto.CohortResponse
	decodeData(t, env, &cohort)

	start := time.Now().Add(24 * time.Hour).UTC().Truncate(time.Second)
	resp, env := srv.do(t, http.MethodPost, "/api/v1/sessions", token, map[string]interface{}{
		"cohort_id": cohort.ID,
		"title":     "Kickoff",
		"starts_at": start,
		"ends_at":   start.Add(90 * time.Minute),
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, env.Message)

	resp, _ = srv.do(t, http.MethodPost, "/api/v1/sessions", token, map[string]interface{}{
		"cohort_id": cohort.ID,
		"title":     "Backwards",
		"starts_at": start,
		"ends_at":   start.Add(-time.Hour),
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = srv.do(t, http.MethodGet, "/api/v1/sessions?from=yesterday", token, nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, env = srv.do(t, http.MethodGet, fmt.Sprintf("/api/v1/sessions?cohort_id=%d", cohort.ID), token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, env.Message)
	require.Contains(t, string(env.Meta), `"total_items":1`)
}

func TestResourceHandlerSearch(t *testing.T) {
	srv := newTestServer(t)
	trainer := srv.seedUser(t, "Tara Trainer", "trainer")
	student := srv.seedUser(t, "Sam Student", "student")
	token := tokenFor(t, trainer)

	resp, env := srv.do(t, http.MethodPost, "/api/v1/categories", token, map[string]interface{}{"name": "Go Basics"})
	require.Equal(t, http.StatusCreated, resp.StatusCode, env.Message)
	var category dto.CategoryResponse
	decodeData(t, env, &category)
	require.Equal(t, "go-basics", category.Slug)

	resp, _ = srv.do(t, http.MethodPost, "/api/v1/categories", token, map[string]interface{}{"name": "Go Basics"})
	require.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, env = srv.do(t, http.MethodPost, "/api/v1/resources", token, map[string]interface{}{
		"title":       "Effective Go",
		"url":         "https://go.dev/doc/effective_go",
		"type":        "link",
		"category_id": category.ID,
		"tags":        []string{"style"},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, env.Message)

	resp, _ = srv.do(t, http.MethodPost, "/api/v1/resources", tokenFor(t, student), map[string]interface{}{
		"title": "Student Link",
		"url":   "https://example.com",
	})
	require.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, _ = srv.do(t, http.MethodGet, "/api/v1/resources/search", tokenFor(t, student), nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, env = srv.do(t, http.MethodGet, "/api/v1/resources/search?q=effective", tokenFor(t, student), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, env.Message)
	var found []dto.ResourceResponse
	decodeData(t, env, &found)
	require.Len(t, found, 1)
	require.Equal(t, "Effective Go", found[0].Title)
}

func TestActivityHandlerListsRecordedActions(t *testing.T) {
	srv := newTestServer(t)
	trainer := srv.seedUser(t, "Tara Trainer", "trainer")
	student := srv.seedUser(t, "Sam Student", "student")
	token := tokenFor(t, trainer)

	resp, _ := srv.do(t, http.MethodPost, "/api/v1/cohorts", token, map[string]interface{}{"name": "Audit Batch"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, env := srv.do(t, http.MethodGet, fmt.Sprintf("/api/v1/activity?actor_id=%d", trainer.ID), token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, env.Message)
	var entries []dto.ActivityResponse
	decodeData(t, env, &entries)
	require.NotEmpty(t, entries)

	resp, _ = srv.do(t, http.MethodGet, "/api/v1/activity", tokenFor(t, student), nil)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestStudentDashboardHandler(t *testing.T) {
	srv := newTestServer(t)
	student := srv.seedUser(t, "Sam Student", "student")
	trainer := srv.seedUser(t, "Tara Trainer", "trainer")
	srv.seedAssignment(t, "Essay", time.Now().Add(24*time.Hour))

	resp, env := srv.do(t, http.MethodGet, "/api/v1/dashboard", tokenFor(t, student), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, env.Message)
	var dashboard dto.StudentDashboardResponse
	decodeData(t, env, &dashboard)
	require.Equal(t, 1, dashboard.Summary.TotalAssignments)
	require.Equal(t, 1, dashboard.Summary.Pending)

	resp, _ = srv.do(t, http.MethodGet, "/api/v1/dashboard?tab=archived", tokenFor(t, student), nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = srv.do(t, http.MethodGet, "/api/v1/dashboard", tokenFor(t, trainer), nil)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestHealthAndMetricsRoutes(t *testing.T) {
	srv := newTestServer(t)

	resp, env := srv.do(t, http.MethodGet, "/api/v1/health", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.True(t, env.Success)
	require.Equal(t, "Test", resp.Header.Get("X-Application"))

	resp, err := srv.app.Test(httptest.NewRequest(http.MethodGet, "/metrics", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), "classroom_requests_total")
}
