package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-classroom/internal/config"
	"github.com/noah-isme/gema-classroom/internal/handler"
	"github.com/noah-isme/gema-classroom/internal/middleware"
	"github.com/noah-isme/gema-classroom/internal/models"
	"github.com/noah-isme/gema-classroom/internal/repository"
	"github.com/noah-isme/gema-classroom/internal/router"
	"github.com/noah-isme/gema-classroom/internal/service"
	"github.com/noah-isme/gema-classroom/pkg/ai"
)

const testSecret = "handler-test-secret"

type memoryStorage struct {
	mu    sync.Mutex
	names []string
}

func (s *memoryStorage) Upload(_ context.Context, name string, reader io.Reader) (string, error) {
	if _, err := io.Copy(io.Discard, reader); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.names = append(s.names, name)
	return "https://files.test/" + name, nil
}

type staticDrafter struct{}

func (staticDrafter) DraftFeedback(_ context.Context, input ai.FeedbackInput) (ai.FeedbackDraft, error) {
	return ai.FeedbackDraft{Score: input.MaxScore * 0.8, Feedback: "Clear structure. <script>x</script>Cite sources."}, nil
}

func (staticDrafter) Provider() string { return "static" }
func (staticDrafter) Model() string    { return "test" }

type testServer struct {
	app     *fiber.App
	db      *gorm.DB
	events  service.SubmissionEvents
	storage *memoryStorage
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open("file:"+name+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(models.All()...))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	logger := zerolog.Nop()
	validate := validator.New(validator.WithRequiredStructEnabled())
	storage := &memoryStorage{}

	userRepo := repository.NewUserRepository(db)
	cohortRepo := repository.NewCohortRepository(db)
	assignmentRepo := repository.NewAssignmentRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)

	events := service.NewSubmissionEvents(nil, nil, "", logger)
	activity := service.NewActivityService(repository.NewActivityLogRepository(db), validate, logger)
	dashboard := service.NewStudentDashboardService(assignmentRepo, submissionRepo, userRepo, nil, time.Minute, logger)
	submissions := service.NewSubmissionService(submissionRepo, assignmentRepo, validate, events, activity, dashboard, 10*1024*1024, logger)
	assignments := service.NewAssignmentService(assignmentRepo, userRepo, validate, storage, activity, nil, time.Minute, logger)
	uploads := service.NewUploadService(storage, repository.NewUploadRepository(db), assignmentRepo, 1, logger)
	feedback := service.NewFeedbackService(submissionRepo, staticDrafter{}, activity, logger)
	cohorts := service.NewCohortService(cohortRepo, userRepo, validate, activity, logger)
	users := service.NewUserService(userRepo, validate, activity, logger)
	sessions := service.NewSessionService(repository.NewSessionRepository(db), cohortRepo, userRepo, validate, activity, logger)
	categoryRepo := repository.NewCategoryRepository(db)
	resources := service.NewResourceService(repository.NewResourceRepository(db), categoryRepo, validate, activity, logger)
	categories := service.NewCategoryService(categoryRepo, validate, activity, logger)

	app := fiber.New()
	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, config.Config{AppName: "Test", AppEnv: "test", JWTSecret: testSecret}, router.Dependencies{
		AssignmentHandler:       handler.NewAssignmentHandler(assignments, logger),
		SubmissionHandler:       handler.NewSubmissionHandler(submissions, uploads, feedback, logger),
		StudentDashboardHandler: handler.NewStudentDashboardHandler(dashboard, logger),
		CohortHandler:           handler.NewCohortHandler(cohorts, logger),
		UserHandler:             handler.NewUserHandler(users, logger),
		SessionHandler:          handler.NewSessionHandler(sessions, logger),
		ResourceHandler:         handler.NewResourceHandler(resources, categories, logger),
		ActivityHandler:         handler.NewActivityHandler(activity, logger),
		EventsHandler:           handler.NewEventsHandler(events, logger),
		JWTMiddleware:           middleware.JWTProtected(testSecret),
	})

	return &testServer{app: app, db: db, events: events, storage: storage}
}

func (s *testServer) seedUser(t *testing.T, name, role string) models.User {
	t.Helper()
	user := models.User{
		Name:   name,
		Email:  strings.ToLower(strings.ReplaceAll(name, " ", ".")) + "@example.com",
		Role:   role,
		Status: models.UserStatusActive,
	}
	require.NoError(t, s.db.Create(&user).Error)
	return user
}

func (s *testServer) seedAssignment(t *testing.T, title string, due time.Time) models.Assignment {
	t.Helper()
	assignment := models.Assignment{
		Title:   title,
		DueDate: due,
		Points:  100,
		Status:  models.AssignmentStatusPublished,
	}
	require.NoError(t, s.db.Create(&assignment).Error)
	return assignment
}

func tokenFor(t *testing.T, user models.User) string {
	t.Helper()
	token, err := middleware.GenerateToken(testSecret, user.ID, user.Role, time.Hour)
	require.NoError(t, err)
	return token
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Meta    json.RawMessage `json:"meta"`
	Errors  json.RawMessage `json:"errors"`
}

func (s *testServer) do(t *testing.T, method, path, token string, body interface{}) (*http.Response, envelope) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}
	return s.send(t, req)
}

func (s *testServer) upload(t *testing.T, path, token, field, filename string, content []byte, fields map[string]string) (*http.Response, envelope) {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for key, value := range fields {
		require.NoError(t, writer.WriteField(key, value))
	}
	if filename != "" {
		part, err := writer.CreateFormFile(field, filename)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, path, body)
	req.Header.Set(fiber.HeaderContentType, writer.FormDataContentType())
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	return s.send(t, req)
}

func (s *testServer) send(t *testing.T, req *http.Request) (*http.Response, envelope) {
	t.Helper()

	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var payload envelope
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &payload), string(raw))
	}
	return resp, payload
}

func decodeData(t *testing.T, env envelope, target interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(env.Data, target))
}
