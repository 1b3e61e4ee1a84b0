package handler

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-classroom/internal/dto"
	"github.com/noah-isme/gema-classroom/internal/middleware"
	"github.com/noah-isme/gema-classroom/internal/service"
	"github.com/noah-isme/gema-classroom/internal/utils"
)

// SubmissionHandler manages submission endpoints.
type SubmissionHandler struct {
	service  service.SubmissionService
	uploads  service.UploadService
	feedback service.FeedbackService
	logger   zerolog.Logger
}

// NewSubmissionHandler constructs a submission handler. uploads and feedback
// may be nil, in which case their routes answer 503.
func NewSubmissionHandler(service service.SubmissionService, uploads service.UploadService, feedback service.FeedbackService, logger zerolog.Logger) *SubmissionHandler {
	return &SubmissionHandler{
		service:  service,
		uploads:  uploads,
		feedback: feedback,
		logger:   logger.With().Str("component", "submission_handler").Logger(),
	}
}

// Register sets up submission routes.
func (h *SubmissionHandler) Register(router fiber.Router) {
	student := middleware.AuthOptions{Role: middleware.AuthRoleStudent}
	instructor := middleware.AuthOptions{Role: middleware.AuthRoleInstructor}
	anyUser := middleware.AuthOptions{RequireUser: true}

	router.Post("", middleware.WithAuth(h.create, student))
	router.Post("/upload", middleware.WithAuth(h.upload, anyUser))
	router.Get("/assignment/:id", middleware.WithAuth(h.listByAssignment, instructor))
	router.Get("/assignment/:id/mine", middleware.WithAuth(h.mine, student))
	router.Get("/:id", middleware.WithAuth(h.get, anyUser))
	router.Put("/:id/submit", middleware.WithAuth(h.submit, student))
	router.Put("/:id/grade", middleware.WithAuth(h.grade, instructor))
	router.Put("/:id", middleware.WithAuth(h.update, student))
	router.Post("/:id/feedback-draft", middleware.WithAuth(h.draftFeedback, instructor))
}

func (h *SubmissionHandler) create(c *fiber.Ctx) error {
	var payload dto.SubmissionCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	result, err := h.service.Create(c.UserContext(), activityActorFromContext(c), payload)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.Created(c, "submission created", result)
}

func (h *SubmissionHandler) submit(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	result, err := h.service.Submit(c.UserContext(), id, activityActorFromContext(c))
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "submission submitted", result)
}

func (h *SubmissionHandler) update(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.SubmissionUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	result, err := h.service.Update(c.UserContext(), id, payload, activityActorFromContext(c))
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "submission updated", result)
}

func (h *SubmissionHandler) grade(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.SubmissionGradeRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	result, err := h.service.Grade(c.UserContext(), id, payload, activityActorFromContext(c))
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "submission graded", result)
}

func (h *SubmissionHandler) get(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	result, err := h.service.Get(c.UserContext(), id, activityActorFromContext(c))
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "submission retrieved", result)
}

func (h *SubmissionHandler) listByAssignment(c *fiber.Ctx) error {
	assignmentID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	items, err := h.service.ListByAssignment(c.UserContext(), assignmentID)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "submissions retrieved", items)
}

func (h *SubmissionHandler) mine(c *fiber.Ctx) error {
	assignmentID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	result, err := h.service.GetMine(c.UserContext(), assignmentID, activityActorFromContext(c))
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "submission retrieved", result)
}

func (h *SubmissionHandler) upload(c *fiber.Ctx) error {
	if h.uploads == nil {
		return respondError(c, h.logger, service.ErrStorageUnavailable)
	}

	file, err := c.FormFile("file")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "file is required")
	}

	req := service.UploadRequest{File: file}
	if id := userIDFromContext(c); id > 0 {
		req.UserID = &id
	}
	if raw := c.FormValue("assignment_id"); raw != "" {
		assignmentID, err := strconv.ParseUint(raw, 10, 64)
		if err != nil || assignmentID == 0 {
			return utils.SendError(c, fiber.StatusBadRequest, "invalid assignment id")
		}
		id := uint(assignmentID)
		req.AssignmentID = &id
	}

	result, err := h.uploads.Upload(c.UserContext(), req)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "upload successful", result)
}

func (h *SubmissionHandler) draftFeedback(c *fiber.Ctx) error {
	if h.feedback == nil {
		return respondError(c, h.logger, service.ErrFeedbackUnavailable)
	}

	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	result, err := h.feedback.Draft(c.UserContext(), id, activityActorFromContext(c))
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "feedback drafted", result)
}
