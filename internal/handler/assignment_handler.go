package handler

import (
	"errors"
	"mime/multipart"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-classroom/internal/dto"
	"github.com/noah-isme/gema-classroom/internal/middleware"
	"github.com/noah-isme/gema-classroom/internal/service"
	"github.com/noah-isme/gema-classroom/internal/utils"
)

// AssignmentHandler wires assignment HTTP routes.
type AssignmentHandler struct {
	service service.AssignmentService
	logger  zerolog.Logger
}

// NewAssignmentHandler constructs the handler.
func NewAssignmentHandler(service service.AssignmentService, logger zerolog.Logger) *AssignmentHandler {
	return &AssignmentHandler{
		service: service,
		logger:  logger.With().Str("component", "assignment_handler").Logger(),
	}
}

// Register attaches assignment endpoints to the router group.
func (h *AssignmentHandler) Register(router fiber.Router) {
	instructor := middleware.AuthOptions{Role: middleware.AuthRoleInstructor}
	anyUser := middleware.AuthOptions{RequireUser: true}

	router.Get("", middleware.WithAuth(h.list, anyUser))
	router.Get("/:id", middleware.WithAuth(h.get, anyUser))
	router.Post("", middleware.WithAuth(h.create, instructor))
	router.Put("/:id", middleware.WithAuth(h.update, instructor))
	router.Patch("/:id", middleware.WithAuth(h.update, instructor))
	router.Delete("/:id", middleware.WithAuth(h.delete, instructor))
}

func (h *AssignmentHandler) list(c *fiber.Ctx) error {
	cohortID, err := queryUint(c, "cohort_id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	req := dto.AssignmentListRequest{
		ListRequest: listRequestFromQuery(c),
		Status:      strings.TrimSpace(c.Query("status")),
		CohortID:    cohortID,
	}

	result, err := h.service.List(c.UserContext(), req, activityActorFromContext(c))
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.OK(c, result.Items, "assignments retrieved", result.Pagination)
}

func (h *AssignmentHandler) get(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	assignment, err := h.service.Get(c.UserContext(), id, activityActorFromContext(c))
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "assignment retrieved", assignment)
}

func (h *AssignmentHandler) create(c *fiber.Ctx) error {
	var payload dto.AssignmentCreateRequest
	var file *multipart.FileHeader

	if isJSONRequest(c) {
		if err := c.BodyParser(&payload); err != nil {
			return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
		}
	} else {
		points, err := parseFormFloat(c, "points")
		if err != nil {
			return utils.SendError(c, fiber.StatusBadRequest, err.Error())
		}
		cohortIDs, err := parseUintList(c.FormValue("cohort_ids"))
		if err != nil {
			return utils.SendError(c, fiber.StatusBadRequest, err.Error())
		}

		payload = dto.AssignmentCreateRequest{
			Title:            c.FormValue("title"),
			Description:      c.FormValue("description"),
			DueDate:          c.FormValue("due_date"),
			AllowedFileTypes: splitAndTrim(c.FormValue("allowed_file_types")),
			Status:           c.FormValue("status"),
			CohortIDs:        cohortIDs,
		}
		if points != nil {
			payload.Points = *points
		}
		file = formFile(c, "file")
	}

	assignment, err := h.service.Create(c.UserContext(), activityActorFromContext(c), payload, file)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.Created(c, "assignment created", assignment)
}

func (h *AssignmentHandler) update(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.AssignmentUpdateRequest
	var file *multipart.FileHeader

	if isJSONRequest(c) {
		if err := c.BodyParser(&payload); err != nil {
			return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
		}
	} else {
		if title := c.FormValue("title"); title != "" {
			payload.Title = &title
		}
		if description := c.FormValue("description"); description != "" {
			payload.Description = &description
		}
		if due := c.FormValue("due_date"); due != "" {
			payload.DueDate = &due
		}
		if status := c.FormValue("status"); status != "" {
			payload.Status = &status
		}
		points, err := parseFormFloat(c, "points")
		if err != nil {
			return utils.SendError(c, fiber.StatusBadRequest, err.Error())
		}
		payload.Points = points
		if raw := c.FormValue("allowed_file_types"); raw != "" {
			types := splitAndTrim(raw)
			payload.AllowedFileTypes = &types
		}
		if raw := c.FormValue("cohort_ids"); raw != "" {
			cohortIDs, err := parseUintList(raw)
			if err != nil {
				return utils.SendError(c, fiber.StatusBadRequest, err.Error())
			}
			payload.CohortIDs = &cohortIDs
		}
		file = formFile(c, "file")
	}

	assignment, err := h.service.Update(c.UserContext(), id, payload, file, activityActorFromContext(c))
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "assignment updated", assignment)
}

func (h *AssignmentHandler) delete(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	if err := h.service.Delete(c.UserContext(), id, activityActorFromContext(c)); err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "assignment deleted", fiber.Map{"id": id})
}

func isJSONRequest(c *fiber.Ctx) bool {
	return strings.HasPrefix(strings.ToLower(c.Get(fiber.HeaderContentType)), fiber.MIMEApplicationJSON)
}

func formFile(c *fiber.Ctx, key string) *multipart.FileHeader {
	file, err := c.FormFile(key)
	if err != nil {
		return nil
	}
	return file
}

func parseFormFloat(c *fiber.Ctx, key string) (*float64, error) {
	value := strings.TrimSpace(c.FormValue(key))
	if value == "" {
		return nil, nil
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, errors.New("invalid " + key)
	}
	return &parsed, nil
}
