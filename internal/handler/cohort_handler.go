package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-classroom/internal/dto"
	"github.com/noah-isme/gema-classroom/internal/middleware"
	"github.com/noah-isme/gema-classroom/internal/service"
	"github.com/noah-isme/gema-classroom/internal/utils"
)

// CohortHandler exposes cohort management endpoints.
type CohortHandler struct {
	service service.CohortService
	logger  zerolog.Logger
}

// NewCohortHandler constructs the handler.
func NewCohortHandler(service service.CohortService, logger zerolog.Logger) *CohortHandler {
	return &CohortHandler{
		service: service,
		logger:  logger.With().Str("component", "cohort_handler").Logger(),
	}
}

// Register attaches cohort routes.
func (h *CohortHandler) Register(router fiber.Router) {
	instructor := middleware.AuthOptions{Role: middleware.AuthRoleInstructor}

	router.Get("", middleware.WithAuth(h.list, middleware.AuthOptions{RequireUser: true}))
	router.Get("/:id", middleware.WithAuth(h.get, middleware.AuthOptions{RequireUser: true}))
	router.Post("", middleware.WithAuth(h.create, instructor))
	router.Put("/:id", middleware.WithAuth(h.update, instructor))
	router.Delete("/:id", middleware.WithAuth(h.delete, instructor))
}

func (h *CohortHandler) list(c *fiber.Ctx) error {
	result, err := h.service.List(c.UserContext(), listRequestFromQuery(c))
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.OK(c, result.Items, "cohorts retrieved", result.Pagination)
}

func (h *CohortHandler) get(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	cohort, err := h.service.Get(c.UserContext(), id)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "cohort retrieved", cohort)
}

func (h *CohortHandler) create(c *fiber.Ctx) error {
	var payload dto.CohortCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	cohort, err := h.service.Create(c.UserContext(), activityActorFromContext(c), payload)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.Created(c, "cohort created", cohort)
}

func (h *CohortHandler) update(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.CohortUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	cohort, err := h.service.Update(c.UserContext(), id, payload, activityActorFromContext(c))
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "cohort updated", cohort)
}

func (h *CohortHandler) delete(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	if err := h.service.Delete(c.UserContext(), id, activityActorFromContext(c)); err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "cohort deleted", fiber.Map{"id": id})
}
