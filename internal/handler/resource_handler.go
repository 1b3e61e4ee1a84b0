package handler

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-classroom/internal/dto"
	"github.com/noah-isme/gema-classroom/internal/middleware"
	"github.com/noah-isme/gema-classroom/internal/service"
	"github.com/noah-isme/gema-classroom/internal/utils"
)

// ResourceHandler exposes the learning resource library.
type ResourceHandler struct {
	resources  service.ResourceService
	categories service.CategoryService
	logger     zerolog.Logger
}

// NewResourceHandler constructs the handler.
func NewResourceHandler(resources service.ResourceService, categories service.CategoryService, logger zerolog.Logger) *ResourceHandler {
	return &ResourceHandler{
		resources:  resources,
		categories: categories,
		logger:     logger.With().Str("component", "resource_handler").Logger(),
	}
}

// Register attaches resource routes.
func (h *ResourceHandler) Register(router fiber.Router) {
	instructor := middleware.AuthOptions{Role: middleware.AuthRoleInstructor}
	anyUser := middleware.AuthOptions{RequireUser: true}

	router.Get("", middleware.WithAuth(h.list, anyUser))
	router.Get("/search", middleware.WithAuth(h.search, anyUser))
	router.Get("/:id", middleware.WithAuth(h.get, anyUser))
	router.Post("", middleware.WithAuth(h.create, instructor))
	router.Put("/:id", middleware.WithAuth(h.update, instructor))
	router.Delete("/:id", middleware.WithAuth(h.delete, instructor))
}

// RegisterCategories attaches category routes.
func (h *ResourceHandler) RegisterCategories(router fiber.Router) {
	instructor := middleware.AuthOptions{Role: middleware.AuthRoleInstructor}
	anyUser := middleware.AuthOptions{RequireUser: true}

	router.Get("", middleware.WithAuth(h.listCategories, anyUser))
	router.Get("/:id", middleware.WithAuth(h.getCategory, anyUser))
	router.Post("", middleware.WithAuth(h.createCategory, instructor))
	router.Put("/:id", middleware.WithAuth(h.updateCategory, instructor))
	router.Delete("/:id", middleware.WithAuth(h.deleteCategory, instructor))
}

func (h *ResourceHandler) listRequest(c *fiber.Ctx) (dto.ResourceListRequest, error) {
	categoryID, err := queryUint(c, "category_id")
	if err != nil {
		return dto.ResourceListRequest{}, err
	}

	req := dto.ResourceListRequest{
		ListRequest: listRequestFromQuery(c),
		CategoryID:  categoryID,
		Type:        strings.TrimSpace(c.Query("type")),
		Tag:         strings.TrimSpace(c.Query("tag")),
	}
	if q := strings.TrimSpace(c.Query("q")); q != "" && req.Search == "" {
		req.Search = q
	}
	return req, nil
}

func (h *ResourceHandler) list(c *fiber.Ctx) error {
	req, err := h.listRequest(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	result, err := h.resources.List(c.UserContext(), req)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.OK(c, result.Items, "resources retrieved", result.Pagination)
}

func (h *ResourceHandler) search(c *fiber.Ctx) error {
	req, err := h.listRequest(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	result, err := h.resources.Search(c.UserContext(), req)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.OK(c, result.Items, "resources retrieved", result.Pagination)
}

func (h *ResourceHandler) get(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	resource, err := h.resources.Get(c.UserContext(), id)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "resource retrieved", resource)
}

func (h *ResourceHandler) create(c *fiber.Ctx) error {
	var payload dto.ResourceCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	resource, err := h.resources.Create(c.UserContext(), activityActorFromContext(c), payload)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.Created(c, "resource created", resource)
}

func (h *ResourceHandler) update(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.ResourceUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	resource, err := h.resources.Update(c.UserContext(), id, payload, activityActorFromContext(c))
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "resource updated", resource)
}

func (h *ResourceHandler) delete(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	if err := h.resources.Delete(c.UserContext(), id, activityActorFromContext(c)); err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "resource deleted", fiber.Map{"id": id})
}

func (h *ResourceHandler) listCategories(c *fiber.Ctx) error {
	items, err := h.categories.List(c.UserContext(), c.Query("search"))
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "categories retrieved", items)
}

func (h *ResourceHandler) getCategory(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	category, err := h.categories.Get(c.UserContext(), id)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "category retrieved", category)
}

func (h *ResourceHandler) createCategory(c *fiber.Ctx) error {
	var payload dto.CategoryRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	category, err := h.categories.Create(c.UserContext(), activityActorFromContext(c), payload)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.Created(c, "category created", category)
}

func (h *ResourceHandler) updateCategory(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.CategoryRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	category, err := h.categories.Update(c.UserContext(), id, payload, activityActorFromContext(c))
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "category updated", category)
}

func (h *ResourceHandler) deleteCategory(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	if err := h.categories.Delete(c.UserContext(), id, activityActorFromContext(c)); err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "category deleted", fiber.Map{"id": id})
}
