package handler

import (
	"errors"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-classroom/internal/dto"
	"github.com/noah-isme/gema-classroom/internal/middleware"
	"github.com/noah-isme/gema-classroom/internal/service"
	"github.com/noah-isme/gema-classroom/internal/submission"
	"github.com/noah-isme/gema-classroom/internal/utils"
)

func splitAndTrim(input string) []string {
	parts := strings.Split(input, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func parseQueryInt(c *fiber.Ctx, key string) (int, error) {
	value := strings.TrimSpace(c.Query(key))
	if value == "" {
		return 0, nil
	}
	return strconv.Atoi(value)
}

func parseUintParam(c *fiber.Ctx, name string) (uint, error) {
	value := strings.TrimSpace(c.Params(name))
	parsed, err := strconv.ParseUint(value, 10, 64)
	if err != nil || parsed == 0 {
		return 0, errors.New("invalid identifier")
	}
	return uint(parsed), nil
}

func parseUintList(input string) ([]uint, error) {
	values := splitAndTrim(input)
	result := make([]uint, 0, len(values))
	for _, value := range values {
		parsed, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return nil, errors.New("invalid identifier list")
		}
		result = append(result, uint(parsed))
	}
	return result, nil
}

func userIDFromContext(c *fiber.Ctx) uint {
	return middleware.PrincipalFrom(c).UserID
}

func activityActorFromContext(c *fiber.Ctx) service.ActivityActor {
	principal := middleware.PrincipalFrom(c)
	return service.ActivityActor{ID: principal.UserID, Role: principal.Role}
}

func requestLogger(base zerolog.Logger, c *fiber.Ctx) *zerolog.Logger {
	logger := base
	if c != nil {
		if correlation := middleware.GetCorrelationID(c); correlation != "" {
			logger = base.With().Str("correlation_id", correlation).Logger()
		}
	}
	return &logger
}

func isValidationError(err error) bool {
	var validationErrors validator.ValidationErrors
	return errors.As(err, &validationErrors)
}

func validationDetails(err error) []string {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return nil
	}
	details := make([]string, 0, len(validationErrors))
	for _, fieldErr := range validationErrors {
		details = append(details, fieldErr.Field()+": "+fieldErr.Tag())
	}
	return details
}

// errorStatus maps service and domain errors to HTTP status codes. Unknown
// errors map to 500.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, service.ErrSubmissionNotFound),
		errors.Is(err, service.ErrAssignmentNotFound),
		errors.Is(err, service.ErrCohortNotFound),
		errors.Is(err, service.ErrUserNotFound),
		errors.Is(err, service.ErrSessionNotFound),
		errors.Is(err, service.ErrResourceNotFound),
		errors.Is(err, service.ErrCategoryNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, service.ErrSubmissionExists),
		errors.Is(err, service.ErrSubmissionConflict),
		errors.Is(err, service.ErrEmailTaken),
		errors.Is(err, service.ErrCohortNameTaken),
		errors.Is(err, service.ErrCategoryTaken):
		return fiber.StatusConflict
	case errors.Is(err, service.ErrSubmissionForbidden),
		errors.Is(err, service.ErrGradingForbidden),
		errors.Is(err, submission.ErrNotInstructor):
		return fiber.StatusForbidden
	case errors.Is(err, service.ErrUploadTooLarge),
		errors.Is(err, submission.ErrFileTooLarge):
		return fiber.StatusRequestEntityTooLarge
	case errors.Is(err, service.ErrSubmissionLocked),
		errors.Is(err, service.ErrSubmissionEmpty),
		errors.Is(err, service.ErrInvalidTransition),
		errors.Is(err, service.ErrAssignmentClosed),
		errors.Is(err, service.ErrSubmissionFileRemoved),
		errors.Is(err, service.ErrFeedbackNotReady),
		errors.Is(err, submission.ErrLocked),
		errors.Is(err, submission.ErrNoContent),
		errors.Is(err, submission.ErrInvalidTransition),
		errors.Is(err, submission.ErrScoreOutOfRange),
		errors.Is(err, submission.ErrFileTypeNotAllowed):
		return fiber.StatusUnprocessableEntity
	case errors.Is(err, service.ErrUploadTypeNotAllowed),
		errors.Is(err, service.ErrUploadScanFailed),
		errors.Is(err, service.ErrUploadMissing),
		errors.Is(err, service.ErrInvalidTab),
		errors.Is(err, service.ErrInvalidDateFilter),
		errors.Is(err, service.ErrSessionWindow),
		errors.Is(err, service.ErrCohortDates),
		errors.Is(err, service.ErrMemberRole),
		errors.Is(err, service.ErrSearchQueryRequired),
		isValidationError(err):
		return fiber.StatusBadRequest
	case errors.Is(err, service.ErrStorageUnavailable),
		errors.Is(err, service.ErrFeedbackUnavailable):
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}

// respondError writes the envelope for err and logs anything unexpected.
func respondError(c *fiber.Ctx, logger zerolog.Logger, err error) error {
	status := errorStatus(err)
	if status == fiber.StatusInternalServerError {
		requestLogger(logger, c).Error().Err(err).Str("path", c.Path()).Msg("internal server error")
		return utils.SendError(c, status, "internal server error")
	}
	if details := validationDetails(err); len(details) > 0 {
		return utils.Fail(c, status, "validation failed", details)
	}
	return utils.SendError(c, status, err.Error())
}

func listRequestFromQuery(c *fiber.Ctx) dto.ListRequest {
	return dto.ListRequest{
		Page:     c.QueryInt("page", 1),
		PageSize: c.QueryInt("page_size", 0),
		Search:   c.Query("search"),
		Sort:     c.Query("sort"),
	}.Normalize()
}

func queryUint(c *fiber.Ctx, key string) (uint, error) {
	value := strings.TrimSpace(c.Query(key))
	if value == "" {
		return 0, nil
	}
	parsed, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return 0, errors.New("invalid " + key)
	}
	return uint(parsed), nil
}
