package lmsclient

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrNotFound matches API errors with status 404.
	ErrNotFound = errors.New("resource not found")
	// ErrConflict matches API errors with status 409, such as a duplicate
	// submission or a stale version token.
	ErrConflict = errors.New("resource conflict")
	// ErrUnauthorized matches API errors with status 401 or 403.
	ErrUnauthorized = errors.New("not authorized")
	// ErrInvalidBaseURL indicates a base URL without scheme or host.
	ErrInvalidBaseURL = errors.New("invalid base url")
)

// APIError is returned for every non-2xx response.
type APIError struct {
	Status  int
	Message string
	Details []string
}

func (e *APIError) Error() string {
	message := e.Message
	if message == "" {
		message = http.StatusText(e.Status)
	}
	if len(e.Details) > 0 {
		return fmt.Sprintf("api error %d: %s (%s)", e.Status, message, strings.Join(e.Details, "; "))
	}
	return fmt.Sprintf("api error %d: %s", e.Status, message)
}

// Is lets errors.Is match the status sentinels.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.Status == http.StatusNotFound
	case ErrConflict:
		return e.Status == http.StatusConflict
	case ErrUnauthorized:
		return e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden
	}
	return false
}
