package backend

import (
	"errors"
	"fmt"
	"net/http"

	statement "billing-desk/internal/statement/domain"
)

// ErrNotFound indicates the backend answered 404.
var ErrNotFound = errors.New("backend: not found")

// APIError is a non-success answer from the billing backend.
type APIError struct {
	Status  int
	Message string
	Errors  map[string]string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("backend: http %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("backend: http %d", e.Status)
}

// Is lets errors.Is(err, ErrNotFound) match a 404 answer.
func (e *APIError) Is(target error) bool {
	return target == ErrNotFound && e.Status == http.StatusNotFound
}

// ConflictError carries a 409 business conflict the user must resolve.
type ConflictError struct {
	Conflict statement.Conflict
}

func (e *ConflictError) Error() string {
	if msg := e.Conflict.Message(); msg != "" {
		return fmt.Sprintf("backend: %s conflict: %s", e.Conflict.Kind(), msg)
	}
	return fmt.Sprintf("backend: %s conflict", e.Conflict.Kind())
}
