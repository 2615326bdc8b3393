package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"billing-desk/internal/backend"
	"billing-desk/internal/statement/application"
	statement "billing-desk/internal/statement/domain"
)

type envelope struct {
	Success bool              `json:"success"`
	Data    any               `json:"data,omitempty"`
	Message string            `json:"message,omitempty"`
	Errors  map[string]string `json:"errors,omitempty"`
}

func respond(w http.ResponseWriter, status int, body envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func respondData(w http.ResponseWriter, status int, data any) {
	respond(w, status, envelope{Success: true, Data: data})
}

// respondError maps service errors onto the response envelope. Nothing has been
// written to w before it is called.
func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		validation *application.ValidationError
		conflict   *backend.ConflictError
		apiErr     *backend.APIError
	)
	switch {
	case errors.As(err, &validation):
		respond(w, http.StatusUnprocessableEntity, envelope{Message: "validation failed", Errors: validation.Fields})
	case errors.As(err, &conflict):
		payload, encodeErr := statement.EncodeConflict(conflict.Conflict)
		if encodeErr != nil {
			h.logger.Error().Err(encodeErr).Msg("encode conflict")
			respond(w, http.StatusInternalServerError, envelope{Message: "internal error"})
			return
		}
		message := conflict.Conflict.Message()
		if message == "" {
			message = "conflict"
		}
		respond(w, http.StatusConflict, envelope{Data: json.RawMessage(payload), Message: message})
	case errors.Is(err, statement.ErrInvalidFilter),
		errors.Is(err, statement.ErrInvalidFormat),
		errors.Is(err, application.ErrEmptyClientID):
		respond(w, http.StatusBadRequest, envelope{Message: err.Error()})
	case errors.Is(err, statement.ErrExportFailed):
		respond(w, http.StatusInternalServerError, envelope{Message: "export failed"})
	case errors.As(err, &apiErr):
		status := apiErr.Status
		if status < http.StatusBadRequest {
			status = http.StatusBadGateway
		}
		message := apiErr.Message
		if message == "" {
			message = http.StatusText(status)
		}
		respond(w, status, envelope{Message: message, Errors: apiErr.Errors})
	default:
		h.logger.Warn().Err(err).Str("path", r.URL.Path).Msg("backend unavailable")
		respond(w, http.StatusBadGateway, envelope{Message: "backend unavailable"})
	}
}
