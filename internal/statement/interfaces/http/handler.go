package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/rs/zerolog"

	"billing-desk/internal/audit"
	"billing-desk/internal/auth"
	"billing-desk/internal/backend"
	"billing-desk/internal/statement/application"
	statement "billing-desk/internal/statement/domain"
	"billing-desk/internal/statement/export"
)

const maxBodyBytes = 1 << 20

// Handler provides statement and ledger edit endpoints.
type Handler struct {
	statements  *application.StatementService
	mutations   *application.MutationService
	auditLogger audit.Logger
	exportLimit int
	logger      zerolog.Logger
}

// NewHandler constructs a handler. exportLimit is the number of exports allowed per
// client IP per minute.
func NewHandler(
	statements *application.StatementService,
	mutations *application.MutationService,
	auditLogger audit.Logger,
	exportLimit int,
	logger zerolog.Logger,
) (*Handler, error) {
	if statements == nil {
		return nil, errors.New("statement handler: nil statement service")
	}
	if mutations == nil {
		return nil, errors.New("statement handler: nil mutation service")
	}
	if exportLimit <= 0 {
		exportLimit = 30
	}
	return &Handler{
		statements:  statements,
		mutations:   mutations,
		auditLogger: auditLogger,
		exportLimit: exportLimit,
		logger:      logger,
	}, nil
}

// Register mounts the routes on r. Paths are relative to the API prefix.
func (h *Handler) Register(r chi.Router) {
	limiter := httprate.LimitByIP(h.exportLimit, time.Minute)

	r.Get("/clients/{clientID}/statement", h.getStatement)
	r.With(limiter).Get("/clients/{clientID}/statement/export.{format}", h.exportStatement)
	r.With(limiter).Get("/clients/{clientID}/statement/print.html", h.printStatement)

	r.Post("/receivables", h.createReceivable)
	r.Put("/receivables/{id}", h.updateReceivable)
	r.Delete("/receivables/{id}", h.deleteReceivable)
	r.Post("/payments", h.recordPayment)
	r.Post("/credits/{id}/apply", h.applyCredit)
	r.Put("/credits/{id}", h.updateCredit)
	r.Put("/tasks/{id}/amount", h.updateTaskAmount)
}

func (h *Handler) getStatement(w http.ResponseWriter, r *http.Request) {
	filter, err := statement.ParseFilter(r.URL.Query().Get("filter"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	view, err := h.statements.View(r.Context(), chi.URLParam(r, "clientID"), filter)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondData(w, http.StatusOK, view)
}

func (h *Handler) exportStatement(w http.ResponseWriter, r *http.Request) {
	format, err := export.ParseFormat(chi.URLParam(r, "format"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.export(w, r, format, true)
}

func (h *Handler) printStatement(w http.ResponseWriter, r *http.Request) {
	h.export(w, r, export.FormatHTML, false)
}

func (h *Handler) export(w http.ResponseWriter, r *http.Request, format export.Format, attachment bool) {
	filter, err := statement.ParseFilter(r.URL.Query().Get("filter"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	clientID := chi.URLParam(r, "clientID")
	doc, err := h.statements.Export(r.Context(), clientID, filter, format)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", doc.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(doc.Data)))
	if attachment {
		w.Header().Set("Content-Disposition", export.ContentDisposition(doc.Filename))
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(doc.Data)

	h.logAudit(r, "statement.export", "statement", clientID, clientID, map[string]any{
		"format":   string(format),
		"filter":   string(filter),
		"filename": doc.Filename,
	})
}

func (h *Handler) createReceivable(w http.ResponseWriter, r *http.Request) {
	var in backend.ReceivableInput
	if !h.decode(w, r, &in, &in.Guard) {
		return
	}
	out, err := h.mutations.CreateReceivable(r.Context(), in)
	h.respondMutation(w, r, http.StatusCreated, out, err, application.ActionCreateReceivable, "receivable", "", in.ClientID)
}

func (h *Handler) updateReceivable(w http.ResponseWriter, r *http.Request) {
	var in backend.ReceivableInput
	if !h.decode(w, r, &in, &in.Guard) {
		return
	}
	in.ID = chi.URLParam(r, "id")
	out, err := h.mutations.UpdateReceivable(r.Context(), in)
	h.respondMutation(w, r, http.StatusOK, out, err, application.ActionUpdateReceivable, "receivable", in.ID, in.ClientID)
}

func (h *Handler) deleteReceivable(w http.ResponseWriter, r *http.Request) {
	var guard backend.Guard
	if !h.decode(w, r, &guard, &guard) {
		return
	}
	id := chi.URLParam(r, "id")
	clientID := r.URL.Query().Get("client_id")
	out, err := h.mutations.DeleteReceivable(r.Context(), clientID, id, guard)
	h.respondMutation(w, r, http.StatusOK, out, err, application.ActionDeleteReceivable, "receivable", id, clientID)
}

func (h *Handler) recordPayment(w http.ResponseWriter, r *http.Request) {
	var in backend.PaymentInput
	if !h.decode(w, r, &in, nil) {
		return
	}
	out, err := h.mutations.RecordPayment(r.Context(), in)
	h.respondMutation(w, r, http.StatusCreated, out, err, application.ActionRecordPayment, "payment", in.ReceivableID, in.ClientID)
}

func (h *Handler) applyCredit(w http.ResponseWriter, r *http.Request) {
	var in backend.CreditApplyInput
	if !h.decode(w, r, &in, &in.Guard) {
		return
	}
	in.CreditID = chi.URLParam(r, "id")
	out, err := h.mutations.ApplyCredit(r.Context(), in)
	h.respondMutation(w, r, http.StatusOK, out, err, application.ActionApplyCredit, "credit", in.CreditID, in.ClientID)
}

func (h *Handler) updateCredit(w http.ResponseWriter, r *http.Request) {
	var in backend.CreditUpdateInput
	if !h.decode(w, r, &in, &in.Guard) {
		return
	}
	in.CreditID = chi.URLParam(r, "id")
	out, err := h.mutations.UpdateCredit(r.Context(), in)
	h.respondMutation(w, r, http.StatusOK, out, err, application.ActionUpdateCredit, "credit", in.CreditID, in.ClientID)
}

func (h *Handler) updateTaskAmount(w http.ResponseWriter, r *http.Request) {
	var in backend.TaskAmountInput
	if !h.decode(w, r, &in, &in.Guard) {
		return
	}
	in.TaskID = chi.URLParam(r, "id")
	out, err := h.mutations.UpdateTaskAmount(r.Context(), in)
	h.respondMutation(w, r, http.StatusOK, out, err, application.ActionUpdateTaskAmount, "task", in.TaskID, in.ClientID)
}

// decode reads a JSON body into dst. When guard is set, a "conflict" member holding the
// 409 payload being answered is decoded into it. An empty body leaves dst untouched.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any, guard *backend.Guard) bool {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		respond(w, http.StatusBadRequest, envelope{Message: "read body error"})
		return false
	}
	defer r.Body.Close()
	if len(body) == 0 {
		return true
	}
	if err := json.Unmarshal(body, dst); err != nil {
		respond(w, http.StatusBadRequest, envelope{Message: "invalid json"})
		return false
	}
	if guard == nil {
		return true
	}
	var answering struct {
		Conflict json.RawMessage `json:"conflict"`
	}
	if err := json.Unmarshal(body, &answering); err != nil {
		respond(w, http.StatusBadRequest, envelope{Message: "invalid json"})
		return false
	}
	if len(answering.Conflict) == 0 || string(answering.Conflict) == "null" {
		return true
	}
	conflict, err := statement.DecodeConflict(answering.Conflict)
	if err != nil {
		respond(w, http.StatusUnprocessableEntity, envelope{
			Message: "validation failed",
			Errors:  map[string]string{"conflict": err.Error()},
		})
		return false
	}
	guard.Conflict = conflict
	return true
}

func (h *Handler) respondMutation(
	w http.ResponseWriter,
	r *http.Request,
	status int,
	out json.RawMessage,
	err error,
	action, resourceType, resourceID, clientID string,
) {
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	var data any
	if len(out) > 0 {
		data = out
	}
	respondData(w, status, data)
	h.logAudit(r, action, resourceType, resourceID, clientID, nil)
}

func (h *Handler) logAudit(r *http.Request, action, resourceType, resourceID, clientID string, meta map[string]any) {
	if h.auditLogger == nil {
		return
	}
	var metadata json.RawMessage
	if meta != nil {
		metadata, _ = json.Marshal(meta)
	}
	err := h.auditLogger.Log(r.Context(), audit.Entry{
		Actor:        auth.SubjectFromContext(r.Context()),
		Role:         string(auth.RoleFromContext(r.Context())),
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		ClientID:     clientID,
		Metadata:     metadata,
		IP:           audit.ClientIP(r),
		UserAgent:    r.UserAgent(),
	})
	if err != nil {
		h.logger.Warn().Err(err).Str("action", action).Msg("audit write failed")
	}
}
