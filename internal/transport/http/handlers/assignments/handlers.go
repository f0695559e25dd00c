package assignmenthandler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"evalhub/internal/domain/assignment"
	"evalhub/internal/domain/auth"
	"evalhub/internal/transport/http/api"
	"evalhub/internal/transport/http/middleware"
	"evalhub/internal/transport/http/shared"
)

type Handler struct {
	Service *assignment.Service
	Perms   middleware.PermissionStore
}

func NewHandler(service *assignment.Service, perms middleware.PermissionStore) *Handler {
	return &Handler{Service: service, Perms: perms}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/assignments", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermAssignmentsWrite, h.Perms)).Post("/", h.handleCreate)
		r.With(middleware.RequirePermission(auth.PermAssignmentsRead, h.Perms)).Get("/{assignmentID}", h.handleGet)
		r.With(middleware.RequirePermission(auth.PermAssignmentsWrite, h.Perms)).Patch("/{assignmentID}/status", h.handleUpdateStatus)
		r.With(middleware.RequirePermission(auth.PermAssignmentsWrite, h.Perms)).Delete("/{assignmentID}", h.handleDelete)
		r.With(middleware.RequirePermission(auth.PermAssignmentsWrite, h.Perms)).Post("/{assignmentID}/response", h.handleLinkResponse)
		r.With(middleware.RequirePermission(auth.PermAssignmentsWrite, h.Perms)).Post("/{assignmentID}/reminders", h.handleRemind)
	})
	r.With(middleware.RequirePermission(auth.PermAssignmentsRead, h.Perms)).Get("/events/{eventID}/assignments", h.handleListForEvent)
	r.With(middleware.RequirePermission(auth.PermAssignmentsRead, h.Perms)).Get("/events/{eventID}/summary", h.handleSummary)
}

// RegisterPublicRoutes exposes link-based evaluator access; the token is the credential.
func (h *Handler) RegisterPublicRoutes(r chi.Router) {
	r.Get("/access/{token}", h.handleResolveToken)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	actor, ok := shared.CurrentActor(w, r)
	if !ok {
		return
	}

	var payload struct {
		EventID     string  `json:"eventId"`
		EvaluatorID string  `json:"evaluatorId"`
		EvaluateeID string  `json:"evaluateeId"`
		ProgramID   *string `json:"programId"`
		DueDate     string  `json:"dueDate"`
	}
	if !shared.DecodeJSON(w, r, &payload) {
		return
	}
	dueDate, err := shared.OptionalDate(payload.DueDate)
	if err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid due date", middleware.GetRequestID(r.Context()))
		return
	}

	created, err := h.Service.Create(r.Context(), actor, assignment.CreateInput{
		EventID:        payload.EventID,
		EvaluatorID:    payload.EvaluatorID,
		EvaluateeID:    payload.EvaluateeID,
		OrganizationID: actor.OrganizationID,
		ProgramID:      payload.ProgramID,
		DueDate:        dueDate,
		Source:         assignment.SourceManual,
	})
	if err != nil {
		api.FailError(w, err, middleware.GetRequestID(r.Context()))
		return
	}
	api.Created(w, created, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	actor, ok := shared.CurrentActor(w, r)
	if !ok {
		return
	}
	a, err := h.Service.Get(r.Context(), actor, chi.URLParam(r, "assignmentID"))
	if err != nil {
		api.FailError(w, err, middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, a.Redacted(), middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleListForEvent(w http.ResponseWriter, r *http.Request) {
	actor, ok := shared.CurrentActor(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	list, err := h.Service.List(r.Context(), actor, assignment.Filter{
		EventID:     chi.URLParam(r, "eventID"),
		EvaluatorID: q.Get("evaluatorId"),
		EvaluateeID: q.Get("evaluateeId"),
		Status:      q.Get("status"),
	})
	if err != nil {
		api.FailError(w, err, middleware.GetRequestID(r.Context()))
		return
	}
	out := make([]assignment.Assignment, 0, len(list))
	for _, a := range list {
		out = append(out, a.Redacted())
	}
	api.Success(w, out, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	actor, ok := shared.CurrentActor(w, r)
	if !ok {
		return
	}
	var payload struct {
		Status string `json:"status"`
	}
	if !shared.DecodeJSON(w, r, &payload) {
		return
	}
	updated, err := h.Service.UpdateStatus(r.Context(), actor, chi.URLParam(r, "assignmentID"), payload.Status)
	if err != nil {
		api.FailError(w, err, middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, updated.Redacted(), middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	actor, ok := shared.CurrentActor(w, r)
	if !ok {
		return
	}
	if err := h.Service.SoftDelete(r.Context(), actor, chi.URLParam(r, "assignmentID")); err != nil {
		api.FailError(w, err, middleware.GetRequestID(r.Context()))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleLinkResponse(w http.ResponseWriter, r *http.Request) {
	actor, ok := shared.CurrentActor(w, r)
	if !ok {
		return
	}
	var payload struct {
		ResponseID string `json:"responseId"`
	}
	if !shared.DecodeJSON(w, r, &payload) {
		return
	}
	linked, err := h.Service.LinkResponse(r.Context(), actor, chi.URLParam(r, "assignmentID"), payload.ResponseID)
	if err != nil {
		api.FailError(w, err, middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, linked.Redacted(), middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleRemind(w http.ResponseWriter, r *http.Request) {
	actor, ok := shared.CurrentActor(w, r)
	if !ok {
		return
	}
	reminded, err := h.Service.Remind(r.Context(), actor, chi.URLParam(r, "assignmentID"))
	if err != nil {
		api.FailError(w, err, middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, reminded.Redacted(), middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleSummary(w http.ResponseWriter, r *http.Request) {
	actor, ok := shared.CurrentActor(w, r)
	if !ok {
		return
	}
	summary, err := h.Service.Summary(r.Context(), actor, chi.URLParam(r, "eventID"))
	if err != nil {
		api.FailError(w, err, middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, summary, middleware.GetRequestID(r.Context()))
}

type accessView struct {
	AssignmentID string     `json:"assignmentId"`
	EventID      string     `json:"eventId"`
	EvaluateeID  string     `json:"evaluateeId"`
	Status       string     `json:"status"`
	DueDate      *time.Time `json:"dueDate,omitempty"`
	ResponseID   *string    `json:"responseId,omitempty"`
}

func (h *Handler) handleResolveToken(w http.ResponseWriter, r *http.Request) {
	a, err := h.Service.ResolveToken(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		api.FailError(w, err, middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, accessView{
		AssignmentID: a.ID,
		EventID:      a.EventID,
		EvaluateeID:  a.EvaluateeID,
		Status:       a.Status,
		DueDate:      a.DueDate,
		ResponseID:   a.ResponseID,
	}, middleware.GetRequestID(r.Context()))
}
