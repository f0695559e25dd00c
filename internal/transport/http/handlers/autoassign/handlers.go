package autoassignhandler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"evalhub/internal/domain/auth"
	"evalhub/internal/domain/autoassign"
	"evalhub/internal/platform/jobs"
	"evalhub/internal/transport/http/api"
	"evalhub/internal/transport/http/middleware"
	"evalhub/internal/transport/http/shared"
)

type Handler struct {
	Engine *autoassign.Engine
	Jobs   shared.JobRunner
	Perms  middleware.PermissionStore
}

func NewHandler(engine *autoassign.Engine, runner shared.JobRunner, perms middleware.PermissionStore) *Handler {
	return &Handler{Engine: engine, Jobs: runner, Perms: perms}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.With(middleware.RequirePermission(auth.PermAutoAssign, h.Perms)).Post("/events/{eventID}/auto-assign", h.handleAutoAssign)
}

func (h *Handler) handleAutoAssign(w http.ResponseWriter, r *http.Request) {
	actor, ok := shared.CurrentActor(w, r)
	if !ok {
		return
	}
	var payload struct {
		ProgramID           *string `json:"programId"`
		IncludeManagers     bool    `json:"includeManagers"`
		IncludePeers        bool    `json:"includePeers"`
		IncludeSubordinates bool    `json:"includeSubordinates"`
		IncludeSelf         bool    `json:"includeSelf"`
		DueDate             string  `json:"dueDate"`
	}
	if !shared.DecodeJSON(w, r, &payload) {
		return
	}
	dueDate, err := shared.OptionalDate(payload.DueDate)
	if err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid due date", middleware.GetRequestID(r.Context()))
		return
	}

	in := autoassign.RunInput{
		EventID:        chi.URLParam(r, "eventID"),
		OrganizationID: actor.OrganizationID,
		ProgramID:      payload.ProgramID,
		Policy: autoassign.Policy{
			IncludeManagers:     payload.IncludeManagers,
			IncludePeers:        payload.IncludePeers,
			IncludeSubordinates: payload.IncludeSubordinates,
			IncludeSelf:         payload.IncludeSelf,
			DueDate:             dueDate,
		},
	}
	run := func(ctx context.Context) (any, error) {
		return h.Engine.Run(ctx, actor, in)
	}

	if shared.WantsAsync(r) {
		shared.Accepted(w, r, h.Jobs, jobs.JobAutoAssign, actor.OrganizationID, run)
		return
	}
	details, err := h.Jobs.RunNow(r.Context(), jobs.JobAutoAssign, actor.OrganizationID, run)
	if err != nil {
		api.FailError(w, err, middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, details, middleware.GetRequestID(r.Context()))
}
