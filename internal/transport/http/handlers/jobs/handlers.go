package jobshandler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"evalhub/internal/domain"
	"evalhub/internal/domain/auth"
	"evalhub/internal/platform/jobs"
	"evalhub/internal/transport/http/api"
	"evalhub/internal/transport/http/middleware"
	"evalhub/internal/transport/http/shared"
)

type Reader interface {
	Get(ctx context.Context, id string) (jobs.Run, error)
}

type Handler struct {
	Jobs  Reader
	Perms middleware.PermissionStore
}

func NewHandler(runs Reader, perms middleware.PermissionStore) *Handler {
	return &Handler{Jobs: runs, Perms: perms}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.With(middleware.RequirePermission(auth.PermJobsRead, h.Perms)).Get("/jobs/{jobID}", h.handleGet)
}

// handleGet hides runs of other organizations behind not_found.
func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	actor, ok := shared.CurrentActor(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "jobID")
	run, err := h.Jobs.Get(r.Context(), id)
	if err == nil && (run.OrganizationID == nil || *run.OrganizationID != actor.OrganizationID) {
		err = domain.NotFound("job run", id)
	}
	if err != nil {
		api.FailError(w, err, middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, run, middleware.GetRequestID(r.Context()))
}
