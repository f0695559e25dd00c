package audithandler

import (
	"context"
	"encoding/csv"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"evalhub/internal/domain/audit"
	"evalhub/internal/domain/auth"
	"evalhub/internal/transport/http/api"
	"evalhub/internal/transport/http/middleware"
	"evalhub/internal/transport/http/shared"
)

// Reader is the read side of the audit trail.
type Reader interface {
	ListForEntity(ctx context.Context, orgID, entityType, entityID string) ([]audit.Event, error)
}

type Handler struct {
	Reader Reader
	Perms  middleware.PermissionStore
}

func NewHandler(reader Reader, perms middleware.PermissionStore) *Handler {
	return &Handler{Reader: reader, Perms: perms}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.With(middleware.RequirePermission(auth.PermAuditRead, h.Perms)).Get("/audit/{entityType}/{entityID}", h.handleTrail)
}

func (h *Handler) handleTrail(w http.ResponseWriter, r *http.Request) {
	actor, ok := shared.CurrentActor(w, r)
	if !ok {
		return
	}
	entityType := chi.URLParam(r, "entityType")
	entityID := chi.URLParam(r, "entityID")
	events, err := h.Reader.ListForEntity(r.Context(), actor.OrganizationID, entityType, entityID)
	if err != nil {
		api.FailError(w, err, middleware.GetRequestID(r.Context()))
		return
	}
	if events == nil {
		events = []audit.Event{}
	}
	if r.URL.Query().Get("format") == "csv" {
		writeCSV(w, entityType, entityID, events)
		return
	}
	api.Success(w, events, middleware.GetRequestID(r.Context()))
}

func writeCSV(w http.ResponseWriter, entityType, entityID string, events []audit.Event) {
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", "attachment; filename="+entityType+"-"+entityID+"-audit.csv")
	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"id", "action", "description", "actor_id", "actor_name", "request_id", "ip", "created_at"}); err != nil {
		slog.Warn("audit export header failed", "err", err)
	}
	for _, evt := range events {
		row := []string{
			evt.ID, evt.Action, evt.Description, evt.ActorID, evt.ActorName,
			evt.RequestID, evt.IP, evt.CreatedAt.UTC().Format(time.RFC3339),
		}
		if err := writer.Write(row); err != nil {
			slog.Warn("audit export row failed", "err", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		slog.Warn("audit export flush failed", "err", err)
	}
}
