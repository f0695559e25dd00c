package hierarchyhandler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"evalhub/internal/domain/auth"
	"evalhub/internal/domain/hierarchy"
	"evalhub/internal/transport/http/api"
	"evalhub/internal/transport/http/middleware"
	"evalhub/internal/transport/http/shared"
)

type Handler struct {
	Service *hierarchy.Service
	Perms   middleware.PermissionStore
}

func NewHandler(service *hierarchy.Service, perms middleware.PermissionStore) *Handler {
	return &Handler{Service: service, Perms: perms}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/hierarchy", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermHierarchyWrite, h.Perms)).Post("/edges", h.handleCreateEdge)
		r.With(middleware.RequirePermission(auth.PermHierarchyWrite, h.Perms)).Delete("/edges/{edgeID}", h.handleDeleteEdge)
		r.With(middleware.RequirePermission(auth.PermHierarchyRead, h.Perms)).Get("/tree", h.handleTree)
		r.With(middleware.RequirePermission(auth.PermHierarchyRead, h.Perms)).Get("/cycle-check", h.handleCycleCheck)
		r.With(middleware.RequirePermission(auth.PermHierarchyRead, h.Perms)).Get("/staff/{staffID}/relationships", h.handleRelationships)
	})
}

func (h *Handler) handleCreateEdge(w http.ResponseWriter, r *http.Request) {
	actor, ok := shared.CurrentActor(w, r)
	if !ok {
		return
	}
	var payload struct {
		StaffID          string `json:"staffId"`
		ReportsToID      string `json:"reportsToId"`
		RelationshipKind string `json:"relationshipKind"`
	}
	if !shared.DecodeJSON(w, r, &payload) {
		return
	}
	edge, err := h.Service.CreateEdge(r.Context(), actor, hierarchy.CreateEdgeInput{
		OrganizationID:   actor.OrganizationID,
		StaffID:          payload.StaffID,
		ReportsToID:      payload.ReportsToID,
		RelationshipKind: payload.RelationshipKind,
	})
	if err != nil {
		api.FailError(w, err, middleware.GetRequestID(r.Context()))
		return
	}
	api.Created(w, edge, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleDeleteEdge(w http.ResponseWriter, r *http.Request) {
	actor, ok := shared.CurrentActor(w, r)
	if !ok {
		return
	}
	if err := h.Service.DeleteEdge(r.Context(), actor, chi.URLParam(r, "edgeID")); err != nil {
		api.FailError(w, err, middleware.GetRequestID(r.Context()))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleTree(w http.ResponseWriter, r *http.Request) {
	actor, ok := shared.CurrentActor(w, r)
	if !ok {
		return
	}
	var programID *string
	if raw := r.URL.Query().Get("programId"); raw != "" {
		programID = &raw
	}
	roots, err := h.Service.Tree(r.Context(), actor.OrganizationID, programID)
	if err != nil {
		api.FailError(w, err, middleware.GetRequestID(r.Context()))
		return
	}
	if roots == nil {
		roots = []*hierarchy.TreeNode{}
	}
	api.Success(w, roots, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleCycleCheck(w http.ResponseWriter, r *http.Request) {
	actor, ok := shared.CurrentActor(w, r)
	if !ok {
		return
	}
	staffID := r.URL.Query().Get("staffId")
	managerID := r.URL.Query().Get("reportsToId")
	if staffID == "" || managerID == "" {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "staffId and reportsToId are required", middleware.GetRequestID(r.Context()))
		return
	}
	cycle, err := h.Service.WouldCreateCycle(r.Context(), actor.OrganizationID, managerID, staffID)
	if err != nil {
		api.FailError(w, err, middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, map[string]bool{"wouldCreateCycle": cycle}, middleware.GetRequestID(r.Context()))
}

type relationships struct {
	StaffID        string   `json:"staffId"`
	PrimaryManager *string  `json:"primaryManagerId,omitempty"`
	Managers       []string `json:"managers"`
	Subordinates   []string `json:"subordinates"`
	Peers          []string `json:"peers"`
}

func (h *Handler) handleRelationships(w http.ResponseWriter, r *http.Request) {
	actor, ok := shared.CurrentActor(w, r)
	if !ok {
		return
	}
	staffID := chi.URLParam(r, "staffID")
	g, err := h.Service.Snapshot(r.Context(), actor.OrganizationID)
	if err != nil {
		api.FailError(w, err, middleware.GetRequestID(r.Context()))
		return
	}
	out := relationships{
		StaffID:      staffID,
		Managers:     nonNil(g.ManagersOf(staffID)),
		Subordinates: nonNil(g.SubordinatesOf(staffID)),
		Peers:        nonNil(g.PeersOf(staffID)),
	}
	if primary, ok := g.PrimaryManagerOf(staffID); ok {
		out.PrimaryManager = &primary
	}
	api.Success(w, out, middleware.GetRequestID(r.Context()))
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
