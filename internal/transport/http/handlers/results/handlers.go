package resultshandler

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"evalhub/internal/domain/auth"
	"evalhub/internal/domain/results"
	"evalhub/internal/platform/jobs"
	"evalhub/internal/transport/http/api"
	"evalhub/internal/transport/http/middleware"
	"evalhub/internal/transport/http/shared"
)

const (
	contentTypePDF  = "application/pdf"
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

type Handler struct {
	Service *results.Service
	Jobs    shared.JobRunner
	Perms   middleware.PermissionStore
}

func NewHandler(service *results.Service, runner shared.JobRunner, perms middleware.PermissionStore) *Handler {
	return &Handler{Service: service, Jobs: runner, Perms: perms}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.With(middleware.RequirePermission(auth.PermResultsCalculate, h.Perms)).Post("/events/{eventID}/results/recalculate", h.handleRecalculateEvent)
	r.With(middleware.RequirePermission(auth.PermResultsCalculate, h.Perms)).Post("/events/{eventID}/results/{staffID}/calculate", h.handleCalculate)
	r.With(middleware.RequirePermission(auth.PermResultsRead, h.Perms)).Get("/events/{eventID}/results", h.handleListForEvent)
	r.With(middleware.RequirePermission(auth.PermResultsRead, h.Perms)).Get("/events/{eventID}/results/export", h.handleExport)
	r.Route("/results", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermResultsRead, h.Perms)).Get("/{resultID}", h.handleGet)
		r.With(middleware.RequirePermission(auth.PermResultsPublish, h.Perms)).Post("/{resultID}/publish", h.handlePublish)
		r.With(middleware.RequirePermission(auth.PermResultsRead, h.Perms)).Get("/{resultID}/scorecard", h.handleScorecard)
	})
}

func (h *Handler) handleCalculate(w http.ResponseWriter, r *http.Request) {
	actor, ok := shared.CurrentActor(w, r)
	if !ok {
		return
	}
	res, err := h.Service.Calculate(r.Context(), actor, chi.URLParam(r, "eventID"), chi.URLParam(r, "staffID"))
	if err != nil {
		api.FailError(w, err, middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, res, middleware.GetRequestID(r.Context()))
}

type recalculation struct {
	EventID    string `json:"eventId"`
	Calculated int    `json:"calculated"`
}

func (h *Handler) handleRecalculateEvent(w http.ResponseWriter, r *http.Request) {
	actor, ok := shared.CurrentActor(w, r)
	if !ok {
		return
	}
	eventID := chi.URLParam(r, "eventID")
	run := func(ctx context.Context) (any, error) {
		list, err := h.Service.CalculateEvent(ctx, actor, eventID)
		return recalculation{EventID: eventID, Calculated: len(list)}, err
	}

	if shared.WantsAsync(r) {
		shared.Accepted(w, r, h.Jobs, jobs.JobRecalculateEvent, actor.OrganizationID, run)
		return
	}
	details, err := h.Jobs.RunNow(r.Context(), jobs.JobRecalculateEvent, actor.OrganizationID, run)
	if err != nil {
		api.FailError(w, err, middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, details, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleListForEvent(w http.ResponseWriter, r *http.Request) {
	actor, ok := shared.CurrentActor(w, r)
	if !ok {
		return
	}
	list, err := h.Service.ListForEvent(r.Context(), actor, chi.URLParam(r, "eventID"))
	if err != nil {
		api.FailError(w, err, middleware.GetRequestID(r.Context()))
		return
	}
	if list == nil {
		list = []results.Result{}
	}
	api.Success(w, list, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	actor, ok := shared.CurrentActor(w, r)
	if !ok {
		return
	}
	res, err := h.Service.Get(r.Context(), actor, chi.URLParam(r, "resultID"))
	if err != nil {
		api.FailError(w, err, middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, res, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handlePublish(w http.ResponseWriter, r *http.Request) {
	actor, ok := shared.CurrentActor(w, r)
	if !ok {
		return
	}
	var payload results.PublishInput
	if !shared.DecodeJSON(w, r, &payload) {
		return
	}
	res, err := h.Service.Publish(r.Context(), actor, chi.URLParam(r, "resultID"), payload)
	if err != nil {
		api.FailError(w, err, middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, res, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleScorecard(w http.ResponseWriter, r *http.Request) {
	actor, ok := shared.CurrentActor(w, r)
	if !ok {
		return
	}
	resultID := chi.URLParam(r, "resultID")
	var buf bytes.Buffer
	if err := h.Service.Scorecard(r.Context(), actor, resultID, &buf); err != nil {
		api.FailError(w, err, middleware.GetRequestID(r.Context()))
		return
	}
	writeAttachment(w, contentTypePDF, fmt.Sprintf("scorecard-%s.pdf", resultID), buf.Bytes())
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	actor, ok := shared.CurrentActor(w, r)
	if !ok {
		return
	}
	eventID := chi.URLParam(r, "eventID")
	var buf bytes.Buffer
	if err := h.Service.ExportEvent(r.Context(), actor, eventID, &buf); err != nil {
		api.FailError(w, err, middleware.GetRequestID(r.Context()))
		return
	}
	writeAttachment(w, contentTypeXLSX, fmt.Sprintf("results-%s.xlsx", eventID), buf.Bytes())
}

func writeAttachment(w http.ResponseWriter, contentType, filename string, body []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", "attachment; filename="+filename)
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		slog.Warn("attachment write failed", "filename", filename, "err", err)
	}
}
