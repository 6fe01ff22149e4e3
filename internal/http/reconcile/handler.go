package reconcile

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/reconciler/internal/http/middleware"
	"github.com/MrJamesThe3rd/reconciler/internal/reconciliation"
)

type Handler struct {
	svc *reconciliation.Service
}

func NewHandler(svc *reconciliation.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.trigger)
	r.Get("/status", h.latest)
	r.Get("/runs/{id}", h.get)
}

func (h *Handler) trigger(w http.ResponseWriter, r *http.Request) {
	run, err := h.svc.Trigger(r.Context())
	if err != nil {
		if errors.Is(err, reconciliation.ErrRunAlreadyInProgress) {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}

		slog.Error("failed to trigger reconciliation run", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)

		return
	}

	slog.Info("reconciliation run triggered", "run_id", run.ID, "subject", middleware.Subject(r.Context()))

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)

	if err := json.NewEncoder(w).Encode(triggerResponse{RunID: run.ID, Status: run.Status}); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	run, err := h.svc.GetRun(r.Context(), id)
	h.respond(w, run, err)
}

func (h *Handler) latest(w http.ResponseWriter, r *http.Request) {
	run, err := h.svc.LatestRun(r.Context())
	h.respond(w, run, err)
}

func (h *Handler) respond(w http.ResponseWriter, run *reconciliation.Run, err error) {
	if err != nil {
		if errors.Is(err, reconciliation.ErrNotFound) {
			http.Error(w, "run not found", http.StatusNotFound)
			return
		}

		slog.Error("failed to load run", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)

		return
	}

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(toRunResponse(run)); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}
