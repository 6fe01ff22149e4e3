package discrepancy

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/reconciler/internal/export"
	"github.com/MrJamesThe3rd/reconciler/internal/matching"
	"github.com/MrJamesThe3rd/reconciler/internal/reconciliation"
)

type Handler struct {
	svc       *reconciliation.Service
	exportSvc *export.Service
}

func NewHandler(svc *reconciliation.Service, exportSvc *export.Service) *Handler {
	return &Handler{svc: svc, exportSvc: exportSvc}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.list)
	r.Get("/summary", h.summary)
	r.Get("/export", h.export)
	r.Get("/{id}/suggestions", h.suggestions)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r.URL.Query())
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	ds, err := h.svc.ListDiscrepancies(r.Context(), filter)
	if err != nil {
		slog.Error("failed to list discrepancies", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)

		return
	}

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(toResponseList(ds)); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) summary(w http.ResponseWriter, r *http.Request) {
	sum, err := h.svc.DiscrepancySummary(r.Context())
	if err != nil {
		slog.Error("failed to summarise discrepancies", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)

		return
	}

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(toSummaryResponse(sum)); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) suggestions(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid discrepancy id", http.StatusBadRequest)
		return
	}

	ss, err := h.svc.SuggestMatches(r.Context(), id)
	if err != nil {
		if errors.Is(err, reconciliation.ErrNotFound) {
			http.Error(w, "discrepancy not found", http.StatusNotFound)
			return
		}

		slog.Error("failed to suggest matches", "discrepancy_id", id, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)

		return
	}

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(toSuggestionsResponse(id, ss)); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// export streams the filtered discrepancies as CSV, or as a zip with a summary
// digest when format=zip.
func (h *Handler) export(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r.URL.Query())
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	stamp := time.Now().UTC().Format("20060102-150405")

	if r.URL.Query().Get("format") == "zip" {
		w.Header().Set("Content-Type", "application/zip")
		w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="discrepancies-%s.zip"`, stamp))

		if err := h.exportSvc.WriteArchive(r.Context(), filter, w); err != nil {
			slog.Error("failed to write discrepancy archive", "error", err)
		}

		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="discrepancies-%s.csv"`, stamp))

	if _, err := h.exportSvc.WriteCSV(r.Context(), filter, w); err != nil {
		slog.Error("failed to write discrepancy csv", "error", err)
	}
}

func parseFilter(q url.Values) (reconciliation.DiscrepancyFilter, error) {
	var filter reconciliation.DiscrepancyFilter

	if s := q.Get("category"); s != "" {
		c := matching.Category(s)
		if !slices.Contains(matching.Categories, c) {
			return filter, fmt.Errorf("unknown category %q", s)
		}

		filter.Category = &c
	}

	if s := q.Get("priority"); s != "" {
		p := matching.Priority(s)
		if !slices.Contains(matching.Priorities, p) {
			return filter, fmt.Errorf("unknown priority %q", s)
		}

		filter.Priority = &p
	}

	if s := q.Get("currency"); s != "" {
		filter.Currency = new(strings.ToUpper(s))
	}

	if s := q.Get("min_amount"); s != "" {
		d, err := decimal.NewFromString(s)
		if err != nil {
			return filter, fmt.Errorf("invalid min_amount %q", s)
		}

		filter.MinAmount = &d
	}

	if s := q.Get("run_id"); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			return filter, fmt.Errorf("invalid run_id %q", s)
		}

		filter.RunID = &id
	}

	var err error

	if filter.From, err = parseTime(q, "from", false); err != nil {
		return filter, err
	}

	if filter.To, err = parseTime(q, "to", true); err != nil {
		return filter, err
	}

	if filter.Limit, err = parseInt(q, "limit"); err != nil {
		return filter, err
	}

	if filter.Offset, err = parseInt(q, "offset"); err != nil {
		return filter, err
	}

	return filter, nil
}

// parseTime accepts RFC 3339 or a plain date. A plain upper bound covers the
// whole day.
func parseTime(q url.Values, key string, endOfDay bool) (*time.Time, error) {
	s := q.Get(key)
	if s == "" {
		return nil, nil
	}

	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return &t, nil
	}

	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return nil, fmt.Errorf("invalid %s %q", key, s)
	}

	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}

	return &t, nil
}

func parseInt(q url.Values, key string) (int, error) {
	s := q.Get(key)
	if s == "" {
		return 0, nil
	}

	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid %s %q", key, s)
	}

	return n, nil
}
