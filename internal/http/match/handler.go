package match

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/reconciler/internal/matching"
	"github.com/MrJamesThe3rd/reconciler/internal/reconciliation"
)

type Handler struct {
	svc *reconciliation.Service
}

func NewHandler(svc *reconciliation.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.list)
	r.Get("/{transactionId}", h.forTransaction)
	r.Get("/{transactionId}/explanation", h.explain)
}

type matchResponse struct {
	ID                  uuid.UUID          `json:"id"`
	RunID               uuid.UUID          `json:"run_id"`
	MatchType           matching.MatchType `json:"match_type"`
	TransactionID       string             `json:"transaction_id"`
	SettlementReference string             `json:"settlement_reference,omitempty"`
	AdjustmentID        string             `json:"adjustment_id,omitempty"`
	Confidence          int                `json:"confidence"`
	RequiresReview      bool               `json:"requires_review"`
	AmountDifference    decimal.Decimal    `json:"amount_difference"`
	RelativeDifference  decimal.Decimal    `json:"relative_difference"`
	TimeDifferenceHours float64            `json:"time_difference_hours"`
	Reasons             []string           `json:"reasons"`
	MatchedAt           time.Time          `json:"matched_at"`
}

func toResponse(m *matching.Match) matchResponse {
	reasons := m.Reasons
	if reasons == nil {
		reasons = []string{}
	}

	return matchResponse{
		ID:                  m.ID,
		RunID:               m.RunID,
		MatchType:           m.Type,
		TransactionID:       m.TransactionID,
		SettlementReference: m.SettlementReference,
		AdjustmentID:        m.AdjustmentID,
		Confidence:          m.Confidence,
		RequiresReview:      m.RequiresReview,
		AmountDifference:    m.AmountDifference,
		RelativeDifference:  m.RelativeDifference,
		TimeDifferenceHours: m.TimeDifference.Hours(),
		Reasons:             reasons,
		MatchedAt:           m.MatchedAt,
	}
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r.URL.Query())
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	ms, err := h.svc.ListMatches(r.Context(), filter)
	if err != nil {
		slog.Error("failed to list matches", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)

		return
	}

	resp := make([]matchResponse, 0, len(ms))
	for _, m := range ms {
		resp = append(resp, toResponse(m))
	}

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) forTransaction(w http.ResponseWriter, r *http.Request) {
	m, err := h.svc.GetMatchForTransaction(r.Context(), chi.URLParam(r, "transactionId"))
	if err != nil {
		if errors.Is(err, reconciliation.ErrNotFound) {
			http.Error(w, "match not found", http.StatusNotFound)
			return
		}

		slog.Error("failed to load match", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)

		return
	}

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(toResponse(m)); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

type explanationResponse struct {
	Match          matchResponse           `json:"match"`
	Confidence     int                     `json:"confidence"`
	Explanation    string                  `json:"explanation"`
	Warnings       []string                `json:"warnings"`
	Recommendation matching.Recommendation `json:"recommendation"`
}

func (h *Handler) explain(w http.ResponseWriter, r *http.Request) {
	m, ex, err := h.svc.ExplainMatch(r.Context(), chi.URLParam(r, "transactionId"))
	if err != nil {
		if errors.Is(err, reconciliation.ErrNotFound) {
			http.Error(w, "match not found", http.StatusNotFound)
			return
		}

		slog.Error("failed to explain match", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)

		return
	}

	resp := explanationResponse{
		Match:          toResponse(m),
		Confidence:     ex.Confidence,
		Explanation:    ex.Summary,
		Warnings:       ex.Warnings,
		Recommendation: ex.Recommendation,
	}

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func parseFilter(q url.Values) (reconciliation.MatchFilter, error) {
	var filter reconciliation.MatchFilter

	if s := q.Get("confidence_min"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 || n > 100 {
			return filter, fmt.Errorf("invalid confidence_min %q", s)
		}

		filter.ConfidenceMin = &n
	}

	if s := q.Get("match_type"); s != "" {
		t := matching.MatchType(s)
		if !slices.Contains(matching.Phases, t) {
			return filter, fmt.Errorf("unknown match_type %q", s)
		}

		filter.Type = &t
	}

	if s := q.Get("review"); s != "" {
		b, err := strconv.ParseBool(s)
		if err != nil {
			return filter, fmt.Errorf("invalid review %q", s)
		}

		filter.RequiresReview = &b
	}

	if s := q.Get("run_id"); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			return filter, fmt.Errorf("invalid run_id %q", s)
		}

		filter.RunID = &id
	}

	for key, dst := range map[string]*int{"limit": &filter.Limit, "offset": &filter.Offset} {
		s := q.Get(key)
		if s == "" {
			continue
		}

		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			return filter, fmt.Errorf("invalid %s %q", key, s)
		}

		*dst = n
	}

	return filter, nil
}
