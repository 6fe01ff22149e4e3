package discrepancy

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/reconciler/internal/matching"
	"github.com/MrJamesThe3rd/reconciler/internal/reconciliation"
)

type discrepancyResponse struct {
	ID                  uuid.UUID         `json:"id"`
	RunID               uuid.UUID         `json:"run_id"`
	Category            matching.Category `json:"category"`
	Priority            matching.Priority `json:"priority"`
	TransactionID       string            `json:"transaction_id,omitempty"`
	SettlementReference string            `json:"settlement_reference,omitempty"`
	AdjustmentID        string            `json:"adjustment_id,omitempty"`
	MatchID             *uuid.UUID        `json:"match_id,omitempty"`
	Amount              decimal.Decimal   `json:"amount"`
	Currency            string            `json:"currency"`
	AgeHours            float64           `json:"age_hours"`
	OccurredAt          time.Time         `json:"occurred_at"`
	Detail              string            `json:"detail"`
	DetectedAt          time.Time         `json:"detected_at"`
}

type summaryResponse struct {
	Total                  int                        `json:"total"`
	ByCategory             map[matching.Category]int  `json:"by_category"`
	ByPriority             map[matching.Priority]int  `json:"by_priority"`
	UnmatchedValue         map[string]decimal.Decimal `json:"unmatched_value"`
	UnmatchedValueUSD      decimal.Decimal            `json:"unmatched_value_usd"`
	AvgSettlementTimeHours *decimal.Decimal           `json:"avg_settlement_time_hours"`
	ChargebackRate         decimal.Decimal            `json:"chargeback_rate"`
	OrphanedRecords        int                        `json:"orphaned_records"`
	OrphanThresholdDays    int                        `json:"orphan_threshold_days"`
	LatestRunID            *uuid.UUID                 `json:"latest_run_id,omitempty"`
}

type suggestionResponse struct {
	RecordType matching.RecordType `json:"record_type"`
	ID         string              `json:"id"`
	Amount     decimal.Decimal     `json:"amount"`
	Currency   string              `json:"currency"`
	OccurredAt time.Time           `json:"occurred_at"`
	Confidence int                 `json:"confidence"`
	Reasons    []string            `json:"reasons"`
}

type suggestionsResponse struct {
	DiscrepancyID uuid.UUID            `json:"discrepancy_id"`
	Suggestions   []suggestionResponse `json:"suggestions"`
}

func toResponse(d *matching.Discrepancy) discrepancyResponse {
	return discrepancyResponse{
		ID:                  d.ID,
		RunID:               d.RunID,
		Category:            d.Category,
		Priority:            d.Priority,
		TransactionID:       d.TransactionID,
		SettlementReference: d.SettlementReference,
		AdjustmentID:        d.AdjustmentID,
		MatchID:             d.MatchID,
		Amount:              d.Amount,
		Currency:            d.Currency,
		AgeHours:            d.Age.Hours(),
		OccurredAt:          d.OccurredAt,
		Detail:              d.Detail,
		DetectedAt:          d.DetectedAt,
	}
}

func toResponseList(ds []*matching.Discrepancy) []discrepancyResponse {
	resp := make([]discrepancyResponse, 0, len(ds))
	for _, d := range ds {
		resp = append(resp, toResponse(d))
	}

	return resp
}

func toSummaryResponse(s *reconciliation.Summary) summaryResponse {
	resp := summaryResponse{
		Total:               s.Total,
		ByCategory:          s.ByCategory,
		ByPriority:          s.ByPriority,
		UnmatchedValue:      s.UnmatchedValue,
		UnmatchedValueUSD:   s.UnmatchedValueUSD,
		ChargebackRate:      s.ChargebackRate,
		OrphanedRecords:     s.OrphanedRecords,
		OrphanThresholdDays: int(s.OrphanThreshold / (24 * time.Hour)),
	}

	if s.AvgSettlementHours.Valid {
		resp.AvgSettlementTimeHours = &s.AvgSettlementHours.Decimal
	}

	if s.LatestRun != nil {
		resp.LatestRunID = &s.LatestRun.ID
	}

	return resp
}

func toSuggestionsResponse(id uuid.UUID, ss []matching.Suggestion) suggestionsResponse {
	resp := suggestionsResponse{DiscrepancyID: id, Suggestions: make([]suggestionResponse, 0, len(ss))}

	for _, s := range ss {
		resp.Suggestions = append(resp.Suggestions, suggestionResponse{
			RecordType: s.RecordType,
			ID:         s.ID,
			Amount:     s.Amount,
			Currency:   s.Currency,
			OccurredAt: s.OccurredAt,
			Confidence: s.Confidence,
			Reasons:    s.Reasons,
		})
	}

	return resp
}
