package matching_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/reconciler/internal/matching"
)

func TestEngine_Explain(t *testing.T) {
	engine, err := matching.NewEngine(testPolicy())
	require.NoError(t, err)

	type testCase struct {
		name     string
		match    matching.Match
		summary  string
		warnings []string
		want     matching.Recommendation
	}

	tests := []testCase{
		{
			name: "Approve",
			match: matching.Match{
				Type:               matching.MatchExactID,
				Confidence:         100,
				Reasons:            []string{"exact_transaction_id_match"},
				AmountDifference:   dec("20"),
				RelativeDifference: dec("0.02"),
				TimeDifference:     10 * time.Hour,
			},
			summary: "exact_id match with confidence 100%. Matched on exact_transaction_id_match. " +
				"Amounts differ by 20.00 (2.00%). Recorded 10.0 hours apart.",
			warnings: []string{},
			want:     matching.RecommendApprove,
		},
		{
			name: "CrossCurrencyNeedsReview",
			match: matching.Match{
				Type:               matching.MatchCrossCurrency,
				Confidence:         70,
				RequiresReview:     true,
				Reasons:            []string{"fx_converted_amount_match"},
				AmountDifference:   dec("0"),
				RelativeDifference: dec("0"),
			},
			summary: "cross_currency match with confidence 70%. Matched on fx_converted_amount_match.",
			warnings: []string{
				"confidence below auto-match threshold of 80",
				"matched across currencies",
			},
			want: matching.RecommendReview,
		},
		{
			name: "AdjustmentPenalties",
			match: matching.Match{
				Type:       matching.MatchAdjustment,
				Confidence: 90,
				Reasons:    []string{"exact_transaction_reference", "amount_exceeds_transaction"},
			},
			summary:  "adjustment match with confidence 90%. Matched on exact_transaction_reference, amount_exceeds_transaction.",
			warnings: []string{"adjustment exceeds transaction amount"},
			want:     matching.RecommendReview,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := engine.Explain(tt.match)

			assert.Equal(t, tt.match.Confidence, got.Confidence)
			assert.Equal(t, tt.summary, got.Summary)
			assert.Equal(t, tt.warnings, got.Warnings)
			assert.Equal(t, tt.want, got.Recommendation)
		})
	}
}
