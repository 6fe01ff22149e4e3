package matching_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/reconciler/internal/matching"
	"github.com/MrJamesThe3rd/reconciler/internal/record"
)

func suggestionIDs(ss []matching.Suggestion) []string {
	out := make([]string, 0, len(ss))
	for _, s := range ss {
		out = append(out, s.ID)
	}

	return out
}

func TestEngine_SuggestSettlements(t *testing.T) {
	engine, err := matching.NewEngine(testPolicy())
	require.NoError(t, err)

	tx := txn("txn_8f3a2b1c", "1000", "MXN", t0)

	got := engine.SuggestSettlements(tx, []record.Settlement{
		stl("S1", "1000", "MXN", t0.Add(10*time.Hour), "txn_8f3a2b1c"),
		stl("S2", "980", "MXN", t0.Add(100*time.Hour), ""),
		stl("S3", "1000", "MXN", t0.Add(30*24*time.Hour), ""),
		stl("S4", "60", "USD", t0.Add(time.Hour), ""),
		stl("S5", "10", "MXN", t0.Add(time.Hour), ""),
		stl("S6", "500", "EUR", t0.Add(time.Hour), ""),
	})

	require.Equal(t, []string{"S1", "S2", "S4"}, suggestionIDs(got))

	assert.Equal(t, 100, got[0].Confidence)
	assert.Equal(t, []string{"currency_match", "exact_amount", "date_within_settlement_window", "id_match"}, got[0].Reasons)
	assert.Equal(t, matching.RecordSettlement, got[0].RecordType)

	assert.Equal(t, 55, got[1].Confidence)
	assert.Equal(t, []string{"currency_match", "amount_within_tolerance", "date_near_settlement_window"}, got[1].Reasons)

	assert.Equal(t, 45, got[2].Confidence)
	assert.Equal(t, []string{"amount_within_tolerance", "date_within_settlement_window"}, got[2].Reasons)
}

func TestEngine_SuggestTransactions(t *testing.T) {
	engine, err := matching.NewEngine(testPolicy())
	require.NoError(t, err)

	authorized := txn("txn_auth01", "980", "MXN", t0)
	authorized.Status = record.StatusAuthorized

	got := engine.SuggestTransactions(
		stl("S1", "980", "MXN", t0.Add(10*time.Hour), "txn_8f3a9999"),
		[]record.Transaction{
			txn("txn_8f3a2b1c", "1000", "MXN", t0),
			txn("txn_other1", "980", "MXN", t0.Add(5*time.Hour)),
			authorized,
			txn("txn_far001", "980", "MXN", t0.Add(-40*24*time.Hour)),
		},
	)

	require.Equal(t, []string{"txn_other1", "txn_8f3a2b1c"}, suggestionIDs(got))

	assert.Equal(t, 80, got[0].Confidence)
	assert.Equal(t, matching.RecordTransaction, got[0].RecordType)
	assert.Equal(t, 75, got[1].Confidence)
	assert.Contains(t, got[1].Reasons, "reference_similar")
}

func TestEngine_SuggestNothingBelowThreshold(t *testing.T) {
	engine, err := matching.NewEngine(testPolicy())
	require.NoError(t, err)

	got := engine.SuggestSettlements(txn("T1", "1000", "MXN", t0), []record.Settlement{
		stl("S1", "10", "EUR", t0.Add(time.Hour), ""),
	})

	assert.Empty(t, got)
}
