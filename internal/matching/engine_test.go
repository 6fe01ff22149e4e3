package matching_test

import (
	"context"
	"errors"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/reconciler/internal/matching"
	"github.com/MrJamesThe3rd/reconciler/internal/record"
)

var t0 = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func txn(id, amount, currency string, at time.Time) record.Transaction {
	return record.Transaction{
		ID:              id,
		MerchantOrderID: "ord_" + id,
		Amount:          dec(amount),
		Currency:        currency,
		Timestamp:       at,
		Status:          record.StatusCaptured,
	}
}

func stl(ref, amount, currency string, at time.Time, txRef string) record.Settlement {
	return record.Settlement{
		Reference:            ref,
		Amount:               dec(amount),
		Currency:             currency,
		SettledAt:            at,
		TransactionReference: txRef,
	}
}

func adj(id, txRef, amount, currency string, kind record.AdjustmentType, at time.Time) record.Adjustment {
	return record.Adjustment{
		ID:                   id,
		TransactionReference: txRef,
		Amount:               dec(amount),
		Currency:             currency,
		Type:                 kind,
		Date:                 at,
	}
}

type recorder struct {
	phases []matching.PhaseResult
}

func (r *recorder) commit(_ context.Context, res matching.PhaseResult) error {
	r.phases = append(r.phases, res)
	return nil
}

func runEngine(t *testing.T, snap matching.Snapshot) (*matching.Outcome, *recorder) {
	t.Helper()

	engine, err := matching.NewEngine(testPolicy())
	require.NoError(t, err)

	rec := &recorder{}

	out, err := engine.Run(context.Background(), uuid.MustParse("7d3f4c1e-0000-4000-8000-000000000001"), snap, rec.commit)
	require.NoError(t, err)

	return out, rec
}

func categories(ds []matching.Discrepancy) []matching.Category {
	out := make([]matching.Category, 0, len(ds))
	for _, d := range ds {
		out = append(out, d.Category)
	}

	return out
}

func TestEngine_AmountDateMatchWithoutReference(t *testing.T) {
	out, _ := runEngine(t, matching.Snapshot{
		Cutoff:       t0.Add(10 * 24 * time.Hour),
		Transactions: []record.Transaction{txn("T1", "1000", "MXN", t0)},
		Settlements:  []record.Settlement{stl("S1", "980", "MXN", t0.Add(10*time.Hour), "")},
	})

	require.Len(t, out.Matches, 1)

	m := out.Matches[0]
	assert.Equal(t, matching.MatchAmountDate, m.Type)
	assert.Equal(t, "T1", m.TransactionID)
	assert.Equal(t, "S1", m.SettlementReference)
	assert.GreaterOrEqual(t, m.Confidence, 80)
	assert.LessOrEqual(t, m.Confidence, 95)
	assert.Equal(t, 93, m.Confidence)
	assert.False(t, m.RequiresReview)
	assert.True(t, dec("20").Equal(m.AmountDifference))
	assert.Equal(t, 10*time.Hour, m.TimeDifference)
	assert.Empty(t, out.Discrepancies)
}

func TestEngine_AmountOutsideToleranceLeavesBothUnmatched(t *testing.T) {
	out, _ := runEngine(t, matching.Snapshot{
		Cutoff:       t0.Add(10 * 24 * time.Hour),
		Transactions: []record.Transaction{txn("T1", "1000", "MXN", t0)},
		Settlements:  []record.Settlement{stl("S1", "900", "MXN", t0.Add(10*time.Hour), "")},
	})

	assert.Empty(t, out.Matches)
	assert.ElementsMatch(t,
		[]matching.Category{matching.CategoryUnmatchedTransaction, matching.CategoryUnmatchedSettlement},
		categories(out.Discrepancies))

	for _, d := range out.Discrepancies {
		if d.Category == matching.CategoryUnmatchedSettlement {
			assert.Equal(t, "S1", d.SettlementReference)
			assert.Equal(t, "MXN", d.Currency)
		}
	}
}

func TestEngine_UnsettledTransactionInsideWindowIsNotReported(t *testing.T) {
	out, _ := runEngine(t, matching.Snapshot{
		Cutoff:       t0.Add(72 * time.Hour),
		Transactions: []record.Transaction{txn("T1", "1000", "MXN", t0)},
	})

	assert.Empty(t, out.Discrepancies)
}

func TestEngine_Boundaries(t *testing.T) {
	type testCase struct {
		name      string
		amount    string
		offset    time.Duration
		wantMatch bool
	}

	tests := []testCase{
		{name: "ExactToleranceAndWindow", amount: "950.00", offset: 72 * time.Hour, wantMatch: true},
		{name: "AmountJustOutside", amount: "949.99", offset: time.Hour, wantMatch: false},
		{name: "WindowPlusOneSecond", amount: "1000.00", offset: 72*time.Hour + time.Second, wantMatch: false},
		{name: "SettledBeforeCapture", amount: "1000.00", offset: -72 * time.Hour, wantMatch: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, _ := runEngine(t, matching.Snapshot{
				Cutoff:       t0.Add(30 * 24 * time.Hour),
				Transactions: []record.Transaction{txn("T1", "1000.00", "MXN", t0)},
				Settlements:  []record.Settlement{stl("S1", tt.amount, "MXN", t0.Add(tt.offset), "")},
			})

			if !tt.wantMatch {
				assert.Empty(t, out.Matches)
				return
			}

			require.Len(t, out.Matches, 1)
			assert.Equal(t, matching.MatchAmountDate, out.Matches[0].Type)
		})
	}
}

func TestEngine_ExactIDMatch(t *testing.T) {
	out, _ := runEngine(t, matching.Snapshot{
		Cutoff: t0.Add(30 * 24 * time.Hour),
		Transactions: []record.Transaction{
			txn("tx_100", "1000", "BRL", t0),
			txn("tx_200", "500", "BRL", t0),
		},
		Settlements: []record.Settlement{
			stl("S1", "1000", "BRL", t0.Add(20*24*time.Hour), "tx_100"),
			stl("S2", "400", "BRL", t0.Add(time.Hour), "tx_200"),
		},
	})

	require.Len(t, out.Matches, 2)

	for _, m := range out.Matches {
		assert.Equal(t, matching.MatchExactID, m.Type)
		assert.Equal(t, 100, m.Confidence)
	}

	// S2 is 20% short, well past the tolerance, yet the referenced pair stays
	// matched and the delta is reported.
	require.Len(t, out.Discrepancies, 1)
	d := out.Discrepancies[0]
	assert.Equal(t, matching.CategoryAmountMismatch, d.Category)
	assert.Equal(t, "tx_200", d.TransactionID)
	assert.Equal(t, "S2", d.SettlementReference)
	assert.NotNil(t, d.MatchID)
	assert.True(t, dec("100").Equal(d.Amount))
}

func TestEngine_ExactIDRequiresSameCurrency(t *testing.T) {
	out, _ := runEngine(t, matching.Snapshot{
		Cutoff:       t0.Add(30 * 24 * time.Hour),
		Transactions: []record.Transaction{txn("tx_100", "100", "USD", t0)},
		Settlements:  []record.Settlement{stl("S1", "1700", "MXN", t0.Add(time.Hour), "tx_100")},
	})

	require.Len(t, out.Matches, 1)
	assert.Equal(t, matching.MatchCrossCurrency, out.Matches[0].Type)
}

func TestEngine_GrossAmountMatch(t *testing.T) {
	s := stl("S1", "940", "MXN", t0.Add(time.Hour), "")
	s.GrossAmount = decimal.NewNullDecimal(dec("1000"))
	s.FeesDeducted = dec("60")

	out, _ := runEngine(t, matching.Snapshot{
		Cutoff:       t0.Add(30 * 24 * time.Hour),
		Transactions: []record.Transaction{txn("T1", "1000", "MXN", t0)},
		Settlements:  []record.Settlement{s},
	})

	require.Len(t, out.Matches, 1)
	assert.Equal(t, matching.MatchAmountDate, out.Matches[0].Type)
	assert.Contains(t, out.Matches[0].Reasons, "gross_amount_match")
	assert.True(t, out.Matches[0].AmountDifference.IsZero())
}

func TestEngine_FuzzyMatch(t *testing.T) {
	out, _ := runEngine(t, matching.Snapshot{
		Cutoff:       t0.Add(30 * 24 * time.Hour),
		Transactions: []record.Transaction{txn("tx_abcdef12345", "1000", "MXN", t0)},
		Settlements:  []record.Settlement{stl("S1", "1080", "MXN", t0.Add(200*time.Hour), "tx_abcdeXYZ")},
	})

	require.Len(t, out.Matches, 1)

	m := out.Matches[0]
	assert.Equal(t, matching.MatchFuzzy, m.Type)
	assert.GreaterOrEqual(t, m.Confidence, 70)
	assert.LessOrEqual(t, m.Confidence, 85)
	assert.Equal(t, 73, m.Confidence)
	assert.True(t, m.RequiresReview)
	assert.Contains(t, m.Reasons, "transaction_id_prefix_match")
	assert.ElementsMatch(t,
		[]matching.Category{matching.CategoryAmountMismatch, matching.CategoryLowConfidenceMatch},
		categories(out.Discrepancies))
}

func TestEngine_FuzzyMatchOnMerchantOrderID(t *testing.T) {
	out, _ := runEngine(t, matching.Snapshot{
		Cutoff:       t0.Add(30 * 24 * time.Hour),
		Transactions: []record.Transaction{txn("T9", "500", "COP", t0)},
		Settlements:  []record.Settlement{stl("S1", "500", "COP", t0.Add(20*24*time.Hour), "ord_T9")},
	})

	require.Len(t, out.Matches, 1)
	assert.Equal(t, matching.MatchFuzzy, out.Matches[0].Type)
	assert.Contains(t, out.Matches[0].Reasons, "merchant_order_id_match")
	assert.Equal(t, 80, out.Matches[0].Confidence)
}

func TestEngine_CrossCurrencyMatchIsFlagged(t *testing.T) {
	out, _ := runEngine(t, matching.Snapshot{
		Cutoff:       t0.Add(30 * 24 * time.Hour),
		Transactions: []record.Transaction{txn("T1", "100", "USD", t0)},
		Settlements:  []record.Settlement{stl("S1", "1700", "MXN", t0.Add(5*time.Hour), "")},
	})

	require.Len(t, out.Matches, 1)

	m := out.Matches[0]
	assert.Equal(t, matching.MatchCrossCurrency, m.Type)
	assert.True(t, m.RequiresReview)
	assert.GreaterOrEqual(t, m.Confidence, 60)
	assert.LessOrEqual(t, m.Confidence, 80)
	assert.Equal(t, 73, m.Confidence)
	assert.Contains(t, categories(out.Discrepancies), matching.CategoryCurrencyMismatchFlagged)
	assert.NotContains(t, categories(out.Discrepancies), matching.CategoryAmountMismatch)
}

func TestEngine_CrossCurrencySkipsUnknownRate(t *testing.T) {
	out, _ := runEngine(t, matching.Snapshot{
		Cutoff:       t0.Add(30 * 24 * time.Hour),
		Transactions: []record.Transaction{txn("T1", "100", "USD", t0)},
		Settlements:  []record.Settlement{stl("S1", "90", "ARS", t0.Add(time.Hour), "")},
	})

	assert.Empty(t, out.Matches)
}

func TestEngine_Adjustments(t *testing.T) {
	out, _ := runEngine(t, matching.Snapshot{
		Cutoff:       t0.Add(60 * 24 * time.Hour),
		Transactions: []record.Transaction{txn("T1", "1000", "MXN", t0)},
		Settlements:  []record.Settlement{stl("S1", "1000", "MXN", t0.Add(time.Hour), "T1")},
		Adjustments: []record.Adjustment{
			adj("A1", "T1", "200", "MXN", record.AdjustmentRefund, t0.Add(5*24*time.Hour)),
			adj("A2", "T1", "300", "MXN", record.AdjustmentRefund, t0.Add(20*24*time.Hour)),
			adj("A3", "T1", "200", "MXN", record.AdjustmentRefund, t0.Add(40*24*time.Hour)),
			adj("A4", "tx_missing", "10", "MXN", record.AdjustmentChargeback, t0.Add(2*24*time.Hour)),
		},
	})

	var adjustments []matching.Match
	for _, m := range out.Matches {
		if m.Type == matching.MatchAdjustment {
			adjustments = append(adjustments, m)
		}
	}

	require.Len(t, adjustments, 2)

	for _, m := range adjustments {
		assert.Equal(t, "T1", m.TransactionID)
		assert.Equal(t, 100, m.Confidence)
	}

	require.Len(t, out.Discrepancies, 2)

	for _, d := range out.Discrepancies {
		assert.Equal(t, matching.CategoryUnmatchedAdjustment, d.Category)
		assert.Equal(t, matching.PriorityHigh, d.Priority)
	}
}

func TestEngine_UnmatchedAdjustmentDetail(t *testing.T) {
	out, _ := runEngine(t, matching.Snapshot{
		Cutoff:              t0.Add(120 * 24 * time.Hour),
		SettledTransactions: []record.Transaction{txn("T1", "1000", "MXN", t0)},
		Adjustments: []record.Adjustment{
			adj("A1", "T1", "5", "MXN", record.AdjustmentRefund, t0.Add(40*24*time.Hour)),
			adj("A2", "ord_T1", "5", "MXN", record.AdjustmentChargeback, t0.Add(100*24*time.Hour)),
			adj("A3", "T1", "5", "MXN", record.AdjustmentRefund, t0.Add(-24*time.Hour)),
			adj("A4", "tx_missing", "5", "MXN", record.AdjustmentRefund, t0.Add(24*time.Hour)),
		},
	})

	require.Len(t, out.Discrepancies, 4)

	details := make(map[string]string)
	for _, d := range out.Discrepancies {
		assert.Equal(t, matching.PriorityHigh, d.Priority, d.AdjustmentID)
		details[d.AdjustmentID] = d.Detail
	}

	assert.Equal(t, map[string]string{
		"A1": "refund dated 40 days after transaction T1, outside the 30 day refund window",
		"A2": "chargeback dated 100 days after transaction T1, outside the 90 day chargeback window",
		"A3": "refund dated before transaction T1",
		"A4": `refund references unknown transaction "tx_missing"`,
	}, details)
}

func TestEngine_AdjustmentPenalties(t *testing.T) {
	out, _ := runEngine(t, matching.Snapshot{
		Cutoff:              t0.Add(60 * 24 * time.Hour),
		SettledTransactions: []record.Transaction{txn("T1", "100", "USD", t0)},
		Adjustments: []record.Adjustment{
			adj("A1", "T1", "150", "USD", record.AdjustmentChargeback, t0.Add(50*24*time.Hour)),
			adj("A2", "ord_T1", "1000", "MXN", record.AdjustmentChargeback, t0.Add(10*24*time.Hour)),
		},
	})

	require.Len(t, out.Matches, 2)

	byAdjustment := make(map[string]matching.Match)
	for _, m := range out.Matches {
		byAdjustment[m.AdjustmentID] = m
	}

	assert.Equal(t, 90, byAdjustment["A1"].Confidence)
	assert.Contains(t, byAdjustment["A1"].Reasons, "amount_exceeds_transaction")
	assert.Equal(t, 70, byAdjustment["A2"].Confidence)
	assert.Contains(t, byAdjustment["A2"].Reasons, "currency_mismatch")
	assert.True(t, byAdjustment["A2"].RequiresReview)
}

func TestEngine_AdjustmentByAmountAndDate(t *testing.T) {
	out, _ := runEngine(t, matching.Snapshot{
		Cutoff:       t0.Add(60 * 24 * time.Hour),
		Transactions: []record.Transaction{txn("T1", "250", "BRL", t0)},
		Adjustments: []record.Adjustment{
			adj("A1", "unknown-ref", "250", "BRL", record.AdjustmentRefund, t0.Add(24*time.Hour)),
			adj("A2", "unknown-ref", "250", "BRL", record.AdjustmentRefund, t0.Add(-24*time.Hour)),
		},
	})

	require.Len(t, out.Matches, 1)

	m := out.Matches[0]
	assert.Equal(t, "A1", m.AdjustmentID)
	assert.GreaterOrEqual(t, m.Confidence, 60)
	assert.LessOrEqual(t, m.Confidence, 80)
}

func TestEngine_ContentionAcceptsEachRecordOnce(t *testing.T) {
	out, _ := runEngine(t, matching.Snapshot{
		Cutoff: t0.Add(30 * 24 * time.Hour),
		Transactions: []record.Transaction{
			txn("A", "1000", "MXN", t0),
			txn("B", "1000", "MXN", t0.Add(time.Hour)),
		},
		Settlements: []record.Settlement{
			stl("S1", "1000", "MXN", t0.Add(2*time.Hour), ""),
			stl("S2", "1000", "MXN", t0.Add(3*time.Hour), ""),
		},
	})

	require.Len(t, out.Matches, 2)

	pairs := make(map[string]string)
	for _, m := range out.Matches {
		pairs[m.SettlementReference] = m.TransactionID
	}

	assert.Equal(t, map[string]string{"S1": "B", "S2": "A"}, pairs)
}

func TestEngine_UniquenessAndMonotonicPools(t *testing.T) {
	snap := largeSnapshot(rand.New(rand.NewPCG(1, 2)))
	out, rec := runEngine(t, snap)

	sources := make(map[string]bool)
	settledTx := make(map[string]bool)

	for _, m := range out.Matches {
		require.False(t, sources[m.SourceID()], "source %s matched twice", m.SourceID())
		sources[m.SourceID()] = true

		if m.Type != matching.MatchAdjustment {
			require.False(t, settledTx[m.TransactionID], "transaction %s settled twice", m.TransactionID)
			settledTx[m.TransactionID] = true
		}
	}

	require.Len(t, rec.phases, len(matching.Phases))

	for i := 1; i < len(rec.phases); i++ {
		prev, cur := rec.phases[i-1].Stats, rec.phases[i].Stats
		assert.LessOrEqual(t, cur.UnmatchedTransactions, prev.UnmatchedTransactions)
		assert.LessOrEqual(t, cur.UnmatchedSettlements, prev.UnmatchedSettlements)
		assert.LessOrEqual(t, cur.UnmatchedAdjustments, prev.UnmatchedAdjustments)
	}
}

func TestEngine_Deterministic(t *testing.T) {
	snap := largeSnapshot(rand.New(rand.NewPCG(3, 4)))
	first, _ := runEngine(t, snap)

	shuffled := snap
	shuffled.Transactions = append([]record.Transaction(nil), snap.Transactions...)
	shuffled.Settlements = append([]record.Settlement(nil), snap.Settlements...)
	shuffled.Adjustments = append([]record.Adjustment(nil), snap.Adjustments...)

	r := rand.New(rand.NewPCG(5, 6))
	r.Shuffle(len(shuffled.Transactions), func(i, j int) {
		shuffled.Transactions[i], shuffled.Transactions[j] = shuffled.Transactions[j], shuffled.Transactions[i]
	})
	r.Shuffle(len(shuffled.Settlements), func(i, j int) {
		shuffled.Settlements[i], shuffled.Settlements[j] = shuffled.Settlements[j], shuffled.Settlements[i]
	})
	r.Shuffle(len(shuffled.Adjustments), func(i, j int) {
		shuffled.Adjustments[i], shuffled.Adjustments[j] = shuffled.Adjustments[j], shuffled.Adjustments[i]
	})

	second, _ := runEngine(t, shuffled)

	assert.Equal(t, first.Matches, second.Matches)
	assert.Equal(t, first.Discrepancies, second.Discrepancies)
}

func TestEngine_SkipsInconsistentRecords(t *testing.T) {
	bad := stl("S2", "-5", "MXN", t0, "")

	out, _ := runEngine(t, matching.Snapshot{
		Cutoff: t0.Add(30 * 24 * time.Hour),
		Transactions: []record.Transaction{
			txn("T1", "1000", "MXN", t0),
			txn("T1", "1000", "MXN", t0),
		},
		Settlements: []record.Settlement{
			stl("S1", "1000", "MXN", t0.Add(time.Hour), "T1"),
			bad,
		},
	})

	assert.Equal(t, 2, out.Skipped)
	require.Len(t, out.Matches, 1)
}

func TestEngine_IgnoresUncapturedTransactions(t *testing.T) {
	authorized := txn("T1", "1000", "MXN", t0)
	authorized.Status = record.StatusAuthorized

	out, _ := runEngine(t, matching.Snapshot{
		Cutoff:       t0.Add(30 * 24 * time.Hour),
		Transactions: []record.Transaction{authorized},
		Settlements:  []record.Settlement{stl("S1", "1000", "MXN", t0.Add(time.Hour), "T1")},
	})

	assert.Empty(t, out.Matches)
	assert.Equal(t, []matching.Category{matching.CategoryUnmatchedSettlement}, categories(out.Discrepancies))
}

func TestEngine_CommitFailureStopsRun(t *testing.T) {
	engine, err := matching.NewEngine(testPolicy())
	require.NoError(t, err)

	commitErr := errors.New("connection reset")
	calls := 0

	_, err = engine.Run(context.Background(), uuid.New(), matching.Snapshot{
		Cutoff:       t0.Add(30 * 24 * time.Hour),
		Transactions: []record.Transaction{txn("T1", "1000", "MXN", t0)},
		Settlements:  []record.Settlement{stl("S1", "1000", "MXN", t0.Add(time.Hour), "")},
	}, func(context.Context, matching.PhaseResult) error {
		calls++
		if calls == 2 {
			return commitErr
		}

		return nil
	})

	assert.ErrorIs(t, err, commitErr)
	assert.Equal(t, 2, calls)
}

func TestEngine_CancelledBeforeFirstPhase(t *testing.T) {
	engine, err := matching.NewEngine(testPolicy())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = engine.Run(ctx, uuid.New(), matching.Snapshot{Cutoff: t0}, func(context.Context, matching.PhaseResult) error {
		t.Fatal("commit must not be called")
		return nil
	})

	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewEngine_InvalidPolicy(t *testing.T) {
	p := testPolicy()
	p.SettlementWindow = 0

	_, err := matching.NewEngine(p)
	assert.ErrorIs(t, err, matching.ErrInvalidConfiguration)
}

// largeSnapshot builds a noisy data set with contention across currencies.
func largeSnapshot(r *rand.Rand) matching.Snapshot {
	currencies := []string{"MXN", "COP", "BRL", "USD"}
	amounts := []string{"100.00", "250.00", "980.00", "1000.00", "1020.00"}

	snap := matching.Snapshot{Cutoff: t0.Add(120 * 24 * time.Hour)}

	for i := range 60 {
		id := "tx_" + string(rune('a'+i%26)) + string(rune('a'+i/26)) + "000000"
		at := t0.Add(time.Duration(r.IntN(240)) * time.Hour)
		snap.Transactions = append(snap.Transactions,
			txn(id, amounts[r.IntN(len(amounts))], currencies[r.IntN(len(currencies))], at))
	}

	for i := range 70 {
		ref := ""
		if r.IntN(3) == 0 {
			ref = snap.Transactions[r.IntN(len(snap.Transactions))].ID
		}

		tx := snap.Transactions[r.IntN(len(snap.Transactions))]
		snap.Settlements = append(snap.Settlements, stl(
			"stl_"+string(rune('a'+i%26))+string(rune('a'+i/26)),
			amounts[r.IntN(len(amounts))],
			currencies[r.IntN(len(currencies))],
			tx.Timestamp.Add(time.Duration(r.IntN(96))*time.Hour),
			ref,
		))
	}

	for i := range 20 {
		tx := snap.Transactions[r.IntN(len(snap.Transactions))]
		kind := record.AdjustmentRefund
		if i%4 == 0 {
			kind = record.AdjustmentChargeback
		}

		snap.Adjustments = append(snap.Adjustments, adj(
			"adj_"+string(rune('a'+i)),
			tx.ID,
			"50.00",
			tx.Currency,
			kind,
			tx.Timestamp.Add(time.Duration(r.IntN(40*24))*time.Hour),
		))
	}

	return snap
}
