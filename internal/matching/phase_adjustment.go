package matching

import (
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/reconciler/internal/record"
)

// matchAdjustment links a refund or chargeback to the transaction it reverses.
// References are tried first; the amount and date heuristic only runs when no
// referenced transaction qualifies.
func matchAdjustment(p Policy, ix *candidateIndex, a *record.Adjustment) []candidate {
	window := p.AdjustmentWindow(a.Type == record.AdjustmentChargeback)

	var out []candidate

	if tx := ix.lookup(a.TransactionReference); tx != nil {
		if c, ok := referencedAdjustment(p, tx, a, 100, "exact_transaction_reference"); ok {
			out = append(out, c)
		}
	}

	for _, tx := range ix.withOrderID(a.TransactionReference) {
		if tx.ID == a.TransactionReference {
			continue
		}

		if c, ok := referencedAdjustment(p, tx, a, 90, "merchant_order_id_match"); ok {
			out = append(out, c)
		}
	}

	if len(out) > 0 {
		return out
	}

	for _, tx := range ix.near(a.Currency, a.Date, window) {
		if a.Date.Before(tx.Timestamp) || !AmountsMatch(tx.Amount, a.Amount, p.AmountTolerancePercent) {
			continue
		}

		c := newAdjustmentCandidate(tx, a, a.Amount)
		c.confidence = score(60, 60, 80,
			scoreTerm{weight: 10, fraction: toleranceFraction(c.relDelta, p.AmountTolerancePercent)},
			scoreTerm{weight: 10, fraction: durationRatio(c.timeDelta, window)},
		)
		c.reasons = []string{"amount_within_tolerance", "date_within_adjustment_window"}

		out = append(out, c)
	}

	return out
}

func referencedAdjustment(p Policy, tx *record.Transaction, a *record.Adjustment, confidence int, reason string) (candidate, bool) {
	window := p.AdjustmentWindow(a.Type == record.AdjustmentChargeback)
	if a.Date.Before(tx.Timestamp) || a.Date.Sub(tx.Timestamp) > window {
		return candidate{}, false
	}

	reasons := []string{reason}

	amount, converted := p.Rates.Convert(a.Amount, a.Currency, tx.Currency)
	if !converted {
		amount = tx.Amount
	}

	if a.Currency != tx.Currency {
		confidence -= 20
		reasons = append(reasons, "currency_mismatch")
	}

	if converted && amount.GreaterThan(tx.Amount) {
		confidence -= 10
		reasons = append(reasons, "amount_exceeds_transaction")
	}

	c := newAdjustmentCandidate(tx, a, amount)
	c.confidence = confidence
	c.reasons = reasons

	return c, true
}

func newAdjustmentCandidate(tx *record.Transaction, a *record.Adjustment, amount decimal.Decimal) candidate {
	return candidate{
		kind:        MatchAdjustment,
		tx:          tx,
		sourceID:    a.ID,
		amountDelta: tx.Amount.Sub(amount).Abs(),
		relDelta:    RelativeDelta(tx.Amount, amount),
		timeDelta:   absDuration(a.Date.Sub(tx.Timestamp)),
	}
}
