package matching

import (
	"slices"

	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/reconciler/internal/record"
)

type fuzzySignals struct {
	tx      *record.Transaction
	prefix  bool
	orderID bool
}

func (f fuzzySignals) count() int {
	n := 0
	if f.prefix {
		n++
	}

	if f.orderID {
		n++
	}

	return n
}

// matchFuzzy pairs a settlement with transactions its unreliable reference
// partially identifies, accepting a wider amount tolerance and no date bound.
func matchFuzzy(p Policy, ix *candidateIndex, s *record.Settlement) []candidate {
	ref := s.TransactionReference
	if ref == "" {
		return nil
	}

	signals := make(map[string]*fuzzySignals)

	get := func(tx *record.Transaction) *fuzzySignals {
		f, ok := signals[tx.ID]
		if !ok {
			f = &fuzzySignals{tx: tx}
			signals[tx.ID] = f
		}

		return f
	}

	for _, tx := range ix.withPrefix(ref) {
		get(tx).prefix = true
	}

	for _, tx := range ix.withOrderID(ref) {
		get(tx).orderID = true
	}

	ids := make([]string, 0, len(signals))
	for id := range signals {
		ids = append(ids, id)
	}

	slices.Sort(ids)

	relaxed := p.AmountTolerancePercent.Mul(decimal.NewFromInt(2))

	var out []candidate

	for _, id := range ids {
		f := signals[id]
		if f.tx.Currency != s.Currency {
			continue
		}

		amount, rel, ok := closestAmount(f.tx.Amount, s, sameCurrency)
		if !ok || !AmountsMatch(f.tx.Amount, amount.value, relaxed) {
			continue
		}

		c := newSettlementCandidate(MatchFuzzy, f.tx, s, amount)
		c.confidence = score(70+5*(f.count()-1), 70, 85,
			scoreTerm{weight: 10, fraction: toleranceFraction(rel, relaxed)},
		)

		var reasons []string
		if f.prefix {
			reasons = append(reasons, "transaction_id_prefix_match")
		}

		if f.orderID {
			reasons = append(reasons, "merchant_order_id_match")
		}

		c.reasons = append(append(reasons, "amount_within_relaxed_tolerance"), c.reasons...)

		out = append(out, c)
	}

	return out
}
