package matching

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/reconciler/internal/record"
)

// candidate is a proposed pairing produced by a phase matcher before arbitration.
type candidate struct {
	kind        MatchType
	tx          *record.Transaction
	sourceID    string
	confidence  int
	review      bool
	amountDelta decimal.Decimal
	relDelta    decimal.Decimal
	timeDelta   time.Duration
	reasons     []string
}

// settledAmount is one of the amounts a settlement can be compared on.
type settledAmount struct {
	value decimal.Decimal
	gross bool
}

// settledAmounts lists the net amount and, when the bank reported a distinct
// one, the gross amount.
func settledAmounts(s *record.Settlement) []settledAmount {
	out := []settledAmount{{value: s.Amount}}

	if s.GrossAmount.Valid && !s.GrossAmount.Decimal.Equal(s.Amount) {
		out = append(out, settledAmount{value: s.GrossAmount.Decimal, gross: true})
	}

	return out
}

// closestAmount picks the settlement amount nearest to target, preferring net on ties.
// convert maps a settlement-currency amount into the target's currency.
func closestAmount(target decimal.Decimal, s *record.Settlement, convert func(decimal.Decimal) (decimal.Decimal, bool)) (settledAmount, decimal.Decimal, bool) {
	var (
		best    settledAmount
		bestRel decimal.Decimal
		found   bool
	)

	for _, a := range settledAmounts(s) {
		v, ok := convert(a.value)
		if !ok {
			continue
		}

		rel := RelativeDelta(target, v)
		if found && !rel.LessThan(bestRel) {
			continue
		}

		best = settledAmount{value: v, gross: a.gross}
		bestRel = rel
		found = true
	}

	return best, bestRel, found
}

func sameCurrency(v decimal.Decimal) (decimal.Decimal, bool) {
	return v, true
}

func newSettlementCandidate(kind MatchType, tx *record.Transaction, s *record.Settlement, amount settledAmount) candidate {
	c := candidate{
		kind:        kind,
		tx:          tx,
		sourceID:    s.Reference,
		amountDelta: tx.Amount.Sub(amount.value).Abs(),
		relDelta:    RelativeDelta(tx.Amount, amount.value),
		timeDelta:   absDuration(s.SettledAt.Sub(tx.Timestamp)),
	}

	if amount.gross {
		c.reasons = append(c.reasons, "gross_amount_match")
	}

	return c
}

// toleranceFraction expresses a relative delta as a fraction of a percent tolerance.
func toleranceFraction(relDelta, tolerancePercent decimal.Decimal) decimal.Decimal {
	return ratio(relDelta.Mul(hundred), tolerancePercent)
}
