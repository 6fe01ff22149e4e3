package matching

import (
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/reconciler/internal/record"
)

// matchCrossCurrency pairs a settlement with transactions in another currency
// whose amount agrees after conversion. Every result needs human review.
func matchCrossCurrency(p Policy, ix *candidateIndex, s *record.Settlement) []candidate {
	var out []candidate

	for _, tx := range ix.near("", s.SettledAt, p.SettlementWindow) {
		if tx.Currency == s.Currency {
			continue
		}

		convert := func(v decimal.Decimal) (decimal.Decimal, bool) {
			return p.Rates.Convert(v, s.Currency, tx.Currency)
		}

		amount, rel, ok := closestAmount(tx.Amount, s, convert)
		if !ok || !AmountsMatch(tx.Amount, amount.value, p.FXTolerancePercent) {
			continue
		}

		start := 60
		referenced := s.TransactionReference != "" &&
			(s.TransactionReference == tx.ID || s.TransactionReference == tx.MerchantOrderID)

		if referenced {
			start += 5
		}

		c := newSettlementCandidate(MatchCrossCurrency, tx, s, amount)
		c.review = true
		c.confidence = score(start, 60, 80,
			scoreTerm{weight: 15, fraction: toleranceFraction(rel, p.FXTolerancePercent)},
		)

		reasons := []string{"fx_converted_amount_match", "date_within_window"}
		if referenced {
			reasons = append(reasons, "reference_match")
		}

		c.reasons = append(reasons, c.reasons...)

		out = append(out, c)
	}

	return out
}
