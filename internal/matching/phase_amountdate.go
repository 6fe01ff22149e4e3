package matching

import (
	"github.com/MrJamesThe3rd/reconciler/internal/record"
)

// matchAmountDate pairs a settlement with same-currency transactions whose
// amount is within tolerance and whose timestamp is within the settlement window.
func matchAmountDate(p Policy, ix *candidateIndex, s *record.Settlement) []candidate {
	var out []candidate

	for _, tx := range ix.near(s.Currency, s.SettledAt, p.SettlementWindow) {
		amount, rel, ok := closestAmount(tx.Amount, s, sameCurrency)
		if !ok || !AmountsMatch(tx.Amount, amount.value, p.AmountTolerancePercent) {
			continue
		}

		c := newSettlementCandidate(MatchAmountDate, tx, s, amount)
		c.confidence = score(80, 80, 95,
			scoreTerm{weight: 15, fraction: toleranceFraction(rel, p.AmountTolerancePercent)},
			scoreTerm{weight: 5, fraction: durationRatio(c.timeDelta, p.SettlementWindow)},
		)
		c.reasons = append([]string{"amount_within_tolerance", "date_within_window"}, c.reasons...)

		out = append(out, c)
	}

	return out
}
