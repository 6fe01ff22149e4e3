package matching

import (
	"github.com/MrJamesThe3rd/reconciler/internal/record"
)

// matchExactID pairs a settlement with the transaction its reference names.
// Amount and date are not checked; large deltas surface later as discrepancies.
func matchExactID(_ Policy, ix *candidateIndex, s *record.Settlement) []candidate {
	if s.TransactionReference == "" {
		return nil
	}

	tx := ix.lookup(s.TransactionReference)
	if tx == nil || tx.Currency != s.Currency {
		return nil
	}

	amount, _, _ := closestAmount(tx.Amount, s, sameCurrency)

	c := newSettlementCandidate(MatchExactID, tx, s, amount)
	c.confidence = 100
	c.reasons = append([]string{"exact_transaction_id_match"}, c.reasons...)

	return []candidate{c}
}
