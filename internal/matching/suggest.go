package matching

import (
	"cmp"
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/reconciler/internal/record"
)

const (
	maxSuggestions          = 3
	minSuggestionConfidence = 30
)

// RecordType names the kind of record a suggestion points at.
type RecordType string

const (
	RecordSettlement  RecordType = "settlement"
	RecordTransaction RecordType = "transaction"
)

// Suggestion is a possible counterpart for an unmatched record, offered to an
// operator. It is never committed as a match.
type Suggestion struct {
	RecordType RecordType
	ID         string
	Amount     decimal.Decimal
	Currency   string
	OccurredAt time.Time
	Confidence int
	Reasons    []string
}

// SuggestSettlements ranks unmatched settlements that could belong to tx.
// Only settlements naming tx or dated within twice the settlement window are
// considered.
func (e *Engine) SuggestSettlements(tx record.Transaction, settlements []record.Settlement) []Suggestion {
	reach := 2 * e.policy.SettlementWindow

	var out []Suggestion

	for i := range settlements {
		s := &settlements[i]
		if !WithinWindow(s.SettledAt, tx.Timestamp, reach) && !refersTo(s.TransactionReference, &tx) {
			continue
		}

		conf, reasons := e.scoreSuggestion(&tx, s)
		if conf <= minSuggestionConfidence {
			continue
		}

		out = append(out, Suggestion{
			RecordType: RecordSettlement,
			ID:         s.Reference,
			Amount:     s.Amount,
			Currency:   s.Currency,
			OccurredAt: s.SettledAt,
			Confidence: conf,
			Reasons:    reasons,
		})
	}

	return topSuggestions(out)
}

// SuggestTransactions ranks unmatched captured transactions that could be the
// source of s, probing the candidate index by reference and by date.
func (e *Engine) SuggestTransactions(s record.Settlement, txs []record.Transaction) []Suggestion {
	captured := make([]*record.Transaction, 0, len(txs))
	for i := range txs {
		if txs[i].Captured() {
			captured = append(captured, &txs[i])
		}
	}

	ix := newCandidateIndex(captured)

	seen := make(map[string]bool)
	var pool []*record.Transaction

	add := func(txs ...*record.Transaction) {
		for _, tx := range txs {
			if tx != nil && !seen[tx.ID] {
				seen[tx.ID] = true
				pool = append(pool, tx)
			}
		}
	}

	add(ix.lookup(s.TransactionReference))
	add(ix.withPrefix(s.TransactionReference)...)
	add(ix.withOrderID(s.TransactionReference)...)
	add(ix.near("", s.SettledAt, 2*e.policy.SettlementWindow)...)

	var out []Suggestion

	for _, tx := range pool {
		conf, reasons := e.scoreSuggestion(tx, &s)
		if conf <= minSuggestionConfidence {
			continue
		}

		out = append(out, Suggestion{
			RecordType: RecordTransaction,
			ID:         tx.ID,
			Amount:     tx.Amount,
			Currency:   tx.Currency,
			OccurredAt: tx.Timestamp,
			Confidence: conf,
			Reasons:    reasons,
		})
	}

	return topSuggestions(out)
}

// scoreSuggestion adds up independent signals. Unlike the phase matchers it
// scores pairs no phase would accept, so an operator can judge near misses.
func (e *Engine) scoreSuggestion(tx *record.Transaction, s *record.Settlement) (int, []string) {
	p := e.policy

	var (
		conf    int
		reasons []string
	)

	tolerance := p.AmountTolerancePercent
	convert := sameCurrency

	if s.Currency == tx.Currency {
		conf += 20
		reasons = append(reasons, "currency_match")
	} else {
		tolerance = p.FXTolerancePercent
		convert = func(v decimal.Decimal) (decimal.Decimal, bool) {
			return p.Rates.Convert(v, s.Currency, tx.Currency)
		}
	}

	if amount, rel, ok := closestAmount(tx.Amount, s, convert); ok {
		switch {
		case rel.IsZero():
			conf += 40
			reasons = append(reasons, "exact_amount")
		case AmountsMatch(tx.Amount, amount.value, tolerance):
			conf += 25
			reasons = append(reasons, "amount_within_tolerance")
		}
	}

	switch delta := absDuration(s.SettledAt.Sub(tx.Timestamp)); {
	case delta <= p.SettlementWindow:
		conf += 20
		reasons = append(reasons, "date_within_settlement_window")
	case delta <= 2*p.SettlementWindow:
		conf += 10
		reasons = append(reasons, "date_near_settlement_window")
	}

	switch {
	case s.TransactionReference == "":
	case s.TransactionReference == tx.ID:
		conf += 20
		reasons = append(reasons, "id_match")
	case refersTo(s.TransactionReference, tx):
		conf += 10
		reasons = append(reasons, "reference_similar")
	}

	return min(conf, 100), reasons
}

// refersTo reports whether ref names tx by id, id prefix or merchant order id.
func refersTo(ref string, tx *record.Transaction) bool {
	if ref == "" {
		return false
	}

	if ref == tx.ID || ref == tx.MerchantOrderID {
		return true
	}

	a, okA := idPrefix(ref)
	b, okB := idPrefix(tx.ID)

	return okA && okB && a == b
}

func topSuggestions(ss []Suggestion) []Suggestion {
	slices.SortFunc(ss, func(a, b Suggestion) int {
		if c := cmp.Compare(b.Confidence, a.Confidence); c != 0 {
			return c
		}

		return cmp.Compare(a.ID, b.ID)
	})

	return ss[:min(len(ss), maxSuggestions)]
}
