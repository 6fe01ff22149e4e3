package matching

import (
	"cmp"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/reconciler/internal/record"
)

// Category classifies why a record needs attention.
type Category string

const (
	CategoryUnmatchedTransaction    Category = "unmatched_transaction"
	CategoryUnmatchedSettlement     Category = "unmatched_settlement"
	CategoryUnmatchedAdjustment     Category = "unmatched_adjustment"
	CategoryAmountMismatch          Category = "amount_mismatch"
	CategoryCurrencyMismatchFlagged Category = "currency_mismatch_flagged"
	CategoryLowConfidenceMatch      Category = "low_confidence_match"
)

// Categories lists every category in reporting order.
var Categories = []Category{
	CategoryUnmatchedTransaction,
	CategoryUnmatchedSettlement,
	CategoryUnmatchedAdjustment,
	CategoryAmountMismatch,
	CategoryCurrencyMismatchFlagged,
	CategoryLowConfidenceMatch,
}

// Unmatched reports whether the category describes a record left in a pool.
func (c Category) Unmatched() bool {
	switch c {
	case CategoryUnmatchedTransaction, CategoryUnmatchedSettlement, CategoryUnmatchedAdjustment:
		return true
	}

	return false
}

type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

var Priorities = []Priority{PriorityHigh, PriorityMedium, PriorityLow}

// Discrepancy is a classified, prioritised record needing human attention.
type Discrepancy struct {
	ID                  uuid.UUID
	RunID               uuid.UUID
	Category            Category
	Priority            Priority
	TransactionID       string
	SettlementReference string
	AdjustmentID        string
	MatchID             *uuid.UUID
	Amount              decimal.Decimal
	Currency            string
	Age                 time.Duration
	OccurredAt          time.Time
	Detail              string
	DetectedAt          time.Time
}

// classifier turns the end state of a run into discrepancies.
type classifier struct {
	policy Policy
	runID  uuid.UUID
	cutoff time.Time
}

func (c classifier) unmatchedTransaction(tx *record.Transaction) (Discrepancy, bool) {
	overdue := c.cutoff.Sub(tx.Timestamp) - c.policy.SettlementWindow
	if overdue <= 0 {
		return Discrepancy{}, false
	}

	d := c.newDiscrepancy(CategoryUnmatchedTransaction, tx.ID, tx.Amount, tx.Currency, overdue, tx.Timestamp)
	d.TransactionID = tx.ID
	d.Detail = fmt.Sprintf("no settlement within %s of capture", c.policy.SettlementWindow)

	return d, true
}

func (c classifier) unmatchedSettlement(s *record.Settlement) Discrepancy {
	d := c.newDiscrepancy(CategoryUnmatchedSettlement, s.Reference, s.Amount, s.Currency,
		max(c.cutoff.Sub(s.SettledAt), 0), s.SettledAt)
	d.SettlementReference = s.Reference
	d.Detail = "settlement matched no transaction"

	if s.TransactionReference != "" {
		d.Detail = fmt.Sprintf("settlement reference %q matched no transaction", s.TransactionReference)
	}

	return d
}

// unmatchedAdjustment reports an adjustment no transaction could absorb. ref is
// the transaction its reference resolved to, nil when it names none. Money
// leaving the merchant unexplained always ranks high.
func (c classifier) unmatchedAdjustment(a *record.Adjustment, ref *record.Transaction) Discrepancy {
	d := c.newDiscrepancy(CategoryUnmatchedAdjustment, a.ID, a.Amount, a.Currency,
		max(c.cutoff.Sub(a.Date), 0), a.Date)
	d.AdjustmentID = a.ID
	d.Priority = PriorityHigh

	switch {
	case ref == nil:
		d.Detail = fmt.Sprintf("%s references unknown transaction %q", a.Type, a.TransactionReference)
	case a.Date.Before(ref.Timestamp):
		d.Detail = fmt.Sprintf("%s dated before transaction %s", a.Type, ref.ID)
	default:
		window := c.policy.AdjustmentWindow(a.Type == record.AdjustmentChargeback)
		d.Detail = fmt.Sprintf("%s dated %d days after transaction %s, outside the %d day %s window",
			a.Type, int(a.Date.Sub(ref.Timestamp)/day), ref.ID, int(window/day), a.Type)
	}

	return d
}

// forMatch derives match-based discrepancies from an accepted candidate.
func (c classifier) forMatch(m Match, tx *record.Transaction) []Discrepancy {
	var out []Discrepancy

	key := m.ID.String()
	withMatch := func(d Discrepancy) Discrepancy {
		d.TransactionID = m.TransactionID
		d.SettlementReference = m.SettlementReference
		d.AdjustmentID = m.AdjustmentID
		d.MatchID = new(m.ID)

		return d
	}

	half := c.policy.AmountTolerancePercent.Div(decimal.NewFromInt(2))
	if m.Type.consumesTransaction() && m.Type != MatchCrossCurrency &&
		m.RelativeDifference.Mul(hundred).GreaterThan(half) {
		d := withMatch(c.newDiscrepancy(CategoryAmountMismatch, key, m.AmountDifference, tx.Currency, 0, tx.Timestamp))
		d.Detail = fmt.Sprintf("amounts differ by %s %s (%s%%)",
			m.AmountDifference.StringFixed(2), tx.Currency, m.RelativeDifference.Mul(hundred).StringFixed(2))
		out = append(out, d)
	}

	if m.Type == MatchCrossCurrency {
		d := withMatch(c.newDiscrepancy(CategoryCurrencyMismatchFlagged, key, tx.Amount, tx.Currency, 0, tx.Timestamp))
		d.Detail = "matched across currencies, requires review"
		out = append(out, d)
	}

	if m.Confidence < c.policy.MinConfidenceForAutoMatch {
		d := withMatch(c.newDiscrepancy(CategoryLowConfidenceMatch, key, tx.Amount, tx.Currency, 0, tx.Timestamp))
		d.Detail = fmt.Sprintf("%s match with confidence %d below %d",
			m.Type, m.Confidence, c.policy.MinConfidenceForAutoMatch)
		out = append(out, d)
	}

	return out
}

func (c classifier) newDiscrepancy(cat Category, key string, amount decimal.Decimal, currency string, age time.Duration, occurred time.Time) Discrepancy {
	return Discrepancy{
		ID:         uuid.NewSHA1(c.runID, []byte(string(cat)+":"+key)),
		RunID:      c.runID,
		Category:   cat,
		Priority:   c.priority(amount, currency, age),
		Amount:     amount,
		Currency:   currency,
		Age:        age,
		OccurredAt: occurred,
		DetectedAt: c.cutoff,
	}
}

// priority ranks by USD value and by how long the record has been outstanding.
// Amounts in a currency without a rate rank on age alone.
func (c classifier) priority(amount decimal.Decimal, currency string, age time.Duration) Priority {
	t := c.policy.Priority
	usd, known := c.policy.Rates.ToUSD(amount, currency)

	if (known && usd.GreaterThan(t.HighAmountUSD)) || age > t.HighAge {
		return PriorityHigh
	}

	if (known && usd.GreaterThan(t.MediumAmountUSD)) || age > t.MediumAge {
		return PriorityMedium
	}

	return PriorityLow
}

func sortDiscrepancies(ds []Discrepancy) {
	order := make(map[Category]int, len(Categories))
	for i, c := range Categories {
		order[c] = i
	}

	slices.SortFunc(ds, func(a, b Discrepancy) int {
		if c := cmp.Compare(order[a.Category], order[b.Category]); c != 0 {
			return c
		}

		return cmp.Compare(a.ID.String(), b.ID.String())
	})
}
