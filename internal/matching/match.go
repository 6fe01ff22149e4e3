package matching

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/reconciler/internal/record"
)

var (
	ErrInvalidConfiguration = errors.New("invalid configuration")
	ErrAmbiguousMatch       = errors.New("ambiguous match ordering")
)

// MatchType names the phase that produced a match.
type MatchType string

const (
	MatchExactID       MatchType = "exact_id"
	MatchAmountDate    MatchType = "amount_date"
	MatchFuzzy         MatchType = "fuzzy"
	MatchCrossCurrency MatchType = "cross_currency"
	MatchAdjustment    MatchType = "adjustment"
)

// Phases lists the matching phases in execution order.
var Phases = []MatchType{
	MatchExactID,
	MatchAmountDate,
	MatchFuzzy,
	MatchCrossCurrency,
	MatchAdjustment,
}

// consumesTransaction reports whether a match of this type removes the
// transaction from later settlement phases.
func (t MatchType) consumesTransaction() bool {
	return t != MatchAdjustment
}

// Match links a transaction to exactly one settlement or adjustment.
type Match struct {
	ID                  uuid.UUID
	RunID               uuid.UUID
	Type                MatchType
	TransactionID       string
	SettlementReference string
	AdjustmentID        string
	Confidence          int
	RequiresReview      bool
	AmountDifference    decimal.Decimal
	RelativeDifference  decimal.Decimal
	TimeDifference      time.Duration
	Reasons             []string
	MatchedAt           time.Time
}

// SourceID returns the settlement reference or adjustment id the match consumes.
func (m Match) SourceID() string {
	if m.AdjustmentID != "" {
		return m.AdjustmentID
	}

	return m.SettlementReference
}

// Snapshot is the frozen input of one reconciliation run. Transactions holds
// captured transactions without a settlement match; SettledTransactions holds
// already settled ones that remain valid adjustment targets.
type Snapshot struct {
	Cutoff              time.Time
	Transactions        []record.Transaction
	SettledTransactions []record.Transaction
	Settlements         []record.Settlement
	Adjustments         []record.Adjustment
}

// PhaseStats summarises one phase of a run.
type PhaseStats struct {
	Phase                 MatchType `json:"phase"`
	Candidates            int       `json:"candidates"`
	Matched               int       `json:"matched"`
	UnmatchedTransactions int       `json:"unmatched_transactions"`
	UnmatchedSettlements  int       `json:"unmatched_settlements"`
	UnmatchedAdjustments  int       `json:"unmatched_adjustments"`
	DurationMS            int64     `json:"duration_ms"`
}

// PhaseResult is handed to the commit callback after each phase.
type PhaseResult struct {
	Stats   PhaseStats
	Matches []Match
}

// Outcome is the full result of an engine run.
type Outcome struct {
	Phases        []PhaseStats
	Matches       []Match
	Discrepancies []Discrepancy
	Skipped       int
}
