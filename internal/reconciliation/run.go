package reconciliation

import (
	"errors"
	"maps"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/reconciler/internal/matching"
)

var (
	ErrRunAlreadyInProgress = errors.New("reconciliation run already in progress")
	ErrPersistenceFailure   = errors.New("persistence failure")
	ErrNotFound             = errors.New("not found")
)

// Status represents the lifecycle state of a run.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Terminal reports whether the run can no longer change.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Run is one execution of the matching engine over a snapshot.
type Run struct {
	ID             uuid.UUID
	Status         Status
	StartedAt      time.Time
	CompletedAt    *time.Time
	SnapshotCutoff time.Time
	Phases         []matching.PhaseStats
	Counts         map[matching.Category]int
	SkippedRecords int
	Error          string
}

func (r *Run) clone() *Run {
	c := *r
	c.Phases = slices.Clone(r.Phases)
	c.Counts = maps.Clone(r.Counts)

	return &c
}

// DiscrepancyFilter narrows the open discrepancies. From and To bound the
// time the underlying record occurred.
type DiscrepancyFilter struct {
	Category  *matching.Category
	Priority  *matching.Priority
	Currency  *string
	MinAmount *decimal.Decimal
	From      *time.Time
	To        *time.Time
	RunID     *uuid.UUID
	Limit     int
	Offset    int
}

// Metrics are store-wide figures backing the discrepancy summary.
type Metrics struct {
	AvgSettlementHours decimal.NullDecimal
	Transactions       int
	Chargebacks        int
	Orphaned           int
}

type MatchFilter struct {
	ConfidenceMin  *int
	Type           *matching.MatchType
	RequiresReview *bool
	RunID          *uuid.UUID
	Limit          int
	Offset         int
}
