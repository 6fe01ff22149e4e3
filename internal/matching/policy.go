package matching

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

var (
	hundred = decimal.NewFromInt(100)
	epsilon = decimal.New(1, -9)
)

// Policy holds every tunable of the matching engine. It has no defaults of
// its own; callers build it from configuration and it is immutable for the
// duration of a run.
type Policy struct {
	AmountTolerancePercent    decimal.Decimal
	SettlementWindow          time.Duration
	RefundWindow              time.Duration
	ChargebackWindow          time.Duration
	FXTolerancePercent        decimal.Decimal
	MinConfidenceForAutoMatch int
	Rates                     RateTable
	Priority                  PriorityThresholds
	Workers                   int
}

// PriorityThresholds drive discrepancy prioritisation. Amounts are in USD.
type PriorityThresholds struct {
	HighAmountUSD   decimal.Decimal
	MediumAmountUSD decimal.Decimal
	HighAge         time.Duration
	MediumAge       time.Duration
}

func (p Policy) Validate() error {
	if !p.AmountTolerancePercent.IsPositive() {
		return fmt.Errorf("%w: amount tolerance must be positive", ErrInvalidConfiguration)
	}

	if !p.FXTolerancePercent.IsPositive() {
		return fmt.Errorf("%w: fx tolerance must be positive", ErrInvalidConfiguration)
	}

	if p.SettlementWindow <= 0 || p.RefundWindow <= 0 || p.ChargebackWindow <= 0 {
		return fmt.Errorf("%w: matching windows must be positive", ErrInvalidConfiguration)
	}

	if p.MinConfidenceForAutoMatch < 0 || p.MinConfidenceForAutoMatch > 100 {
		return fmt.Errorf("%w: min confidence must be within [0, 100]", ErrInvalidConfiguration)
	}

	if p.Workers < 1 {
		return fmt.Errorf("%w: workers must be at least 1", ErrInvalidConfiguration)
	}

	if err := p.Rates.Validate(); err != nil {
		return err
	}

	if p.Priority.MediumAmountUSD.GreaterThan(p.Priority.HighAmountUSD) || p.Priority.MediumAge > p.Priority.HighAge {
		return fmt.Errorf("%w: medium priority thresholds exceed high ones", ErrInvalidConfiguration)
	}

	return nil
}

// AdjustmentWindow returns the look-back window for the adjustment type.
func (p Policy) AdjustmentWindow(chargeback bool) time.Duration {
	if chargeback {
		return p.ChargebackWindow
	}

	return p.RefundWindow
}

// MaxAdjustmentWindow is how far back settled transactions stay relevant as
// adjustment targets.
func (p Policy) MaxAdjustmentWindow() time.Duration {
	return max(p.RefundWindow, p.ChargebackWindow)
}

// AmountsMatch reports whether |a-b| / max(|a|,|b|) is within tolerancePercent.
// The comparison is cross-multiplied so it never divides.
func AmountsMatch(a, b, tolerancePercent decimal.Decimal) bool {
	diff := a.Sub(b).Abs()

	return diff.Mul(hundred).LessThanOrEqual(tolerancePercent.Mul(base(a, b)))
}

// RelativeDelta returns |a-b| / max(|a|,|b|) as a fraction.
func RelativeDelta(a, b decimal.Decimal) decimal.Decimal {
	return a.Sub(b).Abs().DivRound(base(a, b), 12)
}

// WithinWindow reports whether t1 and t2 are at most d apart. Inclusive.
func WithinWindow(t1, t2 time.Time, d time.Duration) bool {
	return absDuration(t1.Sub(t2)) <= d
}

func base(a, b decimal.Decimal) decimal.Decimal {
	return decimal.Max(a.Abs(), b.Abs(), epsilon)
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}

	return d
}

// ratio returns part/whole clamped to [0,1].
func ratio(part, whole decimal.Decimal) decimal.Decimal {
	if !whole.IsPositive() {
		return decimal.Zero
	}

	r := part.DivRound(whole, 12)
	if r.GreaterThan(decimal.NewFromInt(1)) {
		return decimal.NewFromInt(1)
	}

	return r
}

func durationRatio(d, window time.Duration) decimal.Decimal {
	return ratio(decimal.NewFromInt(int64(absDuration(d))), decimal.NewFromInt(int64(window)))
}

// score computes start + Σ weight·(1-fraction), rounded and clamped to [lo, hi].
func score(start, lo, hi int, terms ...scoreTerm) int {
	total := decimal.NewFromInt(int64(start))
	one := decimal.NewFromInt(1)

	for _, t := range terms {
		total = total.Add(decimal.NewFromInt(int64(t.weight)).Mul(one.Sub(t.fraction)))
	}

	v := int(total.Round(0).IntPart())

	return min(max(v, lo), hi)
}

type scoreTerm struct {
	weight   int
	fraction decimal.Decimal
}
