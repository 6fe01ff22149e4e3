package reconciliation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/reconciler/internal/matching"
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=reconciliation
type Repository interface {
	CreateRun(ctx context.Context, run *Run) error
	UpdateRun(ctx context.Context, run *Run) error
	GetRun(ctx context.Context, id uuid.UUID) (*Run, error)
	LatestRun(ctx context.Context) (*Run, error)
	FailStaleRuns(ctx context.Context, reason string) (int, error)

	LoadSnapshot(ctx context.Context, cutoff time.Time, adjustmentLookback time.Duration) (*matching.Snapshot, error)
	BeginCommit(ctx context.Context) (CommitTx, error)

	ListDiscrepancies(ctx context.Context, filter DiscrepancyFilter) ([]*matching.Discrepancy, error)
	ListMatches(ctx context.Context, filter MatchFilter) ([]*matching.Match, error)
	MatchesForTransaction(ctx context.Context, transactionID string) ([]*matching.Match, error)
	GetDiscrepancy(ctx context.Context, id uuid.UUID) (*matching.Discrepancy, error)
	SummaryMetrics(ctx context.Context, orphanedBefore time.Time) (*Metrics, error)
}

// CommitTx groups the writes of one phase so they land atomically.
type CommitTx interface {
	SaveMatches(ctx context.Context, matches []matching.Match) error
	SaveDiscrepancies(ctx context.Context, discrepancies []matching.Discrepancy) error
	UpdateRun(ctx context.Context, run *Run) error
	Commit() error
	Rollback() error
}

type RetryPolicy struct {
	MaxAttempts     int
	InitialInterval time.Duration
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithRetry(p RetryPolicy) Option {
	return func(s *Service) { s.retry = p }
}

// WithOrphanThreshold sets how long a record may stay unmatched before the
// summary counts it as orphaned.
func WithOrphanThreshold(d time.Duration) Option {
	return func(s *Service) { s.orphanAfter = d }
}

// Service orchestrates reconciliation runs. At most one run executes at a
// time per process; the database rejects a second active run across processes.
type Service struct {
	repo   Repository
	engine *matching.Engine
	retry  RetryPolicy
	now    func() time.Time

	orphanAfter time.Duration

	mu     sync.Mutex
	done   chan struct{}
	cancel context.CancelFunc
}

func NewService(repo Repository, engine *matching.Engine, opts ...Option) *Service {
	s := &Service{
		repo:   repo,
		engine: engine,
		retry:  RetryPolicy{MaxAttempts: 3, InitialInterval: 200 * time.Millisecond},
		now:    time.Now,

		orphanAfter: 7 * 24 * time.Hour,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Trigger starts a run in the background and returns it in the pending state.
// The run outlives ctx; use Shutdown to stop it.
func (s *Service) Trigger(ctx context.Context) (*Run, error) {
	run, runCtx, err := s.start(ctx, context.WithoutCancel(ctx))
	if err != nil {
		return nil, err
	}

	pending := run.clone()

	go func() {
		if _, err := s.execute(runCtx, run); err != nil {
			slog.Error("reconciliation run failed", "run_id", run.ID, "error", err)
		}
	}()

	return pending, nil
}

// Run executes a reconciliation run synchronously. Cancelling ctx fails the run.
func (s *Service) Run(ctx context.Context) (*Run, error) {
	run, runCtx, err := s.start(ctx, ctx)
	if err != nil {
		return nil, err
	}

	return s.execute(runCtx, run)
}

// Wait blocks until no run is in flight or ctx is done.
func (s *Service) Wait(ctx context.Context) error {
	s.mu.Lock()
	done := s.done
	s.mu.Unlock()

	if done == nil {
		return nil
	}

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown cancels the in-flight run, if any, and waits for it to be marked failed.
func (s *Service) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Unlock()

	return s.Wait(ctx)
}

// Recover fails runs a previous process left active.
func (s *Service) Recover(ctx context.Context) error {
	n, err := s.repo.FailStaleRuns(ctx, "interrupted: process restarted")
	if err != nil {
		return fmt.Errorf("failing stale runs: %w", err)
	}

	if n > 0 {
		slog.Warn("marked interrupted runs as failed", "count", n)
	}

	return nil
}

func (s *Service) start(ctx, parent context.Context) (*Run, context.Context, error) {
	s.mu.Lock()
	if s.done != nil {
		s.mu.Unlock()
		return nil, nil, ErrRunAlreadyInProgress
	}

	runCtx, cancel := context.WithCancel(parent)
	s.done = make(chan struct{})
	s.cancel = cancel
	s.mu.Unlock()

	now := s.now().UTC()
	run := &Run{
		ID:             uuid.New(),
		Status:         StatusPending,
		StartedAt:      now,
		SnapshotCutoff: now,
	}

	if err := s.repo.CreateRun(ctx, run); err != nil {
		s.finish()

		if errors.Is(err, ErrRunAlreadyInProgress) {
			return nil, nil, err
		}

		return nil, nil, fmt.Errorf("%w: creating run: %w", ErrPersistenceFailure, err)
	}

	return run, runCtx, nil
}

func (s *Service) finish() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}

	close(s.done)
	s.done = nil
	s.cancel = nil
}

func (s *Service) execute(ctx context.Context, run *Run) (*Run, error) {
	defer s.finish()

	run.Status = StatusRunning
	if err := s.withRetry(ctx, "marking run running", func(ctx context.Context) error {
		return s.repo.UpdateRun(ctx, run)
	}); err != nil {
		return s.fail(ctx, run, err)
	}

	var snap *matching.Snapshot

	lookback := s.engine.Policy().MaxAdjustmentWindow()
	if err := s.withRetry(ctx, "loading snapshot", func(ctx context.Context) error {
		var err error
		snap, err = s.repo.LoadSnapshot(ctx, run.SnapshotCutoff, lookback)

		return err
	}); err != nil {
		return s.fail(ctx, run, err)
	}

	slog.Info("reconciliation run started",
		"run_id", run.ID,
		"cutoff", run.SnapshotCutoff,
		"transactions", len(snap.Transactions),
		"settlements", len(snap.Settlements),
		"adjustments", len(snap.Adjustments),
	)

	outcome, err := s.engine.Run(ctx, run.ID, *snap, func(ctx context.Context, res matching.PhaseResult) error {
		return s.commitPhase(ctx, run, res)
	})
	if outcome != nil {
		run.SkippedRecords = outcome.Skipped
	}

	if err != nil {
		return s.fail(ctx, run, err)
	}

	final := run.clone()
	final.Status = StatusCompleted
	final.CompletedAt = new(s.now().UTC())
	final.Counts = countByCategory(outcome.Discrepancies)

	if err := s.withRetry(ctx, "committing discrepancies", func(ctx context.Context) error {
		return s.inTx(ctx, func(tx CommitTx) error {
			if err := tx.SaveDiscrepancies(ctx, outcome.Discrepancies); err != nil {
				return err
			}

			return tx.UpdateRun(ctx, final)
		})
	}); err != nil {
		return s.fail(ctx, run, err)
	}

	slog.Info("reconciliation run completed",
		"run_id", run.ID, "matches", len(outcome.Matches), "discrepancies", len(outcome.Discrepancies))

	return final, nil
}

func (s *Service) commitPhase(ctx context.Context, run *Run, res matching.PhaseResult) error {
	matchedAt := s.now().UTC()
	for i := range res.Matches {
		res.Matches[i].MatchedAt = matchedAt
	}

	staged := run.clone()
	staged.Phases = append(staged.Phases, res.Stats)

	err := s.withRetry(ctx, fmt.Sprintf("committing %s phase", res.Stats.Phase), func(ctx context.Context) error {
		return s.inTx(ctx, func(tx CommitTx) error {
			if err := tx.SaveMatches(ctx, res.Matches); err != nil {
				return err
			}

			return tx.UpdateRun(ctx, staged)
		})
	})
	if err != nil {
		return err
	}

	run.Phases = staged.Phases

	return nil
}

func (s *Service) inTx(ctx context.Context, fn func(CommitTx) error) error {
	tx, err := s.repo.BeginCommit(ctx)
	if err != nil {
		return fmt.Errorf("begin commit: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	return nil
}

// fail records the failure on a context that survives cancellation of the run.
func (s *Service) fail(ctx context.Context, run *Run, cause error) (*Run, error) {
	run.Status = StatusFailed
	run.Error = cause.Error()
	run.CompletedAt = new(s.now().UTC())

	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()

	if err := s.withRetry(saveCtx, "marking run failed", func(ctx context.Context) error {
		return s.repo.UpdateRun(ctx, run)
	}); err != nil {
		slog.Error("failed to record run failure", "run_id", run.ID, "error", err)
	}

	return run.clone(), fmt.Errorf("run %s: %w", run.ID, cause)
}

func (s *Service) withRetry(ctx context.Context, op string, fn func(context.Context) error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.retry.InitialInterval

	retries := uint64(max(s.retry.MaxAttempts-1, 0))
	attempt := 0

	err := backoff.Retry(func() error {
		attempt++

		err := fn(ctx)
		if err == nil {
			return nil
		}

		if ctx.Err() != nil || errors.Is(err, ErrRunAlreadyInProgress) {
			return backoff.Permanent(err)
		}

		slog.Warn("persistence attempt failed", "op", op, "attempt", attempt, "error", err)

		return err
	}, backoff.WithContext(backoff.WithMaxRetries(b, retries), ctx))
	if err == nil {
		return nil
	}

	if ctx.Err() != nil {
		return fmt.Errorf("%s: %w", op, ctx.Err())
	}

	return fmt.Errorf("%w: %s: %w", ErrPersistenceFailure, op, err)
}

func countByCategory(ds []matching.Discrepancy) map[matching.Category]int {
	counts := make(map[matching.Category]int, len(matching.Categories))
	for _, c := range matching.Categories {
		counts[c] = 0
	}

	for _, d := range ds {
		counts[d.Category]++
	}

	return counts
}

func (s *Service) GetRun(ctx context.Context, id uuid.UUID) (*Run, error) {
	return s.repo.GetRun(ctx, id)
}

func (s *Service) LatestRun(ctx context.Context) (*Run, error) {
	return s.repo.LatestRun(ctx)
}

// ListDiscrepancies returns the open discrepancies: unmatched records from the
// latest completed run plus every match-based finding.
func (s *Service) ListDiscrepancies(ctx context.Context, filter DiscrepancyFilter) ([]*matching.Discrepancy, error) {
	return s.repo.ListDiscrepancies(ctx, filter)
}

func (s *Service) ListMatches(ctx context.Context, filter MatchFilter) ([]*matching.Match, error) {
	return s.repo.ListMatches(ctx, filter)
}

// GetMatchForTransaction returns the settlement match of a transaction, or its
// earliest adjustment match when it has not settled.
func (s *Service) GetMatchForTransaction(ctx context.Context, transactionID string) (*matching.Match, error) {
	matches, err := s.repo.MatchesForTransaction(ctx, transactionID)
	if err != nil {
		return nil, fmt.Errorf("loading matches: %w", err)
	}

	var first *matching.Match

	for _, m := range matches {
		if m.Type != matching.MatchAdjustment {
			return m, nil
		}

		if first == nil || m.MatchedAt.Before(first.MatchedAt) {
			first = m
		}
	}

	if first == nil {
		return nil, ErrNotFound
	}

	return first, nil
}

type Summary struct {
	Total             int
	ByCategory        map[matching.Category]int
	ByPriority        map[matching.Priority]int
	UnmatchedValue    map[string]decimal.Decimal
	UnmatchedValueUSD decimal.Decimal
	LatestRun         *Run

	// AvgSettlementHours is invalid until a settlement has been matched.
	AvgSettlementHours decimal.NullDecimal
	// ChargebackRate is chargebacks per ingested transaction.
	ChargebackRate  decimal.Decimal
	OrphanedRecords int
	OrphanThreshold time.Duration
}

// DiscrepancySummary aggregates the open discrepancies. Unmatched value in a
// currency without a configured rate is left out of the USD total.
func (s *Service) DiscrepancySummary(ctx context.Context) (*Summary, error) {
	ds, err := s.repo.ListDiscrepancies(ctx, DiscrepancyFilter{})
	if err != nil {
		return nil, fmt.Errorf("listing discrepancies: %w", err)
	}

	sum := &Summary{
		Total:          len(ds),
		ByCategory:     make(map[matching.Category]int),
		ByPriority:     make(map[matching.Priority]int),
		UnmatchedValue: make(map[string]decimal.Decimal),
	}

	rates := s.engine.Policy().Rates

	for _, d := range ds {
		sum.ByCategory[d.Category]++
		sum.ByPriority[d.Priority]++

		if !d.Category.Unmatched() {
			continue
		}

		sum.UnmatchedValue[d.Currency] = sum.UnmatchedValue[d.Currency].Add(d.Amount)

		if usd, ok := rates.ToUSD(d.Amount, d.Currency); ok {
			sum.UnmatchedValueUSD = sum.UnmatchedValueUSD.Add(usd)
		}
	}

	latest, err := s.repo.LatestRun(ctx)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("loading latest run: %w", err)
	}

	sum.LatestRun = latest

	metrics, err := s.repo.SummaryMetrics(ctx, s.now().UTC().Add(-s.orphanAfter))
	if err != nil {
		return nil, fmt.Errorf("loading summary metrics: %w", err)
	}

	sum.AvgSettlementHours = metrics.AvgSettlementHours
	sum.OrphanedRecords = metrics.Orphaned
	sum.OrphanThreshold = s.orphanAfter

	if metrics.Transactions > 0 {
		sum.ChargebackRate = decimal.NewFromInt(int64(metrics.Chargebacks)).
			DivRound(decimal.NewFromInt(int64(metrics.Transactions)), 4)
	}

	return sum, nil
}

// SuggestMatches proposes counterparts for an unmatched transaction or
// settlement. Other discrepancies, and records matched since they were
// reported, get no suggestions.
func (s *Service) SuggestMatches(ctx context.Context, discrepancyID uuid.UUID) ([]matching.Suggestion, error) {
	d, err := s.repo.GetDiscrepancy(ctx, discrepancyID)
	if err != nil {
		return nil, err
	}

	if d.Category != matching.CategoryUnmatchedTransaction && d.Category != matching.CategoryUnmatchedSettlement {
		return nil, nil
	}

	snap, err := s.repo.LoadSnapshot(ctx, s.now().UTC(), 0)
	if err != nil {
		return nil, fmt.Errorf("loading unmatched records: %w", err)
	}

	if d.Category == matching.CategoryUnmatchedTransaction {
		for _, tx := range snap.Transactions {
			if tx.ID == d.TransactionID {
				return s.engine.SuggestSettlements(tx, snap.Settlements), nil
			}
		}

		return nil, nil
	}

	for _, st := range snap.Settlements {
		if st.Reference == d.SettlementReference {
			return s.engine.SuggestTransactions(st, snap.Transactions), nil
		}
	}

	return nil, nil
}

// ExplainMatch describes the match GetMatchForTransaction would return.
func (s *Service) ExplainMatch(ctx context.Context, transactionID string) (*matching.Match, matching.Explanation, error) {
	m, err := s.GetMatchForTransaction(ctx, transactionID)
	if err != nil {
		return nil, matching.Explanation{}, err
	}

	return m, s.engine.Explain(*m), nil
}
