package reconciliation_test

import (
	"context"
	"slices"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/reconciler/internal/matching"
	"github.com/MrJamesThe3rd/reconciler/internal/reconciliation"
	"github.com/MrJamesThe3rd/reconciler/internal/record"
)

// memoryRepo keeps committed state in memory and reads snapshots with the
// same visibility rules as the Postgres store: records ingested after the
// cutoff are invisible and consumed records never come back.
type memoryRepo struct {
	transactions  []record.Transaction
	settlements   []record.Settlement
	adjustments   []record.Adjustment
	matches       []matching.Match
	discrepancies []matching.Discrepancy
	runs          map[uuid.UUID]*reconciliation.Run
	snapshots     []*matching.Snapshot
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{runs: make(map[uuid.UUID]*reconciliation.Run)}
}

func (r *memoryRepo) CreateRun(_ context.Context, run *reconciliation.Run) error {
	c := *run
	r.runs[run.ID] = &c

	return nil
}

func (r *memoryRepo) UpdateRun(_ context.Context, run *reconciliation.Run) error {
	c := *run
	r.runs[run.ID] = &c

	return nil
}

func (r *memoryRepo) GetRun(_ context.Context, id uuid.UUID) (*reconciliation.Run, error) {
	run, ok := r.runs[id]
	if !ok {
		return nil, reconciliation.ErrNotFound
	}

	return run, nil
}

func (r *memoryRepo) LatestRun(context.Context) (*reconciliation.Run, error) {
	return nil, reconciliation.ErrNotFound
}

func (r *memoryRepo) FailStaleRuns(context.Context, string) (int, error) {
	return 0, nil
}

func (r *memoryRepo) settled(txID string) bool {
	return slices.ContainsFunc(r.matches, func(m matching.Match) bool {
		return m.TransactionID == txID && m.SettlementReference != ""
	})
}

func (r *memoryRepo) LoadSnapshot(_ context.Context, cutoff time.Time, lookback time.Duration) (*matching.Snapshot, error) {
	snap := &matching.Snapshot{Cutoff: cutoff}

	for _, tx := range r.transactions {
		switch {
		case tx.IngestedAt.After(cutoff):
		case !r.settled(tx.ID):
			snap.Transactions = append(snap.Transactions, tx)
		case !tx.Timestamp.Before(cutoff.Add(-lookback)):
			snap.SettledTransactions = append(snap.SettledTransactions, tx)
		}
	}

	for _, s := range r.settlements {
		used := slices.ContainsFunc(r.matches, func(m matching.Match) bool { return m.SettlementReference == s.Reference })
		if !s.IngestedAt.After(cutoff) && !used {
			snap.Settlements = append(snap.Settlements, s)
		}
	}

	for _, a := range r.adjustments {
		used := slices.ContainsFunc(r.matches, func(m matching.Match) bool { return m.AdjustmentID == a.ID })
		if !a.IngestedAt.After(cutoff) && !used {
			snap.Adjustments = append(snap.Adjustments, a)
		}
	}

	r.snapshots = append(r.snapshots, snap)

	return snap, nil
}

func (r *memoryRepo) BeginCommit(context.Context) (reconciliation.CommitTx, error) {
	return &memoryTx{repo: r}, nil
}

func (r *memoryRepo) ListDiscrepancies(context.Context, reconciliation.DiscrepancyFilter) ([]*matching.Discrepancy, error) {
	return nil, nil
}

func (r *memoryRepo) ListMatches(context.Context, reconciliation.MatchFilter) ([]*matching.Match, error) {
	return nil, nil
}

func (r *memoryRepo) MatchesForTransaction(context.Context, string) ([]*matching.Match, error) {
	return nil, nil
}

func (r *memoryRepo) GetDiscrepancy(context.Context, uuid.UUID) (*matching.Discrepancy, error) {
	return nil, reconciliation.ErrNotFound
}

func (r *memoryRepo) SummaryMetrics(context.Context, time.Time) (*reconciliation.Metrics, error) {
	return &reconciliation.Metrics{}, nil
}

type memoryTx struct {
	repo          *memoryRepo
	matches       []matching.Match
	discrepancies []matching.Discrepancy
	run           *reconciliation.Run
}

func (tx *memoryTx) SaveMatches(_ context.Context, ms []matching.Match) error {
	tx.matches = append(tx.matches, ms...)
	return nil
}

func (tx *memoryTx) SaveDiscrepancies(_ context.Context, ds []matching.Discrepancy) error {
	tx.discrepancies = append(tx.discrepancies, ds...)
	return nil
}

func (tx *memoryTx) UpdateRun(_ context.Context, run *reconciliation.Run) error {
	tx.run = run
	return nil
}

func (tx *memoryTx) Commit() error {
	tx.repo.matches = append(tx.repo.matches, tx.matches...)
	tx.repo.discrepancies = append(tx.repo.discrepancies, tx.discrepancies...)

	if tx.run != nil {
		return tx.repo.UpdateRun(context.Background(), tx.run)
	}

	return nil
}

func (tx *memoryTx) Rollback() error { return nil }

func TestService_ConsecutiveRuns(t *testing.T) {
	repo := newMemoryRepo()

	firstCutoff := now
	secondCutoff := now.Add(6 * time.Hour)
	occurred := now.Add(-24 * time.Hour)

	tx := func(id string, ingested time.Time) record.Transaction {
		return record.Transaction{
			ID: id, Amount: decimal.NewFromInt(1000), Currency: "MXN",
			Timestamp: occurred, Status: record.StatusCaptured, IngestedAt: ingested,
		}
	}

	st := func(ref, txRef string, ingested time.Time) record.Settlement {
		return record.Settlement{
			Reference: ref, Amount: decimal.NewFromInt(1000), Currency: "MXN",
			SettledAt: occurred.Add(2 * time.Hour), TransactionReference: txRef, IngestedAt: ingested,
		}
	}

	repo.transactions = []record.Transaction{
		tx("T1", firstCutoff.Add(-time.Hour)),
		tx("T2", firstCutoff.Add(time.Hour)),
	}
	repo.settlements = []record.Settlement{
		st("S1", "T1", firstCutoff.Add(-time.Hour)),
		st("S2", "T2", firstCutoff.Add(2*time.Hour)),
	}
	repo.adjustments = []record.Adjustment{{
		ID: "A1", TransactionReference: "T1", Amount: decimal.NewFromInt(100), Currency: "MXN",
		Type: record.AdjustmentRefund, Date: now.Add(-time.Hour), IngestedAt: firstCutoff.Add(-time.Hour),
	}}

	clock := firstCutoff

	engine, err := matching.NewEngine(testPolicy())
	require.NoError(t, err)

	svc := reconciliation.NewService(repo, engine,
		reconciliation.WithClock(func() time.Time { return clock }),
		reconciliation.WithRetry(reconciliation.RetryPolicy{MaxAttempts: 1, InitialInterval: time.Millisecond}),
	)

	first, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, reconciliation.StatusCompleted, first.Status)

	// Records ingested after the cutoff stay out of the first run entirely.
	require.Len(t, repo.snapshots, 1)
	assert.Len(t, repo.snapshots[0].Transactions, 1)
	assert.Len(t, repo.snapshots[0].Settlements, 1)

	for _, d := range repo.discrepancies {
		assert.NotEqual(t, "T2", d.TransactionID)
		assert.NotEqual(t, "S2", d.SettlementReference)
	}

	require.Len(t, repo.matches, 2)
	assert.Equal(t, "S1", repo.matches[0].SettlementReference)
	assert.Equal(t, "A1", repo.matches[1].AdjustmentID)

	clock = secondCutoff

	second, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, reconciliation.StatusCompleted, second.Status)

	// What the first run consumed is not offered again.
	snap := repo.snapshots[1]
	require.Len(t, snap.Transactions, 1)
	assert.Equal(t, "T2", snap.Transactions[0].ID)
	require.Len(t, snap.Settlements, 1)
	assert.Equal(t, "S2", snap.Settlements[0].Reference)
	assert.Empty(t, snap.Adjustments)
	require.Len(t, snap.SettledTransactions, 1)
	assert.Equal(t, "T1", snap.SettledTransactions[0].ID)

	var secondRun []matching.Match
	for _, m := range repo.matches {
		if m.RunID == second.ID {
			secondRun = append(secondRun, m)
		}
	}

	require.Len(t, secondRun, 1)
	assert.Equal(t, "T2", secondRun[0].TransactionID)
	assert.Equal(t, "S2", secondRun[0].SettlementReference)

	seen := make(map[string]bool)
	for _, m := range repo.matches {
		assert.False(t, seen[m.SourceID()], "record %s matched twice", m.SourceID())
		seen[m.SourceID()] = true
	}
}
