package ingest

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/MrJamesThe3rd/reconciler/internal/record"
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=ingest
type Repository interface {
	BeginIngest(ctx context.Context, kind record.Kind) (IngestTx, error)
}

// IngestTx serialises batches of one kind so duplicate checks and inserts
// see a consistent view.
type IngestTx interface {
	ExistingKeys(ctx context.Context, kind record.Kind, keys []string) ([]string, error)
	InsertTransactions(ctx context.Context, txs []record.Transaction) error
	InsertSettlements(ctx context.Context, settlements []record.Settlement) error
	InsertAdjustments(ctx context.Context, adjustments []record.Adjustment) error
	Commit() error
	Rollback() error
}

type Service struct {
	repo Repository
	now  func() time.Time
}

type Option func(*Service)

// WithClock replaces the clock used to stamp ingestion times.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(repo Repository, opts ...Option) *Service {
	s := &Service{repo: repo, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Result reports how many records were stored and why the rest were rejected.
// Rejected records never block the valid ones of the same batch.
type Result struct {
	Ingested int
	Errors   []string
}

func (s *Service) IngestTransactions(ctx context.Context, txs []record.Transaction) (*Result, error) {
	return ingest(ctx, s, batch[record.Transaction]{
		kind:     record.KindTransaction,
		items:    txs,
		key:      func(t record.Transaction) string { return t.ID },
		validate: record.Transaction.Validate,
		stamp:    func(t *record.Transaction, at time.Time) { t.IngestedAt = at },
		insert:   IngestTx.InsertTransactions,
	})
}

func (s *Service) IngestSettlements(ctx context.Context, settlements []record.Settlement) (*Result, error) {
	return ingest(ctx, s, batch[record.Settlement]{
		kind:     record.KindSettlement,
		items:    settlements,
		key:      func(st record.Settlement) string { return st.Reference },
		validate: record.Settlement.Validate,
		stamp:    func(st *record.Settlement, at time.Time) { st.IngestedAt = at },
		insert:   IngestTx.InsertSettlements,
	})
}

func (s *Service) IngestAdjustments(ctx context.Context, adjustments []record.Adjustment) (*Result, error) {
	return ingest(ctx, s, batch[record.Adjustment]{
		kind:     record.KindAdjustment,
		items:    adjustments,
		key:      func(a record.Adjustment) string { return a.ID },
		validate: record.Adjustment.Validate,
		stamp:    func(a *record.Adjustment, at time.Time) { a.IngestedAt = at },
		insert:   IngestTx.InsertAdjustments,
	})
}

// IngestBatch stores a parsed upload. Rows the importer already rejected are
// reported ahead of the ingest errors.
func (s *Service) IngestBatch(ctx context.Context, b *record.Batch) (*Result, error) {
	var (
		res *Result
		err error
	)

	switch b.Kind {
	case record.KindTransaction:
		res, err = s.IngestTransactions(ctx, b.Transactions)
	case record.KindSettlement:
		res, err = s.IngestSettlements(ctx, b.Settlements)
	case record.KindAdjustment:
		res, err = s.IngestAdjustments(ctx, b.Adjustments)
	default:
		return nil, fmt.Errorf("unknown record kind %q", b.Kind)
	}

	if err != nil {
		return nil, err
	}

	res.Errors = append(slices.Clone(b.Errors), res.Errors...)

	return res, nil
}

type batch[T any] struct {
	kind     record.Kind
	items    []T
	key      func(T) string
	validate func(T) error
	stamp    func(*T, time.Time)
	insert   func(IngestTx, context.Context, []T) error
}

func ingest[T any](ctx context.Context, s *Service, b batch[T]) (*Result, error) {
	res := &Result{}
	seen := make(map[string]struct{}, len(b.items))
	accepted := make([]T, 0, len(b.items))

	for i, item := range b.items {
		if err := b.validate(item); err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("record %d: %v", i+1, err))
			continue
		}

		k := b.key(item)
		if _, dup := seen[k]; dup {
			res.Errors = append(res.Errors, fmt.Sprintf("record %d: duplicate %s in batch", i+1, k))
			continue
		}

		seen[k] = struct{}{}
		accepted = append(accepted, item)
	}

	if len(accepted) == 0 {
		return res, nil
	}

	itx, err := s.repo.BeginIngest(ctx, b.kind)
	if err != nil {
		return nil, fmt.Errorf("begin ingest: %w", err)
	}
	defer itx.Rollback()

	keys := make([]string, len(accepted))
	for i, item := range accepted {
		keys[i] = b.key(item)
	}

	existing, err := itx.ExistingKeys(ctx, b.kind, keys)
	if err != nil {
		return nil, fmt.Errorf("find duplicates: %w", err)
	}

	stored := make(map[string]struct{}, len(existing))
	for _, k := range existing {
		stored[k] = struct{}{}
	}

	at := s.now().UTC()
	fresh := accepted[:0]

	for _, item := range accepted {
		k := b.key(item)
		if _, dup := stored[k]; dup {
			res.Errors = append(res.Errors, fmt.Sprintf("%s already ingested", k))
			continue
		}

		b.stamp(&item, at)
		fresh = append(fresh, item)
	}

	if len(fresh) == 0 {
		return res, nil
	}

	if err := b.insert(itx, ctx, fresh); err != nil {
		return nil, fmt.Errorf("insert %s: %w", b.kind, err)
	}

	if err := itx.Commit(); err != nil {
		return nil, fmt.Errorf("commit ingest: %w", err)
	}

	res.Ingested = len(fresh)

	return res, nil
}
