package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/MrJamesThe3rd/reconciler/internal/matching"
	"github.com/MrJamesThe3rd/reconciler/internal/reconciliation"
	"github.com/MrJamesThe3rd/reconciler/internal/record"
)

const (
	uniqueViolation    = "23505"
	singleActiveRunIdx = "idx_reconciliation_runs_single_active"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

const selectRunColumns = `
	id, status, started_at, completed_at, snapshot_cutoff, phases, counts, skipped_records, error
`

func scanRun(s scanner) (*reconciliation.Run, error) {
	var (
		run            reconciliation.Run
		status         string
		phases, counts []byte
	)

	if err := s.Scan(
		&run.ID, &status, &run.StartedAt, &run.CompletedAt, &run.SnapshotCutoff,
		&phases, &counts, &run.SkippedRecords, &run.Error,
	); err != nil {
		return nil, err
	}

	run.Status = reconciliation.Status(status)

	if err := json.Unmarshal(phases, &run.Phases); err != nil {
		return nil, fmt.Errorf("decoding phases: %w", err)
	}

	if err := json.Unmarshal(counts, &run.Counts); err != nil {
		return nil, fmt.Errorf("decoding counts: %w", err)
	}

	return &run, nil
}

func encodeRun(run *reconciliation.Run) (phases, counts []byte, err error) {
	ps := run.Phases
	if ps == nil {
		ps = []matching.PhaseStats{}
	}

	if phases, err = json.Marshal(ps); err != nil {
		return nil, nil, fmt.Errorf("encoding phases: %w", err)
	}

	cs := run.Counts
	if cs == nil {
		cs = map[matching.Category]int{}
	}

	if counts, err = json.Marshal(cs); err != nil {
		return nil, nil, fmt.Errorf("encoding counts: %w", err)
	}

	return phases, counts, nil
}

func (s *Store) CreateRun(ctx context.Context, run *reconciliation.Run) error {
	phases, counts, err := encodeRun(run)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO reconciliation_runs (id, status, started_at, completed_at, snapshot_cutoff, phases, counts, skipped_records, error)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err = s.db.ExecContext(ctx, query,
		run.ID, run.Status, run.StartedAt, run.CompletedAt, run.SnapshotCutoff,
		phases, counts, run.SkippedRecords, run.Error,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation && pgErr.ConstraintName == singleActiveRunIdx {
			return reconciliation.ErrRunAlreadyInProgress
		}

		return fmt.Errorf("creating run: %w", err)
	}

	return nil
}

func (s *Store) UpdateRun(ctx context.Context, run *reconciliation.Run) error {
	return updateRun(ctx, s.db, run)
}

func updateRun(ctx context.Context, db execer, run *reconciliation.Run) error {
	phases, counts, err := encodeRun(run)
	if err != nil {
		return err
	}

	query := `
		UPDATE reconciliation_runs
		SET status = $1, completed_at = $2, phases = $3, counts = $4, skipped_records = $5, error = $6
		WHERE id = $7
	`

	res, err := db.ExecContext(ctx, query,
		run.Status, run.CompletedAt, phases, counts, run.SkippedRecords, run.Error, run.ID,
	)
	if err != nil {
		return fmt.Errorf("updating run: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating run: %w", err)
	}

	if n == 0 {
		return reconciliation.ErrNotFound
	}

	return nil
}

func (s *Store) GetRun(ctx context.Context, id uuid.UUID) (*reconciliation.Run, error) {
	query := `SELECT ` + selectRunColumns + ` FROM reconciliation_runs WHERE id = $1`

	run, err := scanRun(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, reconciliation.ErrNotFound
		}

		return nil, fmt.Errorf("getting run: %w", err)
	}

	return run, nil
}

func (s *Store) LatestRun(ctx context.Context) (*reconciliation.Run, error) {
	query := `SELECT ` + selectRunColumns + ` FROM reconciliation_runs ORDER BY started_at DESC LIMIT 1`

	run, err := scanRun(s.db.QueryRowContext(ctx, query))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, reconciliation.ErrNotFound
		}

		return nil, fmt.Errorf("getting latest run: %w", err)
	}

	return run, nil
}

func (s *Store) FailStaleRuns(ctx context.Context, reason string) (int, error) {
	query := `
		UPDATE reconciliation_runs
		SET status = 'failed', error = $1, completed_at = NOW()
		WHERE status IN ('pending', 'running')
	`

	res, err := s.db.ExecContext(ctx, query, reason)
	if err != nil {
		return 0, fmt.Errorf("failing stale runs: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failing stale runs: %w", err)
	}

	return int(n), nil
}

// LoadSnapshot reads every record ingested up to cutoff that no committed
// match has consumed. Transactions settled within lookback are returned
// separately so adjustments can still attach to them.
func (s *Store) LoadSnapshot(ctx context.Context, cutoff time.Time, lookback time.Duration) (*matching.Snapshot, error) {
	dbTx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("beginning snapshot tx: %w", err)
	}
	defer dbTx.Rollback()

	snap := &matching.Snapshot{Cutoff: cutoff}

	unsettled := `SELECT ` + selectTransactionColumns + ` FROM transactions t
		WHERE t.ingested_at <= $1
		AND NOT EXISTS (SELECT 1 FROM matches m WHERE m.transaction_id = t.id AND m.settlement_reference IS NOT NULL)`

	if snap.Transactions, err = queryTransactions(ctx, dbTx, unsettled, cutoff); err != nil {
		return nil, err
	}

	settled := `SELECT ` + selectTransactionColumns + ` FROM transactions t
		WHERE t.ingested_at <= $1 AND t.occurred_at >= $2
		AND EXISTS (SELECT 1 FROM matches m WHERE m.transaction_id = t.id AND m.settlement_reference IS NOT NULL)`

	if snap.SettledTransactions, err = queryTransactions(ctx, dbTx, settled, cutoff, cutoff.Add(-lookback)); err != nil {
		return nil, err
	}

	if snap.Settlements, err = querySettlements(ctx, dbTx, cutoff); err != nil {
		return nil, err
	}

	if snap.Adjustments, err = queryAdjustments(ctx, dbTx, cutoff); err != nil {
		return nil, err
	}

	if err := dbTx.Commit(); err != nil {
		return nil, fmt.Errorf("closing snapshot tx: %w", err)
	}

	return snap, nil
}

const selectTransactionColumns = `
	t.id, t.merchant_order_id, t.amount, t.currency, t.occurred_at, t.status,
	t.customer_id, t.country, t.ingested_at
`

func queryTransactions(ctx context.Context, tx *sql.Tx, query string, args ...any) ([]record.Transaction, error) {
	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("loading transactions: %w", err)
	}
	defer rows.Close()

	var txs []record.Transaction

	for rows.Next() {
		var (
			t      record.Transaction
			status string
		)

		if err := rows.Scan(
			&t.ID, &t.MerchantOrderID, &t.Amount, &t.Currency, &t.Timestamp, &status,
			&t.CustomerID, &t.Country, &t.IngestedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning transaction: %w", err)
		}

		t.Status = record.TransactionStatus(status)
		txs = append(txs, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating transactions: %w", err)
	}

	return txs, nil
}

func querySettlements(ctx context.Context, tx *sql.Tx, cutoff time.Time) ([]record.Settlement, error) {
	query := `
		SELECT s.reference, s.amount, s.gross_amount, s.currency, s.settled_at,
			s.transaction_reference, s.fees_deducted, s.bank_name, s.ingested_at
		FROM settlements s
		WHERE s.ingested_at <= $1
		AND NOT EXISTS (SELECT 1 FROM matches m WHERE m.settlement_reference = s.reference)
	`

	rows, err := tx.QueryContext(ctx, query, cutoff)
	if err != nil {
		return nil, fmt.Errorf("loading settlements: %w", err)
	}
	defer rows.Close()

	var out []record.Settlement

	for rows.Next() {
		var (
			st  record.Settlement
			ref sql.NullString
		)

		if err := rows.Scan(
			&st.Reference, &st.Amount, &st.GrossAmount, &st.Currency, &st.SettledAt,
			&ref, &st.FeesDeducted, &st.BankName, &st.IngestedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning settlement: %w", err)
		}

		st.TransactionReference = ref.String
		out = append(out, st)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating settlements: %w", err)
	}

	return out, nil
}

func queryAdjustments(ctx context.Context, tx *sql.Tx, cutoff time.Time) ([]record.Adjustment, error) {
	query := `
		SELECT a.id, a.transaction_reference, a.amount, a.currency, a.type, a.adjusted_at,
			a.reason_code, a.ingested_at
		FROM adjustments a
		WHERE a.ingested_at <= $1
		AND NOT EXISTS (SELECT 1 FROM matches m WHERE m.adjustment_id = a.id)
	`

	rows, err := tx.QueryContext(ctx, query, cutoff)
	if err != nil {
		return nil, fmt.Errorf("loading adjustments: %w", err)
	}
	defer rows.Close()

	var out []record.Adjustment

	for rows.Next() {
		var (
			a   record.Adjustment
			typ string
		)

		if err := rows.Scan(
			&a.ID, &a.TransactionReference, &a.Amount, &a.Currency, &typ, &a.Date,
			&a.ReasonCode, &a.IngestedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning adjustment: %w", err)
		}

		a.Type = record.AdjustmentType(typ)
		out = append(out, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating adjustments: %w", err)
	}

	return out, nil
}

type commitTx struct {
	tx *sql.Tx
}

func (s *Store) BeginCommit(ctx context.Context) (reconciliation.CommitTx, error) {
	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning commit tx: %w", err)
	}

	return &commitTx{tx: dbTx}, nil
}

func (ct *commitTx) Commit() error   { return ct.tx.Commit() }
func (ct *commitTx) Rollback() error { return ct.tx.Rollback() }

func (ct *commitTx) UpdateRun(ctx context.Context, run *reconciliation.Run) error {
	return updateRun(ctx, ct.tx, run)
}

// SaveMatches inserts the matches of one phase. Ids are derived from the run
// and the matched pair, so replaying a phase after an ambiguous commit is a no-op.
func (ct *commitTx) SaveMatches(ctx context.Context, matches []matching.Match) error {
	query := `
		INSERT INTO matches (
			id, run_id, match_type, transaction_id, settlement_reference, adjustment_id,
			confidence, requires_review, amount_difference, relative_difference,
			time_difference_seconds, reasons, matched_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id) DO NOTHING
	`

	for _, m := range matches {
		reasons, err := json.Marshal(nonNil(m.Reasons))
		if err != nil {
			return fmt.Errorf("encoding reasons: %w", err)
		}

		_, err = ct.tx.ExecContext(ctx, query,
			m.ID, m.RunID, m.Type, m.TransactionID,
			nullString(m.SettlementReference), nullString(m.AdjustmentID),
			m.Confidence, m.RequiresReview, m.AmountDifference, m.RelativeDifference,
			int64(m.TimeDifference/time.Second), reasons, m.MatchedAt,
		)
		if err != nil {
			return fmt.Errorf("saving match %s: %w", m.ID, err)
		}
	}

	return nil
}

func (ct *commitTx) SaveDiscrepancies(ctx context.Context, discrepancies []matching.Discrepancy) error {
	query := `
		INSERT INTO discrepancies (
			id, run_id, category, priority, transaction_id, settlement_reference, adjustment_id,
			match_id, amount, currency, age_seconds, occurred_at, detail, detected_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (id) DO NOTHING
	`

	for _, d := range discrepancies {
		_, err := ct.tx.ExecContext(ctx, query,
			d.ID, d.RunID, d.Category, d.Priority, d.TransactionID, d.SettlementReference, d.AdjustmentID,
			d.MatchID, d.Amount, d.Currency, int64(d.Age/time.Second), d.OccurredAt, d.Detail, d.DetectedAt,
		)
		if err != nil {
			return fmt.Errorf("saving discrepancy %s: %w", d.ID, err)
		}
	}

	return nil
}

const selectDiscrepancyColumns = `
	d.id, d.run_id, d.category, d.priority, d.transaction_id, d.settlement_reference, d.adjustment_id,
	d.match_id, d.amount, d.currency, d.age_seconds, d.occurred_at, d.detail, d.detected_at
`

func scanDiscrepancy(s scanner) (*matching.Discrepancy, error) {
	var (
		d                  matching.Discrepancy
		category, priority string
		ageSeconds         int64
	)

	if err := s.Scan(
		&d.ID, &d.RunID, &category, &priority, &d.TransactionID, &d.SettlementReference, &d.AdjustmentID,
		&d.MatchID, &d.Amount, &d.Currency, &ageSeconds, &d.OccurredAt, &d.Detail, &d.DetectedAt,
	); err != nil {
		return nil, err
	}

	d.Category = matching.Category(category)
	d.Priority = matching.Priority(priority)
	d.Age = time.Duration(ageSeconds) * time.Second

	return &d, nil
}

// ListDiscrepancies defaults to the open set: unmatched records reported by
// the latest completed run plus match findings from every run.
func (s *Store) ListDiscrepancies(ctx context.Context, filter reconciliation.DiscrepancyFilter) ([]*matching.Discrepancy, error) {
	query := `SELECT ` + selectDiscrepancyColumns + ` FROM discrepancies d WHERE 1 = 1`

	var args []any

	argIdx := 1

	if filter.RunID != nil {
		query += fmt.Sprintf(" AND d.run_id = $%d", argIdx)

		args = append(args, *filter.RunID)
		argIdx++
	} else {
		query += ` AND (d.category NOT IN ('unmatched_transaction', 'unmatched_settlement', 'unmatched_adjustment')
			OR d.run_id = (SELECT id FROM reconciliation_runs WHERE status = 'completed' ORDER BY started_at DESC LIMIT 1))`
	}

	if filter.Category != nil {
		query += fmt.Sprintf(" AND d.category = $%d", argIdx)

		args = append(args, *filter.Category)
		argIdx++
	}

	if filter.Priority != nil {
		query += fmt.Sprintf(" AND d.priority = $%d", argIdx)

		args = append(args, *filter.Priority)
		argIdx++
	}

	if filter.Currency != nil {
		query += fmt.Sprintf(" AND d.currency = $%d", argIdx)

		args = append(args, *filter.Currency)
		argIdx++
	}

	if filter.MinAmount != nil {
		query += fmt.Sprintf(" AND d.amount >= $%d", argIdx)

		args = append(args, *filter.MinAmount)
		argIdx++
	}

	if filter.From != nil {
		query += fmt.Sprintf(" AND d.occurred_at >= $%d", argIdx)

		args = append(args, *filter.From)
		argIdx++
	}

	if filter.To != nil {
		query += fmt.Sprintf(" AND d.occurred_at <= $%d", argIdx)

		args = append(args, *filter.To)
		argIdx++
	}

	query += ` ORDER BY CASE d.priority WHEN 'high' THEN 0 WHEN 'medium' THEN 1 ELSE 2 END, d.occurred_at ASC, d.id ASC`
	query, args = paginate(query, args, argIdx, filter.Limit, filter.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing discrepancies: %w", err)
	}
	defer rows.Close()

	var ds []*matching.Discrepancy

	for rows.Next() {
		d, err := scanDiscrepancy(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning discrepancy: %w", err)
		}

		ds = append(ds, d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating discrepancies: %w", err)
	}

	return ds, nil
}

func (s *Store) GetDiscrepancy(ctx context.Context, id uuid.UUID) (*matching.Discrepancy, error) {
	query := `SELECT ` + selectDiscrepancyColumns + ` FROM discrepancies d WHERE d.id = $1`

	d, err := scanDiscrepancy(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, reconciliation.ErrNotFound
		}

		return nil, fmt.Errorf("getting discrepancy: %w", err)
	}

	return d, nil
}

// SummaryMetrics computes settlement latency over committed settlement
// matches, the chargeback count, and how many records are still unmatched
// after orphanedBefore.
func (s *Store) SummaryMetrics(ctx context.Context, orphanedBefore time.Time) (*reconciliation.Metrics, error) {
	query := `
		SELECT
			(SELECT AVG(m.time_difference_seconds) / 3600.0 FROM matches m WHERE m.settlement_reference IS NOT NULL),
			(SELECT COUNT(*) FROM transactions),
			(SELECT COUNT(*) FROM adjustments WHERE type = 'chargeback'),
			(SELECT COUNT(*) FROM transactions t
				WHERE t.status = 'captured' AND t.occurred_at < $1
				AND NOT EXISTS (SELECT 1 FROM matches m WHERE m.transaction_id = t.id AND m.settlement_reference IS NOT NULL))
			+ (SELECT COUNT(*) FROM settlements st
				WHERE st.settled_at < $1
				AND NOT EXISTS (SELECT 1 FROM matches m WHERE m.settlement_reference = st.reference))
			+ (SELECT COUNT(*) FROM adjustments a
				WHERE a.adjusted_at < $1
				AND NOT EXISTS (SELECT 1 FROM matches m WHERE m.adjustment_id = a.id))
	`

	var m reconciliation.Metrics

	if err := s.db.QueryRowContext(ctx, query, orphanedBefore).Scan(
		&m.AvgSettlementHours, &m.Transactions, &m.Chargebacks, &m.Orphaned,
	); err != nil {
		return nil, fmt.Errorf("computing summary metrics: %w", err)
	}

	if m.AvgSettlementHours.Valid {
		m.AvgSettlementHours.Decimal = m.AvgSettlementHours.Decimal.Round(2)
	}

	return &m, nil
}

const selectMatchColumns = `
	m.id, m.run_id, m.match_type, m.transaction_id, m.settlement_reference, m.adjustment_id,
	m.confidence, m.requires_review, m.amount_difference, m.relative_difference,
	m.time_difference_seconds, m.reasons, m.matched_at
`

func scanMatch(s scanner) (*matching.Match, error) {
	var (
		m             matching.Match
		typ           string
		settlementRef sql.NullString
		adjustmentID  sql.NullString
		seconds       int64
		reasons       []byte
	)

	if err := s.Scan(
		&m.ID, &m.RunID, &typ, &m.TransactionID, &settlementRef, &adjustmentID,
		&m.Confidence, &m.RequiresReview, &m.AmountDifference, &m.RelativeDifference,
		&seconds, &reasons, &m.MatchedAt,
	); err != nil {
		return nil, err
	}

	m.Type = matching.MatchType(typ)
	m.SettlementReference = settlementRef.String
	m.AdjustmentID = adjustmentID.String
	m.TimeDifference = time.Duration(seconds) * time.Second

	if err := json.Unmarshal(reasons, &m.Reasons); err != nil {
		return nil, fmt.Errorf("decoding reasons: %w", err)
	}

	return &m, nil
}

func (s *Store) ListMatches(ctx context.Context, filter reconciliation.MatchFilter) ([]*matching.Match, error) {
	query := `SELECT ` + selectMatchColumns + ` FROM matches m WHERE 1 = 1`

	var args []any

	argIdx := 1

	if filter.ConfidenceMin != nil {
		query += fmt.Sprintf(" AND m.confidence >= $%d", argIdx)

		args = append(args, *filter.ConfidenceMin)
		argIdx++
	}

	if filter.Type != nil {
		query += fmt.Sprintf(" AND m.match_type = $%d", argIdx)

		args = append(args, *filter.Type)
		argIdx++
	}

	if filter.RequiresReview != nil {
		query += fmt.Sprintf(" AND m.requires_review = $%d", argIdx)

		args = append(args, *filter.RequiresReview)
		argIdx++
	}

	if filter.RunID != nil {
		query += fmt.Sprintf(" AND m.run_id = $%d", argIdx)

		args = append(args, *filter.RunID)
		argIdx++
	}

	query += " ORDER BY m.matched_at ASC, m.id ASC"
	query, args = paginate(query, args, argIdx, filter.Limit, filter.Offset)

	return s.queryMatches(ctx, query, args...)
}

func (s *Store) MatchesForTransaction(ctx context.Context, transactionID string) ([]*matching.Match, error) {
	query := `SELECT ` + selectMatchColumns + ` FROM matches m WHERE m.transaction_id = $1 ORDER BY m.matched_at ASC`

	return s.queryMatches(ctx, query, transactionID)
}

func (s *Store) queryMatches(ctx context.Context, query string, args ...any) ([]*matching.Match, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing matches: %w", err)
	}
	defer rows.Close()

	var ms []*matching.Match

	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning match: %w", err)
		}

		ms = append(ms, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating matches: %w", err)
	}

	return ms, nil
}

func paginate(query string, args []any, argIdx, limit, offset int) (string, []any) {
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)

		args = append(args, limit)
		argIdx++
	}

	if offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIdx)

		args = append(args, offset)
	}

	return query, args
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}

	return s
}
