package store

import (
	"context"
	"database/sql"
	"fmt"
	"hash/fnv"

	"github.com/MrJamesThe3rd/reconciler/internal/ingest"
	"github.com/MrJamesThe3rd/reconciler/internal/record"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// keyColumns maps each record kind to its table and identity column.
var keyColumns = map[record.Kind]struct{ table, column string }{
	record.KindTransaction: {"transactions", "id"},
	record.KindSettlement:  {"settlements", "reference"},
	record.KindAdjustment:  {"adjustments", "id"},
}

func ingestLockKey(kind record.Kind) int64 {
	h := fnv.New64a()
	h.Write([]byte("ingest"))
	h.Write([]byte{0})
	h.Write([]byte(kind))

	return int64(h.Sum64())
}

type ingestTx struct {
	tx *sql.Tx
}

// BeginIngest opens a transaction holding the advisory lock for kind, so
// concurrent batches of the same kind are checked for duplicates one at a time.
func (s *Store) BeginIngest(ctx context.Context, kind record.Kind) (ingest.IngestTx, error) {
	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning ingest tx: %w", err)
	}

	if _, err := dbTx.ExecContext(ctx, "SELECT pg_advisory_xact_lock($1)", ingestLockKey(kind)); err != nil {
		dbTx.Rollback()
		return nil, fmt.Errorf("acquiring ingest lock: %w", err)
	}

	return &ingestTx{tx: dbTx}, nil
}

func (itx *ingestTx) Commit() error   { return itx.tx.Commit() }
func (itx *ingestTx) Rollback() error { return itx.tx.Rollback() }

func (itx *ingestTx) ExistingKeys(ctx context.Context, kind record.Kind, keys []string) ([]string, error) {
	if len(keys) == 0 {
		return nil, nil
	}

	kc, ok := keyColumns[kind]
	if !ok {
		return nil, fmt.Errorf("unknown record kind %q", kind)
	}

	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = ANY($1)`, kc.column, kc.table, kc.column)

	rows, err := itx.tx.QueryContext(ctx, query, keys)
	if err != nil {
		return nil, fmt.Errorf("finding existing %s: %w", kind, err)
	}
	defer rows.Close()

	var existing []string

	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("scanning key: %w", err)
		}

		existing = append(existing, k)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating existing rows: %w", err)
	}

	return existing, nil
}

func (itx *ingestTx) InsertTransactions(ctx context.Context, txs []record.Transaction) error {
	query := `
		INSERT INTO transactions (id, merchant_order_id, amount, currency, occurred_at, status, customer_id, country, ingested_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	for _, t := range txs {
		_, err := itx.tx.ExecContext(ctx, query,
			t.ID, t.MerchantOrderID, t.Amount, t.Currency, t.Timestamp, t.Status,
			t.CustomerID, t.Country, t.IngestedAt,
		)
		if err != nil {
			return fmt.Errorf("inserting transaction %s: %w", t.ID, err)
		}
	}

	return nil
}

func (itx *ingestTx) InsertSettlements(ctx context.Context, settlements []record.Settlement) error {
	query := `
		INSERT INTO settlements (reference, amount, gross_amount, currency, settled_at, transaction_reference, fees_deducted, bank_name, ingested_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	for _, s := range settlements {
		ref := sql.NullString{String: s.TransactionReference, Valid: s.TransactionReference != ""}

		_, err := itx.tx.ExecContext(ctx, query,
			s.Reference, s.Amount, s.GrossAmount, s.Currency, s.SettledAt,
			ref, s.FeesDeducted, s.BankName, s.IngestedAt,
		)
		if err != nil {
			return fmt.Errorf("inserting settlement %s: %w", s.Reference, err)
		}
	}

	return nil
}

func (itx *ingestTx) InsertAdjustments(ctx context.Context, adjustments []record.Adjustment) error {
	query := `
		INSERT INTO adjustments (id, transaction_reference, amount, currency, type, adjusted_at, reason_code, ingested_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	for _, a := range adjustments {
		_, err := itx.tx.ExecContext(ctx, query,
			a.ID, a.TransactionReference, a.Amount, a.Currency, a.Type, a.Date, a.ReasonCode, a.IngestedAt,
		)
		if err != nil {
			return fmt.Errorf("inserting adjustment %s: %w", a.ID, err)
		}
	}

	return nil
}
