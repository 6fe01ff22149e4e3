package export

import (
	"archive/zip"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/MrJamesThe3rd/reconciler/internal/matching"
	"github.com/MrJamesThe3rd/reconciler/internal/reconciliation"
)

var header = []string{
	"id", "run_id", "category", "priority", "transaction_id", "settlement_reference", "adjustment_id",
	"match_id", "amount", "currency", "age_hours", "occurred_at", "detail", "detected_at",
}

// Service writes discrepancy reports for finance operations.
type Service struct {
	reconciliation *reconciliation.Service
}

func NewService(svc *reconciliation.Service) *Service {
	return &Service{reconciliation: svc}
}

// WriteCSV writes the discrepancies matching filter as CSV and returns how many rows were written.
func (s *Service) WriteCSV(ctx context.Context, filter reconciliation.DiscrepancyFilter, w io.Writer) (int, error) {
	ds, err := s.reconciliation.ListDiscrepancies(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("listing discrepancies: %w", err)
	}

	cw := csv.NewWriter(w)

	if err := cw.Write(header); err != nil {
		return 0, fmt.Errorf("writing header: %w", err)
	}

	for _, d := range ds {
		if err := cw.Write(toRow(d)); err != nil {
			return 0, fmt.Errorf("writing discrepancy %s: %w", d.ID, err)
		}
	}

	cw.Flush()

	if err := cw.Error(); err != nil {
		return 0, fmt.Errorf("flushing csv: %w", err)
	}

	return len(ds), nil
}

func toRow(d *matching.Discrepancy) []string {
	matchID := ""
	if d.MatchID != nil {
		matchID = d.MatchID.String()
	}

	return []string{
		d.ID.String(),
		d.RunID.String(),
		string(d.Category),
		string(d.Priority),
		d.TransactionID,
		d.SettlementReference,
		d.AdjustmentID,
		matchID,
		d.Amount.StringFixed(2),
		d.Currency,
		strconv.FormatFloat(d.Age.Hours(), 'f', 1, 64),
		d.OccurredAt.UTC().Format(time.RFC3339),
		d.Detail,
		d.DetectedAt.UTC().Format(time.RFC3339),
	}
}

// SummaryText renders a plain-text digest suitable for an email body.
func (s *Service) SummaryText(sum *reconciliation.Summary) string {
	var sb strings.Builder

	if sum.LatestRun != nil {
		fmt.Fprintf(&sb, "Run %s | %s | cutoff %s\n\n",
			sum.LatestRun.ID, sum.LatestRun.Status, sum.LatestRun.SnapshotCutoff.Format(time.RFC3339))
	}

	fmt.Fprintf(&sb, "Open discrepancies: %d\n", sum.Total)

	for _, p := range matching.Priorities {
		fmt.Fprintf(&sb, "* %s: %d\n", p, sum.ByPriority[p])
	}

	sb.WriteString("\n")

	for _, c := range matching.Categories {
		fmt.Fprintf(&sb, "* %s: %d\n", c, sum.ByCategory[c])
	}

	sb.WriteString("\nUnmatched value\n")

	for _, cur := range sortedKeys(sum.UnmatchedValue) {
		fmt.Fprintf(&sb, "* %s %s\n", sum.UnmatchedValue[cur].StringFixed(2), cur)
	}

	fmt.Fprintf(&sb, "* total %s USD\n", sum.UnmatchedValueUSD.StringFixed(2))

	sb.WriteString("\nHealth\n")

	if sum.AvgSettlementHours.Valid {
		fmt.Fprintf(&sb, "* avg settlement time: %s hours\n", sum.AvgSettlementHours.Decimal.StringFixed(2))
	}

	fmt.Fprintf(&sb, "* chargeback rate: %s%%\n", sum.ChargebackRate.Shift(2).StringFixed(2))
	fmt.Fprintf(&sb, "* orphaned over %d days: %d\n", int(sum.OrphanThreshold.Hours()/24), sum.OrphanedRecords)

	return sb.String()
}

// WriteArchive writes a zip holding the filtered discrepancies and the summary digest.
func (s *Service) WriteArchive(ctx context.Context, filter reconciliation.DiscrepancyFilter, w io.Writer) error {
	sum, err := s.reconciliation.DiscrepancySummary(ctx)
	if err != nil {
		return fmt.Errorf("summarising discrepancies: %w", err)
	}

	zw := zip.NewWriter(w)

	f, err := zw.Create("discrepancies.csv")
	if err != nil {
		return fmt.Errorf("creating csv entry: %w", err)
	}

	if _, err := s.WriteCSV(ctx, filter, f); err != nil {
		return err
	}

	f, err = zw.Create("summary.txt")
	if err != nil {
		return fmt.Errorf("creating summary entry: %w", err)
	}

	if _, err := io.WriteString(f, s.SummaryText(sum)); err != nil {
		return fmt.Errorf("writing summary: %w", err)
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("closing archive: %w", err)
	}

	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}

	slices.Sort(keys)

	return keys
}
