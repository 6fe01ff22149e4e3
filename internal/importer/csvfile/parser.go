package csvfile

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	enc "github.com/MrJamesThe3rd/reconciler/internal/encoding"
	"github.com/MrJamesThe3rd/reconciler/internal/record"
)

// delimiters are tried in order until one yields a known header.
var delimiters = []rune{',', ';', '\t'}

// Parser reads CSV exports of transactions, settlements and adjustments.
// It auto-detects the delimiter and which export format is being used by
// matching column headers against known profiles.
type Parser struct{}

func NewParser() *Parser {
	return &Parser{}
}

func (p *Parser) Parse(kind record.Kind, r io.Reader) (*record.Batch, error) {
	utf8r, err := enc.NewUTF8Reader(r)
	if err != nil {
		return nil, fmt.Errorf("detect encoding: %w", err)
	}

	content, err := io.ReadAll(utf8r)
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}

	for _, comma := range delimiters {
		rows, err := readRows(content, comma)
		if err != nil {
			continue
		}

		profile, cols, headerIdx := detectProfile(kind, rows)
		if profile == nil {
			continue
		}

		return parseRows(profile, cols, rows[headerIdx+1:], headerIdx), nil
	}

	return nil, fmt.Errorf("no matching %s format found: expected columns for %s", kind, profileNames(kind))
}

func readRows(content []byte, comma rune) ([][]string, error) {
	reader := csv.NewReader(bytes.NewReader(content))
	reader.Comma = comma
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}

	return rows, nil
}

func profileNames(kind record.Kind) string {
	var names []string

	for _, p := range profiles {
		if p.Kind == kind {
			names = append(names, p.Name)
		}
	}

	return strings.Join(names, ", ")
}

// colIndex maps column names to their index in the row.
type colIndex map[string]int

// detectProfile scans rows for a header that matches a known profile of kind.
// Returns the matched profile, column index map, and header row index.
func detectProfile(kind record.Kind, rows [][]string) (*Profile, colIndex, int) {
	for rowIdx, row := range rows {
		cols := make(colIndex)

		for i, cell := range row {
			name := strings.TrimSpace(cell)
			if name != "" {
				cols[name] = i
			}
		}

		for i := range profiles {
			if profiles[i].Kind == kind && matchesProfile(&profiles[i], cols) {
				return &profiles[i], cols, rowIdx
			}
		}
	}

	return nil, nil, 0
}

// matchesProfile checks if all required columns of a profile are present.
func matchesProfile(p *Profile, cols colIndex) bool {
	for _, name := range p.requiredCols() {
		if _, ok := cols[name]; !ok {
			return false
		}
	}

	return true
}

// row gives field-level access to one data row of a matched profile.
type row struct {
	p    *Profile
	cols colIndex
	data []string
}

func (r row) cell(f field) string {
	name, ok := r.p.Columns[f]
	if !ok {
		return ""
	}

	idx, ok := r.cols[name]
	if !ok {
		return ""
	}

	return cellValue(r.data, idx)
}

func (r row) amount(f field) (decimal.Decimal, error) {
	s := r.cell(f)
	if s == "" {
		return decimal.Zero, fmt.Errorf("missing %s", r.p.Columns[f])
	}

	d, err := parseAmount(s, r.p.DecimalComma)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid %s %q", r.p.Columns[f], s)
	}

	return d, nil
}

func (r row) optionalAmount(f field) (decimal.NullDecimal, error) {
	if r.cell(f) == "" {
		return decimal.NullDecimal{}, nil
	}

	d, err := r.amount(f)
	if err != nil {
		return decimal.NullDecimal{}, err
	}

	return decimal.NewNullDecimal(d), nil
}

func (r row) timestamp(f field) (time.Time, error) {
	s := r.cell(f)
	if s == "" {
		return time.Time{}, fmt.Errorf("missing %s", r.p.Columns[f])
	}

	for _, layout := range r.p.TimeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t.UTC(), nil
		}
	}

	return time.Time{}, fmt.Errorf("invalid %s %q", r.p.Columns[f], s)
}

// parseRows extracts records from data rows using the matched profile. Rows
// without an identifier are footers and skipped; rows that fail to decode are
// reported and skipped. headerRowNum is the 0-based index of the header.
func parseRows(p *Profile, cols colIndex, rows [][]string, headerRowNum int) *record.Batch {
	b := &record.Batch{Kind: p.Kind}

	for i, data := range rows {
		rowNum := headerRowNum + i + 2 // 1-based, skipping header

		r := row{p: p, cols: cols, data: data}
		if r.cell(fieldID) == "" {
			continue
		}

		var err error

		switch p.Kind {
		case record.KindTransaction:
			err = appendTransaction(b, r)
		case record.KindSettlement:
			err = appendSettlement(b, r)
		case record.KindAdjustment:
			err = appendAdjustment(b, r)
		}

		if err != nil {
			b.Errors = append(b.Errors, fmt.Sprintf("row %d: %v", rowNum, err))
		}
	}

	return b
}

func appendTransaction(b *record.Batch, r row) error {
	amount, err := r.amount(fieldAmount)
	if err != nil {
		return err
	}

	ts, err := r.timestamp(fieldTime)
	if err != nil {
		return err
	}

	b.Transactions = append(b.Transactions, record.Transaction{
		ID:              r.cell(fieldID),
		MerchantOrderID: r.cell(fieldMerchantOrderID),
		Amount:          amount,
		Currency:        strings.ToUpper(r.cell(fieldCurrency)),
		Timestamp:       ts,
		Status:          record.TransactionStatus(strings.ToLower(r.cell(fieldStatus))),
		CustomerID:      r.cell(fieldCustomerID),
		Country:         strings.ToUpper(r.cell(fieldCountry)),
	})

	return nil
}

func appendSettlement(b *record.Batch, r row) error {
	amount, err := r.amount(fieldAmount)
	if err != nil {
		return err
	}

	gross, err := r.optionalAmount(fieldGrossAmount)
	if err != nil {
		return err
	}

	fees, err := r.optionalAmount(fieldFees)
	if err != nil {
		return err
	}

	settledAt, err := r.timestamp(fieldTime)
	if err != nil {
		return err
	}

	b.Settlements = append(b.Settlements, record.Settlement{
		Reference:            r.cell(fieldID),
		Amount:               amount,
		GrossAmount:          gross,
		Currency:             strings.ToUpper(r.cell(fieldCurrency)),
		SettledAt:            settledAt,
		TransactionReference: r.cell(fieldTransactionRef),
		FeesDeducted:         fees.Decimal,
		BankName:             r.cell(fieldBankName),
	})

	return nil
}

func appendAdjustment(b *record.Batch, r row) error {
	amount, err := r.amount(fieldAmount)
	if err != nil {
		return err
	}

	date, err := r.timestamp(fieldTime)
	if err != nil {
		return err
	}

	label := strings.ToLower(r.cell(fieldType))

	typ := record.AdjustmentType(label)
	if r.p.Types != nil {
		mapped, ok := r.p.Types[label]
		if !ok {
			return fmt.Errorf("unknown %s %q", r.p.Columns[fieldType], label)
		}

		typ = mapped
	}

	// Exports commonly sign refunds negative.
	b.Adjustments = append(b.Adjustments, record.Adjustment{
		ID:                   r.cell(fieldID),
		TransactionReference: r.cell(fieldTransactionRef),
		Amount:               amount.Abs(),
		Currency:             strings.ToUpper(r.cell(fieldCurrency)),
		Type:                 typ,
		Date:                 date,
		ReasonCode:           r.cell(fieldReasonCode),
	})

	return nil
}

// cellValue safely gets a trimmed cell value from a row.
func cellValue(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}

	return strings.TrimSpace(row[idx])
}
