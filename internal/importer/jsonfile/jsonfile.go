package jsonfile

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/reconciler/internal/record"
)

// Decoder reads JSON uploads: either a bare array of records or an object
// holding the array under the kind's name, e.g. {"settlements": [...]}.
type Decoder struct{}

func NewDecoder() *Decoder {
	return &Decoder{}
}

// flexTime accepts RFC 3339 timestamps and plain dates.
type flexTime time.Time

func (t *flexTime) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}

	for _, layout := range []string{time.RFC3339Nano, time.DateOnly} {
		if parsed, err := time.Parse(layout, s); err == nil {
			*t = flexTime(parsed.UTC())
			return nil
		}
	}

	return fmt.Errorf("invalid time %q", s)
}

type transactionJSON struct {
	TransactionID   string          `json:"transaction_id"`
	MerchantOrderID string          `json:"merchant_order_id"`
	Amount          decimal.Decimal `json:"amount"`
	Currency        string          `json:"currency"`
	Timestamp       flexTime        `json:"timestamp"`
	Status          string          `json:"status"`
	CustomerID      string          `json:"customer_id"`
	Country         string          `json:"country"`
}

type settlementJSON struct {
	SettlementReference  string              `json:"settlement_reference"`
	Amount               decimal.Decimal     `json:"amount"`
	GrossAmount          decimal.NullDecimal `json:"gross_amount"`
	Currency             string              `json:"currency"`
	SettlementDate       flexTime            `json:"settlement_date"`
	TransactionReference *string             `json:"transaction_reference"`
	FeesDeducted         decimal.Decimal     `json:"fees_deducted"`
	BankName             string              `json:"bank_name"`
}

type adjustmentJSON struct {
	AdjustmentID         string          `json:"adjustment_id"`
	TransactionReference string          `json:"transaction_reference"`
	Amount               decimal.Decimal `json:"amount"`
	Currency             string          `json:"currency"`
	Type                 string          `json:"type"`
	Date                 flexTime        `json:"date"`
	ReasonCode           *string         `json:"reason_code"`
}

func (d *Decoder) Parse(kind record.Kind, r io.Reader) (*record.Batch, error) {
	body, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}

	items, err := unwrap(kind, body)
	if err != nil {
		return nil, err
	}

	b := &record.Batch{Kind: kind}

	for i, raw := range items {
		if err := decodeItem(b, raw); err != nil {
			b.Errors = append(b.Errors, fmt.Sprintf("record %d: %v", i+1, err))
		}
	}

	return b, nil
}

func unwrap(kind record.Kind, body []byte) ([]json.RawMessage, error) {
	body = bytes.TrimSpace(body)

	var items []json.RawMessage

	if bytes.HasPrefix(body, []byte("[")) {
		if err := json.Unmarshal(body, &items); err != nil {
			return nil, fmt.Errorf("invalid JSON: %w", err)
		}

		return items, nil
	}

	var wrapped map[string]json.RawMessage
	if err := json.Unmarshal(body, &wrapped); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}

	inner, ok := wrapped[string(kind)]
	if !ok {
		return nil, fmt.Errorf("invalid JSON: expected an array or a %q key", kind)
	}

	if err := json.Unmarshal(inner, &items); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}

	return items, nil
}

func decodeItem(b *record.Batch, raw json.RawMessage) error {
	switch b.Kind {
	case record.KindTransaction:
		var t transactionJSON
		if err := json.Unmarshal(raw, &t); err != nil {
			return err
		}

		b.Transactions = append(b.Transactions, record.Transaction{
			ID:              t.TransactionID,
			MerchantOrderID: t.MerchantOrderID,
			Amount:          t.Amount,
			Currency:        strings.ToUpper(t.Currency),
			Timestamp:       time.Time(t.Timestamp),
			Status:          record.TransactionStatus(t.Status),
			CustomerID:      t.CustomerID,
			Country:         strings.ToUpper(t.Country),
		})
	case record.KindSettlement:
		var s settlementJSON
		if err := json.Unmarshal(raw, &s); err != nil {
			return err
		}

		st := record.Settlement{
			Reference:    s.SettlementReference,
			Amount:       s.Amount,
			GrossAmount:  s.GrossAmount,
			Currency:     strings.ToUpper(s.Currency),
			SettledAt:    time.Time(s.SettlementDate),
			FeesDeducted: s.FeesDeducted,
			BankName:     s.BankName,
		}
		if s.TransactionReference != nil {
			st.TransactionReference = *s.TransactionReference
		}

		b.Settlements = append(b.Settlements, st)
	case record.KindAdjustment:
		var a adjustmentJSON
		if err := json.Unmarshal(raw, &a); err != nil {
			return err
		}

		adj := record.Adjustment{
			ID:                   a.AdjustmentID,
			TransactionReference: a.TransactionReference,
			Amount:               a.Amount,
			Currency:             strings.ToUpper(a.Currency),
			Type:                 record.AdjustmentType(a.Type),
			Date:                 time.Time(a.Date),
		}
		if a.ReasonCode != nil {
			adj.ReasonCode = *a.ReasonCode
		}

		b.Adjustments = append(b.Adjustments, adj)
	default:
		return fmt.Errorf("unknown record kind %q", b.Kind)
	}

	return nil
}
