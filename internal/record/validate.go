package record

import (
	"errors"
	"fmt"
)

// ErrInconsistentRecord marks a record that violates the data model.
var ErrInconsistentRecord = errors.New("inconsistent record")

func inconsistent(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInconsistentRecord, fmt.Sprintf(format, args...))
}

func (t Transaction) Validate() error {
	if t.ID == "" {
		return inconsistent("transaction_id is required")
	}

	if t.Amount.IsNegative() {
		return inconsistent("transaction %s: amount must not be negative", t.ID)
	}

	if !validCurrency(t.Currency) {
		return inconsistent("transaction %s: invalid currency %q", t.ID, t.Currency)
	}

	if t.Timestamp.IsZero() {
		return inconsistent("transaction %s: timestamp is required", t.ID)
	}

	switch t.Status {
	case StatusAuthorized, StatusCaptured, StatusFailed:
	default:
		return inconsistent("transaction %s: unknown status %q", t.ID, t.Status)
	}

	if t.Country != "" && (len(t.Country) < 2 || len(t.Country) > 3) {
		return inconsistent("transaction %s: invalid country %q", t.ID, t.Country)
	}

	return nil
}

func (s Settlement) Validate() error {
	if s.Reference == "" {
		return inconsistent("settlement_reference is required")
	}

	if s.Amount.IsNegative() {
		return inconsistent("settlement %s: amount must not be negative", s.Reference)
	}

	if s.GrossAmount.Valid && s.GrossAmount.Decimal.LessThan(s.Amount) {
		return inconsistent("settlement %s: gross amount below net amount", s.Reference)
	}

	if s.FeesDeducted.IsNegative() {
		return inconsistent("settlement %s: fees must not be negative", s.Reference)
	}

	if !validCurrency(s.Currency) {
		return inconsistent("settlement %s: invalid currency %q", s.Reference, s.Currency)
	}

	if s.SettledAt.IsZero() {
		return inconsistent("settlement %s: settlement date is required", s.Reference)
	}

	return nil
}

func (a Adjustment) Validate() error {
	if a.ID == "" {
		return inconsistent("adjustment_id is required")
	}

	if a.TransactionReference == "" {
		return inconsistent("adjustment %s: transaction_reference is required", a.ID)
	}

	if a.Amount.IsNegative() {
		return inconsistent("adjustment %s: amount must not be negative", a.ID)
	}

	if !validCurrency(a.Currency) {
		return inconsistent("adjustment %s: invalid currency %q", a.ID, a.Currency)
	}

	switch a.Type {
	case AdjustmentRefund, AdjustmentChargeback:
	default:
		return inconsistent("adjustment %s: unknown type %q", a.ID, a.Type)
	}

	if a.Date.IsZero() {
		return inconsistent("adjustment %s: date is required", a.ID)
	}

	return nil
}

// validCurrency accepts ISO 4217 style codes: three upper-case letters.
func validCurrency(c string) bool {
	if len(c) != 3 {
		return false
	}

	for _, r := range c {
		if r < 'A' || r > 'Z' {
			return false
		}
	}

	return true
}
