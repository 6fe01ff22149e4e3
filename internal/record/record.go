package record

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// TransactionStatus represents the lifecycle state of a payment transaction.
type TransactionStatus string

const (
	StatusAuthorized TransactionStatus = "authorized"
	StatusCaptured   TransactionStatus = "captured"
	StatusFailed     TransactionStatus = "failed"
)

// AdjustmentType distinguishes refunds from chargebacks.
type AdjustmentType string

const (
	AdjustmentRefund     AdjustmentType = "refund"
	AdjustmentChargeback AdjustmentType = "chargeback"
)

// Transaction is a payment captured from a merchant.
type Transaction struct {
	ID              string
	MerchantOrderID string
	Amount          decimal.Decimal
	Currency        string
	Timestamp       time.Time
	Status          TransactionStatus
	CustomerID      string
	Country         string
	IngestedAt      time.Time
}

// Settlement is a bank-side record of funds deposited to the merchant.
// Amount is net of fees. TransactionReference is empty when the bank did not
// carry one, and is not trusted to name a transaction exactly.
type Settlement struct {
	Reference            string
	Amount               decimal.Decimal
	GrossAmount          decimal.NullDecimal
	Currency             string
	SettledAt            time.Time
	TransactionReference string
	FeesDeducted         decimal.Decimal
	BankName             string
	IngestedAt           time.Time
}

// Adjustment is a refund or chargeback raised against an earlier transaction.
type Adjustment struct {
	ID                   string
	TransactionReference string
	Amount               decimal.Decimal
	Currency             string
	Type                 AdjustmentType
	Date                 time.Time
	ReasonCode           string
	IngestedAt           time.Time
}

// Captured reports whether the transaction can be settled.
func (t Transaction) Captured() bool {
	return t.Status == StatusCaptured
}

// Kind names one of the three record sources.
type Kind string

const (
	KindTransaction Kind = "transactions"
	KindSettlement  Kind = "settlements"
	KindAdjustment  Kind = "adjustments"
)

var Kinds = []Kind{KindTransaction, KindSettlement, KindAdjustment}

func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds {
		if string(k) == s {
			return k, nil
		}
	}

	return "", fmt.Errorf("unknown record kind %q", s)
}

// Batch holds the records decoded from one upload, all of the same kind.
// Errors lists the rows that could not be decoded.
type Batch struct {
	Kind         Kind
	Transactions []Transaction
	Settlements  []Settlement
	Adjustments  []Adjustment
	Errors       []string
}

func (b *Batch) Len() int {
	return len(b.Transactions) + len(b.Settlements) + len(b.Adjustments)
}
