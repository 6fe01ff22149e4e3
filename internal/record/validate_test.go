package record_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/MrJamesThe3rd/reconciler/internal/record"
)

func validTransaction() record.Transaction {
	return record.Transaction{
		ID:              "tx_0001",
		MerchantOrderID: "ord_0001",
		Amount:          decimal.RequireFromString("1000.00"),
		Currency:        "MXN",
		Timestamp:       time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		Status:          record.StatusCaptured,
		Country:         "MX",
	}
}

func TestTransaction_Validate(t *testing.T) {
	type testCase struct {
		name    string
		mutate  func(tx *record.Transaction)
		wantErr bool
	}

	tests := []testCase{
		{name: "Valid", mutate: func(*record.Transaction) {}},
		{name: "MissingID", mutate: func(tx *record.Transaction) { tx.ID = "" }, wantErr: true},
		{name: "NegativeAmount", mutate: func(tx *record.Transaction) { tx.Amount = decimal.NewFromInt(-1) }, wantErr: true},
		{name: "LowerCaseCurrency", mutate: func(tx *record.Transaction) { tx.Currency = "mxn" }, wantErr: true},
		{name: "UnknownStatus", mutate: func(tx *record.Transaction) { tx.Status = "settled" }, wantErr: true},
		{name: "ZeroTimestamp", mutate: func(tx *record.Transaction) { tx.Timestamp = time.Time{} }, wantErr: true},
		{name: "BadCountry", mutate: func(tx *record.Transaction) { tx.Country = "MEXICO" }, wantErr: true},
		{name: "ZeroAmount", mutate: func(tx *record.Transaction) { tx.Amount = decimal.Zero }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := validTransaction()
			tt.mutate(&tx)

			err := tx.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, record.ErrInconsistentRecord)
				return
			}

			assert.NoError(t, err)
		})
	}
}

func TestSettlement_Validate(t *testing.T) {
	base := record.Settlement{
		Reference: "stl_0001",
		Amount:    decimal.RequireFromString("980.00"),
		Currency:  "MXN",
		SettledAt: time.Date(2024, 3, 1, 22, 0, 0, 0, time.UTC),
	}

	assert.NoError(t, base.Validate())

	withGross := base
	withGross.GrossAmount = decimal.NewNullDecimal(decimal.RequireFromString("1000.00"))
	assert.NoError(t, withGross.Validate())

	grossBelowNet := base
	grossBelowNet.GrossAmount = decimal.NewNullDecimal(decimal.RequireFromString("900.00"))
	assert.ErrorIs(t, grossBelowNet.Validate(), record.ErrInconsistentRecord)

	noDate := base
	noDate.SettledAt = time.Time{}
	assert.ErrorIs(t, noDate.Validate(), record.ErrInconsistentRecord)
}

func TestAdjustment_Validate(t *testing.T) {
	base := record.Adjustment{
		ID:                   "adj_0001",
		TransactionReference: "tx_0001",
		Amount:               decimal.RequireFromString("50.00"),
		Currency:             "BRL",
		Type:                 record.AdjustmentRefund,
		Date:                 time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC),
	}

	assert.NoError(t, base.Validate())

	unknownType := base
	unknownType.Type = "reversal"
	assert.ErrorIs(t, unknownType.Validate(), record.ErrInconsistentRecord)

	noReference := base
	noReference.TransactionReference = ""
	assert.ErrorIs(t, noReference.Validate(), record.ErrInconsistentRecord)
}
