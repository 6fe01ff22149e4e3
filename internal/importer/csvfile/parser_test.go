package csvfile_test

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"

	"github.com/MrJamesThe3rd/reconciler/internal/importer/csvfile"
	"github.com/MrJamesThe3rd/reconciler/internal/record"
)

func date(y, m, d int) time.Time {
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestParser_Transactions(t *testing.T) {
	csv := `transaction_id,merchant_order_id,amount,currency,timestamp,status,customer_id,country
txn_8f3a2b1c,ORD-1001,1500.00,mxn,2024-03-01T14:30:00Z,Captured,cus_1,mx
txn_9a1b,ORD-1002,"1,250.50",COP,2024-03-01 09:15:00,authorized,cus_2,CO
`

	p := csvfile.NewParser()
	b, err := p.Parse(record.KindTransaction, strings.NewReader(csv))
	require.NoError(t, err)
	require.Empty(t, b.Errors)
	require.Len(t, b.Transactions, 2)

	tx := b.Transactions[0]
	assert.Equal(t, "txn_8f3a2b1c", tx.ID)
	assert.Equal(t, "ORD-1001", tx.MerchantOrderID)
	assert.True(t, dec("1500").Equal(tx.Amount))
	assert.Equal(t, "MXN", tx.Currency)
	assert.Equal(t, time.Date(2024, 3, 1, 14, 30, 0, 0, time.UTC), tx.Timestamp)
	assert.Equal(t, record.StatusCaptured, tx.Status)
	assert.Equal(t, "MX", tx.Country)

	assert.True(t, dec("1250.50").Equal(b.Transactions[1].Amount))
	assert.Equal(t, record.StatusAuthorized, b.Transactions[1].Status)
}

func TestParser_Settlements(t *testing.T) {
	csv := `settlement_reference,amount,gross_amount,currency,settlement_date,transaction_reference,fees_deducted,bank_name
STL-001,980.00,1000.00,MXN,2024-03-02,txn_8f3a2b1c,20.00,BBVA
STL-002,450.00,,MXN,2024-03-02,,,Banorte
`

	p := csvfile.NewParser()
	b, err := p.Parse(record.KindSettlement, strings.NewReader(csv))
	require.NoError(t, err)
	require.Len(t, b.Settlements, 2)

	s := b.Settlements[0]
	assert.Equal(t, "STL-001", s.Reference)
	assert.True(t, s.GrossAmount.Valid)
	assert.True(t, dec("1000").Equal(s.GrossAmount.Decimal))
	assert.True(t, dec("20").Equal(s.FeesDeducted))
	assert.Equal(t, date(2024, 3, 2), s.SettledAt)
	assert.Equal(t, "txn_8f3a2b1c", s.TransactionReference)

	assert.False(t, b.Settlements[1].GrossAmount.Valid)
	assert.True(t, b.Settlements[1].FeesDeducted.IsZero())
	assert.Empty(t, b.Settlements[1].TransactionReference)
}

func TestParser_BrazilianSettlements(t *testing.T) {
	csv := `Extrato de liquidações;Banco do Brasil
Período;01/03/2024 a 31/03/2024

Referência;Data Liquidação;Valor Bruto;Tarifa;Valor Líquido;Moeda;Referência Transação
LIQ-77;05/03/2024;1.234,56;34,56;1.200,00;BRL;txn_77
Total;;;;1.200,00;;
`

	p := csvfile.NewParser()
	b, err := p.Parse(record.KindSettlement, strings.NewReader(csv))
	require.NoError(t, err)
	require.Len(t, b.Settlements, 1)

	assert.Equal(t, "LIQ-77", b.Settlements[0].Reference)
	assert.True(t, dec("1200").Equal(b.Settlements[0].Amount))
	assert.True(t, dec("1234.56").Equal(b.Settlements[0].GrossAmount.Decimal))
	assert.Equal(t, date(2024, 3, 5), b.Settlements[0].SettledAt)

	// The totals footer has an identifier cell but no date.
	require.Len(t, b.Errors, 1)
	assert.Contains(t, b.Errors[0], "missing Data Liquidação")
}

func TestParser_Latin1SpanishSettlements(t *testing.T) {
	utf8CSV := "Referencia;Fecha Liquidación;Monto Neto;Moneda;Comisión;Banco\nMX-1;02/03/2024;980.00;MXN;20.00;Banorte\n"

	latin1, err := charmap.Windows1252.NewEncoder().Bytes([]byte(utf8CSV))
	require.NoError(t, err)

	p := csvfile.NewParser()
	b, err := p.Parse(record.KindSettlement, bytes.NewReader(latin1))
	require.NoError(t, err)
	require.Len(t, b.Settlements, 1)

	assert.Equal(t, "Banorte", b.Settlements[0].BankName)
	assert.True(t, dec("20").Equal(b.Settlements[0].FeesDeducted))
}

func TestParser_Adjustments(t *testing.T) {
	type testCase struct {
		name     string
		csv      string
		wantType record.AdjustmentType
	}

	tests := []testCase{
		{
			name: "Canonical",
			csv: `adjustment_id,transaction_reference,amount,currency,type,date,reason_code
ADJ-1,txn_8f3a2b1c,-150.00,MXN,refund,2024-03-05,customer_request
`,
			wantType: record.AdjustmentRefund,
		},
		{
			name: "Spanish",
			csv: `ID Ajuste;Referencia Transacción;Monto;Moneda;Tipo;Fecha;Código Motivo
ADJ-1;txn_8f3a2b1c;150.00;MXN;Contracargo;05/03/2024;4837
`,
			wantType: record.AdjustmentChargeback,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := csvfile.NewParser()
			b, err := p.Parse(record.KindAdjustment, strings.NewReader(tt.csv))
			require.NoError(t, err)
			require.Len(t, b.Adjustments, 1)

			a := b.Adjustments[0]
			assert.Equal(t, "ADJ-1", a.ID)
			assert.Equal(t, "txn_8f3a2b1c", a.TransactionReference)
			assert.True(t, dec("150").Equal(a.Amount))
			assert.Equal(t, tt.wantType, a.Type)
			assert.Equal(t, date(2024, 3, 5), a.Date)
		})
	}
}

func TestParser_UnknownLocalisedType(t *testing.T) {
	csv := `ID Ajuste;Referencia Transacción;Monto;Moneda;Tipo;Fecha
ADJ-1;txn_1;10.00;MXN;bonificación;05/03/2024
`

	p := csvfile.NewParser()
	b, err := p.Parse(record.KindAdjustment, strings.NewReader(csv))
	require.NoError(t, err)
	assert.Empty(t, b.Adjustments)
	require.Len(t, b.Errors, 1)
	assert.Contains(t, b.Errors[0], "bonificación")
}

func TestParser_RowErrorsDoNotStopParsing(t *testing.T) {
	csv := `transaction_id,amount,currency,timestamp,status
T1,abc,USD,2024-03-01T00:00:00Z,captured
T2,10.00,USD,yesterday,captured
T3,10.00,USD,2024-03-01T00:00:00Z,captured
`

	p := csvfile.NewParser()
	b, err := p.Parse(record.KindTransaction, strings.NewReader(csv))
	require.NoError(t, err)
	require.Len(t, b.Transactions, 1)
	assert.Equal(t, "T3", b.Transactions[0].ID)
	assert.Equal(t, []string{
		`row 2: invalid amount "abc"`,
		`row 3: invalid timestamp "yesterday"`,
	}, b.Errors)
}

func TestParser_WrongKind(t *testing.T) {
	csv := `settlement_reference,amount,currency,settlement_date
STL-1,10.00,USD,2024-03-01
`

	p := csvfile.NewParser()
	_, err := p.Parse(record.KindTransaction, strings.NewReader(csv))
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "no matching transactions format")
}

func TestParser_EmptyFile(t *testing.T) {
	p := csvfile.NewParser()
	_, err := p.Parse(record.KindSettlement, strings.NewReader(""))
	assert.Error(t, err)
}

func TestParser_HeaderOnly(t *testing.T) {
	p := csvfile.NewParser()
	b, err := p.Parse(record.KindTransaction, strings.NewReader("transaction_id\tamount\tcurrency\ttimestamp\tstatus\n"))
	require.NoError(t, err)
	assert.Zero(t, b.Len())
}
