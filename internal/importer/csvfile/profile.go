package csvfile

import (
	"time"

	"github.com/MrJamesThe3rd/reconciler/internal/record"
)

// field identifies a record attribute independent of how an export labels it.
type field int

const (
	fieldID field = iota
	fieldMerchantOrderID
	fieldAmount
	fieldGrossAmount
	fieldCurrency
	fieldTime
	fieldStatus
	fieldCustomerID
	fieldCountry
	fieldTransactionRef
	fieldFees
	fieldBankName
	fieldType
	fieldReasonCode
)

// Profile describes the column layout of one CSV export format.
// Adding a new format is just adding a new Profile to the profiles slice.
type Profile struct {
	Name         string
	Kind         record.Kind
	Columns      map[field]string
	Optional     []field
	DecimalComma bool
	TimeLayouts  []string
	// Types maps localised adjustment type labels. Nil means the canonical values.
	Types map[string]record.AdjustmentType
}

// requiredCols returns the column names that must be present for this profile to match.
func (p Profile) requiredCols() []string {
	cols := make([]string, 0, len(p.Columns))

	for f, name := range p.Columns {
		if !p.optional(f) {
			cols = append(cols, name)
		}
	}

	return cols
}

func (p Profile) optional(f field) bool {
	for _, o := range p.Optional {
		if o == f {
			return true
		}
	}

	return false
}

var isoLayouts = []string{time.RFC3339Nano, "2006-01-02 15:04:05", time.DateOnly}

var dayFirstLayouts = []string{"02/01/2006 15:04:05", "02/01/2006 15:04", "02/01/2006", "02-01-2006"}

// profiles is the ordered list of export formats to try during auto-detection.
// More specific profiles should come first to avoid false matches.
var profiles = []Profile{
	{
		Name: "transactions",
		Kind: record.KindTransaction,
		Columns: map[field]string{
			fieldID:              "transaction_id",
			fieldMerchantOrderID: "merchant_order_id",
			fieldAmount:          "amount",
			fieldCurrency:        "currency",
			fieldTime:            "timestamp",
			fieldStatus:          "status",
			fieldCustomerID:      "customer_id",
			fieldCountry:         "country",
		},
		Optional:    []field{fieldMerchantOrderID, fieldCustomerID, fieldCountry},
		TimeLayouts: isoLayouts,
	},
	{
		Name: "settlements",
		Kind: record.KindSettlement,
		Columns: map[field]string{
			fieldID:             "settlement_reference",
			fieldAmount:         "amount",
			fieldGrossAmount:    "gross_amount",
			fieldCurrency:       "currency",
			fieldTime:           "settlement_date",
			fieldTransactionRef: "transaction_reference",
			fieldFees:           "fees_deducted",
			fieldBankName:       "bank_name",
		},
		Optional:    []field{fieldGrossAmount, fieldTransactionRef, fieldFees, fieldBankName},
		TimeLayouts: isoLayouts,
	},
	{
		Name: "liquidações",
		Kind: record.KindSettlement,
		Columns: map[field]string{
			fieldID:             "Referência",
			fieldAmount:         "Valor Líquido",
			fieldGrossAmount:    "Valor Bruto",
			fieldCurrency:       "Moeda",
			fieldTime:           "Data Liquidação",
			fieldTransactionRef: "Referência Transação",
			fieldFees:           "Tarifa",
			fieldBankName:       "Banco",
		},
		Optional:     []field{fieldGrossAmount, fieldTransactionRef, fieldFees, fieldBankName},
		DecimalComma: true,
		TimeLayouts:  dayFirstLayouts,
	},
	{
		Name: "liquidaciones",
		Kind: record.KindSettlement,
		Columns: map[field]string{
			fieldID:             "Referencia",
			fieldAmount:         "Monto Neto",
			fieldGrossAmount:    "Monto Bruto",
			fieldCurrency:       "Moneda",
			fieldTime:           "Fecha Liquidación",
			fieldTransactionRef: "Referencia Transacción",
			fieldFees:           "Comisión",
			fieldBankName:       "Banco",
		},
		Optional:    []field{fieldGrossAmount, fieldTransactionRef, fieldFees, fieldBankName},
		TimeLayouts: dayFirstLayouts,
	},
	{
		Name: "adjustments",
		Kind: record.KindAdjustment,
		Columns: map[field]string{
			fieldID:             "adjustment_id",
			fieldTransactionRef: "transaction_reference",
			fieldAmount:         "amount",
			fieldCurrency:       "currency",
			fieldType:           "type",
			fieldTime:           "date",
			fieldReasonCode:     "reason_code",
		},
		Optional:    []field{fieldReasonCode},
		TimeLayouts: isoLayouts,
	},
	{
		Name: "ajustes",
		Kind: record.KindAdjustment,
		Columns: map[field]string{
			fieldID:             "ID Ajuste",
			fieldTransactionRef: "Referencia Transacción",
			fieldAmount:         "Monto",
			fieldCurrency:       "Moneda",
			fieldType:           "Tipo",
			fieldTime:           "Fecha",
			fieldReasonCode:     "Código Motivo",
		},
		Optional:    []field{fieldReasonCode},
		TimeLayouts: dayFirstLayouts,
		Types: map[string]record.AdjustmentType{
			"reembolso":   record.AdjustmentRefund,
			"devolución":  record.AdjustmentRefund,
			"contracargo": record.AdjustmentChargeback,
		},
	},
}
