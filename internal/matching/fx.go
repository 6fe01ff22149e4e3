package matching

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// RateTable maps a currency code to the USD value of one unit of it.
// Conversions between two non-USD currencies pivot through USD.
type RateTable map[string]decimal.Decimal

func (r RateTable) Validate() error {
	for cur, rate := range r {
		if !rate.IsPositive() {
			return fmt.Errorf("%w: fx rate for %s must be positive", ErrInvalidConfiguration, cur)
		}
	}

	return nil
}

// Convert expresses amount in currency from as an amount in currency to.
// The second result is false when either currency has no rate.
func (r RateTable) Convert(amount decimal.Decimal, from, to string) (decimal.Decimal, bool) {
	if from == to {
		return amount, true
	}

	rf, ok := r[from]
	if !ok {
		return decimal.Zero, false
	}

	rt, ok := r[to]
	if !ok {
		return decimal.Zero, false
	}

	return amount.Mul(rf).DivRound(rt, 8), true
}

func (r RateTable) ToUSD(amount decimal.Decimal, currency string) (decimal.Decimal, bool) {
	if currency == "USD" {
		return amount, true
	}

	rate, ok := r[currency]
	if !ok {
		return decimal.Zero, false
	}

	return amount.Mul(rate), true
}
