package view

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

const dbTimeout = 5 * time.Second

// FormatAmount renders an amount with two decimals followed by its currency.
func FormatAmount(amount decimal.Decimal, currency string) string {
	return amount.StringFixed(2) + " " + currency
}

// FormatDate formats a time.Time into YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format("2006-01-02")
}

func FormatTime(t time.Time) string {
	return t.UTC().Format("2006-01-02 15:04")
}

// FormatAge renders a duration in whole days and hours, e.g. "3d 4h".
func FormatAge(d time.Duration) string {
	if d <= 0 {
		return "-"
	}

	days := int(d / (24 * time.Hour))
	hours := int(d%(24*time.Hour)) / int(time.Hour)

	if days == 0 {
		return fmt.Sprintf("%dh", hours)
	}

	return fmt.Sprintf("%dd %dh", days, hours)
}

// DbCtx returns a context with a standard timeout for database operations.
func DbCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), dbTimeout)
}
