package cli

import (
	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// DefaultCurrency is used when no currency is configured.
const DefaultCurrency = money.USD

// FormatAmount renders an amount in the currency's display format, rounding
// to the currency's minor unit. Unknown currencies fall back to a plain
// two-decimal rendering.
func FormatAmount(amount decimal.Decimal, currency string) string {
	cur := money.GetCurrency(currency)
	if cur == nil {
		return amount.StringFixed(2)
	}

	minor := amount.Shift(int32(cur.Fraction)).Round(0).IntPart()
	return money.New(minor, cur.Code).Display()
}
