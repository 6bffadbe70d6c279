package currency

import "github.com/shopspring/decimal"

// Convert changes amount from one currency to another through USD:
// amount / rates[from] * rates[to].
//
// Identical codes return amount untouched. When either rate is missing (or
// zero) amount is also returned untouched, so one unknown code never breaks
// a report. No rounding happens here.
func Convert(amount decimal.Decimal, from, to string, rates RateTable) decimal.Decimal {
	if from == to {
		return amount
	}
	rFrom, ok := rates[from]
	if !ok || rFrom.IsZero() {
		return amount
	}
	rTo, ok := rates[to]
	if !ok || rTo.IsZero() {
		return amount
	}
	return amount.Div(rFrom).Mul(rTo)
}
