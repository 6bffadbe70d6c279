// Package core holds the cost ledger's domain types, input normalization and
// error taxonomy.
//
// This file contains the amount coercion rules and the two-decimal rounding
// used for every monetary output.
package core

import (
	"encoding/json"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// ParseSum coerces a raw sum into a decimal.
//
// Numbers, numeric strings (dot or comma decimal separator), json.Number and
// decimal values are accepted. The result must be finite and strictly
// positive, otherwise ErrInvalidSum is returned.
//
// Examples:
//
//	ParseSum(12.5)    -> 12.5, nil
//	ParseSum("12,50") -> 12.5, nil
//	ParseSum("abc")   -> 0, ErrInvalidSum
//	ParseSum(-5)      -> 0, ErrInvalidSum
func ParseSum(v any) (decimal.Decimal, error) {
	var d decimal.Decimal
	switch s := v.(type) {
	case nil:
		return decimal.Zero, ErrInvalidSum
	case decimal.Decimal:
		d = s
	case float64:
		if math.IsNaN(s) || math.IsInf(s, 0) {
			return decimal.Zero, ErrInvalidSum
		}
		d = decimal.NewFromFloat(s)
	case float32:
		return ParseSum(float64(s))
	case int:
		d = decimal.NewFromInt(int64(s))
	case int8:
		d = decimal.NewFromInt(int64(s))
	case int16:
		d = decimal.NewFromInt(int64(s))
	case int32:
		d = decimal.NewFromInt32(s)
	case int64:
		d = decimal.NewFromInt(s)
	case uint:
		d = decimal.NewFromUint64(uint64(s))
	case uint8:
		d = decimal.NewFromUint64(uint64(s))
	case uint16:
		d = decimal.NewFromUint64(uint64(s))
	case uint32:
		d = decimal.NewFromUint64(uint64(s))
	case uint64:
		d = decimal.NewFromUint64(s)
	case json.Number:
		return ParseSum(string(s))
	case string:
		str := strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
		if str == "" {
			return decimal.Zero, ErrInvalidSum
		}
		parsed, err := decimal.NewFromString(str)
		if err != nil {
			return decimal.Zero, ErrInvalidSum
		}
		d = parsed
	default:
		return decimal.Zero, ErrInvalidSum
	}
	if !d.IsPositive() {
		return decimal.Zero, ErrInvalidSum
	}
	return d, nil
}

// Round2 rounds a monetary amount to two decimal places (half away from zero).
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}
