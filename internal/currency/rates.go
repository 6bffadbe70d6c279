// Package currency converts amounts between currencies through a flat USD
// pivot table and fetches that table from a configurable source.
package currency

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// RequiredCurrencies must all be present in a rates source before it can be
// saved as the configured source.
var RequiredCurrencies = []string{"USD", "ILS", "GBP", "EURO"}

// RateTable maps a currency code to the number of units of that currency
// equal to 1 USD, e.g. {USD: 1, ILS: 3.4}.
type RateTable map[string]decimal.Decimal

// FallbackRates is used whenever the source cannot be read. With it every
// conversion except the identity is a no-op.
func FallbackRates() RateTable {
	return RateTable{"USD": decimal.NewFromInt(1)}
}

// Clone returns an independent copy so cached tables are never mutated.
func (t RateTable) Clone() RateTable {
	out := make(RateTable, len(t))
	for k, v := range t {
		out[k] = v
	}
	return out
}

// Missing returns the first code of codes without an entry in t.
func (t RateTable) Missing(codes ...string) (string, bool) {
	for _, c := range codes {
		if _, ok := t[c]; !ok {
			return c, true
		}
	}
	return "", false
}

// ParseRates decodes a rates document. Both a bare {"CODE": n} object and an
// envelope {"rates": {"CODE": n}} are accepted. Non-numeric entries are
// dropped so the converter treats them as unknown currencies.
func ParseRates(body []byte) (RateTable, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var doc map[string]any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode rates: %w", err)
	}
	if doc == nil {
		return nil, fmt.Errorf("decode rates: document is null")
	}

	if inner, ok := doc["rates"].(map[string]any); ok {
		doc = inner
	}

	table := make(RateTable, len(doc))
	for code, raw := range doc {
		n, ok := raw.(json.Number)
		if !ok {
			continue
		}
		d, err := decimal.NewFromString(n.String())
		if err != nil {
			continue
		}
		table[code] = d
	}
	return table, nil
}
