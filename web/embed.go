package web

import _ "embed"

// RatesJSON is the default conversion table served at /rates.json.
// Rates are units of each currency per 1 USD.
//
//go:embed rates.json
var RatesJSON []byte
