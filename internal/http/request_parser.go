// Package http provides HTTP server and handler implementations.
//
// This file implements utilities for parsing and validating HTTP request data:
// JSON bodies, period query parameters and input sanitization.

package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"costledger/internal/core"
)

// maxBodyBytes caps every request body.
const maxBodyBytes = 1 << 20

// MonthParams holds parsed year/month values from request parameters.
type MonthParams struct {
	Year  int
	Month int
}

// ParseMonthParams extracts year and month from query parameters, using
// now for missing values. Non-numeric values are an error; range checks
// are left to the report engine.
func ParseMonthParams(query url.Values, now time.Time) (MonthParams, error) {
	year, err := ParseYearParam(query, now)
	if err != nil {
		return MonthParams{}, err
	}
	params := MonthParams{Year: year, Month: int(now.Month())}

	if v := strings.TrimSpace(query.Get("month")); v != "" {
		m, err := strconv.Atoi(v)
		if err != nil {
			return MonthParams{}, fmt.Errorf("month must be a number, got %q", v)
		}
		params.Month = m
	}
	return params, nil
}

// ParseYearParam extracts year from query parameters, defaulting to now.
func ParseYearParam(query url.Values, now time.Time) (int, error) {
	v := strings.TrimSpace(query.Get("year"))
	if v == "" {
		return now.Year(), nil
	}
	y, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("year must be a number, got %q", v)
	}
	return y, nil
}

// ParseCurrencyParam returns the upper-cased currency query parameter, or
// "" when absent.
func ParseCurrencyParam(query url.Values) string {
	return strings.ToUpper(sanitizeInput(query.Get("currency")))
}

// decodeJSON decodes a single JSON value from the request body into dst.
// Numbers decode as json.Number so amounts keep their exact digits.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.UseNumber()
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			return fmt.Errorf("request body larger than %d bytes", maxErr.Limit)
		case errors.Is(err, io.EOF):
			return errors.New("request body is empty")
		default:
			return fmt.Errorf("invalid JSON body: %w", err)
		}
	}
	if dec.More() {
		return errors.New("request body must hold a single JSON value")
	}
	return nil
}

// DecodeCostInput reads a CostInput body and sanitizes its text fields.
// Defaulting and validation happen in the normalizer.
func DecodeCostInput(w http.ResponseWriter, r *http.Request) (core.CostInput, error) {
	var in core.CostInput
	if err := decodeJSON(w, r, &in); err != nil {
		return core.CostInput{}, err
	}
	for _, field := range []*string{in.Currency, in.Curency, in.Category, in.Description, in.Date} {
		if field != nil {
			*field = sanitizeInput(*field)
		}
	}
	return in, nil
}

// DecodeSettingValue reads a {"value": ...} body. The value may be any JSON
// scalar; a missing value is an error, an explicit null is kept.
func DecodeSettingValue(w http.ResponseWriter, r *http.Request) (any, error) {
	var body struct {
		Value json.RawMessage `json:"value"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		return nil, err
	}
	if len(body.Value) == 0 {
		return nil, errors.New(`body must contain "value"`)
	}

	dec := json.NewDecoder(bytes.NewReader(body.Value))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("invalid value: %w", err)
	}
	if s, ok := v.(string); ok {
		v = sanitizeInput(s)
	}
	return v, nil
}

// DecodeRatesURL reads a {"url": "..."} body.
func DecodeRatesURL(w http.ResponseWriter, r *http.Request) (string, error) {
	var body struct {
		URL string `json:"url"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		return "", err
	}
	raw := sanitizeInput(body.URL)
	if raw == "" {
		return "", errors.New(`body must contain a non-empty "url"`)
	}
	return raw, nil
}
