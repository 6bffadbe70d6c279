package core

import (
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseSum(t *testing.T) {
	cases := []struct {
		in  any
		out string
		ok  bool
	}{
		{1, "1", true},
		{12.5, "12.5", true},
		{"1.23", "1.23", true},
		{"1,23", "1.23", true},
		{" 2.50 ", "2.5", true},
		{json.Number("100"), "100", true},
		{decimal.NewFromInt(7), "7", true},
		{int8(3), "3", true},
		{int16(300), "300", true},
		{int32(5), "5", true},
		{int64(42), "42", true},
		{uint(5), "5", true},
		{uint8(8), "8", true},
		{uint16(16), "16", true},
		{uint32(32), "32", true},
		{uint64(18446744073709551615), "18446744073709551615", true},
		{float32(2.5), "2.5", true},
		{int32(-1), "", false},
		{uint(0), "", false},
		{0, "", false},
		{-5, "", false},
		{math.NaN(), "", false},
		{math.Inf(1), "", false},
		{"abc", "", false},
		{"", "", false},
		{nil, "", false},
		{true, "", false},
	}
	for _, tc := range cases {
		got, err := ParseSum(tc.in)
		if tc.ok {
			if err != nil || !got.Equal(decimal.RequireFromString(tc.out)) {
				t.Fatalf("%v expected %s, got %s (err=%v)", tc.in, tc.out, got, err)
			}
			continue
		}
		if !errors.Is(err, ErrInvalidSum) {
			t.Fatalf("%v expected ErrInvalidSum, got %v", tc.in, err)
		}
	}
}

func TestRound2(t *testing.T) {
	cases := map[string]string{
		"1.005":   "1.01",
		"1.004":   "1",
		"578":     "578",
		"339.999": "340",
	}
	for in, want := range cases {
		got := Round2(decimal.RequireFromString(in))
		if !got.Equal(decimal.RequireFromString(want)) {
			t.Fatalf("Round2(%s) = %s, want %s", in, got, want)
		}
	}
}
