package ledger

import (
	"encoding/json"
	"fmt"
)

// EncodeSetting serializes a setting value the way every backend stores it.
func EncodeSetting(value any) (string, error) {
	b, err := json.Marshal(value)
	if err != nil {
		return "", fmt.Errorf("encode setting: %w", err)
	}
	return string(b), nil
}

// DecodeSetting reverses EncodeSetting. Numbers decode as float64.
func DecodeSetting(raw string) (any, error) {
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return nil, fmt.Errorf("decode setting: %w", err)
	}
	return v, nil
}

// SettingString returns value as a string when it is one.
func SettingString(value any, found bool) (string, bool) {
	if !found {
		return "", false
	}
	s, ok := value.(string)
	return s, ok
}
