package normalization

import (
	"fmt"
	"strconv"
	"strings"
)

// AsString trims string values and renders numbers without exponent; anything else is empty.
func AsString(value any) string {
	switch typed := value.(type) {
	case string:
		return strings.TrimSpace(typed)
	case float64:
		return strconv.FormatFloat(typed, 'f', -1, 64)
	case int, int32, int64:
		return fmt.Sprint(typed)
	default:
		return ""
	}
}

// AsFloat64 coerces numeric values (including numeric strings) into float64.
func AsFloat64(value any) float64 {
	switch typed := value.(type) {
	case float64:
		return typed
	case float32:
		return float64(typed)
	case int:
		return float64(typed)
	case int32:
		return float64(typed)
	case int64:
		return float64(typed)
	case string:
		if trimmed := strings.TrimSpace(typed); trimmed != "" {
			if parsed, err := strconv.ParseFloat(trimmed, 64); err == nil {
				return parsed
			}
		}
	}
	return 0
}

// MapFromPayload unwraps {"data": {...}} envelopes into the inner map.
func MapFromPayload(value any) map[string]any {
	if value == nil {
		return nil
	}
	if typed, ok := value.(map[string]any); ok {
		if data, ok := typed["data"].(map[string]any); ok {
			return data
		}
		return typed
	}
	return nil
}

// FirstString returns the first non-empty string found under keys.
func FirstString(raw map[string]any, keys ...string) string {
	for _, key := range keys {
		if v := AsString(raw[key]); v != "" {
			return v
		}
	}
	return ""
}

// FirstFloat64 returns the first non-zero number found under keys.
func FirstFloat64(raw map[string]any, keys ...string) float64 {
	for _, key := range keys {
		if v := AsFloat64(raw[key]); v != 0 {
			return v
		}
	}
	return 0
}
