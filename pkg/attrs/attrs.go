// Package attrs works with slog-style alternating key/value slices.
package attrs

import (
	"fmt"
	"strconv"
)

// ExtractString extracts a string value from a key-value attribute slice.
// The slice should be formatted as [key1, value1, key2, value2, ...].
// Returns empty string if the key is not found or the value is not a string.
func ExtractString(kv []any, key string) string {
	for i := 0; i+1 < len(kv); i += 2 {
		k, ok := kv[i].(string)
		if !ok || k != key {
			continue
		}
		if v, ok := kv[i+1].(string); ok {
			return v
		}
	}
	return ""
}

// ToMap flattens a key-value slice into strings. Non-string keys and a
// trailing key without a value are skipped. Returns nil for an empty slice.
func ToMap(kv []any) map[string]string {
	if len(kv) < 2 {
		return nil
	}
	out := make(map[string]string, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		if k, ok := kv[i].(string); ok {
			out[k] = stringify(kv[i+1])
		}
	}
	return out
}

func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		return strconv.FormatBool(t)
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprint(v)
	}
}
