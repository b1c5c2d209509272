package attrs

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestExtractString(t *testing.T) {
	kv := []any{"count", 3, "device", "Chrome on macOS", "dangling"}
	assert.Equal(t, "Chrome on macOS", ExtractString(kv, "device"))
	assert.Empty(t, ExtractString(kv, "count"))
	assert.Empty(t, ExtractString(kv, "dangling"))
}

func TestToMap(t *testing.T) {
	got := ToMap([]any{
		"items_removed", int64(4),
		"done", true,
		"ttl", 90 * time.Second,
		42, "ignored",
		"name", "Travel",
		"trailing",
	})
	assert.Equal(t, map[string]string{
		"items_removed": "4",
		"done":          "true",
		"ttl":           "1m30s",
		"name":          "Travel",
	}, got)
	assert.Nil(t, ToMap(nil))
}
