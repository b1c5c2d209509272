package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "bucketlist/pkg/domain-errors"
)

func TestParseID_Invariants(t *testing.T) {
	t.Run("rejects empty string", func(t *testing.T) {
		_, err := ParseBucketlistID("")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects zero", func(t *testing.T) {
		_, err := ParseBucketlistID("0")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("accepts positive integer", func(t *testing.T) {
		id, err := ParseBucketlistID("42")
		require.NoError(t, err)
		assert.Equal(t, BucketlistID(42), id)
		assert.Equal(t, "42", id.String())
	})
}

func TestParseID_SecurityInvariants(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"SQL injection attempt", "1; DROP TABLE users;--", true},
		{"Path traversal", "../../etc/passwd", true},
		{"Null byte injection", "1\x00", true},
		{"Oversized input", strings.Repeat("9", 40), true},
		{"Overflow", "9223372036854775808", true},
		{"Negative", "-1", true},
		{"Explicit plus sign", "+1", true},
		{"Whitespace", " 1 ", true},
		{"Largest int64", "9223372036854775807", false},
		{"Leading zero", "007", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseItemID(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestAllIDTypes_ConsistentBehavior(t *testing.T) {
	for _, input := range []string{"", "abc", "0", "-3"} {
		t.Run("all reject: "+input, func(t *testing.T) {
			_, errUser := ParseUserID(input)
			_, errBucketlist := ParseBucketlistID(input)
			_, errItem := ParseItemID(input)
			require.Error(t, errUser)
			require.Error(t, errBucketlist)
			require.Error(t, errItem)
		})
	}
	assert.True(t, UserID(0).IsNil())
	assert.False(t, ItemID(7).IsNil())
}
