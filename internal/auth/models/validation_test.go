package models

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "bucketlist/pkg/domain-errors"
)

func TestValidateUsername(t *testing.T) {
	require.NoError(t, ValidateUsername("tester"))
	require.NoError(t, ValidateUsername("Tester42"))

	for _, bad := range []string{"", "with space", "dash-name", "ünïcode", strings.Repeat("a", 65)} {
		err := ValidateUsername(bad)
		require.Error(t, err, bad)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))
	}
}

func TestValidateEmail(t *testing.T) {
	require.NoError(t, ValidateEmail("test@example.com"))
	for _, bad := range []string{"", "plainaddress", "@example.com", "a@"} {
		require.Error(t, ValidateEmail(bad), bad)
	}
}

func TestValidatePassword(t *testing.T) {
	require.NoError(t, ValidatePassword("Password12"))

	tests := map[string]string{
		"Pass1":                  "at least 8 characters",
		"password12":             "uppercase",
		"PasswordNoDigit":        "digit",
		strings.Repeat("A1", 40): "at most 72 bytes",
	}
	for pw, msg := range tests {
		err := ValidatePassword(pw)
		require.Error(t, err)
		assert.Contains(t, err.Error(), msg)
	}
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "test@example.com", NormalizeEmail("  Test@Example.COM "))
}

func TestUserUpdateIsEmpty(t *testing.T) {
	assert.True(t, UserUpdate{}.IsEmpty())
	name := "x"
	assert.False(t, UserUpdate{Username: &name}.IsEmpty())
}
