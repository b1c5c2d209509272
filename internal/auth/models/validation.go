package models

import (
	"strings"
	"unicode"

	"github.com/asaskevich/govalidator"

	dErrors "bucketlist/pkg/domain-errors"
)

const (
	MinPasswordLength = 8
	MaxPasswordLength = 72 // bcrypt ignores bytes beyond 72
	MaxUsernameLength = 64
	MaxEmailLength    = 254
)

// ValidateUsername requires a non-empty alphanumeric username.
func ValidateUsername(username string) error {
	if username == "" {
		return dErrors.New(dErrors.CodeBadRequest, "username is required")
	}
	if len(username) > MaxUsernameLength {
		return dErrors.New(dErrors.CodeBadRequest, "username is too long")
	}
	if !govalidator.IsAlphanumeric(username) {
		return dErrors.New(dErrors.CodeBadRequest, "username must contain only letters and digits")
	}
	return nil
}

// ValidateEmail checks address syntax.
func ValidateEmail(email string) error {
	if email == "" {
		return dErrors.New(dErrors.CodeBadRequest, "email is required")
	}
	if len(email) > MaxEmailLength || !govalidator.IsEmail(email) {
		return dErrors.New(dErrors.CodeBadRequest, "invalid email address")
	}
	return nil
}

// ValidatePassword enforces minimum strength: at least eight characters with
// one digit and one uppercase letter.
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return dErrors.New(dErrors.CodeBadRequest, "password must be at least 8 characters")
	}
	if len(password) > MaxPasswordLength {
		return dErrors.New(dErrors.CodeBadRequest, "password must be at most 72 bytes")
	}
	var hasDigit, hasUpper bool
	for _, r := range password {
		switch {
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsUpper(r):
			hasUpper = true
		}
	}
	if !hasDigit {
		return dErrors.New(dErrors.CodeBadRequest, "password must contain a digit")
	}
	if !hasUpper {
		return dErrors.New(dErrors.CodeBadRequest, "password must contain an uppercase letter")
	}
	return nil
}

// NormalizeEmail lowercases and trims an address before storage and lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
