package models

import (
	"time"

	id "bucketlist/pkg/domain"
)

// User is a registered account. PasswordHash is a bcrypt digest and never
// leaves the service layer.
type User struct {
	ID           id.UserID
	Username     string
	Email        string
	PasswordHash []byte
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// LoginResult is returned after successful credential verification.
type LoginResult struct {
	User      *User
	Token     string
	TokenID   string
	ExpiresAt time.Time
	ExpiresIn time.Duration
}

// UserUpdate carries the fields a user may change on their own profile.
// Nil fields are left untouched.
type UserUpdate struct {
	Username *string
	Email    *string
	Password *string
}

// IsEmpty reports whether no field was supplied.
func (u UserUpdate) IsEmpty() bool {
	return u.Username == nil && u.Email == nil && u.Password == nil
}
