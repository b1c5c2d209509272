package handler

import (
	"strings"

	"bucketlist/internal/auth/models"
	dErrors "bucketlist/pkg/domain-errors"
)

type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r *RegisterRequest) Normalize() {
	r.Username = strings.TrimSpace(r.Username)
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
}

// Validate only checks presence; the service applies the field rules.
func (r *RegisterRequest) Validate() error {
	if r.Username == "" || r.Email == "" || r.Password == "" {
		return dErrors.New(dErrors.CodeBadRequest, "username, email and password are required")
	}
	return nil
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (r *LoginRequest) Normalize() {
	r.Username = strings.TrimSpace(r.Username)
}

func (r *LoginRequest) Validate() error {
	if r.Username == "" || r.Password == "" {
		return dErrors.New(dErrors.CodeBadRequest, "username and password are required")
	}
	return nil
}

type UpdateUserRequest struct {
	Username *string `json:"username"`
	Email    *string `json:"email"`
	Password *string `json:"password"`
}

func (r *UpdateUserRequest) Normalize() {
	if r.Username != nil {
		v := strings.TrimSpace(*r.Username)
		r.Username = &v
	}
	if r.Email != nil {
		v := strings.ToLower(strings.TrimSpace(*r.Email))
		r.Email = &v
	}
}

func (r *UpdateUserRequest) Validate() error {
	if r.Username == nil && r.Email == nil && r.Password == nil {
		return dErrors.New(dErrors.CodeBadRequest, "no fields to update")
	}
	return nil
}

func (r *UpdateUserRequest) toUpdate() models.UserUpdate {
	return models.UserUpdate{Username: r.Username, Email: r.Email, Password: r.Password}
}
