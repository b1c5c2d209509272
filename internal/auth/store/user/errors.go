package user

import (
	"fmt"

	"bucketlist/pkg/platform/sentinel"
)

// Uniqueness failures. Both match sentinel.ErrAlreadyUsed.
var (
	ErrUsernameTaken = fmt.Errorf("username %w", sentinel.ErrAlreadyUsed)
	ErrEmailTaken    = fmt.Errorf("email %w", sentinel.ErrAlreadyUsed)
)
