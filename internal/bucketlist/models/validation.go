package models

import (
	"strings"

	dErrors "bucketlist/pkg/domain-errors"
)

const MaxNameLength = 255

// ValidateName requires a non-blank name within MaxNameLength.
func ValidateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return dErrors.New(dErrors.CodeBadRequest, "name is required")
	}
	if len(name) > MaxNameLength {
		return dErrors.New(dErrors.CodeBadRequest, "name is too long")
	}
	return nil
}
