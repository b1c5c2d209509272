// Package domain holds the typed identifiers shared across the bucketlist
// service. Identifiers are positive database-assigned integers; typing them
// keeps a bucketlist id from being passed where an item id is expected.
package domain

import (
	"strconv"

	dErrors "bucketlist/pkg/domain-errors"
)

type (
	UserID       int64
	BucketlistID int64
	ItemID       int64
)

const maxIDLength = 19

func (id UserID) String() string       { return strconv.FormatInt(int64(id), 10) }
func (id BucketlistID) String() string { return strconv.FormatInt(int64(id), 10) }
func (id ItemID) String() string       { return strconv.FormatInt(int64(id), 10) }

func (id UserID) IsNil() bool       { return id <= 0 }
func (id BucketlistID) IsNil() bool { return id <= 0 }
func (id ItemID) IsNil() bool       { return id <= 0 }

func ParseUserID(s string) (UserID, error) {
	v, err := parsePositive(s, "user ID")
	return UserID(v), err
}

func ParseBucketlistID(s string) (BucketlistID, error) {
	v, err := parsePositive(s, "bucketlist ID")
	return BucketlistID(v), err
}

func ParseItemID(s string) (ItemID, error) {
	v, err := parsePositive(s, "item ID")
	return ItemID(v), err
}

// parsePositive accepts only plain ASCII decimal digits. Signs, whitespace and
// zero are rejected.
func parsePositive(s, label string) (int64, error) {
	if s == "" {
		return 0, dErrors.New(dErrors.CodeInvalidInput, label+" required")
	}
	if len(s) > maxIDLength {
		return 0, dErrors.New(dErrors.CodeInvalidInput, "invalid "+label)
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, dErrors.New(dErrors.CodeInvalidInput, "invalid "+label)
		}
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil || v <= 0 {
		return 0, dErrors.New(dErrors.CodeInvalidInput, "invalid "+label)
	}
	return v, nil
}
