package bucketlist

import (
	"fmt"

	"bucketlist/pkg/platform/sentinel"
)

// ErrNameTaken is returned when another bucketlist already uses the name.
// Names are unique across all owners.
var ErrNameTaken = fmt.Errorf("bucketlist name %w", sentinel.ErrAlreadyUsed)

// ErrUnknownOwner is returned when a write names an owner with no user row.
var ErrUnknownOwner = fmt.Errorf("bucketlist owner %w", sentinel.ErrNotFound)
