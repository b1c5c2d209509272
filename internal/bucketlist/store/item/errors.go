package item

import (
	"fmt"

	"bucketlist/pkg/platform/sentinel"
)

// ErrNameTaken is returned when the parent bucketlist already has an item
// with the name.
var ErrNameTaken = fmt.Errorf("item name %w", sentinel.ErrAlreadyUsed)

// ErrUnknownBucketlist is returned when a write names a parent bucketlist
// that no longer exists.
var ErrUnknownBucketlist = fmt.Errorf("item parent %w", sentinel.ErrNotFound)
