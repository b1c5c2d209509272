package models

import (
	"time"

	id "bucketlist/pkg/domain"
)

// Bucketlist is a named collection of items owned by exactly one user.
type Bucketlist struct {
	ID           id.BucketlistID
	Name         string
	CreatedBy    id.UserID
	DateCreated  time.Time
	DateModified time.Time
	// Items is populated on reads that embed children; stores never persist it.
	Items []Item
}

// Item is a completable entry belonging to exactly one bucketlist.
type Item struct {
	ID           id.ItemID
	Name         string
	Done         bool
	BucketlistID id.BucketlistID
	DateCreated  time.Time
	DateModified time.Time
}
