// Package sentinel holds the storage-level facts every store reports.
//
// Memory and Postgres stores return these, wrapped or bare, so services can
// branch with errors.Is without knowing the backend. Services then turn them
// into pkg/domain-errors values; handlers never see a sentinel.
package sentinel

import "errors"

var (
	// ErrNotFound: no row matches, or the row belongs to someone else.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyUsed: a unique key is taken (username, email, list or item name).
	ErrAlreadyUsed = errors.New("already used")
	// ErrInvalidState: the write cannot apply, e.g. a non-positive revocation TTL.
	ErrInvalidState = errors.New("invalid state")
)
