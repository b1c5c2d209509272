package revocation

import (
	"fmt"
	"time"

	"bucketlist/pkg/platform/sentinel"
)

// Clock returns the current time.
type Clock func() time.Time

// admit checks a revocation request before any backend is touched. An
// empty jti is accepted and skipped: tokens minted without one cannot be
// looked up later anyway.
func admit(jti string, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		return false, fmt.Errorf("revoke %q: ttl %s: %w", jti, ttl, sentinel.ErrInvalidState)
	}
	return jti != "", nil
}
