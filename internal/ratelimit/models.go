// Package ratelimit throttles unauthenticated endpoints per client IP with a
// sliding window.
package ratelimit

import (
	"time"
)

// Class groups endpoints that share a limit.
type Class string

const (
	// ClassAuth covers registration and login.
	ClassAuth Class = "auth"
)

// Policy is the number of requests allowed per Window.
type Policy struct {
	Limit  int
	Window time.Duration
}

// DefaultAuthPolicy allows ten auth attempts per IP per minute.
var DefaultAuthPolicy = Policy{Limit: 10, Window: time.Minute}

// Result is the outcome of one check.
type Result struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetAt    time.Time
	RetryAfter int // seconds, set only when not allowed
}

type exceededResponse struct {
	Error      string `json:"error"`
	Message    string `json:"message"`
	RetryAfter int    `json:"retry_after"`
}

func key(class Class, ip string) string {
	return "rl:" + string(class) + ":" + ip
}

func retryAfter(resetAt, now time.Time) int {
	secs := int(resetAt.Sub(now).Round(time.Second).Seconds())
	return max(secs, 1)
}
