// Package ratelimit implements the shared throttle gate for MediaWiki API
// requests. Servers signal back-pressure with a Retry-After header (HTTP 429,
// 503, and the maxlag error envelope); the tracker records the resulting block
// window in Redis so every client instance backs off together.
package ratelimit

import (
	"time"
)

// Redis key and hash fields for throttle state storage.
const (
	RedisKeyThrottle = "depicts:throttle"

	fieldBlockedUntil = "blocked_until"
	fieldLag          = "lag"
	fieldLastUpdate   = "last_update"
)

const (
	// DefaultMaxWait is how long a request may sleep waiting for a block to end
	// before it is rejected instead.
	DefaultMaxWait = 5 * time.Second

	// DefaultRetryAfter applies when a throttling response carries no usable
	// Retry-After value.
	DefaultRetryAfter = 5 * time.Second

	// MaxRetryAfter caps the block a single response can impose.
	MaxRetryAfter = 2 * time.Minute
)

// ThrottleState is the back-pressure state shared across client instances.
type ThrottleState struct {
	// BlockedUntil is the earliest time new requests may be sent.
	BlockedUntil time.Time `json:"blocked_until"`

	// Lag is the last reported database replication lag in seconds.
	Lag float64 `json:"lag"`

	// LastUpdate is when the state was last written.
	LastUpdate time.Time `json:"last_update"`
}

// IsBlocked reports whether requests are currently held back.
func (s *ThrottleState) IsBlocked() bool {
	return time.Now().Before(s.BlockedUntil)
}

// TimeUntilUnblock returns the remaining block duration, or 0.
func (s *ThrottleState) TimeUntilUnblock() time.Duration {
	d := time.Until(s.BlockedUntil)
	if d < 0 {
		return 0
	}
	return d
}

// IsStale returns true if the state is older than maxAge.
func (s *ThrottleState) IsStale(maxAge time.Duration) bool {
	return time.Since(s.LastUpdate) > maxAge
}
