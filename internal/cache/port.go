package cache

import "time"

/*
Responsibilities

- Store short-lived values keyed by URL (fetch results, conditional-GET
  validators, robots.txt bodies)
- Expire entries after a per-Put TTL rather than per-cache lifetime

This generalizes internal/robots/cache.Cache (string-in, string-out, no
expiry) to a TTL-aware port so the fetch orchestrator can share the same
abstraction across an in-memory run and a disk-backed run across crawls.
*/

// Cache stores string values under string keys with an expiry.
type Cache interface {
	// Get returns the value for key and true if present and not expired.
	Get(key string) (string, bool)

	// Put stores value under key, expiring after ttl. A zero or negative
	// ttl means the entry never expires.
	Put(key, value string, ttl time.Duration)
}
