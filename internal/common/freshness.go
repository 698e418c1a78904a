package common

import "time"

// Default freshness TTLs for cached data
const (
	FreshnessDirectory = 1 * time.Hour // company list reload
	FreshnessSession   = 1 * time.Hour // idle chat session
)

// IsFresh returns true if the given timestamp is within the TTL
func IsFresh(updated time.Time, ttl time.Duration) bool {
	if updated.IsZero() {
		return false
	}
	return time.Since(updated) < ttl
}
