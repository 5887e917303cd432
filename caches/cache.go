package caches

import "time"

var (
	// DefaultExpiredDuration is how long backends that need a row lifetime of
	// their own keep an entry when the caller passes no ttl.
	DefaultExpiredDuration = 24 * time.Hour

	// DefaultExpiredTaskTimer is the default duration of the expired task timer
	DefaultExpiredTaskTimer = 10 * time.Minute
)

// TTL returns ttl, or DefaultExpiredDuration when ttl is not positive.
func TTL(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return DefaultExpiredDuration
	}
	return ttl
}
