package cache

import (
	"net/http"
	"time"
)

// CacheEntry is a Scryfall GET response kept in Redis.
//
// Scryfall refreshes card prices once a day, so an entry normally lives for
// DefaultTTL unless the response carries its own caching headers.
type CacheEntry struct {
	Data       []byte      `json:"data"`
	StatusCode int         `json:"status_code"`
	Headers    http.Header `json:"headers"`

	// CachedAt is when the response was received from Scryfall.
	CachedAt time.Time `json:"cached_at"`

	// Expires is when the entry must be fetched again.
	Expires time.Time `json:"expires"`
}

// IsExpired reports whether the entry is past its expiry.
func (e *CacheEntry) IsExpired() bool {
	return time.Now().After(e.Expires)
}

// TTL returns the time until expiration, or 0 once expired.
func (e *CacheEntry) TTL() time.Duration {
	return max(time.Until(e.Expires), 0)
}

// Age returns how long ago the response was fetched, or 0 when unknown.
func (e *CacheEntry) Age() time.Duration {
	if e.CachedAt.IsZero() {
		return 0
	}
	return max(time.Since(e.CachedAt), 0)
}

// Cacheable reports whether the entry should be stored: a 200 response that
// has not expired yet. Error responses are never replayed.
func (e *CacheEntry) Cacheable() bool {
	return e.StatusCode == http.StatusOK && e.TTL() > 0
}
