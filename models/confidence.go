package models

import "time"

// Confidence classifies how an analysis was produced. It drives the cache
// TTL and the isFallback flag: fallback data must never be cached as long as
// a real scrape, since a later retry may succeed.
type Confidence string

const (
	ConfidenceReal      Confidence = "real"
	ConfidencePartial   Confidence = "partial"
	ConfidenceSynthetic Confidence = "synthetic"
)

// CacheTTL returns how long a result of this confidence may be served from
// cache.
func (c Confidence) CacheTTL() time.Duration {
	switch c {
	case ConfidenceReal:
		return 24 * time.Hour
	case ConfidencePartial:
		return 6 * time.Hour
	default:
		return 2 * time.Hour
	}
}

// IsFallback reports whether this confidence represents degraded data.
func (c Confidence) IsFallback() bool {
	return c != ConfidenceReal
}
