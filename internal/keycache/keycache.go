// Package keycache stores resolved descrambling keys so that re-downloading
// a chapter does not evaluate the key snippet again for every page.
package keycache

import "time"

// DefaultTTL is how long a resolved key is trusted.
const DefaultTTL = 24 * time.Hour

// Entry is a resolved key and the grid it applies to.
type Entry struct {
	Key       string    `json:"key"`
	GridSize  int       `json:"gridSize"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func (e Entry) expired(now time.Time) bool {
	return !e.ExpiresAt.IsZero() && !now.Before(e.ExpiresAt)
}

// Cache maps image URLs to resolved keys. Expired entries read as missing.
type Cache interface {
	Get(imageURL string) (Entry, bool)
	Set(imageURL string, e Entry) error
}
