// Package cache stores conformance results keyed by content identifiers.
package cache

import "time"

const keyPrefix = "kgrepair:v1:"

// Cache is a byte-valued store with per-entry expiry.
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// Key identifies a check of one graph against one schema. Both arguments
// are content identifiers, so equal inputs always share an entry.
func Key(schemaCID, graphCID string) string {
	return keyPrefix + schemaCID + ":" + graphCID
}
