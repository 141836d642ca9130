// Package cache provides in-process caches for derived values.
package cache

// Cache defines a generic cache interface
type Cache[K comparable, V any] interface {
	// Get retrieves a value from the cache
	Get(key K) (V, bool)

	// Set stores a value in the cache
	Set(key K, value V)

	// Delete removes a key from the cache
	Delete(key K)

	// Len returns the current number of items in the cache
	Len() int
}
