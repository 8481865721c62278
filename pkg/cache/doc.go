// Package cache provides a thread-safe TTL-aware LRU cache.
//
// Entries expire after a per-entry TTL and are additionally evicted in
// least-recently-used order once the cache reaches capacity. The cache is the
// backing store for the permission and menu caches, where stale entries must
// never outlive the configured TTL.
//
// Basic usage:
//
//	c := cache.New[string, int](1000, 5*time.Minute)
//	c.Set("answer", 42)
//	v, ok := c.Get("answer")
package cache
