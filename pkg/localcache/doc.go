// Package localcache provides a bounded in-process implementation of
// featurestore.Cache for deployments that run without a shared cache tier.
//
// Entries are evicted least-recently-used once the capacity is reached, and
// each entry carries its own TTL, checked lazily on access. The cache is
// safe for concurrent use. Because it is process-local, it offers no
// cross-instance invalidation; multi-instance deployments should prefer the
// Redis tier.
package localcache
