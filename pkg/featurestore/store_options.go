package featurestore

import (
	"log/slog"
	"time"
)

// StoreOption is a functional option for configuring a Store.
type StoreOption func(*Store)

// WithDefaultTTL sets the TTL applied to writes that do not carry their own.
func WithDefaultTTL(d time.Duration) StoreOption {
	return func(s *Store) {
		if d > 0 {
			s.defaultTTL = d
		}
	}
}

// WithCacheTimeout sets the per-call timeout for cache operations. It should
// stay short: a slow cache must fail fast into the durable fallback.
func WithCacheTimeout(d time.Duration) StoreOption {
	return func(s *Store) {
		if d > 0 {
			s.cacheTimeout = d
		}
	}
}

// WithStoreTimeout sets the per-call timeout for durable store operations.
func WithStoreTimeout(d time.Duration) StoreOption {
	return func(s *Store) {
		if d > 0 {
			s.storeTimeout = d
		}
	}
}

// WithLogger sets the logger for the store.
func WithLogger(logger *slog.Logger) StoreOption {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithConfig applies an environment-derived configuration.
func WithConfig(cfg Config) StoreOption {
	return func(s *Store) {
		WithDefaultTTL(cfg.DefaultTTL)(s)
		WithCacheTimeout(cfg.CacheTimeout)(s)
		WithStoreTimeout(cfg.StoreTimeout)(s)
	}
}

// PutOption is a per-call option for Store.PutFeatures.
type PutOption func(*putOptions)

type putOptions struct {
	eventTimestamp time.Time
	ttl            time.Duration
	sourceSystem   string
	tags           map[string]string
}

// WithEventTimestamp sets the domain time of the observation. Writes with a
// new event timestamp create a new version instead of overwriting history.
func WithEventTimestamp(t time.Time) PutOption {
	return func(o *putOptions) {
		if !t.IsZero() {
			o.eventTimestamp = t.UTC()
		}
	}
}

// WithTTL overrides the store-level default TTL for this write.
func WithTTL(d time.Duration) PutOption {
	return func(o *putOptions) {
		if d > 0 {
			o.ttl = d
		}
	}
}

// WithSourceSystem records which upstream system produced the features.
func WithSourceSystem(source string) PutOption {
	return func(o *putOptions) {
		o.sourceSystem = source
	}
}

// WithPutTags attaches free-form metadata to the written records.
func WithPutTags(tags map[string]string) PutOption {
	return func(o *putOptions) {
		if len(tags) > 0 {
			o.tags = tags
		}
	}
}
