package featurestore

import "errors"

var (
	// ErrCacheMiss is returned by Cache implementations when a key is absent.
	ErrCacheMiss = errors.New("feature cache miss")
	// ErrCacheUnavailable indicates the ephemeral cache backend failed.
	ErrCacheUnavailable = errors.New("feature cache unavailable")
	// ErrStoreUnavailable indicates the durable system of record failed.
	// Writes propagate it to the caller for retry.
	ErrStoreUnavailable = errors.New("persistent feature store unavailable")
	// ErrDeserialization indicates a cache payload could not be decoded.
	// Readers treat it the same as a cache miss.
	ErrDeserialization = errors.New("failed to deserialize cached features")
	// ErrInvalidInput indicates a malformed key or feature map.
	ErrInvalidInput = errors.New("invalid feature store input")
	// ErrInvalidConfig indicates the environment configuration failed to parse.
	ErrInvalidConfig = errors.New("invalid feature store config")
	// ErrSweeperRunning is returned when starting an already-running sweeper.
	ErrSweeperRunning = errors.New("feature sweeper already running")
)
