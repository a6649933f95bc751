// Package rediscache backs the feature store's ephemeral tier with Redis.
//
// It provides a Config populated from environment variables, a Connect
// helper with retry, a Healthcheck closure, and the Cache type implementing
// featurestore.Cache over a redis.UniversalClient. Payloads are opaque
// binary-safe byte slices; TTLs map directly onto Redis key expiry.
//
// Usage:
//
//	cfg, err := rediscache.LoadConfig()
//	if err != nil {
//		return err
//	}
//	client, err := rediscache.Connect(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	cache := rediscache.New(client)
//	store, err := featurestore.NewStore(cache, repo)
package rediscache
