// Package featurestore implements a dual-tier storage layer for ML feature
// serving: an ephemeral key-value cache in front of a durable system of
// record, coordinated by a single orchestrator.
//
// The package is organised around two small backend interfaces:
//
//   - Cache      — ephemeral overlay with TTL (get/set/multi-get/delete)
//   - Repository — durable system of record (upsert/query/soft-delete)
//
// Components interact only through these interfaces, keeping the business
// logic decoupled from persistence. Production deployments back them with
// the rediscache and pgstore/mongostore packages; MemoryCache and
// MemoryRepository serve tests and local development.
//
// # Store
//
// Store is the orchestrator: write-through on put (durable upsert first,
// advisory cache write second), read-through with cache-fill on get, batched
// multi-entity access, two-phase delete (hard cache delete, durable soft
// delete), and an idempotent TTL sweep. Reads never fail on backend
// unavailability; they degrade to a best-effort result with a logged
// warning. Durable-write failures are fatal and surfaced for caller retry.
//
// # Client
//
// Client is the high-level facade used by serving and ingestion code. It
// adds a per-client transform registry, multi-group feature-vector assembly
// with a schema and fill-missing policy, and read-only statistics that
// bypass the cache.
//
// Usage:
//
//	store, err := featurestore.NewStore(cache, repo)
//	if err != nil {
//		return err
//	}
//	client, err := featurestore.NewClient(store)
//	if err != nil {
//		return err
//	}
//
//	client.RegisterTransform("age", transform.NewNumeric(transform.NumericConfig{
//		Min: transform.Float(0), Max: transform.Float(120),
//		FillMissing: true, DefaultValue: 30,
//	}))
//
//	err = client.PutFeatures(ctx, "user_1", "demographics",
//		map[string]any{"age": 25, "income": 50000}, true)
package featurestore
