// Package pgstore provides the PostgreSQL system of record for the feature
// store.
//
// # Architecture
//
// The package wraps pgxpool with retry-based connection establishment, a
// healthcheck closure, and goose-based schema migrations. The Storage type
// implements featurestore.Repository: feature values are persisted as JSONB
// rows keyed by (entity_id, feature_group, feature_name, event_timestamp),
// with last-write-wins upserts on that key and soft deletes via the
// is_active flag so audit history survives deletion.
//
// # Usage
//
//	cfg, err := pgstore.LoadConfig()
//	if err != nil {
//		return err
//	}
//	pool, err := pgstore.Connect(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	if err := pgstore.Migrate(ctx, pool, cfg, slog.Default()); err != nil {
//		return err
//	}
//	repo := pgstore.New(pool)
//	store, err := featurestore.NewStore(cache, repo)
//
// # Configuration
//
// All settings come from PG_* environment variables; see Config for the
// full list and defaults. PG_CONN_URL is required.
package pgstore
