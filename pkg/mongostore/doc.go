// Package mongostore provides a MongoDB system of record for the feature
// store, as a drop-in alternative to the PostgreSQL backend.
//
// One collection holds all feature documents, keyed by (entity_id,
// feature_group, feature_name, event_timestamp). Writes are replace-upserts
// on that key via a single bulk operation; deletes flip the is_active flag
// so history survives. Numeric values are normalized to float64 on read so
// both storage tiers return identical types.
//
// Usage:
//
//	cfg, err := mongostore.LoadConfig()
//	if err != nil {
//		return err
//	}
//	db, err := mongostore.NewWithDatabase(ctx, cfg, "features")
//	if err != nil {
//		return err
//	}
//	repo := mongostore.New(db)
//	store, err := featurestore.NewStore(cache, repo)
package mongostore
