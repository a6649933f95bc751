package featurestore

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Cache is the ephemeral key-value overlay. Implementations must be binary
// safe and return ErrCacheMiss for absent keys.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// MGet returns the present keys only; absent keys are simply omitted.
	MGet(ctx context.Context, keys []string) (map[string][]byte, error)
	Delete(ctx context.Context, key string) error
	Ping(ctx context.Context) error
}

// Repository is the durable system of record.
type Repository interface {
	// UpsertRecords writes all records within one transaction.
	UpsertRecords(ctx context.Context, records []FeatureRecord) error

	// QueryFeatures returns the newest active value per feature name for one
	// entity, optionally filtered to featureNames.
	QueryFeatures(ctx context.Context, entityID, featureGroup string, featureNames []string) (map[string]any, error)

	// QueryBatchFeatures is the batched form of QueryFeatures; it must issue
	// a single backend query covering all entityIDs.
	QueryBatchFeatures(ctx context.Context, entityIDs []string, featureGroup string, featureNames []string) (map[string]map[string]any, error)

	// DeactivateFeatures soft-deletes all active rows for the pair.
	DeactivateFeatures(ctx context.Context, entityID, featureGroup string) error

	// DeactivateExpired soft-deletes active rows whose TTL passed and
	// returns the number of rows affected. It must be idempotent.
	DeactivateExpired(ctx context.Context, now time.Time) (int64, error)

	ListFeatureGroups(ctx context.Context) ([]string, error)
	GroupStatistics(ctx context.Context, featureGroup string) (Statistics, error)
	Ping(ctx context.Context) error
}

// Store coordinates the cache and the durable store: write-through on put,
// read-through with cache-fill on get, batched multi-entity access,
// two-phase delete, and TTL-sweep cleanup.
type Store struct {
	cache Cache
	repo  Repository

	defaultTTL   time.Duration
	cacheTimeout time.Duration
	storeTimeout time.Duration
	logger       *slog.Logger
}

// NewStore creates a feature store orchestrator over the given backends.
func NewStore(cache Cache, repo Repository, opts ...StoreOption) (*Store, error) {
	if cache == nil {
		return nil, errors.Join(ErrInvalidInput, errors.New("cache cannot be nil"))
	}
	if repo == nil {
		return nil, errors.Join(ErrInvalidInput, errors.New("repository cannot be nil"))
	}

	s := &Store{
		cache:        cache,
		repo:         repo,
		defaultTTL:   time.Hour,
		cacheTimeout: 250 * time.Millisecond,
		storeTimeout: 3 * time.Second,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// PutFeatures stores the full feature map for an entity: one durable row per
// feature name upserted within one transaction, then one cache entry holding
// the serialized map with a TTL. The durable write is fatal on failure; the
// cache write is advisory and only logged.
func (s *Store) PutFeatures(ctx context.Context, entityID, featureGroup string, features map[string]any, opts ...PutOption) error {
	if err := validatePair(entityID, featureGroup); err != nil {
		return err
	}
	if len(features) == 0 {
		return errors.Join(ErrInvalidInput, errors.New("features cannot be empty"))
	}

	now := time.Now().UTC()
	po := putOptions{eventTimestamp: now, ttl: s.defaultTTL}
	for _, opt := range opts {
		opt(&po)
	}

	ttlTimestamp := now.Add(po.ttl)
	records := make([]FeatureRecord, 0, len(features))
	for name, value := range features {
		if name == "" {
			return errors.Join(ErrInvalidInput, errors.New("feature name cannot be empty"))
		}
		records = append(records, FeatureRecord{
			ID:                 uuid.New(),
			EntityID:           entityID,
			FeatureGroup:       featureGroup,
			FeatureName:        name,
			Value:              value,
			DataType:           DetectDataType(value),
			EventTimestamp:     po.eventTimestamp,
			IngestionTimestamp: now,
			TTLTimestamp:       &ttlTimestamp,
			SourceSystem:       po.sourceSystem,
			Tags:               po.tags,
			IsActive:           true,
		})
	}

	// Durability first: the cache is filled only after the system of record
	// accepted the write, so a failed transaction never leaves the overlay
	// ahead of the durable state.
	storeCtx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()
	if err := s.repo.UpsertRecords(storeCtx, records); err != nil {
		return errors.Join(ErrStoreUnavailable, err)
	}

	s.fillCache(ctx, entityID, featureGroup, features, po.ttl)

	s.logger.Debug("features stored",
		slog.String("entity_id", entityID),
		slog.String("feature_group", featureGroup),
		slog.Int("feature_count", len(features)))
	return nil
}

// GetFeatures retrieves the feature map for an entity: cache first, durable
// store on miss or undecodable payload, cache-fill before returning. Backend
// unavailability degrades to an empty result with a logged warning; only
// malformed input returns an error.
func (s *Store) GetFeatures(ctx context.Context, entityID, featureGroup string, featureNames []string) (map[string]any, error) {
	if err := validatePair(entityID, featureGroup); err != nil {
		return nil, err
	}

	if features, ok := s.cacheLookup(ctx, entityID, featureGroup); ok {
		return filterFeatures(features, featureNames), nil
	}

	storeCtx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()
	features, err := s.repo.QueryFeatures(storeCtx, entityID, featureGroup, featureNames)
	if err != nil {
		s.logger.Warn("durable store read failed, returning empty feature set",
			slog.String("entity_id", entityID),
			slog.String("feature_group", featureGroup),
			slog.String("error", err.Error()))
		return map[string]any{}, nil
	}

	// Only a full, unfiltered map may re-populate the cache: an entry always
	// holds the complete feature map for its pair.
	if len(features) > 0 && len(featureNames) == 0 {
		s.fillCache(ctx, entityID, featureGroup, features, s.defaultTTL)
	}
	return features, nil
}

// GetBatchFeatures retrieves feature maps for many entities with one cache
// multi-get and, for the misses, one batched durable-store query. Each
// entity's result is independent: a failure reconstructing one entity never
// drops or corrupts the others.
func (s *Store) GetBatchFeatures(ctx context.Context, entityIDs []string, featureGroup string, featureNames []string) (map[string]map[string]any, error) {
	if featureGroup == "" {
		return nil, errors.Join(ErrInvalidInput, errors.New("feature group cannot be empty"))
	}
	result := make(map[string]map[string]any, len(entityIDs))
	if len(entityIDs) == 0 {
		return result, nil
	}

	keys := make([]string, len(entityIDs))
	for i, id := range entityIDs {
		keys[i] = CacheKey(featureGroup, id)
	}

	cacheCtx, cancel := context.WithTimeout(ctx, s.cacheTimeout)
	hits, err := s.cache.MGet(cacheCtx, keys)
	cancel()
	if err != nil {
		s.logger.Warn("cache multi-get failed, falling back to durable store",
			slog.String("feature_group", featureGroup),
			slog.String("error", err.Error()))
		hits = nil
	}

	var missing []string
	for _, id := range entityIDs {
		data, ok := hits[CacheKey(featureGroup, id)]
		if !ok {
			missing = append(missing, id)
			continue
		}
		env, err := decodeEnvelope(data)
		if err != nil {
			s.logger.Warn("undecodable cache payload, treating as miss",
				slog.String("entity_id", id),
				slog.String("feature_group", featureGroup),
				slog.String("error", err.Error()))
			missing = append(missing, id)
			continue
		}
		result[id] = filterFeatures(env.Features, featureNames)
	}

	if len(missing) == 0 {
		return result, nil
	}

	storeCtx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()
	fromStore, err := s.repo.QueryBatchFeatures(storeCtx, missing, featureGroup, featureNames)
	if err != nil {
		s.logger.Warn("durable store batch read failed, returning cache hits only",
			slog.String("feature_group", featureGroup),
			slog.Int("missing_entities", len(missing)),
			slog.String("error", err.Error()))
		return result, nil
	}

	for id, features := range fromStore {
		result[id] = features
		if len(featureNames) == 0 {
			s.fillCache(ctx, id, featureGroup, features, s.defaultTTL)
		}
	}

	s.logger.Debug("batch features retrieved",
		slog.String("feature_group", featureGroup),
		slog.Int("total_entities", len(entityIDs)),
		slog.Int("cached_entities", len(entityIDs)-len(missing)),
		slog.Int("store_entities", len(missing)))
	return result, nil
}

// DeleteFeatures removes all features for a pair using the two-phase
// invalidation protocol: the cache entry is hard-deleted immediately, the
// durable rows are soft-deleted (marked inactive) so audit history survives.
// Callers relying on history read the durable store, not the cache.
func (s *Store) DeleteFeatures(ctx context.Context, entityID, featureGroup string) error {
	if err := validatePair(entityID, featureGroup); err != nil {
		return err
	}

	// Invalidation must not silently fail: a surviving cache entry would
	// keep serving deleted data until its TTL.
	cacheCtx, cancel := context.WithTimeout(ctx, s.cacheTimeout)
	err := s.cache.Delete(cacheCtx, CacheKey(featureGroup, entityID))
	cancel()
	if err != nil {
		return errors.Join(ErrCacheUnavailable, err)
	}

	storeCtx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()
	if err := s.repo.DeactivateFeatures(storeCtx, entityID, featureGroup); err != nil {
		return errors.Join(ErrStoreUnavailable, err)
	}

	s.logger.Info("features deleted",
		slog.String("entity_id", entityID),
		slog.String("feature_group", featureGroup))
	return nil
}

// CleanupExpired soft-deletes durable rows whose TTL passed and returns the
// count affected. A second immediate run returns 0. Cache entries are not
// touched; they expire on their own TTL clock.
func (s *Store) CleanupExpired(ctx context.Context) (int64, error) {
	storeCtx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()
	count, err := s.repo.DeactivateExpired(storeCtx, time.Now().UTC())
	if err != nil {
		return 0, errors.Join(ErrStoreUnavailable, err)
	}
	if count > 0 {
		s.logger.Info("expired features deactivated", slog.Int64("count", count))
	}
	return count, nil
}

// FeatureGroups lists the distinct feature groups known to the durable store.
func (s *Store) FeatureGroups(ctx context.Context) ([]string, error) {
	storeCtx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()
	groups, err := s.repo.ListFeatureGroups(storeCtx)
	if err != nil {
		return nil, errors.Join(ErrStoreUnavailable, err)
	}
	return groups, nil
}

// Statistics aggregates over the active rows of one feature group directly
// from the durable store, bypassing the cache. Observability path, not
// hot-path serving.
func (s *Store) Statistics(ctx context.Context, featureGroup string) (Statistics, error) {
	if featureGroup == "" {
		return Statistics{}, errors.Join(ErrInvalidInput, errors.New("feature group cannot be empty"))
	}
	storeCtx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()
	stats, err := s.repo.GroupStatistics(storeCtx, featureGroup)
	if err != nil {
		return Statistics{}, errors.Join(ErrStoreUnavailable, err)
	}
	return stats, nil
}

// HealthStatus probes both backends independently, so one unhealthy backend
// never masks the other's status.
func (s *Store) HealthStatus(ctx context.Context) HealthStatus {
	status := HealthStatus{CheckedAt: time.Now().UTC()}

	cacheCtx, cancel := context.WithTimeout(ctx, s.cacheTimeout)
	if err := s.cache.Ping(cacheCtx); err != nil {
		s.logger.Warn("cache health check failed", slog.String("error", err.Error()))
	} else {
		status.CacheConnected = true
	}
	cancel()

	storeCtx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()
	if err := s.repo.Ping(storeCtx); err != nil {
		s.logger.Warn("durable store health check failed", slog.String("error", err.Error()))
	} else {
		status.StoreConnected = true
	}

	return status
}

// cacheLookup fetches and decodes one cache entry. Any failure, including an
// undecodable payload, counts as a miss.
func (s *Store) cacheLookup(ctx context.Context, entityID, featureGroup string) (map[string]any, bool) {
	cacheCtx, cancel := context.WithTimeout(ctx, s.cacheTimeout)
	defer cancel()

	data, err := s.cache.Get(cacheCtx, CacheKey(featureGroup, entityID))
	if err != nil {
		if !errors.Is(err, ErrCacheMiss) {
			s.logger.Warn("cache unavailable, falling back to durable store",
				slog.String("entity_id", entityID),
				slog.String("feature_group", featureGroup),
				slog.String("error", err.Error()))
		}
		return nil, false
	}

	env, err := decodeEnvelope(data)
	if err != nil {
		s.logger.Warn("undecodable cache payload, treating as miss",
			slog.String("entity_id", entityID),
			slog.String("feature_group", featureGroup),
			slog.String("error", err.Error()))
		return nil, false
	}
	return env.Features, true
}

// fillCache writes the full feature map for a pair into the cache. Failures
// are logged and swallowed: the cache is advisory.
func (s *Store) fillCache(ctx context.Context, entityID, featureGroup string, features map[string]any, ttl time.Duration) {
	payload, err := encodeEnvelope(cacheEnvelope{
		EntityID:     entityID,
		FeatureGroup: featureGroup,
		CachedAt:     time.Now().UTC(),
		Features:     features,
	})
	if err != nil {
		s.logger.Warn("failed to encode cache payload",
			slog.String("entity_id", entityID),
			slog.String("feature_group", featureGroup),
			slog.String("error", err.Error()))
		return
	}

	cacheCtx, cancel := context.WithTimeout(ctx, s.cacheTimeout)
	defer cancel()
	if err := s.cache.Set(cacheCtx, CacheKey(featureGroup, entityID), payload, ttl); err != nil {
		s.logger.Warn("feature cache write failed",
			slog.String("entity_id", entityID),
			slog.String("feature_group", featureGroup),
			slog.String("error", err.Error()))
	}
}

func validatePair(entityID, featureGroup string) error {
	if entityID == "" {
		return errors.Join(ErrInvalidInput, errors.New("entity id cannot be empty"))
	}
	if featureGroup == "" {
		return errors.Join(ErrInvalidInput, errors.New("feature group cannot be empty"))
	}
	return nil
}

func filterFeatures(features map[string]any, featureNames []string) map[string]any {
	if len(featureNames) == 0 {
		return features
	}
	filtered := make(map[string]any, len(featureNames))
	for _, name := range featureNames {
		if value, ok := features[name]; ok {
			filtered[name] = value
		}
	}
	return filtered
}
