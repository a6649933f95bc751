package featurestore

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryCache is an in-memory Cache implementation for testing and local
// development. Entries expire lazily on read.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]memoryCacheEntry
}

type memoryCacheEntry struct {
	value     []byte
	expiresAt time.Time // zero means no expiry
}

// NewMemoryCache creates an empty in-memory cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]memoryCacheEntry)}
}

// Get returns the value for a key or ErrCacheMiss.
func (m *MemoryCache) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.entries[key]
	if !ok {
		return nil, ErrCacheMiss
	}
	if !entry.expiresAt.IsZero() && !entry.expiresAt.After(time.Now()) {
		delete(m.entries, key)
		return nil, ErrCacheMiss
	}
	return slices.Clone(entry.value), nil
}

// Set stores a value with a TTL. Zero TTL means no expiry.
func (m *MemoryCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	entry := memoryCacheEntry{value: slices.Clone(value)}
	if ttl > 0 {
		entry.expiresAt = time.Now().Add(ttl)
	}

	m.mu.Lock()
	m.entries[key] = entry
	m.mu.Unlock()
	return nil
}

// MGet returns the present, unexpired keys only.
func (m *MemoryCache) MGet(ctx context.Context, keys []string) (map[string][]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	result := make(map[string][]byte, len(keys))
	for _, key := range keys {
		entry, ok := m.entries[key]
		if !ok {
			continue
		}
		if !entry.expiresAt.IsZero() && !entry.expiresAt.After(now) {
			delete(m.entries, key)
			continue
		}
		result[key] = slices.Clone(entry.value)
	}
	return result, nil
}

// Delete removes a key. Deleting an absent key is a no-op.
func (m *MemoryCache) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	delete(m.entries, key)
	m.mu.Unlock()
	return nil
}

// Ping always succeeds.
func (m *MemoryCache) Ping(ctx context.Context) error { return nil }

// Len reports the number of stored entries, including not-yet-collected
// expired ones.
func (m *MemoryCache) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// MemoryRepository is an in-memory Repository implementation for testing and
// local development. It enforces the same uniqueness and soft-delete
// semantics as the durable backends.
type MemoryRepository struct {
	mu      sync.RWMutex
	records map[string]*FeatureRecord
}

// NewMemoryRepository creates an empty in-memory repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{records: make(map[string]*FeatureRecord)}
}

func recordKey(entityID, featureGroup, featureName string, eventTimestamp time.Time) string {
	return entityID + "\x00" + featureGroup + "\x00" + featureName + "\x00" +
		strconv.FormatInt(eventTimestamp.UnixNano(), 10)
}

// UpsertRecords writes all records atomically under one lock. A record with
// an existing (entity, group, name, event timestamp) key overwrites that
// exact version and reactivates it; last write wins.
func (m *MemoryRepository) UpsertRecords(ctx context.Context, records []FeatureRecord) error {
	for i := range records {
		if records[i].EntityID == "" || records[i].FeatureGroup == "" || records[i].FeatureName == "" {
			return fmt.Errorf("record %d: missing key fields", i)
		}
		if !records[i].DataType.Valid() {
			return fmt.Errorf("record %d: invalid data type %q", i, records[i].DataType)
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, rec := range records {
		clone := rec
		if clone.ID == uuid.Nil {
			clone.ID = uuid.New()
		}
		if clone.Tags != nil {
			clone.Tags = maps.Clone(clone.Tags)
		}
		// Values round-trip through JSON so this backend returns the same
		// types as the JSON-backed durable stores (numbers become float64).
		normalized, err := normalizeValue(clone.Value)
		if err != nil {
			return fmt.Errorf("record %s/%s/%s: %w", rec.EntityID, rec.FeatureGroup, rec.FeatureName, err)
		}
		clone.Value = normalized
		clone.IsActive = true
		m.records[recordKey(rec.EntityID, rec.FeatureGroup, rec.FeatureName, rec.EventTimestamp)] = &clone
	}
	return nil
}

func normalizeValue(value any) (any, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	var normalized any
	if err := json.Unmarshal(data, &normalized); err != nil {
		return nil, err
	}
	return normalized, nil
}

// QueryFeatures returns the newest active value per feature name.
func (m *MemoryRepository) QueryFeatures(ctx context.Context, entityID, featureGroup string, featureNames []string) (map[string]any, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	newest := make(map[string]*FeatureRecord)
	for _, rec := range m.records {
		if !rec.IsActive || rec.EntityID != entityID || rec.FeatureGroup != featureGroup {
			continue
		}
		if len(featureNames) > 0 && !slices.Contains(featureNames, rec.FeatureName) {
			continue
		}
		if cur, ok := newest[rec.FeatureName]; !ok || rec.EventTimestamp.After(cur.EventTimestamp) {
			newest[rec.FeatureName] = rec
		}
	}

	features := make(map[string]any, len(newest))
	for name, rec := range newest {
		features[name] = rec.Value
	}
	return features, nil
}

// QueryBatchFeatures returns the newest active value per feature name for
// each entity in one pass.
func (m *MemoryRepository) QueryBatchFeatures(ctx context.Context, entityIDs []string, featureGroup string, featureNames []string) (map[string]map[string]any, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	wanted := make(map[string]struct{}, len(entityIDs))
	for _, id := range entityIDs {
		wanted[id] = struct{}{}
	}

	newest := make(map[string]map[string]*FeatureRecord)
	for _, rec := range m.records {
		if !rec.IsActive || rec.FeatureGroup != featureGroup {
			continue
		}
		if _, ok := wanted[rec.EntityID]; !ok {
			continue
		}
		if len(featureNames) > 0 && !slices.Contains(featureNames, rec.FeatureName) {
			continue
		}
		perEntity := newest[rec.EntityID]
		if perEntity == nil {
			perEntity = make(map[string]*FeatureRecord)
			newest[rec.EntityID] = perEntity
		}
		if cur, ok := perEntity[rec.FeatureName]; !ok || rec.EventTimestamp.After(cur.EventTimestamp) {
			perEntity[rec.FeatureName] = rec
		}
	}

	result := make(map[string]map[string]any, len(newest))
	for entityID, perEntity := range newest {
		features := make(map[string]any, len(perEntity))
		for name, rec := range perEntity {
			features[name] = rec.Value
		}
		result[entityID] = features
	}
	return result, nil
}

// DeactivateFeatures soft-deletes all active rows for the pair.
func (m *MemoryRepository) DeactivateFeatures(ctx context.Context, entityID, featureGroup string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, rec := range m.records {
		if rec.IsActive && rec.EntityID == entityID && rec.FeatureGroup == featureGroup {
			rec.IsActive = false
		}
	}
	return nil
}

// DeactivateExpired soft-deletes active rows whose TTL passed.
func (m *MemoryRepository) DeactivateExpired(ctx context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var count int64
	for _, rec := range m.records {
		if rec.IsActive && rec.TTLTimestamp != nil && !rec.TTLTimestamp.After(now) {
			rec.IsActive = false
			count++
		}
	}
	return count, nil
}

// ListFeatureGroups returns the distinct feature groups, sorted.
func (m *MemoryRepository) ListFeatureGroups(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	seen := make(map[string]struct{})
	for _, rec := range m.records {
		seen[rec.FeatureGroup] = struct{}{}
	}
	groups := slices.Collect(maps.Keys(seen))
	slices.Sort(groups)
	return groups, nil
}

// GroupStatistics aggregates over the active rows of one feature group.
func (m *MemoryRepository) GroupStatistics(ctx context.Context, featureGroup string) (Statistics, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := Statistics{
		FeatureGroup:         featureGroup,
		FeatureCounts:        make(map[string]int64),
		DataTypeDistribution: make(map[DataType]int64),
		CollectedAt:          time.Now().UTC(),
	}
	entities := make(map[string]struct{})
	for _, rec := range m.records {
		if !rec.IsActive || rec.FeatureGroup != featureGroup {
			continue
		}
		stats.FeatureCounts[rec.FeatureName]++
		stats.DataTypeDistribution[rec.DataType]++
		stats.TotalFeatures++
		entities[rec.EntityID] = struct{}{}
	}
	stats.UniqueEntities = int64(len(entities))
	return stats, nil
}

// Ping always succeeds.
func (m *MemoryRepository) Ping(ctx context.Context) error { return nil }

// ActiveCount reports active rows for a pair; used by tests to assert
// soft-delete semantics.
func (m *MemoryRepository) ActiveCount(entityID, featureGroup string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	count := 0
	for _, rec := range m.records {
		if rec.IsActive && rec.EntityID == entityID && rec.FeatureGroup == featureGroup {
			count++
		}
	}
	return count
}

// InactiveCount reports soft-deleted rows for a pair.
func (m *MemoryRepository) InactiveCount(entityID, featureGroup string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	count := 0
	for _, rec := range m.records {
		if !rec.IsActive && rec.EntityID == entityID && rec.FeatureGroup == featureGroup {
			count++
		}
	}
	return count
}
