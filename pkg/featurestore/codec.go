package featurestore

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// envelopeVersion tags the cache payload schema. Decoders reject unknown
// versions so a rolling upgrade never misreads an old payload; the entry is
// then treated as a miss and rebuilt from the durable store.
const envelopeVersion = 1

// cacheEnvelope is the self-describing JSON payload stored per cache entry.
// It always carries the full feature map for one (feature group, entity) pair.
// CachedAt records when the envelope was assembled and written, not any
// event time of the features inside; authoritative timestamps live on the
// durable rows.
type cacheEnvelope struct {
	Version      int            `json:"v"`
	EntityID     string         `json:"entity_id"`
	FeatureGroup string         `json:"feature_group"`
	CachedAt     time.Time      `json:"cached_at"`
	Features     map[string]any `json:"features"`
}

func encodeEnvelope(env cacheEnvelope) ([]byte, error) {
	env.Version = envelopeVersion
	data, err := json.Marshal(env)
	if err != nil {
		return nil, errors.Join(ErrDeserialization, err)
	}
	return data, nil
}

func decodeEnvelope(data []byte) (cacheEnvelope, error) {
	var env cacheEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return cacheEnvelope{}, errors.Join(ErrDeserialization, err)
	}
	if env.Version != envelopeVersion {
		return cacheEnvelope{}, errors.Join(ErrDeserialization,
			fmt.Errorf("unsupported cache payload version %d", env.Version))
	}
	return env, nil
}

// CacheKey builds the cache key for a (feature group, entity) pair.
func CacheKey(featureGroup, entityID string) string {
	return "features:" + featureGroup + ":" + entityID
}
