package featurestore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheEnvelopeCodec(t *testing.T) {
	t.Parallel()

	t.Run("round trip", func(t *testing.T) {
		t.Parallel()
		env := cacheEnvelope{
			EntityID:     "user_1",
			FeatureGroup: "demographics",
			CachedAt:     time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
			Features:     map[string]any{"age": float64(25), "name": "ann"},
		}

		data, err := encodeEnvelope(env)
		require.NoError(t, err)

		got, err := decodeEnvelope(data)
		require.NoError(t, err)
		assert.Equal(t, envelopeVersion, got.Version)
		assert.Equal(t, env.EntityID, got.EntityID)
		assert.Equal(t, env.FeatureGroup, got.FeatureGroup)
		assert.True(t, env.CachedAt.Equal(got.CachedAt))
		assert.Equal(t, env.Features, got.Features)
	})

	t.Run("garbage payload", func(t *testing.T) {
		t.Parallel()
		_, err := decodeEnvelope([]byte("\x00\x01 not json"))
		require.ErrorIs(t, err, ErrDeserialization)
	})

	t.Run("unknown version is rejected", func(t *testing.T) {
		t.Parallel()
		_, err := decodeEnvelope([]byte(`{"v":99,"entity_id":"u","feature_group":"g","features":{}}`))
		require.ErrorIs(t, err, ErrDeserialization)
	})

	t.Run("unsupported value type fails encode", func(t *testing.T) {
		t.Parallel()
		_, err := encodeEnvelope(cacheEnvelope{
			Features: map[string]any{"bad": make(chan int)},
		})
		require.ErrorIs(t, err, ErrDeserialization)
	})
}

func TestCacheKey(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "features:demographics:user_1", CacheKey("demographics", "user_1"))
}
