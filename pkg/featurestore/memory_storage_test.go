package featurestore_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/featurekit/pkg/featurestore"
)

func TestMemoryCache(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("set get delete", func(t *testing.T) {
		t.Parallel()
		cache := featurestore.NewMemoryCache()

		require.NoError(t, cache.Set(ctx, "k", []byte("v"), 0))
		got, err := cache.Get(ctx, "k")
		require.NoError(t, err)
		assert.Equal(t, []byte("v"), got)

		require.NoError(t, cache.Delete(ctx, "k"))
		_, err = cache.Get(ctx, "k")
		assert.ErrorIs(t, err, featurestore.ErrCacheMiss)
	})

	t.Run("entries expire on their TTL", func(t *testing.T) {
		t.Parallel()
		cache := featurestore.NewMemoryCache()

		require.NoError(t, cache.Set(ctx, "k", []byte("v"), 5*time.Millisecond))
		time.Sleep(20 * time.Millisecond)

		_, err := cache.Get(ctx, "k")
		assert.ErrorIs(t, err, featurestore.ErrCacheMiss)
	})

	t.Run("mget omits absent and expired keys", func(t *testing.T) {
		t.Parallel()
		cache := featurestore.NewMemoryCache()

		require.NoError(t, cache.Set(ctx, "a", []byte("1"), time.Minute))
		require.NoError(t, cache.Set(ctx, "b", []byte("2"), 5*time.Millisecond))
		time.Sleep(20 * time.Millisecond)

		got, err := cache.MGet(ctx, []string{"a", "b", "c"})
		require.NoError(t, err)
		assert.Equal(t, map[string][]byte{"a": []byte("1")}, got)
	})

	t.Run("stored values are isolated from caller mutation", func(t *testing.T) {
		t.Parallel()
		cache := featurestore.NewMemoryCache()

		value := []byte("abc")
		require.NoError(t, cache.Set(ctx, "k", value, 0))
		value[0] = 'x'

		got, err := cache.Get(ctx, "k")
		require.NoError(t, err)
		assert.Equal(t, []byte("abc"), got)
	})
}

func TestMemoryRepository(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	record := func(entity, group, name string, value any, eventTS time.Time) featurestore.FeatureRecord {
		return featurestore.FeatureRecord{
			EntityID:       entity,
			FeatureGroup:   group,
			FeatureName:    name,
			Value:          value,
			DataType:       featurestore.DetectDataType(value),
			EventTimestamp: eventTS,
			IsActive:       true,
		}
	}

	t.Run("identical key upserts, new event timestamp versions", func(t *testing.T) {
		t.Parallel()
		repo := featurestore.NewMemoryRepository()

		ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		require.NoError(t, repo.UpsertRecords(ctx, []featurestore.FeatureRecord{
			record("u", "g", "score", 1, ts),
		}))
		// Same key: overwrite, not a second row.
		require.NoError(t, repo.UpsertRecords(ctx, []featurestore.FeatureRecord{
			record("u", "g", "score", 2, ts),
		}))
		assert.Equal(t, 1, repo.ActiveCount("u", "g"))

		// New event timestamp: a new version; reads return the newest.
		require.NoError(t, repo.UpsertRecords(ctx, []featurestore.FeatureRecord{
			record("u", "g", "score", 3, ts.Add(time.Hour)),
		}))
		assert.Equal(t, 2, repo.ActiveCount("u", "g"))

		features, err := repo.QueryFeatures(ctx, "u", "g", nil)
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"score": float64(3)}, features)
	})

	t.Run("upsert reactivates soft-deleted rows", func(t *testing.T) {
		t.Parallel()
		repo := featurestore.NewMemoryRepository()

		ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		require.NoError(t, repo.UpsertRecords(ctx, []featurestore.FeatureRecord{
			record("u", "g", "a", 1, ts),
		}))
		require.NoError(t, repo.DeactivateFeatures(ctx, "u", "g"))
		require.NoError(t, repo.UpsertRecords(ctx, []featurestore.FeatureRecord{
			record("u", "g", "a", 2, ts),
		}))

		features, err := repo.QueryFeatures(ctx, "u", "g", nil)
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"a": float64(2)}, features)
	})

	t.Run("invalid records are rejected", func(t *testing.T) {
		t.Parallel()
		repo := featurestore.NewMemoryRepository()
		ts := time.Now()

		err := repo.UpsertRecords(ctx, []featurestore.FeatureRecord{
			record("", "g", "a", 1, ts),
		})
		require.Error(t, err)

		bad := record("u", "g", "a", 1, ts)
		bad.DataType = "mystery"
		err = repo.UpsertRecords(ctx, []featurestore.FeatureRecord{bad})
		require.Error(t, err)
	})

	t.Run("batch query covers requested entities only", func(t *testing.T) {
		t.Parallel()
		repo := featurestore.NewMemoryRepository()
		ts := time.Now()

		require.NoError(t, repo.UpsertRecords(ctx, []featurestore.FeatureRecord{
			record("u1", "g", "a", 1, ts),
			record("u2", "g", "a", 2, ts),
			record("u3", "g", "a", 3, ts),
		}))

		got, err := repo.QueryBatchFeatures(ctx, []string{"u1", "u3"}, "g", nil)
		require.NoError(t, err)
		assert.Len(t, got, 2)
		assert.Equal(t, map[string]any{"a": float64(1)}, got["u1"])
		assert.Equal(t, map[string]any{"a": float64(3)}, got["u3"])
	})

	t.Run("expired sweep honors ttl boundary", func(t *testing.T) {
		t.Parallel()
		repo := featurestore.NewMemoryRepository()
		now := time.Now().UTC()

		past := now.Add(-time.Minute)
		future := now.Add(time.Hour)
		expired := record("u", "g", "old", 1, now)
		expired.TTLTimestamp = &past
		fresh := record("u", "g", "new", 2, now)
		fresh.TTLTimestamp = &future
		unbounded := record("u", "g", "keep", 3, now)

		require.NoError(t, repo.UpsertRecords(ctx, []featurestore.FeatureRecord{expired, fresh, unbounded}))

		count, err := repo.DeactivateExpired(ctx, now)
		require.NoError(t, err)
		assert.Equal(t, int64(1), count)

		count, err = repo.DeactivateExpired(ctx, now)
		require.NoError(t, err)
		assert.Zero(t, count)
	})
}
