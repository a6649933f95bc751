package featurestore_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/featurekit/pkg/featurestore"
	"github.com/dmitrymomot/featurekit/pkg/transform"
)

// panickyTransform violates the transform contract on purpose to prove the
// client isolates it from sibling features.
type panickyTransform struct{}

func (panickyTransform) Apply(value any) any { panic("boom") }

func newTestClient(t *testing.T) (*featurestore.Client, *featurestore.Store) {
	t.Helper()
	store, err := featurestore.NewStore(featurestore.NewMemoryCache(), featurestore.NewMemoryRepository())
	require.NoError(t, err)
	client, err := featurestore.NewClient(store)
	require.NoError(t, err)
	return client, store
}

func TestClientTransforms(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("transforms applied on write", func(t *testing.T) {
		t.Parallel()
		client, _ := newTestClient(t)
		client.RegisterTransform("age", transform.NewNumeric(transform.NumericConfig{
			Min:          transform.Float(0),
			Max:          transform.Float(120),
			ClipOutliers: true,
			FillMissing:  true,
			DefaultValue: 30,
		}))

		require.NoError(t, client.PutFeatures(ctx, "u", "g",
			map[string]any{"age": 200, "city": "berlin"}, true))

		got, err := client.GetFeatures(ctx, "u", "g", nil, false)
		require.NoError(t, err)
		assert.Equal(t, float64(120), got["age"])
		// Unregistered names pass through unchanged.
		assert.Equal(t, "berlin", got["city"])
	})

	t.Run("transforms applied on read", func(t *testing.T) {
		t.Parallel()
		client, _ := newTestClient(t)
		client.RegisterTransform("status", transform.NewCategorical(transform.CategoricalConfig{
			ValidCategories: []string{"active", "churned"},
			EncodeAsNumeric: true,
			FillMissing:     true,
			DefaultValue:    "unknown",
		}))

		require.NoError(t, client.PutFeatures(ctx, "u", "g",
			map[string]any{"status": "ACTIVE"}, false))

		got, err := client.GetFeatures(ctx, "u", "g", nil, true)
		require.NoError(t, err)
		assert.Equal(t, 0, got["status"])
	})

	t.Run("failing transform keeps original value and siblings", func(t *testing.T) {
		t.Parallel()
		client, _ := newTestClient(t)
		client.RegisterTransform("bad", panickyTransform{})
		client.RegisterTransform("good", transform.NewBoolean(transform.BooleanConfig{OutputAsNumeric: true}))

		require.NoError(t, client.PutFeatures(ctx, "u", "g",
			map[string]any{"bad": "raw", "good": "yes", "plain": 1}, true))

		got, err := client.GetFeatures(ctx, "u", "g", nil, false)
		require.NoError(t, err)
		assert.Equal(t, "raw", got["bad"])
		assert.Equal(t, float64(1), got["good"])
		assert.Equal(t, float64(1), got["plain"])
	})

	t.Run("registries are per client", func(t *testing.T) {
		t.Parallel()
		clientA, store := newTestClient(t)
		clientB, err := featurestore.NewClient(store)
		require.NoError(t, err)

		clientA.RegisterTransform("x", transform.NewText(transform.TextConfig{Lowercase: true}))

		require.NoError(t, clientB.PutFeatures(ctx, "u", "g", map[string]any{"x": "RAW"}, true))

		got, err := clientB.GetFeatures(ctx, "u", "g", nil, false)
		require.NoError(t, err)
		// clientB has no transform for x: value written untouched.
		assert.Equal(t, "RAW", got["x"])
	})

	t.Run("common transforms", func(t *testing.T) {
		t.Parallel()
		client, _ := newTestClient(t)
		client.RegisterCommonTransforms()

		require.NoError(t, client.PutFeatures(ctx, "u", "tx",
			map[string]any{"amount": 50000, "payment_method": "bitcoin"}, true))

		got, err := client.GetFeatures(ctx, "u", "tx", nil, false)
		require.NoError(t, err)
		assert.Equal(t, float64(10000), got["amount"])
		assert.Equal(t, "credit", got["payment_method"])
	})
}

func TestClientFeatureVector(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("multi-group assembly with fill", func(t *testing.T) {
		t.Parallel()
		client, _ := newTestClient(t)

		require.NoError(t, client.PutFeatures(ctx, "user_1", "demographics",
			map[string]any{"age": 25, "income": 50000}, false))
		require.NoError(t, client.PutFeatures(ctx, "user_1", "behavior",
			map[string]any{"clicks": 10}, false))

		vector, err := client.FeatureVector(ctx, "user_1", featurestore.VectorSpec{
			Groups: []string{"demographics", "behavior"},
			Schema: map[string][]string{
				"demographics": {"age", "income"},
				"behavior":     {"clicks", "purchases"},
			},
			FillMissing:  true,
			DefaultValue: 0.0,
		})
		require.NoError(t, err)
		assert.Equal(t, map[string]any{
			"demographics_age":    float64(25),
			"demographics_income": float64(50000),
			"behavior_clicks":     float64(10),
			"behavior_purchases":  0.0,
		}, vector)
	})

	t.Run("no fill leaves absent names out", func(t *testing.T) {
		t.Parallel()
		client, _ := newTestClient(t)

		require.NoError(t, client.PutFeatures(ctx, "u", "g", map[string]any{"a": 1}, false))

		vector, err := client.FeatureVector(ctx, "u", featurestore.VectorSpec{
			Groups: []string{"g"},
			Schema: map[string][]string{"g": {"a", "b"}},
		})
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"g_a": float64(1)}, vector)
	})

	t.Run("vector applies registered transforms", func(t *testing.T) {
		t.Parallel()
		client, _ := newTestClient(t)
		client.RegisterTransform("age", transform.NewNumeric(transform.NumericConfig{
			Min:       transform.Float(0),
			Max:       transform.Float(100),
			Normalize: true,
		}))

		require.NoError(t, client.PutFeatures(ctx, "u", "g", map[string]any{"age": 50}, false))

		vector, err := client.FeatureVector(ctx, "u", featurestore.VectorSpec{
			Groups:          []string{"g"},
			Schema:          map[string][]string{"g": {"age"}},
			ApplyTransforms: true,
		})
		require.NoError(t, err)
		assert.Equal(t, 0.5, vector["g_age"])
	})
}

func TestClientBatchFeatureVectors(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("one batched fetch per group", func(t *testing.T) {
		t.Parallel()
		mem := featurestore.NewMemoryRepository()
		repo := &trackingRepo{Repository: mem}
		cache := featurestore.NewMemoryCache()
		store, err := featurestore.NewStore(cache, repo)
		require.NoError(t, err)
		client, err := featurestore.NewClient(store)
		require.NoError(t, err)

		require.NoError(t, client.PutFeatures(ctx, "u1", "g", map[string]any{"a": 1}, false))
		require.NoError(t, client.PutFeatures(ctx, "u2", "g", map[string]any{"a": 2}, false))
		// Cold cache forces the durable path so the call count is observable.
		require.NoError(t, cache.Delete(ctx, featurestore.CacheKey("g", "u1")))
		require.NoError(t, cache.Delete(ctx, featurestore.CacheKey("g", "u2")))

		vectors, err := client.BatchFeatureVectors(ctx, []string{"u1", "u2", "u3"}, featurestore.VectorSpec{
			Groups:       []string{"g"},
			Schema:       map[string][]string{"g": {"a"}},
			FillMissing:  true,
			DefaultValue: -1,
		})
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"g_a": float64(1)}, vectors["u1"])
		assert.Equal(t, map[string]any{"g_a": float64(2)}, vectors["u2"])
		// Unknown entity still gets a fully-filled vector.
		assert.Equal(t, map[string]any{"g_a": -1}, vectors["u3"])

		repo.mu.Lock()
		defer repo.mu.Unlock()
		assert.Equal(t, 1, repo.batchCalls)
	})
}

func TestClientStatistics(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	client, _ := newTestClient(t)
	require.NoError(t, client.PutFeatures(ctx, "u1", "g", map[string]any{"age": 25}, false))
	require.NoError(t, client.PutFeatures(ctx, "u2", "g", map[string]any{"age": 30, "vip": true}, false))

	stats, err := client.FeatureStatistics(ctx, "g")
	require.NoError(t, err)
	assert.Equal(t, "g", stats.FeatureGroup)
	assert.Equal(t, int64(2), stats.UniqueEntities)
	assert.Equal(t, int64(3), stats.TotalFeatures)
	assert.Equal(t, int64(1), stats.DataTypeDistribution[featurestore.DataTypeBoolean])
}
