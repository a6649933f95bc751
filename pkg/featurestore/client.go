package featurestore

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/dmitrymomot/featurekit/pkg/transform"
)

// Client is the high-level facade over a Store. It owns an explicit
// per-client transform registry — never process-global state — so multiple
// independently-configured clients can coexist safely.
type Client struct {
	store  *Store
	logger *slog.Logger

	mu         sync.RWMutex
	transforms map[string]transform.Transform
}

// ClientOption is a functional option for configuring a Client.
type ClientOption func(*Client)

// WithClientLogger sets the logger for the client.
func WithClientLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient creates a feature store client.
func NewClient(store *Store, opts ...ClientOption) (*Client, error) {
	if store == nil {
		return nil, errors.Join(ErrInvalidInput, errors.New("store cannot be nil"))
	}
	c := &Client{
		store:      store,
		logger:     slog.Default(),
		transforms: make(map[string]transform.Transform),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// RegisterTransform associates a feature name with a transform. A later
// registration for the same name replaces the earlier one.
func (c *Client) RegisterTransform(featureName string, t transform.Transform) {
	if featureName == "" || t == nil {
		return
	}
	c.mu.Lock()
	c.transforms[featureName] = t
	c.mu.Unlock()

	c.logger.Debug("feature transform registered", slog.String("feature_name", featureName))
}

// RegisterCommonTransforms registers the stock transforms used by the
// standard ingestion pipelines: bounded amount and age, and the
// merchant-category and payment-method allow-lists.
func (c *Client) RegisterCommonTransforms() {
	c.RegisterTransform("amount", transform.NewNumeric(transform.NumericConfig{
		Min:          transform.Float(0),
		Max:          transform.Float(10000),
		ClipOutliers: true,
		FillMissing:  true,
		DefaultValue: 0.0,
	}))
	c.RegisterTransform("age", transform.NewNumeric(transform.NumericConfig{
		Min:          transform.Float(0),
		Max:          transform.Float(120),
		ClipOutliers: true,
		FillMissing:  true,
		DefaultValue: 30.0,
	}))
	c.RegisterTransform("merchant_category", transform.NewCategorical(transform.CategoricalConfig{
		ValidCategories: []string{"electronics", "grocery", "gas", "restaurant", "retail", "other"},
		FillMissing:     true,
		DefaultValue:    "other",
	}))
	c.RegisterTransform("payment_method", transform.NewCategorical(transform.CategoricalConfig{
		ValidCategories: []string{"credit", "debit", "cash", "mobile"},
		FillMissing:     true,
		DefaultValue:    "credit",
	}))
}

// PutFeatures stores features, optionally passing each value through its
// registered transform first. Unregistered names pass through unchanged.
func (c *Client) PutFeatures(ctx context.Context, entityID, featureGroup string, features map[string]any, applyTransforms bool, opts ...PutOption) error {
	if applyTransforms {
		features = c.applyTransforms(features)
	}
	return c.store.PutFeatures(ctx, entityID, featureGroup, features, opts...)
}

// GetFeatures retrieves features, optionally applying registered transforms
// to the returned values.
func (c *Client) GetFeatures(ctx context.Context, entityID, featureGroup string, featureNames []string, applyTransforms bool) (map[string]any, error) {
	features, err := c.store.GetFeatures(ctx, entityID, featureGroup, featureNames)
	if err != nil {
		return nil, err
	}
	if applyTransforms {
		features = c.applyTransforms(features)
	}
	return features, nil
}

// GetBatchFeatures retrieves features for many entities, optionally applying
// registered transforms per entity.
func (c *Client) GetBatchFeatures(ctx context.Context, entityIDs []string, featureGroup string, featureNames []string, applyTransforms bool) (map[string]map[string]any, error) {
	batch, err := c.store.GetBatchFeatures(ctx, entityIDs, featureGroup, featureNames)
	if err != nil {
		return nil, err
	}
	if applyTransforms {
		for entityID, features := range batch {
			batch[entityID] = c.applyTransforms(features)
		}
	}
	return batch, nil
}

// VectorSpec describes how to assemble a flattened feature vector from
// multiple feature groups.
type VectorSpec struct {
	// Groups are iterated in the given order.
	Groups []string
	// Schema maps each group to the feature names expected from it.
	Schema map[string][]string
	// ApplyTransforms passes values through the registered transforms.
	ApplyTransforms bool
	// FillMissing inserts DefaultValue for schema names absent from the
	// fetched result.
	FillMissing  bool
	DefaultValue any
}

// FeatureVector assembles one flattened vector for an entity. Keys are
// prefixed "{group}_{feature_name}".
func (c *Client) FeatureVector(ctx context.Context, entityID string, spec VectorSpec) (map[string]any, error) {
	vector := make(map[string]any)

	for _, group := range spec.Groups {
		expected := spec.Schema[group]
		features, err := c.GetFeatures(ctx, entityID, group, expected, spec.ApplyTransforms)
		if err != nil {
			return nil, err
		}

		if spec.FillMissing {
			for _, name := range expected {
				if _, ok := features[name]; !ok {
					features[name] = spec.DefaultValue
				}
			}
		}
		for name, value := range features {
			vector[group+"_"+name] = value
		}
	}

	c.logger.Debug("feature vector created",
		slog.String("entity_id", entityID),
		slog.Int("group_count", len(spec.Groups)),
		slog.Int("total_features", len(vector)))
	return vector, nil
}

// BatchFeatureVectors assembles vectors for many entities with one batched
// fetch per feature group, avoiding one-request-per-entity-per-group fan-out.
func (c *Client) BatchFeatureVectors(ctx context.Context, entityIDs []string, spec VectorSpec) (map[string]map[string]any, error) {
	vectors := make(map[string]map[string]any, len(entityIDs))
	for _, id := range entityIDs {
		vectors[id] = make(map[string]any)
	}

	for _, group := range spec.Groups {
		expected := spec.Schema[group]
		batch, err := c.GetBatchFeatures(ctx, entityIDs, group, expected, spec.ApplyTransforms)
		if err != nil {
			return nil, err
		}

		for _, id := range entityIDs {
			features := batch[id]
			if features == nil {
				features = make(map[string]any, len(expected))
			}
			if spec.FillMissing {
				for _, name := range expected {
					if _, ok := features[name]; !ok {
						features[name] = spec.DefaultValue
					}
				}
			}
			for name, value := range features {
				vectors[id][group+"_"+name] = value
			}
		}
	}

	return vectors, nil
}

// FeatureStatistics aggregates read-only statistics for a feature group
// directly from the durable store, bypassing the cache.
func (c *Client) FeatureStatistics(ctx context.Context, featureGroup string) (Statistics, error) {
	return c.store.Statistics(ctx, featureGroup)
}

// applyTransforms runs each feature value through its registered transform.
// A failing transform keeps the original value and never aborts the
// sibling features of the same call.
func (c *Client) applyTransforms(features map[string]any) map[string]any {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if len(c.transforms) == 0 {
		return features
	}

	out := make(map[string]any, len(features))
	for name, value := range features {
		tr, ok := c.transforms[name]
		if !ok {
			out[name] = value
			continue
		}
		out[name] = c.safeApply(name, tr, value)
	}
	return out
}

func (c *Client) safeApply(featureName string, tr transform.Transform, value any) (result any) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Warn("feature transform failed, keeping original value",
				slog.String("feature_name", featureName),
				slog.Any("reason", r))
			result = value
		}
	}()
	return tr.Apply(value)
}
