package mongostore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/dmitrymomot/featurekit/pkg/featurestore"
)

const collectionName = "feature_records"

// Storage implements featurestore.Repository over a MongoDB collection.
type Storage struct {
	db   *mongo.Database
	coll *mongo.Collection
}

// New creates a MongoDB-backed feature repository.
func New(db *mongo.Database) *Storage {
	return &Storage{db: db, coll: db.Collection(collectionName)}
}

// EnsureIndexes creates the unique version key and the serving/sweep
// indexes. Safe to call on every startup.
func (s *Storage) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "entity_id", Value: 1},
				{Key: "feature_group", Value: 1},
				{Key: "feature_name", Value: 1},
				{Key: "event_timestamp", Value: 1},
			},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{
				{Key: "entity_id", Value: 1},
				{Key: "feature_group", Value: 1},
				{Key: "is_active", Value: 1},
				{Key: "event_timestamp", Value: -1},
			},
		},
		{
			Keys: bson.D{
				{Key: "is_active", Value: 1},
				{Key: "ttl_timestamp", Value: 1},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("create feature indexes: %w", err)
	}
	return nil
}

type featureDocument struct {
	ID                 string            `bson:"_id"`
	EntityID           string            `bson:"entity_id"`
	FeatureGroup       string            `bson:"feature_group"`
	FeatureName        string            `bson:"feature_name"`
	Value              any               `bson:"value"`
	DataType           string            `bson:"data_type"`
	EventTimestamp     time.Time         `bson:"event_timestamp"`
	IngestionTimestamp time.Time         `bson:"ingestion_timestamp"`
	TTLTimestamp       *time.Time        `bson:"ttl_timestamp,omitempty"`
	SourceSystem       string            `bson:"source_system,omitempty"`
	Tags               map[string]string `bson:"tags,omitempty"`
	IsActive           bool              `bson:"is_active"`
}

// UpsertRecords writes all records with one bulk operation of replace
// upserts keyed on (entity_id, feature_group, feature_name,
// event_timestamp): last write wins and the document is reactivated.
func (s *Storage) UpsertRecords(ctx context.Context, records []featurestore.FeatureRecord) error {
	if len(records) == 0 {
		return nil
	}

	models := make([]mongo.WriteModel, 0, len(records))
	for _, rec := range records {
		if err := validateRecord(rec); err != nil {
			return err
		}
		id := rec.ID
		if id == uuid.Nil {
			id = uuid.New()
		}
		doc := featureDocument{
			ID:                 id.String(),
			EntityID:           rec.EntityID,
			FeatureGroup:       rec.FeatureGroup,
			FeatureName:        rec.FeatureName,
			Value:              rec.Value,
			DataType:           string(rec.DataType),
			EventTimestamp:     rec.EventTimestamp,
			IngestionTimestamp: rec.IngestionTimestamp,
			TTLTimestamp:       rec.TTLTimestamp,
			SourceSystem:       rec.SourceSystem,
			Tags:               rec.Tags,
			IsActive:           true,
		}
		models = append(models, mongo.NewReplaceOneModel().
			SetFilter(versionKey(rec)).
			SetReplacement(doc).
			SetUpsert(true))
	}

	if _, err := s.coll.BulkWrite(ctx, models); err != nil {
		return fmt.Errorf("bulk upsert features: %w", err)
	}
	return nil
}

// QueryFeatures returns the newest active value per feature name for one
// entity. An empty featureNames slice returns all features of the group.
func (s *Storage) QueryFeatures(ctx context.Context, entityID, featureGroup string, featureNames []string) (map[string]any, error) {
	filter := bson.M{
		"entity_id":     entityID,
		"feature_group": featureGroup,
		"is_active":     true,
	}
	if len(featureNames) > 0 {
		filter["feature_name"] = bson.M{"$in": featureNames}
	}

	cursor, err := s.coll.Find(ctx, filter,
		options.Find().SetSort(bson.D{{Key: "event_timestamp", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("query features: %w", err)
	}
	defer cursor.Close(ctx)

	// Sorted newest first, so the first document seen per name wins.
	features := make(map[string]any)
	for cursor.Next(ctx) {
		var doc featureDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode feature document: %w", err)
		}
		if _, seen := features[doc.FeatureName]; !seen {
			features[doc.FeatureName] = normalizeValue(doc.Value)
		}
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("iterate feature documents: %w", err)
	}
	return features, nil
}

// QueryBatchFeatures resolves many entities with a single query. Entities
// with no active features are absent from the result.
func (s *Storage) QueryBatchFeatures(ctx context.Context, entityIDs []string, featureGroup string, featureNames []string) (map[string]map[string]any, error) {
	result := make(map[string]map[string]any, len(entityIDs))
	if len(entityIDs) == 0 {
		return result, nil
	}

	filter := bson.M{
		"entity_id":     bson.M{"$in": entityIDs},
		"feature_group": featureGroup,
		"is_active":     true,
	}
	if len(featureNames) > 0 {
		filter["feature_name"] = bson.M{"$in": featureNames}
	}

	cursor, err := s.coll.Find(ctx, filter,
		options.Find().SetSort(bson.D{{Key: "event_timestamp", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("query batch features: %w", err)
	}
	defer cursor.Close(ctx)

	for cursor.Next(ctx) {
		var doc featureDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode feature document: %w", err)
		}
		features, ok := result[doc.EntityID]
		if !ok {
			features = make(map[string]any)
			result[doc.EntityID] = features
		}
		if _, seen := features[doc.FeatureName]; !seen {
			features[doc.FeatureName] = normalizeValue(doc.Value)
		}
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("iterate batch feature documents: %w", err)
	}
	return result, nil
}

// DeactivateFeatures soft-deletes all active documents for the pair.
func (s *Storage) DeactivateFeatures(ctx context.Context, entityID, featureGroup string) error {
	filter := bson.M{
		"entity_id":     entityID,
		"feature_group": featureGroup,
		"is_active":     true,
	}
	if _, err := s.coll.UpdateMany(ctx, filter, bson.M{"$set": bson.M{"is_active": false}}); err != nil {
		return fmt.Errorf("deactivate features: %w", err)
	}
	return nil
}

// DeactivateExpired soft-deletes active documents whose TTL passed and
// returns the number modified. The is_active predicate makes it idempotent.
func (s *Storage) DeactivateExpired(ctx context.Context, now time.Time) (int64, error) {
	filter := bson.M{
		"is_active":     true,
		"ttl_timestamp": bson.M{"$ne": nil, "$lte": now},
	}
	res, err := s.coll.UpdateMany(ctx, filter, bson.M{"$set": bson.M{"is_active": false}})
	if err != nil {
		return 0, fmt.Errorf("deactivate expired features: %w", err)
	}
	return res.ModifiedCount, nil
}

// ListFeatureGroups returns the distinct feature groups in sorted order.
func (s *Storage) ListFeatureGroups(ctx context.Context) ([]string, error) {
	var groups []string
	if err := s.coll.Distinct(ctx, "feature_group", bson.D{}).Decode(&groups); err != nil {
		return nil, fmt.Errorf("list feature groups: %w", err)
	}
	sort.Strings(groups)
	return groups, nil
}

// GroupStatistics aggregates over the active documents of one feature group.
func (s *Storage) GroupStatistics(ctx context.Context, featureGroup string) (featurestore.Statistics, error) {
	stats := featurestore.Statistics{
		FeatureGroup:         featureGroup,
		FeatureCounts:        make(map[string]int64),
		DataTypeDistribution: make(map[featurestore.DataType]int64),
		CollectedAt:          time.Now().UTC(),
	}

	match := bson.M{"feature_group": featureGroup, "is_active": true}

	var entities []string
	if err := s.coll.Distinct(ctx, "entity_id", match).Decode(&entities); err != nil {
		return featurestore.Statistics{}, fmt.Errorf("count unique entities: %w", err)
	}
	stats.UniqueEntities = int64(len(entities))

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$group", Value: bson.M{
			"_id": bson.M{
				"feature_name": "$feature_name",
				"data_type":    "$data_type",
			},
			"count": bson.M{"$sum": 1},
		}}},
	}
	cursor, err := s.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return featurestore.Statistics{}, fmt.Errorf("aggregate group statistics: %w", err)
	}
	defer cursor.Close(ctx)

	var rows []struct {
		ID struct {
			FeatureName string `bson:"feature_name"`
			DataType    string `bson:"data_type"`
		} `bson:"_id"`
		Count int64 `bson:"count"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return featurestore.Statistics{}, fmt.Errorf("decode group statistics: %w", err)
	}
	for _, row := range rows {
		stats.FeatureCounts[row.ID.FeatureName] += row.Count
		stats.DataTypeDistribution[featurestore.DataType(row.ID.DataType)] += row.Count
		stats.TotalFeatures += row.Count
	}
	return stats, nil
}

// Ping probes database connectivity.
func (s *Storage) Ping(ctx context.Context) error {
	if err := s.db.Client().Ping(ctx, nil); err != nil {
		return errors.Join(ErrHealthcheckFailed, err)
	}
	return nil
}

func versionKey(rec featurestore.FeatureRecord) bson.M {
	return bson.M{
		"entity_id":       rec.EntityID,
		"feature_group":   rec.FeatureGroup,
		"feature_name":    rec.FeatureName,
		"event_timestamp": rec.EventTimestamp,
	}
}

func validateRecord(rec featurestore.FeatureRecord) error {
	switch {
	case rec.EntityID == "":
		return errors.New("feature record missing entity id")
	case rec.FeatureGroup == "":
		return errors.New("feature record missing feature group")
	case rec.FeatureName == "":
		return errors.New("feature record missing feature name")
	case !rec.DataType.Valid():
		return fmt.Errorf("feature record %q has invalid data type %q", rec.FeatureName, rec.DataType)
	}
	return nil
}

// normalizeValue converts BSON decode artifacts to the shapes the cache
// tier produces from JSON: integers become float64, documents become
// map[string]any, arrays become []any. Feature reads then return the same
// types regardless of which tier served them.
func normalizeValue(value any) any {
	switch v := value.(type) {
	case int32:
		return float64(v)
	case int64:
		return float64(v)
	case bson.D:
		m := make(map[string]any, len(v))
		for _, e := range v {
			m[e.Key] = normalizeValue(e.Value)
		}
		return m
	case bson.M:
		m := make(map[string]any, len(v))
		for k, e := range v {
			m[k] = normalizeValue(e)
		}
		return m
	case bson.A:
		a := make([]any, len(v))
		for i, e := range v {
			a[i] = normalizeValue(e)
		}
		return a
	default:
		return value
	}
}
