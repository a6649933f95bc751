package pgstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmitrymomot/featurekit/pkg/featurestore"
)

// Storage implements featurestore.Repository over a pgx connection pool.
// Feature values and tags are stored as JSONB; soft deletes flip is_active
// so history remains queryable.
type Storage struct {
	pool *pgxpool.Pool
}

// New creates a PostgreSQL-backed feature repository.
func New(pool *pgxpool.Pool) *Storage {
	return &Storage{pool: pool}
}

// UpsertRecords writes all records within a single transaction. A record
// matching an existing (entity_id, feature_group, feature_name,
// event_timestamp) key overwrites that row: last write wins, the row is
// reactivated, and the ingestion timestamp is refreshed.
func (s *Storage) UpsertRecords(ctx context.Context, records []featurestore.FeatureRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin upsert transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	const query = `
		INSERT INTO feature_records (
			id, entity_id, feature_group, feature_name, value, data_type,
			event_timestamp, ingestion_timestamp, ttl_timestamp,
			source_system, tags, is_active
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, TRUE)
		ON CONFLICT (entity_id, feature_group, feature_name, event_timestamp)
		DO UPDATE SET
			value               = EXCLUDED.value,
			data_type           = EXCLUDED.data_type,
			ingestion_timestamp = EXCLUDED.ingestion_timestamp,
			ttl_timestamp       = EXCLUDED.ttl_timestamp,
			source_system       = EXCLUDED.source_system,
			tags                = EXCLUDED.tags,
			is_active           = TRUE`

	for _, rec := range records {
		if err := validateRecord(rec); err != nil {
			return err
		}
		id := rec.ID
		if id == uuid.Nil {
			id = uuid.New()
		}
		value, err := json.Marshal(rec.Value)
		if err != nil {
			return fmt.Errorf("marshal feature value %q: %w", rec.FeatureName, err)
		}
		var tags []byte
		if len(rec.Tags) > 0 {
			if tags, err = json.Marshal(rec.Tags); err != nil {
				return fmt.Errorf("marshal feature tags %q: %w", rec.FeatureName, err)
			}
		}

		if _, err := tx.Exec(ctx, query,
			id, rec.EntityID, rec.FeatureGroup, rec.FeatureName, value, rec.DataType,
			rec.EventTimestamp, rec.IngestionTimestamp, rec.TTLTimestamp,
			rec.SourceSystem, tags,
		); err != nil {
			return fmt.Errorf("upsert feature %q: %w", rec.FeatureName, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit upsert transaction: %w", err)
	}
	return nil
}

// QueryFeatures returns the newest active value per feature name for one
// entity. An empty featureNames slice returns all features of the group.
func (s *Storage) QueryFeatures(ctx context.Context, entityID, featureGroup string, featureNames []string) (map[string]any, error) {
	query := `
		SELECT DISTINCT ON (feature_name) feature_name, value
		FROM feature_records
		WHERE entity_id = $1 AND feature_group = $2 AND is_active`
	args := []any{entityID, featureGroup}
	if len(featureNames) > 0 {
		query += ` AND feature_name = ANY($3)`
		args = append(args, featureNames)
	}
	query += ` ORDER BY feature_name, event_timestamp DESC`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query features: %w", err)
	}
	defer rows.Close()

	features := make(map[string]any)
	for rows.Next() {
		var (
			name string
			raw  []byte
		)
		if err := rows.Scan(&name, &raw); err != nil {
			return nil, fmt.Errorf("scan feature row: %w", err)
		}
		var value any
		if err := json.Unmarshal(raw, &value); err != nil {
			return nil, fmt.Errorf("decode feature value %q: %w", name, err)
		}
		features[name] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate feature rows: %w", err)
	}
	return features, nil
}

// QueryBatchFeatures resolves many entities with a single query, grouping
// the newest active value per (entity, feature name). Entities with no
// active features are absent from the result.
func (s *Storage) QueryBatchFeatures(ctx context.Context, entityIDs []string, featureGroup string, featureNames []string) (map[string]map[string]any, error) {
	result := make(map[string]map[string]any, len(entityIDs))
	if len(entityIDs) == 0 {
		return result, nil
	}

	query := `
		SELECT DISTINCT ON (entity_id, feature_name) entity_id, feature_name, value
		FROM feature_records
		WHERE entity_id = ANY($1) AND feature_group = $2 AND is_active`
	args := []any{entityIDs, featureGroup}
	if len(featureNames) > 0 {
		query += ` AND feature_name = ANY($3)`
		args = append(args, featureNames)
	}
	query += ` ORDER BY entity_id, feature_name, event_timestamp DESC`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query batch features: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			entityID string
			name     string
			raw      []byte
		)
		if err := rows.Scan(&entityID, &name, &raw); err != nil {
			return nil, fmt.Errorf("scan batch feature row: %w", err)
		}
		var value any
		if err := json.Unmarshal(raw, &value); err != nil {
			return nil, fmt.Errorf("decode feature value %q: %w", name, err)
		}
		features, ok := result[entityID]
		if !ok {
			features = make(map[string]any)
			result[entityID] = features
		}
		features[name] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate batch feature rows: %w", err)
	}
	return result, nil
}

// DeactivateFeatures soft-deletes all active rows for the pair. Missing
// rows are not an error.
func (s *Storage) DeactivateFeatures(ctx context.Context, entityID, featureGroup string) error {
	const query = `
		UPDATE feature_records
		SET is_active = FALSE
		WHERE entity_id = $1 AND feature_group = $2 AND is_active`
	if _, err := s.pool.Exec(ctx, query, entityID, featureGroup); err != nil {
		return fmt.Errorf("deactivate features: %w", err)
	}
	return nil
}

// DeactivateExpired soft-deletes active rows whose TTL passed and returns
// the number affected. The is_active predicate makes the sweep idempotent.
func (s *Storage) DeactivateExpired(ctx context.Context, now time.Time) (int64, error) {
	const query = `
		UPDATE feature_records
		SET is_active = FALSE
		WHERE is_active AND ttl_timestamp IS NOT NULL AND ttl_timestamp <= $1`
	tag, err := s.pool.Exec(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("deactivate expired features: %w", err)
	}
	return tag.RowsAffected(), nil
}

// ListFeatureGroups returns the distinct feature groups in sorted order.
func (s *Storage) ListFeatureGroups(ctx context.Context) ([]string, error) {
	const query = `
		SELECT DISTINCT feature_group
		FROM feature_records
		ORDER BY feature_group`
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list feature groups: %w", err)
	}
	groups, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("collect feature groups: %w", err)
	}
	return groups, nil
}

// GroupStatistics aggregates over the active rows of one feature group.
func (s *Storage) GroupStatistics(ctx context.Context, featureGroup string) (featurestore.Statistics, error) {
	stats := featurestore.Statistics{
		FeatureGroup:         featureGroup,
		FeatureCounts:        make(map[string]int64),
		DataTypeDistribution: make(map[featurestore.DataType]int64),
		CollectedAt:          time.Now().UTC(),
	}

	const entityQuery = `
		SELECT COUNT(DISTINCT entity_id)
		FROM feature_records
		WHERE feature_group = $1 AND is_active`
	if err := s.pool.QueryRow(ctx, entityQuery, featureGroup).Scan(&stats.UniqueEntities); err != nil {
		return featurestore.Statistics{}, fmt.Errorf("count unique entities: %w", err)
	}

	const countQuery = `
		SELECT feature_name, data_type, COUNT(*)
		FROM feature_records
		WHERE feature_group = $1 AND is_active
		GROUP BY feature_name, data_type`
	rows, err := s.pool.Query(ctx, countQuery, featureGroup)
	if err != nil {
		return featurestore.Statistics{}, fmt.Errorf("query group statistics: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			name     string
			dataType featurestore.DataType
			count    int64
		)
		if err := rows.Scan(&name, &dataType, &count); err != nil {
			return featurestore.Statistics{}, fmt.Errorf("scan statistics row: %w", err)
		}
		stats.FeatureCounts[name] += count
		stats.DataTypeDistribution[dataType] += count
		stats.TotalFeatures += count
	}
	if err := rows.Err(); err != nil {
		return featurestore.Statistics{}, fmt.Errorf("iterate statistics rows: %w", err)
	}
	return stats, nil
}

// Ping probes database connectivity.
func (s *Storage) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
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
