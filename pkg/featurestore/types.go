package featurestore

import (
	"time"

	"github.com/google/uuid"
)

// DataType classifies a feature value in the durable store.
type DataType string

const (
	DataTypeNumeric     DataType = "numeric"
	DataTypeCategorical DataType = "categorical"
	DataTypeText        DataType = "text"
	DataTypeDateTime    DataType = "datetime"
	DataTypeBoolean     DataType = "boolean"
)

// Valid checks if the data type is one of the known values.
func (d DataType) Valid() bool {
	switch d {
	case DataTypeNumeric, DataTypeCategorical, DataTypeText, DataTypeDateTime, DataTypeBoolean:
		return true
	}
	return false
}

// DetectDataType classifies a raw feature value. Strings are treated as
// categorical; anything that is not a recognised scalar falls back to text
// and is persisted in its JSON form.
func DetectDataType(value any) DataType {
	switch value.(type) {
	case bool:
		return DataTypeBoolean
	case int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return DataTypeNumeric
	case string:
		return DataTypeCategorical
	case time.Time:
		return DataTypeDateTime
	default:
		return DataTypeText
	}
}

// FeatureRecord is one durable row of the system of record. Uniqueness is
// enforced on (EntityID, FeatureGroup, FeatureName, EventTimestamp): a write
// with an identical key overwrites that exact version (last write wins), a
// write with a new EventTimestamp is a new version.
type FeatureRecord struct {
	ID                 uuid.UUID         `json:"id"`
	EntityID           string            `json:"entity_id"`
	FeatureGroup       string            `json:"feature_group"`
	FeatureName        string            `json:"feature_name"`
	Value              any               `json:"value"`
	DataType           DataType          `json:"data_type"`
	EventTimestamp     time.Time         `json:"event_timestamp"`
	IngestionTimestamp time.Time         `json:"ingestion_timestamp"`
	TTLTimestamp       *time.Time        `json:"ttl_timestamp,omitempty"`
	SourceSystem       string            `json:"source_system,omitempty"`
	Tags               map[string]string `json:"tags,omitempty"`
	IsActive           bool              `json:"is_active"`
}

// HealthStatus reports the connectivity of both backends. Each probe is
// independent so one unhealthy backend cannot mask the other.
type HealthStatus struct {
	CacheConnected bool      `json:"cache_connected"`
	StoreConnected bool      `json:"store_connected"`
	CheckedAt      time.Time `json:"checked_at"`
}

// Statistics is a read-only aggregation over the active rows of one feature
// group, collected directly from the durable store.
type Statistics struct {
	FeatureGroup         string             `json:"feature_group"`
	UniqueEntities       int64              `json:"unique_entities"`
	FeatureCounts        map[string]int64   `json:"feature_counts"`
	DataTypeDistribution map[DataType]int64 `json:"data_type_distribution"`
	TotalFeatures        int64              `json:"total_features"`
	CollectedAt          time.Time          `json:"collected_at"`
}
