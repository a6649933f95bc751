package transform

import (
	"log/slog"
	"strconv"
	"strings"
)

// Transform converts a raw feature value into its model-ready form.
// Implementations never return an error to the caller: failures degrade to
// the configured default value or nil, depending on the missing-value policy.
type Transform interface {
	Apply(value any) any
}

// Option configures a transform.
type Option func(*options)

type options struct {
	logger *slog.Logger
}

// WithLogger sets the logger used to report degraded conversions.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

func applyOptions(opts []Option) options {
	o := options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Float returns a pointer to v, for use in optional bound fields.
func Float(v float64) *float64 { return &v }

// isMissing reports whether a value counts as absent: nil or a blank string.
func isMissing(value any) bool {
	if value == nil {
		return true
	}
	if s, ok := value.(string); ok && strings.TrimSpace(s) == "" {
		return true
	}
	return false
}

// toFloat coerces the scalar types a feature value may arrive as into a
// float64. Strings are parsed, booleans map to 1/0.
func toFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int8:
		return float64(v), true
	case int16:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint8:
		return float64(v), true
	case uint16:
		return float64(v), true
	case uint32:
		return float64(v), true
	case uint64:
		return float64(v), true
	case bool:
		if v {
			return 1, true
		}
		return 0, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}
