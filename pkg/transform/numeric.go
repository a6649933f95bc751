package transform

import "log/slog"

// NumericConfig configures a Numeric transform.
type NumericConfig struct {
	// Min and Max bound the accepted value range; nil means unbounded.
	Min *float64
	Max *float64
	// Normalize rescales the value to [0, 1] using Min and Max.
	// It requires both bounds to be set and Max > Min, otherwise it is a no-op.
	Normalize bool
	// ClipOutliers clamps the value into [Min, Max] before normalization.
	ClipOutliers bool
	// FillMissing substitutes DefaultValue for missing or unparseable input.
	FillMissing  bool
	DefaultValue float64
}

// Numeric transforms numeric features with bounds checking and normalization.
type Numeric struct {
	cfg    NumericConfig
	logger *slog.Logger
}

// NewNumeric creates a numeric transform.
func NewNumeric(cfg NumericConfig, opts ...Option) *Numeric {
	o := applyOptions(opts)
	return &Numeric{cfg: cfg, logger: o.logger}
}

// Apply coerces the value to a float64, clips it into the configured bounds,
// and optionally normalizes it to [0, 1]. Non-numeric input degrades to the
// default value or nil.
func (t *Numeric) Apply(value any) any {
	if isMissing(value) {
		if t.cfg.FillMissing {
			return t.cfg.DefaultValue
		}
		return nil
	}

	v, ok := toFloat(value)
	if !ok {
		t.logger.Warn("numeric transform: value is not numeric", slog.Any("value", value))
		if t.cfg.FillMissing {
			return t.cfg.DefaultValue
		}
		return nil
	}

	if t.cfg.ClipOutliers {
		if t.cfg.Min != nil && v < *t.cfg.Min {
			v = *t.cfg.Min
		}
		if t.cfg.Max != nil && v > *t.cfg.Max {
			v = *t.cfg.Max
		}
	}

	if t.cfg.Normalize && t.cfg.Min != nil && t.cfg.Max != nil && *t.cfg.Max > *t.cfg.Min {
		v = (v - *t.cfg.Min) / (*t.cfg.Max - *t.cfg.Min)
	}

	return v
}
