package transform

import (
	"fmt"
	"log/slog"
	"strings"
)

// CategoricalConfig configures a Categorical transform.
type CategoricalConfig struct {
	// ValidCategories is the allow-list of accepted values. Empty means any
	// value passes validation unchanged.
	ValidCategories []string
	// CaseSensitive controls whether allow-list matching distinguishes case.
	CaseSensitive bool
	// EncodeAsNumeric outputs the ordinal index of the category within
	// ValidCategories. Values outside the allow-list map to the overflow
	// bucket len(ValidCategories).
	EncodeAsNumeric bool
	// FillMissing substitutes DefaultValue for missing or invalid input.
	FillMissing  bool
	DefaultValue string
}

// Categorical validates feature values against an allow-list and optionally
// encodes them as ordinals.
type Categorical struct {
	cfg    CategoricalConfig
	index  map[string]int
	logger *slog.Logger
}

// NewCategorical creates a categorical transform. The ordinal index is built
// once at construction: each valid category maps to its position, and the
// default value (when not itself a valid category) maps to the overflow
// bucket len(ValidCategories).
func NewCategorical(cfg CategoricalConfig, opts ...Option) *Categorical {
	o := applyOptions(opts)
	t := &Categorical{
		cfg:    cfg,
		index:  make(map[string]int, len(cfg.ValidCategories)+1),
		logger: o.logger,
	}
	for i, cat := range cfg.ValidCategories {
		t.index[t.canon(cat)] = i
	}
	if _, ok := t.index[t.canon(cfg.DefaultValue)]; !ok {
		t.index[t.canon(cfg.DefaultValue)] = len(cfg.ValidCategories)
	}
	return t
}

func (t *Categorical) canon(s string) string {
	if t.cfg.CaseSensitive {
		return s
	}
	return strings.ToLower(s)
}

// Apply validates the value against the allow-list. Invalid values degrade
// to the default value (string mode) or the overflow index (numeric mode).
func (t *Categorical) Apply(value any) any {
	if isMissing(value) {
		if !t.cfg.FillMissing {
			return nil
		}
		value = t.cfg.DefaultValue
	}

	key := t.canon(strings.TrimSpace(fmt.Sprint(value)))

	if len(t.cfg.ValidCategories) > 0 && !t.isValid(key) {
		if !t.cfg.FillMissing {
			return nil
		}
		key = t.canon(t.cfg.DefaultValue)
	}

	if t.cfg.EncodeAsNumeric {
		if idx, ok := t.index[key]; ok {
			return idx
		}
		return len(t.cfg.ValidCategories)
	}
	return key
}

func (t *Categorical) isValid(key string) bool {
	idx, ok := t.index[key]
	return ok && idx < len(t.cfg.ValidCategories)
}
