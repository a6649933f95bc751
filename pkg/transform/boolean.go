package transform

import (
	"log/slog"
	"strings"
)

// defaultTrueValues and defaultFalseValues are the token sets used when the
// config does not supply its own.
var (
	defaultTrueValues  = []string{"true", "yes", "1", "y", "on", "enabled"}
	defaultFalseValues = []string{"false", "no", "0", "n", "off", "disabled"}
)

// BooleanConfig configures a Boolean transform.
type BooleanConfig struct {
	// TrueValues and FalseValues are the string tokens recognised as
	// true/false, matched case-insensitively after trimming.
	TrueValues  []string
	FalseValues []string
	// OutputAsNumeric emits 1/0 instead of true/false.
	OutputAsNumeric bool
	// FillMissing substitutes DefaultValue for missing input.
	FillMissing  bool
	DefaultValue bool
}

// Boolean normalizes loosely-typed boolean features.
type Boolean struct {
	cfg    BooleanConfig
	truthy map[string]struct{}
	falsy  map[string]struct{}
	logger *slog.Logger
}

// NewBoolean creates a boolean transform.
func NewBoolean(cfg BooleanConfig, opts ...Option) *Boolean {
	o := applyOptions(opts)
	if len(cfg.TrueValues) == 0 {
		cfg.TrueValues = defaultTrueValues
	}
	if len(cfg.FalseValues) == 0 {
		cfg.FalseValues = defaultFalseValues
	}
	t := &Boolean{
		cfg:    cfg,
		truthy: make(map[string]struct{}, len(cfg.TrueValues)),
		falsy:  make(map[string]struct{}, len(cfg.FalseValues)),
		logger: o.logger,
	}
	for _, v := range cfg.TrueValues {
		t.truthy[strings.ToLower(v)] = struct{}{}
	}
	for _, v := range cfg.FalseValues {
		t.falsy[strings.ToLower(v)] = struct{}{}
	}
	return t
}

// Apply interprets the value as a boolean. Strings are matched against the
// configured token sets; unmatched non-empty values fall back to a generic
// truthiness cast.
func (t *Boolean) Apply(value any) any {
	if isMissing(value) {
		if t.cfg.FillMissing {
			return t.output(t.cfg.DefaultValue)
		}
		return nil
	}

	var b bool
	switch v := value.(type) {
	case bool:
		b = v
	case string:
		s := strings.ToLower(strings.TrimSpace(v))
		if _, ok := t.truthy[s]; ok {
			b = true
		} else if _, ok := t.falsy[s]; ok {
			b = false
		} else {
			// Unmatched non-empty string: any content counts as true.
			b = s != ""
		}
	default:
		if f, ok := toFloat(value); ok {
			b = f != 0
		} else {
			// Non-scalar values are present, hence truthy.
			b = true
		}
	}

	return t.output(b)
}

func (t *Boolean) output(b bool) any {
	if t.cfg.OutputAsNumeric {
		if b {
			return 1
		}
		return 0
	}
	return b
}
