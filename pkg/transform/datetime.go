package transform

import (
	"log/slog"
	"strings"
	"time"
)

// DateTimeOutput selects the output representation of a DateTime transform.
type DateTimeOutput string

const (
	// OutputEpoch emits the value as fractional seconds since the Unix epoch.
	OutputEpoch DateTimeOutput = "epoch"
	// OutputISO emits the value as an RFC 3339 string.
	OutputISO DateTimeOutput = "iso"
	// OutputComponents emits a map of calendar components
	// (year/month/day/hour/minute/second/weekday/day_of_year).
	OutputComponents DateTimeOutput = "components"
)

// defaultLayouts is the ordered parse chain tried against string input.
var defaultLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2006-01-02",
	"01/02/2006",
	"02/01/2006",
}

// DateTimeConfig configures a DateTime transform.
type DateTimeConfig struct {
	// Output selects the representation; defaults to OutputEpoch.
	Output DateTimeOutput
	// Layouts overrides the ordered string parse chain.
	Layouts []string
	// FillMissing substitutes DefaultValue for missing or unparseable input.
	FillMissing bool
	// DefaultValue is the instant used for missing input; zero means the
	// construction time.
	DefaultValue time.Time
}

// DateTime parses temporal features from instants, epoch numbers, or strings
// and emits them in a single configured representation.
type DateTime struct {
	cfg    DateTimeConfig
	logger *slog.Logger
}

// NewDateTime creates a datetime transform.
func NewDateTime(cfg DateTimeConfig, opts ...Option) *DateTime {
	o := applyOptions(opts)
	if cfg.Output == "" {
		cfg.Output = OutputEpoch
	}
	if len(cfg.Layouts) == 0 {
		cfg.Layouts = defaultLayouts
	}
	if cfg.DefaultValue.IsZero() {
		cfg.DefaultValue = time.Now().UTC()
	}
	return &DateTime{cfg: cfg, logger: o.logger}
}

// Apply parses the value into an instant and formats it per the configured
// output. Unparseable input degrades to the default instant or nil.
func (t *DateTime) Apply(value any) any {
	if isMissing(value) {
		if t.cfg.FillMissing {
			return t.format(t.cfg.DefaultValue)
		}
		return nil
	}

	dt, ok := t.parse(value)
	if !ok {
		t.logger.Warn("datetime transform: unable to parse value", slog.Any("value", value))
		if t.cfg.FillMissing {
			return t.format(t.cfg.DefaultValue)
		}
		return nil
	}
	return t.format(dt)
}

func (t *DateTime) parse(value any) (time.Time, bool) {
	switch v := value.(type) {
	case time.Time:
		return v, true
	case string:
		s := strings.TrimSpace(v)
		for _, layout := range t.cfg.Layouts {
			if dt, err := time.Parse(layout, s); err == nil {
				return dt, true
			}
		}
		return time.Time{}, false
	default:
		// Anything numeric is treated as a Unix timestamp.
		epoch, ok := toFloat(value)
		if !ok {
			return time.Time{}, false
		}
		sec := int64(epoch)
		nsec := int64((epoch - float64(sec)) * float64(time.Second))
		return time.Unix(sec, nsec).UTC(), true
	}
}

func (t *DateTime) format(dt time.Time) any {
	switch t.cfg.Output {
	case OutputISO:
		return dt.Format(time.RFC3339)
	case OutputComponents:
		return map[string]int{
			"year":   dt.Year(),
			"month":  int(dt.Month()),
			"day":    dt.Day(),
			"hour":   dt.Hour(),
			"minute": dt.Minute(),
			"second": dt.Second(),
			// Monday-based weekday, matching common feature pipelines.
			"weekday":     (int(dt.Weekday()) + 6) % 7,
			"day_of_year": dt.YearDay(),
		}
	default:
		// Summing whole seconds and the fractional part keeps whole-second
		// instants exact in float64.
		return float64(dt.Unix()) + float64(dt.Nanosecond())/float64(time.Second)
	}
}
