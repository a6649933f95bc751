package transform

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"
)

var specialChars = regexp.MustCompile(`[^a-zA-Z0-9\s]`)

// TextConfig configures a Text transform.
type TextConfig struct {
	// MaxLength truncates the output to this many runes; zero means unbounded.
	MaxLength int
	// Lowercase converts the value to lowercase.
	Lowercase bool
	// StripWhitespace trims leading and trailing whitespace.
	StripWhitespace bool
	// RemoveSpecialChars strips everything outside [a-zA-Z0-9\s].
	RemoveSpecialChars bool
	// FillMissing substitutes DefaultValue for missing input.
	FillMissing  bool
	DefaultValue string
}

// Text cleans free-form text features through an ordered pipeline of
// trim, lowercase, special-character strip, and truncation.
type Text struct {
	cfg    TextConfig
	logger *slog.Logger
}

// NewText creates a text transform.
func NewText(cfg TextConfig, opts ...Option) *Text {
	o := applyOptions(opts)
	return &Text{cfg: cfg, logger: o.logger}
}

// Apply normalizes the value as text.
func (t *Text) Apply(value any) any {
	if isMissing(value) {
		if t.cfg.FillMissing {
			return t.cfg.DefaultValue
		}
		return nil
	}

	s := fmt.Sprint(value)

	if t.cfg.StripWhitespace {
		s = strings.TrimSpace(s)
	}
	if t.cfg.Lowercase {
		s = strings.ToLower(s)
	}
	if t.cfg.RemoveSpecialChars {
		s = specialChars.ReplaceAllString(s, "")
	}
	if t.cfg.MaxLength > 0 {
		if runes := []rune(s); len(runes) > t.cfg.MaxLength {
			s = string(runes[:t.cfg.MaxLength])
		}
	}

	return s
}
