package transform_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/featurekit/pkg/transform"
)

func TestDateTime(t *testing.T) {
	t.Parallel()

	instant := time.Date(2024, time.March, 15, 10, 30, 45, 0, time.UTC)

	t.Run("epoch output from instant", func(t *testing.T) {
		t.Parallel()
		tr := transform.NewDateTime(transform.DateTimeConfig{Output: transform.OutputEpoch})

		assert.Equal(t, float64(instant.Unix()), tr.Apply(instant))
	})

	t.Run("epoch output from numeric timestamp", func(t *testing.T) {
		t.Parallel()
		tr := transform.NewDateTime(transform.DateTimeConfig{Output: transform.OutputEpoch})

		assert.Equal(t, 1700000000.0, tr.Apply(1700000000))
	})

	t.Run("iso output from string", func(t *testing.T) {
		t.Parallel()
		tr := transform.NewDateTime(transform.DateTimeConfig{Output: transform.OutputISO})

		assert.Equal(t, "2024-03-15T10:30:45Z", tr.Apply("2024-03-15 10:30:45"))
		assert.Equal(t, "2024-03-15T00:00:00Z", tr.Apply("2024-03-15"))
	})

	t.Run("components output", func(t *testing.T) {
		t.Parallel()
		tr := transform.NewDateTime(transform.DateTimeConfig{Output: transform.OutputComponents})

		got, ok := tr.Apply(instant).(map[string]int)
		require.True(t, ok)
		assert.Equal(t, 2024, got["year"])
		assert.Equal(t, 3, got["month"])
		assert.Equal(t, 15, got["day"])
		assert.Equal(t, 10, got["hour"])
		assert.Equal(t, 30, got["minute"])
		assert.Equal(t, 45, got["second"])
		// 2024-03-15 is a Friday; weekday is Monday-based.
		assert.Equal(t, 4, got["weekday"])
		assert.Equal(t, 75, got["day_of_year"])
	})

	t.Run("parse chain tries multiple layouts", func(t *testing.T) {
		t.Parallel()
		tr := transform.NewDateTime(transform.DateTimeConfig{Output: transform.OutputISO})

		assert.Equal(t, "2024-03-15T00:00:00Z", tr.Apply("03/15/2024"))
		assert.Equal(t, "2024-03-15T10:30:45Z", tr.Apply("2024-03-15T10:30:45"))
	})

	t.Run("unparseable string degrades to default", func(t *testing.T) {
		t.Parallel()
		tr := transform.NewDateTime(transform.DateTimeConfig{
			Output:       transform.OutputEpoch,
			FillMissing:  true,
			DefaultValue: instant,
		})

		assert.Equal(t, float64(instant.Unix()), tr.Apply("not a date"))
	})

	t.Run("missing without fill returns nil", func(t *testing.T) {
		t.Parallel()
		tr := transform.NewDateTime(transform.DateTimeConfig{Output: transform.OutputEpoch})

		assert.Nil(t, tr.Apply(nil))
		assert.Nil(t, tr.Apply(""))
	})
}
