package transform_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dmitrymomot/featurekit/pkg/transform"
)

func TestBoolean(t *testing.T) {
	t.Parallel()

	t.Run("default token sets", func(t *testing.T) {
		t.Parallel()
		tr := transform.NewBoolean(transform.BooleanConfig{})

		assert.Equal(t, true, tr.Apply("yes"))
		assert.Equal(t, true, tr.Apply(" ON "))
		assert.Equal(t, true, tr.Apply("Enabled"))
		assert.Equal(t, false, tr.Apply("no"))
		assert.Equal(t, false, tr.Apply("0"))
		assert.Equal(t, false, tr.Apply("OFF"))
	})

	t.Run("custom token sets", func(t *testing.T) {
		t.Parallel()
		tr := transform.NewBoolean(transform.BooleanConfig{
			TrueValues:  []string{"ja"},
			FalseValues: []string{"nein"},
		})

		assert.Equal(t, true, tr.Apply("JA"))
		assert.Equal(t, false, tr.Apply("nein"))
	})

	t.Run("native and numeric inputs", func(t *testing.T) {
		t.Parallel()
		tr := transform.NewBoolean(transform.BooleanConfig{})

		assert.Equal(t, true, tr.Apply(true))
		assert.Equal(t, false, tr.Apply(false))
		assert.Equal(t, true, tr.Apply(1))
		assert.Equal(t, false, tr.Apply(0))
		assert.Equal(t, true, tr.Apply(0.5))
	})

	t.Run("unmatched non-empty string is truthy", func(t *testing.T) {
		t.Parallel()
		tr := transform.NewBoolean(transform.BooleanConfig{})

		assert.Equal(t, true, tr.Apply("maybe"))
	})

	t.Run("numeric output", func(t *testing.T) {
		t.Parallel()
		tr := transform.NewBoolean(transform.BooleanConfig{OutputAsNumeric: true})

		assert.Equal(t, 1, tr.Apply("yes"))
		assert.Equal(t, 0, tr.Apply("no"))
	})

	t.Run("missing value policy", func(t *testing.T) {
		t.Parallel()
		filled := transform.NewBoolean(transform.BooleanConfig{
			FillMissing:     true,
			DefaultValue:    true,
			OutputAsNumeric: true,
		})
		strict := transform.NewBoolean(transform.BooleanConfig{})

		assert.Equal(t, 1, filled.Apply(nil))
		assert.Nil(t, strict.Apply(nil))
	})
}
