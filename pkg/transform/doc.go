// Package transform provides value-level feature transformations applied
// symmetrically on the write and read paths of the feature store.
//
// Each transformation implements the Transform interface and is configured
// with a missing-value policy (FillMissing + DefaultValue). Transformations
// never return errors and never panic: any internal failure degrades to the
// configured default value (when FillMissing is set) or to nil, so a single
// bad value can never abort the surrounding batch.
//
// Five variants are provided:
//
//   - Numeric     — bounds clipping and optional min-max normalization
//   - Categorical — allow-list validation with optional numeric encoding
//   - DateTime    — multi-format parsing with epoch/ISO/component output
//   - Boolean     — configurable truthy/falsy token sets
//   - Text        — trim, lowercase, special-character strip, truncation
//
// Usage:
//
//	t := transform.NewNumeric(transform.NumericConfig{
//		Min:          transform.Float(0),
//		Max:          transform.Float(100),
//		Normalize:    true,
//		ClipOutliers: true,
//		FillMissing:  true,
//		DefaultValue: 0.0,
//	})
//	v := t.Apply(50) // 0.5
package transform
