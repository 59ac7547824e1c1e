// Package timeline defines the canonical timeline schema consumed by the
// render pipeline, along with validation, duration derivation, and merge-field
// substitution.
//
// The JSON layout is a compatibility contract with existing producers and must
// be preserved field for field.
package timeline
