// internal/types/nullable.go
package types

import "fmt"

// NullFloat is a float that may not have been loaded yet. The UI renders an
// unset value as a placeholder, never as zero.
type NullFloat struct {
	Float64 float64
	Valid   bool
}

// Some wraps a known value.
func Some(v float64) NullFloat {
	return NullFloat{Float64: v, Valid: true}
}

// Positive reports whether the value is set and greater than zero.
func (n NullFloat) Positive() bool {
	return n.Valid && n.Float64 > 0
}

// Or returns the value, or def when unset.
func (n NullFloat) Or(def float64) float64 {
	if !n.Valid {
		return def
	}
	return n.Float64
}

// Format applies a printf verb to the value, or returns placeholder when unset.
func (n NullFloat) Format(verb, placeholder string) string {
	if !n.Valid {
		return placeholder
	}
	return fmt.Sprintf(verb, n.Float64)
}

func (n NullFloat) String() string {
	return n.Format("%g", "null")
}
