// Package thresholds decides whether a measurement violates a user's
// configured [min,max] bounds. A nil bound means unconstrained on that side
// and a nil value can never be flagged.
package thresholds

import "fmt"

// OutOfRange reports whether value falls outside the configured bounds.
func OutOfRange(value, min, max *float64) bool {
	if value == nil {
		return false
	}
	if min != nil && *value < *min {
		return true
	}
	if max != nil && *value > *max {
		return true
	}
	return false
}

// ExpectedRange renders the configured bounds for alert text, substituting
// infinity symbols for absent bounds.
func ExpectedRange(min, max *float64) string {
	lower := "-∞"
	if min != nil {
		lower = trimFloat(*min)
	}
	upper := "∞"
	if max != nil {
		upper = trimFloat(*max)
	}
	return fmt.Sprintf("%s - %s", lower, upper)
}

func trimFloat(v float64) string {
	return fmt.Sprintf("%g", v)
}
