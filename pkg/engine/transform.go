package engine

import (
	"fmt"
	"math"
)

// ValidateMultiplier rejects multipliers that make no sense before any run
// starts. A bad multiplier is a configuration error, never a per-record one.
func ValidateMultiplier(m float64) error {
	if math.IsNaN(m) || math.IsInf(m, 0) {
		return fmt.Errorf("multiplier must be finite, got %v", m)
	}
	if m <= 0 {
		return fmt.Errorf("multiplier must be positive, got %v", m)
	}
	return nil
}

// Transform computes the rewritten duration: floor(seconds * multiplier),
// truncated toward zero, integer seconds.
func Transform(seconds int, multiplier float64) int {
	return int(math.Floor(float64(seconds) * multiplier))
}
