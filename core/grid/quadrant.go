package grid

import "github.com/kilianp07/cityguard/core/model"

// Classify maps current into one of the four sectors around target. The
// predicates are evaluated in order and the first match wins, so every
// position, including target itself, belongs to exactly one quadrant.
//
// The boundary handling is asymmetric (for example the half axis below the
// target goes to 0 while the half axis above goes to 2). Existing reports and
// coverage sets depend on it, so keep it as is.
func Classify(current, target model.Position) model.Quadrant {
	switch {
	case current.X >= target.X && current.Y < target.Y:
		return 0
	case current.X < target.X && current.Y <= target.Y:
		return 1
	case current.X <= target.X && current.Y > target.Y:
		return 2
	default:
		return 3
	}
}
