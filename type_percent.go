package backfolio

import (
	"fmt"
	"math"
)

// Percent represents a percentage value (5.0 means 5%).
type Percent float64

func (p Percent) String() string {
	if math.IsNaN(float64(p)) {
		return "-"
	}
	return fmt.Sprintf("%.2f%%", float64(p))
}

// IsNaN reports whether the percentage is undefined (e.g. a change from a
// zero base).
func (p Percent) IsNaN() bool { return math.IsNaN(float64(p)) }
