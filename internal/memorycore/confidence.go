package memorycore

import (
	"fmt"

	"github.com/MycelicMemory/mycelicmemory/internal/memoryerr"
)

// DefaultConfidence is applied when a remember input omits confidence.
const DefaultConfidence = 1.0

// Confidence is a smart value type: it can only be constructed with a
// value in [0.0, 1.0] and carries no extra state beyond that float.
type Confidence float64

// NewConfidence validates value and returns a Confidence, or
// InvalidConfidence if value lies outside [0,1].
func NewConfidence(value float64) (Confidence, error) {
	if value < 0.0 || value > 1.0 {
		return 0, memoryerr.InvalidConfidence(value)
	}
	return Confidence(value), nil
}

// Float64 returns the underlying value.
func (c Confidence) Float64() float64 { return float64(c) }

func (c Confidence) String() string {
	return fmt.Sprintf("%.2f", float64(c))
}
