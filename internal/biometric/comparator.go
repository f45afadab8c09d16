package biometric

import (
	"crypto/subtle"
	"math"

	"github.com/pff-protocol/presence-core/internal/signal"
)

// Comparator decides whether a live capture matches a stored template.
// The false-accept/false-reject tolerance is a product decision, so the
// policy is pluggable rather than baked in.
type Comparator interface {
	// Matches compares a live fingerprint (plus its pre-hash feature vector)
	// against the stored template for the identity.
	Matches(live Capture, stored Template) bool
}

// Capture is the live side of a comparison: the digest plus the pre-hash
// features it was derived from.
type Capture struct {
	Hash       string
	Geometry   []float64
	Vascular   signal.VascularDescriptor
	PulseScore float64
}

// Template is the stored side: the digest and, when the enrollment kept
// them, the pre-hash features for distance-based matching.
type Template struct {
	Hash     string
	Geometry []float64
	Vascular signal.VascularDescriptor
}

// ExactComparator matches on digest equality. This is the as-designed
// behavior: any feature drift beyond the rounding precision is a mismatch.
type ExactComparator struct{}

func (ExactComparator) Matches(live Capture, stored Template) bool {
	if len(live.Hash) != len(stored.Hash) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(live.Hash), []byte(stored.Hash)) == 1
}

// ThresholdComparator matches on Euclidean distance over the pre-hash
// feature vectors. The threshold must be chosen by the integrator; there is
// deliberately no default.
type ThresholdComparator struct {
	MaxDistance float64
}

func (c ThresholdComparator) Matches(live Capture, stored Template) bool {
	if len(live.Geometry) != len(stored.Geometry) {
		return false
	}
	var sum float64
	for i := range live.Geometry {
		d := live.Geometry[i] - stored.Geometry[i]
		sum += d * d
	}
	pairs := [...][2]float64{
		{live.Vascular.MeanRed, stored.Vascular.MeanRed},
		{live.Vascular.MeanCyan, stored.Vascular.MeanCyan},
		{live.Vascular.VarianceRed, stored.Vascular.VarianceRed},
		{live.Vascular.VarianceCyan, stored.Vascular.VarianceCyan},
	}
	for _, p := range pairs {
		d := p[0] - p[1]
		sum += d * d
	}
	for i := range live.Vascular.RedGrid {
		d := live.Vascular.RedGrid[i] - stored.Vascular.RedGrid[i]
		sum += d * d
	}
	return math.Sqrt(sum) <= c.MaxDistance
}
