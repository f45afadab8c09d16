package signal

// LivenessVerdict is a material judgment over one capture: whether the
// surface in front of the camera behaves like live skin. It carries no
// identity information.
type LivenessVerdict struct {
	Pass   bool
	Reason string
}

// Reflectance thresholds. The check order and these exact values are the
// contract; each branch maps to a distinct spoof material.
const (
	saturatedLuminance = 0.95
	darkLuminance      = 0.15
	maxSaturatedFrac   = 0.25
	minFlatVariance    = 0.002
	minFlatSamples     = 50
	maxDarkFrac        = 0.9
)

const (
	ReasonTooReflective = "surface too reflective (plastic/screen)"
	ReasonTooFlat       = "surface too flat (paper/print)"
	ReasonNoSkinTone    = "no skin tone detected"
)

// CheckReflectance classifies the whole frame's luminance distribution.
// Specular materials (screens, plastic) saturate; prints are too flat;
// an all-dark frame has no skin in it at all. An empty frame passes:
// the capture layer owns rejecting missing input.
func CheckReflectance(f Frame) LivenessVerdict {
	if !f.valid() {
		return LivenessVerdict{Pass: true}
	}

	n := f.Width * f.Height
	luminances := make([]float64, 0, n)
	var sum float64
	highCount := 0
	lowCount := 0

	for y := 0; y < f.Height; y++ {
		for x := 0; x < f.Width; x++ {
			r, g, b := f.at(x, y)
			l := (0.299*float64(r) + 0.587*float64(g) + 0.114*float64(b)) / 255
			sum += l
			luminances = append(luminances, l)
			if l >= saturatedLuminance {
				highCount++
			}
			if l <= darkLuminance {
				lowCount++
			}
		}
	}

	mean := sum / float64(n)
	var variance float64
	for _, l := range luminances {
		d := l - mean
		variance += d * d
	}
	variance /= float64(n)

	fractionHigh := float64(highCount) / float64(n)
	fractionLow := float64(lowCount) / float64(n)

	if fractionHigh > maxSaturatedFrac {
		return LivenessVerdict{Pass: false, Reason: ReasonTooReflective}
	}
	if variance < minFlatVariance && n >= minFlatSamples {
		return LivenessVerdict{Pass: false, Reason: ReasonTooFlat}
	}
	if fractionLow > maxDarkFrac {
		return LivenessVerdict{Pass: false, Reason: ReasonNoSkinTone}
	}
	return LivenessVerdict{Pass: true}
}
