package signal

import "math"

// Human pulse band: ~0.8-2.5 Hz (48-150 bpm).
const (
	PulseMinHz = 0.8
	PulseMaxHz = 2.5
)

const (
	minPulseSamples    = 30
	minPulseSampleRate = 10
	minPulseVariance   = 1e-6
	minPeakCorrelation = 0.15
	pulseScoreScale    = 1.5
)

// PulseResult is the outcome of scanning a brightness time series for
// quasi-periodic fluctuation in the human pulse band.
type PulseResult struct {
	Detected bool
	// Score is the clamped, scaled peak autocorrelation; zero when no pulse
	// was found in band.
	Score float64
}

// DetectPulse looks for periodicity in the pulse band using normalized
// autocorrelation peak-picking over the lag window that maps to
// [PulseMinHz, PulseMaxHz] at the given sampling rate. Series shorter than
// 30 samples, rates under 10 Hz, and near-constant series are undetectable.
func DetectPulse(samples []float64, sampleRate float64) PulseResult {
	n := len(samples)
	if n < minPulseSamples || sampleRate < minPulseSampleRate {
		return PulseResult{}
	}

	var mean float64
	for _, s := range samples {
		mean += s
	}
	mean /= float64(n)

	var variance float64
	for _, s := range samples {
		d := s - mean
		variance += d * d
	}
	variance /= float64(n)
	if variance < minPulseVariance {
		return PulseResult{}
	}

	minLag := int(math.Floor(sampleRate / PulseMaxHz))
	if minLag < 1 {
		minLag = 1
	}
	maxLag := int(math.Ceil(sampleRate / PulseMinHz))
	if maxLag > n-1 {
		maxLag = n - 1
	}

	maxCorr := 0.0
	bestLag := minLag
	for lag := minLag; lag <= maxLag; lag++ {
		var corr float64
		count := n - lag
		for i := 0; i < count; i++ {
			corr += (samples[i] - mean) * (samples[i+lag] - mean)
		}
		r := 0.0
		if count > 0 {
			r = corr / (float64(count) * variance)
		}
		if r > maxCorr {
			maxCorr = r
			bestLag = lag
		}
	}

	freq := sampleRate / float64(bestLag)
	inBand := freq >= PulseMinHz && freq <= PulseMaxHz
	if !inBand {
		return PulseResult{}
	}

	return PulseResult{
		Detected: maxCorr > minPeakCorrelation,
		Score:    math.Min(1, maxCorr*pulseScoreScale),
	}
}
