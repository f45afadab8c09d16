package session

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/pff-protocol/presence-core/internal/biometric"
	"github.com/pff-protocol/presence-core/internal/signal"
	"github.com/stretchr/testify/assert"
)

type fakeSource struct {
	frame  signal.Frame
	series []float64
	rate   float64
	err    error
}

func (f *fakeSource) Capture(_ context.Context) (signal.Frame, []float64, float64, error) {
	return f.frame, f.series, f.rate, f.err
}

func skinFrame(seed uint8) signal.Frame {
	w, h := 48, 48
	pixels := make([]byte, w*h*4)
	for i := 0; i < w*h; i++ {
		// Two alternating skin tones give the luminance check enough
		// variance; the seed shifts the palette per identity.
		r, g, b := uint8(220), uint8(170), uint8(140)
		if i%2 == 1 {
			r, g, b = 120+seed, 80+seed, 60+seed
		}
		pixels[i*4] = r
		pixels[i*4+1] = g
		pixels[i*4+2] = b
		pixels[i*4+3] = 255
	}
	return signal.Frame{Pixels: pixels, Width: w, Height: h}
}

func pulseSeries() []float64 {
	samples := make([]float64, 90)
	for i := range samples {
		samples[i] = math.Sin(2 * math.Pi * 1.5 * float64(i) / 30)
	}
	return samples
}

func TestPalmVerifierEnrollAndMatch(t *testing.T) {
	store := biometric.NewMemoryTemplateStore()
	source := &fakeSource{frame: skinFrame(0), series: pulseSeries(), rate: 30}
	v := &PalmVerifier{
		Source:          source,
		Templates:       store,
		Anchor:          "+2348000000001",
		EnrollIfMissing: true,
	}

	// First contact enrolls.
	res := v.Verify(context.Background())
	assert.True(t, res.OK, res.Reason)

	// Second capture of the same palm matches the stored template.
	res = v.Verify(context.Background())
	assert.True(t, res.OK, res.Reason)
}

func TestPalmVerifierMismatch(t *testing.T) {
	store := biometric.NewMemoryTemplateStore()
	enroll := &PalmVerifier{
		Source:          &fakeSource{frame: skinFrame(0), series: pulseSeries(), rate: 30},
		Templates:       store,
		Anchor:          "+2348000000001",
		EnrollIfMissing: true,
	}
	assert.True(t, enroll.Verify(context.Background()).OK)

	// A different palm hashes differently and must not match.
	other := &PalmVerifier{
		Source:    &fakeSource{frame: skinFrame(40), series: pulseSeries(), rate: 30},
		Templates: store,
		Anchor:    "+2348000000001",
	}
	res := other.Verify(context.Background())
	assert.False(t, res.OK)
	assert.Equal(t, "biometric signature mismatch", res.Reason)
}

func TestPalmVerifierNotEnrolled(t *testing.T) {
	v := &PalmVerifier{
		Source:    &fakeSource{frame: skinFrame(0), series: pulseSeries(), rate: 30},
		Templates: biometric.NewMemoryTemplateStore(),
		Anchor:    "+2348000000001",
	}

	res := v.Verify(context.Background())
	assert.False(t, res.OK)
	assert.Equal(t, "identity not enrolled", res.Reason)
}

func TestPalmVerifierCaptureError(t *testing.T) {
	v := &PalmVerifier{
		Source:    &fakeSource{err: errors.New("camera permission denied")},
		Templates: biometric.NewMemoryTemplateStore(),
		Anchor:    "+2348000000001",
	}

	// Capture errors surface as a failed layer with a reason, never a panic.
	res := v.Verify(context.Background())
	assert.False(t, res.OK)
	assert.Contains(t, res.Reason, "camera permission denied")
}

func TestPalmVerifierSpoofRejected(t *testing.T) {
	white := signal.Frame{Pixels: make([]byte, 16*16*4), Width: 16, Height: 16}
	for i := range white.Pixels {
		white.Pixels[i] = 255
	}

	v := &PalmVerifier{
		Source:          &fakeSource{frame: white, series: pulseSeries(), rate: 30},
		Templates:       biometric.NewMemoryTemplateStore(),
		Anchor:          "+2348000000001",
		EnrollIfMissing: true,
	}

	res := v.Verify(context.Background())
	assert.False(t, res.OK)
	assert.Equal(t, signal.ReasonTooReflective, res.Reason)
}
