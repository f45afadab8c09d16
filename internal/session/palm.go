package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/pff-protocol/presence-core/internal/biometric"
	"github.com/pff-protocol/presence-core/internal/signal"
)

// CaptureSource is the capture-surface boundary: a live frame plus an
// optional brightness series sampled at a known rate. Frames arrive as
// 4-channel 8-bit buffers.
type CaptureSource interface {
	Capture(ctx context.Context) (signal.Frame, []float64, float64, error)
}

// PalmVerifier is the biometric-signature layer: capture a palm frame, gate
// it on liveness, extract and hash the vascular features, then compare
// against the stored template (or register on first contact).
type PalmVerifier struct {
	Source     CaptureSource
	Templates  biometric.TemplateStore
	Comparator biometric.Comparator
	Anchor     string
	// RegionSize is the side of the sampled palm square, in pixels.
	RegionSize int
	// EnrollIfMissing registers the capture as the template when the anchor
	// has none. Only registration flows set this.
	EnrollIfMissing bool
}

func (v *PalmVerifier) Verify(ctx context.Context) Result {
	frame, series, rate, err := v.Source.Capture(ctx)
	if err != nil {
		return Result{Reason: fmt.Sprintf("capture unavailable: %v", err)}
	}

	if verdict := signal.CheckReflectance(frame); !verdict.Pass {
		// Material failure only. Never name whose template it nearly matched.
		return Result{Reason: verdict.Reason}
	}

	region := v.RegionSize
	if region <= 0 {
		region = 24
	}
	desc := signal.ExtractVascularDescriptor(frame, frame.Width/2, frame.Height/2, region)
	pulse := signal.DetectPulse(series, rate)

	geometry := desc.RedGrid[:]
	capture := biometric.Capture{
		Hash:       biometric.Fingerprint(geometry, desc, pulse.Score),
		Geometry:   geometry,
		Vascular:   desc,
		PulseScore: pulse.Score,
	}

	stored, err := v.Templates.Lookup(v.Anchor)
	if errors.Is(err, biometric.ErrTemplateNotFound) {
		if !v.EnrollIfMissing {
			return Result{Reason: "identity not enrolled"}
		}
		tpl := biometric.Template{Hash: capture.Hash, Geometry: geometry, Vascular: desc}
		if err := v.Templates.Register(v.Anchor, tpl); err != nil {
			return Result{Reason: fmt.Sprintf("enrollment failed: %v", err)}
		}
		return Result{OK: true}
	}
	if err != nil {
		return Result{Reason: fmt.Sprintf("template lookup failed: %v", err)}
	}

	cmp := v.Comparator
	if cmp == nil {
		cmp = biometric.ExactComparator{}
	}
	if !cmp.Matches(capture, stored) {
		return Result{Reason: "biometric signature mismatch"}
	}
	return Result{OK: true}
}
