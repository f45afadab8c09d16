package session

import (
	"context"
	"time"

	"github.com/pff-protocol/presence-core/internal/logger"
	"go.uber.org/zap"
)

// Verifier runs one layer's capture-extract-hash-compare routine.
// Implementations must return a failed Result for capture errors rather
// than failing out of band; the orchestrator owns no recovery logic.
type Verifier interface {
	Verify(ctx context.Context) Result
}

// Step pairs a layer with its verifier. A Skippable step's failure is
// treated as pass-through: the sequence continues, but the layer never
// enters the passed set.
type Step struct {
	Layer     Layer
	Verifier  Verifier
	Skippable bool
}

// Options configure one orchestrator.
type Options struct {
	// Skip removes layers from the sequence entirely (e.g. voice for
	// profiles that cannot speak the phrase).
	Skip []Layer
	// MinimumLayers, when positive, unlocks the session once that many
	// layers have passed even if others failed. Zero means every attempted
	// layer is mandatory.
	MinimumLayers int
	// CohesionDeadline, when positive, bounds the wall-clock time of the
	// whole sequence. Exceeding it fails the session.
	CohesionDeadline time.Duration
	// OnProgress fires on every layer transition. Optional.
	OnProgress func(Event)
}

// Outcome is the durable result of one run. The session itself is discarded;
// only this survives.
type Outcome struct {
	IdentityAnchor string
	Status         Status
	LayersPassed   []Layer
	FailedLayer    Layer
	FailureReason  string
}

// Unlocked reports whether the run reached the terminal success state.
func (o Outcome) Unlocked() bool { return o.Status == StatusUnlocked }

// Orchestrator drives an ordered layer sequence for one identity anchor.
// Layers execute strictly sequentially; a failed run retains nothing, so a
// retry always restarts from the first layer.
type Orchestrator struct {
	anchor string
	steps  []Step
	opts   Options
}

func NewOrchestrator(anchor string, steps []Step, opts Options) *Orchestrator {
	kept := make([]Step, 0, len(steps))
	for _, s := range steps {
		if !containsLayer(opts.Skip, s.Layer) {
			kept = append(kept, s)
		}
	}
	return &Orchestrator{anchor: anchor, steps: kept, opts: opts}
}

// Run executes the sequence from the first layer and always returns a
// terminal outcome. Context cancellation takes the normal failure path.
func (o *Orchestrator) Run(ctx context.Context) Outcome {
	out := Outcome{IdentityAnchor: o.anchor, Status: StatusScanning}
	start := time.Now()

	required := len(o.steps)
	if o.opts.MinimumLayers > 0 && o.opts.MinimumLayers < required {
		required = o.opts.MinimumLayers
	}
	if len(o.steps) == 0 {
		// Nothing configured to verify; never unlock on an empty sequence.
		return o.fail(out, 0, "no verification layers configured")
	}

	for i, step := range o.steps {
		o.emit(Event{Layer: step.Layer, Status: StatusScanning})

		if err := ctx.Err(); err != nil {
			return o.fail(out, step.Layer, "session cancelled")
		}
		if o.opts.CohesionDeadline > 0 && time.Since(start) > o.opts.CohesionDeadline {
			return o.fail(out, step.Layer, "cohesion deadline exceeded")
		}

		res := step.Verifier.Verify(ctx)
		if res.OK {
			out.LayersPassed = append(out.LayersPassed, step.Layer)
			logger.Debug("layer passed", zap.Stringer("layer", step.Layer))
			continue
		}

		if step.Skippable {
			// A passed-through layer is excused, not demanded later.
			if o.opts.MinimumLayers == 0 && required > 0 {
				required--
			}
			logger.Debug("skippable layer failed, continuing",
				zap.Stringer("layer", step.Layer),
				zap.String("reason", res.Reason))
			continue
		}
		if o.opts.MinimumLayers > 0 {
			remaining := len(o.steps) - i - 1
			if len(out.LayersPassed)+remaining >= required {
				logger.Debug("layer failed within minimum-subset policy",
					zap.Stringer("layer", step.Layer),
					zap.String("reason", res.Reason))
				continue
			}
		}
		return o.fail(out, step.Layer, res.Reason)
	}

	if len(out.LayersPassed) == 0 || len(out.LayersPassed) < required {
		last := o.steps[len(o.steps)-1].Layer
		return o.fail(out, last, "insufficient layers passed")
	}
	if o.opts.CohesionDeadline > 0 && time.Since(start) > o.opts.CohesionDeadline {
		last := o.steps[len(o.steps)-1].Layer
		return o.fail(out, last, "cohesion deadline exceeded")
	}

	out.Status = StatusIdentified
	o.emit(Event{Layer: o.steps[len(o.steps)-1].Layer, Status: StatusIdentified})

	out.Status = StatusUnlocked
	o.emit(Event{Layer: o.steps[len(o.steps)-1].Layer, Status: StatusUnlocked})
	logger.Info("presence handshake complete",
		zap.String("anchor", o.anchor),
		zap.Int("layers_passed", len(out.LayersPassed)))
	return out
}

func (o *Orchestrator) fail(out Outcome, layer Layer, reason string) Outcome {
	out.Status = StatusFailed
	out.FailedLayer = layer
	out.FailureReason = reason
	o.emit(Event{Layer: layer, Status: StatusFailed})
	logger.Warn("session failed",
		zap.String("anchor", o.anchor),
		zap.Stringer("layer", layer),
		zap.String("reason", reason))
	return out
}

func (o *Orchestrator) emit(e Event) {
	if o.opts.OnProgress != nil {
		o.opts.OnProgress(e)
	}
}

func containsLayer(layers []Layer, l Layer) bool {
	for _, x := range layers {
		if x == l {
			return true
		}
	}
	return false
}
