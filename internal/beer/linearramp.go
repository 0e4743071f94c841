package beer

import (
	"context"

	"go.uber.org/zap"
)

// LinearRamp targets a temperature that moves linearly with attenuation
// rather than with time: the effective set point is interpolated between
// StartSetPoint and EndSetPoint by how far the most recent gravity
// reading has fallen from OriginalGravity towards FinalGravity (spec.md
// §4.C LinearRampBeer decision rule). A diacetyl rest or a cold crash
// tied to a fermentation's actual progress, rather than its clock, is the
// typical use.
type LinearRamp struct {
	name string

	originalGravity float64
	finalGravity    float64
	startSetPoint   float64
	endSetPoint     float64
	tolerance       float64

	binding *Binding
}

// NewLinearRamp constructs a LinearRamp Beer bound to the given DataSource
// binding. originalGravity must not equal finalGravity (spec.md §3
// invariant); Validate rejects that case before a Beer is ever
// constructed.
func NewLinearRamp(name string, originalGravity, finalGravity, startSetPoint, endSetPoint, tolerance float64, binding *Binding) *LinearRamp {
	return &LinearRamp{
		name:            name,
		originalGravity: originalGravity,
		finalGravity:    finalGravity,
		startSetPoint:   startSetPoint,
		endSetPoint:     endSetPoint,
		tolerance:       tolerance,
		binding:         binding,
	}
}

func (r *LinearRamp) Name() string { return r.name }

// effectiveSetPoint computes S(G) = T0 + p*(T1-T0), where p is the
// fermentation's progress from OriginalGravity towards FinalGravity,
// clamped to [0,1]. Clamping means the ramp degrades to SetPoint at
// StartSetPoint before fermentation starts and at EndSetPoint once fully
// attenuated (spec.md §4.C edge case).
func (r *LinearRamp) effectiveSetPoint(gravity float64) float64 {
	span := r.originalGravity - r.finalGravity
	if span == 0 {
		return r.startSetPoint
	}
	p := (r.originalGravity - gravity) / span
	if p < 0 {
		p = 0
	}
	if p > 1 {
		p = 1
	}
	return r.startSetPoint + p*(r.endSetPoint-r.startSetPoint)
}

func (r *LinearRamp) Evaluate(ctx context.Context) (Decision, error) {
	smp := r.binding.poll(ctx)
	if !smp.temperatureOK {
		return Decision{}, nil
	}

	target := r.startSetPoint
	if smp.gravityOK {
		target = r.effectiveSetPoint(smp.gravity)
	} else if r.binding.Logger != nil {
		r.binding.Logger.Warn("gravity data unavailable; falling back to start set point",
			zap.String("beer", r.name), zap.Float64("start_set_point", r.startSetPoint))
	}

	low := target - r.tolerance
	high := target + r.tolerance

	d := Decision{}
	if smp.temperature < low {
		d.RequiresHeating = true
	}
	if smp.temperature > high {
		d.RequiresCooling = true
	}
	d.Contradiction = d.RequiresHeating && d.RequiresCooling
	return d, nil
}

func (r *LinearRamp) CheckFreshness() bool { return r.binding.CheckFreshness() }
