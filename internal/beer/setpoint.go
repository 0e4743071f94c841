package beer

import "context"

// SetPoint holds a fermentation at a single fixed target temperature,
// with a symmetric tolerance band to avoid relay chatter around the
// target (spec.md §4.C SetPointBeer decision rule).
type SetPoint struct {
	name      string
	target    float64
	tolerance float64 // degrees either side of target where neither relay fires
	binding   *Binding
}

// NewSetPoint constructs a SetPoint Beer bound to the given DataSource
// binding. tolerance must be > 0 per spec.md §3's Beer invariant; Validate
// rejects a non-positive tolerance before a Beer is ever constructed.
func NewSetPoint(name string, target, tolerance float64, binding *Binding) *SetPoint {
	return &SetPoint{name: name, target: target, tolerance: tolerance, binding: binding}
}

func (s *SetPoint) Name() string { return s.name }

func (s *SetPoint) Evaluate(ctx context.Context) (Decision, error) {
	r := s.binding.poll(ctx)
	if !r.temperatureOK {
		return Decision{}, nil
	}

	low := s.target - s.tolerance
	high := s.target + s.tolerance

	d := Decision{}
	if r.temperature < low {
		d.RequiresHeating = true
	}
	if r.temperature > high {
		d.RequiresCooling = true
	}
	// A SetPoint's tolerance band is symmetric and non-overlapping by
	// construction (low <= high whenever tolerance >= 0), so
	// RequiresHeating && RequiresCooling can only happen if tolerance < 0.
	d.Contradiction = d.RequiresHeating && d.RequiresCooling
	return d, nil
}

func (s *SetPoint) CheckFreshness() bool { return s.binding.CheckFreshness() }
