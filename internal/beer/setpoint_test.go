package beer

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fermenator/fermenator/internal/datasource"
	"github.com/fermenator/fermenator/internal/observability"
	"github.com/fermenator/fermenator/internal/units"
)

// fakeGetter implements datasource.TemperatureGetter and
// datasource.GravityGetter with fixed, independently settable samples.
type fakeGetter struct {
	temp    []datasource.Sample
	tempErr error
	grav    []datasource.Sample
	gravErr error
}

func (f *fakeGetter) GetTemperature(ctx context.Context, identifier string) ([]datasource.Sample, error) {
	if f.tempErr != nil {
		return nil, f.tempErr
	}
	return f.temp, nil
}

func (f *fakeGetter) GetGravity(ctx context.Context, identifier string) ([]datasource.Sample, error) {
	if f.gravErr != nil {
		return nil, f.gravErr
	}
	return f.grav, nil
}

func newTestBinding(name string, temperature float64, gravity float64, gravityOK bool) *Binding {
	g := &fakeGetter{temp: []datasource.Sample{{Timestamp: time.Now(), Value: temperature}}}
	if gravityOK {
		g.grav = []datasource.Sample{{Timestamp: time.Now(), Value: gravity}}
	}
	return &Binding{
		BeerName:              name,
		Temp:                  g,
		Gravity:               g,
		SourceTemperatureUnit: units.Celsius,
		TargetTemperatureUnit: units.Celsius,
		SourceGravityUnit:     units.SG,
		TargetGravityUnit:     units.SG,
		Logger:                zap.NewNop(),
		Metrics:               observability.NewMetrics(),
	}
}

func TestSetPointDeadBand(t *testing.T) {
	ctx := context.Background()

	cases := []struct {
		name     string
		value    float64
		wantHeat bool
		wantCool bool
	}{
		{"below low edge", 18.9, true, false},
		{"at low edge", 19.0, false, false},
		{"within band", 20.0, false, false},
		{"at high edge", 21.0, false, false},
		{"above high edge", 21.1, false, true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			binding := newTestBinding("pale-ale", c.value, 0, false)
			sp := NewSetPoint("pale-ale", 20.0, 1.0, binding)
			d, err := sp.Evaluate(ctx)
			require.NoError(t, err)
			assert.Equal(t, c.wantHeat, d.RequiresHeating)
			assert.Equal(t, c.wantCool, d.RequiresCooling)
			assert.False(t, d.Contradiction)
		})
	}
}

func TestSetPointFreshnessThrottle(t *testing.T) {
	binding := newTestBinding("pale-ale", 20.0, 0, false)
	binding.DataAgeWarning = time.Millisecond

	stale := &fakeGetter{temp: []datasource.Sample{{Timestamp: time.Now().Add(-time.Hour), Value: 20.0}}}
	binding.Temp = stale
	binding.Gravity = stale

	sp := NewSetPoint("pale-ale", 20.0, 1.0, binding)
	ctx := context.Background()

	_, err := sp.Evaluate(ctx)
	require.NoError(t, err)
	assert.True(t, sp.CheckFreshness())

	fresh := &fakeGetter{temp: []datasource.Sample{{Timestamp: time.Now(), Value: 20.0}}}
	binding.Temp = fresh
	binding.Gravity = fresh
	_, err = sp.Evaluate(ctx)
	require.NoError(t, err)
	assert.False(t, sp.CheckFreshness(), "a fresh reading clears the staleness flag")
}

func TestSetPointMissingTemperatureYieldsNoDecision(t *testing.T) {
	binding := newTestBinding("pale-ale", 0, 0, false)
	binding.Temp = &fakeGetter{} // no samples at all

	sp := NewSetPoint("pale-ale", 20.0, 1.0, binding)
	d, err := sp.Evaluate(context.Background())
	require.NoError(t, err)
	assert.False(t, d.RequiresHeating)
	assert.False(t, d.RequiresCooling)
}

func TestSetPointName(t *testing.T) {
	binding := newTestBinding("pale-ale", 20.0, 0, false)
	sp := NewSetPoint("pale-ale", 20.0, 1.0, binding)
	assert.Equal(t, "pale-ale", sp.Name())
}

// TestLinearRampClampingAndInterpolation exercises the gravity-progress
// decision rule from spec.md §4.C: OG=1.050, FG=1.010, T0=18, T1=22.
func TestLinearRampClampingAndInterpolation(t *testing.T) {
	binding := newTestBinding("diacetyl-rest", 16.0, 1.030, true)
	ramp := NewLinearRamp("diacetyl-rest", 1.050, 1.010, 18.0, 22.0, 0.5, binding)
	ctx := context.Background()

	cases := []struct {
		name string
		g    float64
		want float64
	}{
		{"above original gravity clamps to start", 1.060, 18.0},
		{"at original gravity", 1.050, 18.0},
		{"midpoint interpolates", 1.030, 20.0},
		{"at final gravity", 1.010, 22.0},
		{"below final gravity clamps to end", 0.995, 22.0},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := ramp.effectiveSetPoint(c.g)
			assert.InDelta(t, c.want, got, 0.001)
		})
	}

	// Midway through attenuation (G=1.030, S=20.0) with a temperature
	// below S-tolerance requires heating.
	d, err := ramp.Evaluate(ctx)
	require.NoError(t, err)
	assert.True(t, d.RequiresHeating)
	assert.False(t, d.RequiresCooling)
}

func TestLinearRampFallsBackToStartWhenGravityUnavailable(t *testing.T) {
	binding := newTestBinding("diacetyl-rest", 21.0, 0, false)
	ramp := NewLinearRamp("diacetyl-rest", 1.050, 1.010, 18.0, 22.0, 0.5, binding)

	// No gravity sample this poll: the effective set point falls back to
	// StartSetPoint (18.0) regardless of how far along the fermentation
	// actually is.
	d, err := ramp.Evaluate(context.Background())
	require.NoError(t, err)
	assert.False(t, d.RequiresHeating)
	assert.True(t, d.RequiresCooling, "21.0 is above 18.0+0.5, so the start-set-point fallback should call for cooling")
}

func TestLinearRampCoolingRampIsLegal(t *testing.T) {
	// start_set_point > end_set_point (a cold-crash ramp) is explicitly
	// permitted by spec.md §3's invariants.
	binding := newTestBinding("cold-crash", 10.0, 1.010, true)
	ramp := NewLinearRamp("cold-crash", 1.020, 1.000, 18.0, 2.0, 0.5, binding)
	got := ramp.effectiveSetPoint(1.010)
	assert.InDelta(t, 10.0, got, 0.001)
}
