package beer

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/fermenator/fermenator/internal/datasource"
	"github.com/fermenator/fermenator/internal/ferrors"
	"github.com/fermenator/fermenator/internal/observability"
	"github.com/fermenator/fermenator/internal/units"
)

// Binding is a Beer's non-owning handle to the DataSource it reads from,
// addressed by Identifier (spec.md §4.B/§6): one DataSource instance (one
// cloud account, one spreadsheet) may back several Beers, each
// distinguished by its own identifier. Both Temp and Gravity must be set
// per spec.md §9(a) — any DataSource bound to a Beer must answer both
// get_temperature and get_gravity, even for a SetPoint Beer that never
// consults gravity.
type Binding struct {
	BeerName   string
	Identifier string
	Temp       datasource.TemperatureGetter
	Gravity    datasource.GravityGetter

	SourceTemperatureUnit units.TemperatureUnit
	TargetTemperatureUnit units.TemperatureUnit
	SourceGravityUnit     units.GravityUnit
	TargetGravityUnit     units.GravityUnit

	// DataAgeWarning is data_age_warning_time; zero disables staleness
	// warnings.
	DataAgeWarning time.Duration

	Logger  *zap.Logger
	Metrics *observability.Metrics

	mu          sync.Mutex
	warnedStale bool
	lastStale   bool
}

// reading is what one poll of a Binding yields, already unit-normalized.
type reading struct {
	temperature   float64
	temperatureOK bool
	gravity       float64
	gravityOK     bool
	stale         bool
}

// poll reads Temp and, if configured, Gravity for Identifier, converts
// both into the Beer's declared units, and throttles the
// data_age_warning_time log to once per staleness episode (spec.md §4.C).
// If temperature data is unavailable the caller must treat the poll as
// "no data this tick" — poll never suppresses that by synthesizing a
// value.
func (b *Binding) poll(ctx context.Context) reading {
	var r reading

	samples, err := b.Temp.GetTemperature(ctx, b.Identifier)
	if err != nil {
		if ferrors.Is(err, ferrors.KindDataSourceAuth) && b.Logger != nil {
			b.Logger.Error("temperature read failed: datasource authentication rejected",
				zap.String("beer", b.BeerName), zap.Error(err))
		} else {
			b.logWarn("temperature read failed", zap.Error(err))
		}
		if b.Metrics != nil {
			b.Metrics.DataSourceMissingTotal.WithLabelValues(b.BeerName).Inc()
		}
		return r
	}
	latest, ok := datasource.Latest(samples)
	if !ok {
		b.logWarn("no temperature samples available")
		if b.Metrics != nil {
			b.Metrics.DataSourceMissingTotal.WithLabelValues(b.BeerName).Inc()
		}
		return r
	}

	r.temperature = units.ConvertTemperature(latest.Value, b.SourceTemperatureUnit, b.TargetTemperatureUnit)
	r.temperatureOK = true
	r.stale = b.DataAgeWarning > 0 && time.Since(latest.Timestamp) > b.DataAgeWarning
	if r.stale && b.Metrics != nil {
		b.Metrics.DataSourceStaleTotal.WithLabelValues(b.BeerName).Inc()
	}
	b.recordStaleness(r.stale, latest.Timestamp)

	// Gravity is read best-effort: a failure or empty result just leaves
	// gravityOK false, which LinearRamp treats as "fall back to the start
	// set point" (spec.md §4.C) and SetPoint ignores outright.
	gsamples, gerr := b.Gravity.GetGravity(ctx, b.Identifier)
	if gerr != nil {
		b.logWarn("gravity read failed", zap.Error(gerr))
		return r
	}
	glatest, gok := datasource.Latest(gsamples)
	if !gok {
		b.logWarn("no gravity samples available")
		return r
	}
	r.gravity = units.ConvertGravity(glatest.Value, b.SourceGravityUnit, b.TargetGravityUnit)
	r.gravityOK = true
	return r
}

func (b *Binding) recordStaleness(stale bool, sampleTime time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lastStale = stale
	if stale && !b.warnedStale {
		b.warnedStale = true
		if b.Logger != nil {
			b.Logger.Warn("temperature data exceeds data_age_warning_time",
				zap.String("beer", b.BeerName), zap.Time("sample_time", sampleTime))
		}
	} else if !stale {
		b.warnedStale = false
	}
}

func (b *Binding) logWarn(msg string, fields ...zap.Field) {
	if b.Logger != nil {
		b.Logger.Warn(msg, append(fields, zap.String("beer", b.BeerName))...)
	}
}

// CheckFreshness reports whether the most recently polled sample exceeded
// data_age_warning_time.
func (b *Binding) CheckFreshness() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastStale
}
