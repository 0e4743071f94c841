// Package datasource implements the time-series read contract from
// spec.md §3/§4.B.
package datasource

import (
	"context"
	"time"
)

// Sample is a single timestamped reading.
type Sample struct {
	Timestamp time.Time
	Value     float64
}

// DataSource reads time-series samples addressed by an opaque path (a
// sensor ID, a spreadsheet cell range, a device channel). The path's
// meaning is entirely backend-specific.
type DataSource interface {
	// Name returns the configured name of this DataSource.
	Name() string

	// Get returns samples for path, newest last. Returns an empty slice
	// (not an error) when the backend has no data yet; returns a
	// classified ferrors error (KindDataSourceRead/KindDataSourceAuth)
	// when the read itself fails.
	Get(ctx context.Context, path string) ([]Sample, error)
}

// GravityGetter is an optional narrow interface a DataSource may implement
// to expose a dedicated gravity reading path, letting Beer implementations
// avoid string-typed path conventions for the common case. identifier
// distinguishes which of the DataSource's several sensor channels to read
// (spec.md §4.B/§6) — a single DataSource instance (one cloud account, one
// spreadsheet) may back multiple Beers, each bound by its own identifier.
type GravityGetter interface {
	GetGravity(ctx context.Context, identifier string) ([]Sample, error)
}

// TemperatureGetter is the temperature analogue of GravityGetter.
type TemperatureGetter interface {
	GetTemperature(ctx context.Context, identifier string) ([]Sample, error)
}

// Latest returns the most recent sample in samples, and false if samples
// is empty.
func Latest(samples []Sample) (Sample, bool) {
	if len(samples) == 0 {
		return Sample{}, false
	}
	return samples[len(samples)-1], true
}
