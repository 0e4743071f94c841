// Package configstore loads and watches the ConfigSpec — the declarative
// relay/datasource/beer/manager graph a Supervisor assembles — from
// spec.md §3/§4.E. Three backends are provided: Inline (a local YAML
// file), TabularSheet (a spreadsheet-shaped tabular source), and RemoteKV
// (a gRPC key/value service).
package configstore

import "context"

// ConfigStore is the backend-agnostic contract a Supervisor polls.
type ConfigStore interface {
	// Load reads and parses the current ConfigSpec.
	Load(ctx context.Context) (*ConfigSpec, error)

	// HasChanged reports whether the backend's content differs from what
	// the last Load returned, without necessarily re-parsing it. Cheap
	// backends (Inline) may simply re-stat a file; remote backends may
	// compare a version token.
	HasChanged(ctx context.Context) (bool, error)

	// RefreshInterval is how often the Supervisor should poll HasChanged.
	RefreshInterval() (interval float64, ok bool)

	// Close releases any resources the backend holds (watchers, conns).
	Close() error
}

// ConfigSpec is the parsed form of the declarative object graph.
type ConfigSpec struct {
	Version     string                  `yaml:"version"`
	Relays      map[string]RelaySpec    `yaml:"relays"`
	DataSources map[string]SourceSpec   `yaml:"datasources"`
	Beers       map[string]BeerSpec     `yaml:"beers"`
	Managers    map[string]ManagerSpec  `yaml:"managers"`
}

// RelaySpec describes one relay entry.
type RelaySpec struct {
	Type       string         `yaml:"type"` // "software" | "gpio"
	DutyCycle  float64        `yaml:"duty_cycle"`
	CycleTime  float64        `yaml:"cycle_time"`
	ActiveHigh bool           `yaml:"active_high"`
	Pin        string         `yaml:"pin"`
	Extra      map[string]any `yaml:",inline"`
}

// SourceSpec describes one datasource entry. TemperaturePath and
// GravityPath back the optional get_temperature/get_gravity operations
// spec.md §4.B describes; GravityPath may be left empty for a source that
// never carries a gravity reading.
type SourceSpec struct {
	Type            string `yaml:"type"` // "http"
	BaseURL         string `yaml:"base_url"`
	TemperaturePath string `yaml:"temperature_path"`
	GravityPath     string `yaml:"gravity_path"`
	Unit            string `yaml:"unit"` // temperature unit of the source's readings ("C"/"F"); required to bind a Beer
	Cache           bool   `yaml:"cache"`
	CacheTTL        string `yaml:"cache_ttl"`
}

// BeerSpec describes one beer entry (spec.md §3 Beer). DataSource and
// Identifier are the Beer's non-owning handle to the DataSource it reads
// from (spec.md §6: "config must include datasource (name) and identifier
// (string)") — Identifier distinguishes this Beer's sensor channel when
// several Beers share one DataSource instance. Tolerance and Unit apply to
// both variants; OriginalGravity/FinalGravity/StartSetPoint/EndSetPoint
// and GravityUnit only apply to "linear_ramp".
type BeerSpec struct {
	Type              string  `yaml:"type"` // "set_point" | "linear_ramp"
	DataSource        string  `yaml:"datasource"`
	Identifier        string  `yaml:"identifier"`
	Unit              string  `yaml:"unit"`
	Tolerance         float64 `yaml:"tolerance"`
	DataAgeWarningSec float64 `yaml:"data_age_warning_seconds"`

	// set_point
	Target float64 `yaml:"target"`

	// linear_ramp
	GravityUnit     string  `yaml:"gravity_unit"`
	OriginalGravity float64 `yaml:"original_gravity"`
	FinalGravity    float64 `yaml:"final_gravity"`
	StartSetPoint   float64 `yaml:"start_set_point"`
	EndSetPoint     float64 `yaml:"end_set_point"`
}

// ManagerSpec describes one manager entry, referencing other entries by
// name. ActiveHeating and ActiveCooling independently disable a configured
// relay at runtime (spec.md §3/§4.D step 3); both default to true when
// absent, since an operator configuring heat_relay/cool_relay at all
// almost always wants it active immediately. All references are validated
// for referential integrity before a ConfigSpec is handed to the
// Supervisor (spec.md §7).
type ManagerSpec struct {
	Beer            string  `yaml:"beer"`
	HeatRelay       string  `yaml:"heat_relay"`
	CoolRelay       string  `yaml:"cool_relay"`
	ActiveHeating   *bool   `yaml:"active_heating"`
	ActiveCooling   *bool   `yaml:"active_cooling"`
	PollIntervalSec float64 `yaml:"poll_interval_seconds"`
}

// ActiveOrDefault reports the effective active_heating/active_cooling
// value: unset (nil) defaults to true.
func ActiveOrDefault(p *bool) bool {
	if p == nil {
		return true
	}
	return *p
}
