// Package config loads the Fermenator bootstrap descriptor: the small,
// rarely-changed file that tells the supervisor where to find its
// ConfigStore and how to talk to the outside world. It is distinct from
// internal/configstore, which loads the frequently-changed relay/
// datasource/beer/manager graph.
//
// Search order for the bootstrap descriptor (first match wins):
//  1. ./.fermenator
//  2. ~/.fermenator/config
//  3. /etc/fermenator/config
//
// Credentials (API keys, Basic Auth secrets for DataSources) are kept out
// of the bootstrap descriptor and loaded separately from:
//  1. ./.credentials.json
//  2. ~/.fermenator/credentials.json
//  3. /etc/fermenator/credentials.json
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Version, GitCommit, BuildTime are injected by the build via -ldflags.
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

// Config is the root bootstrap descriptor.
type Config struct {
	// SchemaVersion must be "1".
	SchemaVersion string `yaml:"schema_version"`

	// ConfigStore selects and configures the ConfigSpec backend.
	ConfigStore ConfigStoreConfig `yaml:"config_store"`

	// Observability configures metrics and logging.
	Observability ObservabilityConfig `yaml:"observability"`

	// StatusAPI configures the read-only Unix socket status endpoint.
	StatusAPI StatusAPIConfig `yaml:"status_api"`

	// ShutdownTimeout bounds how long the supervisor waits for each
	// Manager to stop (and de-energize its relays) during disassemble.
	// Default: 5s.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// Datastore is the bootstrap-level datastore configuration block
	// spec.md §4.E's `inherit` literal resolves against: a DataSource
	// whose base_url is the literal string "inherit" shares this
	// connection instead of repeating it, so several DataSources backed
	// by the same cloud account or spreadsheet need only one credential.
	Datastore DatastoreConfig `yaml:"datastore"`
}

// DatastoreConfig holds connection details a DataSource can inherit by
// setting its own base_url to the literal "inherit".
type DatastoreConfig struct {
	BaseURL string `yaml:"base_url"`
}

// ConfigStoreConfig selects one of "inline", "tabular_sheet", or "remote_kv"
// and carries that backend's parameters.
type ConfigStoreConfig struct {
	// Type is one of "inline", "tabular_sheet", "remote_kv". Default: "inline".
	Type string `yaml:"type"`

	// Path is the ConfigSpec file path for the inline backend.
	Path string `yaml:"path"`

	// RefreshInterval is how often the supervisor polls has_changed().
	// Default: 30s.
	RefreshInterval time.Duration `yaml:"refresh_interval"`

	// SpreadsheetID and SheetRange configure the tabular_sheet backend.
	SpreadsheetID string `yaml:"spreadsheet_id"`
	SheetRange    string `yaml:"sheet_range"`

	// RemoteAddr, TLSCertFile, TLSKeyFile, TLSCAFile configure the
	// remote_kv backend's gRPC client.
	RemoteAddr  string `yaml:"remote_addr"`
	TLSCertFile string `yaml:"tls_cert_file"`
	TLSKeyFile  string `yaml:"tls_key_file"`
	TLSCAFile   string `yaml:"tls_ca_file"`
}

// ObservabilityConfig holds metrics and logging parameters.
type ObservabilityConfig struct {
	// MetricsAddr is the Prometheus metrics HTTP bind address.
	// Default: 127.0.0.1:9091.
	MetricsAddr string `yaml:"metrics_addr"`

	// LogLevel controls the minimum log level (debug, info, warn, error).
	// Default: info.
	LogLevel string `yaml:"log_level"`

	// LogFormat controls the log output format (json, console).
	// Default: json.
	LogFormat string `yaml:"log_format"`
}

// StatusAPIConfig holds the read-only status socket parameters.
type StatusAPIConfig struct {
	// Enabled controls whether the status socket is active. Default: true.
	Enabled bool `yaml:"enabled"`

	// SocketPath is the Unix domain socket path. Permissions: 0600.
	// Default: /run/fermenator/status.sock.
	SocketPath string `yaml:"socket_path"`
}

// Credentials holds secrets kept out of the bootstrap descriptor, keyed by
// the DataSource name that consumes them.
type Credentials struct {
	DataSources map[string]DataSourceCredential `json:"data_sources"`
}

// DataSourceCredential carries the auth material a DataSource may need.
type DataSourceCredential struct {
	APIKey   string `json:"api_key"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// Defaults returns a Config populated with default values.
func Defaults() Config {
	return Config{
		SchemaVersion: "1",
		ConfigStore: ConfigStoreConfig{
			Type:            "inline",
			Path:            "./fermenator.yaml",
			RefreshInterval: 30 * time.Second,
		},
		Observability: ObservabilityConfig{
			MetricsAddr: "127.0.0.1:9091",
			LogLevel:    "info",
			LogFormat:   "json",
		},
		StatusAPI: StatusAPIConfig{
			Enabled:    true,
			SocketPath: "/run/fermenator/status.sock",
		},
		ShutdownTimeout: 5 * time.Second,
	}
}

// searchPaths returns the search order, in priority order, for a file
// named filename under the fermenator home/system directories, preceded
// by cwdPath as the first (highest-priority) candidate.
func searchPaths(cwdPath, filename string) []string {
	paths := []string{cwdPath}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".fermenator", filename))
	}
	paths = append(paths, filepath.Join("/etc/fermenator", filename))
	return paths
}

// Find walks the bootstrap descriptor search order (./.fermenator,
// ~/.fermenator/config, /etc/fermenator/config — spec.md §6) and returns
// the first path that exists, or "" if none do.
func Find() string {
	for _, p := range searchPaths("./.fermenator", "config") {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// Load reads and validates the bootstrap descriptor at path.
// Returns the merged config (defaults overridden by file values).
func Load(path string) (*Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config.Load: parse %q: %w", path, err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("config.Load: validation failed: %w", err)
	}

	return &cfg, nil
}

// FindCredentials walks the credentials search order and returns the first
// path that exists, or "" if none do.
func FindCredentials() string {
	for _, p := range searchPaths("./.credentials.json", "credentials.json") {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// LoadCredentials reads the credentials file at path. A missing path
// (empty string) yields empty Credentials, not an error — credentials are
// optional for DataSources that need none.
func LoadCredentials(path string) (*Credentials, error) {
	if path == "" {
		return &Credentials{DataSources: map[string]DataSourceCredential{}}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config.LoadCredentials: read %q: %w", path, err)
	}

	var creds Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, fmt.Errorf("config.LoadCredentials: parse %q: %w", path, err)
	}
	if creds.DataSources == nil {
		creds.DataSources = map[string]DataSourceCredential{}
	}
	return &creds, nil
}

// Validate checks all config fields for correctness.
func Validate(cfg *Config) error {
	var errs []string

	if cfg.SchemaVersion != "1" {
		errs = append(errs, fmt.Sprintf("schema_version must be \"1\", got %q", cfg.SchemaVersion))
	}
	switch cfg.ConfigStore.Type {
	case "inline":
		if cfg.ConfigStore.Path == "" {
			errs = append(errs, "config_store.path must not be empty for type \"inline\"")
		}
	case "tabular_sheet":
		if cfg.ConfigStore.SpreadsheetID == "" {
			errs = append(errs, "config_store.spreadsheet_id must not be empty for type \"tabular_sheet\"")
		}
	case "remote_kv":
		if cfg.ConfigStore.RemoteAddr == "" {
			errs = append(errs, "config_store.remote_addr must not be empty for type \"remote_kv\"")
		}
	default:
		errs = append(errs, fmt.Sprintf("config_store.type must be one of inline, tabular_sheet, remote_kv, got %q", cfg.ConfigStore.Type))
	}
	if cfg.ConfigStore.RefreshInterval < time.Second {
		errs = append(errs, fmt.Sprintf("config_store.refresh_interval must be >= 1s, got %s", cfg.ConfigStore.RefreshInterval))
	}
	if cfg.ShutdownTimeout < time.Second {
		errs = append(errs, fmt.Sprintf("shutdown_timeout must be >= 1s, got %s", cfg.ShutdownTimeout))
	}
	if cfg.StatusAPI.Enabled && cfg.StatusAPI.SocketPath == "" {
		errs = append(errs, "status_api.socket_path must not be empty when status_api.enabled is true")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors:\n  - %s", joinStrings(errs, "\n  - "))
	}
	return nil
}

// joinStrings joins a slice of strings with a separator.
func joinStrings(ss []string, sep string) string {
	if len(ss) == 0 {
		return ""
	}
	result := ss[0]
	for _, s := range ss[1:] {
		result += sep + s
	}
	return result
}
