package datasource

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/fermenator/fermenator/internal/ferrors"
)

// HTTPConfig configures an HTTPSource.
type HTTPConfig struct {
	Name     string
	BaseURL  string
	APIKey   string
	Username string
	Password string
	Timeout  time.Duration

	// TemperaturePath and GravityPath back GetTemperature/GetGravity
	// (spec.md §4.B's optional specialized operations). GravityPath may
	// be empty for a DataSource that never carries gravity; GetGravity
	// then returns a KindDataSourceRead error rather than guessing a path.
	TemperaturePath string
	GravityPath     string
}

// httpReading is the wire shape an HTTPSource expects at
// BaseURL + path: a JSON array of {timestamp, value} pairs.
type httpReading struct {
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
}

// HTTPSource polls a generic REST endpoint for time-series samples, used
// for cloud-hosted fermentation monitors (e.g. Tilt/iSpindel-style
// services) that expose readings as JSON.
type HTTPSource struct {
	name            string
	base            string
	apiKey          string
	user            string
	pass            string
	temperaturePath string
	gravityPath     string
	client          *http.Client
	logger          *zap.Logger
}

// NewHTTPSource constructs an HTTPSource.
func NewHTTPSource(cfg HTTPConfig, logger *zap.Logger) *HTTPSource {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPSource{
		name:            cfg.Name,
		base:            cfg.BaseURL,
		apiKey:          cfg.APIKey,
		user:            cfg.Username,
		pass:            cfg.Password,
		temperaturePath: cfg.TemperaturePath,
		gravityPath:     cfg.GravityPath,
		client:          &http.Client{Timeout: timeout},
		logger:          logger,
	}
}

func (h *HTTPSource) Name() string { return h.name }

func (h *HTTPSource) Get(ctx context.Context, path string) ([]Sample, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.base+path, nil)
	if err != nil {
		return nil, ferrors.Wrap(ferrors.KindDataSourceRead, "build request", err)
	}
	if h.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+h.apiKey)
	}
	if h.user != "" {
		req.SetBasicAuth(h.user, h.pass)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, ferrors.Wrap(ferrors.KindDataSourceRead, fmt.Sprintf("request %s", path), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, ferrors.New(ferrors.KindDataSourceAuth, fmt.Sprintf("%s: HTTP %d", path, resp.StatusCode))
	}
	if resp.StatusCode != http.StatusOK {
		return nil, ferrors.New(ferrors.KindDataSourceRead, fmt.Sprintf("%s: HTTP %d", path, resp.StatusCode))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, ferrors.Wrap(ferrors.KindDataSourceRead, "read body", err)
	}

	var readings []httpReading
	if err := json.Unmarshal(body, &readings); err != nil {
		return nil, ferrors.Wrap(ferrors.KindDataSourceRead, "decode body", err)
	}

	samples := make([]Sample, 0, len(readings))
	for _, r := range readings {
		samples = append(samples, Sample{Timestamp: r.Timestamp, Value: r.Value})
	}
	return samples, nil
}

// GetTemperature implements TemperatureGetter by reading
// temperaturePath/identifier. Every HTTPSource satisfies this interface
// structurally, per the Open Question in spec.md §9(a): a DataSource bound
// to a Beer must be able to answer both get_temperature and get_gravity,
// even if one returns "no data" at runtime because the operator never
// configured a path for it.
func (h *HTTPSource) GetTemperature(ctx context.Context, identifier string) ([]Sample, error) {
	if h.temperaturePath == "" {
		return nil, ferrors.New(ferrors.KindDataSourceRead, fmt.Sprintf("datasource %q: no temperature path configured", h.name))
	}
	return h.Get(ctx, withIdentifier(h.temperaturePath, identifier))
}

// GetGravity implements GravityGetter by reading gravityPath/identifier.
// Returns a classified read error when no path is configured, which
// callers treat as "gravity unavailable this poll" (spec.md §4.C).
func (h *HTTPSource) GetGravity(ctx context.Context, identifier string) ([]Sample, error) {
	if h.gravityPath == "" {
		return nil, ferrors.New(ferrors.KindDataSourceRead, fmt.Sprintf("datasource %q: no gravity path configured", h.name))
	}
	return h.Get(ctx, withIdentifier(h.gravityPath, identifier))
}

// withIdentifier appends identifier as a path segment, letting one base
// path address several sensor channels under the same DataSource.
func withIdentifier(path, identifier string) string {
	if identifier == "" {
		return path
	}
	return strings.TrimSuffix(path, "/") + "/" + identifier
}
