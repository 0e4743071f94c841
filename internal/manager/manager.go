// Package manager implements the Manager control loop from spec.md
// §3/§4.D: one goroutine per entry in the ConfigSpec's managers map,
// polling a Beer's DataSources on a ticker and actuating its heating/
// cooling Relays.
package manager

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/fermenator/fermenator/internal/beer"
	"github.com/fermenator/fermenator/internal/observability"
	"github.com/fermenator/fermenator/internal/relay"
)

// RunState mirrors the lifecycle spec.md §5 describes for a Manager:
// idle -> polling -> actuating -> sleeping -> polling -> ... -> stopping -> stopped.
type RunState uint8

const (
	StateIdle RunState = iota
	StatePolling
	StateActuating
	StateSleeping
	StateStopping
	StateStopped
)

func (s RunState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePolling:
		return "polling"
	case StateActuating:
		return "actuating"
	case StateSleeping:
		return "sleeping"
	case StateStopping:
		return "stopping"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Config describes one Manager's wiring: the Beer it evaluates, the
// Relays it actuates, whether each relay is currently enabled, and the
// poll interval. The Beer owns its own DataSource binding (spec.md §3's
// Ownership note: "Beers hold a non-owning handle to their DataSource");
// the Manager never touches a DataSource directly.
type Config struct {
	Name string
	Beer beer.Beer

	HeatRelay relay.Relay // nil if this fermentation has no heater
	CoolRelay relay.Relay // nil if this fermentation has no cooler

	// ActiveHeating and ActiveCooling independently disable a configured
	// relay at runtime (spec.md §3/§4.D step 3): when false, the relay is
	// always commanded off regardless of the Beer's decision.
	ActiveHeating bool
	ActiveCooling bool

	PollInterval time.Duration
}

// Manager owns one goroutine that evaluates its Beer on a ticker and
// actuates its Relays in response to the Beer's decisions.
type Manager struct {
	cfg     Config
	logger  *zap.Logger
	metrics *observability.Metrics

	mu       sync.Mutex
	state    RunState
	decision beer.Decision

	stop     chan struct{}
	stopped  chan struct{}
	stopOnce sync.Once
}

// New constructs a Manager. Call Run to start its goroutine.
func New(cfg Config, logger *zap.Logger, metrics *observability.Metrics) *Manager {
	return &Manager{
		cfg:     cfg,
		logger:  logger.With(zap.String("manager", cfg.Name), zap.String("beer", cfg.Beer.Name())),
		metrics: metrics,
		state:   StateIdle,
		stop:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
}

// State returns the Manager's current lifecycle state.
func (m *Manager) State() RunState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Manager) setState(s RunState) {
	m.mu.Lock()
	m.state = s
	m.mu.Unlock()
}

// Name returns the manager's configured name.
func (m *Manager) Name() string { return m.cfg.Name }

// BeerName returns the name of the Beer this manager evaluates.
func (m *Manager) BeerName() string { return m.cfg.Beer.Name() }

// HeatRelayName returns the heat relay's name, or "" if none is configured.
func (m *Manager) HeatRelayName() string {
	if m.cfg.HeatRelay == nil {
		return ""
	}
	return m.cfg.HeatRelay.Name()
}

// CoolRelayName returns the cool relay's name, or "" if none is configured.
func (m *Manager) CoolRelayName() string {
	if m.cfg.CoolRelay == nil {
		return ""
	}
	return m.cfg.CoolRelay.Name()
}

// HeatOn reports whether the heat relay is currently energized.
func (m *Manager) HeatOn() bool {
	return m.cfg.HeatRelay != nil && m.cfg.HeatRelay.IsOn()
}

// CoolOn reports whether the cool relay is currently energized.
func (m *Manager) CoolOn() bool {
	return m.cfg.CoolRelay != nil && m.cfg.CoolRelay.IsOn()
}

// LastDecision returns the most recent Beer decision this manager acted on.
func (m *Manager) LastDecision() beer.Decision {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.decision
}

// Run starts the poll/actuate loop in the calling goroutine. It returns
// when ctx is cancelled or Stop is called, after forcing both relays off.
func (m *Manager) Run(ctx context.Context) {
	defer close(m.stopped)

	ticker := time.NewTicker(m.cfg.PollInterval)
	defer ticker.Stop()

	m.setState(StateSleeping)
	for {
		select {
		case <-ticker.C:
			m.tick(ctx)
		case <-m.stop:
			m.shutdown(ctx)
			return
		case <-ctx.Done():
			m.shutdown(ctx)
			return
		}
	}
}

// Stop signals the Manager to stop and blocks until its relays have been
// forced off and its goroutine has exited, or ctx expires first.
func (m *Manager) Stop(ctx context.Context) error {
	m.stopOnce.Do(func() {
		close(m.stop)
	})
	select {
	case <-m.stopped:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("manager %s: stop timed out: %w", m.cfg.Name, ctx.Err())
	}
}

func (m *Manager) shutdown(ctx context.Context) {
	m.setState(StateStopping)
	offCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	m.forceOff(offCtx)
	m.setState(StateStopped)
}

func (m *Manager) forceOff(ctx context.Context) {
	if m.cfg.HeatRelay != nil {
		if err := m.cfg.HeatRelay.Off(ctx); err != nil {
			m.logger.Warn("failed to de-energize heat relay on shutdown", zap.Error(err))
		}
	}
	if m.cfg.CoolRelay != nil {
		if err := m.cfg.CoolRelay.Off(ctx); err != nil {
			m.logger.Warn("failed to de-energize cool relay on shutdown", zap.Error(err))
		}
	}
}

// tick performs one poll+decide+actuate cycle. The Beer owns reading its
// DataSource; tick-local errors do not stop the Manager (spec.md §7):
// DataSourceRead/DataSourceAuth are logged by the Beer's Binding, and
// RelayActuation failures are logged by drive.
func (m *Manager) tick(ctx context.Context) {
	start := time.Now()
	m.setState(StatePolling)
	defer func() {
		m.metrics.ManagerTickDuration.WithLabelValues(m.cfg.Beer.Name()).Observe(time.Since(start).Seconds())
	}()

	decision, err := m.cfg.Beer.Evaluate(ctx)
	if err != nil {
		m.logger.Error("beer evaluation failed", zap.Error(err))
		m.setState(StateSleeping)
		return
	}

	m.setState(StateActuating)
	m.actuate(ctx, decision)
	m.setState(StateSleeping)
}

// actuate applies decision to the Manager's relays. A contradictory
// decision (both heating and cooling requested) forces both relays off
// rather than guessing, and is always logged and counted — it indicates a
// Beer implementation bug (spec.md §7/§8).
func (m *Manager) actuate(ctx context.Context, decision beer.Decision) {
	m.mu.Lock()
	m.decision = decision
	m.mu.Unlock()

	if decision.Contradiction {
		m.metrics.BeerLogicContradictionsTotal.WithLabelValues(m.cfg.Beer.Name()).Inc()
		m.logger.Error("beer requested heating and cooling simultaneously; forcing both relays off")
		m.forceOff(ctx)
		m.metrics.BeerRequiresHeating.WithLabelValues(m.cfg.Beer.Name()).Set(0)
		m.metrics.BeerRequiresCooling.WithLabelValues(m.cfg.Beer.Name()).Set(0)
		return
	}

	m.metrics.BeerRequiresHeating.WithLabelValues(m.cfg.Beer.Name()).Set(boolToFloat(decision.RequiresHeating))
	m.metrics.BeerRequiresCooling.WithLabelValues(m.cfg.Beer.Name()).Set(boolToFloat(decision.RequiresCooling))

	// spec.md §4.D steps 3-4: a relay whose active_{heating,cooling} flag
	// is false is always commanded off, regardless of the Beer's decision.
	m.drive(ctx, m.cfg.HeatRelay, "heating", m.cfg.ActiveHeating && decision.RequiresHeating)
	m.drive(ctx, m.cfg.CoolRelay, "cooling", m.cfg.ActiveCooling && decision.RequiresCooling)
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func (m *Manager) drive(ctx context.Context, r relay.Relay, kind string, want bool) {
	if r == nil {
		return
	}
	if want && r.IsOff() {
		if err := r.On(ctx); err != nil {
			m.metrics.RelayActuationErrorsTotal.WithLabelValues(r.Name()).Inc()
			m.logger.Warn("relay actuation failed", zap.String("relay", r.Name()), zap.Error(err))
			return
		}
		m.metrics.RelayCommandsTotal.WithLabelValues(r.Name(), "on").Inc()
	} else if !want && r.IsOn() {
		if err := r.Off(ctx); err != nil {
			m.metrics.RelayActuationErrorsTotal.WithLabelValues(r.Name()).Inc()
			m.logger.Warn("relay actuation failed", zap.String("relay", r.Name()), zap.Error(err))
			return
		}
		m.metrics.RelayCommandsTotal.WithLabelValues(r.Name(), "off").Inc()
	}
	_ = kind
}
