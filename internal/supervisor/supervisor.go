// Package supervisor owns the bootstrap -> assemble -> run -> reassemble
// -> disassemble lifecycle from spec.md §3/§4.F: it turns a ConfigSpec
// into a live graph of Relays, DataSources, Beers, and Managers, and
// keeps that graph in sync with the ConfigStore's refresh_interval.
package supervisor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/fermenator/fermenator/internal/beer"
	"github.com/fermenator/fermenator/internal/config"
	"github.com/fermenator/fermenator/internal/configstore"
	"github.com/fermenator/fermenator/internal/datasource"
	"github.com/fermenator/fermenator/internal/ferrors"
	"github.com/fermenator/fermenator/internal/manager"
	"github.com/fermenator/fermenator/internal/observability"
	"github.com/fermenator/fermenator/internal/relay"
	"github.com/fermenator/fermenator/internal/units"
)

// graph is one assembled object graph: every live Relay/DataSource/Beer/
// Manager built from a single ConfigSpec, plus the cancel function and
// waitgroup for its Managers' goroutines.
type graph struct {
	spec        *configstore.ConfigSpec
	relays      map[string]relay.Relay
	dataSources map[string]datasource.DataSource
	beers       map[string]beer.Beer
	managers    map[string]*manager.Manager

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Supervisor assembles and supervises one fermentation-control graph.
type Supervisor struct {
	cfg     *config.Config
	store   configstore.ConfigStore
	creds   *config.Credentials
	metrics *observability.Metrics
	logger  *zap.Logger

	mu      sync.Mutex
	current *graph
}

// New constructs a Supervisor. Call Run to assemble the initial graph and
// begin supervising it.
func New(cfg *config.Config, store configstore.ConfigStore, creds *config.Credentials, metrics *observability.Metrics, logger *zap.Logger) *Supervisor {
	return &Supervisor{cfg: cfg, store: store, creds: creds, metrics: metrics, logger: logger}
}

// Run loads the initial ConfigSpec, assembles it, and polls the
// ConfigStore's refresh_interval for changes until ctx is cancelled, at
// which point it disassembles the running graph and returns.
func (s *Supervisor) Run(ctx context.Context) error {
	spec, err := s.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("supervisor: initial load failed: %w", err)
	}

	g, err := s.assemble(ctx, spec)
	if err != nil {
		return fmt.Errorf("supervisor: initial assemble failed: %w", err)
	}
	s.mu.Lock()
	s.current = g
	s.mu.Unlock()
	s.startManagers(g)
	s.metrics.GraphVersion.WithLabelValues(spec.Version).Set(1)
	s.logger.Info("supervisor assembled initial graph", zap.String("version", spec.Version))

	interval, ok := s.store.RefreshInterval()
	if !ok {
		interval = s.cfg.ConfigStore.RefreshInterval.Seconds()
	}
	ticker := time.NewTicker(time.Duration(interval * float64(time.Second)))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.disassemble(context.Background())
			return nil
		case <-ticker.C:
			s.pollForChanges(ctx)
		}
	}
}

func (s *Supervisor) pollForChanges(ctx context.Context) {
	changed, err := s.store.HasChanged(ctx)
	if err != nil {
		s.logger.Warn("configstore has_changed check failed", zap.Error(err))
		return
	}
	if !changed {
		return
	}

	spec, err := s.store.Load(ctx)
	if err != nil {
		s.logger.Error("configstore reload failed; retaining running graph", zap.Error(err))
		s.metrics.ReassemblesTotal.WithLabelValues("rejected").Inc()
		return
	}

	s.reassemble(ctx, spec)
}

// reassemble builds a new graph from spec. If assembly fails (ConfigInvalid
// or ConfigReferentialIntegrity), the previous graph keeps running
// unchanged (spec.md §7). On success, the old graph is disassembled after
// the new one is live.
func (s *Supervisor) reassemble(ctx context.Context, spec *configstore.ConfigSpec) {
	newGraph, err := s.assemble(ctx, spec)
	if err != nil {
		s.logger.Error("reassemble failed; retaining running graph",
			zap.Error(err), zap.Bool("is_config_error", ferrors.Is(err, ferrors.KindConfigInvalid) || ferrors.Is(err, ferrors.KindConfigReferentialIntegrity)))
		s.metrics.ReassemblesTotal.WithLabelValues("rejected").Inc()
		return
	}

	s.mu.Lock()
	old := s.current
	s.current = newGraph
	s.mu.Unlock()

	s.startManagers(newGraph)
	s.metrics.ReassemblesTotal.WithLabelValues("success").Inc()
	s.metrics.GraphVersion.Reset()
	s.metrics.GraphVersion.WithLabelValues(spec.Version).Set(1)
	s.logger.Info("supervisor reassembled graph", zap.String("version", spec.Version))

	s.disassembleGraph(context.Background(), old)
}

// assemble builds a fresh graph from spec without touching the currently
// running one.
func (s *Supervisor) assemble(ctx context.Context, spec *configstore.ConfigSpec) (*graph, error) {
	if err := configstore.Validate(spec); err != nil {
		return nil, err
	}

	g := &graph{
		spec:        spec,
		relays:      map[string]relay.Relay{},
		dataSources: map[string]datasource.DataSource{},
		beers:       map[string]beer.Beer{},
		managers:    map[string]*manager.Manager{},
	}

	for name, rs := range spec.Relays {
		r, err := relay.New(rs.Type, relay.Config{
			Name:       name,
			DutyCycle:  rs.DutyCycle,
			CycleTime:  rs.CycleTime,
			ActiveHigh: rs.ActiveHigh,
			Pin:        rs.Pin,
			Extra:      rs.Extra,
		}, s.logger)
		if err != nil {
			return nil, ferrors.Wrap(ferrors.KindConfigInvalid, fmt.Sprintf("relay %q", name), err)
		}
		g.relays[name] = r
	}

	for name, ss := range spec.DataSources {
		ds, err := s.buildDataSource(name, s.resolveInherit(ss))
		if err != nil {
			return nil, err
		}
		g.dataSources[name] = ds
	}

	for name, bs := range spec.Beers {
		b, err := s.buildBeer(name, bs, g)
		if err != nil {
			return nil, err
		}
		g.beers[name] = b
	}

	for name, ms := range spec.Managers {
		m, err := s.buildManager(name, ms, g)
		if err != nil {
			return nil, err
		}
		g.managers[name] = m
	}

	return g, nil
}

// resolveInherit implements spec.md §4.E's `inherit` rule: a datasource
// config whose base_url is the literal "inherit" resolves to the
// bootstrap descriptor's datastore block, so several DataSources backed
// by one cloud account or spreadsheet need only one credential.
func (s *Supervisor) resolveInherit(ss configstore.SourceSpec) configstore.SourceSpec {
	if ss.BaseURL == "inherit" {
		ss.BaseURL = s.cfg.Datastore.BaseURL
	}
	return ss
}

func (s *Supervisor) buildDataSource(name string, ss configstore.SourceSpec) (datasource.DataSource, error) {
	cred := s.creds.DataSources[name]
	base := datasource.NewHTTPSource(datasource.HTTPConfig{
		Name:            name,
		BaseURL:         ss.BaseURL,
		APIKey:          cred.APIKey,
		Username:        cred.Username,
		Password:        cred.Password,
		TemperaturePath: ss.TemperaturePath,
		GravityPath:     ss.GravityPath,
	}, s.logger)

	if !ss.Cache {
		return base, nil
	}

	cached, err := datasource.NewCachedSource(base, fmt.Sprintf("/var/lib/fermenator/%s.cache.db", name), 0, s.logger)
	if err != nil {
		return nil, ferrors.Wrap(ferrors.KindConfigInvalid, fmt.Sprintf("datasource %q cache", name), err)
	}
	return cached, nil
}

// buildBeer constructs a Beer and the Binding it uses to read its
// DataSource. The Binding's DataSource reference lives here, on the Beer,
// per spec.md §3's Ownership note ("Beers hold a non-owning handle to
// their DataSource") and §6 (beers[b].config must include datasource and
// identifier).
func (s *Supervisor) buildBeer(name string, bs configstore.BeerSpec, g *graph) (beer.Beer, error) {
	binding, err := s.buildBinding(name, bs, g)
	if err != nil {
		return nil, err
	}

	switch bs.Type {
	case "set_point":
		return beer.NewSetPoint(name, bs.Target, bs.Tolerance, binding), nil
	case "linear_ramp":
		return beer.NewLinearRamp(name, bs.OriginalGravity, bs.FinalGravity, bs.StartSetPoint, bs.EndSetPoint, bs.Tolerance, binding), nil
	default:
		return nil, ferrors.New(ferrors.KindConfigInvalid, fmt.Sprintf("beer %q: unknown type %q", name, bs.Type))
	}
}

// buildBinding resolves bs.DataSource against the already-assembled
// DataSources, confirms it implements both get_temperature and
// get_gravity (spec.md §9(a): a DataSource bound to a Beer must answer
// both, independent of which curve the Beer evaluates), and wires up its
// unit conversion.
func (s *Supervisor) buildBinding(name string, bs configstore.BeerSpec, g *graph) (*beer.Binding, error) {
	ds, ok := g.dataSources[bs.DataSource]
	if !ok {
		return nil, ferrors.New(ferrors.KindConfigReferentialIntegrity, fmt.Sprintf("beer %q: datasource %q not assembled", name, bs.DataSource))
	}

	tempGetter, ok := ds.(datasource.TemperatureGetter)
	if !ok {
		return nil, ferrors.New(ferrors.KindConfigReferentialIntegrity, fmt.Sprintf("beer %q: datasource %q does not implement get_temperature", name, bs.DataSource))
	}
	gravGetter, ok := ds.(datasource.GravityGetter)
	if !ok {
		return nil, ferrors.New(ferrors.KindConfigReferentialIntegrity, fmt.Sprintf("beer %q: datasource %q does not implement get_gravity", name, bs.DataSource))
	}

	sourceSpec := g.spec.DataSources[bs.DataSource]
	sourceTempUnit, ok := units.ParseTemperatureUnit(sourceSpec.Unit)
	if !ok {
		return nil, ferrors.New(ferrors.KindUnsupportedUnit, fmt.Sprintf("datasource %q: unsupported temperature unit %q", bs.DataSource, sourceSpec.Unit))
	}
	targetTempUnit, ok := units.ParseTemperatureUnit(bs.Unit)
	if !ok {
		return nil, ferrors.New(ferrors.KindUnsupportedUnit, fmt.Sprintf("beer %q: unsupported temperature unit %q", name, bs.Unit))
	}

	// Gravity units default to SG<->SG (a no-op conversion) when a beer
	// or its datasource declares none, since a pure SetPoint beer has no
	// occasion to set gravity_unit at all.
	sourceGravityUnit, ok := units.ParseGravityUnit(sourceSpec.Unit)
	if !ok {
		sourceGravityUnit = units.SG
	}
	targetGravityUnit, ok := units.ParseGravityUnit(bs.GravityUnit)
	if !ok {
		targetGravityUnit = units.SG
	}

	return &beer.Binding{
		BeerName:              name,
		Identifier:            bs.Identifier,
		Temp:                  tempGetter,
		Gravity:               gravGetter,
		SourceTemperatureUnit: sourceTempUnit,
		TargetTemperatureUnit: targetTempUnit,
		SourceGravityUnit:     sourceGravityUnit,
		TargetGravityUnit:     targetGravityUnit,
		DataAgeWarning:        time.Duration(bs.DataAgeWarningSec * float64(time.Second)),
		Logger:                s.logger,
		Metrics:               s.metrics,
	}, nil
}

func (s *Supervisor) buildManager(name string, ms configstore.ManagerSpec, g *graph) (*manager.Manager, error) {
	b, ok := g.beers[ms.Beer]
	if !ok {
		return nil, ferrors.New(ferrors.KindConfigReferentialIntegrity, fmt.Sprintf("manager %q: beer %q not assembled", name, ms.Beer))
	}

	var heat, cool relay.Relay
	if ms.HeatRelay != "" {
		heat, ok = g.relays[ms.HeatRelay]
		if !ok {
			return nil, ferrors.New(ferrors.KindConfigReferentialIntegrity, fmt.Sprintf("manager %q: heat_relay %q not assembled", name, ms.HeatRelay))
		}
	}
	if ms.CoolRelay != "" {
		cool, ok = g.relays[ms.CoolRelay]
		if !ok {
			return nil, ferrors.New(ferrors.KindConfigReferentialIntegrity, fmt.Sprintf("manager %q: cool_relay %q not assembled", name, ms.CoolRelay))
		}
	}

	return manager.New(manager.Config{
		Name:          name,
		Beer:          b,
		HeatRelay:     heat,
		CoolRelay:     cool,
		ActiveHeating: configstore.ActiveOrDefault(ms.ActiveHeating),
		ActiveCooling: configstore.ActiveOrDefault(ms.ActiveCooling),
		PollInterval:  time.Duration(ms.PollIntervalSec * float64(time.Second)),
	}, s.logger, s.metrics), nil
}

func (s *Supervisor) startManagers(g *graph) {
	ctx, cancel := context.WithCancel(context.Background())
	g.cancel = cancel
	for _, m := range g.managers {
		m := m
		g.wg.Add(1)
		go func() {
			defer g.wg.Done()
			m.Run(ctx)
		}()
	}
}

// disassemble stops the currently running graph's Managers (each forcing
// its relays off within the configured shutdown timeout) and releases its
// DataSource/relay resources.
func (s *Supervisor) disassemble(ctx context.Context) {
	s.mu.Lock()
	g := s.current
	s.current = nil
	s.mu.Unlock()
	if g == nil {
		return
	}
	s.disassembleGraph(ctx, g)
}

func (s *Supervisor) disassembleGraph(ctx context.Context, g *graph) {
	if g == nil {
		return
	}
	g.cancel()

	stopCtx, cancel := context.WithTimeout(ctx, s.cfg.ShutdownTimeout)
	defer cancel()
	for name, m := range g.managers {
		if err := m.Stop(stopCtx); err != nil {
			s.logger.Warn("manager stop timed out", zap.String("manager", name), zap.Error(err))
		}
	}

	offCtx, cancel2 := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel2()
	for name, r := range g.relays {
		if err := r.Shutdown(offCtx); err != nil {
			s.logger.Warn("relay shutdown failed", zap.String("relay", name), zap.Error(err))
		}
	}

	for name, ds := range g.dataSources {
		if closer, ok := ds.(interface{ Close() error }); ok {
			if err := closer.Close(); err != nil {
				s.logger.Warn("datasource close failed", zap.String("datasource", name), zap.Error(err))
			}
		}
	}
}
