// metrics.go — Prometheus metrics for the Fermenator supervisor.
//
// Endpoint: GET /metrics on the configured bind address (default
// 127.0.0.1:9091). Format: Prometheus text exposition (OpenMetrics
// compatible).
//
// Metric naming convention: fermenator_<subsystem>_<name>_<unit>.
//
// All metrics are registered on a dedicated prometheus.Registry (not the
// default global registry) to avoid collisions with other instrumented
// libraries sharing the process.

package observability

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds every Prometheus metric descriptor Fermenator records.
type Metrics struct {
	registry *prometheus.Registry

	// ─── Relay ────────────────────────────────────────────────────────────────

	// RelayEnergizedSecondsTotal is registered for energized time per
	// relay, but no relay backend records to it, so it stays at zero.
	// Labels: relay, kind (heating, cooling).
	RelayEnergizedSecondsTotal *prometheus.CounterVec

	// RelayCommandsTotal counts relay on/off commands issued by Managers.
	// Labels: relay, command (on, off).
	RelayCommandsTotal *prometheus.CounterVec

	// RelayActuationErrorsTotal counts failed hardware actuations.
	RelayActuationErrorsTotal *prometheus.CounterVec

	// ─── Manager / Beer ───────────────────────────────────────────────────────

	// ManagerTickDuration records wall-clock duration of one Manager tick.
	ManagerTickDuration *prometheus.HistogramVec

	// BeerRequiresHeating is 1 if the most recent poll requested heating.
	BeerRequiresHeating *prometheus.GaugeVec

	// BeerRequiresCooling is 1 if the most recent poll requested cooling.
	BeerRequiresCooling *prometheus.GaugeVec

	// DataSourceStaleTotal counts polls where the freshest sample exceeded
	// data_age_warning_time.
	DataSourceStaleTotal *prometheus.CounterVec

	// DataSourceMissingTotal counts polls with no usable sample at all.
	DataSourceMissingTotal *prometheus.CounterVec

	// BeerLogicContradictionsTotal counts requires_heating ∧ requires_cooling
	// contradictions (always a bug in a Beer implementation, never expected).
	BeerLogicContradictionsTotal *prometheus.CounterVec

	// ─── Supervisor ───────────────────────────────────────────────────────────

	// ReassemblesTotal counts reassemble() attempts by outcome.
	// Labels: result (success, rejected).
	ReassemblesTotal *prometheus.CounterVec

	// GraphVersion surfaces the currently running ConfigSpec version as a
	// label so dashboards can correlate deploys with behavior changes.
	GraphVersion *prometheus.GaugeVec

	// SupervisorUptimeSeconds is the number of seconds since the supervisor
	// started.
	SupervisorUptimeSeconds prometheus.Gauge

	startTime time.Time
}

// NewMetrics creates and registers all Fermenator Prometheus metrics.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry:  reg,
		startTime: time.Now(),

		RelayEnergizedSecondsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fermenator",
			Subsystem: "relay",
			Name:      "energized_seconds_total",
			Help:      "Total seconds a relay has spent energized, by relay and kind.",
		}, []string{"relay", "kind"}),

		RelayCommandsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fermenator",
			Subsystem: "relay",
			Name:      "commands_total",
			Help:      "Total on/off commands issued to a relay.",
		}, []string{"relay", "command"}),

		RelayActuationErrorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fermenator",
			Subsystem: "relay",
			Name:      "actuation_errors_total",
			Help:      "Total relay actuation failures, treated as tick-local and non-fatal.",
		}, []string{"relay"}),

		ManagerTickDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "fermenator",
			Subsystem: "manager",
			Name:      "tick_duration_seconds",
			Help:      "Wall-clock duration of one Manager tick (decision + actuation).",
			Buckets:   prometheus.DefBuckets,
		}, []string{"beer"}),

		BeerRequiresHeating: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "fermenator",
			Subsystem: "beer",
			Name:      "requires_heating",
			Help:      "1 if the most recent poll requested heating, else 0.",
		}, []string{"beer"}),

		BeerRequiresCooling: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "fermenator",
			Subsystem: "beer",
			Name:      "requires_cooling",
			Help:      "1 if the most recent poll requested cooling, else 0.",
		}, []string{"beer"}),

		DataSourceStaleTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fermenator",
			Subsystem: "datasource",
			Name:      "stale_total",
			Help:      "Total polls whose freshest used sample exceeded data_age_warning_time.",
		}, []string{"beer"}),

		DataSourceMissingTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fermenator",
			Subsystem: "datasource",
			Name:      "missing_total",
			Help:      "Total polls with no usable sample.",
		}, []string{"beer"}),

		BeerLogicContradictionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fermenator",
			Subsystem: "beer",
			Name:      "logic_contradictions_total",
			Help:      "Total requires_heating ∧ requires_cooling contradictions observed.",
		}, []string{"beer"}),

		ReassemblesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fermenator",
			Subsystem: "supervisor",
			Name:      "reassembles_total",
			Help:      "Total reassemble() attempts, by result.",
		}, []string{"result"}),

		GraphVersion: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "fermenator",
			Subsystem: "supervisor",
			Name:      "graph_version_info",
			Help:      "Always 1; the running config version is carried as a label.",
		}, []string{"version"}),

		SupervisorUptimeSeconds: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "fermenator",
			Subsystem: "supervisor",
			Name:      "uptime_seconds",
			Help:      "Number of seconds since the supervisor started.",
		}),
	}

	reg.MustRegister(
		m.RelayEnergizedSecondsTotal,
		m.RelayCommandsTotal,
		m.RelayActuationErrorsTotal,
		m.ManagerTickDuration,
		m.BeerRequiresHeating,
		m.BeerRequiresCooling,
		m.DataSourceStaleTotal,
		m.DataSourceMissingTotal,
		m.BeerLogicContradictionsTotal,
		m.ReassemblesTotal,
		m.GraphVersion,
		m.SupervisorUptimeSeconds,
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)

	return m
}

// ServeMetrics starts the Prometheus HTTP metrics server on addr.
// Blocks until ctx is cancelled; returns nil on clean shutdown.
func (m *Metrics) ServeMetrics(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
		ErrorHandling:     promhttp.ContinueOnError,
	}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go m.updateUptime(ctx)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("metrics server on %s: %w", addr, err)
	}
	return nil
}

func (m *Metrics) updateUptime(ctx context.Context) {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			m.SupervisorUptimeSeconds.Set(time.Since(m.startTime).Seconds())
		case <-ctx.Done():
			return
		}
	}
}
