package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fermenator/fermenator/internal/config"
	"github.com/fermenator/fermenator/internal/configstore"
	"github.com/fermenator/fermenator/internal/observability"
	"github.com/fermenator/fermenator/internal/statusapi"
	"github.com/fermenator/fermenator/internal/supervisor"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Args:  cobra.NoArgs,
	Short: "Assemble the configured graph and supervise it until shutdown",
	RunE:  runRun,
}

func runRun(cmd *cobra.Command, _ []string) error {
	path, err := resolveConfigPath()
	if err != nil {
		return err
	}

	cfg, err := config.Load(path)
	if err != nil {
		return &startupError{fmt.Errorf("config load failed: %w", err)}
	}

	level := cfg.Observability.LogLevel
	format := cfg.Observability.LogFormat
	if extraVerbose {
		level, format = "debug", "console"
	} else if verbose {
		level = "debug"
	}

	logger, err := observability.BuildLoggerToFile(level, format, logFile)
	if err != nil {
		return &startupError{fmt.Errorf("logger init failed: %w", err)}
	}
	defer logger.Sync() //nolint:errcheck

	logger.Info("fermenator starting",
		zap.String("version", config.Version),
		zap.String("commit", config.GitCommit),
		zap.String("config", path),
	)

	credPath := config.FindCredentials()
	creds, err := config.LoadCredentials(credPath)
	if err != nil {
		return &startupError{fmt.Errorf("credentials load failed: %w", err)}
	}

	store, err := buildConfigStore(cfg, logger)
	if err != nil {
		return &startupError{fmt.Errorf("config store init failed: %w", err)}
	}
	defer store.Close() //nolint:errcheck

	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := metrics.ServeMetrics(ctx, cfg.Observability.MetricsAddr); err != nil {
			logger.Error("metrics server error", zap.Error(err))
		}
	}()

	sup := supervisor.New(cfg, store, creds, metrics, logger)

	if cfg.StatusAPI.Enabled {
		statusSrv := statusapi.NewServer(cfg.StatusAPI.SocketPath, sup, logger)
		go func() {
			if err := statusSrv.ListenAndServe(ctx); err != nil {
				logger.Error("status socket server error", zap.Error(err))
			}
		}()
	}

	if err := sup.Run(ctx); err != nil {
		return &startupError{fmt.Errorf("supervisor exited with error: %w", err)}
	}

	logger.Info("fermenator shutdown complete")
	if ctx.Err() != nil {
		return signalExit{}
	}
	return nil
}

// buildConfigStore constructs the ConfigStore backend named in
// cfg.ConfigStore.Type. Validation in config.Validate already guarantees
// the backend-specific required fields are present.
func buildConfigStore(cfg *config.Config, logger *zap.Logger) (configstore.ConfigStore, error) {
	cs := cfg.ConfigStore
	switch cs.Type {
	case "inline":
		return configstore.NewInline(cs.Path, cs.RefreshInterval.Seconds(), logger)
	case "tabular_sheet":
		reader := configstore.YAMLSheetReader{Path: cs.Path}
		return configstore.NewTabularSheet(reader, cs.SpreadsheetID, cs.SheetRange, cs.RefreshInterval.Seconds(), logger), nil
	case "remote_kv":
		return configstore.NewRemoteKV(configstore.RemoteKVConfig{
			Addr:            cs.RemoteAddr,
			RefreshInterval: cs.RefreshInterval.Seconds(),
			TLSCertFile:     cs.TLSCertFile,
			TLSKeyFile:      cs.TLSKeyFile,
			TLSCAFile:       cs.TLSCAFile,
		}, logger)
	default:
		return nil, fmt.Errorf("unknown config_store.type %q", cs.Type)
	}
}
