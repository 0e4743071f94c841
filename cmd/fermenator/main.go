// Package main — cmd/fermenator/main.go
//
// Fermenator supervisor entrypoint.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fermenator/fermenator/internal/config"
)

var (
	cfgPath       string
	verbose       bool
	extraVerbose  bool
	logFile       string
)

var rootCmd = &cobra.Command{
	Use:     "fermenator",
	Short:   "Declarative fermentation-control supervisor",
	Version: config.Version,
	Long: `Fermenator supervises a declarative graph of relays, data sources,
beers, and managers, polling fermentation temperatures and actuating
heating/cooling relays to keep each fermentation on its configured curve.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "bootstrap descriptor path (default: search ./.fermenator, ~/.fermenator/config, /etc/fermenator/config)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug-level logging")
	rootCmd.PersistentFlags().BoolVar(&extraVerbose, "extra-verbose", false, "debug-level logging with console format")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "write logs to this file instead of stderr")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(initCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		if _, signaled := err.(signalExit); !signaled {
			fmt.Fprintln(os.Stderr, err)
		}
		if ec, ok := err.(exitCoder); ok {
			os.Exit(ec.ExitCode())
		}
		os.Exit(1)
	}
}

// resolveConfigPath returns the explicit --config flag value, or the
// first path config.Find() finds, or an error if neither is available.
func resolveConfigPath() (string, error) {
	if cfgPath != "" {
		return cfgPath, nil
	}
	if found := config.Find(); found != "" {
		return found, nil
	}
	return "", &usageError{fmt.Errorf("no bootstrap descriptor found; pass --config or create ./.fermenator")}
}
