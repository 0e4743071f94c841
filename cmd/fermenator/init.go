package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/fermenator/fermenator/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Args:  cobra.NoArgs,
	Short: "Write a default bootstrap descriptor to ./.fermenator",
	RunE:  runInit,
}

func runInit(cmd *cobra.Command, _ []string) error {
	target := cfgPath
	if target == "" {
		target = "./.fermenator"
	}

	if _, err := os.Stat(target); err == nil {
		return fmt.Errorf("%s already exists; refusing to overwrite", target)
	}

	data, err := yaml.Marshal(config.Defaults())
	if err != nil {
		return fmt.Errorf("marshal default config: %w", err)
	}

	if err := os.WriteFile(target, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", target, err)
	}

	fmt.Printf("wrote default bootstrap descriptor to %s\n", target)
	return nil
}
