// SPDX-License-Identifier: MIT

package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ManuGH/qemu-vmnet/internal/config"
	"github.com/ManuGH/qemu-vmnet/internal/version"
)

func newConfigCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and validate configuration",
		Args:  cobra.NoArgs,
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "print",
			Short: "Print the effective configuration (defaults, file and environment merged)",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				cfg, err := loadConfig(opts)
				if err != nil {
					return err
				}
				out, err := config.Marshal(cfg)
				if err != nil {
					return err
				}
				_, err = cmd.OutOrStdout().Write(out)
				return err
			},
		},
		&cobra.Command{
			Use:   "validate",
			Short: "Validate the configuration and exit",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				if _, err := loadConfig(opts); err != nil {
					return err
				}
				source := strings.TrimSpace(opts.configPath)
				if source == "" {
					source = "configuration (env+defaults)"
				}
				_, err := fmt.Fprintf(cmd.OutOrStdout(), "✓ %s is valid\n", source)
				return err
			},
		},
	)
	return cmd
}

func loadConfig(opts *rootOptions) (config.AppConfig, error) {
	path := strings.TrimSpace(opts.configPath)
	cfg, err := config.NewLoader(path, version.Version).Load()
	if err != nil {
		if path == "" {
			return config.AppConfig{}, fmt.Errorf("configuration error: %w", err)
		}
		return config.AppConfig{}, fmt.Errorf("configuration error in %s: %w", path, err)
	}
	return cfg, nil
}
