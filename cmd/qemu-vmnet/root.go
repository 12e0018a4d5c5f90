// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/ManuGH/qemu-vmnet/internal/config"
	"github.com/ManuGH/qemu-vmnet/internal/daemon"
	xglog "github.com/ManuGH/qemu-vmnet/internal/log"
	"github.com/ManuGH/qemu-vmnet/internal/telemetry"
	"github.com/ManuGH/qemu-vmnet/internal/version"
)

const serviceName = "qemu-vmnet"

const sudoHint = `unable to start vmnet interface, please try again with "sudo"`

type rootOptions struct {
	configPath   string
	address      string
	mode         string
	adminAddress string
	debug        bool
	trace        bool
	cpuProfile   string
	memProfile   string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "qemu-vmnet",
		Short: "Bridge QEMU guests to macOS vmnet over UDP",
		Long: `qemu-vmnet starts a vmnet.framework interface and forwards Ethernet frames
between it and QEMU guests using "-netdev dgram" (or "-netdev socket,udp=")
pointed at the listen address.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return exportFlags(cmd.Flags(), opts)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDaemon(cmd, opts)
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&opts.configPath, "config", "c", "", "path to config file (YAML)")
	pf.StringVar(&opts.address, "address", "", "UDP listen address for guests (default "+config.DefaultListen+")")
	pf.StringVar(&opts.mode, "mode", "", "vmnet mode: host, shared or bridged")
	pf.StringVar(&opts.adminAddress, "admin-address", "", "admin HTTP listen address (empty disables)")
	pf.BoolVar(&opts.debug, "debug", false, "sets log level to debug")
	pf.BoolVar(&opts.trace, "trace", false, "sets log level to trace")

	f := cmd.Flags()
	f.StringVar(&opts.cpuProfile, "cpuprofile", "", "write cpu profile to `file`")
	f.StringVar(&opts.memProfile, "memprofile", "", "write memory profile to `file` on shutdown")

	cmd.AddCommand(newVersionCmd(), newConfigCmd(opts))
	return cmd
}

// flagEnv maps command line flags onto the environment keys they override.
// Exporting them keeps the override in place across config reloads.
var flagEnv = []struct {
	flag string
	env  string
}{
	{"address", config.EnvListen},
	{"mode", config.EnvMode},
	{"admin-address", config.EnvAdminListen},
}

func exportFlags(flags *pflag.FlagSet, opts *rootOptions) error {
	for _, fe := range flagEnv {
		fl := flags.Lookup(fe.flag)
		if fl == nil || !fl.Changed {
			continue
		}
		if err := os.Setenv(fe.env, fl.Value.String()); err != nil {
			return fmt.Errorf("export --%s: %w", fe.flag, err)
		}
	}

	level := ""
	switch {
	case opts.trace:
		level = "trace"
	case opts.debug:
		level = "debug"
	}
	if level != "" {
		if err := os.Setenv(config.EnvLogLevel, level); err != nil {
			return fmt.Errorf("export log level: %w", err)
		}
	}
	return nil
}

func runDaemon(cmd *cobra.Command, opts *rootOptions) (err error) {
	stderr := cmd.ErrOrStderr()

	xglog.Configure(xglog.Config{
		Level:   "info",
		Output:  stderr,
		Service: serviceName,
		Version: version.Version,
	})
	logger := xglog.WithComponent("main")

	stopCPU, err := startCPUProfile(opts.cpuProfile)
	if err != nil {
		return err
	}
	defer stopCPU()

	loader := config.NewLoader(strings.TrimSpace(opts.configPath), version.Version)
	cfg, err := loader.Load()
	if err != nil {
		logger.Error().
			Err(err).
			Str(xglog.FieldEvent, "config.load_failed").
			Str("config_path", loader.ConfigPath()).
			Msg("failed to load configuration")
		return fmt.Errorf("load config: %w", err)
	}

	configureLogger(cfg, stderr)
	logger = xglog.WithComponent("main")
	logConfigSource(logger, loader)

	provider, err := telemetry.NewProvider(cmd.Context(), telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    serviceName,
		ServiceVersion: cfg.Version,
		ExporterType:   cfg.Telemetry.Exporter,
		Endpoint:       cfg.Telemetry.Endpoint,
		SamplingRate:   cfg.Telemetry.SamplingRate,
	})
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		if serr := provider.Shutdown(context.WithoutCancel(cmd.Context())); serr != nil {
			logger.Warn().Err(serr).Str(xglog.FieldEvent, "telemetry.shutdown_failed").Msg("failed to flush traces")
		}
	}()

	holder := config.NewHolder(cfg, loader)
	err = daemon.Run(cmd.Context(), daemon.Params{Config: cfg, Holder: holder})
	if errors.Is(err, daemon.ErrInterfaceStart) {
		logger.Error().Err(err).Str(xglog.FieldEvent, "vmnet.start_failed").Msg(sudoHint)
		return err
	}

	if perr := writeHeapProfile(opts.memProfile); perr != nil {
		logger.Error().Err(perr).Str("path", opts.memProfile).Msg("could not write memory profile")
		err = errors.Join(err, perr)
	}
	if err == nil {
		logger.Info().Str(xglog.FieldEvent, "shutdown.complete").Msg("qemu-vmnet stopped")
	}
	return err
}

func configureLogger(cfg config.AppConfig, out io.Writer) {
	xglog.Configure(xglog.Config{
		Level:   cfg.Log.Level,
		Format:  cfg.Log.Format,
		Output:  out,
		Service: serviceName,
		Version: cfg.Version,
	})
}

func logConfigSource(logger zerolog.Logger, loader *config.Loader) {
	overrides := loader.EnvOverrides()
	if path := loader.ConfigPath(); path != "" {
		logger.Info().
			Str(xglog.FieldEvent, "config.loaded").
			Str("source", "file").
			Str("path", path).
			Strs("env_overrides", overrides).
			Msg("loaded configuration from file")
		return
	}
	logger.Info().
		Str(xglog.FieldEvent, "config.loaded").
		Str("source", "env+defaults").
		Strs("env_overrides", overrides).
		Msg("loaded configuration from environment and defaults")
}
