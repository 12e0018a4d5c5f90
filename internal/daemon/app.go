// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package daemon

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/ManuGH/qemu-vmnet/internal/bridge"
	"github.com/ManuGH/qemu-vmnet/internal/config"
	xglog "github.com/ManuGH/qemu-vmnet/internal/log"
)

// Bridge is the forwarding engine as seen by the App.
type Bridge interface {
	Run(ctx context.Context) error
	Reconfigure(limits bridge.Limits)
}

// App owns the long-lived runtime lifecycle (bridge, watchers, reload wiring)
// and delegates server management to Manager.
type App struct {
	logger       zerolog.Logger
	manager      Manager
	cfgHolder    *config.Holder
	bridge       Bridge
	reloadSignal os.Signal
}

// NewApp creates a new App orchestrator. cfgHolder may be nil (no reloads).
func NewApp(logger zerolog.Logger, manager Manager, cfgHolder *config.Holder, b Bridge) *App {
	return &App{
		logger:       logger,
		manager:      manager,
		cfgHolder:    cfgHolder,
		bridge:       b,
		reloadSignal: syscall.SIGHUP,
	}
}

// Run starts all owned subsystems and blocks until ctx is cancelled or a
// fatal error occurs. A failing bridge takes the whole daemon down.
func (a *App) Run(ctx context.Context) error {
	if a.manager == nil {
		return ErrMissingManager
	}
	if a.bridge == nil {
		return ErrMissingBridge
	}

	g, ctx := errgroup.WithContext(ctx)

	if a.cfgHolder != nil {
		// Config watcher is best-effort: a broken watcher must not stop forwarding.
		g.Go(func() error {
			if err := a.cfgHolder.Watch(ctx); err != nil {
				a.logger.Warn().Err(err).Str(xglog.FieldEvent, "config.watcher_start_failed").Msg("failed to start config watcher")
			}
			return nil
		})

		applyCh := make(chan config.AppConfig, 1)
		a.cfgHolder.RegisterListener(applyCh)
		g.Go(func() error {
			for {
				select {
				case <-ctx.Done():
					return nil
				case cfg := <-applyCh:
					a.applyLive(cfg)
				}
			}
		})
	}

	if a.cfgHolder != nil && a.reloadSignal != nil {
		g.Go(func() error {
			hupChan := make(chan os.Signal, 1)
			signal.Notify(hupChan, a.reloadSignal)
			defer signal.Stop(hupChan)

			for {
				select {
				case <-ctx.Done():
					return nil
				case <-hupChan:
					a.logger.Info().
						Str(xglog.FieldEvent, "config.reload_signal").
						Str("signal", a.reloadSignal.String()).
						Msg("received reload signal, reloading config")

					if _, err := a.cfgHolder.Reload(ctx); err != nil {
						a.logger.Warn().
							Err(err).
							Str(xglog.FieldEvent, "config.reload_failed").
							Msg("config reload failed")
					}
				}
			}
		})
	}

	g.Go(func() error {
		return a.bridge.Run(ctx)
	})

	g.Go(func() error {
		err := a.manager.Start(ctx)
		if err != nil {
			_ = a.manager.Shutdown(context.Background())
		}
		return err
	})

	return g.Wait()
}

// applyLive pushes the hot-reloadable fields into the running components.
func (a *App) applyLive(cfg config.AppConfig) {
	if err := xglog.SetLevel(cfg.Log.Level); err != nil {
		a.logger.Warn().Err(err).Str("level", cfg.Log.Level).Msg("ignoring invalid log level")
	}
	limits := LimitsFromConfig(cfg.Bridge)
	a.bridge.Reconfigure(limits)

	a.logger.Info().
		Str(xglog.FieldEvent, "config.applied").
		Str("log_level", cfg.Log.Level).
		Dur("client_ttl", limits.ClientTTL).
		Int("max_clients", limits.MaxClients).
		Float64("client_rate", limits.ClientRate).
		Int("client_burst", limits.ClientBurst).
		Bool("hairpin", limits.Hairpin).
		Msg("applied live configuration")
}

// LimitsFromConfig maps the bridge section onto forwarding limits.
func LimitsFromConfig(c config.BridgeConfig) bridge.Limits {
	return bridge.Limits{
		ClientTTL:   c.ClientTTL,
		MaxClients:  c.MaxClients,
		ClientRate:  c.ClientRate,
		ClientBurst: c.ClientBurst,
		Hairpin:     c.Hairpin,
	}
}
