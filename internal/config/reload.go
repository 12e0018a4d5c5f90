// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	xglog "github.com/ManuGH/qemu-vmnet/internal/log"
	"github.com/ManuGH/qemu-vmnet/internal/telemetry"
)

const tracerName = "github.com/ManuGH/qemu-vmnet/internal/config"

// DefaultDebounce coalesces bursts of file events (editors write in several steps).
const DefaultDebounce = 500 * time.Millisecond

// Holder holds configuration with atomic reloading capability.
// It provides thread-safe access to configuration and supports hot reloading
// from file, signal or API trigger.
type Holder struct {
	mu      sync.RWMutex
	current AppConfig
	loader  *Loader
	logger  zerolog.Logger

	// Debounce is the quiet period before a file change triggers a reload.
	Debounce time.Duration

	// reloads are serialized so listeners observe them in order
	reloadMu sync.Mutex

	listenersMu sync.RWMutex
	listeners   []chan<- AppConfig
}

// NewHolder creates a new configuration holder with initial config.
// loader may be nil, in which case Reload fails with ErrNoLoader.
func NewHolder(initial AppConfig, loader *Loader) *Holder {
	return &Holder{
		current:  initial,
		loader:   loader,
		logger:   xglog.WithComponent("config"),
		Debounce: DefaultDebounce,
	}
}

// Get returns the current configuration (thread-safe read).
func (h *Holder) Get() AppConfig {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.current
}

// Reload loads and validates the configuration again.
// If loading fails, the old configuration is kept and an error is returned.
func (h *Holder) Reload(ctx context.Context) (ChangeSummary, error) {
	if h.loader == nil {
		return ChangeSummary{}, ErrNoLoader
	}

	h.reloadMu.Lock()
	defer h.reloadMu.Unlock()

	_, span := telemetry.Tracer(tracerName).Start(ctx, "config.reload")
	defer span.End()

	h.logger.Info().Str(xglog.FieldEvent, "config.reload_start").Msg("reloading configuration")

	newCfg, err := h.loader.Load()
	if err != nil {
		h.logger.Error().
			Err(err).
			Str(xglog.FieldEvent, "config.reload_failed").
			Msg("failed to load new configuration, keeping current one")
		telemetry.RecordError(span, err, "config")
		return ChangeSummary{}, fmt.Errorf("reload config: %w", err)
	}

	h.mu.Lock()
	oldCfg := h.current
	h.current = newCfg
	h.mu.Unlock()

	summary := Diff(oldCfg, newCfg)
	h.logChanges(summary)
	span.SetAttributes(telemetry.ReloadAttributes(summary.ChangedFields, summary.RestartRequired)...)

	if summary.Changed() {
		h.notifyListeners(newCfg)
	}

	h.logger.Info().
		Str(xglog.FieldEvent, "config.reload_success").
		Int("changed", len(summary.ChangedFields)).
		Bool("restart_required", summary.RestartRequired).
		Msg("configuration reloaded")

	return summary, nil
}

// Watch reloads the configuration whenever the config file changes, until
// ctx is done. Without a config file it blocks until ctx is done.
//
// The parent directory is watched so that editors replacing the file via
// rename are picked up too.
func (h *Holder) Watch(ctx context.Context) error {
	path := ""
	if h.loader != nil {
		path = h.loader.ConfigPath()
	}
	if path == "" {
		h.logger.Info().
			Str(xglog.FieldEvent, "config.watcher_disabled").
			Msg("config file watcher disabled (using ENV-only configuration)")
		<-ctx.Done()
		return nil
	}
	path = filepath.Clean(path)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("watch config dir: %w", err)
	}

	h.logger.Info().
		Str(xglog.FieldEvent, "config.watcher_started").
		Str("path", path).
		Msg("watching config file for changes")

	debounce := h.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	timer := time.NewTimer(debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			h.logger.Info().Str(xglog.FieldEvent, "config.watcher_stopped").Msg("config watcher stopped")
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			h.logger.Debug().
				Str(xglog.FieldEvent, "config.file_changed").
				Str("op", event.Op.String()).
				Msg("config file changed")
			timer.Reset(debounce)

		case <-timer.C:
			if _, err := h.Reload(ctx); err != nil {
				h.logger.Error().
					Err(err).
					Str(xglog.FieldEvent, "config.auto_reload_failed").
					Msg("automatic config reload failed")
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			h.logger.Error().
				Err(err).
				Str(xglog.FieldEvent, "config.watcher_error").
				Msg("config watcher error")
		}
	}
}

// RegisterListener registers a channel to receive config reload notifications.
// The channel will receive the new config whenever a reload changes something.
// Sends never block; a full channel misses the update.
func (h *Holder) RegisterListener(ch chan<- AppConfig) {
	h.listenersMu.Lock()
	defer h.listenersMu.Unlock()
	h.listeners = append(h.listeners, ch)
}

func (h *Holder) notifyListeners(newCfg AppConfig) {
	h.listenersMu.RLock()
	defer h.listenersMu.RUnlock()

	for _, ch := range h.listeners {
		select {
		case ch <- newCfg:
		default:
			h.logger.Warn().
				Str(xglog.FieldEvent, "config.listener_skip").
				Msg("skipped notifying listener (channel full)")
		}
	}
}

func (h *Holder) logChanges(summary ChangeSummary) {
	for _, field := range summary.ChangedFields {
		ev := h.logger.Info()
		msg := "config changed"
		if !HotReloadable(field) {
			ev = h.logger.Warn()
			msg = "config changed, restart required to apply"
		}
		ev.Str("field", field).Str(xglog.FieldEvent, "config.changed").Msg(msg)
	}
}
