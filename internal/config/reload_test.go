// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/goleak"

	"github.com/ManuGH/qemu-vmnet/internal/telemetry"
)

func newTestHolder(t *testing.T, content string) (*Holder, string) {
	t.Helper()
	path := writeConfig(t, content)
	loader := NewLoader(path, "test")
	cfg, err := loader.Load()
	require.NoError(t, err)
	return NewHolder(cfg, loader), path
}

func TestHolder_Reload(t *testing.T) {
	t.Setenv(EnvStateDir, t.TempDir())
	h, path := newTestHolder(t, "log:\n  level: info\n")

	updates := make(chan AppConfig, 1)
	h.RegisterListener(updates)

	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: debug\nlisten: \":3000\"\n"), 0o600))

	summary, err := h.Reload(context.Background())
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"log.level", "listen"}, summary.ChangedFields)
	assert.True(t, summary.RestartRequired)
	assert.Equal(t, "debug", h.Get().Log.Level)

	select {
	case cfg := <-updates:
		assert.Equal(t, ":3000", cfg.Listen)
	default:
		t.Fatal("listener was not notified")
	}
}

func TestHolder_ReloadNoChangeSkipsListeners(t *testing.T) {
	t.Setenv(EnvStateDir, t.TempDir())
	h, _ := newTestHolder(t, "log:\n  level: info\n")

	updates := make(chan AppConfig, 1)
	h.RegisterListener(updates)

	summary, err := h.Reload(context.Background())
	require.NoError(t, err)
	assert.False(t, summary.Changed())
	assert.Empty(t, updates)
}

func TestHolder_ReloadKeepsOldConfigOnError(t *testing.T) {
	t.Setenv(EnvStateDir, t.TempDir())
	h, path := newTestHolder(t, "log:\n  level: warn\n")

	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: loud\n"), 0o600))

	_, err := h.Reload(context.Background())
	require.Error(t, err)
	assert.Equal(t, "warn", h.Get().Log.Level)
}

func TestHolder_ReloadWithoutLoader(t *testing.T) {
	h := NewHolder(Default(), nil)
	_, err := h.Reload(context.Background())
	assert.ErrorIs(t, err, ErrNoLoader)
}

func TestHolder_ListenerFullDoesNotBlock(t *testing.T) {
	t.Setenv(EnvStateDir, t.TempDir())
	h, path := newTestHolder(t, "log:\n  level: info\n")

	full := make(chan AppConfig)
	h.RegisterListener(full)

	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: error\n"), 0o600))
	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = h.Reload(context.Background())
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Reload blocked on a listener without capacity")
	}
}

func TestHolder_Watch(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())
	t.Setenv(EnvStateDir, t.TempDir())

	h, path := newTestHolder(t, "bridge:\n  max_clients: 4\n")
	h.Debounce = 20 * time.Millisecond

	updates := make(chan AppConfig, 4)
	h.RegisterListener(updates)

	ctx, cancel := context.WithCancel(context.Background())
	watchErr := make(chan error, 1)
	go func() { watchErr <- h.Watch(ctx) }()

	// Rewrite until the watcher has registered; events before Add are lost.
	require.Eventually(t, func() bool {
		tmp := filepath.Join(filepath.Dir(path), ".config.yaml.tmp")
		if err := os.WriteFile(tmp, []byte("bridge:\n  max_clients: 16\n"), 0o600); err != nil {
			return false
		}
		if err := os.Rename(tmp, path); err != nil {
			return false
		}
		select {
		case cfg := <-updates:
			return cfg.Bridge.MaxClients == 16
		case <-time.After(200 * time.Millisecond):
			return false
		}
	}, 5*time.Second, 10*time.Millisecond)

	assert.Equal(t, 16, h.Get().Bridge.MaxClients)

	cancel()
	select {
	case err := <-watchErr:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Watch did not return after cancel")
	}
}

func TestHolder_WatchWithoutFileBlocksUntilDone(t *testing.T) {
	h := NewHolder(Default(), NewLoader("", ""))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	assert.NoError(t, h.Watch(ctx))
}

func TestHolder_ReloadRecordsSpan(t *testing.T) {
	t.Setenv(EnvStateDir, t.TempDir())
	recorder := tracetest.NewSpanRecorder()
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder)))
	t.Cleanup(func() { otel.SetTracerProvider(noop.NewTracerProvider()) })

	h, path := newTestHolder(t, "log:\n  level: info\n")
	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: debug\n"), 0o600))
	_, err := h.Reload(context.Background())
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: loud\n"), 0o600))
	_, err = h.Reload(context.Background())
	require.Error(t, err)

	spans := recorder.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, "config.reload", spans[0].Name())
	assert.Contains(t, spans[0].Attributes(), attribute.StringSlice(telemetry.ConfigChangedKey, []string{"log.level"}))
	assert.Equal(t, codes.Error, spans[1].Status().Code)
}
