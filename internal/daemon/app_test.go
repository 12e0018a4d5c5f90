// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package daemon

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/ManuGH/qemu-vmnet/internal/bridge"
	"github.com/ManuGH/qemu-vmnet/internal/config"
	"github.com/ManuGH/qemu-vmnet/internal/log"
)

type fakeBridge struct {
	runErr error

	mu     sync.Mutex
	limits []bridge.Limits
}

func (f *fakeBridge) Run(ctx context.Context) error {
	if f.runErr != nil {
		return f.runErr
	}
	<-ctx.Done()
	return nil
}

func (f *fakeBridge) Reconfigure(l bridge.Limits) {
	f.mu.Lock()
	f.limits = append(f.limits, l)
	f.mu.Unlock()
}

func (f *fakeBridge) reconfigured() []bridge.Limits {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]bridge.Limits(nil), f.limits...)
}

func newTestManager(t *testing.T) Manager {
	t.Helper()
	mgr, err := NewManager(testServerConfig(""), Deps{Logger: log.WithComponent("test")})
	require.NoError(t, err)
	return mgr
}

func TestApp_MissingDeps(t *testing.T) {
	logger := log.WithComponent("test")

	err := NewApp(logger, nil, nil, &fakeBridge{}).Run(context.Background())
	assert.ErrorIs(t, err, ErrMissingManager)

	err = NewApp(logger, newTestManager(t), nil, nil).Run(context.Background())
	assert.ErrorIs(t, err, ErrMissingBridge)
}

func TestApp_RunUntilCancelled(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	app := NewApp(log.WithComponent("test"), newTestManager(t), nil, &fakeBridge{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestApp_BridgeFailureStopsDaemon(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	boom := errors.New("vmnet read failed")
	mgr := newTestManager(t)
	var hookRan bool
	mgr.RegisterShutdownHook("vmnet", func(context.Context) error {
		hookRan = true
		return nil
	})

	err := NewApp(log.WithComponent("test"), mgr, nil, &fakeBridge{runErr: boom}).Run(context.Background())
	require.ErrorIs(t, err, boom)
	assert.True(t, hookRan, "shutdown hooks run when the bridge fails")
}

func TestApp_AppliesReloadedConfig(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())
	t.Cleanup(func() { zerolog.SetGlobalLevel(zerolog.InfoLevel) })

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("state_dir: "+dir+"\n"), 0o600))

	loader := config.NewLoader(path, "test")
	cfg, err := loader.Load()
	require.NoError(t, err)
	holder := config.NewHolder(cfg, loader)

	fb := &fakeBridge{}
	app := NewApp(log.WithComponent("test"), newTestManager(t), holder, fb)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()

	// The listener registers asynchronously; every attempt writes a new
	// max_clients so each reload carries a change.
	attempt := 0
	require.Eventually(t, func() bool {
		if len(fb.reconfigured()) > 0 {
			return true
		}
		attempt++
		next := fmt.Sprintf("state_dir: %s\nlog:\n  level: debug\nbridge:\n  max_clients: %d\n  hairpin: false\n", dir, 7+attempt)
		if err := os.WriteFile(path, []byte(next), 0o600); err != nil {
			return false
		}
		_, _ = holder.Reload(ctx)
		return len(fb.reconfigured()) > 0
	}, 3*time.Second, 20*time.Millisecond)

	got := fb.reconfigured()[0]
	assert.GreaterOrEqual(t, got.MaxClients, 8)
	assert.False(t, got.Hairpin)
	assert.Equal(t, config.DefaultClientTTL, got.ClientTTL)
	assert.Equal(t, zerolog.DebugLevel, zerolog.GlobalLevel())

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestLimitsFromConfig(t *testing.T) {
	got := LimitsFromConfig(config.BridgeConfig{
		ClientTTL:   time.Minute,
		MaxClients:  4,
		ClientRate:  100,
		ClientBurst: 10,
		Hairpin:     true,
	})
	assert.Equal(t, bridge.Limits{
		ClientTTL:   time.Minute,
		MaxClients:  4,
		ClientRate:  100,
		ClientBurst: 10,
		Hairpin:     true,
	}, got)
}
