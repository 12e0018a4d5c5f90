// SPDX-License-Identifier: MIT

// Package daemon provides the core daemon bootstrapping and lifecycle management.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/ManuGH/qemu-vmnet/internal/api"
	"github.com/ManuGH/qemu-vmnet/internal/bridge"
	"github.com/ManuGH/qemu-vmnet/internal/config"
	xglog "github.com/ManuGH/qemu-vmnet/internal/log"
	"github.com/ManuGH/qemu-vmnet/internal/metrics"
	"github.com/ManuGH/qemu-vmnet/internal/state"
	"github.com/ManuGH/qemu-vmnet/internal/telemetry"
	"github.com/ManuGH/qemu-vmnet/internal/vmnet"
)

const tracerName = "github.com/ManuGH/qemu-vmnet/internal/daemon"

// Params wires one daemon run.
type Params struct {
	// Config is the validated startup configuration.
	Config config.AppConfig

	// Holder enables hot reload (file watch, SIGHUP, admin API). Optional.
	Holder *config.Holder

	// NewDevice creates the vmnet device. Defaults to the vmnet.framework binding.
	NewDevice func(vmnet.Options) vmnet.Device

	// ListenPacket opens the guest-facing socket. Defaults to net.ListenPacket.
	ListenPacket func(network, address string) (net.PacketConn, error)

	// Logger defaults to the "daemon" component logger.
	Logger *zerolog.Logger
}

// Run starts the vmnet interface, opens the UDP socket and forwards frames
// until ctx is cancelled. Device and socket are released before Run returns.
func Run(ctx context.Context, p Params) error {
	logger := xglog.WithComponent("daemon")
	if p.Logger != nil {
		logger = *p.Logger
	}
	newDevice := p.NewDevice
	if newDevice == nil {
		newDevice = func(opts vmnet.Options) vmnet.Device { return vmnet.New(opts) }
	}
	listenPacket := p.ListenPacket
	if listenPacket == nil {
		listenPacket = net.ListenPacket
	}
	cfg := p.Config

	opts, err := resolveVMNetOptions(cfg, logger)
	if err != nil {
		return err
	}

	dev := newDevice(opts)
	if err := startDevice(ctx, dev, opts); err != nil {
		return err
	}
	mac := dev.HardwareAddr().String()
	logger.Info().
		Str(xglog.FieldEvent, "vmnet.started").
		Str(xglog.FieldMode, opts.Mode.String()).
		Str("mac", mac).
		Int("max_packet_size", dev.MaxPacketSize()).
		Str("interface_id", opts.InterfaceID.String()).
		Msg("vmnet interface started")

	stopDevice := func(context.Context) error {
		defer metrics.RecordInterfaceDown()
		return dev.Stop()
	}

	conn, err := listenPacket("udp", cfg.Listen)
	if err != nil {
		return errors.Join(fmt.Errorf("listen %s: %w", cfg.Listen, err), stopDevice(ctx))
	}
	logger.Info().
		Str(xglog.FieldEvent, "udp.listening").
		Str(xglog.FieldAddr, conn.LocalAddr().String()).
		Msg("waiting for guest frames")

	closeConn := func(context.Context) error {
		if err := conn.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			return err
		}
		return nil
	}

	br, err := bridge.New(dev, conn, bridge.Options{
		Limits:     LimitsFromConfig(cfg.Bridge),
		WriteQueue: cfg.Bridge.WriteQueue,
	})
	if err != nil {
		return errors.Join(err, closeConn(ctx), stopDevice(ctx))
	}

	deps := Deps{Logger: logger}
	serverCfg := DefaultServerConfig(cfg.Admin.Listen)
	if cfg.Admin.Listen != "" {
		var reloader api.ConfigReloader
		if p.Holder != nil {
			reloader = p.Holder
		}
		srv, err := api.New(api.Config{RateLimit: cfg.Admin.RateLimit}, br, reloader)
		if err != nil {
			return errors.Join(err, closeConn(ctx), stopDevice(ctx))
		}
		deps.AdminHandler = srv.Handler()
	}

	mgr, err := NewManager(serverCfg, deps)
	if err != nil {
		return errors.Join(err, closeConn(ctx), stopDevice(ctx))
	}
	// LIFO: the socket closes first so the bridge stops reading, then vmnet.
	mgr.RegisterShutdownHook("vmnet", stopDevice)
	mgr.RegisterShutdownHook("udp", closeConn)

	return NewApp(logger, mgr, p.Holder, br).Run(ctx)
}

// startDevice starts dev inside a "vmnet.start" span and records the outcome.
func startDevice(ctx context.Context, dev vmnet.Device, opts vmnet.Options) error {
	_, span := telemetry.Tracer(tracerName).Start(ctx, "vmnet.start",
		trace.WithAttributes(telemetry.VMNetAttributes(opts.Mode.String(), opts.InterfaceID.String())...))
	defer span.End()

	if err := dev.Start(); err != nil {
		status := statusLabel(err)
		metrics.RecordInterfaceStartFailure(status)
		span.SetAttributes(attribute.String(telemetry.VMNetStatusKey, status))
		telemetry.RecordError(span, err, "vmnet")
		return fmt.Errorf("%w: %w", ErrInterfaceStart, err)
	}

	mac := dev.HardwareAddr().String()
	metrics.RecordInterfaceUp(opts.Mode.String(), mac, dev.MaxPacketSize())
	span.SetAttributes(telemetry.VMNetStartedAttributes(mac, dev.MaxPacketSize())...)
	return nil
}

// resolveVMNetOptions fills in the persisted interface ID unless one is configured.
func resolveVMNetOptions(cfg config.AppConfig, logger zerolog.Logger) (vmnet.Options, error) {
	if cfg.VMNet.InterfaceID != "" {
		return cfg.VMNetOptions(uuid.Nil)
	}

	id, created, err := state.EnsureInterfaceID(cfg.StateDir)
	if err != nil {
		return vmnet.Options{}, fmt.Errorf("interface id: %w", err)
	}
	if created {
		logger.Info().
			Str(xglog.FieldEvent, "state.interface_id_created").
			Str("path", state.Path(cfg.StateDir)).
			Str("interface_id", id.String()).
			Msg("generated persistent vmnet interface id")
	}
	return cfg.VMNetOptions(id)
}

// statusLabel keeps the start failure metric low-cardinality.
func statusLabel(err error) string {
	var status vmnet.Status
	switch {
	case errors.As(err, &status):
		return strconv.FormatUint(uint64(status), 10)
	case errors.Is(err, vmnet.ErrUnsupported):
		return "unsupported"
	case errors.Is(err, vmnet.ErrInvalidOptions):
		return "invalid_options"
	default:
		return "other"
	}
}
