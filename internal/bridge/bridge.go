// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package bridge switches Ethernet frames between QEMU guests speaking the
// UDP socket netdev protocol and a vmnet interface.
//
// Each UDP datagram carries exactly one Ethernet frame. Guests are learned
// from the source MAC of the frames they send; frames coming out of vmnet are
// delivered to the guest owning the destination MAC, or to every guest for
// broadcast and multicast destinations.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/ManuGH/qemu-vmnet/internal/frame"
	xglog "github.com/ManuGH/qemu-vmnet/internal/log"
	"github.com/ManuGH/qemu-vmnet/internal/metrics"
	"github.com/ManuGH/qemu-vmnet/internal/vmnet"
)

const (
	// DefaultWriteQueue is used when Options.WriteQueue is not positive.
	DefaultWriteQueue = 512

	// DefaultSweepInterval is how often expired clients are removed.
	DefaultSweepInterval = 5 * time.Second
)

var (
	// ErrMissingDevice is returned by New without a vmnet device.
	ErrMissingDevice = errors.New("vmnet device is required")

	// ErrMissingConn is returned by New without a packet connection.
	ErrMissingConn = errors.New("packet connection is required")

	// ErrNoPacketSize is returned by Run when the device reports no max packet size.
	ErrNoPacketSize = errors.New("device reports no max packet size (not started?)")

	// ErrAlreadyRunning is returned by a second concurrent Run.
	ErrAlreadyRunning = errors.New("bridge already running")
)

// Options configures a Bridge.
type Options struct {
	Limits

	// WriteQueue is the number of frames buffered for the vmnet writer.
	WriteQueue int

	// SweepInterval is how often expired clients are removed.
	SweepInterval time.Duration

	// Logger defaults to the "bridge" component logger.
	Logger *zerolog.Logger

	// Now overrides the clock (tests).
	Now func() time.Time
}

// Bridge forwards frames between a PacketConn and a vmnet Device.
type Bridge struct {
	dev   vmnet.Device
	conn  net.PacketConn
	table *Table
	queue chan []byte

	hairpin       atomic.Bool
	running       atomic.Bool
	sweepInterval time.Duration
	logger        zerolog.Logger
}

// New returns a Bridge. The device must already be started when Run is called.
func New(dev vmnet.Device, conn net.PacketConn, opts Options) (*Bridge, error) {
	if dev == nil {
		return nil, ErrMissingDevice
	}
	if conn == nil {
		return nil, ErrMissingConn
	}

	queue := opts.WriteQueue
	if queue <= 0 {
		queue = DefaultWriteQueue
	}
	sweep := opts.SweepInterval
	if sweep <= 0 {
		sweep = DefaultSweepInterval
	}
	logger := xglog.WithComponent("bridge")
	if opts.Logger != nil {
		logger = *opts.Logger
	}

	b := &Bridge{
		dev:           dev,
		conn:          conn,
		table:         NewTable(opts.Limits, opts.Now),
		queue:         make(chan []byte, queue),
		sweepInterval: sweep,
		logger:        logger,
	}
	b.hairpin.Store(opts.Hairpin)
	metrics.SetWriteQueue(0, queue)

	return b, nil
}

// Run forwards frames until ctx is cancelled, either side shuts down, or a
// side fails permanently. On exit Run stops the device and unblocks the
// connection; a clean shutdown returns nil.
func (b *Bridge) Run(ctx context.Context) error {
	mps := b.dev.MaxPacketSize()
	if mps <= 0 {
		return ErrNoPacketSize
	}
	if !b.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer b.running.Store(false)

	b.logger.Info().
		Str(xglog.FieldEvent, "bridge.start").
		Str(xglog.FieldAddr, b.conn.LocalAddr().String()).
		Int("max_packet_size", mps).
		Int("write_queue", cap(b.queue)).
		Bool("hairpin", b.hairpin.Load()).
		Msg("bridge started")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	// A side that shuts down cleanly returns nil, which does not cancel the
	// group on its own.
	g.Go(func() error {
		defer cancel()
		return b.readVMNet(gctx, mps)
	})
	g.Go(func() error {
		defer cancel()
		return b.readClients(gctx, mps)
	})
	g.Go(func() error {
		defer cancel()
		return b.writeVMNet(gctx)
	})
	g.Go(func() error { return b.sweep(gctx) })

	g.Go(func() error {
		<-gctx.Done()
		if err := b.dev.Stop(); err != nil {
			b.logger.Warn().Err(err).Str(xglog.FieldEvent, "bridge.device_stop_failed").Msg("failed to stop vmnet device")
		}
		// Unblock ReadFrom without closing a connection we do not own.
		_ = b.conn.SetReadDeadline(time.Now())
		return nil
	})

	err := g.Wait()

	b.logger.Info().
		Err(err).
		Str(xglog.FieldEvent, "bridge.stop").
		Msg("bridge stopped")

	return err
}

// Running reports whether Run is active.
func (b *Bridge) Running() bool {
	return b.running.Load()
}

// Clients returns the forwarding table ordered by MAC.
func (b *Bridge) Clients() []Client {
	return b.table.Snapshot()
}

// Evict forgets mac. The client is re-learned from its next frame.
func (b *Bridge) Evict(mac net.HardwareAddr) bool {
	if !b.table.Evict(mac) {
		return false
	}
	metrics.RecordClientEvent(metrics.ClientEvicted)
	metrics.SetClientsActive(b.table.Len())
	b.logger.Info().
		Str(xglog.FieldEvent, "client.evicted").
		Str(xglog.FieldClientMAC, mac.String()).
		Msg("evicted client")
	return true
}

// Reconfigure applies new runtime limits.
func (b *Bridge) Reconfigure(limits Limits) {
	b.table.SetLimits(limits)
	b.hairpin.Store(limits.Hairpin)
	b.logger.Info().
		Str(xglog.FieldEvent, "bridge.reconfigured").
		Dur("client_ttl", limits.ClientTTL).
		Int("max_clients", limits.MaxClients).
		Float64("client_rate", limits.ClientRate).
		Int("client_burst", limits.ClientBurst).
		Bool("hairpin", limits.Hairpin).
		Msg("applied bridge limits")
}

// Limits returns the limits in effect.
func (b *Bridge) Limits() Limits {
	l := b.table.Limits()
	l.Hairpin = b.hairpin.Load()
	return l
}

func (b *Bridge) readVMNet(ctx context.Context, mps int) error {
	buf := make([]byte, mps)
	for {
		n, err := b.dev.Read(buf)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, vmnet.ErrStopped) {
				return nil
			}
			var status vmnet.Status
			if errors.As(err, &status) && status.Temporary() {
				metrics.RecordDrop(metrics.DirectionToClient, metrics.ReasonReadError)
				b.logger.Debug().Err(err).Msg("transient error while reading from vmnet")
				continue
			}
			return fmt.Errorf("read vmnet: %w", err)
		}
		b.fromVMNet(buf[:n])
	}
}

func (b *Bridge) fromVMNet(f []byte) {
	hdr, err := frame.Decode(f)
	if err != nil {
		metrics.RecordDrop(metrics.DirectionToClient, metrics.ReasonMalformed)
		b.logger.Debug().Err(err).Int(xglog.FieldBytes, len(f)).Msg("dropping malformed frame from vmnet")
		return
	}

	b.logger.Debug().
		Int(xglog.FieldBytes, len(f)).
		Str(xglog.FieldDstMAC, hdr.Dst.String()).
		Msg("received frame from vmnet")
	if e := b.logger.Trace(); e.Enabled() {
		e.Str("frame", frame.Summary(f)).Msg("vmnet frame")
	}

	if frame.IsMulticast(hdr.Dst) {
		addrs := b.table.Addrs(nil)
		if len(addrs) == 0 {
			metrics.RecordDrop(metrics.DirectionToClient, metrics.ReasonNoClients)
			return
		}
		for _, addr := range addrs {
			b.send(addr, f, metrics.DirectionToClient)
		}
		return
	}

	addr, ok := b.table.Lookup(hdr.Dst)
	if !ok {
		metrics.RecordDrop(metrics.DirectionToClient, metrics.ReasonUnknownDestination)
		return
	}
	b.send(addr, f, metrics.DirectionToClient)
}

func (b *Bridge) send(addr net.Addr, f []byte, direction string) {
	if _, err := b.conn.WriteTo(f, addr); err != nil {
		metrics.RecordDrop(direction, metrics.ReasonWriteError)
		if errors.Is(err, net.ErrClosed) {
			return
		}
		b.logger.Error().
			Err(err).
			Str(xglog.FieldAddr, addr.String()).
			Msg("error while writing to client")
		return
	}
	metrics.RecordForward(direction, len(f))
	b.logger.Debug().
		Int(xglog.FieldBytes, len(f)).
		Str(xglog.FieldAddr, addr.String()).
		Str(xglog.FieldDirection, direction).
		Msg("wrote frame to client")
}

func (b *Bridge) readClients(ctx context.Context, mps int) error {
	// One spare byte detects datagrams the device could not accept.
	buf := make([]byte, mps+1)
	for {
		n, addr, err := b.conn.ReadFrom(buf)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			if errors.Is(err, os.ErrDeadlineExceeded) {
				continue
			}
			metrics.RecordDrop(metrics.DirectionToVMNet, metrics.ReasonReadError)
			b.logger.Error().Err(err).Msg("error while reading from clients")
			continue
		}
		if n > mps {
			metrics.RecordDrop(metrics.DirectionToVMNet, metrics.ReasonTooBig)
			b.logger.Debug().
				Str(xglog.FieldAddr, addr.String()).
				Int("max_packet_size", mps).
				Msg("dropping oversized datagram")
			continue
		}
		b.fromClient(buf[:n], addr)
	}
}

func (b *Bridge) fromClient(f []byte, addr net.Addr) {
	hdr, err := frame.Decode(f)
	if err != nil {
		metrics.RecordDrop(metrics.DirectionToVMNet, metrics.ReasonMalformed)
		b.logger.Debug().Err(err).Str(xglog.FieldAddr, addr.String()).Msg("dropping malformed datagram")
		return
	}
	if !frame.IsUnicast(hdr.Src) {
		metrics.RecordDrop(metrics.DirectionToVMNet, metrics.ReasonInvalidSource)
		return
	}

	src := hdr.Src.String()
	b.logger.Debug().
		Int(xglog.FieldBytes, len(f)).
		Str(xglog.FieldSrcMAC, src).
		Msg("received frame from client")
	if e := b.logger.Trace(); e.Enabled() {
		e.Str("frame", frame.Summary(f)).Msg("client frame")
	}

	switch b.table.Learn(hdr.Src, addr) {
	case Learned:
		metrics.RecordClientEvent(metrics.ClientLearned)
		metrics.SetClientsActive(b.table.Len())
		b.logger.Info().
			Str(xglog.FieldEvent, "client.learned").
			Str(xglog.FieldClientMAC, src).
			Str(xglog.FieldAddr, addr.String()).
			Msg("new client")
	case Moved:
		metrics.RecordClientEvent(metrics.ClientMoved)
		b.logger.Info().
			Str(xglog.FieldEvent, "client.moved").
			Str(xglog.FieldClientMAC, src).
			Str(xglog.FieldAddr, addr.String()).
			Msg("client changed address")
	case Rejected:
		metrics.RecordDrop(metrics.DirectionToVMNet, metrics.ReasonTableFull)
		b.logger.Warn().
			Str(xglog.FieldEvent, "client.rejected").
			Str(xglog.FieldClientMAC, src).
			Msg("forwarding table full, dropping frame from new client")
		return
	}

	if !b.table.Allow(hdr.Src) {
		metrics.RecordDrop(metrics.DirectionToVMNet, metrics.ReasonRateLimited)
		return
	}

	if b.hairpin.Load() {
		if frame.IsMulticast(hdr.Dst) {
			for _, peer := range b.table.Addrs(hdr.Src) {
				b.send(peer, f, metrics.DirectionHairpin)
			}
		} else if peer, ok := b.table.Lookup(hdr.Dst); ok {
			if sameAddr(peer, addr) {
				metrics.RecordDrop(metrics.DirectionHairpin, metrics.ReasonHairpinSelf)
				return
			}
			b.send(peer, f, metrics.DirectionHairpin)
			return
		}
	}

	b.enqueue(f)
}

func (b *Bridge) enqueue(f []byte) {
	cp := append([]byte(nil), f...)
	select {
	case b.queue <- cp:
		metrics.SetWriteQueue(len(b.queue), cap(b.queue))
	default:
		metrics.RecordDrop(metrics.DirectionToVMNet, metrics.ReasonQueueFull)
		b.logger.Warn().
			Str(xglog.FieldEvent, "bridge.queue_full").
			Int("capacity", cap(b.queue)).
			Msg("vmnet write queue full, dropping frame")
	}
}

func (b *Bridge) writeVMNet(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case f := <-b.queue:
			metrics.SetWriteQueue(len(b.queue), cap(b.queue))
			if _, err := b.dev.Write(f); err != nil {
				if errors.Is(err, vmnet.ErrStopped) {
					return nil
				}
				reason := metrics.ReasonWriteError
				if errors.Is(err, vmnet.ErrPacketTooBig) {
					reason = metrics.ReasonTooBig
				}
				metrics.RecordDrop(metrics.DirectionToVMNet, reason)
				b.logger.Error().Err(err).Int(xglog.FieldBytes, len(f)).Msg("error while writing to vmnet")
				continue
			}
			metrics.RecordForward(metrics.DirectionToVMNet, len(f))
			b.logger.Debug().Int(xglog.FieldBytes, len(f)).Msg("wrote frame to vmnet")
		}
	}
}

func (b *Bridge) sweep(ctx context.Context) error {
	ticker := time.NewTicker(b.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			b.expire()
		}
	}
}

func (b *Bridge) expire() {
	expired := b.table.Expire()
	if len(expired) == 0 {
		return
	}
	for _, mac := range expired {
		metrics.RecordClientEvent(metrics.ClientExpired)
		b.logger.Info().
			Str(xglog.FieldEvent, "client.expired").
			Str(xglog.FieldClientMAC, mac.String()).
			Msg("client expired")
	}
	metrics.SetClientsActive(b.table.Len())
}
