// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package vmnettest provides an in-memory vmnet.Device for tests.
package vmnettest

import (
	"io"
	"net"
	"sync"

	"github.com/ManuGH/qemu-vmnet/internal/vmnet"
)

// DefaultMaxPacketSize mirrors what vmnet reports for a 1500 byte MTU.
const DefaultMaxPacketSize = 1514

// Pipe is a Device whose host side is driven by the test: Inject queues a
// frame for Read, and frames passed to Write show up on Written.
type Pipe struct {
	mu            sync.Mutex
	started       bool
	stopped       bool
	maxPacketSize int
	mac           net.HardwareAddr
	startErr      error
	writeErr      error

	inbound chan []byte
	done    chan struct{}
	written chan []byte
}

// NewPipe returns a Pipe with the given max packet size (DefaultMaxPacketSize when <= 0).
func NewPipe(maxPacketSize int) *Pipe {
	if maxPacketSize <= 0 {
		maxPacketSize = DefaultMaxPacketSize
	}
	return &Pipe{
		maxPacketSize: maxPacketSize,
		mac:           net.HardwareAddr{0x02, 0x00, 0x00, 0x00, 0x00, 0x01},
		inbound:       make(chan []byte, 64),
		done:          make(chan struct{}),
		written:       make(chan []byte, 64),
	}
}

// FailStart makes the next Start return err.
func (p *Pipe) FailStart(err error) {
	p.mu.Lock()
	p.startErr = err
	p.mu.Unlock()
}

// FailWrite makes every Write return err until called with nil.
func (p *Pipe) FailWrite(err error) {
	p.mu.Lock()
	p.writeErr = err
	p.mu.Unlock()
}

func (p *Pipe) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.startErr != nil {
		return p.startErr
	}
	if p.started {
		return vmnet.ErrAlreadyStarted
	}
	p.started = true
	return nil
}

// Stop unblocks pending reads. It is safe to call more than once.
func (p *Pipe) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.stopped {
		p.stopped = true
		close(p.done)
	}
	return nil
}

// Inject queues a frame as if the host network had produced it.
func (p *Pipe) Inject(frame []byte) {
	buf := append([]byte(nil), frame...)
	select {
	case p.inbound <- buf:
	case <-p.done:
	}
}

// Written delivers frames the code under test wrote to the device.
func (p *Pipe) Written() <-chan []byte {
	return p.written
}

func (p *Pipe) Read(b []byte) (int, error) {
	select {
	case <-p.done:
		return 0, vmnet.ErrStopped
	case frame := <-p.inbound:
		if len(frame) > len(b) {
			return 0, io.ErrShortBuffer
		}
		return copy(b, frame), nil
	}
}

func (p *Pipe) Write(b []byte) (int, error) {
	p.mu.Lock()
	stopped, writeErr := p.stopped, p.writeErr
	p.mu.Unlock()

	if stopped {
		return 0, vmnet.ErrStopped
	}
	if writeErr != nil {
		return 0, writeErr
	}
	if len(b) > p.maxPacketSize {
		return 0, vmnet.ErrPacketTooBig
	}

	buf := append([]byte(nil), b...)
	select {
	case p.written <- buf:
	case <-p.done:
		return 0, vmnet.ErrStopped
	}
	return len(b), nil
}

func (p *Pipe) MaxPacketSize() int { return p.maxPacketSize }

func (p *Pipe) HardwareAddr() net.HardwareAddr { return p.mac }

var _ vmnet.Device = (*Pipe)(nil)
