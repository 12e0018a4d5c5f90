// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

//go:build darwin && cgo

package vmnet

// #cgo CFLAGS: -x objective-c
// #cgo LDFLAGS: -lobjc -framework vmnet
// #include <stdlib.h>
// #include "vmnet.h"
import "C"

import (
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/google/uuid"
)

// waitTimeoutMillis bounds a single event wait so Stop is observed promptly.
const waitTimeoutMillis = 250

// Interface is a vmnet.framework interface.
type Interface struct {
	opts Options

	// mu is held shared by Read/Write for the duration of a framework call
	// and exclusively by Start/Stop.
	mu      sync.RWMutex
	readMu  sync.Mutex
	started bool
	stopped atomic.Bool

	iface  C.interface_ref
	events unsafe.Pointer
	mps    C.uint64_t

	maxPacketSize int
	mtu           int
	mac           net.HardwareAddr
	buf           []byte
}

// New returns an unstarted interface.
func New(opts Options) *Interface {
	return &Interface{opts: opts}
}

// Start acquires an interface from the framework. It blocks until the
// framework's completion handler reports the outcome.
func (v *Interface) Start() error {
	if err := v.opts.Validate(); err != nil {
		return err
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	if v.started {
		return ErrAlreadyStarted
	}

	var copts C.struct__vmnet_options
	copts.mode = C.uint64_t(v.opts.Mode)

	var cstrings []*C.char
	cstr := func(s string) *C.char {
		if s == "" {
			return nil
		}
		p := C.CString(s)
		cstrings = append(cstrings, p)
		return p
	}
	defer func() {
		for _, p := range cstrings {
			C.free(unsafe.Pointer(p))
		}
	}()

	if v.opts.InterfaceID != uuid.Nil {
		copts.interface_id = cstr(v.opts.InterfaceID.String())
	}
	copts.shared_interface = cstr(v.opts.SharedInterface)
	copts.start_address = cstr(v.opts.StartAddress)
	copts.end_address = cstr(v.opts.EndAddress)
	copts.subnet_mask = cstr(v.opts.SubnetMask)

	var params C.struct__vmnet_params
	status := Status(C._vmnet_start(&v.iface, &copts, &params))
	if v.iface == nil {
		if status == StatusSuccess {
			status = StatusFailure
		}
		return fmt.Errorf("%w: %w", ErrUnableToStart, status)
	}

	v.events = params.events
	v.mps = params.max_packet_size
	v.maxPacketSize = int(params.max_packet_size)
	v.mtu = int(params.mtu)
	if mac, err := net.ParseMAC(C.GoString(&params.mac_address[0])); err == nil {
		v.mac = mac
	}
	v.buf = make([]byte, v.maxPacketSize)
	v.started = true
	v.stopped.Store(false)

	return nil
}

// Stop releases the interface. Blocked readers return ErrStopped.
// Calling Stop on a stopped or never-started interface is a no-op.
func (v *Interface) Stop() error {
	if !v.stopped.CompareAndSwap(false, true) {
		return nil
	}

	v.mu.RLock()
	if v.events != nil {
		C._vmnet_signal(v.events)
	}
	v.mu.RUnlock()

	v.mu.Lock()
	defer v.mu.Unlock()

	if !v.started {
		return nil
	}

	status := Status(C._vmnet_stop(v.iface, v.events))
	v.iface = nil
	v.events = nil
	v.started = false

	return status.Err()
}

// Read blocks until the framework has a frame and copies it into p.
func (v *Interface) Read(p []byte) (int, error) {
	v.readMu.Lock()
	defer v.readMu.Unlock()

	v.mu.RLock()
	defer v.mu.RUnlock()

	if !v.started {
		if v.stopped.Load() {
			return 0, ErrStopped
		}
		return 0, ErrNotStarted
	}

	for {
		if v.stopped.Load() {
			return 0, ErrStopped
		}

		var n C.size_t
		status := Status(C._vmnet_read(v.iface, v.mps, unsafe.Pointer(&v.buf[0]), &n))
		if err := status.Err(); err != nil {
			return 0, err
		}

		if n > 0 {
			if int(n) > len(p) {
				return 0, io.ErrShortBuffer
			}
			return copy(p, v.buf[:n]), nil
		}

		C._vmnet_wait(v.events, waitTimeoutMillis)
	}
}

// Write submits one frame. The framework copies it before returning.
func (v *Interface) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	v.mu.RLock()
	defer v.mu.RUnlock()

	if v.stopped.Load() {
		return 0, ErrStopped
	}
	if !v.started {
		return 0, ErrNotStarted
	}
	if len(p) > v.maxPacketSize {
		return 0, ErrPacketTooBig
	}

	status := Status(C._vmnet_write(v.iface, unsafe.Pointer(&p[0]), C.size_t(len(p))))
	if err := status.Err(); err != nil {
		return 0, err
	}
	return len(p), nil
}

// MaxPacketSize returns the largest frame the interface accepts.
func (v *Interface) MaxPacketSize() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.maxPacketSize
}

// MTU returns the interface MTU reported by the framework.
func (v *Interface) MTU() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.mtu
}

// HardwareAddr returns the MAC address assigned by the framework.
func (v *Interface) HardwareAddr() net.HardwareAddr {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.mac
}
