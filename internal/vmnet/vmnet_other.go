// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

//go:build !darwin || !cgo

package vmnet

import "net"

// Interface is a vmnet.framework interface. On this platform it never starts.
type Interface struct {
	opts Options
}

// New returns an unstarted interface.
func New(opts Options) *Interface {
	return &Interface{opts: opts}
}

// Start validates the options and reports ErrUnsupported.
func (v *Interface) Start() error {
	if err := v.opts.Validate(); err != nil {
		return err
	}
	return ErrUnsupported
}

// Stop is a no-op.
func (v *Interface) Stop() error { return nil }

func (v *Interface) Read([]byte) (int, error) { return 0, ErrNotStarted }

func (v *Interface) Write([]byte) (int, error) { return 0, ErrNotStarted }

func (v *Interface) MaxPacketSize() int { return 0 }

func (v *Interface) MTU() int { return 0 }

func (v *Interface) HardwareAddr() net.HardwareAddr { return nil }
