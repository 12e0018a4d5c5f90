// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package vmnet binds the macOS vmnet framework.
//
// The native surface is four helpers (start, stop, write, read) around an
// opaque interface_ref owned by the framework, plus an event wait so readers
// block instead of polling. On other platforms every Interface fails to start
// with ErrUnsupported; the portable types in this file are shared by both.
package vmnet

import (
	"errors"
	"fmt"
	"io"
	"net"
	"strings"

	"github.com/google/uuid"
)

var (
	// ErrUnableToStart is returned when the framework did not hand out an interface.
	ErrUnableToStart = errors.New("unable to start vmnet interface")

	// ErrAlreadyStarted is returned by Start on an interface that is running.
	ErrAlreadyStarted = errors.New("vmnet interface already started")

	// ErrNotStarted is returned by Read and Write before Start succeeded.
	ErrNotStarted = errors.New("vmnet interface not started")

	// ErrStopped is returned by Read and Write once Stop has been called.
	ErrStopped = errors.New("vmnet interface stopped")

	// ErrUnsupported is returned by Start on platforms without vmnet.framework.
	ErrUnsupported = errors.New("vmnet is only supported on darwin with cgo")

	// ErrInvalidOptions classifies Options.Validate failures.
	ErrInvalidOptions = errors.New("invalid vmnet options")
)

// Device is a frame-oriented network endpoint. Every Read returns exactly one
// Ethernet frame and every Write submits exactly one.
type Device interface {
	io.ReadWriter

	Start() error
	Stop() error

	// MaxPacketSize is the largest frame the device accepts or produces.
	// It is only meaningful after Start returned nil.
	MaxPacketSize() int

	// HardwareAddr is the MAC address the framework assigned, if any.
	HardwareAddr() net.HardwareAddr
}

// Mode selects the vmnet operating mode.
type Mode uint64

// Values match operating_modes_t in <vmnet/vmnet.h>.
const (
	ModeHost    Mode = 1000
	ModeShared  Mode = 1001
	ModeBridged Mode = 1002
)

var modeNames = map[Mode]string{
	ModeHost:    "host",
	ModeShared:  "shared",
	ModeBridged: "bridged",
}

func (m Mode) String() string {
	if name, ok := modeNames[m]; ok {
		return name
	}
	return fmt.Sprintf("mode(%d)", uint64(m))
}

// ParseMode accepts "host", "shared" or "bridged" (case-insensitive).
func ParseMode(s string) (Mode, error) {
	needle := strings.ToLower(strings.TrimSpace(s))
	for mode, name := range modeNames {
		if name == needle {
			return mode, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown mode %q (want host, shared or bridged)", ErrInvalidOptions, s)
}

// Options configures the interface requested from the framework.
type Options struct {
	Mode Mode

	// SharedInterface is the host interface to bridge to (bridged mode only).
	SharedInterface string

	// DHCP range handed out by the framework (shared mode only, all or nothing).
	StartAddress string
	EndAddress   string
	SubnetMask   string

	// InterfaceID makes the framework hand out a stable MAC address.
	InterfaceID uuid.UUID
}

// Validate reports inconsistent option combinations.
func (o Options) Validate() error {
	var errs []error

	if _, ok := modeNames[o.Mode]; !ok {
		errs = append(errs, fmt.Errorf("unknown mode %d", uint64(o.Mode)))
	}

	if o.Mode == ModeBridged && strings.TrimSpace(o.SharedInterface) == "" {
		errs = append(errs, errors.New("bridged mode requires a shared interface"))
	}
	if o.Mode != ModeBridged && o.SharedInterface != "" {
		errs = append(errs, fmt.Errorf("shared interface is only valid in bridged mode, got mode %s", o.Mode))
	}

	dhcp := []string{o.StartAddress, o.EndAddress, o.SubnetMask}
	set := 0
	for _, v := range dhcp {
		if v != "" {
			set++
		}
	}
	switch {
	case set == 0:
	case o.Mode != ModeShared:
		errs = append(errs, fmt.Errorf("dhcp range is only valid in shared mode, got mode %s", o.Mode))
	case set != len(dhcp):
		errs = append(errs, errors.New("dhcp start, end and mask must be set together"))
	default:
		start, end, mask := net.ParseIP(o.StartAddress).To4(), net.ParseIP(o.EndAddress).To4(), net.ParseIP(o.SubnetMask).To4()
		if start == nil || end == nil || mask == nil {
			errs = append(errs, errors.New("dhcp start, end and mask must be IPv4 addresses"))
			break
		}
		if !start.Mask(net.IPMask(mask)).Equal(end.Mask(net.IPMask(mask))) {
			errs = append(errs, fmt.Errorf("dhcp range %s-%s spans more than one subnet", start, end))
		}
		if ipToUint(start) > ipToUint(end) {
			errs = append(errs, fmt.Errorf("dhcp start %s is after end %s", start, end))
		}
	}

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidOptions, errors.Join(errs...))
}

func ipToUint(ip net.IP) uint32 {
	return uint32(ip[0])<<24 | uint32(ip[1])<<16 | uint32(ip[2])<<8 | uint32(ip[3])
}
