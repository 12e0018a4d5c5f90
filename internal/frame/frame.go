// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package frame decodes the Ethernet header of frames crossing the bridge.
package frame

import (
	"errors"
	"fmt"
	"net"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

// HeaderLen is the size of an untagged Ethernet II header.
const HeaderLen = 14

// ErrTooShort is returned for buffers that cannot hold an Ethernet header.
var ErrTooShort = errors.New("frame shorter than ethernet header")

// Header is the part of an Ethernet frame the bridge switches on.
type Header struct {
	Dst       net.HardwareAddr
	Src       net.HardwareAddr
	EtherType layers.EthernetType
}

// Decode parses the Ethernet header of b. The returned addresses alias b.
func Decode(b []byte) (Header, error) {
	if len(b) < HeaderLen {
		return Header{}, fmt.Errorf("%w: %d bytes", ErrTooShort, len(b))
	}

	var eth layers.Ethernet
	if err := eth.DecodeFromBytes(b, gopacket.NilDecodeFeedback); err != nil {
		return Header{}, fmt.Errorf("decode ethernet: %w", err)
	}

	return Header{
		Dst:       eth.DstMAC,
		Src:       eth.SrcMAC,
		EtherType: eth.EthernetType,
	}, nil
}

// IsBroadcast reports whether mac is ff:ff:ff:ff:ff:ff.
func IsBroadcast(mac net.HardwareAddr) bool {
	if len(mac) != 6 {
		return false
	}
	for _, b := range mac {
		if b != 0xff {
			return false
		}
	}
	return true
}

// IsMulticast reports whether the group bit is set (broadcast included).
func IsMulticast(mac net.HardwareAddr) bool {
	return len(mac) > 0 && mac[0]&0x01 == 0x01
}

// IsUnicast reports whether mac addresses a single station.
func IsUnicast(mac net.HardwareAddr) bool {
	return len(mac) == 6 && !IsMulticast(mac)
}

// Key returns a comparable form of a 6-byte MAC for map lookups.
func Key(mac net.HardwareAddr) [6]byte {
	var k [6]byte
	copy(k[:], mac)
	return k
}

// Summary dissects the whole frame for trace logging.
func Summary(b []byte) string {
	pkt := gopacket.NewPacket(b, layers.LayerTypeEthernet, gopacket.Default)
	return pkt.String()
}
