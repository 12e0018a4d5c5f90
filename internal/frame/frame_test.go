// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package frame

import (
	"net"
	"testing"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	macA = net.HardwareAddr{0x52, 0x54, 0x00, 0x12, 0x34, 0x56}
	macB = net.HardwareAddr{0x52, 0x54, 0x00, 0xab, 0xcd, 0xef}
)

func buildARP(t *testing.T, src, dst net.HardwareAddr) []byte {
	t.Helper()
	eth := &layers.Ethernet{SrcMAC: src, DstMAC: dst, EthernetType: layers.EthernetTypeARP}
	arp := &layers.ARP{
		AddrType:          layers.LinkTypeEthernet,
		Protocol:          layers.EthernetTypeIPv4,
		HwAddressSize:     6,
		ProtAddressSize:   4,
		Operation:         layers.ARPRequest,
		SourceHwAddress:   src,
		SourceProtAddress: []byte{192, 168, 105, 2},
		DstHwAddress:      make([]byte, 6),
		DstProtAddress:    []byte{192, 168, 105, 1},
	}
	buf := gopacket.NewSerializeBuffer()
	require.NoError(t, gopacket.SerializeLayers(buf, gopacket.SerializeOptions{}, eth, arp))
	return buf.Bytes()
}

func TestDecode(t *testing.T) {
	b := buildARP(t, macA, layers.EthernetBroadcast)

	h, err := Decode(b)
	require.NoError(t, err)
	assert.Equal(t, macA, h.Src)
	assert.Equal(t, layers.EthernetBroadcast, h.Dst)
	assert.Equal(t, layers.EthernetTypeARP, h.EtherType)
}

func TestDecodeTooShort(t *testing.T) {
	_, err := Decode(make([]byte, HeaderLen-1))
	assert.ErrorIs(t, err, ErrTooShort)

	_, err = Decode(nil)
	assert.ErrorIs(t, err, ErrTooShort)
}

func TestAddressClasses(t *testing.T) {
	tests := []struct {
		name      string
		mac       net.HardwareAddr
		broadcast bool
		multicast bool
		unicast   bool
	}{
		{name: "broadcast", mac: layers.EthernetBroadcast, broadcast: true, multicast: true},
		{name: "ipv4 multicast", mac: net.HardwareAddr{0x01, 0x00, 0x5e, 0x00, 0x00, 0xfb}, multicast: true},
		{name: "ipv6 multicast", mac: net.HardwareAddr{0x33, 0x33, 0x00, 0x00, 0x00, 0x01}, multicast: true},
		{name: "unicast", mac: macA, unicast: true},
		{name: "truncated", mac: net.HardwareAddr{0x52, 0x54}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.broadcast, IsBroadcast(tt.mac))
			assert.Equal(t, tt.multicast, IsMulticast(tt.mac))
			assert.Equal(t, tt.unicast, IsUnicast(tt.mac))
		})
	}
}

func TestKey(t *testing.T) {
	assert.Equal(t, Key(macA), Key(append(net.HardwareAddr(nil), macA...)))
	assert.NotEqual(t, Key(macA), Key(macB))
}

func TestSummary(t *testing.T) {
	s := Summary(buildARP(t, macA, macB))
	assert.Contains(t, s, "Ethernet")
	assert.Contains(t, s, "ARP")
}
