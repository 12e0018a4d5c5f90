// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package bridge

import (
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func udpAddr(port int) net.Addr {
	return &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: port}
}

func TestTableLearn(t *testing.T) {
	table := NewTable(Limits{}, nil)

	assert.Equal(t, Learned, table.Learn(macA, udpAddr(1000)))
	assert.Equal(t, Known, table.Learn(macA, udpAddr(1000)))
	assert.Equal(t, Moved, table.Learn(macA, udpAddr(1001)))

	addr, ok := table.Lookup(macA)
	require.True(t, ok)
	assert.Equal(t, udpAddr(1001).String(), addr.String())

	_, ok = table.Lookup(macB)
	assert.False(t, ok)
	assert.Equal(t, 1, table.Len())
}

func TestTableLearnCopiesMAC(t *testing.T) {
	table := NewTable(Limits{}, nil)

	mac := append(net.HardwareAddr(nil), macA...)
	table.Learn(mac, udpAddr(1000))
	mac[5] = 0xff

	clients := table.Snapshot()
	require.Len(t, clients, 1)
	assert.Equal(t, macA, clients[0].MAC)
}

func TestTableMaxClients(t *testing.T) {
	table := NewTable(Limits{MaxClients: 1}, nil)

	assert.Equal(t, Learned, table.Learn(macA, udpAddr(1000)))
	assert.Equal(t, Rejected, table.Learn(macB, udpAddr(1001)))
	assert.Equal(t, Known, table.Learn(macA, udpAddr(1000)), "existing clients are still refreshed")
	assert.Equal(t, 1, table.Len())
}

func TestTableExpire(t *testing.T) {
	clock := newFakeClock()
	table := NewTable(Limits{ClientTTL: time.Minute}, clock.Now)

	table.Learn(macA, udpAddr(1000))
	clock.Advance(30 * time.Second)
	table.Learn(macB, udpAddr(1001))

	clock.Advance(31 * time.Second)
	expired := table.Expire()
	require.Len(t, expired, 1)
	assert.Equal(t, macA, expired[0])

	_, ok := table.Lookup(macB)
	assert.True(t, ok)
}

func TestTableExpireDisabled(t *testing.T) {
	clock := newFakeClock()
	table := NewTable(Limits{}, clock.Now)

	table.Learn(macA, udpAddr(1000))
	clock.Advance(24 * time.Hour)

	assert.Empty(t, table.Expire())
	assert.Equal(t, 1, table.Len())
}

func TestTableAllow(t *testing.T) {
	clock := newFakeClock()
	table := NewTable(Limits{ClientRate: 1, ClientBurst: 2}, clock.Now)

	assert.False(t, table.Allow(macA), "unknown clients are refused")

	table.Learn(macA, udpAddr(1000))
	assert.True(t, table.Allow(macA))
	assert.True(t, table.Allow(macA))
	assert.False(t, table.Allow(macA))

	clock.Advance(time.Second)
	assert.True(t, table.Allow(macA))
}

func TestTableAllowUnlimited(t *testing.T) {
	table := NewTable(Limits{}, nil)
	table.Learn(macA, udpAddr(1000))

	for i := 0; i < 1000; i++ {
		require.True(t, table.Allow(macA))
	}
}

func TestTableSetLimits(t *testing.T) {
	clock := newFakeClock()
	table := NewTable(Limits{}, clock.Now)
	table.Learn(macA, udpAddr(1000))

	table.SetLimits(Limits{ClientRate: 1, ClientBurst: 1, ClientTTL: time.Second})
	assert.Equal(t, time.Second, table.Limits().ClientTTL)

	assert.True(t, table.Allow(macA))
	assert.False(t, table.Allow(macA))

	table.SetLimits(Limits{})
	assert.True(t, table.Allow(macA))
}

func TestTableSetLimitsKeepsTokens(t *testing.T) {
	clock := newFakeClock()
	table := NewTable(Limits{ClientRate: 1, ClientBurst: 1}, clock.Now)
	table.Learn(macA, udpAddr(1000))

	require.True(t, table.Allow(macA))
	require.False(t, table.Allow(macA))

	table.SetLimits(Limits{ClientRate: 1, ClientBurst: 1})
	assert.False(t, table.Allow(macA), "reload must not refill the bucket")

	table.SetLimits(Limits{ClientRate: 1, ClientBurst: 5})
	assert.False(t, table.Allow(macA), "a larger burst does not grant tokens")

	clock.Advance(time.Second)
	assert.True(t, table.Allow(macA))
	assert.False(t, table.Allow(macA))
}

func TestTableAddrs(t *testing.T) {
	table := NewTable(Limits{}, nil)
	macC := net.HardwareAddr{0x52, 0x54, 0x00, 0x00, 0x00, 0x0c}

	table.Learn(macA, udpAddr(1000))
	table.Learn(macB, udpAddr(1001))
	table.Learn(macC, udpAddr(1001)) // same guest socket, second NIC

	assert.Len(t, table.Addrs(nil), 2, "addresses are deduplicated")

	others := table.Addrs(macA)
	require.Len(t, others, 1)
	assert.Equal(t, udpAddr(1001).String(), others[0].String())

	assert.Len(t, table.Addrs(macB), 1, "every MAC behind the sender's address is skipped")
}

func TestTableEvictAndSnapshot(t *testing.T) {
	table := NewTable(Limits{}, nil)
	table.Learn(macB, udpAddr(1001))
	table.Learn(macA, udpAddr(1000))
	table.Learn(macA, udpAddr(1000))

	clients := table.Snapshot()
	require.Len(t, clients, 2)
	assert.Equal(t, macA, clients[0].MAC)
	assert.Equal(t, uint64(2), clients[0].Frames)
	assert.Equal(t, macB, clients[1].MAC)

	assert.True(t, table.Evict(macA))
	assert.False(t, table.Evict(macA))
	assert.Equal(t, 1, table.Len())
}

func TestLearnResultString(t *testing.T) {
	assert.Equal(t, "known", Known.String())
	assert.Equal(t, "learned", Learned.String())
	assert.Equal(t, "moved", Moved.String())
	assert.Equal(t, "rejected", Rejected.String())
	assert.Equal(t, "unknown", LearnResult(42).String())
}
