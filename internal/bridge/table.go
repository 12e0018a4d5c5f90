// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package bridge

import (
	"bytes"
	"net"
	"sort"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/ManuGH/qemu-vmnet/internal/frame"
)

// Limits are the forwarding parameters that may change at runtime.
type Limits struct {
	// ClientTTL expires clients that have been silent this long. 0 disables expiry.
	ClientTTL time.Duration

	// MaxClients caps the forwarding table. 0 means unlimited.
	MaxClients int

	// ClientRate is the per-client frame rate towards vmnet (frames/s). 0 disables limiting.
	ClientRate float64

	// ClientBurst is the token bucket size used with ClientRate.
	ClientBurst int

	// Hairpin delivers client-to-client frames directly instead of via vmnet.
	Hairpin bool
}

func (l Limits) limit() (rate.Limit, int) {
	if l.ClientRate <= 0 {
		return rate.Inf, 0
	}
	burst := l.ClientBurst
	if burst <= 0 {
		burst = int(l.ClientRate)
		if burst < 1 {
			burst = 1
		}
	}
	return rate.Limit(l.ClientRate), burst
}

// LearnResult describes what Learn did with a source address.
type LearnResult int

const (
	// Known means the MAC was already bound to the same UDP address.
	Known LearnResult = iota
	// Learned means the MAC was added to the table.
	Learned
	// Moved means the MAC was re-bound to a new UDP address.
	Moved
	// Rejected means the table is full and the MAC was not added.
	Rejected
)

func (r LearnResult) String() string {
	switch r {
	case Known:
		return "known"
	case Learned:
		return "learned"
	case Moved:
		return "moved"
	case Rejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// Client is a snapshot of one forwarding table entry.
type Client struct {
	MAC       net.HardwareAddr
	Addr      net.Addr
	FirstSeen time.Time
	LastSeen  time.Time
	Frames    uint64
}

type entry struct {
	mac       net.HardwareAddr
	addr      net.Addr
	firstSeen time.Time
	lastSeen  time.Time
	frames    uint64
	limiter   *rate.Limiter
}

// Table maps client MAC addresses to the UDP address they were last seen at.
type Table struct {
	mu      sync.RWMutex
	entries map[[6]byte]*entry
	limits  Limits
	now     func() time.Time
}

// NewTable returns an empty table. now defaults to time.Now.
func NewTable(limits Limits, now func() time.Time) *Table {
	if now == nil {
		now = time.Now
	}
	return &Table{
		entries: make(map[[6]byte]*entry),
		limits:  limits,
		now:     now,
	}
}

// Learn binds mac to addr and refreshes its last-seen time.
func (t *Table) Learn(mac net.HardwareAddr, addr net.Addr) LearnResult {
	key := frame.Key(mac)
	now := t.now()

	t.mu.Lock()
	defer t.mu.Unlock()

	if e, ok := t.entries[key]; ok {
		e.lastSeen = now
		e.frames++
		if sameAddr(e.addr, addr) {
			return Known
		}
		e.addr = addr
		return Moved
	}

	if t.limits.MaxClients > 0 && len(t.entries) >= t.limits.MaxClients {
		return Rejected
	}

	limit, burst := t.limits.limit()
	t.entries[key] = &entry{
		mac:       append(net.HardwareAddr(nil), mac...),
		addr:      addr,
		firstSeen: now,
		lastSeen:  now,
		frames:    1,
		limiter:   rate.NewLimiter(limit, burst),
	}
	return Learned
}

// Allow consumes a token from the client's bucket. Unknown clients are refused.
func (t *Table) Allow(mac net.HardwareAddr) bool {
	t.mu.RLock()
	e, ok := t.entries[frame.Key(mac)]
	var lim *rate.Limiter
	if ok {
		lim = e.limiter
	}
	t.mu.RUnlock()
	if !ok {
		return false
	}
	return lim.AllowN(t.now(), 1)
}

// Lookup returns the UDP address bound to mac.
func (t *Table) Lookup(mac net.HardwareAddr) (net.Addr, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	e, ok := t.entries[frame.Key(mac)]
	if !ok {
		return nil, false
	}
	return e.addr, true
}

// Addrs returns every distinct client address, skipping the one bound to except.
func (t *Table) Addrs(except net.HardwareAddr) []net.Addr {
	var skip net.Addr
	t.mu.RLock()
	defer t.mu.RUnlock()

	if except != nil {
		if e, ok := t.entries[frame.Key(except)]; ok {
			skip = e.addr
		}
	}

	seen := make(map[string]struct{}, len(t.entries))
	addrs := make([]net.Addr, 0, len(t.entries))
	for _, e := range t.entries {
		if skip != nil && sameAddr(e.addr, skip) {
			continue
		}
		k := e.addr.String()
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		addrs = append(addrs, e.addr)
	}
	return addrs
}

// Expire removes clients silent for longer than the TTL and returns their MACs.
func (t *Table) Expire() []net.HardwareAddr {
	now := t.now()

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.limits.ClientTTL <= 0 {
		return nil
	}

	var expired []net.HardwareAddr
	for key, e := range t.entries {
		if now.Sub(e.lastSeen) > t.limits.ClientTTL {
			expired = append(expired, e.mac)
			delete(t.entries, key)
		}
	}
	return expired
}

// Evict removes mac from the table.
func (t *Table) Evict(mac net.HardwareAddr) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	key := frame.Key(mac)
	if _, ok := t.entries[key]; !ok {
		return false
	}
	delete(t.entries, key)
	return true
}

// Len returns the number of clients.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}

// SetLimits applies new limits. Limited buckets keep their tokens and only
// pick up the new rate and burst, so a reload does not refill them. Clients
// that were unlimited start with a full bucket. Lowering MaxClients does not
// evict anyone; it only stops new clients.
func (t *Table) SetLimits(limits Limits) {
	limit, burst := limits.limit()
	now := t.now()

	t.mu.Lock()
	defer t.mu.Unlock()

	t.limits = limits
	for _, e := range t.entries {
		if e.limiter.Limit() == rate.Inf {
			e.limiter = rate.NewLimiter(limit, burst)
			continue
		}
		e.limiter.SetLimitAt(now, limit)
		e.limiter.SetBurstAt(now, burst)
	}
}

// Limits returns the limits in effect.
func (t *Table) Limits() Limits {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.limits
}

// Snapshot returns all clients ordered by MAC.
func (t *Table) Snapshot() []Client {
	t.mu.RLock()
	clients := make([]Client, 0, len(t.entries))
	for _, e := range t.entries {
		clients = append(clients, Client{
			MAC:       append(net.HardwareAddr(nil), e.mac...),
			Addr:      e.addr,
			FirstSeen: e.firstSeen,
			LastSeen:  e.lastSeen,
			Frames:    e.frames,
		})
	}
	t.mu.RUnlock()

	sort.Slice(clients, func(i, j int) bool {
		return bytes.Compare(clients[i].MAC, clients[j].MAC) < 0
	})
	return clients
}

func sameAddr(a, b net.Addr) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Network() == b.Network() && a.String() == b.String()
}
