// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package metrics exposes the daemon's Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Namespace prefixes every metric exported by the daemon.
const Namespace = "qemu_vmnet"

// Frame directions.
const (
	DirectionToVMNet  = "to_vmnet"  // client -> vmnet
	DirectionToClient = "to_client" // vmnet -> client
	DirectionHairpin  = "hairpin"   // client -> client
)

// Drop reasons.
const (
	ReasonMalformed          = "malformed"
	ReasonInvalidSource      = "invalid_source"
	ReasonUnknownDestination = "unknown_destination"
	ReasonTableFull          = "table_full"
	ReasonRateLimited        = "rate_limited"
	ReasonQueueFull          = "queue_full"
	ReasonTooBig             = "too_big"
	ReasonWriteError         = "write_error"
	ReasonReadError          = "read_error"
	ReasonNoClients          = "no_clients"
	ReasonHairpinSelf        = "hairpin_self" // destination shares the sender's address
)

var (
	framesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "frames_total",
		Help:      "Frames forwarded by direction",
	}, []string{"direction"})

	bytesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "bytes_total",
		Help:      "Bytes forwarded by direction",
	}, []string{"direction"})

	dropsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "drops_total",
		Help:      "Frames dropped by direction and reason",
	}, []string{"direction", "reason"})
)

// RecordForward records a frame delivered in the given direction.
func RecordForward(direction string, size int) {
	framesTotal.WithLabelValues(direction).Inc()
	bytesTotal.WithLabelValues(direction).Add(float64(size))
}

// RecordDrop records a frame that was not delivered.
func RecordDrop(direction, reason string) {
	if direction == "" {
		direction = "unknown"
	}
	if reason == "" {
		reason = "unknown"
	}
	dropsTotal.WithLabelValues(direction, reason).Inc()
}
