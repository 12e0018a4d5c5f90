// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Client table events.
const (
	ClientLearned = "learned"
	ClientMoved   = "moved"
	ClientExpired = "expired"
	ClientEvicted = "evicted"
)

var (
	clientsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: Namespace,
		Name:      "clients_active",
		Help:      "Client MAC addresses currently in the forwarding table",
	})

	clientEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "client_events_total",
		Help:      "Forwarding table changes by event",
	}, []string{"event"})
)

// SetClientsActive records the forwarding table size.
func SetClientsActive(n int) {
	clientsActive.Set(float64(n))
}

// RecordClientEvent records a forwarding table change.
func RecordClientEvent(event string) {
	clientEventsTotal.WithLabelValues(event).Inc()
}
