// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	vmnetUp = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: Namespace,
		Name:      "interface_up",
		Help:      "1 while the vmnet interface is started",
	})

	vmnetInfo = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: Namespace,
		Name:      "interface_info",
		Help:      "Static information about the vmnet interface",
	}, []string{"mode", "mac"})

	vmnetMaxPacketSize = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: Namespace,
		Name:      "interface_max_packet_size_bytes",
		Help:      "Max packet size reported by vmnet",
	})

	vmnetStartFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "interface_start_failures_total",
		Help:      "vmnet start failures by status",
	}, []string{"status"})
)

// RecordInterfaceUp records a started interface.
func RecordInterfaceUp(mode, mac string, maxPacketSize int) {
	vmnetUp.Set(1)
	vmnetInfo.Reset()
	vmnetInfo.WithLabelValues(mode, mac).Set(1)
	vmnetMaxPacketSize.Set(float64(maxPacketSize))
}

// RecordInterfaceDown records a stopped interface.
func RecordInterfaceDown() {
	vmnetUp.Set(0)
}

// RecordInterfaceStartFailure records a failed start with the framework status text.
func RecordInterfaceStartFailure(status string) {
	vmnetStartFailures.WithLabelValues(status).Inc()
}
