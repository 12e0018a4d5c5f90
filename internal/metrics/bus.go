// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// WriteQueueDepth is the number of frames waiting for the vmnet writer.
	WriteQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: Namespace,
		Name:      "write_queue_depth",
		Help:      "Frames queued for the vmnet writer",
	})

	// WriteQueueCapacity is the configured size of the vmnet write queue.
	WriteQueueCapacity = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: Namespace,
		Name:      "write_queue_capacity",
		Help:      "Capacity of the vmnet write queue",
	})
)

// SetWriteQueue records the current depth and capacity of the vmnet write queue.
func SetWriteQueue(depth, capacity int) {
	WriteQueueDepth.Set(float64(depth))
	WriteQueueCapacity.Set(float64(capacity))
}
