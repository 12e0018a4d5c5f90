// SPDX-License-Identifier: MIT
package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Helper function to get metric value from a gauge
func getGaugeValue(t *testing.T, gauge prometheus.Gauge) float64 {
	t.Helper()
	metric := &dto.Metric{}
	err := gauge.Write(metric)
	require.NoError(t, err)
	return metric.GetGauge().GetValue()
}

// Helper function to get metric value from a counter
func getCounterValue(t *testing.T, counter prometheus.Counter) float64 {
	t.Helper()
	metric := &dto.Metric{}
	err := counter.Write(metric)
	require.NoError(t, err)
	return metric.GetCounter().GetValue()
}

func getCounterVecValue(t *testing.T, counterVec *prometheus.CounterVec, labels ...string) float64 {
	t.Helper()
	return getCounterValue(t, counterVec.WithLabelValues(labels...))
}

func TestRecordForward(t *testing.T) {
	tests := []struct {
		name      string
		direction string
		size      int
	}{
		{"to vmnet", DirectionToVMNet, 60},
		{"to client", DirectionToClient, 1514},
		{"hairpin", DirectionHairpin, 98},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frames := getCounterVecValue(t, framesTotal, tt.direction)
			bytes := getCounterVecValue(t, bytesTotal, tt.direction)

			RecordForward(tt.direction, tt.size)

			assert.Equal(t, frames+1, getCounterVecValue(t, framesTotal, tt.direction))
			assert.Equal(t, bytes+float64(tt.size), getCounterVecValue(t, bytesTotal, tt.direction))
		})
	}
}

func TestRecordDrop(t *testing.T) {
	tests := []struct {
		name          string
		direction     string
		reason        string
		wantDirection string
		wantReason    string
	}{
		{"queue full", DirectionToVMNet, ReasonQueueFull, DirectionToVMNet, ReasonQueueFull},
		{"unknown destination", DirectionToClient, ReasonUnknownDestination, DirectionToClient, ReasonUnknownDestination},
		{"empty labels", "", "", "unknown", "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := getCounterVecValue(t, dropsTotal, tt.wantDirection, tt.wantReason)
			RecordDrop(tt.direction, tt.reason)
			assert.Equal(t, before+1, getCounterVecValue(t, dropsTotal, tt.wantDirection, tt.wantReason))
		})
	}
}

func TestClientMetrics(t *testing.T) {
	SetClientsActive(3)
	assert.Equal(t, float64(3), getGaugeValue(t, clientsActive))

	before := getCounterVecValue(t, clientEventsTotal, ClientLearned)
	RecordClientEvent(ClientLearned)
	assert.Equal(t, before+1, getCounterVecValue(t, clientEventsTotal, ClientLearned))
}

func TestSetWriteQueue(t *testing.T) {
	SetWriteQueue(7, 512)
	assert.Equal(t, float64(7), getGaugeValue(t, WriteQueueDepth))
	assert.Equal(t, float64(512), getGaugeValue(t, WriteQueueCapacity))
}

func TestInterfaceMetrics(t *testing.T) {
	RecordInterfaceUp("shared", "02:00:00:00:00:01", 1514)
	assert.Equal(t, float64(1), getGaugeValue(t, vmnetUp))
	assert.Equal(t, float64(1514), getGaugeValue(t, vmnetMaxPacketSize))
	assert.Equal(t, float64(1), getGaugeValue(t, vmnetInfo.WithLabelValues("shared", "02:00:00:00:00:01")))

	// A restart with a new MAC replaces the info series.
	RecordInterfaceUp("host", "02:00:00:00:00:02", 1514)
	families, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)
	var infoSeries int
	for _, mf := range families {
		if mf.GetName() == Namespace+"_interface_info" {
			infoSeries = len(mf.GetMetric())
		}
	}
	assert.Equal(t, 1, infoSeries)

	RecordInterfaceDown()
	assert.Equal(t, float64(0), getGaugeValue(t, vmnetUp))

	before := getCounterVecValue(t, vmnetStartFailures, "1005")
	RecordInterfaceStartFailure("1005")
	assert.Equal(t, before+1, getCounterVecValue(t, vmnetStartFailures, "1005"))
}
