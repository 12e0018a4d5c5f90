// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package telemetry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace/noop"
)

func resetGlobal(t *testing.T) {
	t.Helper()
	t.Cleanup(func() { otel.SetTracerProvider(noop.NewTracerProvider()) })
}

func TestNewProvider_Disabled(t *testing.T) {
	resetGlobal(t)

	provider, err := NewProvider(context.Background(), Config{
		Enabled:      false,
		ServiceName:  "qemu-vmnet",
		ExporterType: "grpc",
	})
	require.NoError(t, err)
	assert.Nil(t, provider.tp, "disabled telemetry installs a noop provider")

	_, span := Tracer("test").Start(context.Background(), "noop-check")
	assert.False(t, span.IsRecording())
	span.End()
}

func TestNewProvider_InvalidExporter(t *testing.T) {
	_, err := NewProvider(context.Background(), Config{
		Enabled:      true,
		ServiceName:  "qemu-vmnet",
		ExporterType: "invalid",
	})
	require.Error(t, err)
	assert.Equal(t, "unsupported exporter type: invalid (supported: grpc, http)", err.Error())
}

func TestNewProvider_Exporters(t *testing.T) {
	for _, exporter := range []string{"http", "grpc"} {
		t.Run(exporter, func(t *testing.T) {
			resetGlobal(t)

			// Exporters connect lazily, so no collector is needed.
			provider, err := NewProvider(context.Background(), Config{
				Enabled:        true,
				ServiceName:    "qemu-vmnet",
				ServiceVersion: "test",
				ExporterType:   exporter,
				Endpoint:       "127.0.0.1:1",
				SamplingRate:   1.0,
			})
			require.NoError(t, err)
			require.NotNil(t, provider.tp)

			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			_ = provider.Shutdown(ctx)
		})
	}
}

func TestSamplerFor(t *testing.T) {
	tests := []struct {
		rate float64
		want string
	}{
		{1.0, "AlwaysOnSampler"},
		{2.0, "AlwaysOnSampler"},
		{0.0, "AlwaysOffSampler"},
		{-1, "AlwaysOffSampler"},
		{0.5, "TraceIDRatioBased{0.5}"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, samplerFor(tt.rate).Description())
	}
}

func TestProvider_ShutdownNoop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var nilProvider *Provider
	assert.NoError(t, nilProvider.Shutdown(ctx))
	assert.NoError(t, (&Provider{}).Shutdown(ctx))
}

func TestRecordError(t *testing.T) {
	resetGlobal(t)
	recorder := tracetest.NewSpanRecorder()
	install(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder)))

	_, span := Tracer("test").Start(context.Background(), "vmnet.start")
	RecordError(span, nil, "ignored")
	RecordError(span, errors.New("permission denied"), "vmnet")
	span.End()

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	assert.Equal(t, "permission denied", spans[0].Status().Description)
	assert.Len(t, spans[0].Events(), 1)
	assert.Contains(t, spans[0].Attributes(), ErrorAttributes(nil, "vmnet")[1])
}

func TestAttributes(t *testing.T) {
	attrs := VMNetAttributes("shared", "8d1a6d48-0000-4000-8000-000000000000")
	assert.Equal(t, VMNetModeKey, string(attrs[0].Key))
	assert.Equal(t, "shared", attrs[0].Value.AsString())

	attrs = VMNetStartedAttributes("02:00:00:00:00:01", 1514)
	assert.Equal(t, int64(1514), attrs[1].Value.AsInt64())

	attrs = ReloadAttributes([]string{"log.level"}, false)
	assert.Equal(t, []string{"log.level"}, attrs[0].Value.AsStringSlice())
	assert.False(t, attrs[1].Value.AsBool())
}
