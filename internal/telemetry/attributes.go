// SPDX-License-Identifier: MIT

package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys shared by spans across the daemon.
const (
	VMNetModeKey        = "vmnet.mode"
	VMNetMACKey         = "vmnet.mac"
	VMNetInterfaceIDKey = "vmnet.interface_id"
	VMNetMaxPacketKey   = "vmnet.max_packet_size"
	VMNetStatusKey      = "vmnet.status"

	ConfigChangedKey         = "config.changed_fields"
	ConfigRestartRequiredKey = "config.restart_required"

	ErrorKey     = "error"
	ErrorTypeKey = "error.type"
)

// VMNetAttributes describes the interface being started.
func VMNetAttributes(mode, interfaceID string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(VMNetModeKey, mode),
		attribute.String(VMNetInterfaceIDKey, interfaceID),
	}
}

// VMNetStartedAttributes describes the parameters vmnet handed back.
func VMNetStartedAttributes(mac string, maxPacketSize int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(VMNetMACKey, mac),
		attribute.Int(VMNetMaxPacketKey, maxPacketSize),
	}
}

// ReloadAttributes summarizes a configuration reload.
func ReloadAttributes(changed []string, restartRequired bool) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.StringSlice(ConfigChangedKey, changed),
		attribute.Bool(ConfigRestartRequiredKey, restartRequired),
	}
}

// ErrorAttributes creates error-related span attributes.
func ErrorAttributes(_ error, errorType string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Bool(ErrorKey, true),
		attribute.String(ErrorTypeKey, errorType),
	}
}

// RecordError marks span as failed. A nil err is ignored.
func RecordError(span trace.Span, err error, errorType string) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	span.SetAttributes(ErrorAttributes(err, errorType)...)
}
