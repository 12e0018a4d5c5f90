// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldService   = "service"
	FieldVersion   = "version"
	FieldComponent = "component"
	FieldEvent     = "event"
	FieldClientMAC = "client_mac"

	// Network fields
	FieldAddr      = "addr"
	FieldSrcMAC    = "src_mac"
	FieldDstMAC    = "dst_mac"
	FieldBytes     = "bytes"
	FieldDirection = "direction"
	FieldReason    = "reason"
	FieldMode      = "mode"
	FieldStatus    = "status"
)
