// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"github.com/google/uuid"

	"github.com/ManuGH/qemu-vmnet/internal/validate"
	"github.com/ManuGH/qemu-vmnet/internal/vmnet"
)

// Formats accepted for log.format.
var logFormats = []string{"console", "json"}

// Exporters accepted for telemetry.exporter.
var telemetryExporters = []string{"grpc", "http"}

// Validate validates an AppConfig using the centralized validation package.
func Validate(cfg AppConfig) error {
	v := validate.New()

	v.ListenAddr("listen", cfg.Listen, false)
	v.ListenAddr("admin.listen", cfg.Admin.Listen, true)
	if cfg.Admin.Listen != "" {
		v.Positive("admin.rate_limit", cfg.Admin.RateLimit)
	}

	v.OneOf("log.level", cfg.Log.Level, validate.LogLevels)
	v.OneOf("log.format", cfg.Log.Format, logFormats)

	if cfg.VMNet.InterfaceID == "" {
		v.NotEmpty("state_dir", cfg.StateDir)
	}
	v.UUID("vmnet.interface_id", cfg.VMNet.InterfaceID)
	v.IPv4("vmnet.dhcp.start", cfg.VMNet.DHCP.Start)
	v.IPv4("vmnet.dhcp.end", cfg.VMNet.DHCP.End)
	v.IPv4("vmnet.dhcp.mask", cfg.VMNet.DHCP.Mask)

	if _, err := vmnet.ParseMode(cfg.VMNet.Mode); err != nil {
		v.AddError("vmnet.mode", err.Error(), cfg.VMNet.Mode)
	} else if v.IsValid() {
		// Cross-field rules live with the options themselves.
		v.Custom("vmnet", cfg, func(any) error {
			_, err := cfg.VMNetOptions(uuid.Nil)
			return err
		})
	}

	v.NonNegative("bridge.max_clients", cfg.Bridge.MaxClients)
	v.NonNegative("bridge.client_burst", cfg.Bridge.ClientBurst)
	v.NonNegativeFloat("bridge.client_rate", cfg.Bridge.ClientRate)
	v.Range("bridge.write_queue", cfg.Bridge.WriteQueue, 1, MaxWriteQueue)
	if cfg.Bridge.ClientTTL < 0 {
		v.AddError("bridge.client_ttl", "value cannot be negative", cfg.Bridge.ClientTTL)
	}

	if cfg.Telemetry.Enabled {
		v.OneOf("telemetry.exporter", cfg.Telemetry.Exporter, telemetryExporters)
		v.NotEmpty("telemetry.endpoint", cfg.Telemetry.Endpoint)
	}
	if r := cfg.Telemetry.SamplingRate; r < 0 || r > 1 {
		v.AddError("telemetry.sampling_rate", "must be between 0 and 1", r)
	}

	return v.Err()
}

// VMNetOptions converts the vmnet section. A configured interface_id takes
// precedence over fallbackID.
func (c AppConfig) VMNetOptions(fallbackID uuid.UUID) (vmnet.Options, error) {
	mode, err := vmnet.ParseMode(c.VMNet.Mode)
	if err != nil {
		return vmnet.Options{}, err
	}

	id := fallbackID
	if c.VMNet.InterfaceID != "" {
		id, err = uuid.Parse(c.VMNet.InterfaceID)
		if err != nil {
			return vmnet.Options{}, err
		}
	}

	opts := vmnet.Options{
		Mode:            mode,
		SharedInterface: c.VMNet.SharedInterface,
		StartAddress:    c.VMNet.DHCP.Start,
		EndAddress:      c.VMNet.DHCP.End,
		SubnetMask:      c.VMNet.DHCP.Mask,
		InterfaceID:     id,
	}
	return opts, opts.Validate()
}
