// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import "time"

// Defaults. The listen port and mode match what QEMU guests are usually
// configured with (-netdev dgram,remote.port=2233).
const (
	DefaultListen         = ":2233"
	DefaultMode           = "shared"
	DefaultStateDir       = "/var/db/qemu-vmnet"
	DefaultLogLevel       = "info"
	DefaultLogFormat      = "console"
	DefaultAdminRateLimit = 120
	DefaultClientTTL      = 5 * time.Minute
	DefaultMaxClients     = 256
	DefaultWriteQueue     = 512
	MaxWriteQueue         = 65536

	DefaultTelemetryExporter = "http"
	DefaultTelemetryEndpoint = "localhost:4318"
	DefaultSamplingRate      = 1.0
)

// Default returns the built-in configuration.
func Default() AppConfig {
	return AppConfig{
		Listen:   DefaultListen,
		StateDir: DefaultStateDir,
		VMNet: VMNetConfig{
			Mode: DefaultMode,
		},
		Log: LogConfig{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
		Admin: AdminConfig{
			RateLimit: DefaultAdminRateLimit,
		},
		Bridge: BridgeConfig{
			ClientTTL:  DefaultClientTTL,
			MaxClients: DefaultMaxClients,
			WriteQueue: DefaultWriteQueue,
			Hairpin:    true,
		},
		Telemetry: TelemetryConfig{
			Exporter:     DefaultTelemetryExporter,
			Endpoint:     DefaultTelemetryEndpoint,
			SamplingRate: DefaultSamplingRate,
		},
	}
}
