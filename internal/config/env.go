// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ManuGH/qemu-vmnet/internal/log"
)

// EnvPrefix is prepended to every environment key.
const EnvPrefix = "QEMU_VMNET_"

// Environment keys.
const (
	EnvListen          = EnvPrefix + "LISTEN"
	EnvStateDir        = EnvPrefix + "STATE_DIR"
	EnvMode            = EnvPrefix + "MODE"
	EnvSharedInterface = EnvPrefix + "SHARED_INTERFACE"
	EnvInterfaceID     = EnvPrefix + "INTERFACE_ID"
	EnvDHCPStart       = EnvPrefix + "DHCP_START"
	EnvDHCPEnd         = EnvPrefix + "DHCP_END"
	EnvDHCPMask        = EnvPrefix + "DHCP_MASK"
	EnvLogLevel        = EnvPrefix + "LOG_LEVEL"
	EnvLogFormat       = EnvPrefix + "LOG_FORMAT"
	EnvAdminListen     = EnvPrefix + "ADMIN_LISTEN"
	EnvAdminRateLimit  = EnvPrefix + "ADMIN_RATE_LIMIT"
	EnvClientTTL       = EnvPrefix + "CLIENT_TTL"
	EnvMaxClients      = EnvPrefix + "MAX_CLIENTS"
	EnvClientRate      = EnvPrefix + "CLIENT_RATE"
	EnvClientBurst     = EnvPrefix + "CLIENT_BURST"
	EnvWriteQueue      = EnvPrefix + "WRITE_QUEUE"
	EnvHairpin         = EnvPrefix + "HAIRPIN"

	EnvTelemetryEnabled  = EnvPrefix + "TELEMETRY_ENABLED"
	EnvTelemetryExporter = EnvPrefix + "TELEMETRY_EXPORTER"
	EnvTelemetryEndpoint = EnvPrefix + "TELEMETRY_ENDPOINT"
	EnvSamplingRate      = EnvPrefix + "TELEMETRY_SAMPLING_RATE"
)

// ParseString reads a string from environment variable or returns default value.
// It logs the source (environment or default) for observability.
func ParseString(key, defaultValue string) string {
	return parseStringWithLogger(log.WithComponent("config"), key, defaultValue)
}

func parseStringWithLogger(logger zerolog.Logger, key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		if value == "" {
			logger.Debug().
				Str("key", key).
				Str("default", defaultValue).
				Str("source", "default").
				Msg("using default value (environment variable is empty)")
			return defaultValue
		}
		logger.Debug().
			Str("key", key).
			Str("value", value).
			Str("source", "environment").
			Msg("using environment variable")
		return value
	}
	logger.Debug().
		Str("key", key).
		Str("default", defaultValue).
		Str("source", "default").
		Msg("using default value")
	return defaultValue
}

// ParseInt reads an integer from environment variable or returns default value.
// It validates the input and falls back to default on parse errors.
func ParseInt(key string, defaultValue int) int {
	logger := log.WithComponent("config")
	v, ok := lookupNonEmpty(logger, key)
	if !ok {
		return defaultValue
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		logger.Warn().
			Str("key", key).
			Str("value", v).
			Int("default", defaultValue).
			Msg("invalid integer in environment variable, using default")
		return defaultValue
	}
	logger.Debug().Str("key", key).Int("value", i).Str("source", "environment").Msg("using environment variable")
	return i
}

// ParseFloat reads a float64 from environment variable or returns default value.
func ParseFloat(key string, defaultValue float64) float64 {
	logger := log.WithComponent("config")
	v, ok := lookupNonEmpty(logger, key)
	if !ok {
		return defaultValue
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		logger.Warn().
			Str("key", key).
			Str("value", v).
			Float64("default", defaultValue).
			Msg("invalid float in environment variable, using default")
		return defaultValue
	}
	logger.Debug().Str("key", key).Float64("value", f).Str("source", "environment").Msg("using environment variable")
	return f
}

// ParseDuration reads a duration from environment variable in Go duration format (e.g. "5s").
// It falls back to default on parse errors or empty variables and logs the choice.
func ParseDuration(key string, defaultValue time.Duration) time.Duration {
	logger := log.WithComponent("config")
	v, ok := lookupNonEmpty(logger, key)
	if !ok {
		return defaultValue
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		logger.Warn().
			Str("key", key).
			Str("value", v).
			Dur("default", defaultValue).
			Msg("invalid duration in environment variable, using default")
		return defaultValue
	}
	logger.Debug().Str("key", key).Dur("value", d).Str("source", "environment").Msg("using environment variable")
	return d
}

// ParseBool reads a boolean from environment variable or returns default value.
// It accepts "true", "false", "1", "0", "yes", "no" (case-insensitive).
func ParseBool(key string, defaultValue bool) bool {
	logger := log.WithComponent("config")
	v, ok := lookupNonEmpty(logger, key)
	if !ok {
		return defaultValue
	}
	switch strings.ToLower(v) {
	case "true", "1", "yes":
		logger.Debug().Str("key", key).Bool("value", true).Str("source", "environment").Msg("using environment variable")
		return true
	case "false", "0", "no":
		logger.Debug().Str("key", key).Bool("value", false).Str("source", "environment").Msg("using environment variable")
		return false
	default:
		logger.Warn().
			Str("key", key).
			Str("value", v).
			Bool("default", defaultValue).
			Msg("invalid boolean in environment variable, using default")
		return defaultValue
	}
}

// lookupNonEmpty returns the variable if it is set to a non-empty value.
func lookupNonEmpty(logger zerolog.Logger, key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	switch {
	case !ok:
		logger.Debug().Str("key", key).Str("source", "default").Msg("using default value")
		return "", false
	case v == "":
		logger.Debug().Str("key", key).Str("source", "default").Msg("using default value (environment variable is empty)")
		return "", false
	}
	return v, true
}
