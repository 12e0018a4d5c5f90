// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import "time"

func mergeFileConfig(dst *AppConfig, src *FileConfig) {
	setString(&dst.Listen, src.Listen)
	setString(&dst.StateDir, src.StateDir)

	if v := src.VMNet; v != nil {
		setString(&dst.VMNet.Mode, v.Mode)
		setString(&dst.VMNet.SharedInterface, v.SharedInterface)
		setString(&dst.VMNet.InterfaceID, v.InterfaceID)
		if d := v.DHCP; d != nil {
			setString(&dst.VMNet.DHCP.Start, d.Start)
			setString(&dst.VMNet.DHCP.End, d.End)
			setString(&dst.VMNet.DHCP.Mask, d.Mask)
		}
	}

	if v := src.Log; v != nil {
		setString(&dst.Log.Level, v.Level)
		setString(&dst.Log.Format, v.Format)
	}

	if v := src.Admin; v != nil {
		setString(&dst.Admin.Listen, v.Listen)
		setInt(&dst.Admin.RateLimit, v.RateLimit)
	}

	if v := src.Bridge; v != nil {
		if v.ClientTTL != nil {
			dst.Bridge.ClientTTL = *v.ClientTTL
		}
		setInt(&dst.Bridge.MaxClients, v.MaxClients)
		if v.ClientRate != nil {
			dst.Bridge.ClientRate = *v.ClientRate
		}
		setInt(&dst.Bridge.ClientBurst, v.ClientBurst)
		setInt(&dst.Bridge.WriteQueue, v.WriteQueue)
		if v.Hairpin != nil {
			dst.Bridge.Hairpin = *v.Hairpin
		}
	}

	if v := src.Telemetry; v != nil {
		if v.Enabled != nil {
			dst.Telemetry.Enabled = *v.Enabled
		}
		setString(&dst.Telemetry.Exporter, v.Exporter)
		setString(&dst.Telemetry.Endpoint, v.Endpoint)
		if v.SamplingRate != nil {
			dst.Telemetry.SamplingRate = *v.SamplingRate
		}
	}
}

func (l *Loader) mergeEnvConfig(cfg *AppConfig) {
	cfg.Listen = l.envString(EnvListen, cfg.Listen)
	cfg.StateDir = l.envString(EnvStateDir, cfg.StateDir)

	cfg.VMNet.Mode = l.envString(EnvMode, cfg.VMNet.Mode)
	cfg.VMNet.SharedInterface = l.envString(EnvSharedInterface, cfg.VMNet.SharedInterface)
	cfg.VMNet.InterfaceID = l.envString(EnvInterfaceID, cfg.VMNet.InterfaceID)
	cfg.VMNet.DHCP.Start = l.envString(EnvDHCPStart, cfg.VMNet.DHCP.Start)
	cfg.VMNet.DHCP.End = l.envString(EnvDHCPEnd, cfg.VMNet.DHCP.End)
	cfg.VMNet.DHCP.Mask = l.envString(EnvDHCPMask, cfg.VMNet.DHCP.Mask)

	cfg.Log.Level = l.envString(EnvLogLevel, cfg.Log.Level)
	cfg.Log.Format = l.envString(EnvLogFormat, cfg.Log.Format)

	cfg.Admin.Listen = l.envString(EnvAdminListen, cfg.Admin.Listen)
	cfg.Admin.RateLimit = l.envInt(EnvAdminRateLimit, cfg.Admin.RateLimit)

	cfg.Bridge.ClientTTL = l.envDuration(EnvClientTTL, cfg.Bridge.ClientTTL)
	cfg.Bridge.MaxClients = l.envInt(EnvMaxClients, cfg.Bridge.MaxClients)
	cfg.Bridge.ClientRate = l.envFloat(EnvClientRate, cfg.Bridge.ClientRate)
	cfg.Bridge.ClientBurst = l.envInt(EnvClientBurst, cfg.Bridge.ClientBurst)
	cfg.Bridge.WriteQueue = l.envInt(EnvWriteQueue, cfg.Bridge.WriteQueue)
	cfg.Bridge.Hairpin = l.envBool(EnvHairpin, cfg.Bridge.Hairpin)

	cfg.Telemetry.Enabled = l.envBool(EnvTelemetryEnabled, cfg.Telemetry.Enabled)
	cfg.Telemetry.Exporter = l.envString(EnvTelemetryExporter, cfg.Telemetry.Exporter)
	cfg.Telemetry.Endpoint = l.envString(EnvTelemetryEndpoint, cfg.Telemetry.Endpoint)
	cfg.Telemetry.SamplingRate = l.envFloat(EnvSamplingRate, cfg.Telemetry.SamplingRate)
}

// Wrapper methods for mechanical connection tracking

func (l *Loader) envString(key, defaultVal string) string {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseString(key, defaultVal)
}

func (l *Loader) envBool(key string, defaultVal bool) bool {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseBool(key, defaultVal)
}

func (l *Loader) envInt(key string, defaultVal int) int {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseInt(key, defaultVal)
}

func (l *Loader) envDuration(key string, defaultVal time.Duration) time.Duration {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseDuration(key, defaultVal)
}

func (l *Loader) envFloat(key string, defaultVal float64) float64 {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseFloat(key, defaultVal)
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}
