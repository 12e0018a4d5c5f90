// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import "time"

// AppConfig is the effective daemon configuration.
type AppConfig struct {
	Version   string          `yaml:"-"`
	Listen    string          `yaml:"listen"`
	StateDir  string          `yaml:"state_dir"`
	VMNet     VMNetConfig     `yaml:"vmnet"`
	Log       LogConfig       `yaml:"log"`
	Admin     AdminConfig     `yaml:"admin"`
	Bridge    BridgeConfig    `yaml:"bridge"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// VMNetConfig selects how the host interface is created.
type VMNetConfig struct {
	Mode            string     `yaml:"mode"`
	SharedInterface string     `yaml:"shared_interface,omitempty"`
	InterfaceID     string     `yaml:"interface_id,omitempty"`
	DHCP            DHCPConfig `yaml:"dhcp"`
}

// DHCPConfig overrides the address range vmnet hands out in shared mode.
type DHCPConfig struct {
	Start string `yaml:"start,omitempty"`
	End   string `yaml:"end,omitempty"`
	Mask  string `yaml:"mask,omitempty"`
}

// LogConfig controls logger output.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// AdminConfig controls the HTTP admin endpoint.
type AdminConfig struct {
	// Listen is the admin address. Empty disables the endpoint.
	Listen string `yaml:"listen,omitempty"`
	// RateLimit is the number of /api requests allowed per minute and client IP.
	RateLimit int `yaml:"rate_limit"`
}

// BridgeConfig tunes the forwarding engine.
type BridgeConfig struct {
	ClientTTL   time.Duration `yaml:"client_ttl"`
	MaxClients  int           `yaml:"max_clients"`
	ClientRate  float64       `yaml:"client_rate"`
	ClientBurst int           `yaml:"client_burst"`
	WriteQueue  int           `yaml:"write_queue"`
	Hairpin     bool          `yaml:"hairpin"`
}

// TelemetryConfig controls OpenTelemetry tracing.
type TelemetryConfig struct {
	Enabled bool `yaml:"enabled"`
	// Exporter is "grpc" or "http".
	Exporter     string  `yaml:"exporter"`
	Endpoint     string  `yaml:"endpoint"`
	SamplingRate float64 `yaml:"sampling_rate"`
}

// FileConfig mirrors AppConfig for YAML input. Pointers distinguish
// "not set" from zero values so that the file only overrides what it names.
type FileConfig struct {
	Listen    *string              `yaml:"listen"`
	StateDir  *string              `yaml:"state_dir"`
	VMNet     *VMNetFileConfig     `yaml:"vmnet"`
	Log       *LogFileConfig       `yaml:"log"`
	Admin     *AdminFileConfig     `yaml:"admin"`
	Bridge    *BridgeFileConfig    `yaml:"bridge"`
	Telemetry *TelemetryFileConfig `yaml:"telemetry"`
}

type VMNetFileConfig struct {
	Mode            *string         `yaml:"mode"`
	SharedInterface *string         `yaml:"shared_interface"`
	InterfaceID     *string         `yaml:"interface_id"`
	DHCP            *DHCPFileConfig `yaml:"dhcp"`
}

type DHCPFileConfig struct {
	Start *string `yaml:"start"`
	End   *string `yaml:"end"`
	Mask  *string `yaml:"mask"`
}

type LogFileConfig struct {
	Level  *string `yaml:"level"`
	Format *string `yaml:"format"`
}

type AdminFileConfig struct {
	Listen    *string `yaml:"listen"`
	RateLimit *int    `yaml:"rate_limit"`
}

type BridgeFileConfig struct {
	ClientTTL   *time.Duration `yaml:"client_ttl"`
	MaxClients  *int           `yaml:"max_clients"`
	ClientRate  *float64       `yaml:"client_rate"`
	ClientBurst *int           `yaml:"client_burst"`
	WriteQueue  *int           `yaml:"write_queue"`
	Hairpin     *bool          `yaml:"hairpin"`
}

type TelemetryFileConfig struct {
	Enabled      *bool    `yaml:"enabled"`
	Exporter     *string  `yaml:"exporter"`
	Endpoint     *string  `yaml:"endpoint"`
	SamplingRate *float64 `yaml:"sampling_rate"`
}
