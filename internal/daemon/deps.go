// SPDX-License-Identifier: MIT

package daemon

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// ServerConfig holds admin HTTP server settings.
type ServerConfig struct {
	// ListenAddr is the admin listen address. Empty disables the server.
	ListenAddr string

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	MaxHeaderBytes  int
	ShutdownTimeout time.Duration

	// MaxConnections caps concurrent admin connections. Zero means unlimited.
	MaxConnections int
}

// DefaultServerConfig returns conservative timeouts for the admin server.
func DefaultServerConfig(listenAddr string) ServerConfig {
	return ServerConfig{
		ListenAddr:      listenAddr,
		ReadTimeout:     5 * time.Second,
		WriteTimeout:    10 * time.Second,
		IdleTimeout:     60 * time.Second,
		MaxHeaderBytes:  1 << 16,
		ShutdownTimeout: 10 * time.Second,
		MaxConnections:  64,
	}
}

// Deps contains dependencies required by the daemon Manager.
type Deps struct {
	// Logger is the structured logger for the daemon
	Logger zerolog.Logger

	// AdminHandler serves the admin endpoint. Required when ServerConfig.ListenAddr is set.
	AdminHandler http.Handler
}

// Validate checks if the dependencies are valid for cfg.
func (d *Deps) Validate(cfg ServerConfig) error {
	if d.Logger.GetLevel() == zerolog.Disabled {
		return ErrMissingLogger
	}
	if cfg.ListenAddr != "" && d.AdminHandler == nil {
		return ErrMissingAdminHandler
	}
	return nil
}
