// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package daemon

import "errors"

var (
	// ErrMissingLogger is returned when logger is not provided
	ErrMissingLogger = errors.New("logger is required")

	// ErrMissingAdminHandler is returned when an admin address is set without a handler
	ErrMissingAdminHandler = errors.New("admin handler is required when admin address is set")

	// ErrMissingManager is returned when a daemon app is created without a manager.
	ErrMissingManager = errors.New("manager is required")

	// ErrMissingBridge is returned when a daemon app is created without a bridge.
	ErrMissingBridge = errors.New("bridge is required")

	// ErrManagerNotStarted is returned when trying to shutdown a manager that hasn't started
	ErrManagerNotStarted = errors.New("manager not started")

	// ErrManagerAlreadyStarted is returned by a second Start.
	ErrManagerAlreadyStarted = errors.New("manager already started")

	// ErrServerStartFailed is returned when a server fails to start
	ErrServerStartFailed = errors.New("server failed to start")

	// ErrInterfaceStart wraps vmnet start failures. On macOS these are almost
	// always missing privileges.
	ErrInterfaceStart = errors.New("unable to start vmnet interface")
)
