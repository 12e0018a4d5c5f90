// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import "errors"

var (
	// ErrUnknownConfigField classifies strict YAML parse failures caused by unknown keys.
	// Use errors.Is(err, ErrUnknownConfigField) instead of string matching.
	ErrUnknownConfigField = errors.New("unknown config field")

	// ErrUnsupportedFormat is returned for config files that are not YAML.
	ErrUnsupportedFormat = errors.New("unsupported config format")

	// ErrTrailingContent is returned when a config file holds more than one document.
	ErrTrailingContent = errors.New("config file contains multiple documents or trailing content")

	// ErrNoLoader is returned by Holder.Reload when the holder was built without a loader.
	ErrNoLoader = errors.New("config reload unavailable: no loader")
)
