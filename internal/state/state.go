// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package state persists the small amount of data that must survive restarts.
//
// vmnet derives the MAC address it hands out from the interface ID, so the ID
// is generated once and kept in <dir>/state.yaml.
package state

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/renameio/v2"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// FileName is the state file inside the state directory.
const FileName = "state.yaml"

// ErrCorrupt classifies state files that exist but cannot be used.
var ErrCorrupt = errors.New("corrupt state file")

// State is the persisted daemon state.
type State struct {
	InterfaceID uuid.UUID `yaml:"interface_id"`
	CreatedAt   time.Time `yaml:"created_at"`
}

// Path returns the state file path for dir.
func Path(dir string) string {
	return filepath.Join(dir, FileName)
}

// Load reads the state file. A missing file yields os.ErrNotExist.
func Load(dir string) (State, error) {
	// #nosec G304 -- the state directory is provided by the operator via CLI/ENV
	data, err := os.ReadFile(Path(dir))
	if err != nil {
		return State{}, err
	}

	var s State
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		if errors.Is(err, io.EOF) {
			return State{}, fmt.Errorf("%w: %s is empty", ErrCorrupt, Path(dir))
		}
		return State{}, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	if s.InterfaceID == uuid.Nil {
		return State{}, fmt.Errorf("%w: %s has no interface_id", ErrCorrupt, Path(dir))
	}
	return s, nil
}

// Save writes s atomically: readers see the old or the new file, never a torn one.
func Save(dir string, s State) error {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}

	data, err := yaml.Marshal(&s)
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}

	if err := renameio.WriteFile(Path(dir), data, 0o600); err != nil {
		return fmt.Errorf("write state: %w", err)
	}
	return nil
}

// EnsureInterfaceID returns the persisted interface ID, generating and saving
// one on first use. created reports whether a new ID was written.
func EnsureInterfaceID(dir string) (id uuid.UUID, created bool, err error) {
	s, err := Load(dir)
	if err == nil {
		return s.InterfaceID, false, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return uuid.Nil, false, err
	}

	s = State{
		InterfaceID: uuid.New(),
		CreatedAt:   time.Now().UTC().Truncate(time.Second),
	}
	if err := Save(dir, s); err != nil {
		return uuid.Nil, false, err
	}
	return s.InterfaceID, true, nil
}
