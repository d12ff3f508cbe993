// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/Thermoquad/rfgate/pkg/rflink"
)

// ProtocolState is one persisted plugin state.
type ProtocolState struct {
	ID    int
	State rflink.State
}

// LoadProtocolStates reads a protocol state file: a JSON array of
// single-entry objects mapping a protocol id to 0 (disabled), 1 (enabled) or
// 2 (testing), for example [{"2":1},{"999":0}]. A missing file yields no
// states.
func LoadProtocolStates(path string) ([]ProtocolState, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var entries []map[string]int
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to unmarshal protocol states: %w", err)
	}

	states := make([]ProtocolState, 0, len(entries))
	for _, entry := range entries {
		for key, value := range entry {
			id, err := strconv.Atoi(key)
			if err != nil {
				return nil, fmt.Errorf("%w: protocol id %q", ErrInvalidConfig, key)
			}
			s := rflink.State(value)
			if s != rflink.StateDisabled && s != rflink.StateEnabled && s != rflink.StateTesting {
				return nil, fmt.Errorf("%w: protocol %d state %d", ErrInvalidConfig, id, value)
			}
			states = append(states, ProtocolState{ID: id, State: s})
		}
	}
	return states, nil
}

// SaveProtocolStates writes the state of every plugin in reg, in
// registration order, creating the parent directory.
func SaveProtocolStates(path string, reg *rflink.Registry) error {
	directory := filepath.Dir(path)
	if err := os.MkdirAll(directory, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	entries := make([]map[string]int, 0, len(reg.Plugins()))
	for _, p := range reg.Plugins() {
		entries = append(entries, map[string]int{strconv.Itoa(p.ID()): int(p.State())})
	}

	data, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("failed to marshal protocol states: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	return nil
}

// ApplyProtocolStates sets the persisted states on reg. Ids the registry
// does not know are skipped with a warning.
func ApplyProtocolStates(reg *rflink.Registry, states []ProtocolState, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default().With("component", "config")
	}
	for _, ps := range states {
		err := reg.SetState(ps.ID, ps.State)
		if errors.Is(err, rflink.ErrUnknownProtocol) {
			logger.Warn("ignoring state of unknown protocol", "protocol", ps.ID)
			continue
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// LoadRegistry returns the default registry with the states persisted at
// path applied.
func LoadRegistry(path string, logger *slog.Logger) (*rflink.Registry, error) {
	reg := rflink.DefaultRegistry()
	states, err := LoadProtocolStates(path)
	if err != nil {
		return nil, err
	}
	if err := ApplyProtocolStates(reg, states, logger); err != nil {
		return nil, err
	}
	return reg, nil
}
