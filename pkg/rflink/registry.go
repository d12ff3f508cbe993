// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package rflink

import (
	"fmt"
	"strings"
	"sync/atomic"
)

// State is the runtime enable state of a plugin.
type State int32

// Plugin states
const (
	StateDisabled State = iota
	StateEnabled
	StateTesting
)

// String returns the lowercase state name.
func (s State) String() string {
	switch s {
	case StateDisabled:
		return "disabled"
	case StateEnabled:
		return "enabled"
	case StateTesting:
		return "testing"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// ParseState parses a state name as printed by String.
func ParseState(name string) (State, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "disabled", "disable", "off":
		return StateDisabled, nil
	case "enabled", "enable", "on":
		return StateEnabled, nil
	case "testing", "test":
		return StateTesting, nil
	}
	return StateDisabled, fmt.Errorf("%w: %q", ErrInvalidState, name)
}

// Active reports whether dispatch offers frames to a plugin in this state.
func (s State) Active() bool {
	return s == StateEnabled || s == StateTesting
}

// Decoder recognises and decodes one protocol.
//
// Decode must not block and must not keep state between calls other than
// through the Session's repeat check on its accept path.
type Decoder interface {
	ID() int
	Name() string
	DefaultState() State
	Decode(s *Session, f *RawFrame) Result
}

// Plugin is a registered decoder with its runtime state.
type Plugin struct {
	decoder Decoder
	state   atomic.Int32
}

// ID returns the protocol identifier.
func (p *Plugin) ID() int { return p.decoder.ID() }

// Name returns the protocol description.
func (p *Plugin) Name() string { return p.decoder.Name() }

// State returns the current state. Safe to call while dispatch runs.
func (p *Plugin) State() State { return State(p.state.Load()) }

// Decoder returns the plugin's decoder.
func (p *Plugin) Decoder() Decoder { return p.decoder }

// Registry is the ordered table of compiled-in protocol decoders. The order
// is significant: the first plugin to accept a frame wins. Plugins cannot be
// added after construction; only their states change.
type Registry struct {
	plugins []*Plugin
	byID    map[int]*Plugin
}

// NewRegistry registers decoders in the given order, each in its default
// state. Protocol ids must be unique.
func NewRegistry(decoders ...Decoder) (*Registry, error) {
	r := &Registry{
		plugins: make([]*Plugin, 0, len(decoders)),
		byID:    make(map[int]*Plugin, len(decoders)),
	}
	for _, d := range decoders {
		if _, dup := r.byID[d.ID()]; dup {
			return nil, fmt.Errorf("duplicate protocol id %d (%s)", d.ID(), d.Name())
		}
		p := &Plugin{decoder: d}
		p.state.Store(int32(d.DefaultState()))
		r.plugins = append(r.plugins, p)
		r.byID[d.ID()] = p
	}
	return r, nil
}

// DefaultRegistry returns the registry of every protocol built into rfgate.
func DefaultRegistry() *Registry {
	r, err := NewRegistry(
		LaCrosse{},
		Debug{},
	)
	if err != nil {
		panic(err)
	}
	return r
}

// Plugins returns every plugin in registration order.
func (r *Registry) Plugins() []*Plugin {
	return r.plugins
}

// Lookup returns the plugin registered under id.
func (r *Registry) Lookup(id int) (*Plugin, bool) {
	p, ok := r.byID[id]
	return p, ok
}

// SetState changes the state of plugin id.
func (r *Registry) SetState(id int, s State) error {
	p, ok := r.byID[id]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownProtocol, id)
	}
	if s != StateDisabled && s != StateEnabled && s != StateTesting {
		return fmt.Errorf("%w: %d", ErrInvalidState, int32(s))
	}
	p.state.Store(int32(s))
	return nil
}

// State returns the state of plugin id.
func (r *Registry) State(id int) (State, error) {
	p, ok := r.byID[id]
	if !ok {
		return StateDisabled, fmt.Errorf("%w: %d", ErrUnknownProtocol, id)
	}
	return p.State(), nil
}
