// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package rflink

import (
	"log/slog"
	"time"
)

// Session is the dispatch context handed to every Decode call. It owns the
// repeat cache and the output sink, so decoders carry no globals.
type Session struct {
	dedup  *Dedup
	sink   Sink
	now    func() time.Time
	logger *slog.Logger

	// set by the dispatcher before each attempt
	plugin *Plugin
	state  State
}

// Now returns the session clock.
func (s *Session) Now() time.Time {
	return s.now()
}

// Repeat reports whether fine, the fingerprint of a fully validated payload,
// repeats the last reading within the repeat window. Decoders call it once,
// after every gate has passed. Without a repeat cache nothing repeats.
func (s *Session) Repeat(fine uint64) bool {
	if s.dedup == nil {
		return false
	}
	return s.dedup.Check(fine, s.now()) == Suppress
}

// Publish forwards r to the sink, filling in the protocol identity. A sink
// failure is logged and dropped; it never affects the decode outcome.
func (s *Session) Publish(r *Reading) {
	if s.plugin != nil {
		r.Protocol = s.plugin.ID()
		r.Name = s.plugin.Name()
	}
	r.Testing = s.state == StateTesting
	if r.Time.IsZero() {
		r.Time = s.now()
	}
	if s.sink == nil {
		return
	}
	if err := s.sink.Publish(r); err != nil {
		s.logger.Warn("publish failed", "protocol", r.Protocol, "device", r.Device, "error", err)
	}
}

// Logger returns the session logger.
func (s *Session) Logger() *slog.Logger {
	return s.logger
}
