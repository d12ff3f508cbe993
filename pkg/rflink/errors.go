// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package rflink

import "errors"

// Registry errors
var (
	// ErrUnknownProtocol indicates a protocol id that is not compiled in
	ErrUnknownProtocol = errors.New("unknown protocol id")

	// ErrInvalidState indicates a plugin state outside disabled/enabled/testing
	ErrInvalidState = errors.New("invalid plugin state")
)

// Pulse line errors
var (
	// ErrNotPulseLine indicates a line that is not an RFLink pulse dump
	ErrNotPulseLine = errors.New("not a pulse dump line")

	// ErrNoPulses indicates a pulse dump with a zero pulse count
	ErrNoPulses = errors.New("pulse dump has no pulses")

	// ErrTooManyPulses indicates a pulse count above MaxPulses or more
	// durations than the declared count
	ErrTooManyPulses = errors.New("too many pulses")

	// ErrBadPulseValue indicates a duration that is not a decimal integer
	ErrBadPulseValue = errors.New("invalid pulse duration")
)
