// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package rflink decodes sub-GHz on-off-keyed sensor transmissions.
//
// A capture layer fills a RawFrame with alternating mark/space durations for one
// candidate transmission. The Dispatcher offers the frame to every active plugin
// in the Registry, in registration order, until one decoder accepts it. Accepted
// readings pass through a short repeat window (Dedup) so the retransmissions a
// sensor sends for reliability are reported once, then reach a Sink.
//
// Pulse dumps and decoded readings use the RFLink serial line format, see
// ParsePulseLine and FormatReading.
package rflink

import "time"

// Capture geometry
const (
	// SampleRate is the number of microseconds per capture tick. Pulse durations
	// are stored in ticks and every decoder threshold is expressed as
	// microseconds / SampleRate.
	SampleRate = 32

	// MaxPulses is the largest pulse count one RawFrame can hold.
	MaxPulses = 292
)

// Repeat suppression
const (
	DefaultRepeatWindow = 500 * time.Millisecond
)

// RFLink serial line framing
const (
	linePrefix    = "20"
	lineSeparator = ";"
	debugTag      = "DEBUG"
	pulsesKey     = "Pulses="
	pulsesUsKey   = "Pulses(uSec)="
)
