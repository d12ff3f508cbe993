// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package rflink

// RawFrame holds one captured pulse train. Pulses[0] is unused; decoders read
// marks at odd and spaces at even indexes starting from 1. The capture layer
// must not refill a frame until Number has been reset to zero.
type RawFrame struct {
	// Number of valid pulses, 0 when the frame is free.
	Number int
	// Pulse durations in ticks (see SampleRate). One spare slot past
	// MaxPulses lets pair-wise scans of an odd count read a zero space.
	Pulses [MaxPulses + 2]uint16
	// Repeats is set by the accepting decoder when the frame was a repeat
	// transmission of a reading already reported.
	Repeats bool
}

// Reset frees the frame for the capture layer.
func (f *RawFrame) Reset() {
	f.Number = 0
	f.Repeats = false
}

// Ready reports whether the frame holds a capture awaiting dispatch.
func (f *RawFrame) Ready() bool {
	return f.Number > 0
}

// Duration returns pulse i in microseconds.
func (f *RawFrame) Duration(i int) int {
	return int(f.Pulses[i]) * SampleRate
}

// FNV-1a parameters
const (
	hashOffset = 2166136261
	hashPrime  = 16777619
)

// Hash returns a coarse fingerprint of the frame: the pulse count plus the
// short/long pattern of every pulse, split at the midpoint between the
// shortest and longest non-zero pulse. The two clusters of an OOK burst sit
// far from that midpoint, so retransmissions of one burst hash identically
// despite timing jitter.
func (f *RawFrame) Hash() uint32 {
	n := f.Number
	if n > MaxPulses {
		n = MaxPulses
	}

	h := uint32(hashOffset)
	h = (h ^ uint32(f.Number)) * hashPrime
	if n <= 0 {
		return h
	}

	lo, hi := uint16(0xFFFF), uint16(0)
	for i := 1; i <= n; i++ {
		p := f.Pulses[i]
		if p == 0 {
			continue
		}
		lo = min(lo, p)
		hi = max(hi, p)
	}
	if hi == 0 {
		return h
	}
	mid := (uint32(lo) + uint32(hi)) / 2

	var pattern uint32
	for i := 1; i <= n; i++ {
		pattern <<= 1
		if uint32(f.Pulses[i]) > mid {
			pattern |= 1
		}
		if i%32 == 0 {
			h = (h ^ pattern) * hashPrime
			pattern = 0
		}
	}
	return (h ^ pattern) * hashPrime
}
