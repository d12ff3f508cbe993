// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package rflink

import "time"

// Verdict is the answer of a Dedup check.
type Verdict int

const (
	Pass Verdict = iota
	Suppress
)

// Dedup suppresses the retransmissions of one physical reading.
//
// The coarse hash of every dispatched frame is recorded with Observe. A
// decoder that accepted a frame calls Check with a fine fingerprint of the
// validated payload. The reading is suppressed only when the frame hashes like
// the one before it, the fingerprint equals the last accepted one, and the
// repeat window has not expired.
//
// Dedup is owned by the dispatch goroutine and is not safe for concurrent use.
type Dedup struct {
	window       time.Duration
	hash         uint32
	previousHash uint32
	fine         uint64
	deadline     time.Time
}

// NewDedup returns a cache with the given repeat window. A window <= 0 uses
// DefaultRepeatWindow.
func NewDedup(window time.Duration) *Dedup {
	if window <= 0 {
		window = DefaultRepeatWindow
	}
	return &Dedup{window: window}
}

// Window returns the repeat window.
func (d *Dedup) Window() time.Duration {
	return d.window
}

// Observe records the coarse hash of the frame about to be dispatched.
func (d *Dedup) Observe(hash uint32) {
	d.previousHash = d.hash
	d.hash = hash
}

// Check decides whether the accepted payload fine is a repeat. A Pass stores
// fine and restarts the window at now; a Suppress leaves the state untouched.
func (d *Dedup) Check(fine uint64, now time.Time) Verdict {
	if d.hash == d.previousHash && now.Before(d.deadline) && fine == d.fine {
		return Suppress
	}
	d.fine = fine
	d.deadline = now.Add(d.window)
	return Pass
}
