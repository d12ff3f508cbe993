// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package rflink

// Result is the outcome of one decode attempt. Rejections are routine: many
// unrelated transmitters share the channel.
type Result int

const (
	// RejectLength means the pulse count is not one the protocol uses.
	RejectLength Result = iota
	// RejectTiming means a pulse fell outside the protocol's duration bands.
	RejectTiming
	// RejectMalformed means a fixed bit pattern or the checksum did not match.
	RejectMalformed
	// RejectImplausible means a decoded value violates a physical bound.
	RejectImplausible
	// Accepted means the frame decoded and the reading was published.
	Accepted
	// Duplicate means the frame decoded but repeats a reading reported
	// within the repeat window.
	Duplicate
	// Unrecognized is a dispatch outcome: no active plugin accepted the frame.
	Unrecognized
)

// Accepted reports whether the decoder claimed the frame.
func (r Result) Accepted() bool {
	return r == Accepted || r == Duplicate
}

// String returns a short name for logs and metric labels.
func (r Result) String() string {
	switch r {
	case RejectLength:
		return "length"
	case RejectTiming:
		return "timing"
	case RejectMalformed:
		return "malformed"
	case RejectImplausible:
		return "implausible"
	case Accepted:
		return "accepted"
	case Duplicate:
		return "duplicate"
	case Unrecognized:
		return "unrecognized"
	default:
		return "unknown"
	}
}
