// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package rflink

// Debug reports every frame it is offered as a raw pulse dump. It is
// registered last and disabled by default, so when enabled it only sees
// traffic that no real protocol accepted.
type Debug struct{}

// Protocol identity
const (
	DebugID   = 999
	DebugName = "Debug"

	// MinDebugPulses filters out short noise bursts.
	MinDebugPulses = 16
)

// ID implements Decoder.
func (Debug) ID() int { return DebugID }

// Name implements Decoder.
func (Debug) Name() string { return DebugName }

// DefaultState implements Decoder.
func (Debug) DefaultState() State { return StateDisabled }

// Decode implements Decoder.
func (Debug) Decode(s *Session, f *RawFrame) Result {
	if f.Number < MinDebugPulses || f.Number > MaxPulses {
		return RejectLength
	}
	pulses := make([]int, f.Number)
	for i := range pulses {
		pulses[i] = f.Duration(i + 1)
	}
	s.Publish(&Reading{
		Values: []Value{{Kind: KindOther, Value: f.Number}},
		Pulses: pulses,
	})
	return Accepted
}
