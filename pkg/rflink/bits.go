// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package rflink

// PulseBands describes a pulse-width encoding where each bit is one
// mark/space pair, in ticks. The space carries no data and must lie within
// [SpaceMin, SpaceMax]; the mark is compared against MarkMid.
type PulseBands struct {
	SpaceMin uint16
	SpaceMax uint16
	MarkMid  uint16
	// ShortIsOne selects the polarity: a mark at or below MarkMid is a 1
	// when set, a 0 otherwise.
	ShortIsOne bool
}

// Read converts the mark/space pairs of f into bits pushed MSB first into
// acc. It fails on the first out-of-band space, except for the final space of
// the frame which sensors often omit.
func (b PulseBands) Read(f *RawFrame, acc *Accumulator) bool {
	n := f.Number
	for x := 1; x <= n; x += 2 {
		space := f.Pulses[x+1]
		if (space < b.SpaceMin || space > b.SpaceMax) && x+1 < n {
			return false
		}
		short := f.Pulses[x] <= b.MarkMid
		if short == b.ShortIsOne {
			acc.Push(1)
		} else {
			acc.Push(0)
		}
	}
	return true
}

// Accumulator collects a payload wider than 32 bits in two words: the
// first HeadBits bits land in Head, everything after in Tail. Tail keeps only
// its 32 most recent bits.
type Accumulator struct {
	Head     uint32
	Tail     uint32
	HeadBits int
	n        int
}

// Push appends one bit.
func (a *Accumulator) Push(bit uint32) {
	if a.n < a.HeadBits {
		a.Head = a.Head<<1 | bit&1
		a.n++
		return
	}
	a.Tail = a.Tail<<1 | bit&1
	a.n++
}

// Pad appends n zero bits, restoring a trailing bit the sensor did not send.
func (a *Accumulator) Pad(n int) {
	for i := 0; i < n; i++ {
		a.Push(0)
	}
}

// Len returns the number of bits pushed.
func (a *Accumulator) Len() int {
	return a.n
}

// nibble returns the 4 bits of v starting at bit shift.
func nibble(v uint32, shift uint) uint8 {
	return uint8(v>>shift) & 0xF
}
