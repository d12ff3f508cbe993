// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package rflink

import (
	"fmt"
	"strconv"
	"strings"
)

// ParsePulseLine fills f from an RFLink pulse dump:
//
//	20;2A;DEBUG;Pulses=104;Pulses(uSec)=1400,1300,...;
//
// Durations are microseconds and are stored as ticks from index 1. A dump
// may list fewer durations than its pulse count; the missing tail is stored
// as zero. On error f is left cleared.
func ParsePulseLine(line string, f *RawFrame) error {
	f.Reset()

	rest := strings.TrimSpace(line)
	prefix, rest, ok := strings.Cut(rest, lineSeparator)
	if !ok || prefix != linePrefix {
		return ErrNotPulseLine
	}
	_, rest, ok = strings.Cut(rest, lineSeparator) // sequence
	if !ok {
		return ErrNotPulseLine
	}
	tag, rest, ok := strings.Cut(rest, lineSeparator)
	if !ok || tag != debugTag {
		return ErrNotPulseLine
	}
	countField, rest, ok := strings.Cut(rest, lineSeparator)
	if !ok || !strings.HasPrefix(countField, pulsesKey) {
		return ErrNotPulseLine
	}
	durations, _, _ := strings.Cut(rest, lineSeparator)
	if !strings.HasPrefix(durations, pulsesUsKey) {
		return ErrNotPulseLine
	}

	count, err := strconv.Atoi(strings.TrimPrefix(countField, pulsesKey))
	if err != nil {
		return fmt.Errorf("%w: pulse count %q", ErrBadPulseValue, countField)
	}
	if count <= 0 {
		return ErrNoPulses
	}
	if count > MaxPulses {
		return fmt.Errorf("%w: %d (max %d)", ErrTooManyPulses, count, MaxPulses)
	}

	durations = strings.TrimPrefix(durations, pulsesUsKey)
	i := 1
	for durations != "" {
		var field string
		field, durations, _ = strings.Cut(durations, ",")
		if i > count {
			f.Reset()
			return fmt.Errorf("%w: more durations than Pulses=%d", ErrTooManyPulses, count)
		}
		us, err := strconv.Atoi(strings.TrimSpace(field))
		if err != nil || us < 0 {
			f.Reset()
			return fmt.Errorf("%w: %q", ErrBadPulseValue, field)
		}
		ticks := us / SampleRate
		if ticks > 0xFFFF {
			ticks = 0xFFFF
		}
		f.Pulses[i] = uint16(ticks)
		i++
	}
	for ; i <= count+1; i++ {
		f.Pulses[i] = 0
	}

	f.Number = count
	return nil
}

// FormatPulseLine renders f as an RFLink pulse dump with sequence seq.
func FormatPulseLine(seq uint8, f *RawFrame) string {
	durations := make([]int, 0, f.Number)
	for i := 1; i <= f.Number && i <= MaxPulses; i++ {
		durations = append(durations, f.Duration(i))
	}
	return formatPulseDump(seq, durations)
}

func formatPulseDump(seq uint8, durations []int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s;%02X;%s;%s%d;%s", linePrefix, seq, debugTag, pulsesKey, len(durations), pulsesUsKey)
	for i, d := range durations {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Itoa(d))
	}
	b.WriteString(lineSeparator)
	return b.String()
}

// IsPulseLine reports whether line looks like a pulse dump without parsing
// it.
func IsPulseLine(line string) bool {
	return strings.Contains(line, lineSeparator+debugTag+lineSeparator)
}
