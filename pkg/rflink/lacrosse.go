// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package rflink

import "fmt"

// LaCrosse weather station outdoor sensors (WS2300, WS2355, WS3600 and
// compatibles).
//
// A packet is 52 bits, one bit per mark/space pair, 13 nibbles:
//
//	SSSS PPPP QRAA BBBB BBBB CCCC CCCC DDDD DDDD dddd EEEE EEEE FFFF
//
//	S  sync, always 0
//	P  preamble: 1001 WS2300, 0110 WS3600
//	Q  on wind packets, 1 = gust, 0 = speed; set on any other type the
//	   packet is unknown and reported raw
//	R  error checking bit, unused
//	A  packet type: 00 temperature, 01 humidity, 10 rain, 11 wind
//	B  rolling device code
//	C  flags
//	Dd 12-bit value
//	E  bitwise inverse of DD
//	F  sum of nibbles 0-11, truncated to 4 bits
//
// Some sensors drop the trailing bit, which is then always 0, giving 102
// pulses instead of 104.
type LaCrosse struct{}

// Protocol identity
const (
	LaCrosseID   = 2
	LaCrosseName = "LaCrosseV2"
)

// Frame geometry
const (
	laCrossePulses        = 104
	laCrossePulsesNoTail  = laCrossePulses - 2
	laCrosseHeadBits      = 20 // nibbles 0-4
	laCrosseNibbles       = 13
	laCrosseChecksumIndex = 12
)

// Timing in ticks
const (
	laCrosseSpaceMin = 1100 / SampleRate
	laCrosseSpaceMax = 1400 / SampleRate
	laCrosseMarkMid  = 1000 / SampleRate
)

// Device families, from the preamble nibble
const (
	laCrosseSync           = 0x0
	laCrossePreambleWS2300 = 0x9
	laCrossePreambleWS3600 = 0x6
)

// Packet type nibble QRAA, R masked off
const (
	laCrosseTypeMask        = 0xB // Q_AA
	laCrosseTypeTemperature = 0x0
	laCrosseTypeHumidity    = 0x1
	laCrosseTypeRain        = 0x2
	laCrosseTypeWindSpeed   = 0x3
	laCrosseTypeWindGust    = 0xB
)

// Scaling
const (
	laCrosseTempOffsetWS2300 = 300
	laCrosseTempOffsetWS3600 = 400

	// rain tips to tenths of mm: 0.508 mm and 0.518 mm per tip
	laCrosseRainPerTipWS2300 = 508
	laCrosseRainPerTipWS3600 = 518
	laCrosseRainDivisor      = 100

	// m/s to tenths of km/h
	laCrosseWindMul       = 36
	laCrosseWindDiv       = 10
	laCrosseWindDivWS2300 = 10
)

var laCrosseBands = PulseBands{
	SpaceMin:   laCrosseSpaceMin,
	SpaceMax:   laCrosseSpaceMax,
	MarkMid:    laCrosseMarkMid,
	ShortIsOne: true,
}

// ID implements Decoder.
func (LaCrosse) ID() int { return LaCrosseID }

// Name implements Decoder.
func (LaCrosse) Name() string { return LaCrosseName }

// DefaultState implements Decoder.
func (LaCrosse) DefaultState() State { return StateEnabled }

// Decode implements Decoder.
func (LaCrosse) Decode(s *Session, f *RawFrame) Result {
	if f.Number != laCrossePulses && f.Number != laCrossePulsesNoTail {
		return RejectLength
	}

	acc := Accumulator{HeadBits: laCrosseHeadBits}
	if !laCrosseBands.Read(f, &acc) {
		return RejectTiming
	}
	if f.Number == laCrossePulsesNoTail {
		acc.Pad(1)
	}
	if acc.Head == 0 {
		return RejectMalformed
	}

	var data [laCrosseNibbles]uint8
	for i := 0; i < 5; i++ {
		data[i] = nibble(acc.Head, uint(16-4*i))
	}
	for i := 0; i < 8; i++ {
		data[5+i] = nibble(acc.Tail, uint(28-4*i))
	}

	if data[0] != laCrosseSync {
		return RejectMalformed
	}
	family := data[1]
	if family != laCrossePreambleWS2300 && family != laCrossePreambleWS3600 {
		return RejectMalformed
	}
	if NibbleSum(data[:laCrosseChecksumIndex]) != data[laCrosseChecksumIndex] {
		return RejectMalformed
	}
	value := data[7]<<4 | data[8]
	if ^value != data[10]<<4|data[11] {
		return RejectMalformed
	}

	fine := uint64(acc.Head)<<32 | uint64(acc.Tail)

	var values [2]Value
	n := 0
	switch typ := data[2] & laCrosseTypeMask; typ {
	case laCrosseTypeTemperature:
		if !bcd(data[7], data[8], data[9]) {
			return RejectImplausible
		}
		t := int(data[7])*100 + int(data[8])*10 + int(data[9])
		if family == laCrossePreambleWS2300 {
			t -= laCrosseTempOffsetWS2300
		} else {
			t -= laCrosseTempOffsetWS3600
		}
		values[0] = Value{Kind: KindTemperature, Value: t}
		n = 1

	case laCrosseTypeHumidity:
		// two BCD digits
		if value == 0 || !bcd(data[7], data[8]) {
			return RejectImplausible
		}
		values[0] = Value{Kind: KindHumidity, Value: int(data[7])*10 + int(data[8])}
		n = 1

	case laCrosseTypeRain:
		// 12-bit tip counter, wraps from 4095 to 0
		rain := int(data[7])<<8 | int(data[8])<<4 | int(data[9])
		if family == laCrossePreambleWS2300 {
			rain = rain * laCrosseRainPerTipWS2300 / laCrosseRainDivisor
		} else {
			rain = rain * laCrosseRainPerTipWS3600 / laCrosseRainDivisor
		}
		values[0] = Value{Kind: KindRain, Value: rain}
		n = 1

	case laCrosseTypeWindSpeed, laCrosseTypeWindGust:
		speed := int(value) * laCrosseWindMul / laCrosseWindDiv
		if family == laCrossePreambleWS2300 {
			speed /= laCrosseWindDivWS2300
		}
		kind := KindWindSpeed
		if typ == laCrosseTypeWindGust {
			kind = KindWindGust
		}
		values[0] = Value{Kind: KindWindDirection, Value: int(data[9])}
		values[1] = Value{Kind: kind, Value: speed}
		n = 2

	default:
		// nibbles 0-11 as they arrived
		values[0] = Value{Kind: KindOther, Value: int(fine >> 4)}
		n = 1
	}

	if s.Repeat(fine) {
		f.Repeats = true
		return Duplicate
	}
	f.Repeats = false

	r := Reading{
		Device: fmt.Sprintf("%02X%02X", data[3], data[4]),
		Values: append([]Value(nil), values[:n]...),
	}
	s.Publish(&r)
	return Accepted
}

// bcd reports whether every nibble is a decimal digit.
func bcd(nibbles ...uint8) bool {
	for _, n := range nibbles {
		if n > 9 {
			return false
		}
	}
	return true
}
