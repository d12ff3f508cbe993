// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package rflink

import "time"

// Kind identifies the physical quantity carried by a Value.
type Kind int

// Value kinds and their integer scale
const (
	KindTemperature   Kind = iota // tenths of a degree Celsius
	KindHumidity                  // percent relative humidity
	KindRain                      // tenths of a millimetre, running total
	KindWindSpeed                 // tenths of km/h
	KindWindGust                  // tenths of km/h
	KindWindDirection             // 0-15, steps of 22.5 degrees from north
	KindOther                     // protocol specific, unscaled
)

// String returns the snake_case name used by structured sinks.
func (k Kind) String() string {
	switch k {
	case KindTemperature:
		return "temperature"
	case KindHumidity:
		return "humidity"
	case KindRain:
		return "rain"
	case KindWindSpeed:
		return "wind_speed"
	case KindWindGust:
		return "wind_gust"
	case KindWindDirection:
		return "wind_direction"
	case KindOther:
		return "other"
	default:
		return "unknown"
	}
}

// Value is one scaled integer measurement.
type Value struct {
	Kind  Kind
	Value int
}

// Reading is a decoded, non-duplicate transmission handed to a Sink.
type Reading struct {
	Protocol int
	Name     string
	// Device is derived from the id-bearing payload bits and has a fixed
	// width per protocol.
	Device string
	Values []Value
	// Pulses carries the raw capture in microseconds for readings that
	// report undecoded traffic.
	Pulses []int
	// Testing marks readings from a plugin in the Testing state.
	Testing bool
	Time    time.Time
}

// Value returns the first value of kind k.
func (r *Reading) Value(k Kind) (int, bool) {
	for _, v := range r.Values {
		if v.Kind == k {
			return v.Value, true
		}
	}
	return 0, false
}

// Sink consumes decoded readings.
type Sink interface {
	Publish(r *Reading) error
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(r *Reading) error

// Publish calls f(r).
func (f SinkFunc) Publish(r *Reading) error {
	return f(r)
}
