// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package rflink

import (
	"fmt"
	"strings"
)

// negativeFlag marks a negative temperature in the RFLink TEMP field.
const negativeFlag = 0x8000

// FormatReading renders r as an RFLink serial output line:
//
//	20;0C;LaCrosseV2;ID=0606;TEMP=00a8;
//
// Readings carrying a raw capture are rendered as a pulse dump instead.
func FormatReading(seq uint8, r *Reading) string {
	if len(r.Pulses) > 0 {
		return formatPulseDump(seq, r.Pulses)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s;%02X;%s;", linePrefix, seq, r.Name)
	if r.Device != "" {
		fmt.Fprintf(&b, "ID=%s;", r.Device)
	}
	for _, v := range r.Values {
		b.WriteString(FormatValue(v))
		b.WriteString(lineSeparator)
	}
	return b.String()
}

// FormatValue renders one value as an RFLink KEY=VALUE field.
func FormatValue(v Value) string {
	switch v.Kind {
	case KindTemperature:
		t := v.Value
		if t < 0 {
			t = -t | negativeFlag
		}
		return fmt.Sprintf("TEMP=%04x", t)
	case KindHumidity:
		return fmt.Sprintf("HUM=%02d", v.Value)
	case KindRain:
		return fmt.Sprintf("RAIN=%04x", v.Value)
	case KindWindSpeed:
		return fmt.Sprintf("WINSP=%04x", v.Value)
	case KindWindGust:
		return fmt.Sprintf("WINGS=%04x", v.Value)
	case KindWindDirection:
		return fmt.Sprintf("WINDIR=%04d", v.Value)
	default:
		return fmt.Sprintf("DEBUG=%x", v.Value)
	}
}

// DescribeValue renders v in physical units for humans.
func DescribeValue(v Value) string {
	switch v.Kind {
	case KindTemperature:
		return fmt.Sprintf("%s°C", tenths(v.Value))
	case KindHumidity:
		return fmt.Sprintf("%d%%", v.Value)
	case KindRain:
		return fmt.Sprintf("%s mm", tenths(v.Value))
	case KindWindSpeed, KindWindGust:
		return fmt.Sprintf("%s km/h", tenths(v.Value))
	case KindWindDirection:
		return fmt.Sprintf("%s°", tenths(v.Value*225))
	default:
		return fmt.Sprintf("%d", v.Value)
	}
}

// tenths formats a value scaled by ten with one decimal place.
func tenths(v int) string {
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%d", sign, v/10, v%10)
}
