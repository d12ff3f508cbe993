// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package sink

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"

	"github.com/Thermoquad/rfgate/pkg/rflink"
)

// CBOR reading payload map keys. A reading is encoded as
// [protocol, {key: value}] with integer keys.
const (
	CBORKeyDevice  = 0 // text
	CBORKeyTime    = 1 // unix milliseconds
	CBORKeyValues  = 2 // map kind -> value
	CBORKeyPulses  = 3 // array of microseconds
	CBORKeyTesting = 4 // bool, only when set
)

// CBOR writes a stream of CBOR encoded readings.
type CBOR struct {
	mu sync.Mutex
	w  io.Writer
}

// NewCBOR returns a CBOR stream sink writing to w.
func NewCBOR(w io.Writer) *CBOR {
	return &CBOR{w: w}
}

// Publish implements rflink.Sink.
func (c *CBOR) Publish(r *rflink.Reading) error {
	data, err := EncodeCBOR(r)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	_, err = c.w.Write(data)
	return err
}

// EncodeCBOR encodes r as [protocol, payload_map].
func EncodeCBOR(r *rflink.Reading) ([]byte, error) {
	payload := map[int]interface{}{
		CBORKeyTime: r.Time.UnixMilli(),
	}
	if r.Device != "" {
		payload[CBORKeyDevice] = r.Device
	}
	if len(r.Values) > 0 {
		values := make(map[int]int, len(r.Values))
		for _, v := range r.Values {
			values[int(v.Kind)] = v.Value
		}
		payload[CBORKeyValues] = values
	}
	if len(r.Pulses) > 0 {
		payload[CBORKeyPulses] = r.Pulses
	}
	if r.Testing {
		payload[CBORKeyTesting] = true
	}

	data, err := cbor.Marshal([]interface{}{uint64(r.Protocol), payload})
	if err != nil {
		return nil, fmt.Errorf("encode reading: %w", err)
	}
	return data, nil
}

// cborReading mirrors the wire layout of EncodeCBOR.
type cborReading struct {
	_        struct{} `cbor:",toarray"`
	Protocol int
	Payload  struct {
		Device  string      `cbor:"0,keyasint,omitempty"`
		Time    int64       `cbor:"1,keyasint"`
		Values  map[int]int `cbor:"2,keyasint,omitempty"`
		Pulses  []int       `cbor:"3,keyasint,omitempty"`
		Testing bool        `cbor:"4,keyasint,omitempty"`
	}
}

// DecodeCBOR decodes one reading encoded by EncodeCBOR. Name is not part of
// the encoding and is left empty.
func DecodeCBOR(data []byte) (*rflink.Reading, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty CBOR payload")
	}
	var msg cborReading
	if err := cbor.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("failed to decode CBOR: %w", err)
	}

	r := &rflink.Reading{
		Protocol: msg.Protocol,
		Device:   msg.Payload.Device,
		Pulses:   msg.Payload.Pulses,
		Testing:  msg.Payload.Testing,
		Time:     time.UnixMilli(msg.Payload.Time).UTC(),
	}
	for k := rflink.KindTemperature; k <= rflink.KindOther; k++ {
		if v, ok := msg.Payload.Values[int(k)]; ok {
			r.Values = append(r.Values, rflink.Value{Kind: k, Value: v})
		}
	}
	return r, nil
}
