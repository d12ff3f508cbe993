// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package sink provides rflink.Sink implementations: RFLink text lines, JSON
// lines, a CBOR stream, NATS publication, and fan-out.
package sink

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Thermoquad/rfgate/pkg/rflink"
)

// Output formats accepted by New
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatCBOR = "cbor"
)

// ErrUnknownFormat is returned by New for an unsupported format name.
var ErrUnknownFormat = errors.New("unknown output format")

// New returns a stream sink writing format to w.
func New(format string, w io.Writer) (rflink.Sink, error) {
	switch strings.ToLower(format) {
	case FormatText, "":
		return NewText(w), nil
	case FormatJSON:
		return NewJSON(w), nil
	case FormatCBOR:
		return NewCBOR(w), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
}

// Envelope is the structured form of a reading shared by the JSON and NATS
// sinks. Values are keyed by rflink.Kind names.
type Envelope struct {
	ID       string         `json:"id"`
	Time     time.Time      `json:"time"`
	Protocol int            `json:"protocol"`
	Name     string         `json:"name"`
	Device   string         `json:"device,omitempty"`
	Testing  bool           `json:"testing,omitempty"`
	Values   map[string]int `json:"values,omitempty"`
	Pulses   []int          `json:"pulses,omitempty"`
}

// NewEnvelope wraps r with a fresh id.
func NewEnvelope(r *rflink.Reading) Envelope {
	e := Envelope{
		ID:       uuid.NewString(),
		Time:     r.Time.UTC(),
		Protocol: r.Protocol,
		Name:     r.Name,
		Device:   r.Device,
		Testing:  r.Testing,
		Pulses:   r.Pulses,
	}
	if len(r.Values) > 0 {
		e.Values = make(map[string]int, len(r.Values))
		for _, v := range r.Values {
			e.Values[v.Kind.String()] = v.Value
		}
	}
	return e
}

// Multi fans a reading out to every sink. All sinks are tried; their errors
// are joined.
type Multi []rflink.Sink

// Publish implements rflink.Sink.
func (m Multi) Publish(r *rflink.Reading) error {
	var errs []error
	for _, s := range m {
		if err := s.Publish(r); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
