// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package sink

import (
	"io"
	"sync"

	"github.com/Thermoquad/rfgate/pkg/rflink"
)

// Text writes RFLink serial output lines, one per reading. The two-digit
// sequence counter wraps after 0xFF like the gateway's.
type Text struct {
	mu  sync.Mutex
	w   io.Writer
	seq uint8
}

// NewText returns a text sink writing to w.
func NewText(w io.Writer) *Text {
	return &Text{w: w}
}

// Publish implements rflink.Sink.
func (t *Text) Publish(r *rflink.Reading) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	line := rflink.FormatReading(t.seq, r)
	t.seq++
	_, err := io.WriteString(t.w, line+"\n")
	return err
}
