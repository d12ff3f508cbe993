// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package sink

import (
	"encoding/json"
	"io"
	"sync"

	"github.com/Thermoquad/rfgate/pkg/rflink"
)

// JSON writes one Envelope per line.
type JSON struct {
	mu  sync.Mutex
	enc *json.Encoder
}

// NewJSON returns a JSON lines sink writing to w.
func NewJSON(w io.Writer) *JSON {
	return &JSON{enc: json.NewEncoder(w)}
}

// Publish implements rflink.Sink.
func (j *JSON) Publish(r *rflink.Reading) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.enc.Encode(NewEnvelope(r))
}
