// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package sink

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/Thermoquad/rfgate/pkg/rflink"
)

// DefaultSubject is the subject prefix used when none is configured.
const DefaultSubject = "rflink"

// Publisher is the part of *nats.Conn the NATS sink uses.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// NATS publishes each reading as a JSON Envelope to
// <prefix>.<protocol name>.<device>.
type NATS struct {
	pub    Publisher
	prefix string
	conn   *nats.Conn // set when the sink owns the connection
}

// NewNATS returns a sink publishing through pub.
func NewNATS(pub Publisher, prefix string) *NATS {
	if prefix == "" {
		prefix = DefaultSubject
	}
	return &NATS{pub: pub, prefix: strings.TrimSuffix(prefix, ".")}
}

// ConnectNATS dials url and returns a sink owning the connection.
func ConnectNATS(url, prefix string, logger *slog.Logger) (*NATS, error) {
	if logger == nil {
		logger = slog.Default().With("component", "nats")
	}
	conn, err := nats.Connect(url,
		nats.Name("rfgate"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("NATS disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("NATS reconnected", "url", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS at %s: %w", url, err)
	}
	s := NewNATS(conn, prefix)
	s.conn = conn
	return s, nil
}

// Subject returns the subject r is published on.
func (n *NATS) Subject(r *rflink.Reading) string {
	device := r.Device
	if device == "" {
		device = "raw"
	}
	return n.prefix + "." + subjectToken(r.Name) + "." + subjectToken(device)
}

// Publish implements rflink.Sink.
func (n *NATS) Publish(r *rflink.Reading) error {
	data, err := json.Marshal(NewEnvelope(r))
	if err != nil {
		return fmt.Errorf("marshal reading: %w", err)
	}
	subject := n.Subject(r)
	if err := n.pub.Publish(subject, data); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	return nil
}

// Close drains the connection if the sink owns it.
func (n *NATS) Close() error {
	if n.conn == nil {
		return nil
	}
	return n.conn.Drain()
}

// subjectToken lowercases s and replaces the characters NATS reserves in
// subjects.
func subjectToken(s string) string {
	if s == "" {
		return "_"
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case '.', '*', '>', ' ', '\t':
			return '_'
		}
		return r
	}, strings.ToLower(s))
}
