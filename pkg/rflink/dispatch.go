// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package rflink

import (
	"log/slog"
	"time"
)

// Outcome describes one dispatched frame.
type Outcome struct {
	// Plugin that accepted the frame, nil when unrecognized.
	Plugin *Plugin
	Result Result
	// Pulses is the pulse count of the frame before it was cleared.
	Pulses int
}

// Observer is notified of every decode attempt and dispatched frame.
// Observers run on the dispatch goroutine and must not block.
type Observer interface {
	ObserveAttempt(p *Plugin, r Result)
	ObserveFrame(o Outcome, elapsed time.Duration)
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithRepeatWindow sets the duplicate suppression window.
func WithRepeatWindow(window time.Duration) Option {
	return func(d *Dispatcher) {
		d.session.dedup = NewDedup(window)
	}
}

// WithoutDedup turns repeat suppression off: every accepted frame is
// published. It overrides WithRepeatWindow.
func WithoutDedup() Option {
	return func(d *Dispatcher) {
		d.noDedup = true
	}
}

// WithClock replaces time.Now, for tests and replays.
func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) {
		if now != nil {
			d.session.now = now
		}
	}
}

// WithLogger sets the logger. A nil logger is ignored.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) {
		if logger != nil {
			d.session.logger = logger
		}
	}
}

// WithObserver adds an observer.
func WithObserver(o Observer) Option {
	return func(d *Dispatcher) {
		if o != nil {
			d.observers = append(d.observers, o)
		}
	}
}

// Dispatcher runs active decoders over captured frames.
//
// Dispatch is called from a single goroutine. Plugin states may be changed
// concurrently through the Registry.
type Dispatcher struct {
	registry  *Registry
	session   Session
	observers []Observer
	noDedup   bool
}

// NewDispatcher returns a dispatcher publishing accepted readings to sink.
func NewDispatcher(registry *Registry, sink Sink, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		registry: registry,
		session: Session{
			dedup:  NewDedup(DefaultRepeatWindow),
			sink:   sink,
			now:    time.Now,
			logger: slog.Default().With("component", "dispatch"),
		},
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.noDedup {
		d.session.dedup = nil
	}
	return d
}

// Registry returns the plugin registry.
func (d *Dispatcher) Registry() *Registry {
	return d.registry
}

// Dispatch offers f to each active plugin in registration order and stops at
// the first that accepts it. The frame is always cleared before returning so
// the capture layer can reuse it.
func (d *Dispatcher) Dispatch(f *RawFrame) Outcome {
	start := time.Now()
	out := Outcome{Result: Unrecognized, Pulses: f.Number}

	if f.Number > 0 && f.Number <= MaxPulses {
		if d.session.dedup != nil {
			d.session.dedup.Observe(f.Hash())
		}
		for _, p := range d.registry.plugins {
			s := p.State()
			if !s.Active() {
				continue
			}
			r := d.attempt(p, s, f)
			if r.Accepted() {
				out.Plugin = p
				out.Result = r
				break
			}
		}
		d.session.plugin = nil
		d.session.state = StateDisabled
	}

	if out.Result == Unrecognized {
		d.session.logger.Debug("unrecognized frame", "pulses", f.Number)
	}
	f.Reset()

	elapsed := time.Since(start)
	for _, o := range d.observers {
		o.ObserveFrame(out, elapsed)
	}
	return out
}

func (d *Dispatcher) attempt(p *Plugin, s State, f *RawFrame) Result {
	d.session.plugin = p
	d.session.state = s
	r := p.decoder.Decode(&d.session, f)
	for _, o := range d.observers {
		o.ObserveAttempt(p, r)
	}
	if s == StateTesting && !r.Accepted() {
		d.session.logger.Info("testing protocol rejected frame",
			"protocol", p.ID(), "name", p.Name(), "pulses", f.Number, "reason", r.String())
	}
	return r
}
