// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package metrics exports dispatch outcomes as Prometheus metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Thermoquad/rfgate/pkg/rflink"
)

const namespace = "rfgate"

// Collector holds the gateway metrics. It implements rflink.Observer.
type Collector struct {
	FramesTotal      *prometheus.CounterVec
	AttemptsTotal    *prometheus.CounterVec
	ReadingsTotal    *prometheus.CounterVec
	PublishErrors    *prometheus.CounterVec
	DispatchDuration prometheus.Histogram
	FramePulses      prometheus.Histogram
	PluginState      *prometheus.GaugeVec
}

// NewCollector creates the gateway metrics.
func NewCollector() *Collector {
	return &Collector{
		FramesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "dispatch",
				Name:      "frames_total",
				Help:      "Frames dispatched, by result (accepted, duplicate, unrecognized)",
			},
			[]string{"result"},
		),

		AttemptsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "decoder",
				Name:      "attempts_total",
				Help:      "Decode attempts, by protocol and result",
			},
			[]string{"protocol", "result"},
		),

		ReadingsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "output",
				Name:      "readings_total",
				Help:      "Readings handed to the sinks, by protocol",
			},
			[]string{"protocol"},
		),

		PublishErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "output",
				Name:      "errors_total",
				Help:      "Sink publish failures, by protocol",
			},
			[]string{"protocol"},
		),

		DispatchDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "dispatch",
				Name:      "duration_seconds",
				Help:      "Time to run every active decoder over one frame",
				Buckets:   prometheus.ExponentialBuckets(1e-6, 4, 8),
			},
		),

		FramePulses: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "dispatch",
				Name:      "frame_pulses",
				Help:      "Pulse count of dispatched frames",
				Buckets:   prometheus.LinearBuckets(16, 32, 9),
			},
		),

		PluginState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "decoder",
				Name:      "state",
				Help:      "Plugin state (0=disabled, 1=enabled, 2=testing)",
			},
			[]string{"protocol", "name"},
		),
	}
}

// Register registers every metric with reg.
func (c *Collector) Register(reg prometheus.Registerer) error {
	for _, m := range []prometheus.Collector{
		c.FramesTotal,
		c.AttemptsTotal,
		c.ReadingsTotal,
		c.PublishErrors,
		c.DispatchDuration,
		c.FramePulses,
		c.PluginState,
	} {
		if err := reg.Register(m); err != nil {
			return err
		}
	}
	return nil
}

// ObserveAttempt implements rflink.Observer.
func (c *Collector) ObserveAttempt(p *rflink.Plugin, r rflink.Result) {
	c.AttemptsTotal.WithLabelValues(protocolLabel(p.ID()), r.String()).Inc()
}

// ObserveFrame implements rflink.Observer.
func (c *Collector) ObserveFrame(o rflink.Outcome, elapsed time.Duration) {
	c.FramesTotal.WithLabelValues(o.Result.String()).Inc()
	c.DispatchDuration.Observe(elapsed.Seconds())
	c.FramePulses.Observe(float64(o.Pulses))
}

// UpdatePluginStates sets the state gauge of every plugin in reg.
func (c *Collector) UpdatePluginStates(reg *rflink.Registry) {
	for _, p := range reg.Plugins() {
		c.PluginState.WithLabelValues(protocolLabel(p.ID()), p.Name()).Set(float64(p.State()))
	}
}

// Sink wraps next, counting readings and publish failures.
func (c *Collector) Sink(next rflink.Sink) rflink.Sink {
	return rflink.SinkFunc(func(r *rflink.Reading) error {
		label := protocolLabel(r.Protocol)
		c.ReadingsTotal.WithLabelValues(label).Inc()
		if err := next.Publish(r); err != nil {
			c.PublishErrors.WithLabelValues(label).Inc()
			return err
		}
		return nil
	})
}

func protocolLabel(id int) string {
	return strconv.Itoa(id)
}
