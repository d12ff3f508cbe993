// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Thermoquad/rfgate/pkg/capture"
	"github.com/Thermoquad/rfgate/pkg/config"
	"github.com/Thermoquad/rfgate/pkg/metrics"
	"github.com/Thermoquad/rfgate/pkg/rflink"
	"github.com/Thermoquad/rfgate/pkg/sink"
)

// rfDebugCommand makes the receiver stream raw pulse dumps.
const rfDebugCommand = "10;RFDEBUG=ON;"

// pipeline wires a registry, the output sinks and the observers into one
// dispatcher.
type pipeline struct {
	registry      *rflink.Registry
	protocolsFile string
	dispatcher    *rflink.Dispatcher
	stats         *rflink.Statistics
	collector     *metrics.Collector
	promReg       *prometheus.Registry
	closers       []io.Closer
	logger        *slog.Logger
}

// newPipeline builds the pipeline described by cfg. Readings are written to
// out in the configured format; extra sinks receive them as well.
func newPipeline(cfg config.Config, out io.Writer, extra ...rflink.Sink) (*pipeline, error) {
	logger := slog.Default()

	registry, err := config.LoadRegistry(cfg.Decoder.ProtocolsFile, logger.With("component", "config"))
	if err != nil {
		return nil, err
	}

	p := &pipeline{
		registry:      registry,
		protocolsFile: cfg.Decoder.ProtocolsFile,
		stats:         rflink.NewStatistics(),
		logger:        logger,
	}

	var sinks sink.Multi
	if out != nil {
		s, err := sink.New(cfg.Output.Format, out)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, s)
	}
	if cfg.Output.NATSURL != "" {
		ns, err := sink.ConnectNATS(cfg.Output.NATSURL, cfg.Output.NATSSubject, logger.With("component", "nats"))
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, ns)
		p.closers = append(p.closers, ns)
	}
	sinks = append(sinks, extra...)

	var output rflink.Sink = sinks
	opts := []rflink.Option{
		rflink.WithRepeatWindow(cfg.Decoder.RepeatWindow),
		rflink.WithLogger(logger.With("component", "dispatch")),
		rflink.WithObserver(p.stats),
	}
	if cfg.Decoder.DisableDedup {
		opts = append(opts, rflink.WithoutDedup())
	}
	if cfg.Metrics.Addr != "" {
		p.collector = metrics.NewCollector()
		p.promReg = prometheus.NewRegistry()
		if err := p.collector.Register(p.promReg); err != nil {
			p.Close()
			return nil, err
		}
		p.collector.UpdatePluginStates(registry)
		output = p.collector.Sink(output)
		opts = append(opts, rflink.WithObserver(p.collector))
	}

	p.dispatcher = rflink.NewDispatcher(registry, output, opts...)
	return p, nil
}

// serveMetrics runs the metrics endpoint until ctx is done, if configured.
func (p *pipeline) serveMetrics(ctx context.Context, addr string) {
	if p.collector == nil {
		return
	}
	go func() {
		if err := metrics.Serve(ctx, addr, p.promReg, p.logger.With("component", "metrics")); err != nil {
			p.logger.Error("metrics server stopped", "error", err)
		}
	}()
}

// reload re-reads the protocol state file and applies it to the running
// registry. The dispatcher sees the new states from its next frame.
func (p *pipeline) reload() error {
	states, err := config.LoadProtocolStates(p.protocolsFile)
	if err != nil {
		return err
	}
	if err := config.ApplyProtocolStates(p.registry, states, p.logger.With("component", "config")); err != nil {
		return err
	}
	if p.collector != nil {
		p.collector.UpdatePluginStates(p.registry)
	}
	for _, pl := range p.registry.Plugins() {
		p.logger.Debug("protocol state", "protocol", pl.ID(), "name", pl.Name(), "state", pl.State().String())
	}
	return nil
}

// watchReload calls reload on every SIGHUP until ctx is done. notify, if
// set, receives the result of each reload.
func (p *pipeline) watchReload(ctx context.Context, notify func(error)) {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGHUP)

	go func() {
		defer signal.Stop(sig)
		for {
			select {
			case <-ctx.Done():
				return
			case <-sig:
			}

			err := p.reload()
			if err != nil {
				p.logger.Error("failed to reload protocol states", "file", p.protocolsFile, "error", err)
			} else {
				p.logger.Info("protocol states reloaded", "file", p.protocolsFile)
			}
			if notify != nil {
				notify(err)
			}
		}
	}()
}

// run dispatches every frame r captures until the source ends or ctx is
// done.
func (p *pipeline) run(ctx context.Context, r *capture.Reader) error {
	errCh := make(chan error, 1)
	go func() { errCh <- r.Run(ctx) }()

	for f := range r.Frames() {
		p.dispatcher.Dispatch(f)
		r.Release(f)
	}

	err := <-errCh
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Close releases the sinks the pipeline owns.
func (p *pipeline) Close() error {
	var errs []error
	for _, c := range p.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// summary returns the statistics block printed when a command ends.
func (p *pipeline) summary(r *capture.Reader) string {
	cs := r.Stats()
	return fmt.Sprintf("%sLines: %d, frames: %d, invalid: %d, dropped: %d\n",
		p.stats.String(), cs.Lines, cs.Frames, cs.Invalid, cs.Dropped)
}
