// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package capture turns a stream of RFLink pulse dump lines into RawFrames
// for the dispatch goroutine.
//
// Frames circulate between two channels. Run takes a frame from the free
// list, fills it, and hands it over on Frames; the consumer dispatches it and
// gives it back with Release. A frame is never refilled while the consumer
// holds it.
package capture

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"

	"github.com/Thermoquad/rfgate/pkg/rflink"
)

// maxLineLength bounds one dump line: MaxPulses durations of up to six
// digits plus the header.
const maxLineLength = 64 * 1024

// ErrClosed is returned by Run on a Reader that has already run.
var ErrClosed = errors.New("capture: reader closed")

// Option configures a Reader.
type Option func(*Reader)

// WithFrames sets the number of frames in circulation. The default of one
// mirrors the single capture buffer of the receiver firmware.
func WithFrames(n int) Option {
	return func(r *Reader) {
		if n > 0 {
			r.frames = n
		}
	}
}

// WithDropWhenBusy makes Run discard pulse dumps while every frame is held by
// the consumer, instead of waiting. Use it for live sources.
func WithDropWhenBusy() Option {
	return func(r *Reader) {
		r.dropWhenBusy = true
	}
}

// WithLogger sets the logger. A nil logger is ignored.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Reader) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// Stats counts what a Reader has seen.
type Stats struct {
	Lines   uint64 // lines read
	Frames  uint64 // frames handed to the consumer
	Skipped uint64 // lines that are not pulse dumps
	Invalid uint64 // pulse dumps that failed to parse
	Dropped uint64 // pulse dumps discarded while busy
}

// Reader reads pulse dump lines from an io.Reader.
type Reader struct {
	src          io.Reader
	logger       *slog.Logger
	frames       int
	dropWhenBusy bool

	ready chan *rflink.RawFrame
	free  chan *rflink.RawFrame
	ran   atomic.Bool

	lines   atomic.Uint64
	sent    atomic.Uint64
	skipped atomic.Uint64
	invalid atomic.Uint64
	dropped atomic.Uint64
}

// New returns a Reader over src.
func New(src io.Reader, opts ...Option) *Reader {
	r := &Reader{
		src:    src,
		logger: slog.Default().With("component", "capture"),
		frames: 1,
	}
	for _, opt := range opts {
		opt(r)
	}

	r.ready = make(chan *rflink.RawFrame, r.frames)
	r.free = make(chan *rflink.RawFrame, r.frames)
	for i := 0; i < r.frames; i++ {
		r.free <- &rflink.RawFrame{}
	}
	return r
}

// Frames delivers filled frames. It is closed when Run returns.
func (r *Reader) Frames() <-chan *rflink.RawFrame { return r.ready }

// Release returns a frame to the free list. A frame still marked ready is
// cleared first.
func (r *Reader) Release(f *rflink.RawFrame) {
	if f == nil {
		return
	}
	if f.Ready() {
		f.Reset()
	}
	select {
	case r.free <- f:
	default:
		// not one of ours
	}
}

// Stats returns a snapshot of the counters.
func (r *Reader) Stats() Stats {
	return Stats{
		Lines:   r.lines.Load(),
		Frames:  r.sent.Load(),
		Skipped: r.skipped.Load(),
		Invalid: r.invalid.Load(),
		Dropped: r.dropped.Load(),
	}
}

// Run reads src until EOF, an error, or ctx is done, and closes Frames on
// return. EOF returns nil. A blocked read is only interrupted by closing src.
func (r *Reader) Run(ctx context.Context) error {
	if !r.ran.CompareAndSwap(false, true) {
		return ErrClosed
	}
	defer close(r.ready)

	sc := bufio.NewScanner(r.src)
	sc.Buffer(make([]byte, 0, 4096), maxLineLength)

	var f *rflink.RawFrame
	for sc.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := sc.Text()
		r.lines.Add(1)

		if !rflink.IsPulseLine(line) {
			r.skipped.Add(1)
			r.logger.Debug("skipping line", "line", line)
			continue
		}

		if f == nil {
			var err error
			f, err = r.acquire(ctx)
			if err != nil {
				return err
			}
			if f == nil {
				r.dropped.Add(1)
				continue
			}
		}

		if err := rflink.ParsePulseLine(line, f); err != nil {
			r.invalid.Add(1)
			r.logger.Warn("invalid pulse dump", "error", err)
			continue
		}

		r.ready <- f
		r.sent.Add(1)
		f = nil
	}

	if f != nil {
		r.Release(f)
	}
	if err := sc.Err(); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("read capture: %w", err)
	}
	return nil
}

// acquire takes a free frame. In drop mode it returns nil instead of
// waiting.
func (r *Reader) acquire(ctx context.Context) (*rflink.RawFrame, error) {
	if r.dropWhenBusy {
		select {
		case f := <-r.free:
			return f, nil
		default:
			return nil, nil
		}
	}
	select {
	case f := <-r.free:
		return f, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
