// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package rflink

import (
	"errors"
	"testing"
	"time"
)

func newTestDispatcher(t *testing.T, sink Sink, clock *fakeClock, opts ...Option) *Dispatcher {
	t.Helper()
	opts = append([]Option{WithClock(clock.Now), WithLogger(discardLogger())}, opts...)
	return NewDispatcher(DefaultRegistry(), sink, opts...)
}

// ============================================================
// Duplicate suppression
// ============================================================

func TestDispatch_RepeatSuppressed(t *testing.T) {
	sink := &collectSink{}
	clock := newFakeClock()
	d := newTestDispatcher(t, sink, clock)
	capture := mustParse(t, captureTemp168)

	out := d.Dispatch(cloneFrame(capture))
	if out.Result != Accepted {
		t.Fatalf("first dispatch = %s, want accepted", out.Result)
	}
	if len(sink.readings) != 1 {
		t.Fatalf("published %d readings after first dispatch, want 1", len(sink.readings))
	}

	clock.Advance(120 * time.Millisecond)
	out = d.Dispatch(cloneFrame(capture))
	if out.Result != Duplicate {
		t.Fatalf("second dispatch = %s, want duplicate", out.Result)
	}
	if out.Plugin == nil || out.Plugin.ID() != LaCrosseID {
		t.Errorf("duplicate not attributed to LaCrosse")
	}
	if len(sink.readings) != 1 {
		t.Fatalf("published %d readings after repeat, want 1", len(sink.readings))
	}

	clock.Advance(DefaultRepeatWindow)
	out = d.Dispatch(cloneFrame(capture))
	if out.Result != Accepted {
		t.Fatalf("dispatch after window = %s, want accepted", out.Result)
	}
	if len(sink.readings) != 2 {
		t.Fatalf("published %d readings after window, want 2", len(sink.readings))
	}
}

func TestDispatch_RepeatWindowOption(t *testing.T) {
	sink := &collectSink{}
	clock := newFakeClock()
	d := newTestDispatcher(t, sink, clock, WithRepeatWindow(2*time.Second))
	capture := mustParse(t, captureHumidity88)

	d.Dispatch(cloneFrame(capture))
	clock.Advance(1500 * time.Millisecond)
	if out := d.Dispatch(cloneFrame(capture)); out.Result != Duplicate {
		t.Fatalf("dispatch inside 2s window = %s, want duplicate", out.Result)
	}
}

func TestDispatch_SuppressDoesNotExtendWindow(t *testing.T) {
	sink := &collectSink{}
	clock := newFakeClock()
	d := newTestDispatcher(t, sink, clock)
	capture := mustParse(t, captureWindDir13)

	d.Dispatch(cloneFrame(capture))
	for i := 0; i < 4; i++ {
		clock.Advance(100 * time.Millisecond)
		d.Dispatch(cloneFrame(capture))
	}
	clock.Advance(150 * time.Millisecond) // 550ms after the first accept
	if out := d.Dispatch(cloneFrame(capture)); out.Result != Accepted {
		t.Fatalf("dispatch = %s, want accepted once the first window expired", out.Result)
	}
	if len(sink.readings) != 2 {
		t.Errorf("published %d readings, want 2", len(sink.readings))
	}
}

func TestDispatch_InterleavedSensorsNotSuppressed(t *testing.T) {
	sink := &collectSink{}
	clock := newFakeClock()
	d := newTestDispatcher(t, sink, clock)
	temp := mustParse(t, captureTemp168)
	hum := mustParse(t, captureHumidity88)

	for _, f := range []*RawFrame{temp, hum, temp} {
		clock.Advance(50 * time.Millisecond)
		if out := d.Dispatch(cloneFrame(f)); out.Result != Accepted {
			t.Fatalf("dispatch = %s, want accepted", out.Result)
		}
	}
	if len(sink.readings) != 3 {
		t.Errorf("published %d readings, want 3", len(sink.readings))
	}
}

// ============================================================
// Registry gating
// ============================================================

func TestDispatch_DisabledPluginSkipped(t *testing.T) {
	sink := &collectSink{}
	clock := newFakeClock()
	d := newTestDispatcher(t, sink, clock)
	capture := mustParse(t, captureHumidity67)

	if err := d.Registry().SetState(LaCrosseID, StateDisabled); err != nil {
		t.Fatalf("SetState: %v", err)
	}
	out := d.Dispatch(cloneFrame(capture))
	if out.Result != Unrecognized || out.Plugin != nil {
		t.Fatalf("dispatch = %s, want unrecognized", out.Result)
	}

	if err := d.Registry().SetState(LaCrosseID, StateEnabled); err != nil {
		t.Fatalf("SetState: %v", err)
	}
	clock.Advance(time.Second)
	out = d.Dispatch(cloneFrame(capture))
	if out.Result != Accepted {
		t.Fatalf("dispatch after enable = %s, want accepted", out.Result)
	}
	if len(sink.readings) != 1 {
		t.Errorf("published %d readings, want 1", len(sink.readings))
	}
}

func TestDispatch_TestingStateTagsReadings(t *testing.T) {
	sink := &collectSink{}
	d := newTestDispatcher(t, sink, newFakeClock())
	if err := d.Registry().SetState(LaCrosseID, StateTesting); err != nil {
		t.Fatalf("SetState: %v", err)
	}

	if out := d.Dispatch(mustParse(t, captureTemp168)); out.Result != Accepted {
		t.Fatalf("dispatch = %s, want accepted", out.Result)
	}
	r := sink.readings[0]
	if !r.Testing {
		t.Error("reading from testing plugin not tagged")
	}
	if r.Protocol != LaCrosseID || r.Name != LaCrosseName {
		t.Errorf("reading identity = %d/%q, want %d/%q", r.Protocol, r.Name, LaCrosseID, LaCrosseName)
	}
	if !r.Time.Equal(newFakeClock().Now()) {
		t.Errorf("reading time = %v, want session clock", r.Time)
	}
}

func TestDispatch_DebugSeesOnlyUnclaimedFrames(t *testing.T) {
	sink := &collectSink{}
	clock := newFakeClock()
	d := newTestDispatcher(t, sink, clock)
	if err := d.Registry().SetState(DebugID, StateEnabled); err != nil {
		t.Fatalf("SetState: %v", err)
	}

	// claimed by LaCrosse
	if out := d.Dispatch(mustParse(t, captureTemp168)); out.Plugin.ID() != LaCrosseID {
		t.Fatalf("plugin = %d, want %d", out.Plugin.ID(), LaCrosseID)
	}

	// noise goes to debug
	noise := &RawFrame{Number: 20}
	for i := 1; i <= 20; i++ {
		noise.Pulses[i] = uint16(i * 10)
	}
	clock.Advance(time.Second)
	out := d.Dispatch(noise)
	if out.Result != Accepted || out.Plugin.ID() != DebugID {
		t.Fatalf("noise dispatch = %s, want accepted by debug", out.Result)
	}

	if len(sink.readings) != 2 {
		t.Fatalf("published %d readings, want 2", len(sink.readings))
	}
	dump := sink.readings[1]
	if len(dump.Pulses) != 20 {
		t.Fatalf("debug dump has %d pulses, want 20", len(dump.Pulses))
	}
	if dump.Pulses[0] != 10*SampleRate || dump.Pulses[19] != 200*SampleRate {
		t.Errorf("debug dump durations = %v", dump.Pulses)
	}
	if n, _ := dump.Value(KindOther); n != 20 {
		t.Errorf("debug pulse count = %d, want 20", n)
	}

	// too short for debug
	short := &RawFrame{Number: MinDebugPulses - 1}
	if out := d.Dispatch(short); out.Result != Unrecognized {
		t.Errorf("short noise dispatch = %s, want unrecognized", out.Result)
	}
}

func TestDispatch_DuplicateNotOfferedToDebug(t *testing.T) {
	sink := &collectSink{}
	clock := newFakeClock()
	d := newTestDispatcher(t, sink, clock)
	if err := d.Registry().SetState(DebugID, StateEnabled); err != nil {
		t.Fatalf("SetState: %v", err)
	}
	capture := mustParse(t, captureWindDir9)

	d.Dispatch(cloneFrame(capture))
	clock.Advance(10 * time.Millisecond)
	out := d.Dispatch(cloneFrame(capture))
	if out.Result != Duplicate || out.Plugin.ID() != LaCrosseID {
		t.Fatalf("repeat dispatch = %s, want duplicate from LaCrosse", out.Result)
	}
	if len(sink.readings) != 1 {
		t.Errorf("published %d readings, want 1", len(sink.readings))
	}
}

// ============================================================
// Frame lifecycle
// ============================================================

func TestDispatch_FrameAlwaysReset(t *testing.T) {
	tests := []struct {
		name  string
		frame *RawFrame
	}{
		{"accepted", mustParse(t, captureTemp168)},
		{"unrecognized", &RawFrame{Number: 40}},
		{"over capacity", &RawFrame{Number: MaxPulses + 1}},
		{"negative count", &RawFrame{Number: -3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newTestDispatcher(t, &collectSink{}, newFakeClock())
			tt.frame.Repeats = true
			d.Dispatch(tt.frame)
			if tt.frame.Ready() || tt.frame.Repeats {
				t.Errorf("frame not reset: Number=%d Repeats=%v", tt.frame.Number, tt.frame.Repeats)
			}
		})
	}
}

func TestDispatch_OutOfRangeSkipsPlugins(t *testing.T) {
	stats := NewStatistics()
	d := newTestDispatcher(t, &collectSink{}, newFakeClock(), WithObserver(stats))

	out := d.Dispatch(&RawFrame{Number: MaxPulses + 1})
	if out.Result != Unrecognized {
		t.Fatalf("dispatch = %s, want unrecognized", out.Result)
	}
	snap := stats.Snapshot()
	if snap.LengthRejects != 0 {
		t.Errorf("plugins were offered an over-capacity frame")
	}
	if snap.TotalFrames != 1 || snap.Unrecognized != 1 {
		t.Errorf("frames=%d unrecognized=%d, want 1/1", snap.TotalFrames, snap.Unrecognized)
	}
}

// ============================================================
// Sink failures
// ============================================================

func TestDispatch_SinkErrorDoesNotChangeOutcome(t *testing.T) {
	calls := 0
	sink := SinkFunc(func(r *Reading) error {
		calls++
		return errors.New("link down")
	})
	d := newTestDispatcher(t, sink, newFakeClock())

	if out := d.Dispatch(mustParse(t, captureHumidity88)); out.Result != Accepted {
		t.Fatalf("dispatch = %s, want accepted", out.Result)
	}
	if calls != 1 {
		t.Errorf("sink called %d times, want 1", calls)
	}
}

func TestDispatch_NilSink(t *testing.T) {
	d := newTestDispatcher(t, nil, newFakeClock())
	if out := d.Dispatch(mustParse(t, captureHumidity88)); out.Result != Accepted {
		t.Fatalf("dispatch = %s, want accepted", out.Result)
	}
}

func TestDispatch_WithoutDedup(t *testing.T) {
	sink := &collectSink{}
	clock := newFakeClock()
	// the window option does not bring suppression back
	d := newTestDispatcher(t, sink, clock, WithoutDedup(), WithRepeatWindow(time.Minute))
	capture := mustParse(t, captureTemp168)

	for i := 0; i < 3; i++ {
		clock.Advance(50 * time.Millisecond)
		if out := d.Dispatch(cloneFrame(capture)); out.Result != Accepted {
			t.Fatalf("dispatch %d = %s, want accepted", i, out.Result)
		}
	}
	if len(sink.readings) != 3 {
		t.Errorf("published %d readings, want 3", len(sink.readings))
	}
}
