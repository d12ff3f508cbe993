// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package rflink

import (
	"strings"
	"testing"
	"time"
)

func TestStatistics_CountsDispatchOutcomes(t *testing.T) {
	stats := NewStatistics()
	clock := newFakeClock()
	d := newTestDispatcher(t, &collectSink{}, clock, WithObserver(stats))
	capture := mustParse(t, captureTemp168)

	d.Dispatch(cloneFrame(capture))
	clock.Advance(50 * time.Millisecond)
	d.Dispatch(cloneFrame(capture))
	d.Dispatch(&RawFrame{Number: 30})

	snap := stats.Snapshot()
	if snap.TotalFrames != 3 {
		t.Errorf("TotalFrames = %d, want 3", snap.TotalFrames)
	}
	if snap.Accepted != 1 || snap.Duplicates != 1 || snap.Unrecognized != 1 {
		t.Errorf("accepted/duplicates/unrecognized = %d/%d/%d, want 1/1/1",
			snap.Accepted, snap.Duplicates, snap.Unrecognized)
	}
	if snap.LengthRejects != 1 {
		t.Errorf("LengthRejects = %d, want 1", snap.LengthRejects)
	}
	if snap.PerProtocol[LaCrosseID] != 2 {
		t.Errorf("PerProtocol[LaCrosse] = %d, want 2", snap.PerProtocol[LaCrosseID])
	}
}

func TestStatistics_SnapshotIsCopy(t *testing.T) {
	stats := NewStatistics()
	p := DefaultRegistry().Plugins()[0]
	stats.ObserveFrame(Outcome{Plugin: p, Result: Accepted}, 0)

	snap := stats.Snapshot()
	snap.PerProtocol[p.ID()] = 99
	if stats.Snapshot().PerProtocol[p.ID()] != 1 {
		t.Error("snapshot shares the per-protocol map")
	}
}

func TestStatistics_Reset(t *testing.T) {
	stats := NewStatistics()
	stats.ObserveAttempt(nil, RejectTiming)
	stats.ObserveFrame(Outcome{Result: Unrecognized}, 0)
	stats.Reset()

	snap := stats.Snapshot()
	if snap.TotalFrames != 0 || snap.TimingRejects != 0 || len(snap.PerProtocol) != 0 {
		t.Errorf("counters not reset: %+v", snap)
	}
}

func TestStatistics_String(t *testing.T) {
	stats := NewStatistics()
	stats.ObserveAttempt(nil, RejectMalformed)
	stats.ObserveFrame(Outcome{Result: Unrecognized}, 0)

	out := stats.String()
	for _, want := range []string{"Total Frames:", "Unrecognized:", "Malformed:", "Frame Rate:"} {
		if !strings.Contains(out, want) {
			t.Errorf("String() missing %q:\n%s", want, out)
		}
	}
}
