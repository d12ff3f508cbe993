// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package rflink

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

// Statistics tracks dispatch outcomes and rates. It implements Observer and
// may be read from another goroutine through Snapshot.
type Statistics struct {
	mu sync.Mutex
	s  StatisticsSnapshot
}

// StatisticsSnapshot is a point-in-time copy of the counters.
type StatisticsSnapshot struct {
	StartTime      time.Time
	LastUpdateTime time.Time

	// Frames
	TotalFrames  uint64
	Accepted     uint64
	Duplicates   uint64
	Unrecognized uint64

	// Rejections by reason, summed over every attempt
	LengthRejects      uint64
	TimingRejects      uint64
	MalformedRejects   uint64
	ImplausibleRejects uint64

	// Accepted frames per protocol id, duplicates included
	PerProtocol map[int]uint64

	// Rates (calculated)
	FrameRate  float64 // frames/sec
	ReportRate float64 // published readings/sec
}

// NewStatistics creates a new statistics tracker
func NewStatistics() *Statistics {
	now := time.Now()
	return &Statistics{s: StatisticsSnapshot{
		StartTime:      now,
		LastUpdateTime: now,
		PerProtocol:    make(map[int]uint64),
	}}
}

// ObserveAttempt implements Observer.
func (st *Statistics) ObserveAttempt(_ *Plugin, r Result) {
	st.mu.Lock()
	defer st.mu.Unlock()

	switch r {
	case RejectLength:
		st.s.LengthRejects++
	case RejectTiming:
		st.s.TimingRejects++
	case RejectMalformed:
		st.s.MalformedRejects++
	case RejectImplausible:
		st.s.ImplausibleRejects++
	}
}

// ObserveFrame implements Observer.
func (st *Statistics) ObserveFrame(o Outcome, _ time.Duration) {
	st.mu.Lock()
	defer st.mu.Unlock()

	st.s.TotalFrames++
	switch o.Result {
	case Accepted:
		st.s.Accepted++
	case Duplicate:
		st.s.Duplicates++
	default:
		st.s.Unrecognized++
	}
	if o.Plugin != nil {
		st.s.PerProtocol[o.Plugin.ID()]++
	}
	st.s.LastUpdateTime = time.Now()
}

// Snapshot returns a copy of the counters with rates calculated.
func (st *Statistics) Snapshot() StatisticsSnapshot {
	st.mu.Lock()
	defer st.mu.Unlock()

	snap := st.s
	snap.PerProtocol = make(map[int]uint64, len(st.s.PerProtocol))
	for id, n := range st.s.PerProtocol {
		snap.PerProtocol[id] = n
	}
	elapsed := time.Since(snap.StartTime).Seconds()
	if elapsed > 0 {
		snap.FrameRate = float64(snap.TotalFrames) / elapsed
		snap.ReportRate = float64(snap.Accepted) / elapsed
	}
	return snap
}

// Reset resets all statistics counters
func (st *Statistics) Reset() {
	st.mu.Lock()
	defer st.mu.Unlock()

	now := time.Now()
	st.s = StatisticsSnapshot{
		StartTime:      now,
		LastUpdateTime: now,
		PerProtocol:    make(map[int]uint64),
	}
}

// String returns a formatted statistics summary
func (st *Statistics) String() string {
	s := st.Snapshot()

	var acceptedPercent, duplicatePercent, unrecognizedPercent float64
	if s.TotalFrames > 0 {
		acceptedPercent = float64(s.Accepted) * 100.0 / float64(s.TotalFrames)
		duplicatePercent = float64(s.Duplicates) * 100.0 / float64(s.TotalFrames)
		unrecognizedPercent = float64(s.Unrecognized) * 100.0 / float64(s.TotalFrames)
	}

	elapsed := time.Since(s.StartTime)

	result := fmt.Sprintf("=== Statistics (%.0f seconds) ===\n", elapsed.Seconds())
	result += fmt.Sprintf("Total Frames:    %8d\n", s.TotalFrames)
	result += fmt.Sprintf("Reported:        %8d (%.1f%%)\n", s.Accepted, acceptedPercent)
	result += fmt.Sprintf("Repeats:         %8d (%.1f%%)\n", s.Duplicates, duplicatePercent)
	result += fmt.Sprintf("Unrecognized:    %8d (%.1f%%)\n", s.Unrecognized, unrecognizedPercent)

	if s.TimingRejects > 0 || s.MalformedRejects > 0 || s.ImplausibleRejects > 0 {
		result += "Rejections:\n"
		result += fmt.Sprintf("  Length:           %5d\n", s.LengthRejects)
		result += fmt.Sprintf("  Timing:           %5d\n", s.TimingRejects)
		result += fmt.Sprintf("  Malformed:        %5d\n", s.MalformedRejects)
		result += fmt.Sprintf("  Implausible:      %5d\n", s.ImplausibleRejects)
	}

	if len(s.PerProtocol) > 0 {
		ids := make([]int, 0, len(s.PerProtocol))
		for id := range s.PerProtocol {
			ids = append(ids, id)
		}
		sort.Ints(ids)
		result += "Per Protocol:\n"
		for _, id := range ids {
			result += fmt.Sprintf("  %3d:             %5d\n", id, s.PerProtocol[id])
		}
	}

	result += fmt.Sprintf("Frame Rate:      %8.1f frames/sec\n", s.FrameRate)
	result += fmt.Sprintf("Report Rate:     %8.1f readings/sec\n", s.ReportRate)
	result += "================================\n"

	return result
}
