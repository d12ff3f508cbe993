// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package rflink

import (
	"math/rand"
	"os"
	"strconv"
	"testing"
	"time"
)

// getFuzzRounds returns the number of fuzz rounds from FUZZ_ROUNDS env var, default 1000
func getFuzzRounds() int {
	if envRounds := os.Getenv("FUZZ_ROUNDS"); envRounds != "" {
		if rounds, err := strconv.Atoi(envRounds); err == nil && rounds > 0 {
			return rounds
		}
	}
	return 1000
}

// getFuzzSeed returns the seed from FUZZ_SEED env var, or generates one from current time
func getFuzzSeed() int64 {
	if envSeed := os.Getenv("FUZZ_SEED"); envSeed != "" {
		if seed, err := strconv.ParseInt(envSeed, 10, 64); err == nil {
			return seed
		}
	}
	return time.Now().UnixNano()
}

// newFuzzRng creates a new random number generator and logs the seed for reproducibility
func newFuzzRng(t *testing.T) *rand.Rand {
	seed := getFuzzSeed()
	t.Logf("Seed: %d (reproduce with FUZZ_SEED=%d)", seed, seed)
	return rand.New(rand.NewSource(seed))
}

func TestFuzzDispatch_RandomFrames(t *testing.T) {
	rng := newFuzzRng(t)
	rounds := getFuzzRounds()
	sink := &collectSink{}
	d := newTestDispatcher(t, sink, newFakeClock())

	for i := 0; i < rounds; i++ {
		f := &RawFrame{Number: rng.Intn(MaxPulses+20) - 10}
		for j := range f.Pulses {
			f.Pulses[j] = uint16(rng.Intn(0x10000))
		}
		d.Dispatch(f)
		if f.Ready() {
			t.Fatalf("round %d: frame not reset", i)
		}
	}
	if len(sink.readings) != 0 {
		t.Errorf("random frames produced %d readings", len(sink.readings))
	}
}

func TestFuzzDispatch_RandomBitsValidTiming(t *testing.T) {
	rng := newFuzzRng(t)
	rounds := getFuzzRounds()
	clock := newFakeClock()
	sink := &collectSink{}
	d := newTestDispatcher(t, sink, clock)

	for i := 0; i < rounds; i++ {
		var n [13]uint8
		for j := range n {
			n[j] = uint8(rng.Intn(16))
		}
		clock.Advance(time.Second)
		out := d.Dispatch(laCrosseFrame(n, 104))
		if out.Result.Accepted() {
			if n[0] != laCrosseSync || NibbleSum(n[:12]) != n[12] {
				t.Fatalf("round %d: accepted invalid packet %X", i, n)
			}
		}
	}
}

func TestFuzzDispatch_JitteredCaptures(t *testing.T) {
	rng := newFuzzRng(t)
	rounds := getFuzzRounds()
	clock := newFakeClock()
	d := newTestDispatcher(t, &collectSink{}, clock)
	captures := []string{captureHumidity88, captureWindDir13, captureTemp168, captureHumidity67, captureWindDir9}

	for i := 0; i < rounds; i++ {
		f := mustParse(t, captures[rng.Intn(len(captures))])
		// one tick of jitter keeps every capture inside its bands
		for j := 1; j <= f.Number; j++ {
			if f.Pulses[j] == 0 {
				continue
			}
			f.Pulses[j] = uint16(int(f.Pulses[j]) + rng.Intn(3) - 1)
		}
		clock.Advance(time.Second)
		if out := d.Dispatch(f); out.Result != Accepted {
			t.Fatalf("round %d: jittered capture = %s, want accepted", i, out.Result)
		}
	}
}

// jitteredLaCrosseFrame encodes nibbles with every mark and space drawn from
// the durations seen on real sensors.
func jitteredLaCrosseFrame(rng *rand.Rand, nibbles [13]uint8) *RawFrame {
	shortMarks := []int{225, 250}
	longMarks := []int{1325, 1350}
	spaces := []int{1225, 1275, 1300}

	f := laCrosseFrame(nibbles, 104)
	for i := 1; i < f.Number; i += 2 {
		marks := longMarks
		if f.Duration(i) <= laCrosseMarkMid*SampleRate {
			marks = shortMarks
		}
		f.Pulses[i] = uint16(marks[rng.Intn(len(marks))] / SampleRate)
		f.Pulses[i+1] = uint16(spaces[rng.Intn(len(spaces))] / SampleRate)
	}
	return f
}

func TestFuzzDispatch_JitteredRetransmissions(t *testing.T) {
	rng := newFuzzRng(t)
	rounds := getFuzzRounds()
	clock := newFakeClock()
	sink := &collectSink{}
	d := newTestDispatcher(t, sink, clock)

	for i := 0; i < rounds; i++ {
		family := uint8(laCrossePreambleWS2300)
		if rng.Intn(2) == 1 {
			family = laCrossePreambleWS3600
		}
		nibbles := laCrossePacket(family, 0x0, uint8(rng.Intn(256)),
			uint8(rng.Intn(10)), uint8(rng.Intn(10)), uint8(rng.Intn(10)))

		first := jitteredLaCrosseFrame(rng, nibbles)
		want := first.Hash()
		before := len(sink.readings)

		clock.Advance(time.Second)
		if out := d.Dispatch(first); out.Result != Accepted {
			t.Fatalf("round %d: first transmission = %s, want accepted", i, out.Result)
		}
		for repeat := 0; repeat < 2; repeat++ {
			f := jitteredLaCrosseFrame(rng, nibbles)
			if got := f.Hash(); got != want {
				t.Fatalf("round %d: retransmission hash %08x, want %08x", i, got, want)
			}
			clock.Advance(60 * time.Millisecond)
			if out := d.Dispatch(f); out.Result != Duplicate {
				t.Fatalf("round %d: retransmission = %s, want duplicate", i, out.Result)
			}
		}
		if n := len(sink.readings) - before; n != 1 {
			t.Fatalf("round %d: packet %X reported %d times", i, nibbles, n)
		}
	}
}
