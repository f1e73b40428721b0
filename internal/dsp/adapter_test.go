/*
 * This file is part of Wavebridge (https://github.com/wavebridge/wavebridge-go).
 * Copyright (C) 2026 Wavebridge Authors
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU Affero General Public License as published by
 * the Free Software Foundation, either version 3 of the License, or
 * (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
 * GNU Affero General Public License for more details.
 *
 * You should have received a copy of the GNU Affero General Public License
 * along with this program. If not, see <https://www.gnu.org/licenses/>.
 */

package dsp

import (
	"errors"
	"testing"
)

// doubleKernel multiplies every sample by two and counts invocations.
// failOn makes the n-th invocation (1-based) return an error.
type doubleKernel struct {
	blockSize int
	calls     int
	failOn    int
}

func (k *doubleKernel) BlockSize() int { return k.blockSize }

func (k *doubleKernel) Process(in, out [][]float32) error {
	k.calls++
	if k.failOn != 0 && k.calls == k.failOn {
		return errors.New("kernel blew up")
	}
	for ch := range in {
		for i, s := range in[ch] {
			out[ch][i] = 2 * s
		}
	}
	return nil
}

func isSilent(block [][]float32) bool {
	for ch := range block {
		for _, s := range block[ch] {
			if s != 0 {
				return false
			}
		}
	}
	return true
}

// runCycle feeds one host block of sequential samples through the
// adapter and returns the produced output block. next tracks the running
// sample value across cycles.
func runCycle(t *testing.T, a *Adapter, channels, hostSize int, next *float32) [][]float32 {
	t.Helper()
	in := makeBlock(channels, hostSize, *next)
	*next += float32(hostSize)
	out := emptyBlock(channels, hostSize)
	if !a.Process(in, out) {
		t.Fatal("Process returned false without Stop")
	}
	return out
}

func TestAdapter_WarmupThenLatencyOffset(t *testing.T) {
	// H=128, K=512: three cycles accumulate only 384 frames, so the
	// output stays silent; the fourth cycle crosses the 512 threshold,
	// runs the kernel exactly once and starts emitting processed audio
	// 384 frames behind the input.
	kernel := &doubleKernel{blockSize: 512}
	a, err := NewAdapter(kernel, 2, 640)
	if err != nil {
		t.Fatalf("NewAdapter: %v", err)
	}

	next := float32(1) // start at 1 so real output is never all-zero
	for cycle := 1; cycle <= 3; cycle++ {
		out := runCycle(t, a, 2, 128, &next)
		if !isSilent(out) {
			t.Fatalf("cycle %d: expected silent warm-up output", cycle)
		}
		if kernel.calls != 0 {
			t.Fatalf("cycle %d: kernel ran %d times during warm-up", cycle, kernel.calls)
		}
	}

	out := runCycle(t, a, 2, 128, &next)
	if kernel.calls != 1 {
		t.Fatalf("cycle 4: kernel ran %d times, want exactly 1", kernel.calls)
	}
	// Cycle 4 output is the processed head of the stream: input samples
	// started at 1, doubled by the kernel, 384 frames behind the input
	// position.
	for ch := 0; ch < 2; ch++ {
		for i := 0; i < 128; i++ {
			want := 2 * (1 + float32(i) + float32(ch)*1000)
			if out[ch][i] != want {
				t.Fatalf("cycle 4 channel %d frame %d = %f, want %f", ch, i, out[ch][i], want)
			}
		}
	}

	snap := a.Stats().Snapshot()
	if snap.KernelRuns != 1 {
		t.Errorf("KernelRuns = %d, want 1", snap.KernelRuns)
	}
	if snap.OverflowFrames != 0 {
		t.Errorf("OverflowFrames = %d, want 0", snap.OverflowFrames)
	}
	// Three whole silent cycles were underrun fill.
	if snap.UnderrunFrames != 3*128 {
		t.Errorf("UnderrunFrames = %d, want %d", snap.UnderrunFrames, 3*128)
	}
}

func TestAdapter_LargeHostBlockDrainsMultipleKernelBlocks(t *testing.T) {
	// H=512, K=128: every cycle must run the kernel exactly four times
	// and the output is real data from the very first cycle on.
	kernel := &doubleKernel{blockSize: 128}
	a, err := NewAdapter(kernel, 1, 1024)
	if err != nil {
		t.Fatalf("NewAdapter: %v", err)
	}

	next := float32(1)
	for cycle := 1; cycle <= 5; cycle++ {
		out := runCycle(t, a, 1, 512, &next)
		if want := cycle * 4; kernel.calls != want {
			t.Fatalf("cycle %d: kernel calls = %d, want %d", cycle, kernel.calls, want)
		}
		if isSilent(out) {
			t.Fatalf("cycle %d: output unexpectedly silent", cycle)
		}
		for i := 0; i < 512; i++ {
			want := 2 * (1 + float32((cycle-1)*512+i))
			if out[0][i] != want {
				t.Fatalf("cycle %d frame %d = %f, want %f", cycle, i, out[0][i], want)
			}
		}
	}
}

func TestAdapter_MatchedBlockSizes(t *testing.T) {
	// H=K=128: one kernel invocation per cycle and no accumulated
	// latency; each cycle returns its own processed input.
	kernel := &doubleKernel{blockSize: 128}
	a, err := NewAdapter(kernel, 1, 256)
	if err != nil {
		t.Fatalf("NewAdapter: %v", err)
	}

	next := float32(1)
	for cycle := 1; cycle <= 4; cycle++ {
		inStart := next
		out := runCycle(t, a, 1, 128, &next)
		if kernel.calls != cycle {
			t.Fatalf("cycle %d: kernel calls = %d, want %d", cycle, kernel.calls, cycle)
		}
		for i := 0; i < 128; i++ {
			want := 2 * (inStart + float32(i))
			if out[0][i] != want {
				t.Fatalf("cycle %d frame %d = %f, want %f", cycle, i, out[0][i], want)
			}
		}
	}
}

func TestAdapter_KernelErrorYieldsSilentBlock(t *testing.T) {
	kernel := &doubleKernel{blockSize: 128, failOn: 2}
	a, err := NewAdapter(kernel, 1, 256)
	if err != nil {
		t.Fatalf("NewAdapter: %v", err)
	}

	next := float32(1)
	out1 := runCycle(t, a, 1, 128, &next)
	if isSilent(out1) {
		t.Fatal("cycle 1: expected real output")
	}

	out2 := runCycle(t, a, 1, 128, &next)
	if !isSilent(out2) {
		t.Fatal("cycle 2: kernel failure must come out as silence")
	}

	// The stream survives the failure.
	out3 := runCycle(t, a, 1, 128, &next)
	if isSilent(out3) {
		t.Fatal("cycle 3: expected recovery after kernel failure")
	}

	snap := a.Stats().Snapshot()
	if snap.KernelErrors != 1 {
		t.Errorf("KernelErrors = %d, want 1", snap.KernelErrors)
	}
	if snap.KernelRuns != 3 {
		t.Errorf("KernelRuns = %d, want 3", snap.KernelRuns)
	}
}

func TestAdapter_OverflowIsCountedNotFatal(t *testing.T) {
	// Undersized buffer: a 96-frame host block against a 64-frame
	// buffer and a 64-frame kernel cannot keep up without dropping.
	kernel := &doubleKernel{blockSize: 64}
	a, err := NewAdapter(kernel, 1, 64)
	if err != nil {
		t.Fatalf("NewAdapter: %v", err)
	}

	next := float32(1)
	for cycle := 0; cycle < 4; cycle++ {
		in := makeBlock(1, 96, next)
		next += 96
		out := emptyBlock(1, 96)
		if !a.Process(in, out) {
			t.Fatal("Process returned false without Stop")
		}
	}

	snap := a.Stats().Snapshot()
	if snap.OverflowFrames == 0 {
		t.Error("expected overflow frames to be counted")
	}
}

func TestAdapter_StopEndsStream(t *testing.T) {
	kernel := &doubleKernel{blockSize: 128}
	a, err := NewAdapter(kernel, 1, 256)
	if err != nil {
		t.Fatalf("NewAdapter: %v", err)
	}

	in := makeBlock(1, 128, 0)
	out := emptyBlock(1, 128)
	if !a.Process(in, out) {
		t.Fatal("Process returned false before Stop")
	}

	a.Stop()
	if a.Process(in, out) {
		t.Fatal("Process returned true after Stop")
	}
}

func TestNewAdapter_Validation(t *testing.T) {
	tests := []struct {
		name         string
		kernel       Kernel
		channels     int
		bufferFrames int
	}{
		{"nil kernel", nil, 1, 256},
		{"zero block size", &doubleKernel{blockSize: 0}, 1, 256},
		{"buffer smaller than kernel block", &doubleKernel{blockSize: 512}, 1, 256},
		{"zero channels", &doubleKernel{blockSize: 128}, 0, 256},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewAdapter(tt.kernel, tt.channels, tt.bufferFrames); err == nil {
				t.Fatal("expected error, got nil")
			}
		})
	}
}
