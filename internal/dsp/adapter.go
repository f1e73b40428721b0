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
	"fmt"
	"sync/atomic"
)

// Adapter bridges a host that delivers and expects fixed-size blocks of
// H frames per cycle to a Kernel that consumes and produces fixed blocks
// of K frames, where H and K need not match. Incoming host blocks
// accumulate in an input-side FrameBuffer; whenever a full kernel block
// is available it is drained through the kernel and the result is
// buffered on the output side, from which every cycle pulls a full host
// block back out.
//
// Until the first kernel block has been processed the output side runs
// dry and the pull contract fills the host block with silence, so the
// stream starts with up to K frames of warm-up latency. That is inherent
// to block-size bridging, not a fault.
//
// Process is the only method that may run on the real-time thread. Stop
// may be called from any goroutine.
type Adapter struct {
	kernel   Kernel
	channels int

	in  *FrameBuffer
	out *FrameBuffer

	// Staging blocks handed to the kernel, allocated once.
	kin  [][]float32
	kout [][]float32

	stats   *Stats
	running atomic.Bool
}

// NewAdapter creates an adapter for the given kernel and channel count.
// bufferFrames sizes each side of the elastic buffer; it must cover at
// least one kernel block plus one host block or steady state will drop
// frames. A value <= 0 selects four kernel blocks, which is generous for
// any host size up to 3*K.
func NewAdapter(kernel Kernel, channels, bufferFrames int) (*Adapter, error) {
	if kernel == nil {
		return nil, fmt.Errorf("adapter: kernel must not be nil")
	}
	k := kernel.BlockSize()
	if k <= 0 {
		return nil, fmt.Errorf("adapter: kernel block size must be positive, got %d", k)
	}
	if bufferFrames <= 0 {
		bufferFrames = 4 * k
	}
	if bufferFrames < k {
		return nil, fmt.Errorf("adapter: buffer of %d frames cannot hold a %d frame kernel block", bufferFrames, k)
	}

	in, err := NewFrameBuffer(channels, bufferFrames)
	if err != nil {
		return nil, fmt.Errorf("adapter: input buffer: %w", err)
	}
	out, err := NewFrameBuffer(channels, bufferFrames)
	if err != nil {
		return nil, fmt.Errorf("adapter: output buffer: %w", err)
	}

	kin := make([][]float32, channels)
	kout := make([][]float32, channels)
	for ch := 0; ch < channels; ch++ {
		kin[ch] = make([]float32, k)
		kout[ch] = make([]float32, k)
	}

	a := &Adapter{
		kernel:   kernel,
		channels: channels,
		in:       in,
		out:      out,
		kin:      kin,
		kout:     kout,
		stats:    &Stats{},
	}
	a.running.Store(true)
	return a, nil
}

// Process runs one host cycle: push the delivered input block, drain as
// many full kernel blocks as have accumulated, and fill the output block
// from the processed stream. in and out carry one slice per channel, all
// of equal length (the host cycle size). The output block is always
// fully written; any shortfall of processed frames comes out as silence.
//
// Returns false once Stop has been requested, telling the driver it may
// tear the stream down. Never blocks, never allocates, never panics past
// the real-time boundary.
func (a *Adapter) Process(in, out [][]float32) bool {
	k := a.kernel.BlockSize()

	hostIn := 0
	if len(in) > 0 {
		hostIn = len(in[0])
	}
	if hostIn > 0 {
		pushed := a.in.Push(in, hostIn)
		if pushed < hostIn {
			a.stats.overflowFrames.Add(uint64(hostIn - pushed))
		}
	}

	// A while-loop, not an if: after a stall the buffer may hold more
	// than one kernel block and must catch up within a single cycle.
	for a.in.FramesAvailable() >= k {
		a.in.Pull(a.kin, k)
		if err := a.kernel.Process(a.kin, a.kout); err != nil {
			for ch := range a.kout {
				for i := range a.kout[ch] {
					a.kout[ch][i] = 0
				}
			}
			a.stats.kernelErrors.Add(1)
		}
		a.stats.kernelRuns.Add(1)

		pushed := a.out.Push(a.kout, k)
		if pushed < k {
			a.stats.overflowFrames.Add(uint64(k - pushed))
		}
	}

	hostOut := 0
	if len(out) > 0 {
		hostOut = len(out[0])
	}
	if hostOut > 0 {
		got := a.out.Pull(out, hostOut)
		if got < hostOut {
			a.stats.underrunFrames.Add(uint64(hostOut - got))
		}
	}

	a.stats.cycles.Add(1)
	return a.running.Load()
}

// Stop requests that the next Process call report false to the driver.
// Safe to call from any goroutine; takes effect on the next cycle.
func (a *Adapter) Stop() {
	a.running.Store(false)
}

// Stats exposes the adapter's fault counters for off-thread monitoring.
func (a *Adapter) Stats() *Stats {
	return a.stats
}

// Channels returns the fixed channel count the adapter was built for.
func (a *Adapter) Channels() int {
	return a.channels
}
