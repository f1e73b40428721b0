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

package kernel

import (
	"fmt"
	"math"

	"github.com/wavebridge/wavebridge-go/internal/control"
)

// Tone passes the input through and mixes in a sine oscillator while
// the control-plane note gate is open. Frequency ("freq", Hz) and mix
// level ("level", linear) come from the shared control state, read once
// per block. Oscillator phase is continuous across blocks so toggling
// the gate never clicks from a phase jump.
type Tone struct {
	blockSize  int
	sampleRate float64
	state      *control.State
	phase      float64
}

// NewTone creates a tone kernel for the given block size and sample
// rate. The sample rate fixes the oscillator's time base.
func NewTone(blockSize int, sampleRate float64, state *control.State) (*Tone, error) {
	if blockSize <= 0 {
		return nil, fmt.Errorf("tone kernel: block size must be positive, got %d", blockSize)
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("tone kernel: sample rate must be positive, got %f", sampleRate)
	}
	if state == nil {
		return nil, fmt.Errorf("tone kernel: control state must not be nil")
	}
	return &Tone{blockSize: blockSize, sampleRate: sampleRate, state: state}, nil
}

// BlockSize returns the fixed frame count per invocation.
func (t *Tone) BlockSize() int { return t.blockSize }

// Process copies the input and overlays the oscillator when the gate is
// open. Runs on the real-time thread.
func (t *Tone) Process(in, out [][]float32) error {
	for ch := range in {
		copy(out[ch], in[ch])
	}

	if !t.state.Gate() {
		return nil
	}

	freq := t.state.Param("freq", 440)
	level := float32(t.state.Param("level", 0.2))
	step := 2 * math.Pi * freq / t.sampleRate

	for i := 0; i < t.blockSize; i++ {
		s := level * float32(math.Sin(t.phase))
		t.phase += step
		if t.phase >= 2*math.Pi {
			t.phase -= 2 * math.Pi
		}
		for ch := range out {
			out[ch][i] += s
		}
	}
	return nil
}
