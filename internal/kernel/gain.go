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

// Package kernel provides fixed-block audio transforms that plug into
// the block-size adapter. Every kernel consumes and produces exactly
// BlockSize frames per channel per invocation and is allocation-free in
// Process.
package kernel

import (
	"fmt"

	"github.com/wavebridge/wavebridge-go/internal/control"
)

// Gain scales every sample by the "gain" control parameter. The
// parameter is read once per block from the shared control state.
type Gain struct {
	blockSize int
	state     *control.State
}

// NewGain creates a gain kernel with the given fixed block size.
func NewGain(blockSize int, state *control.State) (*Gain, error) {
	if blockSize <= 0 {
		return nil, fmt.Errorf("gain kernel: block size must be positive, got %d", blockSize)
	}
	if state == nil {
		return nil, fmt.Errorf("gain kernel: control state must not be nil")
	}
	return &Gain{blockSize: blockSize, state: state}, nil
}

// BlockSize returns the fixed frame count per invocation.
func (g *Gain) BlockSize() int { return g.blockSize }

// Process scales the block. Runs on the real-time thread.
func (g *Gain) Process(in, out [][]float32) error {
	gain := float32(g.state.Param("gain", 1))
	for ch := range in {
		for i, s := range in[ch] {
			out[ch][i] = gain * s
		}
	}
	return nil
}
