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

import "fmt"

// Passthrough copies input to output unchanged. Useful as a baseline
// for latency measurements and wiring tests.
type Passthrough struct {
	blockSize int
}

// NewPassthrough creates a passthrough kernel with the given block size.
func NewPassthrough(blockSize int) (*Passthrough, error) {
	if blockSize <= 0 {
		return nil, fmt.Errorf("passthrough kernel: block size must be positive, got %d", blockSize)
	}
	return &Passthrough{blockSize: blockSize}, nil
}

// BlockSize returns the fixed frame count per invocation.
func (p *Passthrough) BlockSize() int { return p.blockSize }

// Process copies the block. Runs on the real-time thread.
func (p *Passthrough) Process(in, out [][]float32) error {
	for ch := range in {
		copy(out[ch], in[ch])
	}
	return nil
}
