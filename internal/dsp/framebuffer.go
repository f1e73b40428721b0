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

import "fmt"

// FrameBuffer is a fixed-capacity circular buffer of multi-channel audio
// frames. It decouples producers and consumers that operate on different
// block sizes: any number of frames can be pushed or pulled per call as
// long as a single call never exceeds the capacity.
//
// The buffer is owned by a single goroutine (the real-time audio thread).
// Push, Pull and FramesAvailable take no locks and perform no allocation;
// they are safe only under that single-owner discipline.
//
// Overflow policy is drop-newest: a Push that does not fit keeps the
// frames already buffered and discards the excess from the incoming
// block. Pull zero-fills any shortfall so a consumer always receives a
// full block of valid samples (silence on underrun, never stale memory).
type FrameBuffer struct {
	data [][]float32 // one ring per channel, len == capacity
	mask int

	readIdx  int
	writeIdx int
	count    int
}

// NewFrameBuffer creates a buffer holding at least minCapacity frames of
// the given channel count. The actual capacity is minCapacity rounded up
// to the next power of two so index wrapping is a single mask operation.
func NewFrameBuffer(channels, minCapacity int) (*FrameBuffer, error) {
	if channels <= 0 {
		return nil, fmt.Errorf("frame buffer: channels must be positive, got %d", channels)
	}
	if minCapacity <= 0 {
		return nil, fmt.Errorf("frame buffer: capacity must be positive, got %d", minCapacity)
	}

	capacity := 1
	for capacity < minCapacity {
		capacity <<= 1
	}

	data := make([][]float32, channels)
	for ch := range data {
		data[ch] = make([]float32, capacity)
	}

	return &FrameBuffer{
		data: data,
		mask: capacity - 1,
	}, nil
}

// Push copies up to frames frames from src (one slice per channel) into
// the buffer and returns the number of frames actually stored. Frames
// beyond the free capacity are dropped (drop-newest). A zero frame count
// is a no-op.
func (b *FrameBuffer) Push(src [][]float32, frames int) int {
	if frames <= 0 {
		return 0
	}
	free := b.Capacity() - b.count
	if frames > free {
		frames = free
	}
	if frames == 0 {
		return 0
	}

	pos := b.writeIdx & b.mask
	first := b.Capacity() - pos
	if first > frames {
		first = frames
	}
	for ch := range b.data {
		copy(b.data[ch][pos:pos+first], src[ch][:first])
		if first < frames {
			copy(b.data[ch][:frames-first], src[ch][first:frames])
		}
	}

	b.writeIdx = (b.writeIdx + frames) & b.mask
	b.count += frames
	return frames
}

// Pull copies frames frames from the buffer into dst (one slice per
// channel), advancing the read position. If fewer frames are buffered
// than requested, the remainder of dst is zero-filled. Returns the
// number of real frames delivered. A zero frame count is a no-op.
func (b *FrameBuffer) Pull(dst [][]float32, frames int) int {
	if frames <= 0 {
		return 0
	}

	n := frames
	if n > b.count {
		n = b.count
	}

	pos := b.readIdx & b.mask
	first := b.Capacity() - pos
	if first > n {
		first = n
	}
	for ch := range b.data {
		copy(dst[ch][:first], b.data[ch][pos:pos+first])
		if first < n {
			copy(dst[ch][first:n], b.data[ch][:n-first])
		}
		for i := n; i < frames; i++ {
			dst[ch][i] = 0
		}
	}

	b.readIdx = (b.readIdx + n) & b.mask
	b.count -= n
	return n
}

// FramesAvailable returns the number of frames currently buffered.
func (b *FrameBuffer) FramesAvailable() int {
	return b.count
}

// Capacity returns the fixed frame capacity of the buffer.
func (b *FrameBuffer) Capacity() int {
	return b.mask + 1
}

// Channels returns the fixed channel count of the buffer.
func (b *FrameBuffer) Channels() int {
	return len(b.data)
}
