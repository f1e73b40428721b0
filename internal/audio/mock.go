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

package audio

import (
	"fmt"
	"sync"
)

// MockBackend implements Backend for hardware-independent tests. Cycles
// are stepped manually through MockStream.RunCycle instead of being
// driven by a hardware clock.
type MockBackend struct {
	mu          sync.Mutex
	initialized bool
	initError   error
	openError   error
	streams     []*MockStream
}

// NewMockBackend creates a new mock backend.
func NewMockBackend() *MockBackend {
	return &MockBackend{}
}

// SetInitError makes Initialize fail with err.
func (m *MockBackend) SetInitError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.initError = err
}

// SetOpenError makes OpenDuplexStream fail with err.
func (m *MockBackend) SetOpenError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.openError = err
}

// Streams returns every stream opened so far.
func (m *MockBackend) Streams() []*MockStream {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*MockStream(nil), m.streams...)
}

// Initialize initializes the mock subsystem.
func (m *MockBackend) Initialize() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.initError != nil {
		return m.initError
	}
	m.initialized = true
	return nil
}

// Terminate terminates the mock subsystem.
func (m *MockBackend) Terminate() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.initialized = false
	return nil
}

// OpenDuplexStream opens a scripted stream.
func (m *MockBackend) OpenDuplexStream(sampleRate float64, channels, framesPerBuffer int, cycle CycleFunc) (Stream, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.initialized {
		return nil, fmt.Errorf("mock backend not initialized")
	}
	if m.openError != nil {
		return nil, m.openError
	}
	if cycle == nil {
		return nil, fmt.Errorf("cycle function must not be nil")
	}

	s := &MockStream{
		channels:        channels,
		framesPerBuffer: framesPerBuffer,
		cycle:           cycle,
		done:            make(chan struct{}),
	}
	m.streams = append(m.streams, s)
	return s, nil
}

// MockStream is a Stream whose cycles are driven by the test via
// RunCycle. Input blocks come from a script queue (silence once the
// script runs out) and every produced output block is recorded.
type MockStream struct {
	mu              sync.Mutex
	channels        int
	framesPerBuffer int
	cycle           CycleFunc

	started bool
	closed  bool

	script  [][][]float32 // queued input blocks
	outputs [][][]float32 // recorded output blocks

	doneOnce sync.Once
	done     chan struct{}
}

// QueueInput appends one input block to the script. The block is copied.
func (s *MockStream) QueueInput(block [][]float32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.script = append(s.script, copyBlock(block))
}

// Outputs returns copies of every output block produced so far.
func (s *MockStream) Outputs() [][][]float32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][][]float32, len(s.outputs))
	for i, b := range s.outputs {
		out[i] = copyBlock(b)
	}
	return out
}

// RunCycle invokes the cycle function once, feeding the next scripted
// input block (or silence) and recording the output. Returns the cycle
// function's continue flag.
func (s *MockStream) RunCycle() (bool, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false, fmt.Errorf("stream is closed")
	}
	if !s.started {
		s.mu.Unlock()
		return false, fmt.Errorf("stream not started")
	}

	var in [][]float32
	if len(s.script) > 0 {
		in = s.script[0]
		s.script = s.script[1:]
	} else {
		in = emptyBlock(s.channels, s.framesPerBuffer)
	}
	out := emptyBlock(s.channels, s.framesPerBuffer)
	s.mu.Unlock()

	cont := s.cycle(in, out)

	s.mu.Lock()
	s.outputs = append(s.outputs, out)
	s.mu.Unlock()

	if !cont {
		s.doneOnce.Do(func() { close(s.done) })
	}
	return cont, nil
}

// Start marks the stream runnable.
func (s *MockStream) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("stream is closed")
	}
	s.started = true
	return nil
}

// Stop halts cycle stepping.
func (s *MockStream) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.started = false
	return nil
}

// Close releases the stream.
func (s *MockStream) Close() error {
	s.mu.Lock()
	s.closed = true
	s.started = false
	s.mu.Unlock()
	s.doneOnce.Do(func() { close(s.done) })
	return nil
}

// Done reports when the cycle function asked for teardown.
func (s *MockStream) Done() <-chan struct{} {
	return s.done
}

func copyBlock(block [][]float32) [][]float32 {
	out := make([][]float32, len(block))
	for ch := range block {
		out[ch] = append([]float32(nil), block[ch]...)
	}
	return out
}

func emptyBlock(channels, frames int) [][]float32 {
	block := make([][]float32, channels)
	for ch := range block {
		block[ch] = make([]float32, frames)
	}
	return block
}
