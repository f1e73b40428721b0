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

	"github.com/gordonklaus/portaudio"
)

// PortAudioBackend implements Backend on the default PortAudio devices.
type PortAudioBackend struct {
	initialized bool
}

// NewPortAudioBackend creates a new PortAudio backend.
func NewPortAudioBackend() *PortAudioBackend {
	return &PortAudioBackend{}
}

// Initialize initializes the PortAudio subsystem.
func (p *PortAudioBackend) Initialize() error {
	if p.initialized {
		return nil
	}
	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize PortAudio: %w", err)
	}
	p.initialized = true
	return nil
}

// Terminate terminates the PortAudio subsystem.
func (p *PortAudioBackend) Terminate() error {
	if !p.initialized {
		return nil
	}
	err := portaudio.Terminate()
	p.initialized = false
	return err
}

// OpenDuplexStream opens a duplex stream on the default input and
// output devices. PortAudio delivers non-interleaved per-channel
// buffers, which is exactly the cycle contract, so the callback passes
// them straight through.
func (p *PortAudioBackend) OpenDuplexStream(sampleRate float64, channels, framesPerBuffer int, cycle CycleFunc) (Stream, error) {
	if !p.initialized {
		return nil, fmt.Errorf("PortAudio not initialized")
	}
	if cycle == nil {
		return nil, fmt.Errorf("cycle function must not be nil")
	}

	pas := &PortAudioStream{done: make(chan struct{})}

	stream, err := portaudio.OpenDefaultStream(
		channels, // input channels
		channels, // output channels
		sampleRate,
		framesPerBuffer,
		func(in, out [][]float32) {
			if !cycle(in, out) {
				pas.signalDone()
			}
		},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to open duplex stream: %w", err)
	}

	pas.stream = stream
	return pas, nil
}

// PortAudioStream implements Stream over a *portaudio.Stream.
type PortAudioStream struct {
	stream *portaudio.Stream

	doneOnce sync.Once
	done     chan struct{}
}

func (p *PortAudioStream) signalDone() {
	p.doneOnce.Do(func() { close(p.done) })
}

// Start starts the audio stream.
func (p *PortAudioStream) Start() error {
	if p.stream == nil {
		return fmt.Errorf("stream is nil")
	}
	return p.stream.Start()
}

// Stop stops the audio stream.
func (p *PortAudioStream) Stop() error {
	if p.stream == nil {
		return fmt.Errorf("stream is nil")
	}
	return p.stream.Stop()
}

// Close closes the audio stream.
func (p *PortAudioStream) Close() error {
	if p.stream == nil {
		return fmt.Errorf("stream is nil")
	}
	p.signalDone()
	return p.stream.Close()
}

// Done reports when the cycle function has asked for teardown.
func (p *PortAudioStream) Done() <-chan struct{} {
	return p.done
}
