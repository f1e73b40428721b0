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

// CycleFunc is the per-cycle processing entry point. The driver invokes
// it once per fixed-size cycle with one input and one output block, one
// slice per channel, all of the configured frames-per-buffer length.
// The function must fill the output block in place and return within the
// cycle deadline; returning false tells the driver the stream may be
// torn down.
type CycleFunc func(in, out [][]float32) bool

// Backend abstracts the audio host so the driver loop can run against
// real hardware or a scripted mock in tests.
type Backend interface {
	// Initialize the audio subsystem.
	Initialize() error

	// Terminate the audio subsystem.
	Terminate() error

	// OpenDuplexStream opens a stream that captures and plays back
	// simultaneously, invoking cycle once per framesPerBuffer frames.
	OpenDuplexStream(sampleRate float64, channels, framesPerBuffer int, cycle CycleFunc) (Stream, error)
}

// Stream is a running duplex audio stream.
type Stream interface {
	// Start begins invoking the cycle function.
	Start() error

	// Stop halts cycle invocations.
	Stop() error

	// Close releases stream resources.
	Close() error

	// Done is closed after the cycle function returns false. Streams
	// cannot stop themselves from inside their own callback, so the
	// owner waits here and then calls Stop and Close.
	Done() <-chan struct{}
}
