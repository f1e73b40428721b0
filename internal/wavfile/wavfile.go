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

// Package wavfile adapts WAV files to the bridge's block-based audio
// path so the same adapter and kernels can run offline, without an
// audio device.
package wavfile

import (
	"fmt"
	"io"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// Source reads a PCM WAV stream as non-interleaved float32 blocks.
type Source struct {
	dec      *wav.Decoder
	channels int
	scale    float32
	buf      *goaudio.IntBuffer
}

// OpenSource wraps a WAV stream. Only integer PCM is supported.
func OpenSource(r io.ReadSeeker) (*Source, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("wavfile: not a valid WAV file")
	}
	if dec.BitDepth == 0 || dec.BitDepth > 32 {
		return nil, fmt.Errorf("wavfile: unsupported bit depth %d", dec.BitDepth)
	}
	return &Source{
		dec:      dec,
		channels: int(dec.NumChans),
		scale:    float32(uint64(1) << (dec.BitDepth - 1)),
	}, nil
}

// SampleRate returns the stream's sample rate in Hz.
func (s *Source) SampleRate() int { return int(s.dec.SampleRate) }

// Channels returns the stream's channel count.
func (s *Source) Channels() int { return s.channels }

// ReadBlock fills dst (one slice per channel) with up to len(dst[0])
// frames, deinterleaving and converting to [-1, 1) float32. Returns the
// number of frames read; 0 with io.EOF once the stream is exhausted.
func (s *Source) ReadBlock(dst [][]float32) (int, error) {
	frames := len(dst[0])
	want := frames * s.channels
	if s.buf == nil || len(s.buf.Data) != want {
		s.buf = &goaudio.IntBuffer{
			Format: &goaudio.Format{NumChannels: s.channels, SampleRate: int(s.dec.SampleRate)},
			Data:   make([]int, want),
		}
	}

	n, err := s.dec.PCMBuffer(s.buf)
	if err != nil {
		return 0, fmt.Errorf("wavfile: read: %w", err)
	}
	if n == 0 {
		return 0, io.EOF
	}

	got := n / s.channels
	for i := 0; i < got; i++ {
		for ch := 0; ch < s.channels; ch++ {
			dst[ch][i] = float32(s.buf.Data[i*s.channels+ch]) / s.scale
		}
	}
	return got, nil
}

// Sink writes non-interleaved float32 blocks as a 16-bit PCM WAV.
type Sink struct {
	enc      *wav.Encoder
	channels int
	buf      *goaudio.IntBuffer
}

// NewSink creates a 16-bit PCM WAV writer. Close must be called to
// finalise the headers.
func NewSink(w io.WriteSeeker, sampleRate, channels int) (*Sink, error) {
	if sampleRate <= 0 || channels <= 0 {
		return nil, fmt.Errorf("wavfile: invalid format %d Hz, %d channels", sampleRate, channels)
	}
	return &Sink{
		enc:      wav.NewEncoder(w, sampleRate, 16, channels, 1),
		channels: channels,
	}, nil
}

// WriteBlock interleaves and writes the first frames frames of block,
// clipping samples outside [-1, 1).
func (s *Sink) WriteBlock(block [][]float32, frames int) error {
	if frames <= 0 {
		return nil
	}
	want := frames * s.channels
	if s.buf == nil || len(s.buf.Data) != want {
		s.buf = &goaudio.IntBuffer{
			Format:         &goaudio.Format{NumChannels: s.channels, SampleRate: s.enc.SampleRate},
			Data:           make([]int, want),
			SourceBitDepth: 16,
		}
	}
	for i := 0; i < frames; i++ {
		for ch := 0; ch < s.channels; ch++ {
			v := block[ch][i]
			if v > 1 {
				v = 1
			} else if v < -1 {
				v = -1
			}
			n := int(v * 32767)
			s.buf.Data[i*s.channels+ch] = n
		}
	}
	if err := s.enc.Write(s.buf); err != nil {
		return fmt.Errorf("wavfile: write: %w", err)
	}
	return nil
}

// Close finalises the WAV headers.
func (s *Sink) Close() error {
	if err := s.enc.Close(); err != nil {
		return fmt.Errorf("wavfile: close: %w", err)
	}
	return nil
}
