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

package wavfile

import (
	"fmt"
	"io"

	"github.com/wavebridge/wavebridge-go/internal/dsp"
)

// Pump renders src through the adapter into sink, hostBlock frames per
// cycle, exactly as the real-time driver would. The output has the same
// frame count as the input: the stream inside it is delayed by the
// adapter's warm-up latency and the corresponding tail is cut off, the
// same trade a live listener experiences.
//
// Returns the number of frames written.
func Pump(src *Source, sink *Sink, adapter *dsp.Adapter, hostBlock int) (int64, error) {
	if hostBlock <= 0 {
		return 0, fmt.Errorf("wavfile: host block size must be positive, got %d", hostBlock)
	}
	if src.Channels() != adapter.Channels() {
		return 0, fmt.Errorf("wavfile: source has %d channels, adapter expects %d", src.Channels(), adapter.Channels())
	}

	channels := adapter.Channels()
	in := make([][]float32, channels)
	out := make([][]float32, channels)
	for ch := 0; ch < channels; ch++ {
		in[ch] = make([]float32, hostBlock)
		out[ch] = make([]float32, hostBlock)
	}

	var written int64
	for {
		n, err := src.ReadBlock(in)
		if err == io.EOF {
			break
		}
		if err != nil {
			return written, err
		}

		// The final block may be short; the cycle still runs on a full
		// host block, zero-padded, and only the real frames are kept.
		for ch := 0; ch < channels; ch++ {
			for i := n; i < hostBlock; i++ {
				in[ch][i] = 0
			}
		}

		adapter.Process(in, out)
		if err := sink.WriteBlock(out, n); err != nil {
			return written, err
		}
		written += int64(n)
	}
	return written, nil
}
