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

import "sync/atomic"

// Stats counts faults and progress on the real-time audio path. The
// audio thread only ever increments word-sized atomic counters here, so
// recording a fault never blocks or allocates; any other goroutine may
// read a consistent-enough view via Snapshot.
type Stats struct {
	cycles          atomic.Uint64
	kernelRuns      atomic.Uint64
	kernelErrors    atomic.Uint64
	overflowFrames  atomic.Uint64
	underrunFrames  atomic.Uint64
}

// StatsSnapshot is a point-in-time copy of all counters.
type StatsSnapshot struct {
	Cycles         uint64
	KernelRuns     uint64
	KernelErrors   uint64
	OverflowFrames uint64
	UnderrunFrames uint64
}

// Snapshot returns the current counter values. Counters are read
// individually; the snapshot is not atomic across fields, which is fine
// for monitoring.
func (s *Stats) Snapshot() StatsSnapshot {
	return StatsSnapshot{
		Cycles:         s.cycles.Load(),
		KernelRuns:     s.kernelRuns.Load(),
		KernelErrors:   s.kernelErrors.Load(),
		OverflowFrames: s.overflowFrames.Load(),
		UnderrunFrames: s.underrunFrames.Load(),
	}
}
