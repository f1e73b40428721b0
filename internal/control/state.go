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

package control

import (
	"math"
	"sync/atomic"
)

// State is the shared control-plane state read by kernels on the
// real-time audio thread. It holds a note gate and a fixed set of named
// float parameters, all backed by word-sized atomics: the control
// thread writes, the audio thread reads, nobody locks.
//
// Parameter slots are registered at construction and never added
// afterwards, so the slot map itself is read-only once audio starts.
type State struct {
	gate   atomic.Bool
	params map[string]*atomic.Uint64
}

// NewState creates a State with a slot per named parameter, each
// initialised to the given default value. The gate starts closed.
func NewState(defaults map[string]float64) *State {
	s := &State{params: make(map[string]*atomic.Uint64, len(defaults))}
	for name, value := range defaults {
		slot := &atomic.Uint64{}
		slot.Store(math.Float64bits(value))
		s.params[name] = slot
	}
	return s
}

// SetGate opens or closes the note gate. Control thread only.
func (s *State) SetGate(on bool) {
	s.gate.Store(on)
}

// Gate reports whether the note gate is open. Safe on the audio thread.
func (s *State) Gate() bool {
	return s.gate.Load()
}

// SetParam stores a new value for a registered parameter and reports
// whether the name was known. Unknown names are ignored so a stray
// control message cannot grow state under the audio thread.
func (s *State) SetParam(name string, value float64) bool {
	slot, ok := s.params[name]
	if !ok {
		return false
	}
	slot.Store(math.Float64bits(value))
	return true
}

// Param returns the current value of a registered parameter, or the
// given fallback if the name was never registered. Safe on the audio
// thread: one atomic load, no allocation.
func (s *State) Param(name string, fallback float64) float64 {
	slot, ok := s.params[name]
	if !ok {
		return fallback
	}
	return math.Float64frombits(slot.Load())
}
