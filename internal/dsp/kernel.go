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

// Kernel is a fixed-block audio transform. Process is handed exactly
// BlockSize frames per channel in and must produce exactly BlockSize
// frames per channel out. It runs on the real-time thread: no locks, no
// blocking, no allocation.
//
// A Process error makes the adapter substitute silence for that block;
// it never propagates to the host.
type Kernel interface {
	BlockSize() int
	Process(in, out [][]float32) error
}
