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
	"log"
	"time"

	"github.com/wavebridge/wavebridge-go/internal/dsp"
)

// Tap receives a copy-opportunity for every processed output block.
// Offer must never block; it runs on the real-time thread.
type Tap interface {
	Offer(block [][]float32)
}

// Node ties a backend stream to a block-size adapter: it opens a duplex
// stream whose every cycle runs the adapter, logs fault counters off the
// real-time thread, and handles lifecycle.
type Node struct {
	backend    Backend
	adapter    *dsp.Adapter
	sampleRate float64
	hostBlock  int
	tap        Tap

	stream    Stream
	stopStats chan struct{}
}

// NewNode creates a node around an initialized-on-Start backend.
func NewNode(backend Backend, adapter *dsp.Adapter, sampleRate float64, hostBlock int) (*Node, error) {
	if backend == nil {
		return nil, fmt.Errorf("node: backend must not be nil")
	}
	if adapter == nil {
		return nil, fmt.Errorf("node: adapter must not be nil")
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("node: sample rate must be positive, got %f", sampleRate)
	}
	if hostBlock <= 0 {
		return nil, fmt.Errorf("node: host block size must be positive, got %d", hostBlock)
	}
	return &Node{
		backend:    backend,
		adapter:    adapter,
		sampleRate: sampleRate,
		hostBlock:  hostBlock,
		stopStats:  make(chan struct{}),
	}, nil
}

// SetTap attaches a monitor tap for processed output blocks. Must be
// called before Start.
func (n *Node) SetTap(tap Tap) {
	n.tap = tap
}

// Start initializes the backend, opens the duplex stream and begins
// processing cycles.
func (n *Node) Start() error {
	if err := n.backend.Initialize(); err != nil {
		return fmt.Errorf("node: %w", err)
	}

	cycle := n.adapter.Process
	if n.tap != nil {
		cycle = func(in, out [][]float32) bool {
			cont := n.adapter.Process(in, out)
			n.tap.Offer(out)
			return cont
		}
	}

	stream, err := n.backend.OpenDuplexStream(n.sampleRate, n.adapter.Channels(), n.hostBlock, cycle)
	if err != nil {
		terr := n.backend.Terminate()
		if terr != nil {
			log.Printf("⚠️  Failed to terminate backend after open error: %v", terr)
		}
		return fmt.Errorf("node: %w", err)
	}
	n.stream = stream

	if err := n.stream.Start(); err != nil {
		_ = n.stream.Close()
		_ = n.backend.Terminate()
		return fmt.Errorf("node: failed to start stream: %w", err)
	}

	go n.statsLoop()
	log.Printf("🎧 Audio node started: %.0f Hz, %d ch, %d frames/cycle",
		n.sampleRate, n.adapter.Channels(), n.hostBlock)
	return nil
}

// Wait blocks until the adapter has requested teardown (or the stream
// was closed).
func (n *Node) Wait() {
	<-n.stream.Done()
}

// Shutdown stops and closes the stream and terminates the backend.
func (n *Node) Shutdown() {
	close(n.stopStats)
	if n.stream != nil {
		if err := n.stream.Stop(); err != nil {
			log.Printf("⚠️  Failed to stop stream: %v", err)
		}
		if err := n.stream.Close(); err != nil {
			log.Printf("⚠️  Failed to close stream: %v", err)
		}
	}
	if err := n.backend.Terminate(); err != nil {
		log.Printf("⚠️  Failed to terminate backend: %v", err)
	}
	n.logStats()
	log.Println("🎧 Audio node stopped")
}

// statsLoop periodically reports the adapter's fault counters. It reads
// atomics only; the real-time thread is never touched.
func (n *Node) statsLoop() {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			n.logStats()
		case <-n.stopStats:
			return
		}
	}
}

func (n *Node) logStats() {
	snap := n.adapter.Stats().Snapshot()
	log.Printf("📊 cycles=%d kernel_runs=%d kernel_errors=%d overflow_frames=%d underrun_frames=%d",
		snap.Cycles, snap.KernelRuns, snap.KernelErrors, snap.OverflowFrames, snap.UnderrunFrames)
}
