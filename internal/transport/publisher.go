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

package transport

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"sync/atomic"
	"time"

	"github.com/nats-io/nats.go"
)

// NATSPublisher is the slice of *nats.Conn the monitor publisher needs,
// kept as an interface for dependency injection in tests.
type NATSPublisher interface {
	Publish(subject string, data []byte) error
	Close()
}

// natsPubAdapter adapts *nats.Conn to NATSPublisher.
type natsPubAdapter struct {
	conn *nats.Conn
}

func (a *natsPubAdapter) Publish(subject string, data []byte) error {
	return a.conn.Publish(subject, data)
}

func (a *natsPubAdapter) Close() {
	a.conn.Close()
}

// Dial connects to NATS and returns a publisher-side connection.
func Dial(natsURL string) (NATSPublisher, error) {
	nc, err := nats.Connect(natsURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return &natsPubAdapter{conn: nc}, nil
}

// Handshake describes the PCM stream that follows on a monitor subject.
type Handshake struct {
	SampleRate float64 `json:"sample_rate"`
	Channels   int     `json:"channels"`
	BlockSize  int     `json:"block_size"`
}

// Publisher is a best-effort monitor tap: every processed output block
// offered to it is encoded as float32 little-endian interleaved PCM and
// published as a sequenced binary frame on monitor.audio.<nodeID>.
//
// Offer runs on the real-time thread, so it only copies into a buffer
// taken from a fixed free list and hands it to a bounded channel; when
// either runs dry the block is dropped and counted. Serialization and
// NATS I/O happen on the publisher's own goroutine.
type Publisher struct {
	conn    NATSPublisher
	subject string
	session uint32

	channels  int
	blockSize int

	pool    chan []byte
	pending chan []byte
	quit    chan struct{}
	done    chan struct{}

	seq     atomic.Uint32
	dropped atomic.Uint64
}

// NewPublisher creates a monitor publisher for blocks of the given
// shape. queueDepth bounds both the free list and the hand-off channel.
func NewPublisher(conn NATSPublisher, nodeID string, sessionID uint32, channels, blockSize, queueDepth int) (*Publisher, error) {
	if conn == nil {
		return nil, fmt.Errorf("publisher: connection must not be nil")
	}
	if channels <= 0 || blockSize <= 0 {
		return nil, fmt.Errorf("publisher: invalid block shape %d ch x %d frames", channels, blockSize)
	}
	if queueDepth <= 0 {
		queueDepth = 8
	}
	payload := channels * blockSize * 4
	if payload > MaxDataSize {
		return nil, fmt.Errorf("publisher: block of %d bytes exceeds frame payload limit %d", payload, MaxDataSize)
	}

	p := &Publisher{
		conn:      conn,
		subject:   fmt.Sprintf("monitor.audio.%s", nodeID),
		session:   sessionID,
		channels:  channels,
		blockSize: blockSize,
		pool:      make(chan []byte, queueDepth),
		pending:   make(chan []byte, queueDepth),
		quit:      make(chan struct{}),
		done:      make(chan struct{}),
	}
	for i := 0; i < queueDepth; i++ {
		p.pool <- make([]byte, payload)
	}
	return p, nil
}

// Start announces the stream with a handshake frame and begins draining
// offered blocks.
func (p *Publisher) Start(sampleRate float64) error {
	hs, err := json.Marshal(Handshake{
		SampleRate: sampleRate,
		Channels:   p.channels,
		BlockSize:  p.blockSize,
	})
	if err != nil {
		return fmt.Errorf("publisher: marshal handshake: %w", err)
	}
	if err := p.publishFrame(FrameTypeHandshake, hs); err != nil {
		return fmt.Errorf("publisher: handshake: %w", err)
	}

	go p.drain()
	log.Printf("📡 Monitor publisher started on %s", p.subject)
	return nil
}

// Offer copies one output block for publication if a buffer and queue
// slot are free, otherwise drops it. Real-time safe: two channel ops
// and a memcpy, no allocation, no blocking.
func (p *Publisher) Offer(block [][]float32) {
	var buf []byte
	select {
	case buf = <-p.pool:
	default:
		p.dropped.Add(1)
		return
	}

	frames := p.blockSize
	if len(block) > 0 && len(block[0]) < frames {
		frames = len(block[0])
	}
	idx := 0
	for i := 0; i < frames; i++ {
		for ch := 0; ch < p.channels; ch++ {
			binary.LittleEndian.PutUint32(buf[idx:], math.Float32bits(block[ch][i]))
			idx += 4
		}
	}
	for ; idx < len(buf); idx += 4 {
		binary.LittleEndian.PutUint32(buf[idx:], 0)
	}

	select {
	case p.pending <- buf:
	default:
		p.pool <- buf
		p.dropped.Add(1)
	}
}

// Dropped returns the number of blocks discarded because the publisher
// could not keep up.
func (p *Publisher) Dropped() uint64 {
	return p.dropped.Load()
}

// Close publishes an end-of-stream frame and shuts the drain goroutine
// down. The NATS connection itself is left to its owner.
func (p *Publisher) Close() {
	close(p.quit)
	<-p.done
	if err := p.publishFrame(FrameTypeAudioEnd, nil); err != nil {
		log.Printf("⚠️  Failed to publish end-of-stream frame: %v", err)
	}
	if p.dropped.Load() > 0 {
		log.Printf("⚠️  Monitor publisher dropped %d blocks", p.dropped.Load())
	}
}

func (p *Publisher) drain() {
	defer close(p.done)
	for {
		select {
		case buf := <-p.pending:
			if err := p.publishFrame(FrameTypeAudioData, buf); err != nil {
				log.Printf("⚠️  Failed to publish audio frame: %v", err)
			}
			p.pool <- buf
		case <-p.quit:
			// Flush whatever is still queued before exiting.
			for {
				select {
				case buf := <-p.pending:
					if err := p.publishFrame(FrameTypeAudioData, buf); err != nil {
						log.Printf("⚠️  Failed to publish audio frame: %v", err)
					}
					p.pool <- buf
				default:
					return
				}
			}
		}
	}
}

func (p *Publisher) publishFrame(frameType FrameType, payload []byte) error {
	frame := NewFrame(frameType, p.session, p.seq.Add(1)-1, uint64(time.Now().UnixMicro()), payload)
	data, err := frame.Serialize()
	if err != nil {
		return err
	}
	return p.conn.Publish(p.subject, data)
}
