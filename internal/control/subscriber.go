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
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/nats-io/nats.go"
)

// Message is the control-plane payload sent to a bridge node. Delivery
// ordering relative to audio cycles is only "eventually visible to the
// next cycle that reads the state".
type Message struct {
	Type  string  `json:"type"`            // "note", "param" or "stop"
	On    bool    `json:"on,omitempty"`    // note gate for "note"
	Name  string  `json:"name,omitempty"`  // parameter name for "param"
	Value float64 `json:"value,omitempty"` // parameter value for "param"
}

// Message types understood by the subscriber.
const (
	MessageNote  = "note"
	MessageParam = "param"
	MessageStop  = "stop"
)

// NATSConnection is the slice of *nats.Conn the subscriber needs,
// kept as an interface for dependency injection in tests.
type NATSConnection interface {
	Subscribe(subject string, cb nats.MsgHandler) (*nats.Subscription, error)
	Close()
}

// natsConnAdapter adapts *nats.Conn to NATSConnection.
type natsConnAdapter struct {
	conn *nats.Conn
}

func (a *natsConnAdapter) Subscribe(subject string, cb nats.MsgHandler) (*nats.Subscription, error) {
	return a.conn.Subscribe(subject, cb)
}

func (a *natsConnAdapter) Close() {
	a.conn.Close()
}

// Subscriber listens on NATS for control messages addressed to one node
// and applies them to a State. It runs entirely on NATS delivery
// goroutines; the audio thread never sees it.
type Subscriber struct {
	conn   NATSConnection
	nodeID string
	state  *State
	onStop func()
}

// NewSubscriber connects to NATS (with retry, brokers restart) and
// returns a subscriber that applies control messages to state. onStop,
// if non-nil, is invoked when a "stop" message arrives.
func NewSubscriber(natsURL, nodeID string, state *State, onStop func()) (*Subscriber, error) {
	var nc *nats.Conn
	var err error

	for i := 0; i < 5; i++ {
		nc, err = nats.Connect(natsURL)
		if err == nil {
			break
		}
		log.Printf("⚠️  Failed to connect to NATS (attempt %d/5): %v", i+1, err)
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS after 5 attempts: %w", err)
	}

	log.Printf("✅ Connected to NATS at %s", natsURL)
	return NewSubscriberWithConnection(&natsConnAdapter{conn: nc}, nodeID, state, onStop), nil
}

// NewSubscriberWithConnection builds a subscriber around an existing
// connection. Used by tests to inject a fake.
func NewSubscriberWithConnection(conn NATSConnection, nodeID string, state *State, onStop func()) *Subscriber {
	return &Subscriber{
		conn:   conn,
		nodeID: nodeID,
		state:  state,
		onStop: onStop,
	}
}

// Start subscribes to the node-specific and broadcast control subjects.
func (s *Subscriber) Start() error {
	nodeSubject := fmt.Sprintf("control.%s", s.nodeID)
	if _, err := s.conn.Subscribe(nodeSubject, s.handleMessage); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", nodeSubject, err)
	}

	broadcastSubject := "control.broadcast"
	if _, err := s.conn.Subscribe(broadcastSubject, s.handleMessage); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", broadcastSubject, err)
	}

	log.Printf("🎛️  Subscribed to control subjects: %s, %s", nodeSubject, broadcastSubject)
	return nil
}

// handleMessage decodes and applies one control message. Malformed or
// unknown messages are logged and dropped; a bad message must never
// disturb the audio path.
func (s *Subscriber) handleMessage(msg *nats.Msg) {
	var m Message
	if err := json.Unmarshal(msg.Data, &m); err != nil {
		log.Printf("❌ Failed to unmarshal control message: %v", err)
		return
	}

	switch m.Type {
	case MessageNote:
		s.state.SetGate(m.On)
		log.Printf("🎹 Note gate: %v", m.On)
	case MessageParam:
		if !s.state.SetParam(m.Name, m.Value) {
			log.Printf("⚠️  Ignoring unknown parameter %q", m.Name)
			return
		}
		log.Printf("🎚️  Parameter %s = %g", m.Name, m.Value)
	case MessageStop:
		log.Printf("🛑 Stop requested via control plane")
		if s.onStop != nil {
			s.onStop()
		}
	default:
		log.Printf("⚠️  Ignoring control message of unknown type %q", m.Type)
	}
}

// Close closes the underlying NATS connection.
func (s *Subscriber) Close() {
	if s.conn != nil {
		s.conn.Close()
		log.Println("🔌 NATS connection closed")
	}
}
