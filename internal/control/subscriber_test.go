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
	"errors"
	"sync"
	"testing"

	"github.com/nats-io/nats.go"
)

// MockNATSConnection records subscriptions and delivers published
// messages synchronously to the registered handlers.
type MockNATSConnection struct {
	mu          sync.Mutex
	subscribers map[string][]nats.MsgHandler
	errors      map[string]error
	closed      bool
}

func NewMockNATSConnection() *MockNATSConnection {
	return &MockNATSConnection{
		subscribers: make(map[string][]nats.MsgHandler),
		errors:      make(map[string]error),
	}
}

func (m *MockNATSConnection) Subscribe(subject string, handler nats.MsgHandler) (*nats.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err, exists := m.errors[subject]; exists {
		return nil, err
	}
	m.subscribers[subject] = append(m.subscribers[subject], handler)
	return &nats.Subscription{}, nil
}

func (m *MockNATSConnection) PublishMessage(subject string, data []byte) {
	m.mu.Lock()
	handlers := append([]nats.MsgHandler(nil), m.subscribers[subject]...)
	m.mu.Unlock()

	for _, handler := range handlers {
		handler(&nats.Msg{Subject: subject, Data: data})
	}
}

func (m *MockNATSConnection) SetError(subject string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors[subject] = err
}

func (m *MockNATSConnection) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
}

func publishJSON(t *testing.T, conn *MockNATSConnection, subject string, m Message) {
	t.Helper()
	data, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("marshal control message: %v", err)
	}
	conn.PublishMessage(subject, data)
}

func TestState_GateAndParams(t *testing.T) {
	state := NewState(map[string]float64{"gain": 0.5, "freq": 440})

	if state.Gate() {
		t.Error("gate should start closed")
	}
	state.SetGate(true)
	if !state.Gate() {
		t.Error("gate should be open after SetGate(true)")
	}

	if got := state.Param("gain", -1); got != 0.5 {
		t.Errorf("Param(gain) = %f, want 0.5", got)
	}
	if !state.SetParam("gain", 0.9) {
		t.Error("SetParam on a registered name returned false")
	}
	if got := state.Param("gain", -1); got != 0.9 {
		t.Errorf("Param(gain) after set = %f, want 0.9", got)
	}

	if state.SetParam("bogus", 1) {
		t.Error("SetParam on an unknown name returned true")
	}
	if got := state.Param("bogus", 7); got != 7 {
		t.Errorf("Param(bogus) = %f, want fallback 7", got)
	}
}

func TestSubscriber_AppliesMessages(t *testing.T) {
	conn := NewMockNATSConnection()
	state := NewState(map[string]float64{"gain": 1})
	stopped := false
	sub := NewSubscriberWithConnection(conn, "node-1", state, func() { stopped = true })

	if err := sub.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	publishJSON(t, conn, "control.node-1", Message{Type: MessageNote, On: true})
	if !state.Gate() {
		t.Error("note-on did not open the gate")
	}

	publishJSON(t, conn, "control.node-1", Message{Type: MessageNote, On: false})
	if state.Gate() {
		t.Error("note-off did not close the gate")
	}

	publishJSON(t, conn, "control.broadcast", Message{Type: MessageParam, Name: "gain", Value: 0.25})
	if got := state.Param("gain", -1); got != 0.25 {
		t.Errorf("gain after broadcast param = %f, want 0.25", got)
	}

	publishJSON(t, conn, "control.node-1", Message{Type: MessageStop})
	if !stopped {
		t.Error("stop message did not invoke the stop callback")
	}
}

func TestSubscriber_IgnoresBadMessages(t *testing.T) {
	conn := NewMockNATSConnection()
	state := NewState(map[string]float64{"gain": 1})
	sub := NewSubscriberWithConnection(conn, "node-1", state, nil)

	if err := sub.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	// None of these may disturb existing state.
	conn.PublishMessage("control.node-1", []byte("{not json"))
	publishJSON(t, conn, "control.node-1", Message{Type: "reboot"})
	publishJSON(t, conn, "control.node-1", Message{Type: MessageParam, Name: "bogus", Value: 9})

	if state.Gate() {
		t.Error("gate changed by bad messages")
	}
	if got := state.Param("gain", -1); got != 1 {
		t.Errorf("gain changed by bad messages: %f", got)
	}
}

func TestSubscriber_SubscribeFailure(t *testing.T) {
	conn := NewMockNATSConnection()
	conn.SetError("control.node-1", errors.New("no permission"))
	sub := NewSubscriberWithConnection(conn, "node-1", NewState(nil), nil)

	if err := sub.Start(); err == nil {
		t.Fatal("expected Start to fail when subscription is refused")
	}
}

func TestSubscriber_Close(t *testing.T) {
	conn := NewMockNATSConnection()
	sub := NewSubscriberWithConnection(conn, "node-1", NewState(nil), nil)
	sub.Close()
	if !conn.closed {
		t.Error("Close did not close the connection")
	}
}
