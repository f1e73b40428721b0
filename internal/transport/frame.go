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
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

// Binary frame protocol for the monitor tap. A fixed big-endian header
// in front of an opaque payload keeps consumers simple and lets them
// resynchronise on the magic after a dropped message.

// FrameType represents the type of frame being transmitted.
type FrameType uint8

const (
	// Audio frame types
	FrameTypeAudioData FrameType = 0x01
	FrameTypeAudioEnd  FrameType = 0x02

	// Control frame types
	FrameTypeHandshake FrameType = 0x10
	FrameTypeStats     FrameType = 0x11
	FrameTypeError     FrameType = 0x12
)

// Frame is one monitor message: a typed, sequenced payload.
type Frame struct {
	Type      FrameType
	SessionID uint32
	Sequence  uint32
	Timestamp uint64 // unix microseconds
	Data      []byte
}

// FrameHeader is the fixed-size wire header.
type FrameHeader struct {
	Magic     uint32    // 0x57415642 ("WAVB")
	Type      FrameType // frame type (1 byte)
	Reserved  uint8     // reserved (1 byte)
	Length    uint16    // payload length (2 bytes)
	SessionID uint32    // session identifier (4 bytes)
	Sequence  uint32    // sequence number (4 bytes)
	Timestamp uint64    // unix timestamp microseconds (8 bytes)
}

const (
	// FrameMagic marks the start of every frame.
	FrameMagic = 0x57415642 // "WAVB" in big-endian

	// HeaderSize is the serialized header length.
	HeaderSize = 24

	// MaxDataSize bounds the payload; Length is a uint16.
	MaxDataSize = 1<<16 - 1
)

// NewFrame creates a frame with the given fields.
func NewFrame(frameType FrameType, sessionID, sequence uint32, timestamp uint64, data []byte) *Frame {
	return &Frame{
		Type:      frameType,
		SessionID: sessionID,
		Sequence:  sequence,
		Timestamp: timestamp,
		Data:      data,
	}
}

// Serialize converts the frame to its wire form.
func (f *Frame) Serialize() ([]byte, error) {
	if len(f.Data) > MaxDataSize {
		return nil, fmt.Errorf("frame data too large: %d bytes (max %d)", len(f.Data), MaxDataSize)
	}

	header := FrameHeader{
		Magic:     FrameMagic,
		Type:      f.Type,
		Length:    uint16(len(f.Data)),
		SessionID: f.SessionID,
		Sequence:  f.Sequence,
		Timestamp: f.Timestamp,
	}

	buf := new(bytes.Buffer)
	if err := binary.Write(buf, binary.BigEndian, header); err != nil {
		return nil, fmt.Errorf("failed to write frame header: %w", err)
	}
	if len(f.Data) > 0 {
		if _, err := buf.Write(f.Data); err != nil {
			return nil, fmt.Errorf("failed to write frame data: %w", err)
		}
	}
	return buf.Bytes(), nil
}

// DeserializeFrame parses one complete frame from data.
func DeserializeFrame(data []byte) (*Frame, error) {
	if len(data) < HeaderSize {
		return nil, fmt.Errorf("frame too small: %d bytes (min %d)", len(data), HeaderSize)
	}

	buf := bytes.NewReader(data)
	var header FrameHeader
	if err := binary.Read(buf, binary.BigEndian, &header); err != nil {
		return nil, fmt.Errorf("failed to read frame header: %w", err)
	}
	if header.Magic != FrameMagic {
		return nil, fmt.Errorf("invalid frame magic: 0x%08X (expected 0x%08X)", header.Magic, FrameMagic)
	}
	expectedSize := HeaderSize + int(header.Length)
	if len(data) != expectedSize {
		return nil, fmt.Errorf("frame size mismatch: got %d bytes, expected %d", len(data), expectedSize)
	}

	frame := &Frame{
		Type:      header.Type,
		SessionID: header.SessionID,
		Sequence:  header.Sequence,
		Timestamp: header.Timestamp,
	}
	if header.Length > 0 {
		frame.Data = make([]byte, header.Length)
		if _, err := io.ReadFull(buf, frame.Data); err != nil {
			return nil, fmt.Errorf("failed to read frame data: %w", err)
		}
	}
	return frame, nil
}

// Size returns the total serialized size of the frame.
func (f *Frame) Size() int {
	return HeaderSize + len(f.Data)
}
