// Copyright 2026 The Rewind Authors
// SPDX-License-Identifier: Apache-2.0

// Package remote carries inspector sessions over a socket. The
// application side dials a monitor with Connector, which implements
// inspector.Connector; the monitor side runs Server, which keeps a
// history log per connected application and pushes dispatch commands
// back down the same connection.
//
// The package is organized around the session data flow:
//
//   - protocol.go: wire format for the session stream (framed binary messages)
//   - connector.go: application-side dialing and frame I/O
//   - server.go: monitor-side session management and history logs
package remote

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"

	"github.com/rewind-foundation/rewind/store"
)

// Frame type constants for the session protocol wire format. Each
// frame is a 5-byte header (1 byte type + 4 byte big-endian payload
// length) followed by the payload.
const (
	// FrameTypeHello identifies the application. Application→monitor
	// only, sent once immediately after connecting, before any other
	// frame. Payload is a JSON HelloPayload.
	FrameTypeHello byte = 0x01

	// FrameTypeInit seeds or re-baselines the session's history log.
	// Application→monitor. Payload is a JSON InitPayload.
	FrameTypeInit byte = 0x02

	// FrameTypeAction records a mutation and the state it produced.
	// Application→monitor. Payload is a JSON ActionPayload.
	FrameTypeAction byte = 0x03

	// FrameTypeDispatch carries an inspector message (ACTION or
	// DISPATCH wire JSON) for the application's bridge to handle.
	// Monitor→application only.
	FrameTypeDispatch byte = 0x04

	// FrameTypeError reports a non-fatal condition. Bidirectional.
	// Payload is a JSON ErrorPayload.
	FrameTypeError byte = 0x05
)

// frameHeaderLength is the fixed size of a frame header: 1 byte type
// + 4 bytes payload length.
const frameHeaderLength = 5

// maxPayloadLength is the maximum allowed payload size. Snapshots are
// debugging state; 16 MB is far past any reasonable session.
const maxPayloadLength = 16 * 1024 * 1024

// Frame is a single session protocol frame.
type Frame struct {
	Type    byte
	Payload []byte
}

// WriteFrame writes a framed message to w. The frame format is:
// [1 byte type] [4 bytes payload length, big-endian uint32] [payload].
func WriteFrame(w io.Writer, frame Frame) error {
	var header [frameHeaderLength]byte
	header[0] = frame.Type
	binary.BigEndian.PutUint32(header[1:5], uint32(len(frame.Payload)))
	if _, err := w.Write(header[:]); err != nil {
		return fmt.Errorf("write frame header: %w", err)
	}
	if len(frame.Payload) > 0 {
		if _, err := w.Write(frame.Payload); err != nil {
			return fmt.Errorf("write frame payload: %w", err)
		}
	}
	return nil
}

// ReadFrame reads a framed message from r. Returns an error if the
// stream is malformed or the payload exceeds maxPayloadLength.
func ReadFrame(r io.Reader) (Frame, error) {
	var header [frameHeaderLength]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return Frame{}, fmt.Errorf("read frame header: %w", err)
	}
	frameType := header[0]
	payloadLength := binary.BigEndian.Uint32(header[1:5])
	if payloadLength > maxPayloadLength {
		return Frame{}, fmt.Errorf("payload length %d exceeds maximum %d", payloadLength, maxPayloadLength)
	}
	payload := make([]byte, payloadLength)
	if payloadLength > 0 {
		if _, err := io.ReadFull(r, payload); err != nil {
			return Frame{}, fmt.Errorf("read frame payload: %w", err)
		}
	}
	return Frame{Type: frameType, Payload: payload}, nil
}

// HelloPayload is the JSON structure carried by hello frames.
type HelloPayload struct {
	// App identifies the application instance in the monitor UI.
	App string `json:"app"`
}

// InitPayload is the JSON structure carried by init frames.
type InitPayload struct {
	// State is the snapshot the session's history log starts from.
	State store.Snapshot `json:"state"`
}

// ActionPayload is the JSON structure carried by action frames.
type ActionPayload struct {
	// Label names the mutation.
	Label string `json:"label"`

	// State is the full snapshot after the mutation.
	State store.Snapshot `json:"state"`
}

// ErrorPayload is the JSON structure carried by error frames.
type ErrorPayload struct {
	// Message describes the condition.
	Message string `json:"message"`
}

// NewHelloFrame creates a hello frame identifying the application.
func NewHelloFrame(app string) (Frame, error) {
	return marshalFrame(FrameTypeHello, HelloPayload{App: app})
}

// NewInitFrame creates an init frame carrying the baseline snapshot.
func NewInitFrame(state store.Snapshot) (Frame, error) {
	return marshalFrame(FrameTypeInit, InitPayload{State: state})
}

// NewActionFrame creates an action frame carrying a labeled snapshot.
func NewActionFrame(label string, state store.Snapshot) (Frame, error) {
	return marshalFrame(FrameTypeAction, ActionPayload{Label: label, State: state})
}

// NewErrorFrame creates an error frame carrying a description.
func NewErrorFrame(message string) (Frame, error) {
	return marshalFrame(FrameTypeError, ErrorPayload{Message: message})
}

// NewDispatchFrame creates a dispatch frame from inspector message
// wire JSON.
func NewDispatchFrame(messageJSON []byte) Frame {
	return Frame{Type: FrameTypeDispatch, Payload: messageJSON}
}

func marshalFrame(frameType byte, payload any) (Frame, error) {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return Frame{}, fmt.Errorf("encode frame payload: %w", err)
	}
	return Frame{Type: frameType, Payload: encoded}, nil
}
