// Copyright 2026 The Rewind Authors
// SPDX-License-Identifier: Apache-2.0

package remote

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"testing"

	"github.com/rewind-foundation/rewind/store"
)

func TestFrame_RoundTrip(t *testing.T) {
	var buffer bytes.Buffer

	frames := []Frame{
		{Type: FrameTypeHello, Payload: []byte(`{"app":"counter"}`)},
		{Type: FrameTypeAction, Payload: []byte(`{"label":"increment","state":{"count":1}}`)},
		{Type: FrameTypeDispatch, Payload: nil},
	}
	for _, frame := range frames {
		if err := WriteFrame(&buffer, frame); err != nil {
			t.Fatalf("WriteFrame: %v", err)
		}
	}

	for i, want := range frames {
		got, err := ReadFrame(&buffer)
		if err != nil {
			t.Fatalf("ReadFrame %d: %v", i, err)
		}
		if got.Type != want.Type {
			t.Fatalf("frame %d type = %#x, want %#x", i, got.Type, want.Type)
		}
		if !bytes.Equal(got.Payload, want.Payload) && len(want.Payload) > 0 {
			t.Fatalf("frame %d payload = %q, want %q", i, got.Payload, want.Payload)
		}
	}
}

func TestReadFrame_RejectsOversizedPayload(t *testing.T) {
	var header [frameHeaderLength]byte
	header[0] = FrameTypeAction
	binary.BigEndian.PutUint32(header[1:5], maxPayloadLength+1)

	if _, err := ReadFrame(bytes.NewReader(header[:])); err == nil {
		t.Fatal("expected error for oversized payload length")
	}
}

func TestReadFrame_TruncatedPayload(t *testing.T) {
	var buffer bytes.Buffer
	if err := WriteFrame(&buffer, Frame{Type: FrameTypeInit, Payload: []byte(`{"state":{}}`)}); err != nil {
		t.Fatalf("WriteFrame: %v", err)
	}
	truncated := buffer.Bytes()[:buffer.Len()-3]

	if _, err := ReadFrame(bytes.NewReader(truncated)); err == nil {
		t.Fatal("expected error for truncated payload")
	}
}

func TestNewActionFrame_EncodesLabelAndState(t *testing.T) {
	frame, err := NewActionFrame("increment", store.Snapshot{"count": float64(2)})
	if err != nil {
		t.Fatalf("NewActionFrame: %v", err)
	}
	if frame.Type != FrameTypeAction {
		t.Fatalf("type = %#x, want action", frame.Type)
	}

	var payload ActionPayload
	if err := json.Unmarshal(frame.Payload, &payload); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if payload.Label != "increment" || payload.State["count"] != float64(2) {
		t.Fatalf("payload = %+v", payload)
	}
}

func TestNetworkFor(t *testing.T) {
	if got := networkFor("/tmp/rewind.sock"); got != "unix" {
		t.Fatalf("networkFor(path) = %q, want unix", got)
	}
	if got := networkFor("127.0.0.1:8650"); got != "tcp" {
		t.Fatalf("networkFor(host:port) = %q, want tcp", got)
	}
}
