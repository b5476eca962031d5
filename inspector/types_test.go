// Copyright 2026 The Rewind Authors
// SPDX-License-Identifier: Apache-2.0

package inspector

import (
	"reflect"
	"testing"

	"github.com/rewind-foundation/rewind/store"
)

func TestParseMessage_Action(t *testing.T) {
	message, err := ParseMessage([]byte(`{"type":"ACTION","payload":"{\"count\":0}"}`))
	if err != nil {
		t.Fatalf("ParseMessage: %v", err)
	}
	if message.Type != MessageTypeAction {
		t.Fatalf("type = %q, want ACTION", message.Type)
	}

	state, err := message.ActionState()
	if err != nil {
		t.Fatalf("ActionState: %v", err)
	}
	expected := store.Snapshot{"count": float64(0)}
	if !reflect.DeepEqual(state, expected) {
		t.Fatalf("state = %v, want %v", state, expected)
	}
}

func TestParseMessage_DispatchJump(t *testing.T) {
	message, err := ParseMessage([]byte(`{"type":"DISPATCH","payload":{"type":"JUMP_TO_ACTION"},"state":"{\"count\":2}"}`))
	if err != nil {
		t.Fatalf("ParseMessage: %v", err)
	}

	payload, err := message.Dispatch()
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if payload.Type != DispatchJumpToAction {
		t.Fatalf("dispatch type = %q, want JUMP_TO_ACTION", payload.Type)
	}

	state, err := ParseSnapshot(message.State)
	if err != nil {
		t.Fatalf("ParseSnapshot: %v", err)
	}
	if state["count"] != float64(2) {
		t.Fatalf("count = %v, want 2", state["count"])
	}
}

func TestParseMessage_ImportState(t *testing.T) {
	message, err := ParseMessage([]byte(`{
		"type": "DISPATCH",
		"payload": {
			"type": "IMPORT_STATE",
			"nextLiftedState": {
				"actionsById": [{"id": 0, "label": "@@INIT", "timestamp": 1700000000000}],
				"computedStates": [{"state": {"count": 5}}, {"state": {"count": 6}}]
			}
		}
	}`))
	if err != nil {
		t.Fatalf("ParseMessage: %v", err)
	}

	payload, err := message.Dispatch()
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	lifted := payload.NextLiftedState
	if lifted == nil {
		t.Fatal("expected nextLiftedState")
	}
	if len(lifted.ComputedStates) != 2 {
		t.Fatalf("computed states = %d, want 2", len(lifted.ComputedStates))
	}
	if lifted.ComputedStates[1].State["count"] != float64(6) {
		t.Fatalf("last state count = %v, want 6", lifted.ComputedStates[1].State["count"])
	}
	if lifted.ActionsByID[0].Timestamp != 1700000000000 {
		t.Fatalf("timestamp = %d", lifted.ActionsByID[0].Timestamp)
	}
}

func TestActionState_WrongType(t *testing.T) {
	message := Message{Type: MessageTypeDispatch}
	if _, err := message.ActionState(); err == nil {
		t.Fatal("expected error extracting action state from DISPATCH")
	}
}

func TestActionState_PayloadNotAString(t *testing.T) {
	message, err := ParseMessage([]byte(`{"type":"ACTION","payload":{"count":0}}`))
	if err != nil {
		t.Fatalf("ParseMessage: %v", err)
	}
	if _, err := message.ActionState(); err == nil {
		t.Fatal("expected error: payload must be a JSON string, not an object")
	}
}

func TestParseSnapshot_Malformed(t *testing.T) {
	if _, err := ParseSnapshot("{broken"); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestNewActionMessage_RoundTrip(t *testing.T) {
	original := store.Snapshot{"count": float64(3), "name": "demo"}

	message, err := NewActionMessage(original)
	if err != nil {
		t.Fatalf("NewActionMessage: %v", err)
	}
	decoded, err := message.ActionState()
	if err != nil {
		t.Fatalf("ActionState: %v", err)
	}
	if !reflect.DeepEqual(decoded, original) {
		t.Fatalf("round trip = %v, want %v", decoded, original)
	}
}

func TestNewDispatchMessage_JumpCarriesState(t *testing.T) {
	message, err := NewDispatchMessage(DispatchPayload{Type: DispatchJumpToState}, store.Snapshot{"count": float64(0)})
	if err != nil {
		t.Fatalf("NewDispatchMessage: %v", err)
	}
	if message.State == "" {
		t.Fatal("expected State field to carry the encoded snapshot")
	}
	state, err := ParseSnapshot(message.State)
	if err != nil {
		t.Fatalf("ParseSnapshot: %v", err)
	}
	if state["count"] != float64(0) {
		t.Fatalf("count = %v, want 0", state["count"])
	}
}

func TestRegister_Locate(t *testing.T) {
	t.Cleanup(func() { Register(nil) })

	if _, ok := Locate(); ok {
		t.Fatal("expected no connector before registration")
	}

	Register(stubConnector{})
	connector, ok := Locate()
	if !ok || connector == nil {
		t.Fatal("expected registered connector")
	}

	Register(nil)
	if _, ok := Locate(); ok {
		t.Fatal("expected registration cleared")
	}
}

type stubConnector struct{}

func (stubConnector) Connect(Options) (Handle, error) { return nil, nil }
