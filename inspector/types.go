// Copyright 2026 The Rewind Authors
// SPDX-License-Identifier: Apache-2.0

package inspector

import (
	"encoding/json"
	"fmt"

	"github.com/rewind-foundation/rewind/store"
)

// MessageType discriminates the top-level inspector message union.
type MessageType string

const (
	// MessageTypeAction carries a full state to apply as if it were a
	// fresh local action. The payload is a JSON string of the state.
	MessageTypeAction MessageType = "ACTION"

	// MessageTypeDispatch carries a time-travel command in its payload.
	// For jump commands, the state to apply arrives in the sibling
	// State field as a JSON string.
	MessageTypeDispatch MessageType = "DISPATCH"
)

// DispatchType discriminates the DISPATCH payload union.
type DispatchType string

const (
	// DispatchCommit resets the inspector's baseline action log to the
	// store's current state. No store write occurs.
	DispatchCommit DispatchType = "COMMIT"

	// DispatchJumpToAction applies the state recorded after a specific
	// action. The state arrives in the message's State field.
	DispatchJumpToAction DispatchType = "JUMP_TO_ACTION"

	// DispatchJumpToState applies an arbitrary point-in-time state.
	// Wire-identical to DispatchJumpToAction from the bridge's view.
	DispatchJumpToState DispatchType = "JUMP_TO_STATE"

	// DispatchImportState replaces the inspector's entire recorded
	// history with the lifted state carried in the payload.
	DispatchImportState DispatchType = "IMPORT_STATE"
)

// Message is an inspector-to-bridge message. State fields that
// represent store snapshots are JSON-encoded strings, not native
// objects, and must be parsed before use.
type Message struct {
	// Type is the top-level discriminator.
	Type MessageType `json:"type"`

	// Payload is a JSON string of a full state for ACTION messages,
	// or a DispatchPayload object for DISPATCH messages. Kept raw so
	// unrecognized shapes can be skipped without failing the decode.
	Payload json.RawMessage `json:"payload,omitempty"`

	// State is the JSON-encoded state for JUMP_TO_ACTION and
	// JUMP_TO_STATE dispatches.
	State string `json:"state,omitempty"`
}

// DispatchPayload is the payload of a DISPATCH message.
type DispatchPayload struct {
	// Type is the dispatch command discriminator.
	Type DispatchType `json:"type"`

	// NextLiftedState carries the full replacement history for
	// IMPORT_STATE. Nil for all other dispatch types.
	NextLiftedState *LiftedState `json:"nextLiftedState,omitempty"`
}

// LiftedState is the inspector's full recorded history: an ordered
// action list paired with the store snapshot after each action.
// ComputedStates[i].State is the snapshot after ActionsByID[i]. The
// bridge only consumes lifted state; the monitor produces it.
type LiftedState struct {
	// ActionsByID is the ordered action sequence. Entry 0 is the
	// baseline initialization action.
	ActionsByID []LiftedAction `json:"actionsById"`

	// ComputedStates holds the snapshot recorded after each action.
	ComputedStates []ComputedState `json:"computedStates"`
}

// LiftedAction identifies one recorded action in a lifted state.
type LiftedAction struct {
	// ID is the action's position in the log, assigned by the monitor.
	ID int64 `json:"id"`

	// Label is the action descriptor shown in the inspector timeline
	// (e.g. "update"). Opaque to the bridge.
	Label string `json:"label"`

	// Timestamp is the recording time in milliseconds since the Unix
	// epoch. Zero when the producer has no clock.
	Timestamp int64 `json:"timestamp,omitempty"`

	// Digest is a short content digest of the post-action state, used
	// for display and duplicate spotting. Optional.
	Digest string `json:"digest,omitempty"`
}

// ComputedState wraps the snapshot recorded after one action.
type ComputedState struct {
	State store.Snapshot `json:"state"`
}

// ParseMessage decodes a wire message. Unknown top-level fields are
// ignored for forward compatibility with inspector protocol additions.
func ParseMessage(data []byte) (Message, error) {
	var message Message
	if err := json.Unmarshal(data, &message); err != nil {
		return Message{}, fmt.Errorf("inspector: parsing message: %w", err)
	}
	return message, nil
}

// ParseSnapshot parses a JSON-encoded state string into a snapshot.
func ParseSnapshot(encoded string) (store.Snapshot, error) {
	var snapshot store.Snapshot
	if err := json.Unmarshal([]byte(encoded), &snapshot); err != nil {
		return nil, fmt.Errorf("inspector: parsing state: %w", err)
	}
	return snapshot, nil
}

// ActionState extracts the full state carried by an ACTION message.
// The payload is a JSON string whose contents are the state JSON, so
// decoding happens in two steps.
func (m Message) ActionState() (store.Snapshot, error) {
	if m.Type != MessageTypeAction {
		return nil, fmt.Errorf("inspector: message type %q carries no action state", m.Type)
	}
	var encoded string
	if err := json.Unmarshal(m.Payload, &encoded); err != nil {
		return nil, fmt.Errorf("inspector: ACTION payload is not a JSON string: %w", err)
	}
	return ParseSnapshot(encoded)
}

// Dispatch decodes the payload of a DISPATCH message.
func (m Message) Dispatch() (DispatchPayload, error) {
	if m.Type != MessageTypeDispatch {
		return DispatchPayload{}, fmt.Errorf("inspector: message type %q carries no dispatch payload", m.Type)
	}
	var payload DispatchPayload
	if err := json.Unmarshal(m.Payload, &payload); err != nil {
		return DispatchPayload{}, fmt.Errorf("inspector: parsing dispatch payload: %w", err)
	}
	return payload, nil
}

// NewActionMessage builds an ACTION message carrying the given state.
// Used by monitor-side code and tests; the bridge only consumes.
func NewActionMessage(state store.Snapshot) (Message, error) {
	stateJSON, err := json.Marshal(state)
	if err != nil {
		return Message{}, fmt.Errorf("inspector: encoding action state: %w", err)
	}
	payload, err := json.Marshal(string(stateJSON))
	if err != nil {
		return Message{}, fmt.Errorf("inspector: encoding action payload: %w", err)
	}
	return Message{Type: MessageTypeAction, Payload: payload}, nil
}

// NewDispatchMessage builds a DISPATCH message. For jump dispatch types,
// state holds the snapshot to apply; it is JSON-encoded into the State
// field. For COMMIT and IMPORT_STATE, pass a nil state.
func NewDispatchMessage(payload DispatchPayload, state store.Snapshot) (Message, error) {
	encodedPayload, err := json.Marshal(payload)
	if err != nil {
		return Message{}, fmt.Errorf("inspector: encoding dispatch payload: %w", err)
	}
	message := Message{Type: MessageTypeDispatch, Payload: encodedPayload}
	if state != nil {
		stateJSON, err := json.Marshal(state)
		if err != nil {
			return Message{}, fmt.Errorf("inspector: encoding dispatch state: %w", err)
		}
		message.State = string(stateJSON)
	}
	return message, nil
}
