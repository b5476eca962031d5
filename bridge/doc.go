// Copyright 2026 The Rewind Authors
// SPDX-License-Identifier: Apache-2.0

// Package bridge connects a mutable, observable state container to a
// time-travel inspector, keeping the two consistent without feedback
// loops.
//
// A bridged store has two writers: application code (local mutations)
// and the inspector (replay, jump, import). Local mutations flow
// outward — every one is forwarded to the inspector as a labeled
// action. Inspector messages flow inward — the message handler applies
// the requested state to the store. Left alone, these two flows feed
// each other forever: a remote write triggers the mutation callback,
// which forwards the state back to the inspector as a brand-new action.
// The travel guard breaks the cycle: it is engaged around every store
// write the message handler performs for the JUMP_TO_STATE,
// JUMP_TO_ACTION, and IMPORT_STATE commands, and the forwarder drops
// mutations that occur while it is held.
//
// The one deliberate exception is the plain ACTION message: replaying a
// single action is treated identically to a fresh local mutation, so
// the guard stays disengaged and the applied state echoes back to the
// inspector as a new action entry. COMMIT performs no store write at
// all — it re-seeds the inspector's baseline via Init.
//
// [Attach] is the entry point. It is idempotent per store instance,
// and the inspector is a soft dependency: when no connector is
// installed the bridge degrades to a no-op, warning exactly once in
// development mode.
package bridge
