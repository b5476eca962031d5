// Copyright 2026 The Rewind Authors
// SPDX-License-Identifier: Apache-2.0

// Package inspector defines the contract between a bridged application
// and a time-travel inspector tool: the message protocol, the lifted
// history representation, and the connector/handle surface an installed
// inspector exposes.
//
// Messages form a tagged union ([Message], discriminated by
// [MessageType]) whose DISPATCH variant carries a second tagged union
// ([DispatchPayload], discriminated by [DispatchType]). State fields on
// the wire are JSON-encoded strings, not native objects — [ParseSnapshot]
// and [Message.ActionState] perform the two-step decode.
//
// The inspector side is a soft dependency. [Register] and [Locate]
// model the host-environment query for an installed connector; a bridge
// that locates nothing degrades to a no-op.
package inspector
