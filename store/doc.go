// Copyright 2026 The Rewind Authors
// SPDX-License-Identifier: Apache-2.0

// Package store defines the observable state container contract consumed
// by the bridge, and a reference in-memory implementation.
//
// The bridge does not care how a container is built — only that it can
// produce a plain-data [Snapshot], be overwritten with one, and notify a
// callback after every mutation. [Adapter] captures exactly that
// surface. [Memory] is the reference implementation used by tests, the
// demo binary, and applications without their own container.
package store
