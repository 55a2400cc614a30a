// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package chatstore persists a peerchat installation's local state.
//
// All state lives in a flat key-value namespace behind the [KV]
// interface:
//
//	identity               this installation's 8-character identity
//	nickname/<peer>        local display name for a peer
//	conversation/<peer>    CBOR-encoded message history
//	last_peer              the most recently connected peer
//
// [SQLiteKV] stores the namespace in a single SQLite table;
// [MemoryKV] keeps it in a map for tests and ephemeral sessions.
//
// The typed stores on top ([Identities], [Nicknames], [Conversations],
// [LastPeer]) are grouped by [Store]. None of them cache: every read
// goes to the KV, so the roster (derived from [Conversations.Peers])
// can never drift from what is stored.
package chatstore
