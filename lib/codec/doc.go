// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec holds peerchat's CBOR configuration.
//
// JSON is used where a peer or a broker reads the bytes (signaling
// messages, the broker HTTP API). CBOR is used for records only this
// installation ever reads back: conversation histories in the local
// key-value store. Encoding is Core Deterministic (RFC 8949 §4.2), so
// the same history always produces the same bytes.
//
// Types that are only stored as CBOR use `cbor` struct tags.
package codec
