// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package session is the chat client's brain: it owns the local
// identity, the single active connection, the current peer, and the
// routing of text between the transport and the conversation store.
//
// A [Session] runs one event-loop goroutine ([Session.Run]). Transport
// callbacks, liveness timers, and the public methods ([Session.Connect],
// [Session.Send], [Session.SetNickname], [Session.Regenerate]) all post
// into that loop, so session state is never shared between goroutines.
// What the user should see leaves the loop as [Update] values through
// the Config.Updates callback.
//
// Each connection attempt moves through connecting, then open, failed,
// or closed. A new attempt (user-initiated or an inbound offer) closes
// the previous connection and takes its slot before any later event
// for the old connection is handled; such events are stale and are
// dropped. An attempt that has not opened within the liveness timeout
// is reported once as offline.
package session
