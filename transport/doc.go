// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package transport carries chat text between two peerchat
// installations over WebRTC data channels.
//
// An [Endpoint] is this installation's presence on the network under
// its identity. [Endpoint.Listen] polls a [Signaler] for offers addressed
// to the identity and answers them; [Endpoint.Dial] creates an
// outbound PeerConnection with one ordered, reliable data channel and
// runs the offer/answer exchange in the background. Dial returns at
// once: the caller learns the outcome through events.
//
// Everything pion reports is reduced to six [Event] types delivered to
// one sink function: the endpoint is listening, a peer offered a
// connection, a connection opened, received text, failed, or closed.
// Each event names the [Conn] it belongs to, so a consumer that has
// moved on to a newer connection can drop events from older ones by
// comparing Conn values. Nothing outside this package sees pion types.
//
// Signaling is vanilla ICE: every candidate is gathered before the SDP
// is published, so establishing a connection takes exactly one offer
// and one answer. Each dial carries a random session token that the
// answer echoes back, which keeps a superseded dial from picking up
// the answer meant for its successor. When two peers dial each other
// at the same moment, the one with the lexicographically smaller
// identity keeps its offer and the other answers it.
//
// [MemorySignaler] exchanges signals in process. [Broker] serves a
// MemorySignaler over HTTP for installations on different machines,
// and [HTTPSignaler] is its client.
package transport
