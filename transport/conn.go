// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import "fmt"

// Conn is one connection attempt to a peer, from dial (or offer) until
// close. Implementations must be safe for concurrent use.
type Conn interface {
	// Peer returns the identity at the other end.
	Peer() string

	// Send transmits text to the peer. It fails if the connection is
	// not open.
	Send(text string) error

	// Close tears the connection down without waiting for the peer.
	// Closing an already-closed or never-opened Conn does nothing and
	// returns nil.
	Close() error
}

// EventType identifies what an Event reports.
type EventType int

const (
	// EventListening: the endpoint has reached the signaling broker
	// and can be dialed under Event.Identity.
	EventListening EventType = iota + 1

	// EventOffered: a peer dialed us. Event.Conn is the inbound
	// connection; it has not opened yet.
	EventOffered

	// EventOpen: Event.Conn can carry text.
	EventOpen

	// EventData: Event.Conn received Event.Data.
	EventData

	// EventError: Event.Conn failed with Event.Err. Before open this
	// means the peer could not be reached.
	EventError

	// EventClose: the peer closed Event.Conn or the link dropped
	// after open. Closing a Conn locally emits nothing.
	EventClose
)

func (t EventType) String() string {
	switch t {
	case EventListening:
		return "listening"
	case EventOffered:
		return "offered"
	case EventOpen:
		return "open"
	case EventData:
		return "data"
	case EventError:
		return "error"
	case EventClose:
		return "close"
	default:
		return fmt.Sprintf("EventType(%d)", int(t))
	}
}

// Event is a lifecycle notification from an Endpoint.
type Event struct {
	Type EventType

	// Conn is the connection the event belongs to. Nil for
	// EventListening.
	Conn Conn

	// Identity is the endpoint's own identity (EventListening only).
	Identity string

	// Data is the received text (EventData only).
	Data string

	// Err is the failure (EventError only).
	Err error
}
