// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"fmt"

	"github.com/bureau-foundation/peerchat/lib/chatstore"
)

// Status lines shown to the user.
const (
	StatusAttempting  = "Attempting connection..."
	StatusConnected   = "Connected."
	StatusOffline     = "This user is offline."
	StatusClosed      = "Connection closed."
	StatusRegenerated = "Your ID has been regenerated."
)

// corruptStatus is the status line for a conversation whose stored
// bytes cannot be decoded.
func corruptStatus(label string) string {
	return fmt.Sprintf("Stored history for %s is unreadable.", label)
}

// Update is something the user interface should render. The concrete
// types are IdentityUpdate, StatusUpdate, RosterUpdate,
// ConversationUpdate, and MessageUpdate.
type Update interface {
	isUpdate()
}

// IdentityUpdate reports the local identity and whether peers can
// currently reach it.
type IdentityUpdate struct {
	Identity  string
	Listening bool
}

// StatusUpdate is a transient connection status line.
type StatusUpdate struct {
	Text string
}

// RosterEntry is one known peer.
type RosterEntry struct {
	Peer  string
	Label string
}

// RosterUpdate replaces the whole roster.
type RosterUpdate struct {
	Entries []RosterEntry
}

// ConversationUpdate replaces the displayed conversation: the current
// peer changed, or its history was reloaded.
type ConversationUpdate struct {
	Peer     string
	Label    string
	Messages []chatstore.Message
}

// MessageUpdate appends one message to the displayed conversation.
type MessageUpdate struct {
	Peer    string
	Message chatstore.Message
}

func (IdentityUpdate) isUpdate()     {}
func (StatusUpdate) isUpdate()       {}
func (RosterUpdate) isUpdate()       {}
func (ConversationUpdate) isUpdate() {}
func (MessageUpdate) isUpdate()      {}
