// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package chatstore

import (
	"context"
	"fmt"
)

const (
	identityKey        = "identity"
	lastPeerKey        = "last_peer"
	nicknamePrefix     = "nickname/"
	conversationPrefix = "conversation/"
)

// Store groups the typed stores that share one KV.
type Store struct {
	Identities    *Identities
	Nicknames     *Nicknames
	Conversations *Conversations
	LastPeer      *LastPeer
}

// New builds a Store over kv.
func New(kv KV) *Store {
	return &Store{
		Identities:    NewIdentities(kv, nil),
		Nicknames:     &Nicknames{kv: kv},
		Conversations: &Conversations{kv: kv},
		LastPeer:      &LastPeer{kv: kv},
	}
}

// LastPeer persists the most recently connected peer so a restarted
// client can reopen that conversation.
type LastPeer struct {
	kv KV
}

// Get returns the last-active peer, or "" if there is none.
func (l *LastPeer) Get(ctx context.Context) (string, error) {
	value, _, err := l.kv.Get(ctx, lastPeerKey)
	if err != nil {
		return "", fmt.Errorf("loading last peer: %w", err)
	}
	return string(value), nil
}

// Set records peer as the last-active peer.
func (l *LastPeer) Set(ctx context.Context, peer string) error {
	if err := l.kv.Put(ctx, lastPeerKey, []byte(peer)); err != nil {
		return fmt.Errorf("saving last peer: %w", err)
	}
	return nil
}
