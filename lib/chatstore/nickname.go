// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package chatstore

import (
	"context"
	"fmt"
	"strings"
)

// Nicknames maps peer identities to local display names. Nicknames are
// never sent to the peer.
type Nicknames struct {
	kv KV
}

// Get returns the nickname for peer, or "" if none is set.
func (n *Nicknames) Get(ctx context.Context, peer string) (string, error) {
	value, _, err := n.kv.Get(ctx, nicknamePrefix+peer)
	if err != nil {
		return "", fmt.Errorf("loading nickname for %s: %w", peer, err)
	}
	return string(value), nil
}

// Set stores name (trimmed) as the nickname for peer. An empty name
// clears the nickname.
func (n *Nicknames) Set(ctx context.Context, peer, name string) error {
	if err := n.kv.Put(ctx, nicknamePrefix+peer, []byte(strings.TrimSpace(name))); err != nil {
		return fmt.Errorf("saving nickname for %s: %w", peer, err)
	}
	return nil
}

// DisplayName returns the nickname for peer if one is set, otherwise
// the identity itself. A read failure also falls back to the identity.
func (n *Nicknames) DisplayName(ctx context.Context, peer string) string {
	nickname, err := n.Get(ctx, peer)
	if err != nil || nickname == "" {
		return peer
	}
	return nickname
}
