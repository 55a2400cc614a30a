// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package chatstore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bureau-foundation/peerchat/lib/codec"
)

// ErrCorrupt is returned when a stored conversation cannot be decoded.
// The damaged bytes are left in place: appends to a corrupt
// conversation fail instead of replacing it.
var ErrCorrupt = errors.New("stored conversation is corrupt")

// Sender says who wrote a message.
type Sender string

const (
	// SenderSelf marks messages typed on this installation.
	SenderSelf Sender = "you"

	// SenderPeer marks messages received from the peer. Remote
	// messages carry no sender identity; the conversation key says
	// who the peer is.
	SenderPeer Sender = "peer"
)

// Message is one entry in a conversation. There is no timestamp;
// position in the conversation is the only ordering.
type Message struct {
	Sender Sender `cbor:"sender"`
	Text   string `cbor:"text"`
}

// FromSelf reports whether the message was written locally. Any
// sender other than SenderSelf is the peer, including the "anon" tag
// written by older clients.
func (m Message) FromSelf() bool {
	return m.Sender == SenderSelf
}

// Conversations stores per-peer message histories.
type Conversations struct {
	kv KV
}

// Append adds one message to the end of peer's conversation. The whole
// history is decoded, extended, and re-encoded in one atomic update.
func (c *Conversations) Append(ctx context.Context, peer string, sender Sender, text string) error {
	err := c.kv.Update(ctx, conversationPrefix+peer, func(current []byte, found bool) ([]byte, error) {
		messages, err := decodeConversation(current, found)
		if err != nil {
			return nil, err
		}
		return codec.Marshal(append(messages, Message{Sender: sender, Text: text}))
	})
	if err != nil {
		return fmt.Errorf("appending to conversation with %s: %w", peer, err)
	}
	return nil
}

// Load returns peer's full history in arrival order. A peer with no
// history yields an empty slice.
func (c *Conversations) Load(ctx context.Context, peer string) ([]Message, error) {
	value, found, err := c.kv.Get(ctx, conversationPrefix+peer)
	if err != nil {
		return nil, fmt.Errorf("loading conversation with %s: %w", peer, err)
	}
	messages, err := decodeConversation(value, found)
	if err != nil {
		return nil, fmt.Errorf("loading conversation with %s: %w", peer, err)
	}
	return messages, nil
}

// Touch creates an empty conversation for peer if none exists, which
// makes the peer appear in Peers before any message is exchanged.
func (c *Conversations) Touch(ctx context.Context, peer string) error {
	err := c.kv.Update(ctx, conversationPrefix+peer, func(current []byte, found bool) ([]byte, error) {
		if found {
			return current, nil
		}
		return codec.Marshal([]Message{})
	})
	if err != nil {
		return fmt.Errorf("creating conversation with %s: %w", peer, err)
	}
	return nil
}

// Peers lists every peer that has a stored conversation, sorted by
// identity.
func (c *Conversations) Peers(ctx context.Context) ([]string, error) {
	keys, err := c.kv.Keys(ctx, conversationPrefix)
	if err != nil {
		return nil, fmt.Errorf("listing conversations: %w", err)
	}
	peers := make([]string, 0, len(keys))
	for _, key := range keys {
		if peer := strings.TrimPrefix(key, conversationPrefix); peer != "" {
			peers = append(peers, peer)
		}
	}
	return peers, nil
}

func decodeConversation(data []byte, found bool) ([]Message, error) {
	messages := []Message{}
	if !found {
		return messages, nil
	}
	if !codec.Wellformed(data) {
		return nil, fmt.Errorf("%w: record is truncated or not CBOR", ErrCorrupt)
	}
	if err := codec.Unmarshal(data, &messages); err != nil {
		return nil, fmt.Errorf("%w: record is not a message list: %v", ErrCorrupt, err)
	}
	return messages, nil
}
