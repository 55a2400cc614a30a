// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package chatstore

import (
	"context"
	"errors"
	"slices"
	"strings"
	"testing"

	"github.com/bureau-foundation/peerchat/lib/codec"
)

func TestGenerateIdentity(t *testing.T) {
	for range 200 {
		identity := GenerateIdentity(nil)
		if len(identity) != IdentityLength {
			t.Fatalf("identity %q has length %d, want %d", identity, len(identity), IdentityLength)
		}
		for _, character := range identity {
			if !strings.ContainsRune(IdentityAlphabet, character) {
				t.Fatalf("identity %q contains %q outside the alphabet", identity, character)
			}
		}
	}
}

func TestGenerateIdentityUsesSource(t *testing.T) {
	// Always picking the last index yields the last alphabet character.
	identity := GenerateIdentity(func(n int) int { return n - 1 })
	if identity != "99999999" {
		t.Errorf("identity = %q, want 99999999", identity)
	}
}

func TestNormalizeIdentity(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"  abcd1234 ", "ABCD1234"},
		{"PeerX", "PEERX"},
		{"   ", ""},
	}
	for _, test := range tests {
		if got := NormalizeIdentity(test.input); got != test.want {
			t.Errorf("NormalizeIdentity(%q) = %q, want %q", test.input, got, test.want)
		}
	}
}

func TestIdentityGetOrCreateIsStable(t *testing.T) {
	ctx := context.Background()
	store := New(NewMemoryKV())

	first, err := store.Identities.GetOrCreate(ctx)
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	second, err := store.Identities.GetOrCreate(ctx)
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	if first != second {
		t.Errorf("GetOrCreate returned %q then %q", first, second)
	}
}

func TestIdentityRegeneratePersists(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()
	sequence := 0
	identities := NewIdentities(kv, func(n int) int {
		sequence++
		return sequence % n
	})

	original, err := identities.GetOrCreate(ctx)
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	regenerated, err := identities.Regenerate(ctx)
	if err != nil {
		t.Fatalf("Regenerate: %v", err)
	}
	if regenerated == original {
		t.Fatalf("Regenerate returned the old identity %q", original)
	}

	reloaded, err := identities.GetOrCreate(ctx)
	if err != nil {
		t.Fatalf("GetOrCreate after Regenerate: %v", err)
	}
	if reloaded != regenerated {
		t.Errorf("stored identity = %q, want regenerated %q", reloaded, regenerated)
	}
}

func TestConversationAppendLoad(t *testing.T) {
	ctx := context.Background()
	store := New(NewMemoryKV())

	if err := store.Conversations.Append(ctx, "PEERX", SenderSelf, "hi"); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := store.Conversations.Append(ctx, "PEERX", SenderPeer, "hello"); err != nil {
		t.Fatalf("Append: %v", err)
	}

	messages, err := store.Conversations.Load(ctx, "PEERX")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := []Message{
		{Sender: SenderSelf, Text: "hi"},
		{Sender: SenderPeer, Text: "hello"},
	}
	if !slices.Equal(messages, want) {
		t.Errorf("Load = %+v, want %+v", messages, want)
	}
}

func TestConversationOrderPreserved(t *testing.T) {
	ctx := context.Background()
	store := New(NewMemoryKV())

	var want []Message
	for index := range 50 {
		sender := SenderSelf
		if index%3 == 0 {
			sender = SenderPeer
		}
		text := strings.Repeat("m", index+1)
		if err := store.Conversations.Append(ctx, "PEERY", sender, text); err != nil {
			t.Fatalf("Append %d: %v", index, err)
		}
		want = append(want, Message{Sender: sender, Text: text})
	}

	messages, err := store.Conversations.Load(ctx, "PEERY")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !slices.Equal(messages, want) {
		t.Errorf("history out of order or incomplete: got %d messages", len(messages))
	}
}

func TestConversationLoadMissingIsEmpty(t *testing.T) {
	store := New(NewMemoryKV())
	messages, err := store.Conversations.Load(context.Background(), "NOBODY00")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if messages == nil || len(messages) != 0 {
		t.Errorf("Load(missing) = %#v, want empty non-nil slice", messages)
	}
}

func TestConversationCorruptFailsClosed(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()
	store := New(kv)
	garbage := []byte(`[{"sender":"you","text":"hi"}`)
	if err := kv.Put(ctx, "conversation/BROKEN1", garbage); err != nil {
		t.Fatalf("Put: %v", err)
	}

	if _, err := store.Conversations.Load(ctx, "BROKEN1"); !errors.Is(err, ErrCorrupt) {
		t.Fatalf("Load error = %v, want ErrCorrupt", err)
	}
	if err := store.Conversations.Append(ctx, "BROKEN1", SenderSelf, "more"); !errors.Is(err, ErrCorrupt) {
		t.Fatalf("Append error = %v, want ErrCorrupt", err)
	}

	value, _, _ := kv.Get(ctx, "conversation/BROKEN1")
	if string(value) != string(garbage) {
		t.Errorf("corrupt record was overwritten with %q", value)
	}
}

func TestConversationCorruptionKinds(t *testing.T) {
	ctx := context.Background()
	valid, err := codec.Marshal([]Message{{Sender: SenderSelf, Text: "hello"}})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	wrongShape, err := codec.Marshal(map[string]int{"count": 3})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	tests := []struct {
		name  string
		value []byte
		want  string
	}{
		{"truncated", valid[:len(valid)-2], "truncated or not CBOR"},
		{"trailing bytes", append(append([]byte{}, valid...), 0x01), "truncated or not CBOR"},
		{"well-formed map", wrongShape, "not a message list"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			kv := NewMemoryKV()
			if err := kv.Put(ctx, "conversation/BROKEN1", test.value); err != nil {
				t.Fatalf("Put: %v", err)
			}
			_, err := New(kv).Conversations.Load(ctx, "BROKEN1")
			if !errors.Is(err, ErrCorrupt) {
				t.Fatalf("Load error = %v, want ErrCorrupt", err)
			}
			if !strings.Contains(err.Error(), test.want) {
				t.Errorf("Load error = %q, want it to mention %q", err, test.want)
			}
		})
	}
}

func TestConversationTouchAndPeers(t *testing.T) {
	ctx := context.Background()
	store := New(NewMemoryKV())

	if err := store.Conversations.Append(ctx, "ZULU0001", SenderSelf, "hey"); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := store.Conversations.Touch(ctx, "ALPHA001"); err != nil {
		t.Fatalf("Touch: %v", err)
	}
	// Touching an existing conversation must not clear it.
	if err := store.Conversations.Touch(ctx, "ZULU0001"); err != nil {
		t.Fatalf("Touch: %v", err)
	}
	if err := store.Nicknames.Set(ctx, "NICKONLY", "Carol"); err != nil {
		t.Fatalf("Set nickname: %v", err)
	}

	peers, err := store.Conversations.Peers(ctx)
	if err != nil {
		t.Fatalf("Peers: %v", err)
	}
	if want := []string{"ALPHA001", "ZULU0001"}; !slices.Equal(peers, want) {
		t.Errorf("Peers = %v, want %v", peers, want)
	}

	messages, _ := store.Conversations.Load(ctx, "ZULU0001")
	if len(messages) != 1 {
		t.Errorf("Touch cleared history: %+v", messages)
	}
}

func TestMessageFromSelf(t *testing.T) {
	if !(Message{Sender: SenderSelf}).FromSelf() {
		t.Error("SenderSelf not recognized")
	}
	if (Message{Sender: "anon"}).FromSelf() {
		t.Error("legacy anon sender treated as self")
	}
}

func TestNicknameDisplayName(t *testing.T) {
	ctx := context.Background()
	store := New(NewMemoryKV())

	if got := store.Nicknames.DisplayName(ctx, "PEERX"); got != "PEERX" {
		t.Errorf("DisplayName without nickname = %q, want PEERX", got)
	}

	if err := store.Nicknames.Set(ctx, "PEERX", "Bob"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if got := store.Nicknames.DisplayName(ctx, "PEERX"); got != "Bob" {
		t.Errorf("DisplayName = %q, want Bob", got)
	}

	if err := store.Nicknames.Set(ctx, "PEERX", ""); err != nil {
		t.Fatalf("Set empty: %v", err)
	}
	if got := store.Nicknames.DisplayName(ctx, "PEERX"); got != "PEERX" {
		t.Errorf("DisplayName after clear = %q, want PEERX", got)
	}

	if err := store.Nicknames.Set(ctx, "PEERX", "   "); err != nil {
		t.Fatalf("Set blank: %v", err)
	}
	if got := store.Nicknames.DisplayName(ctx, "PEERX"); got != "PEERX" {
		t.Errorf("DisplayName after blank nickname = %q, want PEERX", got)
	}
}

func TestLastPeer(t *testing.T) {
	ctx := context.Background()
	store := New(NewMemoryKV())

	if last, err := store.LastPeer.Get(ctx); err != nil || last != "" {
		t.Fatalf("initial Get = %q, %v", last, err)
	}
	if err := store.LastPeer.Set(ctx, "PEERX"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if last, _ := store.LastPeer.Get(ctx); last != "PEERX" {
		t.Errorf("Get = %q, want PEERX", last)
	}
}
