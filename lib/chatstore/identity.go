// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package chatstore

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
)

// IdentityAlphabet is the character set identities are drawn from.
const IdentityAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// IdentityLength is the number of characters in an identity.
const IdentityLength = 8

// GenerateIdentity returns a random identity. intn must return a value
// in [0, n); nil means math/rand/v2.IntN. The randomness does not need
// to be unpredictable: identities are addresses, not secrets.
func GenerateIdentity(intn func(n int) int) string {
	if intn == nil {
		intn = rand.IntN
	}
	var builder strings.Builder
	builder.Grow(IdentityLength)
	for range IdentityLength {
		builder.WriteByte(IdentityAlphabet[intn(len(IdentityAlphabet))])
	}
	return builder.String()
}

// NormalizeIdentity canonicalizes a typed-in identity: surrounding
// space is dropped and letters are upper-cased.
func NormalizeIdentity(input string) string {
	return strings.ToUpper(strings.TrimSpace(input))
}

// Identities persists this installation's identity.
type Identities struct {
	kv   KV
	intn func(int) int
}

// NewIdentities returns an identity store over kv. intn is passed to
// GenerateIdentity; nil selects the default source.
func NewIdentities(kv KV, intn func(int) int) *Identities {
	return &Identities{kv: kv, intn: intn}
}

// GetOrCreate returns the stored identity, generating and storing one
// if none exists yet.
func (s *Identities) GetOrCreate(ctx context.Context) (string, error) {
	var identity string
	err := s.kv.Update(ctx, identityKey, func(current []byte, found bool) ([]byte, error) {
		if found && len(current) > 0 {
			identity = string(current)
			return current, nil
		}
		identity = GenerateIdentity(s.intn)
		return []byte(identity), nil
	})
	if err != nil {
		return "", fmt.Errorf("loading identity: %w", err)
	}
	return identity, nil
}

// Regenerate replaces the stored identity with a fresh one. Peers that
// knew the old identity can no longer reach this installation; stored
// conversations are kept as they are.
func (s *Identities) Regenerate(ctx context.Context) (string, error) {
	identity := GenerateIdentity(s.intn)
	if err := s.kv.Put(ctx, identityKey, []byte(identity)); err != nil {
		return "", fmt.Errorf("saving regenerated identity: %w", err)
	}
	return identity, nil
}
