// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/bureau-foundation/peerchat/lib/clock"
)

// signalTTL bounds how long an unclaimed signal is kept. A dial gives
// up long before this, so anything older is for an attempt that no
// longer exists.
const signalTTL = 60 * time.Second

// signalingSeparator joins sender and target into an offer key.
// Identities are alphanumeric, so it cannot be ambiguous.
const signalingSeparator = "|"

// ErrInvalidSignal is returned for a signal missing From, To, Session,
// or SDP.
var ErrInvalidSignal = errors.New("signal is missing from, to, session, or sdp")

var _ Signaler = (*MemorySignaler)(nil)

// MemorySignaler is an in-process Signaler. Endpoints sharing one
// MemorySignaler can connect without a broker; the Broker serves one
// over HTTP.
type MemorySignaler struct {
	clock clock.Clock

	mu      sync.Mutex
	offers  map[string]Signal // key: from|to
	answers map[string]Signal // key: session
}

// NewMemorySignaler returns an empty MemorySignaler. Signals expire
// signalTTL after they are published, measured on c.
func NewMemorySignaler(c clock.Clock) *MemorySignaler {
	return &MemorySignaler{
		clock:   c,
		offers:  make(map[string]Signal),
		answers: make(map[string]Signal),
	}
}

func (s *MemorySignaler) PublishOffer(_ context.Context, offer Signal) error {
	if !offer.valid() {
		return ErrInvalidSignal
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	offer.Published = s.clock.Now()
	s.offers[offer.From+signalingSeparator+offer.To] = offer
	return nil
}

func (s *MemorySignaler) PublishAnswer(_ context.Context, answer Signal) error {
	if !answer.valid() {
		return ErrInvalidSignal
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	answer.Published = s.clock.Now()
	s.answers[answer.Session] = answer
	return nil
}

func (s *MemorySignaler) PollOffers(_ context.Context, identity string) ([]Signal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expireLocked()

	var offers []Signal
	for key, offer := range s.offers {
		if offer.To != identity {
			continue
		}
		offers = append(offers, offer)
		delete(s.offers, key)
	}
	sort.Slice(offers, func(i, j int) bool {
		return offers[i].Published.Before(offers[j].Published)
	})
	return offers, nil
}

func (s *MemorySignaler) WithdrawOffer(_ context.Context, from, to, session string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := from + signalingSeparator + to
	if offer, found := s.offers[key]; found && offer.Session == session {
		delete(s.offers, key)
	}
	return nil
}

func (s *MemorySignaler) PollAnswer(_ context.Context, identity, session string) (Signal, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expireLocked()

	answer, found := s.answers[session]
	if !found || answer.To != identity {
		return Signal{}, false, nil
	}
	delete(s.answers, session)
	return answer, true, nil
}

// Pending returns the number of unclaimed offers and answers.
func (s *MemorySignaler) Pending() (offers, answers int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expireLocked()
	return len(s.offers), len(s.answers)
}

func (s *MemorySignaler) expireLocked() {
	cutoff := s.clock.Now().Add(-signalTTL)
	for key, offer := range s.offers {
		if offer.Published.Before(cutoff) {
			delete(s.offers, key)
		}
	}
	for key, answer := range s.answers {
		if answer.Published.Before(cutoff) {
			delete(s.answers, key)
		}
	}
}
