// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"
	"time"
)

// Signaler exchanges SDP offers and answers between endpoints that
// cannot reach each other yet.
type Signaler interface {
	// PublishOffer makes offer available to offer.To. A newer offer
	// from the same sender to the same target replaces an older one.
	PublishOffer(ctx context.Context, offer Signal) error

	// PublishAnswer makes answer available to the dialer that sent
	// the offer with the same Session.
	PublishAnswer(ctx context.Context, answer Signal) error

	// PollOffers returns and removes every pending offer addressed to
	// identity, oldest first.
	PollOffers(ctx context.Context, identity string) ([]Signal, error)

	// WithdrawOffer removes the pending offer from one endpoint to
	// another if it still belongs to session. Withdrawing an offer
	// that was already claimed, replaced, or expired is not an error.
	WithdrawOffer(ctx context.Context, from, to, session string) error

	// PollAnswer returns and removes the answer for session if it
	// has arrived. found is false while the peer has not answered.
	PollAnswer(ctx context.Context, identity, session string) (answer Signal, found bool, err error)
}

// Signal is an SDP offer or answer.
type Signal struct {
	// From is the identity of the endpoint that published the signal.
	From string `json:"from"`

	// To is the identity the signal is addressed to.
	To string `json:"to"`

	// Session identifies the dial this signal belongs to. An answer
	// carries the Session of the offer it answers.
	Session string `json:"session"`

	// SDP is the complete session description with every ICE
	// candidate embedded.
	SDP string `json:"sdp"`

	// Published is stamped by the signaler when the signal is stored.
	Published time.Time `json:"published,omitzero"`
}

func (s Signal) valid() bool {
	return s.From != "" && s.To != "" && s.Session != "" && s.SDP != ""
}
