// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bureau-foundation/peerchat/lib/chatstore"
	"github.com/bureau-foundation/peerchat/lib/clock"
	"github.com/bureau-foundation/peerchat/transport"
)

// DefaultLivenessTimeout is how long a connection attempt may stay
// unopened before the peer is reported offline.
const DefaultLivenessTimeout = 4 * time.Second

// ErrStopped is returned by the public methods once Run has returned.
var ErrStopped = errors.New("session stopped")

// Endpoint is the part of transport.Endpoint a Session drives.
type Endpoint interface {
	Listen(ctx context.Context) error
	Dial(remote string) (transport.Conn, error)
	Close() error
}

var _ Endpoint = (*transport.Endpoint)(nil)

// EndpointFactory creates the endpoint for identity. Every event the
// endpoint produces must be passed to events.
type EndpointFactory func(identity string, events func(transport.Event)) (Endpoint, error)

// Config holds the parameters for New. Store and NewEndpoint are
// required.
type Config struct {
	Store       *chatstore.Store
	NewEndpoint EndpointFactory

	// Clock drives the liveness timeout. Nil means clock.Real().
	Clock clock.Clock

	// LivenessTimeout overrides DefaultLivenessTimeout.
	LivenessTimeout time.Duration

	// Updates receives everything the user should see, in order. It
	// is called from the event loop and must not call back into the
	// Session.
	Updates func(Update)

	// Logger receives diagnostics. Nil discards them.
	Logger *slog.Logger
}

// Session is one running chat client. Create it with New, start it
// with Run, and drive it with Connect, Send, SetNickname, and
// Regenerate from any goroutine.
type Session struct {
	store           *chatstore.Store
	newEndpoint     EndpointFactory
	clock           clock.Clock
	livenessTimeout time.Duration
	updates         func(Update)
	logger          *slog.Logger

	// Unbuffered: a sender returns only once the loop has taken its
	// value, so handling order follows posting order.
	commands chan command
	events   chan endpointEvent
	timeouts chan *attempt

	// stopped is closed when Run returns.
	stopped chan struct{}

	// Owned by the loop goroutine.
	identity     string
	listening    bool
	endpoint     Endpoint
	generation   int
	listenCancel context.CancelFunc
	active       *attempt
	currentPeer  string
}

type command struct {
	run  func(ctx context.Context) error
	done chan error
}

// endpointEvent tags an event with the endpoint generation that
// produced it. Regenerate starts a new generation.
type endpointEvent struct {
	generation int
	event      transport.Event
}

// New validates cfg and returns a Session that does nothing until Run.
func New(cfg Config) (*Session, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("session: Store is required")
	}
	if cfg.NewEndpoint == nil {
		return nil, fmt.Errorf("session: NewEndpoint is required")
	}

	s := &Session{
		store:           cfg.Store,
		newEndpoint:     cfg.NewEndpoint,
		clock:           cfg.Clock,
		livenessTimeout: cfg.LivenessTimeout,
		updates:         cfg.Updates,
		logger:          cfg.Logger,
		commands:        make(chan command),
		events:          make(chan endpointEvent),
		timeouts:        make(chan *attempt),
		stopped:         make(chan struct{}),
	}
	if s.clock == nil {
		s.clock = clock.Real()
	}
	if s.livenessTimeout <= 0 {
		s.livenessTimeout = DefaultLivenessTimeout
	}
	if s.updates == nil {
		s.updates = func(Update) {}
	}
	if s.logger == nil {
		s.logger = slog.New(slog.DiscardHandler)
	}
	return s, nil
}

// Run bootstraps the session and processes commands and transport
// events until ctx is cancelled. A bootstrap failure (unreadable
// identity, endpoint creation) is returned; after that nothing is
// fatal and Run returns nil. Run must be called exactly once.
func (s *Session) Run(ctx context.Context) error {
	defer close(s.stopped)

	if err := s.bootstrap(ctx); err != nil {
		return err
	}
	defer s.shutdown()

	for {
		select {
		case <-ctx.Done():
			return nil
		case cmd := <-s.commands:
			cmd.done <- cmd.run(ctx)
		case tagged := <-s.events:
			s.handleEvent(ctx, tagged)
		case timedOut := <-s.timeouts:
			s.handleTimeout(timedOut)
		}
	}
}

// Connect starts a connection attempt to peer, superseding any active
// connection. The input is trimmed and upper-cased. An empty target or
// our own identity is ignored.
func (s *Session) Connect(ctx context.Context, peer string) error {
	return s.call(ctx, func(ctx context.Context) error {
		s.connect(ctx, peer)
		return nil
	})
}

// Send sends text to the current peer and records it. It reports
// whether the message was dispatched; false means there was nothing
// to send or no open connection, and the caller should keep the
// input.
func (s *Session) Send(ctx context.Context, text string) bool {
	sent := false
	err := s.call(ctx, func(ctx context.Context) error {
		sent = s.send(ctx, text)
		return nil
	})
	return err == nil && sent
}

// SetNickname sets the local display name for peer. An empty name
// clears it.
func (s *Session) SetNickname(ctx context.Context, peer, name string) error {
	return s.call(ctx, func(ctx context.Context) error {
		return s.setNickname(ctx, peer, name)
	})
}

// Regenerate replaces the local identity with a fresh one and restarts
// the endpoint under it. The active connection is dropped; history is
// kept.
func (s *Session) Regenerate(ctx context.Context) error {
	return s.call(ctx, s.regenerate)
}

// call runs fn on the loop goroutine and waits for it.
func (s *Session) call(ctx context.Context, fn func(ctx context.Context) error) error {
	cmd := command{run: fn, done: make(chan error, 1)}
	select {
	case s.commands <- cmd:
	case <-s.stopped:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-cmd.done:
		return err
	case <-s.stopped:
		return ErrStopped
	}
}

// sink returns the event callback for one endpoint generation.
func (s *Session) sink(generation int) func(transport.Event) {
	return func(event transport.Event) {
		select {
		case s.events <- endpointEvent{generation: generation, event: event}:
		case <-s.stopped:
		}
	}
}

func (s *Session) bootstrap(ctx context.Context) error {
	identity, err := s.store.Identities.GetOrCreate(ctx)
	if err != nil {
		return fmt.Errorf("loading identity: %w", err)
	}
	s.identity = identity
	s.updates(IdentityUpdate{Identity: identity})
	s.logger.Info("session starting", "identity", identity)

	s.refreshRoster(ctx)

	lastPeer, err := s.store.LastPeer.Get(ctx)
	if err != nil {
		s.logger.Warn("restoring last peer failed", "error", err)
	}
	if lastPeer != "" {
		s.currentPeer = lastPeer
		s.showConversation(ctx)
	}

	if err := s.startEndpoint(); err != nil {
		return err
	}
	return nil
}

func (s *Session) startEndpoint() error {
	s.generation++
	endpoint, err := s.newEndpoint(s.identity, s.sink(s.generation))
	if err != nil {
		return fmt.Errorf("creating endpoint for %s: %w", s.identity, err)
	}
	s.endpoint = endpoint

	listenContext, cancel := context.WithCancel(context.Background())
	s.listenCancel = cancel
	go func() {
		if err := endpoint.Listen(listenContext); err != nil {
			s.logger.Error("endpoint listener stopped", "error", err)
		}
	}()
	return nil
}

func (s *Session) stopEndpoint() {
	if s.listenCancel != nil {
		s.listenCancel()
		s.listenCancel = nil
	}
	if s.endpoint != nil {
		s.endpoint.Close()
		s.endpoint = nil
	}
	s.listening = false
}

func (s *Session) shutdown() {
	s.supersede()
	s.stopEndpoint()
	s.logger.Info("session stopped", "identity", s.identity)
}

func (s *Session) status(text string) {
	s.updates(StatusUpdate{Text: text})
}

func (s *Session) refreshRoster(ctx context.Context) {
	peers, err := s.store.Conversations.Peers(ctx)
	if err != nil {
		s.logger.Warn("listing roster failed", "error", err)
		return
	}
	entries := make([]RosterEntry, 0, len(peers))
	for _, peer := range peers {
		entries = append(entries, RosterEntry{
			Peer:  peer,
			Label: s.store.Nicknames.DisplayName(ctx, peer),
		})
	}
	s.updates(RosterUpdate{Entries: entries})
}

// showConversation re-renders the current peer's history. A corrupt
// record is shown empty with a status line and left untouched.
func (s *Session) showConversation(ctx context.Context) {
	peer := s.currentPeer
	label := s.store.Nicknames.DisplayName(ctx, peer)

	messages, err := s.store.Conversations.Load(ctx, peer)
	if err != nil {
		s.logger.Error("loading conversation failed", "peer", peer, "error", err)
		s.updates(ConversationUpdate{Peer: peer, Label: label, Messages: []chatstore.Message{}})
		if errors.Is(err, chatstore.ErrCorrupt) {
			s.status(corruptStatus(label))
		}
		return
	}
	s.updates(ConversationUpdate{Peer: peer, Label: label, Messages: messages})
}

func (s *Session) setNickname(ctx context.Context, peer, name string) error {
	peer = chatstore.NormalizeIdentity(peer)
	if peer == "" {
		return nil
	}
	if err := s.store.Nicknames.Set(ctx, peer, name); err != nil {
		return err
	}
	s.refreshRoster(ctx)
	if peer == s.currentPeer {
		s.showConversation(ctx)
	}
	return nil
}

func (s *Session) regenerate(ctx context.Context) error {
	identity, err := s.store.Identities.Regenerate(ctx)
	if err != nil {
		return fmt.Errorf("regenerating identity: %w", err)
	}

	s.supersede()
	s.stopEndpoint()

	previous := s.identity
	s.identity = identity
	s.updates(IdentityUpdate{Identity: identity})
	s.logger.Info("identity regenerated", "previous", previous, "identity", identity)

	if err := s.startEndpoint(); err != nil {
		s.logger.Error("restarting endpoint failed", "error", err)
		return err
	}
	s.status(StatusRegenerated)
	return nil
}
