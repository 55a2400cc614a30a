// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"context"
	"errors"
	"strings"

	"github.com/bureau-foundation/peerchat/lib/chatstore"
	"github.com/bureau-foundation/peerchat/lib/clock"
	"github.com/bureau-foundation/peerchat/transport"
)

// attemptState is where a connection attempt is in its lifecycle.
type attemptState int

const (
	stateConnecting attemptState = iota
	stateOpen
	stateFailed
	stateClosed
)

func (s attemptState) String() string {
	switch s {
	case stateConnecting:
		return "connecting"
	case stateOpen:
		return "open"
	case stateFailed:
		return "failed"
	case stateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// attempt is one connection, outbound or inbound. Only the loop
// goroutine touches it.
type attempt struct {
	conn    transport.Conn
	peer    string
	inbound bool
	state   attemptState
	timer   *clock.Timer
}

// connect handles a user-initiated attempt.
func (s *Session) connect(ctx context.Context, input string) {
	peer := chatstore.NormalizeIdentity(input)
	if peer == "" || peer == s.identity {
		return
	}

	s.supersede()
	s.currentPeer = peer
	if err := s.store.Conversations.Touch(ctx, peer); err != nil {
		s.logger.Warn("recording peer failed", "peer", peer, "error", err)
	}
	s.refreshRoster(ctx)
	s.showConversation(ctx)
	s.status(StatusAttempting)

	if s.endpoint == nil {
		s.status(StatusOffline)
		return
	}
	conn, err := s.endpoint.Dial(peer)
	if err != nil {
		s.logger.Warn("dial failed", "peer", peer, "error", err)
		s.status(StatusOffline)
		return
	}
	s.begin(conn, false)
	s.logger.Info("connection attempt started", "peer", peer)
}

// accept handles an inbound offer. Offers are accepted
// unconditionally and supersede whatever was active.
func (s *Session) accept(ctx context.Context, conn transport.Conn) {
	peer := conn.Peer()

	s.supersede()
	s.currentPeer = peer
	if err := s.store.LastPeer.Set(ctx, peer); err != nil {
		s.logger.Warn("recording last peer failed", "peer", peer, "error", err)
	}
	if err := s.store.Conversations.Touch(ctx, peer); err != nil {
		s.logger.Warn("recording peer failed", "peer", peer, "error", err)
	}
	s.refreshRoster(ctx)
	s.showConversation(ctx)

	s.begin(conn, true)
	s.logger.Info("inbound connection accepted", "peer", peer)
}

// begin makes conn the active attempt and arms its liveness timer.
func (s *Session) begin(conn transport.Conn, inbound bool) {
	current := &attempt{
		conn:    conn,
		peer:    conn.Peer(),
		inbound: inbound,
		state:   stateConnecting,
	}
	current.timer = s.clock.AfterFunc(s.livenessTimeout, func() {
		select {
		case s.timeouts <- current:
		case <-s.stopped:
		}
	})
	s.active = current
}

// supersede closes the active connection, whatever its state, and
// empties the slot. No status is emitted.
func (s *Session) supersede() {
	previous := s.active
	if previous == nil {
		return
	}
	s.active = nil
	previous.timer.Stop()
	if err := previous.conn.Close(); err != nil {
		s.logger.Debug("closing superseded connection", "peer", previous.peer, "error", err)
	}
}

func (s *Session) handleEvent(ctx context.Context, tagged endpointEvent) {
	event := tagged.event
	if tagged.generation != s.generation {
		s.logger.Debug("ignoring event from retired endpoint", "type", event.Type)
		if event.Type == transport.EventOffered {
			event.Conn.Close()
		}
		return
	}

	switch event.Type {
	case transport.EventListening:
		if event.Identity == s.identity && !s.listening {
			s.listening = true
			s.updates(IdentityUpdate{Identity: s.identity, Listening: true})
		}
		return
	case transport.EventOffered:
		s.accept(ctx, event.Conn)
		return
	}

	current := s.active
	if current == nil || event.Conn != current.conn {
		s.logger.Debug("ignoring stale event", "type", event.Type)
		return
	}

	switch event.Type {
	case transport.EventOpen:
		s.handleOpen(ctx, current)
	case transport.EventData:
		s.handleData(ctx, current, event.Data)
	case transport.EventError:
		s.logger.Info("connection error", "peer", current.peer, "state", current.state, "error", event.Err)
		switch current.state {
		case stateConnecting:
			s.fail(current)
		case stateOpen:
			s.end(current)
		}
	case transport.EventClose:
		switch current.state {
		case stateConnecting:
			s.fail(current)
		case stateOpen:
			s.end(current)
		}
	}
}

func (s *Session) handleOpen(ctx context.Context, current *attempt) {
	if current.state != stateConnecting {
		return
	}
	current.state = stateOpen
	current.timer.Stop()

	if err := s.store.LastPeer.Set(ctx, current.peer); err != nil {
		s.logger.Warn("recording last peer failed", "peer", current.peer, "error", err)
	}
	s.status(StatusConnected)
	s.logger.Info("connection open", "peer", current.peer, "inbound", current.inbound)
}

func (s *Session) handleData(ctx context.Context, current *attempt, text string) {
	if current.state != stateOpen {
		return
	}
	message := chatstore.Message{Sender: chatstore.SenderPeer, Text: text}
	s.updates(MessageUpdate{Peer: current.peer, Message: message})

	if err := s.store.Conversations.Append(ctx, current.peer, message.Sender, message.Text); err != nil {
		s.logger.Error("storing received message failed", "peer", current.peer, "error", err)
	}
}

func (s *Session) handleTimeout(timedOut *attempt) {
	if timedOut != s.active || timedOut.state != stateConnecting {
		return
	}
	s.logger.Info("connection attempt timed out", "peer", timedOut.peer, "timeout", s.livenessTimeout)
	s.fail(timedOut)
}

// fail ends an attempt that never opened. The attempt stays in the
// slot as failed so later triggers for it are ignored.
func (s *Session) fail(current *attempt) {
	current.state = stateFailed
	current.timer.Stop()
	current.conn.Close()
	s.status(StatusOffline)
}

// end finishes an attempt that had opened.
func (s *Session) end(current *attempt) {
	current.state = stateClosed
	current.conn.Close()
	s.status(StatusClosed)
	s.logger.Info("connection closed", "peer", current.peer)
}

// send renders, stores, and transmits text on the open connection.
func (s *Session) send(ctx context.Context, text string) bool {
	text = strings.TrimSpace(text)
	current := s.active
	if text == "" || current == nil || current.state != stateOpen || s.currentPeer == "" {
		return false
	}

	message := chatstore.Message{Sender: chatstore.SenderSelf, Text: text}
	s.updates(MessageUpdate{Peer: current.peer, Message: message})

	if err := s.store.Conversations.Append(ctx, current.peer, message.Sender, message.Text); err != nil {
		s.logger.Error("storing sent message failed", "peer", current.peer, "error", err)
		if errors.Is(err, chatstore.ErrCorrupt) {
			s.status(corruptStatus(s.store.Nicknames.DisplayName(ctx, current.peer)))
		}
	}

	if err := current.conn.Send(text); err != nil {
		s.logger.Info("sending message failed", "peer", current.peer, "error", err)
	}
	return true
}
