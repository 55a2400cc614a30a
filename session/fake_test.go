// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/bureau-foundation/peerchat/transport"
)

// journal records transport calls in order across every fake.
type journal struct {
	mu      sync.Mutex
	entries []string
}

func (j *journal) add(format string, args ...any) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries = append(j.entries, fmt.Sprintf(format, args...))
}

func (j *journal) snapshot() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]string(nil), j.entries...)
}

// fakeEndpoint stands in for transport.Endpoint. Tests push events
// through emit exactly as pion callbacks would.
type fakeEndpoint struct {
	identity string
	events   func(transport.Event)
	journal  *journal

	mu     sync.Mutex
	dials  []*fakeConn
	closed bool

	dialErr error
}

func (e *fakeEndpoint) Listen(ctx context.Context) error {
	e.events(transport.Event{Type: transport.EventListening, Identity: e.identity})
	<-ctx.Done()
	return nil
}

func (e *fakeEndpoint) Dial(remote string) (transport.Conn, error) {
	if e.dialErr != nil {
		return nil, e.dialErr
	}
	conn := &fakeConn{peer: remote, journal: e.journal}
	e.mu.Lock()
	e.dials = append(e.dials, conn)
	e.mu.Unlock()
	e.journal.add("dial %s", remote)
	return conn, nil
}

func (e *fakeEndpoint) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	e.journal.add("endpoint close %s", e.identity)
	return nil
}

func (e *fakeEndpoint) isClosed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.closed
}

func (e *fakeEndpoint) dialCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.dials)
}

// emit delivers an event and returns once the session loop has
// taken it.
func (e *fakeEndpoint) emit(eventType transport.EventType, conn transport.Conn) {
	e.events(transport.Event{Type: eventType, Conn: conn})
}

func (e *fakeEndpoint) emitData(conn transport.Conn, text string) {
	e.events(transport.Event{Type: transport.EventData, Conn: conn, Data: text})
}

func (e *fakeEndpoint) emitError(conn transport.Conn) {
	e.events(transport.Event{Type: transport.EventError, Conn: conn, Err: errors.New("peer unavailable")})
}

// fakeConn is a transport.Conn that records what was sent and whether
// it was closed.
type fakeConn struct {
	peer    string
	journal *journal

	mu      sync.Mutex
	sent    []string
	closes  int
	sendErr error
}

func (c *fakeConn) Peer() string { return c.peer }

func (c *fakeConn) Send(text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sendErr != nil {
		return c.sendErr
	}
	c.sent = append(c.sent, text)
	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closes++
	c.journal.add("close %s", c.peer)
	return nil
}

func (c *fakeConn) sentTexts() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.sent...)
}

func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closes > 0
}
