// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"
	"errors"
	"sync"

	"github.com/pion/webrtc/v4"
)

var _ Conn = (*peerConn)(nil)

// peerConn is a Conn backed by one PeerConnection and its chat data
// channel. It turns pion callbacks into Events and guarantees that at
// most one of EventError and EventClose is emitted, after which the
// connection goes quiet.
type peerConn struct {
	endpoint *Endpoint
	pc       *webrtc.PeerConnection
	peer     string
	session  string
	outbound bool

	// cancel stops outbound signaling.
	cancel context.CancelFunc

	mu       sync.Mutex
	channel  *webrtc.DataChannel
	opened   bool
	finished bool // EventError or EventClose emitted
	closed   bool // Close called locally
}

func (c *peerConn) Peer() string { return c.peer }

func (c *peerConn) Send(text string) error {
	c.mu.Lock()
	channel := c.channel
	usable := c.opened && !c.finished && !c.closed && channel != nil
	c.mu.Unlock()

	if !usable {
		return ErrNotOpen
	}
	return channel.SendText(text)
}

// Close is best-effort: the pion teardown runs in the background and
// is not awaited. No event is emitted for a local close.
func (c *peerConn) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	channel := c.channel
	c.mu.Unlock()

	c.cancel()
	c.endpoint.untrack(c)

	go func() {
		if channel != nil {
			channel.Close()
		}
		if err := c.pc.Close(); err != nil {
			c.endpoint.logger.Debug("closing PeerConnection", "peer", c.peer, "error", err)
		}
	}()
	return nil
}

func (c *peerConn) isOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.opened && !c.finished && !c.closed
}

// attach wires the chat data channel's callbacks to this connection.
func (c *peerConn) attach(channel *webrtc.DataChannel) {
	c.mu.Lock()
	c.channel = channel
	c.mu.Unlock()

	channel.OnOpen(c.handleOpen)
	channel.OnMessage(func(message webrtc.DataChannelMessage) {
		c.handleData(string(message.Data))
	})
	channel.OnError(func(err error) {
		c.fail(err)
	})
	channel.OnClose(c.handleRemoteClose)
}

func (c *peerConn) handleOpen() {
	c.mu.Lock()
	if c.opened || c.finished || c.closed {
		c.mu.Unlock()
		return
	}
	c.opened = true
	c.mu.Unlock()

	c.endpoint.logger.Info("connection open", "peer", c.peer, "outbound", c.outbound)
	c.endpoint.events(Event{Type: EventOpen, Conn: c})
}

func (c *peerConn) handleData(text string) {
	c.mu.Lock()
	quiet := c.finished || c.closed
	c.mu.Unlock()
	if quiet {
		return
	}
	c.endpoint.events(Event{Type: EventData, Conn: c, Data: text})
}

// fail reports err once, unless the connection already finished or
// was closed locally.
func (c *peerConn) fail(err error) {
	if !c.finish() {
		return
	}
	c.endpoint.logger.Info("connection failed", "peer", c.peer, "error", err)
	c.endpoint.events(Event{Type: EventError, Conn: c, Err: err})
}

func (c *peerConn) handleRemoteClose() {
	if !c.finish() {
		return
	}
	c.endpoint.logger.Info("connection closed by peer", "peer", c.peer)
	c.endpoint.events(Event{Type: EventClose, Conn: c})
}

// handleConnectionState maps PeerConnection failures onto the
// connection lifecycle. Before open a failure means the peer is
// unreachable; after open it means the link dropped.
func (c *peerConn) handleConnectionState(state webrtc.PeerConnectionState) {
	c.endpoint.logger.Debug("peer connection state", "peer", c.peer, "state", state.String())

	switch state {
	case webrtc.PeerConnectionStateFailed:
		if c.wasOpened() {
			c.handleRemoteClose()
		} else {
			c.fail(errors.New("ICE negotiation failed"))
		}
	case webrtc.PeerConnectionStateDisconnected, webrtc.PeerConnectionStateClosed:
		if c.wasOpened() {
			c.handleRemoteClose()
		}
	}
}

func (c *peerConn) wasOpened() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.opened
}

// finish marks the connection finished. It reports false if the
// connection had already finished or was closed locally, in which case
// the caller must stay silent.
func (c *peerConn) finish() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.finished || c.closed {
		return false
	}
	c.finished = true
	return true
}
