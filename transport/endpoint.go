// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pion/webrtc/v4"

	"github.com/bureau-foundation/peerchat/lib/clock"
)

// defaultPollInterval is how often the endpoint asks the signaler for
// offers, and how often a dial asks for its answer.
const defaultPollInterval = time.Second

// iceGatherTimeout bounds ICE candidate gathering before the SDP is
// published.
const iceGatherTimeout = 15 * time.Second

// answerTimeout bounds how long a dial waits for its answer when no
// one closes it sooner.
const answerTimeout = 30 * time.Second

// withdrawTimeout bounds the request that withdraws an abandoned offer.
// The dial's own context is already cancelled by then.
const withdrawTimeout = 5 * time.Second

// chatChannelLabel names the data channel that carries chat text.
const chatChannelLabel = "chat"

// ErrNotOpen is returned by Send on a connection that is not open.
var ErrNotOpen = errors.New("connection is not open")

// EndpointConfig holds the parameters for NewEndpoint. Identity and
// Signaler are required.
type EndpointConfig struct {
	// Identity is the address peers dial to reach this endpoint.
	Identity string

	// Signaler carries offers and answers.
	Signaler Signaler

	// ICE lists the STUN/TURN servers. Empty means host candidates
	// only, which is enough on one machine or one LAN.
	ICE ICEConfig

	// PollInterval overrides defaultPollInterval.
	PollInterval time.Duration

	// Clock drives polling and timeouts. Nil means clock.Real().
	Clock clock.Clock

	// Events receives every Event. It is called from pion and
	// signaling goroutines and must not block for long.
	Events func(Event)

	// Logger receives diagnostics. Nil discards them.
	Logger *slog.Logger
}

// Endpoint is this installation's presence on the network. Endpoint
// is safe for concurrent use.
type Endpoint struct {
	identity     string
	signaler     Signaler
	iceConfig    ICEConfig
	pollInterval time.Duration
	clock        clock.Clock
	events       func(Event)
	logger       *slog.Logger

	mu    sync.Mutex
	conns map[*peerConn]struct{}

	closed    chan struct{}
	closeOnce sync.Once
}

// NewEndpoint creates an endpoint. Nothing touches the network until
// Listen or Dial is called.
func NewEndpoint(cfg EndpointConfig) (*Endpoint, error) {
	if cfg.Identity == "" {
		return nil, fmt.Errorf("transport: Identity is required")
	}
	if cfg.Signaler == nil {
		return nil, fmt.Errorf("transport: Signaler is required")
	}

	endpoint := &Endpoint{
		identity:     cfg.Identity,
		signaler:     cfg.Signaler,
		iceConfig:    cfg.ICE,
		pollInterval: cfg.PollInterval,
		clock:        cfg.Clock,
		events:       cfg.Events,
		logger:       cfg.Logger,
		conns:        make(map[*peerConn]struct{}),
		closed:       make(chan struct{}),
	}
	if endpoint.pollInterval <= 0 {
		endpoint.pollInterval = defaultPollInterval
	}
	if endpoint.clock == nil {
		endpoint.clock = clock.Real()
	}
	if endpoint.events == nil {
		endpoint.events = func(Event) {}
	}
	if endpoint.logger == nil {
		endpoint.logger = slog.New(slog.DiscardHandler)
	}
	return endpoint, nil
}

// Identity returns the identity this endpoint answers to.
func (e *Endpoint) Identity() string {
	return e.identity
}

// Listen polls the signaler for offers addressed to this endpoint and
// answers them. EventListening is emitted after the first successful
// poll; an unreachable signaler is retried every poll interval. Listen
// blocks until ctx is cancelled or Close is called and returns nil.
func (e *Endpoint) Listen(ctx context.Context) error {
	ticker := e.clock.NewTicker(e.pollInterval)
	defer ticker.Stop()

	listening := false
	for {
		if e.pollOffers(ctx) && !listening {
			listening = true
			e.logger.Info("endpoint listening", "identity", e.identity)
			e.events(Event{Type: EventListening, Identity: e.identity})
		}

		select {
		case <-ctx.Done():
			return nil
		case <-e.closed:
			return nil
		case <-ticker.C:
		}
	}
}

// Dial starts connecting to remote and returns the connection at once.
// Signaling continues in the background; the outcome arrives as
// EventOpen or EventError for the returned Conn.
func (e *Endpoint) Dial(remote string) (Conn, error) {
	select {
	case <-e.closed:
		return nil, fmt.Errorf("dialing %s: endpoint closed", remote)
	default:
	}

	pc, err := e.newPeerConnection()
	if err != nil {
		return nil, fmt.Errorf("dialing %s: creating PeerConnection: %w", remote, err)
	}

	ordered := true
	channel, err := pc.CreateDataChannel(chatChannelLabel, &webrtc.DataChannelInit{
		Ordered: &ordered,
	})
	if err != nil {
		pc.Close()
		return nil, fmt.Errorf("dialing %s: creating data channel: %w", remote, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	conn := e.newConn(pc, remote, uuid.NewString(), true, cancel)
	conn.attach(channel)
	e.track(conn)

	go func() {
		err := e.establishOutbound(ctx, conn)
		if err == nil || ctx.Err() != nil {
			return
		}
		e.logger.Warn("dial failed", "peer", remote, "error", err)
		conn.fail(err)
	}()

	return conn, nil
}

// Close tears down every connection and stops Listen. Close is
// idempotent.
func (e *Endpoint) Close() error {
	e.closeOnce.Do(func() { close(e.closed) })

	e.mu.Lock()
	conns := make([]*peerConn, 0, len(e.conns))
	for conn := range e.conns {
		conns = append(conns, conn)
	}
	e.mu.Unlock()

	for _, conn := range conns {
		conn.Close()
	}
	return nil
}

// establishOutbound publishes the offer for conn and applies the
// answer once it arrives.
func (e *Endpoint) establishOutbound(ctx context.Context, conn *peerConn) error {
	offer, err := conn.pc.CreateOffer(nil)
	if err != nil {
		return fmt.Errorf("creating SDP offer: %w", err)
	}
	if err := e.setLocalAndGather(ctx, conn.pc, offer); err != nil {
		return err
	}

	err = e.signaler.PublishOffer(ctx, Signal{
		From:    e.identity,
		To:      conn.peer,
		Session: conn.session,
		SDP:     conn.pc.LocalDescription().SDP,
	})
	if err != nil {
		// A cancelled publish may still have reached the broker.
		if ctx.Err() != nil {
			e.withdrawOffer(conn)
		}
		return fmt.Errorf("publishing SDP offer: %w", err)
	}
	e.logger.Debug("offer published", "peer", conn.peer, "session", conn.session)

	answer, err := e.waitForAnswer(ctx, conn.session)
	if err != nil {
		e.withdrawOffer(conn)
		return fmt.Errorf("waiting for SDP answer from %s: %w", conn.peer, err)
	}

	err = conn.pc.SetRemoteDescription(webrtc.SessionDescription{
		Type: webrtc.SDPTypeAnswer,
		SDP:  answer.SDP,
	})
	if err != nil {
		return fmt.Errorf("setting remote description: %w", err)
	}
	e.logger.Debug("answer applied", "peer", conn.peer, "session", conn.session)
	return nil
}

func (e *Endpoint) waitForAnswer(ctx context.Context, session string) (Signal, error) {
	deadline := e.clock.After(answerTimeout)
	ticker := e.clock.NewTicker(e.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return Signal{}, ctx.Err()
		case <-e.closed:
			return Signal{}, fmt.Errorf("endpoint closed")
		case <-deadline:
			return Signal{}, fmt.Errorf("timed out after %s", answerTimeout)
		case <-ticker.C:
			answer, found, err := e.signaler.PollAnswer(ctx, e.identity, session)
			if err != nil {
				e.logger.Warn("polling for SDP answer failed", "error", err)
				continue
			}
			if found {
				return answer, nil
			}
		}
	}
}

// withdrawOffer takes back the offer of a dial that ended unanswered,
// so a peer that starts listening later never answers it.
func (e *Endpoint) withdrawOffer(conn *peerConn) {
	ctx, cancel := context.WithTimeout(context.Background(), withdrawTimeout)
	defer cancel()
	if err := e.signaler.WithdrawOffer(ctx, e.identity, conn.peer, conn.session); err != nil {
		e.logger.Info("withdrawing offer failed", "peer", conn.peer, "error", err)
		return
	}
	e.logger.Debug("offer withdrawn", "peer", conn.peer, "session", conn.session)
}

// pollOffers answers every pending offer. It reports whether the
// signaler could be reached.
func (e *Endpoint) pollOffers(ctx context.Context) bool {
	offers, err := e.signaler.PollOffers(ctx, e.identity)
	if err != nil {
		e.logger.Warn("polling for SDP offers failed", "error", err)
		return false
	}

	for _, offer := range offers {
		if e.yieldsTo(offer) {
			e.logger.Debug("ignoring crossed offer", "peer", offer.From)
			continue
		}
		if err := e.answerOffer(ctx, offer); err != nil {
			e.logger.Error("answering offer failed", "peer", offer.From, "error", err)
		}
	}
	return true
}

// yieldsTo reports whether an inbound offer loses a crossed dial: we
// are dialing offer.From ourselves, the dial has not opened, and our
// identity sorts first, so the peer will answer our offer instead.
func (e *Endpoint) yieldsTo(offer Signal) bool {
	if e.identity > offer.From {
		return false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	for conn := range e.conns {
		if conn.outbound && conn.peer == offer.From && !conn.isOpen() {
			return true
		}
	}
	return false
}

// answerOffer accepts an inbound offer. EventOffered is emitted before
// the answer is published, so it precedes every other event for the
// connection.
func (e *Endpoint) answerOffer(ctx context.Context, offer Signal) error {
	pc, err := e.newPeerConnection()
	if err != nil {
		return fmt.Errorf("creating PeerConnection: %w", err)
	}

	conn := e.newConn(pc, offer.From, offer.Session, false, func() {})
	pc.OnDataChannel(func(channel *webrtc.DataChannel) {
		if channel.Label() != chatChannelLabel {
			e.logger.Debug("ignoring data channel", "peer", offer.From, "label", channel.Label())
			return
		}
		conn.attach(channel)
	})

	err = pc.SetRemoteDescription(webrtc.SessionDescription{
		Type: webrtc.SDPTypeOffer,
		SDP:  offer.SDP,
	})
	if err != nil {
		pc.Close()
		return fmt.Errorf("setting remote description: %w", err)
	}

	answer, err := pc.CreateAnswer(nil)
	if err != nil {
		pc.Close()
		return fmt.Errorf("creating SDP answer: %w", err)
	}
	if err := e.setLocalAndGather(ctx, pc, answer); err != nil {
		pc.Close()
		return err
	}

	e.track(conn)
	e.events(Event{Type: EventOffered, Conn: conn})

	err = e.signaler.PublishAnswer(ctx, Signal{
		From:    e.identity,
		To:      offer.From,
		Session: offer.Session,
		SDP:     pc.LocalDescription().SDP,
	})
	if err != nil {
		conn.fail(fmt.Errorf("publishing SDP answer: %w", err))
		return fmt.Errorf("publishing SDP answer: %w", err)
	}

	e.logger.Info("inbound connection answered", "peer", offer.From)
	return nil
}

func (e *Endpoint) setLocalAndGather(ctx context.Context, pc *webrtc.PeerConnection, description webrtc.SessionDescription) error {
	gatherComplete := webrtc.GatheringCompletePromise(pc)
	if err := pc.SetLocalDescription(description); err != nil {
		return fmt.Errorf("setting local description: %w", err)
	}

	select {
	case <-gatherComplete:
		return nil
	case <-e.clock.After(iceGatherTimeout):
		return fmt.Errorf("ICE gathering timed out after %s", iceGatherTimeout)
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *Endpoint) newPeerConnection() (*webrtc.PeerConnection, error) {
	// Loopback candidates let two endpoints on one host find each
	// other with no STUN server configured.
	settingEngine := webrtc.SettingEngine{}
	settingEngine.SetIncludeLoopbackCandidate(true)

	api := webrtc.NewAPI(webrtc.WithSettingEngine(settingEngine))
	return api.NewPeerConnection(webrtc.Configuration{
		ICEServers: e.iceConfig.Servers,
	})
}

func (e *Endpoint) newConn(pc *webrtc.PeerConnection, peer, session string, outbound bool, cancel context.CancelFunc) *peerConn {
	conn := &peerConn{
		endpoint: e,
		pc:       pc,
		peer:     peer,
		session:  session,
		outbound: outbound,
		cancel:   cancel,
	}
	pc.OnConnectionStateChange(conn.handleConnectionState)
	return conn
}

func (e *Endpoint) track(conn *peerConn) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.conns[conn] = struct{}{}
}

func (e *Endpoint) untrack(conn *peerConn) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.conns, conn)
}
