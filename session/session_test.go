// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/bureau-foundation/peerchat/lib/chatstore"
	"github.com/bureau-foundation/peerchat/lib/clock"
	"github.com/bureau-foundation/peerchat/lib/testutil"
	"github.com/bureau-foundation/peerchat/transport"
)

const testTimeout = 5 * time.Second

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

// harness runs a Session against MemoryKV, a fake clock, and fake
// endpoints.
type harness struct {
	t         *testing.T
	session   *Session
	kv        *chatstore.MemoryKV
	store     *chatstore.Store
	clock     *clock.FakeClock
	journal   *journal
	updates   chan Update
	endpoints chan *fakeEndpoint
	done      chan error
	cancel    context.CancelFunc

	endpoint  *fakeEndpoint
	identity  string
	bootstrap []Update
}

func newHarness(t *testing.T, prepare func(ctx context.Context, kv *chatstore.MemoryKV, store *chatstore.Store)) *harness {
	t.Helper()

	kv := chatstore.NewMemoryKV()
	store := chatstore.New(kv)
	if prepare != nil {
		prepare(context.Background(), kv, store)
	}

	h := &harness{
		t:         t,
		kv:        kv,
		store:     store,
		clock:     clock.Fake(epoch),
		journal:   &journal{},
		updates:   make(chan Update, 1024),
		endpoints: make(chan *fakeEndpoint, 8),
		done:      make(chan error, 1),
	}

	session, err := New(Config{
		Store: store,
		NewEndpoint: func(identity string, events func(transport.Event)) (Endpoint, error) {
			endpoint := &fakeEndpoint{identity: identity, events: events, journal: h.journal}
			h.endpoints <- endpoint
			return endpoint, nil
		},
		Clock:   h.clock,
		Updates: func(update Update) { h.updates <- update },
		Logger:  slog.New(slog.NewJSONHandler(io.Discard, nil)),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	h.session = session

	runContext, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	go func() { h.done <- session.Run(runContext) }()
	t.Cleanup(func() {
		cancel()
		select {
		case <-h.done:
		case <-time.After(testTimeout):
			t.Error("Run did not return after cancel")
		}
	})

	h.endpoint = testutil.RequireReceive(t, h.endpoints, testTimeout, "waiting for endpoint")
	h.identity = h.endpoint.identity
	h.bootstrap = h.waitFor(func(update Update) bool {
		identity, ok := update.(IdentityUpdate)
		return ok && identity.Listening
	})
	return h
}

// waitFor consumes updates until match returns true and returns
// everything consumed, the match included.
func (h *harness) waitFor(match func(Update) bool) []Update {
	h.t.Helper()
	var seen []Update
	for {
		update := testutil.RequireReceive(h.t, h.updates, testTimeout, "waiting for update")
		seen = append(seen, update)
		if match(update) {
			return seen
		}
	}
}

// waitForStatus consumes updates through the given status line.
func (h *harness) waitForStatus(text string) []Update {
	h.t.Helper()
	return h.waitFor(func(update Update) bool {
		status, ok := update.(StatusUpdate)
		return ok && status.Text == text
	})
}

// settle waits until the loop has finished everything posted before
// it and returns the updates produced.
func (h *harness) settle() []Update {
	h.t.Helper()
	if err := h.session.call(context.Background(), func(context.Context) error { return nil }); err != nil {
		h.t.Fatalf("settling session: %v", err)
	}
	var drained []Update
	for {
		select {
		case update := <-h.updates:
			drained = append(drained, update)
		default:
			return drained
		}
	}
}

func (h *harness) connect(peer string) {
	h.t.Helper()
	if err := h.session.Connect(context.Background(), peer); err != nil {
		h.t.Fatalf("Connect(%q): %v", peer, err)
	}
}

// lastDial returns the most recent outbound conn.
func (h *harness) lastDial() *fakeConn {
	h.t.Helper()
	h.endpoint.mu.Lock()
	defer h.endpoint.mu.Unlock()
	if len(h.endpoint.dials) == 0 {
		h.t.Fatal("no dial was made")
	}
	return h.endpoint.dials[len(h.endpoint.dials)-1]
}

// openTo connects to peer and opens the connection.
func (h *harness) openTo(peer string) *fakeConn {
	h.t.Helper()
	h.connect(peer)
	conn := h.lastDial()
	h.endpoint.emit(transport.EventOpen, conn)
	h.waitForStatus(StatusConnected)
	return conn
}

func statuses(updates []Update) []string {
	var texts []string
	for _, update := range updates {
		if status, ok := update.(StatusUpdate); ok {
			texts = append(texts, status.Text)
		}
	}
	return texts
}

func lastOf[T Update](t *testing.T, updates []Update) T {
	t.Helper()
	for index := len(updates) - 1; index >= 0; index-- {
		if typed, ok := updates[index].(T); ok {
			return typed
		}
	}
	var zero T
	t.Fatalf("no %T among %d updates", zero, len(updates))
	return zero
}

func rosterPeers(roster RosterUpdate) []string {
	peers := make([]string, 0, len(roster.Entries))
	for _, entry := range roster.Entries {
		peers = append(peers, entry.Peer)
	}
	return peers
}

func TestNewRequiresStoreAndFactory(t *testing.T) {
	factory := func(string, func(transport.Event)) (Endpoint, error) { return nil, nil }
	if _, err := New(Config{NewEndpoint: factory}); err == nil {
		t.Error("expected error without Store")
	}
	if _, err := New(Config{Store: chatstore.New(chatstore.NewMemoryKV())}); err == nil {
		t.Error("expected error without NewEndpoint")
	}
}

func TestBootstrapFreshInstall(t *testing.T) {
	h := newHarness(t, nil)

	if len(h.identity) != chatstore.IdentityLength {
		t.Fatalf("identity %q has length %d", h.identity, len(h.identity))
	}
	stored, err := h.store.Identities.GetOrCreate(context.Background())
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	if stored != h.identity {
		t.Errorf("persisted identity %q, endpoint opened as %q", stored, h.identity)
	}

	first, ok := h.bootstrap[0].(IdentityUpdate)
	if !ok || first.Identity != h.identity || first.Listening {
		t.Errorf("first update = %#v, want unlistening IdentityUpdate", h.bootstrap[0])
	}
	if roster := lastOf[RosterUpdate](t, h.bootstrap); len(roster.Entries) != 0 {
		t.Errorf("fresh roster = %v, want empty", roster.Entries)
	}
	for _, update := range h.bootstrap {
		if _, ok := update.(ConversationUpdate); ok {
			t.Errorf("fresh install rendered a conversation: %#v", update)
		}
	}
}

func TestBootstrapRestoresLastPeerWithoutConnecting(t *testing.T) {
	h := newHarness(t, func(ctx context.Context, _ *chatstore.MemoryKV, store *chatstore.Store) {
		store.Conversations.Append(ctx, "PEERX001", chatstore.SenderSelf, "hi")
		store.Conversations.Append(ctx, "PEERX001", chatstore.SenderPeer, "hello")
		store.Conversations.Append(ctx, "PEERY002", chatstore.SenderSelf, "yo")
		store.Nicknames.Set(ctx, "PEERY002", "Yan")
		store.LastPeer.Set(ctx, "PEERX001")
	})

	roster := lastOf[RosterUpdate](t, h.bootstrap)
	if got := rosterPeers(roster); !slices.Equal(got, []string{"PEERX001", "PEERY002"}) {
		t.Errorf("roster peers = %v", got)
	}
	if roster.Entries[1].Label != "Yan" {
		t.Errorf("PEERY002 label = %q, want Yan", roster.Entries[1].Label)
	}

	conversation := lastOf[ConversationUpdate](t, h.bootstrap)
	if conversation.Peer != "PEERX001" {
		t.Fatalf("restored conversation for %q, want PEERX001", conversation.Peer)
	}
	want := []chatstore.Message{
		{Sender: chatstore.SenderSelf, Text: "hi"},
		{Sender: chatstore.SenderPeer, Text: "hello"},
	}
	if !slices.Equal(conversation.Messages, want) {
		t.Errorf("restored messages = %v, want %v", conversation.Messages, want)
	}

	h.settle()
	if count := h.endpoint.dialCount(); count != 0 {
		t.Errorf("bootstrap dialed %d times, want 0", count)
	}
}

func TestConnectOpenAndExchange(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	h.connect("  peerb001 ")
	attemptUpdates := h.waitForStatus(StatusAttempting)

	conn := h.lastDial()
	if conn.Peer() != "PEERB001" {
		t.Fatalf("dialed %q, want normalized PEERB001", conn.Peer())
	}
	if roster := lastOf[RosterUpdate](t, attemptUpdates); !slices.Contains(rosterPeers(roster), "PEERB001") {
		t.Errorf("roster after attempt = %v, want PEERB001 listed", rosterPeers(roster))
	}
	conversation := lastOf[ConversationUpdate](t, attemptUpdates)
	if conversation.Peer != "PEERB001" || len(conversation.Messages) != 0 {
		t.Errorf("conversation after attempt = %#v", conversation)
	}

	if h.session.Send(ctx, "too early") {
		t.Error("Send before open reported dispatch")
	}

	h.endpoint.emit(transport.EventOpen, conn)
	h.waitForStatus(StatusConnected)

	lastPeer, err := h.store.LastPeer.Get(ctx)
	if err != nil || lastPeer != "PEERB001" {
		t.Errorf("last peer = %q, %v; want PEERB001", lastPeer, err)
	}

	if h.session.Send(ctx, "   ") {
		t.Error("Send of blank text reported dispatch")
	}
	if !h.session.Send(ctx, "  hello ") {
		t.Fatal("Send on open connection reported no dispatch")
	}
	if sent := conn.sentTexts(); !slices.Equal(sent, []string{"hello"}) {
		t.Errorf("transmitted %v, want [hello]", sent)
	}

	h.endpoint.emitData(conn, "hi back")
	updates := h.settle()
	var received []chatstore.Message
	for _, update := range updates {
		if message, ok := update.(MessageUpdate); ok {
			received = append(received, message.Message)
		}
	}
	wantRendered := []chatstore.Message{
		{Sender: chatstore.SenderSelf, Text: "hello"},
		{Sender: chatstore.SenderPeer, Text: "hi back"},
	}
	if !slices.Equal(received, wantRendered) {
		t.Errorf("rendered %v, want %v", received, wantRendered)
	}

	stored, err := h.store.Conversations.Load(ctx, "PEERB001")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !slices.Equal(stored, wantRendered) {
		t.Errorf("stored %v, want %v", stored, wantRendered)
	}
}

func TestConnectToSelfIsSilent(t *testing.T) {
	h := newHarness(t, nil)

	h.connect(strings.ToLower(h.identity))
	h.connect("   ")

	if updates := h.settle(); len(updates) != 0 {
		t.Errorf("self/empty connect produced updates: %#v", updates)
	}
	if count := h.endpoint.dialCount(); count != 0 {
		t.Errorf("self/empty connect dialed %d times", count)
	}
	peers, err := h.store.Conversations.Peers(context.Background())
	if err != nil || len(peers) != 0 {
		t.Errorf("self connect created peer records %v (%v)", peers, err)
	}
}

func TestSupersessionClosesPreviousFirst(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	h.connect("PEERA001")
	first := h.lastDial()
	h.connect("PEERB002")
	second := h.lastDial()

	want := []string{"dial PEERA001", "close PEERA001", "dial PEERB002"}
	if got := h.journal.snapshot(); !slices.Equal(got, want) {
		t.Fatalf("transport calls = %v, want %v", got, want)
	}
	h.settle()

	// Late events for the superseded attempt are ignored.
	h.endpoint.emit(transport.EventOpen, first)
	h.endpoint.emitData(first, "stale")
	h.endpoint.emitError(first)
	h.endpoint.emit(transport.EventClose, first)
	if updates := h.settle(); len(updates) != 0 {
		t.Errorf("stale events produced updates: %#v", updates)
	}
	if h.session.Send(ctx, "hello") {
		t.Error("Send dispatched while only the superseded attempt was open")
	}
	if messages, _ := h.store.Conversations.Load(ctx, "PEERA001"); len(messages) != 0 {
		t.Errorf("stale data was stored: %v", messages)
	}

	h.endpoint.emit(transport.EventOpen, second)
	h.waitForStatus(StatusConnected)
	if !h.session.Send(ctx, "hello") {
		t.Error("Send on the new attempt reported no dispatch")
	}
	if sent := second.sentTexts(); !slices.Equal(sent, []string{"hello"}) {
		t.Errorf("second conn sent %v", sent)
	}
}

func TestTimeoutReportsOfflineOnce(t *testing.T) {
	h := newHarness(t, nil)

	h.connect("PEERA001")
	conn := h.lastDial()
	h.settle()

	h.clock.Advance(DefaultLivenessTimeout - time.Millisecond)
	if updates := h.settle(); len(updates) != 0 {
		t.Fatalf("updates before the timeout: %#v", updates)
	}

	h.clock.Advance(time.Millisecond)
	h.waitForStatus(StatusOffline)
	if !conn.isClosed() {
		t.Error("timed-out conn was not closed")
	}

	// The failed attempt's later triggers are all ignored.
	h.endpoint.emitError(conn)
	h.endpoint.emit(transport.EventClose, conn)
	h.clock.Advance(time.Minute)
	if got := statuses(h.settle()); len(got) != 0 {
		t.Errorf("extra statuses after failure: %v", got)
	}
}

func TestErrorBeforeOpenReportsOfflineOnce(t *testing.T) {
	h := newHarness(t, nil)

	h.connect("PEERA001")
	conn := h.lastDial()
	h.endpoint.emitError(conn)
	h.waitForStatus(StatusOffline)
	if !conn.isClosed() {
		t.Error("failed conn was not closed")
	}

	h.endpoint.emitError(conn)
	h.clock.Advance(DefaultLivenessTimeout)
	if got := statuses(h.settle()); len(got) != 0 {
		t.Errorf("extra statuses after failure: %v", got)
	}
	if pending := h.clock.PendingCount(); pending != 0 {
		t.Errorf("%d timers still pending after failure", pending)
	}
}

func TestDialErrorReportsOffline(t *testing.T) {
	h := newHarness(t, nil)
	h.endpoint.dialErr = errors.New("endpoint closed")

	h.connect("PEERA001")
	if got := statuses(h.settle()); !slices.Equal(got, []string{StatusAttempting, StatusOffline}) {
		t.Errorf("statuses = %v", got)
	}
}

func TestOpenConnectionIgnoresTimeout(t *testing.T) {
	h := newHarness(t, nil)

	h.openTo("PEERA001")
	h.clock.Advance(time.Minute)
	if got := statuses(h.settle()); len(got) != 0 {
		t.Errorf("statuses after timeout on open conn: %v", got)
	}
}

func TestRemoteCloseAfterOpen(t *testing.T) {
	h := newHarness(t, nil)

	conn := h.openTo("PEERA001")
	h.endpoint.emit(transport.EventClose, conn)
	h.waitForStatus(StatusClosed)

	if h.session.Send(context.Background(), "anyone?") {
		t.Error("Send dispatched on a closed connection")
	}
	h.endpoint.emitError(conn)
	if got := statuses(h.settle()); len(got) != 0 {
		t.Errorf("extra statuses after close: %v", got)
	}
	if count := h.endpoint.dialCount(); count != 1 {
		t.Errorf("dialed %d times, want 1 (no reconnect)", count)
	}
}

func TestErrorAfterOpenIsClose(t *testing.T) {
	h := newHarness(t, nil)

	conn := h.openTo("PEERA001")
	h.endpoint.emitError(conn)
	h.waitForStatus(StatusClosed)
}

func TestSendFailureIsNotSurfaced(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	conn := h.openTo("PEERA001")
	conn.mu.Lock()
	conn.sendErr = errors.New("channel closing")
	conn.mu.Unlock()

	if !h.session.Send(ctx, "lost") {
		t.Error("Send must report dispatch even when transmission fails")
	}
	if got := statuses(h.settle()); len(got) != 0 {
		t.Errorf("transmission failure produced statuses %v", got)
	}
	if messages, _ := h.store.Conversations.Load(ctx, "PEERA001"); len(messages) != 1 {
		t.Errorf("stored %v, want the message recorded", messages)
	}
}

func TestInboundOfferIsAccepted(t *testing.T) {
	h := newHarness(t, func(ctx context.Context, _ *chatstore.MemoryKV, store *chatstore.Store) {
		store.Conversations.Append(ctx, "PEERC003", chatstore.SenderPeer, "earlier")
	})
	ctx := context.Background()

	inbound := &fakeConn{peer: "PEERC003", journal: h.journal}
	h.endpoint.emit(transport.EventOffered, inbound)
	updates := h.settle()

	conversation := lastOf[ConversationUpdate](t, updates)
	if conversation.Peer != "PEERC003" || len(conversation.Messages) != 1 {
		t.Errorf("conversation on offer = %#v", conversation)
	}
	if got := statuses(updates); len(got) != 0 {
		t.Errorf("offer produced statuses %v before open", got)
	}
	if lastPeer, _ := h.store.LastPeer.Get(ctx); lastPeer != "PEERC003" {
		t.Errorf("last peer = %q, want PEERC003", lastPeer)
	}

	h.endpoint.emit(transport.EventOpen, inbound)
	h.waitForStatus(StatusConnected)

	h.endpoint.emitData(inbound, "knock knock")
	h.settle()
	messages, err := h.store.Conversations.Load(ctx, "PEERC003")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(messages) != 2 || messages[1].Text != "knock knock" || messages[1].FromSelf() {
		t.Errorf("stored %v", messages)
	}
}

func TestInboundOfferSupersedesOutbound(t *testing.T) {
	h := newHarness(t, nil)

	h.connect("PEERA001")
	outbound := h.lastDial()
	inbound := &fakeConn{peer: "PEERC003", journal: h.journal}
	h.endpoint.emit(transport.EventOffered, inbound)
	h.settle()

	if !outbound.isClosed() {
		t.Error("outbound attempt was not closed by the inbound offer")
	}
	h.clock.Advance(DefaultLivenessTimeout)
	updates := h.waitForStatus(StatusOffline)
	if got := statuses(updates); len(got) != 1 {
		t.Errorf("statuses = %v, want a single offline for the unopened inbound", got)
	}
	if !inbound.isClosed() {
		t.Error("unopened inbound conn was not closed on timeout")
	}
}

func TestSetNicknameRelabels(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	h.connect("PEERB001")
	h.settle()

	if err := h.session.SetNickname(ctx, "PEERB001", "  Bob "); err != nil {
		t.Fatalf("SetNickname: %v", err)
	}
	updates := h.settle()
	roster := lastOf[RosterUpdate](t, updates)
	if len(roster.Entries) != 1 || roster.Entries[0].Label != "Bob" {
		t.Errorf("roster after rename = %#v", roster.Entries)
	}
	if conversation := lastOf[ConversationUpdate](t, updates); conversation.Label != "Bob" {
		t.Errorf("current conversation label = %q, want Bob", conversation.Label)
	}

	if err := h.session.SetNickname(ctx, "PEERB001", ""); err != nil {
		t.Fatalf("SetNickname clear: %v", err)
	}
	roster = lastOf[RosterUpdate](t, h.settle())
	if roster.Entries[0].Label != "PEERB001" {
		t.Errorf("cleared label = %q, want raw identity", roster.Entries[0].Label)
	}
}

func TestSetNicknameOtherPeerKeepsConversation(t *testing.T) {
	h := newHarness(t, func(ctx context.Context, _ *chatstore.MemoryKV, store *chatstore.Store) {
		store.Conversations.Touch(ctx, "PEERD004")
	})

	h.connect("PEERB001")
	h.settle()
	if err := h.session.SetNickname(context.Background(), "PEERD004", "Dee"); err != nil {
		t.Fatalf("SetNickname: %v", err)
	}
	for _, update := range h.settle() {
		if _, ok := update.(ConversationUpdate); ok {
			t.Error("renaming another peer re-rendered the open conversation")
		}
	}
}

func TestCorruptHistoryFailsClosed(t *testing.T) {
	garbage := []byte{0xff, 0x00, 0x13}
	h := newHarness(t, func(ctx context.Context, kv *chatstore.MemoryKV, _ *chatstore.Store) {
		kv.Put(ctx, "conversation/PEERZ009", garbage)
	})
	ctx := context.Background()

	h.connect("PEERZ009")
	updates := h.waitForStatus(StatusAttempting)
	if conversation := lastOf[ConversationUpdate](t, updates); len(conversation.Messages) != 0 {
		t.Errorf("corrupt conversation rendered %v", conversation.Messages)
	}
	if got := statuses(updates); !slices.Contains(got, "Stored history for PEERZ009 is unreadable.") {
		t.Errorf("statuses = %v, want unreadable notice", got)
	}

	conn := h.lastDial()
	h.endpoint.emit(transport.EventOpen, conn)
	h.waitForStatus(StatusConnected)
	if !h.session.Send(ctx, "still talking") {
		t.Error("Send refused on a peer with corrupt history")
	}
	h.endpoint.emitData(conn, "me too")
	h.settle()

	stored, found, err := h.kv.Get(ctx, "conversation/PEERZ009")
	if err != nil || !found {
		t.Fatalf("corrupt record vanished: found=%v err=%v", found, err)
	}
	if !bytes.Equal(stored, garbage) {
		t.Errorf("corrupt record overwritten with %x", stored)
	}
}

func TestRegenerate(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	oldEndpoint := h.endpoint
	oldIdentity := h.identity
	conn := h.openTo("PEERA001")

	if err := h.session.Regenerate(ctx); err != nil {
		t.Fatalf("Regenerate: %v", err)
	}
	newEndpoint := testutil.RequireReceive(t, h.endpoints, testTimeout, "waiting for new endpoint")
	updates := h.waitFor(func(update Update) bool {
		identity, ok := update.(IdentityUpdate)
		return ok && identity.Listening
	})

	if newEndpoint.identity == oldIdentity {
		t.Fatal("regenerated identity equals the old one")
	}
	if stored, _ := h.store.Identities.GetOrCreate(ctx); stored != newEndpoint.identity {
		t.Errorf("persisted identity %q, endpoint reopened as %q", stored, newEndpoint.identity)
	}
	if !conn.isClosed() || !oldEndpoint.isClosed() {
		t.Error("regenerate left the old connection or endpoint open")
	}
	if got := statuses(updates); !slices.Equal(got, []string{StatusRegenerated}) {
		t.Errorf("statuses = %v, want only the regenerated notice", got)
	}

	// The retired endpoint's events are ignored, including offers.
	late := &fakeConn{peer: "PEERL000", journal: h.journal}
	oldEndpoint.emit(transport.EventOffered, late)
	oldEndpoint.emit(transport.EventOpen, conn)
	if updates := h.settle(); len(updates) != 0 {
		t.Errorf("retired endpoint produced updates: %#v", updates)
	}
	if !late.isClosed() {
		t.Error("offer on the retired endpoint was not closed")
	}
}

func TestMethodsAfterStop(t *testing.T) {
	h := newHarness(t, nil)
	h.cancel()
	if err := testutil.RequireReceive(t, h.done, testTimeout, "waiting for Run"); err != nil {
		t.Fatalf("Run returned %v", err)
	}
	h.done <- nil // for the cleanup

	ctx := context.Background()
	if err := h.session.Connect(ctx, "PEERA001"); !errors.Is(err, ErrStopped) {
		t.Errorf("Connect after stop = %v, want ErrStopped", err)
	}
	if h.session.Send(ctx, "hello") {
		t.Error("Send after stop reported dispatch")
	}
	if !h.endpoint.isClosed() {
		t.Error("endpoint not closed on shutdown")
	}
}

func TestRunFailsWhenEndpointCannotStart(t *testing.T) {
	session, err := New(Config{
		Store: chatstore.New(chatstore.NewMemoryKV()),
		NewEndpoint: func(string, func(transport.Event)) (Endpoint, error) {
			return nil, errors.New("no network")
		},
		Logger: slog.New(slog.NewJSONHandler(io.Discard, nil)),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := session.Run(context.Background()); err == nil || !strings.Contains(err.Error(), "no network") {
		t.Fatalf("Run = %v, want endpoint error", err)
	}
}
