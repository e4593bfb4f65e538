package rtc

import (
	"context"
	"sync"
	"testing"

	"github.com/pion/webrtc/v4"

	"github.com/lumachat/voiceroom/internal/core"
	"github.com/lumachat/voiceroom/internal/domain"
)

type stubConn struct {
	mu        sync.Mutex
	remoteSet bool
	closed    bool
	applied   []domain.Candidate
	onClosed  func()
}

func (c *stubConn) Start(context.Context) error { return nil }

func (c *stubConn) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
}

func (c *stubConn) CreateOffer() (string, error) { return "offer", nil }

func (c *stubConn) ApplyOfferAndCreateAnswer(string) (string, error) {
	c.mu.Lock()
	c.remoteSet = true
	c.mu.Unlock()
	return "answer", nil
}

func (c *stubConn) ApplyAnswer(string) error {
	c.mu.Lock()
	c.remoteSet = true
	c.mu.Unlock()
	return nil
}

func (c *stubConn) HasRemoteDescription() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remoteSet
}

func (c *stubConn) AddICECandidate(cand domain.Candidate) error {
	c.mu.Lock()
	c.applied = append(c.applied, cand)
	c.mu.Unlock()
	return nil
}

func (c *stubConn) OnICECandidate(func(domain.Candidate)) {}
func (c *stubConn) OnTrack(func(context.Context, *webrtc.TrackRemote, *webrtc.RTPReceiver)) {
}
func (c *stubConn) OnClosed(fn func()) { c.onClosed = fn }

func (c *stubConn) candidates() []domain.Candidate {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]domain.Candidate(nil), c.applied...)
}

type recordingSignals struct {
	mu   sync.Mutex
	sent []domain.SignalMessage
}

func (s *recordingSignals) Send(_ context.Context, _ domain.RoomID, msg domain.SignalMessage) error {
	s.mu.Lock()
	s.sent = append(s.sent, msg)
	s.mu.Unlock()
	return nil
}

func (s *recordingSignals) Subscribe(context.Context, domain.RoomID, domain.UserID, func(domain.SignalMessage)) error {
	return nil
}

func (s *recordingSignals) messages() []domain.SignalMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.SignalMessage(nil), s.sent...)
}

func newTestManager(self domain.UserID) (*Manager, *recordingSignals, map[domain.UserID]*stubConn) {
	signals := &recordingSignals{}
	conns := make(map[domain.UserID]*stubConn)
	factory := func(peer domain.UserID) (core.MediaConnection, error) {
		c := &stubConn{}
		conns[peer] = c
		return c, nil
	}
	m := NewManager(self, "r1", signals, factory, NewLevelMonitor())
	return m, signals, conns
}

func TestOpenSendsOfferOnlyAsInitiator(t *testing.T) {
	ctx := context.Background()

	m, signals, _ := newTestManager("a1")
	m.Open(ctx, "b2")
	msgs := signals.messages()
	if len(msgs) != 1 || msgs[0].Type != domain.SignalOffer || msgs[0].To != "b2" {
		t.Fatalf("initiator sent %+v, want one offer to b2", msgs)
	}

	m2, signals2, _ := newTestManager("b2")
	m2.Open(ctx, "a1")
	if msgs := signals2.messages(); len(msgs) != 0 {
		t.Fatalf("responder sent %+v, want nothing", msgs)
	}
	if !m2.OpenPeers()["a1"] {
		t.Fatal("responder must still hold the connection open")
	}
}

func TestOpenIsIdempotent(t *testing.T) {
	ctx := context.Background()
	m, signals, conns := newTestManager("a1")
	m.Open(ctx, "b2")
	m.Open(ctx, "b2")
	if len(conns) != 1 {
		t.Fatalf("built %d connections, want 1", len(conns))
	}
	if msgs := signals.messages(); len(msgs) != 1 {
		t.Fatalf("sent %d offers, want 1", len(msgs))
	}
}

func TestCandidatesQueuedUntilRemoteDescription(t *testing.T) {
	ctx := context.Background()
	m, _, conns := newTestManager("a1")
	m.Open(ctx, "b2")

	c1 := domain.Candidate{Candidate: "cand-1"}
	c2 := domain.Candidate{Candidate: "cand-2"}
	m.HandleSignal(ctx, domain.SignalMessage{Type: domain.SignalCandidate, From: "b2", To: "a1", Candidate: &c1})
	m.HandleSignal(ctx, domain.SignalMessage{Type: domain.SignalCandidate, From: "b2", To: "a1", Candidate: &c2})

	conn := conns["b2"]
	if got := conn.candidates(); len(got) != 0 {
		t.Fatalf("candidates applied before remote description: %v", got)
	}

	m.HandleSignal(ctx, domain.SignalMessage{Type: domain.SignalAnswer, From: "b2", To: "a1", SDP: "answer"})
	got := conn.candidates()
	if len(got) != 2 || got[0].Candidate != "cand-1" || got[1].Candidate != "cand-2" {
		t.Fatalf("flushed candidates = %v, want original order", got)
	}

	// After the flush new candidates apply straight away.
	c3 := domain.Candidate{Candidate: "cand-3"}
	m.HandleSignal(ctx, domain.SignalMessage{Type: domain.SignalCandidate, From: "b2", To: "a1", Candidate: &c3})
	if got := conn.candidates(); len(got) != 3 || got[2].Candidate != "cand-3" {
		t.Fatalf("late candidate not applied: %v", got)
	}
}

func TestInboundOfferProducesAnswer(t *testing.T) {
	ctx := context.Background()
	m, signals, conns := newTestManager("b2")

	m.HandleSignal(ctx, domain.SignalMessage{Type: domain.SignalOffer, From: "a1", To: "b2", SDP: "offer"})

	msgs := signals.messages()
	if len(msgs) != 1 || msgs[0].Type != domain.SignalAnswer || msgs[0].To != "a1" {
		t.Fatalf("responded with %+v, want one answer to a1", msgs)
	}
	if !conns["a1"].HasRemoteDescription() {
		t.Fatal("offer not applied")
	}
}

func TestOwnMessagesIgnored(t *testing.T) {
	ctx := context.Background()
	m, signals, conns := newTestManager("a1")
	m.HandleSignal(ctx, domain.SignalMessage{Type: domain.SignalOffer, From: "a1", To: "a1", SDP: "offer"})
	if len(conns) != 0 || len(signals.messages()) != 0 {
		t.Fatal("self-addressed message must be dropped")
	}
}

func TestCloseDropsConnectionAndQueue(t *testing.T) {
	ctx := context.Background()
	m, _, conns := newTestManager("a1")
	m.Open(ctx, "b2")
	c := domain.Candidate{Candidate: "stale"}
	m.HandleSignal(ctx, domain.SignalMessage{Type: domain.SignalCandidate, From: "b2", To: "a1", Candidate: &c})

	m.Close("b2")
	if m.OpenPeers()["b2"] {
		t.Fatal("peer still open after close")
	}
	if !conns["b2"].closed {
		t.Fatal("underlying connection not closed")
	}
	if m.levels.Registered("b2") {
		t.Fatal("analyser survived close")
	}

	// A reopened connection must not replay the stale queue.
	m.Open(ctx, "b2")
	m.HandleSignal(ctx, domain.SignalMessage{Type: domain.SignalAnswer, From: "b2", To: "a1", SDP: "answer"})
	if got := conns["b2"].candidates(); len(got) != 0 {
		t.Fatalf("stale candidates replayed: %v", got)
	}
}

func TestCloseAll(t *testing.T) {
	ctx := context.Background()
	m, _, _ := newTestManager("a1")
	m.Open(ctx, "b2")
	m.Open(ctx, "c3")
	m.CloseAll()
	if n := len(m.OpenPeers()); n != 0 {
		t.Fatalf("%d peers still open", n)
	}
}
