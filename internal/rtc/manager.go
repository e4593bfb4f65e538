package rtc

import (
	"context"
	"sync"

	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/lumachat/voiceroom/internal/core"
	"github.com/lumachat/voiceroom/internal/domain"
)

// ConnFactory builds a media connection toward a peer. Injected so tests
// run the manager without a network.
type ConnFactory func(peer domain.UserID) (core.MediaConnection, error)

// PionFactory is the production factory: pion connections carrying the
// local microphone track when one exists.
func PionFactory(cfg webrtc.Configuration, mic core.Microphone) ConnFactory {
	return func(peer domain.UserID) (core.MediaConnection, error) {
		var local webrtc.TrackLocal
		if mic != nil {
			local = mic.Track()
		}
		return NewConn(cfg, peer, local)
	}
}

type peerState struct {
	conn      core.MediaConnection
	remoteSet bool
}

// Manager owns one media connection per remote participant currently in
// the room. Exactly one side of each pair initiates, chosen by identity
// comparison, so re-running the same pair always picks the same offerer.
type Manager struct {
	self    domain.UserID
	room    domain.RoomID
	signals core.SignalChannel
	newConn ConnFactory
	levels  *LevelMonitor
	log     zerolog.Logger

	mu      sync.Mutex
	peers   map[domain.UserID]*peerState
	pending map[domain.UserID][]domain.Candidate
}

func NewManager(self domain.UserID, room domain.RoomID, signals core.SignalChannel, factory ConnFactory, levels *LevelMonitor) *Manager {
	return &Manager{
		self:    self,
		room:    room,
		signals: signals,
		newConn: factory,
		levels:  levels,
		log:     log.With().Str("module", "rtc.manager").Str("self", string(self)).Logger(),
		peers:   make(map[domain.UserID]*peerState),
		pending: make(map[domain.UserID][]domain.Candidate),
	}
}

// Initiator reports whether the local side is responsible for sending
// the offer toward peer: the ordinally lower identity initiates.
func (m *Manager) Initiator(peer domain.UserID) bool {
	return m.self < peer
}

// OpenPeers returns the set of identities with a live connection.
func (m *Manager) OpenPeers() map[domain.UserID]bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[domain.UserID]bool, len(m.peers))
	for uid := range m.peers {
		out[uid] = true
	}
	return out
}

// Open establishes a connection toward peer if none exists. When the
// local side initiates, the offer is sent immediately; otherwise the
// connection waits for the inbound offer. Idempotent.
func (m *Manager) Open(ctx context.Context, peer domain.UserID) {
	conn, created := m.ensure(ctx, peer)
	if conn == nil || !created || !m.Initiator(peer) {
		return
	}
	sdp, err := conn.CreateOffer()
	if err != nil {
		m.log.Error().Err(err).Str("peer", string(peer)).Msg("create offer")
		return
	}
	m.send(ctx, domain.SignalMessage{Type: domain.SignalOffer, From: m.self, To: peer, SDP: sdp})
}

func (m *Manager) ensure(ctx context.Context, peer domain.UserID) (conn core.MediaConnection, created bool) {
	m.mu.Lock()
	if st, ok := m.peers[peer]; ok {
		m.mu.Unlock()
		return st.conn, false
	}
	m.mu.Unlock()

	c, err := m.newConn(peer)
	if err != nil {
		m.log.Error().Err(err).Str("peer", string(peer)).Msg("new media connection")
		return nil, false
	}

	c.OnICECandidate(func(cand domain.Candidate) {
		m.send(ctx, domain.SignalMessage{Type: domain.SignalCandidate, From: m.self, To: peer, Candidate: &cand})
	})
	c.OnTrack(func(trackCtx context.Context, track *webrtc.TrackRemote, _ *webrtc.RTPReceiver) {
		m.levels.Register(peer)
		go m.readLoop(trackCtx, peer, track)
	})
	c.OnClosed(func() {
		go m.Close(peer)
	})

	if err := c.Start(ctx); err != nil {
		m.log.Error().Err(err).Str("peer", string(peer)).Msg("start media connection")
		c.Close()
		return nil, false
	}

	m.mu.Lock()
	// Lost a race with a concurrent ensure: keep the first connection.
	if st, ok := m.peers[peer]; ok {
		m.mu.Unlock()
		c.Close()
		return st.conn, false
	}
	m.peers[peer] = &peerState{conn: c}
	m.mu.Unlock()
	m.log.Info().Str("peer", string(peer)).Bool("initiator", m.Initiator(peer)).Msg("peer connection opened")
	return c, true
}

// HandleSignal processes one inbound negotiation message. Candidates
// arriving before the remote description are queued per peer and flushed
// once it is applied, so no candidate is applied before its description.
func (m *Manager) HandleSignal(ctx context.Context, msg domain.SignalMessage) {
	if msg.From == m.self {
		return
	}
	switch msg.Type {
	case domain.SignalOffer:
		conn, _ := m.ensure(ctx, msg.From)
		if conn == nil {
			return
		}
		answer, err := conn.ApplyOfferAndCreateAnswer(msg.SDP)
		if err != nil {
			m.log.Error().Err(err).Str("peer", string(msg.From)).Msg("apply offer")
			return
		}
		m.flushCandidates(msg.From, conn)
		m.send(ctx, domain.SignalMessage{Type: domain.SignalAnswer, From: m.self, To: msg.From, SDP: answer})

	case domain.SignalAnswer:
		m.mu.Lock()
		st, ok := m.peers[msg.From]
		m.mu.Unlock()
		if !ok {
			m.log.Warn().Str("peer", string(msg.From)).Msg("answer for unknown peer")
			return
		}
		if err := st.conn.ApplyAnswer(msg.SDP); err != nil {
			m.log.Error().Err(err).Str("peer", string(msg.From)).Msg("apply answer")
			return
		}
		m.flushCandidates(msg.From, st.conn)

	case domain.SignalCandidate:
		if msg.Candidate == nil {
			return
		}
		m.mu.Lock()
		st, ok := m.peers[msg.From]
		ready := ok && st.remoteSet
		if !ready {
			m.pending[msg.From] = append(m.pending[msg.From], *msg.Candidate)
			m.mu.Unlock()
			return
		}
		m.mu.Unlock()
		if err := st.conn.AddICECandidate(*msg.Candidate); err != nil {
			m.log.Error().Err(err).Str("peer", string(msg.From)).Msg("add ice candidate")
		}

	default:
		m.log.Warn().Str("type", string(msg.Type)).Msg("unknown signal")
	}
}

func (m *Manager) flushCandidates(peer domain.UserID, conn core.MediaConnection) {
	m.mu.Lock()
	queue := m.pending[peer]
	delete(m.pending, peer)
	if st, ok := m.peers[peer]; ok {
		st.remoteSet = true
	}
	m.mu.Unlock()
	for _, cand := range queue {
		if err := conn.AddICECandidate(cand); err != nil {
			m.log.Error().Err(err).Str("peer", string(peer)).Msg("flush ice candidate")
		}
	}
}

// Close tears down the connection to peer, dropping its remote stream
// analyser and any queued candidates.
func (m *Manager) Close(peer domain.UserID) {
	m.mu.Lock()
	st, ok := m.peers[peer]
	delete(m.peers, peer)
	delete(m.pending, peer)
	m.mu.Unlock()
	if !ok {
		return
	}
	st.conn.Close()
	m.levels.Unregister(peer)
	m.log.Info().Str("peer", string(peer)).Msg("peer connection closed")
}

// CloseAll tears down every connection. Runs on session stop.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	peers := make([]domain.UserID, 0, len(m.peers))
	for uid := range m.peers {
		peers = append(peers, uid)
	}
	m.mu.Unlock()
	for _, uid := range peers {
		m.Close(uid)
	}
}

// send forwards via the signaling channel. Delivery failures are logged
// and swallowed: a stuck connection shows up as absent audio and heals
// on the next reconciliation.
func (m *Manager) send(ctx context.Context, msg domain.SignalMessage) {
	if err := m.signals.Send(ctx, m.room, msg); err != nil {
		m.log.Error().Err(err).Str("type", string(msg.Type)).Str("to", string(msg.To)).Msg("signal send")
	}
}

func (m *Manager) readLoop(ctx context.Context, peer domain.UserID, track *webrtc.TrackRemote) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		pkt, _, err := track.ReadRTP()
		if err != nil {
			return
		}
		m.levels.Push(peer, pkt.Payload)
	}
}
