// Package session runs the local user's participation in one room: it
// mirrors the shared room document, reconciles the media mesh against
// it, and exposes the user-facing operations. All snapshot handling runs
// on a single goroutine; operations are plain store writes and may be
// called from anywhere.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/lumachat/voiceroom/internal/core"
	"github.com/lumachat/voiceroom/internal/domain"
	"github.com/lumachat/voiceroom/internal/rtc"
)

const (
	eventQueueSize = 64
	leaveTimeout   = 5 * time.Second

	// HeartbeatPeriod is the default liveness write interval.
	HeartbeatPeriod = 30 * time.Second
)

// Profile is the local user's identity, carried into the participant
// entry on join.
type Profile struct {
	UID         domain.UserID
	DisplayName string
	PhotoURL    string
}

// Options wires a session to its collaborators.
type Options struct {
	Self    Profile
	RoomID  domain.RoomID
	Rooms   core.RoomStore
	Signals core.SignalChannel
	Invites core.InviteMailbox
	// Factory builds media connections. Nil peers are never dialed.
	Factory rtc.ConnFactory
	// Mic may be nil; the session is then receive-only.
	Mic core.Microphone
	// Heartbeat overrides HeartbeatPeriod when positive.
	Heartbeat time.Duration
	// Now overrides the wall clock, for tests.
	Now func() time.Time
}

// Session is the per-user room controller. Create with New, drive with
// Start, release with Stop. A session is single-use.
type Session struct {
	self    Profile
	roomID  domain.RoomID
	rooms   core.RoomStore
	signals core.SignalChannel
	invites core.InviteMailbox
	mic     core.Microphone
	media   *rtc.Manager
	levels  *rtc.LevelMonitor
	log     zerolog.Logger

	now       func() time.Time
	heartbeat time.Duration

	snapshots chan *domain.Room
	wake      chan struct{}
	events    chan Event

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	prev    *domain.Room
	leaving bool

	startOnce sync.Once
	stopOnce  sync.Once
	done      chan struct{}
}

func New(opts Options) *Session {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	hb := opts.Heartbeat
	if hb <= 0 {
		hb = HeartbeatPeriod
	}
	levels := rtc.NewLevelMonitor()
	s := &Session{
		self:      opts.Self,
		roomID:    opts.RoomID,
		rooms:     opts.Rooms,
		signals:   opts.Signals,
		invites:   opts.Invites,
		mic:       opts.Mic,
		levels:    levels,
		log:       log.With().Str("module", "session").Str("room", string(opts.RoomID)).Str("self", string(opts.Self.UID)).Logger(),
		now:       now,
		heartbeat: hb,
		snapshots: make(chan *domain.Room, 1),
		wake:      make(chan struct{}, 1),
		events:    make(chan Event, eventQueueSize),
		done:      make(chan struct{}),
	}
	s.media = rtc.NewManager(opts.Self.UID, opts.RoomID, opts.Signals, opts.Factory, levels)
	s.ctx, s.cancel = context.WithCancel(context.Background())
	levels.OnChange(func(speaking map[domain.UserID]bool) {
		s.emit(Event{Kind: EventSpeaking, Speaking: speaking})
	})
	return s
}

// Events delivers session notifications. The queue drops oldest under
// backpressure; consumers must treat every event as advisory.
func (s *Session) Events() <-chan Event { return s.events }

// Start joins the room and begins mirroring it. It returns an error
// without side effects when the room is gone, inactive, or the user is
// still banned; afterwards the caller owns the session and must Stop it.
func (s *Session) Start(ctx context.Context) error {
	room, err := s.rooms.Get(ctx, s.roomID)
	if err != nil {
		return err
	}
	if !room.Active {
		return ErrRoomInactive
	}
	if left := room.BanRemaining(s.self.UID, s.now()); left > 0 {
		return &BanError{Remaining: left}
	}

	if err := s.rooms.Update(ctx, s.roomID, s.insertSelf); err != nil {
		return err
	}

	var startErr error
	s.startOnce.Do(func() {
		// Seed the mirror before subscribing. Snapshot coalescing keeps
		// only the latest pending document, so the subscription's initial
		// snapshot may never be applied on its own; entered notifications
		// must be measured against the membership as of the join, not
		// whichever snapshot happens to arrive first.
		seed, err := s.rooms.Get(ctx, s.roomID)
		if err != nil {
			startErr = err
			return
		}
		s.mu.Lock()
		s.prev = seed
		s.mu.Unlock()
		if err := s.rooms.Subscribe(s.ctx, s.roomID, s.pushSnapshot); err != nil {
			startErr = err
			return
		}
		if err := s.signals.Subscribe(s.ctx, s.roomID, s.self.UID, func(msg domain.SignalMessage) {
			s.media.HandleSignal(s.ctx, msg)
		}); err != nil {
			startErr = err
			return
		}
		if err := s.invites.Subscribe(s.ctx, s.roomID, s.self.UID, func(inv *domain.Invite) {
			s.emit(Event{Kind: EventInvite, Invite: inv})
		}); err != nil {
			startErr = err
			return
		}
		go s.levels.Run(s.ctx)
		go s.run()
		s.log.Info().Msg("session started")
	})
	if startErr != nil {
		s.cancel()
	}
	return startErr
}

// insertSelf is the join mutation: idempotent, ban-checked inside the
// write so a kick landing between Get and Update still rejects.
func (s *Session) insertSelf(room *domain.Room) error {
	if !room.Active {
		return ErrRoomInactive
	}
	if left := room.BanRemaining(s.self.UID, s.now()); left > 0 {
		return &BanError{Remaining: left}
	}
	if room.Find(s.self.UID) != nil {
		return nil
	}
	seat := domain.SeatAudience
	if room.CreatedBy == s.self.UID {
		seat = domain.SeatHost
	}
	nowMs := s.now().UnixMilli()
	room.Participants = append(room.Participants, domain.Participant{
		UID:         s.self.UID,
		DisplayName: s.self.DisplayName,
		PhotoURL:    s.self.PhotoURL,
		IsMuted:     true,
		Seat:        seat,
		JoinedAt:    nowMs,
		LastSeen:    nowMs,
	})
	return nil
}

// Stop leaves the room and releases every resource. Safe to call more
// than once and from any goroutine; the final membership write uses a
// detached context so cancellation of the caller cannot strand the
// participant entry.
func (s *Session) Stop() {
	s.stopOnce.Do(func() {
		s.mu.Lock()
		s.leaving = true
		s.mu.Unlock()

		s.cancel()
		s.media.CloseAll()
		if s.mic != nil {
			s.mic.Stop()
		}

		ctx, cancel := context.WithTimeout(context.Background(), leaveTimeout)
		defer cancel()
		err := s.rooms.Update(ctx, s.roomID, func(room *domain.Room) error {
			room.RemoveParticipant(s.self.UID)
			if room.IsDirectCall || !room.HasAuthorityBesides(s.self.UID) {
				room.Active = false
			}
			return nil
		})
		if err != nil && !s.isMissingRoom(err) {
			s.log.Error().Err(err).Msg("leave write")
		}
		close(s.done)
		s.log.Info().Msg("session stopped")
	})
	<-s.done
}

// Wake forces an immediate liveness write, for callers that detect the
// process resuming from a long suspend.
func (s *Session) Wake() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Room returns the last applied snapshot. Non-nil once Start succeeds.
func (s *Session) Room() *domain.Room {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.prev
}

func (s *Session) run() {
	ticker := time.NewTicker(s.heartbeat)
	defer ticker.Stop()
	for {
		select {
		case <-s.ctx.Done():
			return
		case snap := <-s.snapshots:
			s.apply(snap)
		case <-ticker.C:
			s.beat()
		case <-s.wake:
			s.beat()
		}
	}
}

// pushSnapshot coalesces: only the latest pending snapshot matters
// because every snapshot is the full authoritative document.
func (s *Session) pushSnapshot(room *domain.Room) {
	for {
		select {
		case s.snapshots <- room:
			return
		default:
			select {
			case <-s.snapshots:
			default:
			}
		}
	}
}

func (s *Session) apply(snap *domain.Room) {
	s.mu.Lock()
	prev := s.prev
	leaving := s.leaving
	s.mu.Unlock()

	if snap == nil || !snap.Active {
		if !leaving {
			s.emit(Event{Kind: EventRoomClosed})
			go s.Stop()
		}
		return
	}

	me := snap.Find(s.self.UID)
	if me == nil && !leaving {
		if snap.BanRemaining(s.self.UID, s.now()) > 0 {
			s.emit(Event{Kind: EventKicked})
			go s.Stop()
			return
		}
		// Dropped by a racing whole-document write: rejoin as audience.
		if err := s.rooms.Update(s.ctx, s.roomID, s.insertSelf); err != nil {
			s.log.Error().Err(err).Msg("rejoin write")
		}
		return
	}

	if s.mic != nil && me != nil {
		s.mic.SetEnabled(me.Seat.Seated() && !me.EffectiveMuted())
	}

	acts := Reconcile(prev, snap, s.self.UID, s.media.OpenPeers())
	for _, uid := range acts.Close {
		s.media.Close(uid)
	}
	for _, uid := range acts.Open {
		s.media.Open(s.ctx, uid)
	}
	if prev != nil {
		expires := s.now().Add(EnteredTTL).UnixMilli()
		for _, uid := range acts.Entered {
			var name string
			if p := snap.Find(uid); p != nil {
				name = p.DisplayName
			}
			s.emit(Event{Kind: EventEntered, User: uid, Name: name, ExpiresAt: expires})
		}
	}

	s.mu.Lock()
	s.prev = snap
	s.mu.Unlock()
}

func (s *Session) beat() {
	err := s.rooms.Update(s.ctx, s.roomID, func(room *domain.Room) error {
		me := room.Find(s.self.UID)
		if me == nil {
			return ErrNotInRoom
		}
		me.LastSeen = s.now().UnixMilli()
		return nil
	})
	if err != nil && !errors.Is(err, ErrNotInRoom) && !s.isMissingRoom(err) && s.ctx.Err() == nil {
		s.log.Error().Err(err).Msg("heartbeat write")
	}
}

// update wraps a mutation that requires the local user to be present.
func (s *Session) update(ctx context.Context, mutate func(room *domain.Room, me *domain.Participant) error) error {
	return s.rooms.Update(ctx, s.roomID, func(room *domain.Room) error {
		me := room.Find(s.self.UID)
		if me == nil {
			return ErrNotInRoom
		}
		return mutate(room, me)
	})
}

func (s *Session) isMissingRoom(err error) bool {
	return errors.Is(err, core.ErrRoomNotFound)
}

func (s *Session) emit(ev Event) {
	for {
		select {
		case s.events <- ev:
			return
		default:
			select {
			case <-s.events:
			default:
			}
		}
	}
}
