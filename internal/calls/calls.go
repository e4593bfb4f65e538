// Package calls runs the direct 1:1 call handshake: presence of
// available listeners, call requests with a pending timeout, and the
// private two-seat room built on acceptance.
package calls

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/lumachat/voiceroom/internal/core"
	"github.com/lumachat/voiceroom/internal/domain"
)

// DefaultTimeout is how long a request stays pending before it expires.
const DefaultTimeout = 10 * time.Second

var (
	ErrCallOver = errors.New("call request is no longer pending")
	ErrBusy     = errors.New("listener is busy")
)

// Supervisor coordinates presence and call requests. One per process.
type Supervisor struct {
	presence core.PresenceStore
	rooms    core.RoomStore
	timeout  time.Duration
	now      func() time.Time
	log      zerolog.Logger
}

type Option func(*Supervisor)

// WithTimeout overrides the pending window.
func WithTimeout(d time.Duration) Option {
	return func(s *Supervisor) { s.timeout = d }
}

// WithClock overrides the wall clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Supervisor) { s.now = now }
}

func New(presence core.PresenceStore, rooms core.RoomStore, opts ...Option) *Supervisor {
	s := &Supervisor{
		presence: presence,
		rooms:    rooms,
		timeout:  DefaultTimeout,
		now:      time.Now,
		log:      log.With().Str("module", "calls").Logger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GoOnline publishes the user as an available listener.
func (s *Supervisor) GoOnline(ctx context.Context, l domain.Listener) error {
	l.LastActive = s.now().UnixMilli()
	l.Busy = false
	return s.presence.SetOnline(ctx, &l)
}

// GoOffline withdraws the listener entry.
func (s *Supervisor) GoOffline(ctx context.Context, uid domain.UserID) error {
	return s.presence.SetOffline(ctx, uid)
}

// WatchListeners follows the available-listener roster.
func (s *Supervisor) WatchListeners(ctx context.Context, fn func([]domain.Listener)) error {
	return s.presence.WatchListeners(ctx, fn)
}

// WatchCall follows one request; nil means deleted.
func (s *Supervisor) WatchCall(ctx context.Context, id string, fn func(*domain.CallRequest)) error {
	return s.presence.WatchCall(ctx, id, fn)
}

// WatchIncoming follows the oldest pending request for a listener.
func (s *Supervisor) WatchIncoming(ctx context.Context, listener domain.UserID, fn func(*domain.CallRequest)) error {
	return s.presence.WatchIncoming(ctx, listener, fn)
}

// Call creates a pending request toward listener and arms the timeout.
// The returned request is the caller's handle; watch it for the answer.
func (s *Supervisor) Call(ctx context.Context, caller domain.Listener, listener domain.UserID) (*domain.CallRequest, error) {
	req := &domain.CallRequest{
		ID:          uuid.NewString(),
		CallerID:    caller.UID,
		CallerName:  caller.DisplayName,
		CallerPhoto: caller.PhotoURL,
		ListenerID:  listener,
		Status:      domain.CallPending,
		CreatedAt:   s.now().UnixMilli(),
	}
	if err := s.presence.CreateCall(ctx, req); err != nil {
		return nil, err
	}
	go s.expire(req.ID)
	return req, nil
}

// expire marks the request timed out if nobody answered in time. Runs
// detached so the caller's context cannot cancel the bookkeeping.
func (s *Supervisor) expire(id string) {
	time.Sleep(s.timeout)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := s.presence.UpdateCall(ctx, id, func(req *domain.CallRequest) error {
		if req.Status != domain.CallPending {
			return ErrCallOver
		}
		req.Status = domain.CallTimeout
		return nil
	})
	if err != nil && !errors.Is(err, ErrCallOver) && !errors.Is(err, core.ErrCallNotFound) {
		s.log.Error().Err(err).Str("call", id).Msg("expire call")
	}
}

// Cancel withdraws a pending request before it is answered.
func (s *Supervisor) Cancel(ctx context.Context, id string) error {
	return s.presence.DeleteCall(ctx, id)
}

// Accept answers a pending request: it builds the private two-seat room
// owned by the listener, marks both sides busy, and records the room on
// the request so the caller can follow.
func (s *Supervisor) Accept(ctx context.Context, id string, listener domain.Listener) (*domain.CallRequest, error) {
	req, err := s.presence.GetCall(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Status != domain.CallPending {
		return nil, ErrCallOver
	}

	nowMs := s.now().UnixMilli()
	room := &domain.Room{
		ID:           domain.RoomID(uuid.NewString()),
		Name:         req.CallerName + " & " + listener.DisplayName,
		CreatedBy:    listener.UID,
		CreatorName:  listener.DisplayName,
		CreatedAt:    nowMs,
		Active:       true,
		IsDirectCall: true,
		Participants: []domain.Participant{
			{
				UID:         listener.UID,
				DisplayName: listener.DisplayName,
				PhotoURL:    listener.PhotoURL,
				Seat:        domain.SeatHost,
				JoinedAt:    nowMs,
				LastSeen:    nowMs,
			},
			{
				UID:         req.CallerID,
				DisplayName: req.CallerName,
				PhotoURL:    req.CallerPhoto,
				Seat:        domain.Seat(0),
				JoinedAt:    nowMs,
				LastSeen:    nowMs,
			},
		},
	}
	if err := s.rooms.Create(ctx, room); err != nil {
		return nil, err
	}

	err = s.presence.UpdateCall(ctx, id, func(r *domain.CallRequest) error {
		if r.Status != domain.CallPending {
			return ErrCallOver
		}
		r.Status = domain.CallAccepted
		r.RoomID = room.ID
		*req = *r
		return nil
	})
	if err != nil {
		// Lost the race with timeout or cancel: the room is unused.
		_ = s.rooms.Delete(ctx, room.ID)
		return nil, err
	}

	if err := s.presence.SetBusy(ctx, listener.UID, true); err != nil {
		s.log.Error().Err(err).Msg("set busy listener")
	}
	if err := s.presence.SetBusy(ctx, req.CallerID, true); err != nil {
		s.log.Error().Err(err).Msg("set busy caller")
	}
	return req, nil
}

// Reject declines a pending request.
func (s *Supervisor) Reject(ctx context.Context, id string) error {
	return s.presence.UpdateCall(ctx, id, func(req *domain.CallRequest) error {
		if req.Status != domain.CallPending {
			return ErrCallOver
		}
		req.Status = domain.CallRejected
		return nil
	})
}

// Finish clears the busy flags once a call ends.
func (s *Supervisor) Finish(ctx context.Context, a, b domain.UserID) {
	for _, uid := range []domain.UserID{a, b} {
		if err := s.presence.SetBusy(ctx, uid, false); err != nil {
			s.log.Error().Err(err).Str("uid", string(uid)).Msg("clear busy")
		}
	}
}
