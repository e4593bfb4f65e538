package session

import (
	"context"

	"github.com/google/uuid"

	"github.com/lumachat/voiceroom/internal/domain"
)

// TakeSeat moves the local user onto a seat. Whoever sits down always
// sits down muted and unmutes explicitly afterwards.
func (s *Session) TakeSeat(ctx context.Context, seat domain.Seat) error {
	if !seat.Valid() || seat.IsAudience() {
		return domain.ErrBadSeatIndex
	}
	return s.update(ctx, func(room *domain.Room, me *domain.Participant) error {
		if err := checkSeatFree(room, me.UID, seat); err != nil {
			return err
		}
		me.Seat = seat
		me.IsMuted = true
		return nil
	})
}

// LeaveSeat returns the local user to the audience.
func (s *Session) LeaveSeat(ctx context.Context) error {
	return s.update(ctx, func(_ *domain.Room, me *domain.Participant) error {
		me.Seat = domain.SeatAudience
		me.IsMuted = true
		return nil
	})
}

// LockSeat disables an empty grid seat. Authority only.
func (s *Session) LockSeat(ctx context.Context, gridIndex int) error {
	seat, err := domain.GridSeat(gridIndex)
	if err != nil {
		return err
	}
	return s.update(ctx, func(room *domain.Room, me *domain.Participant) error {
		if !room.IsAuthority(me.UID) {
			return ErrNotAuthority
		}
		if room.SeatOccupant(seat) != nil {
			return ErrSeatTaken
		}
		if !room.SeatLocked(gridIndex) {
			room.LockedSeats = append(room.LockedSeats, gridIndex)
		}
		return nil
	})
}

// UnlockSeat re-enables a locked grid seat. Authority only.
func (s *Session) UnlockSeat(ctx context.Context, gridIndex int) error {
	if _, err := domain.GridSeat(gridIndex); err != nil {
		return err
	}
	return s.update(ctx, func(room *domain.Room, me *domain.Participant) error {
		if !room.IsAuthority(me.UID) {
			return ErrNotAuthority
		}
		for i, idx := range room.LockedSeats {
			if idx == gridIndex {
				room.LockedSeats = append(room.LockedSeats[:i], room.LockedSeats[i+1:]...)
				break
			}
		}
		return nil
	})
}

// InviteToSeat offers a seat to an audience participant. Authority
// only; a new invite replaces any pending one for the same recipient.
func (s *Session) InviteToSeat(ctx context.Context, to domain.UserID, seat domain.Seat) error {
	if !seat.IsGrid() {
		return domain.ErrBadSeatIndex
	}
	room, err := s.rooms.Get(ctx, s.roomID)
	if err != nil {
		return err
	}
	if !room.IsAuthority(s.self.UID) {
		return ErrNotAuthority
	}
	target := room.Find(to)
	if target == nil {
		return ErrNotInRoom
	}
	if target.Seat.Seated() {
		return ErrAlreadySeated
	}
	if err := checkSeatFree(room, to, seat); err != nil {
		return err
	}
	return s.invites.Put(ctx, s.roomID, &domain.Invite{
		ID:        uuid.NewString(),
		To:        to,
		Seat:      seat,
		From:      s.self.UID,
		FromName:  s.self.DisplayName,
		CreatedAt: s.now().UnixMilli(),
	})
}

// AcceptInvite consumes the invite and takes the offered seat. The
// invite is deleted even when the seat was taken in the meantime.
func (s *Session) AcceptInvite(ctx context.Context, inv *domain.Invite) error {
	if err := s.invites.Delete(ctx, s.roomID, inv.ID); err != nil {
		return err
	}
	return s.TakeSeat(ctx, inv.Seat)
}

// DeclineInvite consumes the invite without moving.
func (s *Session) DeclineInvite(ctx context.Context, inv *domain.Invite) error {
	return s.invites.Delete(ctx, s.roomID, inv.ID)
}

func checkSeatFree(room *domain.Room, uid domain.UserID, seat domain.Seat) error {
	if seat.IsHost() && uid != room.CreatedBy {
		return ErrHostSeatReserved
	}
	if idx, ok := seat.GridIndex(); ok && room.SeatLocked(idx) {
		return ErrSeatLocked
	}
	if occ := room.SeatOccupant(seat); occ != nil && occ.UID != uid {
		return ErrSeatTaken
	}
	return nil
}
