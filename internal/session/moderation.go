package session

import (
	"context"
	"time"

	"github.com/lumachat/voiceroom/internal/domain"
)

// reactionTTL bounds how long a reaction overlay stays visible.
const reactionTTL = 3 * time.Second

// Kick removes a participant and starts their ban window. Authorities
// cannot be kicked, not even by the creator; dismiss the admin first.
func (s *Session) Kick(ctx context.Context, target domain.UserID) error {
	return s.update(ctx, func(room *domain.Room, me *domain.Participant) error {
		if !room.IsAuthority(me.UID) {
			return ErrNotAuthority
		}
		if room.IsAuthority(target) {
			return ErrKickProtected
		}
		if !room.RemoveParticipant(target) {
			return ErrNotInRoom
		}
		if room.KickedUsers == nil {
			room.KickedUsers = make(map[domain.UserID]int64)
		}
		room.KickedUsers[target] = s.now().UnixMilli()
		return nil
	})
}

// ToggleHostMute flips the host-imposed mute on a participant. Muting
// also forces the target's own flag, so lifting the host mute never
// auto-unmutes: the target must re-request.
func (s *Session) ToggleHostMute(ctx context.Context, target domain.UserID) error {
	return s.update(ctx, func(room *domain.Room, me *domain.Participant) error {
		if !room.IsAuthority(me.UID) {
			return ErrNotAuthority
		}
		p := room.Find(target)
		if p == nil {
			return ErrNotInRoom
		}
		p.IsHostMuted = !p.IsHostMuted
		if p.IsHostMuted {
			p.IsMuted = true
		}
		return nil
	})
}

// SetAdmin grants admin rights. Creator only.
func (s *Session) SetAdmin(ctx context.Context, target domain.UserID) error {
	return s.update(ctx, func(room *domain.Room, me *domain.Participant) error {
		if me.UID != room.CreatedBy {
			return ErrNotCreator
		}
		if room.Find(target) == nil {
			return ErrNotInRoom
		}
		if !room.IsAuthority(target) {
			room.Admins = append(room.Admins, target)
		}
		return nil
	})
}

// DismissAdmin revokes admin rights. Creator only.
func (s *Session) DismissAdmin(ctx context.Context, target domain.UserID) error {
	return s.update(ctx, func(room *domain.Room, me *domain.Participant) error {
		if me.UID != room.CreatedBy {
			return ErrNotCreator
		}
		for i, a := range room.Admins {
			if a == target {
				room.Admins = append(room.Admins[:i], room.Admins[i+1:]...)
				break
			}
		}
		return nil
	})
}

// MoveToAudience forces a seated participant off their seat.
func (s *Session) MoveToAudience(ctx context.Context, target domain.UserID) error {
	return s.update(ctx, func(room *domain.Room, me *domain.Participant) error {
		if !room.IsAuthority(me.UID) {
			return ErrNotAuthority
		}
		p := room.Find(target)
		if p == nil {
			return ErrNotInRoom
		}
		p.Seat = domain.SeatAudience
		p.IsMuted = true
		return nil
	})
}

// SetMuted updates the local mute choice. Unmuting is refused while a
// host mute is in force.
func (s *Session) SetMuted(ctx context.Context, muted bool) error {
	return s.update(ctx, func(_ *domain.Room, me *domain.Participant) error {
		if !muted && me.IsHostMuted {
			return ErrHostMuted
		}
		me.IsMuted = muted
		return nil
	})
}

// SendReaction sets the local user's reaction overlay.
func (s *Session) SendReaction(ctx context.Context, url string) error {
	return s.update(ctx, func(_ *domain.Room, me *domain.Participant) error {
		me.Reaction = &domain.Reaction{
			URL:       url,
			ExpiresAt: s.now().Add(reactionTTL).UnixMilli(),
		}
		return nil
	})
}

// RoomSettings carries the editable room metadata.
type RoomSettings struct {
	Name            string
	Topic           string
	BackgroundImage string
	Password        string
}

// UpdateSettings rewrites the room metadata. Authority only.
func (s *Session) UpdateSettings(ctx context.Context, set RoomSettings) error {
	if set.Name == "" || len(set.Name) > domain.MaxRoomNameLen {
		return domain.ErrBadRoomName
	}
	return s.update(ctx, func(room *domain.Room, me *domain.Participant) error {
		if !room.IsAuthority(me.UID) {
			return ErrNotAuthority
		}
		room.Name = set.Name
		room.Topic = set.Topic
		room.BackgroundImage = set.BackgroundImage
		room.Password = set.Password
		return nil
	})
}
