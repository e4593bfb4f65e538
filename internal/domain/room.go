// Package domain contains entity without logic beyond small invariant
// helpers, just meta-data.
package domain

import (
	"errors"
	"time"
)

var ErrBadRoomName = errors.New("room name empty or too long")

type (
	RoomID string
	UserID string
)

const (
	MaxRoomNameLen = 36

	// KickBanDuration is how long a kicked user stays banned from the
	// room. Expiry is computed client-side from the recorded timestamp.
	KickBanDuration = 10 * time.Minute
)

// Room is the shared per-room document. It is replicated to every
// participant and rewritten wholesale on membership or seat changes;
// concurrent writers resolve last-write-wins.
type Room struct {
	ID              RoomID            `json:"id"`
	Name            string            `json:"name"`
	Topic           string            `json:"topic,omitempty"`
	BackgroundImage string            `json:"backgroundImage,omitempty"`
	Password        string            `json:"password,omitempty"`
	CreatedBy       UserID            `json:"createdBy"`
	CreatorName     string            `json:"creatorName,omitempty"`
	CreatedAt       int64             `json:"createdAt"`
	Active          bool              `json:"active"`
	Admins          []UserID          `json:"admins,omitempty"`
	Participants    []Participant     `json:"participants"`
	LockedSeats     []int             `json:"lockedSeats,omitempty"`
	KickedUsers     map[UserID]int64  `json:"kickedUsers,omitempty"`
	Music           *MusicState       `json:"musicState,omitempty"`
	IsDirectCall    bool              `json:"isDirectCall,omitempty"`
}

// Participant is embedded in the room document, never independently
// addressable. Identity is unique within Participants.
type Participant struct {
	UID         UserID    `json:"uid"`
	DisplayName string    `json:"displayName"`
	PhotoURL    string    `json:"photoURL,omitempty"`
	IsMuted     bool      `json:"isMuted"`
	IsHostMuted bool      `json:"isHostMuted,omitempty"`
	Seat        Seat      `json:"seatIndex"`
	JoinedAt    int64     `json:"joinedAt"`
	LastSeen    int64     `json:"lastSeen,omitempty"`
	Reaction    *Reaction `json:"reaction,omitempty"`
}

// EffectiveMuted reports whether the participant transmits no audio.
// A host-imposed mute overrides the self-requested flag.
func (p Participant) EffectiveMuted() bool {
	return p.IsMuted || p.IsHostMuted
}

// Reaction is an ephemeral sticker overlay. Renderers ignore it once
// ExpiresAt has passed; nothing cleans it up server-side.
type Reaction struct {
	URL       string `json:"url"`
	ExpiresAt int64  `json:"expiresAt"`
}

func (r *Reaction) Expired(now time.Time) bool {
	return r == nil || now.UnixMilli() >= r.ExpiresAt
}

// IsAuthority reports whether uid holds elevated privileges in the room:
// the creator or any admin.
func (r *Room) IsAuthority(uid UserID) bool {
	if uid == r.CreatedBy {
		return true
	}
	for _, a := range r.Admins {
		if a == uid {
			return true
		}
	}
	return false
}

// Find returns a pointer into Participants for uid, or nil.
func (r *Room) Find(uid UserID) *Participant {
	for i := range r.Participants {
		if r.Participants[i].UID == uid {
			return &r.Participants[i]
		}
	}
	return nil
}

// SeatOccupant returns the participant holding seat, or nil. Audience is
// never "occupied".
func (r *Room) SeatOccupant(seat Seat) *Participant {
	if seat == SeatAudience {
		return nil
	}
	for i := range r.Participants {
		if r.Participants[i].Seat == seat {
			return &r.Participants[i]
		}
	}
	return nil
}

// SeatLocked reports whether a grid index is administratively disabled.
func (r *Room) SeatLocked(gridIndex int) bool {
	for _, i := range r.LockedSeats {
		if i == gridIndex {
			return true
		}
	}
	return false
}

// BanRemaining returns how much of the kick ban is left for uid, zero if
// the user is not banned or the ban has expired.
func (r *Room) BanRemaining(uid UserID, now time.Time) time.Duration {
	kickedAt, ok := r.KickedUsers[uid]
	if !ok {
		return 0
	}
	left := KickBanDuration - now.Sub(time.UnixMilli(kickedAt))
	if left < 0 {
		return 0
	}
	return left
}

// RemoveParticipant drops uid from Participants, reporting whether an
// entry was removed.
func (r *Room) RemoveParticipant(uid UserID) bool {
	for i := range r.Participants {
		if r.Participants[i].UID == uid {
			r.Participants = append(r.Participants[:i], r.Participants[i+1:]...)
			return true
		}
	}
	return false
}

// HasAuthorityBesides reports whether any participant other than uid is
// the creator or an admin. Used by the leave path to decide whether the
// room stays discoverable.
func (r *Room) HasAuthorityBesides(uid UserID) bool {
	for _, p := range r.Participants {
		if p.UID == uid {
			continue
		}
		if r.IsAuthority(p.UID) {
			return true
		}
	}
	return false
}

// Clone returns a deep copy. Stores hand out clones so subscribers never
// share mutable state with the writer.
func (r *Room) Clone() *Room {
	if r == nil {
		return nil
	}
	c := *r
	c.Admins = append([]UserID(nil), r.Admins...)
	c.LockedSeats = append([]int(nil), r.LockedSeats...)
	c.Participants = make([]Participant, len(r.Participants))
	for i, p := range r.Participants {
		if p.Reaction != nil {
			re := *p.Reaction
			p.Reaction = &re
		}
		c.Participants[i] = p
	}
	if r.KickedUsers != nil {
		c.KickedUsers = make(map[UserID]int64, len(r.KickedUsers))
		for k, v := range r.KickedUsers {
			c.KickedUsers[k] = v
		}
	}
	if r.Music != nil {
		m := *r.Music
		m.Queue = append([]Song(nil), r.Music.Queue...)
		c.Music = &m
	}
	return &c
}
