package session

import (
	"time"

	"github.com/lumachat/voiceroom/internal/domain"
)

// EnteredTTL is how long a join notification stays relevant. Renderers
// drop events past ExpiresAt, so a backlog replayed after a stall does
// not produce a burst of stale toasts.
const EnteredTTL = 3 * time.Second

type EventKind string

const (
	// EventEntered fires when another participant appears in the room
	// document. Suppressed for the initial snapshot.
	EventEntered EventKind = "entered"
	// EventKicked fires when the local user was removed by an authority.
	EventKicked EventKind = "kicked"
	// EventRoomClosed fires when the room is deleted or deactivated.
	EventRoomClosed EventKind = "room_closed"
	// EventInvite carries the pending seat invite, nil when consumed.
	EventInvite EventKind = "invite"
	// EventSpeaking carries the current speaking classification.
	EventSpeaking EventKind = "speaking"
)

// Event is a UI-facing notification emitted by the session. Events are
// advisory; the room document stays the single source of truth.
type Event struct {
	Kind      EventKind
	User      domain.UserID
	Name      string
	ExpiresAt int64
	Invite    *domain.Invite
	Speaking  map[domain.UserID]bool
}
