// Package core defines the contracts between the room session and its
// external collaborators. Implementations live in adapters; the session
// never touches transport details.
package core

import (
	"context"
	"errors"

	"github.com/lumachat/voiceroom/internal/domain"
)

// Store errors shared by every backend.
var (
	ErrRoomExists   = errors.New("room already exists")
	ErrRoomNotFound = errors.New("room not found")
	ErrCallNotFound = errors.New("call request not found")
)

// SnapshotFunc receives the full room document after any change. A nil
// room means the document was deleted. Every snapshot is authoritative;
// consumers must re-derive state from it rather than accumulate deltas.
type SnapshotFunc func(room *domain.Room)

// RoomStore is the shared room state store: one replicated document per
// room with at-least-once change notification. Update is
// read-transform-rewrite with last-write-wins; there is no compare-and-
// swap, and concurrent writers of Participants are accepted to race.
type RoomStore interface {
	Create(ctx context.Context, room *domain.Room) error
	Get(ctx context.Context, id domain.RoomID) (*domain.Room, error)
	// Update applies mutate to a copy of the current document and writes
	// it back whole. Returning an error from mutate aborts the write.
	Update(ctx context.Context, id domain.RoomID, mutate func(*domain.Room) error) error
	Delete(ctx context.Context, id domain.RoomID) error
	List(ctx context.Context) ([]*domain.Room, error)

	// Subscribe delivers the current document immediately, then every
	// subsequent change, until ctx is done. Callbacks for one
	// subscription are serialized and in order.
	Subscribe(ctx context.Context, id domain.RoomID, fn SnapshotFunc) error
	// WatchList is Subscribe for the whole room collection.
	WatchList(ctx context.Context, fn func(rooms []*domain.Room)) error
}

// SignalChannel is the ephemeral per-room mailbox for negotiation
// payloads. Messages are addressed by recipient and consumed exactly
// once; ordering across message types is not guaranteed.
type SignalChannel interface {
	Send(ctx context.Context, room domain.RoomID, msg domain.SignalMessage) error
	Subscribe(ctx context.Context, room domain.RoomID, to domain.UserID, fn func(domain.SignalMessage)) error
}

// InviteMailbox carries transient seat invitations. At most one pending
// invite per recipient; Put replaces any previous one.
type InviteMailbox interface {
	Put(ctx context.Context, room domain.RoomID, inv *domain.Invite) error
	Delete(ctx context.Context, room domain.RoomID, inviteID string) error
	// Subscribe delivers the pending invite for the recipient, nil when
	// it is consumed or withdrawn.
	Subscribe(ctx context.Context, room domain.RoomID, to domain.UserID, fn func(*domain.Invite)) error
}

// PresenceStore tracks who is online for direct calls and carries the
// call-request handshake documents.
type PresenceStore interface {
	SetOnline(ctx context.Context, l *domain.Listener) error
	SetOffline(ctx context.Context, uid domain.UserID) error
	SetBusy(ctx context.Context, uid domain.UserID, busy bool) error
	WatchListeners(ctx context.Context, fn func([]domain.Listener)) error

	CreateCall(ctx context.Context, req *domain.CallRequest) error
	GetCall(ctx context.Context, id string) (*domain.CallRequest, error)
	UpdateCall(ctx context.Context, id string, mutate func(*domain.CallRequest) error) error
	DeleteCall(ctx context.Context, id string) error
	// WatchCall follows one request by id; nil means deleted.
	WatchCall(ctx context.Context, id string, fn func(*domain.CallRequest)) error
	// WatchIncoming follows the oldest pending request addressed to the
	// listener; nil when none is pending.
	WatchIncoming(ctx context.Context, listener domain.UserID, fn func(*domain.CallRequest)) error
}
