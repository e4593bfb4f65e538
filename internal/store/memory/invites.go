package memory

import (
	"context"
	"sync"

	"github.com/lumachat/voiceroom/internal/core"
	"github.com/lumachat/voiceroom/internal/domain"
)

type invSub struct {
	ch chan *domain.Invite
}

// InviteMailbox keeps at most one pending seat invitation per recipient
// per room.
type InviteMailbox struct {
	mu      sync.Mutex
	pending map[mailboxKey]*domain.Invite
	subs    map[mailboxKey]map[int]*invSub
	nextID  int
}

func NewInviteMailbox() *InviteMailbox {
	return &InviteMailbox{
		pending: make(map[mailboxKey]*domain.Invite),
		subs:    make(map[mailboxKey]map[int]*invSub),
	}
}

func (m *InviteMailbox) Put(_ context.Context, room domain.RoomID, inv *domain.Invite) error {
	key := mailboxKey{room: room, to: inv.To}
	cp := *inv
	m.mu.Lock()
	m.pending[key] = &cp
	m.notifyLocked(key)
	m.mu.Unlock()
	return nil
}

func (m *InviteMailbox) Delete(_ context.Context, room domain.RoomID, inviteID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key, inv := range m.pending {
		if key.room == room && inv.ID == inviteID {
			delete(m.pending, key)
			m.notifyLocked(key)
			return nil
		}
	}
	return nil
}

func (m *InviteMailbox) Subscribe(ctx context.Context, room domain.RoomID, to domain.UserID, fn func(*domain.Invite)) error {
	key := mailboxKey{room: room, to: to}
	sub := &invSub{ch: make(chan *domain.Invite, subQueueSize)}

	m.mu.Lock()
	if m.subs[key] == nil {
		m.subs[key] = make(map[int]*invSub)
	}
	id := m.nextID
	m.nextID++
	m.subs[key][id] = sub
	if inv, ok := m.pending[key]; ok {
		cp := *inv
		sub.ch <- &cp
	}
	m.mu.Unlock()

	go func() {
		defer func() {
			m.mu.Lock()
			delete(m.subs[key], id)
			m.mu.Unlock()
		}()
		for {
			select {
			case <-ctx.Done():
				return
			case inv := <-sub.ch:
				fn(inv)
			}
		}
	}()
	return nil
}

func (m *InviteMailbox) notifyLocked(key mailboxKey) {
	inv := m.pending[key] // nil once consumed
	for _, sub := range m.subs[key] {
		var cp *domain.Invite
		if inv != nil {
			c := *inv
			cp = &c
		}
		push(sub.ch, cp)
	}
}

var _ core.InviteMailbox = (*InviteMailbox)(nil)
