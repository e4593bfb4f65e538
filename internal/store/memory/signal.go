package memory

import (
	"context"
	"sync"

	"github.com/lumachat/voiceroom/internal/core"
	"github.com/lumachat/voiceroom/internal/domain"
)

type mailboxKey struct {
	room domain.RoomID
	to   domain.UserID
}

type sigSub struct {
	ch chan domain.SignalMessage
}

// SignalChannel is an in-process per-room mailbox. A message is handed
// to the recipient's subscriber once and then gone; messages sent before
// the recipient subscribes are buffered.
type SignalChannel struct {
	mu      sync.Mutex
	buffers map[mailboxKey][]domain.SignalMessage
	subs    map[mailboxKey]*sigSub
}

func NewSignalChannel() *SignalChannel {
	return &SignalChannel{
		buffers: make(map[mailboxKey][]domain.SignalMessage),
		subs:    make(map[mailboxKey]*sigSub),
	}
}

func (s *SignalChannel) Send(_ context.Context, room domain.RoomID, msg domain.SignalMessage) error {
	key := mailboxKey{room: room, to: msg.To}
	s.mu.Lock()
	sub, ok := s.subs[key]
	if !ok {
		s.buffers[key] = append(s.buffers[key], msg)
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()
	sub.ch <- msg
	return nil
}

func (s *SignalChannel) Subscribe(ctx context.Context, room domain.RoomID, to domain.UserID, fn func(domain.SignalMessage)) error {
	key := mailboxKey{room: room, to: to}
	sub := &sigSub{ch: make(chan domain.SignalMessage, subQueueSize)}

	s.mu.Lock()
	for _, msg := range s.buffers[key] {
		sub.ch <- msg
	}
	delete(s.buffers, key)
	s.subs[key] = sub
	s.mu.Unlock()

	go func() {
		defer func() {
			s.mu.Lock()
			if s.subs[key] == sub {
				delete(s.subs, key)
			}
			s.mu.Unlock()
		}()
		for {
			select {
			case <-ctx.Done():
				return
			case msg := <-sub.ch:
				fn(msg)
			}
		}
	}()
	return nil
}

var _ core.SignalChannel = (*SignalChannel)(nil)
