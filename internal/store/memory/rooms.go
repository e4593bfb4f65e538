// Package memory provides in-process implementations of the store
// contracts. They reproduce the hosted document store's observable
// semantics: whole-document last-write-wins updates and at-least-once,
// in-order snapshot notification per subscriber.
package memory

import (
	"context"
	"sync"

	"github.com/lumachat/voiceroom/internal/core"
	"github.com/lumachat/voiceroom/internal/domain"
)

var (
	ErrRoomExists   = core.ErrRoomExists
	ErrRoomNotFound = core.ErrRoomNotFound
)

const subQueueSize = 64

type roomSub struct {
	room domain.RoomID
	ch   chan *domain.Room
}

type listSub struct {
	ch chan []*domain.Room
}

// RoomStore is a threadsafe in-memory room document store.
type RoomStore struct {
	mu       sync.RWMutex
	rooms    map[domain.RoomID]*domain.Room
	subs     map[int]*roomSub
	listSubs map[int]*listSub
	nextID   int
}

func NewRoomStore() *RoomStore {
	return &RoomStore{
		rooms:    make(map[domain.RoomID]*domain.Room),
		subs:     make(map[int]*roomSub),
		listSubs: make(map[int]*listSub),
	}
}

func (s *RoomStore) Create(_ context.Context, room *domain.Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rooms[room.ID]; ok {
		return ErrRoomExists
	}
	s.rooms[room.ID] = room.Clone()
	s.notifyLocked(room.ID)
	return nil
}

func (s *RoomStore) Get(_ context.Context, id domain.RoomID) (*domain.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	room, ok := s.rooms[id]
	if !ok {
		return nil, ErrRoomNotFound
	}
	return room.Clone(), nil
}

func (s *RoomStore) Update(_ context.Context, id domain.RoomID, mutate func(*domain.Room) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	room, ok := s.rooms[id]
	if !ok {
		return ErrRoomNotFound
	}
	next := room.Clone()
	if err := mutate(next); err != nil {
		return err
	}
	s.rooms[id] = next
	s.notifyLocked(id)
	return nil
}

func (s *RoomStore) Delete(_ context.Context, id domain.RoomID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rooms[id]; !ok {
		return ErrRoomNotFound
	}
	delete(s.rooms, id)
	s.notifyLocked(id)
	return nil
}

func (s *RoomStore) List(_ context.Context) ([]*domain.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listLocked(), nil
}

func (s *RoomStore) Subscribe(ctx context.Context, id domain.RoomID, fn core.SnapshotFunc) error {
	sub := &roomSub{room: id, ch: make(chan *domain.Room, subQueueSize)}
	s.mu.Lock()
	key := s.nextID
	s.nextID++
	s.subs[key] = sub
	if room, ok := s.rooms[id]; ok {
		sub.ch <- room.Clone()
	} else {
		sub.ch <- nil
	}
	s.mu.Unlock()

	go func() {
		defer func() {
			s.mu.Lock()
			delete(s.subs, key)
			s.mu.Unlock()
		}()
		for {
			select {
			case <-ctx.Done():
				return
			case room := <-sub.ch:
				fn(room)
			}
		}
	}()
	return nil
}

func (s *RoomStore) WatchList(ctx context.Context, fn func([]*domain.Room)) error {
	sub := &listSub{ch: make(chan []*domain.Room, subQueueSize)}
	s.mu.Lock()
	key := s.nextID
	s.nextID++
	s.listSubs[key] = sub
	sub.ch <- s.listLocked()
	s.mu.Unlock()

	go func() {
		defer func() {
			s.mu.Lock()
			delete(s.listSubs, key)
			s.mu.Unlock()
		}()
		for {
			select {
			case <-ctx.Done():
				return
			case rooms := <-sub.ch:
				fn(rooms)
			}
		}
	}()
	return nil
}

func (s *RoomStore) listLocked() []*domain.Room {
	out := make([]*domain.Room, 0, len(s.rooms))
	for _, r := range s.rooms {
		out = append(out, r.Clone())
	}
	return out
}

// notifyLocked fans the new state out to subscriber queues. A slow
// subscriber drops the oldest snapshot: every snapshot is authoritative,
// so coalescing to the newest one never loses information.
func (s *RoomStore) notifyLocked(id domain.RoomID) {
	room := s.rooms[id] // nil after delete
	for _, sub := range s.subs {
		if sub.room != id {
			continue
		}
		push(sub.ch, room.Clone())
	}
	if len(s.listSubs) > 0 {
		rooms := s.listLocked()
		for _, sub := range s.listSubs {
			push(sub.ch, rooms)
		}
	}
}

func push[T any](ch chan T, v T) {
	for {
		select {
		case ch <- v:
			return
		default:
			select {
			case <-ch:
			default:
			}
		}
	}
}

var _ core.RoomStore = (*RoomStore)(nil)
