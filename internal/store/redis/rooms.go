package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/lumachat/voiceroom/internal/core"
	"github.com/lumachat/voiceroom/internal/domain"
)

var (
	ErrRoomExists   = core.ErrRoomExists
	ErrRoomNotFound = core.ErrRoomNotFound
)

// RoomStore keeps each room as one JSON document. Update is a plain
// read-transform-rewrite: last write wins, matching the hosted store the
// contract models. Change notification rides pub/sub markers; the
// subscriber re-reads the document, so delivery is at-least-once with
// the latest state.
type RoomStore struct {
	rdb *redis.Client
}

func NewRoomStore(rdb *redis.Client) *RoomStore {
	return &RoomStore{rdb: rdb}
}

func (s *RoomStore) Create(ctx context.Context, room *domain.Room) error {
	b, err := json.Marshal(room)
	if err != nil {
		return err
	}
	ok, err := s.rdb.SetNX(ctx, roomKey(room.ID), b, 0).Result()
	if err != nil {
		return err
	}
	if !ok {
		return ErrRoomExists
	}
	pipe := s.rdb.TxPipeline()
	pipe.SAdd(ctx, roomIndexKey, string(room.ID))
	pipe.Publish(ctx, roomEventChan(room.ID), "create")
	pipe.Publish(ctx, roomsListChan, string(room.ID))
	_, err = pipe.Exec(ctx)
	return err
}

func (s *RoomStore) Get(ctx context.Context, id domain.RoomID) (*domain.Room, error) {
	val, err := s.rdb.Get(ctx, roomKey(id)).Bytes()
	if err == redis.Nil {
		return nil, ErrRoomNotFound
	}
	if err != nil {
		return nil, err
	}
	var room domain.Room
	if err := json.Unmarshal(val, &room); err != nil {
		return nil, fmt.Errorf("decode room %s: %w", id, err)
	}
	return &room, nil
}

func (s *RoomStore) Update(ctx context.Context, id domain.RoomID, mutate func(*domain.Room) error) error {
	room, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := mutate(room); err != nil {
		return err
	}
	b, err := json.Marshal(room)
	if err != nil {
		return err
	}
	pipe := s.rdb.TxPipeline()
	pipe.Set(ctx, roomKey(id), b, 0)
	pipe.Publish(ctx, roomEventChan(id), "update")
	pipe.Publish(ctx, roomsListChan, string(id))
	_, err = pipe.Exec(ctx)
	return err
}

func (s *RoomStore) Delete(ctx context.Context, id domain.RoomID) error {
	pipe := s.rdb.TxPipeline()
	pipe.Del(ctx, roomKey(id), inviteKey(id))
	pipe.SRem(ctx, roomIndexKey, string(id))
	pipe.Publish(ctx, roomEventChan(id), "delete")
	pipe.Publish(ctx, roomsListChan, string(id))
	_, err := pipe.Exec(ctx)
	return err
}

func (s *RoomStore) List(ctx context.Context) ([]*domain.Room, error) {
	ids, err := s.rdb.SMembers(ctx, roomIndexKey).Result()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []*domain.Room{}, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = roomKey(domain.RoomID(id))
	}
	vals, err := s.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}
	out := make([]*domain.Room, 0, len(vals))
	for _, val := range vals {
		str, ok := val.(string)
		if !ok {
			continue
		}
		var room domain.Room
		if json.Unmarshal([]byte(str), &room) == nil {
			out = append(out, &room)
		}
	}
	return out, nil
}

func (s *RoomStore) Subscribe(ctx context.Context, id domain.RoomID, fn core.SnapshotFunc) error {
	ps := s.rdb.Subscribe(ctx, roomEventChan(id))
	// Confirm the subscription before the initial read so no update
	// between read and subscribe is lost.
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return err
	}

	go func() {
		defer func() { _ = ps.Close() }()
		deliver := func() {
			room, err := s.Get(ctx, id)
			if err != nil && !errors.Is(err, ErrRoomNotFound) {
				log.Error().Err(err).Str("module", "store.redis").Str("room", string(id)).Msg("snapshot read")
				return
			}
			fn(room)
		}
		deliver()
		ch := ps.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-ch:
				if !ok {
					return
				}
				deliver()
			}
		}
	}()
	return nil
}

func (s *RoomStore) WatchList(ctx context.Context, fn func([]*domain.Room)) error {
	ps := s.rdb.Subscribe(ctx, roomsListChan)
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return err
	}

	go func() {
		defer func() { _ = ps.Close() }()
		deliver := func() {
			rooms, err := s.List(ctx)
			if err != nil {
				log.Error().Err(err).Str("module", "store.redis").Msg("list read")
				return
			}
			fn(rooms)
		}
		deliver()
		ch := ps.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-ch:
				if !ok {
					return
				}
				deliver()
			}
		}
	}()
	return nil
}

var _ core.RoomStore = (*RoomStore)(nil)
