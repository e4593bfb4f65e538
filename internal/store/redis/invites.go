package redis

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/lumachat/voiceroom/internal/core"
	"github.com/lumachat/voiceroom/internal/domain"
)

// InviteMailbox holds at most one pending seat invite per recipient,
// stored in a per-room hash keyed by recipient uid.
type InviteMailbox struct {
	rdb *redis.Client
}

func NewInviteMailbox(rdb *redis.Client) *InviteMailbox {
	return &InviteMailbox{rdb: rdb}
}

func (m *InviteMailbox) Put(ctx context.Context, room domain.RoomID, inv *domain.Invite) error {
	b, err := json.Marshal(inv)
	if err != nil {
		return err
	}
	pipe := m.rdb.TxPipeline()
	pipe.HSet(ctx, inviteKey(room), string(inv.To), b)
	pipe.Publish(ctx, inviteEventChan(room, inv.To), "put")
	_, err = pipe.Exec(ctx)
	return err
}

func (m *InviteMailbox) Delete(ctx context.Context, room domain.RoomID, inviteID string) error {
	all, err := m.rdb.HGetAll(ctx, inviteKey(room)).Result()
	if err != nil {
		return err
	}
	for field, val := range all {
		var inv domain.Invite
		if json.Unmarshal([]byte(val), &inv) != nil || inv.ID != inviteID {
			continue
		}
		pipe := m.rdb.TxPipeline()
		pipe.HDel(ctx, inviteKey(room), field)
		pipe.Publish(ctx, inviteEventChan(room, domain.UserID(field)), "delete")
		_, err = pipe.Exec(ctx)
		return err
	}
	return nil
}

func (m *InviteMailbox) Subscribe(ctx context.Context, room domain.RoomID, to domain.UserID, fn func(*domain.Invite)) error {
	ps := m.rdb.Subscribe(ctx, inviteEventChan(room, to))
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return err
	}

	go func() {
		defer func() { _ = ps.Close() }()
		deliver := func() {
			val, err := m.rdb.HGet(ctx, inviteKey(room), string(to)).Bytes()
			if err == redis.Nil {
				fn(nil)
				return
			}
			if err != nil {
				log.Error().Err(err).Str("module", "store.redis").Str("room", string(room)).Msg("invite read")
				return
			}
			var inv domain.Invite
			if err := json.Unmarshal(val, &inv); err != nil {
				log.Error().Err(err).Str("module", "store.redis").Msg("invite decode")
				return
			}
			fn(&inv)
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

var _ core.InviteMailbox = (*InviteMailbox)(nil)
