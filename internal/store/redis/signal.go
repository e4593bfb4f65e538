package redis

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/lumachat/voiceroom/internal/core"
	"github.com/lumachat/voiceroom/internal/domain"
)

// SignalChannel is a per-recipient list of pending signaling messages.
// Send pushes and publishes a wake; a subscriber drains the list one
// message at a time so every message is consumed exactly once even when
// it was sent before the subscriber attached.
type SignalChannel struct {
	rdb *redis.Client
}

func NewSignalChannel(rdb *redis.Client) *SignalChannel {
	return &SignalChannel{rdb: rdb}
}

func (s *SignalChannel) Send(ctx context.Context, room domain.RoomID, msg domain.SignalMessage) error {
	b, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	pipe := s.rdb.TxPipeline()
	pipe.RPush(ctx, signalKey(room, msg.To), b)
	pipe.Publish(ctx, signalEventChan(room, msg.To), "send")
	_, err = pipe.Exec(ctx)
	return err
}

func (s *SignalChannel) Subscribe(ctx context.Context, room domain.RoomID, to domain.UserID, fn func(domain.SignalMessage)) error {
	ps := s.rdb.Subscribe(ctx, signalEventChan(room, to))
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return err
	}

	key := signalKey(room, to)
	go func() {
		defer func() { _ = ps.Close() }()
		drain := func() {
			for {
				val, err := s.rdb.LPop(ctx, key).Bytes()
				if err == redis.Nil {
					return
				}
				if err != nil {
					log.Error().Err(err).Str("module", "store.redis").Str("room", string(room)).Msg("signal pop")
					return
				}
				var msg domain.SignalMessage
				if err := json.Unmarshal(val, &msg); err != nil {
					log.Error().Err(err).Str("module", "store.redis").Msg("signal decode")
					continue
				}
				fn(msg)
			}
		}
		drain()
		ch := ps.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-ch:
				if !ok {
					return
				}
				drain()
			}
		}
	}()
	return nil
}

var _ core.SignalChannel = (*SignalChannel)(nil)
