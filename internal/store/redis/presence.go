package redis

import (
	"context"
	"encoding/json"
	"errors"
	"sort"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/lumachat/voiceroom/internal/core"
	"github.com/lumachat/voiceroom/internal/domain"
)

var ErrCallNotFound = core.ErrCallNotFound

// Presence keeps online listeners in one hash and call requests as
// individual JSON documents tracked by an index set.
type Presence struct {
	rdb *redis.Client
}

func NewPresence(rdb *redis.Client) *Presence {
	return &Presence{rdb: rdb}
}

func (p *Presence) SetOnline(ctx context.Context, l *domain.Listener) error {
	b, err := json.Marshal(l)
	if err != nil {
		return err
	}
	pipe := p.rdb.TxPipeline()
	pipe.HSet(ctx, listenersKey, string(l.UID), b)
	pipe.Publish(ctx, listenersChan, string(l.UID))
	_, err = pipe.Exec(ctx)
	return err
}

func (p *Presence) SetOffline(ctx context.Context, uid domain.UserID) error {
	pipe := p.rdb.TxPipeline()
	pipe.HDel(ctx, listenersKey, string(uid))
	pipe.Publish(ctx, listenersChan, string(uid))
	_, err := pipe.Exec(ctx)
	return err
}

func (p *Presence) SetBusy(ctx context.Context, uid domain.UserID, busy bool) error {
	val, err := p.rdb.HGet(ctx, listenersKey, string(uid)).Bytes()
	if err == redis.Nil {
		return nil
	}
	if err != nil {
		return err
	}
	var l domain.Listener
	if err := json.Unmarshal(val, &l); err != nil {
		return err
	}
	l.Busy = busy
	return p.SetOnline(ctx, &l)
}

func (p *Presence) WatchListeners(ctx context.Context, fn func([]domain.Listener)) error {
	ps := p.rdb.Subscribe(ctx, listenersChan)
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return err
	}

	go func() {
		defer func() { _ = ps.Close() }()
		deliver := func() {
			all, err := p.rdb.HGetAll(ctx, listenersKey).Result()
			if err != nil {
				log.Error().Err(err).Str("module", "store.redis").Msg("listeners read")
				return
			}
			out := make([]domain.Listener, 0, len(all))
			for _, val := range all {
				var l domain.Listener
				if json.Unmarshal([]byte(val), &l) == nil {
					out = append(out, l)
				}
			}
			sort.Slice(out, func(i, j int) bool { return out[i].UID < out[j].UID })
			fn(out)
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

func (p *Presence) CreateCall(ctx context.Context, req *domain.CallRequest) error {
	return p.writeCall(ctx, req)
}

func (p *Presence) GetCall(ctx context.Context, id string) (*domain.CallRequest, error) {
	val, err := p.rdb.Get(ctx, callKey(id)).Bytes()
	if err == redis.Nil {
		return nil, ErrCallNotFound
	}
	if err != nil {
		return nil, err
	}
	var req domain.CallRequest
	if err := json.Unmarshal(val, &req); err != nil {
		return nil, err
	}
	return &req, nil
}

func (p *Presence) UpdateCall(ctx context.Context, id string, mutate func(*domain.CallRequest) error) error {
	req, err := p.GetCall(ctx, id)
	if err != nil {
		return err
	}
	if err := mutate(req); err != nil {
		return err
	}
	return p.writeCall(ctx, req)
}

func (p *Presence) DeleteCall(ctx context.Context, id string) error {
	req, err := p.GetCall(ctx, id)
	if err != nil {
		return err
	}
	pipe := p.rdb.TxPipeline()
	pipe.Del(ctx, callKey(id))
	pipe.SRem(ctx, callIndexKey, id)
	pipe.Publish(ctx, callEventChan(id), "delete")
	pipe.Publish(ctx, callIncomingChan(req.ListenerID), id)
	_, err = pipe.Exec(ctx)
	return err
}

func (p *Presence) WatchCall(ctx context.Context, id string, fn func(*domain.CallRequest)) error {
	ps := p.rdb.Subscribe(ctx, callEventChan(id))
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return err
	}

	go func() {
		defer func() { _ = ps.Close() }()
		deliver := func() {
			req, err := p.GetCall(ctx, id)
			if err != nil && !errors.Is(err, ErrCallNotFound) {
				log.Error().Err(err).Str("module", "store.redis").Str("call", id).Msg("call read")
				return
			}
			fn(req)
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

func (p *Presence) WatchIncoming(ctx context.Context, listener domain.UserID, fn func(*domain.CallRequest)) error {
	ps := p.rdb.Subscribe(ctx, callIncomingChan(listener))
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return err
	}

	go func() {
		defer func() { _ = ps.Close() }()
		deliver := func() {
			req, err := p.oldestPending(ctx, listener)
			if err != nil {
				log.Error().Err(err).Str("module", "store.redis").Msg("incoming scan")
				return
			}
			fn(req)
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

func (p *Presence) writeCall(ctx context.Context, req *domain.CallRequest) error {
	b, err := json.Marshal(req)
	if err != nil {
		return err
	}
	pipe := p.rdb.TxPipeline()
	pipe.Set(ctx, callKey(req.ID), b, 0)
	pipe.SAdd(ctx, callIndexKey, req.ID)
	pipe.Publish(ctx, callEventChan(req.ID), "write")
	pipe.Publish(ctx, callIncomingChan(req.ListenerID), req.ID)
	_, err = pipe.Exec(ctx)
	return err
}

func (p *Presence) oldestPending(ctx context.Context, listener domain.UserID) (*domain.CallRequest, error) {
	ids, err := p.rdb.SMembers(ctx, callIndexKey).Result()
	if err != nil {
		return nil, err
	}
	var oldest *domain.CallRequest
	for _, id := range ids {
		req, err := p.GetCall(ctx, id)
		if errors.Is(err, ErrCallNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if req.ListenerID != listener || req.Status != domain.CallPending {
			continue
		}
		if oldest == nil || req.CreatedAt < oldest.CreatedAt {
			oldest = req
		}
	}
	return oldest, nil
}

var _ core.PresenceStore = (*Presence)(nil)
