package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/lumachat/voiceroom/internal/core"
	"github.com/lumachat/voiceroom/internal/domain"
)

var ErrCallNotFound = core.ErrCallNotFound

// Presence is the in-process listener/call-request store.
type Presence struct {
	mu        sync.Mutex
	listeners map[domain.UserID]*domain.Listener
	calls     map[string]*domain.CallRequest

	listenerSubs map[int]chan []domain.Listener
	callSubs     map[int]*callSub
	incomingSubs map[int]*incomingSub
	nextID       int
}

type callSub struct {
	id string
	ch chan *domain.CallRequest
}

type incomingSub struct {
	listener domain.UserID
	ch       chan *domain.CallRequest
}

func NewPresence() *Presence {
	return &Presence{
		listeners:    make(map[domain.UserID]*domain.Listener),
		calls:        make(map[string]*domain.CallRequest),
		listenerSubs: make(map[int]chan []domain.Listener),
		callSubs:     make(map[int]*callSub),
		incomingSubs: make(map[int]*incomingSub),
	}
}

func (p *Presence) SetOnline(_ context.Context, l *domain.Listener) error {
	cp := *l
	p.mu.Lock()
	p.listeners[l.UID] = &cp
	p.notifyListenersLocked()
	p.mu.Unlock()
	return nil
}

func (p *Presence) SetOffline(_ context.Context, uid domain.UserID) error {
	p.mu.Lock()
	delete(p.listeners, uid)
	p.notifyListenersLocked()
	p.mu.Unlock()
	return nil
}

func (p *Presence) SetBusy(_ context.Context, uid domain.UserID, busy bool) error {
	p.mu.Lock()
	if l, ok := p.listeners[uid]; ok {
		l.Busy = busy
		p.notifyListenersLocked()
	}
	p.mu.Unlock()
	return nil
}

func (p *Presence) WatchListeners(ctx context.Context, fn func([]domain.Listener)) error {
	ch := make(chan []domain.Listener, subQueueSize)
	p.mu.Lock()
	id := p.nextID
	p.nextID++
	p.listenerSubs[id] = ch
	ch <- p.listenersLocked()
	p.mu.Unlock()

	go func() {
		defer func() {
			p.mu.Lock()
			delete(p.listenerSubs, id)
			p.mu.Unlock()
		}()
		for {
			select {
			case <-ctx.Done():
				return
			case ls := <-ch:
				fn(ls)
			}
		}
	}()
	return nil
}

func (p *Presence) CreateCall(_ context.Context, req *domain.CallRequest) error {
	cp := *req
	p.mu.Lock()
	p.calls[req.ID] = &cp
	p.notifyCallLocked(req.ID)
	p.mu.Unlock()
	return nil
}

func (p *Presence) GetCall(_ context.Context, id string) (*domain.CallRequest, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	req, ok := p.calls[id]
	if !ok {
		return nil, ErrCallNotFound
	}
	cp := *req
	return &cp, nil
}

func (p *Presence) UpdateCall(_ context.Context, id string, mutate func(*domain.CallRequest) error) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	req, ok := p.calls[id]
	if !ok {
		return ErrCallNotFound
	}
	next := *req
	if err := mutate(&next); err != nil {
		return err
	}
	p.calls[id] = &next
	p.notifyCallLocked(id)
	return nil
}

func (p *Presence) DeleteCall(_ context.Context, id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.calls[id]; !ok {
		return ErrCallNotFound
	}
	delete(p.calls, id)
	p.notifyCallLocked(id)
	return nil
}

func (p *Presence) WatchCall(ctx context.Context, id string, fn func(*domain.CallRequest)) error {
	sub := &callSub{id: id, ch: make(chan *domain.CallRequest, subQueueSize)}
	p.mu.Lock()
	key := p.nextID
	p.nextID++
	p.callSubs[key] = sub
	if req, ok := p.calls[id]; ok {
		cp := *req
		sub.ch <- &cp
	}
	p.mu.Unlock()

	go func() {
		defer func() {
			p.mu.Lock()
			delete(p.callSubs, key)
			p.mu.Unlock()
		}()
		for {
			select {
			case <-ctx.Done():
				return
			case req := <-sub.ch:
				fn(req)
			}
		}
	}()
	return nil
}

func (p *Presence) WatchIncoming(ctx context.Context, listener domain.UserID, fn func(*domain.CallRequest)) error {
	sub := &incomingSub{listener: listener, ch: make(chan *domain.CallRequest, subQueueSize)}
	p.mu.Lock()
	key := p.nextID
	p.nextID++
	p.incomingSubs[key] = sub
	push(sub.ch, p.oldestPendingLocked(listener))
	p.mu.Unlock()

	go func() {
		defer func() {
			p.mu.Lock()
			delete(p.incomingSubs, key)
			p.mu.Unlock()
		}()
		for {
			select {
			case <-ctx.Done():
				return
			case req := <-sub.ch:
				fn(req)
			}
		}
	}()
	return nil
}

func (p *Presence) listenersLocked() []domain.Listener {
	out := make([]domain.Listener, 0, len(p.listeners))
	for _, l := range p.listeners {
		out = append(out, *l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UID < out[j].UID })
	return out
}

func (p *Presence) oldestPendingLocked(listener domain.UserID) *domain.CallRequest {
	var oldest *domain.CallRequest
	for _, req := range p.calls {
		if req.ListenerID != listener || req.Status != domain.CallPending {
			continue
		}
		if oldest == nil || req.CreatedAt < oldest.CreatedAt {
			oldest = req
		}
	}
	if oldest == nil {
		return nil
	}
	cp := *oldest
	return &cp
}

func (p *Presence) notifyListenersLocked() {
	if len(p.listenerSubs) == 0 {
		return
	}
	ls := p.listenersLocked()
	for _, ch := range p.listenerSubs {
		push(ch, ls)
	}
}

func (p *Presence) notifyCallLocked(id string) {
	req := p.calls[id] // nil after delete
	for _, sub := range p.callSubs {
		if sub.id != id {
			continue
		}
		var cp *domain.CallRequest
		if req != nil {
			c := *req
			cp = &c
		}
		push(sub.ch, cp)
	}
	for _, sub := range p.incomingSubs {
		if req != nil && req.ListenerID != sub.listener {
			continue
		}
		push(sub.ch, p.oldestPendingLocked(sub.listener))
	}
}

var _ core.PresenceStore = (*Presence)(nil)
