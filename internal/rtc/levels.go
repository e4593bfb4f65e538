package rtc

import (
	"context"
	"sync"
	"time"

	"github.com/lumachat/voiceroom/internal/domain"
)

const (
	// levelSampleInterval is how often streams are reclassified.
	levelSampleInterval = 100 * time.Millisecond
	// levelThreshold is the average sample magnitude above which a stream
	// counts as speaking.
	levelThreshold = 10.0
	// levelWindow caps how many payload bytes feed one classification.
	levelWindow = 64
)

type analyser struct {
	mu  sync.Mutex
	sum float64
	n   int
}

func (a *analyser) push(payload []byte) {
	if len(payload) > levelWindow {
		payload = payload[:levelWindow]
	}
	a.mu.Lock()
	for _, b := range payload {
		a.sum += float64(b)
	}
	a.n += len(payload)
	a.mu.Unlock()
}

// drain returns the average magnitude since the last tick and resets.
func (a *analyser) drain() (avg float64, ok bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.n == 0 {
		return 0, false
	}
	avg = a.sum / float64(a.n)
	a.sum, a.n = 0, 0
	return avg, true
}

// LevelMonitor classifies each registered stream as speaking or not on a
// fixed interval. Output is UI feedback only; it never affects routing.
type LevelMonitor struct {
	mu        sync.Mutex
	analysers map[domain.UserID]*analyser
	speaking  map[domain.UserID]bool
	onChange  func(map[domain.UserID]bool)
}

func NewLevelMonitor() *LevelMonitor {
	return &LevelMonitor{
		analysers: make(map[domain.UserID]*analyser),
		speaking:  make(map[domain.UserID]bool),
	}
}

// OnChange sets the callback invoked with a fresh speaking map whenever
// the classification changes. Must be set before Run.
func (m *LevelMonitor) OnChange(fn func(map[domain.UserID]bool)) { m.onChange = fn }

// Register starts analysing a stream. Registering the same identity twice
// is a no-op: a stream is never analysed twice.
func (m *LevelMonitor) Register(uid domain.UserID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.analysers[uid]; ok {
		return
	}
	m.analysers[uid] = &analyser{}
}

func (m *LevelMonitor) Registered(uid domain.UserID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.analysers[uid]
	return ok
}

// Unregister drops the analyser for a torn-down stream.
func (m *LevelMonitor) Unregister(uid domain.UserID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.analysers, uid)
	delete(m.speaking, uid)
}

// Push feeds inbound payload bytes for the identity's stream.
func (m *LevelMonitor) Push(uid domain.UserID, payload []byte) {
	m.mu.Lock()
	a, ok := m.analysers[uid]
	m.mu.Unlock()
	if ok {
		a.push(payload)
	}
}

// Speaking returns a snapshot of the current classification.
func (m *LevelMonitor) Speaking() map[domain.UserID]bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[domain.UserID]bool, len(m.speaking))
	for k, v := range m.speaking {
		out[k] = v
	}
	return out
}

// Run reclassifies on the sample interval until ctx is done.
func (m *LevelMonitor) Run(ctx context.Context) {
	ticker := time.NewTicker(levelSampleInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.tick()
		}
	}
}

func (m *LevelMonitor) tick() {
	m.mu.Lock()
	changed := false
	for uid, a := range m.analysers {
		avg, ok := a.drain()
		now := ok && avg > levelThreshold
		if m.speaking[uid] != now {
			m.speaking[uid] = now
			changed = true
		}
	}
	var snap map[domain.UserID]bool
	fn := m.onChange
	if changed && fn != nil {
		snap = make(map[domain.UserID]bool, len(m.speaking))
		for k, v := range m.speaking {
			snap[k] = v
		}
	}
	m.mu.Unlock()
	if changed && fn != nil {
		fn(snap)
	}
}
