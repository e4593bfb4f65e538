package rtc

import (
	"bytes"
	"testing"

	"github.com/lumachat/voiceroom/internal/domain"
)

func TestLevelMonitorClassifiesLoudAndSilent(t *testing.T) {
	m := NewLevelMonitor()
	m.Register("loud")
	m.Register("silent")

	m.Push("loud", bytes.Repeat([]byte{200}, 32))
	m.Push("silent", bytes.Repeat([]byte{1}, 32))
	m.tick()

	speaking := m.Speaking()
	if !speaking["loud"] {
		t.Error("loud stream not classified as speaking")
	}
	if speaking["silent"] {
		t.Error("silent stream classified as speaking")
	}

	// No payload this interval: loud falls quiet.
	m.tick()
	if m.Speaking()["loud"] {
		t.Error("stream with no payload must fall quiet")
	}
}

func TestLevelMonitorOnChangeFiresOnTransitionOnly(t *testing.T) {
	m := NewLevelMonitor()
	var calls int
	m.OnChange(func(map[domain.UserID]bool) { calls++ })
	m.Register("u")

	m.Push("u", bytes.Repeat([]byte{200}, 32))
	m.tick()
	if calls != 1 {
		t.Fatalf("transition to speaking fired %d times", calls)
	}

	m.Push("u", bytes.Repeat([]byte{200}, 32))
	m.tick()
	if calls != 1 {
		t.Fatalf("steady state fired callback, calls = %d", calls)
	}

	m.tick()
	if calls != 2 {
		t.Fatalf("transition to quiet fired %d times, want 2", calls)
	}
}

func TestLevelMonitorRegisterIdempotentAndUnregister(t *testing.T) {
	m := NewLevelMonitor()
	m.Register("u")
	m.Push("u", bytes.Repeat([]byte{200}, 32))
	// Re-register must not reset the running analyser.
	m.Register("u")
	m.tick()
	if !m.Speaking()["u"] {
		t.Fatal("re-register dropped accumulated samples")
	}

	m.Unregister("u")
	if m.Registered("u") {
		t.Fatal("still registered after unregister")
	}
	if _, ok := m.Speaking()["u"]; ok {
		t.Fatal("speaking entry survived unregister")
	}
}

func TestLevelMonitorIgnoresUnknownStream(t *testing.T) {
	m := NewLevelMonitor()
	m.Push("ghost", bytes.Repeat([]byte{200}, 32))
	m.tick()
	if len(m.Speaking()) != 0 {
		t.Fatal("unregistered stream produced classification")
	}
}
