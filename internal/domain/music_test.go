package domain

import (
	"testing"
	"time"
)

func TestMusicPositionWhilePlaying(t *testing.T) {
	start := time.UnixMilli(1_000_000)
	m := &MusicState{Enabled: true}
	m.StartSong(start, Song{URL: "u", Name: "n", AddedBy: "a"})

	if !m.Playing {
		t.Fatal("StartSong should start playback")
	}
	if got := m.Position(start); got != 0 {
		t.Fatalf("position at start = %v, want 0", got)
	}
	if got := m.Position(start.Add(42 * time.Second)); got != 42*time.Second {
		t.Fatalf("position after 42s = %v", got)
	}
}

func TestMusicPauseFreezesPosition(t *testing.T) {
	start := time.UnixMilli(1_000_000)
	m := &MusicState{Enabled: true}
	m.StartSong(start, Song{URL: "u"})

	at := start.Add(30 * time.Second)
	m.Pause(m.Position(at))

	for _, later := range []time.Duration{0, time.Minute, time.Hour} {
		if got := m.Position(at.Add(later)); got != 30*time.Second {
			t.Fatalf("paused position after %v = %v, want 30s", later, got)
		}
	}
}

func TestMusicResumeContinuesFromPause(t *testing.T) {
	start := time.UnixMilli(1_000_000)
	m := &MusicState{Enabled: true}
	m.StartSong(start, Song{URL: "u"})
	m.Pause(m.Position(start.Add(30 * time.Second)))

	resumeAt := start.Add(5 * time.Minute)
	m.Resume(resumeAt, m.Position(resumeAt))

	if got := m.Position(resumeAt); got != 30*time.Second {
		t.Fatalf("position at resume = %v, want 30s", got)
	}
	if got := m.Position(resumeAt.Add(10 * time.Second)); got != 40*time.Second {
		t.Fatalf("position 10s after resume = %v, want 40s", got)
	}
}

func TestMusicPositionClampsNegative(t *testing.T) {
	now := time.UnixMilli(1_000_000)
	m := &MusicState{URL: "u", Playing: true, Clock: now.Add(time.Second).UnixMilli()}
	if got := m.Position(now); got != 0 {
		t.Fatalf("position before clock start = %v, want 0", got)
	}
}

func TestMusicClearPlaybackKeepsQueue(t *testing.T) {
	m := &MusicState{Enabled: true, URL: "u", SongName: "n", Playing: true, Queue: []Song{{ID: "1"}}}
	m.ClearPlayback()
	if m.URL != "" || m.SongName != "" || m.Playing {
		t.Fatal("ClearPlayback left playback fields set")
	}
	if !m.Enabled || len(m.Queue) != 1 {
		t.Fatal("ClearPlayback must keep queue and enable flag")
	}
}
