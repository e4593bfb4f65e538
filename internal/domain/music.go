package domain

import "time"

// MusicDriftTolerance is the playback drift beyond which a rendering
// client must snap to the derived position.
const MusicDriftTolerance = 500 * time.Millisecond

// MusicState is the shared playback document. Clock is a logical clock:
// while playing it holds the epoch-ms instant playback would have started
// at to be at the current position now, so every client derives the
// position as now-Clock without continuous sync messages. While paused it
// holds the frozen position in milliseconds.
type MusicState struct {
	Enabled  bool   `json:"isEnabled"`
	URL      string `json:"musicUrl,omitempty"`
	SongName string `json:"currentSongName,omitempty"`
	PlayedBy UserID `json:"playedBy,omitempty"`
	Playing  bool   `json:"isPlaying"`
	Clock    int64  `json:"musicTime"`
	Queue    []Song `json:"queue,omitempty"`
}

type Song struct {
	ID          string `json:"id"`
	URL         string `json:"url"`
	Name        string `json:"name"`
	Artist      string `json:"artist,omitempty"`
	Duration    int    `json:"duration,omitempty"`
	AddedBy     UserID `json:"addedBy"`
	AddedByName string `json:"addedByName,omitempty"`
}

// Position derives the expected playback position at now.
func (m *MusicState) Position(now time.Time) time.Duration {
	if m == nil || m.URL == "" {
		return 0
	}
	if !m.Playing {
		return time.Duration(m.Clock) * time.Millisecond
	}
	pos := time.Duration(now.UnixMilli()-m.Clock) * time.Millisecond
	if pos < 0 {
		return 0
	}
	return pos
}

// Pause freezes the clock at the given position.
func (m *MusicState) Pause(position time.Duration) {
	m.Playing = false
	m.Clock = position.Milliseconds()
}

// Resume restarts the clock so that Position(now) == position.
func (m *MusicState) Resume(now time.Time, position time.Duration) {
	m.Playing = true
	m.Clock = now.UnixMilli() - position.Milliseconds()
}

// StartSong replaces the current track and restarts the clock.
func (m *MusicState) StartSong(now time.Time, s Song) {
	m.URL = s.URL
	m.SongName = s.Name
	m.PlayedBy = s.AddedBy
	m.Playing = true
	m.Clock = now.UnixMilli()
}

// ClearPlayback stops playback but keeps the queue and enable flag.
func (m *MusicState) ClearPlayback() {
	m.URL = ""
	m.SongName = ""
	m.PlayedBy = ""
	m.Playing = false
}
