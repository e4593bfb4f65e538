package session

import (
	"context"

	"github.com/google/uuid"

	"github.com/lumachat/voiceroom/internal/domain"
)

// EnableMusic turns the shared player on. Authority only.
func (s *Session) EnableMusic(ctx context.Context) error {
	return s.update(ctx, func(room *domain.Room, me *domain.Participant) error {
		if !room.IsAuthority(me.UID) {
			return ErrNotAuthority
		}
		if room.Music == nil {
			room.Music = &domain.MusicState{}
		}
		room.Music.Enabled = true
		return nil
	})
}

// DisableMusic turns the player off and clears playback; the queue
// survives for the next enable.
func (s *Session) DisableMusic(ctx context.Context) error {
	return s.update(ctx, func(room *domain.Room, me *domain.Participant) error {
		if !room.IsAuthority(me.UID) {
			return ErrNotAuthority
		}
		if room.Music == nil {
			return nil
		}
		room.Music.Enabled = false
		room.Music.ClearPlayback()
		return nil
	})
}

// PlayPause toggles playback, freezing or restarting the shared clock so
// every client lands on the same position.
func (s *Session) PlayPause(ctx context.Context) error {
	return s.update(ctx, func(room *domain.Room, me *domain.Participant) error {
		if !room.IsAuthority(me.UID) {
			return ErrNotAuthority
		}
		m := room.Music
		if m == nil || !m.Enabled {
			return ErrMusicDisabled
		}
		if m.URL == "" {
			return ErrNothingPlaying
		}
		now := s.now()
		pos := m.Position(now)
		if m.Playing {
			m.Pause(pos)
		} else {
			m.Resume(now, pos)
		}
		return nil
	})
}

// PlayNext advances to the next queued song, or stops playback when the
// queue is empty.
func (s *Session) PlayNext(ctx context.Context) error {
	return s.update(ctx, func(room *domain.Room, me *domain.Participant) error {
		if !room.IsAuthority(me.UID) {
			return ErrNotAuthority
		}
		m := room.Music
		if m == nil || !m.Enabled {
			return ErrMusicDisabled
		}
		if len(m.Queue) == 0 {
			m.ClearPlayback()
			return nil
		}
		next := m.Queue[0]
		m.Queue = m.Queue[1:]
		m.StartSong(s.now(), next)
		return nil
	})
}

// QueueAdd appends a song. Authority only; when nothing is loaded the
// song starts immediately.
func (s *Session) QueueAdd(ctx context.Context, song domain.Song) error {
	if song.ID == "" {
		song.ID = uuid.NewString()
	}
	song.AddedBy = s.self.UID
	song.AddedByName = s.self.DisplayName
	return s.update(ctx, func(room *domain.Room, me *domain.Participant) error {
		if !room.IsAuthority(me.UID) {
			return ErrNotAuthority
		}
		m := room.Music
		if m == nil || !m.Enabled {
			return ErrMusicDisabled
		}
		if m.URL == "" {
			m.StartSong(s.now(), song)
			return nil
		}
		m.Queue = append(m.Queue, song)
		return nil
	})
}

// QueueRemove drops a queued song. Authority only.
func (s *Session) QueueRemove(ctx context.Context, songID string) error {
	return s.update(ctx, func(room *domain.Room, me *domain.Participant) error {
		if !room.IsAuthority(me.UID) {
			return ErrNotAuthority
		}
		m := room.Music
		if m == nil {
			return ErrMusicDisabled
		}
		for i, song := range m.Queue {
			if song.ID != songID {
				continue
			}
			m.Queue = append(m.Queue[:i], m.Queue[i+1:]...)
			return nil
		}
		return nil
	})
}
