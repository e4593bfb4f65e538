package session

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrNotInRoom        = errors.New("not a participant of this room")
	ErrNotAuthority     = errors.New("requires creator or admin rights")
	ErrNotCreator       = errors.New("requires creator rights")
	ErrSeatTaken        = errors.New("seat is already occupied")
	ErrAlreadySeated    = errors.New("participant is already seated")
	ErrSeatLocked       = errors.New("seat is locked")
	ErrHostSeatReserved = errors.New("host seat is reserved for the creator")
	ErrKickProtected    = errors.New("cannot kick the creator or an admin")
	ErrHostMuted        = errors.New("muted by the host")
	ErrRoomInactive     = errors.New("room is no longer active")
	ErrMusicDisabled    = errors.New("music is not enabled in this room")
	ErrNothingPlaying   = errors.New("no song is loaded")
)

// BanError rejects a join while a kick ban is still running. Remaining
// is rounded up so "0 minutes left" is never shown for a live ban.
type BanError struct {
	Remaining time.Duration
}

func (e *BanError) Error() string {
	mins := int(e.Remaining.Minutes())
	if e.Remaining > time.Duration(mins)*time.Minute {
		mins++
	}
	return fmt.Sprintf("kicked from this room, try again in %d min", mins)
}
