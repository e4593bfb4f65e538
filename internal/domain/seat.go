package domain

import (
	"errors"
	"fmt"
)

// Seat is a tagged seat assignment. The wire encoding keeps the legacy
// numeric indices (999 host, -1 audience, 0..7 grid) so documents stay
// compatible with existing clients.
type Seat int

const (
	SeatAudience Seat = -1
	SeatHost     Seat = 999

	GridSeatCount = 8
)

var ErrBadSeatIndex = errors.New("seat index out of range")

// GridSeat builds a grid seat assignment from index 0..7.
func GridSeat(i int) (Seat, error) {
	if i < 0 || i >= GridSeatCount {
		return SeatAudience, ErrBadSeatIndex
	}
	return Seat(i), nil
}

func (s Seat) IsHost() bool     { return s == SeatHost }
func (s Seat) IsAudience() bool { return s == SeatAudience }
func (s Seat) IsGrid() bool     { return s >= 0 && s < GridSeatCount }

// Seated reports whether the assignment allows transmitting audio.
func (s Seat) Seated() bool { return s.IsHost() || s.IsGrid() }

// GridIndex returns the 0..7 index for grid seats.
func (s Seat) GridIndex() (int, bool) {
	if s.IsGrid() {
		return int(s), true
	}
	return 0, false
}

func (s Seat) Valid() bool {
	return s.IsHost() || s.IsAudience() || s.IsGrid()
}

func (s Seat) String() string {
	switch {
	case s.IsHost():
		return "host"
	case s.IsAudience():
		return "audience"
	case s.IsGrid():
		return fmt.Sprintf("grid(%d)", int(s))
	default:
		return fmt.Sprintf("invalid(%d)", int(s))
	}
}
