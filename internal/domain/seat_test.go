package domain

import "testing"

func TestGridSeat(t *testing.T) {
	for i := 0; i < GridSeatCount; i++ {
		seat, err := GridSeat(i)
		if err != nil {
			t.Fatalf("GridSeat(%d): %v", i, err)
		}
		if !seat.IsGrid() || seat.IsHost() || seat.IsAudience() {
			t.Fatalf("GridSeat(%d) classified wrong: %v", i, seat)
		}
		idx, ok := seat.GridIndex()
		if !ok || idx != i {
			t.Fatalf("GridIndex() = %d, %v; want %d, true", idx, ok, i)
		}
	}
	for _, i := range []int{-1, 8, 999} {
		if _, err := GridSeat(i); err == nil {
			t.Errorf("GridSeat(%d) accepted out-of-range index", i)
		}
	}
}

func TestSeatClassification(t *testing.T) {
	cases := []struct {
		seat   Seat
		seated bool
		valid  bool
	}{
		{SeatHost, true, true},
		{SeatAudience, false, true},
		{Seat(0), true, true},
		{Seat(7), true, true},
		{Seat(8), false, false},
		{Seat(-5), false, false},
	}
	for _, tc := range cases {
		if got := tc.seat.Seated(); got != tc.seated {
			t.Errorf("%v.Seated() = %v, want %v", tc.seat, got, tc.seated)
		}
		if got := tc.seat.Valid(); got != tc.valid {
			t.Errorf("%v.Valid() = %v, want %v", tc.seat, got, tc.valid)
		}
	}
}

func TestSeatString(t *testing.T) {
	if SeatHost.String() != "host" {
		t.Errorf("host seat prints %q", SeatHost.String())
	}
	if SeatAudience.String() != "audience" {
		t.Errorf("audience prints %q", SeatAudience.String())
	}
	if Seat(3).String() != "grid(3)" {
		t.Errorf("grid seat prints %q", Seat(3).String())
	}
}
