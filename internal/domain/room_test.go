package domain

import (
	"testing"
	"time"
)

func testRoom() *Room {
	return &Room{
		ID:        "r1",
		Name:      "lounge",
		CreatedBy: "creator",
		Active:    true,
		Admins:    []UserID{"admin"},
		Participants: []Participant{
			{UID: "creator", Seat: SeatHost},
			{UID: "admin", Seat: Seat(0)},
			{UID: "guest", Seat: SeatAudience},
		},
	}
}

func TestIsAuthority(t *testing.T) {
	r := testRoom()
	for _, uid := range []UserID{"creator", "admin"} {
		if !r.IsAuthority(uid) {
			t.Errorf("%s should be authority", uid)
		}
	}
	if r.IsAuthority("guest") {
		t.Error("guest should not be authority")
	}
}

func TestBanRemaining(t *testing.T) {
	kickedAt := time.UnixMilli(1_000_000_000)
	r := testRoom()
	r.KickedUsers = map[UserID]int64{"guest": kickedAt.UnixMilli()}

	if left := r.BanRemaining("guest", kickedAt.Add(9*time.Minute)); left != time.Minute {
		t.Fatalf("9 minutes in, remaining = %v, want 1m", left)
	}
	if left := r.BanRemaining("guest", kickedAt.Add(KickBanDuration+time.Second)); left != 0 {
		t.Fatalf("after expiry, remaining = %v, want 0", left)
	}
	if left := r.BanRemaining("other", kickedAt); left != 0 {
		t.Fatalf("unbanned user remaining = %v, want 0", left)
	}
}

func TestSeatOccupantAndLocks(t *testing.T) {
	r := testRoom()
	r.LockedSeats = []int{3}

	if occ := r.SeatOccupant(Seat(0)); occ == nil || occ.UID != "admin" {
		t.Fatalf("seat 0 occupant = %+v", occ)
	}
	if occ := r.SeatOccupant(Seat(5)); occ != nil {
		t.Fatalf("empty seat reported occupant %+v", occ)
	}
	// Audience is shared, never occupied.
	if occ := r.SeatOccupant(SeatAudience); occ != nil {
		t.Fatalf("audience reported occupant %+v", occ)
	}
	if !r.SeatLocked(3) || r.SeatLocked(2) {
		t.Fatal("SeatLocked classification wrong")
	}
}

func TestRemoveParticipant(t *testing.T) {
	r := testRoom()
	if !r.RemoveParticipant("guest") {
		t.Fatal("remove existing participant reported false")
	}
	if r.Find("guest") != nil {
		t.Fatal("guest still present after removal")
	}
	if r.RemoveParticipant("guest") {
		t.Fatal("second removal reported true")
	}
}

func TestHasAuthorityBesides(t *testing.T) {
	r := testRoom()
	if !r.HasAuthorityBesides("creator") {
		t.Fatal("admin still present, authority should remain")
	}
	r.RemoveParticipant("admin")
	if r.HasAuthorityBesides("creator") {
		t.Fatal("no other authority left")
	}
}

func TestEffectiveMuted(t *testing.T) {
	p := Participant{IsMuted: false, IsHostMuted: true}
	if !p.EffectiveMuted() {
		t.Fatal("host mute must override unmuted flag")
	}
	p = Participant{IsMuted: true}
	if !p.EffectiveMuted() {
		t.Fatal("self mute must hold")
	}
	p = Participant{}
	if p.EffectiveMuted() {
		t.Fatal("unmuted participant reported muted")
	}
}

func TestCloneIsDeep(t *testing.T) {
	r := testRoom()
	r.KickedUsers = map[UserID]int64{"x": 1}
	r.Music = &MusicState{Enabled: true, Queue: []Song{{ID: "s1"}}}
	r.Participants[0].Reaction = &Reaction{URL: "u", ExpiresAt: 5}

	c := r.Clone()
	c.Participants[0].DisplayName = "changed"
	c.Participants[0].Reaction.URL = "other"
	c.KickedUsers["y"] = 2
	c.Music.Queue[0].ID = "s2"
	c.Admins[0] = "nobody"

	if r.Participants[0].DisplayName == "changed" {
		t.Error("participants shared")
	}
	if r.Participants[0].Reaction.URL != "u" {
		t.Error("reactions shared")
	}
	if _, ok := r.KickedUsers["y"]; ok {
		t.Error("kicked map shared")
	}
	if r.Music.Queue[0].ID != "s1" {
		t.Error("music queue shared")
	}
	if r.Admins[0] != "admin" {
		t.Error("admins shared")
	}
}

func TestReactionExpired(t *testing.T) {
	now := time.UnixMilli(10_000)
	re := &Reaction{URL: "u", ExpiresAt: now.Add(time.Second).UnixMilli()}
	if re.Expired(now) {
		t.Fatal("fresh reaction reported expired")
	}
	if !re.Expired(now.Add(2 * time.Second)) {
		t.Fatal("stale reaction reported live")
	}
	var nilRe *Reaction
	if !nilRe.Expired(now) {
		t.Fatal("nil reaction must count as expired")
	}
}
