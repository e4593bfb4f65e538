package session

import (
	"reflect"
	"testing"

	"github.com/lumachat/voiceroom/internal/domain"
)

func roomWith(uids ...domain.UserID) *domain.Room {
	r := &domain.Room{ID: "r", Active: true}
	for _, uid := range uids {
		r.Participants = append(r.Participants, domain.Participant{UID: uid, Seat: domain.SeatAudience})
	}
	return r
}

func TestReconcileOpensOnlyAsLowerIdentity(t *testing.T) {
	next := roomWith("a1", "b2", "c3")

	acts := Reconcile(nil, next, "b2", nil)
	// b2 dials c3 and waits for a1's offer.
	if want := []domain.UserID{"c3"}; !reflect.DeepEqual(acts.Open, want) {
		t.Fatalf("Open = %v, want %v", acts.Open, want)
	}
	if len(acts.Close) != 0 {
		t.Fatalf("Close = %v, want none", acts.Close)
	}
}

func TestReconcileNeverDialsSelfOrOpenPeers(t *testing.T) {
	next := roomWith("a1", "b2", "c3")
	open := map[domain.UserID]bool{"c3": true}

	acts := Reconcile(next, next, "a1", open)
	if want := []domain.UserID{"b2"}; !reflect.DeepEqual(acts.Open, want) {
		t.Fatalf("Open = %v, want %v", acts.Open, want)
	}
}

func TestReconcileClosesDepartedPeers(t *testing.T) {
	prev := roomWith("a1", "b2", "c3")
	next := roomWith("a1", "c3")
	open := map[domain.UserID]bool{"b2": true, "c3": true}

	acts := Reconcile(prev, next, "a1", open)
	if want := []domain.UserID{"b2"}; !reflect.DeepEqual(acts.Close, want) {
		t.Fatalf("Close = %v, want %v", acts.Close, want)
	}
	if len(acts.Open) != 0 {
		t.Fatalf("Open = %v, want none", acts.Open)
	}
}

func TestReconcileIsIdempotent(t *testing.T) {
	prev := roomWith("a1", "b2")
	next := roomWith("a1", "b2", "c3")
	open := map[domain.UserID]bool{"b2": true}

	first := Reconcile(prev, next, "a1", open)
	second := Reconcile(prev, next, "a1", open)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("same transition produced different actions: %+v vs %+v", first, second)
	}
}

func TestReconcileEnteredSuppressedOnFirstSnapshot(t *testing.T) {
	next := roomWith("a1", "b2")
	acts := Reconcile(nil, next, "a1", nil)
	if len(acts.Entered) != 0 {
		t.Fatalf("initial snapshot produced entered events: %v", acts.Entered)
	}
}

func TestReconcileEnteredOnNewParticipant(t *testing.T) {
	prev := roomWith("a1", "b2")
	next := roomWith("a1", "b2", "c3")
	acts := Reconcile(prev, next, "a1", map[domain.UserID]bool{"b2": true})
	if want := []domain.UserID{"c3"}; !reflect.DeepEqual(acts.Entered, want) {
		t.Fatalf("Entered = %v, want %v", acts.Entered, want)
	}
}

func TestReconcileSeatChangeIsNoop(t *testing.T) {
	prev := roomWith("a1", "b2")
	next := roomWith("a1", "b2")
	next.Participants[1].Seat = domain.Seat(4)
	next.Participants[1].IsMuted = true

	acts := Reconcile(prev, next, "a1", map[domain.UserID]bool{"b2": true})
	if len(acts.Open)+len(acts.Close)+len(acts.Entered) != 0 {
		t.Fatalf("seat change produced actions: %+v", acts)
	}
}

func TestReconcileNilNextClosesEverything(t *testing.T) {
	open := map[domain.UserID]bool{"b2": true, "c3": true}
	acts := Reconcile(roomWith("a1", "b2", "c3"), nil, "a1", open)
	if want := []domain.UserID{"b2", "c3"}; !reflect.DeepEqual(acts.Close, want) {
		t.Fatalf("Close = %v, want %v", acts.Close, want)
	}
}
