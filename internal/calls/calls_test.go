package calls

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/lumachat/voiceroom/internal/core"
	"github.com/lumachat/voiceroom/internal/domain"
	"github.com/lumachat/voiceroom/internal/store/memory"
)

func newSupervisor(opts ...Option) (*Supervisor, *memory.Presence, *memory.RoomStore) {
	presence := memory.NewPresence()
	rooms := memory.NewRoomStore()
	return New(presence, rooms, opts...), presence, rooms
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

var (
	alice = domain.Listener{UID: "alice", DisplayName: "Alice"}
	bob   = domain.Listener{UID: "bob", DisplayName: "Bob"}
)

func TestCallCreatesPendingRequest(t *testing.T) {
	ctx := context.Background()
	sup, presence, _ := newSupervisor()

	req, err := sup.Call(ctx, alice, "bob")
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	if req.Status != domain.CallPending || req.CallerID != "alice" || req.ListenerID != "bob" {
		t.Fatalf("request = %+v", req)
	}
	stored, err := presence.GetCall(ctx, req.ID)
	if err != nil || stored.Status != domain.CallPending {
		t.Fatalf("stored = %+v, %v", stored, err)
	}
}

func TestCallTimesOutUnanswered(t *testing.T) {
	ctx := context.Background()
	sup, presence, _ := newSupervisor(WithTimeout(20 * time.Millisecond))

	req, err := sup.Call(ctx, alice, "bob")
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	waitFor(t, "timeout status", func() bool {
		stored, err := presence.GetCall(ctx, req.ID)
		return err == nil && stored.Status == domain.CallTimeout
	})
}

func TestAcceptBuildsDirectCallRoom(t *testing.T) {
	ctx := context.Background()
	sup, presence, rooms := newSupervisor()

	if err := sup.GoOnline(ctx, bob); err != nil {
		t.Fatalf("go online: %v", err)
	}
	req, err := sup.Call(ctx, alice, "bob")
	if err != nil {
		t.Fatalf("call: %v", err)
	}

	accepted, err := sup.Accept(ctx, req.ID, bob)
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	if accepted.Status != domain.CallAccepted || accepted.RoomID == "" {
		t.Fatalf("accepted = %+v", accepted)
	}

	room, err := rooms.Get(ctx, accepted.RoomID)
	if err != nil {
		t.Fatalf("get room: %v", err)
	}
	if !room.Active || !room.IsDirectCall || room.CreatedBy != "bob" {
		t.Fatalf("room = %+v", room)
	}
	if len(room.Participants) != 2 {
		t.Fatalf("participants = %+v", room.Participants)
	}
	for _, p := range room.Participants {
		if !p.Seat.Seated() {
			t.Errorf("%s not seated: %v", p.UID, p.Seat)
		}
	}

	waitFor(t, "listener busy", func() bool {
		var busy bool
		ctx2, cancel := context.WithCancel(ctx)
		_ = presence.WatchListeners(ctx2, func(ls []domain.Listener) {
			for _, l := range ls {
				if l.UID == "bob" && l.Busy {
					busy = true
				}
			}
		})
		time.Sleep(10 * time.Millisecond)
		cancel()
		return busy
	})
}

func TestAcceptAfterTimeoutFails(t *testing.T) {
	ctx := context.Background()
	sup, presence, rooms := newSupervisor(WithTimeout(10 * time.Millisecond))

	req, err := sup.Call(ctx, alice, "bob")
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	waitFor(t, "timeout", func() bool {
		stored, err := presence.GetCall(ctx, req.ID)
		return err == nil && stored.Status == domain.CallTimeout
	})

	if _, err := sup.Accept(ctx, req.ID, bob); !errors.Is(err, ErrCallOver) {
		t.Fatalf("accept after timeout = %v, want ErrCallOver", err)
	}
	// The answer came too late; no call room may survive.
	list, err := rooms.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 0 {
		t.Fatalf("stray rooms: %+v", list)
	}
}

func TestRejectAndCancel(t *testing.T) {
	ctx := context.Background()
	sup, presence, _ := newSupervisor()

	req, err := sup.Call(ctx, alice, "bob")
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	if err := sup.Reject(ctx, req.ID); err != nil {
		t.Fatalf("reject: %v", err)
	}
	stored, _ := presence.GetCall(ctx, req.ID)
	if stored.Status != domain.CallRejected {
		t.Fatalf("status = %v, want rejected", stored.Status)
	}
	if err := sup.Reject(ctx, req.ID); !errors.Is(err, ErrCallOver) {
		t.Fatalf("double reject = %v, want ErrCallOver", err)
	}

	req2, err := sup.Call(ctx, alice, "bob")
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	if err := sup.Cancel(ctx, req2.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if _, err := presence.GetCall(ctx, req2.ID); !errors.Is(err, core.ErrCallNotFound) {
		t.Fatalf("get after cancel = %v, want ErrCallNotFound", err)
	}
}

func TestFinishClearsBusy(t *testing.T) {
	ctx := context.Background()
	sup, presence, _ := newSupervisor()

	for _, l := range []domain.Listener{alice, bob} {
		if err := sup.GoOnline(ctx, l); err != nil {
			t.Fatalf("go online: %v", err)
		}
		if err := presence.SetBusy(ctx, l.UID, true); err != nil {
			t.Fatalf("set busy: %v", err)
		}
	}
	sup.Finish(ctx, "alice", "bob")

	var cleared bool
	ctx2, cancel := context.WithCancel(ctx)
	defer cancel()
	_ = presence.WatchListeners(ctx2, func(ls []domain.Listener) {
		busy := false
		for _, l := range ls {
			busy = busy || l.Busy
		}
		cleared = len(ls) == 2 && !busy
	})
	waitFor(t, "busy cleared", func() bool { return cleared })
}
