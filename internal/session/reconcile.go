package session

import (
	"sort"

	"github.com/lumachat/voiceroom/internal/domain"
)

// Actions is the connection work derived from one snapshot transition.
type Actions struct {
	// Open lists peers the local side must dial: present in the new
	// snapshot, no live connection, and the local identity orders below
	// the peer. The higher side waits for the inbound offer instead.
	Open []domain.UserID
	// Close lists live connections whose peer left the room.
	Close []domain.UserID
	// Entered lists newly appeared participants, for notification only.
	// Empty on the initial snapshot.
	Entered []domain.UserID
}

// Reconcile compares the previous and next room snapshots against the
// set of live connections and returns what must change. It is a pure
// function of its inputs: feeding the same transition twice yields the
// same actions, and a snapshot that changes only seats or mute flags
// yields none.
func Reconcile(prev, next *domain.Room, self domain.UserID, open map[domain.UserID]bool) Actions {
	var out Actions
	if next == nil {
		for uid := range open {
			out.Close = append(out.Close, uid)
		}
		sortIDs(out.Close)
		return out
	}

	present := make(map[domain.UserID]bool, len(next.Participants))
	for _, p := range next.Participants {
		if p.UID == self {
			continue
		}
		present[p.UID] = true
		if !open[p.UID] && self < p.UID {
			out.Open = append(out.Open, p.UID)
		}
	}

	for uid := range open {
		if !present[uid] {
			out.Close = append(out.Close, uid)
		}
	}

	if prev != nil {
		for uid := range present {
			if prev.Find(uid) == nil {
				out.Entered = append(out.Entered, uid)
			}
		}
	}

	sortIDs(out.Open)
	sortIDs(out.Close)
	sortIDs(out.Entered)
	return out
}

func sortIDs(ids []domain.UserID) {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
}
