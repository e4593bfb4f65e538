package feed

import (
	"testing"

	"github.com/lumachat/voiceroom/internal/domain"
)

func TestSummarize(t *testing.T) {
	rooms := []*domain.Room{
		{ID: "a", Name: "public", Active: true, Password: "pw", Participants: []domain.Participant{{UID: "u1"}, {UID: "u2"}}},
		{ID: "b", Name: "open", Active: true},
		{ID: "c", Name: "ended", Active: false},
		{ID: "d", Name: "private call", Active: true, IsDirectCall: true},
	}

	got := Summarize(rooms)
	if len(got) != 2 {
		t.Fatalf("summaries = %+v, want 2 entries", got)
	}
	if got[0].ID != "a" || got[0].ParticipantCount != 2 || !got[0].HasPassword {
		t.Fatalf("first summary = %+v", got[0])
	}
	if got[1].ID != "b" || got[1].HasPassword {
		t.Fatalf("second summary = %+v", got[1])
	}
}
