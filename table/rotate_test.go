package table

import (
	"errors"
	"testing"

	"poker-table-client/clienterrors"
)

func ids(ps []ParticipantView) []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = p.ID
	}
	return out
}

func TestRotateHomeSeatFirst(t *testing.T) {
	s := Snapshot{Participants: []ParticipantView{{ID: "p2"}, {ID: "p1"}, {ID: "p3"}}}

	got, err := Rotate(s, "p1")
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"p1", "p3", "p2"}
	if g := ids(got); len(g) != 3 || g[0] != want[0] || g[1] != want[1] || g[2] != want[2] {
		t.Errorf("Rotate = %v, want %v", g, want)
	}
}

func TestRotateIsCyclicShift(t *testing.T) {
	base := []ParticipantView{{ID: "a"}, {ID: "b"}, {ID: "c"}, {ID: "d"}, {ID: "e"}}
	s := Snapshot{Participants: base}
	n := len(base)
	for k := range base {
		got, err := Rotate(s, base[k].ID)
		if err != nil {
			t.Fatal(err)
		}
		if got[0].ID != base[k].ID {
			t.Errorf("k=%d: expected %s first, got %s", k, base[k].ID, got[0].ID)
		}
		for i := range got {
			if got[i].ID != base[(k+i)%n].ID {
				t.Errorf("k=%d: position %d is %s, want %s", k, i, got[i].ID, base[(k+i)%n].ID)
			}
		}
	}
}

func TestRotateSpectatorUnrotated(t *testing.T) {
	s := Snapshot{Participants: []ParticipantView{{ID: "p2"}, {ID: "p1"}}}
	got, err := Rotate(s, "watcher")
	if err != nil {
		t.Fatal(err)
	}
	if g := ids(got); g[0] != "p2" || g[1] != "p1" {
		t.Errorf("expected original order for spectator, got %v", g)
	}
}

func TestRotateDuplicateReported(t *testing.T) {
	s := Snapshot{Participants: []ParticipantView{{ID: "p1"}, {ID: "p2"}, {ID: "p1"}}}
	if _, err := Rotate(s, "p1"); !errors.Is(err, clienterrors.ErrDataIntegrity) {
		t.Errorf("expected data integrity error, got %v", err)
	}
}

func TestSeatsPadsWithEmpty(t *testing.T) {
	seats := Seats([]ParticipantView{{ID: "p1"}, {ID: "p3"}}, DefaultDisplaySeats)
	if len(seats) != DefaultDisplaySeats {
		t.Fatalf("expected %d seats, got %d", DefaultDisplaySeats, len(seats))
	}
	if seats[0] == nil || seats[0].ID != "p1" || seats[1] == nil || seats[1].ID != "p3" {
		t.Errorf("unexpected occupied seats: %v %v", seats[0], seats[1])
	}
	for i := 2; i < len(seats); i++ {
		if seats[i] != nil {
			t.Errorf("seat %d should be empty", i)
		}
	}

	if got := Seats(make([]ParticipantView, 10), 6); len(got) != 10 {
		t.Errorf("expected seats to grow to 10, got %d", len(got))
	}
}
