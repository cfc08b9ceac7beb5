package table

import (
	"errors"
	"testing"

	"poker-table-client/clienterrors"
)

func turnSnapshot(chips, currentBet, minRaise int) Snapshot {
	return Snapshot{
		Participants:        []ParticipantView{{ID: "p2", ChipStack: 400}, {ID: "p1", ChipStack: chips}},
		ActiveParticipantID: "p1",
		CurrentBet:          currentBet,
		MinRaise:            minRaise,
		Phase:               PhaseTurn,
	}
}

func TestEligibilityScenarios(t *testing.T) {
	tests := []struct {
		name string
		snap Snapshot
		want Eligibility
	}{
		{
			name: "nothing to call, can raise",
			snap: turnSnapshot(100, 0, 20),
			want: Eligibility{CanCheck: true, CanRaise: true, CanFold: true, MinRaiseAmount: 20, ChipStack: 100},
		},
		{
			name: "short stack cannot raise",
			snap: turnSnapshot(10, 0, 20),
			want: Eligibility{CanCheck: true, CanFold: true, MinRaiseAmount: 20, ChipStack: 10},
		},
		{
			name: "facing a bet",
			snap: turnSnapshot(100, 40, 80),
			want: Eligibility{CanCall: true, CanRaise: true, CanFold: true, CallAmount: 40, MinRaiseAmount: 80, ChipStack: 100},
		},
		{
			name: "cannot cover the bet",
			snap: turnSnapshot(30, 40, 80),
			want: Eligibility{CanFold: true, CallAmount: 40, MinRaiseAmount: 80, ChipStack: 30},
		},
		{
			name: "empty stack without a minimum raise",
			snap: turnSnapshot(0, 0, 0),
			want: Eligibility{CanCheck: true, CanFold: true},
		},
		{
			name: "any stack raises without a minimum",
			snap: turnSnapshot(1, 0, 0),
			want: Eligibility{CanCheck: true, CanRaise: true, CanFold: true, ChipStack: 1},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Resolve(tt.snap, "p1"); got != tt.want {
				t.Errorf("Resolve = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestCheckWhenNoBetNeverCall(t *testing.T) {
	for _, chips := range []int{0, 1, 20, 1000} {
		e := Resolve(turnSnapshot(chips, 0, 20), "p1")
		if !e.CanCheck || e.CanCall {
			t.Errorf("chips=%d: expected check and no call, got %+v", chips, e)
		}
	}
}

func TestNoRaiseBelowMinimumStack(t *testing.T) {
	for _, chips := range []int{0, 5, 19} {
		if Resolve(turnSnapshot(chips, 0, 20), "p1").CanRaise {
			t.Errorf("chips=%d below min raise 20 should not allow raise", chips)
		}
	}
}

func TestIneligibleOutsideOwnTurn(t *testing.T) {
	folded := turnSnapshot(100, 0, 20)
	folded.Participants[1].Folded = true

	showdown := turnSnapshot(100, 0, 20)
	showdown.Phase = PhaseShowdown

	otherTurn := turnSnapshot(100, 0, 20)
	otherTurn.ActiveParticipantID = "p2"

	nobody := turnSnapshot(100, 0, 20)
	nobody.ActiveParticipantID = ""

	duplicated := turnSnapshot(100, 0, 20)
	duplicated.Participants = append(duplicated.Participants, ParticipantView{ID: "p1", ChipStack: 5})

	for name, s := range map[string]Snapshot{
		"folded": folded, "showdown": showdown, "other turn": otherTurn,
		"nobody active": nobody, "duplicated": duplicated, "placeholder": Placeholder(StatusAwaiting),
	} {
		if e := Resolve(s, "p1"); e != (Eligibility{}) {
			t.Errorf("%s: expected nothing eligible, got %+v", name, e)
		}
	}
}

func TestEligibilityFollowsActiveParticipant(t *testing.T) {
	s := NewSynchronizer(nil)
	s.Apply(FullPatch(turnSnapshot(100, 0, 20)))
	if !Resolve(s.Current(), "p1").Any() {
		t.Fatal("expected p1 to be eligible")
	}

	s.Apply(Patch{ActiveParticipantID: Some("p2")})
	if Resolve(s.Current(), "p1").Any() {
		t.Error("eligibility must drop as soon as the turn moves on")
	}
}

func TestValidateRaise(t *testing.T) {
	e := Resolve(turnSnapshot(100, 0, 20), "p1")
	tests := []struct {
		amount int
		want   error
	}{
		{0, clienterrors.ErrInvalidAmount},
		{-5, clienterrors.ErrInvalidAmount},
		{150, clienterrors.ErrInsufficientChips},
		{15, clienterrors.ErrBelowMinimumRaise},
		{20, nil},
		{100, nil},
	}
	for _, tt := range tests {
		err := e.ValidateRaise(tt.amount)
		if tt.want == nil {
			if err != nil {
				t.Errorf("amount %d: unexpected error %v", tt.amount, err)
			}
			continue
		}
		if !errors.Is(err, tt.want) {
			t.Errorf("amount %d: expected %v, got %v", tt.amount, tt.want, err)
		}
		var fe *FieldError
		if !errors.As(err, &fe) || fe.Field != "amount" {
			t.Errorf("amount %d: expected a field error on amount, got %T", tt.amount, err)
		}
	}
}

func TestParseAmount(t *testing.T) {
	if n, err := ParseAmount(" 40 "); err != nil || n != 40 {
		t.Errorf("ParseAmount(40) = %d, %v", n, err)
	}
	for _, in := range []string{"", "abc", "12.5", "-3", "0"} {
		if _, err := ParseAmount(in); !errors.Is(err, clienterrors.ErrInvalidAmount) {
			t.Errorf("ParseAmount(%q): expected invalid amount, got %v", in, err)
		}
	}
}

func TestActions(t *testing.T) {
	e := Resolve(turnSnapshot(100, 0, 20), "p1")
	got := e.Actions()
	want := []Action{ActionFold, ActionCheck, ActionRaise}
	if len(got) != len(want) {
		t.Fatalf("Actions = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Actions[%d] = %s, want %s", i, got[i], want[i])
		}
	}
	if _, err := ParseAction("RAISE"); err != nil {
		t.Errorf("expected RAISE to parse: %v", err)
	}
	if _, err := ParseAction("allin"); err == nil {
		t.Error("expected unknown action to fail")
	}
}
