package table

import (
	"fmt"
	"strconv"
	"strings"

	"poker-table-client/clienterrors"
)

// Action is a betting action the local participant can request.
type Action string

const (
	ActionCheck Action = "check"
	ActionCall  Action = "call"
	ActionRaise Action = "raise"
	ActionFold  Action = "fold"
)

// ParseAction accepts the action names case-insensitively.
func ParseAction(s string) (Action, error) {
	switch a := Action(strings.ToLower(strings.TrimSpace(s))); a {
	case ActionCheck, ActionCall, ActionRaise, ActionFold:
		return a, nil
	default:
		return "", fmt.Errorf("unknown action %q", s)
	}
}

// Eligibility is what the local participant may do on the current snapshot.
// The zero value means "nothing", which is also the answer when it is not
// the participant's turn.
type Eligibility struct {
	CanCheck       bool `json:"canCheck"`
	CanCall        bool `json:"canCall"`
	CanRaise       bool `json:"canRaise"`
	CanFold        bool `json:"canFold"`
	CallAmount     int  `json:"callAmount"`
	MinRaiseAmount int  `json:"minRaiseAmount"`

	// ChipStack is the stack the bounds were computed against.
	ChipStack int `json:"chipStack"`
}

// Resolve computes eligibility for localID from s alone. Nothing is eligible
// unless localID is the active participant, seated exactly once, not folded,
// and the hand is not at showdown.
func Resolve(s Snapshot, localID string) Eligibility {
	if localID == "" || s.ActiveParticipantID != localID || s.Phase == PhaseShowdown {
		return Eligibility{}
	}
	var me *ParticipantView
	for i := range s.Participants {
		if s.Participants[i].ID != localID {
			continue
		}
		if me != nil {
			return Eligibility{}
		}
		me = &s.Participants[i]
	}
	if me == nil || me.Folded {
		return Eligibility{}
	}

	return Eligibility{
		CanCheck:       s.CurrentBet == 0,
		CanCall:        s.CurrentBet > 0 && me.ChipStack >= s.CurrentBet,
		CanRaise:       me.ChipStack > 0 && me.ChipStack >= s.MinRaise,
		CanFold:        true,
		CallAmount:     s.CurrentBet,
		MinRaiseAmount: s.MinRaise,
		ChipStack:      me.ChipStack,
	}
}

// Any reports whether at least one action is available.
func (e Eligibility) Any() bool {
	return e.CanCheck || e.CanCall || e.CanRaise || e.CanFold
}

// Allows reports whether a is currently available.
func (e Eligibility) Allows(a Action) bool {
	switch a {
	case ActionCheck:
		return e.CanCheck
	case ActionCall:
		return e.CanCall
	case ActionRaise:
		return e.CanRaise
	case ActionFold:
		return e.CanFold
	default:
		return false
	}
}

// Actions lists the available actions in display order.
func (e Eligibility) Actions() []Action {
	var out []Action
	for _, a := range []Action{ActionFold, ActionCheck, ActionCall, ActionRaise} {
		if e.Allows(a) {
			out = append(out, a)
		}
	}
	return out
}

// FieldError is a validation failure tied to one input field, so a UI can
// render it next to that field.
type FieldError struct {
	Field string
	Err   error
	Limit int
}

func (e *FieldError) Error() string {
	switch e.Err {
	case clienterrors.ErrInsufficientChips:
		return fmt.Sprintf("%s: %v (you have %d)", e.Field, e.Err, e.Limit)
	case clienterrors.ErrBelowMinimumRaise:
		return fmt.Sprintf("%s: %v (minimum %d)", e.Field, e.Err, e.Limit)
	default:
		return fmt.Sprintf("%s: %v", e.Field, e.Err)
	}
}

func (e *FieldError) Unwrap() error {
	return e.Err
}

// ValidateRaise pre-checks a proposed raise amount. The server still decides;
// passing here only means the request is worth sending.
func (e Eligibility) ValidateRaise(amount int) error {
	switch {
	case amount <= 0:
		return &FieldError{Field: "amount", Err: clienterrors.ErrInvalidAmount}
	case amount > e.ChipStack:
		return &FieldError{Field: "amount", Err: clienterrors.ErrInsufficientChips, Limit: e.ChipStack}
	case amount < e.MinRaiseAmount:
		return &FieldError{Field: "amount", Err: clienterrors.ErrBelowMinimumRaise, Limit: e.MinRaiseAmount}
	}
	return nil
}

// ParseAmount reads a raise amount typed by the user.
func ParseAmount(input string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(input))
	if err != nil || n <= 0 {
		return 0, &FieldError{Field: "amount", Err: clienterrors.ErrInvalidAmount}
	}
	return n, nil
}
