// Package table holds the client's copy of the authoritative table state and
// the pure functions derived from it: seat rotation and turn-action eligibility.
package table

import (
	"fmt"
	"strings"

	"poker-table-client/card"
)

// Phase is the stage of the current hand.
type Phase string

const (
	PhasePreflop  Phase = "preflop"
	PhaseFlop     Phase = "flop"
	PhaseTurn     Phase = "turn"
	PhaseRiver    Phase = "river"
	PhaseShowdown Phase = "showdown"
)

// ParsePhase accepts the phase names case-insensitively, including "pre-flop".
func ParsePhase(s string) (Phase, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "preflop", "pre-flop", "pre_flop":
		return PhasePreflop, nil
	case "flop":
		return PhaseFlop, nil
	case "turn":
		return PhaseTurn, nil
	case "river":
		return PhaseRiver, nil
	case "showdown":
		return PhaseShowdown, nil
	default:
		return "", fmt.Errorf("unknown phase %q", s)
	}
}

// Status says how far the held snapshot can be trusted.
type Status int

const (
	// StatusAwaiting is the placeholder before any snapshot has arrived.
	StatusAwaiting Status = iota
	// StatusLive means the snapshot reflects the latest message from a live channel.
	StatusLive
	// StatusStale means the channel dropped and is reconnecting; data is retained for display only.
	StatusStale
	// StatusDisconnected is the placeholder after the reconnect window expired.
	StatusDisconnected
)

func (s Status) String() string {
	switch s {
	case StatusAwaiting:
		return "connecting"
	case StatusLive:
		return "live"
	case StatusStale:
		return "reconnecting"
	case StatusDisconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// ParticipantView is one seated participant as reported by the server.
type ParticipantView struct {
	ID           string      `json:"id"`
	DisplayName  string      `json:"displayName"`
	ChipStack    int         `json:"chipStack"`
	CurrentBet   int         `json:"currentBet"`
	Hand         []card.Card `json:"hand"`
	Folded       bool        `json:"folded"`
	IsDealer     bool        `json:"isDealer"`
	IsSmallBlind bool        `json:"isSmallBlind"`
	IsBigBlind   bool        `json:"isBigBlind"`
}

// Winner is the participant announced as winner of the hand.
type Winner struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
}

// Snapshot is the client's view of the table. Values handed out by the
// Synchronizer are copies; mutating them has no effect on held state.
type Snapshot struct {
	TableID        string            `json:"tableId"`
	CommunityCards []card.Card       `json:"communityCards"`
	Participants   []ParticipantView `json:"participants"`
	// ActiveParticipantID is empty when nobody is to act.
	ActiveParticipantID string  `json:"activeParticipantId"`
	Pot                 int     `json:"pot"`
	CurrentBet          int     `json:"currentBet"`
	MinRaise            int     `json:"minRaise"`
	Phase               Phase   `json:"phase"`
	Winner              *Winner `json:"winner"`

	// Seq is the server's sequence number, 0 when it does not send one.
	Seq uint64 `json:"seq,omitempty"`

	Status   Status `json:"-"`
	Revision uint64 `json:"-"`
}

// Placeholder returns the empty snapshot shown before real data exists.
func Placeholder(status Status) Snapshot {
	return Snapshot{
		CommunityCards: []card.Card{},
		Participants:   []ParticipantView{},
		Phase:          PhasePreflop,
		Status:         status,
	}
}

// IsPlaceholder reports whether no genuine table data is held.
func (s Snapshot) IsPlaceholder() bool {
	return s.Status == StatusAwaiting || s.Status == StatusDisconnected
}

// Participant returns the first participant with the given id.
func (s Snapshot) Participant(id string) (ParticipantView, bool) {
	for _, p := range s.Participants {
		if p.ID == id {
			return p, true
		}
	}
	return ParticipantView{}, false
}

// Clone returns a deep copy.
func (s Snapshot) Clone() Snapshot {
	out := s
	out.CommunityCards = append([]card.Card{}, s.CommunityCards...)
	out.Participants = cloneParticipants(s.Participants)
	if s.Winner != nil {
		w := *s.Winner
		out.Winner = &w
	}
	return out
}

func cloneParticipants(in []ParticipantView) []ParticipantView {
	out := make([]ParticipantView, len(in))
	for i, p := range in {
		out[i] = p
		out[i].Hand = append([]card.Card{}, p.Hand...)
	}
	return out
}
