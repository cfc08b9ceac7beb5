// Package card defines the structured playing card used across snapshots and
// the total normalization of the loose encodings a game server may send.
package card

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Rank is a card rank; RankUnknown is the zero value.
type Rank uint8

const (
	RankUnknown Rank = 0
	RankTwo     Rank = iota + 1
	RankThree
	RankFour
	RankFive
	RankSix
	RankSeven
	RankEight
	RankNine
	RankTen
	RankJack
	RankQueen
	RankKing
	RankAce
)

// Suit is a card suit; SuitUnknown is the zero value.
type Suit uint8

const (
	SuitUnknown Suit = iota
	Hearts
	Diamonds
	Clubs
	Spades
)

// Card is a rank/suit pair. A card with either part unknown is Unknown.
type Card struct {
	Rank Rank
	Suit Suit
}

// Unknown is the distinguished value for absent, face-down or unparseable cards.
var Unknown = Card{}

// Known reports whether both rank and suit were recognized.
func (c Card) Known() bool {
	return c.Rank != RankUnknown && c.Suit != SuitUnknown
}

var rankText = map[Rank]string{
	RankTwo: "2", RankThree: "3", RankFour: "4", RankFive: "5", RankSix: "6",
	RankSeven: "7", RankEight: "8", RankNine: "9", RankTen: "10",
	RankJack: "J", RankQueen: "Q", RankKing: "K", RankAce: "A",
}

var suitText = map[Suit]string{Hearts: "hearts", Diamonds: "diamonds", Clubs: "clubs", Spades: "spades"}

// String returns the rank symbol ("10", "J", ...) or "?".
func (r Rank) String() string {
	if s, ok := rankText[r]; ok {
		return s
	}
	return "?"
}

// String returns the full suit name or "unknown".
func (s Suit) String() string {
	if t, ok := suitText[s]; ok {
		return t
	}
	return "unknown"
}

// Symbol returns the unicode pip for the suit.
func (s Suit) Symbol() string {
	switch s {
	case Hearts:
		return "♥"
	case Diamonds:
		return "♦"
	case Clubs:
		return "♣"
	case Spades:
		return "♠"
	default:
		return "?"
	}
}

// Red reports whether the suit is hearts or diamonds.
func (s Suit) Red() bool {
	return s == Hearts || s == Diamonds
}

// String returns the compact code, e.g. "Ah" or "10d"; "??" when unknown.
func (c Card) String() string {
	if !c.Known() {
		return "??"
	}
	return c.Rank.String() + suitText[c.Suit][:1]
}

// MarshalJSON encodes a known card as its compact code and an unknown card as null.
func (c Card) MarshalJSON() ([]byte, error) {
	if !c.Known() {
		return []byte("null"), nil
	}
	return json.Marshal(c.String())
}

// UnmarshalJSON accepts any encoding Normalize accepts and never fails on
// content; unrecognized input yields Unknown.
func (c *Card) UnmarshalJSON(b []byte) error {
	*c = FromJSON(b)
	return nil
}

// FromJSON normalizes a raw JSON card value.
func FromJSON(raw json.RawMessage) Card {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return Unknown
	}
	return Normalize(v)
}

// Normalize converts a loosely-typed card (compact string, or an object with
// rank/value and suit) into a Card. It is total: anything unrecognized
// becomes Unknown.
func Normalize(v any) Card {
	switch t := v.(type) {
	case Card:
		if t.Known() {
			return t
		}
		return Unknown
	case string:
		return ParseCode(t)
	case map[string]any:
		r, ok := t["rank"]
		if !ok || r == nil || r == "" {
			r = t["value"]
		}
		return build(parseRankValue(r), parseSuitValue(t["suit"]))
	default:
		return Unknown
	}
}

// ParseCode parses a compact code such as "Ah", "10d", "Td" or "qs".
func ParseCode(s string) Card {
	s = strings.TrimSpace(s)
	if len(s) < 2 || len(s) > 3 {
		return Unknown
	}
	return build(ParseRank(s[:len(s)-1]), ParseSuit(s[len(s)-1:]))
}

// ParseRank accepts "2".."10", "T", "J", "Q", "K", "A" in any case.
func ParseRank(s string) Rank {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "2":
		return RankTwo
	case "3":
		return RankThree
	case "4":
		return RankFour
	case "5":
		return RankFive
	case "6":
		return RankSix
	case "7":
		return RankSeven
	case "8":
		return RankEight
	case "9":
		return RankNine
	case "10", "T":
		return RankTen
	case "J", "JACK":
		return RankJack
	case "Q", "QUEEN":
		return RankQueen
	case "K", "KING":
		return RankKing
	case "A", "ACE":
		return RankAce
	default:
		return RankUnknown
	}
}

// ParseSuit accepts one-letter or full suit names in any case.
func ParseSuit(s string) Suit {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "h", "hearts", "heart":
		return Hearts
	case "d", "diamonds", "diamond":
		return Diamonds
	case "c", "clubs", "club":
		return Clubs
	case "s", "spades", "spade":
		return Spades
	default:
		return SuitUnknown
	}
}

func parseRankValue(v any) Rank {
	switch t := v.(type) {
	case string:
		if n, err := strconv.Atoi(t); err == nil {
			return rankFromNumber(n)
		}
		return ParseRank(t)
	case float64:
		if t != float64(int(t)) {
			return RankUnknown
		}
		return rankFromNumber(int(t))
	default:
		return RankUnknown
	}
}

// rankFromNumber maps 2..14 directly and 1 to the ace.
func rankFromNumber(n int) Rank {
	switch {
	case n == 1:
		return RankAce
	case n >= 2 && n <= 14:
		return Rank(n)
	default:
		return RankUnknown
	}
}

func parseSuitValue(v any) Suit {
	if s, ok := v.(string); ok {
		return ParseSuit(s)
	}
	return SuitUnknown
}

func build(r Rank, s Suit) Card {
	if r == RankUnknown || s == SuitUnknown {
		return Unknown
	}
	return Card{Rank: r, Suit: s}
}
