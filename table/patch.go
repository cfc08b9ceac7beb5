package table

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"poker-table-client/card"
	"poker-table-client/clienterrors"
)

const (
	maxCommunityCards = 5
	holeCards         = 2
)

// Field is an optional patch value. Set distinguishes "absent" from a zero value.
type Field[T any] struct {
	Value T
	Set   bool
}

// Some returns a set Field.
func Some[T any](v T) Field[T] {
	return Field[T]{Value: v, Set: true}
}

// Patch is a full or partial snapshot. Every Set field overwrites the held
// value; unset fields keep it. Slices replace wholesale.
type Patch struct {
	TableID             Field[string]
	CommunityCards      Field[[]card.Card]
	Participants        Field[[]ParticipantView]
	ActiveParticipantID Field[string]
	Pot                 Field[int]
	CurrentBet          Field[int]
	MinRaise            Field[int]
	Phase               Field[Phase]
	Winner              Field[*Winner]
	Seq                 Field[uint64]
}

// FullPatch returns a patch that sets every field from s.
func FullPatch(s Snapshot) Patch {
	p := Patch{
		TableID:             Some(s.TableID),
		CommunityCards:      Some(s.CommunityCards),
		Participants:        Some(s.Participants),
		ActiveParticipantID: Some(s.ActiveParticipantID),
		Pot:                 Some(s.Pot),
		CurrentBet:          Some(s.CurrentBet),
		MinRaise:            Some(s.MinRaise),
		Phase:               Some(s.Phase),
		Winner:              Some(s.Winner),
	}
	if s.Seq != 0 {
		p.Seq = Some(s.Seq)
	}
	return p
}

// Validate checks the invariants a held snapshot must satisfy.
func (p Patch) Validate() error {
	for name, f := range map[string]Field[int]{"pot": p.Pot, "currentBet": p.CurrentBet, "minRaise": p.MinRaise} {
		if f.Set && f.Value < 0 {
			return fmt.Errorf("%w: negative %s %d", clienterrors.ErrDataIntegrity, name, f.Value)
		}
	}
	if p.CommunityCards.Set && len(p.CommunityCards.Value) > maxCommunityCards {
		return fmt.Errorf("%w: %d community cards", clienterrors.ErrDataIntegrity, len(p.CommunityCards.Value))
	}
	if p.Phase.Set {
		if _, err := ParsePhase(string(p.Phase.Value)); err != nil {
			return fmt.Errorf("%w: %v", clienterrors.ErrDataIntegrity, err)
		}
	}
	if p.Participants.Set {
		seen := make(map[string]struct{}, len(p.Participants.Value))
		for _, pv := range p.Participants.Value {
			if pv.ID == "" {
				return fmt.Errorf("%w: participant without id", clienterrors.ErrDataIntegrity)
			}
			if _, dup := seen[pv.ID]; dup {
				return fmt.Errorf("%w: duplicate participant %q", clienterrors.ErrDataIntegrity, pv.ID)
			}
			seen[pv.ID] = struct{}{}
			if pv.ChipStack < 0 || pv.CurrentBet < 0 {
				return fmt.Errorf("%w: negative amounts for %q", clienterrors.ErrDataIntegrity, pv.ID)
			}
			if n := len(pv.Hand); n != 0 && n != holeCards {
				return fmt.Errorf("%w: %q holds %d cards", clienterrors.ErrDataIntegrity, pv.ID, n)
			}
		}
	}
	return nil
}

// object is a decoded JSON object whose fields may go by several names.
type object map[string]json.RawMessage

// pick returns the first key present, so canonical names win over aliases.
func (o object) pick(keys ...string) (json.RawMessage, bool) {
	for _, k := range keys {
		if raw, ok := o[k]; ok {
			return raw, true
		}
	}
	return nil, false
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

// DecodePatch turns a gameState payload into a Patch. It accepts the field
// aliases older servers send (board, players, cards, chips, currentPlayer,
// bettingRound, gameId, username). Malformed values are integrity errors;
// unrecognizable cards are not, they decode to card.Unknown.
func DecodePatch(data []byte) (Patch, error) {
	var o object
	if err := json.Unmarshal(data, &o); err != nil {
		return Patch{}, fmt.Errorf("%w: %v", clienterrors.ErrDataIntegrity, err)
	}
	var p Patch
	var err error

	if raw, ok := o.pick("tableId", "gameId"); ok && !isNull(raw) {
		if p.TableID.Value, err = decodeID(raw); err != nil {
			return Patch{}, fieldErr("tableId", err)
		}
		p.TableID.Set = true
	}
	if raw, ok := o.pick("communityCards", "board"); ok {
		p.CommunityCards = Some(decodeCards(raw))
	}
	if raw, ok := o.pick("participants", "players"); ok {
		var list []object
		if !isNull(raw) {
			if err := json.Unmarshal(raw, &list); err != nil {
				return Patch{}, fieldErr("participants", err)
			}
		}
		views := make([]ParticipantView, 0, len(list))
		for i, po := range list {
			pv, err := decodeParticipant(po)
			if err != nil {
				return Patch{}, fieldErr("participants["+strconv.Itoa(i)+"]", err)
			}
			views = append(views, pv)
		}
		p.Participants = Some(views)
	}
	if raw, ok := o.pick("activeParticipantId", "currentPlayer"); ok {
		id := ""
		if !isNull(raw) {
			if id, err = decodeID(raw); err != nil {
				return Patch{}, fieldErr("activeParticipantId", err)
			}
		}
		p.ActiveParticipantID = Some(id)
	}
	for _, f := range []struct {
		dst  *Field[int]
		keys []string
	}{
		{&p.Pot, []string{"pot"}},
		{&p.CurrentBet, []string{"currentBet"}},
		{&p.MinRaise, []string{"minRaise"}},
	} {
		raw, ok := o.pick(f.keys...)
		if !ok || isNull(raw) {
			continue
		}
		n, err := decodeAmount(raw)
		if err != nil {
			return Patch{}, fieldErr(f.keys[0], err)
		}
		*f.dst = Some(n)
	}
	if raw, ok := o.pick("phase", "bettingRound"); ok && !isNull(raw) {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return Patch{}, fieldErr("phase", err)
		}
		ph, err := ParsePhase(s)
		if err != nil {
			return Patch{}, fieldErr("phase", err)
		}
		p.Phase = Some(ph)
	}
	if raw, ok := o.pick("winner"); ok {
		var w *Winner
		if !isNull(raw) {
			if w, err = decodeWinner(raw); err != nil {
				return Patch{}, fieldErr("winner", err)
			}
		}
		p.Winner = Some(w)
	}
	if raw, ok := o.pick("seq"); ok && !isNull(raw) {
		n, err := decodeSeq(raw)
		if err != nil {
			return Patch{}, fieldErr("seq", err)
		}
		p.Seq = Some(n)
	}
	return p, nil
}

func fieldErr(field string, err error) error {
	return fmt.Errorf("%w: %s: %v", clienterrors.ErrDataIntegrity, field, err)
}

func decodeParticipant(o object) (ParticipantView, error) {
	var pv ParticipantView
	raw, ok := o.pick("id", "_id", "participantId", "playerId")
	if !ok || isNull(raw) {
		return pv, fmt.Errorf("missing id")
	}
	id, err := decodeID(raw)
	if err != nil {
		return pv, err
	}
	pv.ID = id
	if raw, ok := o.pick("displayName", "username", "name"); ok && !isNull(raw) {
		_ = json.Unmarshal(raw, &pv.DisplayName)
	}
	if raw, ok := o.pick("chipStack", "chips"); ok && !isNull(raw) {
		if pv.ChipStack, err = decodeAmount(raw); err != nil {
			return pv, fmt.Errorf("chipStack: %w", err)
		}
	}
	if raw, ok := o.pick("currentBet", "bet"); ok && !isNull(raw) {
		if pv.CurrentBet, err = decodeAmount(raw); err != nil {
			return pv, fmt.Errorf("currentBet: %w", err)
		}
	}
	if raw, ok := o.pick("hand", "cards"); ok {
		pv.Hand = decodeCards(raw)
	} else {
		pv.Hand = []card.Card{}
	}
	pv.Folded = decodeFlag(o, "folded")
	pv.IsDealer = decodeFlag(o, "isDealer", "dealer")
	pv.IsSmallBlind = decodeFlag(o, "isSmallBlind", "smallBlind")
	pv.IsBigBlind = decodeFlag(o, "isBigBlind", "bigBlind")
	return pv, nil
}

func decodeWinner(raw json.RawMessage) (*Winner, error) {
	var o object
	if err := json.Unmarshal(raw, &o); err != nil {
		return nil, err
	}
	var w Winner
	if idRaw, ok := o.pick("id", "_id", "participantId"); ok && !isNull(idRaw) {
		id, err := decodeID(idRaw)
		if err != nil {
			return nil, err
		}
		w.ID = id
	}
	if nameRaw, ok := o.pick("displayName", "username", "name"); ok {
		_ = json.Unmarshal(nameRaw, &w.DisplayName)
	}
	if w.ID == "" && w.DisplayName == "" {
		return nil, fmt.Errorf("winner without id or name")
	}
	return &w, nil
}

func decodeCards(raw json.RawMessage) []card.Card {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return []card.Card{}
	}
	out := make([]card.Card, len(items))
	for i, item := range items {
		out[i] = card.FromJSON(item)
	}
	return out
}

// decodeID accepts strings and integral numbers.
func decodeID(raw json.RawMessage) (string, error) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return "", err
	}
	switch t := v.(type) {
	case string:
		return t, nil
	case float64:
		if t == math.Trunc(t) {
			return strconv.FormatInt(int64(t), 10), nil
		}
	}
	return "", fmt.Errorf("id must be a string, got %s", raw)
}

// decodeAmount accepts non-negative integral numbers.
func decodeAmount(raw json.RawMessage) (int, error) {
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return 0, err
	}
	if f != math.Trunc(f) || f >= float64(math.MaxInt) {
		return 0, fmt.Errorf("not an integer amount: %s", raw)
	}
	if f < 0 {
		return 0, fmt.Errorf("negative amount: %s", raw)
	}
	return int(f), nil
}

// decodeSeq accepts non-negative integers up to 2^64-1, exactly. Servers
// often stamp seq with a millisecond clock.
func decodeSeq(raw json.RawMessage) (uint64, error) {
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return 0, err
	}
	if v, err := strconv.ParseUint(n.String(), 10, 64); err == nil {
		return v, nil
	}
	f, err := n.Float64()
	if err != nil || f < 0 || f != math.Trunc(f) || f >= math.MaxUint64 {
		return 0, fmt.Errorf("not a sequence number: %s", raw)
	}
	return uint64(f), nil
}

func decodeFlag(o object, keys ...string) bool {
	raw, ok := o.pick(keys...)
	if !ok {
		return false
	}
	var b bool
	_ = json.Unmarshal(raw, &b)
	return b
}
