package ws

import (
	"encoding/json"
	"fmt"
)

// Message types exchanged with the game server.
const (
	TypeGameState    = "gameState"
	TypeJoinedGame   = "joinedGame"
	TypeError        = "error"
	TypeCreateGame   = "createGame"
	TypeJoinGame     = "joinGame"
	TypePlayerAction = "playerAction"
	TypeNewHand      = "newHand"
)

// InboundEnvelope is the generic envelope for all server-to-client messages.
// The Type field is used for routing; Raw holds the full JSON payload.
type InboundEnvelope struct {
	Type string          `json:"type"`
	Raw  json.RawMessage `json:"-"`
}

// UnmarshalJSON implements custom unmarshaling to capture the raw payload.
func (e *InboundEnvelope) UnmarshalJSON(data []byte) error {
	type typeOnly struct {
		Type string `json:"type"`
	}
	var t typeOnly
	if err := json.Unmarshal(data, &t); err != nil {
		return err
	}
	e.Type = t.Type
	e.Raw = append(json.RawMessage(nil), data...)
	return nil
}

// encode flattens payload into a JSON object carrying "type".
func encode(msgType string, payload any) ([]byte, error) {
	fields := map[string]json.RawMessage{}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", msgType, err)
		}
		if err := json.Unmarshal(data, &fields); err != nil {
			return nil, fmt.Errorf("encode %s: payload is not an object: %w", msgType, err)
		}
	}
	t, _ := json.Marshal(msgType)
	fields["type"] = t
	return json.Marshal(fields)
}

// --- Client-to-Server message payloads ---

// CreateGameMsg asks the server to open a new table hosted by this participant.
type CreateGameMsg struct {
	ParticipantID string `json:"participantId"`
	DisplayName   string `json:"displayName"`
}

// JoinGameMsg seats (or re-seats, after a reconnect) this participant.
type JoinGameMsg struct {
	TableID       string `json:"tableId"`
	ParticipantID string `json:"participantId"`
	DisplayName   string `json:"displayName"`
}

// PlayerActionMsg requests a betting action. Amount is only sent for raises.
type PlayerActionMsg struct {
	TableID       string `json:"tableId"`
	ParticipantID string `json:"participantId"`
	Action        string `json:"action"`
	Amount        *int   `json:"amount,omitempty"`
}

// NewHandMsg asks the server to deal the next hand.
type NewHandMsg struct {
	TableID string `json:"tableId"`
}

// --- Server-to-Client messages ---

// JoinedGameMsg confirms a seat. Older servers send gameId/playerId.
type JoinedGameMsg struct {
	TableID       string `json:"tableId"`
	ParticipantID string `json:"participantId"`
	Reconnected   bool   `json:"reconnected"`
}

// UnmarshalJSON accepts both naming schemes, preferring tableId/participantId.
func (m *JoinedGameMsg) UnmarshalJSON(data []byte) error {
	var w struct {
		TableID       string `json:"tableId"`
		GameID        string `json:"gameId"`
		ParticipantID string `json:"participantId"`
		PlayerID      string `json:"playerId"`
		Reconnected   bool   `json:"reconnected"`
	}
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	m.TableID = firstNonEmpty(w.TableID, w.GameID)
	m.ParticipantID = firstNonEmpty(w.ParticipantID, w.PlayerID)
	m.Reconnected = w.Reconnected
	return nil
}

// ErrorMsg is sent when the server rejects a request.
type ErrorMsg struct {
	Message string `json:"message"`
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
