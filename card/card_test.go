package card

import (
	"encoding/json"
	"testing"
)

func TestNormalizeEncodingsAgree(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want Card
	}{
		{"compact ace", `"Ah"`, Card{RankAce, Hearts}},
		{"compact ten", `"10d"`, Card{RankTen, Diamonds}},
		{"compact T", `"Td"`, Card{RankTen, Diamonds}},
		{"lowercase", `"qs"`, Card{RankQueen, Spades}},
		{"upper suit", `"KC"`, Card{RankKing, Clubs}},
		{"value and full suit", `{"value":"A","suit":"hearts"}`, Card{RankAce, Hearts}},
		{"rank and letter suit", `{"rank":"10","suit":"d"}`, Card{RankTen, Diamonds}},
		{"numeric rank", `{"rank":12,"suit":"spades"}`, Card{RankQueen, Spades}},
		{"numeric ace low", `{"rank":1,"suit":"c"}`, Card{RankAce, Clubs}},
		{"rank preferred over value", `{"rank":"K","value":"2","suit":"h"}`, Card{RankKing, Hearts}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FromJSON(json.RawMessage(tt.in))
			if got != tt.want {
				t.Errorf("FromJSON(%s) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestNormalizeUnknown(t *testing.T) {
	inputs := []string{`null`, `""`, `"?"`, `"1h"`, `"Ax"`, `"100h"`, `{"suit":"hearts"}`, `{"value":"A"}`, `42`, `[]`, `{"rank":2.5,"suit":"h"}`}
	for _, in := range inputs {
		if got := FromJSON(json.RawMessage(in)); got != Unknown {
			t.Errorf("FromJSON(%s) = %v, want Unknown", in, got)
		}
	}
}

func TestCardJSONRoundTripsCompactCode(t *testing.T) {
	c := Card{RankTen, Clubs}
	data, err := json.Marshal(c)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `"10c"` {
		t.Errorf("expected \"10c\", got %s", data)
	}
	var back Card
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatal(err)
	}
	if back != c {
		t.Errorf("expected %v, got %v", c, back)
	}

	data, _ = json.Marshal(Unknown)
	if string(data) != "null" {
		t.Errorf("expected unknown card to encode as null, got %s", data)
	}
}

func TestUnmarshalNeverFails(t *testing.T) {
	var cards []Card
	if err := json.Unmarshal([]byte(`["Ah", {"bogus":true}, null]`), &cards); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cards) != 3 || cards[0] != (Card{RankAce, Hearts}) || cards[1] != Unknown || cards[2] != Unknown {
		t.Errorf("unexpected cards: %v", cards)
	}
}
