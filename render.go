package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pterm/pterm"
	"poker-table-client/card"
	"poker-table-client/session"
	"poker-table-client/table"
	"poker-table-client/ws"
)

func cardText(c card.Card) string {
	if !c.Known() {
		return pterm.Gray("??")
	}
	text := c.Rank.String() + c.Suit.Symbol()
	if c.Suit.Red() {
		return pterm.LightRed(text)
	}
	return text
}

func cardsText(cs []card.Card) string {
	if len(cs) == 0 {
		return "-"
	}
	parts := make([]string, len(cs))
	for i, c := range cs {
		parts[i] = cardText(c)
	}
	return strings.Join(parts, " ")
}

func statusText(v session.View) string {
	switch v.Snapshot.Status {
	case table.StatusLive:
		return pterm.LightGreen(v.Snapshot.Status.String())
	case table.StatusStale:
		return pterm.Yellow(v.Snapshot.Status.String())
	case table.StatusDisconnected:
		return pterm.LightRed(v.Snapshot.Status.String())
	default:
		return pterm.Gray(v.Snapshot.Status.String())
	}
}

func seatFlags(p *table.ParticipantView, active string) string {
	var flags []string
	if p.IsDealer {
		flags = append(flags, "D")
	}
	if p.IsSmallBlind {
		flags = append(flags, "SB")
	}
	if p.IsBigBlind {
		flags = append(flags, "BB")
	}
	if p.Folded {
		flags = append(flags, pterm.LightRed("folded"))
	}
	if p.ID == active {
		flags = append(flags, pterm.LightCyan("to act"))
	}
	return strings.Join(flags, " ")
}

// render draws the table with the local participant in seat 1.
func render(v session.View) {
	s := v.Snapshot
	pterm.DefaultSection.Printfln("Table %s  [%s]", v.TableID, statusText(v))

	if s.IsPlaceholder() {
		if s.Status == table.StatusDisconnected {
			pterm.Warning.Println("Disconnected from the server. Table data is no longer shown.")
		} else {
			pterm.Info.Println("Waiting for the table...")
		}
	} else {
		pterm.Println(pterm.BgGreen.Sprintf(" %s | pot %d | bet %d | min raise %d | %s ",
			cardsText(s.CommunityCards), s.Pot, s.CurrentBet, s.MinRaise, s.Phase))

		data := pterm.TableData{{"Seat", "Name", "Chips", "Bet", "Cards", ""}}
		for i, p := range v.Seats {
			if p == nil {
				data = append(data, []string{strconv.Itoa(i + 1), pterm.Gray("empty"), "", "", "", ""})
				continue
			}
			name := p.DisplayName
			if p.ID == v.Identity.ParticipantID {
				name = pterm.LightCyan(name + " (you)")
			}
			data = append(data, []string{
				strconv.Itoa(i + 1), name, strconv.Itoa(p.ChipStack), strconv.Itoa(p.CurrentBet),
				cardsText(p.Hand), seatFlags(p, s.ActiveParticipantID),
			})
		}
		pterm.DefaultTable.WithHasHeader().WithData(data).Render()

		if s.Winner != nil {
			name := s.Winner.DisplayName
			if name == "" {
				name = s.Winner.ID
			}
			pterm.Success.Printfln("%s wins the hand", name)
		}
	}

	if v.SeatErr != nil {
		pterm.Error.Println(v.SeatErr.Error())
	}
	if v.Banner != "" {
		pterm.Warning.Println(v.Banner)
	}
	if !v.DurableIdentity {
		pterm.Debug.Println("identity is not saved between runs")
	}
	if v.Connection == ws.StateReconnecting {
		pterm.Info.Println("Reconnecting...")
	}
}

const (
	choiceNewHand = "deal new hand"
	choiceQuit    = "quit"
)

// prompt offers the currently allowed actions. It returns false when the
// user quits.
func prompt(sess *session.Session, v session.View) bool {
	var options []string
	for _, a := range v.Eligibility.Actions() {
		switch a {
		case table.ActionCall:
			options = append(options, fmt.Sprintf("%s %d", a, v.Eligibility.CallAmount))
		case table.ActionRaise:
			options = append(options, fmt.Sprintf("%s (min %d)", a, v.Eligibility.MinRaiseAmount))
		default:
			options = append(options, string(a))
		}
	}
	if v.CanDealNewHand {
		options = append(options, choiceNewHand)
	}
	options = append(options, choiceQuit)

	choice, err := pterm.DefaultInteractiveSelect.WithOptions(options).Show("Your move")
	if err != nil {
		return false
	}
	switch choice {
	case choiceQuit:
		return false
	case choiceNewHand:
		if err := sess.NewHand(); err != nil {
			pterm.Error.Println(err.Error())
		}
		return true
	}

	action, err := table.ParseAction(strings.Fields(choice)[0])
	if err != nil {
		pterm.Error.Println(err.Error())
		return true
	}
	amount := 0
	if action == table.ActionRaise {
		input, _ := pterm.DefaultInteractiveTextInput.
			WithDefaultValue(strconv.Itoa(v.Eligibility.MinRaiseAmount)).
			Show("Raise amount")
		if amount, err = table.ParseAmount(input); err == nil {
			err = v.Eligibility.ValidateRaise(amount)
		}
		if err != nil {
			pterm.Error.Println(err.Error())
			return true
		}
	}
	if err := sess.Act(action, amount); err != nil {
		pterm.Error.Println(err.Error())
	}
	return true
}
