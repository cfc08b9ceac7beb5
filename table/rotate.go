package table

import (
	"fmt"

	"poker-table-client/clienterrors"
)

// DefaultDisplaySeats matches the eight-seat table layout.
const DefaultDisplaySeats = 8

// Rotate orders participants so localID comes first, keeping the server's
// seat order cyclically: [k, k+1, ..., n-1, 0, ..., k-1]. When localID is not
// seated the list is returned unrotated. A duplicated id is reported as a
// data integrity violation rather than resolved.
func Rotate(s Snapshot, localID string) ([]ParticipantView, error) {
	k := -1
	seen := make(map[string]struct{}, len(s.Participants))
	for i, p := range s.Participants {
		if _, dup := seen[p.ID]; dup {
			return nil, fmt.Errorf("%w: participant %q seated twice", clienterrors.ErrDataIntegrity, p.ID)
		}
		seen[p.ID] = struct{}{}
		if localID != "" && p.ID == localID {
			k = i
		}
	}

	ps := cloneParticipants(s.Participants)
	if k <= 0 {
		return ps, nil
	}
	out := make([]ParticipantView, 0, len(ps))
	out = append(out, ps[k:]...)
	out = append(out, ps[:k]...)
	return out, nil
}

// Seats maps rotated participants onto n display seats, nil marking an empty
// seat. Seat 0 is the home seat. If more participants than seats are given,
// the result grows to hold all of them.
func Seats(rotated []ParticipantView, n int) []*ParticipantView {
	if n < len(rotated) {
		n = len(rotated)
	}
	seats := make([]*ParticipantView, n)
	for i := range rotated {
		seats[i] = &rotated[i]
	}
	return seats
}
