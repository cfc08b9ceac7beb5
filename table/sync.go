package table

import (
	"log/slog"
	"reflect"
	"sync"
)

// Synchronizer holds the latest known snapshot and merges inbound patches
// into it. It is the only writer of table state on the client.
type Synchronizer struct {
	mu   sync.RWMutex
	held Snapshot
	log  *slog.Logger
}

// NewSynchronizer returns a Synchronizer holding the awaiting placeholder.
func NewSynchronizer(logger *slog.Logger) *Synchronizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Synchronizer{
		held: Placeholder(StatusAwaiting),
		log:  logger.With("tag", "table"),
	}
}

// Current returns a copy of the held snapshot.
func (s *Synchronizer) Current() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.held.Clone()
}

// Apply merges p into the held snapshot and returns the result. A patch
// that violates snapshot invariants is rejected whole: the last good
// snapshot is kept and the violation returned. Patches carrying a sequence
// number not newer than the held one are dropped without error while the
// held snapshot is live. Stale data only becomes live again through a patch
// carrying both participants and activeParticipantId.
func (s *Synchronizer) Apply(p Patch) (Snapshot, error) {
	if err := p.Validate(); err != nil {
		s.log.Warn("rejected snapshot", "err", err)
		return s.Current(), err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if p.Seq.Set && s.held.Seq != 0 && p.Seq.Value <= s.held.Seq && s.held.Status == StatusLive {
		s.log.Debug("dropped out-of-order snapshot", "seq", p.Seq.Value, "held", s.held.Seq)
		return s.held.Clone(), nil
	}

	next := s.held
	if p.TableID.Set {
		next.TableID = p.TableID.Value
	}
	if p.CommunityCards.Set {
		next.CommunityCards = p.CommunityCards.Value
	}
	if p.Participants.Set {
		next.Participants = p.Participants.Value
	}
	if p.ActiveParticipantID.Set {
		next.ActiveParticipantID = p.ActiveParticipantID.Value
	}
	if p.Pot.Set {
		next.Pot = p.Pot.Value
	}
	if p.CurrentBet.Set {
		next.CurrentBet = p.CurrentBet.Value
	}
	if p.MinRaise.Set {
		next.MinRaise = p.MinRaise.Value
	}
	if p.Phase.Set {
		next.Phase = p.Phase.Value
	}
	if p.Winner.Set {
		next.Winner = p.Winner.Value
	}
	if p.Seq.Set {
		next.Seq = p.Seq.Value
	}
	// After a reconnect only a snapshot that re-seats the table and names
	// the actor is trusted; deltas merge into the stale data without
	// reviving it.
	if s.held.Status != StatusStale || (p.Participants.Set && p.ActiveParticipantID.Set) {
		next.Status = StatusLive
	}

	// Copy so later mutation of the patch's slices cannot reach held state.
	next = next.Clone()
	if reflect.DeepEqual(next, s.held) {
		return s.held.Clone(), nil
	}
	next.Revision = s.held.Revision + 1
	s.held = next
	s.log.Debug("applied snapshot", "revision", s.held.Revision, "phase", string(s.held.Phase), "pot", s.held.Pot)
	return s.held.Clone(), nil
}

// MarkStale flags live data as no longer current while the channel reconnects.
func (s *Synchronizer) MarkStale() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.held.Status != StatusLive {
		return
	}
	s.held.Status = StatusStale
	s.held.Revision++
}

// Discard drops held data after the reconnect window expired, leaving the
// disconnected placeholder.
func (s *Synchronizer) Discard() {
	s.replace(StatusDisconnected)
}

// Reset returns to the awaiting placeholder, e.g. before joining another table.
func (s *Synchronizer) Reset() {
	s.replace(StatusAwaiting)
}

func (s *Synchronizer) replace(status Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rev := s.held.Revision + 1
	s.held = Placeholder(status)
	s.held.Revision = rev
}
