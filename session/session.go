// Package session wires the identity store, the event channel and the table
// synchronizer into one object with an explicit lifecycle.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"poker-table-client/clienterrors"
	"poker-table-client/config"
	"poker-table-client/identity"
	"poker-table-client/table"
	"poker-table-client/ws"
)

// Channel is the event channel a Session drives. *ws.Adapter implements it.
type Channel interface {
	Connect(ctx context.Context) error
	Send(msgType string, payload any) error
	OnMessage(msgType string, h ws.Handler)
	OnConnectionChange(h func(ws.ConnectionEvent))
	SetJoin(fn ws.JoinFunc)
	Disconnect()
}

// View is everything a presentation layer needs for one frame.
type View struct {
	Snapshot table.Snapshot
	// Seats is rotated so the local participant sits at index 0 when seated.
	Seats       []*table.ParticipantView
	Eligibility table.Eligibility
	Identity    identity.Identity
	TableID     string
	Connection  ws.ConnectionState
	IsHost      bool
	// CanDealNewHand is true for the host once the hand reached showdown.
	CanDealNewHand  bool
	Banner          string
	DurableIdentity bool
	// SeatErr is set when seating could not be rotated.
	SeatErr error
}

// Session is one player's connection to one table at a time.
type Session struct {
	cfg  *config.Config
	ids  *identity.Store
	ch   Channel
	sync *table.Synchronizer
	log  *slog.Logger

	mu            sync.Mutex
	ctx           context.Context
	ident         identity.Identity
	tableID       string
	hosted        string
	pendingCreate bool
	conn          ws.ConnectionState
	banner        string
	subs          []chan struct{}

	closeOnce sync.Once
}

// New builds a session and registers its handlers on ch. Nothing is sent
// until Start.
func New(cfg *config.Config, ids *identity.Store, ch Channel, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Session{
		cfg:  cfg,
		ids:  ids,
		ch:   ch,
		sync: table.NewSynchronizer(logger),
		log:  logger.With("tag", "session"),
		ctx:  context.Background(),
	}
	ch.OnMessage(ws.TypeGameState, s.handleGameState)
	ch.OnMessage(ws.TypeJoinedGame, s.handleJoinedGame)
	ch.OnMessage(ws.TypeError, s.handleError)
	ch.OnConnectionChange(s.handleConnection)
	ch.SetJoin(s.joinMessage)
	return s
}

// Start loads the identity and connects the channel.
func (s *Session) Start(ctx context.Context) error {
	ident := s.ids.GetOrCreate(ctx)
	hosted := s.ids.HostedTable(ctx)

	s.mu.Lock()
	s.ctx = ctx
	s.ident = ident
	s.hosted = hosted
	s.mu.Unlock()

	if err := s.ids.Err(); err != nil {
		s.log.Warn("identity is not durable", "err", err)
	}
	s.log.Info("starting", "participant", ident.ParticipantID, "name", ident.DisplayName)
	if err := s.ch.Connect(ctx); err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	return nil
}

// Close disconnects for good. The last snapshot becomes the disconnected placeholder.
func (s *Session) Close() {
	s.closeOnce.Do(s.ch.Disconnect)
}

// Updates returns a new subscription that signals whenever View may have
// changed. Signals coalesce, so a slow reader only sees the latest state.
func (s *Session) Updates() <-chan struct{} {
	ch := make(chan struct{}, 1)
	s.mu.Lock()
	s.subs = append(s.subs, ch)
	s.mu.Unlock()
	return ch
}

// SetDisplayName renames the local participant. It takes effect on the next join.
func (s *Session) SetDisplayName(name string) error {
	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()

	ident, err := s.ids.SetDisplayName(ctx, name)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.ident = ident
	s.mu.Unlock()
	s.notify()
	return nil
}

// Logout forgets the login token and hosted table, keeping the participant id.
func (s *Session) Logout() {
	s.mu.Lock()
	ctx := s.ctx
	s.hosted = ""
	s.mu.Unlock()
	s.ids.Logout(ctx)
	s.notify()
}

// CreateGame asks the server for a new table hosted by this participant.
// The following joinedGame records the hosted table.
func (s *Session) CreateGame() error {
	s.mu.Lock()
	ident := s.ident
	s.pendingCreate = true
	s.mu.Unlock()

	err := s.ch.Send(ws.TypeCreateGame, ws.CreateGameMsg{
		ParticipantID: ident.ParticipantID,
		DisplayName:   ident.DisplayName,
	})
	if err != nil {
		s.mu.Lock()
		s.pendingCreate = false
		s.mu.Unlock()
	}
	return err
}

// JoinGame takes a seat at tableID. The table is remembered, so the join is
// re-issued automatically after every reconnect.
func (s *Session) JoinGame(tableID string) error {
	if tableID == "" {
		return clienterrors.ErrNoTable
	}
	s.mu.Lock()
	prev := s.tableID
	s.tableID = tableID
	ident := s.ident
	s.mu.Unlock()

	if prev != tableID {
		s.sync.Reset()
		s.notify()
	}
	return s.ch.Send(ws.TypeJoinGame, ws.JoinGameMsg{
		TableID:       tableID,
		ParticipantID: ident.ParticipantID,
		DisplayName:   ident.DisplayName,
	})
}

// HostTable records tableID as hosted by this device and joins it. It is
// used when the table was created out of band, through the REST API.
// participantID is the id the server assigned to the creator, if any; the
// local identity keeps its own id either way.
func (s *Session) HostTable(tableID, participantID string) error {
	if tableID == "" {
		return clienterrors.ErrNoTable
	}
	s.mu.Lock()
	s.hosted = tableID
	ctx := s.ctx
	local := s.ident.ParticipantID
	s.mu.Unlock()
	if participantID != "" && participantID != local {
		s.log.Warn("server assigned a different participant", "server", participantID, "local", local, "table", tableID)
	}
	s.ids.SetHostedTable(ctx, tableID)
	return s.JoinGame(tableID)
}

// Act requests a betting action. The action must be eligible on the current
// snapshot and a raise amount must pass pre-validation; the server may still
// reject it, which arrives as a banner.
func (s *Session) Act(action table.Action, amount int) error {
	v := s.View()
	if v.TableID == "" {
		return clienterrors.ErrNoTable
	}
	if v.Connection != ws.StateConnected {
		return fmt.Errorf("%s: %w", action, clienterrors.ErrNotConnected)
	}
	if !v.Eligibility.Allows(action) {
		return fmt.Errorf("%s: %w", action, clienterrors.ErrActionNotEligible)
	}

	msg := ws.PlayerActionMsg{
		TableID:       v.TableID,
		ParticipantID: v.Identity.ParticipantID,
		Action:        string(action),
	}
	if action == table.ActionRaise {
		if err := v.Eligibility.ValidateRaise(amount); err != nil {
			return err
		}
		msg.Amount = &amount
	}
	s.log.Debug("action", "action", string(action), "amount", amount, "revision", v.Snapshot.Revision)
	return s.ch.Send(ws.TypePlayerAction, msg)
}

// NewHand asks the server to deal again. Only the host may, and only at showdown.
func (s *Session) NewHand() error {
	v := s.View()
	if v.TableID == "" {
		return clienterrors.ErrNoTable
	}
	if !v.IsHost {
		return clienterrors.ErrNotHost
	}
	if !v.CanDealNewHand {
		return fmt.Errorf("new hand: %w", clienterrors.ErrActionNotEligible)
	}
	return s.ch.Send(ws.TypeNewHand, ws.NewHandMsg{TableID: v.TableID})
}

// ClearBanner dismisses the current banner.
func (s *Session) ClearBanner() {
	s.mu.Lock()
	s.banner = ""
	s.mu.Unlock()
	s.notify()
}

// View derives the current frame from the held snapshot.
func (s *Session) View() View {
	snap := s.sync.Current()

	s.mu.Lock()
	v := View{
		Snapshot:        snap,
		Identity:        s.ident,
		TableID:         s.tableID,
		Connection:      s.conn,
		Banner:          s.banner,
		DurableIdentity: s.ids.Durable(),
	}
	s.mu.Unlock()
	if v.TableID == "" {
		v.TableID = snap.TableID
	}

	rotated, err := table.Rotate(snap, v.Identity.ParticipantID)
	if err != nil {
		v.SeatErr = err
		rotated = snap.Participants
	}
	v.Seats = table.Seats(rotated, s.displaySeats())

	// Stale and placeholder data never offers actions.
	if snap.Status == table.StatusLive {
		v.Eligibility = table.Resolve(snap, v.Identity.ParticipantID)
	}
	s.mu.Lock()
	v.IsHost = v.TableID != "" && s.hosted == v.TableID
	s.mu.Unlock()
	v.CanDealNewHand = v.IsHost && snap.Status == table.StatusLive && snap.Phase == table.PhaseShowdown
	return v
}

func (s *Session) displaySeats() int {
	if s.cfg != nil && s.cfg.DisplaySeats > 0 {
		return s.cfg.DisplaySeats
	}
	return table.DefaultDisplaySeats
}

func (s *Session) joinMessage() (string, any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tableID == "" {
		return "", nil, false
	}
	return ws.TypeJoinGame, ws.JoinGameMsg{
		TableID:       s.tableID,
		ParticipantID: s.ident.ParticipantID,
		DisplayName:   s.ident.DisplayName,
	}, true
}

func (s *Session) handleGameState(raw json.RawMessage) {
	p, err := table.DecodePatch(raw)
	if err != nil {
		s.log.Warn("undecodable game state", "err", err)
		s.setBanner(err.Error())
		return
	}
	before := s.sync.Current().Revision
	snap, err := s.sync.Apply(p)
	if err != nil {
		s.setBanner(err.Error())
		return
	}
	if snap.Revision == before {
		return
	}
	s.mu.Lock()
	if s.tableID == "" && snap.TableID != "" {
		s.tableID = snap.TableID
	}
	s.mu.Unlock()
	s.notify()
}

func (s *Session) handleJoinedGame(raw json.RawMessage) {
	var msg ws.JoinedGameMsg
	if err := json.Unmarshal(raw, &msg); err != nil {
		s.log.Warn("bad joinedGame", "err", err)
		return
	}
	if msg.TableID == "" {
		s.log.Warn("joinedGame without table id")
		return
	}

	s.mu.Lock()
	prev := s.tableID
	s.tableID = msg.TableID
	hosted := s.pendingCreate
	s.pendingCreate = false
	if hosted {
		s.hosted = msg.TableID
	}
	ctx := s.ctx
	local := s.ident.ParticipantID
	s.mu.Unlock()

	if prev != "" && prev != msg.TableID {
		s.sync.Reset()
	}
	if hosted {
		s.ids.SetHostedTable(ctx, msg.TableID)
	}
	if msg.ParticipantID != "" && msg.ParticipantID != local {
		s.log.Warn("server seated a different participant", "server", msg.ParticipantID, "local", local)
	}
	s.log.Info("joined table", "table", msg.TableID, "reconnected", msg.Reconnected, "host", hosted)
	s.notify()
}

func (s *Session) handleError(raw json.RawMessage) {
	var msg ws.ErrorMsg
	if err := json.Unmarshal(raw, &msg); err != nil {
		s.log.Warn("bad error message", "err", err)
		return
	}
	err := &clienterrors.ChannelError{Message: msg.Message}
	s.log.Info("server rejected request", "err", err)

	s.mu.Lock()
	s.pendingCreate = false
	s.mu.Unlock()
	s.setBanner(msg.Message)
}

func (s *Session) handleConnection(ev ws.ConnectionEvent) {
	s.mu.Lock()
	s.conn = ev.State
	s.mu.Unlock()

	switch ev.State {
	case ws.StateReconnecting:
		s.sync.MarkStale()
		s.setBanner("connection lost, reconnecting")
		return
	case ws.StateDisconnected:
		s.sync.Discard()
		if ev.Err != nil && !errors.Is(ev.Err, context.Canceled) {
			s.setBanner("disconnected from server")
			return
		}
	case ws.StateConnected:
		if ev.Reconnected {
			s.log.Info("reconnected")
			s.clearBannerIf("connection lost, reconnecting")
			return
		}
	}
	s.notify()
}

func (s *Session) setBanner(msg string) {
	s.mu.Lock()
	s.banner = msg
	s.mu.Unlock()
	s.notify()
}

func (s *Session) clearBannerIf(msg string) {
	s.mu.Lock()
	if s.banner == msg {
		s.banner = ""
	}
	s.mu.Unlock()
	s.notify()
}

func (s *Session) notify() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
