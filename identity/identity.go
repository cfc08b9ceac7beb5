// Package identity keeps the per-device participant identity, plus the small
// amount of local state tied to it (hosted table, login token).
package identity

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"sync"

	"github.com/google/uuid"
	"poker-table-client/clienterrors"
)

const (
	idPrefix = "player-"
	idLength = 12

	keyParticipantID = "participant_id"
	keyDisplayName   = "display_name"
	keyHostedTable   = "hosted_table"
	keyAuthToken     = "auth_token"
)

// Identity is who this device plays as. ParticipantID never changes once created.
type Identity struct {
	ParticipantID string `json:"participantId"`
	DisplayName   string `json:"displayName"`
}

// Backend persists string values per key.
type Backend interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Put(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Store hands out the device identity. If its backend is missing or fails,
// it keeps working from memory for the rest of the process and reports
// Durable() == false instead of failing callers.
type Store struct {
	mu      sync.Mutex
	backend Backend
	mem     *MemoryBackend
	durable bool
	cause   error
	ident   *Identity
	log     *slog.Logger
}

// NewStore wraps backend. A nil backend yields a memory-only store.
func NewStore(backend Backend, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{
		backend: backend,
		mem:     NewMemoryBackend(),
		durable: backend != nil,
		log:     logger.With("tag", "identity"),
	}
	if backend == nil {
		s.cause = fmt.Errorf("%w: no backend configured", clienterrors.ErrIdentityUnavailable)
	}
	return s
}

// Open builds a store from a location string:
//
//	memory                      process-lifetime only
//	sqlite:<path>, <path>.db    local SQLite file
//	postgres://..., postgresql://...
//
// A "#profile" suffix selects one of several identities sharing a database.
// Open never fails; an unusable backend degrades to memory.
func Open(ctx context.Context, location string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	location, profile := splitProfile(location)
	var (
		backend Backend
		err     error
	)
	switch {
	case location == "" || location == "memory":
		s := NewStore(nil, logger)
		s.cause = fmt.Errorf("%w: memory store selected", clienterrors.ErrIdentityUnavailable)
		return s
	case strings.HasPrefix(location, "postgres://") || strings.HasPrefix(location, "postgresql://"):
		backend, err = OpenPostgres(ctx, location, profile)
	case strings.HasPrefix(location, "sqlite:"):
		backend, err = OpenSQLite(ctx, strings.TrimPrefix(location, "sqlite:"), profile)
	default:
		backend, err = OpenSQLite(ctx, location, profile)
	}
	if err != nil {
		logger.Warn("identity store unavailable, using memory", "tag", "identity", "err", err)
		s := NewStore(nil, logger)
		s.cause = fmt.Errorf("%w: %v", clienterrors.ErrIdentityUnavailable, err)
		return s
	}
	return NewStore(backend, logger)
}

func splitProfile(location string) (string, string) {
	if i := strings.LastIndex(location, "#"); i >= 0 {
		return location[:i], location[i+1:]
	}
	return location, "default"
}

// NewParticipantID returns "player-" followed by 12 base-36 characters drawn
// from a random UUID.
func NewParticipantID() string {
	u := uuid.New()
	s := new(big.Int).SetBytes(u[:]).Text(36)
	if len(s) < idLength {
		s = strings.Repeat("0", idLength-len(s)) + s
	}
	return idPrefix + s[len(s)-idLength:]
}

// Durable reports whether identity changes survive a restart.
func (s *Store) Durable() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.durable
}

// Err explains why the store is not durable; nil while it is.
func (s *Store) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.durable {
		return nil
	}
	return s.cause
}

// GetOrCreate returns the device identity, creating and persisting a new
// participant id on first use.
func (s *Store) GetOrCreate(ctx context.Context) Identity {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ident != nil {
		return *s.ident
	}

	id, ok := s.get(ctx, keyParticipantID)
	if !ok || id == "" {
		id = NewParticipantID()
		s.put(ctx, keyParticipantID, id)
		s.log.Info("created participant id", "participant", id, "durable", s.durable)
	}
	name, _ := s.get(ctx, keyDisplayName)
	s.ident = &Identity{ParticipantID: id, DisplayName: name}
	return *s.ident
}

// SetDisplayName changes the display name without touching the participant id.
func (s *Store) SetDisplayName(ctx context.Context, name string) (Identity, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Identity{}, fmt.Errorf("display name must not be empty")
	}
	ident := s.GetOrCreate(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.put(ctx, keyDisplayName, name)
	ident.DisplayName = name
	s.ident = &ident
	return ident, nil
}

// HostedTable returns the table this device created, or "".
func (s *Store) HostedTable(ctx context.Context) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, _ := s.get(ctx, keyHostedTable)
	return v
}

// SetHostedTable records the table this device created.
func (s *Store) SetHostedTable(ctx context.Context, tableID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.put(ctx, keyHostedTable, tableID)
}

// Token returns the stored login token, or "".
func (s *Store) Token(ctx context.Context) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, _ := s.get(ctx, keyAuthToken)
	return v
}

// SetToken stores the login token.
func (s *Store) SetToken(ctx context.Context, token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.put(ctx, keyAuthToken, token)
}

// Logout forgets the login token and hosted table. The participant identity
// is kept so the device can rejoin its seat later.
func (s *Store) Logout(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range []string{keyAuthToken, keyHostedTable} {
		_ = s.mem.Delete(ctx, k)
		if s.durable {
			if err := s.backend.Delete(ctx, k); err != nil {
				s.degrade(err)
			}
		}
	}
}

// Close releases the backend.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.backend == nil {
		return nil
	}
	return s.backend.Close()
}

// get reads through the backend, mirroring values into memory. Callers hold s.mu.
func (s *Store) get(ctx context.Context, key string) (string, bool) {
	if s.durable {
		v, ok, err := s.backend.Get(ctx, key)
		if err == nil {
			if ok {
				_ = s.mem.Put(ctx, key, v)
			}
			return v, ok
		}
		s.degrade(err)
	}
	v, ok, _ := s.mem.Get(ctx, key)
	return v, ok
}

// put writes memory first, then the backend. Callers hold s.mu.
func (s *Store) put(ctx context.Context, key, value string) {
	_ = s.mem.Put(ctx, key, value)
	if !s.durable {
		return
	}
	if err := s.backend.Put(ctx, key, value); err != nil {
		s.degrade(err)
	}
}

func (s *Store) degrade(err error) {
	s.durable = false
	s.cause = fmt.Errorf("%w: %v", clienterrors.ErrIdentityUnavailable, err)
	s.log.Warn("identity persistence failed, continuing in memory", "err", err)
}
