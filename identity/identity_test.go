package identity

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"poker-table-client/clienterrors"
)

var idPattern = regexp.MustCompile(`^player-[0-9a-z]{12}$`)

func TestNewParticipantIDFormat(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 1000; i++ {
		id := NewParticipantID()
		if !idPattern.MatchString(id) {
			t.Fatalf("unexpected id format %q", id)
		}
		if _, dup := seen[id]; dup {
			t.Fatalf("duplicate id %q after %d draws", id, i)
		}
		seen[id] = struct{}{}
	}
}

func TestGetOrCreateIsStable(t *testing.T) {
	ctx := context.Background()
	s := NewStore(NewMemoryBackend(), nil)

	first := s.GetOrCreate(ctx)
	second := s.GetOrCreate(ctx)
	if first.ParticipantID == "" || first != second {
		t.Errorf("expected a stable identity, got %+v then %+v", first, second)
	}
	if !s.Durable() || s.Err() != nil {
		t.Error("memory backend passed explicitly should count as durable for the store")
	}
}

func TestSetDisplayNameKeepsID(t *testing.T) {
	ctx := context.Background()
	s := NewStore(NewMemoryBackend(), nil)
	before := s.GetOrCreate(ctx)

	after, err := s.SetDisplayName(ctx, "  Ana ")
	if err != nil {
		t.Fatal(err)
	}
	if after.ParticipantID != before.ParticipantID || after.DisplayName != "Ana" {
		t.Errorf("unexpected identity after rename: %+v", after)
	}
	if got := s.GetOrCreate(ctx); got.DisplayName != "Ana" {
		t.Errorf("rename not visible: %+v", got)
	}
	if _, err := s.SetDisplayName(ctx, "   "); err == nil {
		t.Error("expected empty name to be rejected")
	}
}

func TestSQLiteSurvivesRestart(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "client.db")

	s1 := Open(ctx, "sqlite:"+path, nil)
	if !s1.Durable() {
		t.Fatalf("expected durable sqlite store: %v", s1.Err())
	}
	id1 := s1.GetOrCreate(ctx)
	s1.SetDisplayName(ctx, "Bea")
	s1.SetHostedTable(ctx, "t42")
	s1.Close()

	s2 := Open(ctx, path, nil)
	defer s2.Close()
	id2 := s2.GetOrCreate(ctx)
	if id2.ParticipantID != id1.ParticipantID || id2.DisplayName != "Bea" {
		t.Errorf("identity did not survive restart: %+v vs %+v", id1, id2)
	}
	if got := s2.HostedTable(ctx); got != "t42" {
		t.Errorf("expected hosted table t42, got %q", got)
	}
}

func TestProfilesAreIsolated(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "client.db")

	a := Open(ctx, path+"#alice", nil)
	idA := a.GetOrCreate(ctx)
	a.Close()

	b := Open(ctx, path+"#bob", nil)
	defer b.Close()
	if idB := b.GetOrCreate(ctx); idB.ParticipantID == idA.ParticipantID {
		t.Error("expected separate identities per profile")
	}
}

func TestLogoutKeepsIdentity(t *testing.T) {
	ctx := context.Background()
	s := NewStore(NewMemoryBackend(), nil)
	id := s.GetOrCreate(ctx)
	s.SetToken(ctx, "tok")
	s.SetHostedTable(ctx, "t1")

	s.Logout(ctx)

	if s.Token(ctx) != "" || s.HostedTable(ctx) != "" {
		t.Error("expected token and hosted table cleared on logout")
	}
	if s.GetOrCreate(ctx) != id {
		t.Error("logout must not change the participant identity")
	}
}

type failingBackend struct{}

func (failingBackend) Get(context.Context, string) (string, bool, error) {
	return "", false, errors.New("disk gone")
}
func (failingBackend) Put(context.Context, string, string) error { return errors.New("disk gone") }
func (failingBackend) Delete(context.Context, string) error      { return errors.New("disk gone") }
func (failingBackend) Close() error                              { return nil }

func TestFailingBackendFallsBackToMemory(t *testing.T) {
	ctx := context.Background()
	s := NewStore(failingBackend{}, nil)

	id := s.GetOrCreate(ctx)
	if id.ParticipantID == "" {
		t.Fatal("expected an in-memory identity despite backend failure")
	}
	if s.Durable() {
		t.Error("expected store to report non-durable after failure")
	}
	if !errors.Is(s.Err(), clienterrors.ErrIdentityUnavailable) {
		t.Errorf("expected ErrIdentityUnavailable, got %v", s.Err())
	}
	if again := s.GetOrCreate(ctx); again != id {
		t.Error("identity must stay stable for the process lifetime")
	}
	s.SetToken(ctx, "tok")
	if s.Token(ctx) != "tok" {
		t.Error("degraded store should still keep values in memory")
	}
}

func TestOpenMemoryIsNotDurable(t *testing.T) {
	s := Open(context.Background(), "memory", nil)
	if s.Durable() || !errors.Is(s.Err(), clienterrors.ErrIdentityUnavailable) {
		t.Errorf("memory store must report the capability gap, got durable=%v err=%v", s.Durable(), s.Err())
	}
}

func TestPostgresBackend(t *testing.T) {
	url := os.Getenv("POKER_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("POKER_TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	profile := NewParticipantID()
	s := Open(ctx, url+"#"+profile, nil)
	defer s.Close()
	if !s.Durable() {
		t.Fatalf("expected durable postgres store: %v", s.Err())
	}
	id := s.GetOrCreate(ctx)

	s2 := Open(ctx, url+"#"+profile, nil)
	defer s2.Close()
	if got := s2.GetOrCreate(ctx); got.ParticipantID != id.ParticipantID {
		t.Errorf("expected shared identity for profile, got %q vs %q", got.ParticipantID, id.ParticipantID)
	}
}
