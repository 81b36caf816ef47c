package bolt

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/wricardo/ludo-arena/game/session"
	"github.com/wricardo/ludo-arena/game/session/storetest"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "games.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStoreContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) session.Store {
		return openTestStore(t)
	})
}

func TestOpen_RequiresPath(t *testing.T) {
	if _, err := Open("  "); err == nil {
		t.Error("Expected error for empty path")
	}
}

func TestStore_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "games.db")
	ctx := context.Background()

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if err := s.Create(ctx, storetest.SampleGame("keep")); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	s.Close()

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("Reopen failed: %v", err)
	}
	defer reopened.Close()

	g, err := reopened.Get(ctx, "keep")
	if err != nil {
		t.Fatalf("Get after reopen failed: %v", err)
	}
	if g.State.CurrentTurn != "ana" {
		t.Errorf("Expected state to survive reopen, got %+v", g.State)
	}
}

func TestStore_NilIsNotConfigured(t *testing.T) {
	var s *Store
	if err := s.Create(context.Background(), storetest.SampleGame("x")); err == nil {
		t.Error("Expected error from nil store")
	}
	if err := s.Close(); err != nil {
		t.Errorf("Close on nil store should be a no-op, got %v", err)
	}
}
