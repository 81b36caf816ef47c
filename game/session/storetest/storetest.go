// Package storetest holds the behaviour every session.Store must share.
package storetest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/wricardo/ludo-arena/game/board"
	"github.com/wricardo/ludo-arena/game/engine"
	"github.com/wricardo/ludo-arena/game/session"
)

// Factory returns a fresh, empty store for one subtest
type Factory func(t *testing.T) session.Store

// Run exercises the Store contract against stores built by newStore
func Run(t *testing.T, newStore Factory) {
	t.Helper()

	t.Run("CreateAndGet", func(t *testing.T) { testCreateAndGet(t, newStore(t)) })
	t.Run("CreateDuplicate", func(t *testing.T) { testCreateDuplicate(t, newStore(t)) })
	t.Run("GetMissing", func(t *testing.T) { testGetMissing(t, newStore(t)) })
	t.Run("UpdateCAS", func(t *testing.T) { testUpdateCAS(t, newStore(t)) })
	t.Run("UpdateMissing", func(t *testing.T) { testUpdateMissing(t, newStore(t)) })
	t.Run("Delete", func(t *testing.T) { testDelete(t, newStore(t)) })
	t.Run("List", func(t *testing.T) { testList(t, newStore(t)) })
	t.Run("Isolation", func(t *testing.T) { testIsolation(t, newStore(t)) })
	t.Run("ConcurrentUpdates", func(t *testing.T) { testConcurrentUpdates(t, newStore(t)) })
	t.Run("CanceledContext", func(t *testing.T) { testCanceledContext(t, newStore(t)) })
}

var epoch = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

// SampleGame returns a started two-player game with a pawn on the track
func SampleGame(id string) *session.Game {
	g := session.NewGame(id, "classic", epoch)
	g.State.Players = []engine.Player{
		engine.NewPlayer("ana", "Ana", board.Green),
		engine.NewPlayer("bo", "Bo", board.Blue),
	}
	g.State.Players[0].Pawns[2].Position = board.MainTrack(17)
	g.State.Players[1].Pawns[0].Position = board.HomeColumn(board.Blue, 3)
	g.State.Status = engine.StatusPlaying
	g.State.CurrentTurn = "ana"
	started := epoch.Add(time.Minute)
	g.StartedAt = &started
	return g
}

func testCreateAndGet(t *testing.T, s session.Store) {
	ctx := context.Background()
	g := SampleGame("g1")

	if err := s.Create(ctx, g); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	got, err := s.Get(ctx, "g1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}

	if got.Version != 1 || got.Board != "classic" {
		t.Errorf("Unexpected record header %+v", got)
	}
	if !got.CreatedAt.Equal(epoch) || got.StartedAt == nil || !got.StartedAt.Equal(epoch.Add(time.Minute)) {
		t.Errorf("Timestamps not preserved: %v / %v", got.CreatedAt, got.StartedAt)
	}
	if got.FinishedAt != nil {
		t.Errorf("Expected no finish time, got %v", got.FinishedAt)
	}
	if len(got.State.Players) != 2 || got.State.CurrentTurn != "ana" {
		t.Fatalf("State not preserved: %+v", got.State)
	}
	if got.State.Players[0].Pawns[2].Position != board.MainTrack(17) {
		t.Errorf("Expected main(17), got %v", got.State.Players[0].Pawns[2].Position)
	}
	if got.State.Players[1].Pawns[0].Position != board.HomeColumn(board.Blue, 3) {
		t.Errorf("Expected home column cell, got %v", got.State.Players[1].Pawns[0].Position)
	}
	if !got.State.Players[1].Pawns[1].Position.IsHome() {
		t.Errorf("Expected home, got %v", got.State.Players[1].Pawns[1].Position)
	}
}

func testCreateDuplicate(t *testing.T, s session.Store) {
	ctx := context.Background()
	if err := s.Create(ctx, SampleGame("dup")); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if err := s.Create(ctx, SampleGame("dup")); !errors.Is(err, session.ErrAlreadyExists) {
		t.Errorf("Expected ErrAlreadyExists, got %v", err)
	}
}

func testGetMissing(t *testing.T, s session.Store) {
	if _, err := s.Get(context.Background(), "nope"); !errors.Is(err, session.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func testUpdateCAS(t *testing.T, s session.Store) {
	ctx := context.Background()
	g := SampleGame("cas")
	s.Create(ctx, g)

	next := g.Clone()
	next.Version = 2
	next.State.Dice = 5
	if err := s.Update(ctx, next, 1); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	stale := g.Clone()
	stale.Version = 2
	stale.State.Dice = 3
	if err := s.Update(ctx, stale, 1); !errors.Is(err, session.ErrVersionConflict) {
		t.Errorf("Expected ErrVersionConflict, got %v", err)
	}

	got, _ := s.Get(ctx, "cas")
	if got.Version != 2 || got.State.Dice != 5 {
		t.Errorf("Expected first writer to win, got version %d dice %d", got.Version, got.State.Dice)
	}
}

func testUpdateMissing(t *testing.T, s session.Store) {
	g := SampleGame("ghost")
	g.Version = 2
	if err := s.Update(context.Background(), g, 1); !errors.Is(err, session.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func testDelete(t *testing.T, s session.Store) {
	ctx := context.Background()
	s.Create(ctx, SampleGame("del"))

	if err := s.Delete(ctx, "del", 7); !errors.Is(err, session.ErrVersionConflict) {
		t.Errorf("Expected ErrVersionConflict, got %v", err)
	}
	if err := s.Delete(ctx, "del", 1); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := s.Get(ctx, "del"); !errors.Is(err, session.ErrNotFound) {
		t.Errorf("Expected ErrNotFound after delete, got %v", err)
	}
	if err := s.Delete(ctx, "del", session.AnyVersion); !errors.Is(err, session.ErrNotFound) {
		t.Errorf("Expected ErrNotFound for second delete, got %v", err)
	}

	s.Create(ctx, SampleGame("any"))
	if err := s.Delete(ctx, "any", session.AnyVersion); err != nil {
		t.Errorf("Expected unconditional delete to succeed, got %v", err)
	}
}

func testList(t *testing.T, s session.Store) {
	ctx := context.Background()

	games, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(games) != 0 {
		t.Fatalf("Expected empty store, got %d", len(games))
	}

	for i, id := range []string{"c", "a", "b"} {
		g := SampleGame(id)
		g.CreatedAt = epoch.Add(time.Duration(i) * time.Second)
		if err := s.Create(ctx, g); err != nil {
			t.Fatalf("Create(%s) failed: %v", id, err)
		}
	}

	games, err = s.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	var ids []string
	for _, g := range games {
		ids = append(ids, g.ID)
	}
	if fmt.Sprint(ids) != "[c a b]" {
		t.Errorf("Expected creation order [c a b], got %v", ids)
	}
}

func testIsolation(t *testing.T, s session.Store) {
	ctx := context.Background()
	g := SampleGame("iso")
	s.Create(ctx, g)

	g.State.Players[0].Name = "mutated"
	got, _ := s.Get(ctx, "iso")
	if got.State.Players[0].Name != "Ana" {
		t.Error("Store kept a reference to the created record")
	}

	got.State.Players[0].Name = "mutated again"
	again, _ := s.Get(ctx, "iso")
	if again.State.Players[0].Name != "Ana" {
		t.Error("Store returned a shared record")
	}
}

func testConcurrentUpdates(t *testing.T, s session.Store) {
	ctx := context.Background()
	s.Create(ctx, SampleGame("race"))

	const writers = 16
	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			g := SampleGame("race")
			g.Version = 2
			g.State.Dice = i%6 + 1
			err := s.Update(ctx, g, 1)
			switch {
			case err == nil:
				wins.Add(1)
			case errors.Is(err, session.ErrVersionConflict):
			default:
				t.Errorf("Unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	if wins.Load() != 1 {
		t.Errorf("Expected exactly one winner, got %d", wins.Load())
	}
}

func testCanceledContext(t *testing.T, s session.Store) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := s.Get(ctx, "any"); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}
