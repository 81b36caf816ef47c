package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/wricardo/ludo-arena/auth"
	"github.com/wricardo/ludo-arena/game/board"
	"github.com/wricardo/ludo-arena/game/config"
	"github.com/wricardo/ludo-arena/game/engine"
	"github.com/wricardo/ludo-arena/game/gameerr"
	"github.com/wricardo/ludo-arena/game/service"
	"github.com/wricardo/ludo-arena/game/session"
	"github.com/wricardo/ludo-arena/game/syncer"
)

// newLiveServer runs the API over a real in-memory game stack
func newLiveServer(t *testing.T, dice ...int) (*httptest.Server, *auth.JWTVerifier) {
	t.Helper()
	log := quietLogger()

	boards, err := config.NewManager("../configs")
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	store := session.NewMemoryStore()
	svc := service.NewGameService(
		session.NewRegistry(store, log),
		session.NewTransactor(store, boards, session.WithLogger(log)),
		boards,
		service.WithRoller(&service.FixedRoller{Values: dice}),
		service.WithLogger(log),
	)
	t.Cleanup(svc.Close)

	verifier, err := auth.NewJWTVerifier("client-test-secret", "ludo")
	if err != nil {
		t.Fatal(err)
	}

	ts := httptest.NewServer(NewServer(svc, nil, verifier, WithLogger(log)))
	t.Cleanup(ts.Close)
	return ts, verifier
}

func tokenFor(t *testing.T, v *auth.JWTVerifier, player string) string {
	t.Helper()
	token, err := v.Issue(auth.Identity{PlayerID: player, Name: player}, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	return token
}

func TestClient_GameFlow(t *testing.T) {
	ts, verifier := newLiveServer(t, 6)
	ctx := context.Background()

	ana := NewClient(ts.URL, WithToken(tokenFor(t, verifier, "ana")))
	bo := ana.As(tokenFor(t, verifier, "bo"))

	game, err := ana.CreateGame(ctx, "", "Friday")
	if err != nil {
		t.Fatalf("CreateGame failed: %v", err)
	}
	if game.ID != "friday" || game.Board != config.DefaultBoard || game.Version != 1 {
		t.Fatalf("Unexpected game %+v", game.Game)
	}

	if _, err := ana.Join(ctx, "friday"); err != nil {
		t.Fatalf("ana join failed: %v", err)
	}
	res, err := bo.Join(ctx, "FRIDAY")
	if err != nil {
		t.Fatalf("bo join failed: %v", err)
	}
	if len(res.Game.State.Players) != 2 || res.Game.State.Players[1].Color != board.Blue {
		t.Fatalf("Unexpected roster %+v", res.Game.State.Players)
	}

	if _, err := ana.Start(ctx, "friday"); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	rolled, err := ana.Roll(service.WithActionID(ctx, "roll-1"), "friday")
	if err != nil {
		t.Fatalf("Roll failed: %v", err)
	}
	if rolled.ActionID != "roll-1" {
		t.Errorf("Expected action id roll-1, got %q", rolled.ActionID)
	}
	if rolled.Game.State.Dice != 6 || len(rolled.Game.ValidMoves) != engine.PawnsPerPlayer {
		t.Fatalf("Expected a 6 with every pawn movable, got %d %v", rolled.Game.State.Dice, rolled.Game.ValidMoves)
	}
	if len(rolled.Events) == 0 || rolled.Events[0].Name != syncer.EventDiceRolled {
		t.Errorf("Expected dice-rolled event, got %+v", rolled.Events)
	}

	moved, err := ana.Move(ctx, "friday", 0)
	if err != nil {
		t.Fatalf("Move failed: %v", err)
	}
	if moved.Game.State.CurrentTurn != "ana" {
		t.Errorf("A 6 keeps the turn, got %q", moved.Game.State.CurrentTurn)
	}

	_, err = bo.Roll(ctx, "friday")
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusBadRequest {
		t.Fatalf("Expected 400 for out-of-turn roll, got %v", err)
	}
	if !errors.Is(err, gameerr.ErrValidation) {
		t.Errorf("Expected validation kind across the wire, got %v", err)
	}

	list, err := ana.ListGames(ctx, "playing")
	if err != nil || list.Count != 1 {
		t.Fatalf("Expected one playing game, got %+v %v", list, err)
	}

	boards, err := ana.ListBoards(ctx)
	if err != nil || len(boards) == 0 {
		t.Fatalf("ListBoards failed: %v", err)
	}

	err = ana.DeleteGame(ctx, "friday")
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusConflict || !errors.Is(err, gameerr.ErrState) {
		t.Fatalf("Expected 409 state error deleting a game in play, got %v", err)
	}
	if apiErr.Metadata["status"] != "playing" {
		t.Errorf("Expected status metadata, got %v", apiErr.Metadata)
	}
	if _, err := ana.GetGame(ctx, "friday"); err != nil {
		t.Fatalf("Game in play must survive a delete request: %v", err)
	}

	if _, err := ana.Resign(ctx, "friday"); err != nil {
		t.Fatalf("ana resign failed: %v", err)
	}
	left, err := bo.Resign(ctx, "friday")
	if err != nil {
		t.Fatalf("bo resign failed: %v", err)
	}
	if !left.Deleted {
		t.Error("Expected the game removed once nobody is left")
	}
	if _, err := ana.GetGame(ctx, "friday"); !errors.Is(err, gameerr.ErrNotFound) {
		t.Errorf("Expected not found after everyone left, got %v", err)
	}
}

func TestClient_Unauthenticated(t *testing.T) {
	ts, _ := newLiveServer(t)
	anon := NewClient(ts.URL)

	_, err := anon.CreateGame(context.Background(), "", "")
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusUnauthorized {
		t.Errorf("Expected 401, got %v", err)
	}
	if err := anon.Health(context.Background()); err != nil {
		t.Errorf("Health should not need a credential: %v", err)
	}
}

func TestClient_ReplicaResync(t *testing.T) {
	ts, verifier := newLiveServer(t, 3)
	ctx := context.Background()
	ana := NewClient(ts.URL, WithToken(tokenFor(t, verifier, "ana")))

	if _, err := ana.CreateGame(ctx, "short", "r1"); err != nil {
		t.Fatal(err)
	}
	if _, err := ana.Join(ctx, "r1"); err != nil {
		t.Fatal(err)
	}

	replica := syncer.NewReplica("r1", ana)
	if err := replica.Resync(ctx); err != nil {
		t.Fatalf("Resync failed: %v", err)
	}
	if replica.Version() != 2 {
		t.Errorf("Expected version 2 after one join, got %d", replica.Version())
	}
	if snap := replica.Snapshot(); snap.Board != "short" || len(snap.State.Players) != 1 {
		t.Errorf("Unexpected snapshot %+v", snap)
	}
}

func TestClient_TransportError(t *testing.T) {
	c := NewClient("http://127.0.0.1:1", WithHTTPClient(&http.Client{Timeout: 200 * time.Millisecond}))
	if _, err := c.GetGame(context.Background(), "g1"); err == nil {
		t.Error("Expected error for unreachable server")
	}
}
