package service_test

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/wricardo/ludo-arena/game/board"
	"github.com/wricardo/ludo-arena/game/config"
	"github.com/wricardo/ludo-arena/game/engine"
	"github.com/wricardo/ludo-arena/game/gameerr"
	"github.com/wricardo/ludo-arena/game/service"
	"github.com/wricardo/ludo-arena/game/session"
	"github.com/wricardo/ludo-arena/game/syncer"
)

type recordingBroadcaster struct {
	mu     sync.Mutex
	events []syncer.Event
}

func (b *recordingBroadcaster) Broadcast(gameID string, ev syncer.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, ev)
}

func (b *recordingBroadcaster) names() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []string
	for _, ev := range b.events {
		out = append(out, ev.Name)
	}
	return out
}

type staticDirectory map[string]string

func (d staticDirectory) DisplayName(ctx context.Context, playerID string) (string, error) {
	if n, ok := d[playerID]; ok {
		return n, nil
	}
	return "", errors.New("unknown user")
}

type fixture struct {
	svc   service.GameService
	store *session.MemoryStore
	out   *recordingBroadcaster
}

func newFixture(t *testing.T, dice []int, opts ...service.Option) *fixture {
	t.Helper()

	log := logrus.New()
	log.SetOutput(io.Discard)

	boards, err := config.NewManager("")
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	store := session.NewMemoryStore()
	out := &recordingBroadcaster{}

	base := []service.Option{
		service.WithRoller(&service.FixedRoller{Values: dice}),
		service.WithPublisher(syncer.NewPublisher(out, log)),
		service.WithLogger(log),
	}
	svc := service.NewGameService(
		session.NewRegistry(store, log),
		session.NewTransactor(store, boards, session.WithLogger(log)),
		boards,
		append(base, opts...)...,
	)
	t.Cleanup(svc.Close)
	return &fixture{svc: svc, store: store, out: out}
}

// startedGame creates a game with players a (green) and b (blue) in play
func (f *fixture) startedGame(t *testing.T) string {
	t.Helper()
	ctx := context.Background()
	g, err := f.svc.CreateGame(ctx, "", "")
	if err != nil {
		t.Fatalf("CreateGame failed: %v", err)
	}
	for _, id := range []string{"a", "b"} {
		if _, err := f.svc.Join(ctx, g.ID, id); err != nil {
			t.Fatalf("Join(%s) failed: %v", id, err)
		}
	}
	if _, err := f.svc.Start(ctx, g.ID, "a"); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	return g.ID
}

func eventually(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestCreateGame(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	g, err := f.svc.CreateGame(ctx, "", "Lobby1")
	if err != nil {
		t.Fatalf("CreateGame failed: %v", err)
	}
	if g.ID != "lobby1" || g.Board != "classic" || g.Version != 1 {
		t.Errorf("Unexpected game %+v", g.Game)
	}

	_, err = f.svc.CreateGame(ctx, "hexagonal", "")
	if !errors.Is(err, gameerr.ErrValidation) {
		t.Fatalf("Expected validation error, got %v", err)
	}
	if !strings.Contains(err.Error(), "Available boards: classic") {
		t.Errorf("Expected available boards in message, got %q", err.Error())
	}

	if _, err := f.svc.CreateGame(ctx, "classic", "LOBBY1"); !errors.Is(err, gameerr.ErrConflict) {
		t.Errorf("Expected conflict for duplicate id, got %v", err)
	}
}

func TestGetListDelete(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.svc.CreateGame(ctx, "", "one")
	f.svc.CreateGame(ctx, "", "two")

	games, err := f.svc.ListGames(ctx)
	if err != nil || len(games) != 2 {
		t.Fatalf("Expected 2 games, got %d (%v)", len(games), err)
	}
	if err := f.svc.DeleteGame(ctx, "ONE"); err != nil {
		t.Fatalf("DeleteGame failed: %v", err)
	}
	if _, err := f.svc.GetGame(ctx, "one"); !errors.Is(err, gameerr.ErrNotFound) {
		t.Errorf("Expected not found, got %v", err)
	}
}

func TestDeleteGame_FollowsLifecycle(t *testing.T) {
	f := newFixture(t, []int{3}, service.WithAutoPassDelay(time.Hour))
	ctx := context.Background()
	id := f.startedGame(t)

	if err := f.svc.DeleteGame(ctx, id); !errors.Is(err, gameerr.ErrState) {
		t.Fatalf("Expected state error deleting a game in play, got %v", err)
	}
	g, err := f.svc.GetGame(ctx, id)
	if err != nil || g.Status() != engine.StatusPlaying {
		t.Fatalf("Expected game still playing, got %v", err)
	}

	lobby, _ := f.svc.CreateGame(ctx, "", "lobby")
	f.svc.Join(ctx, lobby.ID, "a")
	if err := f.svc.DeleteGame(ctx, lobby.ID); !errors.Is(err, gameerr.ErrState) {
		t.Errorf("Expected state error deleting a seated lobby, got %v", err)
	}
}

func TestJoin_UsesDirectoryNames(t *testing.T) {
	f := newFixture(t, nil, service.WithDirectory(staticDirectory{"a": "Ana"}))
	ctx := context.Background()
	g, _ := f.svc.CreateGame(ctx, "", "")

	res, err := f.svc.Join(ctx, g.ID, "a")
	if err != nil {
		t.Fatalf("Join failed: %v", err)
	}
	if res.Game.State.Players[0].Name != "Ana" {
		t.Errorf("Expected directory name, got %q", res.Game.State.Players[0].Name)
	}

	res, _ = f.svc.Join(ctx, g.ID, "b")
	if res.Game.State.Players[1].Name != "b" {
		t.Errorf("Expected id fallback, got %q", res.Game.State.Players[1].Name)
	}

	if _, err := f.svc.Join(ctx, g.ID, ""); !errors.Is(err, gameerr.ErrValidation) {
		t.Errorf("Expected validation error for empty id, got %v", err)
	}
}

func TestPlayFlow_PublishesCommittedEvents(t *testing.T) {
	f := newFixture(t, []int{6, 4})
	ctx := context.Background()
	id := f.startedGame(t)

	res, err := f.svc.Roll(ctx, id, "a")
	if err != nil {
		t.Fatalf("Roll failed: %v", err)
	}
	if res.Game.State.Dice != 6 {
		t.Errorf("Expected scripted 6, got %d", res.Game.State.Dice)
	}
	if len(res.Game.ValidMoves) != engine.PawnsPerPlayer {
		t.Errorf("Expected every pawn movable on a 6, got %v", res.Game.ValidMoves)
	}

	res, err = f.svc.Move(ctx, id, "a", 0)
	if err != nil {
		t.Fatalf("Move failed: %v", err)
	}
	if res.Game.State.CurrentTurn != "a" {
		t.Errorf("Expected extra turn after a 6, got %s", res.Game.State.CurrentTurn)
	}
	if len(res.Events) != 1 || res.Events[0].Name != syncer.EventPawnMove || res.Events[0].Version != res.Game.Version {
		t.Errorf("Unexpected events %+v", res.Events)
	}

	res, _ = f.svc.Roll(ctx, id, "a")
	if res.Game.ValidMoves == nil || res.Game.ValidMoves[0] != 0 {
		t.Errorf("Expected only the pawn on the track movable, got %v", res.Game.ValidMoves)
	}
	if _, err := f.svc.Move(ctx, id, "a", 1); !errors.Is(err, gameerr.ErrValidation) {
		t.Errorf("Expected home pawn on a 4 rejected, got %v", err)
	}
	f.svc.Move(ctx, id, "a", 0)

	g, _ := f.store.Get(ctx, id)
	if g.State.Players[0].Pawns[0].Position != board.MainTrack(5) {
		t.Errorf("Expected pawn on main(5), got %v", g.State.Players[0].Pawns[0].Position)
	}

	want := "join-game join-game game-started dice-rolled pawn-move dice-rolled pawn-move"
	if got := strings.Join(f.out.names(), " "); got != want {
		t.Errorf("Expected broadcasts %q, got %q", want, got)
	}
}

func TestRejectedActionsAreNotBroadcast(t *testing.T) {
	f := newFixture(t, []int{3})
	ctx := context.Background()
	id := f.startedGame(t)
	before := len(f.out.names())

	if _, err := f.svc.Roll(ctx, id, "b"); !errors.Is(err, gameerr.ErrValidation) {
		t.Errorf("Expected not-your-turn, got %v", err)
	}
	if _, err := f.svc.Move(ctx, id, "a", 0); !errors.Is(err, gameerr.ErrValidation) {
		t.Errorf("Expected move-before-roll rejected, got %v", err)
	}
	if len(f.out.names()) != before {
		t.Errorf("Rejected actions were broadcast: %v", f.out.names()[before:])
	}
}

func TestActionIDFromContext(t *testing.T) {
	f := newFixture(t, []int{6})
	id := f.startedGame(t)

	ctx := service.WithActionID(context.Background(), "echo-1")
	res, err := f.svc.Roll(ctx, id, "a")
	if err != nil {
		t.Fatalf("Roll failed: %v", err)
	}
	if res.ActionID != "echo-1" || res.Events[0].ActionID != "echo-1" {
		t.Errorf("Expected action id to flow into the broadcast, got %q / %q", res.ActionID, res.Events[0].ActionID)
	}
}

func TestDeadRoll_ManualPass(t *testing.T) {
	f := newFixture(t, []int{3})
	ctx := context.Background()
	id := f.startedGame(t)

	res, err := f.svc.Roll(ctx, id, "a")
	if err != nil {
		t.Fatalf("Roll failed: %v", err)
	}
	if res.Game.State.CurrentTurn != "a" || len(res.Game.ValidMoves) != 0 {
		t.Errorf("Expected a to hold a dead roll, got turn %s moves %v", res.Game.State.CurrentTurn, res.Game.ValidMoves)
	}

	res, err = f.svc.Pass(ctx, id, "a")
	if err != nil {
		t.Fatalf("Pass failed: %v", err)
	}
	if res.Game.State.CurrentTurn != "b" {
		t.Errorf("Expected b to play, got %s", res.Game.State.CurrentTurn)
	}
}

func TestDeadRoll_ImmediateAutoPass(t *testing.T) {
	f := newFixture(t, []int{3}, service.WithAutoPassDelay(0))
	ctx := context.Background()
	id := f.startedGame(t)

	res, err := f.svc.Roll(ctx, id, "a")
	if err != nil {
		t.Fatalf("Roll failed: %v", err)
	}
	if res.Game.State.CurrentTurn != "b" || res.Game.State.Dice != 0 {
		t.Errorf("Expected turn passed to b, got %s/%d", res.Game.State.CurrentTurn, res.Game.State.Dice)
	}
	if len(res.Events) != 2 || res.Events[0].Name != syncer.EventDiceRolled || res.Events[1].Name != syncer.EventTurnPassed {
		t.Errorf("Expected roll and pass events, got %+v", res.Events)
	}
}

func TestDeadRoll_ScheduledAutoPass(t *testing.T) {
	f := newFixture(t, []int{3}, service.WithAutoPassDelay(20*time.Millisecond))
	ctx := context.Background()
	id := f.startedGame(t)

	res, _ := f.svc.Roll(ctx, id, "a")
	if res.Game.State.CurrentTurn != "a" {
		t.Errorf("Expected pass to be deferred, got %s", res.Game.State.CurrentTurn)
	}

	eventually(t, func() bool {
		g, _ := f.store.Get(ctx, id)
		return g.State.CurrentTurn == "b"
	})
}

func TestDeadRoll_ScheduledPassLosesToPlayer(t *testing.T) {
	f := newFixture(t, []int{3}, service.WithAutoPassDelay(30*time.Millisecond))
	ctx := context.Background()
	id := f.startedGame(t)

	f.svc.Roll(ctx, id, "a")
	res, err := f.svc.Pass(ctx, id, "a")
	if err != nil {
		t.Fatalf("Pass failed: %v", err)
	}
	version := res.Game.Version

	time.Sleep(80 * time.Millisecond)
	g, _ := f.store.Get(ctx, id)
	if g.Version != version {
		t.Errorf("Expected no commit after the manual pass, version went %d -> %d", version, g.Version)
	}
}

func TestResign_LastPlayerDeletesGame(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	g, _ := f.svc.CreateGame(ctx, "", "")
	f.svc.Join(ctx, g.ID, "a")

	res, err := f.svc.Resign(ctx, g.ID, "a")
	if err != nil {
		t.Fatalf("Resign failed: %v", err)
	}
	if !res.Deleted {
		t.Error("Expected deletion to be reported")
	}
	if _, err := f.svc.GetGame(ctx, g.ID); !errors.Is(err, gameerr.ErrNotFound) {
		t.Errorf("Expected game gone, got %v", err)
	}
}

func TestListBoards(t *testing.T) {
	f := newFixture(t, nil)
	boards, err := f.svc.ListBoards(context.Background())
	if err != nil || len(boards) != 1 || boards[0].BoardID != "classic" {
		t.Errorf("Expected the built-in board, got %v (%v)", boards, err)
	}
}

func TestRandomRoller(t *testing.T) {
	seen := map[int]bool{}
	for i := 0; i < 600; i++ {
		v := service.RandomRoller{}.Roll()
		if v < engine.MinDice || v > engine.MaxDice {
			t.Fatalf("Roll out of range: %d", v)
		}
		seen[v] = true
	}
	if len(seen) != 6 {
		t.Errorf("Expected every face in 600 rolls, saw %v", seen)
	}
}
