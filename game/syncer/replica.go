package syncer

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/wricardo/ludo-arena/game/board"
	"github.com/wricardo/ludo-arena/game/engine"
	"github.com/wricardo/ludo-arena/game/session"
)

// Fetcher loads the authoritative snapshot of a game
type Fetcher interface {
	FetchGame(ctx context.Context, gameID string) (*session.Game, error)
}

// Pending is an optimistic local echo of an action that has not yet been
// confirmed by an authoritative snapshot
type Pending struct {
	ID          string
	Action      session.Action
	BaseVersion int64
}

// Outcome reports what Handle did with an event
type Outcome int

const (
	// Applied means the delta was folded into the local snapshot
	Applied Outcome = iota
	// Ignored means the event carried nothing newer than the local snapshot
	Ignored
	// Resynced means the event was discarded and a fresh snapshot fetched
	Resynced
)

func (o Outcome) String() string {
	switch o {
	case Applied:
		return "applied"
	case Ignored:
		return "ignored"
	case Resynced:
		return "resynced"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Replica is a receiver's view of one game. Broadcast events are hints: an
// event is folded in only when it is exactly one version ahead of the local
// snapshot. An event further ahead, or one whose delta cannot be applied,
// triggers a fetch of the authoritative record. Events at or below the local
// version are dropped without a fetch: the snapshot already covers them.
type Replica struct {
	gameID  string
	fetcher Fetcher

	mu      sync.Mutex
	game    *session.Game
	pending map[string]Pending
}

// NewReplica creates a replica for gameID. Call Resync to load the first snapshot.
func NewReplica(gameID string, fetcher Fetcher) *Replica {
	return &Replica{
		gameID:  gameID,
		fetcher: fetcher,
		pending: make(map[string]Pending),
	}
}

// Snapshot returns a copy of the local view, nil before the first sync
func (r *Replica) Snapshot() *session.Game {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.game.Clone()
}

// Version returns the local version, zero before the first sync
func (r *Replica) Version() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.game == nil {
		return 0
	}
	return r.game.Version
}

// Resync replaces the local view with the authoritative snapshot
func (r *Replica) Resync(ctx context.Context) error {
	g, err := r.fetcher.FetchGame(ctx, r.gameID)
	if err != nil {
		return fmt.Errorf("failed to fetch game %s: %w", r.gameID, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.adopt(g)
	return nil
}

// adopt installs g unless the local view is already newer
func (r *Replica) adopt(g *session.Game) {
	if g == nil {
		return
	}
	if r.game == nil || g.Version >= r.game.Version {
		r.game = g.Clone()
	}
	r.dropConfirmed()
}

// Handle processes one broadcast event
func (r *Replica) Handle(ctx context.Context, ev Event) (Outcome, error) {
	if ev.GameID != r.gameID || ev.Version == 0 {
		return Ignored, nil
	}

	r.mu.Lock()
	if ev.ActionID != "" {
		delete(r.pending, ev.ActionID)
	}
	// Events of one commit share its version
	if r.game != nil && ev.Version <= r.game.Version {
		r.mu.Unlock()
		return Ignored, nil
	}
	if r.game != nil && ev.Version == r.game.Version+1 {
		if ok := r.applyDelta(ev); ok {
			r.game.Version = ev.Version
			r.dropConfirmed()
			r.mu.Unlock()
			return Applied, nil
		}
	}
	r.mu.Unlock()

	if err := r.Resync(ctx); err != nil {
		return Resynced, err
	}
	return Resynced, nil
}

// applyDelta folds an event into the local state. Roster changes are not
// reconstructible from the delta and always report false.
func (r *Replica) applyDelta(ev Event) bool {
	s := r.game.State
	switch ev.Name {
	case EventDiceRolled:
		var d DiceRolledData
		if ev.Decode(&d) != nil {
			return false
		}
		s.Dice = d.Value
		return true

	case EventPawnMove:
		var d PawnMoveData
		if ev.Decode(&d) != nil {
			return false
		}
		mover, ok := s.Player(d.PlayerID)
		if !ok || d.PawnIndex < 0 || d.PawnIndex >= engine.PawnsPerPlayer {
			return false
		}
		for _, c := range d.Captures {
			if _, ok := s.Player(c.PlayerID); !ok || c.PawnIndex < 0 || c.PawnIndex >= engine.PawnsPerPlayer {
				return false
			}
		}
		for _, c := range d.Captures {
			victim, _ := s.Player(c.PlayerID)
			victim.Pawns[c.PawnIndex].Position = board.Home()
		}
		mover.Pawns[d.PawnIndex].Position = d.NewPosition
		s.Dice = 0
		s.CurrentTurn = d.NextTurn
		if d.IsWin {
			s.Status = engine.StatusFinished
			s.Winner = d.PlayerID
		}
		return true

	case EventTurnPassed:
		var d TurnPassedData
		if ev.Decode(&d) != nil {
			return false
		}
		s.Dice = 0
		s.CurrentTurn = d.NextTurn
		return true

	default:
		return false
	}
}

// dropConfirmed forgets echoes the local snapshot has moved past
func (r *Replica) dropConfirmed() {
	for id, p := range r.pending {
		if p.BaseVersion < r.game.Version {
			delete(r.pending, id)
		}
	}
}

// Echo records an optimistic local action and returns its id. Send the id
// along with the action so the matching broadcast clears it.
func (r *Replica) Echo(a session.Action) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := uuid.NewString()
	var base int64
	if r.game != nil {
		base = r.game.Version
	}
	r.pending[id] = Pending{ID: id, Action: a, BaseVersion: base}
	return id
}

// Discard drops a pending echo, e.g. after its action was rejected
func (r *Replica) Discard(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.pending, id)
}

// Pending returns the echoes not yet confirmed
func (r *Replica) Pending() []Pending {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Pending, 0, len(r.pending))
	for _, p := range r.pending {
		out = append(out, p)
	}
	return out
}
