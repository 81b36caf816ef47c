package service

import (
	"context"
	"math/rand/v2"
	"sync"

	"github.com/wricardo/ludo-arena/game/engine"
	"github.com/wricardo/ludo-arena/game/session"
	"github.com/wricardo/ludo-arena/game/syncer"
)

// GameInfo is a game record plus hints derived from it
type GameInfo struct {
	*session.Game
	// ValidMoves lists the pawns the current player may move with the
	// pending dice value
	ValidMoves []int `json:"valid_moves,omitempty"`
}

// ActionResult contains the result of a player action
type ActionResult struct {
	Game     *GameInfo      `json:"game"`
	Events   []syncer.Event `json:"events"`
	ActionID string         `json:"action_id"`
	// Deleted is set when the action removed the game
	Deleted bool `json:"deleted,omitempty"`

	noLegalMove bool
}

// BoardInfo provides information about a board preset
type BoardInfo struct {
	BoardID          string `json:"board_id"` // identifier to use for game creation
	Name             string `json:"name"`
	Description      string `json:"description"`
	MainTrackLength  int    `json:"main_track_length"`
	HomeColumnLength int    `json:"home_column_length"`
}

// RandomRoller rolls a fair die
type RandomRoller struct{}

// Roll returns a value in [1, 6]
func (RandomRoller) Roll() int {
	return rand.IntN(engine.MaxDice) + engine.MinDice
}

// FixedRoller replays a sequence of values, cycling when exhausted
type FixedRoller struct {
	Values []int
	next   int
	mu     sync.Mutex
}

// Roll returns the next scripted value
func (f *FixedRoller) Roll() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.Values) == 0 {
		return engine.MinDice
	}
	v := f.Values[f.next%len(f.Values)]
	f.next++
	return v
}

type actionIDKey struct{}

// WithActionID attaches a client-chosen action id to ctx so the broadcast of
// the resulting commit can be matched to the client's optimistic echo
func WithActionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, actionIDKey{}, id)
}

// ActionIDFromContext returns the id set by WithActionID
func ActionIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(actionIDKey{}).(string)
	return id
}
