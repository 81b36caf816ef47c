package session

import (
	"fmt"
	"time"

	"github.com/wricardo/ludo-arena/game/engine"
	"github.com/wricardo/ludo-arena/game/gameerr"
)

// ActionKind names a player action
type ActionKind string

const (
	ActionJoin   ActionKind = "join"
	ActionStart  ActionKind = "start"
	ActionRoll   ActionKind = "roll"
	ActionMove   ActionKind = "move"
	ActionResign ActionKind = "resign"
	ActionPass   ActionKind = "pass"
)

// Action is a request from one player to change a game
type Action struct {
	Kind      ActionKind `json:"kind"`
	PlayerID  string     `json:"player_id"`
	Name      string     `json:"name,omitempty"`
	Dice      int        `json:"dice,omitempty"`
	PawnIndex int        `json:"pawn_index,omitempty"`
	// IfVersion, when non-zero, rejects the action unless the game is still
	// at that version. Scheduled passes use it so they never act on a turn
	// that has already moved on.
	IfVersion int64 `json:"if_version,omitempty"`
}

// Outcome is the result of applying an action to a game
type Outcome struct {
	Game   *Game
	Events []engine.Event
	// Delete is set when the action left nobody to play and the game should
	// be removed instead of updated.
	Delete bool
}

// Apply computes the next record for an action. It never touches g: the
// transform runs on a deep copy, so a rejected action leaves nothing behind
// and the caller may simply retry against a fresher read.
func Apply(eng *engine.Engine, g *Game, a Action, now time.Time) (*Outcome, error) {
	if g == nil || g.State == nil {
		return nil, gameerr.NotFound("game not found")
	}
	if a.IfVersion != 0 && a.IfVersion != g.Version {
		return nil, gameerr.State("game moved on from version %d to %d", a.IfVersion, g.Version)
	}

	next := g.Clone()
	s := next.State

	var (
		events []engine.Event
		err    error
	)
	switch a.Kind {
	case ActionJoin:
		events, err = eng.Join(s, a.PlayerID, a.Name)
	case ActionStart:
		events, err = eng.Start(s, a.PlayerID)
	case ActionRoll:
		events, err = eng.Roll(s, a.PlayerID, a.Dice)
	case ActionMove:
		events, err = eng.ApplyMove(s, a.PlayerID, a.PawnIndex)
	case ActionResign:
		events, err = eng.Resign(s, a.PlayerID)
	case ActionPass:
		events, err = eng.PassTurn(s, a.PlayerID)
	default:
		return nil, gameerr.Validation("unknown action %q", a.Kind)
	}
	if err != nil {
		return nil, err
	}

	next.Version = g.Version + 1
	next.UpdatedAt = now
	if g.Status() != engine.StatusPlaying && s.Status == engine.StatusPlaying {
		next.StartedAt = &now
	}
	if g.Status() != engine.StatusFinished && s.Status == engine.StatusFinished {
		next.FinishedAt = &now
	}

	out := &Outcome{Game: next, Events: events}
	if a.Kind == ActionResign && s.Status != engine.StatusFinished && s.ActivePlayers() == 0 {
		out.Delete = true
	}
	return out, nil
}

// String renders an action for logs
func (a Action) String() string {
	switch a.Kind {
	case ActionRoll:
		return fmt.Sprintf("%s(%s, %d)", a.Kind, a.PlayerID, a.Dice)
	case ActionMove:
		return fmt.Sprintf("%s(%s, pawn %d)", a.Kind, a.PlayerID, a.PawnIndex)
	default:
		return fmt.Sprintf("%s(%s)", a.Kind, a.PlayerID)
	}
}
