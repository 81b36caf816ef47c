package engine

import (
	"strings"

	"github.com/wricardo/ludo-arena/game/board"
	"github.com/wricardo/ludo-arena/game/gameerr"
)

// EventKind names a domain event produced by the turn controller
type EventKind string

const (
	EventPlayerJoined EventKind = "player_joined"
	EventPlayerLeft   EventKind = "player_left"
	EventGameStarted  EventKind = "game_started"
	EventDiceRolled   EventKind = "dice_rolled"
	EventPawnMoved    EventKind = "pawn_moved"
	EventTurnPassed   EventKind = "turn_passed"
)

// Event is a fact produced by applying an action to a State
type Event struct {
	Kind      EventKind   `json:"kind"`
	PlayerID  string      `json:"player_id"`
	Color     board.Color `json:"color,omitempty"`
	PawnIndex int         `json:"pawn_index,omitempty"`
	From      *board.Cell `json:"from,omitempty"`
	To        *board.Cell `json:"to,omitempty"`
	Dice      int         `json:"dice,omitempty"`
	Captures  []Capture   `json:"captures,omitempty"`
	NextTurn  string      `json:"next_turn,omitempty"`
	Win       bool        `json:"win,omitempty"`
	// NoLegalMove is set on a roll that leaves the player nothing to move;
	// the caller is expected to follow up with PassTurn.
	NoLegalMove bool `json:"no_legal_move,omitempty"`
}

// Join seats a player with the next free color
func (e *Engine) Join(s *State, playerID, name string) ([]Event, error) {
	if strings.TrimSpace(playerID) == "" {
		return nil, gameerr.Validation("player id is required")
	}
	if s.Status != StatusWaiting {
		return nil, gameerr.Validation("game already started")
	}
	if s.PlayerIndex(playerID) >= 0 {
		return nil, gameerr.Validation("player %s already joined", playerID)
	}
	if len(s.Players) >= MaxPlayers {
		return nil, gameerr.Validation("game is full (%d players)", MaxPlayers)
	}

	var color board.Color
	for _, c := range board.JoinOrder {
		if !s.colorTaken(c) {
			color = c
			break
		}
	}
	if color == "" {
		return nil, gameerr.Validation("no color left to assign")
	}

	if strings.TrimSpace(name) == "" {
		name = playerID
	}
	s.Players = append(s.Players, NewPlayer(playerID, name, color))

	return []Event{{Kind: EventPlayerJoined, PlayerID: playerID, Color: color}}, nil
}

// Start moves a waiting game with enough players into play. Any seated
// player may start it; the first player to join takes the first turn.
func (e *Engine) Start(s *State, playerID string) ([]Event, error) {
	if s.Status != StatusWaiting {
		return nil, gameerr.Validation("game already started")
	}
	if s.PlayerIndex(playerID) < 0 {
		return nil, gameerr.NotFound("player %s is not in this game", playerID)
	}
	if len(s.Players) < MinPlayers {
		return nil, gameerr.Validation("at least %d players are needed to start, have %d", MinPlayers, len(s.Players))
	}

	s.Status = StatusPlaying
	s.CurrentTurn = s.Players[0].ID
	s.Dice = 0

	return []Event{{Kind: EventGameStarted, PlayerID: playerID, NextTurn: s.CurrentTurn}}, nil
}

// checkTurn verifies the game is in play and it is playerID's turn
func (e *Engine) checkTurn(s *State, playerID string) (*Player, error) {
	if s.Status != StatusPlaying {
		return nil, gameerr.State("game is %s, not playing", s.Status)
	}
	p, ok := s.Player(playerID)
	if !ok {
		return nil, gameerr.NotFound("player %s is not in this game", playerID)
	}
	if s.CurrentTurn != playerID {
		return nil, gameerr.Validation("not your turn").WithMetadata("current_turn", s.CurrentTurn)
	}
	return p, nil
}

// Roll records a dice value for the current player
func (e *Engine) Roll(s *State, playerID string, value int) ([]Event, error) {
	p, err := e.checkTurn(s, playerID)
	if err != nil {
		return nil, err
	}
	if value < MinDice || value > MaxDice {
		return nil, gameerr.Validation("dice value %d out of range", value)
	}
	if s.Dice != 0 {
		return nil, gameerr.Validation("dice already rolled, move a pawn first")
	}

	s.Dice = value
	return []Event{{
		Kind:        EventDiceRolled,
		PlayerID:    playerID,
		Color:       p.Color,
		Dice:        value,
		NextTurn:    s.CurrentTurn,
		NoLegalMove: !e.HasAnyValidMove(*p, value),
	}}, nil
}

// ApplyMove moves one of the current player's pawns by the rolled dice,
// resolving captures, the win condition and turn advancement.
func (e *Engine) ApplyMove(s *State, playerID string, pawnIndex int) ([]Event, error) {
	p, err := e.checkTurn(s, playerID)
	if err != nil {
		return nil, err
	}
	if pawnIndex < 0 || pawnIndex >= PawnsPerPlayer {
		return nil, gameerr.Validation("pawn index %d out of range", pawnIndex)
	}

	dice := s.Dice
	from := p.Pawns[pawnIndex].Position
	if err := e.ValidateMove(from, dice, p.Color); err != nil {
		return nil, err
	}

	to := e.ComputeDestination(from, dice, p.Color)
	captures := e.DetectCaptures(to, p.Color, s.Players)
	for _, c := range captures {
		victim, _ := s.Player(c.PlayerID)
		victim.Pawns[c.PawnIndex].Position = board.Home()
	}
	p.Pawns[pawnIndex].Position = to
	s.Dice = 0
	s.LastMove = &LastMove{
		PlayerID:  playerID,
		PawnIndex: pawnIndex,
		From:      from,
		To:        to,
		Dice:      dice,
		Captures:  captures,
	}

	ev := Event{
		Kind:      EventPawnMoved,
		PlayerID:  playerID,
		Color:     p.Color,
		PawnIndex: pawnIndex,
		From:      &from,
		To:        &to,
		Dice:      dice,
		Captures:  captures,
	}

	switch {
	case CheckWinCondition(*p):
		s.Status = StatusFinished
		s.Winner = playerID
		s.CurrentTurn = ""
		ev.Win = true
	case dice == ExtraTurnRoll:
		// extra turn: same player rolls again
	default:
		s.CurrentTurn = NextPlayer(s, playerID)
	}
	ev.NextTurn = s.CurrentTurn

	return []Event{ev}, nil
}

// PassTurn hands the turn on when the pending roll leaves no legal move. It
// is rejected once any pawn could move, so it can never pre-empt a legal
// action that reached the store first.
func (e *Engine) PassTurn(s *State, playerID string) ([]Event, error) {
	p, err := e.checkTurn(s, playerID)
	if err != nil {
		return nil, err
	}
	if s.Dice == 0 {
		return nil, gameerr.Validation("roll before passing")
	}
	if e.HasAnyValidMove(*p, s.Dice) {
		return nil, gameerr.Validation("a legal move exists for %d", s.Dice)
	}

	dice := s.Dice
	s.Dice = 0
	s.CurrentTurn = NextPlayer(s, playerID)

	return []Event{{Kind: EventTurnPassed, PlayerID: playerID, Dice: dice, NextTurn: s.CurrentTurn}}, nil
}

// Resign removes a player. Before the game starts the seat is freed; during
// play the player is marked resigned, their pawns stay on the board and the
// turn moves on if it was theirs.
func (e *Engine) Resign(s *State, playerID string) ([]Event, error) {
	i := s.PlayerIndex(playerID)
	if i < 0 {
		return nil, gameerr.NotFound("player %s is not in this game", playerID)
	}

	switch s.Status {
	case StatusWaiting:
		s.Players = append(s.Players[:i], s.Players[i+1:]...)
	case StatusPlaying:
		if s.Players[i].Resigned {
			return nil, gameerr.Validation("player %s already resigned", playerID)
		}
		s.Players[i].Resigned = true
		if s.CurrentTurn == playerID {
			s.Dice = 0
			s.CurrentTurn = NextPlayer(s, playerID)
		}
	case StatusFinished:
		return nil, gameerr.State("game is finished")
	default:
		return nil, gameerr.State("unknown game status %q", s.Status)
	}

	return []Event{{Kind: EventPlayerLeft, PlayerID: playerID, NextTurn: s.CurrentTurn}}, nil
}

// NextPlayer returns the first non-resigned player after fromID in join
// order, wrapping around. It returns "" when nobody is left to play.
func NextPlayer(s *State, fromID string) string {
	n := len(s.Players)
	if n == 0 {
		return ""
	}
	start := s.PlayerIndex(fromID)
	for step := 1; step <= n; step++ {
		candidate := s.Players[(start+step+n)%n]
		if !candidate.Resigned {
			return candidate.ID
		}
	}
	return ""
}
