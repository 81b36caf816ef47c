package engine

import "github.com/wricardo/ludo-arena/game/board"

const (
	PawnsPerPlayer = 4
	MinPlayers     = 2
	MaxPlayers     = 4
	MinDice        = 1
	MaxDice        = 6

	// ExtraTurnRoll leaves home and keeps the turn after moving
	ExtraTurnRoll = 6
)

// Status is the lifecycle stage of a game
type Status string

const (
	StatusWaiting  Status = "waiting"
	StatusPlaying  Status = "playing"
	StatusFinished Status = "finished"
)

// Pawn is one of a player's four pieces
type Pawn struct {
	Index    int        `json:"pawn_index"`
	Position board.Cell `json:"position"`
}

// Player is a seat in the game
type Player struct {
	ID       string               `json:"id"`
	Name     string               `json:"name"`
	Color    board.Color          `json:"color"`
	Resigned bool                 `json:"resigned"`
	Pawns    [PawnsPerPlayer]Pawn `json:"pawns"`
}

// Capture records a pawn sent back Home
type Capture struct {
	PlayerID  string      `json:"player_id"`
	Color     board.Color `json:"color"`
	PawnIndex int         `json:"pawn_index"`
}

// LastMove describes the most recent applied move
type LastMove struct {
	PlayerID  string     `json:"player_id"`
	PawnIndex int        `json:"pawn_index"`
	From      board.Cell `json:"from"`
	To        board.Cell `json:"to"`
	Dice      int        `json:"dice"`
	Captures  []Capture  `json:"captures,omitempty"`
}

// State is the rule-relevant part of a game session
type State struct {
	Status      Status    `json:"status"`
	Players     []Player  `json:"players"`
	CurrentTurn string    `json:"current_turn"`
	Dice        int       `json:"dice_value"`
	LastMove    *LastMove `json:"last_move,omitempty"`
	Winner      string    `json:"winner,omitempty"`
}

// NewState returns an empty game waiting for players
func NewState() *State {
	return &State{
		Status:  StatusWaiting,
		Players: []Player{},
	}
}

// NewPlayer seats a player with all pawns at Home
func NewPlayer(id, name string, color board.Color) Player {
	p := Player{ID: id, Name: name, Color: color}
	for i := range p.Pawns {
		p.Pawns[i] = Pawn{Index: i, Position: board.Home()}
	}
	return p
}

// Clone returns a deep copy so a transform never touches the state it was read from
func (s *State) Clone() *State {
	if s == nil {
		return nil
	}
	c := *s
	c.Players = make([]Player, len(s.Players))
	copy(c.Players, s.Players)
	if s.LastMove != nil {
		lm := *s.LastMove
		if s.LastMove.Captures != nil {
			lm.Captures = make([]Capture, len(s.LastMove.Captures))
			copy(lm.Captures, s.LastMove.Captures)
		}
		c.LastMove = &lm
	}
	return &c
}

// PlayerIndex returns the roster position of id, or -1
func (s *State) PlayerIndex(id string) int {
	for i := range s.Players {
		if s.Players[i].ID == id {
			return i
		}
	}
	return -1
}

// Player returns the player with the given id
func (s *State) Player(id string) (*Player, bool) {
	i := s.PlayerIndex(id)
	if i < 0 {
		return nil, false
	}
	return &s.Players[i], true
}

// ActivePlayers counts players that have not resigned
func (s *State) ActivePlayers() int {
	n := 0
	for _, p := range s.Players {
		if !p.Resigned {
			n++
		}
	}
	return n
}

// colorTaken reports whether a seated player already holds c
func (s *State) colorTaken(c board.Color) bool {
	for _, p := range s.Players {
		if p.Color == c {
			return true
		}
	}
	return false
}
