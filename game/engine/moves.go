package engine

import (
	"github.com/wricardo/ludo-arena/game/board"
	"github.com/wricardo/ludo-arena/game/gameerr"
)

// Engine evaluates moves against a fixed board topology
type Engine struct {
	board *board.Topology
}

// New creates an engine for the given topology
func New(topology *board.Topology) *Engine {
	return &Engine{board: topology}
}

// Board returns the topology the engine plays on
func (e *Engine) Board() *board.Topology {
	return e.board
}

// ComputeDestination returns the cell a pawn of color at pos reaches with
// dice. When the move is impossible (no six to leave Home, overshooting the
// finish, already finished) pos is returned unchanged.
func (e *Engine) ComputeDestination(pos board.Cell, dice int, color board.Color) board.Cell {
	if dice < MinDice || dice > MaxDice {
		return pos
	}

	switch pos.Kind {
	case board.KindHome:
		if dice == ExtraTurnRoll {
			return board.MainTrack(e.board.StartIndex(color))
		}
		return pos

	case board.KindFinish:
		return pos

	case board.KindHomeColumn:
		if pos.Color != color {
			return pos
		}
		if dest, ok := e.homeColumnLanding(color, pos.Index+dice); ok {
			return dest
		}
		return pos

	case board.KindMainTrack:
		total := e.board.MainTrackLength()
		entry := e.board.EntryIndex(color)
		stepsToEntry := ((entry-pos.Index)%total + total) % total

		switch {
		case dice < stepsToEntry:
			return board.MainTrack((pos.Index + dice) % total)
		case dice == stepsToEntry:
			return board.MainTrack(entry)
		default:
			homeIndex := dice - stepsToEntry - 1
			if dest, ok := e.homeColumnLanding(color, homeIndex); ok {
				return dest
			}
			return pos
		}

	default:
		return pos
	}
}

// homeColumnLanding maps a home column index to a cell. The last index of
// the column is the Finish; anything past it is an overshoot.
func (e *Engine) homeColumnLanding(color board.Color, index int) (board.Cell, bool) {
	last := e.board.HomeColumnLength(color) - 1
	switch {
	case index < last:
		return board.HomeColumn(color, index), true
	case index == last:
		return board.Finish(), true
	default:
		return board.Cell{}, false
	}
}

// ValidateMove reports why a pawn of color at pos cannot move with dice, or
// nil when the move changes its cell.
func (e *Engine) ValidateMove(pos board.Cell, dice int, color board.Color) error {
	if dice == 0 {
		return gameerr.Validation("no dice value to move with")
	}
	if dice < MinDice || dice > MaxDice {
		return gameerr.Validation("dice value %d out of range", dice)
	}
	if pos.IsFinish() {
		return gameerr.Validation("pawn already finished")
	}
	if e.ComputeDestination(pos, dice, color) == pos {
		if pos.IsHome() {
			return gameerr.Validation("a %d is needed to leave home", ExtraTurnRoll)
		}
		return gameerr.Validation("move of %d from %s overshoots the finish", dice, pos)
	}
	return nil
}

// DetectCaptures lists every opposing, non-resigned pawn sitting on dest.
// Safe cells and anything off the main track never capture.
func (e *Engine) DetectCaptures(dest board.Cell, moving board.Color, players []Player) []Capture {
	if dest.Kind != board.KindMainTrack || e.board.IsSafeCell(dest) {
		return nil
	}

	var captures []Capture
	for _, p := range players {
		if p.Resigned || p.Color == moving {
			continue
		}
		for _, pawn := range p.Pawns {
			if pawn.Position == dest {
				captures = append(captures, Capture{
					PlayerID:  p.ID,
					Color:     p.Color,
					PawnIndex: pawn.Index,
				})
			}
		}
	}
	return captures
}

// CheckWinCondition is true once all of a player's pawns are Finish
func CheckWinCondition(p Player) bool {
	for _, pawn := range p.Pawns {
		if !pawn.Position.IsFinish() {
			return false
		}
	}
	return true
}

// ValidMoves returns the indices of pawns that can legally move with dice
func (e *Engine) ValidMoves(p Player, dice int) []int {
	var moves []int
	for _, pawn := range p.Pawns {
		if e.ValidateMove(pawn.Position, dice, p.Color) == nil {
			moves = append(moves, pawn.Index)
		}
	}
	return moves
}

// HasAnyValidMove reports whether at least one pawn can move with dice
func (e *Engine) HasAnyValidMove(p Player, dice int) bool {
	return len(e.ValidMoves(p, dice)) > 0
}
