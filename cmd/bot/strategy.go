package main

import (
	"github.com/wricardo/ludo-arena/game/board"
	"github.com/wricardo/ludo-arena/game/engine"
)

// Strategy picks which pawn to move
type Strategy interface {
	// Choose returns one of valid given the rolled dice
	Choose(eng *engine.Engine, state *engine.State, me *engine.Player, dice int, valid []int) int
}

// FirstStrategy always moves the lowest valid pawn
type FirstStrategy struct{}

// Choose implements Strategy
func (FirstStrategy) Choose(_ *engine.Engine, _ *engine.State, _ *engine.Player, _ int, valid []int) int {
	return valid[0]
}

// GreedyStrategy scores each candidate move and takes the best one.
// Ties go to the lowest pawn index.
type GreedyStrategy struct{}

// Move weights
const (
	scoreFinish    = 100
	scoreCapture   = 60
	scoreLeaveHome = 40
	scoreSafe      = 10
	scoreColumn    = 5
)

// Choose implements Strategy
func (GreedyStrategy) Choose(eng *engine.Engine, state *engine.State, me *engine.Player, dice int, valid []int) int {
	best, bestScore := valid[0], -1
	for _, idx := range valid {
		s := scoreMove(eng, state, me, dice, idx)
		if s > bestScore {
			best, bestScore = idx, s
		}
	}
	return best
}

func scoreMove(eng *engine.Engine, state *engine.State, me *engine.Player, dice, idx int) int {
	from := me.Pawns[idx].Position
	dest := eng.ComputeDestination(from, dice, me.Color)

	score := 0
	switch {
	case dest.IsFinish():
		score += scoreFinish
	case dest.Kind == board.KindHomeColumn && from.Kind == board.KindMainTrack:
		score += scoreColumn
	}
	if from.IsHome() {
		score += scoreLeaveHome
	}
	if len(eng.DetectCaptures(dest, me.Color, state.Players)) > 0 {
		score += scoreCapture
	}
	if dest.Kind == board.KindMainTrack && eng.Board().IsSafeCell(dest) {
		score += scoreSafe
	}
	return score
}

func strategyByName(name string) (Strategy, bool) {
	switch name {
	case "greedy", "":
		return GreedyStrategy{}, true
	case "first":
		return FirstStrategy{}, true
	}
	return nil, false
}
