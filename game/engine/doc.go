// Package engine implements the rules of the game on top of package board.
//
// It has two layers:
//   - the move engine (moves.go): pure functions that compute destinations,
//     validate moves, detect captures and check the win condition
//   - the turn controller (turn.go): the waiting → playing → finished state
//     machine that applies joins, rolls, moves, passes and resignations to a
//     State and reports what happened as a list of Events
//
// Nothing in this package performs I/O, reads the clock or draws random
// numbers; dice values are supplied by the caller. The same inputs always
// produce the same State and Events, which is what lets the session layer
// recompute a transform safely after an optimistic-concurrency conflict.
//
// Usage:
//
//	eng := engine.New(board.Classic())
//	state := engine.NewState()
//
//	_, _ = eng.Join(state, "alice", "Alice")
//	_, _ = eng.Join(state, "bob", "Bob")
//	_, _ = eng.Start(state, "alice")
//	events, err := eng.Roll(state, "alice", 6)
//	events, err = eng.ApplyMove(state, "alice", 0)
//
// Rules not implemented: blockades (any number of pawns share a cell) and
// penalties for consecutive sixes.
package engine
