// Package board describes the logical Ludo board.
//
// The board is a graph of tagged cells rather than a grid of coordinates:
//   - a shared cyclic main track every pawn travels around
//   - one home column per color leading to the finish
//   - the off-board Home (pawns not yet in play) and Finish states
//
// Core Types:
//
// Cell is the tagged position of a pawn. Topology is the immutable,
// color-aware description of the main track and home columns, built from
// a Layout by New. Classic returns the standard four-color board.
//
// Usage:
//
//	topo := board.Classic()
//	start := board.MainTrack(topo.StartIndex(board.Green))
//	safe := topo.IsSafeCell(start) // true
//
// Any visual placement of cells belongs to presentation code; nothing in
// this package knows about screen or world coordinates.
package board
