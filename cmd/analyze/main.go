// Command analyze prints quick, human-readable heuristics about the board
// presets in the project's configs directory. It summarizes track sizes,
// safe cells, the distance each color travels to finish and the longest
// stretch of the track where pawns can be captured.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/wricardo/ludo-arena/game/board"
	"github.com/wricardo/ludo-arena/game/config"
)

// LaneAnalysis summarizes one color's route
type LaneAnalysis struct {
	Color  board.Color
	Start  int
	Entry  int
	Column int
	// Steps from the start cell to Finish
	Steps int
}

// BoardAnalysis is the result of analyzing one board preset
type BoardAnalysis struct {
	Name          string
	TrackLength   int
	SafeCells     []int
	LongestUnsafe int
	Lanes         []LaneAnalysis
}

func main() {
	dir := "configs"
	if len(os.Args) > 1 {
		dir = os.Args[1]
	}

	if err := run(os.Stdout, dir); err != nil {
		fmt.Fprintf(os.Stderr, "analyze: %v\n", err)
		os.Exit(1)
	}
}

func run(w io.Writer, dir string) error {
	manager, err := config.NewManager(dir)
	if err != nil {
		return err
	}
	boards, err := manager.ListBoards()
	if err != nil {
		return err
	}

	for _, info := range boards {
		topo, err := manager.Topology(info.BoardID)
		if err != nil {
			fmt.Fprintf(w, "\n=== %s ===\n  error: %v\n", info.BoardID, err)
			continue
		}
		printAnalysis(w, analyzeBoard(topo))
	}
	return nil
}

func analyzeBoard(t *board.Topology) BoardAnalysis {
	n := t.MainTrackLength()
	a := BoardAnalysis{Name: t.Name(), TrackLength: n}

	for i := 0; i < n; i++ {
		if t.IsSafeCell(board.MainTrack(i)) {
			a.SafeCells = append(a.SafeCells, i)
		}
	}
	a.LongestUnsafe = longestUnsafeRun(t)

	for _, c := range board.JoinOrder {
		start, entry := t.StartIndex(c), t.EntryIndex(c)
		column := t.HomeColumnLength(c)
		a.Lanes = append(a.Lanes, LaneAnalysis{
			Color:  c,
			Start:  start,
			Entry:  entry,
			Column: column,
			Steps:  (entry-start+n)%n + column,
		})
	}
	return a
}

// longestUnsafeRun counts the longest run of consecutive capturable main
// track cells, wrapping around the loop
func longestUnsafeRun(t *board.Topology) int {
	n := t.MainTrackLength()
	best, run := 0, 0
	for i := 0; i < 2*n; i++ {
		if t.IsSafeCell(board.MainTrack(i % n)) {
			run = 0
			continue
		}
		run++
		if run > best {
			best = run
		}
	}
	if best > n {
		best = n
	}
	return best
}

func printAnalysis(w io.Writer, a BoardAnalysis) {
	fmt.Fprintf(w, "\n=== Analyzing %s ===\n", a.Name)
	fmt.Fprintf(w, "Track: %d cells, %d safe %v\n", a.TrackLength, len(a.SafeCells), a.SafeCells)
	fmt.Fprintf(w, "Longest unsafe stretch: %d cells\n", a.LongestUnsafe)
	for _, l := range a.Lanes {
		fmt.Fprintf(w, "  %-6s start=%-3d entry=%-3d column=%d steps to finish=%d\n",
			l.Color, l.Start, l.Entry, l.Column, l.Steps)
	}
}
