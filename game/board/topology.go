package board

import (
	"fmt"
	"strings"
)

// Validation limits for board layouts
const (
	MinMainTrackLength  = 8
	MaxMainTrackLength  = 208
	MinHomeColumnLength = 2
	MaxHomeColumnLength = 12
)

// Lane describes where one color enters and leaves the main track
type Lane struct {
	Start int `json:"start"`
	Entry int `json:"entry"`
	// HomeColumnLength overrides Layout.HomeColumnLength when non-zero.
	HomeColumnLength int `json:"home_column_length,omitempty"`
}

// Layout is the serialisable description of a board, as stored in preset files
type Layout struct {
	Name             string         `json:"name"`
	Description      string         `json:"description"`
	MainTrackLength  int            `json:"main_track_length"`
	HomeColumnLength int            `json:"home_column_length"`
	Lanes            map[Color]Lane `json:"lanes"`
}

// Topology is the immutable board graph built from a validated Layout
type Topology struct {
	name        string
	trackLength int
	lanes       map[Color]Lane
	safe        map[int]bool
}

// ClassicLayout returns the standard 52-cell, four-color layout. Entries sit
// two cells behind each color's start.
func ClassicLayout() Layout {
	return Layout{
		Name:             "classic",
		Description:      "Standard four-color board with a 52-cell track and six-step home columns",
		MainTrackLength:  52,
		HomeColumnLength: 6,
		Lanes: map[Color]Lane{
			Green:  {Start: 1, Entry: 51},
			Yellow: {Start: 14, Entry: 12},
			Red:    {Start: 27, Entry: 25},
			Blue:   {Start: 40, Entry: 38},
		},
	}
}

// Classic returns the topology of ClassicLayout.
func Classic() *Topology {
	t, err := New(ClassicLayout())
	if err != nil {
		panic(fmt.Sprintf("classic layout is invalid: %v", err))
	}
	return t
}

// ValidateLayout checks a layout for structural correctness
func ValidateLayout(l Layout) error {
	if strings.TrimSpace(l.Name) == "" {
		return fmt.Errorf("layout validation: name is required")
	}
	if l.MainTrackLength < MinMainTrackLength || l.MainTrackLength > MaxMainTrackLength {
		return fmt.Errorf("layout validation: main_track_length must be between %d and %d, got %d",
			MinMainTrackLength, MaxMainTrackLength, l.MainTrackLength)
	}

	starts := make(map[int]Color)
	entries := make(map[int]Color)
	for _, color := range JoinOrder {
		lane, ok := l.Lanes[color]
		if !ok {
			return fmt.Errorf("layout validation: missing lane for %s", color)
		}
		if lane.Start < 0 || lane.Start >= l.MainTrackLength {
			return fmt.Errorf("layout validation: %s start %d is off the track", color, lane.Start)
		}
		if lane.Entry < 0 || lane.Entry >= l.MainTrackLength {
			return fmt.Errorf("layout validation: %s entry %d is off the track", color, lane.Entry)
		}
		if lane.Start == lane.Entry {
			return fmt.Errorf("layout validation: %s start and entry must differ", color)
		}
		if other, dup := starts[lane.Start]; dup {
			return fmt.Errorf("layout validation: %s and %s share start %d", other, color, lane.Start)
		}
		if other, dup := entries[lane.Entry]; dup {
			return fmt.Errorf("layout validation: %s and %s share entry %d", other, color, lane.Entry)
		}
		starts[lane.Start] = color
		entries[lane.Entry] = color

		length := l.HomeColumnLength
		if lane.HomeColumnLength != 0 {
			length = lane.HomeColumnLength
		}
		if length < MinHomeColumnLength || length > MaxHomeColumnLength {
			return fmt.Errorf("layout validation: %s home column length must be between %d and %d, got %d",
				color, MinHomeColumnLength, MaxHomeColumnLength, length)
		}
	}

	for color := range l.Lanes {
		if !color.Valid() {
			return fmt.Errorf("layout validation: unknown color %q", color)
		}
	}
	return nil
}

// New validates a layout and freezes it into a Topology
func New(l Layout) (*Topology, error) {
	if err := ValidateLayout(l); err != nil {
		return nil, err
	}

	t := &Topology{
		name:        l.Name,
		trackLength: l.MainTrackLength,
		lanes:       make(map[Color]Lane, len(l.Lanes)),
		safe:        make(map[int]bool, 2*len(l.Lanes)),
	}
	for color, lane := range l.Lanes {
		if lane.HomeColumnLength == 0 {
			lane.HomeColumnLength = l.HomeColumnLength
		}
		t.lanes[color] = lane
		t.safe[lane.Start] = true
		t.safe[lane.Entry] = true
	}
	return t, nil
}

// Name returns the layout name the topology was built from
func (t *Topology) Name() string { return t.name }

// MainTrackLength is the size of the shared cyclic track.
func (t *Topology) MainTrackLength() int { return t.trackLength }

// StartIndex is the main-track cell a pawn occupies when it leaves Home.
func (t *Topology) StartIndex(c Color) int { return t.lanes[c].Start }

// EntryIndex is the main-track cell where c turns into its home column.
func (t *Topology) EntryIndex(c Color) int { return t.lanes[c].Entry }

// HomeColumnLength counts the home column cells after the entry, the final
// (Finish) cell included.
func (t *Topology) HomeColumnLength(c Color) int { return t.lanes[c].HomeColumnLength }

// IsSafeCell reports whether pawns on cell are protected from capture: every
// start and entry cell of the main track and every home column cell.
func (t *Topology) IsSafeCell(cell Cell) bool {
	switch cell.Kind {
	case KindMainTrack:
		return t.safe[cell.Index]
	case KindHomeColumn:
		return true
	case KindHome, KindFinish:
		return false
	default:
		return false
	}
}
