package board

import (
	"encoding/json"
	"fmt"
)

// Color identifies a player's side of the board
type Color string

const (
	Green  Color = "green"
	Red    Color = "red"
	Blue   Color = "blue"
	Yellow Color = "yellow"
)

// JoinOrder is the precedence used when handing out colors to joining players
var JoinOrder = []Color{Green, Blue, Red, Yellow}

// Valid reports whether c is one of the four board colors
func (c Color) Valid() bool {
	switch c {
	case Green, Red, Blue, Yellow:
		return true
	}
	return false
}

// CellKind is the tag of a Cell
type CellKind string

const (
	KindHome       CellKind = "home"
	KindFinish     CellKind = "finish"
	KindMainTrack  CellKind = "main"
	KindHomeColumn CellKind = "home_column"
)

// Cell is a logical board position. Exactly one kind applies; Color is only
// meaningful for KindHomeColumn and Index for KindMainTrack/KindHomeColumn.
type Cell struct {
	Kind  CellKind
	Color Color
	Index int
}

// Home is the off-board starting area.
func Home() Cell { return Cell{Kind: KindHome} }

// Finish is the terminal cell reached at the end of a home column.
func Finish() Cell { return Cell{Kind: KindFinish} }

// MainTrack returns the shared track cell at index i.
func MainTrack(i int) Cell { return Cell{Kind: KindMainTrack, Index: i} }

// HomeColumn returns cell i of the given color's home column.
func HomeColumn(c Color, i int) Cell { return Cell{Kind: KindHomeColumn, Color: c, Index: i} }

// IsHome reports whether the pawn is waiting off the board
func (c Cell) IsHome() bool { return c.Kind == KindHome }

// IsFinish reports whether the pawn has completed its route
func (c Cell) IsFinish() bool { return c.Kind == KindFinish }

// String renders the cell for logs and error messages
func (c Cell) String() string {
	switch c.Kind {
	case KindHome:
		return "home"
	case KindFinish:
		return "finish"
	case KindMainTrack:
		return fmt.Sprintf("main(%d)", c.Index)
	case KindHomeColumn:
		return fmt.Sprintf("home_column(%s,%d)", c.Color, c.Index)
	default:
		return fmt.Sprintf("invalid(%q)", string(c.Kind))
	}
}

// cellJSON is the wire form of a Cell
type cellJSON struct {
	Kind  CellKind `json:"kind"`
	Color Color    `json:"color,omitempty"`
	Index *int     `json:"index,omitempty"`
}

// MarshalJSON encodes the cell as a tagged object
func (c Cell) MarshalJSON() ([]byte, error) {
	switch c.Kind {
	case KindHome, KindFinish:
		return json.Marshal(cellJSON{Kind: c.Kind})
	case KindMainTrack:
		idx := c.Index
		return json.Marshal(cellJSON{Kind: c.Kind, Index: &idx})
	case KindHomeColumn:
		idx := c.Index
		return json.Marshal(cellJSON{Kind: c.Kind, Color: c.Color, Index: &idx})
	default:
		return nil, fmt.Errorf("cannot encode cell with kind %q", string(c.Kind))
	}
}

// UnmarshalJSON decodes a tagged object, rejecting unknown or incomplete tags
func (c *Cell) UnmarshalJSON(data []byte) error {
	var raw cellJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode cell: %w", err)
	}

	switch raw.Kind {
	case KindHome:
		*c = Home()
	case KindFinish:
		*c = Finish()
	case KindMainTrack:
		if raw.Index == nil || *raw.Index < 0 {
			return fmt.Errorf("decode cell: main track cell needs a non-negative index")
		}
		*c = MainTrack(*raw.Index)
	case KindHomeColumn:
		if !raw.Color.Valid() {
			return fmt.Errorf("decode cell: home column cell has invalid color %q", raw.Color)
		}
		if raw.Index == nil || *raw.Index < 0 {
			return fmt.Errorf("decode cell: home column cell needs a non-negative index")
		}
		*c = HomeColumn(raw.Color, *raw.Index)
	default:
		return fmt.Errorf("decode cell: unknown kind %q", string(raw.Kind))
	}
	return nil
}
