package session

import (
	"time"

	"github.com/wricardo/ludo-arena/game/engine"
)

// Game is the persisted record of one match: the turn state plus the
// bookkeeping every store needs for optimistic concurrency.
type Game struct {
	ID         string        `json:"id"`
	Board      string        `json:"board"`
	State      *engine.State `json:"state"`
	Version    int64         `json:"version"`
	CreatedAt  time.Time     `json:"created_at"`
	StartedAt  *time.Time    `json:"started_at,omitempty"`
	FinishedAt *time.Time    `json:"finished_at,omitempty"`
	UpdatedAt  time.Time     `json:"updated_at"`
}

// NewGame creates a waiting game at version 1
func NewGame(id, boardName string, now time.Time) *Game {
	return &Game{
		ID:        id,
		Board:     boardName,
		State:     engine.NewState(),
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Clone returns a deep copy of the record
func (g *Game) Clone() *Game {
	if g == nil {
		return nil
	}
	c := *g
	c.State = g.State.Clone()
	if g.StartedAt != nil {
		t := *g.StartedAt
		c.StartedAt = &t
	}
	if g.FinishedAt != nil {
		t := *g.FinishedAt
		c.FinishedAt = &t
	}
	return &c
}

// Status is a shortcut for the turn state's status
func (g *Game) Status() engine.Status {
	if g.State == nil {
		return ""
	}
	return g.State.Status
}

// Deletable reports whether the game may be removed outside of play: it
// has finished, or it is waiting with an empty roster
func (g *Game) Deletable() bool {
	if g.State == nil {
		return true
	}
	switch g.State.Status {
	case engine.StatusFinished:
		return true
	case engine.StatusWaiting:
		return len(g.State.Players) == 0
	}
	return false
}
