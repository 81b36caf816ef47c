package session

import (
	"context"
	"errors"

	"github.com/wricardo/ludo-arena/game/engine"
)

var (
	ErrNotFound        = errors.New("game not found")
	ErrAlreadyExists   = errors.New("game already exists")
	ErrVersionConflict = errors.New("game version conflict")
	ErrInvalidGameID   = errors.New("invalid game ID")
)

// AnyVersion disables the version check on Delete
const AnyVersion int64 = -1

// Store persists game records with optimistic concurrency. Every write names
// the version it was computed from and fails with ErrVersionConflict when
// another writer got there first.
type Store interface {
	// Create inserts a new record; ErrAlreadyExists if the id is taken
	Create(ctx context.Context, g *Game) error

	// Get returns a private copy of the latest record
	Get(ctx context.Context, id string) (*Game, error)

	// Update replaces the record if it is still at expectedVersion
	Update(ctx context.Context, g *Game, expectedVersion int64) error

	// Delete removes the record if it is still at expectedVersion, or
	// unconditionally with AnyVersion
	Delete(ctx context.Context, id string, expectedVersion int64) error

	// List returns every record, oldest first
	List(ctx context.Context) ([]*Game, error)
}

// StatusLister is implemented by stores that can filter by lifecycle status
// without loading every record
type StatusLister interface {
	ListByStatus(ctx context.Context, status engine.Status) ([]*Game, error)
}
