package service

import (
	"context"

	"github.com/wricardo/ludo-arena/game/board"
)

// GameService defines all game-related operations
type GameService interface {
	// Game lifecycle
	CreateGame(ctx context.Context, boardName, gameID string) (*GameInfo, error)
	GetGame(ctx context.Context, gameID string) (*GameInfo, error)
	ListGames(ctx context.Context) ([]*GameInfo, error)
	DeleteGame(ctx context.Context, gameID string) error

	// Player actions
	Join(ctx context.Context, gameID, playerID string) (*ActionResult, error)
	Start(ctx context.Context, gameID, playerID string) (*ActionResult, error)
	Roll(ctx context.Context, gameID, playerID string) (*ActionResult, error)
	Move(ctx context.Context, gameID, playerID string, pawnIndex int) (*ActionResult, error)
	Resign(ctx context.Context, gameID, playerID string) (*ActionResult, error)
	Pass(ctx context.Context, gameID, playerID string) (*ActionResult, error)

	// Boards
	ListBoards(ctx context.Context) ([]*BoardInfo, error)

	// Close stops pending background work such as scheduled passes
	Close()
}

// BoardManager resolves board presets
type BoardManager interface {
	Topology(name string) (*board.Topology, error)
	ListBoards() ([]*BoardInfo, error)
	GetDefault() *board.Topology
}

// Directory looks up display names. Names are cosmetic and never decide
// anything in a game.
type Directory interface {
	DisplayName(ctx context.Context, playerID string) (string, error)
}

// Roller produces dice values in [1, 6]
type Roller interface {
	Roll() int
}
