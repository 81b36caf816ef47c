package syncer

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/wricardo/ludo-arena/game/board"
	"github.com/wricardo/ludo-arena/game/engine"
)

// Wire event names
const (
	EventJoinGame           = "join-game"
	EventLeaveGame          = "leave-game"
	EventGameStarted        = "game-started"
	EventDiceRolled         = "dice-rolled"
	EventPawnMove           = "pawn-move"
	EventTurnPassed         = "turn-passed"
	EventMoveError          = "move-error"
	EventPlayerDisconnected = "player-disconnected"
)

// Event is the advisory envelope sent to connected clients. Version is the
// game version the event was committed at, zero for events that carry no
// game state.
type Event struct {
	Name     string          `json:"event"`
	GameID   string          `json:"game_id"`
	Version  int64           `json:"version,omitempty"`
	ActionID string          `json:"action_id,omitempty"`
	Data     json.RawMessage `json:"data,omitempty"`
}

// RosterData is carried by join-game, leave-game and game-started
type RosterData struct {
	GameID   string      `json:"gameId"`
	PlayerID string      `json:"playerId"`
	Color    board.Color `json:"color,omitempty"`
	NextTurn string      `json:"nextTurn,omitempty"`
	Version  int64       `json:"version"`
}

// DiceRolledData is carried by dice-rolled
type DiceRolledData struct {
	GameID      string    `json:"gameId"`
	PlayerID    string    `json:"playerId"`
	Value       int       `json:"value"`
	NoLegalMove bool      `json:"noLegalMove,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
	Version     int64     `json:"version"`
}

// PawnMoveData is carried by pawn-move
type PawnMoveData struct {
	GameID      string           `json:"gameId"`
	PlayerID    string           `json:"playerId"`
	PawnIndex   int              `json:"pawnIndex"`
	NewPosition board.Cell       `json:"newPosition"`
	Captures    []engine.Capture `json:"captures,omitempty"`
	Timestamp   time.Time        `json:"timestamp"`
	IsWin       bool             `json:"isWin"`
	NextTurn    string           `json:"nextTurn"`
	Version     int64            `json:"version"`
}

// TurnPassedData is carried by turn-passed
type TurnPassedData struct {
	GameID   string `json:"gameId"`
	PlayerID string `json:"playerId"`
	NextTurn string `json:"nextTurn"`
	Version  int64  `json:"version"`
}

// MoveErrorData is carried by move-error
type MoveErrorData struct {
	Message   string `json:"message"`
	PawnIndex *int   `json:"pawnIndex,omitempty"`
}

// PlayerDisconnectedData is carried by player-disconnected
type PlayerDisconnectedData struct {
	PlayerID string `json:"playerId"`
}

// NewEvent wraps a payload in an envelope
func NewEvent(name, gameID string, version int64, data any) (Event, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Event{}, fmt.Errorf("failed to marshal %s payload: %w", name, err)
	}
	return Event{Name: name, GameID: gameID, Version: version, Data: raw}, nil
}

// Decode unmarshals the payload into v
func (e Event) Decode(v any) error {
	if err := json.Unmarshal(e.Data, v); err != nil {
		return fmt.Errorf("failed to decode %s payload: %w", e.Name, err)
	}
	return nil
}

// MoveError builds the event reported only to the client whose action failed
func MoveError(gameID string, err error, pawnIndex *int) Event {
	ev, _ := NewEvent(EventMoveError, gameID, 0, MoveErrorData{Message: err.Error(), PawnIndex: pawnIndex})
	return ev
}

// PlayerDisconnected builds the event sent when a player's last socket closes
func PlayerDisconnected(gameID, playerID string) Event {
	ev, _ := NewEvent(EventPlayerDisconnected, gameID, 0, PlayerDisconnectedData{PlayerID: playerID})
	return ev
}
