// Package presence tracks which players are connected to which games.
//
// Presence carries no game-outcome meaning, so it is updated outside the
// session transactions and may briefly disagree with the store.
package presence

import (
	"sort"
	"sync"
	"time"
)

// Entry describes one online player
type Entry struct {
	GameID      string    `json:"game_id"`
	PlayerID    string    `json:"player_id"`
	Connections int       `json:"connections"`
	Since       time.Time `json:"since"`
}

// Registry counts live connections per (game, player)
type Registry struct {
	mu      sync.Mutex
	entries map[string]map[string]*Entry
	now     func() time.Time
}

// NewRegistry creates an empty presence registry
func NewRegistry() *Registry {
	return &Registry{
		entries: make(map[string]map[string]*Entry),
		now:     time.Now,
	}
}

// Connect records a new connection. It reports whether the player just
// came online.
func (r *Registry) Connect(gameID, playerID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	players, ok := r.entries[gameID]
	if !ok {
		players = make(map[string]*Entry)
		r.entries[gameID] = players
	}
	e, ok := players[playerID]
	if !ok {
		e = &Entry{GameID: gameID, PlayerID: playerID, Since: r.now()}
		players[playerID] = e
	}
	e.Connections++
	return e.Connections == 1
}

// Disconnect drops a connection. It reports whether the player's last
// connection to the game is gone.
func (r *Registry) Disconnect(gameID, playerID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	players, ok := r.entries[gameID]
	if !ok {
		return false
	}
	e, ok := players[playerID]
	if !ok {
		return false
	}
	e.Connections--
	if e.Connections > 0 {
		return false
	}
	delete(players, playerID)
	if len(players) == 0 {
		delete(r.entries, gameID)
	}
	return true
}

// IsOnline reports whether a player has at least one connection to a game
func (r *Registry) IsOnline(gameID, playerID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.entries[gameID][playerID]
	return ok
}

// Online lists the players connected to a game, ordered by player id
func (r *Registry) Online(gameID string) []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Entry, 0, len(r.entries[gameID]))
	for _, e := range r.entries[gameID] {
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PlayerID < out[j].PlayerID })
	return out
}

// Forget drops every entry of a game, e.g. after it is deleted
func (r *Registry) Forget(gameID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, gameID)
}
