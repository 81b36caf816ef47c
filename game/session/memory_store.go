package session

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// MemoryStore keeps games in a mutex-guarded map
type MemoryStore struct {
	games map[string]*Game
	mu    sync.RWMutex
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{games: make(map[string]*Game)}
}

// Create inserts a new game
func (s *MemoryStore) Create(ctx context.Context, g *Game) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if g == nil || strings.TrimSpace(g.ID) == "" {
		return ErrInvalidGameID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.games[g.ID]; exists {
		return ErrAlreadyExists
	}
	s.games[g.ID] = g.Clone()
	return nil
}

// Get retrieves a copy of a game
func (s *MemoryStore) Get(ctx context.Context, id string) (*Game, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	g, exists := s.games[id]
	if !exists {
		return nil, ErrNotFound
	}
	return g.Clone(), nil
}

// Update swaps in g when the stored version matches
func (s *MemoryStore) Update(ctx context.Context, g *Game, expectedVersion int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if g == nil {
		return ErrInvalidGameID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, exists := s.games[g.ID]
	if !exists {
		return ErrNotFound
	}
	if current.Version != expectedVersion {
		return ErrVersionConflict
	}
	s.games[g.ID] = g.Clone()
	return nil
}

// Delete removes a game
func (s *MemoryStore) Delete(ctx context.Context, id string, expectedVersion int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, exists := s.games[id]
	if !exists {
		return ErrNotFound
	}
	if expectedVersion != AnyVersion && current.Version != expectedVersion {
		return ErrVersionConflict
	}
	delete(s.games, id)
	return nil
}

// List returns copies of all games, oldest first
func (s *MemoryStore) List(ctx context.Context) ([]*Game, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	result := make([]*Game, 0, len(s.games))
	for _, g := range s.games {
		result = append(result, g.Clone())
	}
	s.mu.RUnlock()

	SortByCreation(result)
	return result, nil
}

// SortByCreation orders games by creation time, then id
func SortByCreation(games []*Game) {
	sort.Slice(games, func(i, j int) bool {
		if games[i].CreatedAt.Equal(games[j].CreatedAt) {
			return games[i].ID < games[j].ID
		}
		return games[i].CreatedAt.Before(games[j].CreatedAt)
	})
}
