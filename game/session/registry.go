package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/wricardo/ludo-arena/game/engine"
	"github.com/wricardo/ludo-arena/game/gameerr"
)

// Registry handles game lifecycle on top of a Store: creation with
// generated ids, lookup, explicit deletion and cleanup of finished games.
// Game ids are case-insensitive.
type Registry struct {
	store Store
	now   func() time.Time
	log   logrus.FieldLogger
}

// NewRegistry creates a new game registry
func NewRegistry(store Store, log logrus.FieldLogger) *Registry {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Registry{store: store, now: time.Now, log: log}
}

// Create creates a waiting game on boardName. An empty id gets a generated one.
func (r *Registry) Create(ctx context.Context, id, boardName string) (*Game, error) {
	if id == "" {
		id = GenerateGameID()
	}
	id = NormalizeID(id)
	if !validFileID(id) {
		return nil, gameerr.Validation("invalid game id %q", id)
	}

	g := NewGame(id, boardName, r.now())
	if err := r.store.Create(ctx, g); err != nil {
		if errors.Is(err, ErrAlreadyExists) {
			return nil, gameerr.Conflict(fmt.Sprintf("game %s already exists", id), err)
		}
		return nil, fmt.Errorf("failed to create game: %w", err)
	}

	r.log.WithFields(logrus.Fields{"game_id": id, "board": boardName}).Info("Game created")
	return g, nil
}

// Get retrieves a game by id
func (r *Registry) Get(ctx context.Context, id string) (*Game, error) {
	g, err := r.store.Get(ctx, NormalizeID(id))
	if err != nil {
		return nil, translate(err, id)
	}
	return g, nil
}

// List returns all games
func (r *Registry) List(ctx context.Context) ([]*Game, error) {
	games, err := r.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list games: %w", err)
	}
	return games, nil
}

// Delete removes a game that is finished, or still waiting with nobody
// seated. The store delete is pinned to the version that was checked.
func (r *Registry) Delete(ctx context.Context, id string) error {
	id = NormalizeID(id)
	g, err := r.store.Get(ctx, id)
	if err != nil {
		return translate(err, id)
	}
	if !g.Deletable() {
		return gameerr.State("game %s is %s; only finished or empty games can be deleted", id, g.Status()).
			WithMetadata("status", string(g.Status())).
			WithMetadata("players", strconv.Itoa(len(g.State.Players)))
	}

	if err := r.store.Delete(ctx, id, g.Version); err != nil {
		if errors.Is(err, ErrVersionConflict) {
			return gameerr.Conflict(fmt.Sprintf("game %s changed while deleting", id), err)
		}
		return translate(err, id)
	}
	r.log.WithField("game_id", id).Info("Game deleted")
	return nil
}

// CleanupFinished removes finished games that ended more than maxAge ago.
// Games that changed since they were listed are left alone.
func (r *Registry) CleanupFinished(ctx context.Context, maxAge time.Duration) (int, error) {
	games, err := r.listByStatus(ctx, engine.StatusFinished)
	if err != nil {
		return 0, fmt.Errorf("failed to list games: %w", err)
	}

	cutoff := r.now().Add(-maxAge)
	removed := 0

	for _, g := range games {
		if g.Status() != engine.StatusFinished {
			continue
		}
		finished := g.UpdatedAt
		if g.FinishedAt != nil {
			finished = *g.FinishedAt
		}
		if !finished.Before(cutoff) {
			continue
		}

		err := r.store.Delete(ctx, g.ID, g.Version)
		switch {
		case err == nil:
			removed++
		case errors.Is(err, ErrNotFound), errors.Is(err, ErrVersionConflict):
			// someone else got there first
		default:
			return removed, fmt.Errorf("failed to delete game %s: %w", g.ID, err)
		}
	}

	if removed > 0 {
		r.log.Infof("Cleaned up %d finished games", removed)
	}
	return removed, nil
}

// listByStatus lets the store filter when it can
func (r *Registry) listByStatus(ctx context.Context, status engine.Status) ([]*Game, error) {
	if l, ok := r.store.(StatusLister); ok {
		return l.ListByStatus(ctx, status)
	}
	games, err := r.store.List(ctx)
	if err != nil {
		return nil, err
	}
	var out []*Game
	for _, g := range games {
		if g.Status() == status {
			out = append(out, g)
		}
	}
	return out, nil
}

// Count returns the number of stored games
func (r *Registry) Count(ctx context.Context) (int, error) {
	games, err := r.store.List(ctx)
	if err != nil {
		return 0, err
	}
	return len(games), nil
}

// GenerateGameID returns a short random game id
func GenerateGameID() string {
	return strings.SplitN(uuid.NewString(), "-", 2)[0]
}

// NormalizeID maps an id onto its stored form
func NormalizeID(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}
