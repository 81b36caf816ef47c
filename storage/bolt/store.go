// Package bolt provides a BoltDB-backed game store.
package bolt

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"go.etcd.io/bbolt"

	"github.com/wricardo/ludo-arena/game/session"
)

const gameBucket = "games"

// Store provides a BoltDB-backed game store. Each write runs in a single
// read-write transaction, and bbolt allows only one of those at a time, so
// the version check and the put cannot interleave with another writer.
type Store struct {
	db *bbolt.DB
}

// Open opens a BoltDB-backed store at the provided path.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	cleanPath := filepath.Clean(path)
	db, err := bbolt.Open(cleanPath, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open storage db: %w", err)
	}

	store := &Store{db: db}
	if err := store.ensureBuckets(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// Close closes the underlying BoltDB database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Create inserts a new game record.
func (s *Store) Create(ctx context.Context, g *session.Game) error {
	if err := s.check(ctx); err != nil {
		return err
	}
	if g == nil || strings.TrimSpace(g.ID) == "" {
		return session.ErrInvalidGameID
	}

	payload, err := json.Marshal(g)
	if err != nil {
		return fmt.Errorf("marshal game: %w", err)
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket, err := games(tx)
		if err != nil {
			return err
		}
		if bucket.Get(gameKey(g.ID)) != nil {
			return session.ErrAlreadyExists
		}
		return bucket.Put(gameKey(g.ID), payload)
	})
}

// Get fetches a game record by ID.
func (s *Store) Get(ctx context.Context, id string) (*session.Game, error) {
	if err := s.check(ctx); err != nil {
		return nil, err
	}

	var g *session.Game
	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket, err := games(tx)
		if err != nil {
			return err
		}
		g, err = decode(bucket.Get(gameKey(id)))
		return err
	})
	if err != nil {
		return nil, err
	}
	return g, nil
}

// Update replaces a game record if it is still at expectedVersion.
func (s *Store) Update(ctx context.Context, g *session.Game, expectedVersion int64) error {
	if err := s.check(ctx); err != nil {
		return err
	}
	if g == nil || strings.TrimSpace(g.ID) == "" {
		return session.ErrInvalidGameID
	}

	payload, err := json.Marshal(g)
	if err != nil {
		return fmt.Errorf("marshal game: %w", err)
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket, err := games(tx)
		if err != nil {
			return err
		}
		current, err := decode(bucket.Get(gameKey(g.ID)))
		if err != nil {
			return err
		}
		if current.Version != expectedVersion {
			return session.ErrVersionConflict
		}
		return bucket.Put(gameKey(g.ID), payload)
	})
}

// Delete removes a game record if it is still at expectedVersion.
func (s *Store) Delete(ctx context.Context, id string, expectedVersion int64) error {
	if err := s.check(ctx); err != nil {
		return err
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket, err := games(tx)
		if err != nil {
			return err
		}
		current, err := decode(bucket.Get(gameKey(id)))
		if err != nil {
			return err
		}
		if expectedVersion != session.AnyVersion && current.Version != expectedVersion {
			return session.ErrVersionConflict
		}
		return bucket.Delete(gameKey(id))
	})
}

// List returns every game record, oldest first.
func (s *Store) List(ctx context.Context) ([]*session.Game, error) {
	if err := s.check(ctx); err != nil {
		return nil, err
	}

	var result []*session.Game
	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket, err := games(tx)
		if err != nil {
			return err
		}
		return bucket.ForEach(func(_, payload []byte) error {
			g, err := decode(payload)
			if err != nil {
				return err
			}
			result = append(result, g)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	session.SortByCreation(result)
	return result, nil
}

func (s *Store) check(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.db == nil {
		return fmt.Errorf("storage is not configured")
	}
	return nil
}

func (s *Store) ensureBuckets() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(gameBucket))
		if err != nil {
			return fmt.Errorf("create game bucket: %w", err)
		}
		return nil
	})
}

func games(tx *bbolt.Tx) (*bbolt.Bucket, error) {
	bucket := tx.Bucket([]byte(gameBucket))
	if bucket == nil {
		return nil, fmt.Errorf("game bucket is missing")
	}
	return bucket, nil
}

// decode must run inside the transaction that read payload
func decode(payload []byte) (*session.Game, error) {
	if payload == nil {
		return nil, session.ErrNotFound
	}
	var g session.Game
	if err := json.Unmarshal(payload, &g); err != nil {
		return nil, fmt.Errorf("unmarshal game: %w", err)
	}
	return &g, nil
}

func gameKey(id string) []byte {
	return []byte(id)
}
