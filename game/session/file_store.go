package session

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// FileStore keeps one JSON file per game. A process-wide mutex makes the
// version check and the write a single step.
type FileStore struct {
	gamesDir string
	mu       sync.Mutex
}

// NewFileStore creates a file-backed store, creating gamesDir if needed
func NewFileStore(gamesDir string) (*FileStore, error) {
	if err := os.MkdirAll(gamesDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create games directory: %w", err)
	}

	return &FileStore{gamesDir: gamesDir}, nil
}

// Create writes a new game file
func (fs *FileStore) Create(ctx context.Context, g *Game) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := fs.checkID(g); err != nil {
		return err
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	if fs.exists(g.ID) {
		return ErrAlreadyExists
	}
	return fs.write(g)
}

// Get reads a game file
func (fs *FileStore) Get(ctx context.Context, id string) (*Game, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !validFileID(id) {
		return nil, ErrNotFound
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	return fs.read(id)
}

// Update rewrites a game file when the stored version matches
func (fs *FileStore) Update(ctx context.Context, g *Game, expectedVersion int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := fs.checkID(g); err != nil {
		return err
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	current, err := fs.read(g.ID)
	if err != nil {
		return err
	}
	if current.Version != expectedVersion {
		return ErrVersionConflict
	}
	return fs.write(g)
}

// Delete removes a game file
func (fs *FileStore) Delete(ctx context.Context, id string, expectedVersion int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !validFileID(id) {
		return ErrNotFound
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	current, err := fs.read(id)
	if err != nil {
		return err
	}
	if expectedVersion != AnyVersion && current.Version != expectedVersion {
		return ErrVersionConflict
	}

	if err := os.Remove(fs.getFilePath(id)); err != nil {
		return fmt.Errorf("failed to remove game file: %w", err)
	}
	return nil
}

// List reads every game file in the directory
func (fs *FileStore) List(ctx context.Context) ([]*Game, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	entries, err := os.ReadDir(fs.gamesDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read games directory: %w", err)
	}

	var games []*Game
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		g, err := fs.read(strings.TrimSuffix(entry.Name(), ".json"))
		if err != nil {
			return nil, err
		}
		games = append(games, g)
	}

	SortByCreation(games)
	return games, nil
}

func (fs *FileStore) read(id string) (*Game, error) {
	data, err := os.ReadFile(fs.getFilePath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read game file: %w", err)
	}

	var g Game
	if err := json.Unmarshal(data, &g); err != nil {
		return nil, fmt.Errorf("failed to unmarshal game %s: %w", id, err)
	}
	return &g, nil
}

// write replaces the file atomically so a crash never leaves half a record
func (fs *FileStore) write(g *Game) error {
	data, err := json.MarshalIndent(g, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal game: %w", err)
	}

	tmp, err := os.CreateTemp(fs.gamesDir, g.ID+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write game file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write game file: %w", err)
	}
	if err := os.Rename(tmp.Name(), fs.getFilePath(g.ID)); err != nil {
		return fmt.Errorf("failed to write game file: %w", err)
	}
	return nil
}

func (fs *FileStore) exists(id string) bool {
	_, err := os.Stat(fs.getFilePath(id))
	return err == nil
}

func (fs *FileStore) checkID(g *Game) error {
	if g == nil || !validFileID(g.ID) {
		return ErrInvalidGameID
	}
	return nil
}

// getFilePath returns the full file path for a game ID
func (fs *FileStore) getFilePath(id string) string {
	return filepath.Join(fs.gamesDir, fmt.Sprintf("%s.json", id))
}

// validFileID rejects ids that would escape the games directory
func validFileID(id string) bool {
	id = strings.TrimSpace(id)
	return id != "" && !strings.ContainsAny(id, `/\`) && id != "." && id != ".."
}
