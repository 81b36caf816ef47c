package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/wricardo/ludo-arena/game/board"
	"github.com/wricardo/ludo-arena/game/service"
)

var (
	ErrBoardNotFound = errors.New("board not found")
	ErrInvalidBoard  = errors.New("invalid board")
)

// DefaultBoard is the preset used when no board is named
const DefaultBoard = "classic"

type entry struct {
	layout   board.Layout
	topology *board.Topology
}

// Manager handles board preset loading and caching. The built-in classic
// layout is always available; a classic.json in the directory overrides it.
type Manager struct {
	configDir    string
	defaultBoard *board.Topology
	boards       map[string]*entry
	mu           sync.RWMutex
}

// NewManager creates a new board manager. An empty configDir serves the
// built-in presets only.
func NewManager(configDir string) (*Manager, error) {
	if configDir != "" {
		if _, err := os.Stat(configDir); os.IsNotExist(err) {
			return nil, fmt.Errorf("config directory does not exist: %s", configDir)
		}
	}

	m := &Manager{
		configDir: configDir,
		boards:    make(map[string]*entry),
	}

	if err := m.loadDefault(); err != nil {
		return nil, fmt.Errorf("failed to load default board: %w", err)
	}

	return m, nil
}

// Topology returns the board topology for a preset name
func (m *Manager) Topology(name string) (*board.Topology, error) {
	e, err := m.load(name)
	if err != nil {
		return nil, err
	}
	return e.topology, nil
}

// LoadLayout returns the raw layout of a preset
func (m *Manager) LoadLayout(name string) (*board.Layout, error) {
	e, err := m.load(name)
	if err != nil {
		return nil, err
	}
	l := e.layout
	return &l, nil
}

func (m *Manager) load(name string) (*entry, error) {
	name = strings.TrimSuffix(name, ".json")
	if name == "" {
		name = DefaultBoard
	}

	m.mu.RLock()
	if e, exists := m.boards[name]; exists {
		m.mu.RUnlock()
		return e, nil
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()

	// Double-check after acquiring write lock
	if e, exists := m.boards[name]; exists {
		return e, nil
	}

	layout, err := m.readLayout(name)
	if err != nil {
		return nil, err
	}

	topology, err := board.New(*layout)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBoard, err)
	}

	e := &entry{layout: *layout, topology: topology}
	m.boards[name] = e
	return e, nil
}

// readLayout reads name.json from the config dir, falling back to built-ins
func (m *Manager) readLayout(name string) (*board.Layout, error) {
	if m.configDir != "" {
		data, err := os.ReadFile(filepath.Join(m.configDir, name+".json"))
		switch {
		case err == nil:
			var layout board.Layout
			if err := json.Unmarshal(data, &layout); err != nil {
				return nil, fmt.Errorf("%w: failed to parse %s: %v", ErrInvalidBoard, name, err)
			}
			return &layout, nil
		case !os.IsNotExist(err):
			return nil, fmt.Errorf("failed to read board file: %w", err)
		}
	}

	if name == DefaultBoard {
		layout := board.ClassicLayout()
		return &layout, nil
	}
	return nil, ErrBoardNotFound
}

// ListBoards returns information about every loadable preset
func (m *Manager) ListBoards() ([]*service.BoardInfo, error) {
	names := map[string]bool{DefaultBoard: true}

	if m.configDir != "" {
		entries, err := os.ReadDir(m.configDir)
		if err != nil {
			return nil, fmt.Errorf("failed to read config directory: %w", err)
		}
		for _, e := range entries {
			if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
				continue
			}
			names[strings.TrimSuffix(e.Name(), ".json")] = true
		}
	}

	sorted := make([]string, 0, len(names))
	for name := range names {
		sorted = append(sorted, name)
	}
	sort.Strings(sorted)

	var boards []*service.BoardInfo
	for _, name := range sorted {
		e, err := m.load(name)
		if err != nil {
			// Skip invalid presets
			continue
		}
		boards = append(boards, &service.BoardInfo{
			BoardID:          name,
			Name:             e.layout.Name,
			Description:      e.layout.Description,
			MainTrackLength:  e.layout.MainTrackLength,
			HomeColumnLength: e.layout.HomeColumnLength,
		})
	}

	return boards, nil
}

// GetDefault returns the default board topology
func (m *Manager) GetDefault() *board.Topology {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.defaultBoard
}

// SetDefault sets the default board by name
func (m *Manager) SetDefault(name string) error {
	t, err := m.Topology(name)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaultBoard = t
	return nil
}

// RefreshCache drops cached presets so edited files are read again
func (m *Manager) RefreshCache() error {
	m.mu.Lock()
	m.boards = make(map[string]*entry)
	m.mu.Unlock()

	return m.loadDefault()
}

func (m *Manager) loadDefault() error {
	t, err := m.Topology(DefaultBoard)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.defaultBoard = t
	m.mu.Unlock()
	return nil
}

// SaveLayout validates a layout and writes it to the config directory
func (m *Manager) SaveLayout(name string, layout board.Layout) error {
	if m.configDir == "" {
		return fmt.Errorf("no config directory configured")
	}

	topology, err := board.New(layout)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidBoard, err)
	}

	name = strings.TrimSuffix(name, ".json")
	data, err := json.MarshalIndent(layout, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal board: %w", err)
	}

	if err := os.WriteFile(filepath.Join(m.configDir, name+".json"), data, 0644); err != nil {
		return fmt.Errorf("failed to write board file: %w", err)
	}

	m.mu.Lock()
	m.boards[name] = &entry{layout: layout, topology: topology}
	m.mu.Unlock()

	return nil
}
