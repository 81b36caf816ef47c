package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/wricardo/ludo-arena/game/board"
)

func shortLayout() board.Layout {
	return board.Layout{
		Name:             "short",
		Description:      "Test board",
		MainTrackLength:  28,
		HomeColumnLength: 4,
		Lanes: map[board.Color]board.Lane{
			board.Green:  {Start: 1, Entry: 27},
			board.Yellow: {Start: 8, Entry: 6},
			board.Red:    {Start: 15, Entry: 13},
			board.Blue:   {Start: 22, Entry: 20},
		},
	}
}

func writeLayoutFile(t *testing.T, dir, name string, layout any) {
	t.Helper()
	data, err := json.MarshalIndent(layout, "", "  ")
	if err != nil {
		t.Fatalf("Failed to marshal layout: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, name+".json"), data, 0644); err != nil {
		t.Fatalf("Failed to write layout: %v", err)
	}
}

func TestNewManager(t *testing.T) {
	t.Run("missing directory", func(t *testing.T) {
		_, err := NewManager(filepath.Join(t.TempDir(), "nope"))
		if err == nil {
			t.Error("Expected error for missing directory")
		}
	})

	t.Run("built-in only", func(t *testing.T) {
		m, err := NewManager("")
		if err != nil {
			t.Fatalf("NewManager failed: %v", err)
		}
		if m.GetDefault().Name() != "classic" {
			t.Errorf("Expected classic default, got %s", m.GetDefault().Name())
		}
		if m.GetDefault().MainTrackLength() != 52 {
			t.Errorf("Expected 52 cells, got %d", m.GetDefault().MainTrackLength())
		}
	})

	t.Run("empty directory falls back to built-in classic", func(t *testing.T) {
		m, err := NewManager(t.TempDir())
		if err != nil {
			t.Fatalf("NewManager failed: %v", err)
		}
		if m.GetDefault() == nil {
			t.Fatal("Expected a default board")
		}
	})
}

func TestManager_Topology(t *testing.T) {
	dir := t.TempDir()
	writeLayoutFile(t, dir, "short", shortLayout())

	m, err := NewManager(dir)
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}

	topo, err := m.Topology("short")
	if err != nil {
		t.Fatalf("Topology failed: %v", err)
	}
	if topo.MainTrackLength() != 28 || topo.HomeColumnLength(board.Red) != 4 {
		t.Errorf("Unexpected topology %d/%d", topo.MainTrackLength(), topo.HomeColumnLength(board.Red))
	}

	again, _ := m.Topology("short.json")
	if again != topo {
		t.Error("Expected cached topology to be reused")
	}

	if _, err := m.Topology("missing"); !errors.Is(err, ErrBoardNotFound) {
		t.Errorf("Expected ErrBoardNotFound, got %v", err)
	}

	def, err := m.Topology("")
	if err != nil || def.Name() != "classic" {
		t.Errorf("Expected empty name to resolve to classic, got %v / %v", def, err)
	}
}

func TestManager_InvalidPresets(t *testing.T) {
	dir := t.TempDir()

	bad := shortLayout()
	bad.Lanes[board.Red] = board.Lane{Start: 1, Entry: 13}
	writeLayoutFile(t, dir, "dup_start", bad)
	if err := os.WriteFile(filepath.Join(dir, "garbage.json"), []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}

	m, err := NewManager(dir)
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}

	for _, name := range []string{"dup_start", "garbage"} {
		if _, err := m.Topology(name); !errors.Is(err, ErrInvalidBoard) {
			t.Errorf("%s: expected ErrInvalidBoard, got %v", name, err)
		}
	}

	boards, err := m.ListBoards()
	if err != nil {
		t.Fatalf("ListBoards failed: %v", err)
	}
	if len(boards) != 1 || boards[0].BoardID != "classic" {
		t.Errorf("Expected invalid presets to be skipped, got %+v", boards)
	}
}

func TestManager_ClassicOverride(t *testing.T) {
	dir := t.TempDir()
	override := shortLayout()
	override.Name = "classic"
	writeLayoutFile(t, dir, "classic", override)

	m, err := NewManager(dir)
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	if m.GetDefault().MainTrackLength() != 28 {
		t.Errorf("Expected classic.json to override built-in, got %d", m.GetDefault().MainTrackLength())
	}
}

func TestManager_ListBoards(t *testing.T) {
	dir := t.TempDir()
	writeLayoutFile(t, dir, "short", shortLayout())
	os.WriteFile(filepath.Join(dir, "README.md"), []byte("ignored"), 0644)
	os.Mkdir(filepath.Join(dir, "sub.json"), 0755)

	m, _ := NewManager(dir)
	boards, err := m.ListBoards()
	if err != nil {
		t.Fatalf("ListBoards failed: %v", err)
	}
	if len(boards) != 2 {
		t.Fatalf("Expected 2 boards, got %d", len(boards))
	}
	if boards[0].BoardID != "classic" || boards[1].BoardID != "short" {
		t.Errorf("Expected sorted ids, got %s, %s", boards[0].BoardID, boards[1].BoardID)
	}
	if boards[1].MainTrackLength != 28 || boards[1].Description != "Test board" {
		t.Errorf("Unexpected info %+v", boards[1])
	}
}

func TestManager_SetDefaultAndRefresh(t *testing.T) {
	dir := t.TempDir()
	writeLayoutFile(t, dir, "short", shortLayout())
	m, _ := NewManager(dir)

	if err := m.SetDefault("short"); err != nil {
		t.Fatalf("SetDefault failed: %v", err)
	}
	if m.GetDefault().Name() != "short" {
		t.Errorf("Expected short default, got %s", m.GetDefault().Name())
	}
	if err := m.SetDefault("missing"); err == nil {
		t.Error("Expected error for missing default")
	}

	edited := shortLayout()
	edited.MainTrackLength = 32
	edited.Lanes[board.Green] = board.Lane{Start: 1, Entry: 31}
	writeLayoutFile(t, dir, "short", edited)

	cached, _ := m.Topology("short")
	if cached.MainTrackLength() != 28 {
		t.Errorf("Expected cached layout before refresh")
	}
	if err := m.RefreshCache(); err != nil {
		t.Fatalf("RefreshCache failed: %v", err)
	}
	fresh, _ := m.Topology("short")
	if fresh.MainTrackLength() != 32 {
		t.Errorf("Expected reloaded layout, got %d", fresh.MainTrackLength())
	}
}

func TestManager_SaveLayout(t *testing.T) {
	dir := t.TempDir()
	m, _ := NewManager(dir)

	if err := m.SaveLayout("short", shortLayout()); err != nil {
		t.Fatalf("SaveLayout failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "short.json")); err != nil {
		t.Errorf("Expected file on disk: %v", err)
	}
	layout, err := m.LoadLayout("short")
	if err != nil || layout.Description != "Test board" {
		t.Errorf("Expected saved layout to load, got %+v / %v", layout, err)
	}

	bad := shortLayout()
	bad.MainTrackLength = 3
	if err := m.SaveLayout("bad", bad); !errors.Is(err, ErrInvalidBoard) {
		t.Errorf("Expected ErrInvalidBoard, got %v", err)
	}

	noDir, _ := NewManager("")
	if err := noDir.SaveLayout("short", shortLayout()); err == nil {
		t.Error("Expected error without a config directory")
	}
}

func TestManager_ConcurrentAccess(t *testing.T) {
	dir := t.TempDir()
	writeLayoutFile(t, dir, "short", shortLayout())
	m, _ := NewManager(dir)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			name := "classic"
			if i%2 == 0 {
				name = "short"
			}
			if _, err := m.Topology(name); err != nil {
				t.Errorf("Topology(%s) failed: %v", name, err)
			}
			m.ListBoards()
		}(i)
	}
	wg.Wait()
}

func TestRepositoryPresets(t *testing.T) {
	results, err := ValidateDir(filepath.Join("..", "..", "configs"))
	if err != nil {
		t.Fatalf("ValidateDir failed: %v", err)
	}
	if len(results) == 0 {
		t.Fatal("Expected shipped presets")
	}
	for _, r := range results {
		if !r.Valid {
			t.Errorf("%s is invalid: %v", r.File, r.Messages)
		}
	}
}
