package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/wricardo/ludo-arena/game/board"
)

// ValidationResult captures the outcome of validating a single file.
// If Valid is true, Messages contains informational lines; otherwise it
// accumulates the problems that were found.
type ValidationResult struct {
	File     string
	Valid    bool
	Messages []string
}

// ValidateFile loads a preset file and checks it can be frozen into a
// topology. It also reports the safe cells for a visual check.
func ValidateFile(path string) ValidationResult {
	result := ValidationResult{
		File:     filepath.Base(path),
		Valid:    true,
		Messages: []string{},
	}

	data, err := os.ReadFile(path)
	if err != nil {
		result.Valid = false
		result.Messages = append(result.Messages, fmt.Sprintf("Failed to read file: %v", err))
		return result
	}

	var layout board.Layout
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&layout); err != nil {
		result.Valid = false
		result.Messages = append(result.Messages, fmt.Sprintf("Invalid JSON: %v", err))
		return result
	}

	topology, err := board.New(layout)
	if err != nil {
		result.Valid = false
		result.Messages = append(result.Messages, err.Error())
		return result
	}

	var safe []int
	for i := 0; i < topology.MainTrackLength(); i++ {
		if topology.IsSafeCell(board.MainTrack(i)) {
			safe = append(safe, i)
		}
	}
	sort.Ints(safe)
	result.Messages = append(result.Messages,
		fmt.Sprintf("%s: %d main cells, safe cells %v", layout.Name, topology.MainTrackLength(), safe))
	for _, c := range board.JoinOrder {
		result.Messages = append(result.Messages,
			fmt.Sprintf("%s: start %d, entry %d, home column %d",
				c, topology.StartIndex(c), topology.EntryIndex(c), topology.HomeColumnLength(c)))
	}
	return result
}

// ValidateDir validates every .json preset in dir
func ValidateDir(dir string) ([]ValidationResult, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("failed to list presets: %w", err)
	}
	sort.Strings(files)

	results := make([]ValidationResult, 0, len(files))
	for _, f := range files {
		results = append(results, ValidateFile(f))
	}
	return results, nil
}
