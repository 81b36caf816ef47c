// Package config provides board preset management for Ludo Arena.
//
// The config package handles:
//   - Loading board layouts from JSON files
//   - Freezing layouts into immutable board topologies
//   - Default board management
//   - Preset discovery, listing and file validation
//
// Preset Format:
//
// Board presets are stored as JSON files in the configs directory. Each
// preset defines the main track length, the default home column length and
// one lane per color:
//
//	{
//	  "name": "classic",
//	  "main_track_length": 52,
//	  "home_column_length": 6,
//	  "lanes": {"green": {"start": 1, "entry": 51}, ...}
//	}
//
// The classic preset is built in, so a manager without a directory still
// serves it. A classic.json file in the directory replaces the built-in one.
//
// Usage:
//
//	manager, err := config.NewManager("configs")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	// Load specific board
//	topology, err := manager.Topology("short")
//
//	// Get default board
//	classic := manager.GetDefault()
//
//	// List available boards
//	boards, err := manager.ListBoards()
//
// Validation:
//
// ValidateFile and ValidateDir back the "boards validate" command. They
// reject unknown fields, missing lanes, shared start or entry cells and
// out-of-range lengths.
package config
