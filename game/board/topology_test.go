package board

import (
	"strings"
	"testing"
)

func TestClassicTopology(t *testing.T) {
	topo := Classic()

	if topo.MainTrackLength() != 52 {
		t.Errorf("Expected 52 track cells, got %d", topo.MainTrackLength())
	}
	if topo.EntryIndex(Red) != 25 {
		t.Errorf("Expected red entry 25, got %d", topo.EntryIndex(Red))
	}

	for _, color := range JoinOrder {
		if topo.HomeColumnLength(color) != 6 {
			t.Errorf("Expected home column length 6 for %s, got %d", color, topo.HomeColumnLength(color))
		}
		entry := topo.EntryIndex(color)
		start := topo.StartIndex(color)
		if (start-entry+52)%52 != 2 {
			t.Errorf("Expected %s entry two cells behind start, got start=%d entry=%d", color, start, entry)
		}
	}
}

func TestIsSafeCell(t *testing.T) {
	topo := Classic()

	for _, color := range JoinOrder {
		if !topo.IsSafeCell(MainTrack(topo.StartIndex(color))) {
			t.Errorf("Start cell of %s should be safe", color)
		}
		if !topo.IsSafeCell(MainTrack(topo.EntryIndex(color))) {
			t.Errorf("Entry cell of %s should be safe", color)
		}
		for i := 0; i < topo.HomeColumnLength(color)-1; i++ {
			if !topo.IsSafeCell(HomeColumn(color, i)) {
				t.Errorf("Home column cell %d of %s should be safe", i, color)
			}
		}
	}

	unsafe := []Cell{MainTrack(0), MainTrack(13), MainTrack(30), Home(), Finish()}
	for _, cell := range unsafe {
		if topo.IsSafeCell(cell) {
			t.Errorf("Cell %v should not be safe", cell)
		}
	}
}

func TestValidateLayout(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(l *Layout)
		wantErr string
	}{
		{"classic is valid", func(l *Layout) {}, ""},
		{"missing name", func(l *Layout) { l.Name = " " }, "name is required"},
		{"short track", func(l *Layout) { l.MainTrackLength = 4 }, "main_track_length"},
		{"missing lane", func(l *Layout) { delete(l.Lanes, Yellow) }, "missing lane for yellow"},
		{"start off track", func(l *Layout) { l.Lanes[Red] = Lane{Start: 60, Entry: 25} }, "off the track"},
		{"shared start", func(l *Layout) { l.Lanes[Red] = Lane{Start: 1, Entry: 25} }, "share start"},
		{"start equals entry", func(l *Layout) { l.Lanes[Red] = Lane{Start: 25, Entry: 25} }, "must differ"},
		{"home column too short", func(l *Layout) { l.HomeColumnLength = 1 }, "home column length"},
		{"lane override too long", func(l *Layout) { l.Lanes[Blue] = Lane{Start: 40, Entry: 38, HomeColumnLength: 40} }, "home column length"},
		{"unknown color", func(l *Layout) { l.Lanes["purple"] = Lane{Start: 5, Entry: 3} }, "unknown color"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			layout := ClassicLayout()
			tt.mutate(&layout)
			err := ValidateLayout(layout)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Expected no error, got %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestNew_LaneOverride(t *testing.T) {
	layout := ClassicLayout()
	layout.Lanes[Blue] = Lane{Start: 40, Entry: 38, HomeColumnLength: 4}

	topo, err := New(layout)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if topo.HomeColumnLength(Blue) != 4 {
		t.Errorf("Expected blue override 4, got %d", topo.HomeColumnLength(Blue))
	}
	if topo.HomeColumnLength(Green) != 6 {
		t.Errorf("Expected green default 6, got %d", topo.HomeColumnLength(Green))
	}
	if topo.Name() != "classic" {
		t.Errorf("Expected name classic, got %s", topo.Name())
	}
}
