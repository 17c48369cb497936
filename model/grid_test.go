package model

import "testing"

func TestGridAt(t *testing.T) {
	m := &TerrainMap{
		ID: "crossing",
		Layout: []string{
			"..~~",
			"..~~",
			"#w..",
			"#...",
		},
		Legend: map[string]Cell{
			"w": {MaxSize: SizeSmall},
		},
	}
	grid, err := m.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	tests := []struct {
		p         Point
		blocking  bool
		difficult bool
	}{
		{Point{0, 0}, false, false},
		{Point{2, 0}, false, true},
		{Point{0, 2}, true, false},
		{Point{3, 3}, false, false},
	}
	for _, tc := range tests {
		got := grid.At(tc.p)
		if got.Blocking != tc.blocking || got.Difficult != tc.difficult {
			t.Errorf("At(%v) = %+v, want blocking=%v difficult=%v", tc.p, got, tc.blocking, tc.difficult)
		}
	}
	if grid.At(Point{1, 2}).Admits(SizeMedium) {
		t.Error("narrow cell should not admit a medium creature")
	}
	if !grid.At(Point{1, 2}).Admits(SizeTiny) {
		t.Error("narrow cell should admit a tiny creature")
	}
}

func TestGridAtOutOfBounds(t *testing.T) {
	grid := NewGrid(2, 2)

	// Off-map reads as a wall.
	for _, p := range []Point{{-1, 0}, {0, -1}, {2, 0}, {0, 2}} {
		if !grid.At(p).Blocking {
			t.Errorf("At(%v) should be blocking", p)
		}
	}
}

func TestTerrainMapRejectsRaggedRows(t *testing.T) {
	m := &TerrainMap{ID: "bad", Layout: []string{"...", ".."}}
	if _, err := m.Build(); err == nil {
		t.Fatal("expected error for ragged layout")
	}
	m = &TerrainMap{ID: "bad", Layout: []string{"..?"}}
	if _, err := m.Build(); err == nil {
		t.Fatal("expected error for unknown cell rune")
	}
}

func TestDistance(t *testing.T) {
	tests := []struct {
		a, b Point
		want int
	}{
		{Point{0, 0}, Point{0, 0}, 0},
		{Point{0, 0}, Point{1, 1}, 1},
		{Point{0, 0}, Point{3, 1}, 3},
		{Point{5, 2}, Point{1, 7}, 5},
	}
	for _, tc := range tests {
		if got := Distance(tc.a, tc.b); got != tc.want {
			t.Errorf("Distance(%v, %v) = %d, want %d", tc.a, tc.b, got, tc.want)
		}
	}
	if DistanceFeet(Point{0, 0}, Point{6, 0}) != 30 {
		t.Error("six squares should be 30 feet")
	}
}
