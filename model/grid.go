package model

import "fmt"

// Trigger names when a terrain effect fires.
type Trigger string

const (
	OnEnter     Trigger = "on-enter"
	OnLeave     Trigger = "on-leave"
	OnStartTurn Trigger = "on-start-turn"
	OnEndTurn   Trigger = "on-end-turn"
)

// TerrainEffect is something a cell does to a creature. Kind is one of
// "damage", "condition" or "teleport".
type TerrainEffect struct {
	Trigger    Trigger `json:"trigger" yaml:"trigger"`
	Kind       string  `json:"kind" yaml:"kind"`
	Dice       string  `json:"dice,omitempty" yaml:"dice"`
	DamageType string  `json:"damageType,omitempty" yaml:"damage_type"`
	Condition  string  `json:"condition,omitempty" yaml:"condition"`
	Duration   int     `json:"duration,omitempty" yaml:"duration"`
	Teleport   *Point  `json:"teleport,omitempty" yaml:"teleport"`
}

// Cell is one grid square. MaxSize 0 admits any size.
type Cell struct {
	Difficult bool            `json:"difficult,omitempty" yaml:"difficult"`
	Blocking  bool            `json:"blocksMovement,omitempty" yaml:"blocks_movement"`
	MaxSize   Size            `json:"maxSize,omitempty" yaml:"max_size"`
	Effects   []TerrainEffect `json:"effects,omitempty" yaml:"effects"`
}

// Admits reports whether a creature of size s may occupy the cell.
func (c Cell) Admits(s Size) bool {
	return !c.Blocking && (c.MaxSize == 0 || s <= c.MaxSize)
}

// Grid is the battle map. Cells are row-major: Cells[row*Cols + col].
type Grid struct {
	Cols  int    `json:"cols"`
	Rows  int    `json:"rows"`
	Cells []Cell `json:"cells"`
}

// NewGrid returns an open grid of the given dimensions.
func NewGrid(cols, rows int) *Grid {
	return &Grid{Cols: cols, Rows: rows, Cells: make([]Cell, cols*rows)}
}

// InBounds reports whether p lies on the map.
func (g *Grid) InBounds(p Point) bool {
	return p.X >= 0 && p.X < g.Cols && p.Y >= 0 && p.Y < g.Rows
}

// At returns the cell at p. Out-of-bounds coordinates read as a blocking
// wall so callers never step off the map.
func (g *Grid) At(p Point) Cell {
	if !g.InBounds(p) {
		return Cell{Blocking: true}
	}
	return g.Cells[p.Y*g.Cols+p.X]
}

// Set replaces the cell at p.
func (g *Grid) Set(p Point, c Cell) {
	if !g.InBounds(p) {
		panic(fmt.Sprintf("grid: set %v outside %dx%d", p, g.Cols, g.Rows))
	}
	g.Cells[p.Y*g.Cols+p.X] = c
}

// Index converts p to its row-major index.
func (g *Grid) Index(p Point) int { return p.Y*g.Cols + p.X }

// PointAt is the inverse of Index.
func (g *Grid) PointAt(i int) Point { return Point{X: i % g.Cols, Y: i / g.Cols} }

// HasEffects reports whether any cell carries a terrain effect.
func (g *Grid) HasEffects() bool {
	for _, c := range g.Cells {
		if len(c.Effects) > 0 {
			return true
		}
	}
	return false
}

// TerrainMap is an authored map: one string per row with one rune per
// cell, looked up in Legend. '.', '#' and '~' default to open, blocking
// and difficult.
type TerrainMap struct {
	ID     string          `json:"id" yaml:"id"`
	Name   string          `json:"name" yaml:"name"`
	Layout []string        `json:"layout" yaml:"layout"`
	Legend map[string]Cell `json:"legend,omitempty" yaml:"legend"`
}

var defaultLegend = map[rune]Cell{
	'.': {},
	'#': {Blocking: true},
	'~': {Difficult: true},
}

// Build converts the layout into a Grid.
func (m *TerrainMap) Build() (*Grid, error) {
	if len(m.Layout) == 0 {
		return nil, fmt.Errorf("terrain %s: empty layout", m.ID)
	}
	cols := len([]rune(m.Layout[0]))
	g := NewGrid(cols, len(m.Layout))
	for y, row := range m.Layout {
		runes := []rune(row)
		if len(runes) != cols {
			return nil, fmt.Errorf("terrain %s: row %d has %d cells, want %d", m.ID, y, len(runes), cols)
		}
		for x, r := range runes {
			c, ok := m.Legend[string(r)]
			if !ok {
				c, ok = defaultLegend[r]
			}
			if !ok {
				return nil, fmt.Errorf("terrain %s: unknown cell %q at (%d,%d)", m.ID, r, x, y)
			}
			g.Set(Point{X: x, Y: y}, c)
		}
	}
	return g, nil
}
