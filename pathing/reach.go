// Package pathing computes where a combatant can move on the battle grid
// and which terrain effects a move or turn boundary would trigger.
package pathing

import (
	"container/heap"
	"slices"

	"github.com/nstehr/skirmish/model"
)

// Occupancy maps occupied cells to whether the occupant is hostile to the
// mover. Hostile cells cannot be entered; allied cells can be crossed but
// not ended on.
type Occupancy map[model.Point]bool

// OccupancyFor builds the occupancy seen by moverID: every other living
// combatant, flagged hostile or not.
func OccupancyFor(s *model.State, moverID string) Occupancy {
	occ := make(Occupancy, s.Len())
	for _, c := range s.Combatants() {
		if c.ID == moverID || !c.Alive() {
			continue
		}
		occ[c.Pos] = s.Hostile(moverID, c.ID)
	}
	return occ
}

// Reach is the result of a reachability search from one start cell.
type Reach struct {
	grid  *model.Grid
	start model.Point
	occ   Occupancy
	cost  []int // -1 when unreachable
	prev  []int
}

// Reachable expands from start with at most budget squares of movement.
// Moving to any of the eight neighbours costs 1, or 2 when entering
// difficult terrain. Blocking cells, cells too small for size and cells
// held by hostiles are never entered.
func Reachable(grid *model.Grid, start model.Point, budget int, size model.Size, occ Occupancy) *Reach {
	n := grid.Cols * grid.Rows
	r := &Reach{
		grid:  grid,
		start: start,
		occ:   occ,
		cost:  make([]int, n),
		prev:  make([]int, n),
	}
	for i := range r.cost {
		r.cost[i] = -1
		r.prev[i] = -1
	}
	if !grid.InBounds(start) {
		return r
	}

	open := &openSet{}
	heap.Init(open)
	seq := 0
	startIdx := grid.Index(start)
	r.cost[startIdx] = 0
	heap.Push(open, &openItem{pos: start, g: 0, seq: seq})

	done := make([]bool, n)
	for open.Len() > 0 {
		current := heap.Pop(open).(*openItem)
		curIdx := grid.Index(current.pos)
		if done[curIdx] {
			continue
		}
		done[curIdx] = true

		for _, nb := range model.Neighbours(current.pos) {
			if !grid.InBounds(nb) {
				continue
			}
			cell := grid.At(nb)
			if !cell.Admits(size) {
				continue
			}
			if hostile, ok := occ[nb]; ok && hostile {
				continue
			}
			step := 1
			if cell.Difficult {
				step = 2
			}
			g := current.g + step
			if g > budget {
				continue
			}
			idx := grid.Index(nb)
			if r.cost[idx] == -1 || g < r.cost[idx] {
				r.cost[idx] = g
				r.prev[idx] = curIdx
				seq++
				heap.Push(open, &openItem{pos: nb, g: g, seq: seq})
			}
		}
	}
	return r
}

// Start returns the cell the search began from.
func (r *Reach) Start() model.Point { return r.start }

// Cost returns the cheapest movement cost to p.
func (r *Reach) Cost(p model.Point) (int, bool) {
	if !r.grid.InBounds(p) {
		return 0, false
	}
	c := r.cost[r.grid.Index(p)]
	return c, c >= 0
}

// Cells returns every reachable cell ordered by cost, then row, then
// column. The start cell comes first.
func (r *Reach) Cells() []model.Point {
	var out []model.Point
	for i, c := range r.cost {
		if c >= 0 {
			out = append(out, r.grid.PointAt(i))
		}
	}
	slices.SortStableFunc(out, func(a, b model.Point) int {
		ca, _ := r.Cost(a)
		cb, _ := r.Cost(b)
		return ca - cb
	})
	return out
}

// Destinations returns the reachable cells a mover may end its movement
// on: Cells without those held by allies.
func (r *Reach) Destinations() []model.Point {
	cells := r.Cells()
	return slices.DeleteFunc(cells, func(p model.Point) bool {
		_, held := r.occ[p]
		return held && p != r.start
	})
}

// PathTo returns the cheapest path from the start to p, both included, or
// nil if p is unreachable.
func (r *Reach) PathTo(p model.Point) []model.Point {
	if _, ok := r.Cost(p); !ok {
		return nil
	}
	startIdx := r.grid.Index(r.start)
	path := make([]model.Point, 0, 8)
	for cur := r.grid.Index(p); cur != -1; cur = r.prev[cur] {
		path = append(path, r.grid.PointAt(cur))
		if cur == startIdx {
			break
		}
	}
	slices.Reverse(path)
	return path
}

// openItem orders by accumulated cost, then by insertion so equal-cost
// expansions happen in a fixed order.
type openItem struct {
	pos   model.Point
	g     int
	seq   int
	index int
}

type openSet []*openItem

func (o openSet) Len() int { return len(o) }
func (o openSet) Less(i, j int) bool {
	if o[i].g != o[j].g {
		return o[i].g < o[j].g
	}
	return o[i].seq < o[j].seq
}
func (o openSet) Swap(i, j int) {
	o[i], o[j] = o[j], o[i]
	o[i].index = i
	o[j].index = j
}
func (o *openSet) Push(x any) {
	item := x.(*openItem)
	item.index = len(*o)
	*o = append(*o, item)
}
func (o *openSet) Pop() any {
	old := *o
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*o = old[:n-1]
	return item
}
