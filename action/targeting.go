package action

import (
	"fmt"
	"slices"
)

// Filter restricts which combatants a targeting may pick.
type Filter string

const (
	FilterEnemy Filter = "enemy"
	FilterAlly  Filter = "ally"
	FilterSelf  Filter = "self"
	FilterAny   Filter = "any"
)

// Range is an action's reach in feet. Beyond Normal and up to Long the
// attack has disadvantage; Long 0 means there is no long range.
type Range struct {
	Normal int
	Long   int
}

// Max returns the furthest distance the action can reach.
func (r Range) Max() int { return max(r.Normal, r.Long, 5) }

// Shape is an area-of-effect template.
type Shape string

const (
	Sphere Shape = "sphere"
	Cube   Shape = "cube"
	Cone   Shape = "cone"
	Line   Shape = "line"
)

// Origin is where an area is anchored.
type Origin string

const (
	FromSelf   Origin = "self"
	FromTarget Origin = "target"
	FromPoint  Origin = "point"
)

// Targeting selects who an action affects.
type Targeting interface {
	isTargeting()
	TargetFilter() Filter
}

// Self affects only the actor.
type Self struct{}

// Single affects one explicitly chosen target.
type Single struct {
	Filter Filter
	Range  Range
}

// Multi affects up to Count explicitly chosen targets.
type Multi struct {
	Filter Filter
	Range  Range
	Count  int
}

// Area affects every matching combatant inside a template. Size is the
// radius of a sphere, the edge of a cube or the length of a cone or line,
// in feet. Range is how far from the actor a target or point origin may be.
type Area struct {
	Filter      Filter
	Shape       Shape
	Size        int
	Origin      Origin
	Range       Range
	IncludeSelf bool
}

// Chain hits a first target, then jumps up to Jumps times to the nearest
// unhit matching combatant within JumpRange feet of the last one.
type Chain struct {
	Filter    Filter
	Range     Range
	Jumps     int
	JumpRange int
}

func (*Self) isTargeting()   {}
func (*Single) isTargeting() {}
func (*Multi) isTargeting()  {}
func (*Area) isTargeting()   {}
func (*Chain) isTargeting()  {}

func (*Self) TargetFilter() Filter     { return FilterSelf }
func (t *Single) TargetFilter() Filter { return t.Filter }
func (t *Multi) TargetFilter() Filter  { return t.Filter }
func (t *Area) TargetFilter() Filter   { return t.Filter }
func (t *Chain) TargetFilter() Filter  { return t.Filter }

// MaxTargets returns how many explicit targets the targeting takes. Self and
// point-anchored areas take none.
func MaxTargets(t Targeting) int {
	switch t := t.(type) {
	case *Self:
		return 0
	case *Single, *Chain:
		return 1
	case *Multi:
		return t.Count
	case *Area:
		if t.Origin == FromTarget {
			return 1
		}
		return 0
	}
	panic(fmt.Sprintf("action: unknown targeting %T", t))
}

// Reach returns the range explicit targets or area origins must lie within.
func Reach(t Targeting) Range {
	switch t := t.(type) {
	case *Self:
		return Range{}
	case *Single:
		return t.Range
	case *Multi:
		return t.Range
	case *Area:
		return t.Range
	case *Chain:
		return t.Range
	}
	panic(fmt.Sprintf("action: unknown targeting %T", t))
}

var filters = []Filter{FilterEnemy, FilterAlly, FilterSelf, FilterAny}

func validateTargeting(t Targeting) error {
	if _, ok := t.(*Self); !ok && !slices.Contains(filters, t.TargetFilter()) {
		return fmt.Errorf("targeting: unknown filter %q", t.TargetFilter())
	}
	switch t := t.(type) {
	case *Self, *Single:
		return nil
	case *Multi:
		if t.Count < 1 {
			return fmt.Errorf("multi targeting: count must be positive")
		}
		return nil
	case *Area:
		if !slices.Contains([]Shape{Sphere, Cube, Cone, Line}, t.Shape) {
			return fmt.Errorf("area targeting: unknown shape %q", t.Shape)
		}
		if !slices.Contains([]Origin{FromSelf, FromTarget, FromPoint}, t.Origin) {
			return fmt.Errorf("area targeting: unknown origin %q", t.Origin)
		}
		if t.Size < 5 {
			return fmt.Errorf("area targeting: size must be at least 5 feet")
		}
		if (t.Shape == Cone || t.Shape == Line) && t.Origin != FromSelf {
			return fmt.Errorf("area targeting: %s must originate from self", t.Shape)
		}
		return nil
	case *Chain:
		if t.Jumps < 0 || t.JumpRange < 5 {
			return fmt.Errorf("chain targeting: invalid jumps or jump range")
		}
		return nil
	default:
		return fmt.Errorf("unknown targeting type %T", t)
	}
}
