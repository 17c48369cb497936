package resolve

import (
	"math"
	"slices"

	"github.com/nstehr/skirmish/action"
	"github.com/nstehr/skirmish/model"
)

// coneCos is the cosine of a cone's half-angle. A cone is as wide at its
// end as it is long, so the half-angle is atan(1/2).
const coneCos = 0.894

// SelectTargets returns the ids an action affects, in a stable order:
// explicit targets in the order given, area and chain targets in
// initiative order. Invalid explicit targets are dropped; an empty result
// means the action does nothing.
func SelectTargets(s *model.State, actorID string, a *action.Action, in Intent) []string {
	actor, ok := s.Get(actorID)
	if !ok {
		return nil
	}
	sel := selector{s: s, actor: actor, harmful: action.Harmful(a.Effect)}
	switch t := a.Targeting.(type) {
	case *action.Self:
		return []string{actorID}
	case *action.Single:
		return sel.explicit(in.Targets, t.Filter, t.Range, 1)
	case *action.Multi:
		return sel.explicit(in.Targets, t.Filter, t.Range, t.Count)
	case *action.Area:
		return sel.area(t, in)
	case *action.Chain:
		return sel.chain(t, in)
	}
	panic(dataErr(a.ID, "unknown targeting %T", a.Targeting))
}

type selector struct {
	s       *model.State
	actor   model.Combatant
	harmful bool
}

// eligible reports whether c may be affected under filter. Removed
// combatants never are; downed ones only by helpful actions.
func (sel selector) eligible(c model.Combatant, f action.Filter) bool {
	if c.Removed || (sel.harmful && c.HP <= 0) {
		return false
	}
	switch f {
	case action.FilterEnemy:
		return sel.s.Hostile(sel.actor.ID, c.ID)
	case action.FilterAlly:
		return sel.s.Allied(sel.actor.ID, c.ID)
	case action.FilterSelf:
		return c.ID == sel.actor.ID
	case action.FilterAny:
		return true
	}
	return false
}

func (sel selector) inRange(p model.Point, r action.Range) bool {
	return model.DistanceFeet(sel.actor.Pos, p) <= r.Max()
}

func (sel selector) explicit(ids []string, f action.Filter, r action.Range, limit int) []string {
	var out []string
	for _, id := range ids {
		if len(out) == limit {
			break
		}
		c, ok := sel.s.Get(id)
		if !ok || slices.Contains(out, id) {
			continue
		}
		if sel.eligible(c, f) && sel.inRange(c.Pos, r) {
			out = append(out, id)
		}
	}
	return out
}

func (sel selector) area(t *action.Area, in Intent) []string {
	origin, ok := sel.areaOrigin(t, in)
	if !ok {
		return nil
	}
	var aim model.Point
	if t.Shape == action.Cone || t.Shape == action.Line {
		if aim, ok = sel.aimPoint(in); !ok || aim == origin {
			return nil
		}
	}
	n := t.Size / model.FeetPerCell
	var out []string
	for _, c := range sel.s.Combatants() {
		if t.Origin == action.FromSelf && c.ID == sel.actor.ID && !t.IncludeSelf {
			continue
		}
		if !sel.eligible(c, t.Filter) {
			continue
		}
		if insideTemplate(t.Shape, origin, aim, c.Pos, n) {
			out = append(out, c.ID)
		}
	}
	return out
}

func (sel selector) areaOrigin(t *action.Area, in Intent) (model.Point, bool) {
	switch t.Origin {
	case action.FromSelf:
		return sel.actor.Pos, true
	case action.FromPoint:
		if in.Point == nil || !sel.s.Grid().InBounds(*in.Point) || !sel.inRange(*in.Point, t.Range) {
			return model.Point{}, false
		}
		return *in.Point, true
	case action.FromTarget:
		if len(in.Targets) == 0 {
			return model.Point{}, false
		}
		c, ok := sel.s.Get(in.Targets[0])
		if !ok || c.Removed || !sel.inRange(c.Pos, t.Range) {
			return model.Point{}, false
		}
		return c.Pos, true
	}
	return model.Point{}, false
}

// aimPoint is where a cone or line points: the intent's point, or its
// first named combatant.
func (sel selector) aimPoint(in Intent) (model.Point, bool) {
	if in.Point != nil {
		return *in.Point, true
	}
	if len(in.Targets) > 0 {
		if c, ok := sel.s.Get(in.Targets[0]); ok {
			return c.Pos, true
		}
	}
	return model.Point{}, false
}

// insideTemplate reports whether p lies in a template of n squares.
func insideTemplate(shape action.Shape, origin, aim, p model.Point, n int) bool {
	switch shape {
	case action.Sphere:
		return model.Distance(origin, p) <= n
	case action.Cube:
		return model.Distance(origin, p) <= n/2
	case action.Cone:
		d := model.Distance(origin, p)
		if d < 1 || d > n {
			return false
		}
		vx, vy := float64(p.X-origin.X), float64(p.Y-origin.Y)
		ax, ay := float64(aim.X-origin.X), float64(aim.Y-origin.Y)
		return (vx*ax+vy*ay)/(math.Hypot(vx, vy)*math.Hypot(ax, ay)) >= coneCos
	case action.Line:
		ax, ay := float64(aim.X-origin.X), float64(aim.Y-origin.Y)
		l := math.Hypot(ax, ay)
		ux, uy := ax/l, ay/l
		vx, vy := float64(p.X-origin.X), float64(p.Y-origin.Y)
		along := vx*ux + vy*uy
		across := math.Abs(vx*uy - vy*ux)
		return along > 0 && along <= float64(n) && across <= 0.5
	}
	return false
}

func (sel selector) chain(t *action.Chain, in Intent) []string {
	out := sel.explicit(in.Targets, t.Filter, t.Range, 1)
	if len(out) == 0 {
		return nil
	}
	last := sel.s.Position(out[0])
	for range t.Jumps {
		next, best := "", math.MaxInt
		for _, c := range sel.s.Combatants() {
			if slices.Contains(out, c.ID) || !sel.eligible(c, t.Filter) {
				continue
			}
			d := model.DistanceFeet(last, c.Pos)
			if d <= t.JumpRange && d < best {
				next, best = c.ID, d
			}
		}
		if next == "" {
			break
		}
		out = append(out, next)
		last = sel.s.Position(next)
	}
	return out
}
