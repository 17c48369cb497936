package resolve

import (
	"github.com/nstehr/skirmish/action"
	"github.com/nstehr/skirmish/dice"
	"github.com/nstehr/skirmish/model"
)

// Static is the part of a resolution that depends only on the two
// archetypes: the unmodified chance against the target archetype's armor
// class and the damage of every unconditional damage effect on an
// ordinary hit.
type Static struct {
	AC     int
	Chance Chance
	Damage map[*action.Damage]dice.PMF
}

// StaticFor computes Static for p against a target with base armor ac.
func (r *Resolver) StaticFor(p *Prepared, actor *model.Stats, ac int, target *model.Stats) (*Static, error) {
	ch, err := r.chance(p.Action, p.Action.Check, actor, target, ac, Gathered{})
	if err != nil {
		return nil, err
	}
	st := &Static{AC: ac, Chance: ch, Damage: make(map[*action.Damage]dice.PMF)}
	w := &walker{r: r, a: p.Action, outcome: Hit, delta: dice.Constant(0), statsOf: target}
	var visit func(e action.Effect) error
	visit = func(e action.Effect) error {
		switch e := e.(type) {
		case *action.Damage:
			d, err := w.damage(e, false)
			if err != nil {
				return err
			}
			st.Damage[e] = d
		case *action.All:
			for _, c := range e.Effects {
				if err := visit(c); err != nil {
					return err
				}
			}
		}
		return nil
	}
	if err := visit(p.Action.Effect); err != nil {
		return nil, err
	}
	return st, nil
}

// Plain reports whether nothing situational touched the check or its
// damage, so the static figures apply unchanged.
func (g Gathered) Plain() bool {
	return !g.Advantage && !g.Disadvantage && g.Bonus == 0 && len(g.BonusDice) == 0 && !g.AutoFail &&
		!g.OpposedAdvantage && !g.OpposedDisadvantage && g.OpposedBonus == 0 && len(g.OpposedDice) == 0 && !g.OpposedAutoFail &&
		g.AC == 0 && !g.AutoCrit && g.DamageBonus == 0 && len(g.DamageDice) == 0
}

// ResolveWith is ResolveTarget reusing st when the gathered modifiers are
// plain and the target still has st's armor class. A nil st always runs
// the full stages.
func (r *Resolver) ResolveWith(s *model.State, actorID string, p *Prepared, targetID string, st *Static) (TargetOutcome, bool, error) {
	g, err := r.GatherModifiers(s, actorID, targetID, p.Action, p.Action.Check)
	if err != nil {
		return TargetOutcome{}, false, err
	}
	if st != nil && g.Plain() && s.AC(targetID) == st.AC {
		out, err := r.resolveEffects(s, actorID, targetID, p.Action, st.Chance, g, st.Damage)
		return out, true, err
	}
	ch, err := r.Success(s, actorID, targetID, p.Action, p.Action.Check, g)
	if err != nil {
		return TargetOutcome{}, false, err
	}
	out, err := r.ResolveEffects(s, actorID, targetID, p.Action, ch, g)
	return out, false, err
}
