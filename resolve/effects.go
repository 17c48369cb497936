package resolve

import (
	"fmt"
	"strings"

	"github.com/nstehr/skirmish/action"
	"github.com/nstehr/skirmish/dice"
	"github.com/nstehr/skirmish/model"
	"github.com/nstehr/skirmish/rules"
)

// ResolveEffects walks the effect tree once per outcome of the check and
// combines the branches into a TargetOutcome.
func (r *Resolver) ResolveEffects(s *model.State, actorID, targetID string, a *action.Action, ch Chance, g Gathered) (TargetOutcome, error) {
	return r.resolveEffects(s, actorID, targetID, a, ch, g, nil)
}

// resolveEffects takes ordinary-hit damage from static where it has an
// entry for the effect.
func (r *Resolver) resolveEffects(s *model.State, actorID, targetID string, a *action.Action, ch Chance, g Gathered, static map[*action.Damage]dice.PMF) (TargetOutcome, error) {
	out := TargetOutcome{TargetID: targetID, Chance: ch}
	var weights []float64
	var clamped []dice.PMF
	hp, maxHP := s.HP(targetID), s.MaxHP(targetID)
	for _, bw := range branchesOf(a.Check, ch) {
		w := &walker{
			r:       r,
			s:       s,
			a:       a,
			actorID: actorID,
			target:  targetID,
			g:       g,
			outcome: bw.Outcome,
			env:     rules.NewEnv(s, actorID, targetID).WithAction(a),
			delta:   dice.Constant(0),
			statsOf: s.Stats(targetID),
			static:  static,
		}
		if err := w.walk(a.Effect); err != nil {
			return TargetOutcome{}, err
		}
		b := Branch{Outcome: bw.Outcome, Weight: bw.Weight, Delta: w.delta, Conditions: w.conds, Forced: w.forced}
		out.Branches = append(out.Branches, b)
		weights = append(weights, b.Weight)
		clamped = append(clamped, clampDelta(b.Delta, hp, maxHP))
	}
	out.HP = dice.Mix(weights, clamped)
	out.Expected = out.HP.Mean()
	out.Conditions, out.Forced = aggregate(out.Branches)
	return out, nil
}

// branchesOf lists the outcomes of a check that can happen.
func branchesOf(c action.Check, ch Chance) []Branch {
	var fail, win Outcome
	switch c.(type) {
	case *action.AttackRoll:
		fail, win = Miss, Hit
	case *action.SavingThrow:
		fail, win = Saved, FailedSave
	default:
		fail, win = Failed, Succeeded
	}
	var out []Branch
	for _, b := range []Branch{{Outcome: fail, Weight: ch.Fail}, {Outcome: win, Weight: ch.Success}, {Outcome: Crit, Weight: ch.Crit}} {
		if b.Weight > 0 {
			out = append(out, b)
		}
	}
	return out
}

// clampDelta maps a raw change to the change actually possible from hp.
func clampDelta(d dice.PMF, hp, maxHP int) dice.PMF {
	return d.Map(func(v int) int { return min(max(hp+v, 0), maxHP) - hp })
}

type walker struct {
	r       *Resolver
	s       *model.State
	a       *action.Action
	actorID string
	target  string
	g       Gathered
	outcome Outcome
	env     rules.Env
	statsOf *model.Stats
	static  map[*action.Damage]dice.PMF

	delta      dice.PMF
	conds      []ConditionChange
	forced     []ForcedMove
	bonusTaken bool
}

func (w *walker) walk(e action.Effect) error {
	if e == nil {
		return nil
	}
	lands := w.outcome.Lands()
	switch e := e.(type) {
	case *action.Damage:
		half := false
		if !lands {
			sv, ok := w.a.Check.(*action.SavingThrow)
			if !ok || !sv.Half {
				return nil
			}
			half = true
		}
		if d, ok := w.static[e]; ok && !half && w.ordinary() {
			w.bonusTaken = true
			w.delta = dice.Sub(w.delta, d)
			return nil
		}
		dmg, err := w.damage(e, half)
		if err != nil {
			return err
		}
		w.delta = dice.Sub(w.delta, dmg)
	case *action.Heal:
		if !lands {
			return nil
		}
		pd, err := w.r.dice.get(w.a.ID, e.Dice)
		if err != nil {
			return err
		}
		w.delta = dice.Convolve(w.delta, pd.full.Map(nonNegative))
	case *action.ApplyCondition:
		if !lands || w.immune(e.Condition) {
			return nil
		}
		p := 1.0
		if e.Save != nil {
			g, err := w.r.GatherModifiers(w.s, w.actorID, w.target, w.a, e.Save)
			if err != nil {
				return err
			}
			ch, err := w.r.Success(w.s, w.actorID, w.target, w.a, e.Save, g)
			if err != nil {
				return err
			}
			p = ch.Success
		}
		cc := ConditionChange{Name: e.Condition, Probability: p, Magnitude: e.Magnitude, SourceID: w.actorID}
		if e.Duration > 0 {
			cc.ExpiresRound = w.s.Round() + e.Duration
		}
		w.conds = append(w.conds, cc)
	case *action.RemoveCondition:
		if lands && w.s.HasCondition(w.target, e.Condition) {
			w.conds = append(w.conds, ConditionChange{Name: e.Condition, Remove: true, Probability: 1})
		}
	case *action.ForcedMove:
		if lands && w.target != w.actorID {
			w.forced = append(w.forced, ForcedMove{
				From:        w.s.Position(w.actorID),
				Squares:     e.Distance / model.FeetPerCell,
				Toward:      e.Toward,
				Probability: 1,
			})
		}
	case *action.CreateZone:
		// Zones belong to the whole action; see ZoneActivations.
	case *action.Conditional:
		hold, err := w.r.Rules.Eval(e.When, w.env)
		if err != nil {
			return &DataError{Action: w.a.ID, Err: err}
		}
		if hold {
			return w.walk(e.Then)
		}
		return w.walk(e.Else)
	case *action.All:
		for _, c := range e.Effects {
			if err := w.walk(c); err != nil {
				return err
			}
		}
	default:
		panic(dataErr(w.a.ID, "unknown effect %T", e))
	}
	return nil
}

// damage builds the distribution of one damage effect after criticals,
// modifier bonuses, halving and the target's defences. Modifier bonuses
// ride on the first damage effect only.
func (w *walker) damage(e *action.Damage, half bool) (dice.PMF, error) {
	crit := w.outcome == Crit && w.r.Options.CriticalHits
	roll := func(src string) (dice.PMF, error) {
		pd, err := w.r.dice.get(w.a.ID, src)
		if err != nil {
			return dice.PMF{}, err
		}
		if crit {
			return dice.Convolve(pd.full, pd.extra), nil
		}
		return pd.full, nil
	}
	base, err := roll(e.Dice)
	if err != nil {
		return dice.PMF{}, err
	}
	var typed []dice.PMF
	var types []string
	if !w.bonusTaken {
		w.bonusTaken = true
		base = base.Shift(w.g.DamageBonus)
		for _, dd := range w.g.DamageDice {
			d, err := roll(dd.Dice)
			if err != nil {
				return dice.PMF{}, err
			}
			if dd.Type == "" || strings.EqualFold(dd.Type, e.Type) {
				base = dice.Convolve(base, d)
				continue
			}
			typed = append(typed, d)
			types = append(types, dd.Type)
		}
	}
	total := w.defend(base.Map(nonNegative), e.Type, half)
	for i, d := range typed {
		total = dice.Convolve(total, w.defend(d, types[i], half))
	}
	return total, nil
}

// ordinary reports whether the branch deals damage as a plain hit does.
func (w *walker) ordinary() bool {
	switch w.outcome {
	case Hit, FailedSave, Succeeded:
		return true
	case Crit:
		return !w.r.Options.CriticalHits
	}
	return false
}

// defend applies save halving then resistance, immunity and vulnerability.
func (w *walker) defend(d dice.PMF, damageType string, half bool) dice.PMF {
	if half {
		d = d.Map(func(v int) int { return v / 2 })
	}
	return defendAs(w.statsOf, d, damageType)
}

func defendAs(st *model.Stats, d dice.PMF, damageType string) dice.PMF {
	if st == nil {
		return d
	}
	t := strings.ToLower(damageType)
	switch {
	case st.Immunities[t]:
		return dice.Constant(0)
	case st.Resistances[t] && st.Vulnerabilities[t]:
		return d
	case st.Resistances[t]:
		return d.Map(func(v int) int { return v / 2 })
	case st.Vulnerabilities[t]:
		return d.Map(func(v int) int { return v * 2 })
	}
	return d
}

func (w *walker) immune(condition string) bool {
	st := w.statsOf
	return st != nil && st.ConditionImmunities[strings.ToLower(condition)]
}

func nonNegative(v int) int { return max(v, 0) }

// aggregate folds per-branch changes into unconditional probabilities,
// keeping first-seen order.
func aggregate(branches []Branch) ([]ConditionChange, []ForcedMove) {
	var conds []ConditionChange
	var forced []ForcedMove
	for _, b := range branches {
		for _, c := range b.Conditions {
			i := indexCond(conds, c)
			if i < 0 {
				c.Probability *= b.Weight
				conds = append(conds, c)
				continue
			}
			conds[i].Probability += b.Weight * c.Probability
		}
		for _, f := range b.Forced {
			i := indexForced(forced, f)
			if i < 0 {
				f.Probability *= b.Weight
				forced = append(forced, f)
				continue
			}
			forced[i].Probability += b.Weight * f.Probability
		}
	}
	return conds, forced
}

func indexCond(cs []ConditionChange, c ConditionChange) int {
	for i, x := range cs {
		if strings.EqualFold(x.Name, c.Name) && x.Remove == c.Remove {
			return i
		}
	}
	return -1
}

func indexForced(fs []ForcedMove, f ForcedMove) int {
	for i, x := range fs {
		if x.From == f.From && x.Squares == f.Squares && x.Toward == f.Toward {
			return i
		}
	}
	return -1
}

// ZoneActivations collects the zones an action opens. They are centered
// on the intent's point, else the first target, else the actor.
func ZoneActivations(s *model.State, actorID string, a *action.Action, in Intent, targets []string) []ZoneActivation {
	center := s.Position(actorID)
	switch {
	case in.Point != nil:
		center = *in.Point
	case len(targets) > 0:
		center = s.Position(targets[0])
	}
	var out []ZoneActivation
	action.WalkEffects(a.Effect, func(e action.Effect) bool {
		cz, ok := e.(*action.CreateZone)
		if !ok {
			return true
		}
		z := model.Zone{
			ID:        fmt.Sprintf("%s/%s/%d/%d", a.ID, actorID, s.Round(), len(out)),
			Kind:      cz.Kind,
			Center:    center,
			Radius:    cz.Radius / model.FeetPerCell,
			SourceID:  actorID,
			Affects:   string(cz.Affects),
			Condition: cz.Condition,
			Cover:     cz.Cover,
			ActionID:  cz.ActionID,
		}
		if a.Duration.Rounds > 0 {
			z.ExpiresRound = s.Round() + a.Duration.Rounds
		}
		out = append(out, ZoneActivation{Zone: z, Probability: 1})
		return true
	})
	return out
}
