package resolve

import (
	"github.com/nstehr/skirmish/action"
	"github.com/nstehr/skirmish/model"
)

// InjectSpellStats returns a with spell attack bonuses and save DCs filled
// in from the caster's stats. Actions without placeholders come back
// unchanged; otherwise a copy is returned and a is left untouched. A spell
// placeholder on an actor that cannot cast is a DataError.
func InjectSpellStats(a *action.Action, stats *model.Stats) (*action.Action, error) {
	if !needsSpellStats(a) {
		return a, nil
	}
	if stats == nil || !stats.Caster {
		return nil, dataErr(a.ID, "spell values requested by an actor without spellcasting")
	}
	out := *a
	out.Check = injectCheck(a.Check, stats)
	out.Effect = injectEffect(a.Effect, stats)
	return &out, nil
}

func needsSpellStats(a *action.Action) bool {
	if placeholder(a.Check) {
		return true
	}
	return !action.WalkEffects(a.Effect, func(e action.Effect) bool {
		ac, ok := e.(*action.ApplyCondition)
		return !ok || ac.Save == nil || !ac.Save.SpellDC
	})
}

func placeholder(c action.Check) bool {
	switch c := c.(type) {
	case *action.AttackRoll:
		return c.SpellBonus
	case *action.SavingThrow:
		return c.SpellDC
	}
	return false
}

func injectCheck(c action.Check, stats *model.Stats) action.Check {
	switch c := c.(type) {
	case *action.AttackRoll:
		if c.SpellBonus {
			cp := *c
			cp.Bonus, cp.SpellBonus = stats.SpellAttack, false
			return &cp
		}
	case *action.SavingThrow:
		if c.SpellDC {
			return injectSave(c, stats)
		}
	}
	return c
}

func injectSave(s *action.SavingThrow, stats *model.Stats) *action.SavingThrow {
	cp := *s
	cp.DC, cp.SpellDC = stats.SpellDC, false
	return &cp
}

// injectEffect rebuilds only the branches of the tree that hold a
// placeholder and shares the rest.
func injectEffect(e action.Effect, stats *model.Stats) action.Effect {
	switch e := e.(type) {
	case *action.ApplyCondition:
		if e.Save != nil && e.Save.SpellDC {
			cp := *e
			cp.Save = injectSave(e.Save, stats)
			return &cp
		}
	case *action.Conditional:
		cp := *e
		cp.Then = injectEffect(e.Then, stats)
		cp.Else = injectEffect(e.Else, stats)
		return &cp
	case *action.All:
		cp := action.All{Effects: make([]action.Effect, len(e.Effects))}
		for i, c := range e.Effects {
			cp.Effects[i] = injectEffect(c, stats)
		}
		return &cp
	}
	return e
}
