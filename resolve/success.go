package resolve

import (
	"github.com/nstehr/skirmish/action"
	"github.com/nstehr/skirmish/dice"
	"github.com/nstehr/skirmish/model"
)

// Chance splits a check into its outcomes. For attacks Success excludes
// critical hits; for saves Success is the target failing. The three sum
// to one.
type Chance struct {
	Fail    float64
	Success float64
	Crit    float64
}

// Lands is the probability the check goes the actor's way.
func (c Chance) Lands() float64 { return c.Success + c.Crit }

var (
	d20    = dice.Die(20)
	d20Adv = dice.MaxOf(d20, d20)
	d20Dis = dice.MinOf(d20, d20)
)

func d20For(net int) dice.PMF {
	switch net {
	case 1:
		return d20Adv
	case -1:
		return d20Dis
	}
	return d20
}

// Success computes the outcome probabilities of check for one target
// under the gathered modifiers.
func (r *Resolver) Success(s *model.State, actorID, targetID string, a *action.Action, check action.Check, g Gathered) (Chance, error) {
	return r.chance(a, check, s.Stats(actorID), s.Stats(targetID), s.AC(targetID), g)
}

func (r *Resolver) chance(a *action.Action, check action.Check, actor, target *model.Stats, ac int, g Gathered) (Chance, error) {
	switch c := check.(type) {
	case *action.AutoSuccess:
		return Chance{Success: 1}, nil
	case *action.AttackRoll:
		if c.SpellBonus {
			return Chance{}, dataErr(a.ID, "spell attack bonus was not injected")
		}
		bonus, err := r.bonusPMF(a.ID, c.Bonus+g.Bonus, g.BonusDice)
		if err != nil {
			return Chance{}, err
		}
		return attackChance(d20For(g.Net()), bonus, ac+g.AC, c.Crit(), g), nil
	case *action.SavingThrow:
		if c.SpellDC {
			return Chance{}, dataErr(a.ID, "spell save dc was not injected")
		}
		if g.AutoFail {
			return Chance{Success: 1}, nil
		}
		ab, _ := model.ParseAbility(string(c.Ability))
		bonus, err := r.bonusPMF(a.ID, target.Save(ab)+g.Bonus, g.BonusDice)
		if err != nil {
			return Chance{}, err
		}
		saved := dice.Convolve(d20For(g.Net()), bonus).ProbAtLeast(c.DC)
		return Chance{Fail: saved, Success: 1 - saved}, nil
	case *action.Contested:
		switch {
		case g.AutoFail:
			return Chance{Fail: 1}, nil
		case g.OpposedAutoFail:
			return Chance{Success: 1}, nil
		}
		ab, err := r.bonusPMF(a.ID, actor.Check(c.ActorSkill)+g.Bonus, g.BonusDice)
		if err != nil {
			return Chance{}, err
		}
		tb, err := r.bonusPMF(a.ID, target.Check(c.TargetSkill)+g.OpposedBonus, g.OpposedDice)
		if err != nil {
			return Chance{}, err
		}
		actorRoll := dice.Convolve(d20For(g.Net()), ab)
		targetRoll := dice.Convolve(d20For(g.OpposedNet()), tb)
		win := dice.Sub(actorRoll, targetRoll).ProbGreater(0)
		return Chance{Fail: 1 - win, Success: win}, nil
	}
	panic(dataErr(a.ID, "unknown check %T", check))
}

// attackChance walks the natural d20 faces: 1 always misses, faces at or
// above critOn always crit, and everything else hits when the bonus makes
// up the difference to ac.
func attackChance(roll, bonus dice.PMF, ac, critOn int, g Gathered) Chance {
	if g.AutoFail {
		return Chance{Fail: 1}
	}
	var ch Chance
	roll.Outcomes(func(n int, p float64) {
		switch {
		case n == 1:
			ch.Fail += p
		case n >= critOn:
			ch.Crit += p
		default:
			hit := bonus.ProbAtLeast(ac - n)
			ch.Success += p * hit
			ch.Fail += p * (1 - hit)
		}
	})
	if g.AutoCrit {
		ch.Crit += ch.Success
		ch.Success = 0
	}
	return ch
}

// bonusPMF is a flat bonus plus any bonus dice.
func (r *Resolver) bonusPMF(actionID string, flat int, extra []string) (dice.PMF, error) {
	out := dice.Constant(flat)
	for _, src := range extra {
		pd, err := r.dice.get(actionID, src)
		if err != nil {
			return dice.PMF{}, err
		}
		out = dice.Convolve(out, pd.full)
	}
	return out, nil
}
