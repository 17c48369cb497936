package resolve

import (
	"slices"

	"github.com/nstehr/skirmish/action"
	"github.com/nstehr/skirmish/model"
	"github.com/nstehr/skirmish/rules"
)

// Gathered is the net effect of every modifier on one check against one
// target. The primary roll is the roll that decides the check: the actor's
// attack or contest roll, or the target's saving throw. The opposed roll is
// the target's side of a contest.
type Gathered struct {
	Advantage    bool
	Disadvantage bool
	Bonus        int
	BonusDice    []string
	AutoFail     bool

	OpposedAdvantage    bool
	OpposedDisadvantage bool
	OpposedBonus        int
	OpposedDice         []string
	OpposedAutoFail     bool

	AC       int // added to the target's armor class
	AutoCrit bool

	DamageBonus int
	DamageDice  []DamageDie

	// Sources names what contributed, in gathering order.
	Sources []string
}

// DamageDie is extra damage from a modifier. An empty Type takes the type
// of the damage it is added to.
type DamageDie struct {
	Dice string
	Type string
}

// Net returns +1 for advantage, -1 for disadvantage and 0 when neither or
// both apply.
func (g Gathered) Net() int { return net(g.Advantage, g.Disadvantage) }

// OpposedNet is Net for the opposed roll.
func (g Gathered) OpposedNet() int { return net(g.OpposedAdvantage, g.OpposedDisadvantage) }

func net(adv, dis bool) int {
	switch {
	case adv && !dis:
		return 1
	case dis && !adv:
		return -1
	}
	return 0
}

// scope says whose modifiers are being applied and to which rolls.
type scope int

const (
	scopeActor   scope = iota // the actor's modifiers on its own rolls
	scopeTarget               // the target's modifiers on its own rolls
	scopeAgainst              // the target's modifiers on rolls made against it
	scopeAction               // modifiers carried by the action itself
)

// gatherer walks modifiers for one (actor, target, check) triple.
type gatherer struct {
	r     *Resolver
	a     *action.Action
	check action.Check
	env   rules.Env
	dist  int
	g     Gathered

	actorRoll  action.Roll // roll made by the actor, if any
	targetRoll action.Roll // roll made by the target, if any
	saveAb     model.Ability
}

// GatherModifiers collects modifiers in a fixed order: actor conditions
// and traits, target conditions and traits, the action's own modifiers,
// zones, then situational ones such as long range. check is usually
// a.Check; effects pass a secondary saving throw instead.
func (r *Resolver) GatherModifiers(s *model.State, actorID, targetID string, a *action.Action, check action.Check) (Gathered, error) {
	actor, ok := s.Get(actorID)
	if !ok {
		return Gathered{}, dataErr(a.ID, "unknown actor %s", actorID)
	}
	tgt, ok := s.Get(targetID)
	if !ok {
		return Gathered{}, dataErr(a.ID, "unknown target %s", targetID)
	}
	gt := &gatherer{
		r:     r,
		a:     a,
		check: check,
		env:   rules.NewEnv(s, actorID, targetID).WithAction(a),
		dist:  model.DistanceFeet(actor.Pos, tgt.Pos),
	}
	switch c := check.(type) {
	case *action.AttackRoll:
		gt.actorRoll = action.RollAttack
	case *action.SavingThrow:
		gt.targetRoll = action.RollSave
		gt.saveAb, _ = model.ParseAbility(string(c.Ability))
	case *action.Contested:
		gt.actorRoll, gt.targetRoll = action.RollCheck, action.RollCheck
	case *action.AutoSuccess:
	default:
		panic(dataErr(a.ID, "unknown check %T", check))
	}

	steps := []func() error{
		func() error { return gt.holder(actor, scopeActor) },
		func() error { return gt.holder(tgt, scopeTarget) },
		func() error { return gt.apply("action", a.Modifiers, scopeAction) },
		func() error { return gt.zones(s, actor, tgt) },
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return Gathered{}, err
		}
	}
	gt.implicit(s, actor)
	return gt.g, nil
}

// holder applies the conditions and traits of one combatant. sc is
// scopeActor or scopeTarget; the target's Against modifiers follow its own.
func (gt *gatherer) holder(c model.Combatant, sc scope) error {
	for _, cond := range c.Conditions {
		if err := gt.registered("condition:"+cond.Name, cond.Name, sc); err != nil {
			return err
		}
	}
	if c.Stats == nil {
		return nil
	}
	traits := make([]string, 0, len(c.Stats.Traits))
	for t := range c.Stats.Traits {
		traits = append(traits, t)
	}
	slices.Sort(traits)
	for _, t := range traits {
		if err := gt.registered("trait:"+t, t, sc); err != nil {
			return err
		}
	}
	return nil
}

func (gt *gatherer) registered(source, name string, sc scope) error {
	ce, ok := gt.r.Conditions.Lookup(name)
	if !ok {
		return nil
	}
	if err := gt.apply(source, ce.Self, sc); err != nil {
		return err
	}
	if sc == scopeTarget {
		return gt.apply(source, ce.Against, scopeAgainst)
	}
	return nil
}

func (gt *gatherer) zones(s *model.State, actor, tgt model.Combatant) error {
	for _, z := range s.Zones() {
		source := "zone:" + z.ID
		switch z.Kind {
		case "cover":
			if z.Cover == 0 || !z.Contains(tgt.Pos) || z.Contains(actor.Pos) {
				continue
			}
			switch gt.check.(type) {
			case *action.AttackRoll:
				gt.g.AC += z.Cover
			case *action.SavingThrow:
				if gt.saveAb != model.Dex {
					continue
				}
				gt.g.Bonus += z.Cover
			default:
				continue
			}
			gt.g.Sources = append(gt.g.Sources, source)
		case "aura":
			if z.Condition == "" {
				continue
			}
			if z.Contains(actor.Pos) && zoneAffects(s, z, actor) {
				if err := gt.registered(source, z.Condition, scopeActor); err != nil {
					return err
				}
			}
			if tgt.ID != actor.ID && z.Contains(tgt.Pos) && zoneAffects(s, z, tgt) {
				if err := gt.registered(source, z.Condition, scopeTarget); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// zoneAffects judges a zone's Affects relative to its source. A zone whose
// source has left the state affects everyone.
func zoneAffects(s *model.State, z model.Zone, c model.Combatant) bool {
	if _, ok := s.Get(z.SourceID); !ok {
		return true
	}
	switch action.Filter(z.Affects) {
	case action.FilterEnemy:
		return s.Hostile(z.SourceID, c.ID)
	case action.FilterAlly:
		return s.Allied(z.SourceID, c.ID)
	}
	return true
}

// implicit adds situational disadvantage on attacks: beyond normal range,
// and shooting with a hostile creature adjacent. Whether that hostile can
// see the attacker or act at all is not checked.
func (gt *gatherer) implicit(s *model.State, actor model.Combatant) {
	atk, ok := gt.check.(*action.AttackRoll)
	if !ok {
		return
	}
	if r := action.Reach(gt.a.Targeting); r.Long > r.Normal && gt.dist > r.Normal {
		gt.g.Disadvantage = true
		gt.g.Sources = append(gt.g.Sources, "long-range")
	}
	if !atk.Ranged {
		return
	}
	for _, c := range s.Combatants() {
		if c.Alive() && model.Adjacent(actor.Pos, c.Pos) && s.Hostile(actor.ID, c.ID) {
			gt.g.Disadvantage = true
			gt.g.Sources = append(gt.g.Sources, "ranged-in-melee")
			return
		}
	}
}

// rollFor returns the roll a modifier on roll r touches in scope sc, and
// whether that roll is the primary one. ok is false when the modifier has
// nothing to act on.
func (gt *gatherer) rollFor(r action.Roll, ab model.Ability, sc scope) (primary, ok bool) {
	if r == action.RollSave && ab != "" && ab != gt.saveAb {
		return false, false
	}
	actorSide := r != "" && r == gt.actorRoll
	targetSide := r != "" && r == gt.targetRoll
	switch sc {
	case scopeActor, scopeAgainst:
		if actorSide {
			return true, true
		}
	case scopeTarget:
		if targetSide {
			return gt.actorRoll == "", true
		}
	case scopeAction:
		if actorSide {
			return true, true
		}
		if targetSide {
			return gt.actorRoll == "", true
		}
	}
	return false, false
}

func (gt *gatherer) apply(source string, mods []action.Modifier, sc scope) error {
	for _, m := range mods {
		used, err := gt.one(m, sc)
		if err != nil {
			return err
		}
		if used && !slices.Contains(gt.g.Sources, source) {
			gt.g.Sources = append(gt.g.Sources, source)
		}
	}
	return nil
}

func (gt *gatherer) one(m action.Modifier, sc scope) (bool, error) {
	g := &gt.g
	switch m := m.(type) {
	case *action.Advantage:
		primary, ok := gt.rollFor(m.Roll, m.Ability, sc)
		if ok && primary {
			g.Advantage = true
		} else if ok {
			g.OpposedAdvantage = true
		}
		return ok, nil
	case *action.Disadvantage:
		primary, ok := gt.rollFor(m.Roll, m.Ability, sc)
		if ok && primary {
			g.Disadvantage = true
		} else if ok {
			g.OpposedDisadvantage = true
		}
		return ok, nil
	case *action.AutoFail:
		primary, ok := gt.rollFor(m.Roll, m.Ability, sc)
		if ok && primary {
			g.AutoFail = true
		} else if ok {
			g.OpposedAutoFail = true
		}
		return ok, nil
	case *action.AttackBonus:
		return gt.bonus(action.RollAttack, "", m.Value, m.Dice, sc), nil
	case *action.SaveBonus:
		return gt.bonus(action.RollSave, m.Ability, m.Value, m.Dice, sc), nil
	case *action.CheckBonus:
		return gt.bonus(action.RollCheck, "", m.Value, m.Dice, sc), nil
	case *action.DamageBonus:
		if sc == scopeTarget {
			return false, nil
		}
		g.DamageBonus += m.Value
		if m.Dice != "" {
			g.DamageDice = append(g.DamageDice, DamageDie{Dice: m.Dice, Type: m.Type})
		}
		return true, nil
	case *action.ACBonus:
		if sc != scopeTarget {
			return false, nil
		}
		if _, ok := gt.check.(*action.AttackRoll); !ok {
			return false, nil
		}
		g.AC += m.Value
		return true, nil
	case *action.AutoCrit:
		if sc == scopeTarget {
			return false, nil
		}
		if _, ok := gt.check.(*action.AttackRoll); !ok {
			return false, nil
		}
		if m.Within > 0 && gt.dist > m.Within {
			return false, nil
		}
		g.AutoCrit = true
		return true, nil
	case *action.When:
		hold, err := gt.r.Rules.Eval(m.Cond, gt.env)
		if err != nil {
			return false, &DataError{Action: gt.a.ID, Err: err}
		}
		if !hold {
			return false, nil
		}
		used := false
		for _, inner := range m.Then {
			ok, err := gt.one(inner, sc)
			if err != nil {
				return false, err
			}
			used = used || ok
		}
		return used, nil
	}
	panic(dataErr(gt.a.ID, "unknown modifier %T", m))
}

func (gt *gatherer) bonus(r action.Roll, ab model.Ability, v int, d string, sc scope) bool {
	primary, ok := gt.rollFor(r, ab, sc)
	if !ok {
		return false
	}
	if primary {
		gt.g.Bonus += v
		if d != "" {
			gt.g.BonusDice = append(gt.g.BonusDice, d)
		}
	} else {
		gt.g.OpposedBonus += v
		if d != "" {
			gt.g.OpposedDice = append(gt.g.OpposedDice, d)
		}
	}
	return true
}
