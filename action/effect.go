package action

import "fmt"

// Effect is what happens to a target once the check is decided.
type Effect interface{ isEffect() }

// Damage deals Dice damage of Type.
type Damage struct {
	Dice string
	Type string
}

// Heal restores Dice hit points, up to the target's maximum.
type Heal struct {
	Dice string
}

// ApplyCondition adds a condition for Duration rounds (0 = until removed).
// A non-nil Save gives the target a second saving throw to resist it.
type ApplyCondition struct {
	Condition string
	Duration  int
	Magnitude int
	Save      *SavingThrow
}

// RemoveCondition ends a condition.
type RemoveCondition struct {
	Condition string
}

// ForcedMove pushes the target Distance feet away from the actor, or pulls
// it toward the actor when Toward is set. Movement stops at blocking cells
// and other creatures.
type ForcedMove struct {
	Distance int
	Toward   bool
}

// CreateZone opens an area effect centered on the target or area origin.
type CreateZone struct {
	Kind      string // cover, aura, hazard
	Radius    int    // feet
	Affects   Filter
	Condition string
	Cover     int
	ActionID  string
}

// Conditional evaluates When against the actor and target and applies
// exactly one of Then or Else. Else may be nil.
type Conditional struct {
	When string
	Then Effect
	Else Effect
}

// All applies every child.
type All struct {
	Effects []Effect
}

func (*Damage) isEffect()          {}
func (*Heal) isEffect()            {}
func (*ApplyCondition) isEffect()  {}
func (*RemoveCondition) isEffect() {}
func (*ForcedMove) isEffect()      {}
func (*CreateZone) isEffect()      {}
func (*Conditional) isEffect()     {}
func (*All) isEffect()             {}

// WalkEffects visits e and its descendants depth-first, both branches of
// conditionals included. Returning false from fn stops the walk.
func WalkEffects(e Effect, fn func(Effect) bool) bool {
	if e == nil {
		return true
	}
	if !fn(e) {
		return false
	}
	switch e := e.(type) {
	case *Conditional:
		return WalkEffects(e.Then, fn) && WalkEffects(e.Else, fn)
	case *All:
		for _, c := range e.Effects {
			if !WalkEffects(c, fn) {
				return false
			}
		}
	}
	return true
}

// DamageTypes lists the damage types an effect tree can deal, in walk order.
func DamageTypes(e Effect) []string {
	var out []string
	WalkEffects(e, func(e Effect) bool {
		if d, ok := e.(*Damage); ok {
			out = append(out, d.Type)
		}
		return true
	})
	return out
}

// Harmful reports whether an effect tree deals damage or applies a
// condition, which is how search tells attacks from support actions.
func Harmful(e Effect) bool {
	harmful := false
	WalkEffects(e, func(e Effect) bool {
		switch e.(type) {
		case *Damage, *ApplyCondition, *ForcedMove:
			harmful = true
		}
		return !harmful
	})
	return harmful
}

func validateEffect(e Effect) error {
	switch e := e.(type) {
	case *Damage:
		if e.Dice == "" {
			return fmt.Errorf("damage: missing dice")
		}
		return validDice(e.Dice)
	case *Heal:
		if e.Dice == "" {
			return fmt.Errorf("heal: missing dice")
		}
		return validDice(e.Dice)
	case *ApplyCondition:
		if e.Condition == "" {
			return fmt.Errorf("apply-condition: missing condition")
		}
		if e.Save != nil {
			return validateCheck(e.Save)
		}
		return nil
	case *RemoveCondition:
		if e.Condition == "" {
			return fmt.Errorf("remove-condition: missing condition")
		}
		return nil
	case *ForcedMove:
		if e.Distance < 5 {
			return fmt.Errorf("forced-move: distance must be at least 5 feet")
		}
		return nil
	case *CreateZone:
		if e.Kind != "cover" && e.Kind != "aura" && e.Kind != "hazard" {
			return fmt.Errorf("create-zone: unknown kind %q", e.Kind)
		}
		return nil
	case *Conditional:
		if e.When == "" || e.Then == nil {
			return fmt.Errorf("conditional: missing when or then")
		}
		return nil
	case *All:
		if len(e.Effects) == 0 {
			return fmt.Errorf("all: no effects")
		}
		return nil
	default:
		return fmt.Errorf("unknown effect type %T", e)
	}
}
