package action

import (
	"fmt"

	"github.com/nstehr/skirmish/model"
)

// Check decides whether an action succeeds against a target.
type Check interface{ isCheck() }

// AutoSuccess always succeeds (magic missile, healing word).
type AutoSuccess struct{}

// AttackRoll is d20 + Bonus against the target's AC. With SpellBonus set the
// bonus is taken from the actor's spellcasting. CritOn is the lowest natural
// roll that crits; 0 means 20.
type AttackRoll struct {
	Bonus      int
	SpellBonus bool
	Ranged     bool
	CritOn     int
}

// SavingThrow makes the target roll d20 + save bonus against DC. With SpellDC
// set the DC is the actor's spell save DC. Half applies half damage on a
// successful save instead of none.
type SavingThrow struct {
	Ability model.Ability
	DC      int
	SpellDC bool
	Half    bool
}

// Contested pits the actor's skill check against the target's. Ties go to
// the target.
type Contested struct {
	ActorSkill  string
	TargetSkill string
}

func (*AutoSuccess) isCheck() {}
func (*AttackRoll) isCheck()  {}
func (*SavingThrow) isCheck() {}
func (*Contested) isCheck()   {}

// Crit returns the lowest natural roll that scores a critical hit.
func (a *AttackRoll) Crit() int {
	if a.CritOn <= 1 || a.CritOn > 20 {
		return 20
	}
	return a.CritOn
}

func validateCheck(c Check) error {
	switch c := c.(type) {
	case *AutoSuccess, *AttackRoll:
		return nil
	case *SavingThrow:
		if _, err := model.ParseAbility(string(c.Ability)); err != nil {
			return fmt.Errorf("saving throw: %w", err)
		}
		if c.DC <= 0 && !c.SpellDC {
			return fmt.Errorf("saving throw: missing dc")
		}
		return nil
	case *Contested:
		if c.ActorSkill == "" || c.TargetSkill == "" {
			return fmt.Errorf("contested check: missing skill")
		}
		return nil
	default:
		return fmt.Errorf("unknown check type %T", c)
	}
}
