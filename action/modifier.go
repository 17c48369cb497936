package action

import (
	"fmt"

	"github.com/nstehr/skirmish/model"
)

// Roll names the d20 roll a modifier applies to.
type Roll string

const (
	RollAttack Roll = "attack"
	RollSave   Roll = "save"
	RollCheck  Roll = "check"
)

// Modifier adjusts a check or its effects.
type Modifier interface{ isModifier() }

// Advantage grants advantage on Roll. Ability narrows a save modifier to
// one ability.
type Advantage struct {
	Roll    Roll
	Ability model.Ability
}

// Disadvantage imposes disadvantage on Roll.
type Disadvantage struct {
	Roll    Roll
	Ability model.Ability
}

// AttackBonus adds Value plus Dice to attack rolls.
type AttackBonus struct {
	Value int
	Dice  string
}

// SaveBonus adds Value plus Dice to saving throws.
type SaveBonus struct {
	Value   int
	Dice    string
	Ability model.Ability
}

// CheckBonus adds Value plus Dice to ability checks.
type CheckBonus struct {
	Value int
	Dice  string
}

// DamageBonus adds Value plus Dice of Type to damage dealt on a hit or failed
// save.
type DamageBonus struct {
	Value int
	Dice  string
	Type  string
}

// ACBonus raises armor class against attacks.
type ACBonus struct {
	Value int
}

// AutoFail makes Roll fail outright (paralyzed creatures fail dex saves).
type AutoFail struct {
	Roll    Roll
	Ability model.Ability
}

// AutoCrit turns hits from attackers within Within feet into critical hits.
type AutoCrit struct {
	Within int
}

// When applies Then while the expression Cond holds.
type When struct {
	Cond string
	Then []Modifier
}

func (*Advantage) isModifier()    {}
func (*Disadvantage) isModifier() {}
func (*AttackBonus) isModifier()  {}
func (*SaveBonus) isModifier()    {}
func (*CheckBonus) isModifier()   {}
func (*DamageBonus) isModifier()  {}
func (*ACBonus) isModifier()      {}
func (*AutoFail) isModifier()     {}
func (*AutoCrit) isModifier()     {}
func (*When) isModifier()         {}

func validRoll(r Roll) error {
	switch r {
	case RollAttack, RollSave, RollCheck:
		return nil
	}
	return fmt.Errorf("unknown roll %q", r)
}

func validateModifier(m Modifier) error {
	switch m := m.(type) {
	case *Advantage:
		return validRoll(m.Roll)
	case *Disadvantage:
		return validRoll(m.Roll)
	case *AutoFail:
		return validRoll(m.Roll)
	case *AttackBonus:
		return validDice(m.Dice)
	case *SaveBonus:
		return validDice(m.Dice)
	case *CheckBonus:
		return validDice(m.Dice)
	case *DamageBonus:
		return validDice(m.Dice)
	case *ACBonus, *AutoCrit:
		return nil
	case *When:
		if m.Cond == "" {
			return fmt.Errorf("when: missing condition")
		}
		for _, c := range m.Then {
			if err := validateModifier(c); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("unknown modifier type %T", m)
	}
}

// ValidateModifiers checks a modifier list outside an action, as used by
// condition definitions.
func ValidateModifiers(ms []Modifier) error {
	for _, m := range ms {
		if err := validateModifier(m); err != nil {
			return err
		}
	}
	return nil
}
