package resolve

import (
	"strings"

	"github.com/nstehr/skirmish/action"
	"github.com/nstehr/skirmish/model"
)

// ConditionEffect is how a condition or trait changes rolls. Self
// modifiers apply to the holder's own rolls; Against modifiers apply to
// rolls made against the holder.
type ConditionEffect struct {
	Self    []action.Modifier
	Against []action.Modifier
}

// ConditionRegistry maps lower-case condition and trait names to their
// effects. Names missing from the registry change no rolls. It is built
// once and shared read-only.
type ConditionRegistry map[string]ConditionEffect

// Lookup returns the effect registered for name, case-insensitively.
func (r ConditionRegistry) Lookup(name string) (ConditionEffect, bool) {
	ce, ok := r[strings.ToLower(name)]
	return ce, ok
}

// Validate checks every registered modifier.
func (r ConditionRegistry) Validate() error {
	for name, ce := range r {
		if err := action.ValidateModifiers(ce.Self); err != nil {
			return dataErr("condition:"+name, "%w", err)
		}
		if err := action.ValidateModifiers(ce.Against); err != nil {
			return dataErr("condition:"+name, "%w", err)
		}
	}
	return nil
}

func adv(r action.Roll) action.Modifier    { return &action.Advantage{Roll: r} }
func disadv(r action.Roll) action.Modifier { return &action.Disadvantage{Roll: r} }

// DefaultConditions returns the standard conditions and the traits that
// behave like them.
func DefaultConditions() ConditionRegistry {
	attackedAtAdvantage := []action.Modifier{adv(action.RollAttack)}
	helpless := []action.Modifier{
		&action.AutoFail{Roll: action.RollSave, Ability: model.Str},
		&action.AutoFail{Roll: action.RollSave, Ability: model.Dex},
	}
	return ConditionRegistry{
		"blinded": {
			Self:    []action.Modifier{disadv(action.RollAttack)},
			Against: attackedAtAdvantage,
		},
		"invisible": {
			Self:    []action.Modifier{adv(action.RollAttack)},
			Against: []action.Modifier{disadv(action.RollAttack)},
		},
		"hidden": {
			Self:    []action.Modifier{adv(action.RollAttack)},
			Against: []action.Modifier{disadv(action.RollAttack)},
		},
		"poisoned": {
			Self: []action.Modifier{disadv(action.RollAttack), disadv(action.RollCheck)},
		},
		"frightened": {
			Self: []action.Modifier{disadv(action.RollAttack), disadv(action.RollCheck)},
		},
		"prone": {
			Self: []action.Modifier{disadv(action.RollAttack)},
			Against: []action.Modifier{
				&action.When{Cond: `Distance() <= 5`, Then: []action.Modifier{adv(action.RollAttack)}},
				&action.When{Cond: `Distance() > 5`, Then: []action.Modifier{disadv(action.RollAttack)}},
			},
		},
		"restrained": {
			Self: []action.Modifier{
				disadv(action.RollAttack),
				&action.Disadvantage{Roll: action.RollSave, Ability: model.Dex},
			},
			Against: attackedAtAdvantage,
		},
		"paralyzed": {
			Self:    helpless,
			Against: []action.Modifier{adv(action.RollAttack), &action.AutoCrit{Within: 5}},
		},
		"unconscious": {
			Self:    helpless,
			Against: []action.Modifier{adv(action.RollAttack), &action.AutoCrit{Within: 5}},
		},
		"stunned": {
			Self:    helpless,
			Against: attackedAtAdvantage,
		},
		"petrified": {
			Self:    helpless,
			Against: attackedAtAdvantage,
		},
		"dodging": {
			Self:    []action.Modifier{&action.Advantage{Roll: action.RollSave, Ability: model.Dex}},
			Against: []action.Modifier{disadv(action.RollAttack)},
		},
		"reckless": {
			Self:    []action.Modifier{adv(action.RollAttack)},
			Against: attackedAtAdvantage,
		},
		"blessed": {
			Self: []action.Modifier{
				&action.AttackBonus{Dice: "1d4"},
				&action.SaveBonus{Dice: "1d4"},
			},
		},
		"guided": {
			Self: []action.Modifier{&action.CheckBonus{Dice: "1d4"}},
		},
		"hasted": {
			Self: []action.Modifier{
				&action.ACBonus{Value: 2},
				&action.Advantage{Roll: action.RollSave, Ability: model.Dex},
			},
		},
		"shielded": {
			Self: []action.Modifier{&action.ACBonus{Value: 5}},
		},
		"shield-of-faith": {
			Self: []action.Modifier{&action.ACBonus{Value: 2}},
		},
		"hunters-mark": {
			Against: []action.Modifier{&action.DamageBonus{Dice: "1d6"}},
		},

		// Traits.
		"pack-tactics": {
			Self: []action.Modifier{
				&action.When{Cond: `AlliesAdjacentToTarget() > 0`, Then: []action.Modifier{adv(action.RollAttack)}},
			},
		},
		"magic-resistance": {
			Self: []action.Modifier{
				&action.When{Cond: `Action.Spell`, Then: []action.Modifier{adv(action.RollSave)}},
			},
		},
		"sneak-attack": {
			Self: []action.Modifier{
				&action.When{Cond: `!Action.Area && AlliesAdjacentToTarget() > 0`, Then: []action.Modifier{&action.DamageBonus{Dice: "2d6"}}},
			},
		},
	}
}
