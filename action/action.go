// Package action defines immutable combat action definitions. Checks,
// targeting, effects and modifiers are closed sum types: each family is an
// interface with an unexported marker method, implemented only by the
// pointer types in this package, so every switch over a family can be
// checked for exhaustiveness.
package action

import (
	"fmt"

	"github.com/nstehr/skirmish/dice"
	"github.com/nstehr/skirmish/model"
)

// Action is an authored capability: an attack, spell, trait or reaction.
// Actions are shared between every combatant that lists them and must not
// be modified after loading.
type Action struct {
	ID   string
	Name string

	// Spell marks actions whose attack bonus or save DC come from the
	// caster's spellcasting trait.
	Spell bool

	// Precondition is an expression over the actor that must hold for the
	// action to be usable. Empty means always usable.
	Precondition string

	// Trigger is empty for actions taken on the actor's own turn. Reactions
	// name the event that allows them and are never searched.
	Trigger string

	Check     Check
	Cost      Cost
	Targeting Targeting
	Effect    Effect
	Modifiers []Modifier
	Duration  Duration
	Tags      []string
}

// Cost is the action economy and resources an action consumes.
type Cost struct {
	Slot      model.Slot
	Resources []ResourceCost
}

// ResourceCost is an amount drawn from a named resource pool.
type ResourceCost struct {
	Name   string
	Amount int
}

// Duration bounds how long conditions and zones created by the action last.
// Rounds 0 with no concentration means instantaneous.
type Duration struct {
	Rounds        int
	Concentration bool
}

// Reaction reports whether the action only fires off a trigger.
func (a *Action) Reaction() bool { return a.Trigger != "" }

// Validate checks an action for malformed content: missing parts, bad
// dice expressions and unknown enum values.
func (a *Action) Validate() error {
	if a.ID == "" {
		return fmt.Errorf("action: missing id")
	}
	if a.Check == nil {
		return fmt.Errorf("action %s: missing check", a.ID)
	}
	if a.Targeting == nil {
		return fmt.Errorf("action %s: missing targeting", a.ID)
	}
	if a.Effect == nil {
		return fmt.Errorf("action %s: missing effect", a.ID)
	}
	if err := validateCheck(a.Check); err != nil {
		return fmt.Errorf("action %s: %w", a.ID, err)
	}
	if err := validateTargeting(a.Targeting); err != nil {
		return fmt.Errorf("action %s: %w", a.ID, err)
	}
	var err error
	WalkEffects(a.Effect, func(e Effect) bool {
		err = validateEffect(e)
		return err == nil
	})
	if err != nil {
		return fmt.Errorf("action %s: %w", a.ID, err)
	}
	for _, m := range a.Modifiers {
		if err := validateModifier(m); err != nil {
			return fmt.Errorf("action %s: %w", a.ID, err)
		}
	}
	for _, rc := range a.Cost.Resources {
		if rc.Name == "" || rc.Amount <= 0 {
			return fmt.Errorf("action %s: invalid resource cost %+v", a.ID, rc)
		}
	}
	return nil
}

func validDice(expr string) error {
	if expr == "" {
		return nil
	}
	_, err := dice.Parse(expr)
	return err
}
