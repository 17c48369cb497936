package rules

import (
	"testing"

	"github.com/nstehr/skirmish/action"
)

func TestEnvHelpers(t *testing.T) {
	s := twoSides(t)
	env := NewEnv(s, "hero", "orc")

	if got := env.Distance(); got != 5 {
		t.Errorf("Distance = %d, want 5", got)
	}
	if got := env.AlliesAdjacentToTarget(); got != 1 {
		t.Errorf("AlliesAdjacentToTarget = %d, want 1 (cleric)", got)
	}
	if got := env.EnemiesAdjacentToActor(); got != 1 {
		t.Errorf("EnemiesAdjacentToActor = %d, want 1", got)
	}
	if !env.TargetHasCondition("Prone") || env.ActorHasCondition("prone") {
		t.Error("condition lookup wrong")
	}
	if !env.TargetBloodied() || env.Actor.Bloodied() {
		t.Error("bloodied wrong")
	}
	if env.LivingEnemies() != 1 || env.LivingAllies() != 2 {
		t.Errorf("living enemies=%d allies=%d", env.LivingEnemies(), env.LivingAllies())
	}
}

func TestEnvWithoutTarget(t *testing.T) {
	s := twoSides(t)
	env := NewEnv(s, "hero", "")
	if env.Target.Present || env.Distance() != 0 || env.AlliesAdjacentToTarget() != 0 {
		t.Error("missing target should read as zero")
	}
	if env.TargetBloodied() {
		t.Error("absent target cannot be bloodied")
	}
}

func TestViewAction(t *testing.T) {
	a := &action.Action{
		ID:        "cure",
		Spell:     true,
		Check:     &action.AutoSuccess{},
		Cost:      action.Cost{Resources: []action.ResourceCost{{Name: "slot-1", Amount: 1}}},
		Targeting: &action.Single{Filter: action.FilterAlly, Range: action.Range{Normal: 5}},
		Effect:    &action.Heal{Dice: "1d8+3"},
	}
	v := ViewAction(a)
	if !v.Heal || v.Harmful || !v.UsesResource || !v.Spell {
		t.Errorf("ViewAction = %+v", v)
	}
}
