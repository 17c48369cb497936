package rules

import (
	"strings"
	"testing"

	"github.com/expr-lang/expr"
	"github.com/nstehr/skirmish/action"
)

func TestCompileDoctrineBalanced(t *testing.T) {
	rules := CompileDoctrine(DefaultDoctrine())
	if len(rules) == 0 {
		t.Fatal("CompileDoctrine returned no rules")
	}

	// Verify all rules compile with expr
	for _, r := range rules {
		_, err := expr.Compile(r.ConditionSrc, expr.Env(Env{}), expr.AsBool())
		if err != nil {
			t.Errorf("rule %q failed to compile: %v\ncondition: %s", r.Name, err, r.ConditionSrc)
		}
	}

	coreNames := map[string]bool{
		"no-overheal":      false,
		"no-friendly-fire": false,
		"ignore-downed":    false,
	}
	for _, r := range rules {
		if _, ok := coreNames[r.Name]; ok {
			coreNames[r.Name] = true
		}
	}
	for name, found := range coreNames {
		if !found {
			t.Errorf("core rule %q missing from compiled doctrine", name)
		}
	}
}

func TestCompileDoctrineZeroWeightsDropRules(t *testing.T) {
	rules := CompileDoctrine(Doctrine{Name: "Passive"})
	if len(rules) != 3 {
		names := make([]string, len(rules))
		for i, r := range rules {
			names[i] = r.Name
		}
		t.Errorf("expected only core rules, got %s", strings.Join(names, ","))
	}
}

func TestCompileDoctrineInterpolatesThresholds(t *testing.T) {
	rules := CompileDoctrine(Doctrine{FocusFire: 1})
	var src string
	for _, r := range rules {
		if r.Name == "finish-low" {
			src = r.ConditionSrc
		}
	}
	if !strings.Contains(src, "<= 0.35") {
		t.Errorf("finish-low condition = %q, want threshold 0.35", src)
	}
}

func TestFocusFirePrefersWoundedTarget(t *testing.T) {
	engine, err := NewEngine(CompileDoctrine(Doctrine{FocusFire: 1}))
	if err != nil {
		t.Fatal(err)
	}
	s := twoSides(t)
	strike := &action.Action{
		ID:        "axe",
		Check:     &action.AttackRoll{Bonus: 5},
		Targeting: &action.Single{Filter: action.FilterEnemy, Range: action.Range{Normal: 5}},
		Effect:    &action.Damage{Dice: "1d12+3", Type: "slashing"},
	}
	wounded := engine.Bias(NewEnv(s, "hero", "orc").WithAction(strike))
	if wounded <= 0 {
		t.Errorf("bias against a bloodied orc = %v, want > 0", wounded)
	}
	ally := engine.Bias(NewEnv(s, "hero", "cleric").WithAction(strike))
	if ally >= 0 {
		t.Errorf("bias for striking an ally = %v, want < 0", ally)
	}
}
