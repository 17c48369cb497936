package rules

import (
	"testing"

	"github.com/nstehr/skirmish/model"
)

func TestDoctrineRulesCompile(t *testing.T) {
	engine, err := NewEngine(CompileDoctrine(DefaultDoctrine()))
	if err != nil {
		t.Fatalf("NewEngine(CompileDoctrine(DefaultDoctrine())) failed: %v", err)
	}
	if len(engine.rules) != 13 {
		t.Errorf("expected 13 rules, got %d", len(engine.rules))
	}
	// Verify priority ordering (descending).
	for i := 1; i < len(engine.rules); i++ {
		if engine.rules[i].Priority > engine.rules[i-1].Priority {
			t.Errorf("rules not sorted by priority: %s (%d) > %s (%d)",
				engine.rules[i].Name, engine.rules[i].Priority,
				engine.rules[i-1].Name, engine.rules[i-1].Priority)
		}
	}
}

func TestEngineExclusiveCategory(t *testing.T) {
	engine, err := NewEngine([]*Rule{
		{Name: "a", Priority: 10, Category: "target", Exclusive: true, ConditionSrc: `true`, Bias: 0.5},
		{Name: "b", Priority: 5, Category: "target", Exclusive: true, ConditionSrc: `true`, Bias: 0.25},
		{Name: "c", Priority: 1, Category: "other", ConditionSrc: `Round == 3`, Bias: 0.1},
	})
	if err != nil {
		t.Fatal(err)
	}
	s := twoSides(t)
	env := NewEnv(s, "hero", "orc")
	if got := engine.Bias(env); got != 0.5 {
		t.Errorf("Bias = %v, want 0.5 (b blocked by exclusive a, c false)", got)
	}
}

func TestEngineSwapKeepsOldRulesOnError(t *testing.T) {
	engine, err := NewEngine([]*Rule{{Name: "a", ConditionSrc: `true`, Bias: 1}})
	if err != nil {
		t.Fatal(err)
	}
	if err := engine.Swap([]*Rule{{Name: "broken", ConditionSrc: `Nope(`}}); err == nil {
		t.Fatal("expected compile error")
	}
	if names := engine.Names(); len(names) != 1 || names[0] != "a" {
		t.Errorf("rules after failed swap = %v", names)
	}
}

func TestCompiler(t *testing.T) {
	c := NewCompiler()
	s := twoSides(t)
	env := NewEnv(s, "hero", "orc")

	ok, err := c.Eval(`Distance() == 5 && Target.Bloodied()`, env)
	if err != nil || !ok {
		t.Fatalf("Eval = %v, %v; want true", ok, err)
	}
	if _, err := c.Compile(`Target.Missing > 1`); err == nil {
		t.Error("unknown field should fail to compile")
	}
	p1, _ := c.Compile(`Round > 0`)
	p2, _ := c.Compile(`Round > 0`)
	if p1 != p2 {
		t.Error("compiled programs should be cached")
	}
}

func twoSides(t *testing.T) *model.State {
	t.Helper()
	s, err := model.NewState(model.NewGrid(6, 6), []model.Combatant{
		{ID: "hero", Group: "party", HP: 30, MaxHP: 30, AC: 16, Pos: model.Point{X: 1, Y: 1}, Initiative: 15},
		{ID: "cleric", Group: "party", HP: 4, MaxHP: 20, AC: 18, Pos: model.Point{X: 3, Y: 2}, Initiative: 10},
		{ID: "orc", Group: "orcs", HP: 6, MaxHP: 15, AC: 13, Pos: model.Point{X: 2, Y: 2}, Initiative: 12,
			Conditions: []model.Condition{{Name: "prone"}}},
	}, nil)
	if err != nil {
		t.Fatal(err)
	}
	return s
}
