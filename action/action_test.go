package action

import (
	"strings"
	"testing"
)

func longsword() *Action {
	return &Action{
		ID:        "longsword",
		Check:     &AttackRoll{Bonus: 5},
		Cost:      Cost{Slot: 1},
		Targeting: &Single{Filter: FilterEnemy, Range: Range{Normal: 5}},
		Effect:    &Damage{Dice: "1d8+3", Type: "slashing"},
	}
}

func TestValidate(t *testing.T) {
	if err := longsword().Validate(); err != nil {
		t.Fatalf("valid action rejected: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(a *Action)
		want   string
	}{
		{"missing check", func(a *Action) { a.Check = nil }, "missing check"},
		{"bad dice", func(a *Action) { a.Effect = &Damage{Dice: "2x6"} }, "position 1"},
		{"nested bad dice", func(a *Action) {
			a.Effect = &All{Effects: []Effect{
				&Damage{Dice: "1d6", Type: "fire"},
				&Conditional{When: "true", Then: &Heal{Dice: "1d"}},
			}}
		}, "dice"},
		{"bad filter", func(a *Action) { a.Targeting = &Single{Filter: "friendly"} }, "unknown filter"},
		{"cone from point", func(a *Action) {
			a.Targeting = &Area{Filter: FilterAny, Shape: Cone, Size: 15, Origin: FromPoint}
		}, "originate from self"},
		{"save without dc", func(a *Action) { a.Check = &SavingThrow{Ability: "dex"} }, "missing dc"},
		{"bad modifier roll", func(a *Action) { a.Modifiers = []Modifier{&Advantage{Roll: "initiative"}} }, "unknown roll"},
		{"bad cost", func(a *Action) { a.Cost.Resources = []ResourceCost{{Name: "ki"}} }, "resource cost"},
	}
	for _, tc := range tests {
		a := longsword()
		tc.mutate(a)
		err := a.Validate()
		if err == nil || !strings.Contains(err.Error(), tc.want) {
			t.Errorf("%s: err = %v, want mention of %q", tc.name, err, tc.want)
		}
	}
}

func TestWalkEffectsVisitsBothBranches(t *testing.T) {
	e := &All{Effects: []Effect{
		&Damage{Dice: "1d6", Type: "cold"},
		&Conditional{
			When: "Target.Bloodied",
			Then: &Damage{Dice: "1d6", Type: "necrotic"},
			Else: &ApplyCondition{Condition: "frightened"},
		},
	}}
	got := DamageTypes(e)
	if len(got) != 2 || got[0] != "cold" || got[1] != "necrotic" {
		t.Errorf("DamageTypes = %v", got)
	}
	n := 0
	WalkEffects(e, func(Effect) bool { n++; return true })
	if n != 5 {
		t.Errorf("visited %d effects, want 5", n)
	}
	if !Harmful(e) || Harmful(&Heal{Dice: "1d4"}) {
		t.Error("Harmful misclassified an effect tree")
	}
}

func TestTargetingShape(t *testing.T) {
	tests := []struct {
		t    Targeting
		want int
	}{
		{&Self{}, 0},
		{&Single{Filter: FilterEnemy}, 1},
		{&Multi{Filter: FilterEnemy, Count: 3}, 3},
		{&Area{Filter: FilterAny, Shape: Sphere, Size: 20, Origin: FromPoint}, 0},
		{&Area{Filter: FilterAny, Shape: Sphere, Size: 10, Origin: FromTarget}, 1},
		{&Chain{Filter: FilterEnemy, Jumps: 2, JumpRange: 10}, 1},
	}
	for _, tc := range tests {
		if got := MaxTargets(tc.t); got != tc.want {
			t.Errorf("MaxTargets(%T) = %d, want %d", tc.t, got, tc.want)
		}
	}
	if (Range{Normal: 80, Long: 320}).Max() != 320 || (Range{}).Max() != 5 {
		t.Error("Range.Max wrong")
	}
}
