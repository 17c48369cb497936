package rules

import "fmt"

// CompileDoctrine generates a tactical rule set from a doctrine's weights.
// All conditions are built via fmt.Sprintf with interpolated values, so the
// compiler never generates invalid expr.
func CompileDoctrine(d Doctrine) []*Rule {
	d.Validate()
	var rules []*Rule

	// --- Core rules (always present) ---

	rules = append(rules, &Rule{
		Name:         "no-overheal",
		Priority:     1000,
		Category:     "healing",
		Exclusive:    true,
		ConditionSrc: `Action.Heal && !Action.Harmful && Target.HPFraction() > 0.9`,
		Bias:         -0.3,
	})

	rules = append(rules, &Rule{
		Name:         "no-friendly-fire",
		Priority:     990,
		Category:     "friendly-fire",
		Exclusive:    true,
		ConditionSrc: `Action.Harmful && !Action.Area && Target.Present && !TargetIsSelf() && Target.Group == Actor.Group`,
		Bias:         -1,
	})

	rules = append(rules, &Rule{
		Name:         "ignore-downed",
		Priority:     980,
		Category:     "target",
		Exclusive:    true,
		ConditionSrc: `Action.Harmful && Target.Present && Target.HP <= 0`,
		Bias:         -0.5,
	})

	// --- Focus fire: prefer finishing wounded targets ---

	if d.FocusFire > 0 {
		low := lerpf(0.15, 0.35, d.FocusFire)
		rules = append(rules, &Rule{
			Name:         "finish-low",
			Priority:     900,
			Category:     "target",
			Exclusive:    true,
			ConditionSrc: fmt.Sprintf(`Action.Harmful && Target.HP > 0 && TargetHPFraction() <= %.2f`, low),
			Bias:         lerpf(0.05, 0.4, d.FocusFire),
		})
		rules = append(rules, &Rule{
			Name:         "press-bloodied",
			Priority:     850,
			Category:     "target",
			Exclusive:    true,
			ConditionSrc: `Action.Harmful && Target.HP > 0 && TargetBloodied()`,
			Bias:         lerpf(0.02, 0.2, d.FocusFire),
		})
	}

	// --- Aggression: close in and strike ---

	if d.Aggression > 0 {
		rules = append(rules, &Rule{
			Name:         "engage-melee",
			Priority:     700,
			Category:     "position",
			Exclusive:    true,
			ConditionSrc: `Action.Harmful && !Action.Ranged && Distance() <= 5`,
			Bias:         lerpf(0, 0.15, d.Aggression),
		})
		rules = append(rules, &Rule{
			Name:         "spend-big",
			Priority:     650,
			Category:     "resources",
			Exclusive:    false,
			ConditionSrc: `Action.Harmful && Action.UsesResource && LivingEnemies() > 1`,
			Bias:         lerpf(0, 0.1, d.Aggression),
		})
	}

	// --- Teamwork: flank with allies ---

	if d.Teamwork > 0 {
		crowd := clampInt(lerp(3, 1, d.Teamwork), 1, 3)
		rules = append(rules, &Rule{
			Name:         "flank",
			Priority:     600,
			Category:     "position",
			Exclusive:    false,
			ConditionSrc: fmt.Sprintf(`Action.Harmful && !Action.Ranged && AlliesAdjacentToTarget() >= %d`, crowd),
			Bias:         lerpf(0, 0.1, d.Teamwork),
		})
	}

	// --- Self preservation: keep out of reach when hurt ---

	if d.SelfPreservation > 0 {
		hurt := lerpf(0.25, 0.6, d.SelfPreservation)
		rules = append(rules, &Rule{
			Name:         "heal-self-when-hurt",
			Priority:     800,
			Category:     "healing",
			Exclusive:    true,
			ConditionSrc: fmt.Sprintf(`Action.Heal && TargetIsSelf() && ActorHPFraction() <= %.2f`, hurt),
			Bias:         lerpf(0.05, 0.4, d.SelfPreservation),
		})
		rules = append(rules, &Rule{
			Name:         "ranged-when-hurt",
			Priority:     750,
			Category:     "position",
			Exclusive:    true,
			ConditionSrc: fmt.Sprintf(`Action.Ranged && ActorHPFraction() <= %.2f && EnemiesAdjacentToActor() == 0`, hurt),
			Bias:         lerpf(0, 0.15, d.SelfPreservation),
		})
	}

	// --- Support: keep allies standing ---

	if d.Support > 0 {
		rules = append(rules, &Rule{
			Name:         "heal-bloodied-ally",
			Priority:     780,
			Category:     "healing",
			Exclusive:    true,
			ConditionSrc: `Action.Heal && !TargetIsSelf() && Target.HP > 0 && TargetBloodied()`,
			Bias:         lerpf(0.05, 0.35, d.Support),
		})
		rules = append(rules, &Rule{
			Name:         "raise-downed-ally",
			Priority:     790,
			Category:     "healing",
			Exclusive:    true,
			ConditionSrc: `Action.Heal && !TargetIsSelf() && Target.Present && Target.HP == 0`,
			Bias:         lerpf(0.1, 0.5, d.Support),
		})
	}

	// --- Thrift: save limited resources for a real fight ---

	if d.Thrift > 0 {
		rules = append(rules, &Rule{
			Name:         "save-resources",
			Priority:     500,
			Category:     "resources",
			Exclusive:    true,
			ConditionSrc: `Action.UsesResource && LivingEnemies() <= 1 && TargetHPFraction() < 0.5`,
			Bias:         -lerpf(0, 0.25, d.Thrift),
		})
	}

	return rules
}
