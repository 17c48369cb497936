package content

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/nstehr/skirmish/action"
	"github.com/nstehr/skirmish/model"
)

// The doc types mirror the YAML layout of an action. Each sum-type family
// carries a "type" discriminator and the union of its variants' fields.

type actionDoc struct {
	ID           string        `yaml:"id"`
	Name         string        `yaml:"name"`
	Spell        bool          `yaml:"spell"`
	Precondition string        `yaml:"precondition"`
	Trigger      string        `yaml:"trigger"`
	Check        *checkDoc     `yaml:"check"`
	Cost         costDoc       `yaml:"cost"`
	Targeting    *targetDoc    `yaml:"targeting"`
	Effect       *effectDoc    `yaml:"effect"`
	Modifiers    []modifierDoc `yaml:"modifiers"`
	Duration     durationDoc   `yaml:"duration"`
	Tags         []string      `yaml:"tags"`
}

type checkDoc struct {
	Type        string `yaml:"type"`
	Bonus       int    `yaml:"bonus"`
	SpellBonus  bool   `yaml:"spell_bonus"`
	Ranged      bool   `yaml:"ranged"`
	CritOn      int    `yaml:"crit_on"`
	Ability     string `yaml:"ability"`
	DC          int    `yaml:"dc"`
	SpellDC     bool   `yaml:"spell_dc"`
	Half        bool   `yaml:"half"`
	ActorSkill  string `yaml:"actor_skill"`
	TargetSkill string `yaml:"target_skill"`
}

type costDoc struct {
	Slot      string            `yaml:"slot"`
	Resources []resourceCostDoc `yaml:"resources"`
}

type resourceCostDoc struct {
	Name   string `yaml:"name"`
	Amount int    `yaml:"amount"`
}

type durationDoc struct {
	Rounds        int  `yaml:"rounds"`
	Concentration bool `yaml:"concentration"`
}

type rangeDoc struct {
	Normal int `yaml:"normal"`
	Long   int `yaml:"long"`
}

type targetDoc struct {
	Type        string   `yaml:"type"`
	Filter      string   `yaml:"filter"`
	Range       rangeDoc `yaml:"range"`
	Count       int      `yaml:"count"`
	Shape       string   `yaml:"shape"`
	Size        int      `yaml:"size"`
	Origin      string   `yaml:"origin"`
	IncludeSelf bool     `yaml:"include_self"`
	Jumps       int      `yaml:"jumps"`
	JumpRange   int      `yaml:"jump_range"`
}

type effectDoc struct {
	Type       string      `yaml:"type"`
	Dice       string      `yaml:"dice"`
	DamageType string      `yaml:"damage_type"`
	Condition  string      `yaml:"condition"`
	Duration   int         `yaml:"duration"`
	Magnitude  int         `yaml:"magnitude"`
	Save       *checkDoc   `yaml:"save"`
	Distance   int         `yaml:"distance"`
	Toward     bool        `yaml:"toward"`
	Kind       string      `yaml:"kind"`
	Radius     int         `yaml:"radius"`
	Affects    string      `yaml:"affects"`
	Cover      int         `yaml:"cover"`
	Action     string      `yaml:"action"`
	When       string      `yaml:"when"`
	Then       *effectDoc  `yaml:"then"`
	Else       *effectDoc  `yaml:"else"`
	Effects    []effectDoc `yaml:"effects"`
}

type modifierDoc struct {
	Type       string        `yaml:"type"`
	Roll       string        `yaml:"roll"`
	Ability    string        `yaml:"ability"`
	Value      int           `yaml:"value"`
	Dice       string        `yaml:"dice"`
	DamageType string        `yaml:"damage_type"`
	Within     int           `yaml:"within"`
	When       string        `yaml:"when"`
	Then       []modifierDoc `yaml:"then"`
}

// DecodeAction parses and validates one action definition.
func DecodeAction(body []byte) (*action.Action, error) {
	var doc actionDoc
	if err := yaml.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("decode action: %w", err)
	}
	a, err := doc.build()
	if err != nil {
		return nil, fmt.Errorf("action %s: %w", doc.ID, err)
	}
	if err := a.Validate(); err != nil {
		return nil, err
	}
	return a, nil
}

func (d *actionDoc) build() (*action.Action, error) {
	a := &action.Action{
		ID:           d.ID,
		Name:         d.Name,
		Spell:        d.Spell,
		Precondition: d.Precondition,
		Trigger:      d.Trigger,
		Duration:     action.Duration{Rounds: d.Duration.Rounds, Concentration: d.Duration.Concentration},
		Tags:         d.Tags,
	}
	if a.Name == "" {
		a.Name = a.ID
	}
	slot, err := model.ParseSlot(d.Cost.Slot)
	if err != nil {
		return nil, err
	}
	a.Cost.Slot = slot
	for _, rc := range d.Cost.Resources {
		a.Cost.Resources = append(a.Cost.Resources, action.ResourceCost{Name: rc.Name, Amount: rc.Amount})
	}
	if d.Check == nil {
		a.Check = &action.AutoSuccess{}
	} else if a.Check, err = d.Check.build(); err != nil {
		return nil, err
	}
	if d.Targeting == nil {
		return nil, fmt.Errorf("missing targeting")
	}
	if a.Targeting, err = d.Targeting.build(); err != nil {
		return nil, err
	}
	if d.Effect == nil {
		return nil, fmt.Errorf("missing effect")
	}
	if a.Effect, err = d.Effect.build(); err != nil {
		return nil, err
	}
	if a.Modifiers, err = buildModifiers(d.Modifiers); err != nil {
		return nil, err
	}
	return a, nil
}

func (d *checkDoc) build() (action.Check, error) {
	switch d.Type {
	case "auto", "":
		return &action.AutoSuccess{}, nil
	case "attack":
		return &action.AttackRoll{Bonus: d.Bonus, SpellBonus: d.SpellBonus, Ranged: d.Ranged, CritOn: d.CritOn}, nil
	case "save":
		return d.save()
	case "contested":
		return &action.Contested{ActorSkill: d.ActorSkill, TargetSkill: d.TargetSkill}, nil
	}
	return nil, fmt.Errorf("unknown check type %q", d.Type)
}

func (d *checkDoc) save() (*action.SavingThrow, error) {
	ab, err := model.ParseAbility(d.Ability)
	if err != nil {
		return nil, fmt.Errorf("save: %w", err)
	}
	return &action.SavingThrow{Ability: ab, DC: d.DC, SpellDC: d.SpellDC, Half: d.Half}, nil
}

func (d *targetDoc) build() (action.Targeting, error) {
	r := action.Range{Normal: d.Range.Normal, Long: d.Range.Long}
	f := action.Filter(d.Filter)
	if f == "" {
		f = action.FilterEnemy
	}
	switch d.Type {
	case "self":
		return &action.Self{}, nil
	case "single":
		return &action.Single{Filter: f, Range: r}, nil
	case "multi":
		return &action.Multi{Filter: f, Range: r, Count: d.Count}, nil
	case "area":
		origin := action.Origin(d.Origin)
		if origin == "" {
			origin = action.FromSelf
		}
		return &action.Area{
			Filter:      f,
			Shape:       action.Shape(d.Shape),
			Size:        d.Size,
			Origin:      origin,
			Range:       r,
			IncludeSelf: d.IncludeSelf,
		}, nil
	case "chain":
		return &action.Chain{Filter: f, Range: r, Jumps: d.Jumps, JumpRange: d.JumpRange}, nil
	}
	return nil, fmt.Errorf("unknown targeting type %q", d.Type)
}

func (d *effectDoc) build() (action.Effect, error) {
	switch d.Type {
	case "damage":
		return &action.Damage{Dice: d.Dice, Type: d.DamageType}, nil
	case "heal":
		return &action.Heal{Dice: d.Dice}, nil
	case "apply-condition":
		e := &action.ApplyCondition{Condition: d.Condition, Duration: d.Duration, Magnitude: d.Magnitude}
		if d.Save != nil {
			s, err := d.Save.save()
			if err != nil {
				return nil, err
			}
			e.Save = s
		}
		return e, nil
	case "remove-condition":
		return &action.RemoveCondition{Condition: d.Condition}, nil
	case "forced-move":
		return &action.ForcedMove{Distance: d.Distance, Toward: d.Toward}, nil
	case "create-zone":
		f := action.Filter(d.Affects)
		if f == "" {
			f = action.FilterAny
		}
		return &action.CreateZone{
			Kind:      d.Kind,
			Radius:    d.Radius,
			Affects:   f,
			Condition: d.Condition,
			Cover:     d.Cover,
			ActionID:  d.Action,
		}, nil
	case "conditional":
		if d.Then == nil {
			return nil, fmt.Errorf("conditional: missing then")
		}
		then, err := d.Then.build()
		if err != nil {
			return nil, err
		}
		e := &action.Conditional{When: d.When, Then: then}
		if d.Else != nil {
			if e.Else, err = d.Else.build(); err != nil {
				return nil, err
			}
		}
		return e, nil
	case "all":
		e := &action.All{}
		for i := range d.Effects {
			c, err := d.Effects[i].build()
			if err != nil {
				return nil, err
			}
			e.Effects = append(e.Effects, c)
		}
		return e, nil
	}
	return nil, fmt.Errorf("unknown effect type %q", d.Type)
}

func buildModifiers(docs []modifierDoc) ([]action.Modifier, error) {
	var out []action.Modifier
	for i := range docs {
		m, err := docs[i].build()
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

func (d *modifierDoc) ability() (model.Ability, error) {
	if d.Ability == "" {
		return "", nil
	}
	return model.ParseAbility(d.Ability)
}

func (d *modifierDoc) build() (action.Modifier, error) {
	ab, err := d.ability()
	if err != nil {
		return nil, fmt.Errorf("modifier %s: %w", d.Type, err)
	}
	roll := action.Roll(d.Roll)
	switch d.Type {
	case "advantage":
		return &action.Advantage{Roll: roll, Ability: ab}, nil
	case "disadvantage":
		return &action.Disadvantage{Roll: roll, Ability: ab}, nil
	case "attack-bonus":
		return &action.AttackBonus{Value: d.Value, Dice: d.Dice}, nil
	case "save-bonus":
		return &action.SaveBonus{Value: d.Value, Dice: d.Dice, Ability: ab}, nil
	case "check-bonus":
		return &action.CheckBonus{Value: d.Value, Dice: d.Dice}, nil
	case "damage-bonus":
		return &action.DamageBonus{Value: d.Value, Dice: d.Dice, Type: d.DamageType}, nil
	case "ac-bonus":
		return &action.ACBonus{Value: d.Value}, nil
	case "auto-fail":
		return &action.AutoFail{Roll: roll, Ability: ab}, nil
	case "auto-crit":
		return &action.AutoCrit{Within: d.Within}, nil
	case "when":
		then, err := buildModifiers(d.Then)
		if err != nil {
			return nil, err
		}
		return &action.When{Cond: d.When, Then: then}, nil
	}
	return nil, fmt.Errorf("unknown modifier type %q", d.Type)
}

// DecodeArchetype parses and validates one creature definition.
func DecodeArchetype(body []byte) (*model.Archetype, error) {
	var a model.Archetype
	if err := yaml.Unmarshal(body, &a); err != nil {
		return nil, fmt.Errorf("decode creature: %w", err)
	}
	if err := a.Validate(); err != nil {
		return nil, err
	}
	return &a, nil
}

// DecodeTerrain parses a terrain map and checks that it builds.
func DecodeTerrain(body []byte) (*model.TerrainMap, error) {
	var m model.TerrainMap
	if err := yaml.Unmarshal(body, &m); err != nil {
		return nil, fmt.Errorf("decode terrain: %w", err)
	}
	if m.ID == "" {
		return nil, fmt.Errorf("terrain: missing id")
	}
	if _, err := m.Build(); err != nil {
		return nil, err
	}
	return &m, nil
}
