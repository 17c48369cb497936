package model

import (
	"fmt"
	"math"
	"strings"
)

// Ability is one of the six ability scores.
type Ability string

const (
	Str Ability = "str"
	Dex Ability = "dex"
	Con Ability = "con"
	Int Ability = "int"
	Wis Ability = "wis"
	Cha Ability = "cha"
)

// Abilities lists every ability in canonical order.
var Abilities = [6]Ability{Str, Dex, Con, Int, Wis, Cha}

// ParseAbility accepts short ("dex") or long ("dexterity") names.
func ParseAbility(s string) (Ability, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, a := range Abilities {
		if len(s) >= 3 && strings.HasPrefix(s, string(a)) {
			return a, nil
		}
	}
	return "", fmt.Errorf("unknown ability %q", s)
}

// AbilityScores holds raw scores.
type AbilityScores struct {
	Str int `json:"str" yaml:"str"`
	Dex int `json:"dex" yaml:"dex"`
	Con int `json:"con" yaml:"con"`
	Int int `json:"int" yaml:"int"`
	Wis int `json:"wis" yaml:"wis"`
	Cha int `json:"cha" yaml:"cha"`
}

// Score returns the raw score for a. Unknown abilities score 10.
func (s AbilityScores) Score(a Ability) int {
	switch a {
	case Str:
		return s.Str
	case Dex:
		return s.Dex
	case Con:
		return s.Con
	case Int:
		return s.Int
	case Wis:
		return s.Wis
	case Cha:
		return s.Cha
	}
	return 10
}

// Modifier returns the ability modifier for a raw score.
func Modifier(score int) int {
	return int(math.Floor(float64(score-10) / 2))
}

// ProficiencyForCR derives the proficiency bonus from a challenge rating.
func ProficiencyForCR(cr float64) int {
	if cr < 1 {
		return 2
	}
	return 2 + (int(math.Ceil(cr))-1)/4
}

// Spellcasting describes a spellcasting trait. Zero AttackBonus or SaveDC
// means derive it from the ability and proficiency.
type Spellcasting struct {
	Ability     Ability `json:"ability" yaml:"ability"`
	AttackBonus int     `json:"attackBonus,omitempty" yaml:"attack_bonus"`
	SaveDC      int     `json:"saveDc,omitempty" yaml:"save_dc"`
}

// Archetype is a shared creature or character definition.
type Archetype struct {
	ID                  string         `json:"id" yaml:"id"`
	Name                string         `json:"name" yaml:"name"`
	Kind                string         `json:"kind,omitempty" yaml:"type"`
	Size                string         `json:"size,omitempty" yaml:"size"`
	MaxHP               int            `json:"maxHp" yaml:"hp"`
	AC                  int            `json:"ac" yaml:"ac"`
	Speed               Speed          `json:"speed" yaml:"speed"`
	Abilities           AbilityScores  `json:"abilities" yaml:"abilities"`
	CR                  float64        `json:"cr" yaml:"cr"`
	Proficiency         int            `json:"proficiency,omitempty" yaml:"proficiency"`
	Saves               []Ability      `json:"saves,omitempty" yaml:"saves"`
	Skills              map[string]int `json:"skills,omitempty" yaml:"skills"`
	Resistances         []string       `json:"resistances,omitempty" yaml:"resistances"`
	Immunities          []string       `json:"immunities,omitempty" yaml:"immunities"`
	Vulnerabilities     []string       `json:"vulnerabilities,omitempty" yaml:"vulnerabilities"`
	ConditionImmunities []string       `json:"conditionImmunities,omitempty" yaml:"condition_immunities"`
	Spellcasting        *Spellcasting  `json:"spellcasting,omitempty" yaml:"spellcasting"`
	Traits              []string       `json:"traits,omitempty" yaml:"traits"`
	Resources           []Resource     `json:"resources,omitempty" yaml:"resources"`
	Actions             []string       `json:"actions" yaml:"actions"`
}

func (a *Archetype) size() Size {
	if s, err := ParseSize(a.Size); err == nil {
		return s
	}
	return SizeMedium
}

// Validate checks the fields every other package relies on.
func (a *Archetype) Validate() error {
	if a.ID == "" {
		return fmt.Errorf("archetype: missing id")
	}
	if a.MaxHP <= 0 {
		return fmt.Errorf("archetype %s: hp must be positive", a.ID)
	}
	if a.Size != "" {
		if _, err := ParseSize(a.Size); err != nil {
			return fmt.Errorf("archetype %s: %w", a.ID, err)
		}
	}
	if a.Spellcasting != nil {
		if _, err := ParseAbility(string(a.Spellcasting.Ability)); err != nil {
			return fmt.Errorf("archetype %s: spellcasting: %w", a.ID, err)
		}
	}
	return nil
}

// Stats is the resolved, read-only view of an archetype used during
// resolution.
type Stats struct {
	Abilities           AbilityScores
	Proficiency         int
	CR                  float64
	saves               map[Ability]int
	Skills              map[string]int
	Resistances         map[string]bool
	Immunities          map[string]bool
	Vulnerabilities     map[string]bool
	ConditionImmunities map[string]bool
	Traits              map[string]bool

	// Spell values are zero when the archetype cannot cast.
	Caster      bool
	SpellAttack int
	SpellDC     int
}

// ResolveStats computes the derived values of an archetype.
func ResolveStats(a *Archetype) *Stats {
	prof := a.Proficiency
	if prof == 0 {
		prof = ProficiencyForCR(a.CR)
	}
	st := &Stats{
		Abilities:           a.Abilities,
		Proficiency:         prof,
		CR:                  a.CR,
		saves:               make(map[Ability]int, len(Abilities)),
		Skills:              make(map[string]int, len(a.Skills)),
		Resistances:         lowerSet(a.Resistances),
		Immunities:          lowerSet(a.Immunities),
		Vulnerabilities:     lowerSet(a.Vulnerabilities),
		ConditionImmunities: lowerSet(a.ConditionImmunities),
		Traits:              lowerSet(a.Traits),
	}
	for _, ab := range Abilities {
		st.saves[ab] = Modifier(a.Abilities.Score(ab))
	}
	for _, ab := range a.Saves {
		if ab, err := ParseAbility(string(ab)); err == nil {
			st.saves[ab] += prof
		}
	}
	for k, v := range a.Skills {
		st.Skills[strings.ToLower(k)] = v
	}
	if sc := a.Spellcasting; sc != nil {
		ab, _ := ParseAbility(string(sc.Ability))
		mod := Modifier(a.Abilities.Score(ab))
		st.Caster = true
		st.SpellAttack = sc.AttackBonus
		if st.SpellAttack == 0 {
			st.SpellAttack = prof + mod
		}
		st.SpellDC = sc.SaveDC
		if st.SpellDC == 0 {
			st.SpellDC = 8 + prof + mod
		}
	}
	return st
}

// Save returns the saving throw bonus for ability ab.
func (s *Stats) Save(ab Ability) int {
	if s == nil {
		return 0
	}
	return s.saves[ab]
}

// Check returns the bonus for a skill or raw ability check. Unknown skills
// fall back to the ability named, or zero.
func (s *Stats) Check(skill string) int {
	if s == nil {
		return 0
	}
	skill = strings.ToLower(skill)
	if v, ok := s.Skills[skill]; ok {
		return v
	}
	if ab, err := ParseAbility(skill); err == nil {
		return Modifier(s.Abilities.Score(ab))
	}
	return 0
}

// HasTrait reports whether the archetype carries the named trait.
func (s *Stats) HasTrait(name string) bool {
	return s != nil && s.Traits[strings.ToLower(name)]
}

func lowerSet(items []string) map[string]bool {
	m := make(map[string]bool, len(items))
	for _, it := range items {
		m[strings.ToLower(it)] = true
	}
	return m
}

// ArchetypeLookup finds archetype definitions by id.
type ArchetypeLookup interface {
	Archetype(id string) (*Archetype, bool)
}

// ArchetypeCache resolves Stats once per archetype id and hands the same
// snapshot to every combatant sharing it. Not safe for concurrent use;
// each worker owns one.
type ArchetypeCache struct {
	lookup ArchetypeLookup
	stats  map[string]*Stats
}

func NewArchetypeCache(lookup ArchetypeLookup) *ArchetypeCache {
	return &ArchetypeCache{lookup: lookup, stats: make(map[string]*Stats)}
}

// Stats returns the resolved snapshot for archetype id.
func (c *ArchetypeCache) Stats(id string) (*Stats, error) {
	if st, ok := c.stats[id]; ok {
		return st, nil
	}
	a, ok := c.lookup.Archetype(id)
	if !ok {
		return nil, fmt.Errorf("archetype %q: %w", id, ErrUnknownArchetype)
	}
	st := ResolveStats(a)
	c.stats[id] = st
	return st, nil
}

// Invalidate forgets the snapshot for id; used when content is reloaded.
func (c *ArchetypeCache) Invalidate(id string) { delete(c.stats, id) }

// Reset forgets every snapshot.
func (c *ArchetypeCache) Reset() { clear(c.stats) }

// Len returns the number of resolved archetypes.
func (c *ArchetypeCache) Len() int { return len(c.stats) }
