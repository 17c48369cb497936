package model

import (
	"fmt"
	"slices"
	"strings"
)

// Size is a creature size category. Larger sizes compare greater.
type Size int

const (
	SizeTiny Size = iota + 1
	SizeSmall
	SizeMedium
	SizeLarge
	SizeHuge
	SizeGargantuan
)

var sizeNames = map[Size]string{
	SizeTiny:       "tiny",
	SizeSmall:      "small",
	SizeMedium:     "medium",
	SizeLarge:      "large",
	SizeHuge:       "huge",
	SizeGargantuan: "gargantuan",
}

func (s Size) String() string {
	if n, ok := sizeNames[s]; ok {
		return n
	}
	return fmt.Sprintf("size(%d)", int(s))
}

// ParseSize converts a size name to a Size.
func ParseSize(name string) (Size, error) {
	for s, n := range sizeNames {
		if strings.EqualFold(n, name) {
			return s, nil
		}
	}
	return 0, fmt.Errorf("unknown size %q", name)
}

func (s Size) MarshalText() ([]byte, error) {
	if s == 0 {
		return nil, nil
	}
	return []byte(s.String()), nil
}

func (s *Size) UnmarshalText(b []byte) error {
	if len(b) == 0 {
		*s = 0
		return nil
	}
	v, err := ParseSize(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// MoveMode is a way of moving across the grid.
type MoveMode int

const (
	Walk MoveMode = iota
	Fly
	Swim
	Climb
	Burrow
	numMoveModes
)

func (m MoveMode) String() string {
	return [...]string{"walk", "fly", "swim", "climb", "burrow"}[m]
}

// Speed is a per-mode speed profile in feet per turn.
type Speed struct {
	Walk   int `json:"walk" yaml:"walk"`
	Fly    int `json:"fly,omitempty" yaml:"fly"`
	Swim   int `json:"swim,omitempty" yaml:"swim"`
	Climb  int `json:"climb,omitempty" yaml:"climb"`
	Burrow int `json:"burrow,omitempty" yaml:"burrow"`
}

// Feet returns the speed for mode m.
func (s Speed) Feet(m MoveMode) int {
	switch m {
	case Walk:
		return s.Walk
	case Fly:
		return s.Fly
	case Swim:
		return s.Swim
	case Climb:
		return s.Climb
	case Burrow:
		return s.Burrow
	}
	return 0
}

// Cells returns the speed for mode m in grid squares.
func (s Speed) Cells(m MoveMode) int { return s.Feet(m) / FeetPerCell }

// Condition is a named status on a combatant. ExpiresRound 0 means the
// condition lasts until removed.
type Condition struct {
	Name         string `json:"name" yaml:"name"`
	Magnitude    int    `json:"magnitude,omitempty" yaml:"magnitude"`
	ExpiresRound int    `json:"expiresRound,omitempty" yaml:"expires_round"`
	SourceID     string `json:"sourceId,omitempty" yaml:"source_id"`
}

// Resource is a spendable counter such as spell slots or a recharge ability.
type Resource struct {
	Name    string `json:"name" yaml:"name"`
	Current int    `json:"current" yaml:"current"`
	Max     int    `json:"max" yaml:"max"`
}

// IncapacitatingConditions prevent a combatant from acting.
var IncapacitatingConditions = []string{
	"incapacitated", "paralyzed", "petrified", "stunned", "unconscious",
}

// Combatant is one participant in an encounter.
type Combatant struct {
	ID         string      `json:"id"`
	Name       string      `json:"name"`
	Archetype  string      `json:"archetype"`
	Group      string      `json:"group"`
	HP         int         `json:"hp"`
	MaxHP      int         `json:"maxHp"`
	AC         int         `json:"ac"`
	Pos        Point       `json:"pos"`
	Size       Size        `json:"size"`
	Speed      Speed       `json:"speed"`
	Initiative int         `json:"initiative"`
	Resources  []Resource  `json:"resources,omitempty"`
	Conditions []Condition `json:"conditions,omitempty"`
	Actions    []string    `json:"actions,omitempty"`
	Removed    bool        `json:"removed,omitempty"`

	// Stats is the resolved archetype snapshot, shared between combatants
	// of the same archetype.
	Stats *Stats `json:"-"`
}

// NewCombatant instantiates an archetype at full health.
func NewCombatant(id string, a *Archetype, stats *Stats, group string, pos Point) Combatant {
	return Combatant{
		ID:        id,
		Name:      a.Name,
		Archetype: a.ID,
		Group:     group,
		HP:        a.MaxHP,
		MaxHP:     a.MaxHP,
		AC:        a.AC,
		Pos:       pos,
		Size:      a.size(),
		Speed:     a.Speed,
		Resources: slices.Clone(a.Resources),
		Actions:   slices.Clone(a.Actions),
		Stats:     stats,
	}
}

// Alive reports whether the combatant is up and still in the turn order.
func (c *Combatant) Alive() bool { return c.HP > 0 && !c.Removed }

// Incapacitated reports whether the combatant cannot act: down, removed,
// or under an incapacitating condition.
func (c *Combatant) Incapacitated() bool {
	return !c.Alive() || containsAnyNamed(c.Conditions, IncapacitatingConditions)
}

// HasCondition reports whether the named condition is active.
func (c *Combatant) HasCondition(name string) bool {
	return containsNamed(c.Conditions, name)
}

// Condition returns the named condition if active.
func (c *Combatant) Condition(name string) (Condition, bool) {
	i := indexNamed(c.Conditions, name)
	if i < 0 {
		return Condition{}, false
	}
	return c.Conditions[i], true
}

// Resource returns the named resource if the combatant has one.
func (c *Combatant) Resource(name string) (Resource, bool) {
	i := indexNamed(c.Resources, name)
	if i < 0 {
		return Resource{}, false
	}
	return c.Resources[i], true
}

// HasAction reports whether id is in the combatant's action list.
func (c *Combatant) HasAction(id string) bool { return slices.Contains(c.Actions, id) }

// clone copies the mutable slices a combatant owns. Actions and Stats are
// never written after creation and stay shared.
func (c Combatant) clone() Combatant {
	c.Resources = slices.Clone(c.Resources)
	c.Conditions = slices.Clone(c.Conditions)
	return c
}
