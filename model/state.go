package model

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
)

var (
	ErrUnknownCombatant     = errors.New("unknown combatant")
	ErrUnknownArchetype     = errors.New("unknown archetype")
	ErrDuplicateCombatant   = errors.New("duplicate combatant id")
	ErrOutOfBounds          = errors.New("position out of bounds")
	ErrBlocked              = errors.New("position blocked")
	ErrOccupied             = errors.New("position occupied")
	ErrInsufficientResource = errors.New("insufficient resource")
	ErrInvalidHP            = errors.New("hp outside [0, max]")
)

// Zone is an ambient area effect. Affects is judged relative to the
// source's group: "enemy", "ally" or "any".
type Zone struct {
	ID           string `json:"id"`
	Kind         string `json:"kind"` // cover, aura, hazard
	Center       Point  `json:"center"`
	Radius       int    `json:"radius"` // squares
	SourceID     string `json:"sourceId,omitempty"`
	Affects      string `json:"affects,omitempty"`
	Condition    string `json:"condition,omitempty"`
	Cover        int    `json:"cover,omitempty"`
	ActionID     string `json:"actionId,omitempty"`
	ExpiresRound int    `json:"expiresRound,omitempty"`
}

// Contains reports whether p lies inside the zone.
func (z Zone) Contains(p Point) bool { return Distance(z.Center, p) <= z.Radius }

// State is the combat state of one encounter. Combatants live in a single
// slice in initiative order and refer to each other by id, so Clone is a
// flat copy. The grid and alliance are shared and never written.
type State struct {
	combatants []Combatant
	turn       int
	round      int
	grid       *Grid
	zones      []Zone
	alliance   Alliance
}

// Snapshot is the serializable form of a State.
type Snapshot struct {
	Combatants []Combatant   `json:"combatants"`
	Turn       int           `json:"turn"`
	Round      int           `json:"round"`
	Grid       *Grid         `json:"grid"`
	Zones      []Zone        `json:"zones,omitempty"`
	Alliances  AllianceTable `json:"alliances,omitempty"`
}

// NewState builds a state at round 1, ordering combatants by initiative
// (highest first, ties by id). A nil alliance means SameGroup.
func NewState(grid *Grid, combatants []Combatant, alliance Alliance) (*State, error) {
	cs := make([]Combatant, len(combatants))
	for i, c := range combatants {
		cs[i] = c.clone()
	}
	slices.SortStableFunc(cs, func(a, b Combatant) int {
		if c := cmp.Compare(b.Initiative, a.Initiative); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	s := &State{combatants: cs, round: 1, grid: grid, alliance: alliance}
	if s.alliance == nil {
		s.alliance = SameGroup{}
	}
	if err := s.validate(); err != nil {
		return nil, err
	}
	if len(cs) > 0 && !cs[0].Alive() {
		s.turn = len(cs) - 1
		s.round = 0
		s.AdvanceTurn()
	}
	return s, nil
}

// FromSnapshot restores a state, keeping the snapshot's turn order.
func FromSnapshot(snap Snapshot, alliance Alliance) (*State, error) {
	if snap.Grid == nil {
		return nil, errors.New("snapshot: missing grid")
	}
	cs := make([]Combatant, len(snap.Combatants))
	for i, c := range snap.Combatants {
		cs[i] = c.clone()
	}
	if alliance == nil && len(snap.Alliances) > 0 {
		alliance = snap.Alliances
	}
	if alliance == nil {
		alliance = SameGroup{}
	}
	s := &State{
		combatants: cs,
		turn:       snap.Turn,
		round:      max(snap.Round, 1),
		grid:       snap.Grid,
		zones:      slices.Clone(snap.Zones),
		alliance:   alliance,
	}
	if len(cs) > 0 && (s.turn < 0 || s.turn >= len(cs)) {
		return nil, fmt.Errorf("snapshot: turn %d out of range", snap.Turn)
	}
	if err := s.validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Snapshot returns a serializable copy of the state.
func (s *State) Snapshot() Snapshot {
	cs := make([]Combatant, len(s.combatants))
	for i, c := range s.combatants {
		cs[i] = c.clone()
	}
	snap := Snapshot{Combatants: cs, Turn: s.turn, Round: s.round, Grid: s.grid, Zones: slices.Clone(s.zones)}
	if t, ok := s.alliance.(AllianceTable); ok {
		snap.Alliances = t
	}
	return snap
}

func (s *State) validate() error {
	seen := make(map[string]bool, len(s.combatants))
	cells := make(map[Point]string, len(s.combatants))
	for i := range s.combatants {
		c := &s.combatants[i]
		if c.ID == "" || seen[c.ID] {
			return fmt.Errorf("combatant %q: %w", c.ID, ErrDuplicateCombatant)
		}
		seen[c.ID] = true
		if c.MaxHP <= 0 || c.HP < 0 || c.HP > c.MaxHP {
			return fmt.Errorf("combatant %s: hp %d/%d: %w", c.ID, c.HP, c.MaxHP, ErrInvalidHP)
		}
		if c.Size == 0 {
			c.Size = SizeMedium
		}
		if err := s.checkCell(c.Pos, c.Size); err != nil {
			return fmt.Errorf("combatant %s: %w", c.ID, err)
		}
		if !c.Alive() {
			continue
		}
		if other, ok := cells[c.Pos]; ok {
			return fmt.Errorf("combatant %s shares %v with %s: %w", c.ID, c.Pos, other, ErrOccupied)
		}
		cells[c.Pos] = c.ID
	}
	return nil
}

func (s *State) checkCell(p Point, size Size) error {
	if !s.grid.InBounds(p) {
		return fmt.Errorf("%v: %w", p, ErrOutOfBounds)
	}
	if !s.grid.At(p).Admits(size) {
		return fmt.Errorf("%v: %w", p, ErrBlocked)
	}
	return nil
}

// Clone returns an independent copy for private projection during search.
func (s *State) Clone() *State {
	cs := make([]Combatant, len(s.combatants))
	for i, c := range s.combatants {
		cs[i] = c.clone()
	}
	return &State{
		combatants: cs,
		turn:       s.turn,
		round:      s.round,
		grid:       s.grid,
		zones:      slices.Clone(s.zones),
		alliance:   s.alliance,
	}
}

// Combatants returns the combatants in initiative order. The slice is the
// state's own storage and must not be modified.
func (s *State) Combatants() []Combatant { return s.combatants }

// Len returns the number of combatants.
func (s *State) Len() int { return len(s.combatants) }

// Index returns the slot of id, or -1.
func (s *State) Index(id string) int {
	for i := range s.combatants {
		if s.combatants[i].ID == id {
			return i
		}
	}
	return -1
}

// Get returns a copy of the combatant with the given id.
func (s *State) Get(id string) (Combatant, bool) {
	i := s.Index(id)
	if i < 0 {
		return Combatant{}, false
	}
	return s.combatants[i], true
}

// ref returns the combatant for id, panicking if it does not exist. Getters
// are only called with ids the caller took from this state.
func (s *State) ref(id string) *Combatant {
	i := s.Index(id)
	if i < 0 {
		panic(fmt.Errorf("%w: %s", ErrUnknownCombatant, id))
	}
	return &s.combatants[i]
}

func (s *State) lookup(id string) (*Combatant, error) {
	i := s.Index(id)
	if i < 0 {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCombatant, id)
	}
	return &s.combatants[i], nil
}

func (s *State) HP(id string) int         { return s.ref(id).HP }
func (s *State) MaxHP(id string) int      { return s.ref(id).MaxHP }
func (s *State) AC(id string) int         { return s.ref(id).AC }
func (s *State) Position(id string) Point { return s.ref(id).Pos }
func (s *State) Speed(id string) Speed    { return s.ref(id).Speed }
func (s *State) Group(id string) string   { return s.ref(id).Group }
func (s *State) Stats(id string) *Stats   { return s.ref(id).Stats }

// Conditions returns a copy of the active conditions of id.
func (s *State) Conditions(id string) []Condition {
	return slices.Clone(s.ref(id).Conditions)
}

func (s *State) HasCondition(id, name string) bool { return s.ref(id).HasCondition(name) }

func (s *State) Resource(id, name string) (Resource, bool) { return s.ref(id).Resource(name) }

// SetHP sets hit points, clamping to [0, max].
func (s *State) SetHP(id string, hp int) error {
	c, err := s.lookup(id)
	if err != nil {
		return err
	}
	c.HP = min(max(hp, 0), c.MaxHP)
	return nil
}

// ApplyHPDelta adds delta to hit points, clamping to [0, max], and returns
// the new value.
func (s *State) ApplyHPDelta(id string, delta int) (int, error) {
	c, err := s.lookup(id)
	if err != nil {
		return 0, err
	}
	c.HP = min(max(c.HP+delta, 0), c.MaxHP)
	return c.HP, nil
}

// SetPosition moves a combatant. Off-map, blocked, size-restricted and
// occupied cells are rejected and the state is left unchanged.
func (s *State) SetPosition(id string, p Point) error {
	c, err := s.lookup(id)
	if err != nil {
		return err
	}
	if err := s.checkCell(p, c.Size); err != nil {
		return err
	}
	if other, ok := s.Occupant(p); ok && other != id {
		return fmt.Errorf("%v held by %s: %w", p, other, ErrOccupied)
	}
	c.Pos = p
	return nil
}

// Occupant returns the id of the living combatant standing on p.
func (s *State) Occupant(p Point) (string, bool) {
	for i := range s.combatants {
		c := &s.combatants[i]
		if c.Alive() && c.Pos == p {
			return c.ID, true
		}
	}
	return "", false
}

// AddCondition applies a condition. An existing condition of the same name
// is refreshed: the larger magnitude and the later expiry win, and 0 (no
// expiry) beats any round. Immune combatants are left untouched and
// AddCondition reports false.
func (s *State) AddCondition(id string, cond Condition) (bool, error) {
	c, err := s.lookup(id)
	if err != nil {
		return false, err
	}
	if c.Stats != nil && c.Stats.ConditionImmunities[lower(cond.Name)] {
		return false, nil
	}
	i := indexNamed(c.Conditions, cond.Name)
	if i < 0 {
		c.Conditions = append(c.Conditions, cond)
		return true, nil
	}
	cur := &c.Conditions[i]
	cur.Magnitude = max(cur.Magnitude, cond.Magnitude)
	if cur.ExpiresRound != 0 && (cond.ExpiresRound == 0 || cond.ExpiresRound > cur.ExpiresRound) {
		cur.ExpiresRound = cond.ExpiresRound
	}
	if cond.SourceID != "" {
		cur.SourceID = cond.SourceID
	}
	return true, nil
}

// RemoveCondition drops the named condition. It reports whether one was
// present.
func (s *State) RemoveCondition(id, name string) (bool, error) {
	c, err := s.lookup(id)
	if err != nil {
		return false, err
	}
	i := indexNamed(c.Conditions, name)
	if i < 0 {
		return false, nil
	}
	c.Conditions = slices.Delete(c.Conditions, i, i+1)
	return true, nil
}

// SpendResource subtracts n from a resource. Spending more than is left is
// rejected with ErrInsufficientResource.
func (s *State) SpendResource(id, name string, n int) error {
	c, err := s.lookup(id)
	if err != nil {
		return err
	}
	i := indexNamed(c.Resources, name)
	if i < 0 || c.Resources[i].Current < n {
		return fmt.Errorf("%s %s: %w", id, name, ErrInsufficientResource)
	}
	c.Resources[i].Current -= n
	return nil
}

// RestoreResource adds n to a resource, clamping at its maximum.
func (s *State) RestoreResource(id, name string, n int) error {
	c, err := s.lookup(id)
	if err != nil {
		return err
	}
	i := indexNamed(c.Resources, name)
	if i < 0 {
		return fmt.Errorf("%s %s: %w", id, name, ErrInsufficientResource)
	}
	r := &c.Resources[i]
	r.Current = min(r.Current+n, r.Max)
	return nil
}

// SetGroup moves a combatant to another group (charm, betrayal).
func (s *State) SetGroup(id, group string) error {
	c, err := s.lookup(id)
	if err != nil {
		return err
	}
	c.Group = group
	return nil
}

// Remove takes a combatant out of the turn order without killing it
// (fled, banished).
func (s *State) Remove(id string) error {
	c, err := s.lookup(id)
	if err != nil {
		return err
	}
	c.Removed = true
	return nil
}

func (s *State) Grid() *Grid        { return s.grid }
func (s *State) Alliance() Alliance { return s.alliance }
func (s *State) Round() int         { return s.round }
func (s *State) TurnIndex() int     { return s.turn }
func (s *State) Zones() []Zone      { return s.zones }
func (s *State) AddZone(z Zone)     { s.zones = append(s.zones, z) }
func (s *State) Active() Combatant  { return s.combatants[s.turn] }
func (s *State) ActiveID() string   { return s.combatants[s.turn].ID }

// RemoveZone drops the zone with the given id.
func (s *State) RemoveZone(id string) {
	s.zones = slices.DeleteFunc(s.zones, func(z Zone) bool { return z.ID == id })
}

// Allied reports whether combatants a and b are on the same side.
func (s *State) Allied(a, b string) bool {
	return s.alliance.Allied(s.ref(a).Group, s.ref(b).Group)
}

// Hostile reports whether combatants a and b are on opposing sides.
func (s *State) Hostile(a, b string) bool { return a != b && !s.Allied(a, b) }

// AdvanceTurn passes the turn to the next living combatant in initiative
// order, skipping the downed and removed. Wrapping past the end starts a
// new round. Conditions on the new active combatant that expire this round
// are removed, as are expired zones when the round changes. It returns the
// new active id, or "" if nobody can act.
func (s *State) AdvanceTurn() string {
	n := len(s.combatants)
	if n == 0 {
		return ""
	}
	i := s.turn
	for range n {
		i = (i + 1) % n
		if i == 0 {
			s.round++
			s.expireZones()
		}
		c := &s.combatants[i]
		if !c.Alive() {
			continue
		}
		s.turn = i
		c.Conditions = slices.DeleteFunc(c.Conditions, func(cd Condition) bool {
			return cd.ExpiresRound > 0 && cd.ExpiresRound <= s.round
		})
		return c.ID
	}
	return ""
}

func (s *State) expireZones() {
	s.zones = slices.DeleteFunc(s.zones, func(z Zone) bool {
		return z.ExpiresRound > 0 && z.ExpiresRound <= s.round
	})
}

// IsCombatOver reports whether at most one side can still act, i.e. every
// member of one or more opposing sides is incapacitated.
func (s *State) IsCombatOver() bool {
	sides := s.Sides()
	if len(sides) < 2 {
		return true
	}
	for _, sd := range sides {
		if sd.Able == 0 {
			return true
		}
	}
	return false
}
