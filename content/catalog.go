package content

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"maps"
	"reflect"
	"slices"

	"github.com/nstehr/skirmish/action"
	"github.com/nstehr/skirmish/model"
)

// Catalog is an immutable, decoded snapshot of a repository. It serves
// both the action lookup search needs and the archetype lookup the state
// store needs. Reloading builds a new Catalog rather than mutating one.
type Catalog struct {
	archetypes map[string]*model.Archetype
	actions    map[string]*action.Action
	terrain    map[string]*model.TerrainMap
	encounters map[string]*Encounter
}

// Build decodes every definition in repo and checks cross references:
// creature actions must exist, encounter terrain and archetypes must exist.
func Build(ctx context.Context, repo Repository) (*Catalog, error) {
	c := &Catalog{
		archetypes: make(map[string]*model.Archetype),
		actions:    make(map[string]*action.Action),
		terrain:    make(map[string]*model.TerrainMap),
		encounters: make(map[string]*Encounter),
	}
	for _, kind := range Kinds {
		defs, err := repo.GetAll(ctx, kind)
		if err != nil {
			return nil, err
		}
		for _, def := range defs {
			if err := c.add(def); err != nil {
				return nil, err
			}
		}
	}
	if err := c.link(); err != nil {
		return nil, err
	}
	slog.Debug("content catalog built",
		"creatures", len(c.archetypes),
		"actions", len(c.actions),
		"terrain", len(c.terrain),
		"encounters", len(c.encounters))
	return c, nil
}

func (c *Catalog) add(def Definition) error {
	var id string
	switch def.Kind {
	case KindCreature:
		a, err := DecodeArchetype(def.Body)
		if err != nil {
			return err
		}
		id, c.archetypes[a.ID] = a.ID, a
	case KindAction:
		a, err := DecodeAction(def.Body)
		if err != nil {
			return err
		}
		id, c.actions[a.ID] = a.ID, a
	case KindTerrain:
		m, err := DecodeTerrain(def.Body)
		if err != nil {
			return err
		}
		id, c.terrain[m.ID] = m.ID, m
	case KindEncounter:
		e, err := DecodeEncounter(def.Body)
		if err != nil {
			return err
		}
		id, c.encounters[e.ID] = e.ID, e
	default:
		return fmt.Errorf("unknown definition kind %q", def.Kind)
	}
	if id != def.ID {
		return fmt.Errorf("%s %q: body declares id %q", def.Kind, def.ID, id)
	}
	return nil
}

func (c *Catalog) link() error {
	for _, a := range c.archetypes {
		for _, act := range a.Actions {
			if _, ok := c.actions[act]; !ok {
				return fmt.Errorf("creature %s: action %q: %w", a.ID, act, ErrNotFound)
			}
		}
	}
	for _, e := range c.encounters {
		if _, ok := c.terrain[e.Terrain]; !ok {
			return fmt.Errorf("encounter %s: terrain %q: %w", e.ID, e.Terrain, ErrNotFound)
		}
		for _, p := range e.Combatants {
			if _, ok := c.archetypes[p.Archetype]; !ok {
				return fmt.Errorf("encounter %s: creature %q: %w", e.ID, p.Archetype, ErrNotFound)
			}
		}
	}
	return nil
}

func (c *Catalog) Action(id string) (*action.Action, bool) {
	a, ok := c.actions[id]
	return a, ok
}

func (c *Catalog) Archetype(id string) (*model.Archetype, bool) {
	a, ok := c.archetypes[id]
	return a, ok
}

func (c *Catalog) Terrain(id string) (*model.TerrainMap, bool) {
	m, ok := c.terrain[id]
	return m, ok
}

func (c *Catalog) Encounter(id string) (*Encounter, bool) {
	e, ok := c.encounters[id]
	return e, ok
}

// Archetypes returns every creature sorted by id.
func (c *Catalog) Archetypes() []*model.Archetype {
	out := slices.Collect(maps.Values(c.archetypes))
	slices.SortFunc(out, func(a, b *model.Archetype) int { return cmp.Compare(a.ID, b.ID) })
	return out
}

// Actions returns every action id, sorted.
func (c *Catalog) Actions() []string {
	return slices.Sorted(maps.Keys(c.actions))
}

// Encounters returns every encounter id, sorted.
func (c *Catalog) Encounters() []string {
	return slices.Sorted(maps.Keys(c.encounters))
}

// State instantiates encounter id at round 1. Stats come from cache, which
// should be backed by this catalog.
func (c *Catalog) State(id string, cache *model.ArchetypeCache) (*model.State, error) {
	e, ok := c.encounters[id]
	if !ok {
		return nil, fmt.Errorf("encounter %q: %w", id, ErrNotFound)
	}
	grid, err := c.terrain[e.Terrain].Build()
	if err != nil {
		return nil, err
	}
	cs := make([]model.Combatant, 0, len(e.Combatants))
	for _, p := range e.Combatants {
		a := c.archetypes[p.Archetype]
		st, err := cache.Stats(a.ID)
		if err != nil {
			return nil, err
		}
		group := p.Group
		if group == "" {
			group = a.ID
		}
		cb := model.NewCombatant(p.ID, a, st, group, p.Pos)
		cb.Initiative = p.Initiative
		if p.HP > 0 {
			cb.HP = min(p.HP, cb.MaxHP)
		}
		cs = append(cs, cb)
	}
	var alliance model.Alliance
	if len(e.Alliances) > 0 {
		alliance = e.Alliances
	}
	s, err := model.NewState(grid, cs, alliance)
	if err != nil {
		return nil, fmt.Errorf("encounter %s: %w", id, err)
	}
	return s, nil
}

// Restore rebuilds a state sent by a host. Stats are attached from cache;
// when the snapshot carries no grid, the catalog terrain named terrain is
// built instead.
func (c *Catalog) Restore(snap model.Snapshot, terrain string, cache *model.ArchetypeCache) (*model.State, error) {
	if snap.Grid == nil {
		m, ok := c.terrain[terrain]
		if !ok {
			return nil, fmt.Errorf("terrain %q: %w", terrain, ErrNotFound)
		}
		grid, err := m.Build()
		if err != nil {
			return nil, err
		}
		snap.Grid = grid
	}
	cs := slices.Clone(snap.Combatants)
	for i := range cs {
		a, ok := c.archetypes[cs[i].Archetype]
		if !ok {
			return nil, fmt.Errorf("combatant %s archetype %q: %w", cs[i].ID, cs[i].Archetype, ErrNotFound)
		}
		st, err := cache.Stats(a.ID)
		if err != nil {
			return nil, err
		}
		fill(&cs[i], model.NewCombatant(cs[i].ID, a, st, cs[i].Group, cs[i].Pos))
	}
	snap.Combatants = cs
	return model.FromSnapshot(snap, nil)
}

// fill copies archetype defaults into the fields a host left out.
func fill(c *model.Combatant, def model.Combatant) {
	c.Stats = def.Stats
	if c.Name == "" {
		c.Name = def.Name
	}
	if c.MaxHP == 0 {
		c.MaxHP = def.MaxHP
	}
	if c.AC == 0 {
		c.AC = def.AC
	}
	if c.Size == 0 {
		c.Size = def.Size
	}
	if c.Speed == (model.Speed{}) {
		c.Speed = def.Speed
	}
	if c.Actions == nil {
		c.Actions = def.Actions
	}
	if c.Resources == nil {
		c.Resources = def.Resources
	}
}

// Stale lists the archetypes whose cached resolutions prev can no longer
// vouch for: those removed or redefined, and those using an action that
// was removed or redefined.
func (c *Catalog) Stale(prev *Catalog) []string {
	if prev == nil {
		return nil
	}
	changed := make(map[string]bool)
	for id, a := range prev.actions {
		if b, ok := c.actions[id]; !ok || !reflect.DeepEqual(a, b) {
			changed[id] = true
		}
	}
	var stale []string
	for id, a := range prev.archetypes {
		b, ok := c.archetypes[id]
		if !ok || !reflect.DeepEqual(a, b) || slices.ContainsFunc(a.Actions, func(act string) bool { return changed[act] }) {
			stale = append(stale, id)
		}
	}
	slices.Sort(stale)
	return stale
}
