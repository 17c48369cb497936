package rules

import (
	"github.com/nstehr/skirmish/action"
	"github.com/nstehr/skirmish/model"
)

// Env is the environment every expression runs against: the acting
// combatant, an optional target, the action being considered and helper
// methods over the encounter. Expressions read it, never write it.
type Env struct {
	Actor  View
	Target View
	Action ActionView
	Round  int

	state *model.State
}

// View exposes one combatant to expressions.
type View struct {
	ID        string
	Name      string
	Archetype string
	Group     string
	HP        int
	MaxHP     int
	AC        int
	X         int
	Y         int
	CR        float64
	Present   bool

	c model.Combatant
}

// ActionView exposes the action under consideration.
type ActionView struct {
	ID           string
	Spell        bool
	Harmful      bool
	Heal         bool
	Area         bool
	Ranged       bool
	UsesResource bool
}

// NewEnv builds an environment for actorID acting on targetID. An empty or
// unknown targetID leaves Target zero with Present false.
func NewEnv(s *model.State, actorID, targetID string) Env {
	env := Env{Round: s.Round(), state: s}
	if c, ok := s.Get(actorID); ok {
		env.Actor = viewOf(c)
	}
	if c, ok := s.Get(targetID); ok && targetID != "" {
		env.Target = viewOf(c)
	}
	return env
}

// WithAction returns a copy of env describing a.
func (e Env) WithAction(a *action.Action) Env {
	e.Action = ViewAction(a)
	return e
}

// ViewAction summarizes an action for expressions.
func ViewAction(a *action.Action) ActionView {
	v := ActionView{
		ID:           a.ID,
		Spell:        a.Spell,
		Harmful:      action.Harmful(a.Effect),
		UsesResource: len(a.Cost.Resources) > 0,
	}
	action.WalkEffects(a.Effect, func(e action.Effect) bool {
		if _, ok := e.(*action.Heal); ok {
			v.Heal = true
		}
		return true
	})
	if _, ok := a.Targeting.(*action.Area); ok {
		v.Area = true
	}
	if r, ok := a.Check.(*action.AttackRoll); ok {
		v.Ranged = r.Ranged
	}
	return v
}

func viewOf(c model.Combatant) View {
	v := View{
		ID:        c.ID,
		Name:      c.Name,
		Archetype: c.Archetype,
		Group:     c.Group,
		HP:        c.HP,
		MaxHP:     c.MaxHP,
		AC:        c.AC,
		X:         c.Pos.X,
		Y:         c.Pos.Y,
		Present:   true,
		c:         c,
	}
	if c.Stats != nil {
		v.CR = c.Stats.CR
	}
	return v
}

func (v View) HasCondition(name string) bool { return v.Present && v.c.HasCondition(name) }
func (v View) HasTrait(name string) bool     { return v.Present && v.c.Stats.HasTrait(name) }
func (v View) Incapacitated() bool           { return v.Present && v.c.Incapacitated() }

// HPFraction returns current over maximum hit points; 0 for no combatant.
func (v View) HPFraction() float64 {
	if v.MaxHP <= 0 {
		return 0
	}
	return float64(v.HP) / float64(v.MaxHP)
}

// Bloodied reports whether the combatant is at half hit points or below.
func (v View) Bloodied() bool { return v.Present && v.HP*2 <= v.MaxHP }

// Resource returns what is left of the named resource.
func (v View) Resource(name string) int {
	r, _ := v.c.Resource(name)
	return r.Current
}

// Distance returns the distance between actor and target in feet.
func (e Env) Distance() int {
	if !e.Actor.Present || !e.Target.Present {
		return 0
	}
	return model.DistanceFeet(e.Actor.c.Pos, e.Target.c.Pos)
}

// AlliesAdjacentToTarget counts the actor's able allies, the actor
// excluded, standing next to the target (pack tactics).
func (e Env) AlliesAdjacentToTarget() int {
	if e.state == nil || !e.Target.Present {
		return 0
	}
	n := 0
	for _, c := range e.state.Combatants() {
		if c.ID == e.Actor.ID || c.ID == e.Target.ID || c.Incapacitated() {
			continue
		}
		if e.state.Allied(e.Actor.ID, c.ID) && model.Adjacent(c.Pos, e.Target.c.Pos) {
			n++
		}
	}
	return n
}

// EnemiesAdjacentToActor counts living hostiles next to the actor.
func (e Env) EnemiesAdjacentToActor() int {
	if e.state == nil || !e.Actor.Present {
		return 0
	}
	n := 0
	for _, c := range e.state.Combatants() {
		if c.Alive() && e.state.Hostile(e.Actor.ID, c.ID) && model.Adjacent(c.Pos, e.Actor.c.Pos) {
			n++
		}
	}
	return n
}

// LivingEnemies counts hostiles to the actor still standing.
func (e Env) LivingEnemies() int { return e.count(true) }

// LivingAllies counts the actor's side still standing, the actor included.
func (e Env) LivingAllies() int { return e.count(false) }

func (e Env) count(hostile bool) int {
	if e.state == nil || !e.Actor.Present {
		return 0
	}
	n := 0
	for _, c := range e.state.Combatants() {
		if c.Alive() && e.state.Hostile(e.Actor.ID, c.ID) == hostile {
			n++
		}
	}
	return n
}

func (e Env) ActorHasCondition(name string) bool  { return e.Actor.HasCondition(name) }
func (e Env) TargetHasCondition(name string) bool { return e.Target.HasCondition(name) }
func (e Env) ActorHPFraction() float64            { return e.Actor.HPFraction() }
func (e Env) TargetHPFraction() float64           { return e.Target.HPFraction() }
func (e Env) TargetBloodied() bool                { return e.Target.Bloodied() }
func (e Env) TargetIsSelf() bool                  { return e.Target.Present && e.Target.ID == e.Actor.ID }
