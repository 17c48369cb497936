// Package resolve turns "actor performs action against targets" into a
// probabilistic result in five pure stages: spell-stat injection, target
// selection, modifier gathering, success determination and effect
// resolution. Nothing here mutates the combat state except the Apply
// functions, which the caller invokes explicitly.
package resolve

import (
	"sync"

	"github.com/nstehr/skirmish/action"
	"github.com/nstehr/skirmish/dice"
	"github.com/nstehr/skirmish/model"
	"github.com/nstehr/skirmish/rules"
)

// Options toggles optional rules.
type Options struct {
	// CriticalHits rolls the damage dice twice on a critical hit. Off by
	// default, in which case a critical is an ordinary hit.
	CriticalHits bool
}

// Intent is the caller's choice of targets: explicit combatant ids and,
// for point-anchored areas or aimed cones and lines, a point.
type Intent struct {
	Targets []string
	Point   *model.Point
}

// Resolver runs the pipeline. One value is built at startup and shared;
// it holds no per-encounter state.
type Resolver struct {
	Rules      *rules.Compiler
	Conditions ConditionRegistry
	Options    Options

	dice diceCache
}

// New builds a resolver. A nil registry means DefaultConditions.
func New(compiler *rules.Compiler, conditions ConditionRegistry, opts Options) *Resolver {
	if compiler == nil {
		compiler = rules.NewCompiler()
	}
	if conditions == nil {
		conditions = DefaultConditions()
	}
	return &Resolver{Rules: compiler, Conditions: conditions, Options: opts}
}

// Prepared is an action after stage 1 for one actor archetype, ready to be
// resolved against any number of targets.
type Prepared struct {
	Action *action.Action
}

// Prepare runs spell-stat injection and parses every dice expression the
// action uses, so later stages cannot hit a parse error.
func (r *Resolver) Prepare(a *action.Action, stats *model.Stats) (*Prepared, error) {
	injected, err := InjectSpellStats(a, stats)
	if err != nil {
		return nil, err
	}
	var perr error
	action.WalkEffects(injected.Effect, func(e action.Effect) bool {
		switch e := e.(type) {
		case *action.Damage:
			_, perr = r.dice.get(injected.ID, e.Dice)
		case *action.Heal:
			_, perr = r.dice.get(injected.ID, e.Dice)
		}
		return perr == nil
	})
	if perr != nil {
		return nil, perr
	}
	return &Prepared{Action: injected}, nil
}

// Resolve runs all five stages.
func (r *Resolver) Resolve(s *model.State, actorID string, a *action.Action, in Intent) (Result, error) {
	actor, ok := s.Get(actorID)
	if !ok {
		return Result{}, dataErr(a.ID, "unknown actor %s", actorID)
	}
	p, err := r.Prepare(a, actor.Stats)
	if err != nil {
		return Result{}, err
	}
	return r.ResolvePrepared(s, actorID, p, in)
}

// ResolvePrepared runs stages 2 to 5 for an already prepared action.
func (r *Resolver) ResolvePrepared(s *model.State, actorID string, p *Prepared, in Intent) (Result, error) {
	res := Result{ActionID: p.Action.ID, ActorID: actorID}
	targets := SelectTargets(s, actorID, p.Action, in)
	for _, id := range targets {
		out, err := r.ResolveTarget(s, actorID, p, id)
		if err != nil {
			return Result{}, err
		}
		res.Targets = append(res.Targets, out)
	}
	if len(targets) > 0 {
		res.Zones = ZoneActivations(s, actorID, p.Action, in, targets)
	}
	return res, nil
}

// ResolveTarget runs stages 3 to 5 for one target already known to be
// valid.
func (r *Resolver) ResolveTarget(s *model.State, actorID string, p *Prepared, targetID string) (TargetOutcome, error) {
	out, _, err := r.ResolveWith(s, actorID, p, targetID, nil)
	return out, err
}

// diceCache parses each dice expression once. Shared by every worker.
type diceCache struct {
	mu sync.RWMutex
	m  map[string]parsedDice
}

type parsedDice struct {
	full  dice.PMF
	extra dice.PMF // dice terms only, rolled again on a critical hit
}

func (c *diceCache) get(actionID, src string) (parsedDice, error) {
	c.mu.RLock()
	pd, ok := c.m[src]
	c.mu.RUnlock()
	if ok {
		return pd, nil
	}
	e, err := dice.Parse(src)
	if err != nil {
		return parsedDice{}, &DataError{Action: actionID, Err: err}
	}
	pd = parsedDice{full: e.PMF(), extra: e.DiceOnly().PMF()}
	c.mu.Lock()
	if c.m == nil {
		c.m = make(map[string]parsedDice)
	}
	c.m[src] = pd
	c.mu.Unlock()
	return pd, nil
}
