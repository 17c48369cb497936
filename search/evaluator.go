package search

import (
	"cmp"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"slices"
	"strings"

	"github.com/nstehr/skirmish/action"
	"github.com/nstehr/skirmish/layer"
	"github.com/nstehr/skirmish/model"
	"github.com/nstehr/skirmish/pathing"
	"github.com/nstehr/skirmish/resolve"
	"github.com/nstehr/skirmish/rules"
)

// ErrUnknownAction is wrapped in a resolve.DataError when a combatant
// lists an action the catalog does not define.
var ErrUnknownAction = errors.New("unknown action")

const (
	doctrineWeight  = 0.25
	conditionWeight = 0.05
	approachWeight  = 0.01
)

// ActionLookup finds action definitions by id.
type ActionLookup interface {
	Action(id string) (*action.Action, bool)
}

// Evaluator builds and scores candidates. It holds a worker's final layer
// and is not safe for concurrent use; give every worker its own.
type Evaluator struct {
	Actions  ActionLookup
	Rules    *rules.Compiler
	Doctrine *rules.Engine // nil adds no bias
	Final    *layer.Final
}

func NewEvaluator(actions ActionLookup, compiler *rules.Compiler, doctrine *rules.Engine, final *layer.Final) *Evaluator {
	if compiler == nil {
		compiler = rules.NewCompiler()
	}
	return &Evaluator{Actions: actions, Rules: compiler, Doctrine: doctrine, Final: final}
}

// Step is what applying one candidate did.
type Step struct {
	Budget  model.Budget
	Result  resolve.Result
	Fired   []pathing.Triggered
	Bias    float64 // doctrine bias at the moment of acting
	Stopped bool    // the actor went down before it could act
}

// Projection is a candidate applied to a private clone.
type Projection struct {
	Step
	State *model.State
}

// turnStart rebuilds the resource pools c had when its turn began from the
// pools left in the state and what b records as spent.
func turnStart(c model.Combatant, b model.Budget) model.Combatant {
	c.Resources = slices.Clone(c.Resources)
	for i := range c.Resources {
		c.Resources[i].Current += b.Spent(c.Resources[i].Name)
	}
	return c
}

func charge(c model.Combatant, b model.Budget, a *action.Action) (model.Budget, error) {
	start := turnStart(c, b)
	for _, rc := range a.Cost.Resources {
		var err error
		if b, err = b.SpendResource(start, rc.Name, rc.Amount); err != nil {
			return b, err
		}
	}
	return b.ConsumeSlot(a.Cost.Slot)
}

func (e *Evaluator) lookup(id string) (*action.Action, error) {
	a, ok := e.Actions.Action(id)
	if !ok {
		return nil, &resolve.DataError{Action: id, Err: ErrUnknownAction}
	}
	return a, nil
}

// Usable returns the actions actorID may still take this turn: not
// reactions, affordable from b, and with a precondition that holds. A
// precondition that fails to evaluate is a data error.
func (e *Evaluator) Usable(s *model.State, actorID string, b model.Budget) ([]*action.Action, error) {
	actor, ok := s.Get(actorID)
	if !ok || !actor.Alive() || actor.Incapacitated() {
		return nil, nil
	}
	var out []*action.Action
	for _, id := range actor.Actions {
		a, err := e.lookup(id)
		if err != nil {
			return nil, err
		}
		if a.Reaction() || !b.Has(a.Cost.Slot) {
			continue
		}
		if _, err := charge(actor, b, a); err != nil {
			continue
		}
		if a.Precondition != "" {
			ok, err := e.Rules.Eval(a.Precondition, rules.NewEnv(s, actorID, "").WithAction(a))
			if err != nil {
				return nil, &resolve.DataError{Action: a.ID, Err: err}
			}
			if !ok {
				continue
			}
		}
		out = append(out, a)
	}
	return out, nil
}

// Enumerate returns every candidate for actorID's next turn segment:
// reachable destinations crossed with usable actions and the target
// choices that select at least one target. Destinations are capped at
// cfg.MaxDestinations, nearest to a hostile first, and the current cell
// is always kept. Candidates come in a fixed order for a given state.
func (e *Evaluator) Enumerate(s *model.State, actorID string, b model.Budget, cfg Config) ([]Candidate, error) {
	actor, ok := s.Get(actorID)
	if !ok || !actor.Alive() || actor.Incapacitated() {
		return nil, nil
	}
	usable, err := e.Usable(s, actorID, b)
	if err != nil {
		return nil, err
	}
	mode := b.BestMode()
	reach := pathing.Reachable(s.Grid(), actor.Pos, b.Movement(mode), actor.Size, pathing.OccupancyFor(s, actorID))
	dests := rankDestinations(s, actorID, reach.Destinations(), cfg.MaxDestinations)

	proj := s.Clone()
	var out []Candidate
	for _, d := range dests {
		if err := proj.SetPosition(actorID, d); err != nil {
			continue
		}
		cost, _ := reach.Cost(d)
		base := Candidate{Destination: d, PathCost: cost, Mode: mode}
		if cost > 0 {
			base.Path = reach.PathTo(d)
			out = append(out, base)
		}
		for _, a := range usable {
			seen := make(map[string]bool)
			for _, in := range intents(proj, actorID, a) {
				targets := resolve.SelectTargets(proj, actorID, a, in)
				if len(targets) == 0 {
					continue
				}
				key := strings.Join(slices.Sorted(slices.Values(targets)), ",")
				if seen[key] {
					continue
				}
				seen[key] = true
				c := base
				c.ActionID = a.ID
				c.Targets = in.Targets
				if _, ok := a.Targeting.(*action.Multi); ok {
					c.Targets = targets
				}
				c.Point = in.Point
				out = append(out, c)
			}
		}
	}
	return out, nil
}

// rankDestinations keeps the start cell and the n-1 cells closest to a
// living hostile. Ties keep reach order (cheapest first).
func rankDestinations(s *model.State, actorID string, dests []model.Point, n int) []model.Point {
	if len(dests) == 0 {
		return nil
	}
	start, rest := dests[0], dests[1:]
	type ranked struct {
		p model.Point
		d int
	}
	rs := make([]ranked, len(rest))
	for i, p := range rest {
		rs[i] = ranked{p, nearestHostile(s, actorID, p)}
	}
	slices.SortStableFunc(rs, func(a, b ranked) int { return cmp.Compare(a.d, b.d) })
	out := []model.Point{start}
	for _, r := range rs {
		if n > 0 && len(out) >= n {
			break
		}
		out = append(out, r.p)
	}
	return out
}

// nearestHostile is the distance in squares from p to the closest living
// hostile, or MaxInt when there is none.
func nearestHostile(s *model.State, actorID string, p model.Point) int {
	best := math.MaxInt
	for _, c := range s.Combatants() {
		if c.Alive() && s.Hostile(actorID, c.ID) {
			best = min(best, model.Distance(p, c.Pos))
		}
	}
	return best
}

// intents lists the target choices worth trying for a from the actor's
// current cell.
func intents(s *model.State, actorID string, a *action.Action) []resolve.Intent {
	switch t := a.Targeting.(type) {
	case *action.Self:
		return []resolve.Intent{{}}
	case *action.Single, *action.Chain:
		return each(s)
	case *action.Multi:
		ids := make([]string, 0, s.Len())
		for _, c := range s.Combatants() {
			ids = append(ids, c.ID)
		}
		slices.SortStableFunc(ids, func(x, y string) int { return cmp.Compare(s.HP(x), s.HP(y)) })
		return []resolve.Intent{{Targets: ids}}
	case *action.Area:
		switch {
		case t.Origin == action.FromTarget:
			return each(s)
		case t.Origin == action.FromPoint:
			return points(s)
		case t.Shape == action.Cone || t.Shape == action.Line:
			return points(s)
		}
		return []resolve.Intent{{}}
	}
	panic(&resolve.DataError{Action: a.ID, Err: fmt.Errorf("unknown targeting %T", a.Targeting)})
}

func each(s *model.State) []resolve.Intent {
	out := make([]resolve.Intent, 0, s.Len())
	for _, c := range s.Combatants() {
		out = append(out, resolve.Intent{Targets: []string{c.ID}})
	}
	return out
}

func points(s *model.State) []resolve.Intent {
	out := make([]resolve.Intent, 0, s.Len())
	for _, c := range s.Combatants() {
		p := c.Pos
		out = append(out, resolve.Intent{Point: &p})
	}
	return out
}

// Apply commits c to s in place: movement with its terrain triggers, then
// the action's cost and outcome. Rolls are drawn from rng, or the
// expected outcome is applied when rng is nil. The returned budget is b
// less what c spent.
func (e *Evaluator) Apply(s *model.State, actorID string, b model.Budget, c Candidate, rng *rand.Rand) (Step, error) {
	commit := resolve.ApplyExpected
	if rng != nil {
		commit = func(s *model.State, r resolve.Result) error { return resolve.ApplySampled(s, r, rng) }
	}
	return e.apply(s, actorID, b, c, rng, commit)
}

func (e *Evaluator) apply(s *model.State, actorID string, b model.Budget, c Candidate, rng *rand.Rand, commit func(*model.State, resolve.Result) error) (Step, error) {
	st := Step{Budget: b}
	if c.PathCost > 0 {
		var err error
		if st.Budget, err = st.Budget.ConsumeMovement(c.Mode, c.PathCost); err != nil {
			return st, err
		}
		if err := s.SetPosition(actorID, c.Destination); err != nil {
			return st, fmt.Errorf("move %s: %w", actorID, err)
		}
		st.Fired = pathing.MoveTriggers(s.Grid(), c.Path)
		if err := resolve.ApplyTerrain(s, actorID, st.Fired, rng); err != nil {
			return st, err
		}
	}
	if c.ActionID == "" {
		return st, nil
	}
	actor, _ := s.Get(actorID)
	if !actor.Alive() || actor.Incapacitated() {
		st.Stopped = true
		return st, nil
	}
	a, err := e.lookup(c.ActionID)
	if err != nil {
		return st, err
	}
	if st.Budget, err = charge(actor, st.Budget, a); err != nil {
		return st, fmt.Errorf("%s %s: %w", actorID, a.ID, err)
	}
	for _, rc := range a.Cost.Resources {
		if err := s.SpendResource(actorID, rc.Name, rc.Amount); err != nil {
			return st, err
		}
	}
	first := ""
	if len(c.Targets) > 0 {
		first = c.Targets[0]
	}
	st.Bias = e.Doctrine.Bias(rules.NewEnv(s, actorID, first).WithAction(a))

	if st.Result, err = e.Final.Resolve(s, actorID, a, c.Intent()); err != nil {
		return st, err
	}
	return st, commit(s, st.Result)
}

// Project applies the expected outcome of c to a clone of s.
func (e *Evaluator) Project(s *model.State, actorID string, b model.Budget, c Candidate) (Projection, error) {
	next := s.Clone()
	st, err := e.Apply(next, actorID, b, c, nil)
	return Projection{Step: st, State: next}, err
}

// Evaluate scores s from actorID's side: the fraction of hostile hit
// points lost minus the fraction of allied hit points lost, in [-1, 1].
// Incapacitated combatants count as at least half lost and removed ones
// as wholly lost.
func Evaluate(s *model.State, actorID string) float64 {
	var enemyLost, enemyMax, allyLost, allyMax float64
	for _, c := range s.Combatants() {
		maxHP := float64(c.MaxHP)
		lost := float64(c.MaxHP - c.HP)
		switch {
		case c.Removed:
			lost = maxHP
		case c.Incapacitated():
			lost = max(lost, maxHP/2)
		}
		if s.Hostile(actorID, c.ID) {
			enemyLost += lost
			enemyMax += maxHP
		} else {
			allyLost += lost
			allyMax += maxHP
		}
	}
	return ratio(enemyLost, enemyMax) - ratio(allyLost, allyMax)
}

func ratio(a, b float64) float64 {
	if b == 0 {
		return 0
	}
	return a / b
}

// Score projects c and returns its one-step value: the change in Evaluate
// plus the doctrine bias and a small term for conditions put on enemies
// or lifted from allies. A plain move is worth how much closer it brings
// the actor to a hostile.
func (e *Evaluator) Score(s *model.State, actorID string, b model.Budget, c Candidate) (Scored, Projection, error) {
	p, err := e.Project(s, actorID, b, c)
	if err != nil {
		return Scored{}, p, err
	}
	return Scored{Candidate: c, Score: e.value(s, actorID, c, p), Result: p.Result}, p, nil
}

func (e *Evaluator) value(before *model.State, actorID string, c Candidate, p Projection) float64 {
	v := Evaluate(p.State, actorID) - Evaluate(before, actorID)
	if c.ActionID == "" {
		from := nearestHostile(before, actorID, before.Position(actorID))
		to := nearestHostile(p.State, actorID, p.State.Position(actorID))
		if from != math.MaxInt && to != math.MaxInt {
			v += approachWeight * float64(from-to)
		}
		return v
	}
	v += doctrineWeight * p.Bias
	for _, t := range p.Result.Targets {
		hostile := before.Hostile(actorID, t.TargetID)
		for _, cc := range t.Conditions {
			switch {
			case hostile && !cc.Remove:
				v += conditionWeight * cc.Probability
			case hostile:
				v -= conditionWeight * cc.Probability
			case cc.Remove:
				v += conditionWeight * cc.Probability
			}
		}
	}
	return v
}

// child is a scored candidate with the projection behind it.
type child struct {
	Scored
	proj Projection
}

// expand scores every candidate, best first. It stops early when lim runs
// out, always scoring at least one.
func (e *Evaluator) expand(s *model.State, actorID string, b model.Budget, cands []Candidate, lim *limiter) ([]child, error) {
	out := make([]child, 0, len(cands))
	for i, c := range cands {
		if i > 0 && lim.spent() {
			break
		}
		lim.tick()
		sc, p, err := e.Score(s, actorID, b, c)
		if err != nil {
			return nil, err
		}
		out = append(out, child{Scored: sc, proj: p})
	}
	slices.SortStableFunc(out, func(a, b child) int { return cmp.Compare(b.Score, a.Score) })
	return out, nil
}
