package search

import (
	"cmp"
	"slices"

	"github.com/nstehr/skirmish/model"
	"github.com/nstehr/skirmish/resolve"
)

// Evaluate never leaves [lowest, highest], which bounds every chance node.
const (
	lowest  = -1.0
	highest = 1.0
)

// Star1 is expectimax over the roll of each candidate's first target. A
// chance node first probes an optimistic value from its branches without
// any follow-up search; if even that cannot beat the best candidate so far
// the node is pruned. Otherwise branches are expanded one at a time, most
// likely first, and the node is cut as soon as the unexpanded probability
// mass at the upper bound can no longer lift it above the window.
// Follow-up segments within Config.MaxDepth are chosen greedily.
type Star1 struct {
	ev *Evaluator
}

func (st *Star1) SelectNextAction(actorID string, s *model.State, b model.Budget, cfg Config) (Decision, error) {
	lim := newLimiter(cfg)
	cands, err := st.ev.Enumerate(s, actorID, b, cfg)
	if err != nil || len(cands) == 0 {
		return pass(lim.nodes), err
	}
	children, err := st.ev.expand(s, actorID, b, cands, lim)
	if err != nil {
		return pass(lim.nodes), err
	}
	depth := max(cfg.MaxDepth, 1)
	gain := max(children[0].Score, 0)

	root := Evaluate(s, actorID)
	alpha := root
	dec := pass(0)
	for i, c := range children {
		if i > 0 && lim.spent() {
			break
		}
		v, err := st.chance(s, actorID, b, c, alpha, depth, gain, cfg, lim)
		if err != nil {
			return pass(lim.nodes), err
		}
		if v > alpha {
			alpha = v
			dec = Decision{Candidate: c.Candidate, Score: v - root}
		}
	}
	dec.Depth = depth
	dec.Nodes = lim.nodes
	return dec, nil
}

type outcome struct {
	weight float64
	proj   Projection
}

// chance values candidate c. Values at or below alpha are upper bounds.
func (st *Star1) chance(s *model.State, actorID string, b model.Budget, c child, alpha float64, depth int, gain float64, cfg Config, lim *limiter) (float64, error) {
	if len(c.Result.Targets) == 0 || len(c.Result.Targets[0].Branches) < 2 {
		return st.follow(c.proj, actorID, depth-1, cfg, lim)
	}
	branches := slices.Clone(c.Result.Targets[0].Branches)
	slices.SortStableFunc(branches, func(x, y resolve.Branch) int { return cmp.Compare(y.Weight, x.Weight) })

	outs := make([]outcome, 0, len(branches))
	probe := 0.0
	for _, br := range branches {
		lim.tick()
		next := s.Clone()
		step, err := st.ev.apply(next, actorID, b, c.Candidate, nil, commitBranch(br))
		if err != nil {
			return 0, err
		}
		p := Projection{Step: step, State: next}
		outs = append(outs, outcome{weight: br.Weight, proj: p})
		probe += br.Weight * Evaluate(next, actorID)
	}
	if depth > 1 {
		probe += gain * float64(depth-1)
	}
	if min(probe, highest) <= alpha {
		return min(probe, highest), nil
	}

	sum, rest := 0.0, 1.0
	for _, o := range outs {
		v, err := st.follow(o.proj, actorID, depth-1, cfg, lim)
		if err != nil {
			return 0, err
		}
		sum += o.weight * v
		rest -= o.weight
		if hi := sum + max(rest, 0)*highest; hi <= alpha {
			return hi, nil
		}
		if lo := sum + max(rest, 0)*lowest; lo >= highest {
			return lo, nil
		}
	}
	return sum, nil
}

// follow plays up to depth more segments greedily from p and values the
// result.
func (st *Star1) follow(p Projection, actorID string, depth int, cfg Config, lim *limiter) (float64, error) {
	s, b := p.State, p.Budget
	for range depth {
		if b.Exhausted() || p.Stopped || lim.spent() {
			break
		}
		c, ok, err := st.ev.best(s, actorID, b, cfg, lim)
		if err != nil {
			return 0, err
		}
		if !ok {
			break
		}
		s, b = c.proj.State, c.proj.Budget
	}
	return Evaluate(s, actorID), nil
}

// commitBranch applies one branch of the first target and the expected
// outcome for everything else.
func commitBranch(br resolve.Branch) func(*model.State, resolve.Result) error {
	return func(s *model.State, r resolve.Result) error {
		if len(r.Targets) == 0 {
			return resolve.ApplyExpected(s, r)
		}
		first := r.Targets[0]
		fixed := resolve.TargetOutcome{
			TargetID:   first.TargetID,
			Expected:   br.Delta.Mean(),
			Conditions: br.Conditions,
			Forced:     br.Forced,
		}
		r.Targets = append([]resolve.TargetOutcome{fixed}, r.Targets[1:]...)
		return resolve.ApplyExpected(s, r)
	}
}
