package search

import (
	"github.com/nstehr/skirmish/model"
)

// Minimax looks whole rounds ahead. Each root candidate is played out: the
// actor finishes its turn, then every combatant, friend or foe, takes
// Config.MaxDepth rounds of greedy turns, and the leaf is valued by
// Evaluate. Passing is played out the same way, so a candidate is only
// taken when it beats doing nothing.
type Minimax struct {
	ev *Evaluator
}

func (m *Minimax) SelectNextAction(actorID string, s *model.State, b model.Budget, cfg Config) (Decision, error) {
	lim := newLimiter(cfg)
	cands, err := m.ev.Enumerate(s, actorID, b, cfg)
	if err != nil || len(cands) == 0 {
		return pass(lim.nodes), err
	}
	children, err := m.ev.expand(s, actorID, b, cands, lim)
	if err != nil {
		return pass(lim.nodes), err
	}
	rounds := max(cfg.MaxDepth, 1)

	// A zero budget is exhausted: the actor does nothing more.
	idle, err := m.ev.rollout(s.Clone(), actorID, model.Budget{}, rounds, cfg, lim, nil)
	if err != nil {
		return pass(lim.nodes), err
	}
	passValue := Evaluate(idle, actorID)

	dec := pass(0)
	best := passValue
	for i, c := range children {
		if i > 0 && lim.spent() {
			break
		}
		// Moves that do not close in are not worth a playout.
		if c.ActionID == "" && c.Score <= 0 {
			continue
		}
		end, err := m.ev.rollout(c.proj.State, actorID, c.proj.Budget, rounds, cfg, lim, nil)
		if err != nil {
			return pass(lim.nodes), err
		}
		if v := Evaluate(end, actorID); v > best {
			best = v
			dec = Decision{Candidate: c.Candidate, Score: v - passValue}
		}
	}
	dec.Depth = rounds
	dec.Nodes = lim.nodes
	return dec, nil
}
