package search

import (
	"math/rand"

	"github.com/nstehr/skirmish/model"
)

// maxSegments caps the segments of one turn so that free actions cannot
// loop forever.
const maxSegments = 8

// finishTurn plays the rest of id's turn greedily and returns the state it
// ends in. s is consumed: it may be modified or replaced. With a nil rng
// every segment applies its expected outcome.
func (e *Evaluator) finishTurn(s *model.State, id string, b model.Budget, cfg Config, lim *limiter, rng *rand.Rand) (*model.State, error) {
	for i := 0; i < maxSegments && !b.Exhausted(); i++ {
		if i > 0 && lim.spent() {
			break
		}
		c, ok, err := e.best(s, id, b, cfg, lim)
		if err != nil || !ok {
			return s, err
		}
		if rng == nil {
			s, b = c.proj.State, c.proj.Budget
			continue
		}
		st, err := e.Apply(s, id, b, c.Candidate, rng)
		if err != nil {
			return s, err
		}
		b = st.Budget
	}
	return s, nil
}

// rollout finishes actorID's turn on s, then plays every combatant's turn
// greedily for rounds more rounds or until the fight is decided.
func (e *Evaluator) rollout(s *model.State, actorID string, b model.Budget, rounds int, cfg Config, lim *limiter, rng *rand.Rand) (*model.State, error) {
	s, err := e.finishTurn(s, actorID, b, cfg, lim, rng)
	if err != nil {
		return s, err
	}
	for range rounds * s.Len() {
		if s.IsCombatOver() || lim.spent() {
			break
		}
		id := s.AdvanceTurn()
		if id == "" {
			break
		}
		c, _ := s.Get(id)
		if c.Incapacitated() {
			continue
		}
		if s, err = e.finishTurn(s, id, model.NewBudget(c), cfg, lim, rng); err != nil {
			return s, err
		}
	}
	return s, nil
}
