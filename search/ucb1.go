package search

import (
	"math"
	"math/rand"

	"github.com/nstehr/skirmish/model"
)

// UCB1 treats each root candidate, and passing, as a bandit arm. A pull
// applies the arm with rolled dice, plays the rest of the round greedily
// with rolled dice and rewards the change in Evaluate mapped to [0, 1].
// Arms are pulled by mean + c*sqrt(ln N / n) until the limits run out and
// the arm with the best mean wins. Rolls come from Config.Seed.
type UCB1 struct {
	ev *Evaluator
}

type arm struct {
	cand   *Candidate // nil is pass
	pulls  int
	reward float64
}

func (a *arm) mean() float64 {
	if a.pulls == 0 {
		return 0
	}
	return a.reward / float64(a.pulls)
}

// maxPulls bounds the pulls per arm when the config sets no limits.
const maxPulls = 64

func (u *UCB1) SelectNextAction(actorID string, s *model.State, b model.Budget, cfg Config) (Decision, error) {
	lim := newLimiter(cfg)
	cands, err := u.ev.Enumerate(s, actorID, b, cfg)
	if err != nil || len(cands) == 0 {
		return pass(lim.nodes), err
	}
	arms := make([]*arm, 0, len(cands)+1)
	arms = append(arms, &arm{})
	for i := range cands {
		arms = append(arms, &arm{cand: &cands[i]})
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	c := cfg.Exploration
	if c <= 0 {
		c = math.Sqrt2
	}
	before := Evaluate(s, actorID)
	total := 0
	for {
		if total >= len(arms) && lim.spent() || total >= maxPulls*len(arms) {
			break
		}
		a := pick(arms, total, c)
		r, err := u.pull(s, actorID, b, a, cfg, lim, rng)
		if err != nil {
			return pass(lim.nodes), err
		}
		a.pulls++
		a.reward += (r - before + 2) / 4
		total++
	}

	best := arms[0]
	for _, a := range arms[1:] {
		if a.mean() > best.mean() {
			best = a
		}
	}
	if best.cand == nil {
		return Decision{Pass: true, Score: best.mean(), Depth: 1, Nodes: lim.nodes}, nil
	}
	return Decision{Candidate: *best.cand, Score: best.mean(), Depth: 1, Nodes: lim.nodes}, nil
}

// pick returns an unpulled arm, or the one with the highest upper
// confidence bound.
func pick(arms []*arm, total int, c float64) *arm {
	var best *arm
	bound := math.Inf(-1)
	for _, a := range arms {
		if a.pulls == 0 {
			return a
		}
		ucb := a.mean() + c*math.Sqrt(math.Log(float64(total))/float64(a.pulls))
		if ucb > bound {
			best, bound = a, ucb
		}
	}
	return best
}

// pull plays one sampled continuation of a and returns the leaf value.
func (u *UCB1) pull(s *model.State, actorID string, b model.Budget, a *arm, cfg Config, lim *limiter, rng *rand.Rand) (float64, error) {
	lim.tick()
	sim := s.Clone()
	if a.cand != nil {
		st, err := u.ev.Apply(sim, actorID, b, *a.cand, rng)
		if err != nil {
			return 0, err
		}
		b = st.Budget
	} else {
		b = model.Budget{}
	}
	end, err := u.ev.rollout(sim, actorID, b, 1, cfg, lim, rng)
	if err != nil {
		return 0, err
	}
	return Evaluate(end, actorID), nil
}
