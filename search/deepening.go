package search

import (
	"slices"

	"github.com/nstehr/skirmish/model"
)

// Deepening searches the actor's own turn segments depth-first with
// iterative deepening: depth 1, 2, ... up to Config.MaxDepth while the
// limits allow. Each iteration tries the previous iteration's best moves
// first and skips moves that cannot beat the best found so far even if
// every later segment did as well as the best move here.
//
// Killers additionally tries, at each ply, the moves that last caused such
// a cutoff. Reductions searches moves late in the ordering one ply
// shallower and only re-searches at full depth when the reduced value
// would become the new best.
type Deepening struct {
	ev         *Evaluator
	Killers    bool
	Reductions bool
}

const (
	reduceAfter = 3 // moves tried at full depth before reducing
	reduceDepth = 3 // minimum remaining depth for a reduction
)

type deepening struct {
	*Deepening
	actorID string
	cfg     Config
	lim     *limiter
	pv      map[int]string
	killers map[int][]string

	reduced, researched int
}

func (d *Deepening) SelectNextAction(actorID string, s *model.State, b model.Budget, cfg Config) (Decision, error) {
	run := &deepening{
		Deepening: d,
		actorID:   actorID,
		cfg:       cfg,
		lim:       newLimiter(cfg),
		pv:        make(map[int]string),
		killers:   make(map[int][]string),
	}
	maxDepth := max(cfg.MaxDepth, 1)
	var (
		dec   = pass(0)
		found bool
	)
	for depth := 1; depth <= maxDepth; depth++ {
		v, best, complete, err := run.search(s, b, depth, 0)
		if err != nil {
			return pass(run.lim.nodes), err
		}
		if complete || !found {
			found = true
			if best == nil || v <= 0 {
				dec = pass(0)
			} else {
				dec = Decision{Candidate: *best, Score: v}
			}
			dec.Depth = depth
		}
		if !complete || run.lim.spent() {
			break
		}
	}
	dec.Nodes = run.lim.nodes
	return dec, nil
}

// search returns the best value reachable from s within depth segments,
// where passing is worth 0, and the move that achieves it. complete is
// false when the limits cut the node short.
func (r *deepening) search(s *model.State, b model.Budget, depth, ply int) (float64, *Candidate, bool, error) {
	cands, err := r.ev.Enumerate(s, r.actorID, b, r.cfg)
	if err != nil || len(cands) == 0 {
		return 0, nil, err == nil, err
	}
	children, err := r.ev.expand(s, r.actorID, b, cands, r.lim)
	if err != nil {
		return 0, nil, false, err
	}
	complete := len(children) == len(cands)
	r.order(children, ply)

	// The best immediate gain bounds what any later segment can add.
	top := 0.0
	for _, c := range children {
		top = max(top, c.Score)
	}
	var (
		best     float64
		bestMove *Candidate
		last     string
	)
	for i := range children {
		c := &children[i]
		v := c.Score
		if depth > 1 && v+top*float64(depth-1) <= best {
			if r.Killers && last != "" {
				r.remember(ply, last)
			}
			continue
		}
		if depth > 1 && !c.proj.Budget.Exhausted() && !c.proj.Stopped {
			if r.lim.spent() {
				complete = false
				break
			}
			sub := depth - 1
			if r.Reductions && i >= reduceAfter && depth >= reduceDepth {
				sub--
				r.reduced++
			}
			f, _, ok, err := r.search(c.proj.State, c.proj.Budget, sub, ply+1)
			if err != nil {
				return 0, nil, false, err
			}
			if sub < depth-1 && v+f > best {
				r.researched++
				f, _, ok, err = r.search(c.proj.State, c.proj.Budget, depth-1, ply+1)
				if err != nil {
					return 0, nil, false, err
				}
			}
			complete = complete && ok
			v += f
		}
		if v > best {
			best, bestMove, last = v, &c.Candidate, c.String()
		}
	}
	if bestMove != nil {
		r.pv[ply] = last
	}
	return best, bestMove, complete, nil
}

// order moves the principal variation move, then any killers, to the
// front; the rest keep their score order.
func (r *deepening) order(children []child, ply int) {
	front := []string{r.pv[ply]}
	if r.Killers {
		front = append(front, r.killers[ply]...)
	}
	rank := func(c child) int {
		if i := slices.Index(front, c.String()); i >= 0 {
			return i
		}
		return len(front)
	}
	slices.SortStableFunc(children, func(a, b child) int { return rank(a) - rank(b) })
}

// remember keeps the two most recent killers at ply.
func (r *deepening) remember(ply int, key string) {
	ks := r.killers[ply]
	if len(ks) > 0 && ks[0] == key {
		return
	}
	ks = append([]string{key}, ks...)
	if len(ks) > 2 {
		ks = ks[:2]
	}
	r.killers[ply] = ks
}
