package search

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/nstehr/skirmish/model"
)

var (
	ErrUnknownStrategy = errors.New("unknown strategy")
	ErrNoNetwork       = errors.New("network strategy needs a network")
)

// Selector picks the next segment of a combatant's turn. Implementations
// search on clones only; s is never modified.
type Selector interface {
	SelectNextAction(actorID string, s *model.State, b model.Budget, cfg Config) (Decision, error)
}

// Factory builds a selector around a worker's evaluator.
type Factory func(ev *Evaluator) (Selector, error)

// Registry maps strategy names to factories. Build one at startup and
// pass it to whoever constructs selectors.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds a strategy. Names are unique.
func (r *Registry) Register(name string, f Factory) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.factories[name]; ok {
		return fmt.Errorf("strategy %q already registered", name)
	}
	r.factories[name] = f
	return nil
}

// New builds the named strategy for ev.
func (r *Registry) New(name string, ev *Evaluator) (Selector, error) {
	r.mu.RLock()
	f, ok := r.factories[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("strategy %q: %w", name, ErrUnknownStrategy)
	}
	return f(ev)
}

func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.factories[name]
	return ok
}

// Names lists the registered strategies in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for n := range r.factories {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

// DefaultRegistry registers every built-in strategy. The network strategy
// fails to build when net is nil.
func DefaultRegistry(net Network) *Registry {
	r := NewRegistry()
	builtin := map[string]Factory{
		"greedy":    func(ev *Evaluator) (Selector, error) { return &Greedy{ev: ev}, nil },
		"iterative": func(ev *Evaluator) (Selector, error) { return &Deepening{ev: ev}, nil },
		"killer":    func(ev *Evaluator) (Selector, error) { return &Deepening{ev: ev, Killers: true}, nil },
		"lmr":       func(ev *Evaluator) (Selector, error) { return &Deepening{ev: ev, Reductions: true}, nil },
		"minimax":   func(ev *Evaluator) (Selector, error) { return &Minimax{ev: ev}, nil },
		"ucb1":      func(ev *Evaluator) (Selector, error) { return &UCB1{ev: ev}, nil },
		"star1":     func(ev *Evaluator) (Selector, error) { return &Star1{ev: ev}, nil },
		"network": func(ev *Evaluator) (Selector, error) {
			if net == nil {
				return nil, ErrNoNetwork
			}
			return &Learned{ev: ev, Net: net}, nil
		},
	}
	for name, f := range builtin {
		// names are distinct literals
		_ = r.Register(name, f)
	}
	return r
}

// Greedy scores every immediate candidate once and takes the best.
type Greedy struct {
	ev *Evaluator
}

func NewGreedy(ev *Evaluator) *Greedy { return &Greedy{ev: ev} }

func (g *Greedy) SelectNextAction(actorID string, s *model.State, b model.Budget, cfg Config) (Decision, error) {
	lim := newLimiter(cfg)
	best, ok, err := g.ev.best(s, actorID, b, cfg, lim)
	if err != nil || !ok {
		return pass(lim.nodes), err
	}
	return Decision{Candidate: best.Candidate, Score: best.Score, Depth: 1, Nodes: lim.nodes}, nil
}

// best returns the highest scoring candidate if it beats passing.
func (e *Evaluator) best(s *model.State, actorID string, b model.Budget, cfg Config, lim *limiter) (child, bool, error) {
	cands, err := e.Enumerate(s, actorID, b, cfg)
	if err != nil || len(cands) == 0 {
		return child{}, false, err
	}
	children, err := e.expand(s, actorID, b, cands, lim)
	if err != nil {
		return child{}, false, err
	}
	if children[0].Score <= 0 {
		return child{}, false, nil
	}
	return children[0], true, nil
}
