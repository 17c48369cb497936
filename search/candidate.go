// Package search chooses what a combatant does with its turn. Every
// strategy draws from the same candidate space, built by an Evaluator, and
// works only on private clones of the combat state.
package search

import (
	"fmt"
	"strings"
	"time"

	"github.com/nstehr/skirmish/model"
	"github.com/nstehr/skirmish/resolve"
)

// Candidate is one turn segment: move to Destination, then use ActionID on
// Targets (or at Point). An empty ActionID is a plain move.
type Candidate struct {
	Destination model.Point
	Path        []model.Point
	PathCost    int
	Mode        model.MoveMode
	ActionID    string
	Targets     []string
	Point       *model.Point
}

// Intent is the target choice handed to the resolver.
func (c Candidate) Intent() resolve.Intent {
	return resolve.Intent{Targets: c.Targets, Point: c.Point}
}

// Moves reports whether the candidate changes position.
func (c Candidate) Moves() bool { return c.PathCost > 0 }

func (c Candidate) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%v", c.Destination)
	if c.ActionID == "" {
		return b.String()
	}
	fmt.Fprintf(&b, " %s", c.ActionID)
	if len(c.Targets) > 0 {
		fmt.Fprintf(&b, " -> %s", strings.Join(c.Targets, ","))
	}
	if c.Point != nil {
		fmt.Fprintf(&b, " @ %v", *c.Point)
	}
	return b.String()
}

// Scored is a candidate with its one-step score and the result that
// produced it.
type Scored struct {
	Candidate
	Score  float64
	Result resolve.Result
}

// Decision is what a strategy returns: a candidate to commit, or a pass
// that ends the turn.
type Decision struct {
	Pass      bool
	Candidate Candidate
	Score     float64
	Depth     int // deepest ply searched
	Nodes     int
}

func pass(nodes int) Decision { return Decision{Pass: true, Nodes: nodes} }

// Config bounds a search. Limits are checked cooperatively inside the
// search loops; a zero limit means unbounded.
type Config struct {
	TimeLimit       time.Duration
	MaxNodes        int
	MaxDepth        int
	MaxDestinations int
	Exploration     float64 // UCB1 constant
	Seed            int64
}

func DefaultConfig() Config {
	return Config{
		TimeLimit:       250 * time.Millisecond,
		MaxNodes:        5000,
		MaxDepth:        3,
		MaxDestinations: 24,
		Exploration:     1.4,
		Seed:            1,
	}
}

// limiter enforces Config's time and node budgets.
type limiter struct {
	deadline time.Time
	max      int
	nodes    int
}

func newLimiter(cfg Config) *limiter {
	l := &limiter{max: cfg.MaxNodes}
	if cfg.TimeLimit > 0 {
		l.deadline = time.Now().Add(cfg.TimeLimit)
	}
	return l
}

// tick counts one node and reports whether the search may continue.
func (l *limiter) tick() bool {
	l.nodes++
	return !l.spent()
}

func (l *limiter) spent() bool {
	if l.max > 0 && l.nodes >= l.max {
		return true
	}
	return !l.deadline.IsZero() && time.Now().After(l.deadline)
}
