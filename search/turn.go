package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/looplab/fsm"

	"github.com/nstehr/skirmish/model"
)

// Turn phases.
const (
	PhaseAvailable   = "available"
	PhaseEnumerating = "enumerating"
	PhaseScoring     = "scoring"
	PhaseExpanding   = "expanding"
	PhaseCommitted   = "committed"
	PhaseExhausted   = "exhausted"
)

// Turn runs one combatant's turn as a state machine:
//
//	available -> enumerating -> scoring -> (expanding) -> committed -> available ...
//
// ending in exhausted when the budget runs out, the selector passes or the
// segment cap is hit.
type Turn struct {
	ActorID string
	Budget  model.Budget

	fsm   *fsm.FSM
	trace []string
	log   []Decision
}

func NewTurn(actorID string, b model.Budget) *Turn {
	t := &Turn{ActorID: actorID, Budget: b, trace: []string{PhaseAvailable}}
	t.fsm = fsm.NewFSM(
		PhaseAvailable,
		fsm.Events{
			{Name: "enumerate", Src: []string{PhaseAvailable}, Dst: PhaseEnumerating},
			{Name: "score", Src: []string{PhaseEnumerating}, Dst: PhaseScoring},
			{Name: "expand", Src: []string{PhaseScoring}, Dst: PhaseExpanding},
			{Name: "commit", Src: []string{PhaseScoring, PhaseExpanding}, Dst: PhaseCommitted},
			{Name: "next", Src: []string{PhaseCommitted}, Dst: PhaseAvailable},
			{Name: "pass", Src: []string{PhaseEnumerating, PhaseScoring, PhaseExpanding}, Dst: PhaseExhausted},
			{Name: "exhaust", Src: []string{PhaseAvailable, PhaseCommitted}, Dst: PhaseExhausted},
		},
		fsm.Callbacks{
			"enter_state": func(_ context.Context, e *fsm.Event) {
				t.trace = append(t.trace, e.Dst)
				slog.Debug("turn phase", "actor", t.ActorID, "event", e.Event, "from", e.Src, "to", e.Dst)
			},
		},
	)
	return t
}

// Phase returns the current phase.
func (t *Turn) Phase() string { return t.fsm.Current() }

// Trace lists every phase entered, starting with available.
func (t *Turn) Trace() []string { return t.trace }

// Decisions lists what was committed, in order.
func (t *Turn) Decisions() []Decision { return t.log }

// Done reports whether the turn has ended.
func (t *Turn) Done() bool { return t.fsm.Is(PhaseExhausted) }

func (t *Turn) fire(ctx context.Context, event string) error {
	if err := t.fsm.Event(ctx, event); err != nil {
		var none fsm.NoTransitionError
		if errors.As(err, &none) {
			return nil
		}
		return fmt.Errorf("turn %s: %s: %w", t.ActorID, event, err)
	}
	return nil
}

// Commit applies a decision to the real state and returns the budget left.
type Commit func(d Decision) (model.Budget, error)

// Run asks sel for segments until the turn ends, handing each non-pass
// decision to commit. s must reflect every earlier commit when the next
// segment is selected.
func (t *Turn) Run(ctx context.Context, sel Selector, s *model.State, cfg Config, commit Commit) error {
	for segment := 0; !t.Done(); segment++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if t.Budget.Exhausted() || segment >= maxSegments {
			return t.fire(ctx, "exhaust")
		}
		if err := t.fire(ctx, "enumerate"); err != nil {
			return err
		}
		d, err := sel.SelectNextAction(t.ActorID, s, t.Budget, cfg)
		if err != nil {
			return err
		}
		if d.Pass {
			return t.fire(ctx, "pass")
		}
		if err := t.fire(ctx, "score"); err != nil {
			return err
		}
		if d.Depth > 1 {
			if err := t.fire(ctx, "expand"); err != nil {
				return err
			}
		}
		if err := t.fire(ctx, "commit"); err != nil {
			return err
		}
		slog.Debug("turn segment committed", "actor", t.ActorID, "candidate", d.Candidate.String(), "score", d.Score, "nodes", d.Nodes)
		if t.Budget, err = commit(d); err != nil {
			return err
		}
		t.log = append(t.log, d)
		if err := t.fire(ctx, "next"); err != nil {
			return err
		}
	}
	return nil
}

// Plan runs a whole turn for actorID on a clone of s, committing expected
// outcomes, and returns the decisions in order. s is not modified.
func Plan(ctx context.Context, ev *Evaluator, sel Selector, s *model.State, actorID string, cfg Config) ([]Decision, error) {
	sim := s.Clone()
	actor, ok := sim.Get(actorID)
	if !ok {
		return nil, fmt.Errorf("plan %s: %w", actorID, model.ErrUnknownCombatant)
	}
	t := NewTurn(actorID, model.NewBudget(actor))
	err := t.Run(ctx, sel, sim, cfg, func(d Decision) (model.Budget, error) {
		st, err := ev.Apply(sim, actorID, t.Budget, d.Candidate, nil)
		return st.Budget, err
	})
	return t.Decisions(), err
}
