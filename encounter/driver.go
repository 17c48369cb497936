// Package encounter plays whole encounters: the reference driver loop that
// hosts are expected to imitate, event detection between states, and
// difficulty estimation by repeated simulation.
package encounter

import (
	"context"
	"errors"
	"log/slog"
	"math/rand"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/nstehr/skirmish/model"
	"github.com/nstehr/skirmish/pathing"
	"github.com/nstehr/skirmish/resolve"
	"github.com/nstehr/skirmish/search"
)

// DefaultMaxRounds caps an encounter whose sides cannot finish each other.
const DefaultMaxRounds = 20

var tracer = otel.Tracer("github.com/nstehr/skirmish/encounter")

// Driver plays an encounter to the end with one selector for every
// combatant. Rolls come from Rand; a nil Rand applies expected outcomes.
type Driver struct {
	Evaluator *search.Evaluator
	Selector  search.Selector
	Config    search.Config
	Rand      *rand.Rand
	MaxRounds int
}

// Report summarizes a finished encounter.
type Report struct {
	ID       string
	Rounds   int
	Turns    int
	Winners  []string // groups of the only side still able to act
	TimedOut bool
	Skipped  int // actions and triggers dropped for malformed content
	Events   []Event
}

// Run plays s in place until at most one side can act or the round cap
// passes. Malformed content never aborts the run: the offending action or
// trigger is logged and skipped.
func (d *Driver) Run(ctx context.Context, s *model.State) (Report, error) {
	rep := Report{ID: uuid.NewString()}
	ctx, span := tracer.Start(ctx, "encounter.run")
	defer span.End()
	span.SetAttributes(attribute.String("encounter.id", rep.ID))

	maxRounds := d.MaxRounds
	if maxRounds <= 0 {
		maxRounds = DefaultMaxRounds
	}
	for !s.IsCombatOver() {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		if s.Round() > maxRounds {
			rep.TimedOut = true
			break
		}
		prev := s.Clone()
		if err := d.turn(ctx, s, s.ActiveID(), &rep); err != nil {
			span.RecordError(err)
			return rep, err
		}
		rep.Turns++
		next := s.AdvanceTurn()
		rep.Events = append(rep.Events, Diff(prev, s)...)
		if next == "" {
			break
		}
	}
	rep.Rounds = min(s.Round(), maxRounds)
	rep.Winners = winners(s)
	span.SetAttributes(
		attribute.Int("encounter.rounds", rep.Rounds),
		attribute.Int("encounter.turns", rep.Turns),
		attribute.StringSlice("encounter.winners", rep.Winners),
	)
	slog.Info("encounter finished",
		"id", rep.ID,
		"rounds", rep.Rounds,
		"turns", rep.Turns,
		"winners", rep.Winners,
		"timedOut", rep.TimedOut,
		"skipped", rep.Skipped)
	return rep, nil
}

func winners(s *model.State) []string {
	var out []string
	for _, sd := range s.Sides() {
		if sd.Able == 0 {
			continue
		}
		if out != nil {
			return nil
		}
		out = sd.Groups
	}
	return out
}

func (d *Driver) turn(ctx context.Context, s *model.State, id string, rep *Report) error {
	if err := d.terrain(s, id, model.OnStartTurn); err != nil {
		return d.skip(rep, id, "start-turn terrain", err)
	}
	actor, _ := s.Get(id)
	if actor.Incapacitated() {
		slog.Debug("turn skipped", "actor", id, "round", s.Round())
		return nil
	}
	t := search.NewTurn(id, model.NewBudget(actor))
	if err := d.play(ctx, t, s, rep); err != nil {
		if err := d.skip(rep, id, "turn", err); err != nil {
			return err
		}
	}
	if err := d.terrain(s, id, model.OnEndTurn); err != nil {
		return d.skip(rep, id, "end-turn terrain", err)
	}
	return nil
}

// play runs the turn machine. Data errors raised while selecting end the
// turn; those raised while committing only drop that action.
func (d *Driver) play(ctx context.Context, t *search.Turn, s *model.State, rep *Report) (err error) {
	defer func() {
		if r := recover(); r != nil {
			de, ok := r.(*resolve.DataError)
			if !ok {
				panic(r)
			}
			err = de
		}
	}()
	return t.Run(ctx, d.Selector, s, d.Config, func(dec search.Decision) (model.Budget, error) {
		return d.commit(s, t, dec.Candidate, rep)
	})
}

func (d *Driver) commit(s *model.State, t *search.Turn, c search.Candidate, rep *Report) (b model.Budget, err error) {
	defer func() {
		if r := recover(); r != nil {
			de, ok := r.(*resolve.DataError)
			if !ok {
				panic(r)
			}
			b, err = d.forfeit(t.Budget, c), d.skip(rep, t.ActorID, c.ActionID, de)
		}
	}()
	st, err := d.Evaluator.Apply(s, t.ActorID, t.Budget, c, d.Rand)
	if err != nil {
		var de *resolve.DataError
		if errors.As(err, &de) {
			return d.forfeit(st.Budget, c), d.skip(rep, t.ActorID, c.ActionID, err)
		}
		return st.Budget, err
	}
	final := d.Evaluator.Final
	if c.Moves() {
		final.InvalidatePosition(t.ActorID)
	}
	for _, o := range st.Result.Targets {
		final.InvalidateParticipant(o.TargetID)
	}
	if len(c.Targets) == 0 && c.ActionID != "" {
		final.InvalidateParticipant(t.ActorID)
	}
	if actor, _ := s.Get(t.ActorID); st.Stopped || actor.Incapacitated() {
		return model.Budget{}, nil
	}
	return st.Budget, nil
}

// forfeit is the budget after a skipped action: its slot is lost, and a
// free action ends the turn so the same failure is not chosen again.
func (d *Driver) forfeit(b model.Budget, c search.Candidate) model.Budget {
	a, ok := d.Evaluator.Actions.Action(c.ActionID)
	if !ok || a.Cost.Slot == model.SlotFree {
		return model.Budget{}
	}
	next, err := b.ConsumeSlot(a.Cost.Slot)
	if err != nil {
		return model.Budget{}
	}
	return next
}

// skip logs and swallows data errors; anything else is returned.
func (d *Driver) skip(rep *Report, actorID, stage string, err error) error {
	var de *resolve.DataError
	if !errors.As(err, &de) {
		return err
	}
	rep.Skipped++
	slog.Error("malformed content skipped", "actor", actorID, "stage", stage, "action", de.Action, "error", de.Err)
	return nil
}

func (d *Driver) terrain(s *model.State, id string, phase model.Trigger) error {
	fired := pathing.TurnTriggers(s.Grid(), s.Position(id), phase)
	if len(fired) == 0 {
		return nil
	}
	if err := resolve.ApplyTerrain(s, id, fired, d.Rand); err != nil {
		return err
	}
	d.Evaluator.Final.InvalidateParticipant(id)
	return nil
}
