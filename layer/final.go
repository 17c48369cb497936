package layer

import (
	"github.com/nstehr/skirmish/action"
	"github.com/nstehr/skirmish/model"
	"github.com/nstehr/skirmish/resolve"
)

// FinalKey is one concrete (actor, action, target) triple.
type FinalKey struct {
	Actor  string
	Action string
	Target string
}

type finalEntry struct {
	situation uint64
	outcome   resolve.TargetOutcome
}

// Final is the per-worker tier. It is not safe for concurrent use. An
// entry whose situation fingerprint no longer matches the state is
// recomputed on lookup, so explicit invalidation is only needed to free
// memory early or when a change is invisible to the fingerprint.
type Final struct {
	base     *Base
	resolver *resolve.Resolver
	entries  map[FinalKey]finalEntry

	Hits   int
	Misses int
	Static int // misses answered from the base entry's static figures
}

func NewFinal(base *Base, r *resolve.Resolver) *Final {
	return &Final{base: base, resolver: r, entries: make(map[FinalKey]finalEntry)}
}

// Outcome returns the situational outcome of actorID using a on targetID.
// The target must already have passed target selection.
func (f *Final) Outcome(s *model.State, actorID string, a *action.Action, targetID string) (resolve.TargetOutcome, error) {
	actor, ok := s.Get(actorID)
	if !ok {
		return resolve.TargetOutcome{}, &resolve.DataError{Action: a.ID, Err: model.ErrUnknownCombatant}
	}
	target, ok := s.Get(targetID)
	if !ok {
		return resolve.TargetOutcome{}, &resolve.DataError{Action: a.ID, Err: model.ErrUnknownCombatant}
	}
	key := FinalKey{Actor: actorID, Action: a.ID, Target: targetID}
	sit := situationOf(s, actor, target)
	if e, ok := f.entries[key]; ok && e.situation == sit {
		f.Hits++
		return e.outcome, nil
	}
	f.Misses++
	be, err := f.base.Entry(actor, target, a)
	if err != nil {
		return resolve.TargetOutcome{}, err
	}
	out, static, err := f.resolver.ResolveWith(s, actorID, be.Prepared, targetID, be.Static)
	if err != nil {
		return resolve.TargetOutcome{}, err
	}
	if static {
		f.Static++
	}
	f.entries[key] = finalEntry{situation: sit, outcome: out}
	return out, nil
}

// Resolve is resolve.Resolver.Resolve with every per-target outcome
// served from the cache.
func (f *Final) Resolve(s *model.State, actorID string, a *action.Action, in resolve.Intent) (resolve.Result, error) {
	res := resolve.Result{ActionID: a.ID, ActorID: actorID}
	targets := resolve.SelectTargets(s, actorID, a, in)
	for _, id := range targets {
		out, err := f.Outcome(s, actorID, a, id)
		if err != nil {
			return resolve.Result{}, err
		}
		res.Targets = append(res.Targets, out)
	}
	if len(targets) > 0 {
		res.Zones = resolve.ZoneActivations(s, actorID, a, in, targets)
	}
	return res, nil
}

// Has reports whether key is cached, stale or not.
func (f *Final) Has(key FinalKey) bool {
	_, ok := f.entries[key]
	return ok
}

// InvalidatePosition drops entries in which id is actor or target. Call
// it after id moves.
func (f *Final) InvalidatePosition(id string) { f.drop(id) }

// InvalidateParticipant drops id's entries after a condition, resource or
// HP change. Other pairs and the base layer are untouched.
func (f *Final) InvalidateParticipant(id string) { f.drop(id) }

func (f *Final) drop(id string) {
	for k := range f.entries {
		if k.Actor == id || k.Target == id {
			delete(f.entries, k)
		}
	}
}

func (f *Final) Reset() { clear(f.entries) }

func (f *Final) Len() int { return len(f.entries) }
