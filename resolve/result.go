package resolve

import (
	"github.com/nstehr/skirmish/dice"
	"github.com/nstehr/skirmish/model"
)

// Outcome names one branch of a check.
type Outcome string

const (
	Miss       Outcome = "miss"
	Hit        Outcome = "hit"
	Crit       Outcome = "crit"
	Saved      Outcome = "saved"
	FailedSave Outcome = "failed-save"
	Succeeded  Outcome = "success"
	Failed     Outcome = "failure"
)

// Lands reports whether the action takes full effect on this branch.
func (o Outcome) Lands() bool {
	switch o {
	case Hit, Crit, FailedSave, Succeeded:
		return true
	}
	return false
}

// ConditionChange is a condition the action would add or remove.
// Probability is conditional on the branch inside a Branch and
// unconditional inside a TargetOutcome.
type ConditionChange struct {
	Name         string
	Remove       bool
	Probability  float64
	Magnitude    int
	ExpiresRound int
	SourceID     string
}

// ForcedMove pushes or pulls a target relative to From.
type ForcedMove struct {
	From        model.Point
	Squares     int
	Toward      bool
	Probability float64
}

// Branch is one outcome of the check and what follows from it.
type Branch struct {
	Outcome    Outcome
	Weight     float64
	Delta      dice.PMF // raw HP change before clamping
	Conditions []ConditionChange
	Forced     []ForcedMove
}

// TargetOutcome is the hypothetical effect of an action on one target.
type TargetOutcome struct {
	TargetID   string
	Chance     Chance
	Expected   float64  // expected HP change, clamped to [0, max]
	HP         dice.PMF // distribution of the clamped HP change
	Branches   []Branch
	Conditions []ConditionChange
	Forced     []ForcedMove
}

// HitChance is the probability the check succeeds, criticals included.
func (t TargetOutcome) HitChance() float64 { return t.Chance.Lands() }

// ZoneActivation is an area effect the action opens.
type ZoneActivation struct {
	Zone        model.Zone
	Probability float64
}

// Result describes what an action would do. It never changes the state;
// callers apply it with ApplyExpected or ApplySampled.
type Result struct {
	ActionID string
	ActorID  string
	Targets  []TargetOutcome
	Zones    []ZoneActivation
}

// Empty reports whether the action found nothing to affect.
func (r Result) Empty() bool { return len(r.Targets) == 0 && len(r.Zones) == 0 }

// Target returns the outcome for id.
func (r Result) Target(id string) (TargetOutcome, bool) {
	for _, t := range r.Targets {
		if t.TargetID == id {
			return t, true
		}
	}
	return TargetOutcome{}, false
}

// ExpectedDelta sums the expected HP change over every target.
func (r Result) ExpectedDelta() float64 {
	total := 0.0
	for _, t := range r.Targets {
		total += t.Expected
	}
	return total
}
