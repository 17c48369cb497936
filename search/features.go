package search

import (
	"math"

	"github.com/nstehr/skirmish/model"
)

// Feature vector sizes. A network scores the concatenation of a state
// vector and a candidate vector.
const (
	StateFeatureCount     = 8
	CandidateFeatureCount = 8
	FeatureCount          = StateFeatureCount + CandidateFeatureCount
)

// StateFeatures describes s from actorID's point of view:
//
//	0 actor HP fraction
//	1 allied HP fraction
//	2 hostile HP fraction
//	3 allies able to act, as a share of all combatants
//	4 hostiles able to act, as a share of all combatants
//	5 distance to the nearest hostile over the map's span
//	6 round, saturating at 10
//	7 actor conditions, saturating at 5
func StateFeatures(s *model.State, actorID string) []float64 {
	f := make([]float64, StateFeatureCount)
	actor, ok := s.Get(actorID)
	if !ok {
		return f
	}
	var allyHP, allyMax, enemyHP, enemyMax, allyAble, enemyAble float64
	for _, c := range s.Combatants() {
		able := 0.0
		if c.Alive() && !c.Incapacitated() {
			able = 1
		}
		if s.Hostile(actorID, c.ID) {
			enemyHP += float64(c.HP)
			enemyMax += float64(c.MaxHP)
			enemyAble += able
		} else {
			allyHP += float64(c.HP)
			allyMax += float64(c.MaxHP)
			allyAble += able
		}
	}
	n := float64(max(s.Len(), 1))
	f[0] = ratio(float64(actor.HP), float64(actor.MaxHP))
	f[1] = ratio(allyHP, allyMax)
	f[2] = ratio(enemyHP, enemyMax)
	f[3] = allyAble / n
	f[4] = enemyAble / n
	f[5] = spanFraction(s, nearestHostile(s, actorID, actor.Pos))
	f[6] = math.Min(float64(s.Round())/10, 1)
	f[7] = math.Min(float64(len(actor.Conditions))/5, 1)
	return f
}

// CandidateFeatures describes candidate c given its projection p:
//
//	0 path cost over the map's span
//	1 1 when the candidate uses an action
//	2 targets, saturating at 4
//	3 expected damage to hostiles over their total max HP
//	4 expected healing of allies over their total max HP
//	5 mean chance of the action landing
//	6 1 when the action spends resources
//	7 distance to the nearest hostile afterwards over the map's span
//
// A pass is the zero vector.
func CandidateFeatures(s *model.State, actorID string, c Candidate, p Projection) []float64 {
	f := make([]float64, CandidateFeatureCount)
	f[0] = spanFraction(s, c.PathCost)
	f[7] = spanFraction(p.State, nearestHostile(p.State, actorID, p.State.Position(actorID)))
	if c.ActionID == "" {
		return f
	}
	f[1] = 1
	f[2] = math.Min(float64(len(p.Result.Targets))/4, 1)

	var enemyMax, allyMax, dmg, heal, hit float64
	for _, cb := range s.Combatants() {
		if s.Hostile(actorID, cb.ID) {
			enemyMax += float64(cb.MaxHP)
		} else {
			allyMax += float64(cb.MaxHP)
		}
	}
	for _, t := range p.Result.Targets {
		hit += t.HitChance()
		switch {
		case s.Hostile(actorID, t.TargetID) && t.Expected < 0:
			dmg -= t.Expected
		case !s.Hostile(actorID, t.TargetID) && t.Expected > 0:
			heal += t.Expected
		}
	}
	f[3] = ratio(dmg, enemyMax)
	f[4] = ratio(heal, allyMax)
	if n := len(p.Result.Targets); n > 0 {
		f[5] = hit / float64(n)
	}
	if spentResources(s, p.State, actorID) {
		f[6] = 1
	}
	return f
}

func spanFraction(s *model.State, squares int) float64 {
	if squares == math.MaxInt {
		return 1
	}
	g := s.Grid()
	span := float64(max(g.Cols, g.Rows, 1))
	return math.Min(float64(squares)/span, 1)
}

func spentResources(before, after *model.State, id string) bool {
	a, _ := before.Get(id)
	for _, r := range a.Resources {
		if left, ok := after.Resource(id, r.Name); ok && left.Current < r.Current {
			return true
		}
	}
	return false
}
