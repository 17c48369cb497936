package pathing

import "github.com/nstehr/skirmish/model"

// Triggered is a terrain effect fired at a cell. Nothing is applied; the
// caller decides what to do with it.
type Triggered struct {
	Cell   model.Point
	Effect model.TerrainEffect
}

func cellEffects(grid *model.Grid, p model.Point, when model.Trigger, out []Triggered) []Triggered {
	for _, e := range grid.At(p).Effects {
		if e.Trigger == when {
			out = append(out, Triggered{Cell: p, Effect: e})
		}
	}
	return out
}

// StepTriggers returns the effects fired by moving from a to b: a's
// on-leave effects followed by b's on-enter effects.
func StepTriggers(grid *model.Grid, a, b model.Point) []Triggered {
	out := cellEffects(grid, a, model.OnLeave, nil)
	return cellEffects(grid, b, model.OnEnter, out)
}

// MoveTriggers returns the effects fired along path in order. A teleport
// ends the walk since the rest of the path no longer applies.
func MoveTriggers(grid *model.Grid, path []model.Point) []Triggered {
	var out []Triggered
	for i := 0; i+1 < len(path); i++ {
		step := StepTriggers(grid, path[i], path[i+1])
		for _, t := range step {
			out = append(out, t)
			if t.Effect.Kind == "teleport" {
				return out
			}
		}
	}
	return out
}

// TurnTriggers returns the effects of cell for a turn boundary;
// phase is OnStartTurn or OnEndTurn.
func TurnTriggers(grid *model.Grid, cell model.Point, phase model.Trigger) []Triggered {
	return cellEffects(grid, cell, phase, nil)
}
