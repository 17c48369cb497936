package resolve

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"github.com/nstehr/skirmish/dice"
	"github.com/nstehr/skirmish/model"
	"github.com/nstehr/skirmish/pathing"
)

// terrainSource is the DataError action name and condition source used for
// effects authored on map cells.
const terrainSource = "terrain"

// ApplyTerrain applies fired terrain effects to id in order. Damage is
// rolled from rng, or taken as the rounded mean when rng is nil. Nothing
// further applies once id drops to 0 HP.
func ApplyTerrain(s *model.State, id string, fired []pathing.Triggered, rng *rand.Rand) error {
	for _, t := range fired {
		if s.HP(id) <= 0 {
			return nil
		}
		e := t.Effect
		switch e.Kind {
		case "damage":
			pmf, err := dice.PMFOf(e.Dice)
			if err != nil {
				return &DataError{Action: terrainSource, Err: fmt.Errorf("cell %v: %w", t.Cell, err)}
			}
			pmf = defendAs(s.Stats(id), pmf, e.DamageType)
			dmg := int(math.Round(pmf.Mean()))
			if rng != nil {
				dmg = pmf.Sample(rng)
			}
			if _, err := s.ApplyHPDelta(id, -max(dmg, 0)); err != nil {
				return err
			}
		case "condition":
			if e.Condition == "" {
				return &DataError{Action: terrainSource, Err: fmt.Errorf("cell %v: condition effect without a condition", t.Cell)}
			}
			cond := model.Condition{Name: e.Condition, SourceID: terrainSource}
			if e.Duration > 0 {
				cond.ExpiresRound = s.Round() + e.Duration
			}
			if _, err := s.AddCondition(id, cond); err != nil {
				return err
			}
		case "teleport":
			if e.Teleport == nil {
				return &DataError{Action: terrainSource, Err: fmt.Errorf("cell %v: teleport without a destination", t.Cell)}
			}
			err := s.SetPosition(id, *e.Teleport)
			switch {
			case errors.Is(err, model.ErrOutOfBounds), errors.Is(err, model.ErrBlocked), errors.Is(err, model.ErrOccupied):
			case err != nil:
				return err
			}
		default:
			return &DataError{Action: terrainSource, Err: fmt.Errorf("cell %v: unknown terrain effect %q", t.Cell, e.Kind)}
		}
	}
	return nil
}
