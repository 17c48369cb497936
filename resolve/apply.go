package resolve

import (
	"errors"
	"math"
	"math/rand"

	"github.com/nstehr/skirmish/model"
)

// ApplyExpected commits the expected outcome of r to s: the rounded
// expected HP change, and every condition, forced move and zone at least
// as likely as not.
func ApplyExpected(s *model.State, r Result) error {
	for _, t := range r.Targets {
		if _, err := s.ApplyHPDelta(t.TargetID, int(math.Round(t.Expected))); err != nil {
			return err
		}
		for _, c := range t.Conditions {
			if c.Probability < 0.5 {
				continue
			}
			if err := applyCondition(s, t.TargetID, c); err != nil {
				return err
			}
		}
		for _, f := range t.Forced {
			if f.Probability >= 0.5 {
				if err := push(s, t.TargetID, f); err != nil {
					return err
				}
			}
		}
	}
	for _, z := range r.Zones {
		if z.Probability >= 0.5 {
			s.AddZone(z.Zone)
		}
	}
	return nil
}

// ApplySampled commits one concrete roll of r to s, drawing every random
// choice from rng so that a seeded rng replays exactly.
func ApplySampled(s *model.State, r Result, rng *rand.Rand) error {
	for _, t := range r.Targets {
		if len(t.Branches) == 0 {
			continue
		}
		b := pickBranch(t.Branches, rng.Float64())
		if _, err := s.ApplyHPDelta(t.TargetID, b.Delta.Sample(rng)); err != nil {
			return err
		}
		for _, c := range b.Conditions {
			if rng.Float64() >= c.Probability {
				continue
			}
			if err := applyCondition(s, t.TargetID, c); err != nil {
				return err
			}
		}
		for _, f := range b.Forced {
			if rng.Float64() < f.Probability {
				if err := push(s, t.TargetID, f); err != nil {
					return err
				}
			}
		}
	}
	for _, z := range r.Zones {
		if rng.Float64() < z.Probability {
			s.AddZone(z.Zone)
		}
	}
	return nil
}

func pickBranch(bs []Branch, u float64) Branch {
	acc := 0.0
	for _, b := range bs {
		acc += b.Weight
		if u < acc {
			return b
		}
	}
	return bs[len(bs)-1]
}

func applyCondition(s *model.State, id string, c ConditionChange) error {
	if c.Remove {
		_, err := s.RemoveCondition(id, c.Name)
		return err
	}
	_, err := s.AddCondition(id, model.Condition{
		Name:         c.Name,
		Magnitude:    c.Magnitude,
		ExpiresRound: c.ExpiresRound,
		SourceID:     c.SourceID,
	})
	return err
}

// push moves id square by square away from (or toward) f.From, stopping
// at the first cell it cannot enter.
func push(s *model.State, id string, f ForcedMove) error {
	pos := s.Position(id)
	dx, dy := sign(pos.X-f.From.X), sign(pos.Y-f.From.Y)
	if f.Toward {
		dx, dy = -dx, -dy
	}
	if dx == 0 && dy == 0 {
		return nil
	}
	for range f.Squares {
		next := pos.Add(dx, dy)
		if next == f.From {
			return nil
		}
		err := s.SetPosition(id, next)
		switch {
		case errors.Is(err, model.ErrOutOfBounds), errors.Is(err, model.ErrBlocked), errors.Is(err, model.ErrOccupied):
			return nil
		case err != nil:
			return err
		}
		pos = next
	}
	return nil
}

func sign(v int) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}
