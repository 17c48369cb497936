package rules

import (
	"fmt"
	"math"

	"gopkg.in/yaml.v3"
)

// Doctrine is a combat persona. Weights are 0.0–1.0; the compiler maps
// them to concrete rule biases and thresholds.
type Doctrine struct {
	Name             string  `json:"name" yaml:"name"`
	Rationale        string  `json:"rationale" yaml:"rationale"`
	Aggression       float64 `json:"aggression" yaml:"aggression"`
	FocusFire        float64 `json:"focus_fire" yaml:"focus_fire"`
	SelfPreservation float64 `json:"self_preservation" yaml:"self_preservation"`
	Support          float64 `json:"support" yaml:"support"`
	Thrift           float64 `json:"thrift" yaml:"thrift"`
	Teamwork         float64 `json:"teamwork" yaml:"teamwork"`
}

// DefaultDoctrine returns a balanced baseline doctrine.
func DefaultDoctrine() Doctrine {
	return Doctrine{
		Name:             "Balanced",
		Rationale:        "Default balanced tactics",
		Aggression:       0.5,
		FocusFire:        0.5,
		SelfPreservation: 0.5,
		Support:          0.5,
		Thrift:           0.3,
		Teamwork:         0.5,
	}
}

// ParseDoctrine reads a YAML doctrine. Weights left out keep their
// DefaultDoctrine values.
func ParseDoctrine(data []byte) (Doctrine, error) {
	d := DefaultDoctrine()
	if err := yaml.Unmarshal(data, &d); err != nil {
		return Doctrine{}, fmt.Errorf("parse doctrine: %w", err)
	}
	d.Validate()
	return d, nil
}

// Validate clamps all weights to their valid ranges.
func (d *Doctrine) Validate() {
	d.Aggression = clamp(d.Aggression, 0, 1)
	d.FocusFire = clamp(d.FocusFire, 0, 1)
	d.SelfPreservation = clamp(d.SelfPreservation, 0, 1)
	d.Support = clamp(d.Support, 0, 1)
	d.Thrift = clamp(d.Thrift, 0, 1)
	d.Teamwork = clamp(d.Teamwork, 0, 1)
}

// clampInt restricts v to [min, max].
func clampInt(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// lerp linearly interpolates between min and max by t (0–1), returning an int.
func lerp(min, max int, t float64) int {
	return min + int(math.Round(float64(max-min)*t))
}

// lerpf linearly interpolates between min and max by t (0–1), returning a float64.
func lerpf(min, max, t float64) float64 {
	return min + (max-min)*t
}

// clamp restricts v to [min, max].
func clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
