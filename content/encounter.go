package content

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/nstehr/skirmish/model"
)

// Encounter is an authored starting setup: a map and who stands where.
type Encounter struct {
	ID         string              `yaml:"id"`
	Name       string              `yaml:"name"`
	Terrain    string              `yaml:"terrain"`
	MaxRounds  int                 `yaml:"max_rounds"`
	Alliances  model.AllianceTable `yaml:"alliances"`
	Combatants []Placement         `yaml:"combatants"`
}

// Placement instantiates one archetype. Group defaults to the archetype id.
type Placement struct {
	ID         string      `yaml:"id"`
	Archetype  string      `yaml:"archetype"`
	Group      string      `yaml:"group"`
	Pos        model.Point `yaml:"pos"`
	Initiative int         `yaml:"initiative"`
	HP         int         `yaml:"hp"` // 0 means full
}

// DecodeEncounter parses one encounter definition. References are checked
// when the catalog is built.
func DecodeEncounter(body []byte) (*Encounter, error) {
	var e Encounter
	if err := yaml.Unmarshal(body, &e); err != nil {
		return nil, fmt.Errorf("decode encounter: %w", err)
	}
	if e.ID == "" {
		return nil, fmt.Errorf("encounter: missing id")
	}
	if e.Terrain == "" {
		return nil, fmt.Errorf("encounter %s: missing terrain", e.ID)
	}
	if len(e.Combatants) == 0 {
		return nil, fmt.Errorf("encounter %s: no combatants", e.ID)
	}
	for i, p := range e.Combatants {
		if p.ID == "" || p.Archetype == "" {
			return nil, fmt.Errorf("encounter %s: combatant %d: missing id or archetype", e.ID, i)
		}
	}
	return &e, nil
}
