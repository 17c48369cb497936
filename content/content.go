// Package content stores authored definitions (creatures, actions,
// terrain maps and encounters) and turns them into the typed values the
// rest of the engine reads. Stores keep raw YAML bodies; a Catalog is a
// decoded, validated snapshot built from one.
package content

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotFound is returned when a definition does not exist.
var ErrNotFound = errors.New("definition not found")

// Kind names a family of definitions.
type Kind string

const (
	KindCreature  Kind = "creature"
	KindAction    Kind = "action"
	KindTerrain   Kind = "terrain"
	KindEncounter Kind = "encounter"
)

// Kinds lists every kind in load order: terrain and actions before the
// creatures and encounters that refer to them.
var Kinds = []Kind{KindTerrain, KindAction, KindCreature, KindEncounter}

// ParseKind validates a kind name.
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown definition kind %q", s)
}

// Definition is one authored document in its stored form.
type Definition struct {
	Kind Kind
	ID   string
	Body []byte // YAML
}

// Repository is a keyed store of definitions.
type Repository interface {
	Get(ctx context.Context, kind Kind, id string) (Definition, error)
	GetAll(ctx context.Context, kind Kind) ([]Definition, error)
	Save(ctx context.Context, def Definition) error
}

func checkDefinition(def Definition) error {
	if _, err := ParseKind(string(def.Kind)); err != nil {
		return err
	}
	if def.ID == "" {
		return fmt.Errorf("%s: missing id", def.Kind)
	}
	return nil
}
