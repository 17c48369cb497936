package content

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"
)

type memKey struct {
	kind Kind
	id   string
}

// MemoryStore is a Repository held in a map. Safe for concurrent use.
type MemoryStore struct {
	mu   sync.RWMutex
	defs map[memKey]Definition
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{defs: make(map[memKey]Definition)}
}

func (m *MemoryStore) Get(ctx context.Context, kind Kind, id string) (Definition, error) {
	if err := ctx.Err(); err != nil {
		return Definition{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	def, ok := m.defs[memKey{kind, id}]
	if !ok {
		return Definition{}, fmt.Errorf("%s %q: %w", kind, id, ErrNotFound)
	}
	return def, nil
}

// GetAll returns every definition of kind sorted by id.
func (m *MemoryStore) GetAll(ctx context.Context, kind Kind) ([]Definition, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	var out []Definition
	for k, def := range m.defs {
		if k.kind == kind {
			out = append(out, def)
		}
	}
	m.mu.RUnlock()
	slices.SortFunc(out, func(a, b Definition) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}

// Save inserts or replaces a definition.
func (m *MemoryStore) Save(ctx context.Context, def Definition) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := checkDefinition(def); err != nil {
		return err
	}
	def.Body = slices.Clone(def.Body)
	m.mu.Lock()
	m.defs[memKey{def.Kind, def.ID}] = def
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.defs)
}
