// Package layer memoizes resolution in two tiers. The base layer holds
// quantities that depend only on archetypes and is shared by every worker;
// the final layer folds in one concrete pair's situation and belongs to a
// single worker.
package layer

import (
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/nstehr/skirmish/action"
	"github.com/nstehr/skirmish/model"
	"github.com/nstehr/skirmish/resolve"
)

// BaseKey is (actor archetype, action, target archetype).
type BaseKey struct {
	Actor  ArchetypeKey
	Action string
	Target ArchetypeKey
}

func (k BaseKey) String() string {
	return fmt.Sprintf("%s/%x|%s|%s/%x", k.Actor.ID, k.Actor.Fingerprint, k.Action, k.Target.ID, k.Target.Fingerprint)
}

// BaseEntry is never modified once stored.
type BaseEntry struct {
	Key      BaseKey
	Prepared *resolve.Prepared
	Static   *resolve.Static // against the target archetype's own armor class
}

// Base is the shared tier. Concurrent misses on one key are computed once
// and every caller gets the same entry.
type Base struct {
	resolver *resolve.Resolver
	flight   singleflight.Group

	mu      sync.RWMutex
	known   map[string]registered
	entries map[BaseKey]*BaseEntry
	gen     uint64 // bumped whenever entries are dropped
}

type registered struct {
	fingerprint uint64
	ac          int
}

func NewBase(r *resolve.Resolver) *Base {
	return &Base{
		resolver: r,
		known:    make(map[string]registered),
		entries:  make(map[BaseKey]*BaseEntry),
	}
}

// Register records the fingerprint and armor class of an archetype.
// Unregistered archetypes key by id alone and are judged by the armor
// class of the first instance seen.
func (b *Base) Register(a *model.Archetype) {
	fp := Fingerprint(a)
	b.mu.Lock()
	defer b.mu.Unlock()
	if old, ok := b.known[a.ID]; ok && old.fingerprint != fp {
		b.dropArchetypeLocked(a.ID)
	}
	b.known[a.ID] = registered{fingerprint: fp, ac: a.AC}
}

// Key returns the cache identity of an archetype id.
func (b *Base) Key(id string) ArchetypeKey {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return ArchetypeKey{ID: id, Fingerprint: b.known[id].fingerprint}
}

// Entry returns the base entry for actor using a against target,
// computing it on first use.
func (b *Base) Entry(actor, target model.Combatant, a *action.Action) (*BaseEntry, error) {
	b.mu.RLock()
	key := BaseKey{Action: a.ID}
	key.Actor = ArchetypeKey{ID: actor.Archetype, Fingerprint: b.known[actor.Archetype].fingerprint}
	key.Target = ArchetypeKey{ID: target.Archetype, Fingerprint: b.known[target.Archetype].fingerprint}
	ac := target.AC
	if reg, ok := b.known[target.Archetype]; ok {
		ac = reg.ac
	}
	e, ok := b.entries[key]
	gen := b.gen
	b.mu.RUnlock()
	if ok {
		return e, nil
	}
	v, err, _ := b.flight.Do(fmt.Sprintf("%s#%d", key, gen), func() (_ any, err error) {
		// singleflight re-panics with its own wrapper, which callers
		// recovering *resolve.DataError would not recognise.
		defer func() {
			if r := recover(); r != nil {
				de, ok := r.(*resolve.DataError)
				if !ok {
					panic(r)
				}
				err = de
			}
		}()
		if e, ok := b.lookup(key); ok {
			return e, nil
		}
		p, err := b.resolver.Prepare(a, actor.Stats)
		if err != nil {
			return nil, err
		}
		st, err := b.resolver.StaticFor(p, actor.Stats, ac, target.Stats)
		if err != nil {
			return nil, err
		}
		e := &BaseEntry{Key: key, Prepared: p, Static: st}
		b.store(e, gen)
		return e, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*BaseEntry), nil
}

// store keeps e unless entries were dropped since generation gen was
// read, in which case e may describe a definition that is gone. The
// caller still gets e.
func (b *Base) store(e *BaseEntry, gen uint64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.gen != gen {
		return false
	}
	b.entries[e.Key] = e
	return true
}

func (b *Base) lookup(key BaseKey) (*BaseEntry, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	e, ok := b.entries[key]
	return e, ok
}

// InvalidateArchetype drops every entry in which archetype id takes part,
// as actor or target. Used when content is reloaded.
func (b *Base) InvalidateArchetype(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.dropArchetypeLocked(id)
}

func (b *Base) dropArchetypeLocked(id string) {
	b.gen++
	n := 0
	for k := range b.entries {
		if k.Actor.ID == id || k.Target.ID == id {
			delete(b.entries, k)
			n++
		}
	}
	if n > 0 {
		slog.Debug("base layer invalidated", "archetype", id, "entries", n)
	}
}

// Reset drops everything.
func (b *Base) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.gen++
	clear(b.entries)
}

func (b *Base) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.entries)
}
