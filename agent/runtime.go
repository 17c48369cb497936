package agent

import (
	"log/slog"
	"sync/atomic"

	"github.com/nstehr/skirmish/content"
	"github.com/nstehr/skirmish/encounter"
	"github.com/nstehr/skirmish/layer"
	"github.com/nstehr/skirmish/resolve"
	"github.com/nstehr/skirmish/rules"
	"github.com/nstehr/skirmish/search"
)

// Runtime is what every session shares: the current catalog, the base
// layer and the doctrine engine. Catalog and doctrine can be swapped while
// sessions are deciding.
type Runtime struct {
	Resolver *resolve.Resolver
	Base     *layer.Base
	Doctrine *rules.Engine
	Registry *search.Registry
	Search   search.Config
	Strategy string // default when neither request nor session names one

	catalog atomic.Pointer[content.Catalog]
}

func NewRuntime(cat *content.Catalog, r *resolve.Resolver, doctrine *rules.Engine, reg *search.Registry) *Runtime {
	rt := &Runtime{
		Resolver: r,
		Base:     layer.NewBase(r),
		Doctrine: doctrine,
		Registry: reg,
		Search:   search.DefaultConfig(),
		Strategy: "iterative",
	}
	rt.Swap(cat)
	return rt
}

func (rt *Runtime) Catalog() *content.Catalog { return rt.catalog.Load() }

// Swap installs cat, drops base entries the old catalog no longer vouches
// for and returns the affected archetype ids.
func (rt *Runtime) Swap(cat *content.Catalog) []string {
	prev := rt.catalog.Swap(cat)
	stale := cat.Stale(prev)
	for _, id := range stale {
		rt.Base.InvalidateArchetype(id)
	}
	for _, a := range cat.Archetypes() {
		rt.Base.Register(a)
	}
	if prev != nil {
		slog.Info("catalog swapped", "archetypes", len(cat.Archetypes()), "stale", stale)
	}
	return stale
}

// Shared hands the runtime's pieces to the estimator.
func (rt *Runtime) Shared() encounter.Shared {
	return encounter.Shared{
		Catalog:  rt.Catalog(),
		Resolver: rt.Resolver,
		Base:     rt.Base,
		Rules:    rt.Resolver.Rules,
		Doctrine: rt.Doctrine,
		Registry: rt.Registry,
	}
}

func (rt *Runtime) evaluator(cat *content.Catalog) *search.Evaluator {
	return search.NewEvaluator(cat, rt.Resolver.Rules, rt.Doctrine, layer.NewFinal(rt.Base, rt.Resolver))
}
