package encounter

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"runtime"
	"slices"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/nstehr/skirmish/content"
	"github.com/nstehr/skirmish/layer"
	"github.com/nstehr/skirmish/model"
	"github.com/nstehr/skirmish/resolve"
	"github.com/nstehr/skirmish/rules"
	"github.com/nstehr/skirmish/search"
)

// Rating is a coarse difficulty label from the party's point of view.
type Rating string

const (
	Trivial Rating = "trivial"
	Easy    Rating = "easy"
	Medium  Rating = "medium"
	Hard    Rating = "hard"
	Deadly  Rating = "deadly"
)

// Shared is what every trial reads and nothing writes except the base
// layer, which is safe for concurrent use.
type Shared struct {
	Catalog  *content.Catalog
	Resolver *resolve.Resolver
	Base     *layer.Base
	Rules    *rules.Compiler
	Doctrine *rules.Engine
	Registry *search.Registry
}

// EstimateConfig describes a batch of trials. Trial i is seeded with
// Seed+i, so a batch replays exactly whatever the worker count.
type EstimateConfig struct {
	Encounter string
	Party     string // group whose chances are rated; default "party"
	Strategy  string
	Trials    int
	Workers   int // 0 means GOMAXPROCS
	Seed      int64
	MaxRounds int
	Search    search.Config
}

// Estimate aggregates a batch of trials.
type Estimate struct {
	ID          string
	Encounter   string
	Trials      int
	Wins        int
	Losses      int
	Draws       int
	WinRate     float64
	MeanRounds  float64
	PartyHPLost float64 // mean fraction of the party's hit points lost
	Skipped     int
	Rating      Rating
}

type trialResult struct {
	outcome int // 1 win, -1 loss, 0 draw
	rounds  int
	hpLost  float64
	skipped int
}

// EstimateDifficulty runs cfg.Trials independent encounters in parallel.
// Each trial owns its state, archetype cache, final layer and selector;
// the base layer is shared.
func EstimateDifficulty(ctx context.Context, sh Shared, cfg EstimateConfig) (Estimate, error) {
	est := Estimate{ID: uuid.NewString(), Encounter: cfg.Encounter, Trials: cfg.Trials}
	ctx, span := tracer.Start(ctx, "encounter.estimate", trace.WithAttributes(
		attribute.String("estimate.id", est.ID),
		attribute.String("encounter", cfg.Encounter),
		attribute.Int("trials", cfg.Trials),
	))
	defer span.End()

	if _, ok := sh.Catalog.Encounter(cfg.Encounter); !ok {
		return est, fmt.Errorf("encounter %q: %w", cfg.Encounter, content.ErrNotFound)
	}
	if cfg.Trials <= 0 {
		return est, fmt.Errorf("estimate: trials must be positive")
	}
	if cfg.Party == "" {
		cfg.Party = "party"
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	for _, a := range sh.Catalog.Archetypes() {
		sh.Base.Register(a)
	}

	results := make([]trialResult, cfg.Trials)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range cfg.Trials {
		g.Go(func() error {
			r, err := sh.trial(gctx, cfg, i)
			if err != nil {
				return fmt.Errorf("trial %d: %w", i, err)
			}
			results[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return est, err
	}

	var rounds, lost float64
	for _, r := range results {
		switch r.outcome {
		case 1:
			est.Wins++
		case -1:
			est.Losses++
		default:
			est.Draws++
		}
		rounds += float64(r.rounds)
		lost += r.hpLost
		est.Skipped += r.skipped
	}
	n := float64(cfg.Trials)
	est.WinRate = float64(est.Wins) / n
	est.MeanRounds = rounds / n
	est.PartyHPLost = lost / n
	est.Rating = rate(est.WinRate, est.PartyHPLost)
	span.SetAttributes(attribute.Float64("win_rate", est.WinRate), attribute.String("rating", string(est.Rating)))
	slog.Info("difficulty estimated",
		"id", est.ID,
		"encounter", est.Encounter,
		"trials", est.Trials,
		"winRate", est.WinRate,
		"meanRounds", est.MeanRounds,
		"partyHPLost", est.PartyHPLost,
		"rating", est.Rating)
	return est, nil
}

func (sh Shared) trial(ctx context.Context, cfg EstimateConfig, i int) (trialResult, error) {
	ctx, span := tracer.Start(ctx, "encounter.trial", trace.WithAttributes(attribute.Int("trial", i)))
	defer span.End()

	s, err := sh.Catalog.State(cfg.Encounter, model.NewArchetypeCache(sh.Catalog))
	if err != nil {
		return trialResult{}, err
	}
	ev := search.NewEvaluator(sh.Catalog, sh.Rules, sh.Doctrine, layer.NewFinal(sh.Base, sh.Resolver))
	sel, err := sh.Registry.New(cfg.Strategy, ev)
	if err != nil {
		return trialResult{}, err
	}
	seed := cfg.Seed + int64(i)
	scfg := cfg.Search
	scfg.Seed = seed
	d := &Driver{
		Evaluator: ev,
		Selector:  sel,
		Config:    scfg,
		Rand:      rand.New(rand.NewSource(seed)),
		MaxRounds: cfg.MaxRounds,
	}
	rep, err := d.Run(ctx, s)
	if err != nil {
		return trialResult{}, err
	}
	r := trialResult{rounds: rep.Rounds, hpLost: partyHPLost(s, cfg.Party), skipped: rep.Skipped}
	switch {
	case slices.Contains(rep.Winners, cfg.Party):
		r.outcome = 1
	case len(rep.Winners) > 0:
		r.outcome = -1
	}
	return r, nil
}

func partyHPLost(s *model.State, party string) float64 {
	var lost, total int
	for _, c := range s.Combatants() {
		if c.Group != party {
			continue
		}
		total += c.MaxHP
		if c.Removed {
			lost += c.MaxHP
		} else {
			lost += c.MaxHP - c.HP
		}
	}
	if total == 0 {
		return 0
	}
	return float64(lost) / float64(total)
}

func rate(winRate, hpLost float64) Rating {
	switch {
	case winRate >= 0.95 && hpLost < 0.25:
		return Trivial
	case winRate >= 0.85:
		return Easy
	case winRate >= 0.6:
		return Medium
	case winRate >= 0.3:
		return Hard
	}
	return Deadly
}
