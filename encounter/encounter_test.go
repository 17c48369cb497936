package encounter

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/nstehr/skirmish/content"
	"github.com/nstehr/skirmish/layer"
	"github.com/nstehr/skirmish/model"
	"github.com/nstehr/skirmish/resolve"
	"github.com/nstehr/skirmish/search"
)

const defs = `kind: action
id: scimitar
check: {type: attack, bonus: 4}
cost: {slot: action}
targeting: {type: single, range: {normal: 5}}
effect: {type: damage, dice: 1d6+2, damage_type: slashing}
---
kind: action
id: longsword
check: {type: attack, bonus: 5}
cost: {slot: action}
targeting: {type: single, range: {normal: 5}}
effect: {type: damage, dice: 1d8+3, damage_type: slashing}
---
kind: action
id: broken
precondition: Actor.Nope > 1
cost: {slot: action}
targeting: {type: single, range: {normal: 5}}
effect: {type: damage, dice: "1"}
---
kind: creature
id: goblin
name: Goblin
hp: 7
ac: 15
cr: 0.25
speed: {walk: 30}
abilities: {str: 8, dex: 14, con: 10, int: 10, wis: 8, cha: 8}
actions: [scimitar]
---
kind: creature
id: saboteur
hp: 7
ac: 15
speed: {walk: 30}
actions: [broken]
---
kind: creature
id: fighter
name: Fighter
hp: 30
ac: 16
cr: 2
speed: {walk: 30}
abilities: {str: 16, dex: 12, con: 14, int: 10, wis: 10, cha: 10}
actions: [longsword]
---
kind: terrain
id: yard
layout:
  - "......"
  - "......"
  - "......"
---
kind: encounter
id: duel
terrain: yard
combatants:
  - {id: g1, archetype: goblin, group: raiders, pos: {x: 1, y: 1}, initiative: 15}
  - {id: hero, archetype: fighter, group: party, pos: {x: 2, y: 1}, initiative: 10}
---
kind: encounter
id: sabotage
terrain: yard
combatants:
  - {id: s1, archetype: saboteur, group: raiders, pos: {x: 1, y: 1}, initiative: 15}
  - {id: hero, archetype: fighter, group: party, pos: {x: 4, y: 1}, initiative: 10}
`

func catalog(t *testing.T) *content.Catalog {
	t.Helper()
	ctx := context.Background()
	store := content.NewMemoryStore()
	if _, err := content.Load(ctx, store, strings.NewReader(defs)); err != nil {
		t.Fatalf("Load: %v", err)
	}
	cat, err := content.Build(ctx, store)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return cat
}

func shared(cat *content.Catalog) Shared {
	r := resolve.New(nil, nil, resolve.Options{})
	return Shared{
		Catalog:  cat,
		Resolver: r,
		Base:     layer.NewBase(r),
		Registry: search.DefaultRegistry(nil),
	}
}

func driver(t *testing.T, sh Shared, maxRounds int) *Driver {
	t.Helper()
	ev := search.NewEvaluator(sh.Catalog, nil, nil, layer.NewFinal(sh.Base, sh.Resolver))
	sel, err := sh.Registry.New("greedy", ev)
	if err != nil {
		t.Fatal(err)
	}
	return &Driver{Evaluator: ev, Selector: sel, Config: search.Config{MaxDestinations: 6}, MaxRounds: maxRounds}
}

func TestDriverRunsToCompletion(t *testing.T) {
	cat := catalog(t)
	sh := shared(cat)
	s, err := cat.State("duel", model.NewArchetypeCache(cat))
	if err != nil {
		t.Fatal(err)
	}
	rep, err := driver(t, sh, 0).Run(context.Background(), s)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !s.IsCombatOver() || rep.TimedOut {
		t.Fatalf("combat not finished: %+v", rep)
	}
	if len(rep.Winners) != 1 || rep.Winners[0] != "party" {
		t.Errorf("winners = %v, want [party]", rep.Winners)
	}
	if rep.ID == "" || rep.Turns == 0 || rep.Skipped != 0 {
		t.Errorf("report = %+v", rep)
	}
	var downed, damaged, defeated bool
	for _, e := range rep.Events {
		switch e.Kind {
		case EventDowned:
			downed = downed || e.Combatant == "g1"
		case EventDamaged:
			damaged = true
		case EventSideDefeated:
			defeated = true
		}
	}
	if !downed || !damaged || !defeated {
		t.Errorf("missing events:\n%s", FormatEvents(rep.Events))
	}
}

func TestDriverSkipsMalformedContent(t *testing.T) {
	cat := catalog(t)
	sh := shared(cat)
	s, err := cat.State("sabotage", model.NewArchetypeCache(cat))
	if err != nil {
		t.Fatal(err)
	}
	rep, err := driver(t, sh, 1).Run(context.Background(), s)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if rep.Skipped == 0 {
		t.Error("malformed precondition was not reported as skipped")
	}
	if hp := s.HP("hero"); hp != 30 {
		t.Errorf("hero hp = %d, want 30", hp)
	}
}

func TestDriverHonoursCancellation(t *testing.T) {
	cat := catalog(t)
	s, err := cat.State("duel", model.NewArchetypeCache(cat))
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := driver(t, shared(cat), 0).Run(ctx, s); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestTerrainTriggersAtTurnBoundaries(t *testing.T) {
	cat := catalog(t)
	sh := shared(cat)
	s, err := cat.State("duel", model.NewArchetypeCache(cat))
	if err != nil {
		t.Fatal(err)
	}
	burn := model.Cell{Effects: []model.TerrainEffect{
		{Trigger: model.OnStartTurn, Kind: "damage", Dice: "2"},
		{Trigger: model.OnEndTurn, Kind: "condition", Condition: "prone"},
	}}
	s.Grid().Set(model.Point{X: 1, Y: 1}, burn)
	d := driver(t, sh, 0)
	rep := Report{}
	if err := d.turn(context.Background(), s, "g1", &rep); err != nil {
		t.Fatal(err)
	}
	if hp := s.HP("g1"); hp != 5 {
		t.Errorf("g1 hp = %d, want 5 after start-of-turn damage", hp)
	}
	if !s.HasCondition("g1", "prone") && s.Position("g1") == (model.Point{X: 1, Y: 1}) {
		t.Error("end-of-turn condition not applied")
	}

	bad := model.Cell{Effects: []model.TerrainEffect{{Trigger: model.OnStartTurn, Kind: "lava"}}}
	s.Grid().Set(s.Position("hero"), bad)
	if err := d.turn(context.Background(), s, "hero", &rep); err != nil {
		t.Fatalf("unknown terrain kind aborted the turn: %v", err)
	}
	if rep.Skipped != 1 {
		t.Errorf("skipped = %d, want 1", rep.Skipped)
	}
}

func TestDiff(t *testing.T) {
	cat := catalog(t)
	prev, err := cat.State("duel", model.NewArchetypeCache(cat))
	if err != nil {
		t.Fatal(err)
	}
	if evs := Diff(prev, prev.Clone()); len(evs) != 0 {
		t.Fatalf("identical states produced %+v", evs)
	}

	tests := []struct {
		name   string
		change func(s *model.State) error
		want   []EventKind
	}{
		{"damage to bloodied", func(s *model.State) error { return s.SetHP("hero", 14) }, []EventKind{EventDamaged, EventBloodied}},
		{"downed", func(s *model.State) error { return s.SetHP("g1", 0) }, []EventKind{EventDamaged, EventDowned, EventSideDefeated}},
		{"moved", func(s *model.State) error { return s.SetPosition("g1", model.Point{X: 0, Y: 0}) }, []EventKind{EventMoved}},
		{"condition", func(s *model.State) error {
			_, err := s.AddCondition("hero", model.Condition{Name: "Prone"})
			return err
		}, []EventKind{EventConditionGained}},
		{"removed", func(s *model.State) error { return s.Remove("g1") }, []EventKind{EventRemoved, EventSideDefeated}},
		{"round", func(s *model.State) error {
			s.AdvanceTurn()
			s.AdvanceTurn()
			return nil
		}, []EventKind{EventRoundStarted}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cur := prev.Clone()
			if err := tc.change(cur); err != nil {
				t.Fatal(err)
			}
			var got []EventKind
			for _, e := range Diff(prev, cur) {
				got = append(got, e.Kind)
			}
			if len(got) != len(tc.want) {
				t.Fatalf("events = %v, want %v", got, tc.want)
			}
			for i := range got {
				if got[i] != tc.want[i] {
					t.Fatalf("events = %v, want %v", got, tc.want)
				}
			}
		})
	}
}

func TestEstimateDifficulty(t *testing.T) {
	cat := catalog(t)
	cfg := EstimateConfig{
		Encounter: "duel",
		Strategy:  "greedy",
		Trials:    6,
		Workers:   3,
		Seed:      42,
		Search:    search.Config{MaxDestinations: 6},
	}
	est, err := EstimateDifficulty(context.Background(), shared(cat), cfg)
	if err != nil {
		t.Fatalf("EstimateDifficulty: %v", err)
	}
	if est.Wins+est.Losses+est.Draws != 6 {
		t.Fatalf("outcomes do not add up: %+v", est)
	}
	if est.Wins != 6 || est.WinRate != 1 {
		t.Errorf("fighter should beat a goblin every time: %+v", est)
	}
	if est.Rating != Trivial && est.Rating != Easy {
		t.Errorf("rating = %s", est.Rating)
	}

	cfg.Workers = 1
	again, err := EstimateDifficulty(context.Background(), shared(cat), cfg)
	if err != nil {
		t.Fatal(err)
	}
	if again.MeanRounds != est.MeanRounds || again.PartyHPLost != est.PartyHPLost {
		t.Errorf("same seed, different result: %+v vs %+v", again, est)
	}
}

func TestEstimateErrors(t *testing.T) {
	cat := catalog(t)
	ctx := context.Background()
	if _, err := EstimateDifficulty(ctx, shared(cat), EstimateConfig{Encounter: "nope", Strategy: "greedy", Trials: 1}); !errors.Is(err, content.ErrNotFound) {
		t.Errorf("unknown encounter err = %v", err)
	}
	if _, err := EstimateDifficulty(ctx, shared(cat), EstimateConfig{Encounter: "duel", Strategy: "oracle", Trials: 1}); !errors.Is(err, search.ErrUnknownStrategy) {
		t.Errorf("unknown strategy err = %v", err)
	}
}

func TestRate(t *testing.T) {
	tests := []struct {
		win, lost float64
		want      Rating
	}{
		{1, 0.1, Trivial},
		{1, 0.5, Easy},
		{0.7, 0.5, Medium},
		{0.4, 0.8, Hard},
		{0.1, 1, Deadly},
	}
	for _, tc := range tests {
		if got := rate(tc.win, tc.lost); got != tc.want {
			t.Errorf("rate(%v, %v) = %s, want %s", tc.win, tc.lost, got, tc.want)
		}
	}
}
