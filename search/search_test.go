package search

import (
	"context"
	"errors"
	"math"
	"reflect"
	"slices"
	"strings"
	"testing"

	"github.com/nstehr/skirmish/action"
	"github.com/nstehr/skirmish/layer"
	"github.com/nstehr/skirmish/model"
	"github.com/nstehr/skirmish/resolve"
)

type catalog map[string]*action.Action

func (c catalog) Action(id string) (*action.Action, bool) {
	a, ok := c[id]
	return a, ok
}

var (
	goblin = &model.Archetype{
		ID: "goblin", Name: "Goblin", MaxHP: 7, AC: 15, CR: 0.25,
		Speed:     model.Speed{Walk: 30},
		Abilities: model.AbilityScores{Str: 8, Dex: 14, Con: 10, Int: 10, Wis: 8, Cha: 8},
		Resources: []model.Resource{{Name: "slot1", Current: 1, Max: 1}},
		Actions:   []string{"scimitar"},
	}
	fighter = &model.Archetype{
		ID: "fighter", Name: "Fighter", MaxHP: 30, AC: 16, CR: 2,
		Speed:     model.Speed{Walk: 30},
		Abilities: model.AbilityScores{Str: 16, Dex: 12, Con: 14, Int: 10, Wis: 10, Cha: 10},
		Actions:   []string{"scimitar"},
	}
	actions = catalog{
		"scimitar": {
			ID:        "scimitar",
			Check:     &action.AttackRoll{Bonus: 4},
			Cost:      action.Cost{Slot: model.SlotAction},
			Targeting: &action.Single{Filter: action.FilterEnemy, Range: action.Range{Normal: 5}},
			Effect:    &action.Damage{Dice: "1d6+2", Type: "slashing"},
		},
		"burn": {
			ID:        "burn",
			Check:     &action.AutoSuccess{},
			Cost:      action.Cost{Slot: model.SlotBonus, Resources: []action.ResourceCost{{Name: "slot1", Amount: 1}}},
			Targeting: &action.Single{Filter: action.FilterEnemy, Range: action.Range{Normal: 30}},
			Effect:    &action.Damage{Dice: "1d4", Type: "fire"},
		},
		"rage": {
			ID:           "rage",
			Precondition: "Actor.HP < 3",
			Check:        &action.AutoSuccess{},
			Cost:         action.Cost{Slot: model.SlotBonus},
			Targeting:    &action.Self{},
			Effect:       &action.Heal{Dice: "1"},
		},
		"riposte": {
			ID:        "riposte",
			Trigger:   "attacked",
			Check:     &action.AttackRoll{Bonus: 4},
			Cost:      action.Cost{Slot: model.SlotReaction},
			Targeting: &action.Single{Filter: action.FilterEnemy, Range: action.Range{Normal: 5}},
			Effect:    &action.Damage{Dice: "1d6", Type: "piercing"},
		},
		"vanish": {
			ID:        "vanish",
			Check:     &action.AutoSuccess{},
			Cost:      action.Cost{Slot: model.SlotBonus},
			Targeting: &action.Self{},
			Effect:    &action.ApplyCondition{Condition: "invisible"},
		},
		"broken": {
			ID:           "broken",
			Precondition: "Actor.Nope > 1",
			Check:        &action.AutoSuccess{},
			Targeting:    &action.Self{},
			Effect:       &action.Heal{Dice: "1"},
		},
	}
)

// duel puts goblin g1 at gob and the fighter at hero on an open 8x8 map.
// acts replaces the goblin's actions when given.
func duel(t *testing.T, gob, hero model.Point, acts ...string) *model.State {
	t.Helper()
	g := model.NewCombatant("g1", goblin, model.ResolveStats(goblin), "goblins", gob)
	g.Initiative = 15
	if len(acts) > 0 {
		g.Actions = acts
	}
	h := model.NewCombatant("hero", fighter, model.ResolveStats(fighter), "party", hero)
	h.Initiative = 10
	s, err := model.NewState(model.NewGrid(8, 8), []model.Combatant{g, h}, nil)
	if err != nil {
		t.Fatalf("NewState: %v", err)
	}
	return s
}

func evaluator() *Evaluator {
	r := resolve.New(nil, nil, resolve.Options{})
	return NewEvaluator(actions, nil, nil, layer.NewFinal(layer.NewBase(r), r))
}

func testConfig() Config {
	return Config{MaxNodes: 5000, MaxDepth: 2, MaxDestinations: 6, Exploration: 1.4, Seed: 7}
}

func budgetOf(t *testing.T, s *model.State, id string) model.Budget {
	t.Helper()
	c, ok := s.Get(id)
	if !ok {
		t.Fatalf("no combatant %s", id)
	}
	return model.NewBudget(c)
}

func TestEvaluate(t *testing.T) {
	s := duel(t, model.Point{X: 1, Y: 1}, model.Point{X: 2, Y: 1})
	if v := Evaluate(s, "g1"); v != 0 {
		t.Fatalf("fresh Evaluate = %v, want 0", v)
	}
	if err := s.SetHP("hero", 15); err != nil {
		t.Fatal(err)
	}
	if v := Evaluate(s, "g1"); v != 0.5 {
		t.Errorf("goblin view = %v, want 0.5", v)
	}
	if v := Evaluate(s, "hero"); v != -0.5 {
		t.Errorf("hero view = %v, want -0.5", v)
	}
	if _, err := s.AddCondition("g1", model.Condition{Name: "stunned"}); err != nil {
		t.Fatal(err)
	}
	if v := Evaluate(s, "hero"); v != 0 {
		t.Errorf("stunned goblin counts half lost: hero view = %v, want 0", v)
	}
}

func TestUsable(t *testing.T) {
	s := duel(t, model.Point{X: 1, Y: 1}, model.Point{X: 2, Y: 1}, "scimitar", "burn", "rage", "riposte")
	ev := evaluator()
	b := budgetOf(t, s, "g1")

	ids := func(b model.Budget) []string {
		t.Helper()
		as, err := ev.Usable(s, "g1", b)
		if err != nil {
			t.Fatalf("Usable: %v", err)
		}
		var out []string
		for _, a := range as {
			out = append(out, a.ID)
		}
		return out
	}
	if got := ids(b); !slices.Equal(got, []string{"scimitar", "burn"}) {
		t.Fatalf("usable = %v, want [scimitar burn]", got)
	}

	g, _ := s.Get("g1")
	spent, err := b.SpendResource(g, "slot1", 1)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.SpendResource("g1", "slot1", 1); err != nil {
		t.Fatal(err)
	}
	if got := ids(spent); !slices.Equal(got, []string{"scimitar"}) {
		t.Errorf("after spending slot1 usable = %v, want [scimitar]", got)
	}
	if got := ids(b); !slices.Equal(got, []string{"scimitar"}) {
		t.Errorf("with an empty pool usable = %v, want [scimitar]", got)
	}
	used, _ := b.ConsumeSlot(model.SlotAction)
	if got := ids(used); len(got) != 0 {
		t.Errorf("with the action spent usable = %v, want none", got)
	}
}

func TestUsableDataErrors(t *testing.T) {
	for _, tc := range []struct {
		name   string
		action string
		is     error
	}{
		{"bad precondition", "broken", nil},
		{"unknown action", "missing", ErrUnknownAction},
	} {
		t.Run(tc.name, func(t *testing.T) {
			s := duel(t, model.Point{X: 1, Y: 1}, model.Point{X: 2, Y: 1}, tc.action)
			_, err := evaluator().Usable(s, "g1", budgetOf(t, s, "g1"))
			var de *resolve.DataError
			if !errors.As(err, &de) {
				t.Fatalf("err = %v, want a DataError", err)
			}
			if tc.is != nil && !errors.Is(err, tc.is) {
				t.Errorf("err = %v, want %v", err, tc.is)
			}
		})
	}
}

func TestEnumerate(t *testing.T) {
	hero := model.Point{X: 4, Y: 1}
	s := duel(t, model.Point{X: 1, Y: 1}, hero)
	ev := evaluator()
	cfg := testConfig()
	cfg.MaxDestinations = 5

	cands, err := ev.Enumerate(s, "g1", budgetOf(t, s, "g1"), cfg)
	if err != nil {
		t.Fatal(err)
	}
	moves, attacks := 0, 0
	dests := map[model.Point]bool{}
	for _, c := range cands {
		dests[c.Destination] = true
		if model.Distance(c.Destination, hero) != 1 {
			t.Errorf("%v does not end next to the hero", c)
		}
		switch c.ActionID {
		case "":
			moves++
			if len(c.Path) == 0 || c.Path[len(c.Path)-1] != c.Destination {
				t.Errorf("%v: path %v does not end at the destination", c, c.Path)
			}
		case "scimitar":
			attacks++
			if !slices.Equal(c.Targets, []string{"hero"}) {
				t.Errorf("%v: targets %v", c, c.Targets)
			}
		}
	}
	// The start cell reaches nobody, leaving four destinations.
	if moves != 4 || attacks != 4 || len(dests) != 4 {
		t.Errorf("moves=%d attacks=%d destinations=%d, want 4/4/4", moves, attacks, len(dests))
	}
}

func TestApplyTriggersTerrain(t *testing.T) {
	s := duel(t, model.Point{X: 0, Y: 0}, model.Point{X: 6, Y: 6})
	s.Grid().Set(model.Point{X: 1, Y: 0}, model.Cell{Effects: []model.TerrainEffect{
		{Trigger: model.OnEnter, Kind: "damage", Dice: "4", DamageType: "fire"},
	}})
	ev := evaluator()
	c := Candidate{
		Destination: model.Point{X: 2, Y: 0},
		Path:        []model.Point{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 2, Y: 0}},
		PathCost:    2,
		Mode:        model.Walk,
	}
	p, err := ev.Project(s, "g1", budgetOf(t, s, "g1"), c)
	if err != nil {
		t.Fatal(err)
	}
	if got := p.State.HP("g1"); got != 3 {
		t.Errorf("HP after fire = %d, want 3", got)
	}
	if got := p.Budget.Movement(model.Walk); got != 4 {
		t.Errorf("movement left = %d, want 4", got)
	}
	if s.HP("g1") != 7 || s.Position("g1") != (model.Point{}) {
		t.Errorf("Project changed the original state")
	}
}

func TestGreedyAttacksAdjacent(t *testing.T) {
	s := duel(t, model.Point{X: 1, Y: 1}, model.Point{X: 2, Y: 1})
	g := NewGreedy(evaluator())
	d, err := g.SelectNextAction("g1", s, budgetOf(t, s, "g1"), testConfig())
	if err != nil {
		t.Fatal(err)
	}
	if d.Pass || d.Candidate.ActionID != "scimitar" || d.Candidate.Destination != (model.Point{X: 1, Y: 1}) {
		t.Fatalf("decision = %+v, want scimitar from (1,1)", d)
	}
	if d.Score <= 0 {
		t.Errorf("score = %v, want positive", d.Score)
	}
}

func TestGreedyClosesIn(t *testing.T) {
	hero := model.Point{X: 5, Y: 1}
	s := duel(t, model.Point{X: 0, Y: 1}, hero)
	d, err := NewGreedy(evaluator()).SelectNextAction("g1", s, budgetOf(t, s, "g1"), testConfig())
	if err != nil {
		t.Fatal(err)
	}
	if d.Candidate.ActionID != "scimitar" || model.Distance(d.Candidate.Destination, hero) != 1 {
		t.Fatalf("decision = %+v, want to move next to the hero and attack", d)
	}
}

func TestNodeLimit(t *testing.T) {
	s := duel(t, model.Point{X: 1, Y: 1}, model.Point{X: 2, Y: 1})
	cfg := testConfig()
	cfg.MaxNodes = 1
	d, err := NewGreedy(evaluator()).SelectNextAction("g1", s, budgetOf(t, s, "g1"), cfg)
	if err != nil {
		t.Fatal(err)
	}
	if d.Nodes != 1 {
		t.Errorf("nodes = %d, want 1", d.Nodes)
	}
}

func damageNet() *FeedForward {
	w := make([]float64, FeatureCount)
	w[StateFeatureCount+3] = 10
	return &FeedForward{Layers: []Layer{{Weights: [][]float64{w}, Bias: []float64{0}, Activation: "linear"}}}
}

func TestStrategies(t *testing.T) {
	reg := DefaultRegistry(damageNet())
	for _, name := range reg.Names() {
		t.Run(name, func(t *testing.T) {
			s := duel(t, model.Point{X: 1, Y: 1}, model.Point{X: 2, Y: 1})
			before := s.Snapshot()
			sel, err := reg.New(name, evaluator())
			if err != nil {
				t.Fatal(err)
			}
			d, err := sel.SelectNextAction("g1", s, budgetOf(t, s, "g1"), testConfig())
			if err != nil {
				t.Fatal(err)
			}
			if !reflect.DeepEqual(before, s.Snapshot()) {
				t.Fatalf("%s modified the state", name)
			}
			if name == "ucb1" {
				again, err := sel.SelectNextAction("g1", s, budgetOf(t, s, "g1"), testConfig())
				if err != nil {
					t.Fatal(err)
				}
				if !reflect.DeepEqual(d, again) {
					t.Errorf("same seed, different decisions: %+v vs %+v", d, again)
				}
				return
			}
			if d.Pass || d.Candidate.ActionID != "scimitar" {
				t.Errorf("decision = %+v, want a scimitar attack", d)
			}
		})
	}
}

// newRun builds a deepening run the way SelectNextAction does.
func newRun(ev *Evaluator, killers, reductions bool, cfg Config) *deepening {
	return &deepening{
		Deepening: &Deepening{ev: ev, Killers: killers, Reductions: reductions},
		actorID:   "g1",
		cfg:       cfg,
		lim:       newLimiter(cfg),
		pv:        make(map[int]string),
		killers:   make(map[int][]string),
	}
}

func TestKillerOrder(t *testing.T) {
	kids := func() []child {
		var out []child
		for x := range 5 {
			out = append(out, child{Scored: Scored{Candidate: Candidate{Destination: model.Point{X: x}}}})
		}
		return out
	}
	key := func(x int) string { return Candidate{Destination: model.Point{X: x}}.String() }
	xs := func(cs []child) []int {
		var out []int
		for _, c := range cs {
			out = append(out, c.Destination.X)
		}
		return out
	}

	for _, tc := range []struct {
		name    string
		killers bool
		ply     int
		want    []int
	}{
		{"pv then killers", true, 1, []int{3, 4, 1, 0, 2}},
		{"pv only", false, 1, []int{3, 0, 1, 2, 4}},
		{"other ply", true, 2, []int{0, 1, 2, 3, 4}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			run := newRun(nil, tc.killers, false, testConfig())
			run.pv[1] = key(3)
			run.remember(1, key(1))
			run.remember(1, key(1))
			run.remember(1, key(4))
			if got := run.killers[1]; !slices.Equal(got, []string{key(4), key(1)}) {
				t.Fatalf("killers = %v", got)
			}
			cs := kids()
			run.order(cs, tc.ply)
			if got := xs(cs); !slices.Equal(got, tc.want) {
				t.Errorf("order = %v, want %v", got, tc.want)
			}
		})
	}

	run := newRun(nil, true, false, testConfig())
	for _, x := range []int{0, 1, 2} {
		run.remember(0, key(x))
	}
	if got := run.killers[0]; !slices.Equal(got, []string{key(2), key(1)}) {
		t.Errorf("killers = %v, want the two most recent", got)
	}
}

func TestKillerRemembersCutoff(t *testing.T) {
	for _, killers := range []bool{true, false} {
		s := duel(t, model.Point{X: 1, Y: 1}, model.Point{X: 2, Y: 1})
		run := newRun(evaluator(), killers, false, testConfig())
		_, best, _, err := run.search(s, budgetOf(t, s, "g1"), 2, 0)
		if err != nil {
			t.Fatal(err)
		}
		if best == nil || best.ActionID != "scimitar" {
			t.Fatalf("killers=%v: best = %+v, want a scimitar attack", killers, best)
		}
		// Plain moves gain nothing after the attack and are cut off.
		if !killers {
			if len(run.killers) != 0 {
				t.Errorf("killers recorded without the heuristic: %v", run.killers)
			}
			continue
		}
		if ks := run.killers[0]; len(ks) == 0 || ks[0] != best.String() || run.pv[0] != best.String() {
			t.Errorf("killers = %v, pv = %q, want %q first", ks, run.pv[0], best.String())
		}
	}
}

// Vanishing first gives the attack advantage, so the best first segment
// scores nothing on its own.
func TestReductionsResearchLateMoves(t *testing.T) {
	type result struct {
		value float64
		best  *Candidate
		run   *deepening
	}
	search := func(reductions bool) result {
		t.Helper()
		s := duel(t, model.Point{X: 1, Y: 1}, model.Point{X: 2, Y: 1}, "scimitar", "vanish")
		run := newRun(evaluator(), false, reductions, testConfig())
		v, best, _, err := run.search(s, budgetOf(t, s, "g1"), 3, 0)
		if err != nil {
			t.Fatal(err)
		}
		if best == nil || best.ActionID != "vanish" {
			t.Fatalf("reductions=%v: best = %+v, want vanish first", reductions, best)
		}
		return result{v, best, run}
	}

	full, lmr := search(false), search(true)
	if full.run.reduced != 0 || full.run.researched != 0 {
		t.Errorf("plain search reduced %d, researched %d", full.run.reduced, full.run.researched)
	}
	if lmr.run.reduced == 0 {
		t.Error("no late move was reduced")
	}
	if lmr.run.researched == 0 {
		t.Error("the reduced vanish was not searched again at full depth")
	}
	if math.Abs(full.value-lmr.value) > 1e-9 {
		t.Errorf("value with reductions = %v, without = %v", lmr.value, full.value)
	}
}

func TestStar1PrunesAtAlpha(t *testing.T) {
	s := duel(t, model.Point{X: 1, Y: 1}, model.Point{X: 2, Y: 1})
	ev := evaluator()
	cfg := testConfig()
	b := budgetOf(t, s, "g1")
	cands, err := ev.Enumerate(s, "g1", b, cfg)
	if err != nil {
		t.Fatal(err)
	}
	children, err := ev.expand(s, "g1", b, cands, newLimiter(cfg))
	if err != nil {
		t.Fatal(err)
	}
	c := children[0]
	if c.ActionID != "scimitar" || len(c.Result.Targets) == 0 || len(c.Result.Targets[0].Branches) < 2 {
		t.Fatalf("first child = %+v, want a scimitar attack with several outcomes", c.Scored)
	}
	branches := len(c.Result.Targets[0].Branches)
	st := &Star1{ev: ev}

	open := newLimiter(cfg)
	v, err := st.chance(s, "g1", b, c, lowest, 2, c.Score, cfg, open)
	if err != nil {
		t.Fatal(err)
	}
	if v <= Evaluate(s, "g1") {
		t.Errorf("attack value = %v, want above the current %v", v, Evaluate(s, "g1"))
	}

	closed := newLimiter(cfg)
	bound, err := st.chance(s, "g1", b, c, highest, 2, c.Score, cfg, closed)
	if err != nil {
		t.Fatal(err)
	}
	if bound > highest {
		t.Errorf("bound = %v above %v", bound, highest)
	}
	if closed.nodes != branches {
		t.Errorf("pruned node visited %d nodes, want one per outcome (%d)", closed.nodes, branches)
	}
	if open.nodes <= closed.nodes {
		t.Errorf("open window visited %d nodes, pruned %d; want more without pruning", open.nodes, closed.nodes)
	}
}

func TestUCB1Pick(t *testing.T) {
	arms := func(pulls ...int) []*arm {
		out := make([]*arm, len(pulls))
		for i, n := range pulls {
			out[i] = &arm{pulls: n}
		}
		return out
	}

	as := arms(1, 0, 0)
	if got := pick(as, 1, 1.4); got != as[1] {
		t.Errorf("picked arm %d, want the first unpulled", slices.Index(as, got))
	}

	// mean 0.6 over 10 pulls against mean 0.5 over 1
	as = arms(10, 1)
	as[0].reward, as[1].reward = 6, 0.5
	for _, tc := range []struct {
		c    float64
		want int
	}{
		{0, 0},
		{1.4, 1},
	} {
		if got := pick(as, 11, tc.c); got != as[tc.want] {
			t.Errorf("c=%v: picked arm %d, want %d", tc.c, slices.Index(as, got), tc.want)
		}
	}
}

func TestUCB1PullsEveryArm(t *testing.T) {
	s := duel(t, model.Point{X: 1, Y: 1}, model.Point{X: 2, Y: 1})
	ev := evaluator()
	cfg := testConfig()
	cfg.MaxNodes = 1
	cands, err := ev.Enumerate(s, "g1", budgetOf(t, s, "g1"), cfg)
	if err != nil {
		t.Fatal(err)
	}
	d, err := (&UCB1{ev: ev}).SelectNextAction("g1", s, budgetOf(t, s, "g1"), cfg)
	if err != nil {
		t.Fatal(err)
	}
	if d.Nodes < len(cands)+1 {
		t.Errorf("nodes = %d, want every one of %d arms pulled", d.Nodes, len(cands)+1)
	}
}

func TestMinimaxLooksPastGreedy(t *testing.T) {
	cfg := testConfig()
	cfg.MaxDepth = 1
	cfg.MaxNodes = 50000
	ev := evaluator()
	for _, tc := range []struct {
		name string
		sel  Selector
		want string
	}{
		{"greedy", NewGreedy(ev), "scimitar"},
		{"minimax", &Minimax{ev: ev}, "vanish"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			s := duel(t, model.Point{X: 1, Y: 1}, model.Point{X: 2, Y: 1}, "scimitar", "vanish")
			d, err := tc.sel.SelectNextAction("g1", s, budgetOf(t, s, "g1"), cfg)
			if err != nil {
				t.Fatal(err)
			}
			if d.Pass || d.Candidate.ActionID != tc.want {
				t.Errorf("decision = %+v, want %s", d, tc.want)
			}
		})
	}
}

func TestRegistry(t *testing.T) {
	reg := DefaultRegistry(nil)
	want := []string{"greedy", "iterative", "killer", "lmr", "minimax", "network", "star1", "ucb1"}
	if got := reg.Names(); !slices.Equal(got, want) {
		t.Fatalf("names = %v, want %v", got, want)
	}
	if _, err := reg.New("nope", evaluator()); !errors.Is(err, ErrUnknownStrategy) {
		t.Errorf("unknown strategy err = %v", err)
	}
	if _, err := reg.New("network", evaluator()); !errors.Is(err, ErrNoNetwork) {
		t.Errorf("network without weights err = %v", err)
	}
	if err := reg.Register("greedy", nil); err == nil {
		t.Error("duplicate registration accepted")
	}
}

func TestFeedForward(t *testing.T) {
	// one output reading only the first feature
	row := func() string {
		w := make([]string, FeatureCount)
		for i := range w {
			w[i] = "0"
		}
		w[0] = "1"
		return "[" + strings.Join(w, ",") + "]"
	}
	good := `{"layers":[{"weights":[` + row() + `],"bias":[0.5],"activation":"linear"}]}`
	n, err := LoadFeedForward(strings.NewReader(good))
	if err != nil {
		t.Fatal(err)
	}
	in := make([]float64, FeatureCount)
	in[0] = 0.25
	if got := n.Score(in); got != 0.75 {
		t.Errorf("Score = %v, want 0.75", got)
	}

	for _, bad := range []string{
		`{"layers":[]}`,
		`{"layers":[{"weights":[[1,2]],"bias":[0]}]}`,
		`{"layers":[{"weights":[` + row() + `],"bias":[0],"activation":"softmax"}]}`,
		`{"layers":[{"weights":[` + row() + `,` + row() + `],"bias":[0,0]}]}`,
	} {
		if _, err := LoadFeedForward(strings.NewReader(bad)); err == nil {
			t.Errorf("accepted %s", bad)
		}
	}
}

func TestPlanRunsTurnToExhaustion(t *testing.T) {
	s := duel(t, model.Point{X: 1, Y: 1}, model.Point{X: 2, Y: 1})
	ev := evaluator()
	sim := s.Clone()
	g, _ := sim.Get("g1")
	turn := NewTurn("g1", model.NewBudget(g))
	err := turn.Run(context.Background(), NewGreedy(ev), sim, testConfig(), func(d Decision) (model.Budget, error) {
		st, err := ev.Apply(sim, "g1", turn.Budget, d.Candidate, nil)
		return st.Budget, err
	})
	if err != nil {
		t.Fatal(err)
	}
	want := []string{
		PhaseAvailable, PhaseEnumerating, PhaseScoring, PhaseCommitted,
		PhaseAvailable, PhaseEnumerating, PhaseExhausted,
	}
	if got := turn.Trace(); !slices.Equal(got, want) {
		t.Errorf("trace = %v, want %v", got, want)
	}
	if len(turn.Decisions()) != 1 || turn.Decisions()[0].Candidate.ActionID != "scimitar" {
		t.Errorf("decisions = %+v", turn.Decisions())
	}
	if sim.HP("hero") != 28 {
		t.Errorf("hero HP = %d, want 28 after the expected hit", sim.HP("hero"))
	}

	plan, err := Plan(context.Background(), ev, NewGreedy(ev), s, "g1", testConfig())
	if err != nil {
		t.Fatal(err)
	}
	if len(plan) != 1 || s.HP("hero") != 30 {
		t.Errorf("Plan = %+v, hero HP %d; want one decision and an untouched state", plan, s.HP("hero"))
	}
}

func TestTurnExpandsForDeepSearch(t *testing.T) {
	s := duel(t, model.Point{X: 1, Y: 1}, model.Point{X: 2, Y: 1})
	ev := evaluator()
	sel := &Deepening{ev: ev}
	decisions, err := Plan(context.Background(), ev, sel, s, "g1", testConfig())
	if err != nil {
		t.Fatal(err)
	}
	if len(decisions) == 0 || decisions[0].Depth != 2 {
		t.Fatalf("decisions = %+v, want a depth 2 first segment", decisions)
	}
}

func TestFeatures(t *testing.T) {
	s := duel(t, model.Point{X: 1, Y: 1}, model.Point{X: 2, Y: 1})
	f := StateFeatures(s, "g1")
	if len(f) != StateFeatureCount || f[0] != 1 || f[2] != 1 {
		t.Fatalf("state features = %v", f)
	}
	ev := evaluator()
	c := Candidate{Destination: model.Point{X: 1, Y: 1}, ActionID: "scimitar", Targets: []string{"hero"}}
	p, err := ev.Project(s, "g1", budgetOf(t, s, "g1"), c)
	if err != nil {
		t.Fatal(err)
	}
	cf := CandidateFeatures(s, "g1", c, p)
	if len(cf) != CandidateFeatureCount || cf[1] != 1 || cf[3] <= 0 || cf[6] != 0 {
		t.Errorf("candidate features = %v", cf)
	}
}
