package encounter

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/nstehr/skirmish/model"
)

// EventKind identifies the category of something that happened between
// two states.
type EventKind string

const (
	EventDowned          EventKind = "downed"
	EventRevived         EventKind = "revived"
	EventRemoved         EventKind = "removed"
	EventBloodied        EventKind = "bloodied"
	EventDamaged         EventKind = "damaged"
	EventHealed          EventKind = "healed"
	EventMoved           EventKind = "moved"
	EventConditionGained EventKind = "condition_gained"
	EventConditionLost   EventKind = "condition_lost"
	EventResourceSpent   EventKind = "resource_spent"
	EventZoneOpened      EventKind = "zone_opened"
	EventZoneClosed      EventKind = "zone_closed"
	EventSideDefeated    EventKind = "side_defeated"
	EventRoundStarted    EventKind = "round_started"
)

// Event is a change detected by diffing consecutive states.
type Event struct {
	Kind      EventKind
	Round     int
	Combatant string // empty for zone, side and round events
	Detail    string
}

// fighter captures the diffable fields of one combatant.
type fighter struct {
	hp, maxHP  int
	pos        model.Point
	removed    bool
	conditions []string
	resources  map[string]int
}

// snapshot captures the diffable fields of a state. Diff keeps one and
// compares it against the next.
type snapshot struct {
	round    int
	order    []string
	fighters map[string]fighter
	zones    []string
	beaten   []string // sides with nobody able to act, by first group
}

func takeSnapshot(s *model.State) snapshot {
	snap := snapshot{round: s.Round(), fighters: make(map[string]fighter, s.Len())}
	for _, c := range s.Combatants() {
		f := fighter{hp: c.HP, maxHP: c.MaxHP, pos: c.Pos, removed: c.Removed, resources: make(map[string]int, len(c.Resources))}
		for _, cd := range c.Conditions {
			f.conditions = append(f.conditions, strings.ToLower(cd.Name))
		}
		for _, r := range c.Resources {
			f.resources[r.Name] = r.Current
		}
		snap.order = append(snap.order, c.ID)
		snap.fighters[c.ID] = f
	}
	for _, z := range s.Zones() {
		snap.zones = append(snap.zones, z.ID)
	}
	for _, sd := range s.Sides() {
		if sd.Able == 0 {
			snap.beaten = append(snap.beaten, sd.Groups[0])
		}
	}
	return snap
}

// Diff returns the events that turn prev into cur, in initiative order,
// followed by zone, side and round events.
func Diff(prev, cur *model.State) []Event {
	p := takeSnapshot(prev)
	return detectEvents(p, takeSnapshot(cur))
}

func detectEvents(prev, cur snapshot) []Event {
	var events []Event
	add := func(kind EventKind, id, format string, args ...any) {
		events = append(events, Event{Kind: kind, Round: cur.round, Combatant: id, Detail: fmt.Sprintf(format, args...)})
	}

	for _, id := range cur.order {
		now := cur.fighters[id]
		was, ok := prev.fighters[id]
		if !ok {
			continue
		}

		// 1. removal and knock-out take precedence over HP bookkeeping
		if now.removed && !was.removed {
			add(EventRemoved, id, "%s removed from combat", id)
			continue
		}
		switch {
		case now.hp < was.hp:
			add(EventDamaged, id, "%s took %d damage (%d/%d)", id, was.hp-now.hp, now.hp, now.maxHP)
		case now.hp > was.hp:
			add(EventHealed, id, "%s healed %d (%d/%d)", id, now.hp-was.hp, now.hp, now.maxHP)
		}
		if was.hp > 0 && now.hp <= 0 {
			add(EventDowned, id, "%s is down", id)
		} else if was.hp <= 0 && now.hp > 0 {
			add(EventRevived, id, "%s is back up with %d HP", id, now.hp)
		} else if now.hp > 0 && now.hp*2 <= now.maxHP && was.hp*2 > was.maxHP {
			add(EventBloodied, id, "%s is bloodied", id)
		}

		// 2. position
		if now.pos != was.pos {
			add(EventMoved, id, "%s moved %v -> %v", id, was.pos, now.pos)
		}

		// 3. conditions
		for _, c := range now.conditions {
			if !slices.Contains(was.conditions, c) {
				add(EventConditionGained, id, "%s is %s", id, c)
			}
		}
		for _, c := range was.conditions {
			if !slices.Contains(now.conditions, c) {
				add(EventConditionLost, id, "%s is no longer %s", id, c)
			}
		}

		// 4. resources
		for _, name := range slices.Sorted(maps.Keys(now.resources)) {
			n := now.resources[name]
			if old, ok := was.resources[name]; ok && n < old {
				add(EventResourceSpent, id, "%s spent %d %s (%d left)", id, old-n, name, n)
			}
		}
	}

	for _, z := range cur.zones {
		if !slices.Contains(prev.zones, z) {
			add(EventZoneOpened, "", "zone %s opened", z)
		}
	}
	for _, z := range prev.zones {
		if !slices.Contains(cur.zones, z) {
			add(EventZoneClosed, "", "zone %s closed", z)
		}
	}
	for _, g := range cur.beaten {
		if !slices.Contains(prev.beaten, g) {
			add(EventSideDefeated, "", "side of %s can no longer act", g)
		}
	}
	if cur.round > prev.round {
		add(EventRoundStarted, "", "round %d", cur.round)
	}
	return events
}

// FormatEvents renders events one per line for logs and reports.
func FormatEvents(events []Event) string {
	if len(events) == 0 {
		return ""
	}
	var b strings.Builder
	for _, e := range events {
		fmt.Fprintf(&b, "- [round %d] %s: %s\n", e.Round, e.Kind, e.Detail)
	}
	return b.String()
}
