package layer

import (
	"encoding/json"
	"strconv"

	"github.com/cespare/xxhash/v2"

	"github.com/nstehr/skirmish/model"
)

// ArchetypeKey identifies an archetype by id and by a hash of its
// mechanical definition, so a reloaded or re-skinned archetype with
// different numbers never shares entries with the old one.
type ArchetypeKey struct {
	ID          string
	Fingerprint uint64
}

// Fingerprint hashes every field of a that affects resolution. The display
// name is left out.
func Fingerprint(a *model.Archetype) uint64 {
	cp := *a
	cp.Name = ""
	b, err := json.Marshal(cp)
	if err != nil {
		// Archetypes hold only plain data; Marshal cannot fail on them.
		panic(err)
	}
	return xxhash.Sum64(b)
}

// situation hashes what the final layer depends on: the round, both
// parties' live fields, who stands next to either of them, the roster of
// living combatants and the zones in play. Only the identity of
// neighbours counts, not their exact cell.
type situation struct {
	d   *xxhash.Digest
	buf []byte
}

func newSituation() *situation { return &situation{d: xxhash.New()} }

func (h *situation) str(s string) {
	_, _ = h.d.WriteString(s)
	_, _ = h.d.Write([]byte{0})
}

func (h *situation) num(v int) {
	h.buf = strconv.AppendInt(h.buf[:0], int64(v), 10)
	h.buf = append(h.buf, 0)
	_, _ = h.d.Write(h.buf)
}

func (h *situation) point(p model.Point) {
	h.num(p.X)
	h.num(p.Y)
}

func (h *situation) combatant(c model.Combatant) {
	h.str(c.ID)
	h.str(c.Group)
	h.point(c.Pos)
	h.num(c.HP)
	h.num(c.AC)
	for _, cd := range c.Conditions {
		h.str(cd.Name)
		h.num(cd.Magnitude)
	}
	h.str("|")
	for _, r := range c.Resources {
		h.str(r.Name)
		h.num(r.Current)
	}
	h.str("|")
}

func situationOf(s *model.State, actor, target model.Combatant) uint64 {
	h := newSituation()
	h.num(s.Round())
	h.combatant(actor)
	h.combatant(target)
	h.str("roster")
	for _, c := range s.Combatants() {
		if !c.Alive() {
			continue
		}
		h.str(c.ID)
		h.str(c.Group)
		if c.ID == actor.ID || c.ID == target.ID {
			continue
		}
		if model.Adjacent(c.Pos, actor.Pos) || model.Adjacent(c.Pos, target.Pos) {
			h.str("adjacent")
			h.num(boolInt(c.Incapacitated()))
		}
	}
	h.str("zones")
	for _, z := range s.Zones() {
		h.str(z.ID)
		h.str(z.Kind)
		h.str(z.SourceID)
		h.str(z.Affects)
		h.str(z.Condition)
		h.point(z.Center)
		h.num(z.Radius)
		h.num(z.Cover)
	}
	return h.d.Sum64()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
