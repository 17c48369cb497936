package model

// Alliance decides whether two groups fight on the same side.
type Alliance interface {
	Allied(a, b string) bool
}

// SameGroup treats groups as allied only with themselves.
type SameGroup struct{}

func (SameGroup) Allied(a, b string) bool { return a == b }

// AllianceTable lists explicit pacts between groups on top of SameGroup.
// Pacts are symmetric.
type AllianceTable map[string][]string

func (t AllianceTable) Allied(a, b string) bool {
	if a == b {
		return true
	}
	for _, g := range t[a] {
		if g == b {
			return true
		}
	}
	for _, g := range t[b] {
		if g == a {
			return true
		}
	}
	return false
}

// Side is a set of mutually allied groups and the combatants in them.
type Side struct {
	Groups  []string
	Members []string // combatant ids, initiative order
	Able    int      // members that can still act
}

// Sides partitions the combatants into sides. A group joins the first side
// holding a group it is allied with, so sides follow first appearance in
// initiative order.
func (s *State) Sides() []Side {
	var sides []Side
	for i := range s.combatants {
		c := &s.combatants[i]
		idx := -1
		for j := range sides {
			for _, g := range sides[j].Groups {
				if s.alliance.Allied(g, c.Group) {
					idx = j
					break
				}
			}
			if idx >= 0 {
				break
			}
		}
		if idx < 0 {
			sides = append(sides, Side{})
			idx = len(sides) - 1
		}
		sd := &sides[idx]
		known := false
		for _, g := range sd.Groups {
			if g == c.Group {
				known = true
				break
			}
		}
		if !known {
			sd.Groups = append(sd.Groups, c.Group)
		}
		sd.Members = append(sd.Members, c.ID)
		if !c.Incapacitated() {
			sd.Able++
		}
	}
	return sides
}
