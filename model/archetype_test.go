package model

import (
	"errors"
	"testing"
)

type archetypeMap map[string]*Archetype

func (m archetypeMap) Archetype(id string) (*Archetype, bool) {
	a, ok := m[id]
	return a, ok
}

func TestModifierAndProficiency(t *testing.T) {
	mods := map[int]int{1: -5, 8: -1, 9: -1, 10: 0, 11: 0, 12: 1, 18: 4, 30: 10}
	for score, want := range mods {
		if got := Modifier(score); got != want {
			t.Errorf("Modifier(%d) = %d, want %d", score, got, want)
		}
	}
	profs := map[float64]int{0: 2, 0.5: 2, 4: 2, 5: 3, 8: 3, 9: 4, 17: 6, 30: 9}
	for cr, want := range profs {
		if got := ProficiencyForCR(cr); got != want {
			t.Errorf("ProficiencyForCR(%v) = %d, want %d", cr, got, want)
		}
	}
}

func TestResolveStats(t *testing.T) {
	a := &Archetype{
		ID: "mage", MaxHP: 40, CR: 6,
		Abilities:    AbilityScores{Str: 9, Dex: 14, Con: 11, Int: 17, Wis: 12, Cha: 11},
		Saves:        []Ability{Int, Wis},
		Skills:       map[string]int{"Arcana": 6},
		Spellcasting: &Spellcasting{Ability: Int},
	}
	st := ResolveStats(a)
	if st.Proficiency != 3 {
		t.Errorf("proficiency = %d, want 3", st.Proficiency)
	}
	if st.Save(Int) != 6 || st.Save(Dex) != 2 {
		t.Errorf("saves int=%d dex=%d, want 6 and 2", st.Save(Int), st.Save(Dex))
	}
	if st.SpellDC != 14 || st.SpellAttack != 6 {
		t.Errorf("spell dc=%d attack=%d, want 14 and 6", st.SpellDC, st.SpellAttack)
	}
	if st.Check("arcana") != 6 || st.Check("dex") != 2 || st.Check("juggling") != 0 {
		t.Error("unexpected check bonuses")
	}
}

func TestArchetypeCache(t *testing.T) {
	src := archetypeMap{"goblin": {ID: "goblin", MaxHP: 7, CR: 0.25}}
	cache := NewArchetypeCache(src)

	first, err := cache.Stats("goblin")
	if err != nil {
		t.Fatal(err)
	}
	second, _ := cache.Stats("goblin")
	if first != second {
		t.Error("cache should hand out the same snapshot")
	}

	src["goblin"] = &Archetype{ID: "goblin", MaxHP: 7, CR: 5}
	cache.Invalidate("goblin")
	third, _ := cache.Stats("goblin")
	if third == first || third.Proficiency != 3 {
		t.Error("invalidate should re-resolve from the reloaded definition")
	}

	if _, err := cache.Stats("dragon"); !errors.Is(err, ErrUnknownArchetype) {
		t.Errorf("unknown archetype err = %v", err)
	}
	cache.Reset()
	if cache.Len() != 0 {
		t.Error("reset left entries behind")
	}
}
