package model

import (
	"errors"
	"fmt"
	"slices"
)

// ErrInsufficientBudget is returned when a turn budget cannot cover a cost.
var ErrInsufficientBudget = errors.New("insufficient turn budget")

// Slot is the part of the action economy an action consumes.
type Slot int

const (
	SlotFree Slot = iota
	SlotAction
	SlotBonus
	SlotReaction
)

var slotNames = [...]string{"free", "action", "bonus", "reaction"}

func (s Slot) String() string {
	if int(s) < len(slotNames) {
		return slotNames[s]
	}
	return fmt.Sprintf("slot(%d)", int(s))
}

// ParseSlot converts a slot name; "" means a free action.
func ParseSlot(name string) (Slot, error) {
	if name == "" {
		return SlotFree, nil
	}
	for i, n := range slotNames {
		if n == name {
			return Slot(i), nil
		}
	}
	return 0, fmt.Errorf("unknown action slot %q", name)
}

// Budget is what a combatant may still spend this turn. Budgets are values:
// every Consume method returns a new budget and leaves the receiver alone.
type Budget struct {
	movement [numMoveModes]int // squares
	action   bool
	bonus    bool
	reaction bool
	spent    []Resource
}

// NewBudget returns the full allotment for a combatant at the start of its
// turn.
func NewBudget(c Combatant) Budget {
	b := Budget{action: true, bonus: true, reaction: true}
	for m := range numMoveModes {
		b.movement[m] = c.Speed.Cells(m)
	}
	if slices.ContainsFunc(c.Conditions, func(cd Condition) bool {
		return lower(cd.Name) == "grappled" || lower(cd.Name) == "restrained"
	}) {
		b.movement = [numMoveModes]int{}
	}
	return b
}

// Movement returns the squares left in mode m.
func (b Budget) Movement(m MoveMode) int { return b.movement[m] }

// BestMode returns the mode with the most movement left (walk on ties).
func (b Budget) BestMode() MoveMode {
	best := Walk
	for m := range numMoveModes {
		if b.movement[m] > b.movement[best] {
			best = m
		}
	}
	return best
}

// Has reports whether slot is still available. Free actions always are.
func (b Budget) Has(s Slot) bool {
	switch s {
	case SlotAction:
		return b.action
	case SlotBonus:
		return b.bonus
	case SlotReaction:
		return b.reaction
	}
	return true
}

// Spent returns how much of a resource was spent this turn.
func (b Budget) Spent(name string) int {
	if i := indexNamed(b.spent, name); i >= 0 {
		return b.spent[i].Current
	}
	return 0
}

// Exhausted reports whether neither movement nor an action or bonus action
// remains. Reactions are not part of a turn's plan.
func (b Budget) Exhausted() bool {
	if b.action || b.bonus {
		return false
	}
	for _, m := range b.movement {
		if m > 0 {
			return false
		}
	}
	return true
}

// ConsumeMovement spends squares of movement in mode m. Moving in one mode
// uses up the same distance from every other mode.
func (b Budget) ConsumeMovement(m MoveMode, squares int) (Budget, error) {
	if squares < 0 || squares > b.movement[m] {
		return b, fmt.Errorf("move %d %s squares with %d left: %w", squares, m, b.movement[m], ErrInsufficientBudget)
	}
	for i := range b.movement {
		b.movement[i] = max(b.movement[i]-squares, 0)
	}
	return b, nil
}

// ConsumeSlot spends an action slot.
func (b Budget) ConsumeSlot(s Slot) (Budget, error) {
	if !b.Has(s) {
		return b, fmt.Errorf("%s already used: %w", s, ErrInsufficientBudget)
	}
	switch s {
	case SlotAction:
		b.action = false
	case SlotBonus:
		b.bonus = false
	case SlotReaction:
		b.reaction = false
	}
	return b, nil
}

// SpendResource records n units of a resource spent this turn against the
// combatant's current pool.
func (b Budget) SpendResource(c Combatant, name string, n int) (Budget, error) {
	have := 0
	if r, ok := c.Resource(name); ok {
		have = r.Current
	}
	if b.Spent(name)+n > have {
		return b, fmt.Errorf("spend %d %s with %d left: %w", n, name, have-b.Spent(name), ErrInsufficientBudget)
	}
	spent := slices.Clone(b.spent)
	if i := indexNamed(spent, name); i >= 0 {
		spent[i].Current += n
	} else {
		spent = append(spent, Resource{Name: name, Current: n})
	}
	b.spent = spent
	return b, nil
}

// EndMovement drops any remaining movement; used once a turn commits to an
// action that ends movement.
func (b Budget) EndMovement() Budget {
	b.movement = [numMoveModes]int{}
	return b
}

func (b Budget) String() string {
	return fmt.Sprintf("move=%v action=%t bonus=%t reaction=%t", b.movement, b.action, b.bonus, b.reaction)
}
