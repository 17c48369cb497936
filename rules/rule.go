package rules

import "github.com/expr-lang/expr/vm"

// Rule is a tactical preference: when its condition holds for a candidate
// action, Bias is added to that candidate's score. The engine evaluates
// rules by priority and uses Category + Exclusive so that only the
// strongest rule of a kind counts.
type Rule struct {
	Name         string      // human-readable identifier
	Priority     int         // higher = evaluated first
	Category     string      // grouping for exclusive semantics
	Exclusive    bool        // if true, blocks lower-priority rules in same category
	ConditionSrc string      // expr source (preserved for serialization)
	Bias         float64     // score adjustment when the rule fires
	program      *vm.Program // compiled bytecode
}
