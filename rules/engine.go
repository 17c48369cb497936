package rules

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// Engine scores candidate actions with a compiled rule set. It is shared by
// every search worker; Swap replaces the rules while searches are running.
type Engine struct {
	mu    sync.RWMutex
	rules []*Rule
}

// NewEngine compiles all rule conditions into expr bytecode and sorts by priority.
func NewEngine(rules []*Rule) (*Engine, error) {
	compiled, err := compileRules(rules)
	if err != nil {
		return nil, err
	}
	return &Engine{rules: compiled}, nil
}

// Bias runs the rules against env and returns the summed bias of every
// rule that fired. Rules whose condition errors are skipped.
func (e *Engine) Bias(env Env) float64 {
	if e == nil {
		return 0
	}
	e.mu.RLock()
	rules := e.rules
	e.mu.RUnlock()

	var fired map[string]bool // category → exclusive rule already fired
	total := 0.0
	for _, r := range rules {
		if fired[r.Category] {
			continue
		}

		result, err := vm.Run(r.program, env)
		if err != nil {
			slog.Warn("rule condition error", "rule", r.Name, "error", err)
			continue
		}

		match, ok := result.(bool)
		if !ok || !match {
			continue
		}

		total += r.Bias
		slog.Debug("rule fired", "rule", r.Name, "bias", r.Bias, "actor", env.Actor.ID, "target", env.Target.ID)

		if r.Exclusive {
			if fired == nil {
				fired = make(map[string]bool)
			}
			fired[r.Category] = true
		}
	}
	return total
}

// Swap atomically replaces the rule set (called when the doctrine is
// reloaded). Compiles first; if compilation fails the old rules remain
// active.
func (e *Engine) Swap(newRules []*Rule) error {
	compiled, err := compileRules(newRules)
	if err != nil {
		return err
	}
	e.mu.Lock()
	e.rules = compiled
	e.mu.Unlock()
	slog.Info("rule set swapped", "count", len(compiled), "rules", e.Names())
	return nil
}

// Names lists the active rules in evaluation order.
func (e *Engine) Names() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	names := make([]string, len(e.rules))
	for i, r := range e.rules {
		names[i] = r.Name
	}
	return names
}

func compileRules(rules []*Rule) ([]*Rule, error) {
	out := make([]*Rule, 0, len(rules))
	for _, r := range rules {
		prog, err := expr.Compile(r.ConditionSrc, expr.Env(Env{}), expr.AsBool())
		if err != nil {
			return nil, fmt.Errorf("compile rule %q: %w", r.Name, err)
		}
		c := *r
		c.program = prog
		out = append(out, &c)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Priority > out[j].Priority
	})
	return out, nil
}

// Compiler compiles and caches the boolean expressions used by action
// content: preconditions, conditional effects and conditional modifiers.
// It is safe for concurrent use.
type Compiler struct {
	mu       sync.RWMutex
	programs map[string]*vm.Program
}

func NewCompiler() *Compiler {
	return &Compiler{programs: make(map[string]*vm.Program)}
}

// Compile returns the cached program for src, compiling it on first use.
func (c *Compiler) Compile(src string) (*vm.Program, error) {
	c.mu.RLock()
	prog, ok := c.programs[src]
	c.mu.RUnlock()
	if ok {
		return prog, nil
	}
	prog, err := expr.Compile(src, expr.Env(Env{}), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("compile %q: %w", src, err)
	}
	c.mu.Lock()
	if existing, ok := c.programs[src]; ok {
		prog = existing
	} else {
		c.programs[src] = prog
	}
	c.mu.Unlock()
	return prog, nil
}

// Eval compiles src if needed and runs it against env.
func (c *Compiler) Eval(src string, env Env) (bool, error) {
	prog, err := c.Compile(src)
	if err != nil {
		return false, err
	}
	out, err := vm.Run(prog, env)
	if err != nil {
		return false, fmt.Errorf("eval %q: %w", src, err)
	}
	b, _ := out.(bool)
	return b, nil
}
