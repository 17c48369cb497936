package dice

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Parser limits. Expressions beyond them are rejected as malformed content.
const (
	MaxDice         = 100
	MaxSides        = 1000
	maxExplodeDepth = 4
)

// KeepMode selects which dice of a pool contribute to the total.
type KeepMode int

const (
	KeepAll KeepMode = iota
	KeepHighest
	KeepLowest
)

// Term is one additive component of a dice expression: either a constant or
// a pool of identical dice.
type Term struct {
	Sign       int // +1 or -1
	Count      int // number of dice; 0 for a constant term
	Sides      int
	Const      int
	Keep       KeepMode
	KeepN      int
	Reroll     int // faces <= Reroll are rerolled; 0 disables
	RerollOnce bool
	Explode    bool
}

// IsDice reports whether the term rolls dice.
func (t Term) IsDice() bool { return t.Count > 0 }

// Expr is a parsed dice expression such as "2d6+3" or "4d6kh3".
type Expr struct {
	Terms []Term
	src   string
}

// ParseError reports a malformed dice expression, naming the offending token
// and its 0-based byte position.
type ParseError struct {
	Input string
	Pos   int
	Token string
	Msg   string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("dice: %s at position %d (%q) in %q", e.Msg, e.Pos, e.Token, e.Input)
}

// MustParse is like Parse but panics on error. Intended for literals.
func MustParse(s string) Expr {
	e, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return e
}

// PMFOf parses s and returns its distribution.
func PMFOf(s string) (PMF, error) {
	e, err := Parse(s)
	if err != nil {
		return PMF{}, err
	}
	return e.PMF(), nil
}

// String returns the source text of the expression.
func (e Expr) String() string {
	if e.src != "" {
		return e.src
	}
	var b strings.Builder
	for i, t := range e.Terms {
		switch {
		case t.Sign < 0:
			b.WriteString("-")
		case i > 0:
			b.WriteString("+")
		}
		if !t.IsDice() {
			b.WriteString(strconv.Itoa(t.Const))
			continue
		}
		fmt.Fprintf(&b, "%dd%d", t.Count, t.Sides)
		switch t.Keep {
		case KeepHighest:
			fmt.Fprintf(&b, "kh%d", t.KeepN)
		case KeepLowest:
			fmt.Fprintf(&b, "kl%d", t.KeepN)
		}
		if t.Reroll > 0 {
			if t.RerollOnce {
				fmt.Fprintf(&b, "ro%d", t.Reroll)
			} else {
				fmt.Fprintf(&b, "r%d", t.Reroll)
			}
		}
		if t.Explode {
			b.WriteString("!")
		}
	}
	return b.String()
}

// DiceOnly returns the expression with constant terms removed. Critical hits
// roll these extra dice.
func (e Expr) DiceOnly() Expr {
	var terms []Term
	for _, t := range e.Terms {
		if t.IsDice() {
			terms = append(terms, t)
		}
	}
	return Expr{Terms: terms}
}

// PMF returns the exact distribution of the expression.
func (e Expr) PMF() PMF {
	out := Constant(0)
	for _, t := range e.Terms {
		d := t.pmf()
		if t.Sign < 0 {
			d = d.Neg()
		}
		out = Convolve(out, d)
	}
	return out
}

func (t Term) pmf() PMF {
	if !t.IsDice() {
		return Constant(t.Const)
	}
	face := t.face()
	switch t.Keep {
	case KeepHighest:
		return keepPMF(face, t.Count, t.KeepN, true)
	case KeepLowest:
		return keepPMF(face, t.Count, t.KeepN, false)
	default:
		return face.Repeat(t.Count)
	}
}

// face returns the distribution of a single die after reroll and explode.
func (t Term) face() PMF {
	s := float64(t.Sides)
	probs := make(map[int]float64, t.Sides)
	switch {
	case t.Reroll > 0 && t.RerollOnce:
		low := float64(t.Reroll) / s
		for v := 1; v <= t.Sides; v++ {
			p := low / s
			if v > t.Reroll {
				p += 1 / s
			}
			probs[v] = p
		}
	case t.Reroll > 0:
		kept := float64(t.Sides - t.Reroll)
		for v := t.Reroll + 1; v <= t.Sides; v++ {
			probs[v] = 1 / kept
		}
	default:
		for v := 1; v <= t.Sides; v++ {
			probs[v] = 1 / s
		}
	}
	base := FromMap(probs)
	if !t.Explode {
		return base
	}
	top := t.Sides
	pTop := base.Prob(top)
	below := make(map[int]float64, t.Sides)
	base.Outcomes(func(v int, p float64) {
		if v != top {
			below[v] = p
		}
	})
	belowMass := 1 - pTop
	rest := scale(FromMap(below), belowMass)
	cur := base
	for i := 0; i < maxExplodeDepth; i++ {
		cur = Mix([]float64{belowMass, pTop}, []PMF{rest, cur.Shift(top)})
	}
	return cur
}

// scale renormalizes a partial distribution with total mass m to sum to one.
func scale(p PMF, m float64) PMF {
	if m == 0 {
		return Constant(0)
	}
	p = p.norm()
	probs := make([]float64, len(p.probs))
	for i, pr := range p.probs {
		probs[i] = pr / m
	}
	return PMF{min: p.min, probs: probs}
}

// keepPMF returns the distribution of the sum of the k highest (or lowest)
// of n independent draws from face. Faces are assigned in rank order; the
// first k dice assigned are the kept ones.
func keepPMF(face PMF, n, k int, highest bool) PMF {
	if k >= n {
		return face.Repeat(n)
	}
	var values []int
	face.Outcomes(func(v int, _ float64) { values = append(values, v) })
	if highest {
		for i, j := 0, len(values)-1; i < j; i, j = i+1, j-1 {
			values[i], values[j] = values[j], values[i]
		}
	}
	lo, hi := face.Min(), face.Max()
	minSum, maxSum := k*lo, k*hi
	width := maxSum - minSum + 1

	// dp[a][s]: probability mass with a dice assigned and kept sum s+minSum
	// (the kept dice not yet assigned are counted at lo for now).
	dp := make([][]float64, n+1)
	for a := range dp {
		dp[a] = make([]float64, width)
	}
	dp[0][0] = 1
	binom := binomials(n)
	for _, v := range values {
		pv := face.Prob(v)
		next := make([][]float64, n+1)
		for a := range next {
			next[a] = make([]float64, width)
		}
		for a := 0; a <= n; a++ {
			for s, mass := range dp[a] {
				if mass == 0 {
					continue
				}
				pc := 1.0
				for c := 0; a+c <= n; c++ {
					kept := min(c, max(0, k-a))
					ns := s + kept*(v-lo)
					next[a+c][ns] += mass * binom[n-a][c] * pc
					pc *= pv
				}
			}
		}
		dp = next
	}
	probs := make(map[int]float64, width)
	for s, mass := range dp[n] {
		if mass != 0 {
			probs[s+minSum] = mass
		}
	}
	return FromMap(probs)
}

func binomials(n int) [][]float64 {
	c := make([][]float64, n+1)
	for i := range c {
		c[i] = make([]float64, i+1)
		c[i][0], c[i][i] = 1, 1
		for j := 1; j < i; j++ {
			c[i][j] = c[i-1][j-1] + c[i-1][j]
		}
	}
	return c
}

// Valid reports whether the PMF sums to one within Epsilon.
func (p PMF) Valid() bool {
	return math.Abs(p.Sum()-1) <= Epsilon
}
