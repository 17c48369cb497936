// Package dice implements the probability engine: discrete probability mass
// functions over integer outcomes and a parser for dice expressions.
//
// # Determinism
//
// Every operation is exact and pure. Convolution is computed over the full
// supports of its inputs, never resampled, so the same inputs always produce
// bit-identical outputs. Iteration is always in ascending outcome order.
package dice

import (
	"math"
	"math/rand"
)

// Epsilon is the tolerance used when checking that a PMF sums to one.
const Epsilon = 1e-9

// PMF is a probability mass function over a contiguous integer support.
// The zero value behaves as a point mass at 0.
type PMF struct {
	min   int
	probs []float64
}

// Constant returns a point mass at v.
func Constant(v int) PMF {
	return PMF{min: v, probs: []float64{1}}
}

// Die returns the uniform distribution over 1..sides.
func Die(sides int) PMF {
	if sides < 1 {
		panic("dice: die must have at least one side")
	}
	probs := make([]float64, sides)
	p := 1 / float64(sides)
	for i := range probs {
		probs[i] = p
	}
	return PMF{min: 1, probs: probs}
}

// FromMap builds a PMF from an outcome → probability mapping. Outcomes with
// zero probability are dropped from the edges of the support.
func FromMap(m map[int]float64) PMF {
	if len(m) == 0 {
		return Constant(0)
	}
	lo, hi := math.MaxInt, math.MinInt
	for v := range m {
		lo = min(lo, v)
		hi = max(hi, v)
	}
	probs := make([]float64, hi-lo+1)
	for v := lo; v <= hi; v++ {
		probs[v-lo] = m[v]
	}
	return PMF{min: lo, probs: probs}.trim()
}

func (p PMF) norm() PMF {
	if len(p.probs) == 0 {
		return Constant(0)
	}
	return p
}

// Min returns the smallest outcome in the support.
func (p PMF) Min() int { return p.norm().min }

// Max returns the largest outcome in the support.
func (p PMF) Max() int {
	p = p.norm()
	return p.min + len(p.probs) - 1
}

// Prob returns P(X == v).
func (p PMF) Prob(v int) float64 {
	p = p.norm()
	i := v - p.min
	if i < 0 || i >= len(p.probs) {
		return 0
	}
	return p.probs[i]
}

// Outcomes calls fn for every outcome with non-zero probability, ascending.
func (p PMF) Outcomes(fn func(v int, prob float64)) {
	p = p.norm()
	for i, pr := range p.probs {
		if pr == 0 {
			continue
		}
		fn(p.min+i, pr)
	}
}

// Sum returns the total probability mass.
func (p PMF) Sum() float64 {
	p = p.norm()
	s := 0.0
	for _, pr := range p.probs {
		s += pr
	}
	return s
}

// Mean returns the expected value.
func (p PMF) Mean() float64 {
	p = p.norm()
	e := 0.0
	for i, pr := range p.probs {
		e += float64(p.min+i) * pr
	}
	return e
}

// Shift adds the constant k to every outcome.
func (p PMF) Shift(k int) PMF {
	p = p.norm()
	probs := make([]float64, len(p.probs))
	copy(probs, p.probs)
	return PMF{min: p.min + k, probs: probs}
}

// Neg returns the distribution of -X.
func (p PMF) Neg() PMF {
	p = p.norm()
	n := len(p.probs)
	probs := make([]float64, n)
	for i, pr := range p.probs {
		probs[n-1-i] = pr
	}
	return PMF{min: -p.Max(), probs: probs}
}

// Convolve returns the distribution of A+B for independent A and B. The
// support of the result is [a.Min+b.Min, a.Max+b.Max].
func Convolve(a, b PMF) PMF {
	a, b = a.norm(), b.norm()
	probs := make([]float64, len(a.probs)+len(b.probs)-1)
	for i, pa := range a.probs {
		if pa == 0 {
			continue
		}
		for j, pb := range b.probs {
			probs[i+j] += pa * pb
		}
	}
	return PMF{min: a.min + b.min, probs: probs}
}

// Sub returns the distribution of A-B for independent A and B.
func Sub(a, b PMF) PMF {
	return Convolve(a, b.Neg())
}

// Repeat returns the sum of n independent copies of X. Repeat(0) is a point
// mass at 0.
func (p PMF) Repeat(n int) PMF {
	out := Constant(0)
	for i := 0; i < n; i++ {
		out = Convolve(out, p)
	}
	return out
}

// ProbAtLeast returns P(X >= t).
func (p PMF) ProbAtLeast(t int) float64 {
	p = p.norm()
	s := 0.0
	for i, pr := range p.probs {
		if p.min+i >= t {
			s += pr
		}
	}
	return s
}

// ProbGreater returns P(X > t).
func (p PMF) ProbGreater(t int) float64 { return p.ProbAtLeast(t + 1) }

// ProbAtMost returns P(X <= t).
func (p PMF) ProbAtMost(t int) float64 {
	p = p.norm()
	s := 0.0
	for i, pr := range p.probs {
		if p.min+i <= t {
			s += pr
		}
	}
	return s
}

// MaxOf returns the distribution of max(A, B) for independent A and B.
func MaxOf(a, b PMF) PMF {
	a, b = a.norm(), b.norm()
	lo := max(a.min, b.min)
	hi := max(a.Max(), b.Max())
	probs := make([]float64, hi-lo+1)
	prev := a.ProbAtMost(lo-1) * b.ProbAtMost(lo-1)
	for v := lo; v <= hi; v++ {
		cdf := a.ProbAtMost(v) * b.ProbAtMost(v)
		probs[v-lo] = cdf - prev
		prev = cdf
	}
	return PMF{min: lo, probs: probs}.trim()
}

// MinOf returns the distribution of min(A, B) for independent A and B.
func MinOf(a, b PMF) PMF {
	return MaxOf(a.Neg(), b.Neg()).Neg()
}

// Map applies f to every outcome, merging outcomes that collide.
func (p PMF) Map(f func(int) int) PMF {
	p = p.norm()
	lo, hi := math.MaxInt, math.MinInt
	for i, pr := range p.probs {
		if pr == 0 {
			continue
		}
		v := f(p.min + i)
		lo = min(lo, v)
		hi = max(hi, v)
	}
	if lo > hi {
		return Constant(f(p.min))
	}
	probs := make([]float64, hi-lo+1)
	for i, pr := range p.probs {
		if pr == 0 {
			continue
		}
		probs[f(p.min+i)-lo] += pr
	}
	return PMF{min: lo, probs: probs}
}

// Mix returns the mixture Σ weights[i]·pmfs[i]. Weights are expected to sum
// to one; they are not renormalized.
func Mix(weights []float64, pmfs []PMF) PMF {
	if len(weights) != len(pmfs) {
		panic("dice: mix weights and distributions differ in length")
	}
	lo, hi := math.MaxInt, math.MinInt
	for i, d := range pmfs {
		if weights[i] == 0 {
			continue
		}
		lo = min(lo, d.Min())
		hi = max(hi, d.Max())
	}
	if lo > hi {
		return Constant(0)
	}
	probs := make([]float64, hi-lo+1)
	for i, d := range pmfs {
		w := weights[i]
		if w == 0 {
			continue
		}
		d.Outcomes(func(v int, pr float64) {
			probs[v-lo] += w * pr
		})
	}
	return PMF{min: lo, probs: probs}.trim()
}

// Sample draws one outcome using r.
func (p PMF) Sample(r *rand.Rand) int {
	p = p.norm()
	u := r.Float64()
	acc := 0.0
	for i, pr := range p.probs {
		acc += pr
		if u < acc {
			return p.min + i
		}
	}
	// Rounding can leave acc a hair under one.
	for i := len(p.probs) - 1; i >= 0; i-- {
		if p.probs[i] > 0 {
			return p.min + i
		}
	}
	return p.min
}

// Equal reports whether p and q have identical supports and probabilities.
func (p PMF) Equal(q PMF) bool {
	p, q = p.trim(), q.trim()
	if p.min != q.min || len(p.probs) != len(q.probs) {
		return false
	}
	for i := range p.probs {
		if p.probs[i] != q.probs[i] {
			return false
		}
	}
	return true
}

// trim drops zero-probability outcomes from both ends of the support.
func (p PMF) trim() PMF {
	p = p.norm()
	lo, hi := 0, len(p.probs)-1
	for lo < hi && p.probs[lo] == 0 {
		lo++
	}
	for hi > lo && p.probs[hi] == 0 {
		hi--
	}
	if lo == 0 && hi == len(p.probs)-1 {
		return p
	}
	probs := make([]float64, hi-lo+1)
	copy(probs, p.probs[lo:hi+1])
	return PMF{min: p.min + lo, probs: probs}
}
