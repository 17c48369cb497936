package dice

import (
	"errors"
	"math"
	"math/rand"
	"testing"
)

func approx(a, b float64) bool { return math.Abs(a-b) <= 1e-9 }

// TestPMFSumsToOne ensures every accepted expression yields a normalized distribution.
func TestPMFSumsToOne(t *testing.T) {
	exprs := []string{
		"1d20", "2d6+3", "1d4-1", "8d6",
		"4d6kh3", "2d20kl1", "4d6dl1", "3d8dh1",
		"1d6!", "2d6r2", "2d6ro1", "1d10!+2d4kh1-3",
		"d%", "10", "1d8 + 1d6 + 2",
	}
	for _, s := range exprs {
		d, err := PMFOf(s)
		if err != nil {
			t.Fatalf("PMFOf(%q) failed: %v", s, err)
		}
		if !d.Valid() {
			t.Errorf("PMFOf(%q) sums to %.12f, want 1", s, d.Sum())
		}
	}
}

func TestExpectedValues(t *testing.T) {
	tests := []struct {
		expr string
		want float64
	}{
		{"1d20", 10.5},
		{"2d6+3", 10},
		{"1d8+3", 7.5},
		{"8d6", 28},
		{"1d4-1", 1.5},
		{"2d20kh1", 13.825},
		{"2d20kl1", 7.175},
		{"2d6ro1", 7 + 2*(1.0/6)*(3.5-1)},
		{"1d6r1", 4},
	}
	for _, tc := range tests {
		d, err := PMFOf(tc.expr)
		if err != nil {
			t.Fatalf("PMFOf(%q) failed: %v", tc.expr, err)
		}
		if got := d.Mean(); !approx(got, tc.want) {
			t.Errorf("Mean(%q) = %v, want %v", tc.expr, got, tc.want)
		}
	}
}

func TestSupportBounds(t *testing.T) {
	d := MustParse("2d6+3").PMF()
	if d.Min() != 5 || d.Max() != 15 {
		t.Errorf("2d6+3 support = [%d,%d], want [5,15]", d.Min(), d.Max())
	}
	if got := d.Prob(10); !approx(got, 6.0/36) {
		t.Errorf("P(2d6+3 == 10) = %v, want %v", got, 6.0/36)
	}
	k := MustParse("4d6kh3").PMF()
	if k.Min() != 3 || k.Max() != 18 {
		t.Errorf("4d6kh3 support = [%d,%d], want [3,18]", k.Min(), k.Max())
	}
	if got := k.Prob(18); !approx(got, 21.0/1296) {
		t.Errorf("P(4d6kh3 == 18) = %v, want %v", got, 21.0/1296)
	}
}

func TestKeepHighestMatchesMaxOf(t *testing.T) {
	adv := MustParse("2d20kh1").PMF()
	hi := MaxOf(Die(20), Die(20))
	for v := 1; v <= 20; v++ {
		if !approx(adv.Prob(v), hi.Prob(v)) {
			t.Fatalf("P(2d20kh1 == %d) = %v, MaxOf gives %v", v, adv.Prob(v), hi.Prob(v))
		}
	}
	dis := MustParse("2d20kl1").PMF()
	minD := MinOf(Die(20), Die(20))
	for v := 1; v <= 20; v++ {
		if !approx(dis.Prob(v), minD.Prob(v)) {
			t.Fatalf("P(2d20kl1 == %d) = %v, MinOf gives %v", v, dis.Prob(v), minD.Prob(v))
		}
	}
}

func TestExplodeCapsDepth(t *testing.T) {
	d := MustParse("1d6!").PMF()
	if d.Prob(6) != 0 {
		t.Errorf("exploding d6 should never total exactly 6, got %v", d.Prob(6))
	}
	if d.Max() != 6*(maxExplodeDepth+1) {
		t.Errorf("max = %d, want %d", d.Max(), 6*(maxExplodeDepth+1))
	}
	if !approx(d.Prob(7), 1.0/36) {
		t.Errorf("P(7) = %v, want 1/36", d.Prob(7))
	}
}

// TestConvolveMeanIsAdditive ensures E[A+B] == E[A] + E[B].
func TestConvolveMeanIsAdditive(t *testing.T) {
	pairs := [][2]PMF{
		{Die(20), MustParse("2d6+3").PMF()},
		{FromMap(map[int]float64{-3: 0.25, 0: 0.5, 7: 0.25}), Die(4)},
		{MustParse("4d6kh3").PMF(), MustParse("1d10!").PMF()},
	}
	for i, p := range pairs {
		a, b := p[0], p[1]
		ab := Convolve(a, b)
		ba := Convolve(b, a)
		if !approx(ab.Mean(), a.Mean()+b.Mean()) {
			t.Errorf("pair %d: E[A+B] = %v, want %v", i, ab.Mean(), a.Mean()+b.Mean())
		}
		if !approx(ab.Mean(), ba.Mean()) {
			t.Errorf("pair %d: convolution not commutative in mean", i)
		}
		if ab.Min() != a.Min()+b.Min() || ab.Max() != a.Max()+b.Max() {
			t.Errorf("pair %d: support [%d,%d] exceeds input bounds", i, ab.Min(), ab.Max())
		}
		c := Die(8)
		left := Convolve(Convolve(a, b), c)
		right := Convolve(a, Convolve(b, c))
		if !approx(left.Mean(), right.Mean()) {
			t.Errorf("pair %d: convolution not associative in mean", i)
		}
	}
}

func TestThresholds(t *testing.T) {
	d := Die(20).Shift(5)
	if got := d.ProbAtLeast(15); !approx(got, 0.55) {
		t.Errorf("P(d20+5 >= 15) = %v, want 0.55", got)
	}
	if got := d.ProbGreater(15); !approx(got, 0.5) {
		t.Errorf("P(d20+5 > 15) = %v, want 0.5", got)
	}
	if got := d.ProbAtMost(6); !approx(got, 0.05) {
		t.Errorf("P(d20+5 <= 6) = %v, want 0.05", got)
	}
	diff := Sub(Die(20), Die(20))
	if got := diff.ProbGreater(0); !approx(got, 190.0/400) {
		t.Errorf("P(d20 - d20 > 0) = %v, want %v", got, 190.0/400)
	}
}

func TestMixAndMap(t *testing.T) {
	m := Mix([]float64{0.45, 0.55}, []PMF{Constant(0), MustParse("1d8+3").PMF()})
	if !approx(m.Mean(), 0.55*7.5) {
		t.Errorf("mixture mean = %v, want %v", m.Mean(), 0.55*7.5)
	}
	half := MustParse("2d6").PMF().Map(func(v int) int { return v / 2 })
	if half.Min() != 1 || half.Max() != 6 {
		t.Errorf("halved support = [%d,%d], want [1,6]", half.Min(), half.Max())
	}
	if !half.Valid() {
		t.Errorf("halved distribution sums to %v", half.Sum())
	}
}

func TestDeterministic(t *testing.T) {
	a := MustParse("3d6!kh2+1d4ro1").PMF()
	b := MustParse("3d6!kh2+1d4ro1").PMF()
	if !a.Equal(b) {
		t.Fatal("identical expressions produced different distributions")
	}
}

func TestSampleStaysInSupport(t *testing.T) {
	d := MustParse("2d6+3").PMF()
	r := rand.New(rand.NewSource(7))
	for i := 0; i < 500; i++ {
		v := d.Sample(r)
		if v < 5 || v > 15 {
			t.Fatalf("sample %d outside [5,15]", v)
		}
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		in  string
		pos int
	}{
		{"", 0},
		{"2x6", 1},
		{"2d", 2},
		{"2d6+", 3},
		{"0d6", 0},
		{"2d6kx", 4},
		{"1d6r6", 3},
		{"1d1!", 0},
		{"5d6kh6", 3},
		{"1d6 3", 4},
		{"99999999999999999999", 0},
		{"2+99999999999999999999", 2},
		{"1d99999999999999999999", 2},
	}
	for _, tc := range tests {
		_, err := Parse(tc.in)
		var pe *ParseError
		if !errors.As(err, &pe) {
			t.Errorf("Parse(%q) error = %v, want *ParseError", tc.in, err)
			continue
		}
		if pe.Pos != tc.pos {
			t.Errorf("Parse(%q) position = %d, want %d (%v)", tc.in, pe.Pos, tc.pos, pe)
		}
	}
}

func TestDiceOnly(t *testing.T) {
	e := MustParse("2d6+1d8+4")
	if got := e.DiceOnly().PMF().Mean(); !approx(got, 11.5) {
		t.Errorf("DiceOnly mean = %v, want 11.5", got)
	}
	if got := MustParse("5").DiceOnly().PMF().Mean(); got != 0 {
		t.Errorf("constant DiceOnly mean = %v, want 0", got)
	}
}
