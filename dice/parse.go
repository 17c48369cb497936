package dice

import (
	"strconv"
	"strings"
)

// Parse parses a dice expression.
//
// Grammar (ASCII, case-insensitive, spaces allowed between terms):
//
//	expr   := term (('+' | '-') term)*
//	term   := INT | [INT] 'd' (INT | '%') suffix*
//	suffix := ('kh' | 'kl' | 'dh' | 'dl') [INT] | 'r' INT | 'ro' INT | '!'
//
// "rN" rerolls faces <= N until they stop appearing, "roN" rerolls them once,
// "!" explodes on the highest face. Drop modifiers are rewritten as keeps.
func Parse(s string) (Expr, error) {
	p := &parser{src: s, in: strings.ToLower(s)}
	return p.parse()
}

type parser struct {
	src string
	in  string
	pos int
}

func (p *parser) fail(start int, msg string) error {
	end := start + 1
	if end > len(p.src) {
		end = len(p.src)
	}
	tok := ""
	if start < len(p.src) {
		tok = p.src[start:end]
	}
	return &ParseError{Input: p.src, Pos: start, Token: tok, Msg: msg}
}

func (p *parser) skipSpace() {
	for p.pos < len(p.in) && (p.in[p.pos] == ' ' || p.in[p.pos] == '\t') {
		p.pos++
	}
}

func (p *parser) peek() byte {
	if p.pos >= len(p.in) {
		return 0
	}
	return p.in[p.pos]
}

func (p *parser) number() (int, bool, error) {
	start := p.pos
	for p.pos < len(p.in) && p.in[p.pos] >= '0' && p.in[p.pos] <= '9' {
		p.pos++
	}
	if start == p.pos {
		return 0, false, nil
	}
	n, err := strconv.Atoi(p.in[start:p.pos])
	if err != nil {
		return 0, false, p.fail(start, "number out of range")
	}
	return n, true, nil
}

func (p *parser) parse() (Expr, error) {
	p.skipSpace()
	if p.pos >= len(p.in) {
		return Expr{}, p.fail(p.pos, "empty expression")
	}
	var terms []Term
	sign := 1
	for {
		p.skipSpace()
		t, err := p.term()
		if err != nil {
			return Expr{}, err
		}
		t.Sign = sign
		terms = append(terms, t)

		p.skipSpace()
		if p.pos >= len(p.in) {
			break
		}
		switch p.peek() {
		case '+':
			sign = 1
		case '-':
			sign = -1
		default:
			return Expr{}, p.fail(p.pos, "expected '+' or '-'")
		}
		p.pos++
		p.skipSpace()
		if p.pos >= len(p.in) {
			return Expr{}, p.fail(p.pos-1, "dangling operator")
		}
	}
	return Expr{Terms: terms, src: strings.TrimSpace(p.src)}, nil
}

func (p *parser) term() (Term, error) {
	start := p.pos
	n, hasCount, err := p.number()
	if err != nil {
		return Term{}, err
	}
	if p.peek() != 'd' {
		if !hasCount {
			return Term{}, p.fail(start, "expected number or dice")
		}
		return Term{Const: n}, nil
	}
	p.pos++ // 'd'
	count := 1
	if hasCount {
		count = n
	}
	if count < 1 || count > MaxDice {
		return Term{}, p.fail(start, "dice count out of range")
	}

	sidesAt := p.pos
	var sides int
	if p.peek() == '%' {
		p.pos++
		sides = 100
	} else {
		var (
			ok  bool
			err error
		)
		if sides, ok, err = p.number(); err != nil {
			return Term{}, err
		}
		if !ok {
			return Term{}, p.fail(sidesAt, "expected die size")
		}
	}
	if sides < 1 || sides > MaxSides {
		return Term{}, p.fail(sidesAt, "die size out of range")
	}

	t := Term{Count: count, Sides: sides}
	seen := map[byte]bool{}
	for p.pos < len(p.in) {
		at := p.pos
		c := p.peek()
		switch c {
		case 'k', 'd':
			if seen['k'] {
				return Term{}, p.fail(at, "duplicate keep/drop modifier")
			}
			seen['k'] = true
			p.pos++
			mode := p.peek()
			if mode != 'h' && mode != 'l' {
				return Term{}, p.fail(p.pos, "expected 'h' or 'l'")
			}
			p.pos++
			k, ok, err := p.number()
			if err != nil {
				return Term{}, err
			}
			if !ok {
				k = 1
			}
			if err := p.applyKeep(&t, c, mode, k, at); err != nil {
				return Term{}, err
			}
		case 'r':
			if seen['r'] {
				return Term{}, p.fail(at, "duplicate reroll modifier")
			}
			seen['r'] = true
			p.pos++
			if p.peek() == 'o' {
				p.pos++
				t.RerollOnce = true
			}
			v, ok, err := p.number()
			if err != nil {
				return Term{}, err
			}
			if !ok {
				return Term{}, p.fail(p.pos, "expected reroll threshold")
			}
			if v < 1 || v >= sides {
				return Term{}, p.fail(at, "reroll threshold out of range")
			}
			t.Reroll = v
		case '!':
			if seen['!'] {
				return Term{}, p.fail(at, "duplicate explode modifier")
			}
			seen['!'] = true
			p.pos++
			t.Explode = true
		default:
			if c == ' ' || c == '\t' || c == '+' || c == '-' {
				return t, p.checkExplode(t, start)
			}
			return Term{}, p.fail(at, "unexpected character")
		}
	}
	return t, p.checkExplode(t, start)
}

func (p *parser) applyKeep(t *Term, kind, mode byte, n, at int) error {
	if kind == 'k' {
		if n < 1 || n > t.Count {
			return p.fail(at, "keep count out of range")
		}
		t.KeepN = n
		t.Keep = KeepHighest
		if mode == 'l' {
			t.Keep = KeepLowest
		}
		return nil
	}
	if n < 0 || n >= t.Count {
		return p.fail(at, "drop count out of range")
	}
	// Dropping the lowest n keeps the highest Count-n, and vice versa.
	t.KeepN = t.Count - n
	t.Keep = KeepHighest
	if mode == 'h' {
		t.Keep = KeepLowest
	}
	return nil
}

func (p *parser) checkExplode(t Term, start int) error {
	if !t.Explode {
		return nil
	}
	faces := t.Sides
	if t.Reroll > 0 && !t.RerollOnce {
		faces = t.Sides - t.Reroll
	}
	if faces < 2 {
		return p.fail(start, "exploding die needs at least two faces")
	}
	return nil
}
