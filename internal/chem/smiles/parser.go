package smiles

import (
	"strconv"
	"strings"

	"github.com/turtacn/autofragment/internal/domain/fragment"
	"github.com/turtacn/autofragment/pkg/errors"
)

// ─────────────────────────────────────────────────────────────────────────────
// Parser state
// ─────────────────────────────────────────────────────────────────────────────

type ringOpening struct {
	atom  int
	order fragment.BondOrder
	pos   int
}

type parser struct {
	src  string
	pos  int
	prev int
	// bond is the order written before the next atom or ring digit; zero
	// when none was written.
	bond     fragment.BondOrder
	branches []int
	rings    map[int]ringOpening

	atoms []fragment.Atom
	// bracket marks atoms whose hydrogen count was written explicitly.
	bracket []bool
	bonds   []fragment.Bond
	// implicit marks bonds written without a symbol between two aromatic
	// atoms.
	implicit []bool
	pairs    map[[2]int]struct{}
}

// parse reads a SMILES string into a graph.  Stereo markers are accepted and
// dropped; atom classes are ignored.
func parse(src string) (*fragment.MolecularGraph, error) {
	src = strings.TrimSpace(src)
	if src == "" {
		return nil, errors.New(errors.ErrCodeEmptyMolecule, "empty structure")
	}
	p := &parser{
		src:   src,
		prev:  -1,
		rings: make(map[int]ringOpening),
		pairs: make(map[[2]int]struct{}),
	}
	if err := p.run(); err != nil {
		return nil, err
	}
	p.resolveImplicitAromatic()
	p.assignImplicitHydrogens()
	return fragment.NewMolecularGraph(p.atoms, p.bonds)
}

func (p *parser) fail(format string, args ...interface{}) error {
	return errors.Newf(errors.ErrCodeStructureParseFailed, format, args...).
		WithDetailf("position %d in %q", p.pos, p.src)
}

func (p *parser) run() error {
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		switch {
		case c == '(':
			if p.prev < 0 {
				return p.fail("branch opened before any atom")
			}
			if p.bond != 0 {
				return p.fail("bond symbol before '('")
			}
			p.branches = append(p.branches, p.prev)
			p.pos++
		case c == ')':
			if len(p.branches) == 0 {
				return p.fail("unbalanced ')'")
			}
			if p.bond != 0 {
				return p.fail("dangling bond before ')'")
			}
			p.prev = p.branches[len(p.branches)-1]
			p.branches = p.branches[:len(p.branches)-1]
			p.pos++
		case c == '.':
			if p.bond != 0 {
				return p.fail("dangling bond before '.'")
			}
			p.prev = -1
			p.pos++
		case strings.IndexByte(`-=#$:/\`, c) >= 0:
			if p.prev < 0 {
				return p.fail("bond %q without a preceding atom", c)
			}
			if p.bond != 0 {
				return p.fail("two consecutive bond symbols")
			}
			p.bond = bondFromSymbol(c)
			p.pos++
		case c == '%' || (c >= '0' && c <= '9'):
			if err := p.ringBond(); err != nil {
				return err
			}
		case c == '[':
			if err := p.bracketAtom(); err != nil {
				return err
			}
		default:
			if err := p.organicAtom(); err != nil {
				return err
			}
		}
	}

	if p.bond != 0 {
		return p.fail("structure ends with a bond symbol")
	}
	if len(p.branches) > 0 {
		return p.fail("%d unclosed branch(es)", len(p.branches))
	}
	if len(p.rings) > 0 {
		for d := range p.rings {
			return p.fail("ring bond %d is never closed", d)
		}
	}
	if len(p.atoms) == 0 {
		return errors.New(errors.ErrCodeEmptyMolecule, "structure contains no atoms")
	}
	return nil
}

func bondFromSymbol(c byte) fragment.BondOrder {
	switch c {
	case '=':
		return fragment.BondDouble
	case '#':
		return fragment.BondTriple
	case '$':
		return fragment.BondQuadruple
	case ':':
		return fragment.BondAromatic
	default:
		return fragment.BondSingle
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Atoms
// ─────────────────────────────────────────────────────────────────────────────

func (p *parser) organicAtom() error {
	rest := p.src[p.pos:]
	for _, sym := range []string{"Cl", "Br"} {
		if strings.HasPrefix(rest, sym) {
			p.pos += 2
			return p.addAtom(fragment.Atom{Element: sym}, false)
		}
	}
	sym := rest[:1]
	if _, ok := defaultValences[sym]; ok {
		p.pos++
		return p.addAtom(fragment.Atom{Element: sym}, false)
	}
	if el, ok := aromaticOrganic[sym]; ok {
		p.pos++
		return p.addAtom(fragment.Atom{Element: el, Aromatic: true}, false)
	}
	return p.fail("unexpected character %q", rest[0])
}

func (p *parser) bracketAtom() error {
	end := strings.IndexByte(p.src[p.pos:], ']')
	if end < 0 {
		return p.fail("unclosed '['")
	}
	body := p.src[p.pos+1 : p.pos+end]
	atom, err := parseBracket(body)
	if err != nil {
		return p.fail("bad bracket atom [%s]: %v", body, err)
	}
	p.pos += end + 1
	return p.addAtom(atom, true)
}

// parseBracket reads the body of "[...]": isotope, symbol, chirality,
// hydrogen count, charge and class, in that order.
func parseBracket(body string) (fragment.Atom, error) {
	var atom fragment.Atom
	i := 0

	start := i
	for i < len(body) && body[i] >= '0' && body[i] <= '9' {
		i++
	}
	if i > start {
		atom.Isotope, _ = strconv.Atoi(body[start:i])
	}

	sym, aromatic, n := bracketSymbol(body[i:])
	if n == 0 {
		return atom, errors.New(errors.ErrCodeStructureParseFailed, "unknown element")
	}
	atom.Element, atom.Aromatic = sym, aromatic
	i += n

	// Chirality is accepted and dropped.
	for i < len(body) && body[i] == '@' {
		i++
	}
	if i+1 < len(body) && strings.Contains("TH AL SP TB OH", body[i:i+2]) && body[i-1] == '@' {
		i += 2
		for i < len(body) && body[i] >= '0' && body[i] <= '9' {
			i++
		}
	}

	if i < len(body) && body[i] == 'H' {
		i++
		atom.Hydrogens = 1
		start = i
		for i < len(body) && body[i] >= '0' && body[i] <= '9' {
			i++
		}
		if i > start {
			atom.Hydrogens, _ = strconv.Atoi(body[start:i])
		}
	}

	if i < len(body) && (body[i] == '+' || body[i] == '-') {
		sign := 1
		if body[i] == '-' {
			sign = -1
		}
		c := body[i]
		i++
		magnitude := 1
		start = i
		for i < len(body) && body[i] >= '0' && body[i] <= '9' {
			i++
		}
		if i > start {
			magnitude, _ = strconv.Atoi(body[start:i])
		} else {
			for i < len(body) && body[i] == c {
				magnitude++
				i++
			}
		}
		atom.Charge = sign * magnitude
	}

	if i < len(body) && body[i] == ':' {
		i++
		start = i
		for i < len(body) && body[i] >= '0' && body[i] <= '9' {
			i++
		}
		if i == start {
			return atom, errors.New(errors.ErrCodeStructureParseFailed, "atom class without a number")
		}
	}

	if i != len(body) {
		return atom, errors.Newf(errors.ErrCodeStructureParseFailed, "unexpected %q", body[i:])
	}
	return atom, nil
}

// bracketSymbol returns the element at the start of s and how many bytes it
// spans; zero when s does not start with a known element.
func bracketSymbol(s string) (string, bool, int) {
	if len(s) >= 2 {
		if el, ok := aromaticBracket[s[:2]]; ok {
			return el, true, 2
		}
	}
	if len(s) >= 1 {
		if el, ok := aromaticBracket[s[:1]]; ok {
			return el, true, 1
		}
	}
	if len(s) >= 2 {
		if _, ok := periodicTable[s[:2]]; ok {
			return s[:2], false, 2
		}
	}
	if len(s) >= 1 {
		if _, ok := periodicTable[s[:1]]; ok {
			return s[:1], false, 1
		}
	}
	return "", false, 0
}

func (p *parser) addAtom(atom fragment.Atom, bracket bool) error {
	idx := len(p.atoms)
	p.atoms = append(p.atoms, atom)
	p.bracket = append(p.bracket, bracket)
	if p.prev >= 0 {
		if err := p.addBond(p.prev, idx, p.bond); err != nil {
			return err
		}
	}
	p.bond = 0
	p.prev = idx
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Bonds
// ─────────────────────────────────────────────────────────────────────────────

func (p *parser) ringBond() error {
	if p.prev < 0 {
		return p.fail("ring bond without a preceding atom")
	}
	var digit int
	if p.src[p.pos] == '%' {
		if p.pos+2 >= len(p.src) || !isDigit(p.src[p.pos+1]) || !isDigit(p.src[p.pos+2]) {
			return p.fail("'%%' must be followed by two digits")
		}
		digit, _ = strconv.Atoi(p.src[p.pos+1 : p.pos+3])
		p.pos += 3
	} else {
		digit = int(p.src[p.pos] - '0')
		p.pos++
	}

	open, ok := p.rings[digit]
	if !ok {
		p.rings[digit] = ringOpening{atom: p.prev, order: p.bond, pos: p.pos}
		p.bond = 0
		return nil
	}
	delete(p.rings, digit)

	order := p.bond
	if open.order != 0 {
		if order != 0 && order != open.order {
			return p.fail("ring bond %d has conflicting bond orders", digit)
		}
		order = open.order
	}
	p.bond = 0
	if open.atom == p.prev {
		return p.fail("ring bond %d closes on its own atom", digit)
	}
	return p.addBond(open.atom, p.prev, order)
}

func (p *parser) addBond(a, b int, order fragment.BondOrder) error {
	key := [2]int{min(a, b), max(a, b)}
	if _, dup := p.pairs[key]; dup {
		return p.fail("atoms %d and %d are bonded twice", a, b)
	}
	p.pairs[key] = struct{}{}
	implicit := false
	if order == 0 {
		order = fragment.BondSingle
		if p.atoms[a].Aromatic && p.atoms[b].Aromatic {
			order, implicit = fragment.BondAromatic, true
		}
	}
	p.bonds = append(p.bonds, fragment.Bond{Begin: a, End: b, Order: order})
	p.implicit = append(p.implicit, implicit)
	return nil
}

// resolveImplicitAromatic turns an unwritten bond between aromatic atoms into
// a single bond unless it closes a ring, so that c1ccccc1c1ccccc1 and
// c1ccccc1-c1ccccc1 read the same.
func (p *parser) resolveImplicitAromatic() {
	var rings map[[2]int]struct{}
	for i, b := range p.bonds {
		if !p.implicit[i] {
			continue
		}
		if rings == nil {
			rings = ringPairs(len(p.atoms), p.bonds)
		}
		if !inRing(rings, b.Begin, b.End) {
			p.bonds[i].Order = fragment.BondSingle
		}
	}
}

func (p *parser) assignImplicitHydrogens() {
	sums := make([]int, len(p.atoms))
	for _, b := range p.bonds {
		v := b.Order.Valence()
		sums[b.Begin] += v
		sums[b.End] += v
	}
	for i := range p.atoms {
		if p.bracket[i] {
			continue
		}
		p.atoms[i].Hydrogens = implicitHydrogens(p.atoms[i].Element, p.atoms[i].Aromatic, sums[i])
	}
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

//Personal.AI order the ending
