package smiles

import (
	"sort"
	"strconv"
	"strings"

	"github.com/turtacn/autofragment/internal/domain/fragment"
	"github.com/turtacn/autofragment/pkg/errors"
)

// DefaultMaxLeaves bounds the number of complete orderings the canonicalizer
// explores for one fragment.
const DefaultMaxLeaves = 20000

// ─────────────────────────────────────────────────────────────────────────────
// Induced subgraph
// ─────────────────────────────────────────────────────────────────────────────

type edge struct {
	to    int
	order fragment.BondOrder
}

type subgraph struct {
	labels   []string
	aromatic []bool
	adj      [][]edge
}

func induce(g *fragment.MolecularGraph, atoms, bonds []int) (*subgraph, error) {
	if len(atoms) == 0 {
		return nil, errors.New(errors.ErrCodeCanonicalizationFailed, "fragment has no atoms")
	}
	local := make(map[int]int, len(atoms))
	sg := &subgraph{
		labels:   make([]string, 0, len(atoms)),
		aromatic: make([]bool, 0, len(atoms)),
		adj:      make([][]edge, 0, len(atoms)),
	}
	for _, a := range atoms {
		if !g.HasAtom(a) {
			return nil, errors.Newf(errors.ErrCodeCanonicalizationFailed, "atom %d out of range", a)
		}
		if _, dup := local[a]; dup {
			continue
		}
		local[a] = len(sg.labels)
		atom := g.Atom(a)
		sg.labels = append(sg.labels, atomLabel(atom, bondOrderSum(g, a)))
		sg.aromatic = append(sg.aromatic, atom.Aromatic)
		sg.adj = append(sg.adj, nil)
	}

	used := make(map[int]struct{}, len(bonds))
	for _, b := range bonds {
		if !g.HasBond(b) {
			return nil, errors.Newf(errors.ErrCodeCanonicalizationFailed, "bond %d out of range", b)
		}
		if _, dup := used[b]; dup {
			continue
		}
		used[b] = struct{}{}
		bond := g.Bond(b)
		u, okU := local[bond.Begin]
		v, okV := local[bond.End]
		if !okU || !okV {
			return nil, errors.Newf(errors.ErrCodeCanonicalizationFailed,
				"bond %d has an endpoint outside the fragment", b)
		}
		sg.adj[u] = append(sg.adj[u], edge{to: v, order: bond.Order})
		sg.adj[v] = append(sg.adj[v], edge{to: u, order: bond.Order})
	}
	return sg, nil
}

// atomLabel writes an atom the way it appears in a fragment string.  An
// uncharged, unlabelled organic-subset atom is bare when its hydrogen count is
// the one its valence implies; bondSum is the atom's bond-order sum in the
// whole molecule, so a fragment boundary never changes the label.
func atomLabel(a fragment.Atom, bondSum int) string {
	sym := a.Element
	_, organic := defaultValences[a.Element]
	if a.Aromatic {
		sym = strings.ToLower(sym)
		_, organic = aromaticOrganic[sym]
	}
	if organic && a.Charge == 0 && a.Isotope == 0 &&
		a.Hydrogens == implicitHydrogens(a.Element, a.Aromatic, bondSum) {
		return sym
	}

	var sb strings.Builder
	sb.WriteByte('[')
	if a.Isotope > 0 {
		sb.WriteString(strconv.Itoa(a.Isotope))
	}
	sb.WriteString(sym)
	if a.Hydrogens > 0 {
		sb.WriteByte('H')
		if a.Hydrogens > 1 {
			sb.WriteString(strconv.Itoa(a.Hydrogens))
		}
	}
	switch {
	case a.Charge == 1:
		sb.WriteByte('+')
	case a.Charge == -1:
		sb.WriteByte('-')
	case a.Charge > 1:
		sb.WriteString("+" + strconv.Itoa(a.Charge))
	case a.Charge < -1:
		sb.WriteString(strconv.Itoa(a.Charge))
	}
	sb.WriteByte(']')
	return sb.String()
}

func bondOrderSum(g *fragment.MolecularGraph, atom int) int {
	sum := 0
	for _, b := range g.BondsOf(atom) {
		sum += g.Bond(b).Order.Valence()
	}
	return sum
}

func bondSymbol(order fragment.BondOrder, bothAromatic bool) string {
	switch order {
	case fragment.BondDouble:
		return "="
	case fragment.BondTriple:
		return "#"
	case fragment.BondQuadruple:
		return "$"
	case fragment.BondAromatic:
		if bothAromatic {
			return ""
		}
		return ":"
	default:
		if bothAromatic {
			return "-"
		}
		return ""
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Partition refinement
// ─────────────────────────────────────────────────────────────────────────────

// assignRanks gives every atom the number of atoms whose key sorts strictly
// before its own.
func assignRanks(keys [][]int) []int {
	n := len(keys)
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return compareInts(keys[idx[a]], keys[idx[b]]) < 0 })
	ranks := make([]int, n)
	for pos, i := range idx {
		if pos > 0 && compareInts(keys[idx[pos-1]], keys[i]) == 0 {
			ranks[i] = ranks[idx[pos-1]]
		} else {
			ranks[i] = pos
		}
	}
	return ranks
}

func compareInts(a, b []int) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			if a[i] < b[i] {
				return -1
			}
			return 1
		}
	}
	return len(a) - len(b)
}

func countClasses(ranks []int) int {
	seen := make(map[int]struct{}, len(ranks))
	for _, r := range ranks {
		seen[r] = struct{}{}
	}
	return len(seen)
}

func (sg *subgraph) initialRanks() []int {
	labelIDs := make(map[string]int)
	sorted := append([]string(nil), sg.labels...)
	sort.Strings(sorted)
	for _, l := range sorted {
		if _, ok := labelIDs[l]; !ok {
			labelIDs[l] = len(labelIDs)
		}
	}
	keys := make([][]int, len(sg.labels))
	for i := range keys {
		keys[i] = []int{labelIDs[sg.labels[i]], len(sg.adj[i])}
	}
	return assignRanks(keys)
}

// refine splits rank classes by the multiset of (neighbour rank, bond order)
// until the partition is stable.
func (sg *subgraph) refine(ranks []int) []int {
	classes := countClasses(ranks)
	for {
		keys := make([][]int, len(ranks))
		for i := range ranks {
			nb := make([]int, len(sg.adj[i]))
			for j, e := range sg.adj[i] {
				nb[j] = ranks[e.to]*8 + int(e.order)
			}
			sort.Ints(nb)
			keys[i] = append([]int{ranks[i]}, nb...)
		}
		next := assignRanks(keys)
		n := countClasses(next)
		if n == classes {
			return next
		}
		ranks, classes = next, n
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Individualisation search
// ─────────────────────────────────────────────────────────────────────────────

type leaf struct {
	key   string
	ranks []int
	path  []int
}

type canonicalizer struct {
	sg        *subgraph
	maxLeaves int
	leaves    int
	best      *leaf
	// seen maps the certificate of every visited leaf to that leaf.  Two
	// leaves share a certificate exactly when mapping one ordering onto the
	// other is an automorphism.
	seen map[string]*leaf
	// autos holds the automorphisms found so far as atom permutations.
	autos [][]int
}

// canonicalString renders the subgraph of g induced by atoms and bonds.  The
// result is the smallest string over every ordering consistent with the
// refined partition, so it does not depend on atom numbering.
func canonicalString(g *fragment.MolecularGraph, atoms, bonds []int, maxLeaves int) (string, error) {
	sg, err := induce(g, atoms, bonds)
	if err != nil {
		return "", err
	}
	if maxLeaves <= 0 {
		maxLeaves = DefaultMaxLeaves
	}
	c := &canonicalizer{sg: sg, maxLeaves: maxLeaves, seen: make(map[string]*leaf)}
	if _, err := c.search(sg.initialRanks(), nil); err != nil {
		return "", err
	}
	return c.best.key, nil
}

// search explores the node reached by individualising the atoms of path in
// turn.  It returns the depth at which exploration resumes: a value below
// len(path) means the rest of this subtree is the image of an explored one
// under an automorphism and is skipped.
func (c *canonicalizer) search(ranks, path []int) (int, error) {
	ranks = c.sg.refine(ranks)
	cell, rank := c.targetCell(ranks)
	if cell == nil {
		return c.visit(ranks, path)
	}
	depth := len(path)
	var explored []int
	for _, v := range c.representatives(cell) {
		if c.sameOrbit(v, explored, path) {
			continue
		}
		explored = append(explored, v)
		next := make([]int, len(ranks))
		copy(next, ranks)
		for _, u := range cell {
			if u != v {
				next[u] = rank + 1
			}
		}
		resume, err := c.search(next, append(path[:depth:depth], v))
		if err != nil {
			return 0, err
		}
		if resume < depth {
			return resume, nil
		}
	}
	return depth - 1, nil
}

func (c *canonicalizer) visit(ranks, path []int) (int, error) {
	c.leaves++
	if c.leaves > c.maxLeaves {
		return 0, errors.Newf(errors.ErrCodeCanonicalizationFailed,
			"fragment too symmetric: more than %d orderings", c.maxLeaves)
	}
	cert := c.sg.certificate(ranks)
	if prev, ok := c.seen[cert]; ok {
		// prev and this leaf agree on the shared prefix of their paths, so the
		// automorphism fixes that prefix and maps the subtree prev came from
		// onto the one being explored.
		c.autos = append(c.autos, permutation(prev.ranks, ranks))
		return commonPrefix(prev.path, path), nil
	}
	l := &leaf{key: c.sg.emit(ranks), ranks: ranks, path: path}
	c.seen[cert] = l
	if c.best == nil || l.key < c.best.key {
		c.best = l
	}
	return len(path) - 1, nil
}

// sameOrbit reports whether v is mapped onto an explored atom by the group
// generated by the known automorphisms that fix every atom of path.
func (c *canonicalizer) sameOrbit(v int, explored, path []int) bool {
	if len(explored) == 0 || len(c.autos) == 0 {
		return false
	}
	orbit := make([]int, len(c.sg.labels))
	for i := range orbit {
		orbit[i] = i
	}
	var find func(int) int
	find = func(x int) int {
		for orbit[x] != x {
			orbit[x] = orbit[orbit[x]]
			x = orbit[x]
		}
		return x
	}
	for _, gamma := range c.autos {
		if !fixes(gamma, path) {
			continue
		}
		for a, b := range gamma {
			if ra, rb := find(a), find(b); ra != rb {
				orbit[ra] = rb
			}
		}
	}
	root := find(v)
	for _, u := range explored {
		if find(u) == root {
			return true
		}
	}
	return false
}

// certificate encodes the subgraph relabelled by ranks: the label of each
// rank in turn, then every bond as a pair of ranks with its order.
func (sg *subgraph) certificate(ranks []int) string {
	at := make([]int, len(ranks))
	for a, r := range ranks {
		at[r] = a
	}
	var bonds [][3]int
	for a := range sg.adj {
		for _, e := range sg.adj[a] {
			if ranks[a] < ranks[e.to] {
				bonds = append(bonds, [3]int{ranks[a], ranks[e.to], int(e.order)})
			}
		}
	}
	sort.Slice(bonds, func(i, j int) bool {
		if bonds[i][0] != bonds[j][0] {
			return bonds[i][0] < bonds[j][0]
		}
		return bonds[i][1] < bonds[j][1]
	})

	var sb strings.Builder
	for _, a := range at {
		sb.WriteString(sg.labels[a])
		sb.WriteByte(' ')
	}
	for _, b := range bonds {
		sb.WriteByte('|')
		sb.WriteString(strconv.Itoa(b[0]))
		sb.WriteByte(',')
		sb.WriteString(strconv.Itoa(b[1]))
		sb.WriteByte(',')
		sb.WriteString(strconv.Itoa(b[2]))
	}
	return sb.String()
}

// permutation maps each atom to the atom holding the same rank in to.
func permutation(from, to []int) []int {
	at := make([]int, len(to))
	for a, r := range to {
		at[r] = a
	}
	gamma := make([]int, len(from))
	for a, r := range from {
		gamma[a] = at[r]
	}
	return gamma
}

func fixes(gamma, atoms []int) bool {
	for _, a := range atoms {
		if gamma[a] != a {
			return false
		}
	}
	return true
}

func commonPrefix(a, b []int) int {
	n := 0
	for n < len(a) && n < len(b) && a[n] == b[n] {
		n++
	}
	return n
}

// targetCell returns the members of the lowest-ranked class with more than
// one atom, or nil when every atom is ranked uniquely.
func (c *canonicalizer) targetCell(ranks []int) ([]int, int) {
	members := make(map[int][]int)
	for i, r := range ranks {
		members[r] = append(members[r], i)
	}
	best := -1
	for r, m := range members {
		if len(m) > 1 && (best < 0 || r < best) {
			best = r
		}
	}
	if best < 0 {
		return nil, 0
	}
	return members[best], best
}

// representatives drops atoms that have the same label and the same
// neighbours as an earlier member of cell; swapping such twins is an
// automorphism, so their subtrees yield the same strings.
func (c *canonicalizer) representatives(cell []int) []int {
	seen := make(map[string]struct{}, len(cell))
	out := make([]int, 0, len(cell))
	for _, v := range cell {
		nb := make([]string, len(c.sg.adj[v]))
		for i, e := range c.sg.adj[v] {
			nb[i] = strconv.Itoa(e.to) + ":" + strconv.Itoa(int(e.order))
		}
		sort.Strings(nb)
		sig := c.sg.labels[v] + "|" + strings.Join(nb, ",")
		if _, dup := seen[sig]; dup {
			continue
		}
		seen[sig] = struct{}{}
		out = append(out, v)
	}
	return out
}

// ─────────────────────────────────────────────────────────────────────────────
// Emission
// ─────────────────────────────────────────────────────────────────────────────

type ringClosure struct {
	opener, closer int
	order          fragment.BondOrder
}

type emitter struct {
	sg       *subgraph
	ranks    []int
	visit    []int
	parent   []int
	children [][]int
	rings    [][]*ringClosure
	counter  int
	digits   map[*ringClosure]int
	inUse    map[int]bool
	sb       strings.Builder
}

// emit writes the subgraph as a line-notation string using ranks (all
// distinct) to order roots, branches and ring closures.
func (sg *subgraph) emit(ranks []int) string {
	n := len(ranks)
	e := &emitter{
		sg:       sg,
		ranks:    ranks,
		visit:    make([]int, n),
		parent:   make([]int, n),
		children: make([][]int, n),
		rings:    make([][]*ringClosure, n),
		digits:   make(map[*ringClosure]int),
		inUse:    make(map[int]bool),
	}
	for i := range e.visit {
		e.visit[i] = -1
		e.parent[i] = -1
	}

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool { return ranks[order[a]] < ranks[order[b]] })

	var parts []string
	for _, root := range order {
		if e.visit[root] >= 0 {
			continue
		}
		e.walk(root)
		e.sb.Reset()
		e.write(root)
		parts = append(parts, e.sb.String())
	}
	sort.Strings(parts)
	return strings.Join(parts, ".")
}

func (e *emitter) sortedNeighbors(u int) []edge {
	nb := append([]edge(nil), e.sg.adj[u]...)
	sort.Slice(nb, func(a, b int) bool { return e.ranks[nb[a].to] < e.ranks[nb[b].to] })
	return nb
}

// walk records the depth-first spanning tree and the ring closures.
func (e *emitter) walk(u int) {
	e.visit[u] = e.counter
	e.counter++
	for _, ed := range e.sortedNeighbors(u) {
		v := ed.to
		switch {
		case e.visit[v] < 0:
			e.parent[v] = u
			e.children[u] = append(e.children[u], v)
			e.walk(v)
		case v != e.parent[u] && e.visit[v] < e.visit[u]:
			rc := &ringClosure{opener: v, closer: u, order: ed.order}
			e.rings[v] = append(e.rings[v], rc)
			e.rings[u] = append(e.rings[u], rc)
		}
	}
}

func (e *emitter) bothAromatic(u, v int) bool {
	return e.sg.aromatic[u] && e.sg.aromatic[v]
}

func (e *emitter) orderBetween(u, v int) fragment.BondOrder {
	for _, ed := range e.sg.adj[u] {
		if ed.to == v {
			return ed.order
		}
	}
	return fragment.BondSingle
}

func (e *emitter) write(u int) {
	e.sb.WriteString(e.sg.labels[u])

	closures := append([]*ringClosure(nil), e.rings[u]...)
	partner := func(rc *ringClosure) int {
		if rc.opener == u {
			return rc.closer
		}
		return rc.opener
	}
	sort.Slice(closures, func(a, b int) bool { return e.visit[partner(closures[a])] < e.visit[partner(closures[b])] })

	var freed []int
	for _, rc := range closures {
		if rc.closer == u {
			d := e.digits[rc]
			e.sb.WriteString(ringDigit(d))
			freed = append(freed, d)
			continue
		}
		d := 1
		for e.inUse[d] {
			d++
		}
		e.inUse[d] = true
		e.digits[rc] = d
		e.sb.WriteString(bondSymbol(rc.order, e.bothAromatic(rc.opener, rc.closer)))
		e.sb.WriteString(ringDigit(d))
	}
	for _, d := range freed {
		delete(e.inUse, d)
	}

	for i, v := range e.children[u] {
		last := i == len(e.children[u])-1
		if !last {
			e.sb.WriteByte('(')
		}
		e.sb.WriteString(bondSymbol(e.orderBetween(u, v), e.bothAromatic(u, v)))
		e.write(v)
		if !last {
			e.sb.WriteByte(')')
		}
	}
}

func ringDigit(d int) string {
	if d < 10 {
		return strconv.Itoa(d)
	}
	return "%" + strconv.Itoa(d)
}

//Personal.AI order the ending
