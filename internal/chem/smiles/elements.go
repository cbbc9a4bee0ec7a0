package smiles

// periodicTable lists the element symbols accepted inside bracket atoms.
var periodicTable = map[string]struct{}{}

func init() {
	for _, s := range []string{
		"H", "He", "Li", "Be", "B", "C", "N", "O", "F", "Ne",
		"Na", "Mg", "Al", "Si", "P", "S", "Cl", "Ar", "K", "Ca",
		"Sc", "Ti", "V", "Cr", "Mn", "Fe", "Co", "Ni", "Cu", "Zn",
		"Ga", "Ge", "As", "Se", "Br", "Kr", "Rb", "Sr", "Y", "Zr",
		"Nb", "Mo", "Tc", "Ru", "Rh", "Pd", "Ag", "Cd", "In", "Sn",
		"Sb", "Te", "I", "Xe", "Cs", "Ba", "La", "Ce", "Pr", "Nd",
		"Pm", "Sm", "Eu", "Gd", "Tb", "Dy", "Ho", "Er", "Tm", "Yb",
		"Lu", "Hf", "Ta", "W", "Re", "Os", "Ir", "Pt", "Au", "Hg",
		"Tl", "Pb", "Bi", "Po", "At", "Rn", "Fr", "Ra", "Ac", "Th",
		"Pa", "U", "Np", "Pu", "Am", "Cm", "Bk", "Cf", "Es", "Fm",
		"Md", "No", "Lr", "Rf", "Db", "Sg", "Bh", "Hs", "Mt", "Ds",
		"Rg", "Cn", "Nh", "Fl", "Mc", "Lv", "Ts", "Og",
	} {
		periodicTable[s] = struct{}{}
	}
}

// defaultValences are the normal valences of the organic subset, lowest
// first.  Implicit hydrogens fill an atom up to the first valence that is
// not below its bond-order sum.
var defaultValences = map[string][]int{
	"B":  {3},
	"C":  {4},
	"N":  {3, 5},
	"O":  {2},
	"P":  {3, 5},
	"S":  {2, 4, 6},
	"F":  {1},
	"Cl": {1},
	"Br": {1},
	"I":  {1},
}

// aromaticOrganic maps the lower-case organic-subset symbols to elements.
var aromaticOrganic = map[string]string{
	"b": "B", "c": "C", "n": "N", "o": "O", "p": "P", "s": "S",
}

// aromaticBracket maps the lower-case symbols allowed inside brackets.
var aromaticBracket = map[string]string{
	"b": "B", "c": "C", "n": "N", "o": "O", "p": "P", "s": "S",
	"se": "Se", "as": "As", "te": "Te",
}

// implicitHydrogens returns the number of hydrogens an organic-subset atom
// carries given its bond-order sum.  Aromatic atoms only consider their
// lowest valence and contribute one extra electron to the sum.
func implicitHydrogens(element string, aromatic bool, bondSum int) int {
	valences, ok := defaultValences[element]
	if !ok {
		return 0
	}
	if aromatic {
		bondSum++
		valences = valences[:1]
	}
	for _, v := range valences {
		if v >= bondSum {
			return v - bondSum
		}
	}
	return 0
}

//Personal.AI order the ending
