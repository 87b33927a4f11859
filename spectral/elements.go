package spectral

import (
	"fmt"
	"strings"
)

// NumElements is the number of elements (Z = 1..30) carried by the tables.
const NumElements = 30

var elementSymbols = [NumElements]string{
	"H", "He", "Li", "Be", "B", "C", "N", "O", "F", "Ne",
	"Na", "Mg", "Al", "Si", "P", "S", "Cl", "Ar", "K", "Ca",
	"Sc", "Ti", "V", "Cr", "Mn", "Fe", "Co", "Ni", "Cu", "Zn",
}

// atomic masses in amu, used for thermal line widths
var atomicMasses = [NumElements]float64{
	1.00794, 4.002602, 6.941, 9.012182, 10.811, 12.0107, 14.0067, 15.9994, 18.9984032, 20.1797,
	22.98976928, 24.3050, 26.9815386, 28.0855, 30.973762, 32.065, 35.453, 39.948, 39.0983, 40.078,
	44.955912, 47.867, 50.9415, 51.9961, 54.938045, 55.845, 58.933195, 58.6934, 63.546, 65.38,
}

// cosmic elements are never scaled by metallicity
const maxCosmicZ = 2

// ElementSymbol returns the symbol for atomic number z (1-based).
func ElementSymbol(z int) string {
	if z < 1 || z > NumElements {
		return ""
	}
	return elementSymbols[z-1]
}

// ElementNumber returns the atomic number for a symbol, case-insensitively.
func ElementNumber(symbol string) (int, bool) {
	for i, s := range elementSymbols {
		if strings.EqualFold(s, symbol) {
			return i + 1, true
		}
	}
	return 0, false
}

// normalizeVarElem validates a variable-element list and returns canonical
// symbols and atomic numbers in caller order.
func normalizeVarElem(names []string) ([]string, []int, error) {
	syms := make([]string, 0, len(names))
	zs := make([]int, 0, len(names))
	seen := make(map[int]bool, len(names))
	for _, name := range names {
		z, ok := ElementNumber(strings.TrimSpace(name))
		if !ok {
			return nil, nil, fmt.Errorf("var_elem: unknown element %q", name)
		}
		if z <= maxCosmicZ {
			return nil, nil, fmt.Errorf("var_elem: %s is a cosmic element and cannot vary freely", ElementSymbol(z))
		}
		if seen[z] {
			return nil, nil, fmt.Errorf("var_elem: %s listed more than once", ElementSymbol(z))
		}
		seen[z] = true
		syms = append(syms, ElementSymbol(z))
		zs = append(zs, z)
	}
	return syms, zs, nil
}
