package spectral

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// IGMTable is the in-memory form of a (temperature x density) emissivity
// table for photoionized, low-density gas. Every array has one row per
// (density, temperature) node, flattened as d*nT + t, and one column per
// native energy bin. Values are density-normalized emissivities in units of
// 1e14 times the APEC normalization convention.
type IGMTable struct {
	Version  string
	Energy   []float64 // native rest-frame bin edges, keV
	LogT     *Axis     // log10 T [K]
	LogD     *Axis     // log10 n_H [cm^-3]
	Elements []string  // tracked metal elements, canonical symbols

	Cosmic *mat.Dense
	Metals []*mat.Dense // one per Elements entry

	// resonant scattering of the cosmic X-ray background; nil when absent
	CosmicScatter *mat.Dense
	MetalsScatter []*mat.Dense
}

// NewIGMTable allocates a zeroed table.
func NewIGMTable(version string, energy, logT, logD []float64, elements []string, withScatter bool) (*IGMTable, error) {
	grid, err := NewEnergyGridFromEdges(energy)
	if err != nil {
		return nil, fmt.Errorf("igm table energy: %w", err)
	}
	tAxis, err := NewAxis(logT)
	if err != nil {
		return nil, fmt.Errorf("igm table temperature: %w", err)
	}
	dAxis, err := NewAxis(logD)
	if err != nil {
		return nil, fmt.Errorf("igm table density: %w", err)
	}
	syms := make([]string, len(elements))
	seen := make(map[string]bool, len(elements))
	for i, e := range elements {
		z, ok := ElementNumber(e)
		if !ok || z <= maxCosmicZ {
			return nil, fmt.Errorf("igm table: %q is not a metal element", e)
		}
		syms[i] = ElementSymbol(z)
		if seen[syms[i]] {
			return nil, fmt.Errorf("igm table: element %s listed more than once", syms[i])
		}
		seen[syms[i]] = true
	}

	rows, cols := tAxis.Len()*dAxis.Len(), grid.NChan()
	t := &IGMTable{
		Version:  version,
		Energy:   grid.Edges(),
		LogT:     tAxis,
		LogD:     dAxis,
		Elements: syms,
		Cosmic:   mat.NewDense(rows, cols, nil),
		Metals:   make([]*mat.Dense, len(syms)),
	}
	for i := range t.Metals {
		t.Metals[i] = mat.NewDense(rows, cols, nil)
	}
	if withScatter {
		t.CosmicScatter = mat.NewDense(rows, cols, nil)
		t.MetalsScatter = make([]*mat.Dense, len(syms))
		for i := range t.MetalsScatter {
			t.MetalsScatter[i] = mat.NewDense(rows, cols, nil)
		}
	}
	return t, nil
}

// NBins returns the number of native energy bins.
func (t *IGMTable) NBins() int { return len(t.Energy) - 1 }

// NRows returns the number of (density, temperature) nodes.
func (t *IGMTable) NRows() int { return t.LogT.Len() * t.LogD.Len() }

// Row returns the flattened row index of density index d and temperature index ti.
func (t *IGMTable) Row(d, ti int) int { return d*t.LogT.Len() + ti }

// HasScatter reports whether resonant-scattering arrays are present.
func (t *IGMTable) HasScatter() bool { return t.CosmicScatter != nil }

// ElementIndex returns the position of an element in Elements, or -1.
func (t *IGMTable) ElementIndex(symbol string) int {
	z, ok := ElementNumber(symbol)
	if !ok {
		return -1
	}
	for i, s := range t.Elements {
		if s == ElementSymbol(z) {
			return i
		}
	}
	return -1
}
