package spectral

import (
	"fmt"
	"math"
)

// ApecTable is the in-memory form of a temperature-indexed collisional
// plasma emissivity table. Emissivities are photon counts per native bin,
// computed with the reference (angr) abundances, one continuum and one line
// array per element and temperature. Nil arrays are zero.
type ApecTable struct {
	Version     string
	Energy      []float64 // native rest-frame bin edges, keV
	Temperature *Axis     // kT, keV

	continuum [][NumElements][]float64
	line      [][NumElements][]float64
	mid       []float64
}

// NewApecTable allocates an empty table over the given native edges and kT axis.
func NewApecTable(version string, energy, kT []float64) (*ApecTable, error) {
	grid, err := NewEnergyGridFromEdges(energy)
	if err != nil {
		return nil, fmt.Errorf("apec table energy: %w", err)
	}
	axis, err := NewAxis(kT)
	if err != nil {
		return nil, fmt.Errorf("apec table temperature: %w", err)
	}
	if axis.First() <= 0 {
		return nil, fmt.Errorf("apec table temperature: kT must be positive, got %g", axis.First())
	}
	return &ApecTable{
		Version:     version,
		Energy:      grid.Edges(),
		Temperature: axis,
		continuum:   make([][NumElements][]float64, axis.Len()),
		line:        make([][NumElements][]float64, axis.Len()),
		mid:         grid.Mid(),
	}, nil
}

// NBins returns the number of native energy bins.
func (t *ApecTable) NBins() int { return len(t.Energy) - 1 }

// SetElement stores the continuum and line emissivity of element z at
// temperature index ti. Either array may be nil.
func (t *ApecTable) SetElement(ti, z int, cont, line []float64) error {
	if ti < 0 || ti >= t.Temperature.Len() {
		return fmt.Errorf("apec table: temperature index %d out of range [0, %d)", ti, t.Temperature.Len())
	}
	if z < 1 || z > NumElements {
		return fmt.Errorf("apec table: atomic number %d out of range [1, %d]", z, NumElements)
	}
	for _, arr := range [][]float64{cont, line} {
		if arr == nil {
			continue
		}
		if len(arr) != t.NBins() {
			return fmt.Errorf("apec table: %s at index %d has %d bins, want %d",
				ElementSymbol(z), ti, len(arr), t.NBins())
		}
		for _, v := range arr {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("apec table: %s at index %d has a non-finite emissivity", ElementSymbol(z), ti)
			}
		}
	}
	t.continuum[ti][z-1] = cont
	t.line[ti][z-1] = line
	return nil
}

// Element returns the continuum and line arrays of element z at temperature index ti.
func (t *ApecTable) Element(ti, z int) (cont, line []float64) {
	return t.continuum[ti][z-1], t.line[ti][z-1]
}
