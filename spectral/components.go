package spectral

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Components holds per-point spectral components, one row per query point
// and one column per energy bin.
type Components struct {
	Cosmic [][]float64   // H and He
	Metal  [][]float64   // metals scaled by a single metallicity
	Var    [][][]float64 // [element][point][bin]; nil without variable elements
}

func newComponents(n, nbins, nvar int) Components {
	c := Components{
		Cosmic: makeRows(n, nbins),
		Metal:  makeRows(n, nbins),
	}
	if nvar > 0 {
		c.Var = make([][][]float64, nvar)
		for k := range c.Var {
			c.Var[k] = makeRows(n, nbins)
		}
	}
	return c
}

func makeRows(n, nbins int) [][]float64 {
	buf := make([]float64, n*nbins)
	rows := make([][]float64, n)
	for i := range rows {
		rows[i] = buf[i*nbins : (i+1)*nbins : (i+1)*nbins]
	}
	return rows
}

// Len returns the number of points.
func (c Components) Len() int { return len(c.Cosmic) }

// Total combines the components of point i as
// cosmic + metallicity*metal + sum(elemAbund[k]*var[k]).
func (c Components) Total(i int, metallicity float64, elemAbund []float64) ([]float64, error) {
	if len(elemAbund) > len(c.Var) {
		return nil, fmt.Errorf("got %d element abundances for %d variable elements", len(elemAbund), len(c.Var))
	}
	out := append([]float64(nil), c.Cosmic[i]...)
	floats.AddScaled(out, metallicity, c.Metal[i])
	for k, a := range elemAbund {
		floats.AddScaled(out, a, c.Var[k][i])
	}
	return out, nil
}

// interpolateRow writes the linear interpolation of table rows along axis at
// x into dst. x outside the axis yields zeros.
func interpolateRow(dst []float64, axis *Axis, table *mat.Dense, x float64) {
	if !axis.Contains(x) {
		for i := range dst {
			dst[i] = 0
		}
		return
	}
	i, f := axis.Bracket(x)
	floats.ScaleTo(dst, 1-f, table.RawRowView(i))
	floats.AddScaled(dst, f, table.RawRowView(i+1))
}

// BilinearWeights returns the corner weights for offsets dT and dn inside a
// (temperature, density) cell, in the order
// (d+1, t+1), (d+1, t), (d, t+1), (d, t).
func BilinearWeights(dT, dn float64) [4]float64 {
	w1 := dT * dn
	return [4]float64{w1, dn - w1, dT - w1, 1.0 + w1 - dT - dn}
}
