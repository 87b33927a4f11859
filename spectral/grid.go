package spectral

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// BinScale selects how energy bin edges are spaced.
type BinScale string

const (
	BinScaleLinear BinScale = "linear"
	BinScaleLog    BinScale = "log"
)

// ParseBinScale maps a config string onto a BinScale. Empty means linear.
func ParseBinScale(s string) (BinScale, error) {
	switch BinScale(s) {
	case "", BinScaleLinear:
		return BinScaleLinear, nil
	case BinScaleLog:
		return BinScaleLog, nil
	}
	return "", fmt.Errorf("unknown binscale %q (valid: linear, log)", s)
}

// EnergyGrid is an immutable set of ascending energy bin edges in keV with
// derived midpoints and widths.
type EnergyGrid struct {
	edges []float64
	mid   []float64
	width []float64
}

// NewEnergyGrid builds nchan bins between emin and emax.
func NewEnergyGrid(emin, emax float64, nchan int, scale BinScale) (*EnergyGrid, error) {
	if nchan < 1 {
		return nil, fmt.Errorf("energy grid: nchan must be >= 1, got %d", nchan)
	}
	if !(emax > emin) {
		return nil, fmt.Errorf("energy grid: emax (%g) must be greater than emin (%g)", emax, emin)
	}
	edges := make([]float64, nchan+1)
	switch scale {
	case "", BinScaleLinear:
		floats.Span(edges, emin, emax)
	case BinScaleLog:
		if emin <= 0 {
			return nil, fmt.Errorf("energy grid: log binning needs emin > 0, got %g", emin)
		}
		floats.LogSpan(edges, emin, emax)
	default:
		return nil, fmt.Errorf("energy grid: unknown binscale %q", scale)
	}
	// Span/LogSpan can miss the endpoints by an ulp.
	edges[0], edges[nchan] = emin, emax
	return NewEnergyGridFromEdges(edges)
}

// NewEnergyGridFromEdges builds a grid from explicit edges. The slice is copied.
func NewEnergyGridFromEdges(edges []float64) (*EnergyGrid, error) {
	if len(edges) < 2 {
		return nil, fmt.Errorf("energy grid: need at least 2 edges, got %d", len(edges))
	}
	for i, e := range edges {
		if math.IsNaN(e) || math.IsInf(e, 0) {
			return nil, fmt.Errorf("energy grid: edge %d is not finite", i)
		}
		if i > 0 && !(e > edges[i-1]) {
			return nil, fmt.Errorf("energy grid: edges must be strictly increasing (edge %d = %g, edge %d = %g)",
				i-1, edges[i-1], i, e)
		}
	}
	n := len(edges) - 1
	g := &EnergyGrid{
		edges: append([]float64(nil), edges...),
		mid:   make([]float64, n),
		width: make([]float64, n),
	}
	for i := 0; i < n; i++ {
		g.mid[i] = 0.5 * (g.edges[i] + g.edges[i+1])
		g.width[i] = g.edges[i+1] - g.edges[i]
	}
	return g, nil
}

// NChan returns the number of bins.
func (g *EnergyGrid) NChan() int { return len(g.mid) }

// Edges returns the N+1 bin edges. The slice is shared and must not be modified.
func (g *EnergyGrid) Edges() []float64 { return g.edges }

// Mid returns the N bin midpoints. The slice is shared and must not be modified.
func (g *EnergyGrid) Mid() []float64 { return g.mid }

// Width returns the N bin widths. The slice is shared and must not be modified.
func (g *EnergyGrid) Width() []float64 { return g.width }

// Min returns the lowest edge.
func (g *EnergyGrid) Min() float64 { return g.edges[0] }

// Max returns the highest edge.
func (g *EnergyGrid) Max() float64 { return g.edges[len(g.edges)-1] }

// ScaledEdges returns a new slice holding every edge multiplied by f.
func (g *EnergyGrid) ScaledEdges(f float64) []float64 {
	out := make([]float64, len(g.edges))
	floats.ScaleTo(out, f, g.edges)
	return out
}

// Equal reports whether both grids have bit-identical edges.
func (g *EnergyGrid) Equal(o *EnergyGrid) bool {
	if g == o {
		return true
	}
	if g == nil || o == nil {
		return false
	}
	return floats.Equal(g.edges, o.edges)
}
