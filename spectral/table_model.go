package spectral

import (
	"errors"
	"fmt"
	"math"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// ErrNotPrepared is returned by GetSpectrum when PrepareSpectrum has not been called.
var ErrNotPrepared = errors.New("spectral model queried before PrepareSpectrum")

// TableModelConfig configures a TableModel.
type TableModelConfig struct {
	Emin, Emax   float64
	NChan        int
	BinScale     BinScale
	VarElem      []string      // elements allowed to vary freely from the metallicity
	AbundTable   AbundanceSpec // solar abundances; zero value is angr
	ThermalBroad bool          // thermally broaden lines
	NoLines      bool          // drop line emission entirely
}

// component groups for the abundance decomposition
const (
	groupCosmic = -2
	groupMetal  = -1
)

// TableModel interpolates an ApecTable in temperature. A window of the
// table is binned onto the model's energy grid by PrepareSpectrum and then
// queried with GetSpectrum.
type TableModel struct {
	table *ApecTable
	grid  *EnergyGrid
	cfg   TableModelConfig

	varElem []string
	scale   [NumElements]float64 // abundance relative to the table's reference
	group   [NumElements]int

	window *tableWindow
}

// tableWindow is the prepared temperature window: rows are windowed
// temperatures, columns energy bins.
type tableWindow struct {
	zobs   float64
	axis   *Axis
	lo, hi int // inclusive indices into the full temperature axis
	cosmic *mat.Dense
	metal  *mat.Dense
	vars   []*mat.Dense
}

// NewTableModel builds a TableModel over a fresh energy grid.
func NewTableModel(table *ApecTable, cfg TableModelConfig) (*TableModel, error) {
	grid, err := NewEnergyGrid(cfg.Emin, cfg.Emax, cfg.NChan, cfg.BinScale)
	if err != nil {
		return nil, fmt.Errorf("table model: %w", err)
	}
	return NewTableModelWithGrid(table, grid, cfg)
}

// NewTableModelWithGrid builds a TableModel over an existing energy grid;
// the grid fields of cfg are ignored.
func NewTableModelWithGrid(table *ApecTable, grid *EnergyGrid, cfg TableModelConfig) (*TableModel, error) {
	if table == nil {
		return nil, fmt.Errorf("table model: nil APEC table")
	}
	if grid == nil {
		return nil, fmt.Errorf("table model: nil energy grid")
	}
	varElem, varZ, err := normalizeVarElem(cfg.VarElem)
	if err != nil {
		return nil, fmt.Errorf("table model: %w", err)
	}
	abund, err := cfg.AbundTable.Resolve()
	if err != nil {
		return nil, fmt.Errorf("table model: %w", err)
	}
	ref, err := AbundancePreset(ReferenceAbundance)
	if err != nil {
		return nil, fmt.Errorf("table model: %w", err)
	}

	m := &TableModel{
		table:   table,
		grid:    grid,
		cfg:     cfg,
		varElem: varElem,
		scale:   abund.relativeTo(ref),
	}
	for i := range m.group {
		if i+1 <= maxCosmicZ {
			m.group[i] = groupCosmic
		} else {
			m.group[i] = groupMetal
		}
	}
	for k, z := range varZ {
		m.group[z-1] = k
	}

	for i := range abund {
		if abund[i] > 0 && ref[i] == 0 {
			logrus.Warnf("Abundance table %s sets %s but the emissivity table has no reference abundance for it; ignoring",
				cfg.AbundTable, elementSymbols[i])
		}
	}
	logrus.Debugf("Table model: %d bins in [%g, %g] keV, abundances %s, var_elem=%v, broadening=%t, nolines=%t",
		grid.NChan(), grid.Min(), grid.Max(), cfg.AbundTable, varElem, cfg.ThermalBroad, cfg.NoLines)
	return m, nil
}

// Grid returns the observer-frame energy grid.
func (m *TableModel) Grid() *EnergyGrid { return m.grid }

// NChan returns the number of energy bins.
func (m *TableModel) NChan() int { return m.grid.NChan() }

// VarElemNames returns the canonical symbols of the freely varying elements.
func (m *TableModel) VarElemNames() []string { return append([]string(nil), m.varElem...) }

// Window returns the temperatures (keV) of the prepared window, or nil.
func (m *TableModel) Window() []float64 {
	if m.window == nil {
		return nil
	}
	return append([]float64(nil), m.window.axis.Values()...)
}

// windowBounds returns the inclusive temperature index range covering
// [kTmin, kTmax] with one index of padding on each side.
func windowBounds(axis *Axis, kTmin, kTmax float64) (int, int) {
	n := axis.Len()
	lo := axis.SearchLeft(kTmin) - 1
	if lo < 0 {
		lo = 0
	}
	hi := axis.SearchLeft(kTmax) + 1
	if hi > n-1 {
		hi = n - 1
	}
	// A range entirely above the table still needs two nodes to interpolate.
	if lo > hi-1 {
		lo = hi - 1
	}
	return lo, hi
}

// PrepareSpectrum bins the temperatures needed for [kTmin, kTmax] at
// redshift zobs onto the model grid, replacing any previous window.
func (m *TableModel) PrepareSpectrum(zobs, kTmin, kTmax float64) error {
	if !(zobs > -1) {
		return fmt.Errorf("table model: redshift must be > -1, got %g", zobs)
	}
	if math.IsNaN(kTmin) || math.IsNaN(kTmax) || kTmin > kTmax {
		return fmt.Errorf("table model: invalid temperature range [%g, %g]", kTmin, kTmax)
	}
	lo, hi := windowBounds(m.table.Temperature, kTmin, kTmax)
	axis, err := m.table.Temperature.Slice(lo, hi+1)
	if err != nil {
		return fmt.Errorf("table model: %w", err)
	}

	n, nbins := hi-lo+1, m.grid.NChan()
	w := &tableWindow{
		zobs:   zobs,
		axis:   axis,
		lo:     lo,
		hi:     hi,
		cosmic: mat.NewDense(n, nbins, nil),
		metal:  mat.NewDense(n, nbins, nil),
	}
	for range m.varElem {
		w.vars = append(w.vars, mat.NewDense(n, nbins, nil))
	}

	rest := m.grid.ScaledEdges(1 + zobs)
	vars := make([][]float64, len(w.vars))
	for r := 0; r < n; r++ {
		for k, v := range w.vars {
			vars[k] = v.RawRowView(r)
		}
		m.binTemperature(lo+r, rest, 0, w.cosmic.RawRowView(r), w.metal.RawRowView(r), vars)
	}
	m.window = w

	logrus.Debugf("Prepared table window z=%g: kT [%g, %g] -> indices [%d, %d] (kT %g..%g keV)",
		zobs, kTmin, kTmax, lo, hi, axis.First(), axis.Last())
	return nil
}

// GetSpectrum interpolates the prepared window at each temperature (keV).
// Temperatures outside the window give zero spectra.
func (m *TableModel) GetSpectrum(kT []float64) (Components, error) {
	w := m.window
	if w == nil {
		return Components{}, ErrNotPrepared
	}
	c := newComponents(len(kT), m.grid.NChan(), len(m.varElem))
	for i, x := range kT {
		interpolateRow(c.Cosmic[i], w.axis, w.cosmic, x)
		interpolateRow(c.Metal[i], w.axis, w.metal, x)
		for k, v := range w.vars {
			interpolateRow(c.Var[k][i], w.axis, v, x)
		}
	}
	return c, nil
}

// ReturnSpectrum synthesizes the spectrum of a single plasma as a flux
// density in photons/s/cm^2/keV. norm is in the standard Xspec units of
// 1e-14*EM/(4*pi*(1+z)^2*D_A^2); velocity is a line-of-sight dispersion in
// km/s; elemAbund gives abundances for the variable elements, which
// otherwise follow the metallicity. A temperature outside the table gives a
// zero spectrum.
func (m *TableModel) ReturnSpectrum(kT, metallicity, redshift, norm, velocity float64, elemAbund map[string]float64) (*Spectrum, error) {
	if !(redshift > -1) {
		return nil, fmt.Errorf("table model: redshift must be > -1, got %g", redshift)
	}
	abund := make([]float64, len(m.varElem))
	for k := range abund {
		abund[k] = metallicity
	}
	for name, a := range elemAbund {
		k := m.varIndex(name)
		if k < 0 {
			return nil, fmt.Errorf("table model: element %q is not one of the variable elements %v", name, m.varElem)
		}
		abund[k] = a
	}

	nbins := m.grid.NChan()
	spec := &Spectrum{Grid: m.grid, Flux: make([]float64, nbins)}
	axis := m.table.Temperature
	if !axis.Contains(kT) {
		logrus.Debugf("Table model: kT=%g keV outside table range [%g, %g], returning zero spectrum",
			kT, axis.First(), axis.Last())
		return spec, nil
	}

	i, f := axis.Bracket(kT)
	rest := m.grid.ScaledEdges(1 + redshift)
	total := make([]float64, nbins)
	for _, node := range []struct {
		idx    int
		weight float64
	}{{i, 1 - f}, {i + 1, f}} {
		if node.weight == 0 {
			continue
		}
		c := newComponents(1, nbins, len(m.varElem))
		vars := make([][]float64, len(c.Var))
		for k := range c.Var {
			vars[k] = c.Var[k][0]
		}
		m.binTemperature(node.idx, rest, velocity, c.Cosmic[0], c.Metal[0], vars)
		row, err := c.Total(0, metallicity, abund)
		if err != nil {
			return nil, fmt.Errorf("table model: %w", err)
		}
		floats.AddScaled(total, node.weight, row)
	}
	floats.Scale(1.0e14*norm, total)
	floats.DivTo(spec.Flux, total, m.grid.Width())
	return spec, nil
}

func (m *TableModel) varIndex(name string) int {
	z, ok := ElementNumber(name)
	if !ok {
		return -1
	}
	sym := ElementSymbol(z)
	for k, s := range m.varElem {
		if s == sym {
			return k
		}
	}
	return -1
}

// binTemperature bins the emissivity of temperature index ti onto the
// rest-frame edges, adding into the cosmic, metal and per-element rows.
func (m *TableModel) binTemperature(ti int, rest []float64, velocity float64, cosmic, metal []float64, vars [][]float64) {
	nNative := m.table.NBins()
	kT := m.table.Temperature.At(ti)
	natCosmic := make([]float64, nNative)
	natMetal := make([]float64, nNative)
	natVars := make([][]float64, len(vars))
	for k := range natVars {
		natVars[k] = make([]float64, nNative)
	}
	pick := func(z int, native bool) []float64 {
		switch g := m.group[z-1]; g {
		case groupCosmic:
			if native {
				return natCosmic
			}
			return cosmic
		case groupMetal:
			if native {
				return natMetal
			}
			return metal
		default:
			if native {
				return natVars[g]
			}
			return vars[g]
		}
	}

	for z := 1; z <= NumElements; z++ {
		scale := m.scale[z-1]
		if scale == 0 {
			continue
		}
		cont, line := m.table.Element(ti, z)
		if cont != nil {
			floats.AddScaled(pick(z, true), scale, cont)
		}
		if line == nil || m.cfg.NoLines {
			continue
		}
		sf := lineSigmaFactor(z, kT, velocity, m.cfg.ThermalBroad)
		if sf == 0 {
			floats.AddScaled(pick(z, true), scale, line)
			continue
		}
		broadenInto(pick(z, false), rest, m.table.mid, line, sf, scale)
	}

	rebinInto(cosmic, rest, m.table.Energy, natCosmic, 1)
	rebinInto(metal, rest, m.table.Energy, natMetal, 1)
	for k := range vars {
		rebinInto(vars[k], rest, m.table.Energy, natVars[k], 1)
	}
}
