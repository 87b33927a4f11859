package spectral

import (
	"fmt"
	"math"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// igmTableScale converts IGM table values to the APEC normalization convention.
const igmTableScale = 1.0e-14

// fallbackAbundance is the preset the IGM tables are computed with; the 1-D
// fallback uses it so both regimes share solar abundances.
const fallbackAbundance = "feld"

// IGMConfig configures a DensityTemperatureModel.
type IGMConfig struct {
	Emin, Emax         float64
	ResonantScattering bool    // add the scattered CXB component
	CXBFactor          float64 // weight of the scattered component
	VarElem            []string
}

// DensityTemperatureModel interpolates an IGMTable jointly in temperature
// and density. Points outside the table fall back to a TableModel over the
// same energy grid, ignoring density.
type DensityTemperatureModel struct {
	igm  *IGMTable
	apec *ApecTable
	cfg  IGMConfig

	varElem  []string
	varIdx   []int // positions in igm.Elements
	metalIdx []int

	minKT, maxKT float64
	minNH, maxNH float64

	// set by PrepareSpectrum
	grid     *EnergyGrid
	fallback *TableModel
	cosmic   *mat.Dense
	metal    *mat.Dense
	vars     []*mat.Dense
}

// NewDensityTemperatureModel validates the configuration against both
// tables. Variable elements must be tracked by the IGM table.
func NewDensityTemperatureModel(igm *IGMTable, apec *ApecTable, cfg IGMConfig) (*DensityTemperatureModel, error) {
	if igm == nil || apec == nil {
		return nil, fmt.Errorf("igm model: both IGM and APEC tables are required")
	}
	if !(cfg.Emax > cfg.Emin) || cfg.Emin <= 0 {
		return nil, fmt.Errorf("igm model: invalid energy range [%g, %g]", cfg.Emin, cfg.Emax)
	}
	if cfg.ResonantScattering && !igm.HasScatter() {
		return nil, fmt.Errorf("igm model: resonant scattering requested but table %s has no scattering arrays", igm.Version)
	}
	if cfg.CXBFactor < 0 {
		return nil, fmt.Errorf("igm model: cxb_factor must be non-negative, got %g", cfg.CXBFactor)
	}
	varElem, _, err := normalizeVarElem(cfg.VarElem)
	if err != nil {
		return nil, fmt.Errorf("igm model: %w", err)
	}
	m := &DensityTemperatureModel{
		igm:     igm,
		apec:    apec,
		cfg:     cfg,
		varElem: varElem,
		minKT:   math.Pow(10, igm.LogT.First()) / KPerKeV,
		maxKT:   math.Pow(10, igm.LogT.Last()) / KPerKeV,
		minNH:   math.Pow(10, igm.LogD.First()),
		maxNH:   math.Pow(10, igm.LogD.Last()),
	}
	isVar := make(map[int]bool, len(varElem))
	for _, sym := range varElem {
		i := igm.ElementIndex(sym)
		if i < 0 {
			return nil, fmt.Errorf("igm model: element %s is not tracked by IGM table %s (tracked: %v)",
				sym, igm.Version, igm.Elements)
		}
		m.varIdx = append(m.varIdx, i)
		isVar[i] = true
	}
	for i := range igm.Elements {
		if !isVar[i] {
			m.metalIdx = append(m.metalIdx, i)
		}
	}

	logrus.Infof("IGM model: table %s, kT [%.4g, %.4g] keV, nH [%.4g, %.4g] cm^-3, var_elem=%v, resonant_scattering=%t",
		igm.Version, m.minKT, m.maxKT, m.minNH, m.maxNH, varElem, cfg.ResonantScattering)
	return m, nil
}

// Grid returns the observer-frame grid of the prepared redshift, or nil.
func (m *DensityTemperatureModel) Grid() *EnergyGrid { return m.grid }

// Fallback returns the 1-D model built by PrepareSpectrum, or nil.
func (m *DensityTemperatureModel) Fallback() *TableModel { return m.fallback }

// VarElemNames returns the canonical symbols of the freely varying elements.
func (m *DensityTemperatureModel) VarElemNames() []string {
	return append([]string(nil), m.varElem...)
}

// TableBounds returns the kT (keV) and nH (cm^-3) ranges covered by the table.
func (m *DensityTemperatureModel) TableBounds() (minKT, maxKT, minNH, maxNH float64) {
	return m.minKT, m.maxKT, m.minNH, m.maxNH
}

// mappedBins returns the native bin range whose redshifted midpoints fall
// strictly inside (Emin, Emax), and the redshifted edges of that range.
func (m *DensityTemperatureModel) mappedBins(zobs float64) (int, int, []float64) {
	native := m.igm.Energy
	lo, hi := -1, -1
	for j := 0; j < len(native)-1; j++ {
		mid := 0.5 * (native[j] + native[j+1]) / (1 + zobs)
		if mid > m.cfg.Emin && mid < m.cfg.Emax {
			if lo < 0 {
				lo = j
			}
			hi = j + 1
		}
	}
	if lo < 0 {
		return 0, 0, nil
	}
	edges := make([]float64, hi-lo+1)
	for k := range edges {
		edges[k] = native[lo+k] / (1 + zobs)
	}
	return lo, hi, edges
}

// PrepareSpectrum maps the table's energy grid to redshift zobs, builds the
// 1-D fallback model over exactly that grid, and slices the 2-D tables to
// the mapped energy window.
func (m *DensityTemperatureModel) PrepareSpectrum(zobs, kTmin, kTmax float64) error {
	if !(zobs > -1) {
		return fmt.Errorf("igm model: redshift must be > -1, got %g", zobs)
	}
	if math.IsNaN(kTmin) || math.IsNaN(kTmax) || kTmin > kTmax {
		return fmt.Errorf("igm model: invalid temperature range [%g, %g]", kTmin, kTmax)
	}
	lo, hi, edges := m.mappedBins(zobs)
	if edges == nil {
		return fmt.Errorf("igm model: no table bins fall inside [%g, %g] keV at z=%g", m.cfg.Emin, m.cfg.Emax, zobs)
	}
	grid, err := NewEnergyGridFromEdges(edges)
	if err != nil {
		return fmt.Errorf("igm model: %w", err)
	}
	fallback, err := NewTableModelWithGrid(m.apec, grid, TableModelConfig{
		VarElem:      m.varElem,
		AbundTable:   AbundanceSpec{Preset: fallbackAbundance},
		ThermalBroad: true,
	})
	if err != nil {
		return fmt.Errorf("igm model: fallback: %w", err)
	}
	if err := fallback.PrepareSpectrum(zobs, kTmin, kTmax); err != nil {
		return fmt.Errorf("igm model: fallback: %w", err)
	}

	rows, ne := m.igm.NRows(), hi-lo
	cosmic := m.sliceTable(m.igm.Cosmic, m.igm.CosmicScatter, lo, hi)
	metal := mat.NewDense(rows, ne, nil)
	for _, i := range m.metalIdx {
		metal.Add(metal, m.sliceTable(m.igm.Metals[i], m.scatterOf(i), lo, hi))
	}
	vars := make([]*mat.Dense, 0, len(m.varIdx))
	for _, i := range m.varIdx {
		vars = append(vars, m.sliceTable(m.igm.Metals[i], m.scatterOf(i), lo, hi))
	}

	// Only a fully prepared window replaces the previous one.
	m.grid, m.fallback = grid, fallback
	m.cosmic, m.metal, m.vars = cosmic, metal, vars

	logrus.Debugf("IGM model prepared at z=%g: native bins [%d, %d) -> %d bins in [%g, %g] keV",
		zobs, lo, hi, ne, grid.Min(), grid.Max())
	return nil
}

func (m *DensityTemperatureModel) scatterOf(i int) *mat.Dense {
	if m.igm.MetalsScatter == nil {
		return nil
	}
	return m.igm.MetalsScatter[i]
}

// sliceTable copies columns [lo, hi) of base, adding CXBFactor times the
// scattering table when enabled, and applies the table normalization.
func (m *DensityTemperatureModel) sliceTable(base, scatter *mat.Dense, lo, hi int) *mat.Dense {
	rows := m.igm.NRows()
	out := mat.NewDense(rows, hi-lo, nil)
	out.Copy(base.Slice(0, rows, lo, hi))
	if m.cfg.ResonantScattering && scatter != nil {
		for r := 0; r < rows; r++ {
			floats.AddScaled(out.RawRowView(r), m.cfg.CXBFactor, scatter.RawRowView(r)[lo:hi])
		}
	}
	out.Scale(igmTableScale, out)
	return out
}

// inTable reports whether a point is inside both tabulated ranges.
func (m *DensityTemperatureModel) inTable(kT, nH float64) bool {
	return kT >= m.minKT && kT <= m.maxKT && nH >= m.minNH && nH <= m.maxNH
}

// GetSpectrum returns the spectra of points (kT[i] keV, nH[i] cm^-3).
// In-table points are interpolated bilinearly and divided by nH; the rest
// come from the 1-D fallback. Row i of the result always belongs to point i.
func (m *DensityTemperatureModel) GetSpectrum(kT, nH []float64) (Components, error) {
	if m.grid == nil {
		return Components{}, ErrNotPrepared
	}
	if len(kT) != len(nH) {
		return Components{}, fmt.Errorf("igm model: got %d temperatures and %d densities", len(kT), len(nH))
	}
	out := newComponents(len(kT), m.grid.NChan(), len(m.varElem))

	var inIdx, outIdx []int
	for i := range kT {
		if m.inTable(kT[i], nH[i]) {
			inIdx = append(inIdx, i)
		} else {
			outIdx = append(outIdx, i)
		}
	}

	if len(inIdx) > 0 {
		kTi := make([]float64, len(inIdx))
		nHi := make([]float64, len(inIdx))
		for j, i := range inIdx {
			kTi[j], nHi[j] = kT[i], nH[i]
		}
		c := m.getSpectrum2D(kTi, nHi)
		for j, i := range inIdx {
			inv := 1 / nHi[j]
			floats.ScaleTo(out.Cosmic[i], inv, c.Cosmic[j])
			floats.ScaleTo(out.Metal[i], inv, c.Metal[j])
			for k := range out.Var {
				floats.ScaleTo(out.Var[k][i], inv, c.Var[k][j])
			}
		}
	}

	if len(outIdx) > 0 {
		kTo := make([]float64, len(outIdx))
		for j, i := range outIdx {
			kTo[j] = kT[i]
		}
		c, err := m.fallback.GetSpectrum(kTo)
		if err != nil {
			return Components{}, fmt.Errorf("igm model: fallback: %w", err)
		}
		for j, i := range outIdx {
			copy(out.Cosmic[i], c.Cosmic[j])
			copy(out.Metal[i], c.Metal[j])
			for k := range out.Var {
				copy(out.Var[k][i], c.Var[k][j])
			}
		}
	}

	logrus.Debugf("IGM spectrum: %d points in table, %d from fallback", len(inIdx), len(outIdx))
	return out, nil
}

// getSpectrum2D bilinearly interpolates the prepared tables in
// (log10 T, log10 nH). Results are not yet divided by density.
func (m *DensityTemperatureModel) getSpectrum2D(kT, nH []float64) Components {
	c := newComponents(len(kT), m.grid.NChan(), len(m.vars))
	for p := range kT {
		ti, dT := m.igm.LogT.Bracket(math.Log10(kT[p] * KPerKeV))
		di, dn := m.igm.LogD.Bracket(math.Log10(nH[p]))
		w := BilinearWeights(dT, dn)
		corners := [4]int{
			m.igm.Row(di+1, ti+1),
			m.igm.Row(di+1, ti),
			m.igm.Row(di, ti+1),
			m.igm.Row(di, ti),
		}
		blend(c.Cosmic[p], m.cosmic, corners, w)
		blend(c.Metal[p], m.metal, corners, w)
		for k, v := range m.vars {
			blend(c.Var[k][p], v, corners, w)
		}
	}
	return c
}

func blend(dst []float64, table *mat.Dense, rows [4]int, w [4]float64) {
	for i, r := range rows {
		floats.AddScaled(dst, w[i], table.RawRowView(r))
	}
}
