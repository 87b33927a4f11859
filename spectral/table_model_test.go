package spectral

import (
	"errors"
	"math"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"

	"github.com/xsim-dev/xsim/spectral/internal/testutil"
)

func newTestTableModel(t *testing.T, kT []float64, mutate func(*TableModelConfig)) *TableModel {
	t.Helper()
	cfg := testTableConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	m, err := NewTableModel(newTestApec(t, kT), cfg)
	require.NoError(t, err)
	return m
}

func TestTableModel_GetSpectrumBeforePrepare(t *testing.T) {
	m := newTestTableModel(t, defaultTestKT, nil)
	_, err := m.GetSpectrum([]float64{1.0})
	assert.True(t, errors.Is(err, ErrNotPrepared), "got %v", err)
	assert.Nil(t, m.Window())
}

func TestTableModel_WindowContainsRequestedRange(t *testing.T) {
	axis := []float64{0.01, 0.1, 1.0, 10.0}
	m := newTestTableModel(t, axis, nil)

	tests := []struct {
		name         string
		kTmin, kTmax float64
		wantWindow   []float64
	}{
		{"interior range", 0.5, 5.0, []float64{0.1, 1.0, 10.0}},
		{"range on nodes", 0.1, 1.0, []float64{0.01, 0.1, 1.0, 10.0}},
		{"single temperature", 0.5, 0.5, []float64{0.1, 1.0, 10.0}},
		{"whole table", 0.01, 10.0, []float64{0.01, 0.1, 1.0, 10.0}},
		{"below table", 0.001, 0.005, []float64{0.01, 0.1}},
		{"above table", 20, 50, []float64{1.0, 10.0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, m.PrepareSpectrum(0, tt.kTmin, tt.kTmax))
			w := m.Window()
			assert.Equal(t, tt.wantWindow, w)
			if tt.kTmin >= axis[0] && tt.kTmax <= axis[len(axis)-1] {
				assert.LessOrEqual(t, w[0], tt.kTmin)
				assert.GreaterOrEqual(t, w[len(w)-1], tt.kTmax)
			}
		})
	}
}

func TestTableModel_PrepareSpectrumRejectsBadInput(t *testing.T) {
	m := newTestTableModel(t, defaultTestKT, nil)
	assert.Error(t, m.PrepareSpectrum(-1, 1, 2), "redshift of -1")
	assert.Error(t, m.PrepareSpectrum(0, 5, 1), "inverted range")
}

func TestTableModel_NodeTemperaturesReproduceWindowRows(t *testing.T) {
	m := newTestTableModel(t, defaultTestKT, func(c *TableModelConfig) { c.VarElem = []string{"Fe"} })
	require.NoError(t, m.PrepareSpectrum(0.05, 0.5, 5.0))

	kT := m.Window()
	c, err := m.GetSpectrum(kT)
	require.NoError(t, err)
	require.Equal(t, len(kT), c.Len())

	w := m.window
	for r := range kT {
		assert.Equal(t, w.cosmic.RawRowView(r), c.Cosmic[r], "cosmic at kT=%g", kT[r])
		assert.Equal(t, w.metal.RawRowView(r), c.Metal[r], "metal at kT=%g", kT[r])
		assert.Equal(t, w.vars[0].RawRowView(r), c.Var[0][r], "Fe at kT=%g", kT[r])
	}
}

func TestTableModel_LinearBetweenNodes(t *testing.T) {
	m := newTestTableModel(t, defaultTestKT, nil)
	require.NoError(t, m.PrepareSpectrum(0, 1.0, 2.0))

	c, err := m.GetSpectrum([]float64{1.0, 2.0, 1.25})
	require.NoError(t, err)

	want := make([]float64, m.NChan())
	floats.AddScaledTo(want, want, 0.75, c.Cosmic[0])
	floats.AddScaled(want, 0.25, c.Cosmic[1])
	testutil.AssertSliceRelEqual(t, "cosmic", want, c.Cosmic[2], 1e-12, 1e-300)
}

func TestTableModel_OutsideWindowIsZero(t *testing.T) {
	m := newTestTableModel(t, defaultTestKT, nil)
	require.NoError(t, m.PrepareSpectrum(0, 1.0, 2.0))

	c, err := m.GetSpectrum([]float64{0.02, 80.0})
	require.NoError(t, err)
	for i := 0; i < c.Len(); i++ {
		assert.Zero(t, floats.Sum(c.Cosmic[i]))
		assert.Zero(t, floats.Sum(c.Metal[i]))
	}
	assert.Nil(t, c.Var, "no variable elements configured")
}

func TestTableModel_EmptyQuery(t *testing.T) {
	m := newTestTableModel(t, defaultTestKT, nil)
	require.NoError(t, m.PrepareSpectrum(0, 1.0, 2.0))

	c, err := m.GetSpectrum(nil)
	require.NoError(t, err)
	assert.Equal(t, 0, c.Len())
}

func TestTableModel_ContinuumFluxConservedAtRestFrame(t *testing.T) {
	m := newTestTableModel(t, defaultTestKT, nil)
	require.NoError(t, m.PrepareSpectrum(0, 1.0, 1.0))

	c, err := m.GetSpectrum([]float64{1.0})
	require.NoError(t, err)

	ti := 4 // kT = 1.0
	testutil.AssertFloat64Equal(t, "cosmic", sumOf(testContinuum(1, ti), testContinuum(2, ti)), floats.Sum(c.Cosmic[0]), 1e-12)
	testutil.AssertFloat64Equal(t, "metal", sumOf(testContinuum(8, ti), testContinuum(26, ti)), floats.Sum(c.Metal[0]), 1e-12)
	testutil.AssertSliceRelEqual(t, "cosmic bins", func() []float64 {
		out := testContinuum(1, ti)
		floats.Add(out, testContinuum(2, ti))
		return out
	}(), c.Cosmic[0], 1e-9, 0)
}

func TestTableModel_ThermalLinesConserveFlux(t *testing.T) {
	m := newTestTableModel(t, defaultTestKT, func(c *TableModelConfig) {
		c.NoLines = false
		c.ThermalBroad = true
	})
	require.NoError(t, m.PrepareSpectrum(0, 5.0, 5.0))

	c, err := m.GetSpectrum([]float64{5.0})
	require.NoError(t, err)

	ti := 6 // kT = 5.0
	want := sumOf(testContinuum(8, ti), testContinuum(26, ti), testLine(testOLineBin, ti, 0.2), testLine(testFeLineBin, ti, 0.5))
	testutil.AssertFloat64Equal(t, "metal with lines", want, floats.Sum(c.Metal[0]), 1e-6)
}

func TestTableModel_NoLinesDropsLineEmission(t *testing.T) {
	with := newTestTableModel(t, defaultTestKT, func(c *TableModelConfig) { c.NoLines = false })
	without := newTestTableModel(t, defaultTestKT, nil)
	require.NoError(t, with.PrepareSpectrum(0, 5.0, 5.0))
	require.NoError(t, without.PrepareSpectrum(0, 5.0, 5.0))

	cw, err := with.GetSpectrum([]float64{5.0})
	require.NoError(t, err)
	cn, err := without.GetSpectrum([]float64{5.0})
	require.NoError(t, err)

	ti := 6
	lines := sumOf(testLine(testOLineBin, ti, 0.2), testLine(testFeLineBin, ti, 0.5))
	testutil.AssertFloat64Equal(t, "line excess", lines, floats.Sum(cw.Metal[0])-floats.Sum(cn.Metal[0]), 1e-9)
	assert.Equal(t, cn.Cosmic[0], cw.Cosmic[0], "H and He carry no lines in the test table")
}

func TestTableModel_RedshiftMovesLines(t *testing.T) {
	m := newTestTableModel(t, defaultTestKT, func(c *TableModelConfig) { c.NoLines = false })
	require.NoError(t, m.PrepareSpectrum(1.0, 5.0, 5.0))

	c, err := m.GetSpectrum([]float64{5.0})
	require.NoError(t, err)

	// the Fe line at 6.7-6.8 keV lands in the 3.3-3.4 keV bin
	lineBin := sort.SearchFloat64s(m.Grid().Edges(), 3.375) - 1
	require.GreaterOrEqual(t, lineBin, 2)
	excess := c.Metal[0][lineBin] - c.Metal[0][lineBin-2]
	assert.Greater(t, excess, 1.75, "Fe line flux should land near 3.4 keV")
}

func TestTableModel_VarElemSplitsMetals(t *testing.T) {
	plain := newTestTableModel(t, defaultTestKT, nil)
	split := newTestTableModel(t, defaultTestKT, func(c *TableModelConfig) { c.VarElem = []string{"fe"} })
	assert.Equal(t, []string{"Fe"}, split.VarElemNames())

	require.NoError(t, plain.PrepareSpectrum(0, 2.0, 2.0))
	require.NoError(t, split.PrepareSpectrum(0, 2.0, 2.0))
	cp, err := plain.GetSpectrum([]float64{2.0})
	require.NoError(t, err)
	cs, err := split.GetSpectrum([]float64{2.0})
	require.NoError(t, err)

	require.Len(t, cs.Var, 1)
	sum := append([]float64(nil), cs.Metal[0]...)
	floats.Add(sum, cs.Var[0][0])
	testutil.AssertSliceRelEqual(t, "metal+Fe", cp.Metal[0], sum, 1e-12, 1e-300)

	ti := 5 // kT = 2.0
	testutil.AssertFloat64Equal(t, "Fe", floats.Sum(testContinuum(26, ti)), floats.Sum(cs.Var[0][0]), 1e-12)
}

func TestTableModel_InvalidVarElemFailsAtConstruction(t *testing.T) {
	table := newTestApec(t, defaultTestKT)
	for _, elems := range [][]string{{"H"}, {"Xx"}, {"O", "o"}} {
		cfg := testTableConfig()
		cfg.VarElem = elems
		_, err := NewTableModel(table, cfg)
		assert.Error(t, err, "var_elem %v", elems)
	}
}

func TestTableModel_AbundanceTableScalesComponents(t *testing.T) {
	angr, err := AbundancePreset("angr")
	require.NoError(t, err)
	doubled := make([]float64, NumElements)
	for i, v := range angr {
		doubled[i] = 2 * v
	}

	ref := newTestTableModel(t, defaultTestKT, nil)
	dbl := newTestTableModel(t, defaultTestKT, func(c *TableModelConfig) { c.AbundTable = AbundanceSpec{Values: doubled} })
	require.NoError(t, ref.PrepareSpectrum(0, 1.0, 1.0))
	require.NoError(t, dbl.PrepareSpectrum(0, 1.0, 1.0))

	cr, err := ref.GetSpectrum([]float64{1.0})
	require.NoError(t, err)
	cd, err := dbl.GetSpectrum([]float64{1.0})
	require.NoError(t, err)

	testutil.AssertFloat64Equal(t, "cosmic", 2*floats.Sum(cr.Cosmic[0]), floats.Sum(cd.Cosmic[0]), 1e-12)
	testutil.AssertFloat64Equal(t, "metal", 2*floats.Sum(cr.Metal[0]), floats.Sum(cd.Metal[0]), 1e-12)
}

func TestTableModel_ReturnSpectrumMatchesComponents(t *testing.T) {
	m := newTestTableModel(t, defaultTestKT, func(c *TableModelConfig) {
		c.VarElem = []string{"Fe"}
		c.NoLines = false
		c.ThermalBroad = true
	})
	require.NoError(t, m.PrepareSpectrum(0.1, 2.0, 2.0))
	c, err := m.GetSpectrum([]float64{2.0})
	require.NoError(t, err)

	const (
		metallicity = 0.3
		feAbund     = 0.7
		norm        = 2.0e-14
	)
	got, err := m.ReturnSpectrum(2.0, metallicity, 0.1, norm, 0, map[string]float64{"Fe": feAbund})
	require.NoError(t, err)

	want, err := c.Total(0, metallicity, []float64{feAbund})
	require.NoError(t, err)
	floats.Scale(1e14*norm, want)
	testutil.AssertSliceRelEqual(t, "spectrum", want, got.Counts(), 1e-12, 1e-300)

	// variable elements follow the metallicity when not given
	got, err = m.ReturnSpectrum(2.0, metallicity, 0.1, norm, 0, nil)
	require.NoError(t, err)
	want, err = c.Total(0, metallicity, []float64{metallicity})
	require.NoError(t, err)
	floats.Scale(1e14*norm, want)
	testutil.AssertSliceRelEqual(t, "spectrum", want, got.Counts(), 1e-12, 1e-300)
}

func TestTableModel_ReturnSpectrumInterpolatesAndBroadens(t *testing.T) {
	m := newTestTableModel(t, defaultTestKT, func(c *TableModelConfig) { c.NoLines = false })

	lo, err := m.ReturnSpectrum(1.0, 1, 0, 1e-14, 0, nil)
	require.NoError(t, err)
	hi, err := m.ReturnSpectrum(2.0, 1, 0, 1e-14, 0, nil)
	require.NoError(t, err)
	mid, err := m.ReturnSpectrum(1.5, 1, 0, 1e-14, 0, nil)
	require.NoError(t, err)
	testutil.AssertFloat64Equal(t, "total", 0.5*(floats.Sum(lo.Flux)+floats.Sum(hi.Flux)), floats.Sum(mid.Flux), 1e-12)

	narrow, err := m.ReturnSpectrum(2.0, 1, 0, 1e-14, 0, nil)
	require.NoError(t, err)
	wide, err := m.ReturnSpectrum(2.0, 1, 0, 1e-14, 3000, nil)
	require.NoError(t, err)
	testutil.AssertFloat64Equal(t, "broadened total", floats.Sum(narrow.Counts()), floats.Sum(wide.Counts()), 1e-6)
	assert.Less(t, wide.Flux[testFeLineBin], narrow.Flux[testFeLineBin], "velocity broadening spreads the Fe line")
}

func TestTableModel_ReturnSpectrumErrors(t *testing.T) {
	m := newTestTableModel(t, defaultTestKT, func(c *TableModelConfig) { c.VarElem = []string{"Fe"} })

	_, err := m.ReturnSpectrum(1, 1, -2, 1, 0, nil)
	assert.Error(t, err, "redshift below -1")
	_, err = m.ReturnSpectrum(1, 1, 0, 1, 0, map[string]float64{"O": 1})
	assert.Error(t, err, "O is not a variable element")
}

func TestTableModel_ReturnSpectrumOutsideTableIsZero(t *testing.T) {
	m := newTestTableModel(t, defaultTestKT, nil)

	for _, kT := range []float64{0.001, 500, math.NaN()} {
		spec, err := m.ReturnSpectrum(kT, 0.3, 0, 1, 0, nil)
		require.NoError(t, err, "kT=%g", kT)
		require.Len(t, spec.Flux, m.NChan(), "kT=%g", kT)
		assert.Equal(t, make([]float64, m.NChan()), spec.Flux, "kT=%g", kT)
		assert.Same(t, m.Grid(), spec.Grid)
	}
}
