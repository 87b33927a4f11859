package spectral

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"gonum.org/v1/gonum/floats"
)

// Native test grid: 99 bins of 0.1 keV between 0.1 and 10 keV.
const (
	testEmin  = 0.1
	testEmax  = 10.0
	testNBins = 99

	// native bins holding the O and Fe test lines
	testOLineBin  = 5  // 0.6-0.7 keV
	testFeLineBin = 66 // 6.7-6.8 keV
)

var testContCoef = map[int]float64{1: 1.0, 2: 0.1, 8: 0.01, 26: 0.05}

func testEdges() []float64 {
	edges := make([]float64, testNBins+1)
	floats.Span(edges, testEmin, testEmax)
	edges[0], edges[testNBins] = testEmin, testEmax
	return edges
}

func testMid() []float64 {
	e := testEdges()
	mid := make([]float64, testNBins)
	for j := range mid {
		mid[j] = 0.5 * (e[j] + e[j+1])
	}
	return mid
}

// testContinuum is the continuum of element z at temperature index ti.
func testContinuum(z, ti int) []float64 {
	mid := testMid()
	cont := make([]float64, testNBins)
	for j := range cont {
		cont[j] = testContCoef[z] * float64(1+ti) / (1 + mid[j])
	}
	return cont
}

func testLine(bin, ti int, strength float64) []float64 {
	line := make([]float64, testNBins)
	line[bin] = strength * float64(1+ti)
	return line
}

// newTestApec builds a table with continuum for H, He, O and Fe and one
// line each for O and Fe.
func newTestApec(t *testing.T, kT []float64) *ApecTable {
	t.Helper()
	table, err := NewApecTable("test", testEdges(), kT)
	if err != nil {
		t.Fatalf("NewApecTable: %v", err)
	}
	for ti := range kT {
		for _, z := range []int{1, 2, 8, 26} {
			var line []float64
			switch z {
			case 8:
				line = testLine(testOLineBin, ti, 0.2)
			case 26:
				line = testLine(testFeLineBin, ti, 0.5)
			}
			if err := table.SetElement(ti, z, testContinuum(z, ti), line); err != nil {
				t.Fatalf("SetElement(%d, %d): %v", ti, z, err)
			}
		}
	}
	return table
}

var defaultTestKT = []float64{0.01, 0.05, 0.1, 0.5, 1.0, 2.0, 5.0, 10.0, 50.0, 100.0}

func testTableConfig() TableModelConfig {
	return TableModelConfig{
		Emin:     testEmin,
		Emax:     testEmax,
		NChan:    testNBins,
		BinScale: BinScaleLinear,
		NoLines:  true,
	}
}

// IGM test table axes.
var (
	testLogT = []float64{5, 6, 7, 8}
	testLogD = []float64{-4, -3, -2, -1, 0, 1}
)

// testIGMValue is the tabulated emissivity of a component at node (d, ti), bin j.
func testIGMValue(comp, d, ti, j int) float64 {
	return float64(1+comp) * (1 + float64(ti) + 10*float64(d)) * (1 + 0.01*float64(j))
}

// newTestIGM builds an IGM table over the test native grid tracking O and Fe.
// Component 0 is cosmic, 1 and 2 are O and Fe; scattering arrays hold 0.5x
// the base values.
func newTestIGM(t *testing.T, withScatter bool) *IGMTable {
	t.Helper()
	table, err := NewIGMTable("test", testEdges(), testLogT, testLogD, []string{"O", "Fe"}, withScatter)
	if err != nil {
		t.Fatalf("NewIGMTable: %v", err)
	}
	for d := range testLogD {
		for ti := range testLogT {
			r := table.Row(d, ti)
			for j := 0; j < table.NBins(); j++ {
				table.Cosmic.Set(r, j, testIGMValue(0, d, ti, j))
				for k := range table.Metals {
					table.Metals[k].Set(r, j, testIGMValue(k+1, d, ti, j))
				}
				if withScatter {
					table.CosmicScatter.Set(r, j, 0.5*testIGMValue(0, d, ti, j))
					for k := range table.MetalsScatter {
						table.MetalsScatter[k].Set(r, j, 0.5*testIGMValue(k+1, d, ti, j))
					}
				}
			}
		}
	}
	return table
}

// nodeKT converts a log10 T [K] node to keV the same way the model bounds do.
func nodeKT(logT float64) float64 {
	return math.Pow(10, logT) / KPerKeV
}

func sumOf(rows ...[]float64) float64 {
	var s float64
	for _, r := range rows {
		s += floats.Sum(r)
	}
	return s
}

func writeTempYAML(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "model.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}
