package cmd

import (
	"bytes"
	"encoding/csv"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"

	"github.com/xsim-dev/xsim/spectral"
	"github.com/xsim-dev/xsim/spectral/absorb"
	"github.com/xsim-dev/xsim/spectral/store"
)

const testBins = 20

// writeTestTables saves small APEC, IGM and cross-section tables under a
// fresh model root and returns it.
func writeTestTables(t *testing.T) string {
	t.Helper()
	root := t.TempDir()

	edges := make([]float64, testBins+1)
	floats.Span(edges, 0.1, 10)
	edges[0], edges[testBins] = 0.1, 10

	apec, err := spectral.NewApecTable(store.DefaultApecVersion, edges, []float64{0.1, 1, 10, 100})
	require.NoError(t, err)
	for ti := 0; ti < 4; ti++ {
		for _, z := range []int{1, 2, 8, 26} {
			cont := make([]float64, testBins)
			for j := range cont {
				cont[j] = float64(z*(ti+1)) / float64(j+1)
			}
			require.NoError(t, apec.SetElement(ti, z, cont, nil))
		}
	}
	require.NoError(t, store.SaveApec(root, apec))

	igm, err := spectral.NewIGMTable(store.DefaultIGMVersion, edges, []float64{5, 6, 7, 8}, []float64{-4, -3, -2, -1, 0, 1}, []string{"O", "Fe"}, false)
	require.NoError(t, err)
	for r := 0; r < igm.NRows(); r++ {
		for j := 0; j < testBins; j++ {
			igm.Cosmic.Set(r, j, float64(r+1))
			igm.Metals[0].Set(r, j, 0.1*float64(r+1))
			igm.Metals[1].Set(r, j, 0.2*float64(r+1))
		}
	}
	require.NoError(t, store.SaveIGM(root, igm))

	xsec, err := absorb.NewCrossSection([]float64{0.05, 1, 20}, []float64{1e-21, 2e-22, 1e-24})
	require.NoError(t, err)
	require.NoError(t, store.SaveCrossSection(filepath.Join(root, "tbabs.csv"), xsec))
	return root
}

func testModelConfig(t *testing.T, root string) *spectral.ModelConfig {
	t.Helper()
	cfg := defaultModelConfig()
	cfg.ModelRoot = root
	cfg.NChan = testBins
	require.NoError(t, cfg.Validate())
	return cfg
}

// readCSVOutput parses CSV output and drops the header.
func readCSVOutput(t *testing.T, buf *bytes.Buffer) [][]string {
	t.Helper()
	records, err := csv.NewReader(buf).ReadAll()
	require.NoError(t, err)
	require.NotEmpty(t, records)
	return records[1:]
}

func sumColumn(t *testing.T, records [][]string, col int) float64 {
	t.Helper()
	var s float64
	for _, rec := range records {
		v, err := strconv.ParseFloat(rec[col], 64)
		require.NoError(t, err)
		s += v
	}
	return s
}
