package store

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/mat"

	"github.com/xsim-dev/xsim/spectral"
)

// DefaultIGMVersion is the IGM table version used when none is configured.
const DefaultIGMVersion = "4"

const (
	componentCosmic = "cosmic"
	scatterSuffix   = "_scat"
)

type igmMeta struct {
	Version  string    `yaml:"version"`
	LogT     []float64 `yaml:"log_t"`
	LogD     []float64 `yaml:"log_d"`
	Elements []string  `yaml:"elements"`
	Scatter  bool      `yaml:"scatter"`
}

// IGMDir returns the directory holding IGM table version vers under root.
func IGMDir(root, vers string) string {
	if vers == "" {
		vers = DefaultIGMVersion
	}
	return filepath.Join(root, "igm_v"+vers)
}

// igmArray resolves a component name to the matrix it fills.
func igmArray(t *spectral.IGMTable, component string) (*mat.Dense, error) {
	name, scatter := strings.CutSuffix(component, scatterSuffix)
	if scatter && !t.HasScatter() {
		return nil, fmt.Errorf("component %q present but table has no scattering arrays", component)
	}
	if name == componentCosmic {
		if scatter {
			return t.CosmicScatter, nil
		}
		return t.Cosmic, nil
	}
	i := t.ElementIndex(name)
	if i < 0 {
		return nil, fmt.Errorf("unknown component %q", component)
	}
	if scatter {
		return t.MetalsScatter[i], nil
	}
	return t.Metals[i], nil
}

// LoadIGM loads IGM table version vers from root. Rows absent from the
// emissivity file stay zero.
func LoadIGM(root, vers string) (*spectral.IGMTable, error) {
	dir := IGMDir(root, vers)
	var meta igmMeta
	if err := readMeta(filepath.Join(dir, "meta.yaml"), &meta); err != nil {
		return nil, fmt.Errorf("load IGM table: %w", err)
	}
	if vers != "" && meta.Version != vers {
		return nil, fmt.Errorf("load IGM table: %s holds version %q, want %q", dir, meta.Version, vers)
	}
	edges, err := readEdges(filepath.Join(dir, "energy.csv"))
	if err != nil {
		return nil, fmt.Errorf("load IGM table: %w", err)
	}
	table, err := spectral.NewIGMTable(meta.Version, edges, meta.LogT, meta.LogD, meta.Elements, meta.Scatter)
	if err != nil {
		return nil, fmt.Errorf("load IGM table: %w", err)
	}

	records, err := readCSV(filepath.Join(dir, "emissivity.csv"), "emissivity")
	if err != nil {
		return nil, fmt.Errorf("load IGM table: %w", err)
	}
	nbins := table.NBins()
	for i, rec := range records {
		row := i + 2
		if len(rec) != 3+nbins {
			return nil, fmt.Errorf("load IGM table: emissivity CSV row %d: expected %d columns, got %d", row, 3+nbins, len(rec))
		}
		d, err := parseIndex(rec[0], row, "emissivity", "d_index")
		if err != nil {
			return nil, fmt.Errorf("load IGM table: %w", err)
		}
		ti, err := parseIndex(rec[1], row, "emissivity", "t_index")
		if err != nil {
			return nil, fmt.Errorf("load IGM table: %w", err)
		}
		if d < 0 || d >= table.LogD.Len() || ti < 0 || ti >= table.LogT.Len() {
			return nil, fmt.Errorf("load IGM table: emissivity CSV row %d: node (%d, %d) out of range", row, d, ti)
		}
		dst, err := igmArray(table, rec[2])
		if err != nil {
			return nil, fmt.Errorf("load IGM table: emissivity CSV row %d: %w", row, err)
		}
		vals, err := parseFloats(rec, 3, row, "emissivity")
		if err != nil {
			return nil, fmt.Errorf("load IGM table: %w", err)
		}
		dst.SetRow(table.Row(d, ti), vals)
	}

	logrus.Infof("Loaded IGM table %s: %d x %d (log T x log n_H) nodes, %d energy bins, elements %v, scatter=%t",
		meta.Version, table.LogT.Len(), table.LogD.Len(), nbins, table.Elements, table.HasScatter())
	return table, nil
}

// SaveIGM writes table under root in the layout LoadIGM reads.
func SaveIGM(root string, table *spectral.IGMTable) error {
	dir := IGMDir(root, table.Version)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("save IGM table: %w", err)
	}
	meta := igmMeta{
		Version:  table.Version,
		LogT:     table.LogT.Values(),
		LogD:     table.LogD.Values(),
		Elements: table.Elements,
		Scatter:  table.HasScatter(),
	}
	if err := writeMeta(filepath.Join(dir, "meta.yaml"), meta); err != nil {
		return fmt.Errorf("save IGM table: %w", err)
	}
	if err := writeEdges(filepath.Join(dir, "energy.csv"), table.Energy); err != nil {
		return fmt.Errorf("save IGM table: %w", err)
	}

	components := []string{componentCosmic}
	components = append(components, table.Elements...)
	if table.HasScatter() {
		for _, c := range append([]string{componentCosmic}, table.Elements...) {
			components = append(components, c+scatterSuffix)
		}
	}

	var rows [][]string
	for d := 0; d < table.LogD.Len(); d++ {
		for ti := 0; ti < table.LogT.Len(); ti++ {
			for _, c := range components {
				src, err := igmArray(table, c)
				if err != nil {
					return fmt.Errorf("save IGM table: %w", err)
				}
				prefix := []string{strconv.Itoa(d), strconv.Itoa(ti), c}
				rows = append(rows, formatFloats(prefix, mat.Row(nil, table.Row(d, ti), src)))
			}
		}
	}
	header := binHeader([]string{"d_index", "t_index", "component"}, table.NBins())
	if err := writeCSV(filepath.Join(dir, "emissivity.csv"), header, rows); err != nil {
		return fmt.Errorf("save IGM table: %w", err)
	}
	return nil
}
