package store

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/xsim-dev/xsim/spectral"
)

// DefaultApecVersion is the APEC table version used when none is configured.
const DefaultApecVersion = "3.0.9"

const (
	componentCont = "cont"
	componentLine = "line"
)

type apecMeta struct {
	Version string    `yaml:"version"`
	KT      []float64 `yaml:"kt"`
}

// ApecDir returns the directory holding APEC table version vers under root.
func ApecDir(root, vers string) string {
	if vers == "" {
		vers = DefaultApecVersion
	}
	return filepath.Join(root, "apec_v"+vers)
}

func readMeta(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read table metadata: %w", err)
	}
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(out); err != nil {
		return fmt.Errorf("parse table metadata %s: %w", path, err)
	}
	return nil
}

func writeMeta(path string, in any) error {
	data, err := yaml.Marshal(in)
	if err != nil {
		return fmt.Errorf("encode table metadata: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write table metadata: %w", err)
	}
	return nil
}

// LoadApec loads APEC table version vers from root.
func LoadApec(root, vers string) (*spectral.ApecTable, error) {
	dir := ApecDir(root, vers)
	var meta apecMeta
	if err := readMeta(filepath.Join(dir, "meta.yaml"), &meta); err != nil {
		return nil, fmt.Errorf("load APEC table: %w", err)
	}
	if vers != "" && meta.Version != vers {
		return nil, fmt.Errorf("load APEC table: %s holds version %q, want %q", dir, meta.Version, vers)
	}
	edges, err := readEdges(filepath.Join(dir, "energy.csv"))
	if err != nil {
		return nil, fmt.Errorf("load APEC table: %w", err)
	}
	table, err := spectral.NewApecTable(meta.Version, edges, meta.KT)
	if err != nil {
		return nil, fmt.Errorf("load APEC table: %w", err)
	}

	records, err := readCSV(filepath.Join(dir, "emissivity.csv"), "emissivity")
	if err != nil {
		return nil, fmt.Errorf("load APEC table: %w", err)
	}
	nbins := table.NBins()
	for i, rec := range records {
		row := i + 2
		if len(rec) != 3+nbins {
			return nil, fmt.Errorf("load APEC table: emissivity CSV row %d: expected %d columns, got %d", row, 3+nbins, len(rec))
		}
		ti, err := parseIndex(rec[0], row, "emissivity", "t_index")
		if err != nil {
			return nil, fmt.Errorf("load APEC table: %w", err)
		}
		z, err := parseIndex(rec[1], row, "emissivity", "z")
		if err != nil {
			return nil, fmt.Errorf("load APEC table: %w", err)
		}
		vals, err := parseFloats(rec, 3, row, "emissivity")
		if err != nil {
			return nil, fmt.Errorf("load APEC table: %w", err)
		}
		if ti < 0 || ti >= table.Temperature.Len() {
			return nil, fmt.Errorf("load APEC table: emissivity CSV row %d: temperature index %d out of range", row, ti)
		}
		if z < 1 || z > spectral.NumElements {
			return nil, fmt.Errorf("load APEC table: emissivity CSV row %d: atomic number %d out of range", row, z)
		}
		cont, line := table.Element(ti, z)
		switch rec[2] {
		case componentCont:
			cont = vals
		case componentLine:
			line = vals
		default:
			return nil, fmt.Errorf("load APEC table: emissivity CSV row %d: unknown component %q", row, rec[2])
		}
		if err := table.SetElement(ti, z, cont, line); err != nil {
			return nil, fmt.Errorf("load APEC table: emissivity CSV row %d: %w", row, err)
		}
	}

	logrus.Infof("Loaded APEC table %s: %d temperatures (%g..%g keV), %d energy bins, %d emissivity rows",
		meta.Version, table.Temperature.Len(), table.Temperature.First(), table.Temperature.Last(), nbins, len(records))
	return table, nil
}

// SaveApec writes table under root in the layout LoadApec reads.
// All-nil element arrays are skipped.
func SaveApec(root string, table *spectral.ApecTable) error {
	dir := ApecDir(root, table.Version)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("save APEC table: %w", err)
	}
	meta := apecMeta{Version: table.Version, KT: table.Temperature.Values()}
	if err := writeMeta(filepath.Join(dir, "meta.yaml"), meta); err != nil {
		return fmt.Errorf("save APEC table: %w", err)
	}
	if err := writeEdges(filepath.Join(dir, "energy.csv"), table.Energy); err != nil {
		return fmt.Errorf("save APEC table: %w", err)
	}

	var rows [][]string
	for ti := 0; ti < table.Temperature.Len(); ti++ {
		for z := 1; z <= spectral.NumElements; z++ {
			cont, line := table.Element(ti, z)
			if cont != nil {
				rows = append(rows, formatFloats([]string{strconv.Itoa(ti), strconv.Itoa(z), componentCont}, cont))
			}
			if line != nil {
				rows = append(rows, formatFloats([]string{strconv.Itoa(ti), strconv.Itoa(z), componentLine}, line))
			}
		}
	}
	header := binHeader([]string{"t_index", "z", "component"}, table.NBins())
	if err := writeCSV(filepath.Join(dir, "emissivity.csv"), header, rows); err != nil {
		return fmt.Errorf("save APEC table: %w", err)
	}
	return nil
}
