// Package store reads and writes the emissivity and cross-section tables
// behind the spectral engines.
//
// Layout under a model root:
//
//	apec_v<version>/meta.yaml        version, kT axis (keV)
//	apec_v<version>/energy.csv       native bin edges (keV)
//	apec_v<version>/emissivity.csv   t_index,z,component,bin_0..bin_N-1  (component: cont|line)
//	igm_v<version>/meta.yaml         version, log_t, log_d, elements, scatter
//	igm_v<version>/energy.csv        native bin edges (keV)
//	igm_v<version>/emissivity.csv    d_index,t_index,component,bin_0..  (component: cosmic|<element>[_scat])
//
// Cross sections are standalone energy_kev,sigma_cm2 CSV files. Photon
// lists are CSV files whose first column is the photon energy in keV.
package store

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
)

// readCSV reads a CSV file with a header row and returns the data rows.
func readCSV(path, what string) ([][]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s CSV: %w", what, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read %s CSV: %w", what, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%s CSV missing header", what)
	}
	return records[1:], nil
}

// writeCSV writes a header and rows to path.
func writeCSV(path string, header []string, rows [][]string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	w := csv.NewWriter(file)
	if err := w.Write(header); err != nil {
		file.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := w.WriteAll(rows); err != nil {
		file.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return file.Close()
}

// parseFloats parses record[from:] as float64 values.
func parseFloats(record []string, from, row int, what string) ([]float64, error) {
	vals := make([]float64, len(record)-from)
	for i, s := range record[from:] {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("%s CSV row %d: invalid value in column %d: %w", what, row, from+i+1, err)
		}
		vals[i] = v
	}
	return vals, nil
}

func parseIndex(s string, row int, what, col string) (int, error) {
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%s CSV row %d: invalid %s: %w", what, row, col, err)
	}
	return v, nil
}

func formatFloats(prefix []string, vals []float64) []string {
	rec := make([]string, 0, len(prefix)+len(vals))
	rec = append(rec, prefix...)
	for _, v := range vals {
		rec = append(rec, strconv.FormatFloat(v, 'g', -1, 64))
	}
	return rec
}

func binHeader(prefix []string, n int) []string {
	h := append([]string(nil), prefix...)
	for i := 0; i < n; i++ {
		h = append(h, "bin_"+strconv.Itoa(i))
	}
	return h
}

// readEdges loads a single-column energy edge file.
func readEdges(path string) ([]float64, error) {
	records, err := readCSV(path, "energy")
	if err != nil {
		return nil, err
	}
	edges := make([]float64, len(records))
	for i, rec := range records {
		if len(rec) < 1 {
			return nil, fmt.Errorf("energy CSV row %d: expected 1 column", i+2)
		}
		v, err := strconv.ParseFloat(rec[0], 64)
		if err != nil {
			return nil, fmt.Errorf("energy CSV row %d: invalid edge: %w", i+2, err)
		}
		edges[i] = v
	}
	return edges, nil
}

func writeEdges(path string, edges []float64) error {
	rows := make([][]string, len(edges))
	for i, e := range edges {
		rows[i] = []string{strconv.FormatFloat(e, 'g', -1, 64)}
	}
	return writeCSV(path, []string{"edge_kev"}, rows)
}
