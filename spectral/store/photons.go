package store

import (
	"fmt"
	"strconv"
)

// LoadPhotonEnergies reads a photon list: a CSV file whose first column is
// the photon energy in keV. Further columns are ignored.
func LoadPhotonEnergies(path string) ([]float64, error) {
	records, err := readCSV(path, "photon")
	if err != nil {
		return nil, fmt.Errorf("load photons: %w", err)
	}
	energies := make([]float64, len(records))
	for i, rec := range records {
		if len(rec) == 0 || rec[0] == "" {
			return nil, fmt.Errorf("load photons: CSV row %d: missing energy", i+2)
		}
		v, err := strconv.ParseFloat(rec[0], 64)
		if err != nil {
			return nil, fmt.Errorf("load photons: CSV row %d: invalid energy: %w", i+2, err)
		}
		energies[i] = v
	}
	return energies, nil
}
