package store

import (
	"fmt"
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/xsim-dev/xsim/spectral/absorb"
)

// LoadCrossSection reads an energy_kev,sigma_cm2 CSV file.
func LoadCrossSection(path string) (*absorb.CrossSection, error) {
	records, err := readCSV(path, "cross section")
	if err != nil {
		return nil, fmt.Errorf("load cross section: %w", err)
	}
	energy := make([]float64, len(records))
	sigma := make([]float64, len(records))
	for i, rec := range records {
		row := i + 2
		if len(rec) != 2 {
			return nil, fmt.Errorf("load cross section: CSV row %d: expected 2 columns, got %d", row, len(rec))
		}
		vals, err := parseFloats(rec, 0, row, "cross section")
		if err != nil {
			return nil, fmt.Errorf("load cross section: %w", err)
		}
		energy[i], sigma[i] = vals[0], vals[1]
	}
	xsec, err := absorb.NewCrossSection(energy, sigma)
	if err != nil {
		return nil, fmt.Errorf("load cross section %s: %w", path, err)
	}
	logrus.Infof("Loaded cross section from %s: %d points (%g..%g keV)", path, len(energy), energy[0], energy[len(energy)-1])
	return xsec, nil
}

// SaveCrossSection writes xsec in the layout LoadCrossSection reads.
func SaveCrossSection(path string, xsec *absorb.CrossSection) error {
	rows := make([][]string, len(xsec.Energy))
	for i := range xsec.Energy {
		rows[i] = []string{
			strconv.FormatFloat(xsec.Energy[i], 'g', -1, 64),
			strconv.FormatFloat(xsec.Sigma[i], 'g', -1, 64),
		}
	}
	if err := writeCSV(path, []string{"energy_kev", "sigma_cm2"}, rows); err != nil {
		return fmt.Errorf("save cross section: %w", err)
	}
	return nil
}
