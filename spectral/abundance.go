package spectral

import (
	"fmt"
	"math"
	"sort"
)

// AbundanceTable holds solar abundances relative to H, indexed by Z-1.
type AbundanceTable [NumElements]float64

// ReferenceAbundance is the preset the APEC emissivities are computed with.
const ReferenceAbundance = "angr"

var abundancePresets = map[string]AbundanceTable{
	// Anders & Grevesse (1989)
	"angr": {1.00e+00, 9.77e-02, 1.45e-11, 1.41e-11, 3.98e-10, 3.63e-04, 1.12e-04, 8.51e-04, 3.63e-08, 1.23e-04,
		2.14e-06, 3.80e-05, 2.95e-06, 3.55e-05, 2.82e-07, 1.62e-05, 3.16e-07, 3.63e-06, 1.32e-07, 2.29e-06,
		1.26e-09, 9.77e-08, 1.00e-08, 4.68e-07, 2.45e-07, 4.68e-05, 8.32e-08, 1.78e-06, 1.62e-08, 3.98e-08},
	// Asplund, Grevesse, Sauval & Scott (2009)
	"aspl": {1.00e+00, 8.51e-02, 1.12e-11, 2.40e-11, 5.01e-10, 2.69e-04, 6.76e-05, 4.90e-04, 3.63e-08, 8.51e-05,
		1.74e-06, 3.98e-05, 2.82e-06, 3.24e-05, 2.57e-07, 1.32e-05, 3.16e-07, 2.51e-06, 1.07e-07, 2.19e-06,
		1.41e-09, 8.91e-08, 8.51e-09, 4.37e-07, 2.69e-07, 3.16e-05, 9.77e-08, 1.66e-06, 1.55e-08, 3.63e-08},
	// Wilms, Allen & McCray (2000); unlisted elements are zero
	"wilm": {1.00e+00, 9.77e-02, 0, 0, 0, 2.40e-04, 7.59e-05, 4.90e-04, 0, 8.71e-05,
		1.45e-06, 2.51e-05, 2.14e-06, 1.86e-05, 2.63e-07, 1.23e-05, 1.32e-07, 2.57e-06, 0, 1.58e-06,
		0, 6.46e-08, 0, 3.24e-07, 2.19e-07, 2.69e-05, 8.32e-08, 1.12e-06, 0, 0},
	// Lodders (2003)
	"lodd": {1.00e+00, 7.92e-02, 1.90e-09, 2.57e-11, 6.03e-10, 2.45e-04, 6.76e-05, 4.90e-04, 2.88e-08, 7.41e-05,
		1.99e-06, 3.55e-05, 2.88e-06, 3.47e-05, 2.88e-07, 1.55e-05, 1.82e-07, 3.55e-06, 1.29e-07, 2.19e-06,
		1.17e-09, 8.32e-08, 1.00e-08, 4.47e-07, 3.16e-07, 2.95e-05, 8.13e-08, 1.66e-06, 1.82e-08, 4.27e-08},
	// Feldman (1992), used by the IGM tables
	"feld": {1.00e+00, 9.77e-02, 1.26e-11, 2.51e-11, 3.55e-10, 3.98e-04, 1.00e-04, 8.51e-04, 3.63e-08, 1.29e-04,
		2.14e-06, 3.80e-05, 2.95e-06, 3.55e-05, 2.82e-07, 1.62e-05, 3.16e-07, 4.47e-06, 1.32e-07, 2.29e-06,
		1.48e-09, 1.05e-07, 1.00e-08, 4.68e-07, 2.45e-07, 3.24e-05, 8.32e-08, 1.78e-06, 1.62e-08, 3.98e-08},
}

// AbundancePresetNames returns the built-in preset names, sorted.
func AbundancePresetNames() []string {
	names := make([]string, 0, len(abundancePresets))
	for k := range abundancePresets {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// AbundancePreset returns a built-in abundance table by name.
func AbundancePreset(name string) (AbundanceTable, error) {
	t, ok := abundancePresets[name]
	if !ok {
		return AbundanceTable{}, fmt.Errorf("unknown abundance table %q (available: %v)", name, AbundancePresetNames())
	}
	return t, nil
}

// NewAbundanceTable builds a table from 30 non-negative values for Z = 1..30.
func NewAbundanceTable(values []float64) (AbundanceTable, error) {
	var t AbundanceTable
	if len(values) != NumElements {
		return t, fmt.Errorf("abundance table needs %d values, got %d", NumElements, len(values))
	}
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return t, fmt.Errorf("abundance for %s must be finite and non-negative, got %g", elementSymbols[i], v)
		}
		t[i] = v
	}
	return t, nil
}

// AbundanceSpec selects an abundance table either by preset name or by
// explicit values. The zero value selects the reference preset.
type AbundanceSpec struct {
	Preset string
	Values []float64
}

// Resolve returns the selected table.
func (s AbundanceSpec) Resolve() (AbundanceTable, error) {
	if len(s.Values) > 0 {
		if s.Preset != "" {
			return AbundanceTable{}, fmt.Errorf("abundance table: set either a preset name or values, not both")
		}
		return NewAbundanceTable(s.Values)
	}
	if s.Preset == "" {
		return AbundancePreset(ReferenceAbundance)
	}
	return AbundancePreset(s.Preset)
}

// String names the selection for logging.
func (s AbundanceSpec) String() string {
	if len(s.Values) > 0 {
		return "custom"
	}
	if s.Preset == "" {
		return ReferenceAbundance
	}
	return s.Preset
}

// relativeTo returns abund[Z]/ref[Z] for every element; entries with a zero
// reference abundance scale to zero.
func (t AbundanceTable) relativeTo(ref AbundanceTable) [NumElements]float64 {
	var r [NumElements]float64
	for i := range t {
		if ref[i] > 0 {
			r[i] = t[i] / ref[i]
		}
	}
	return r
}
