// Package absorb models foreground photoelectric absorption as an
// energy-dependent survival probability, and culls photon lists against it.
//
// Three variants share the Model interface:
//   - Tabulated: a cross-section table interpolated linearly in energy
//   - Wabs: the Morrison & McCammon (1983) piecewise polynomial fit
//   - TBabs: the Tuebingen-Boulder model (Wilms, Allen & McCray 2000),
//     evaluated from its tabulated cross section
//
// Column densities are in units of 1e22 cm^-2.
package absorb

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
	"time"
)

// Model maps photon energy (keV) to the probability of surviving absorption.
type Model interface {
	// Name returns the registry name of the model.
	Name() string
	// NH returns the column density in 1e22 cm^-2.
	NH() float64
	// GetAbsorb returns the survival probability at each energy.
	GetAbsorb(e []float64) []float64
	// AbsorbPhotons returns, per photon, whether it survives.
	AbsorbPhotons(e []float64, rng *rand.Rand) []bool
}

// Kind enumerates the absorption models.
type Kind int

const (
	KindTabulated Kind = iota
	KindWabs
	KindTBabs
)

var kindNames = map[Kind]string{
	KindTabulated: "tabulated",
	KindWabs:      "wabs",
	KindTBabs:     "tbabs",
}

// String returns the registry name.
func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// NeedsTable reports whether the model is evaluated from a cross-section table.
func (k Kind) NeedsTable() bool {
	return k == KindTabulated || k == KindTBabs
}

// DefaultTable returns the cross-section file, relative to the model root,
// read when none is configured. Empty when the kind has no default.
func (k Kind) DefaultTable() string {
	if k == KindTBabs {
		return "tbabs.csv"
	}
	return ""
}

// ParseKind maps a model name onto its Kind.
func ParseKind(name string) (Kind, error) {
	for k, s := range kindNames {
		if s == name {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown absorption model %q (valid: %v)", name, Names())
}

// Names returns the valid model names, sorted.
func Names() []string {
	names := make([]string, 0, len(kindNames))
	for _, s := range kindNames {
		names = append(names, s)
	}
	sort.Strings(names)
	return names
}

// New builds the model of the given kind. xsec is required for the
// tabulated and tbabs kinds and ignored otherwise.
func New(kind Kind, nH float64, xsec *CrossSection) (Model, error) {
	if math.IsNaN(nH) || nH < 0 {
		return nil, fmt.Errorf("absorption: column density must be non-negative, got %g", nH)
	}
	if kind.NeedsTable() && xsec == nil {
		return nil, fmt.Errorf("absorption: model %s needs a cross-section table", kind)
	}
	switch kind {
	case KindTabulated:
		return &Tabulated{nH: nH, xsec: xsec}, nil
	case KindWabs:
		return &Wabs{nH: nH}, nil
	case KindTBabs:
		return &TBabs{nH: nH, xsec: xsec}, nil
	}
	return nil, fmt.Errorf("absorption: unknown model kind %d", int(kind))
}

// cullPhotons draws one uniform variate per photon, in order, and keeps a
// photon when the variate is below its survival probability. A nil rng
// uses a time-seeded source.
func cullPhotons(m Model, e []float64, rng *rand.Rand) []bool {
	if len(e) == 0 {
		return []bool{}
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	absorb := m.GetAbsorb(e)
	keep := make([]bool, len(e))
	for i, p := range absorb {
		keep[i] = rng.Float64() < p
	}
	return keep
}
