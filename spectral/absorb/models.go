package absorb

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
)

// nHUnit converts column densities to cm^-2.
const nHUnit = 1.0e22

// CrossSection is an absorption cross section tabulated in energy.
type CrossSection struct {
	Energy []float64 // keV, strictly increasing
	Sigma  []float64 // cm^2
}

// NewCrossSection validates and copies a cross-section table.
func NewCrossSection(energy, sigma []float64) (*CrossSection, error) {
	if len(energy) < 2 {
		return nil, fmt.Errorf("cross section: need at least 2 points, got %d", len(energy))
	}
	if len(energy) != len(sigma) {
		return nil, fmt.Errorf("cross section: %d energies but %d values", len(energy), len(sigma))
	}
	for i := range energy {
		if i > 0 && !(energy[i] > energy[i-1]) {
			return nil, fmt.Errorf("cross section: energies must be strictly increasing at point %d", i)
		}
		if math.IsNaN(sigma[i]) || sigma[i] < 0 {
			return nil, fmt.Errorf("cross section: value %d must be non-negative, got %g", i, sigma[i])
		}
	}
	return &CrossSection{
		Energy: append([]float64(nil), energy...),
		Sigma:  append([]float64(nil), sigma...),
	}, nil
}

// At interpolates the cross section linearly in energy; it is zero outside
// the table, so those photons are treated as unabsorbed.
func (x *CrossSection) At(e float64) float64 {
	n := len(x.Energy)
	if !(e >= x.Energy[0] && e <= x.Energy[n-1]) {
		return 0
	}
	j := sort.SearchFloat64s(x.Energy, e)
	if x.Energy[j] == e {
		return x.Sigma[j]
	}
	f := (e - x.Energy[j-1]) / (x.Energy[j] - x.Energy[j-1])
	return x.Sigma[j-1] + f*(x.Sigma[j]-x.Sigma[j-1])
}

func tabulatedAbsorb(x *CrossSection, nH float64, e []float64) []float64 {
	out := make([]float64, len(e))
	for i, v := range e {
		out[i] = math.Exp(-x.At(v) * nH * nHUnit)
	}
	return out
}

// Tabulated evaluates a caller-supplied cross-section table.
type Tabulated struct {
	nH   float64
	xsec *CrossSection
}

func (m *Tabulated) Name() string { return KindTabulated.String() }

func (m *Tabulated) NH() float64 { return m.nH }

func (m *Tabulated) GetAbsorb(e []float64) []float64 { return tabulatedAbsorb(m.xsec, m.nH, e) }

func (m *Tabulated) AbsorbPhotons(e []float64, rng *rand.Rand) []bool { return cullPhotons(m, e, rng) }

// TBabs evaluates the Tuebingen-Boulder ISM cross section.
type TBabs struct {
	nH   float64
	xsec *CrossSection
}

func (m *TBabs) Name() string { return KindTBabs.String() }

func (m *TBabs) NH() float64 { return m.nH }

func (m *TBabs) GetAbsorb(e []float64) []float64 { return tabulatedAbsorb(m.xsec, m.nH, e) }

func (m *TBabs) AbsorbPhotons(e []float64, rng *rand.Rand) []bool { return cullPhotons(m, e, rng) }

// Morrison & McCammon (1983) fit: sigma = (c0 + c1*E + c2*E^2) * E^-3 * 1e-24 cm^2
// on the energy ranges bounded by wabsEdges.
var (
	wabsEdges = [...]float64{0.0, 0.1, 0.284, 0.4, 0.532, 0.707, 0.867, 1.303, 1.840, 2.471, 3.210, 4.038, 7.111, 8.331, 10.0}
	wabsC0    = [...]float64{17.3, 34.6, 78.1, 71.4, 95.5, 308.9, 120.6, 141.3, 202.7, 342.7, 352.2, 433.9, 629.0, 701.2}
	wabsC1    = [...]float64{608.1, 267.9, 18.8, 66.8, 145.8, -380.6, 169.3, 146.8, 104.7, 18.7, 18.7, -2.4, 30.9, 25.2}
	wabsC2    = [...]float64{-2150.0, -476.1, 4.3, -51.4, -61.1, 294.0, -47.7, -31.5, -17.0, 0.0, 0.0, 0.75, 0.0, 0.0}
)

// WabsCrossSection returns the Morrison & McCammon cross section in cm^2.
// Energies above 10 keV use the last segment.
func WabsCrossSection(e float64) float64 {
	i := sort.SearchFloat64s(wabsEdges[:], e) - 1
	if i < 0 {
		i = 0
	}
	if i > len(wabsC0)-1 {
		i = len(wabsC0) - 1
	}
	return (wabsC0[i] + wabsC1[i]*e + wabsC2[i]*e*e) * 1.0e-24 / (e * e * e)
}

// Wabs is the Wisconsin absorption model.
type Wabs struct {
	nH float64
}

func (m *Wabs) Name() string { return KindWabs.String() }

func (m *Wabs) NH() float64 { return m.nH }

// GetAbsorb returns exp(-sigma(E)*N_H). Non-positive energies never survive.
func (m *Wabs) GetAbsorb(e []float64) []float64 {
	out := make([]float64, len(e))
	for i, v := range e {
		if v > 0 {
			out[i] = math.Exp(-WabsCrossSection(v) * m.nH * nHUnit)
		}
	}
	return out
}

func (m *Wabs) AbsorbPhotons(e []float64, rng *rand.Rand) []bool { return cullPhotons(m, e, rng) }
