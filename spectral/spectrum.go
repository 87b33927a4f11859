package spectral

import (
	"github.com/cwbudde/algo-vecmath"
)

// Spectrum is a binned flux density in photons/s/cm^2/keV.
type Spectrum struct {
	Grid *EnergyGrid
	Flux []float64
}

// Counts returns the per-bin photon flux in photons/s/cm^2, flux density
// times bin width.
func (s *Spectrum) Counts() []float64 {
	out := make([]float64, len(s.Flux))
	vecmath.MulBlock(out, s.Flux, s.Grid.Width())
	return out
}

// Absorb multiplies the flux density by a per-bin transmission in place.
func (s *Spectrum) Absorb(transmission []float64) {
	vecmath.MulBlockInPlace(s.Flux, transmission)
}
