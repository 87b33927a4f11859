package spectral

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

const (
	// KPerKeV converts a temperature in keV to kelvin.
	KPerKeV = 1.160451812e7

	// atomic mass unit rest energy, keV
	amuKeV = 931494.10242

	// speed of light, km/s
	clightKms = 299792.458

	// lines are spread over +/- this many sigma
	broadenSigmas = 6.0
)

// cumulative returns the running sum of content at each native edge.
func cumulative(content []float64) []float64 {
	cum := make([]float64, len(content)+1)
	for j, c := range content {
		cum[j+1] = cum[j] + c
	}
	return cum
}

// cumulativeAt evaluates the piecewise-linear cumulative content at energy e,
// treating each native bin's content as spread uniformly over the bin.
func cumulativeAt(native, cum []float64, e float64) float64 {
	n := len(native) - 1
	if e <= native[0] {
		return 0
	}
	if e >= native[n] {
		return cum[n]
	}
	j := searchRight(native, e) - 1
	frac := (e - native[j]) / (native[j+1] - native[j])
	return cum[j] + frac*(cum[j+1]-cum[j])
}

// rebinInto adds scale times the native per-bin content into the target
// bins, conserving the total over the overlapping range.
func rebinInto(dst, target, native, content []float64, scale float64) {
	cum := cumulative(content)
	lo := cumulativeAt(native, cum, target[0])
	for i := range dst {
		hi := cumulativeAt(native, cum, target[i+1])
		dst[i] += scale * (hi - lo)
		lo = hi
	}
}

// broadenInto adds scale times each native line bin into the target bins as a
// Gaussian centred on the native bin midpoint with sigma = centre*sigmaFactor.
func broadenInto(dst, target, centres, content []float64, sigmaFactor, scale float64) {
	n := len(dst)
	for j, c := range content {
		if c == 0 {
			continue
		}
		e0 := centres[j]
		sigma := e0 * sigmaFactor
		lo := searchRight(target, e0-broadenSigmas*sigma) - 1
		if lo < 0 {
			lo = 0
		}
		hi := searchRight(target, e0+broadenSigmas*sigma)
		if hi > n {
			hi = n
		}
		if lo >= hi {
			continue
		}
		g := distuv.Normal{Mu: e0, Sigma: sigma}
		prev := g.CDF(target[lo])
		for i := lo; i < hi; i++ {
			next := g.CDF(target[i+1])
			dst[i] += scale * c * (next - prev)
			prev = next
		}
	}
}

// lineSigmaFactor returns sigma/E for a line of element z at temperature kT
// (keV) with an extra velocity dispersion in km/s.
func lineSigmaFactor(z int, kT, velocity float64, thermal bool) float64 {
	var v2 float64
	if thermal {
		v2 = kT / (atomicMasses[z-1] * amuKeV)
	}
	if velocity != 0 {
		b := velocity / clightKms
		v2 += b * b
	}
	return math.Sqrt(v2)
}
