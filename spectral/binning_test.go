package spectral

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/floats"

	"github.com/xsim-dev/xsim/spectral/internal/testutil"
)

func TestRebinInto_ConservesTotalOverCoveredRange(t *testing.T) {
	native := []float64{0, 1, 2, 3, 4}
	content := []float64{1, 2, 3, 4}

	tests := []struct {
		name   string
		target []float64
		want   float64
	}{
		{"identical edges", []float64{0, 1, 2, 3, 4}, 10},
		{"coarser", []float64{0, 2, 4}, 10},
		{"finer", []float64{0, 0.5, 1, 1.5, 2, 2.5, 3, 3.5, 4}, 10},
		{"wider than native", []float64{-1, 2, 5}, 10},
		{"partial overlap", []float64{0.5, 1.5}, 0.5*1 + 0.5*2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dst := make([]float64, len(tt.target)-1)
			rebinInto(dst, tt.target, native, content, 1)
			assert.InDelta(t, tt.want, floats.Sum(dst), 1e-12)
			testutil.RequireNonNegative(t, dst)
		})
	}
}

func TestRebinInto_AddsScaled(t *testing.T) {
	native := []float64{0, 1, 2}
	dst := []float64{1, 1}
	rebinInto(dst, native, native, []float64{2, 4}, 0.5)
	testutil.RequireSliceNearlyEqual(t, dst, []float64{2, 3}, 1e-12)
}

func TestBroadenInto_NormalizedGaussian(t *testing.T) {
	target := make([]float64, 201)
	floats.Span(target, 5, 7)
	dst := make([]float64, 200)

	// one line of strength 3 at 6 keV with sigma = 0.01*6
	broadenInto(dst, target, []float64{6}, []float64{3}, 0.01, 2)

	assert.InDelta(t, 6.0, floats.Sum(dst), 1e-6)
	peak := floats.MaxIdx(dst)
	assert.InDelta(t, 6.0, 0.5*(target[peak]+target[peak+1]), 0.011)
	// 6 keV is edge 100, so bins 99-k and 100+k mirror each other
	for k := 0; k < 30; k++ {
		assert.InDelta(t, dst[99-k], dst[100+k], 1e-9, "k=%d", k)
	}
}

func TestBroadenInto_LineOutsideTargetIsDropped(t *testing.T) {
	target := []float64{1, 2, 3}
	dst := make([]float64, 2)
	broadenInto(dst, target, []float64{10}, []float64{5}, 1e-3, 1)
	assert.Equal(t, []float64{0, 0}, dst)
}

func TestLineSigmaFactor(t *testing.T) {
	// no broadening sources
	assert.Equal(t, 0.0, lineSigmaFactor(26, 5, 0, false))

	thermal := lineSigmaFactor(26, 5, 0, true)
	assert.InDelta(t, math.Sqrt(5/(atomicMasses[25]*amuKeV)), thermal, 1e-15)

	velocity := lineSigmaFactor(26, 5, 300, false)
	assert.InDelta(t, 300/clightKms, velocity, 1e-15)

	both := lineSigmaFactor(26, 5, 300, true)
	assert.InDelta(t, math.Hypot(thermal, velocity), both, 1e-15)

	// lighter ions are broader at the same temperature
	assert.Greater(t, lineSigmaFactor(8, 5, 0, true), thermal)
}
