package spectral

import (
	"fmt"
	"math"
	"sort"
)

// Axis is a strictly increasing set of tabulated values (temperature or
// density) with the deltas between neighbours.
type Axis struct {
	values []float64
	deltas []float64
}

// NewAxis copies values into a new Axis. At least two strictly increasing,
// finite values are required.
func NewAxis(values []float64) (*Axis, error) {
	if len(values) < 2 {
		return nil, fmt.Errorf("axis: need at least 2 values, got %d", len(values))
	}
	a := &Axis{
		values: append([]float64(nil), values...),
		deltas: make([]float64, len(values)-1),
	}
	for i, v := range a.values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("axis: value %d is not finite", i)
		}
		if i == 0 {
			continue
		}
		if !(v > a.values[i-1]) {
			return nil, fmt.Errorf("axis: values must be strictly increasing (value %d = %g, value %d = %g)",
				i-1, a.values[i-1], i, v)
		}
		a.deltas[i-1] = v - a.values[i-1]
	}
	return a, nil
}

// Len returns the number of tabulated values.
func (a *Axis) Len() int { return len(a.values) }

// At returns value i.
func (a *Axis) At(i int) float64 { return a.values[i] }

// Delta returns values[i+1] - values[i].
func (a *Axis) Delta(i int) float64 { return a.deltas[i] }

// Values returns the tabulated values. The slice is shared and must not be modified.
func (a *Axis) Values() []float64 { return a.values }

// First returns the smallest value.
func (a *Axis) First() float64 { return a.values[0] }

// Last returns the largest value.
func (a *Axis) Last() float64 { return a.values[len(a.values)-1] }

// Contains reports whether x lies inside [First, Last].
func (a *Axis) Contains(x float64) bool {
	return x >= a.First() && x <= a.Last()
}

// SearchLeft returns the first index i with values[i] >= x.
func (a *Axis) SearchLeft(x float64) int {
	return sort.SearchFloat64s(a.values, x)
}

// SearchRight returns the first index i with values[i] > x.
func (a *Axis) SearchRight(x float64) int {
	return searchRight(a.values, x)
}

// Bracket returns the cell index i (clamped to [0, Len-2]) whose interval
// [values[i], values[i+1]] holds x, and the fractional offset of x in it.
// A value on a node reports that node with offset 0; the last node reports
// the last cell with offset 1.
func (a *Axis) Bracket(x float64) (int, float64) {
	i := a.SearchRight(x) - 1
	if i < 0 {
		i = 0
	}
	if i > len(a.deltas)-1 {
		i = len(a.deltas) - 1
	}
	return i, (x - a.values[i]) / a.deltas[i]
}

// Slice returns a new Axis over values[lo:hi].
func (a *Axis) Slice(lo, hi int) (*Axis, error) {
	if lo < 0 || hi > len(a.values) || hi-lo < 2 {
		return nil, fmt.Errorf("axis: invalid slice [%d:%d] of %d values", lo, hi, len(a.values))
	}
	return NewAxis(a.values[lo:hi])
}

func searchRight(sorted []float64, x float64) int {
	return sort.Search(len(sorted), func(i int) bool { return sorted[i] > x })
}
