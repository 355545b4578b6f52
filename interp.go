// seehuhn.de/go/lut - sample and invert colour lookup tables
// Copyright (C) 2026  Jochen Voss <voss@seehuhn.de>
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package lut

import (
	"errors"
	"sort"
)

var (
	// ErrTooFewSamples is returned when an interpolator is given fewer than
	// two samples.
	ErrTooFewSamples = errors.New("lut: at least two samples are needed")

	// ErrLengthMismatch is returned when the domain and the table of an
	// interpolator have different lengths.
	ErrLengthMismatch = errors.New("lut: domain and table lengths differ")
)

// Interpolator is a piecewise linear function through the points
// (xs[i], ys[i]).  Outside the range of xs the first or last segment is
// continued with its slope.
//
// The xs must be strictly increasing or strictly decreasing.  If they are
// not, Eval still returns a value but the value has no particular meaning.
type Interpolator struct {
	xs, ys     []float64
	descending bool
}

// NewInterpolator returns a linear interpolator through the given points.
// The function takes over ownership of xs and ys; the slices must not be
// modified while the Interpolator is in use.
func NewInterpolator(xs, ys []float64) (*Interpolator, error) {
	if len(xs) != len(ys) {
		return nil, ErrLengthMismatch
	}
	if len(xs) < 2 {
		return nil, ErrTooFewSamples
	}
	return &Interpolator{
		xs:         xs,
		ys:         ys,
		descending: xs[len(xs)-1] < xs[0],
	}, nil
}

// segment returns the index i of the segment [xs[i], xs[i+1]] used for x.
func (ip *Interpolator) segment(x float64) int {
	n := len(ip.xs)
	var j int
	if ip.descending {
		j = sort.Search(n, func(k int) bool { return ip.xs[k] <= x })
	} else {
		j = sort.SearchFloat64s(ip.xs, x)
	}
	return min(max(j-1, 0), n-2)
}

// Eval returns the interpolated value at x.
func (ip *Interpolator) Eval(x float64) float64 {
	i := ip.segment(x)
	x0, x1 := ip.xs[i], ip.xs[i+1]
	y0, y1 := ip.ys[i], ip.ys[i+1]
	if x1 == x0 {
		return y0
	}
	t := (x - x0) / (x1 - x0)
	// This form is exact at both ends of the segment.
	return (1-t)*y0 + t*y1
}

// EvalAll evaluates the interpolator at all the given x values.  If an
// output slice is given, the result is written to it and returned;
// otherwise a new slice is allocated.
func (ip *Interpolator) EvalAll(xs []float64, out ...[]float64) []float64 {
	var res []float64
	if len(out) > 0 && len(out[0]) >= len(xs) {
		res = out[0][:len(xs)]
	} else {
		res = make([]float64, len(xs))
	}
	for i, x := range xs {
		res[i] = ip.Eval(x)
	}
	return res
}

// trilinear interpolates a flattened 3D grid with three values per node.
// The position is given in grid units along each axis, so that integer
// positions coincide with grid nodes.
//
// Positions outside [0, size-1] use the nearest boundary cell with an
// unclamped fractional part.  This continues the grid linearly, which agrees
// with odd reflection of the boundary layer.
func trilinear(table []float64, size int, pos [3]float64) [3]float64 {
	var idx [3]int
	var frac [3]float64
	for d, p := range pos {
		var i int
		switch {
		case !(p >= 0): // also catches NaN
			i = 0
		case p >= float64(size-2):
			i = size - 2
		default:
			i = int(p)
		}
		idx[d] = i
		frac[d] = p - float64(i)
	}

	const stride = 3
	gStride := size * stride
	rStride := size * gStride
	base := idx[0]*rStride + idx[1]*gStride + idx[2]*stride

	fr, fg, fb := frac[0], frac[1], frac[2]
	var out [3]float64
	for c := range 3 {
		c000 := table[base+c]
		c001 := table[base+stride+c]
		c010 := table[base+gStride+c]
		c011 := table[base+gStride+stride+c]
		c100 := table[base+rStride+c]
		c101 := table[base+rStride+stride+c]
		c110 := table[base+rStride+gStride+c]
		c111 := table[base+rStride+gStride+stride+c]

		c00 := (1-fb)*c000 + fb*c001
		c01 := (1-fb)*c010 + fb*c011
		c10 := (1-fb)*c100 + fb*c101
		c11 := (1-fb)*c110 + fb*c111

		c0 := (1-fg)*c00 + fg*c01
		c1 := (1-fg)*c10 + fg*c11

		out[c] = (1-fr)*c0 + fr*c1
	}
	return out
}
