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
	"slices"
	"strings"

	"gonum.org/v1/gonum/floats"
)

// ErrDomain is returned when the domain of a LUT does not fit its table:
// a [LUT1D] domain needs two entries or one entry per sample, a [LUT3D] box
// must have Max > Min on every axis.
var ErrDomain = errors.New("lut: domain does not match table")

// LUT1D is a sampled one-dimensional transform, possibly with several
// channels.
//
// The domain is either given implicitly as [min, max], in which case the
// samples are evenly spaced, or explicitly as one input value per table
// entry.  For two samples both readings agree.
//
// The table of each channel should be strictly monotonic.  This is not
// checked; inverting a non-monotonic table gives a result without meaning.
type LUT1D struct {
	// Table holds one column of samples per channel.  All columns have the
	// same length.
	Table [][]float64

	// Domain is either [min, max] or the list of sample positions.
	Domain []float64

	Name string
}

// NewLUT1D returns a single channel identity curve with size samples,
// evenly spaced over [lo, hi].
func NewLUT1D(size int, lo, hi float64) *LUT1D {
	return &LUT1D{
		Table:  [][]float64{LinearSamples(size, lo, hi)},
		Domain: []float64{lo, hi},
	}
}

// LinearSamples returns n evenly spaced values from lo to hi, inclusive.
func LinearSamples(n int, lo, hi float64) []float64 {
	switch {
	case n <= 0:
		return nil
	case n == 1:
		return []float64{lo}
	}
	return floats.Span(make([]float64, n), lo, hi)
}

// Size returns the number of samples per channel.
func (l *LUT1D) Size() int {
	if len(l.Table) == 0 {
		return 0
	}
	return len(l.Table[0])
}

// Channels returns the number of channels.
func (l *LUT1D) Channels() int {
	return len(l.Table)
}

// IsDomainExplicit reports whether the domain lists every sample position.
func (l *LUT1D) IsDomainExplicit() bool {
	return len(l.Domain) > 2
}

// Samples returns the input value of every table entry.
func (l *LUT1D) Samples() []float64 {
	if l.IsDomainExplicit() {
		return slices.Clone(l.Domain)
	}
	return LinearSamples(l.Size(), l.Domain[0], l.Domain[1])
}

func (l *LUT1D) check() error {
	n := l.Size()
	if len(l.Table) == 0 || n < 2 {
		return ErrGridSize
	}
	for _, col := range l.Table[1:] {
		if len(col) != n {
			return ErrShape
		}
	}
	if len(l.Domain) != 2 && len(l.Domain) != n {
		return ErrDomain
	}
	return nil
}

// Apply maps values through the curve.  The values are interleaved tuples
// with one entry per channel; a single channel curve is applied to every
// value.  The result has the same length as values.
//
// In the Inverse direction the roles of the samples and the table are
// swapped.  This avoids the second resampling done by [LUT1D.Invert].
func (l *LUT1D) Apply(values []float64, dir Direction) ([]float64, error) {
	if err := l.check(); err != nil {
		return nil, err
	}
	nc := l.Channels()
	if len(values)%nc != 0 {
		return nil, ErrShape
	}

	samples := l.Samples()
	out := make([]float64, len(values))
	for c, col := range l.Table {
		var ip *Interpolator
		var err error
		switch dir {
		case Forward:
			ip, err = NewInterpolator(samples, col)
		case Inverse:
			ip, err = NewInterpolator(col, samples)
		default:
			return nil, errDirection
		}
		if err != nil {
			return nil, err
		}
		for i := c; i < len(values); i += nc {
			out[i] = ip.Eval(values[i])
		}
	}
	return out, nil
}

// Invert returns a new curve which approximately undoes l.  The inverse
// uses the same domain as l: each channel of the inverse table holds the
// swapped interpolation of the original table, evaluated at the domain
// samples.  Values beyond the range of the original table are found by
// linear extrapolation.
func (l *LUT1D) Invert() (*LUT1D, error) {
	if err := l.check(); err != nil {
		return nil, err
	}

	samples := l.Samples()
	inv := &LUT1D{
		Table:  make([][]float64, len(l.Table)),
		Domain: slices.Clone(l.Domain),
		Name:   strings.TrimSpace(l.Name + " Inverse"),
	}
	for c, col := range l.Table {
		ip, err := NewInterpolator(col, samples)
		if err != nil {
			return nil, err
		}
		inv.Table[c] = ip.EvalAll(samples)
	}
	return inv, nil
}

// Map returns a copy of l with f applied to every table entry.
func (l *LUT1D) Map(f func(float64) float64) *LUT1D {
	res := &LUT1D{
		Table:  make([][]float64, len(l.Table)),
		Domain: slices.Clone(l.Domain),
		Name:   l.Name,
	}
	for c, col := range l.Table {
		out := make([]float64, len(col))
		for i, v := range col {
			out[i] = f(v)
		}
		res.Table[c] = out
	}
	return res
}
