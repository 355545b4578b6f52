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
	"runtime"
	"slices"
	"sync"

	"gonum.org/v1/gonum/stat"
)

// LUT3D is an RGB to RGB transform, sampled on a regular grid with Size
// nodes along each axis.  The grid spans the box from Min to Max.
//
// Table holds three values per node.  The values of node (i, j, k) start at
// index ((i*Size+j)*Size+k)*3, where i indexes the first (red) axis and k
// the last (blue) axis.
//
// Between the nodes the table is interpolated trilinearly.  Outside the box
// the boundary cells are continued linearly.
type LUT3D struct {
	Size     int
	Min, Max [3]float64
	Table    []float64

	Name     string
	Comments []string
}

// NewLUT3D returns an identity LUT of the given size over the box from lo
// to hi.
func NewLUT3D(size int, lo, hi [3]float64) *LUT3D {
	return &LUT3D{
		Size:  size,
		Min:   lo,
		Max:   hi,
		Table: LinearTable(size, lo, hi),
	}
}

// LinearTable returns the table of the identity LUT, i.e. the coordinates
// of all grid nodes in canonical order.
func LinearTable(size int, lo, hi [3]float64) []float64 {
	if size < 1 {
		return nil
	}
	var axes [3][]float64
	for d := range axes {
		axes[d] = LinearSamples(size, lo[d], hi[d])
	}
	table := make([]float64, 0, size*size*size*3)
	for _, r := range axes[0] {
		for _, g := range axes[1] {
			for _, b := range axes[2] {
				table = append(table, r, g, b)
			}
		}
	}
	return table
}

// Nodes returns the number of grid nodes.
func (l *LUT3D) Nodes() int {
	return l.Size * l.Size * l.Size
}

// Coordinate returns the input coordinate of grid node (i, j, k).
func (l *LUT3D) Coordinate(i, j, k int) [3]float64 {
	idx := [3]int{i, j, k}
	var res [3]float64
	for d := range res {
		step := (l.Max[d] - l.Min[d]) / float64(l.Size-1)
		res[d] = l.Min[d] + step*float64(idx[d])
	}
	return res
}

// At returns the table value stored at grid node (i, j, k).
func (l *LUT3D) At(i, j, k int) [3]float64 {
	base := ((i*l.Size+j)*l.Size + k) * 3
	return [3]float64{l.Table[base], l.Table[base+1], l.Table[base+2]}
}

// CellWidth returns the distance between neighbouring grid nodes along each
// axis.
func (l *LUT3D) CellWidth() [3]float64 {
	var w [3]float64
	for d := range w {
		w[d] = (l.Max[d] - l.Min[d]) / float64(l.Size-1)
	}
	return w
}

func (l *LUT3D) check() error {
	if l.Size < 2 {
		return ErrGridSize
	}
	if len(l.Table) != l.Nodes()*3 {
		return ErrShape
	}
	for d := range 3 {
		if !(l.Max[d] > l.Min[d]) {
			return ErrDomain
		}
	}
	return nil
}

// Lookup applies the LUT to a single point, using trilinear interpolation.
// The receiver must be well formed; use [LUT3D.Apply] to have this checked.
func (l *LUT3D) Lookup(p [3]float64) [3]float64 {
	var pos [3]float64
	scale := float64(l.Size - 1)
	for d := range pos {
		pos[d] = (p[d] - l.Min[d]) / (l.Max[d] - l.Min[d]) * scale
	}
	return trilinear(l.Table, l.Size, pos)
}

// Apply maps a list of RGB triples through the LUT.  The values are stored
// consecutively, so len(values) must be a multiple of three.
//
// In the Inverse direction the points are mapped through the result of
// [LUT3D.Invert] with default options.  Callers who apply the inverse
// repeatedly should call Invert once and keep the result.
func (l *LUT3D) Apply(values []float64, dir Direction) ([]float64, error) {
	if err := l.check(); err != nil {
		return nil, err
	}
	if len(values)%3 != 0 {
		return nil, ErrShape
	}

	src := l
	switch dir {
	case Forward:
		// pass
	case Inverse:
		inv, err := l.Invert()
		if err != nil {
			return nil, err
		}
		src = inv
	default:
		return nil, errDirection
	}

	out := make([]float64, len(values))
	parallelFor(len(values)/3, 0, func(start, end int) {
		for n := start; n < end; n++ {
			v := src.Lookup([3]float64{values[3*n], values[3*n+1], values[3*n+2]})
			copy(out[3*n:3*n+3], v[:])
		}
	})
	return out, nil
}

// Map returns a copy of l with f applied to the value stored at every grid
// node.
func (l *LUT3D) Map(f func([3]float64) [3]float64) *LUT3D {
	res := l.clone()
	for n := 0; n+3 <= len(res.Table); n += 3 {
		v := f([3]float64{res.Table[n], res.Table[n+1], res.Table[n+2]})
		copy(res.Table[n:n+3], v[:])
	}
	return res
}

func (l *LUT3D) clone() *LUT3D {
	return &LUT3D{
		Size:     l.Size,
		Min:      l.Min,
		Max:      l.Max,
		Table:    slices.Clone(l.Table),
		Name:     l.Name,
		Comments: slices.Clone(l.Comments),
	}
}

// Extrapolate returns a copy of l which is enlarged by pad grid cells on
// every side.  The new outer layers are odd reflections of the boundary
// layers, v[-m] = 2*v[0] - v[m] along each axis, and the box grows by pad
// cell widths.  Inside the original box the result agrees with l.
func (l *LUT3D) Extrapolate(pad int) (*LUT3D, error) {
	if err := l.check(); err != nil {
		return nil, err
	}
	if pad < 0 || pad >= l.Size {
		return nil, ErrPadding
	}
	if pad == 0 {
		return l.clone(), nil
	}

	table := l.Table
	shape := [3]int{l.Size, l.Size, l.Size}
	for axis := range 3 {
		table, shape = padAxis(table, shape, axis, pad)
	}

	res := l.clone()
	res.Size = l.Size + 2*pad
	res.Table = table
	w := l.CellWidth()
	for d := range 3 {
		res.Min[d] -= float64(pad) * w[d]
		res.Max[d] += float64(pad) * w[d]
	}
	return res, nil
}

// padAxis pads one axis of a grid with three values per node by odd
// reflection.
func padAxis(src []float64, shape [3]int, axis, pad int) ([]float64, [3]int) {
	n := shape[axis]
	newShape := shape
	newShape[axis] = n + 2*pad

	strides := func(s [3]int) [3]int {
		return [3]int{s[1] * s[2] * 3, s[2] * 3, 3}
	}
	srcStride := strides(shape)
	dstStride := strides(newShape)

	dst := make([]float64, newShape[0]*newShape[1]*newShape[2]*3)
	var idx [3]int
	for idx[0] = 0; idx[0] < newShape[0]; idx[0]++ {
		for idx[1] = 0; idx[1] < newShape[1]; idx[1]++ {
			for idx[2] = 0; idx[2] < newShape[2]; idx[2]++ {
				srcIdx := idx
				u := idx[axis] - pad

				dstBase := idx[0]*dstStride[0] + idx[1]*dstStride[1] + idx[2]*dstStride[2]
				at := func(pos int) int {
					srcIdx[axis] = pos
					return srcIdx[0]*srcStride[0] + srcIdx[1]*srcStride[1] + srcIdx[2]*srcStride[2]
				}

				switch {
				case u < 0:
					edge, mirror := at(0), at(-u)
					for c := range 3 {
						dst[dstBase+c] = 2*src[edge+c] - src[mirror+c]
					}
				case u >= n:
					edge, mirror := at(n-1), at(2*(n-1)-u)
					for c := range 3 {
						dst[dstBase+c] = 2*src[edge+c] - src[mirror+c]
					}
				default:
					base := at(u)
					copy(dst[dstBase:dstBase+3], src[base:base+3])
				}
			}
		}
	}
	return dst, newShape
}

// Roughness measures how smooth the table is.  It returns the sample
// variance of the second differences of the table values along all three
// axes, pooled over all channels.  Smaller values mean a smoother table.
func (l *LUT3D) Roughness() float64 {
	s := l.Size
	if s < 3 || len(l.Table) != l.Nodes()*3 {
		return 0
	}
	stride := [3]int{s * s * 3, s * 3, 3}

	diffs := make([]float64, 0, 3*3*(s-2)*s*s)
	for axis := range 3 {
		st := stride[axis]
		for i := range s {
			for j := range s {
				for k := range s {
					idx := [3]int{i, j, k}
					if idx[axis] < 1 || idx[axis] > s-2 {
						continue
					}
					base := i*stride[0] + j*stride[1] + k*stride[2]
					for c := range 3 {
						d2 := l.Table[base-st+c] - 2*l.Table[base+c] + l.Table[base+st+c]
						diffs = append(diffs, d2)
					}
				}
			}
		}
	}
	return stat.Variance(diffs, nil)
}

// parallelFor splits [0, n) into contiguous chunks and calls fn for each
// chunk from its own goroutine.  If workers is not positive,
// runtime.GOMAXPROCS(0) workers are used.
func parallelFor(n, workers int, fn func(start, end int)) {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	workers = min(workers, n)
	if workers <= 1 {
		fn(0, n)
		return
	}

	chunk := (n + workers - 1) / workers
	var wg sync.WaitGroup
	for start := 0; start < n; start += chunk {
		end := min(start+chunk, n)
		wg.Add(1)
		go func() {
			defer wg.Done()
			fn(start, end)
		}()
	}
	wg.Wait()
}
