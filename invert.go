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
	"log/slog"
	"math"
	"slices"
	"strings"

	"gonum.org/v1/gonum/floats"
)

// InvertOptions controls the inversion of a [LUT3D].
type InvertOptions struct {
	// Size is the grid size of the inverse.  If zero, [DefaultInverseSize]
	// of the source size is used.  Ignored by [LUT3D.InvertNearest].
	Size int

	// Extrapolate enables padding of the forward grid before it is
	// resampled, so that forward outputs just outside the image of the box
	// still find nearby samples.  Padding gives the number of grid cells
	// added on every side.
	Extrapolate bool
	Padding     int

	// QuerySize is the number of nearest samples which are averaged to
	// obtain each node of the inverse.
	QuerySize int

	// WarnSize is the largest target size which is computed without a
	// warning.  Zero disables the warning.
	WarnSize int

	// Workers is the number of goroutines used for resampling and for the
	// neighbour queries.  If zero, runtime.GOMAXPROCS(0) is used.
	Workers int

	// If Probes is non-empty, every probe is mapped through the forward LUT
	// and the inverse after the inversion.  A warning is issued if any
	// coordinate is off by more than Tolerance.
	Probes    [][3]float64
	Tolerance float64

	// NewSearcher builds the spatial index for the neighbour queries.
	// If nil, [NewIndex] is used.
	NewSearcher func(keys [][3]float64) Searcher

	// Warnings are logged to Logger, or to slog.Default() if Logger is nil.
	// If OnWarning is set, it is called for every warning as well.
	Logger    *slog.Logger
	OnWarning func(*AccuracyWarning)
}

func defaultInvertOptions() InvertOptions {
	return InvertOptions{
		Extrapolate: true,
		Padding:     1,
		QuerySize:   4,
		WarnSize:    129,
		Tolerance:   1e-3,
	}
}

func (o *InvertOptions) warn(w *AccuracyWarning) {
	if o.OnWarning != nil {
		o.OnWarning(w)
	}
	logger := o.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if w.Threshold > 0 {
		logger.Warn(w.Reason, "size", w.Size, "threshold", w.Threshold)
	} else {
		logger.Warn(w.Reason, "size", w.Size, "error", w.Err, "tolerance", w.Tolerance)
	}
}

func (o *InvertOptions) searcher(keys [][3]float64) Searcher {
	if o.NewSearcher != nil {
		return o.NewSearcher(keys)
	}
	return NewIndex(keys)
}

// DefaultInverseSize returns the default grid size used by [LUT3D.Invert]
// for a source grid of size s.  The result is round(2^(sqrt(s)+1)) + 1,
// which grows faster than s for small grids and is 108 for s = 33.
func DefaultInverseSize(s int) int {
	return int(math.Round(math.Pow(2, math.Sqrt(float64(s))+1))) + 1
}

// InvertNearest returns an inverse of l with the same grid size and box.
// The value at each node of the inverse is the input coordinate of the
// forward node whose output lies closest to the node's own coordinate.
// When several forward outputs are equally close, the node which comes
// first in table order wins.
//
// Only the Workers and NewSearcher options are used.  The accuracy is
// limited by the grid spacing of l.
func (l *LUT3D) InvertNearest(opts ...func(*InvertOptions)) (*LUT3D, error) {
	if err := l.check(); err != nil {
		return nil, err
	}
	opt := defaultInvertOptions()
	for _, setOpt := range opts {
		setOpt(&opt)
	}

	coords := points(LinearTable(l.Size, l.Min, l.Max))
	s := opt.searcher(points(l.Table))

	inv := l.inverseShell(l.Size, l.Min, l.Max)
	queryAll(s, coords, 1, opt.Workers, func(i int, nb []Neighbor) {
		copy(inv.Table[3*i:3*i+3], coords[nb[0].Index][:])
	})
	return inv, nil
}

// Invert returns an approximate inverse of l.
//
// The forward grid is first padded by odd reflection (if Extrapolate is
// set) and then resampled on a finer grid of the target size.  The resampled
// outputs are put into a spatial index.  Each node of the inverse is then
// set to the mean input coordinate of the QuerySize samples whose outputs
// are nearest to the node.  The inverse covers the padded box.
//
// The default options are Extrapolate with one cell of padding, QuerySize 4,
// the target size from [DefaultInverseSize], and a warning for target sizes
// above 129.  The options are changed by passing functions which modify
// the InvertOptions.
func (l *LUT3D) Invert(opts ...func(*InvertOptions)) (*LUT3D, error) {
	if err := l.check(); err != nil {
		return nil, err
	}
	opt := defaultInvertOptions()
	for _, setOpt := range opts {
		setOpt(&opt)
	}
	if opt.QuerySize < 1 {
		return nil, ErrQuerySize
	}
	target := opt.Size
	if target == 0 {
		target = DefaultInverseSize(l.Size)
	}
	if target < 2 {
		return nil, ErrGridSize
	}

	src := l
	if opt.Extrapolate {
		var err error
		src, err = l.Extrapolate(opt.Padding)
		if err != nil {
			return nil, err
		}
	}

	if opt.WarnSize > 0 && target > opt.WarnSize {
		opt.warn(&AccuracyWarning{
			Size:      target,
			Threshold: opt.WarnSize,
			Reason:    "inverse computation time could be excessive",
		})
	}

	// The nodes of the dense grid serve twice: as the inputs of the
	// resampled forward transform, and as the query points for the inverse.
	nodes := points(LinearTable(target, src.Min, src.Max))
	samples := make([][3]float64, len(nodes))
	parallelFor(len(nodes), opt.Workers, func(start, end int) {
		for i := start; i < end; i++ {
			samples[i] = src.Lookup(nodes[i])
		}
	})
	s := opt.searcher(samples)

	inv := l.inverseShell(target, src.Min, src.Max)
	queryAll(s, nodes, opt.QuerySize, opt.Workers, func(i int, nb []Neighbor) {
		acc := inv.Table[3*i : 3*i+3]
		for _, m := range nb {
			floats.Add(acc, nodes[m.Index][:])
		}
		floats.Scale(1/float64(len(nb)), acc)
	})

	if len(opt.Probes) > 0 {
		e := RoundTripError(l, inv, opt.Probes)
		if e > opt.Tolerance {
			opt.warn(&AccuracyWarning{
				Size:      target,
				Err:       e,
				Tolerance: opt.Tolerance,
				Reason:    "inverse does not reproduce the probe values",
			})
		}
	}

	return inv, nil
}

// inverseShell allocates the LUT which receives an inverse of l.
func (l *LUT3D) inverseShell(size int, lo, hi [3]float64) *LUT3D {
	return &LUT3D{
		Size:     size,
		Min:      lo,
		Max:      hi,
		Table:    make([]float64, size*size*size*3),
		Name:     strings.TrimSpace(l.Name + " Inverse"),
		Comments: slices.Clone(l.Comments),
	}
}

// RoundTripError maps every probe through fwd and then through inv, and
// returns the largest deviation of any coordinate from the probe.
func RoundTripError(fwd, inv *LUT3D, probes [][3]float64) float64 {
	var worst float64
	for _, p := range probes {
		q := inv.Lookup(fwd.Lookup(p))
		for c := range 3 {
			worst = max(worst, math.Abs(q[c]-p[c]))
		}
	}
	return worst
}

// queryAll runs a k nearest neighbour query for every point, in parallel.
func queryAll(s Searcher, queries [][3]float64, k, workers int, fn func(i int, nb []Neighbor)) {
	if ix, ok := s.(*Index); ok {
		ix.QueryAll(queries, k, workers, fn)
		return
	}
	parallelFor(len(queries), workers, func(start, end int) {
		var buf []Neighbor
		for i := start; i < end; i++ {
			buf = s.NearestK(buf[:0], queries[i], k)
			if len(buf) > 0 {
				fn(i, buf)
			}
		}
	})
}

// points converts consecutive triples into points.
func points(values []float64) [][3]float64 {
	res := make([][3]float64, len(values)/3)
	for i := range res {
		res[i] = [3]float64{values[3*i], values[3*i+1], values[3*i+2]}
	}
	return res
}
