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
	"container/heap"
	"math"

	"gonum.org/v1/gonum/spatial/kdtree"
)

// Neighbor is one result of a nearest neighbour query.
type Neighbor struct {
	Index int     // position of the key in the slice the index was built from
	Dist  float64 // Euclidean distance from the query point
}

// Searcher finds the nearest keys to a query point.
//
// NearestK appends the k nearest keys to dst, closest first, and returns
// the extended slice.  Keys at equal distance are ordered by increasing
// index.  If the index holds fewer than k keys, all keys are returned.
// Implementations must allow concurrent calls.
type Searcher interface {
	NearestK(dst []Neighbor, q [3]float64, k int) []Neighbor
}

// Index is a k-d tree over a fixed set of points in three dimensions.
// It is read-only after construction and safe for concurrent queries.
type Index struct {
	tree *kdtree.Tree
	n    int
}

// NewIndex builds an index over the given keys.  The keys are copied.
func NewIndex(keys [][3]float64) *Index {
	pts := make(keyPoints, len(keys))
	for i, v := range keys {
		pts[i] = keyPoint{v: v, idx: i}
	}
	return &Index{
		tree: kdtree.New(pts, false),
		n:    len(keys),
	}
}

// Len returns the number of keys in the index.
func (ix *Index) Len() int {
	return ix.n
}

// NearestK implements the [Searcher] interface.
func (ix *Index) NearestK(dst []Neighbor, q [3]float64, k int) []Neighbor {
	if k <= 0 || ix.n == 0 {
		return dst
	}
	keep := newRankedKeeper(min(k, ix.n))
	return ix.nearestK(dst, keep, q)
}

func (ix *Index) nearestK(dst []Neighbor, keep *rankedKeeper, q [3]float64) []Neighbor {
	keep.reset()
	ix.tree.NearestSet(keep, keyPoint{v: q, idx: -1})
	for _, cd := range keep.Heap {
		dst = append(dst, Neighbor{
			Index: cd.Comparable.(keyPoint).idx,
			Dist:  math.Sqrt(cd.Dist),
		})
	}
	return dst
}

// QueryAll runs a k nearest neighbour query for every point and calls fn
// with the results.  The queries are spread over the given number of
// goroutines (runtime.GOMAXPROCS(0) if workers is not positive), so fn is
// called concurrently for different values of i.  The slice passed to fn is
// reused after fn returns.
func (ix *Index) QueryAll(queries [][3]float64, k, workers int, fn func(i int, nb []Neighbor)) {
	if k <= 0 || ix.n == 0 {
		return
	}
	k = min(k, ix.n)
	parallelFor(len(queries), workers, func(start, end int) {
		keep := newRankedKeeper(k)
		buf := make([]Neighbor, 0, k)
		for i := start; i < end; i++ {
			buf = ix.nearestK(buf[:0], keep, queries[i])
			fn(i, buf)
		}
	})
}

// keyPoint is a key together with its position in the original key list.
// kdtree.New reorders the points, so the position must travel with them.
type keyPoint struct {
	v   [3]float64
	idx int
}

func (p keyPoint) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	q := c.(keyPoint)
	return p.v[d] - q.v[d]
}

func (p keyPoint) Dims() int { return 3 }

// Distance returns the squared Euclidean distance.
func (p keyPoint) Distance(c kdtree.Comparable) float64 {
	q := c.(keyPoint)
	dr := p.v[0] - q.v[0]
	dg := p.v[1] - q.v[1]
	db := p.v[2] - q.v[2]
	return dr*dr + dg*dg + db*db
}

type keyPoints []keyPoint

func (p keyPoints) Index(i int) kdtree.Comparable         { return p[i] }
func (p keyPoints) Len() int                              { return len(p) }
func (p keyPoints) Slice(start, end int) kdtree.Interface { return p[start:end] }

func (p keyPoints) Pivot(d kdtree.Dim) int {
	plane := keyPlane{keyPoints: p, Dim: d}
	return kdtree.Partition(plane, kdtree.MedianOfRandoms(plane, 100))
}

// keyPlane sorts keys along one axis.
type keyPlane struct {
	keyPoints
	kdtree.Dim
}

func (p keyPlane) Less(i, j int) bool {
	return p.keyPoints[i].v[p.Dim] < p.keyPoints[j].v[p.Dim]
}

func (p keyPlane) Swap(i, j int) {
	p.keyPoints[i], p.keyPoints[j] = p.keyPoints[j], p.keyPoints[i]
}

func (p keyPlane) Slice(start, end int) kdtree.SortSlicer {
	return keyPlane{keyPoints: p.keyPoints[start:end], Dim: p.Dim}
}

// rankedKeeper keeps the n best points seen so far, ranked by distance and
// then by key index.  It works like kdtree.NKeeper, including the sentinel
// at infinite distance, but breaks ties deterministically.  The tree search
// visits every point whose distance equals the current maximum, so the
// result does not depend on the shape of the tree.
type rankedKeeper struct {
	kdtree.Heap
}

func newRankedKeeper(n int) *rankedKeeper {
	k := &rankedKeeper{Heap: make(kdtree.Heap, 1, n)}
	k.reset()
	return k
}

func (k *rankedKeeper) reset() {
	k.Heap = k.Heap[:1]
	k.Heap[0] = kdtree.ComparableDist{Dist: math.Inf(1)}
}

// before reports whether a ranks strictly before b.  The sentinel ranks
// after everything.
func before(a, b kdtree.ComparableDist) bool {
	if a.Comparable == nil {
		return false
	}
	if b.Comparable == nil {
		return true
	}
	if a.Dist != b.Dist {
		return a.Dist < b.Dist
	}
	return a.Comparable.(keyPoint).idx < b.Comparable.(keyPoint).idx
}

// Less orders the heap with the worst point at the top.
func (k *rankedKeeper) Less(i, j int) bool {
	return before(k.Heap[j], k.Heap[i])
}

// Keep implements the kdtree.Keeper interface.
func (k *rankedKeeper) Keep(c kdtree.ComparableDist) {
	if !before(c, k.Heap[0]) {
		return
	}
	if len(k.Heap) == cap(k.Heap) {
		k.Heap[0] = c
		heap.Fix(k, 0)
	} else {
		heap.Push(k, c)
	}
}
