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
	"bytes"
	"errors"
	"log/slog"
	"math"
	"math/rand"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultInverseSize(t *testing.T) {
	tests := []struct{ in, out int }{
		{2, 6},
		{3, 8},
		{5, 10},
		{9, 17},
		{17, 36},
		{33, 108},
		{65, 536},
	}
	for _, test := range tests {
		if got := DefaultInverseSize(test.in); got != test.out {
			t.Errorf("DefaultInverseSize(%d) = %d, want %d", test.in, got, test.out)
		}
	}
}

func TestInvertNearestIdentity(t *testing.T) {
	fwd := NewLUT3D(5, [3]float64{-1, 0, 0}, [3]float64{1, 2, 1})
	inv, err := fwd.InvertNearest()
	require.NoError(t, err)
	assert.Equal(t, fwd.Size, inv.Size)
	assert.Equal(t, fwd.Min, inv.Min)
	assert.Equal(t, fwd.Max, inv.Max)
	if d := cmp.Diff(fwd.Table, inv.Table); d != "" {
		t.Errorf("inverse of the identity (-want +got):\n%s", d)
	}
}

// TestInvertNearestTies checks that among equally distant forward outputs
// the first node in table order is chosen.
func TestInvertNearestTies(t *testing.T) {
	fwd := NewLUT3D(3, unitMin, unitMax).Map(func([3]float64) [3]float64 {
		return [3]float64{0.5, 0.5, 0.5}
	})
	inv, err := fwd.InvertNearest()
	require.NoError(t, err)
	for i, x := range inv.Table {
		if x != 0 {
			t.Fatalf("value %d: got %g, want 0", i, x)
		}
	}
}

func TestInvertNearestAccuracy(t *testing.T) {
	fwd := srgbLUT(t, 33)
	inv, err := fwd.InvertNearest()
	require.NoError(t, err)

	probes := [][3]float64{
		{0.18, 0.18, 0.18},
		{0.5, 0.3, 0.7},
		{0.25, 0.6, 0.4},
		{0.8, 0.8, 0.8},
	}
	e := RoundTripError(fwd, inv, probes)
	assert.Less(t, e, 2.0/32, "round trip error")
}

func TestInvertRefined(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping slow test in short mode")
	}

	fwd := srgbLUT(t, 33)
	var warnings []*AccuracyWarning
	grey := [3]float64{0.18, 0.18, 0.18}
	inv, err := fwd.Invert(func(o *InvertOptions) {
		o.Probes = [][3]float64{grey}
		o.OnWarning = func(w *AccuracyWarning) { warnings = append(warnings, w) }
	})
	require.NoError(t, err)
	assert.Empty(t, warnings)
	assert.Equal(t, 108, inv.Size)

	// The box of the inverse includes one cell of padding.
	for d := range 3 {
		assert.InDelta(t, -1.0/32, inv.Min[d], 1e-12)
		assert.InDelta(t, 1+1.0/32, inv.Max[d], 1e-12)
	}

	assert.Less(t, RoundTripError(fwd, inv, [][3]float64{grey}), 1e-3)
	others := [][3]float64{
		{0.5, 0.3, 0.7},
		{0.25, 0.6, 0.4},
		{0.8, 0.8, 0.8},
	}
	assert.Less(t, RoundTripError(fwd, inv, others), 6e-3)

	nearest, err := fwd.InvertNearest()
	require.NoError(t, err)
	rng := rand.New(rand.NewSource(4))
	probes := make([][3]float64, 200)
	for i := range probes {
		for d := range 3 {
			probes[i][d] = 0.1 + 0.8*rng.Float64()
		}
	}
	assert.Less(t, RoundTripError(fwd, inv, probes), RoundTripError(fwd, nearest, probes))
}

// TestInvertQuerySize checks that averaging over more neighbours gives a
// smoother inverse.
func TestInvertQuerySize(t *testing.T) {
	gamma := func(x float64) float64 { return math.Pow(x, 1/2.2) }
	fwd := NewLUT3D(5, unitMin, unitMax).Map(PerChannel(gamma))

	last := math.Inf(1)
	for _, k := range []int{1, 4, 8, 16} {
		inv, err := fwd.Invert(func(o *InvertOptions) {
			o.Size = 13
			o.QuerySize = k
		})
		require.NoError(t, err)
		r := inv.Roughness()
		if r >= last {
			t.Errorf("k=%d: roughness %g, previous %g", k, r, last)
		}
		last = r
	}
}

func TestInvertSizeWarning(t *testing.T) {
	fwd := srgbLUT(t, 5)

	buf := &bytes.Buffer{}
	logger := slog.New(slog.NewTextHandler(buf, nil))
	var warnings []*AccuracyWarning
	_, err := fwd.Invert(func(o *InvertOptions) {
		o.Size = 9
		o.WarnSize = 8
		o.Logger = logger
		o.OnWarning = func(w *AccuracyWarning) { warnings = append(warnings, w) }
	})
	require.NoError(t, err)
	require.Len(t, warnings, 1)
	assert.Equal(t, 9, warnings[0].Size)
	assert.Equal(t, 8, warnings[0].Threshold)

	var err2 error = warnings[0]
	var w *AccuracyWarning
	assert.True(t, errors.As(err2, &w))
	assert.Contains(t, err2.Error(), "size 9 > 8")

	out := buf.String()
	assert.Contains(t, out, "level=WARN")
	assert.Contains(t, out, "size=9")
	assert.Contains(t, out, "threshold=8")

	// no warning at the default threshold
	buf.Reset()
	warnings = nil
	_, err = fwd.Invert(func(o *InvertOptions) {
		o.Size = 9
		o.Logger = logger
		o.OnWarning = func(w *AccuracyWarning) { warnings = append(warnings, w) }
	})
	require.NoError(t, err)
	assert.Empty(t, warnings)
	assert.Zero(t, buf.Len())
}

func TestInvertProbeWarning(t *testing.T) {
	fwd := srgbLUT(t, 5)

	buf := &bytes.Buffer{}
	var warnings []*AccuracyWarning
	_, err := fwd.Invert(func(o *InvertOptions) {
		o.Probes = [][3]float64{{0.18, 0.18, 0.18}}
		o.Tolerance = 1e-12
		o.Logger = slog.New(slog.NewTextHandler(buf, nil))
		o.OnWarning = func(w *AccuracyWarning) { warnings = append(warnings, w) }
	})
	require.NoError(t, err)
	require.Len(t, warnings, 1)
	assert.Zero(t, warnings[0].Threshold)
	assert.Greater(t, warnings[0].Err, 1e-12)
	assert.Equal(t, 1e-12, warnings[0].Tolerance)
	assert.True(t, strings.Contains(buf.String(), "tolerance="))
}

func TestInvertOptionErrors(t *testing.T) {
	fwd := srgbLUT(t, 5)
	tests := []struct {
		name string
		opt  func(*InvertOptions)
		want error
	}{
		{"query size", func(o *InvertOptions) { o.QuerySize = 0 }, ErrQuerySize},
		{"target size", func(o *InvertOptions) { o.Size = 1 }, ErrGridSize},
		{"padding", func(o *InvertOptions) { o.Padding = 5 }, ErrPadding},
		{"negative padding", func(o *InvertOptions) { o.Padding = -1 }, ErrPadding},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := fwd.Invert(test.opt)
			assert.ErrorIs(t, err, test.want)
		})
	}

	// Padding is not used without extrapolation.
	_, err := fwd.Invert(func(o *InvertOptions) {
		o.Extrapolate = false
		o.Padding = -1
		o.Size = 5
	})
	assert.NoError(t, err)
}

func TestInvertValueSemantics(t *testing.T) {
	fwd := srgbLUT(t, 5)
	fwd.Name = "sRGB"
	fwd.Comments = []string{"encoding"}
	before := fwd.clone()

	for _, invert := range []func(...func(*InvertOptions)) (*LUT3D, error){fwd.Invert, fwd.InvertNearest} {
		inv, err := invert()
		require.NoError(t, err)
		if d := cmp.Diff(before, fwd); d != "" {
			t.Fatalf("receiver modified (-before +after):\n%s", d)
		}
		assert.Equal(t, "sRGB Inverse", inv.Name)
		assert.Equal(t, []string{"encoding"}, inv.Comments)

		inv.Comments[0] = "changed"
		assert.Equal(t, "encoding", fwd.Comments[0])
	}
}

func TestInvertNoExtrapolation(t *testing.T) {
	fwd := srgbLUT(t, 5)
	inv, err := fwd.Invert(func(o *InvertOptions) {
		o.Extrapolate = false
	})
	require.NoError(t, err)
	assert.Equal(t, DefaultInverseSize(5), inv.Size)
	assert.Equal(t, unitMin, inv.Min)
	assert.Equal(t, unitMax, inv.Max)

	// Every node of the inverse is a mean of points inside the box.
	for _, x := range inv.Table {
		if x < 0 || x > 1 {
			t.Fatalf("value %g outside the box", x)
		}
	}
}

// TestInvertSearcher checks that the k-d tree gives exactly the same
// inverse as an exhaustive search.
func TestInvertSearcher(t *testing.T) {
	fwd := srgbLUT(t, 5)
	brute := func(o *InvertOptions) {
		o.NewSearcher = func(keys [][3]float64) Searcher { return bruteForce(keys) }
	}
	small := func(o *InvertOptions) {
		o.Size = 9
		o.Workers = 3
	}

	want, err := fwd.Invert(small)
	require.NoError(t, err)
	got, err := fwd.Invert(small, brute)
	require.NoError(t, err)
	if d := cmp.Diff(want, got); d != "" {
		t.Errorf("Invert (-kdtree +brute):\n%s", d)
	}

	want, err = fwd.InvertNearest()
	require.NoError(t, err)
	got, err = fwd.InvertNearest(brute)
	require.NoError(t, err)
	if d := cmp.Diff(want, got); d != "" {
		t.Errorf("InvertNearest (-kdtree +brute):\n%s", d)
	}
}

func TestApplyInverse(t *testing.T) {
	fwd := srgbLUT(t, 9)
	inv, err := fwd.Invert()
	require.NoError(t, err)

	values := []float64{0.46, 0.46, 0.46, 0.2, 0.5, 0.8}
	got, err := fwd.Apply(values, Inverse)
	require.NoError(t, err)
	for n := 0; n < 2; n++ {
		want := inv.Lookup([3]float64{values[3*n], values[3*n+1], values[3*n+2]})
		assert.Equal(t, want[:], got[3*n:3*n+3])
	}
}
