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

// Package lut implements sampled colour transforms and their approximate
// inverses.
//
// A [LUT1D] stores one or more sampled transfer curves, a [LUT3D] stores an
// RGB to RGB mapping sampled on a regular cubic grid.  Both can be applied
// in the forward direction by interpolation, and both can be inverted using
// only the samples, without access to the function which produced them.
//
// # Building LUTs
//
// New tables start out as the identity and are then mapped through a
// transfer function:
//
//	enc, err := lut.MonCurve(2.4, 0.055, "monCurveRev") // sRGB encoding
//	if err != nil {
//	    // handle error
//	}
//	fwd := lut.NewLUT3D(33, [3]float64{0, 0, 0}, [3]float64{1, 1, 1}).Map(lut.PerChannel(enc))
//
// # Inversion
//
// One-dimensional curves are inverted by swapping the roles of the domain
// samples and the table values.  For 3D grids there are two methods:
// [LUT3D.InvertNearest] maps each grid node to the input of the nearest
// forward sample, while [LUT3D.Invert] first pads and densifies the forward
// grid and then averages over several nearest neighbours:
//
//	inv, err := fwd.Invert(func(o *lut.InvertOptions) {
//	    o.QuerySize = 8
//	})
//
// Inverting never modifies the receiver.  Warnings about expensive or
// inaccurate inversions are reported as [AccuracyWarning] values through
// log/slog.
//
// # Files
//
// [DecodeSPI3D] and [LUT3D.EncodeSPI3D] read and write the SPI3D text format.
package lut

import (
	"errors"
	"fmt"
)

// Direction specifies in which direction a LUT is applied.
type Direction int

const (
	// Forward maps input values through the sampled transform.
	Forward Direction = iota
	// Inverse maps output values back through an approximate inverse.
	Inverse
)

func (d Direction) String() string {
	switch d {
	case Forward:
		return "forward"
	case Inverse:
		return "inverse"
	default:
		return fmt.Sprintf("Direction(%d)", int(d))
	}
}

var (
	// ErrShape is returned when the number of values passed to Apply is not
	// a multiple of the number of channels.
	ErrShape = errors.New("lut: value count does not match channel count")

	// ErrGridSize is returned for grids or tables with fewer than two
	// samples per axis.
	ErrGridSize = errors.New("lut: grid size must be at least 2")

	// ErrQuerySize is returned when the number of neighbours to average
	// is smaller than one.
	ErrQuerySize = errors.New("lut: query size must be at least 1")

	// ErrPadding is returned when the padding is negative or not smaller
	// than the grid size.
	ErrPadding = errors.New("lut: invalid padding")

	// ErrInvalidStyle is wrapped by every [InvalidStyleError].
	ErrInvalidStyle = errors.New("lut: undefined style")

	errDirection = errors.New("lut: invalid direction")
)

// AccuracyWarning reports a problem with an inversion which does not stop
// the computation.  It is either a target resolution above the configured
// threshold, or a round trip error above the configured tolerance.
type AccuracyWarning struct {
	Size      int     // target grid size of the inversion
	Threshold int     // size threshold, if the warning is about the size
	Err       float64 // worst round trip error, if the warning is about accuracy
	Tolerance float64
	Reason    string
}

func (w *AccuracyWarning) Error() string {
	if w.Threshold > 0 {
		return fmt.Sprintf("lut: %s (size %d > %d)", w.Reason, w.Size, w.Threshold)
	}
	return fmt.Sprintf("lut: %s (error %g > %g)", w.Reason, w.Err, w.Tolerance)
}
