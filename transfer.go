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
	"fmt"
	"math"
	"slices"
	"strings"

	"golang.org/x/exp/maps"
)

// TransferFunc is a one-dimensional transfer function, applied separately
// to each colour channel.
type TransferFunc func(float64) float64

// PerChannel returns a function which applies f to each of the three
// channels of a colour, suitable for [LUT3D.Map].
func PerChannel(f TransferFunc) func([3]float64) [3]float64 {
	return func(v [3]float64) [3]float64 {
		return [3]float64{f(v[0]), f(v[1]), f(v[2])}
	}
}

// InvalidStyleError is returned when a transfer function is requested with
// an unknown style name.
type InvalidStyleError struct {
	Style string
	Valid []string
}

func (e *InvalidStyleError) Error() string {
	return fmt.Sprintf("lut: undefined style %q, must be one of %s",
		e.Style, strings.Join(e.Valid, ", "))
}

func (e *InvalidStyleError) Unwrap() error {
	return ErrInvalidStyle
}

// styleSet maps style names to transfer functions.  Style names are
// matched without regard to case.
type styleSet map[string]TransferFunc

func (s styleSet) get(style string) (TransferFunc, error) {
	for name, f := range s {
		if strings.EqualFold(name, style) {
			return f, nil
		}
	}
	valid := maps.Keys(s)
	slices.Sort(valid)
	return nil, &InvalidStyleError{Style: style, Valid: valid}
}

// Exponent returns a pure power function.  The styles are
//   - basicFwd: y = x^g for x > 0, else 0
//   - basicRev: y = x^(1/g) for x > 0, else 0
//   - basicMirrorFwd, basicMirrorRev: as above, extended to negative x by
//     point symmetry
//   - basicPassThruFwd, basicPassThruRev: as above, but negative values
//     pass through unchanged
func Exponent(g float64, style string) (TransferFunc, error) {
	fwd := func(x float64) float64 { return math.Pow(x, g) }
	rev := func(x float64) float64 { return math.Pow(x, 1/g) }

	styles := styleSet{
		"basicFwd": func(x float64) float64 {
			if x > 0 {
				return fwd(x)
			}
			return 0
		},
		"basicRev": func(x float64) float64 {
			if x > 0 {
				return rev(x)
			}
			return 0
		},
		"basicMirrorFwd":   mirror(fwd),
		"basicMirrorRev":   mirror(rev),
		"basicPassThruFwd": passThru(fwd),
		"basicPassThruRev": passThru(rev),
	}
	return styles.get(style)
}

// MonCurve returns a power function with a linear segment near zero, the
// form used by sRGB and many similar encodings.  The forward curve is
//
//	y = ((x + offset) / (1 + offset))^g   for x >= offset/(g-1)
//	y = x * s                             otherwise
//
// where s is chosen so that both segments meet.  The styles are monCurveFwd,
// monCurveRev (the inverse), and the point symmetric variants
// monCurveMirrorFwd and monCurveMirrorRev.
//
// MonCurve(2.4, 0.055, "monCurveRev") is the sRGB encoding.
func MonCurve(g, offset float64, style string) (TransferFunc, error) {
	yBreak := math.Pow((g*offset)/((g-1)*(offset+1)), g)
	xBreak := offset / (g - 1)
	s := ((g - 1) / offset) * yBreak

	fwd := func(x float64) float64 {
		if x >= xBreak {
			return math.Pow((x+offset)/(1+offset), g)
		}
		return x * s
	}
	rev := func(y float64) float64 {
		if y >= yBreak {
			return (1+offset)*math.Pow(y, 1/g) - offset
		}
		return y / s
	}

	styles := styleSet{
		"monCurveFwd":       fwd,
		"monCurveRev":       rev,
		"monCurveMirrorFwd": mirror(fwd),
		"monCurveMirrorRev": mirror(rev),
	}
	return styles.get(style)
}

func mirror(f TransferFunc) TransferFunc {
	return func(x float64) float64 {
		if x >= 0 {
			return f(x)
		}
		return -f(-x)
	}
}

func passThru(f TransferFunc) TransferFunc {
	return func(x float64) float64 {
		if x > 0 {
			return f(x)
		}
		return x
	}
}

// fltMin is the smallest normal float32 value.  Logarithms clamp their
// argument here.
const fltMin = 1.175494e-38

// Logarithm returns a basic logarithm or its inverse.  The styles are
// log10, antiLog10, log2 and antiLog2.  Arguments of the logarithms are
// clamped below at the smallest normal float32 value.
func Logarithm(style string) (TransferFunc, error) {
	styles := styleSet{
		"log10":     func(x float64) float64 { return math.Log10(max(x, fltMin)) },
		"antiLog10": func(x float64) float64 { return math.Pow(10, x) },
		"log2":      func(x float64) float64 { return math.Log2(max(x, fltMin)) },
		"antiLog2":  math.Exp2,
	}
	return styles.get(style)
}

// ErrLogParams is returned for logarithmic curve parameters which do not
// describe an invertible curve.
var ErrLogParams = errors.New("lut: invalid logarithmic curve parameters")

// LogParams describes a parametric logarithmic curve
//
//	y = LogSideSlope * log_Base(LinSideSlope*x + LinSideOffset) + LogSideOffset
//
// The camera styles replace the curve below LinSideBreak by the tangent
// line at the break point.
type LogParams struct {
	Base          float64
	LogSideSlope  float64
	LinSideSlope  float64
	LogSideOffset float64
	LinSideOffset float64
	LinSideBreak  float64
}

// DefaultLogParams returns the parameters of the plain base 2 logarithm.
func DefaultLogParams() LogParams {
	return LogParams{
		Base:         2,
		LogSideSlope: 1,
		LinSideSlope: 1,
	}
}

// Curve returns the transfer function for the given style: linToLog,
// logToLin, cameraLinToLog or cameraLogToLin.
func (p LogParams) Curve(style string) (TransferFunc, error) {
	if !(p.Base > 0) || p.Base == 1 || p.LogSideSlope == 0 || p.LinSideSlope == 0 {
		return nil, ErrLogParams
	}
	lnBase := math.Log(p.Base)

	linToLog := func(x float64) float64 {
		v := max(p.LinSideSlope*x+p.LinSideOffset, fltMin)
		return p.LogSideSlope*math.Log(v)/lnBase + p.LogSideOffset
	}
	logToLin := func(y float64) float64 {
		return (math.Pow(p.Base, (y-p.LogSideOffset)/p.LogSideSlope) - p.LinSideOffset) / p.LinSideSlope
	}

	styles := styleSet{
		"linToLog": linToLog,
		"logToLin": logToLin,
	}

	// The camera curves need a break point with a positive argument.
	breakArg := p.LinSideSlope*p.LinSideBreak + p.LinSideOffset
	if breakArg > 0 {
		logSideBreak := p.LogSideSlope*math.Log(breakArg)/lnBase + p.LogSideOffset
		linearSlope := p.LogSideSlope * p.LinSideSlope / (breakArg * lnBase)
		linearOffset := logSideBreak - linearSlope*p.LinSideBreak

		styles["cameraLinToLog"] = func(x float64) float64 {
			if x <= p.LinSideBreak {
				return linearSlope*x + linearOffset
			}
			return linToLog(x)
		}
		styles["cameraLogToLin"] = func(y float64) float64 {
			if y <= logSideBreak {
				return (y - linearOffset) / linearSlope
			}
			return logToLin(y)
		}
	}

	return styles.get(style)
}

// Log2Encoding returns the normalised log2 encoding which maps
// middleGrey*2^minExposure to 0 and middleGrey*2^maxExposure to 1.
func Log2Encoding(middleGrey, minExposure, maxExposure float64) TransferFunc {
	return func(lin float64) float64 {
		return (math.Log2(lin/middleGrey) - minExposure) / (maxExposure - minExposure)
	}
}

// Log2Decoding returns the inverse of [Log2Encoding].
func Log2Decoding(middleGrey, minExposure, maxExposure float64) TransferFunc {
	return func(logNorm float64) float64 {
		return math.Exp2(logNorm*(maxExposure-minExposure)+minExposure) * middleGrey
	}
}

// Log2Shaper returns a 1D LUT which applies the normalised log2 encoding.
// The samples are placed at middleGrey*2^e for evenly spaced exposures e
// from minExposure to maxExposure, so the domain is explicit.  Encoded
// values below 0 are clamped to 0.
func Log2Shaper(size int, middleGrey, minExposure, maxExposure float64) *LUT1D {
	enc := Log2Encoding(middleGrey, minExposure, maxExposure)

	domain := LinearSamples(size, minExposure, maxExposure)
	table := make([]float64, len(domain))
	for i, e := range domain {
		lin := middleGrey * math.Exp2(e)
		domain[i] = lin
		table[i] = max(enc(lin), 0)
	}
	return &LUT1D{
		Table:  [][]float64{table},
		Domain: domain,
		Name:   "Log2 Shaper",
	}
}
