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
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// maxSPI3DSize limits the grid size accepted by [DecodeSPI3D].
const maxSPI3DSize = 256

// DecodeSPI3D reads a 3D LUT in SPI3D format.
//
// Lines starting with '#' are comments and are stored in the Comments
// field.  A line with three integers gives the grid size, which must be the
// same for all axes.  Lines with six fields are data rows "i j k r g b".
// Other short header lines, like "SPILUT 1.0" and "3 3", are ignored.
//
// The data rows may appear in any order, but every index from (0, 0, 0) to
// (size-1, size-1, size-1) must occur exactly once.  The rows are stored in
// canonical order, so that the table matches [LinearTable].  The box of the
// result is [0, 1]^3.
func DecodeSPI3D(r io.Reader) (*LUT3D, error) {
	l := &LUT3D{Max: [3]float64{1, 1, 1}}

	var seen []bool
	rows := 0
	lineNo := 0
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if comment, ok := strings.CutPrefix(line, "#"); ok {
			l.Comments = append(l.Comments, strings.TrimSpace(comment))
			continue
		}

		fields := strings.Fields(line)
		switch len(fields) {
		case 1, 2:
			// file header

		case 3:
			if seen != nil {
				return nil, syntaxError(lineNo, "repeated size line")
			}
			var sizes [3]int
			for d, f := range fields {
				n, err := strconv.Atoi(f)
				if err != nil {
					return nil, syntaxError(lineNo, "invalid grid size "+strconv.Quote(f))
				}
				sizes[d] = n
			}
			if sizes[0] != sizes[1] || sizes[0] != sizes[2] {
				return nil, &NonUniformGridError{Line: lineNo, Sizes: sizes}
			}
			size := sizes[0]
			if size < 2 || size > maxSPI3DSize {
				return nil, syntaxError(lineNo, fmt.Sprintf("unsupported grid size %d", size))
			}
			l.Size = size
			l.Table = make([]float64, size*size*size*3)
			seen = make([]bool, size*size*size)

		case 6:
			if seen == nil {
				return nil, syntaxError(lineNo, "data before size line")
			}
			var idx [3]int
			for d, f := range fields[:3] {
				n, err := strconv.Atoi(f)
				if err != nil {
					return nil, syntaxError(lineNo, "invalid index "+strconv.Quote(f))
				}
				idx[d] = n
			}
			var val [3]float64
			for c, f := range fields[3:] {
				x, err := strconv.ParseFloat(f, 64)
				if err != nil {
					return nil, syntaxError(lineNo, "invalid value "+strconv.Quote(f))
				}
				val[c] = x
			}

			s := l.Size
			for _, n := range idx {
				if n < 0 || n >= s {
					return nil, &IndexMismatchError{Line: lineNo, Index: idx, Reason: "index out of range"}
				}
			}
			pos := (idx[0]*s+idx[1])*s + idx[2]
			if seen[pos] {
				return nil, &IndexMismatchError{Line: lineNo, Index: idx, Reason: "duplicate index"}
			}
			seen[pos] = true
			rows++
			copy(l.Table[3*pos:3*pos+3], val[:])

		default:
			return nil, syntaxError(lineNo, fmt.Sprintf("unexpected number of fields (%d)", len(fields)))
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}

	if seen == nil {
		return nil, syntaxError(lineNo, "missing size line")
	}
	if rows != len(seen) {
		s := l.Size
		for pos, ok := range seen {
			if !ok {
				idx := [3]int{pos / (s * s), pos / s % s, pos % s}
				return nil, &IndexMismatchError{Index: idx, Reason: "missing index"}
			}
		}
	}
	return l, nil
}

// ReadSPI3D reads a 3D LUT from an SPI3D file.
func ReadSPI3D(fname string) (*LUT3D, error) {
	fd, err := os.Open(fname)
	if err != nil {
		return nil, err
	}
	defer fd.Close()

	l, err := DecodeSPI3D(bufio.NewReader(fd))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", fname, err)
	}
	return l, nil
}

// EncodeSPI3D writes the LUT in SPI3D format.  The rows are written in
// canonical order, and the values use the shortest representation which
// reads back exactly.  The box of the LUT is not stored.
func (l *LUT3D) EncodeSPI3D(w io.Writer) error {
	if err := l.check(); err != nil {
		return err
	}

	bw := bufio.NewWriter(w)
	s := l.Size
	fmt.Fprintf(bw, "SPILUT 1.0\n3 3\n%d %d %d\n", s, s, s)
	for _, c := range l.Comments {
		fmt.Fprintf(bw, "# %s\n", strings.ReplaceAll(c, "\n", " "))
	}

	var buf []byte
	pos := 0
	for i := range s {
		for j := range s {
			for k := range s {
				buf = buf[:0]
				buf = strconv.AppendInt(buf, int64(i), 10)
				buf = append(buf, ' ')
				buf = strconv.AppendInt(buf, int64(j), 10)
				buf = append(buf, ' ')
				buf = strconv.AppendInt(buf, int64(k), 10)
				for c := range 3 {
					buf = append(buf, ' ')
					buf = strconv.AppendFloat(buf, l.Table[pos+c], 'g', -1, 64)
				}
				buf = append(buf, '\n')
				if _, err := bw.Write(buf); err != nil {
					return err
				}
				pos += 3
			}
		}
	}
	return bw.Flush()
}

// WriteSPI3D writes the LUT to an SPI3D file.
func (l *LUT3D) WriteSPI3D(fname string) error {
	fd, err := os.Create(fname)
	if err != nil {
		return err
	}
	err = l.EncodeSPI3D(fd)
	if err != nil {
		fd.Close()
		return err
	}
	return fd.Close()
}

// NonUniformGridError indicates an SPI3D file whose grid size differs
// between the axes.
type NonUniformGridError struct {
	Line  int
	Sizes [3]int
}

func (e *NonUniformGridError) Error() string {
	return fmt.Sprintf("lut: line %d: non-uniform grid size %dx%dx%d",
		e.Line, e.Sizes[0], e.Sizes[1], e.Sizes[2])
}

// IndexMismatchError indicates an SPI3D file whose data rows do not cover
// the grid exactly once.  Line is zero if the problem is a missing index.
type IndexMismatchError struct {
	Line   int
	Index  [3]int
	Reason string
}

func (e *IndexMismatchError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("lut: line %d: index (%d, %d, %d): %s",
			e.Line, e.Index[0], e.Index[1], e.Index[2], e.Reason)
	}
	return fmt.Sprintf("lut: index (%d, %d, %d): %s",
		e.Index[0], e.Index[1], e.Index[2], e.Reason)
}

// SyntaxError indicates an SPI3D file which cannot be parsed.
type SyntaxError struct {
	Line   int
	Reason string
}

func syntaxError(line int, reason string) error {
	return &SyntaxError{Line: line, Reason: reason}
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("lut: line %d: %s", e.Line, e.Reason)
}
