/*
Copyright © 2019 the InMAP authors.
This file is part of InMAP.

InMAP is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

InMAP is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with InMAP.  If not, see <http://www.gnu.org/licenses/>.
*/

package envvars

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Unit is the unit system a kernel radius is given in.
type Unit int

// The zero Unit is deliberately invalid so that a radius is never
// interpreted without an explicit unit.
const (
	_ Unit = iota
	// Cells specifies a radius in number of cells.
	Cells
	// MapUnits specifies a radius in the units of the grid's spatial reference.
	MapUnits
)

func (u Unit) String() string {
	switch u {
	case Cells:
		return "cells"
	case MapUnits:
		return "map units"
	default:
		return fmt.Sprintf("Unit(%d)", int(u))
	}
}

// Offset is the position of a kernel cell relative to the center cell.
type Offset struct {
	DRow, DCol int
}

// Kernel is the neighborhood used by focal operations. It is either
// a Rectangle or a Circle.
type Kernel interface {
	// Offsets returns the cells of the kernel footprint relative to
	// its center, ordered by row and then by column, for a grid with
	// the given cell size.
	Offsets(cellSize float64) ([]Offset, error)

	// Token is a short name for the kernel used in output names.
	Token() string

	fmt.Stringer
}

// Rectangle is a kernel Width cells wide and Height cells tall. When a
// dimension is even the extra cell is on the north or east side.
type Rectangle struct {
	Width, Height int
}

// Offsets implements Kernel.
func (r Rectangle) Offsets(float64) ([]Offset, error) {
	if r.Width <= 0 || r.Height <= 0 {
		return nil, &InvalidKernelError{Kernel: r.String(), Reason: "dimensions must be positive"}
	}
	rowLo, colLo := -(r.Height-1)/2, -(r.Width-1)/2
	o := make([]Offset, 0, r.Width*r.Height)
	for dr := rowLo; dr < rowLo+r.Height; dr++ {
		for dc := colLo; dc < colLo+r.Width; dc++ {
			o = append(o, Offset{DRow: dr, DCol: dc})
		}
	}
	return o, nil
}

// Token implements Kernel. Square kernels with an odd edge are named
// by the number of cells between the center and the edge, so a 3x3
// rectangle is "1".
func (r Rectangle) Token() string {
	if r.Width == r.Height && r.Width%2 == 1 {
		return strconv.Itoa(r.Width / 2)
	}
	return fmt.Sprintf("%dx%d", r.Width, r.Height)
}

func (r Rectangle) String() string {
	return fmt.Sprintf("Rectangle(%dx%d cells)", r.Width, r.Height)
}

// Circle is a kernel containing every cell whose center is within
// Radius of the center cell's center.
type Circle struct {
	Radius float64
	Unit   Unit
}

// cellRadius returns the radius in cells.
func (c Circle) cellRadius(cellSize float64) (float64, error) {
	if !(c.Radius > 0) || math.IsInf(c.Radius, 0) {
		return 0, &InvalidKernelError{Kernel: c.String(), Reason: "radius must be positive"}
	}
	switch c.Unit {
	case Cells:
		return c.Radius, nil
	case MapUnits:
		if !(cellSize > 0) {
			return 0, &InvalidKernelError{Kernel: c.String(),
				Reason: fmt.Sprintf("cannot convert map units with cell size %g", cellSize)}
		}
		return c.Radius / cellSize, nil
	default:
		return 0, &InvalidKernelError{Kernel: c.String(), Reason: "radius unit is not specified"}
	}
}

// Offsets implements Kernel.
func (c Circle) Offsets(cellSize float64) ([]Offset, error) {
	r, err := c.cellRadius(cellSize)
	if err != nil {
		return nil, err
	}
	return circleOffsets(r), nil
}

// circleOffsets enumerates the offsets (dr, dc) with dr²+dc² <= r².
// All circular kernels are rasterized here.
func circleOffsets(r float64) []Offset {
	n := int(math.Floor(r + 1.e-9))
	r2 := r*r + 1.e-9
	var o []Offset
	for dr := -n; dr <= n; dr++ {
		for dc := -n; dc <= n; dc++ {
			if float64(dr*dr+dc*dc) <= r2 {
				o = append(o, Offset{DRow: dr, DCol: dc})
			}
		}
	}
	return o
}

// Token implements Kernel.
func (c Circle) Token() string {
	s := strconv.FormatFloat(c.Radius, 'f', -1, 64)
	if c.Unit == MapUnits {
		return s + "m"
	}
	return s
}

func (c Circle) String() string {
	return fmt.Sprintf("Circle(%g %v)", c.Radius, c.Unit)
}

// DefaultScales are the neighborhood scales of the multi-scale land-cover
// summaries: a 3x3 cell rectangle and circles with 10 and 100 cell radii.
var DefaultScales = []Kernel{
	Rectangle{Width: 3, Height: 3},
	Circle{Radius: 10, Unit: Cells},
	Circle{Radius: 100, Unit: Cells},
}

var kernelPattern = regexp.MustCompile(`^(rect|rectangle|circle)(\d+(?:\.\d+)?)(?:x(\d+))?(cell|cells|map|m)?$`)

// ParseKernel parses a kernel description. Accepted forms are
// "rect3x3", "circle10cell" and "circle1000map".
func ParseKernel(s string) (Kernel, error) {
	m := kernelPattern.FindStringSubmatch(strings.ToLower(strings.Replace(s, " ", "", -1)))
	if m == nil {
		return nil, &InvalidKernelError{Kernel: s, Reason: "unrecognized kernel description"}
	}
	switch m[1] {
	case "rect", "rectangle":
		w, err := strconv.Atoi(m[2])
		if err != nil {
			return nil, &InvalidKernelError{Kernel: s, Reason: "width must be an integer"}
		}
		h := w
		if m[3] != "" {
			if h, err = strconv.Atoi(m[3]); err != nil {
				return nil, &InvalidKernelError{Kernel: s, Reason: "height must be an integer"}
			}
		}
		k := Rectangle{Width: w, Height: h}
		if _, err := k.Offsets(0); err != nil {
			return nil, err
		}
		return k, nil
	default:
		r, err := strconv.ParseFloat(m[2], 64)
		if err != nil {
			return nil, &InvalidKernelError{Kernel: s, Reason: err.Error()}
		}
		var u Unit
		switch m[4] {
		case "cell", "cells":
			u = Cells
		case "map", "m":
			u = MapUnits
		default:
			return nil, &InvalidKernelError{Kernel: s, Reason: "circle radius needs a unit (cell or map)"}
		}
		k := Circle{Radius: r, Unit: u}
		if _, err := k.cellRadius(1); err != nil {
			return nil, err
		}
		return k, nil
	}
}

// run is a horizontal strip of kernel cells.
type run struct {
	dRow, colLo, colHi int // colHi is inclusive
}

// runs groups offsets into horizontal strips.
func runs(offsets []Offset) []run {
	o := make([]Offset, len(offsets))
	copy(o, offsets)
	sort.Slice(o, func(i, j int) bool {
		if o[i].DRow != o[j].DRow {
			return o[i].DRow < o[j].DRow
		}
		return o[i].DCol < o[j].DCol
	})
	var r []run
	for i, off := range o {
		if i > 0 && off.DRow == o[i-1].DRow && off.DCol == o[i-1].DCol+1 {
			r[len(r)-1].colHi = off.DCol
			continue
		}
		if i > 0 && off == o[i-1] {
			continue
		}
		r = append(r, run{dRow: off.DRow, colLo: off.DCol, colHi: off.DCol})
	}
	return r
}
