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
	"strings"
)

// ResampleMethod is an interpolation method for moving a grid to a new frame.
type ResampleMethod int

const (
	// Nearest takes the value of the source cell containing the target
	// cell center. Use it for categorical data.
	Nearest ResampleMethod = iota
	// Bilinear interpolates between the four nearest source cell centers,
	// ignoring the ones without data.
	Bilinear
)

// ParseResampleMethod returns the method with the given name.
func ParseResampleMethod(s string) (ResampleMethod, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "NEAREST":
		return Nearest, nil
	case "BILINEAR":
		return Bilinear, nil
	default:
		return 0, fmt.Errorf("envvars: invalid resampling method %q", s)
	}
}

// Resample returns g at a new cell size. The lower-left corner is kept
// and the frame is extended to cover all of g.
func Resample(g *Grid, cellSize float64, method ResampleMethod) (*Grid, error) {
	b := g.Bounds()
	f := Frame{
		CellSize: cellSize,
		X0:       g.X0,
		Y0:       g.Y0,
		Nx:       int(math.Ceil((b.Max.X-b.Min.X)/cellSize - frameTolerance)),
		Ny:       int(math.Ceil((b.Max.Y-b.Min.Y)/cellSize - frameTolerance)),
	}
	return Align(g, f, method)
}

// Align returns g placed into frame f. Target cells whose centers fall
// outside of g are no-data and are left out of the result's Coverage.
func Align(g *Grid, f Frame, method ResampleMethod) (*Grid, error) {
	if err := f.validate(); err != nil {
		return nil, err
	}
	if g.Frame.Compatible(f) {
		return g.Copy(), nil
	}
	out := NewGrid(f, g.NoData)
	out.Name, out.Class, out.SR = g.Name, g.Class, g.SR
	covered := make([]bool, f.Len())
	for row := 0; row < f.Ny; row++ {
		for col := 0; col < f.Nx; col++ {
			p := f.Center(row, col)
			sr, sc, ok := g.Cell(p.X, p.Y)
			if !ok {
				continue
			}
			i := f.Index(row, col)
			covered[i] = g.covered(g.Index(sr, sc))
			switch method {
			case Nearest:
				out.Data.Elements[i] = g.Get(sr, sc)
			case Bilinear:
				out.Data.Elements[i] = bilinear(g, p.X, p.Y)
			default:
				return nil, fmt.Errorf("envvars: invalid resampling method %d", method)
			}
		}
	}
	out.Coverage = NewMask(f, func(i int) bool { return covered[i] })
	if out.Coverage.Count() == f.Len() {
		out.Coverage = nil
	}
	return out, nil
}

// bilinear interpolates g at (x, y), which must be inside g.
func bilinear(g *Grid, x, y float64) float64 {
	fc := (x-g.X0)/g.CellSize - 0.5
	fr := (y-g.Y0)/g.CellSize - 0.5
	c0, r0 := int(math.Floor(fc)), int(math.Floor(fr))
	tx, ty := fc-float64(c0), fr-float64(r0)
	var sum, wsum float64
	for _, n := range [4]struct {
		dr, dc int
		w      float64
	}{
		{0, 0, (1 - tx) * (1 - ty)},
		{0, 1, tx * (1 - ty)},
		{1, 0, (1 - tx) * ty},
		{1, 1, tx * ty},
	} {
		r, c := r0+n.dr, c0+n.dc
		if r < 0 || r >= g.Ny || c < 0 || c >= g.Nx || n.w == 0 {
			continue
		}
		v := g.Get(r, c)
		if g.IsNoData(v) {
			continue
		}
		sum += v * n.w
		wsum += n.w
	}
	if wsum == 0 {
		return g.NoData
	}
	return sum / wsum
}
