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

// Package envvars derives environmental variable rasters for ecological
// models. It converts categorical land-cover grids into multi-scale
// neighborhood summaries and repairs missing-data regions in continuous
// grids.
package envvars

import (
	"fmt"
	"math"

	"github.com/ctessum/geom"
	"github.com/ctessum/sparse"
)

// Version gives the version number.
const Version = "1.0.0"

// DefaultNoData is the no-data marker used for grids created without an
// explicit one. It is the most negative float32 so that it survives a
// round trip through single-precision file formats.
const DefaultNoData = -math.MaxFloat32

// frameTolerance is the relative tolerance used when comparing the
// placement of two frames.
const frameTolerance = 1.e-6

// Frame describes the placement of a regular grid in map space.
// Rows run from south to north: row 0 is the southernmost row.
type Frame struct {
	Nx, Ny   int     // number of columns and rows
	CellSize float64 // edge length of the square cells [map units]
	X0, Y0   float64 // lower-left corner of the grid [map units]
}

// Len returns the number of cells in the frame.
func (f Frame) Len() int { return f.Nx * f.Ny }

// Index returns the position of the cell at (row, col) in the
// row-major cell array.
func (f Frame) Index(row, col int) int { return row*f.Nx + col }

// RowCol is the inverse of Index.
func (f Frame) RowCol(i int) (row, col int) { return i / f.Nx, i % f.Nx }

// Center returns the map coordinates of the center of the cell at (row, col).
func (f Frame) Center(row, col int) geom.Point {
	return geom.Point{
		X: f.X0 + (float64(col)+0.5)*f.CellSize,
		Y: f.Y0 + (float64(row)+0.5)*f.CellSize,
	}
}

// Bounds returns the outer edges of the frame.
func (f Frame) Bounds() *geom.Bounds {
	return &geom.Bounds{
		Min: geom.Point{X: f.X0, Y: f.Y0},
		Max: geom.Point{
			X: f.X0 + float64(f.Nx)*f.CellSize,
			Y: f.Y0 + float64(f.Ny)*f.CellSize,
		},
	}
}

// Cell returns the row and column of the cell containing the point (x, y).
// ok is false if the point is outside of the frame.
func (f Frame) Cell(x, y float64) (row, col int, ok bool) {
	col = int(math.Floor((x - f.X0) / f.CellSize))
	row = int(math.Floor((y - f.Y0) / f.CellSize))
	if col < 0 || col >= f.Nx || row < 0 || row >= f.Ny {
		return row, col, false
	}
	return row, col, true
}

// Compatible returns whether f and o have the same dimensions, cell size
// and alignment.
func (f Frame) Compatible(o Frame) bool {
	if f.Nx != o.Nx || f.Ny != o.Ny {
		return false
	}
	tol := frameTolerance * math.Max(f.CellSize, o.CellSize)
	return math.Abs(f.CellSize-o.CellSize) <= tol &&
		math.Abs(f.X0-o.X0) <= tol && math.Abs(f.Y0-o.Y0) <= tol
}

func (f Frame) validate() error {
	if f.Nx <= 0 || f.Ny <= 0 {
		return fmt.Errorf("envvars: invalid grid dimensions %dx%d", f.Nx, f.Ny)
	}
	if !(f.CellSize > 0) || math.IsInf(f.CellSize, 0) {
		return fmt.Errorf("envvars: invalid cell size %g", f.CellSize)
	}
	return nil
}

func (f Frame) String() string {
	return fmt.Sprintf("%dx%d cells of %g at (%g, %g)", f.Nx, f.Ny, f.CellSize, f.X0, f.Y0)
}

// Grid is a single-band raster held in memory. Cells equal to NoData
// are never treated as numeric data.
//
// Grids returned by the functions in this package are new values;
// the inputs are never modified.
type Grid struct {
	Frame

	// Name identifies the grid in outputs.
	Name string

	// Class is the land-cover class the grid represents, if any.
	Class LandCoverClass

	// NoData is the marker for cells without data. NaN is allowed.
	NoData float64

	// SR is the spatial reference of the grid in Proj4 or WKT format.
	// It is carried along but not interpreted.
	SR string

	// Coverage holds the cells of the frame that the data source
	// physically covers. It is set when a grid is placed into a
	// larger frame. Nil means the whole frame is covered.
	Coverage *Mask

	// Data holds the cell values in row-major order with shape [Ny, Nx].
	Data *sparse.DenseArray
}

// NewGrid returns a grid in the given frame where every cell is no-data.
func NewGrid(f Frame, noData float64) *Grid {
	g := &Grid{
		Frame:  f,
		NoData: noData,
		Data:   sparse.ZerosDense(f.Ny, f.Nx),
	}
	for i := range g.Data.Elements {
		g.Data.Elements[i] = noData
	}
	return g
}

// NewGridFromValues returns a grid in the given frame holding the given
// values, which must be in row-major order starting from the southern row.
func NewGridFromValues(f Frame, noData float64, values []float64) (*Grid, error) {
	if err := f.validate(); err != nil {
		return nil, err
	}
	if len(values) != f.Len() {
		return nil, fmt.Errorf("envvars: %d values do not fill a %dx%d grid",
			len(values), f.Nx, f.Ny)
	}
	g := &Grid{
		Frame:  f,
		NoData: noData,
		Data:   sparse.ZerosDense(f.Ny, f.Nx),
	}
	copy(g.Data.Elements, values)
	return g, nil
}

// IsNoData returns whether v is the no-data marker of g.
func (g *Grid) IsNoData(v float64) bool {
	if math.IsNaN(g.NoData) {
		return math.IsNaN(v)
	}
	return v == g.NoData || math.IsNaN(v)
}

// Valid returns whether the cell at index i holds data.
func (g *Grid) Valid(i int) bool { return !g.IsNoData(g.Data.Elements[i]) }

// Get returns the value of the cell at (row, col).
func (g *Grid) Get(row, col int) float64 { return g.Data.Elements[g.Index(row, col)] }

// Set sets the value of the cell at (row, col).
func (g *Grid) Set(row, col int, v float64) { g.Data.Elements[g.Index(row, col)] = v }

// ValidCount returns the number of cells that hold data.
func (g *Grid) ValidCount() int {
	n := 0
	for i := range g.Data.Elements {
		if g.Valid(i) {
			n++
		}
	}
	return n
}

// covered returns whether cell i is within the physical extent of the
// grid's data source.
func (g *Grid) covered(i int) bool {
	return g.Coverage == nil || g.Coverage.Valid(i)
}

// Copy returns a deep copy of g's values. The Coverage mask is shared
// because masks are never modified.
func (g *Grid) Copy() *Grid {
	o := *g
	o.Data = g.Data.Copy()
	return &o
}

// derive returns a grid with g's placement and metadata where every
// cell is no-data.
func (g *Grid) derive(name string) *Grid {
	o := NewGrid(g.Frame, g.NoData)
	o.Name = name
	o.Class = g.Class
	o.SR = g.SR
	o.Coverage = g.Coverage
	return o
}

// SetNull returns a copy of g where every cell for which null returns
// true is set to no-data.
func SetNull(g *Grid, null func(v float64) bool) *Grid {
	o := g.Copy()
	for i, v := range o.Data.Elements {
		if g.Valid(i) && null(v) {
			o.Data.Elements[i] = g.NoData
		}
	}
	return o
}
