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

package gridio

import (
	"fmt"
	"os"

	"github.com/ctessum/cdf"
	"github.com/spatialmodel/envvars"
)

// ReadNetCDF reads the two-dimensional variable with the given name from
// a netCDF file written by WriteNetCDF. If variable is empty, the first
// two-dimensional variable in the file is read.
func ReadNetCDF(rw cdf.ReaderWriterAt, variable string) (*envvars.Grid, error) {
	f, err := cdf.Open(rw)
	if err != nil {
		return nil, fmt.Errorf("gridio: opening netcdf file: %v", err)
	}
	if variable == "" {
		for _, v := range f.Header.Variables() {
			if len(f.Header.Lengths(v)) == 2 {
				variable = v
				break
			}
		}
		if variable == "" {
			return nil, fmt.Errorf("gridio: netcdf file has no two-dimensional variables")
		}
	}
	dims := f.Header.Lengths(variable)
	if len(dims) != 2 {
		return nil, fmt.Errorf("gridio: netcdf variable %s has %d dimensions; it must have 2",
			variable, len(dims))
	}

	var fr envvars.Frame
	fr.Ny, fr.Nx = dims[0], dims[1]
	for name, dst := range map[string]*float64{"x0": &fr.X0, "y0": &fr.Y0, "dx": &fr.CellSize} {
		a, ok := f.Header.GetAttribute("", name).([]float64)
		if !ok || len(a) == 0 {
			return nil, fmt.Errorf("gridio: netcdf file is missing global attribute %s", name)
		}
		*dst = a[0]
	}

	noData := envvars.DefaultNoData
	if a, ok := f.Header.GetAttribute(variable, "nodata").([]float64); ok && len(a) > 0 {
		noData = a[0]
	}

	r := f.Reader(variable, nil, nil)
	buf := r.Zero(-1)
	if _, err = r.Read(buf); err != nil {
		return nil, fmt.Errorf("gridio: reading netcdf variable %s: %v", variable, err)
	}
	data, ok := buf.([]float32)
	if !ok {
		return nil, fmt.Errorf("gridio: netcdf variable %s has type %T; it must be float", variable, buf)
	}
	values := make([]float64, len(data))
	nd32 := float32(noData)
	for i, v := range data {
		if v == nd32 {
			// Keep the exact marker when it is not representable as float32.
			values[i] = noData
		} else {
			values[i] = float64(v)
		}
	}
	g, err := envvars.NewGridFromValues(fr, noData, values)
	if err != nil {
		return nil, fmt.Errorf("gridio: netcdf variable %s: %v", variable, err)
	}
	g.Name = variable
	if s, ok := f.Header.GetAttribute("", "proj4").(string); ok {
		g.SR = s
	}
	if s, ok := f.Header.GetAttribute(variable, "class").(string); ok && s != "" {
		if c, err := envvars.ParseLandCoverClass(s); err == nil {
			g.Class = c
		}
	}
	return g, nil
}

// WriteNetCDF writes grids to w as netCDF variables named after the grids.
// All grids must share a frame.
func WriteNetCDF(w *os.File, grids ...*envvars.Grid) error {
	if len(grids) == 0 {
		return fmt.Errorf("gridio: no grids to write")
	}
	ref := grids[0]
	names := make(map[string]bool)
	for i, g := range grids {
		if !g.Frame.Compatible(ref.Frame) {
			return fmt.Errorf("gridio: grid %s (%s) does not match grid %s (%s)",
				g.Name, g.Frame, ref.Name, ref.Frame)
		}
		if g.Name == "" {
			return fmt.Errorf("gridio: grid %d has no name", i)
		}
		if names[g.Name] {
			return fmt.Errorf("gridio: duplicate grid name %s", g.Name)
		}
		names[g.Name] = true
	}

	h := cdf.NewHeader([]string{"y", "x"}, []int{ref.Ny, ref.Nx})
	h.AddAttribute("", "comment", "envvars gridded environmental variables")
	h.AddAttribute("", "x0", []float64{ref.X0})
	h.AddAttribute("", "y0", []float64{ref.Y0})
	h.AddAttribute("", "dx", []float64{ref.CellSize})
	h.AddAttribute("", "nx", []int32{int32(ref.Nx)})
	h.AddAttribute("", "ny", []int32{int32(ref.Ny)})
	if ref.SR != "" {
		h.AddAttribute("", "proj4", ref.SR)
	}
	h.AddAttribute("", "version", envvars.Version)
	for _, g := range grids {
		h.AddVariable(g.Name, []string{"y", "x"}, []float32{0})
		h.AddAttribute(g.Name, "nodata", []float64{g.NoData})
		if g.Class != envvars.NoClass {
			h.AddAttribute(g.Name, "class", g.Class.String())
		}
	}
	h.Define()

	f, err := cdf.Create(w, h) // writes the header to w
	if err != nil {
		return fmt.Errorf("gridio: creating netcdf file: %v", err)
	}
	for _, g := range grids {
		if err = writeNCF(f, g); err != nil {
			return fmt.Errorf("gridio: writing variable %s to netcdf file: %v", g.Name, err)
		}
	}
	return cdf.UpdateNumRecs(w)
}

func writeNCF(f *cdf.File, g *envvars.Grid) error {
	data32 := make([]float32, len(g.Data.Elements))
	for i, e := range g.Data.Elements {
		data32[i] = float32(e)
	}
	end := f.Header.Lengths(g.Name)
	start := make([]int, len(end))
	_, err := f.Writer(g.Name, start, end).Write(data32)
	return err
}
