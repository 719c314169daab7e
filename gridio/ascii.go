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
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/spatialmodel/envvars"
)

// asciiNoData is the no-data marker written for grids whose marker is NaN.
const asciiNoData = -9999.

// maxASCIICells is the largest number of cells accepted in an ascii grid.
const maxASCIICells = 1 << 31

// ReadASCII reads a grid in Esri ASCII format.
func ReadASCII(r io.Reader) (*envvars.Grid, error) {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 1024*1024), 1024*1024)
	s.Split(bufio.ScanWords)

	header := make(map[string]float64)
	var first string
	for s.Scan() {
		key := strings.ToLower(s.Text())
		if _, err := strconv.ParseFloat(key, 64); err == nil {
			first = key
			break
		}
		if !s.Scan() {
			return nil, fmt.Errorf("gridio: ascii grid header: missing value for %s", key)
		}
		v, err := strconv.ParseFloat(s.Text(), 64)
		if err != nil {
			return nil, fmt.Errorf("gridio: ascii grid header %s: %v", key, err)
		}
		header[key] = v
	}
	if err := s.Err(); err != nil {
		return nil, fmt.Errorf("gridio: reading ascii grid: %v", err)
	}

	var f envvars.Frame
	for _, k := range []string{"ncols", "nrows", "cellsize"} {
		if _, ok := header[k]; !ok {
			return nil, fmt.Errorf("gridio: ascii grid header is missing %s", k)
		}
	}
	nx, ny := header["ncols"], header["nrows"]
	if !(nx >= 1 && ny >= 1) || nx != math.Trunc(nx) || ny != math.Trunc(ny) || nx*ny > maxASCIICells {
		return nil, fmt.Errorf("gridio: ascii grid header has invalid dimensions %gx%g", nx, ny)
	}
	f.Nx, f.Ny, f.CellSize = int(nx), int(ny), header["cellsize"]
	if x, ok := header["xllcorner"]; ok {
		f.X0 = x
	} else if x, ok := header["xllcenter"]; ok {
		f.X0 = x - f.CellSize/2
	} else {
		return nil, fmt.Errorf("gridio: ascii grid header is missing xllcorner")
	}
	if y, ok := header["yllcorner"]; ok {
		f.Y0 = y
	} else if y, ok := header["yllcenter"]; ok {
		f.Y0 = y - f.CellSize/2
	} else {
		return nil, fmt.Errorf("gridio: ascii grid header is missing yllcorner")
	}
	noData, ok := header["nodata_value"]
	if !ok {
		noData = asciiNoData
	}

	n := f.Len()
	if n > 1<<20 {
		n = 1 << 20
	}
	values := make([]float64, 0, n)
	parse := func(tok string) error {
		v, err := strconv.ParseFloat(tok, 64)
		if err != nil {
			return fmt.Errorf("gridio: ascii grid value %d: %v", len(values), err)
		}
		values = append(values, v)
		return nil
	}
	if first != "" {
		if err := parse(first); err != nil {
			return nil, err
		}
	}
	for s.Scan() {
		if err := parse(s.Text()); err != nil {
			return nil, err
		}
	}
	if err := s.Err(); err != nil {
		return nil, fmt.Errorf("gridio: reading ascii grid: %v", err)
	}
	if len(values) != f.Len() {
		return nil, fmt.Errorf("gridio: ascii grid has %d values but the header specifies %dx%d",
			len(values), f.Nx, f.Ny)
	}
	// The file lists the northern row first.
	flipped := make([]float64, len(values))
	for row := 0; row < f.Ny; row++ {
		copy(flipped[row*f.Nx:(row+1)*f.Nx], values[(f.Ny-1-row)*f.Nx:(f.Ny-row)*f.Nx])
	}
	return envvars.NewGridFromValues(f, noData, flipped)
}

// WriteASCII writes g in Esri ASCII format.
func WriteASCII(w io.Writer, g *envvars.Grid) error {
	bw := bufio.NewWriter(w)
	noData := g.NoData
	if math.IsNaN(noData) {
		noData = asciiNoData
	}
	fmt.Fprintf(bw, "ncols %d\nnrows %d\nxllcorner %s\nyllcorner %s\ncellsize %s\nNODATA_value %s\n",
		g.Nx, g.Ny, formatFloat(g.X0), formatFloat(g.Y0), formatFloat(g.CellSize), formatFloat(noData))
	for row := g.Ny - 1; row >= 0; row-- {
		for col := 0; col < g.Nx; col++ {
			if col > 0 {
				bw.WriteByte(' ')
			}
			v := g.Get(row, col)
			if g.IsNoData(v) {
				v = noData
			}
			bw.WriteString(formatFloat(v))
		}
		bw.WriteByte('\n')
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("gridio: writing ascii grid: %v", err)
	}
	return nil
}

func formatFloat(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }
