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
	"math"
)

// EuclideanDistance returns the distance [map units] from the center of
// each cell to the center of the nearest cell of g that holds data.
// Cells holding data are 0. If maxDistance > 0, cells farther than
// maxDistance are no-data. If g holds no data at all, every cell of the
// result is no-data.
func EuclideanDistance(g *Grid, maxDistance float64) *Grid {
	out := g.derive(g.Name + "_distance")
	out.Class = NoClass
	out.Coverage = nil
	d2 := squaredDistance(g)
	for i, v := range d2 {
		if math.IsInf(v, 1) {
			continue
		}
		d := math.Sqrt(v) * g.CellSize
		if maxDistance > 0 && d > maxDistance {
			continue
		}
		out.Data.Elements[i] = d
	}
	return out
}

// squaredDistance returns the squared distance in cells from each cell
// to the nearest valid cell, computed exactly with two passes of the
// one-dimensional lower envelope transform (Felzenszwalb and
// Huttenlocher, 2012).
func squaredDistance(g *Grid) []float64 {
	nx, ny := g.Nx, g.Ny
	d := make([]float64, g.Len())
	for i := range d {
		if g.Valid(i) {
			d[i] = 0
		} else {
			d[i] = math.Inf(1)
		}
	}
	n := nx
	if ny > n {
		n = ny
	}
	f := make([]float64, n)
	out := make([]float64, n)
	v := make([]int, n)
	z := make([]float64, n+1)

	// Columns.
	for col := 0; col < nx; col++ {
		for row := 0; row < ny; row++ {
			f[row] = d[row*nx+col]
		}
		envelope1D(f[:ny], out[:ny], v, z)
		for row := 0; row < ny; row++ {
			d[row*nx+col] = out[row]
		}
	}
	// Rows.
	for row := 0; row < ny; row++ {
		copy(f[:nx], d[row*nx:(row+1)*nx])
		envelope1D(f[:nx], out[:nx], v, z)
		copy(d[row*nx:(row+1)*nx], out[:nx])
	}
	return d
}

// envelope1D computes out[q] = min over p of (q-p)² + f[p].
// v and z are scratch space.
func envelope1D(f, out []float64, v []int, z []float64) {
	n := len(f)
	k := -1
	for q := 0; q < n; q++ {
		if math.IsInf(f[q], 1) {
			continue
		}
		if k < 0 {
			k = 0
			v[0] = q
			z[0] = math.Inf(-1)
			z[1] = math.Inf(1)
			continue
		}
		var s float64
		for {
			p := v[k]
			s = ((f[q] + float64(q*q)) - (f[p] + float64(p*p))) / float64(2*q-2*p)
			if s > z[k] { // z[0] is -Inf, so this always stops at k == 0.
				break
			}
			k--
		}
		k++
		v[k] = q
		z[k] = s
		z[k+1] = math.Inf(1)
	}
	if k < 0 {
		for q := range out {
			out[q] = math.Inf(1)
		}
		return
	}
	k = 0
	for q := 0; q < n; q++ {
		for z[k+1] < float64(q) {
			k++
		}
		p := v[k]
		out[q] = float64((q-p)*(q-p)) + f[p]
	}
}
