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
	"math/rand"
	"testing"
)

func TestEuclideanDistance(t *testing.T) {
	rnd := rand.New(rand.NewSource(1))
	const nx, ny = 13, 9
	values := make([]float64, nx*ny)
	for i := range values {
		if rnd.Float64() < 0.15 {
			values[i] = 1
		} else {
			values[i] = -1
		}
	}
	g := testGrid(t, nx, ny, -1, values...)
	d := EuclideanDistance(g, 0)
	for i := range values {
		r, c := g.RowCol(i)
		want := math.Inf(1)
		for j, v := range values {
			if v == -1 {
				continue
			}
			rr, cc := g.RowCol(j)
			want = math.Min(want, math.Hypot(float64(r-rr), float64(c-cc))*g.CellSize)
		}
		if have := d.Data.Elements[i]; different(have, want, testTolerance) {
			t.Errorf("(%d, %d): have %g, want %g", r, c, have, want)
		}
	}
}

func TestEuclideanDistanceLimit(t *testing.T) {
	g := testGrid(t, 5, 1, -1, 1, -1, -1, -1, -1)
	d := EuclideanDistance(g, 60)
	want := []float64{0, 30, 60, -1, -1}
	for i, v := range d.Data.Elements {
		if v != want[i] {
			t.Errorf("cell %d: have %g, want %g", i, v, want[i])
		}
	}
	if d.Name != "test_distance" {
		t.Errorf("name: have %s", d.Name)
	}
}

func TestEuclideanDistanceNoData(t *testing.T) {
	g := testGrid(t, 3, 2, -1, -1, -1, -1, -1, -1, -1)
	if n := EuclideanDistance(g, 0).ValidCount(); n != 0 {
		t.Errorf("have %d valid cells, want 0", n)
	}
}
