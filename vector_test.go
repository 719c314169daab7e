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
	"testing"

	"github.com/ctessum/geom"
)

func square(x0, y0, size float64) geom.Polygon {
	return geom.Polygon{{
		{X: x0, Y: y0}, {X: x0 + size, Y: y0}, {X: x0 + size, Y: y0 + size}, {X: x0, Y: y0 + size},
	}}
}

func TestPolygonMask(t *testing.T) {
	f := Frame{Nx: 4, Ny: 4, CellSize: 30}
	m := PolygonMask(f, square(0, 0, 60))
	for i := 0; i < f.Len(); i++ {
		want := i == 0 || i == 1 || i == 4 || i == 5
		if m.Valid(i) != want {
			t.Errorf("cell %d: have %v, want %v", i, m.Valid(i), want)
		}
	}
	if n := PolygonMask(f).Count(); n != 0 {
		t.Errorf("a mask without polygons has %d valid cells", n)
	}
}

func TestClipToPolygon(t *testing.T) {
	g := testGrid(t, 2, 2, -1, 1, 2, 3, 4)
	o, err := ClipToPolygon(g, square(0, 0, 30), square(30, 30, 30))
	if err != nil {
		t.Fatal(err)
	}
	want := []float64{1, -1, -1, 4}
	for i, v := range o.Data.Elements {
		if v != want[i] {
			t.Errorf("cell %d: have %g, want %g", i, v, want[i])
		}
	}
}

func TestBufferPolygon(t *testing.T) {
	p := square(0, 0, 10)
	b := BufferPolygon(p, 1)
	// The exact buffer has area 100 + 4*10 + pi. The corners are
	// approximated by inscribed polygons, which are slightly smaller.
	area := b.Area()
	if min, max := 140+math.Pi*0.97, 140+math.Pi; area < min || area > max {
		t.Errorf("area: have %g, want between %g and %g", area, min, max)
	}
	if a := BufferPolygon(p, 0).Area(); a != 100 {
		t.Errorf("zero buffer: have area %g, want 100", a)
	}
	for _, test := range []struct {
		p    geom.Point
		want bool
	}{
		{p: geom.Point{X: 5, Y: 5}, want: true},
		{p: geom.Point{X: -0.9, Y: 5}, want: true},
		{p: geom.Point{X: 5, Y: 10.9}, want: true},
		{p: geom.Point{X: -0.6, Y: -0.6}, want: true},
		{p: geom.Point{X: 10.6, Y: 10.6}, want: true},
		{p: geom.Point{X: 5, Y: -1.5}, want: false},
		{p: geom.Point{X: -0.9, Y: -0.9}, want: false},
	} {
		if in := test.p.Within(b) != geom.Outside; in != test.want {
			t.Errorf("%v: have inside=%v, want %v", test.p, in, test.want)
		}
	}
}

func TestBufferPolygonClosedRing(t *testing.T) {
	// An L shape whose ring repeats its first point.
	p := geom.Polygon{{
		{X: 0, Y: 0}, {X: 20, Y: 0}, {X: 20, Y: 10}, {X: 10, Y: 10},
		{X: 10, Y: 20}, {X: 0, Y: 20}, {X: 0, Y: 0},
	}}
	b := BufferPolygon(p, 2)
	// The exact buffer has area 300 + 2*80 + 5*pi - 4: each of the five
	// convex corners adds a quarter disk and the edge bands overlap by
	// 2*2 at the inner corner.
	exact := 456 + 5*math.Pi
	if a, min := b.Area(), 456+5*math.Pi*0.97; a < min || a > exact {
		t.Errorf("area: have %g, want between %g and %g", a, min, exact)
	}
	for _, pt := range []geom.Point{{X: 15, Y: 5}, {X: 5, Y: 15}, {X: 11.5, Y: 11.5}, {X: 21.5, Y: 5}} {
		if pt.Within(b) == geom.Outside {
			t.Errorf("%v is outside of the buffer", pt)
		}
	}
	if pt := (geom.Point{X: 15, Y: 15}); pt.Within(b) != geom.Outside {
		t.Errorf("%v is inside of the buffer", pt)
	}
}

func TestUnionPolygons(t *testing.T) {
	u := UnionPolygons(square(0, 0, 10), square(5, 5, 10))
	if a := u.Area(); different(a, 175, testTolerance) {
		t.Errorf("area: have %g, want 175", a)
	}
	if pt := (geom.Point{X: 7, Y: 7}); pt.Within(u) == geom.Outside {
		t.Error("the overlap of the polygons is not inside of their union")
	}
	if u := UnionPolygons(); u != nil {
		t.Errorf("union of nothing: %v", u)
	}
}

func TestDomainPolygon(t *testing.T) {
	g, err := NewGridFromValues(Frame{Nx: 3, Ny: 3, CellSize: 10, X0: 100, Y0: 200}, -1, []float64{
		1, 1, 1,
		1, -1, -1,
		1, -1, -1,
	})
	if err != nil {
		t.Fatal(err)
	}
	p := DomainPolygon(g)
	if a := p.Area(); different(a, 500, testTolerance) {
		t.Errorf("area: have %g, want 500", a)
	}
	b := p.Bounds()
	if b.Min.X != 100 || b.Min.Y != 200 || b.Max.X != 130 || b.Max.Y != 230 {
		t.Errorf("bounds: have %v", b)
	}

	if len(p) != 1 || len(p[0]) != 7 {
		t.Errorf("want a single closed ring of 6 corners, have %v", p)
	}

	ring, err := NewGridFromValues(Frame{Nx: 3, Ny: 3, CellSize: 10}, -1, []float64{
		1, 1, 1,
		1, -1, 1,
		1, 1, 1,
	})
	if err != nil {
		t.Fatal(err)
	}
	p = DomainPolygon(ring)
	if a := p.Area(); different(a, 800, testTolerance) {
		t.Errorf("ring area: have %g, want 800", a)
	}
	if pt := (geom.Point{X: 15, Y: 15}); pt.Within(p) != geom.Outside {
		t.Error("the hole is inside of the domain")
	}
	if pt := (geom.Point{X: 5, Y: 15}); pt.Within(p) != geom.Inside {
		t.Error("a cell with data is outside of the domain")
	}

	diagonal := testGrid(t, 2, 2, -1, 1, -1, -1, 1)
	p = DomainPolygon(diagonal)
	if len(p) != 2 {
		t.Errorf("cells touching at a corner: want 2 rings, have %v", p)
	}
	if a := p.Area(); different(a, 1800, testTolerance) {
		t.Errorf("diagonal area: have %g, want 1800", a)
	}

	empty := testGrid(t, 2, 1, -1, -1, -1)
	if p := DomainPolygon(empty); p != nil {
		t.Errorf("expected no polygon, got %v", p)
	}
}
