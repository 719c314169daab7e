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

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/index/rtree"
)

// bufferSegments is the number of sides of the polygons that stand in
// for circles when buffering.
const bufferSegments = 16

// PolygonMask returns a mask of frame f that is valid where cell centers
// are inside or on the edge of any of polys.
func PolygonMask(f Frame, polys ...geom.Polygonal) *Mask {
	tree := rtree.NewTree(25, 50)
	for _, p := range polys {
		if p != nil {
			tree.Insert(p)
		}
	}
	return NewMask(f, func(i int) bool {
		p := f.Center(f.RowCol(i))
		for _, s := range tree.SearchIntersect(p.Bounds()) {
			if p.Within(s.(geom.Polygonal)) != geom.Outside {
				return true
			}
		}
		return false
	})
}

// ClipToPolygon returns a copy of g where cells whose centers are
// outside of all of polys are no-data.
func ClipToPolygon(g *Grid, polys ...geom.Polygonal) (*Grid, error) {
	return Clip(g, PolygonMask(g.Frame, polys...))
}

// BufferPolygon returns p grown outward by distance d. The result is the
// union of p, a rectangle along every edge and a polygonal disk at every
// vertex. The disks are inscribed in circles of radius d and rotated by
// half a side so that no disk vertex lies on an axis-aligned or diagonal
// edge, and the rectangles extend slightly past the ends of their edges,
// so the pieces cross rather than touch. Distances <= 0 return p
// unchanged.
func BufferPolygon(p geom.Polygonal, d float64) geom.Polygon {
	base := asPolygon(p)
	if !(d > 0) {
		return base
	}
	pieces := []geom.Polygon{base}
	for _, ring := range base {
		for i, a := range ring {
			b := ring[(i+1)%len(ring)]
			if a.Equals(b) {
				continue
			}
			pieces = append(pieces, disk(a, d), edgeRectangle(a, b, d))
		}
	}
	return unionAll(pieces)
}

// UnionPolygons returns the union of polys.
func UnionPolygons(polys ...geom.Polygonal) geom.Polygon {
	p := make([]geom.Polygon, 0, len(polys))
	for _, pp := range polys {
		if pp != nil {
			p = append(p, asPolygon(pp))
		}
	}
	return unionAll(p)
}

// asPolygon combines the rings of p into a single polygon.
func asPolygon(p geom.Polygonal) geom.Polygon {
	if pp, ok := p.(geom.Polygon); ok {
		return pp
	}
	var o geom.Polygon
	for _, pp := range p.Polygons() {
		o = append(o, pp...)
	}
	return o
}

// edgeRectangle returns the rectangle extending d to each side of segment
// ab and d/bufferSegments past each of its ends.
func edgeRectangle(a, b geom.Point, d float64) geom.Polygon {
	dx, dy := b.X-a.X, b.Y-a.Y
	l := math.Hypot(dx, dy)
	ux, uy := dx/l, dy/l
	nx, ny := -uy*d, ux*d
	ex, ey := ux*d/bufferSegments, uy*d/bufferSegments
	a = geom.Point{X: a.X - ex, Y: a.Y - ey}
	b = geom.Point{X: b.X + ex, Y: b.Y + ey}
	return geom.Polygon{{
		{X: a.X + nx, Y: a.Y + ny},
		{X: b.X + nx, Y: b.Y + ny},
		{X: b.X - nx, Y: b.Y - ny},
		{X: a.X - nx, Y: a.Y - ny},
	}}
}

// disk returns a regular polygon inscribed in the circle of radius r
// around c, rotated by half a side.
func disk(c geom.Point, r float64) geom.Polygon {
	p := geom.Point{}.Buffer(r, bufferSegments)
	sin, cos := math.Sincos(math.Pi / bufferSegments)
	for i, v := range p[0] {
		p[0][i] = geom.Point{X: c.X + v.X*cos - v.Y*sin, Y: c.Y + v.X*sin + v.Y*cos}
	}
	return p
}

// unionAll returns the union of p, merging pairs so that the pieces
// being merged stay similar in size.
func unionAll(p []geom.Polygon) geom.Polygon {
	if len(p) == 0 {
		return nil
	}
	for len(p) > 1 {
		next := make([]geom.Polygon, 0, (len(p)+1)/2)
		for i := 0; i < len(p); i += 2 {
			if i+1 < len(p) {
				next = append(next, asPolygon(p[i].Union(p[i+1])))
			} else {
				next = append(next, p[i])
			}
		}
		p = next
	}
	return p[0]
}

// latticePoint is a cell corner: column x and row y of the lines
// between cells.
type latticePoint struct{ x, y int }

// DomainPolygon returns the footprint of the cells of g that hold data.
// Outer rings run counter-clockwise and holes clockwise. Cells that only
// share a corner get separate rings. It returns nil if g holds no data.
func DomainPolygon(g *Grid) geom.Polygon {
	type edge struct{ from, to latticePoint }
	var edges []edge
	out := make(map[latticePoint][]int) // start point -> edges
	add := func(from, to latticePoint) {
		out[from] = append(out[from], len(edges))
		edges = append(edges, edge{from: from, to: to})
	}
	valid := func(row, col int) bool {
		return row >= 0 && row < g.Ny && col >= 0 && col < g.Nx && g.Valid(g.Index(row, col))
	}
	// The data is on the left of every edge.
	for row := 0; row < g.Ny; row++ {
		for col := 0; col < g.Nx; col++ {
			if !valid(row, col) {
				continue
			}
			sw, se := latticePoint{col, row}, latticePoint{col + 1, row}
			ne, nw := latticePoint{col + 1, row + 1}, latticePoint{col, row + 1}
			if !valid(row-1, col) {
				add(sw, se)
			}
			if !valid(row, col+1) {
				add(se, ne)
			}
			if !valid(row+1, col) {
				add(ne, nw)
			}
			if !valid(row, col-1) {
				add(nw, sw)
			}
		}
	}
	if len(edges) == 0 {
		return nil
	}

	used := make([]bool, len(edges))
	var o geom.Polygon
	for first := range edges {
		if used[first] {
			continue
		}
		var ring []latticePoint
		cur := first
		for {
			used[cur] = true
			e := edges[cur]
			ring = append(ring, e.from)
			if e.to == edges[first].from {
				break
			}
			// Where two cells meet at a corner, turn left to keep them apart.
			next := -1
			for _, c := range out[e.to] {
				if used[c] {
					continue
				}
				if next < 0 || turnsLeft(e.from, e.to, edges[c].to) {
					next = c
				}
			}
			if next < 0 {
				break
			}
			cur = next
		}
		o = append(o, ringPath(g.Frame, ring))
	}
	return o
}

// turnsLeft returns whether the path a, b, c turns left at b.
func turnsLeft(a, b, c latticePoint) bool {
	return (b.x-a.x)*(c.y-b.y)-(b.y-a.y)*(c.x-b.x) > 0
}

// ringPath converts ring to map coordinates, dropping the points where
// the ring goes straight and closing it.
func ringPath(f Frame, ring []latticePoint) geom.Path {
	var p geom.Path
	n := len(ring)
	for i, v := range ring {
		prev, next := ring[(i+n-1)%n], ring[(i+1)%n]
		if (v.x-prev.x)*(next.y-v.y)-(v.y-prev.y)*(next.x-v.x) == 0 {
			continue
		}
		p = append(p, geom.Point{
			X: f.X0 + float64(v.x)*f.CellSize,
			Y: f.Y0 + float64(v.y)*f.CellSize,
		})
	}
	if len(p) > 0 {
		p = append(p, p[0])
	}
	return p
}
