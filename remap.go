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
	"sort"
)

// RemapTable maps categorical class codes to output weights.
type RemapTable struct {
	// Class is the land-cover class the output represents.
	Class LandCoverClass

	// Weights holds the output weight of each explicitly mapped code.
	Weights map[int]float64

	// Domain lists every code that can legitimately appear in the source
	// data. Domain codes missing from Weights map to Fallback.
	Domain []int

	// Fallback is the weight of domain codes that are not in Weights.
	Fallback float64
}

// RemapMode specifies how codes that a RemapTable does not cover are handled.
type RemapMode int

const (
	// Strict mode fails with an UnmappedClassError.
	Strict RemapMode = iota
	// Lenient mode assigns the outside value.
	Lenient
)

// lookup returns the weight of code and whether the table covers it.
func (t *RemapTable) lookup(code int, domain map[int]bool) (float64, bool) {
	if w, ok := t.Weights[code]; ok {
		return w, true
	}
	if domain[code] {
		return t.Fallback, true
	}
	return 0, false
}

// Codes returns the sorted codes covered by the table.
func (t *RemapTable) Codes() []int {
	set := make(map[int]bool)
	for c := range t.Weights {
		set[c] = true
	}
	for _, c := range t.Domain {
		set[c] = true
	}
	o := make([]int, 0, len(set))
	for c := range set {
		o = append(o, c)
	}
	sort.Ints(o)
	return o
}

// Remap returns a grid where each valid cell of g holds the weight that
// t assigns to the cell's code. No-data cells stay no-data. Codes that
// t does not cover cause an UnmappedClassError in Strict mode and are
// set to outside in Lenient mode.
func Remap(g *Grid, t *RemapTable, mode RemapMode, outside float64) (*Grid, error) {
	domain := make(map[int]bool, len(t.Domain))
	for _, c := range t.Domain {
		domain[c] = true
	}
	out := g.derive(g.Name)
	out.Class = t.Class
	for i, v := range g.Data.Elements {
		if g.IsNoData(v) {
			continue
		}
		code := int(math.Round(v))
		w, ok := t.lookup(code, domain)
		if ok && float64(code) != v {
			ok = false
		}
		if !ok {
			if mode == Strict {
				row, col := g.RowCol(i)
				return nil, &UnmappedClassError{Code: code, Grid: g.Name, Row: row, Col: col}
			}
			w = outside
		}
		out.Data.Elements[i] = w
	}
	return out, nil
}

func (t *RemapTable) String() string {
	return fmt.Sprintf("RemapTable(%v: %d codes)", t.Class, len(t.Codes()))
}
