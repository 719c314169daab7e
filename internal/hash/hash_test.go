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
along with InMAP.  If not, see <http://www.gnu.org/licenses/>.*/

package hash

import (
	"math"
	"strings"
	"testing"
)

func TestKey(t *testing.T) {
	type req struct {
		Path string
		Vals map[string]float64
	}
	a := Key("raster", req{Path: "a.asc", Vals: map[string]float64{"x": 1, "y": math.NaN()}})
	b := Key("raster", req{Path: "a.asc", Vals: map[string]float64{"y": math.NaN(), "x": 1}})
	if a != b {
		t.Errorf("keys differ for equal values: %s != %s", a, b)
	}
	if !strings.HasPrefix(a, "raster_") {
		t.Errorf("key %s is missing prefix", a)
	}
	c := Key("raster", req{Path: "b.asc"})
	if a == c {
		t.Errorf("keys should differ: %s", a)
	}
}
