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
	"errors"
	"reflect"
	"testing"
)

var testTable = &RemapTable{
	Class:   Forest,
	Weights: map[int]float64{41: 1, 42: 0.5},
	Domain:  []int{11, 41, 42},
}

func TestRemap(t *testing.T) {
	g := testGrid(t, 5, 1, -1, 41, 11, 42, -1, 11)
	r, err := Remap(g, testTable, Strict, -9)
	if err != nil {
		t.Fatal(err)
	}
	want := []float64{1, 0, 0.5, -1, 0}
	if !reflect.DeepEqual(r.Data.Elements, want) {
		t.Errorf("have %v, want %v", r.Data.Elements, want)
	}
	if r.Class != Forest {
		t.Errorf("class: have %v, want forest", r.Class)
	}
}

func TestRemapStrict(t *testing.T) {
	g := testGrid(t, 2, 2, -1, 41, 11, 99, 42)
	_, err := Remap(g, testTable, Strict, 0)
	var u *UnmappedClassError
	if !errors.As(err, &u) {
		t.Fatalf("expected an UnmappedClassError, got %v", err)
	}
	want := UnmappedClassError{Code: 99, Grid: "test", Row: 1, Col: 0}
	if *u != want {
		t.Errorf("have %+v, want %+v", *u, want)
	}
}

func TestRemapLenient(t *testing.T) {
	g := testGrid(t, 4, 1, -1, 41, 99, 41.5, -1)
	r, err := Remap(g, testTable, Lenient, -9)
	if err != nil {
		t.Fatal(err)
	}
	want := []float64{1, -9, -9, -1}
	if !reflect.DeepEqual(r.Data.Elements, want) {
		t.Errorf("have %v, want %v", r.Data.Elements, want)
	}
	// Non-integral codes are not in the table.
	if _, err := Remap(testGrid(t, 1, 1, -1, 41.5), testTable, Strict, 0); err == nil {
		t.Error("expected an error")
	}
}

func TestRemapTableCodes(t *testing.T) {
	tbl := &RemapTable{Weights: map[int]float64{95: 1, 41: 1}, Domain: []int{11, 41}}
	if have, want := tbl.Codes(), []int{11, 41, 95}; !reflect.DeepEqual(have, want) {
		t.Errorf("have %v, want %v", have, want)
	}
}
