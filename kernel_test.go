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

func TestRectangleOffsets(t *testing.T) {
	o, err := Rectangle{Width: 3, Height: 3}.Offsets(30)
	if err != nil {
		t.Fatal(err)
	}
	if len(o) != 9 || o[0] != (Offset{DRow: -1, DCol: -1}) || o[8] != (Offset{DRow: 1, DCol: 1}) {
		t.Errorf("3x3 offsets: %v", o)
	}
	// The extra cell of an even dimension is on the north or east side.
	o, err = Rectangle{Width: 2, Height: 1}.Offsets(30)
	if err != nil {
		t.Fatal(err)
	}
	want := []Offset{{DRow: 0, DCol: 0}, {DRow: 0, DCol: 1}}
	if !reflect.DeepEqual(o, want) {
		t.Errorf("2x1 offsets: have %v, want %v", o, want)
	}
}

func TestCircleOffsets(t *testing.T) {
	for _, test := range []struct {
		k        Circle
		cellSize float64
		n        int
	}{
		{k: Circle{Radius: 1, Unit: Cells}, cellSize: 30, n: 5},
		{k: Circle{Radius: 2, Unit: Cells}, cellSize: 30, n: 13},
		{k: Circle{Radius: 60, Unit: MapUnits}, cellSize: 30, n: 13},
		{k: Circle{Radius: 0.5, Unit: Cells}, cellSize: 30, n: 1},
		{k: Circle{Radius: 10, Unit: Cells}, cellSize: 30, n: 317},
	} {
		t.Run(test.k.String(), func(t *testing.T) {
			o, err := test.k.Offsets(test.cellSize)
			if err != nil {
				t.Fatal(err)
			}
			if len(o) != test.n {
				t.Errorf("have %d offsets, want %d", len(o), test.n)
			}
		})
	}
}

func TestInvalidKernel(t *testing.T) {
	for _, k := range []Kernel{
		Rectangle{Width: 0, Height: 3},
		Rectangle{Width: 3, Height: -1},
		Circle{Radius: -1, Unit: Cells},
		Circle{Radius: 0, Unit: MapUnits},
		Circle{Radius: 10}, // no unit
	} {
		t.Run(k.String(), func(t *testing.T) {
			_, err := k.Offsets(30)
			var ik *InvalidKernelError
			if !errors.As(err, &ik) {
				t.Errorf("expected an InvalidKernelError, got %v", err)
			}
		})
	}
	g := testGrid(t, 1, 1, -1, 1)
	if _, err := FocalMean(g, Circle{Radius: 10}, nil); err == nil {
		t.Error("FocalMean should reject a circle without a unit")
	}
}

func TestParseKernel(t *testing.T) {
	for _, test := range []struct {
		s     string
		k     Kernel
		token string
	}{
		{s: "rect3x3", k: Rectangle{Width: 3, Height: 3}, token: "1"},
		{s: "rect5", k: Rectangle{Width: 5, Height: 5}, token: "2"},
		{s: "rect4x2", k: Rectangle{Width: 4, Height: 2}, token: "4x2"},
		{s: "Circle10Cell", k: Circle{Radius: 10, Unit: Cells}, token: "10"},
		{s: "circle100cells", k: Circle{Radius: 100, Unit: Cells}, token: "100"},
		{s: "circle1000map", k: Circle{Radius: 1000, Unit: MapUnits}, token: "1000m"},
	} {
		t.Run(test.s, func(t *testing.T) {
			k, err := ParseKernel(test.s)
			if err != nil {
				t.Fatal(err)
			}
			if !reflect.DeepEqual(k, test.k) {
				t.Errorf("have %v, want %v", k, test.k)
			}
			if k.Token() != test.token {
				t.Errorf("token: have %s, want %s", k.Token(), test.token)
			}
		})
	}
	for _, s := range []string{"circle10", "rect0x3", "square3", "circle0cell"} {
		if _, err := ParseKernel(s); err == nil {
			t.Errorf("%s: expected an error", s)
		}
	}
}

func TestDefaultScaleTokens(t *testing.T) {
	var tokens []string
	for _, k := range DefaultScales {
		tokens = append(tokens, k.Token())
	}
	if want := []string{"1", "10", "100"}; !reflect.DeepEqual(tokens, want) {
		t.Errorf("have %v, want %v", tokens, want)
	}
}
