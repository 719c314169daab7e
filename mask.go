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

// Mask marks the valid cells of a frame. Masks are not modified after
// they are created.
type Mask struct {
	Frame
	valid []bool
	n     int
}

// NewMask returns a mask in frame f where cell i is valid if
// valid(i) returns true.
func NewMask(f Frame, valid func(i int) bool) *Mask {
	m := &Mask{Frame: f, valid: make([]bool, f.Len())}
	for i := range m.valid {
		if valid(i) {
			m.valid[i] = true
			m.n++
		}
	}
	return m
}

// FullMask returns a mask where every cell of f is valid.
func FullMask(f Frame) *Mask {
	return NewMask(f, func(int) bool { return true })
}

// MaskFromGrid returns a mask that is valid wherever g holds data.
func MaskFromGrid(g *Grid) *Mask {
	return NewMask(g.Frame, g.Valid)
}

// Valid returns whether cell i is valid.
func (m *Mask) Valid(i int) bool { return m.valid[i] }

// Count returns the number of valid cells.
func (m *Mask) Count() int { return m.n }

// And returns a mask that is valid where both m and o are valid.
// A nil o leaves m unchanged.
func (m *Mask) And(o *Mask) (*Mask, error) {
	if o == nil {
		return m, nil
	}
	if err := m.check(o.Frame, "mask"); err != nil {
		return nil, err
	}
	return NewMask(m.Frame, func(i int) bool { return m.valid[i] && o.valid[i] }), nil
}

// check returns a MaskMismatchError if f is not aligned with m.
func (m *Mask) check(f Frame, name string) error {
	if !m.Frame.Compatible(f) {
		return &MaskMismatchError{Grid: name, GridFrame: f, MaskFrame: m.Frame}
	}
	return nil
}

// Clip returns a copy of g where every cell outside of mask is no-data.
// A nil mask returns an unmodified copy.
func Clip(g *Grid, mask *Mask) (*Grid, error) {
	o := g.Copy()
	if mask == nil {
		return o, nil
	}
	if err := mask.check(g.Frame, g.Name); err != nil {
		return nil, err
	}
	for i := range o.Data.Elements {
		if !mask.valid[i] {
			o.Data.Elements[i] = g.NoData
		}
	}
	return o, nil
}
