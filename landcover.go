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
	"io"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
)

// LandCoverClass identifies the semantic layer a grid represents.
type LandCoverClass int

// These are the land-cover classes.
const (
	NoClass LandCoverClass = iota
	Forest
	Wetland
	Open
	Water
	ShrubScrub
	Evergreen
	DecidMix
	EverMix
	// Impervious and Canopy are continuous auxiliary layers rather than
	// remapped classes.
	Impervious
	Canopy
)

var classNames = []string{"", "forest", "wetland", "open", "water", "shrubscrub",
	"evergreen", "decidmix", "evermix", "impervious", "canopy"}

func (c LandCoverClass) String() string {
	if c < 0 || int(c) >= len(classNames) {
		return fmt.Sprintf("class%d", int(c))
	}
	return classNames[c]
}

// ParseLandCoverClass returns the class with the given name.
func ParseLandCoverClass(s string) (LandCoverClass, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, n := range classNames {
		if i > 0 && n == s {
			return LandCoverClass(i), nil
		}
	}
	return NoClass, fmt.Errorf("envvars: invalid land-cover class %q", s)
}

// ImperviousNoData is the impervious surface code for cells outside of
// the mapped area.
const ImperviousNoData = 127

// PrepareImpervious returns a copy of an impervious surface grid with
// ImperviousNoData cells set to no-data and the Impervious class tag.
func PrepareImpervious(g *Grid) *Grid {
	o := SetNull(g, func(v float64) bool { return v == ImperviousNoData })
	o.Class = Impervious
	return o
}

// LandCoverMask returns the default study mask for a land-cover grid:
// valid wherever the grid holds a nonzero code.
func LandCoverMask(g *Grid) *Mask {
	return NewMask(g.Frame, func(i int) bool {
		return g.Valid(i) && g.Data.Elements[i] != 0
	})
}

// Scheme is a land-cover classification scheme: the legal source codes
// and one remap table per output class.
type Scheme struct {
	Name   string
	Domain []int
	Tables []*RemapTable
}

// Table returns the remap table for class c, or nil if the scheme has none.
func (s *Scheme) Table(c LandCoverClass) *RemapTable {
	for _, t := range s.Tables {
		if t.Class == c {
			return t
		}
	}
	return nil
}

func newScheme(name string, domain []int, weights map[LandCoverClass]map[int]float64) *Scheme {
	s := &Scheme{Name: name, Domain: domain}
	for c := Forest; c <= EverMix; c++ {
		s.Tables = append(s.Tables, &RemapTable{
			Class:   c,
			Weights: weights[c],
			Domain:  domain,
		})
	}
	return s
}

// NLCD2001 is the 2001 and later National Land Cover Database scheme.
var NLCD2001 = newScheme("NLCD2001",
	[]int{11, 12, 21, 22, 23, 24, 31, 41, 42, 43, 52, 71, 81, 82, 90, 95},
	map[LandCoverClass]map[int]float64{
		Forest:     {41: 1, 42: 1, 43: 1},
		Wetland:    {90: 1, 95: 1},
		Open:       {31: 1, 71: 1, 81: 1, 82: 1},
		Water:      {11: 1},
		ShrubScrub: {52: 1},
		Evergreen:  {42: 1},
		DecidMix:   {41: 100, 43: 50},
		EverMix:    {42: 100, 43: 50},
	})

// NLCD1992 is the 1992 National Land Cover Dataset scheme. Its tables
// also cover the 2001 codes 24, 52, 90 and 95, which occur in
// mixed-vintage products.
var NLCD1992 = newScheme("NLCD1992",
	[]int{11, 12, 21, 22, 23, 24, 31, 32, 33, 41, 42, 43, 51, 52, 61, 71,
		81, 82, 83, 84, 85, 90, 91, 92, 95},
	map[LandCoverClass]map[int]float64{
		Forest:     {41: 1, 42: 1, 43: 1},
		Wetland:    {90: 1, 91: 1, 92: 1, 95: 1},
		Open:       {31: 1, 32: 1, 33: 1, 61: 1, 71: 1, 81: 1, 82: 1, 83: 1, 84: 1, 85: 0},
		Water:      {11: 1},
		ShrubScrub: {51: 1, 52: 1},
		Evergreen:  {42: 1},
		DecidMix:   {41: 100, 43: 50},
		EverMix:    {42: 100, 43: 50},
	})

// SchemeByName returns the built-in scheme with the given name. "2001"
// and "1992" are accepted as short names.
func SchemeByName(name string) (*Scheme, error) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "NLCD2001", "2001", "":
		return NLCD2001, nil
	case "NLCD1992", "1992":
		return NLCD1992, nil
	default:
		return nil, fmt.Errorf("envvars: invalid classification scheme %q", name)
	}
}

// schemeFile is the TOML representation of a Scheme.
type schemeFile struct {
	Name   string
	Domain []int
	Table  []struct {
		Class    string
		Fallback float64
		Weights  map[string]float64
	}
}

// LoadScheme reads a classification scheme in TOML format, for example:
//
//	name = "custom"
//	domain = [11, 41, 42]
//	[[table]]
//	class = "forest"
//	[table.weights]
//	"41" = 1.0
//	"42" = 1.0
func LoadScheme(r io.Reader) (*Scheme, error) {
	var f schemeFile
	if _, err := toml.DecodeReader(r, &f); err != nil {
		return nil, fmt.Errorf("envvars: reading classification scheme: %v", err)
	}
	if len(f.Table) == 0 {
		return nil, fmt.Errorf("envvars: classification scheme %q has no tables", f.Name)
	}
	s := &Scheme{Name: f.Name, Domain: f.Domain}
	for _, t := range f.Table {
		c, err := ParseLandCoverClass(t.Class)
		if err != nil {
			return nil, err
		}
		rt := &RemapTable{
			Class:    c,
			Domain:   f.Domain,
			Fallback: t.Fallback,
			Weights:  make(map[int]float64, len(t.Weights)),
		}
		for k, w := range t.Weights {
			code, err := strconv.Atoi(strings.TrimSpace(k))
			if err != nil {
				return nil, fmt.Errorf("envvars: scheme %q class %s: invalid code %q", f.Name, c, k)
			}
			rt.Weights[code] = w
		}
		s.Tables = append(s.Tables, rt)
	}
	return s, nil
}
