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
	"runtime"
	"sort"
	"strings"
	"sync"
)

// Statistic is a summary of the values in a neighborhood.
type Statistic int

const (
	// Mean is the arithmetic mean of the valid values.
	Mean Statistic = iota
	// Median is the middle valid value, or the average of the two
	// middle values when there is an even number of them.
	Median
	// Majority is the most common valid value. Ties go to the lowest value.
	Majority
)

func (s Statistic) String() string {
	switch s {
	case Mean:
		return "MEAN"
	case Median:
		return "MEDIAN"
	case Majority:
		return "MAJORITY"
	default:
		return fmt.Sprintf("Statistic(%d)", int(s))
	}
}

// ParseStatistic returns the statistic with the given (case-insensitive) name.
func ParseStatistic(s string) (Statistic, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "MEAN":
		return Mean, nil
	case "MEDIAN":
		return Median, nil
	case "MAJORITY":
		return Majority, nil
	default:
		return 0, fmt.Errorf("envvars: invalid statistic %q; valid options are MEAN, MEDIAN and MAJORITY", s)
	}
}

// FocalMean returns the mean of the valid values of g within kernel k
// centered on each valid cell of mask. Cells whose neighborhood holds
// no valid values get EmptyNeighborhoodDefault. Cells outside of mask
// are no-data. A nil mask is treated as valid everywhere.
func FocalMean(g *Grid, k Kernel, mask *Mask) (*Grid, error) {
	if mask == nil {
		mask = FullMask(g.Frame)
	}
	if err := mask.check(g.Frame, g.Name); err != nil {
		return nil, err
	}
	offsets, err := k.Offsets(g.CellSize)
	if err != nil {
		return nil, err
	}
	empty := EmptyNeighborhoodDefault
	return focalStatistic(g, offsets, Mean, mask.Valid, &empty), nil
}

// FocalStatistic returns statistic stat of the valid values of g within
// kernel k centered on each valid cell of mask. Unlike FocalMean, cells
// whose neighborhood holds no valid values are no-data.
func FocalStatistic(g *Grid, k Kernel, stat Statistic, mask *Mask) (*Grid, error) {
	if mask == nil {
		mask = FullMask(g.Frame)
	}
	if err := mask.check(g.Frame, g.Name); err != nil {
		return nil, err
	}
	offsets, err := k.Offsets(g.CellSize)
	if err != nil {
		return nil, err
	}
	return focalStatistic(g, offsets, stat, mask.Valid, nil), nil
}

// focalStatistic calculates stat for each cell i of src for which want(i)
// is true. Neighborhoods without valid values are set to *empty, or to
// no-data if empty is nil. All other cells of the result are no-data.
func focalStatistic(src *Grid, offsets []Offset, stat Statistic, want func(i int) bool, empty *float64) *Grid {
	out := src.derive(src.Name)
	nx, ny := src.Nx, src.Ny

	var newWorker func() func(row int)
	if stat == Mean {
		p := newRowSums(src)
		strips := runs(offsets)
		newWorker = func() func(row int) {
			return func(row int) {
				for col := 0; col < nx; col++ {
					i := row*nx + col
					if !want(i) {
						continue
					}
					sum, n := p.window(row, col, strips)
					if n > 0 {
						out.Data.Elements[i] = sum / n
					} else if empty != nil {
						out.Data.Elements[i] = *empty
					}
				}
			}
		}
	} else {
		newWorker = func() func(row int) {
			buf := make([]float64, 0, len(offsets))
			return func(row int) {
				for col := 0; col < nx; col++ {
					i := row*nx + col
					if !want(i) {
						continue
					}
					buf = buf[:0]
					for _, o := range offsets {
						r, c := row+o.DRow, col+o.DCol
						if r < 0 || r >= ny || c < 0 || c >= nx {
							continue
						}
						if v := src.Data.Elements[r*nx+c]; !src.IsNoData(v) {
							buf = append(buf, v)
						}
					}
					if len(buf) == 0 {
						if empty != nil {
							out.Data.Elements[i] = *empty
						}
						continue
					}
					sort.Float64s(buf)
					if stat == Median {
						out.Data.Elements[i] = median(buf)
					} else {
						out.Data.Elements[i] = majority(buf)
					}
				}
			}
		}
	}
	parallelRows(ny, newWorker)
	return out
}

// parallelRows concurrently processes rows 0 through ny-1. Each
// goroutine gets its own worker from newWorker so that workers can keep
// scratch space.
func parallelRows(ny int, newWorker func() func(row int)) {
	nprocs := runtime.GOMAXPROCS(0) // number of processors
	var wg sync.WaitGroup
	wg.Add(nprocs)
	for pp := 0; pp < nprocs; pp++ {
		go func(pp int) {
			f := newWorker()
			for row := pp; row < ny; row += nprocs {
				f(row)
			}
			wg.Done()
		}(pp)
	}
	wg.Wait()
}

// median returns the median of sorted values.
func median(sorted []float64) float64 {
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// majority returns the most frequent of sorted values. Because the
// values are sorted and only a strictly larger count replaces the
// current winner, ties go to the lowest value.
func majority(sorted []float64) float64 {
	best, bestN := sorted[0], 0
	for i := 0; i < len(sorted); {
		j := i
		for j < len(sorted) && sorted[j] == sorted[i] {
			j++
		}
		if j-i > bestN {
			best, bestN = sorted[i], j-i
		}
		i = j
	}
	return best
}

// maxPrefixRatio bounds the ratio between the magnitude of a row's
// running total and the magnitude of a strip's values for the strip sum to
// be taken from the running totals. Beyond it more than 20 of the 53 bits
// of the strip sum would be lost to cancellation.
const maxPrefixRatio = 1 << 20

// rowSums holds cumulative sums and counts of the valid values along
// each row, so the sum over a horizontal strip usually takes constant time.
// Strips whose values are small compared to the running total, such as
// those to the right of an extreme value, are summed directly.
type rowSums struct {
	g               *Grid
	nx, ny          int
	sum, abs, count []float64 // [ny][nx+1]

	// exact rows hold only integers with a total below 2^53, so their
	// running totals have no rounding error.
	exact []bool
}

func newRowSums(g *Grid) *rowSums {
	n := g.Ny * (g.Nx + 1)
	p := &rowSums{
		g:     g,
		nx:    g.Nx,
		ny:    g.Ny,
		sum:   make([]float64, n),
		abs:   make([]float64, n),
		count: make([]float64, n),
		exact: make([]bool, g.Ny),
	}
	for row := 0; row < g.Ny; row++ {
		base := row * (g.Nx + 1)
		exact := true
		for col := 0; col < g.Nx; col++ {
			v := g.Data.Elements[row*g.Nx+col]
			p.sum[base+col+1] = p.sum[base+col]
			p.abs[base+col+1] = p.abs[base+col]
			p.count[base+col+1] = p.count[base+col]
			if !g.IsNoData(v) {
				p.sum[base+col+1] += v
				p.abs[base+col+1] += math.Abs(v)
				p.count[base+col+1]++
				if v != math.Trunc(v) {
					exact = false
				}
			}
		}
		p.exact[row] = exact && p.abs[base+g.Nx] < 1<<53
	}
	return p
}

// window returns the sum and number of valid values in the strips
// centered on (row, col).
func (p *rowSums) window(row, col int, strips []run) (sum, n float64) {
	for _, s := range strips {
		r := row + s.dRow
		if r < 0 || r >= p.ny {
			continue
		}
		c0, c1 := col+s.colLo, col+s.colHi
		if c0 < 0 {
			c0 = 0
		}
		if c1 > p.nx-1 {
			c1 = p.nx - 1
		}
		if c0 > c1 {
			continue
		}
		base := r * (p.nx + 1)
		n += p.count[base+c1+1] - p.count[base+c0]
		a1 := p.abs[base+c1+1]
		if p.exact[r] || a1 <= (a1-p.abs[base+c0])*maxPrefixRatio {
			sum += p.sum[base+c1+1] - p.sum[base+c0]
			continue
		}
		for _, v := range p.g.Data.Elements[r*p.nx+c0 : r*p.nx+c1+1] {
			if !p.g.IsNoData(v) {
				sum += v
			}
		}
	}
	return sum, n
}
