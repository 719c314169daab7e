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
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/ctessum/geom"
	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/floats"
)

// FillMode selects the gap-filling algorithm.
type FillMode int

const (
	// Recursive fills gaps from their edges inward with an expanding
	// radius. Its cost grows with the logarithm of the largest gap.
	Recursive FillMode = iota
	// SinglePass fills all gaps at once with a radius large enough for
	// the largest gap. Its cost grows with the size of the largest gap
	// times the size of the grid.
	SinglePass
)

func (m FillMode) String() string {
	switch m {
	case Recursive:
		return "recursive"
	case SinglePass:
		return "singlepass"
	default:
		return fmt.Sprintf("FillMode(%d)", int(m))
	}
}

// ParseFillMode returns the fill mode with the given name.
func ParseFillMode(s string) (FillMode, error) {
	switch strings.ToLower(strings.Replace(strings.TrimSpace(s), "-", "", -1)) {
	case "recursive":
		return Recursive, nil
	case "singlepass", "single":
		return SinglePass, nil
	default:
		return 0, fmt.Errorf("envvars: invalid fill mode %q; valid options are recursive and singlepass", s)
	}
}

// Default fill settings. The margin and the recursive radius settings
// are empirical and are meant to be tuned.
const (
	DefaultFillMargin    = 90.0 // [map units]
	DefaultInitialRadius = 15.0 // [cells]
	DefaultGrowth        = 2.0
	DefaultMaxIterations = 20
)

// FillConfig holds gap-filling settings.
type FillConfig struct {
	Mode      FillMode
	Statistic Statistic

	// Margin is added to the largest gap distance to get the
	// single-pass radius [map units].
	Margin float64

	// InitialRadius is the first recursive fill distance [cells].
	InitialRadius float64

	// Growth multiplies the recursive fill distance at each iteration.
	// The statistic of an iteration is calculated over a circle of
	// Growth times that iteration's fill distance.
	Growth float64

	// MaxIterations bounds the number of recursive iterations.
	MaxIterations int

	// FromOriginal calculates recursive statistics from the original
	// input rather than from the partially filled grid.
	FromOriginal bool

	// Log receives progress messages. It defaults to the logrus
	// standard logger.
	Log logrus.FieldLogger
}

// DefaultFillConfig returns the default recursive MEAN configuration.
func DefaultFillConfig() FillConfig {
	return FillConfig{
		Mode:          Recursive,
		Statistic:     Mean,
		Margin:        DefaultFillMargin,
		InitialRadius: DefaultInitialRadius,
		Growth:        DefaultGrowth,
		MaxIterations: DefaultMaxIterations,
	}
}

func (c *FillConfig) log() logrus.FieldLogger {
	if c.Log == nil {
		return logrus.StandardLogger()
	}
	return c.Log
}

func (c *FillConfig) validate() error {
	switch c.Statistic {
	case Mean, Median, Majority:
	default:
		return fmt.Errorf("envvars: invalid fill statistic %v", c.Statistic)
	}
	switch c.Mode {
	case SinglePass:
		if c.Margin < 0 || math.IsNaN(c.Margin) {
			return fmt.Errorf("envvars: fill margin must not be negative, got %g", c.Margin)
		}
	case Recursive:
		if !(c.InitialRadius >= 1) {
			return &InvalidKernelError{Kernel: fmt.Sprintf("fill radius %g cells", c.InitialRadius),
				Reason: "the initial fill radius must be at least one cell"}
		}
		if !(c.Growth > 1) {
			return fmt.Errorf("envvars: fill radius growth must be greater than 1, got %g", c.Growth)
		}
		if c.MaxIterations <= 0 {
			return fmt.Errorf("envvars: maximum fill iterations must be positive, got %d", c.MaxIterations)
		}
	default:
		return fmt.Errorf("envvars: invalid fill mode %v", c.Mode)
	}
	return nil
}

// Fill replaces the no-data cells of g that are valid in template with
// a statistic of the nearby valid values. The result is clipped to
// template. Template cells outside of g's Coverage are never filled and
// do not count toward convergence.
func Fill(ctx context.Context, g *Grid, template *Mask, cfg FillConfig) (*Grid, error) {
	if cfg.Mode == SinglePass {
		return fillSinglePass(g, template, cfg)
	}
	f, err := NewFiller(g, template, cfg)
	if err != nil {
		return nil, err
	}
	if err := f.Init(); err != nil {
		return nil, err
	}
	if err := f.Run(ctx); err != nil {
		return nil, err
	}
	return f.Result()
}

// FillRaster prepares src for filling and fills it. src is aligned to the
// frame of template, with bilinear interpolation if the cell sizes differ, the
// cells of template that hold data form the fill target, and the target
// is restricted to clip when clip is not nil.
func FillRaster(ctx context.Context, src, template *Grid, clip geom.Polygonal, cfg FillConfig) (*Grid, error) {
	var err error
	method := Nearest
	if math.Abs(src.CellSize-template.CellSize) > frameTolerance*template.CellSize {
		method = Bilinear
	}
	if src, err = Align(src, template.Frame, method); err != nil {
		return nil, err
	}
	if src.SR == "" {
		src.SR = template.SR
	}
	target := MaskFromGrid(template)
	if clip != nil {
		if target, err = target.And(PolygonMask(template.Frame, clip)); err != nil {
			return nil, err
		}
	}
	return Fill(ctx, src, target, cfg)
}

// fillRegion returns the cells of template that g covers.
func fillRegion(g *Grid, template *Mask) (*Mask, error) {
	if template == nil {
		template = FullMask(g.Frame)
	}
	if err := template.check(g.Frame, g.Name); err != nil {
		return nil, err
	}
	return template.And(g.Coverage)
}

// fillSinglePass fills every gap with one focal pass whose radius is
// the largest gap distance plus the margin.
func fillSinglePass(g *Grid, template *Mask, cfg FillConfig) (*Grid, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if template == nil {
		template = FullMask(g.Frame)
	}
	region, err := fillRegion(g, template)
	if err != nil {
		return nil, err
	}
	gap := func(i int) bool { return region.Valid(i) && !g.Valid(i) }

	d2 := squaredDistance(g)
	var dist []float64
	for i, d := range d2 {
		if gap(i) {
			dist = append(dist, d)
		}
	}
	if len(dist) == 0 {
		return Clip(g, template)
	}
	maxDist := math.Sqrt(floats.Max(dist)) * g.CellSize
	if math.IsInf(maxDist, 1) {
		return nil, &ConvergenceError{Grid: g.Name, Iterations: 1,
			Valid: region.Count() - len(dist), Target: region.Count()}
	}
	radius := maxDist + cfg.Margin
	start := time.Now()
	k := Circle{Radius: radius, Unit: MapUnits}
	offsets, err := k.Offsets(g.CellSize)
	if err != nil {
		return nil, err
	}
	stat := focalStatistic(g, offsets, cfg.Statistic, gap, nil)
	out := g.Copy()
	for i, v := range stat.Data.Elements {
		if gap(i) {
			out.Data.Elements[i] = v
		}
	}
	cfg.log().WithFields(logrus.Fields{
		"grid":      g.Name,
		"gaps":      len(dist),
		"maxdist":   maxDist,
		"radius":    radius,
		"statistic": cfg.Statistic.String(),
		"walltime":  time.Since(start).String(),
	}).Info("single-pass fill")
	return Clip(out, template)
}

// FillState is the working state of a recursive fill run.
type FillState struct {
	// Work is the partially filled grid.
	Work *Grid

	// Original is the input grid.
	Original *Grid

	// Template is the fill template and Region is the part of it
	// covered by the input.
	Template, Region *Mask

	// Target is the number of cells in Region and Valid is the number
	// of them that currently hold data.
	Target, Valid int

	// History holds Valid after each iteration.
	History []int

	// Radius is the current fill distance [map units].
	Radius float64

	// Iteration is the number of the current iteration, starting at 1.
	Iteration int

	// Done is set when the fill is finished.
	Done bool

	fillable  []bool
	nFillable int
}

// FillManipulator is a step of a recursive fill iteration.
type FillManipulator func(s *FillState) error

// Filler runs a recursive fill as a series of steps. InitFuncs run once,
// RunFuncs run in order at each iteration until the state is Done, and
// CleanupFuncs run once at the end.
type Filler struct {
	*FillState
	InitFuncs, RunFuncs, CleanupFuncs []FillManipulator
}

// NewFiller returns a Filler set up with the standard recursive fill
// steps for cfg.
func NewFiller(g *Grid, template *Mask, cfg FillConfig) (*Filler, error) {
	cfg.Mode = Recursive
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if template == nil {
		template = FullMask(g.Frame)
	}
	region, err := fillRegion(g, template)
	if err != nil {
		return nil, err
	}
	s := &FillState{
		Work:     g.Copy(),
		Original: g,
		Template: template,
		Region:   region,
		Target:   region.Count(),
		Radius:   cfg.InitialRadius * g.CellSize,
	}
	return &Filler{
		FillState: s,
		InitFuncs: []FillManipulator{
			CountValid(),
		},
		RunFuncs: []FillManipulator{
			MarkFillable(),
			FillStatistic(cfg.Statistic, cfg.Growth, cfg.FromOriginal),
			ClipToTemplate(),
			CountValid(),
			FillLog(cfg.log()),
			FillConvergenceCheck(cfg.MaxIterations),
			ExpandRadius(cfg.Growth),
		},
	}, nil
}

// Init runs the initialization steps. The fill is already Done if no
// template cell is missing data.
func (f *Filler) Init() error {
	for _, fn := range f.InitFuncs {
		if err := fn(f.FillState); err != nil {
			return err
		}
	}
	if f.Valid >= f.Target {
		f.Done = true
	}
	return nil
}

// Run runs iterations until the fill is Done, an error occurs, or ctx
// is cancelled.
func (f *Filler) Run(ctx context.Context) error {
	for !f.Done {
		if err := ctx.Err(); err != nil {
			return err
		}
		f.Iteration++
		for _, fn := range f.RunFuncs {
			if err := fn(f.FillState); err != nil {
				return err
			}
		}
	}
	for _, fn := range f.CleanupFuncs {
		if err := fn(f.FillState); err != nil {
			return err
		}
	}
	return nil
}

// Result returns the filled grid clipped to the template.
func (f *Filler) Result() (*Grid, error) {
	return Clip(f.Work, f.Template)
}

// CountValid counts the Region cells of the working grid that hold data.
func CountValid() FillManipulator {
	return func(s *FillState) error {
		n := 0
		for i, v := range s.Work.Data.Elements {
			if s.Region.Valid(i) && !s.Work.IsNoData(v) {
				n++
			}
		}
		s.Valid = n
		if s.Iteration > 0 {
			s.History = append(s.History, n)
		}
		return nil
	}
}

// MarkFillable marks the Region cells without data that are within the
// current fill distance of a cell with data.
func MarkFillable() FillManipulator {
	return func(s *FillState) error {
		d2 := squaredDistance(s.Work)
		r := s.Radius / s.Work.CellSize
		r2 := r*r + 1.e-9
		if s.fillable == nil {
			s.fillable = make([]bool, len(d2))
		}
		s.nFillable = 0
		for i, d := range d2 {
			s.fillable[i] = s.Region.Valid(i) && !s.Work.Valid(i) && d <= r2
			if s.fillable[i] {
				s.nFillable++
			}
		}
		return nil
	}
}

// FillStatistic writes stat, calculated over a circle of growth times
// the fill distance, into the fillable cells.
func FillStatistic(stat Statistic, growth float64, fromOriginal bool) FillManipulator {
	return func(s *FillState) error {
		if s.nFillable == 0 {
			return nil
		}
		k := Circle{Radius: s.Radius * growth, Unit: MapUnits}
		offsets, err := k.Offsets(s.Work.CellSize)
		if err != nil {
			return err
		}
		src := s.Work
		if fromOriginal {
			src = s.Original
		}
		res := focalStatistic(src, offsets, stat, func(i int) bool { return s.fillable[i] }, nil)
		for i, v := range res.Data.Elements {
			if s.fillable[i] {
				s.Work.Data.Elements[i] = v
			}
		}
		return nil
	}
}

// ClipToTemplate sets the working grid cells outside of the template to no-data.
func ClipToTemplate() FillManipulator {
	return func(s *FillState) error {
		for i := range s.Work.Data.Elements {
			if !s.Template.Valid(i) {
				s.Work.Data.Elements[i] = s.Work.NoData
			}
		}
		return nil
	}
}

// FillConvergenceCheck sets Done when every Region cell holds data. It
// returns a ConvergenceError if that has not happened after
// maxIterations iterations.
func FillConvergenceCheck(maxIterations int) FillManipulator {
	return func(s *FillState) error {
		if s.Valid >= s.Target {
			s.Done = true
			return nil
		}
		if s.Iteration >= maxIterations {
			return &ConvergenceError{
				Grid:       s.Work.Name,
				Iterations: s.Iteration,
				Valid:      s.Valid,
				Target:     s.Target,
				Radius:     s.Radius,
			}
		}
		return nil
	}
}

// ExpandRadius multiplies the fill distance by growth.
func ExpandRadius(growth float64) FillManipulator {
	return func(s *FillState) error {
		s.Radius *= growth
		return nil
	}
}

// FillLog writes fill status messages to log.
func FillLog(log logrus.FieldLogger) FillManipulator {
	startTime := time.Now()
	iterationTime := time.Now()
	return func(s *FillState) error {
		log.WithFields(logrus.Fields{
			"grid":      s.Work.Name,
			"iteration": s.Iteration,
			"radius":    s.Radius,
			"filled":    s.nFillable,
			"valid":     s.Valid,
			"target":    s.Target,
			"walltime":  time.Since(startTime).String(),
			"Δwalltime": time.Since(iterationTime).String(),
		}).Info("recursive fill")
		iterationTime = time.Now()
		return nil
	}
}
