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
	"errors"
	"io/ioutil"
	"reflect"
	"testing"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/floats"
)

func quietLog() logrus.FieldLogger {
	l := logrus.New()
	l.Out = ioutil.Discard
	return l
}

func testFillConfig(mode FillMode) FillConfig {
	cfg := DefaultFillConfig()
	cfg.Mode = mode
	cfg.Log = quietLog()
	return cfg
}

// gapGrid returns a 4x4 grid of fives with a 2x2 gap in the middle.
func gapGrid(t *testing.T) *Grid {
	return testGrid(t, 4, 4, -1,
		5, 5, 5, 5,
		5, -1, -1, 5,
		5, -1, -1, 5,
		5, 5, 5, 5,
	)
}

// stripGrid returns a 1x9 grid with data only in the first cell.
func stripGrid(t *testing.T) *Grid {
	return testGrid(t, 9, 1, -1, 10, -1, -1, -1, -1, -1, -1, -1, -1)
}

func TestFillGap(t *testing.T) {
	for _, mode := range []FillMode{Recursive, SinglePass} {
		t.Run(mode.String(), func(t *testing.T) {
			g := gapGrid(t)
			o, err := Fill(context.Background(), g, nil, testFillConfig(mode))
			if err != nil {
				t.Fatal(err)
			}
			if o.ValidCount() != 16 {
				t.Errorf("have %d valid cells, want 16", o.ValidCount())
			}
			for i, v := range o.Data.Elements {
				if v != 5 {
					t.Errorf("cell %d: have %g, want 5", i, v)
				}
			}
			if g.ValidCount() != 12 {
				t.Error("Fill modified its input")
			}
		})
	}
}

func TestFillerConvergesInOneIteration(t *testing.T) {
	f, err := NewFiller(gapGrid(t), nil, testFillConfig(Recursive))
	if err != nil {
		t.Fatal(err)
	}
	if err := f.Init(); err != nil {
		t.Fatal(err)
	}
	if f.Valid != 12 || f.Target != 16 || f.Done {
		t.Fatalf("after Init: valid %d, target %d, done %v", f.Valid, f.Target, f.Done)
	}
	if err := f.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if f.Iteration != 1 {
		t.Errorf("iterations: have %d, want 1", f.Iteration)
	}
	if !reflect.DeepEqual(f.History, []int{16}) {
		t.Errorf("history: have %v", f.History)
	}
}

func TestFillNoGaps(t *testing.T) {
	g := testGrid(t, 2, 2, -1, 1, 2, 3, 4)
	for _, mode := range []FillMode{Recursive, SinglePass} {
		o, err := Fill(context.Background(), g, nil, testFillConfig(mode))
		if err != nil {
			t.Fatal(err)
		}
		if !reflect.DeepEqual(o.Data.Elements, g.Data.Elements) {
			t.Errorf("%v: have %v, want %v", mode, o.Data.Elements, g.Data.Elements)
		}
	}
}

func TestFillModesAgreeOnSingleGap(t *testing.T) {
	g := testGrid(t, 3, 3, -1, 1, 2, 3, 4, -1, 6, 7, 8, 9)
	var results []float64
	for _, mode := range []FillMode{Recursive, SinglePass} {
		o, err := Fill(context.Background(), g, nil, testFillConfig(mode))
		if err != nil {
			t.Fatal(err)
		}
		results = append(results, o.Get(1, 1))
	}
	for _, r := range results {
		if different(r, 5, testTolerance) {
			t.Errorf("have %v, want 5 for both modes", results)
		}
	}
}

func TestFillRecursiveGrowth(t *testing.T) {
	cfg := testFillConfig(Recursive)
	cfg.InitialRadius = 1
	f, err := NewFiller(stripGrid(t), nil, cfg)
	if err != nil {
		t.Fatal(err)
	}
	var cleaned bool
	f.CleanupFuncs = append(f.CleanupFuncs, func(*FillState) error {
		cleaned = true
		return nil
	})
	if err := f.Init(); err != nil {
		t.Fatal(err)
	}
	if err := f.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if want := []int{2, 4, 8, 9}; !reflect.DeepEqual(f.History, want) {
		t.Errorf("history: have %v, want %v", f.History, want)
	}
	for i := 1; i < len(f.History); i++ {
		if f.History[i] < f.History[i-1] {
			t.Errorf("valid count decreased: %v", f.History)
		}
	}
	if !cleaned {
		t.Error("cleanup steps did not run")
	}
	o, err := f.Result()
	if err != nil {
		t.Fatal(err)
	}
	for i, v := range o.Data.Elements {
		if v != 10 {
			t.Errorf("cell %d: have %g, want 10", i, v)
		}
	}
}

func TestFillConvergenceError(t *testing.T) {
	t.Run("iteration limit", func(t *testing.T) {
		cfg := testFillConfig(Recursive)
		cfg.InitialRadius = 1
		cfg.MaxIterations = 2
		_, err := Fill(context.Background(), stripGrid(t), nil, cfg)
		var ce *ConvergenceError
		if !errors.As(err, &ce) {
			t.Fatalf("expected a ConvergenceError, got %v", err)
		}
		want := ConvergenceError{Grid: "test", Iterations: 2, Valid: 4, Target: 9, Radius: 60}
		if *ce != want {
			t.Errorf("have %+v, want %+v", *ce, want)
		}
	})
	for _, mode := range []FillMode{Recursive, SinglePass} {
		t.Run("no data "+mode.String(), func(t *testing.T) {
			cfg := testFillConfig(mode)
			cfg.MaxIterations = 3
			g := testGrid(t, 2, 2, -1, -1, -1, -1, -1)
			_, err := Fill(context.Background(), g, nil, cfg)
			var ce *ConvergenceError
			if !errors.As(err, &ce) {
				t.Fatalf("expected a ConvergenceError, got %v", err)
			}
			if ce.Valid != 0 || ce.Target != 4 {
				t.Errorf("have %+v", *ce)
			}
			wantIter := 3
			if mode == SinglePass {
				wantIter = 1
			}
			if ce.Iterations != wantIter {
				t.Errorf("iterations: have %d, want %d", ce.Iterations, wantIter)
			}
		})
	}
}

func TestFillCoverage(t *testing.T) {
	for _, mode := range []FillMode{Recursive, SinglePass} {
		t.Run(mode.String(), func(t *testing.T) {
			g := testGrid(t, 3, 1, -1, 4, -1, -1)
			g.Coverage = NewMask(g.Frame, func(i int) bool { return i < 2 })
			o, err := Fill(context.Background(), g, nil, testFillConfig(mode))
			if err != nil {
				t.Fatal(err)
			}
			want := []float64{4, 4, -1}
			if !reflect.DeepEqual(o.Data.Elements, want) {
				t.Errorf("have %v, want %v", o.Data.Elements, want)
			}
		})
	}
}

func TestFillTemplate(t *testing.T) {
	g := gapGrid(t)
	template := NewMask(g.Frame, func(i int) bool { return i != 0 })
	for _, mode := range []FillMode{Recursive, SinglePass} {
		o, err := Fill(context.Background(), g, template, testFillConfig(mode))
		if err != nil {
			t.Fatal(err)
		}
		if o.Valid(0) || o.ValidCount() != 15 {
			t.Errorf("%v: result is not clipped to the template: %v", mode, o.Data.Elements)
		}
	}
	if _, err := Fill(context.Background(), g, FullMask(Frame{Nx: 3, Ny: 3, CellSize: 30}), testFillConfig(Recursive)); err == nil {
		t.Error("expected a mask mismatch error")
	}
}

func TestFillFromOriginal(t *testing.T) {
	g := testGrid(t, 6, 1, -1, 0, -1, -1, -1, 10, 10)
	for _, test := range []struct {
		fromOriginal bool
		want         float64
	}{
		{fromOriginal: false, want: 6},
		{fromOriginal: true, want: 20. / 3},
	} {
		cfg := testFillConfig(Recursive)
		cfg.InitialRadius = 1
		cfg.FromOriginal = test.fromOriginal
		o, err := Fill(context.Background(), g, nil, cfg)
		if err != nil {
			t.Fatal(err)
		}
		if have := o.Get(0, 2); different(have, test.want, testTolerance) {
			t.Errorf("from original %v: have %g, want %g", test.fromOriginal, have, test.want)
		}
		if o.Get(0, 1) != 0 || o.Get(0, 3) != 10 {
			t.Errorf("from original %v: first iteration values %v", test.fromOriginal, o.Data.Elements)
		}
	}
}

func TestFillInvalidConfig(t *testing.T) {
	cfg := testFillConfig(Recursive)
	cfg.InitialRadius = 0
	_, err := Fill(context.Background(), gapGrid(t), nil, cfg)
	var ik *InvalidKernelError
	if !errors.As(err, &ik) {
		t.Errorf("expected an InvalidKernelError, got %v", err)
	}

	cfg = testFillConfig(Recursive)
	cfg.Growth = 1
	if _, err := Fill(context.Background(), gapGrid(t), nil, cfg); err == nil {
		t.Error("expected an error for growth of 1")
	}
	cfg = testFillConfig(SinglePass)
	cfg.Margin = -1
	if _, err := Fill(context.Background(), gapGrid(t), nil, cfg); err == nil {
		t.Error("expected an error for a negative margin")
	}
}

func TestFillCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	cfg := testFillConfig(Recursive)
	cfg.InitialRadius = 1
	_, err := Fill(ctx, stripGrid(t), nil, cfg)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("have %v, want %v", err, context.Canceled)
	}
}

func TestFillRaster(t *testing.T) {
	src, err := NewGridFromValues(Frame{Nx: 2, Ny: 2, CellSize: 60}, -1, []float64{1, 2, 3, -1})
	if err != nil {
		t.Fatal(err)
	}
	src.Name = "src"
	template := testGrid(t, 4, 4, -1,
		1, 1, 1, 1,
		1, 1, 1, 1,
		1, 1, 1, 1,
		1, 1, 1, -1,
	)
	o, err := FillRaster(context.Background(), src, template, nil, testFillConfig(Recursive))
	if err != nil {
		t.Fatal(err)
	}
	if !o.Frame.Compatible(template.Frame) {
		t.Fatalf("result frame %v does not match the template %v", o.Frame, template.Frame)
	}
	if o.ValidCount() != 15 || o.Valid(15) {
		t.Errorf("result is not clipped to the template: %v", o.Data.Elements)
	}
	for i, v := range o.Data.Elements {
		if i != 15 && (v < 1 || v > 3) {
			t.Errorf("cell %d: %g is outside of the input range", i, v)
		}
	}
}

func TestFillRasterInterpolatesOnce(t *testing.T) {
	src, err := NewGridFromValues(Frame{Nx: 2, Ny: 1, CellSize: 60}, -1, []float64{0, 10})
	if err != nil {
		t.Fatal(err)
	}
	template, err := NewGridFromValues(Frame{Nx: 3, Ny: 1, CellSize: 30, X0: 10}, -1, []float64{1, 1, 1})
	if err != nil {
		t.Fatal(err)
	}
	o, err := FillRaster(context.Background(), src, template, nil, testFillConfig(Recursive))
	if err != nil {
		t.Fatal(err)
	}
	// Template cell centers at x = 25, 55 and 85 are interpolated
	// directly between the source centers at x = 30 and 90.
	want := []float64{0, 25. / 6, 55. / 6}
	if !floats.EqualApprox(o.Data.Elements, want, testTolerance) {
		t.Errorf("have %v, want %v", o.Data.Elements, want)
	}
}

func TestParseFillMode(t *testing.T) {
	for s, want := range map[string]FillMode{"recursive": Recursive, "Single-Pass": SinglePass, "single": SinglePass} {
		have, err := ParseFillMode(s)
		if err != nil {
			t.Error(err)
		} else if have != want {
			t.Errorf("%q: have %v, want %v", s, have, want)
		}
	}
	if _, err := ParseFillMode("iterative"); err == nil {
		t.Error("expected an error")
	}
}
