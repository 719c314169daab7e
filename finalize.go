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

	"github.com/Knetic/govaluate"
)

// FinalizeExpression converts a continuous value to a scaled integer.
const FinalizeExpression = "int(value * mult + 0.5001)"

// expressionFunctions are the functions available in band-math expressions.
var expressionFunctions = map[string]govaluate.ExpressionFunction{
	"int": func(args ...interface{}) (interface{}, error) {
		x, err := oneArg("int", args)
		return math.Trunc(x), err
	},
	"abs": func(args ...interface{}) (interface{}, error) {
		x, err := oneArg("abs", args)
		return math.Abs(x), err
	},
	"sqrt": func(args ...interface{}) (interface{}, error) {
		x, err := oneArg("sqrt", args)
		return math.Sqrt(x), err
	},
	"log": func(args ...interface{}) (interface{}, error) {
		x, err := oneArg("log", args)
		return math.Log(x), err
	},
	"exp": func(args ...interface{}) (interface{}, error) {
		x, err := oneArg("exp", args)
		return math.Exp(x), err
	},
	"min": func(args ...interface{}) (interface{}, error) {
		x, y, err := twoArgs("min", args)
		return math.Min(x, y), err
	},
	"max": func(args ...interface{}) (interface{}, error) {
		x, y, err := twoArgs("max", args)
		return math.Max(x, y), err
	},
}

func oneArg(name string, args []interface{}) (float64, error) {
	if len(args) != 1 {
		return math.NaN(), fmt.Errorf("%s takes 1 argument but got %d", name, len(args))
	}
	x, ok := args[0].(float64)
	if !ok {
		return math.NaN(), fmt.Errorf("%s: invalid argument %v", name, args[0])
	}
	return x, nil
}

func twoArgs(name string, args []interface{}) (float64, float64, error) {
	if len(args) != 2 {
		return math.NaN(), math.NaN(), fmt.Errorf("%s takes 2 arguments but got %d", name, len(args))
	}
	x, ok1 := args[0].(float64)
	y, ok2 := args[1].(float64)
	if !ok1 || !ok2 {
		return math.NaN(), math.NaN(), fmt.Errorf("%s: invalid arguments %v", name, args)
	}
	return x, y, nil
}

// Evaluate calculates expr for each cell. Variables in expr refer to the
// grids in inputs or to the constants in params. Cells where any
// referenced grid is no-data, or where mask is invalid, are no-data.
// All grids must share a frame. Boolean results become 1 or 0.
func Evaluate(expr string, inputs map[string]*Grid, params map[string]float64, mask *Mask) (*Grid, error) {
	expression, err := govaluate.NewEvaluableExpressionWithFunctions(expr, expressionFunctions)
	if err != nil {
		return nil, fmt.Errorf("envvars: parsing expression %q: %v", expr, err)
	}
	var grids []*Grid
	var names []string
	vars := expression.Vars()
	sort.Strings(vars)
	for _, v := range vars {
		if g, ok := inputs[v]; ok {
			grids = append(grids, g)
			names = append(names, v)
		} else if _, ok := params[v]; !ok {
			return nil, fmt.Errorf("envvars: expression %q: undefined variable %q", expr, v)
		}
	}
	if len(grids) == 0 {
		return nil, fmt.Errorf("envvars: expression %q does not refer to any grid", expr)
	}
	ref := grids[0]
	for i, g := range grids[1:] {
		if !g.Frame.Compatible(ref.Frame) {
			return nil, &MaskMismatchError{Grid: names[i+1], GridFrame: g.Frame, MaskFrame: ref.Frame}
		}
	}
	if mask != nil {
		if err := mask.check(ref.Frame, ref.Name); err != nil {
			return nil, err
		}
	}
	out := ref.derive(ref.Name)
	out.Class = NoClass
	p := make(map[string]interface{}, len(vars))
	for k, v := range params {
		p[k] = v
	}
cells:
	for i := range out.Data.Elements {
		if mask != nil && !mask.Valid(i) {
			continue
		}
		for j, g := range grids {
			v := g.Data.Elements[i]
			if g.IsNoData(v) {
				continue cells
			}
			p[names[j]] = v
		}
		r, err := expression.Evaluate(p)
		if err != nil {
			row, col := out.RowCol(i)
			return nil, fmt.Errorf("envvars: evaluating %q at row %d, column %d: %v", expr, row, col, err)
		}
		switch v := r.(type) {
		case float64:
			out.Data.Elements[i] = v
		case bool:
			if v {
				out.Data.Elements[i] = 1
			} else {
				out.Data.Elements[i] = 0
			}
		default:
			return nil, fmt.Errorf("envvars: expression %q returned %T", expr, r)
		}
	}
	return out, nil
}

// Finalize returns int(value*mult + 0.5001) for each valid cell of g,
// clipped to mask, which may be nil.
func Finalize(g *Grid, mult float64, mask *Mask) (*Grid, error) {
	out, err := Evaluate(FinalizeExpression, map[string]*Grid{"value": g},
		map[string]float64{"mult": mult}, mask)
	if err != nil {
		return nil, err
	}
	out.Name = g.Name
	out.Class = g.Class
	return out, nil
}
