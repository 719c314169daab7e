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

import "fmt"

// EmptyNeighborhoodDefault is the value FocalMean assigns to cells whose
// neighborhood contains no valid data. It is a policy rather than an
// error: a window with no members of a class reads as zero percent.
const EmptyNeighborhoodDefault = 0.0

// UnmappedClassError is returned by strict remapping when a cell holds a
// code that the remap table does not cover.
type UnmappedClassError struct {
	Code     int
	Grid     string
	Row, Col int
}

func (e *UnmappedClassError) Error() string {
	return fmt.Sprintf("envvars: remapping %s: class code %d at row %d, column %d is not in the remap table",
		e.Grid, e.Code, e.Row, e.Col)
}

// InvalidKernelError is returned for kernels with non-positive sizes or
// without an explicit unit.
type InvalidKernelError struct {
	Kernel string
	Reason string
}

func (e *InvalidKernelError) Error() string {
	return fmt.Sprintf("envvars: invalid kernel %s: %s", e.Kernel, e.Reason)
}

// MaskMismatchError is returned when a grid and a mask do not share the
// same dimensions, cell size and alignment.
type MaskMismatchError struct {
	Grid      string
	GridFrame Frame
	MaskFrame Frame
}

func (e *MaskMismatchError) Error() string {
	return fmt.Sprintf("envvars: grid %q (%v) does not match mask (%v)",
		e.Grid, e.GridFrame, e.MaskFrame)
}

// ConvergenceError is returned when a recursive gap fill reaches its
// iteration limit before every template cell holds data.
type ConvergenceError struct {
	Grid          string
	Iterations    int
	Valid, Target int
	Radius        float64 // fill radius at the last iteration [map units]
}

func (e *ConvergenceError) Error() string {
	return fmt.Sprintf("envvars: gap fill of %q did not converge after %d iterations: "+
		"%d of %d template cells filled (radius %g)",
		e.Grid, e.Iterations, e.Valid, e.Target, e.Radius)
}
